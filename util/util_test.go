package util

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRandomDigits(t *testing.T) {

	s, err := RandomDigits(5)
	require.NoError(t, err)
	assert.Regexp(t, `^\d{5}$`, s)

	_, err = RandomDigits(0)
	assert.Error(t, err)
}

func TestNormalizeBase(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"", ""},
		{"/", ""},
		{"releasecab", "/releasecab"},
		{"/releasecab/", "/releasecab"},
		{"a/b", "/a/b"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeBase(tt.input), tt.input)
	}
}

func TestHandlePrefix(t *testing.T) {

	var mux = http.NewServeMux()
	HandlePrefix(mux, "/base/api", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/old" {
			http.Redirect(w, r, "/new", http.StatusFound)
			return
		}
		w.Write([]byte(r.URL.Path))
	}))

	var rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/base/api/releases", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "/releases", rec.Body.String())

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/base/api/old", nil))
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/base/api/new", rec.Header().Get("Location"))

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/other", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLoadConfig(t *testing.T) {

	conf, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, &Config{}, conf)

	var filename = filepath.Join(t.TempDir(), "releasecab.ini")
	require.NoError(t, os.WriteFile(filename, []byte(`
[server]
listen = 127.0.0.1:9000
base = /releasecab

[database]
url = sqlite3:test.sqlite3

[session]
lifetime = 24h
`), 0600))

	conf, err = LoadConfig(filename)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", conf.Listen)
	assert.Equal(t, "/releasecab", conf.Base)
	assert.Equal(t, "sqlite3:test.sqlite3", conf.DatabaseURL)
	assert.Equal(t, time.Duration(0), conf.SessionIdleTimeout)
	assert.Equal(t, 24*time.Hour, conf.SessionLifetime)

	require.NoError(t, os.WriteFile(filename, []byte("[session]\nidle-timeout = soon\n"), 0600))
	_, err = LoadConfig(filename)
	assert.Error(t, err)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.ini"))
	assert.Error(t, err)
}
