package util

import (
	"net/http"
	"strings"
)

type prefixedResponseWriter struct {
	http.ResponseWriter
	prefix string // without trailing slash
}

// WriteHeader shadows and calls http.ResponseWriter.WriteHeader.
func (w prefixedResponseWriter) WriteHeader(statusCode int) {
	// modify Location header, absolute locations only
	if w.prefix != "" {
		if location := w.Header().Get("Location"); len(location) > 0 && location[0] == '/' {
			w.Header().Set("Location", w.prefix+location)
		}
	}
	w.ResponseWriter.WriteHeader(statusCode)
}

// NormalizeBase trims slashes and returns "" or "/base".
func NormalizeBase(base string) string {
	base = strings.Trim(base, "/")
	if base != "" {
		base = "/" + base
	}
	return base
}

// HandlePrefix registers the handler at prefix + "/", strips the prefix from incoming requests
// and prepends it to absolute redirect locations.
func HandlePrefix(mux *http.ServeMux, prefix string, handler http.Handler) {
	prefix = strings.TrimSuffix(prefix, "/")
	mux.Handle(
		prefix+"/", // http mux needs trailing slash
		http.StripPrefix(
			prefix,
			http.HandlerFunc(
				func(w http.ResponseWriter, r *http.Request) {
					handler.ServeHTTP(prefixedResponseWriter{w, prefix}, r)
				},
			),
		),
	)
}
