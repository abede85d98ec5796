package util

import (
	"time"

	"gopkg.in/ini.v1"
)

// Config contains the settings of an INI file. Zero values mean "not set".
//
//	[server]
//	listen = 127.0.0.1:8080
//	base = /releasecab
//
//	[database]
//	url = sqlite3:releasecab.sqlite3
//
//	[session]
//	idle-timeout = 12h
//	lifetime = 720h
type Config struct {
	Listen             string
	Base               string
	DatabaseURL        string
	SessionIdleTimeout time.Duration
	SessionLifetime    time.Duration
}

// LoadConfig reads an INI file. An empty filename returns an empty Config.
func LoadConfig(filename string) (*Config, error) {

	var conf = &Config{}
	if filename == "" {
		return conf, nil
	}

	file, err := ini.Load(filename)
	if err != nil {
		return nil, err
	}

	var server = file.Section("server")
	conf.Listen = server.Key("listen").String()
	conf.Base = server.Key("base").String()

	conf.DatabaseURL = file.Section("database").Key("url").String()

	var session = file.Section("session")
	if key := session.Key("idle-timeout"); key.String() != "" {
		if conf.SessionIdleTimeout, err = key.Duration(); err != nil {
			return nil, err
		}
	}
	if key := session.Key("lifetime"); key.String() != "" {
		if conf.SessionLifetime, err = key.Duration(); err != nil {
			return nil, err
		}
	}

	return conf, nil
}
