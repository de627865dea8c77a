// Copyright (c) 2026, Ganeti Project. All rights reserved.
//
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package config loads the exporter configuration from an INI file.
package config

import (
	"fmt"
	"time"

	"gopkg.in/ini.v1"
)

const (
	defaultPort            = 8000
	defaultRefreshInterval = 30 * time.Second

	defaultHspacePath         = "/usr/bin/hspace"
	defaultHspaceDiskTemplate = "plain"
	defaultHspaceAllocData    = "20480,2048,2"
	defaultHbalPath           = "/usr/bin/hbal"
)

// Config is the full exporter configuration. The [ganeti] section supplies
// the cluster connection and is mandatory; [default] and [htools] tune the
// exporter itself and are optional with the defaults below.
type Config struct {
	// [default]
	Port            int
	RefreshInterval time.Duration
	Namespace       string
	VerifyTLS       bool

	// [ganeti]
	APIEndpoint string
	User        string
	Password    string

	// [htools]
	HspaceEnabled      bool
	HspacePath         string
	HspaceDiskTemplate string
	HspaceAllocData    string
	HbalEnabled        bool
	HbalPath           string
	HbalExtraParams    string
}

// HtoolsEnabled reports whether any htools collection is configured.
func (c *Config) HtoolsEnabled() bool {
	return c.HspaceEnabled || c.HbalEnabled
}

// Load reads and validates the configuration file at path.
//
// A missing file, a missing [ganeti] section, or a [ganeti] section lacking
// any of api, user or password is an error; everything else falls back to
// its default.
func Load(path string) (*Config, error) {
	file, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	cfg := &Config{
		Port:               defaultPort,
		RefreshInterval:    defaultRefreshInterval,
		VerifyTLS:          true,
		HspacePath:         defaultHspacePath,
		HspaceDiskTemplate: defaultHspaceDiskTemplate,
		HspaceAllocData:    defaultHspaceAllocData,
		HbalPath:           defaultHbalPath,
	}

	if sec, err := file.GetSection("default"); err == nil {
		cfg.Port = sec.Key("port").MustInt(defaultPort)
		cfg.Namespace = sec.Key("namespace").String()
		cfg.VerifyTLS = sec.Key("verify_tls").MustBool(true)
		if sec.HasKey("refresh_interval") {
			seconds, err := sec.Key("refresh_interval").Int()
			if err != nil {
				return nil, fmt.Errorf("invalid refresh_interval: %w", err)
			}
			cfg.RefreshInterval = time.Duration(seconds) * time.Second
		}
	}

	ganeti, err := file.GetSection("ganeti")
	if err != nil {
		return nil, fmt.Errorf("config file %s has no [ganeti] section", path)
	}
	cfg.APIEndpoint = ganeti.Key("api").String()
	cfg.User = ganeti.Key("user").String()
	cfg.Password = ganeti.Key("password").String()

	switch {
	case cfg.APIEndpoint == "":
		return nil, fmt.Errorf("[ganeti] section is missing api")
	case cfg.User == "":
		return nil, fmt.Errorf("[ganeti] section is missing user")
	case cfg.Password == "":
		return nil, fmt.Errorf("[ganeti] section is missing password")
	}

	if sec, err := file.GetSection("htools"); err == nil {
		cfg.HspaceEnabled = sec.Key("hspace_enabled").MustBool(false)
		cfg.HspacePath = sec.Key("hspace_path").MustString(defaultHspacePath)
		cfg.HspaceDiskTemplate = sec.Key("hspace_disk_template").MustString(defaultHspaceDiskTemplate)
		cfg.HspaceAllocData = sec.Key("hspace_alloc_data").MustString(defaultHspaceAllocData)
		cfg.HbalEnabled = sec.Key("hbal_enabled").MustBool(false)
		cfg.HbalPath = sec.Key("hbal_path").MustString(defaultHbalPath)
		cfg.HbalExtraParams = sec.Key("hbal_extra_parameters").String()
	}

	if cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("port %d is out of range", cfg.Port)
	}
	if cfg.RefreshInterval <= 0 {
		return nil, fmt.Errorf("refresh_interval must be positive, got %s", cfg.RefreshInterval)
	}

	return cfg, nil
}
