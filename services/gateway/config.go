// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package gateway

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// FileConfig is the on-disk YAML configuration of the gateway.
//
// Secrets (Twitter client credentials, LLM API keys) are never read
// from the file; they come from the environment.
type FileConfig struct {
	Server struct {
		Port    int    `yaml:"port" validate:"omitempty,gt=0,lt=65536"`
		GinMode string `yaml:"gin_mode" validate:"omitempty,oneof=debug release test"`
	} `yaml:"server"`

	Feed struct {
		URL                  string        `yaml:"url" validate:"required,uri"`
		AutoConnect          bool          `yaml:"auto_connect"`
		ReconnectInterval    time.Duration `yaml:"reconnect_interval"`
		MaxReconnectAttempts int           `yaml:"max_reconnect_attempts" validate:"omitempty,gte=0"`
		BufferCapacity       int           `yaml:"buffer_capacity" validate:"omitempty,gt=0"`
	} `yaml:"feed"`

	DataAPI struct {
		BaseURL string `yaml:"base_url" validate:"required,url"`
	} `yaml:"data_api"`

	LookupAPI struct {
		BaseURL string `yaml:"base_url" validate:"omitempty,url"`
	} `yaml:"lookup_api"`

	// Auth points at the external session service. Empty runs the
	// gateway in single-operator mode.
	Auth struct {
		BaseURL string `yaml:"base_url" validate:"omitempty,url"`
	} `yaml:"auth"`

	Store struct {
		Path string `yaml:"path"`
	} `yaml:"store"`

	OTel struct {
		Endpoint string `yaml:"endpoint"`
	} `yaml:"otel"`

	RateLimit struct {
		RPS   float64 `yaml:"rps" validate:"omitempty,gt=0"`
		Burst int     `yaml:"burst" validate:"omitempty,gt=0"`
	} `yaml:"rate_limit"`
}

// LoadConfig reads and validates the YAML config at path.
func LoadConfig(path string) (*FileConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg FileConfig
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}

// ServiceConfig builds the runtime Config from a file config plus
// environment secrets.
func (fc *FileConfig) ServiceConfig() Config {
	cfg := Config{
		Port:                 fc.Server.Port,
		GinMode:              fc.Server.GinMode,
		FeedURL:              fc.Feed.URL,
		FeedAutoConnect:      fc.Feed.AutoConnect,
		ReconnectInterval:    fc.Feed.ReconnectInterval,
		MaxReconnectAttempts: fc.Feed.MaxReconnectAttempts,
		BufferCapacity:       fc.Feed.BufferCapacity,
		DataAPIURL:           fc.DataAPI.BaseURL,
		LookupAPIURL:         fc.LookupAPI.BaseURL,
		AuthServiceURL:       fc.Auth.BaseURL,
		StorePath:            fc.Store.Path,
		OTelEndpoint:         fc.OTel.Endpoint,
		RateLimitRPS:         fc.RateLimit.RPS,
		RateLimitBurst:       fc.RateLimit.Burst,

		TwitterClientID:     os.Getenv("TWITTER_CLIENT_ID"),
		TwitterClientSecret: os.Getenv("TWITTER_CLIENT_SECRET"),
	}
	return cfg
}
