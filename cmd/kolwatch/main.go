// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Command kolwatch starts the kolwatch gateway HTTP server.
//
// Configuration comes from a YAML file (--config) with environment
// variables supplying secrets and overriding the essentials.
//
// # Environment Variables
//
//   - KOLWATCH_PORT: HTTP server port (default: 12310)
//   - KOLWATCH_FEED_URL: websocket push endpoint (required without --config)
//   - KOLWATCH_DATA_API_URL: KOL data API root (required without --config)
//   - KOLWATCH_LOOKUP_API_URL: lookup API root (optional)
//   - KOLWATCH_AUTH_URL: session service root (optional)
//   - KOLWATCH_STORE_PATH: credential store directory
//   - TWITTER_CLIENT_ID / TWITTER_CLIENT_SECRET: token refresh credentials
//   - OPENAI_API_KEY: composer backend key
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OpenTelemetry collector (optional)
//
// # Usage
//
//	# Build
//	go build -o kolwatch ./cmd/kolwatch
//
//	# Run
//	./kolwatch serve --config config.yaml
package main

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/kolwatch/pkg/logging"
	"github.com/AleutianAI/kolwatch/services/gateway"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "kolwatch",
		Short:         "KOL monitoring and reply gateway",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCmd(), newVersionCmd())
	return root
}

func newServeCmd() *cobra.Command {
	var configPath string
	var logLevel string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the gateway HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := logging.New(logging.Config{
				Level:   logging.ParseLevel(logLevel),
				Service: "kolwatch",
				JSON:    true,
			})
			defer func() { _ = logger.Close() }()
			slog.SetDefault(logger.Slog())

			cfg, err := buildConfig(configPath)
			if err != nil {
				return err
			}

			slog.Info("Starting kolwatch gateway",
				"version", version,
				"port", cfg.Port,
				"feed_url", cfg.FeedURL,
			)

			svc, err := gateway.New(cfg)
			if err != nil {
				return fmt.Errorf("failed to create gateway: %w", err)
			}
			return svc.Run()
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to YAML config file")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the kolwatch version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "kolwatch", version)
		},
	}
}

// buildConfig merges the YAML file (when given) with environment
// overrides.
func buildConfig(configPath string) (gateway.Config, error) {
	var cfg gateway.Config
	if configPath != "" {
		fileCfg, err := gateway.LoadConfig(configPath)
		if err != nil {
			return cfg, err
		}
		cfg = fileCfg.ServiceConfig()
	} else {
		cfg.TwitterClientID = os.Getenv("TWITTER_CLIENT_ID")
		cfg.TwitterClientSecret = os.Getenv("TWITTER_CLIENT_SECRET")
	}

	if v := os.Getenv("KOLWATCH_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return cfg, fmt.Errorf("invalid KOLWATCH_PORT: %w", err)
		}
		cfg.Port = port
	}
	if v := os.Getenv("KOLWATCH_FEED_URL"); v != "" {
		cfg.FeedURL = v
	}
	if v := os.Getenv("KOLWATCH_DATA_API_URL"); v != "" {
		cfg.DataAPIURL = v
	}
	if v := os.Getenv("KOLWATCH_LOOKUP_API_URL"); v != "" {
		cfg.LookupAPIURL = v
	}
	if v := os.Getenv("KOLWATCH_AUTH_URL"); v != "" {
		cfg.AuthServiceURL = v
	}
	if v := os.Getenv("KOLWATCH_STORE_PATH"); v != "" {
		cfg.StorePath = v
	}
	if v := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); v != "" {
		cfg.OTelEndpoint = v
	}

	return cfg, nil
}
