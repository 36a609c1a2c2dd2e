// Package config provides centralized configuration management for the dashboard.
// It loads configuration from multiple sources, validates it, and exposes a
// type-safe API for the rest of the application.
//
// # Configuration Sources
//
// Configuration is loaded from the following sources in order of precedence:
//
//	1. Environment variables that are explicitly set (highest priority)
//	2. A YAML configuration file (config.yaml, configs/config.yaml or $BANVIC_CONFIG)
//	3. Default values from struct tags (lowest priority)
//
// Binaries load a .env file before calling Load, so values placed there behave
// exactly like exported environment variables.
//
// # Environment Variables
//
// All environment variables follow the pattern BANVIC_<SECTION>_<FIELD>:
//
//	BANVIC_SERVER_PORT=8080
//	BANVIC_DATA_DIR=/srv/banvic
//	BANVIC_LOCALE_WEEKDAYS=Mon,Tue,Wed,Thu,Fri,Sat,Sun
//	BANVIC_REPORT_TOP_N=10
//
// # Locale
//
// The weekday table must hold exactly seven distinct, non-empty labels,
// Monday first. Load fails on any other shape, so weekday lookup never misses.
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, f := range cfg.Data.Files() {
//	    fmt.Println(f.Table, f.Path)
//	}
package config
