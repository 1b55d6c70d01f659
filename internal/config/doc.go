// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides unified configuration loading and management for chatrevamp.
//
// # Key Types
//
//   - Config: Main configuration structure with all settings
//   - APIConfig: REST backend location, timeout and rate limit
//   - ChatConfig: Websocket relay location and keepalive
//   - StorageConfig: Persistent key-value backend selection
//   - RosterConfig: Member roster cache lifetime
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (CHATREVAMP_*)
//   - .env files (./.env, ~/.chatrevamp/.env)
//   - ~/.chatrevamp/config.toml
//   - Built-in defaults
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	ttl := cfg.RosterTTL()
package config
