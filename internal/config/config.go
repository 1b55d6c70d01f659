// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides unified configuration loading and management for chatrevamp.
//
// Configuration is read from ~/.chatrevamp/config.toml, with sensible defaults,
// .env files, environment variable overrides, and validation.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/jeranaias/chatrevamp-tui/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete chatrevamp configuration.
type Config struct {
	Version string `toml:"version"`

	API     APIConfig     `toml:"api"`
	Chat    ChatConfig    `toml:"chat"`
	Storage StorageConfig `toml:"storage"`
	Roster  RosterConfig  `toml:"roster"`
	UI      UIConfig      `toml:"ui"`
	Log     LogConfig     `toml:"log"`
}

// APIConfig configures the REST authentication backend.
type APIConfig struct {
	// BaseURL includes the /api prefix, e.g. http://127.0.0.1:8000/api
	BaseURL      string  `toml:"base_url"`
	TimeoutSecs  int     `toml:"timeout_secs"`
	RateLimitRPS float64 `toml:"rate_limit_rps"`
	RateBurst    int     `toml:"rate_burst"`
}

// ChatConfig configures the real-time chat transport.
type ChatConfig struct {
	// URL is the websocket endpoint, e.g. ws://127.0.0.1:8000/ws
	URL              string `toml:"url"`
	PingIntervalSecs int    `toml:"ping_interval_secs"`
	AutoConnect      bool   `toml:"auto_connect"`
}

// StorageConfig selects the persistent key-value backend.
type StorageConfig struct {
	// Backend is one of "file", "sqlite", "memory".
	Backend string `toml:"backend"`
	// Path overrides the default location under ~/.chatrevamp.
	Path string `toml:"path"`
}

// RosterConfig configures the member roster cache.
type RosterConfig struct {
	TTLMinutes int `toml:"ttl_minutes"`
}

// UIConfig contains terminal UI settings.
type UIConfig struct {
	// AppearanceFile, when set, is watched for "light"/"dark" to follow the OS scheme.
	AppearanceFile string `toml:"appearance_file"`
	CompactMode    bool   `toml:"compact_mode"`
	ShowTimestamps bool   `toml:"show_timestamps"`
}

// LogConfig configures the structured log sink.
type LogConfig struct {
	Level string `toml:"level"`
	// Path defaults to ~/.chatrevamp/chatrevamp.log
	Path string `toml:"path"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

// DefaultAPIURL is the local development backend.
const DefaultAPIURL = "http://127.0.0.1:8000/api"

// DefaultChatURL is the local development chat relay.
const DefaultChatURL = "ws://127.0.0.1:8000/ws"

// Default returns a configuration with all default values.
func Default() *Config {
	return &Config{
		Version: "1.0.0",

		API: APIConfig{
			BaseURL:      DefaultAPIURL,
			TimeoutSecs:  15,
			RateLimitRPS: 5,
			RateBurst:    10,
		},

		Chat: ChatConfig{
			URL:              DefaultChatURL,
			PingIntervalSecs: 30,
			AutoConnect:      true,
		},

		Storage: StorageConfig{
			Backend: "file",
		},

		Roster: RosterConfig{
			TTLMinutes: 5,
		},

		UI: UIConfig{
			ShowTimestamps: true,
		},

		Log: LogConfig{
			Level: "info",
		},
	}
}

// =============================================================================
// PATHS
// =============================================================================

// ConfigDir returns the chatrevamp configuration directory.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".chatrevamp"), nil
}

// ConfigPath returns the path to the TOML config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// StoragePath returns the effective storage location for the configured backend.
func (c *Config) StoragePath() (string, error) {
	if c.Storage.Path != "" {
		return c.Storage.Path, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	if c.Storage.Backend == "sqlite" {
		return filepath.Join(dir, "state.db"), nil
	}
	return filepath.Join(dir, "state.json"), nil
}

// LogPath returns the effective log file location.
func (c *Config) LogPath() (string, error) {
	if c.Log.Path != "" {
		return c.Log.Path, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "chatrevamp.log"), nil
}

// RosterTTL returns the roster cache lifetime.
func (c *Config) RosterTTL() time.Duration {
	return time.Duration(c.Roster.TTLMinutes) * time.Minute
}

// APITimeout returns the REST request timeout.
func (c *Config) APITimeout() time.Duration {
	return time.Duration(c.API.TimeoutSecs) * time.Second
}

// PingInterval returns the websocket keepalive interval.
func (c *Config) PingInterval() time.Duration {
	return time.Duration(c.Chat.PingIntervalSecs) * time.Second
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads ~/.chatrevamp/config.toml, falling back to defaults when the file
// is absent. .env files and environment overrides are applied last.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	if _, statErr := os.Stat(path); statErr != nil {
		cfg := Default()
		return finish(cfg)
	}
	return LoadFromPath(path)
}

// LoadFromPath loads configuration from a specific TOML file.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()
	if err := LoadTOML(cfg, path); err != nil {
		return nil, fmt.Errorf("failed to load TOML config from %s: %w", path, err)
	}
	return finish(cfg)
}

// LoadTOML decodes the TOML file at path over cfg. Keys the file does not
// mention keep their current values.
func LoadTOML(cfg *Config, path string) error {
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return fmt.Errorf("unknown config keys: %s", strings.Join(keys, ", "))
	}
	return nil
}

func finish(cfg *Config) (*Config, error) {
	LoadDotEnv()
	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadDotEnv loads ./.env and ~/.chatrevamp/.env into the process environment.
// Variables already set in the environment win. Missing files are ignored.
func LoadDotEnv() {
	candidates := []string{".env"}
	if dir, err := ConfigDir(); err == nil {
		candidates = append(candidates, filepath.Join(dir, ".env"))
	}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			_ = godotenv.Load(p)
		}
	}
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// SaveTOML writes cfg to path with owner-only permissions.
func SaveTOML(cfg *Config, path string) error {
	var buf bytes.Buffer
	buf.WriteString("# chatrevamp configuration file\n")
	buf.WriteString("# Generated by chatrevamp - edit with care\n\n")

	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError describes a single invalid setting.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate checks the configuration and returns ValidateErrors listing every problem.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if err := validateURL(c.API.BaseURL, "http", "https"); err != nil {
		errs = append(errs, ValidationError{Field: "api.base_url", Message: err.Error()})
	}
	if c.API.TimeoutSecs <= 0 || c.API.TimeoutSecs > 300 {
		errs = append(errs, ValidationError{Field: "api.timeout_secs", Message: "must be between 1 and 300"})
	}
	if c.API.RateLimitRPS <= 0 {
		errs = append(errs, ValidationError{Field: "api.rate_limit_rps", Message: "must be positive"})
	}
	if c.API.RateBurst <= 0 {
		errs = append(errs, ValidationError{Field: "api.rate_burst", Message: "must be positive"})
	}

	if err := validateURL(c.Chat.URL, "ws", "wss"); err != nil {
		errs = append(errs, ValidationError{Field: "chat.url", Message: err.Error()})
	}
	if c.Chat.PingIntervalSecs < 5 {
		errs = append(errs, ValidationError{Field: "chat.ping_interval_secs", Message: "must be at least 5"})
	}

	switch c.Storage.Backend {
	case "file", "sqlite", "memory":
	default:
		errs = append(errs, ValidationError{
			Field:   "storage.backend",
			Message: fmt.Sprintf("unknown backend %q (want file, sqlite or memory)", c.Storage.Backend),
		})
	}

	if c.Roster.TTLMinutes <= 0 || c.Roster.TTLMinutes > 24*60 {
		errs = append(errs, ValidationError{Field: "roster.ttl_minutes", Message: "must be between 1 and 1440"})
	}

	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, ValidationError{Field: "log.level", Message: fmt.Sprintf("unknown level %q", c.Log.Level)})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func validateURL(raw string, schemes ...string) error {
	if raw == "" {
		return errors.New("must not be empty")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL: %v", err)
	}
	for _, s := range schemes {
		if u.Scheme == s {
			if u.Host == "" {
				return errors.New("missing host")
			}
			return nil
		}
	}
	return fmt.Errorf("scheme must be one of %s", strings.Join(schemes, ", "))
}

// SetDefaults fills zero values left by a partial config file.
func (c *Config) SetDefaults() {
	d := Default()
	if c.Version == "" {
		c.Version = d.Version
	}
	if c.API.BaseURL == "" {
		c.API.BaseURL = d.API.BaseURL
	}
	c.API.BaseURL = strings.TrimRight(c.API.BaseURL, "/")
	if c.API.TimeoutSecs == 0 {
		c.API.TimeoutSecs = d.API.TimeoutSecs
	}
	if c.API.RateLimitRPS == 0 {
		c.API.RateLimitRPS = d.API.RateLimitRPS
	}
	if c.API.RateBurst == 0 {
		c.API.RateBurst = d.API.RateBurst
	}
	if c.Chat.URL == "" {
		c.Chat.URL = d.Chat.URL
	}
	if c.Chat.PingIntervalSecs == 0 {
		c.Chat.PingIntervalSecs = d.Chat.PingIntervalSecs
	}
	if c.Storage.Backend == "" {
		c.Storage.Backend = d.Storage.Backend
	}
	c.Storage.Backend = strings.ToLower(c.Storage.Backend)
	if c.Roster.TTLMinutes == 0 {
		c.Roster.TTLMinutes = d.Roster.TTLMinutes
	}
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// Environment variables recognised by ApplyEnvOverrides.
const (
	EnvAPIURL      = "CHATREVAMP_API_URL"
	EnvChatURL     = "CHATREVAMP_CHAT_URL"
	EnvStorage     = "CHATREVAMP_STORAGE"
	EnvLogLevel    = "CHATREVAMP_LOG_LEVEL"
	EnvThemeFile   = "CHATREVAMP_THEME_FILE"
	EnvRosterTTL   = "CHATREVAMP_ROSTER_TTL_MINUTES"
	EnvAutoConnect = "CHATREVAMP_AUTO_CONNECT"
)

// ApplyEnvOverrides applies CHATREVAMP_* environment variables.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv(EnvAPIURL); v != "" {
		c.API.BaseURL = v
	}
	if v := os.Getenv(EnvChatURL); v != "" {
		c.Chat.URL = v
	}
	// CHATREVAMP_STORAGE is either a backend name or backend:path
	if v := os.Getenv(EnvStorage); v != "" {
		backend, path, found := strings.Cut(v, ":")
		c.Storage.Backend = backend
		if found {
			c.Storage.Path = path
		}
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv(EnvThemeFile); v != "" {
		c.UI.AppearanceFile = v
	}
	if v := os.Getenv(EnvRosterTTL); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Roster.TTLMinutes = n
		}
	}
	if v := os.Getenv(EnvAutoConnect); v != "" {
		c.Chat.AutoConnect = v == "1" || strings.EqualFold(v, "true")
	}
}

// =============================================================================
// KEY ACCESS
// =============================================================================

// Get returns a configuration value using dot notation (e.g., "roster.ttl_minutes").
func (c *Config) Get(key string) (interface{}, error) {
	field, err := c.lookup(key)
	if err != nil {
		return nil, err
	}
	return field.Interface(), nil
}

// Set sets a configuration value using dot notation. String values are
// converted to the field's type.
func (c *Config) Set(key string, value interface{}) error {
	field, err := c.lookup(key)
	if err != nil {
		return err
	}
	if !field.CanSet() {
		return fmt.Errorf("cannot set field: %s", key)
	}
	return setFieldValue(field, value)
}

func (c *Config) lookup(key string) (reflect.Value, error) {
	if key == "" {
		return reflect.Value{}, errors.New("empty key")
	}
	parts := strings.Split(key, ".")

	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		field, ok := fieldByTag(v, part)
		if !ok {
			return reflect.Value{}, fmt.Errorf("unknown field: %s", strings.Join(parts[:i+1], "."))
		}
		if i == len(parts)-1 {
			return field, nil
		}
		if field.Kind() != reflect.Struct {
			return reflect.Value{}, fmt.Errorf("field '%s' is not a struct", strings.Join(parts[:i+1], "."))
		}
		v = field
	}
	return reflect.Value{}, fmt.Errorf("invalid key: %s", key)
}

// fieldByTag finds the struct field whose toml tag matches name.
func fieldByTag(v reflect.Value, name string) (reflect.Value, bool) {
	name = strings.ReplaceAll(strings.ToLower(name), "-", "_")
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		tag, _, _ := strings.Cut(t.Field(i).Tag.Get("toml"), ",")
		if tag == name {
			return v.Field(i), true
		}
	}
	return reflect.Value{}, false
}

// setFieldValue sets a reflect.Value from an interface{} value with type conversion.
func setFieldValue(field reflect.Value, value interface{}) error {
	if strVal, ok := value.(string); ok {
		switch field.Kind() {
		case reflect.String:
			field.SetString(strVal)
			return nil
		case reflect.Int, reflect.Int64:
			intVal, err := strconv.ParseInt(strVal, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer value: %v", err)
			}
			field.SetInt(intVal)
			return nil
		case reflect.Float64:
			floatVal, err := strconv.ParseFloat(strVal, 64)
			if err != nil {
				return fmt.Errorf("invalid float value: %v", err)
			}
			field.SetFloat(floatVal)
			return nil
		case reflect.Bool:
			lower := strings.ToLower(strVal)
			field.SetBool(lower == "1" || lower == "true" || lower == "yes")
			return nil
		}
	}

	val := reflect.ValueOf(value)
	if val.Type().AssignableTo(field.Type()) {
		field.Set(val)
		return nil
	}
	if val.Type().ConvertibleTo(field.Type()) {
		field.Set(val.Convert(field.Type()))
		return nil
	}
	return fmt.Errorf("cannot assign %T to %s", value, field.Type())
}

// AllKeys returns every configuration key in dot notation.
func AllKeys() []string {
	return []string{
		"version",
		"api.base_url",
		"api.timeout_secs",
		"api.rate_limit_rps",
		"api.rate_burst",
		"chat.url",
		"chat.ping_interval_secs",
		"chat.auto_connect",
		"storage.backend",
		"storage.path",
		"roster.ttl_minutes",
		"ui.appearance_file",
		"ui.compact_mode",
		"ui.show_timestamps",
		"log.level",
		"log.path",
	}
}
