package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
)

// Load reads configuration from environment variables.
// It applies defaults for unset values and validates the result.
// Returns an error if required values are missing or validation fails.
func Load() (*Config, error) {
	return LoadFrom(os.Getenv)
}

// LoadFrom is Load with a custom variable lookup.
func LoadFrom(getenv func(string) string) (*Config, error) {
	cfg := &Config{}

	if err := loadStruct(reflect.ValueOf(cfg).Elem(), getenv); err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration and panics on error.
// Use this only in main() where early termination is desired.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}

// loadStruct recursively populates struct fields from the environment.
// Tags: env (variable name), envAlt (fallback name), default, required.
func loadStruct(v reflect.Value, getenv func(string) string) error {
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		fieldVal := v.Field(i)

		if !fieldVal.CanSet() {
			continue
		}

		if field.Type.Kind() == reflect.Struct && field.Type != reflect.TypeOf(time.Time{}) {
			if err := loadStruct(fieldVal, getenv); err != nil {
				return err
			}
			continue
		}

		envName := field.Tag.Get("env")
		if envName == "" {
			continue
		}

		value := strings.TrimSpace(getenv(envName))
		if alt := field.Tag.Get("envAlt"); value == "" && alt != "" {
			value = strings.TrimSpace(getenv(alt))
		}

		if value == "" {
			if field.Tag.Get("required") == "true" {
				return fmt.Errorf("required environment variable %s is not set", envName)
			}
			value = field.Tag.Get("default")
		}
		if value == "" {
			continue
		}

		if err := setField(fieldVal, value); err != nil {
			return fmt.Errorf("invalid value for %s=%q: %w", envName, value, err)
		}
	}

	return nil
}

var durationType = reflect.TypeOf(time.Duration(0))

// setField sets a reflect.Value from a string based on its type.
func setField(field reflect.Value, value string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int64:
		if field.Type() == durationType {
			d, err := time.ParseDuration(value)
			if err != nil {
				return fmt.Errorf("invalid duration: %w", err)
			}
			field.SetInt(int64(d))
			return nil
		}
		i, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid integer: %w", err)
		}
		field.SetInt(i)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean: %w", err)
		}
		field.SetBool(b)

	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported slice type: %s", field.Type().Elem().Kind())
		}
		parts := strings.Split(value, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				result = append(result, p)
			}
		}
		field.Set(reflect.ValueOf(result))

	default:
		return fmt.Errorf("unsupported field type: %s", field.Kind())
	}

	return nil
}

var (
	validLevels      = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	validFormats     = map[string]bool{"text": true, "json": true}
	validCompression = map[string]bool{"none": true, "snappy": true, "gzip": true, "zstd": true}
)

// Validate checks that the configuration is valid and reports every
// problem at once.
func (c *Config) Validate() error {
	var merr *multierror.Error
	fail := func(format string, args ...any) {
		merr = multierror.Append(merr, fmt.Errorf(format, args...))
	}

	// Server
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		fail("SERVER_PORT (%d) must be 1-65535", c.Server.Port)
	}
	if c.Server.ReadTimeout < 0 {
		fail("SERVER_READ_TIMEOUT must be non-negative")
	}
	if c.Server.ShutdownTimeout <= 0 {
		fail("SERVER_SHUTDOWN_TIMEOUT must be positive")
	}

	// Database, only checked when persistence is on
	if c.Database.Enabled() {
		if c.Database.MaxConns <= 0 {
			fail("DB_MAX_CONNS must be positive")
		}
		if c.Database.MinConns < 0 {
			fail("DB_MIN_CONNS must be non-negative")
		}
		if c.Database.MaxConns < c.Database.MinConns {
			fail("DB_MAX_CONNS (%d) must be >= DB_MIN_CONNS (%d)", c.Database.MaxConns, c.Database.MinConns)
		}
		if c.Database.PersistTimeout <= 0 {
			fail("DB_PERSIST_TIMEOUT must be positive")
		}
	}

	// Upload
	if c.Upload.MaxFileSize <= 0 {
		fail("UPLOAD_MAX_FILE_SIZE must be positive")
	}
	if c.Upload.MaxConcurrent <= 0 {
		fail("UPLOAD_MAX_CONCURRENT must be positive")
	}
	if c.Upload.MaxWaitTime <= 0 {
		fail("UPLOAD_MAX_WAIT_TIME must be positive")
	}

	// Engine
	if c.Engine.MaxRows < 0 {
		fail("ENGINE_MAX_ROWS must be non-negative")
	}
	if c.Engine.MaxDatasets < 0 {
		fail("ENGINE_MAX_DATASETS must be non-negative")
	}
	if c.Engine.DatasetTTL < 0 {
		fail("ENGINE_DATASET_TTL must be non-negative")
	}
	if c.Engine.DatasetTTL > 0 && c.Engine.EvictionInterval <= 0 {
		fail("ENGINE_EVICTION_INTERVAL must be positive when ENGINE_DATASET_TTL is set")
	}

	// Export
	if !validCompression[strings.ToLower(c.Export.ParquetCompression)] {
		fail("EXPORT_PARQUET_COMPRESSION (%q) must be one of: none, snappy, gzip, zstd", c.Export.ParquetCompression)
	}

	// Logging
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		fail("LOG_LEVEL (%q) must be one of: debug, info, warn, error", c.Logging.Level)
	}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		fail("LOG_FORMAT (%q) must be one of: text, json", c.Logging.Format)
	}

	return merr.ErrorOrNil()
}

// String returns a safe string representation of the config for logging.
// Sensitive values like database URLs are masked.
func (c *Config) String() string {
	dbURL := "[DISABLED]"
	if c.Database.Enabled() {
		dbURL = "[MASKED]"
	}

	var b strings.Builder
	b.WriteString("Config{")
	fmt.Fprintf(&b, "Server: {Addr: %q}, ", c.Server.Addr())
	fmt.Fprintf(&b, "Database: {URL: %s, MaxConns: %d, MinConns: %d}, ",
		dbURL, c.Database.MaxConns, c.Database.MinConns)
	fmt.Fprintf(&b, "Upload: {MaxFileSize: %d, MaxConcurrent: %d}, ",
		c.Upload.MaxFileSize, c.Upload.MaxConcurrent)
	fmt.Fprintf(&b, "Engine: {MaxRows: %d, MaxDatasets: %d, DatasetTTL: %s}, ",
		c.Engine.MaxRows, c.Engine.MaxDatasets, c.Engine.DatasetTTL)
	fmt.Fprintf(&b, "Export: {ParquetCompression: %q}, ", c.Export.ParquetCompression)
	fmt.Fprintf(&b, "Logging: {Level: %q, Format: %q}", c.Logging.Level, c.Logging.Format)
	b.WriteString("}")
	return b.String()
}
