// Package config provides environment-variable configuration loading and
// validation for flowrt runtimes, plus (in params.go) viper-based YAML
// loading for per-flow parameter files.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// EnvConfig provides utilities for loading configuration from environment variables
type EnvConfig struct {
	prefix string // Optional prefix for all environment variables
}

// NewEnvConfig creates a new environment configuration loader
func NewEnvConfig(prefix string) *EnvConfig {
	return &EnvConfig{
		prefix: prefix,
	}
}

// GetString retrieves a string value from environment with optional default
func (ec *EnvConfig) GetString(key, defaultValue string) string {
	fullKey := ec.buildKey(key)
	if value := os.Getenv(fullKey); value != "" {
		return value
	}
	return defaultValue
}

// GetInt retrieves an integer value from environment with optional default
func (ec *EnvConfig) GetInt(key string, defaultValue int) int {
	fullKey := ec.buildKey(key)
	if value := os.Getenv(fullKey); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// GetDuration retrieves a duration value from environment with optional default
func (ec *EnvConfig) GetDuration(key string, defaultValue time.Duration) time.Duration {
	fullKey := ec.buildKey(key)
	if value := os.Getenv(fullKey); value != "" {
		duration, err := time.ParseDuration(value)
		if err == nil {
			return duration
		}
	}
	return defaultValue
}

// buildKey builds the full environment variable key with optional prefix
func (ec *EnvConfig) buildKey(key string) string {
	if ec.prefix != "" {
		return ec.prefix + "_" + key
	}
	return key
}

// RuntimeConfig contains the settings needed to locate a workspace and
// run flows against it.
type RuntimeConfig struct {
	WorkspaceDir string
	AppName      string
	Profile      string
	Environment  string
	LogLevel     string
	LogFormat    string
}

// LoadRuntimeConfig loads runtime configuration from environment.
func LoadRuntimeConfig(prefix string) RuntimeConfig {
	env := NewEnvConfig(prefix)
	return RuntimeConfig{
		WorkspaceDir: env.GetString("WORKSPACE_DIR", "."),
		AppName:      env.GetString("APP_NAME", ""),
		Profile:      env.GetString("PROFILE", "default"),
		Environment:  env.GetString("ENVIRONMENT", "development"),
		LogLevel:     env.GetString("LOG_LEVEL", "info"),
		LogFormat:    env.GetString("LOG_FORMAT", "text"),
	}
}

// CoordinatorConfig contains the settings needed to stream progress to
// an external dashboard over a WebSocketWriter. A zero-value URL means
// no coordinator connection is made and only the console writer runs.
type CoordinatorConfig struct {
	URL     string
	Timeout time.Duration

	// MaxRetries is loaded from MAX_RETRIES and validated positive. No code
	// in this repository reads it: WebSocketWriter writes to the connection
	// it is given and does not redial after a dropped connection.
	MaxRetries int
}

// LoadCoordinatorConfig loads coordinator configuration from environment.
func LoadCoordinatorConfig(prefix string) CoordinatorConfig {
	env := NewEnvConfig(prefix)
	return CoordinatorConfig{
		URL:        env.GetString("URL", ""),
		Timeout:    env.GetDuration("TIMEOUT", 10*time.Second),
		MaxRetries: env.GetInt("MAX_RETRIES", 3),
	}
}

// Validator provides configuration validation utilities
type Validator struct {
	errors []string
}

// NewValidator creates a new configuration validator
func NewValidator() *Validator {
	return &Validator{
		errors: make([]string, 0),
	}
}

// RequireString validates that a string field is not empty
func (v *Validator) RequireString(field, value string) {
	if value == "" {
		v.errors = append(v.errors, fmt.Sprintf("%s is required", field))
	}
}

// RequirePositiveInt validates that an integer field is positive
func (v *Validator) RequirePositiveInt(field string, value int) {
	if value <= 0 {
		v.errors = append(v.errors, fmt.Sprintf("%s must be positive", field))
	}
}

// RequireURL validates that a string is non-empty and starts with
// http:// or https://
func (v *Validator) RequireURL(field, value string) {
	if value == "" {
		v.errors = append(v.errors, fmt.Sprintf("%s is required", field))
		return
	}
	if !strings.HasPrefix(value, "http://") && !strings.HasPrefix(value, "https://") {
		v.errors = append(v.errors, fmt.Sprintf("%s must be a valid URL (http:// or https://)", field))
	}
}

// RequireOneOf validates that a value is one of the allowed options
func (v *Validator) RequireOneOf(field, value string, allowed []string) {
	if value == "" {
		v.errors = append(v.errors, fmt.Sprintf("%s is required", field))
		return
	}
	for _, option := range allowed {
		if value == option {
			return
		}
	}
	v.errors = append(v.errors, fmt.Sprintf("%s must be one of: %s", field, strings.Join(allowed, ", ")))
}

// IsValid returns true if there are no validation errors
func (v *Validator) IsValid() bool {
	return len(v.errors) == 0
}

// Errors returns all validation errors
func (v *Validator) Errors() []string {
	return v.errors
}

// ErrorString returns all validation errors as a single string
func (v *Validator) ErrorString() string {
	if len(v.errors) == 0 {
		return ""
	}
	return strings.Join(v.errors, "; ")
}

// Validate runs validation and returns error if invalid
func (v *Validator) Validate() error {
	if !v.IsValid() {
		return fmt.Errorf("configuration validation failed: %s", v.ErrorString())
	}
	return nil
}

// ConfigLoader provides a fluent interface for loading configuration
type ConfigLoader struct {
	prefix string
	env    *EnvConfig
}

// NewConfigLoader creates a new configuration loader
func NewConfigLoader(prefix string) *ConfigLoader {
	return &ConfigLoader{
		prefix: prefix,
		env:    NewEnvConfig(prefix),
	}
}

// LoadAll loads all common configurations
func (cl *ConfigLoader) LoadAll() (*AllConfig, error) {
	config := &AllConfig{
		Runtime:     LoadRuntimeConfig(cl.prefix),
		Coordinator: LoadCoordinatorConfig(cl.prefix + "_COORDINATOR"),
	}

	// Validate configuration
	if err := cl.validate(config); err != nil {
		return nil, err
	}

	return config, nil
}

// validate validates the loaded configuration
func (cl *ConfigLoader) validate(config *AllConfig) error {
	validator := NewValidator()

	validator.RequireString("Runtime.AppName", config.Runtime.AppName)
	validator.RequireOneOf("Runtime.Environment", config.Runtime.Environment,
		[]string{"development", "staging", "production"})
	validator.RequireOneOf("Runtime.LogLevel", config.Runtime.LogLevel,
		[]string{"debug", "info", "warn", "error"})

	// Coordinator.URL is optional: a zero value means "no coordinator",
	// so it's only validated as a URL once the operator has set one.
	if config.Coordinator.URL != "" {
		validator.RequireURL("Coordinator.URL", config.Coordinator.URL)
	}
	validator.RequirePositiveInt("Coordinator.MaxRetries", config.Coordinator.MaxRetries)

	return validator.Validate()
}

// AllConfig contains all common configurations
type AllConfig struct {
	Runtime     RuntimeConfig
	Coordinator CoordinatorConfig
}
