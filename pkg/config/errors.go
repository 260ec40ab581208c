package config

import (
	"errors"
	"fmt"
)

// ConfigError reports a missing or invalid setting. It is fatal and raised before any scan.
type ConfigError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuration error: --%s %s", e.Field, e.Reason)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

func missing(key string) error {
	return &ConfigError{Field: key, Reason: "is required"}
}

// IsConfigError reports whether err is, or wraps, a *ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}
