// Package config loads and validates streamrpc's engine configuration from
// YAML, the way a host process would configure a Session before listening.
// file: internal/config/config.go
package config

import (
	"os"
	"strings"
	"time"

	"github.com/dkoosis/streamrpc/internal/logging"
	"github.com/dkoosis/streamrpc/internal/rpcerr"
	"gopkg.in/yaml.v3"
)

var log = logging.GetLogger("config")

// FramingName selects a MessageHandler framing implementation.
type FramingName string

const (
	FramingLengthPrefixed FramingName = "length-prefixed"
	FramingHeaderDelimited FramingName = "header-delimited"
)

// FormatterName selects the wire formatter.
type FormatterName string

const (
	FormatterJSON    FormatterName = "json"
	FormatterMsgPack FormatterName = "msgpack"
)

// FramingConfig controls how messages are delimited on the wire.
type FramingConfig struct {
	Kind                FramingName `yaml:"kind"`
	AsyncDecodeThreshold int        `yaml:"async_decode_threshold_bytes"`
	MaxMessageSize       int        `yaml:"max_message_size_bytes"`
}

// DefaultFramingConfig mirrors the engine's built-in defaults.
func DefaultFramingConfig() FramingConfig {
	return FramingConfig{
		Kind:                 FramingLengthPrefixed,
		AsyncDecodeThreshold: 32 * 1024,
		MaxMessageSize:       64 * 1024 * 1024,
	}
}

// ValidationConfig controls whether params are checked against a JSON
// Schema before reaching a registered target. Results are not checked.
type ValidationConfig struct {
	Enabled     bool   `yaml:"enabled"`
	SchemaPath  string `yaml:"schema_path"`
	Strict      bool   `yaml:"strict"`
}

// SessionConfig is the full set of knobs a host process supplies when
// constructing a Session.
type SessionConfig struct {
	RequestTimeout        time.Duration     `yaml:"request_timeout"`
	ShutdownTimeout       time.Duration     `yaml:"shutdown_timeout"`
	MaxConcurrentInbound  int               `yaml:"max_concurrent_inbound"`
	CancelledErrorCode    int               `yaml:"cancelled_error_code"`
	Formatter             FormatterName     `yaml:"formatter"`
	Framing                FramingConfig     `yaml:"framing"`
	Validation             ValidationConfig  `yaml:"validation"`
	Logging                LoggingConfig     `yaml:"logging"`
}

// LoggingConfig holds the log level read from YAML. Nothing in this module
// applies it to a logger.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DefaultSessionConfig mirrors the engine's built-in defaults, used whenever
// a host process doesn't override a field via YAML.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		RequestTimeout:       30 * time.Second,
		ShutdownTimeout:      5 * time.Second,
		MaxConcurrentInbound: 64,
		CancelledErrorCode:   -32800,
		Formatter:            FormatterJSON,
		Framing:              DefaultFramingConfig(),
		Validation:           ValidationConfig{Enabled: false},
		Logging:              LoggingConfig{Level: "info"},
	}
}

// Load reads a SessionConfig from the YAML file at path, overlaying it on
// top of DefaultSessionConfig so a fixture only needs to specify the fields
// it cares about.
func Load(path string) (*SessionConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, rpcerr.WithDetails(
			rpcerr.Wrapf(err, "reading config file %q", path),
			rpcerr.CategoryDispatch, rpcerr.CodeInternalError, nil,
		)
	}

	cfg := DefaultSessionConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, rpcerr.WithDetails(
			rpcerr.Wrapf(err, "parsing config file %q", path),
			rpcerr.CategoryDispatch, rpcerr.CodeInternalError, nil,
		)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log.Info("loaded session config", "path", path, "framing", cfg.Framing.Kind, "formatter", cfg.Formatter)
	return &cfg, nil
}

// Validate checks internal consistency of a SessionConfig, independent of
// where it came from.
func (c *SessionConfig) Validate() error {
	switch c.Formatter {
	case FormatterJSON, FormatterMsgPack:
	default:
		return rpcerr.Newf("config: unknown formatter %q", c.Formatter)
	}

	switch c.Framing.Kind {
	case FramingLengthPrefixed, FramingHeaderDelimited:
	default:
		return rpcerr.Newf("config: unknown framing kind %q", c.Framing.Kind)
	}

	if c.MaxConcurrentInbound <= 0 {
		return rpcerr.New("config: max_concurrent_inbound must be positive")
	}

	if c.Validation.Enabled && strings.TrimSpace(c.Validation.SchemaPath) == "" {
		return rpcerr.New("config: validation.enabled requires validation.schema_path")
	}

	return nil
}

// ExpandPath resolves a leading "~" in p to the current user's home
// directory, the way host processes typically specify schema or log paths.
func ExpandPath(p string) (string, error) {
	if !strings.HasPrefix(p, "~") {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", rpcerr.WithDetails(
			rpcerr.Wrap(err, "resolving home directory"),
			rpcerr.CategoryDispatch, rpcerr.CodeInternalError, nil,
		)
	}
	return strings.Replace(p, "~", home, 1), nil
}
