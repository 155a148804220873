// Package config loads layer settings from YAML with OBJTRACK_* environment
// overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/wippyai/objtrack/calllog"
	"github.com/wippyai/objtrack/diag"
	"github.com/wippyai/objtrack/errors"
	"github.com/wippyai/objtrack/registry"
	"github.com/wippyai/objtrack/tracker"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "OBJTRACK_"

// Settings configures a layer instance.
type Settings struct {
	// Report selects the severities delivered to sinks, e.g. "error|warning".
	Report string `yaml:"report"`

	// Teardown is the premature parent destruction policy: force or defer.
	Teardown string `yaml:"teardown"`

	// Interceptors lists the enabled interceptors in chain order.
	Interceptors []string `yaml:"interceptors"`

	Log Log `yaml:"log"`

	// Tombstones caps the full tombstones kept for destroyed handles.
	// Zero keeps all of them.
	Tombstones int `yaml:"tombstones"`

	// SkipOnError skips calls that produced error-severity violations.
	SkipOnError bool `yaml:"skip_on_error"`
}

// Log configures the layer's own logging.
type Log struct {
	Level string `yaml:"level"`

	// File receives every reported violation as CBOR events.
	File string `yaml:"file"`

	Stderr bool `yaml:"stderr"`
}

// Default returns the built-in settings.
func Default() *Settings {
	return &Settings{
		Report:       "error|warning",
		Teardown:     string(tracker.TeardownForce),
		Interceptors: []string{tracker.Name},
		Log:          Log{Level: "info", Stderr: true},
		Tombstones:   registry.DefaultTombstones,
		SkipOnError:  true,
	}
}

// Parse decodes YAML over the defaults. Fields absent from data keep their
// default values.
func Parse(data []byte) (*Settings, error) {
	s := Default()
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, errors.Config("parse settings", err)
	}
	return s, nil
}

// Load reads path, applies environment overrides and validates the result.
// An empty path loads the defaults.
func Load(path string) (*Settings, error) {
	s := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Config("read "+path, err)
		}
		if s, err = Parse(data); err != nil {
			return nil, err
		}
	}
	if err := s.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// FromEnv returns the defaults with environment overrides applied.
func FromEnv() (*Settings, error) {
	s := Default()
	if err := s.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return s, s.Validate()
}

// ApplyEnv overrides fields from OBJTRACK_* variables found by lookup.
func (s *Settings) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok {
			*dst = v
		}
	}
	boolean := func(name string, dst *bool) error {
		v, ok := lookup(EnvPrefix + name)
		if !ok {
			return nil
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return errors.Config(EnvPrefix+name, err)
		}
		*dst = b
		return nil
	}

	str("REPORT", &s.Report)
	str("TEARDOWN", &s.Teardown)
	str("LOG_LEVEL", &s.Log.Level)
	str("LOG_FILE", &s.Log.File)

	if err := boolean("SKIP_ON_ERROR", &s.SkipOnError); err != nil {
		return err
	}
	if err := boolean("LOG_STDERR", &s.Log.Stderr); err != nil {
		return err
	}
	if v, ok := lookup(EnvPrefix + "TOMBSTONES"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return errors.Config(EnvPrefix+"TOMBSTONES", err)
		}
		s.Tombstones = n
	}
	if v, ok := lookup(EnvPrefix + "INTERCEPTORS"); ok {
		s.Interceptors = strings.FieldsFunc(v, func(r rune) bool { return r == ',' || r == ' ' })
	}
	return nil
}

// Validate checks every field.
func (s *Settings) Validate() error {
	if _, err := s.Severities(); err != nil {
		return err
	}
	if _, err := tracker.ParsePolicy(s.Teardown); err != nil {
		return err
	}
	if s.Tombstones < 0 {
		return errors.Config(fmt.Sprintf("tombstones must not be negative, got %d", s.Tombstones), nil)
	}
	if _, err := zapcore.ParseLevel(s.Log.Level); err != nil {
		return errors.Config("log level", err)
	}

	seen := make(map[string]bool, len(s.Interceptors))
	for _, name := range s.Interceptors {
		switch name {
		case tracker.Name, calllog.Name:
		default:
			return errors.Config("unknown interceptor "+name, nil)
		}
		if seen[name] {
			return errors.Config("interceptor listed twice: "+name, nil)
		}
		seen[name] = true
	}
	return nil
}

// Severities parses Report.
func (s *Settings) Severities() (diag.Severity, error) {
	return diag.ParseSeverities(s.Report)
}

// Policy parses Teardown.
func (s *Settings) Policy() tracker.Policy {
	p, err := tracker.ParsePolicy(s.Teardown)
	if err != nil {
		return tracker.TeardownForce
	}
	return p
}

// Enabled reports whether the named interceptor is in the chain.
func (s *Settings) Enabled(name string) bool {
	for _, n := range s.Interceptors {
		if n == name {
			return true
		}
	}
	return false
}

// BuildLogger returns the layer's own logger: a development console logger
// on stderr, or a no-op logger when stderr logging is off.
func (s *Settings) BuildLogger() (*zap.Logger, error) {
	if !s.Log.Stderr {
		return zap.NewNop(), nil
	}
	level, err := zapcore.ParseLevel(s.Log.Level)
	if err != nil {
		return nil, errors.Config("log level", err)
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.DisableStacktrace = true
	l, err := cfg.Build()
	if err != nil {
		return nil, errors.Config("build logger", err)
	}
	return l.Named("objtrack"), nil
}
