package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wippyai/objtrack/calllog"
	"github.com/wippyai/objtrack/diag"
	"github.com/wippyai/objtrack/errors"
	"github.com/wippyai/objtrack/tracker"
)

func env(vars map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := vars[k]
		return v, ok
	}
}

func TestDefault(t *testing.T) {
	s := Default()
	require.NoError(t, s.Validate())

	sev, err := s.Severities()
	require.NoError(t, err)
	assert.Equal(t, diag.SeverityError|diag.SeverityWarning, sev)
	assert.Equal(t, tracker.TeardownForce, s.Policy())
	assert.True(t, s.SkipOnError)
	assert.True(t, s.Enabled(tracker.Name))
	assert.False(t, s.Enabled(calllog.Name))
}

func TestParseKeepsDefaults(t *testing.T) {
	s, err := Parse([]byte(`
teardown: defer
interceptors: [call_log, object_tracker]
log:
  file: violations.cbor
`))
	require.NoError(t, err)

	assert.Equal(t, tracker.TeardownDefer, s.Policy())
	assert.Equal(t, []string{calllog.Name, tracker.Name}, s.Interceptors)
	assert.Equal(t, "violations.cbor", s.Log.File)
	assert.Equal(t, "info", s.Log.Level)
	assert.True(t, s.SkipOnError)
	assert.Equal(t, "error|warning", s.Report)
}

func TestParseInvalidYAML(t *testing.T) {
	_, err := Parse([]byte("teardown: [unclosed"))
	require.Error(t, err)
	kind, _ := errors.KindOf(err)
	assert.Equal(t, errors.KindInvalidInput, kind)
}

func TestApplyEnv(t *testing.T) {
	s := Default()
	err := s.ApplyEnv(env(map[string]string{
		"OBJTRACK_REPORT":        "error",
		"OBJTRACK_SKIP_ON_ERROR": "false",
		"OBJTRACK_TOMBSTONES":    "16",
		"OBJTRACK_INTERCEPTORS":  "object_tracker, call_log",
		"OBJTRACK_LOG_STDERR":    "0",
	}))
	require.NoError(t, err)

	assert.Equal(t, "error", s.Report)
	assert.False(t, s.SkipOnError)
	assert.Equal(t, 16, s.Tombstones)
	assert.Equal(t, []string{tracker.Name, calllog.Name}, s.Interceptors)
	assert.False(t, s.Log.Stderr)
}

func TestApplyEnvErrors(t *testing.T) {
	for _, vars := range []map[string]string{
		{"OBJTRACK_SKIP_ON_ERROR": "maybe"},
		{"OBJTRACK_TOMBSTONES": "lots"},
		{"OBJTRACK_LOG_STDERR": "yes please"},
	} {
		assert.Error(t, Default().ApplyEnv(env(vars)), "%v", vars)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Settings)
	}{
		{"severity", func(s *Settings) { s.Report = "error|loud" }},
		{"policy", func(s *Settings) { s.Teardown = "later" }},
		{"tombstones", func(s *Settings) { s.Tombstones = -1 }},
		{"log level", func(s *Settings) { s.Log.Level = "chatty" }},
		{"interceptor", func(s *Settings) { s.Interceptors = []string{"unique_objects"} }},
		{"duplicate", func(s *Settings) { s.Interceptors = []string{tracker.Name, tracker.Name} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Default()
			tt.modify(s)
			assert.Error(t, s.Validate())
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "objtrack.yaml")
	require.NoError(t, os.WriteFile(path, []byte("tombstones: 8\nteardown: defer\n"), 0o644))
	t.Setenv("OBJTRACK_TEARDOWN", "force")

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 8, s.Tombstones)
	assert.Equal(t, tracker.TeardownForce, s.Policy())

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestFromEnv(t *testing.T) {
	t.Setenv("OBJTRACK_TEARDOWN", "nope")
	_, err := FromEnv()
	assert.Error(t, err)
}

func TestBuildLogger(t *testing.T) {
	s := Default()
	s.Log.Stderr = false
	l, err := s.BuildLogger()
	require.NoError(t, err)
	assert.False(t, l.Core().Enabled(-1))

	s.Log.Stderr = true
	s.Log.Level = "debug"
	l, err = s.BuildLogger()
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(-1))
}
