package diag

import (
	"fmt"
	"strings"

	"github.com/wippyai/objtrack/errors"
)

// Severity is a bit flag so sinks can subscribe to a set of severities.
type Severity uint8

const (
	SeverityVerbose Severity = 1 << iota
	SeverityInfo
	SeverityWarning
	SeverityError

	SeverityAll = SeverityVerbose | SeverityInfo | SeverityWarning | SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityVerbose:
		return "verbose"
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	}

	var parts []string
	for _, f := range []Severity{SeverityError, SeverityWarning, SeverityInfo, SeverityVerbose} {
		if s&f != 0 {
			parts = append(parts, f.String())
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}

// Has reports whether all flags of f are set in s.
func (s Severity) Has(f Severity) bool { return s&f == f }

// ParseSeverity parses a single severity name.
func ParseSeverity(name string) (Severity, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "verbose", "debug":
		return SeverityVerbose, true
	case "info":
		return SeverityInfo, true
	case "warning", "warn":
		return SeverityWarning, true
	case "error":
		return SeverityError, true
	case "all":
		return SeverityAll, true
	}
	return 0, false
}

// ParseSeverities parses a comma or pipe separated list of severity names.
func ParseSeverities(list string) (Severity, error) {
	var mask Severity
	for _, field := range strings.FieldsFunc(list, func(r rune) bool { return r == ',' || r == '|' }) {
		s, ok := ParseSeverity(field)
		if !ok {
			return 0, errors.InvalidInput(errors.PhaseConfig, fmt.Sprintf("unknown severity %q", field))
		}
		mask |= s
	}
	return mask, nil
}

// DefaultSeverity returns the severity a violation of kind k is reported with.
func DefaultSeverity(k errors.Kind) Severity {
	switch k {
	case errors.KindLeakedObject:
		return SeverityWarning
	case errors.KindMismatch:
		return SeverityInfo
	}
	return SeverityError
}
