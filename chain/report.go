package chain

import (
	"github.com/wippyai/objtrack/diag"
)

// Report accumulates the outcome of one call across all interceptors.
// It is owned by the calling goroutine and needs no locking.
type Report struct {
	values     map[string]any
	seen       map[diag.Key]struct{}
	violations []diag.Violation
	skips      []string
}

// NewReport creates an empty report.
func NewReport() *Report {
	return &Report{}
}

// Add records violations, dropping repeats of the same kind, parameter
// and handle.
func (r *Report) Add(vs ...diag.Violation) {
	for _, v := range vs {
		if r.seen == nil {
			r.seen = make(map[diag.Key]struct{})
		}
		k := v.Key()
		if _, ok := r.seen[k]; ok {
			continue
		}
		r.seen[k] = struct{}{}
		r.violations = append(r.violations, v)
	}
}

// Check records v if it is non-nil and reports whether it was.
func (r *Report) Check(v *diag.Violation) bool {
	if v == nil {
		return false
	}
	r.Add(*v)
	return true
}

// Violations returns the recorded violations in detection order.
func (r *Report) Violations() []diag.Violation {
	return r.violations
}

// Len returns the number of recorded violations.
func (r *Report) Len() int { return len(r.violations) }

// Skip records that interceptor name asked for the call to be skipped.
func (r *Report) Skip(name string) {
	r.skips = append(r.skips, name)
}

// Skipped reports whether any interceptor asked to skip.
func (r *Report) Skipped() bool { return len(r.skips) > 0 }

// SkippedBy returns the names of interceptors that asked to skip.
func (r *Report) SkippedBy() []string { return r.skips }

// Put stores call-scoped data under key for a later phase.
func (r *Report) Put(key string, v any) {
	if r.values == nil {
		r.values = make(map[string]any)
	}
	r.values[key] = v
}

// Value returns call-scoped data stored under key.
func (r *Report) Value(key string) any {
	return r.values[key]
}
