// Package validation holds the lifetime rules. Every rule is a pure function
// over a read-only View of the object registry and returns the violations
// it found. Rules never mutate the registry and never fail: an unknown
// handle is a reportable condition like any other.
package validation
