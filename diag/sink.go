package diag

import (
	"sync"

	"go.uber.org/multierr"

	"github.com/wippyai/objtrack/errors"
)

// Sink receives violations. Implementations must be safe for concurrent use;
// the layer calls Report without holding its lock.
type Sink interface {
	Report(Violation)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Violation)

func (f SinkFunc) Report(v Violation) { f(v) }

// Discard drops every violation.
var Discard Sink = SinkFunc(func(Violation) {})

type filterSink struct {
	next Sink
	mask Severity
}

// Only forwards violations whose severity is in mask.
func Only(mask Severity, next Sink) Sink {
	return &filterSink{mask: mask, next: next}
}

func (f *filterSink) Report(v Violation) {
	if f.mask&v.Severity != 0 {
		f.next.Report(v)
	}
}

type multiSink []Sink

// Multi fans each violation out to every non-nil sink in order.
func Multi(sinks ...Sink) Sink {
	out := make(multiSink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

func (m multiSink) Report(v Violation) {
	for _, s := range m {
		s.Report(v)
	}
}

// Collector stores every violation it receives.
type Collector struct {
	violations []Violation
	mu         sync.Mutex
}

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	return &Collector{}
}

func (c *Collector) Report(v Violation) {
	c.mu.Lock()
	c.violations = append(c.violations, v)
	c.mu.Unlock()
}

// Violations returns a copy of the collected violations in arrival order.
func (c *Collector) Violations() []Violation {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Violation, len(c.violations))
	copy(out, c.violations)
	return out
}

// Count returns how many collected violations have kind k.
func (c *Collector) Count(k errors.Kind) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, v := range c.violations {
		if v.Kind == k {
			n++
		}
	}
	return n
}

// Kinds returns the kinds of the collected violations in arrival order.
func (c *Collector) Kinds() []errors.Kind {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]errors.Kind, len(c.violations))
	for i, v := range c.violations {
		out[i] = v.Kind
	}
	return out
}

// Len returns the number of collected violations.
func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.violations)
}

// Reset drops all collected violations.
func (c *Collector) Reset() {
	c.mu.Lock()
	c.violations = nil
	c.mu.Unlock()
}

// Err combines the error-severity violations into one error, or nil.
func Err(vs []Violation) error {
	var err error
	for _, v := range vs {
		if v.Severity == SeverityError {
			err = multierr.Append(err, v.Err())
		}
	}
	return err
}

var (
	_ Sink = SinkFunc(nil)
	_ Sink = (*Collector)(nil)
	_ Sink = (*filterSink)(nil)
	_ Sink = multiSink(nil)
)
