package diag

import (
	"io"
	"os"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/wippyai/objtrack/errors"
)

// eventDecMode rejects logs with repeated event fields.
var eventDecMode = func() cbor.DecMode {
	mode, err := cbor.DecOptions{DupMapKey: cbor.DupMapKeyEnforcedAPF}.DecMode()
	if err != nil {
		panic("diag: cbor decoder mode: " + err.Error())
	}
	return mode
}()

// Filter selects events read from a log. Zero fields match everything.
type Filter struct {
	Session   string
	Kind      errors.Kind
	Call      string
	Severity  Severity
	TimeStart *time.Time
	TimeEnd   *time.Time
}

func (f *Filter) matches(e Event) bool {
	if f.Session != "" && e.Session != f.Session {
		return false
	}
	if f.Kind != "" && e.Kind != f.Kind {
		return false
	}
	if f.Call != "" && e.Call != f.Call {
		return false
	}
	if f.Severity != 0 && f.Severity&e.Severity == 0 {
		return false
	}
	if f.TimeStart != nil && e.Timestamp.Before(*f.TimeStart) {
		return false
	}
	if f.TimeEnd != nil && !e.Timestamp.Before(*f.TimeEnd) {
		return false
	}
	return true
}

// Reader streams events from a CBOR diagnostic log.
type Reader struct {
	closer  io.Closer
	decoder *cbor.Decoder
	filter  Filter
}

// NewReader opens a log file and reads all events.
func NewReader(path string) (*Reader, error) {
	return NewFilteredReader(path, Filter{})
}

// NewFilteredReader opens a log file and reads events matching filter.
func NewFilteredReader(path string, filter Filter) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	r := NewStreamReader(f, filter)
	r.closer = f
	return r, nil
}

// NewStreamReader reads events matching filter from r.
func NewStreamReader(r io.Reader, filter Filter) *Reader {
	return &Reader{
		decoder: eventDecMode.NewDecoder(r),
		filter:  filter,
	}
}

// Next returns the next matching event, or io.EOF.
func (r *Reader) Next() (Event, error) {
	for {
		var e Event
		if err := r.decoder.Decode(&e); err != nil {
			return Event{}, err
		}
		if r.filter.matches(e) {
			return e, nil
		}
	}
}

// ReadAll returns every remaining matching event.
func (r *Reader) ReadAll() ([]Event, error) {
	var out []Event
	for {
		e, err := r.Next()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, e)
	}
}

// Close closes the underlying file, if any.
func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}
