package diag

import (
	"io"
	"os"
	"sync"

	"github.com/fxamacker/cbor/v2"
)

// eventEncMode writes events with canonical key order and nanosecond
// RFC 3339 timestamps, so equal events encode to equal bytes.
var eventEncMode = func() cbor.EncMode {
	opts := cbor.CanonicalEncOptions()
	opts.Time = cbor.TimeRFC3339Nano
	mode, err := opts.EncMode()
	if err != nil {
		panic("diag: cbor encoder mode: " + err.Error())
	}
	return mode
}()

// FileSink appends violations to a CBOR event stream.
// It is safe for concurrent use.
type FileSink struct {
	closer  io.Closer
	encoder *cbor.Encoder
	session string
	err     error
	mu      sync.Mutex
	closed  bool
}

// NewFileSink opens path for appending, creating it with mode 0644.
func NewFileSink(path, session string) (*FileSink, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	s := NewStreamSink(f, session)
	s.closer = f
	return s, nil
}

// NewStreamSink writes events to w. Close does not close w.
func NewStreamSink(w io.Writer, session string) *FileSink {
	return &FileSink{
		encoder: eventEncMode.NewEncoder(w),
		session: session,
	}
}

func (s *FileSink) Report(v Violation) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	// Delivery never fails the call; the first write error is kept for Close.
	if err := s.encoder.Encode(NewEvent(s.session, v)); err != nil && s.err == nil {
		s.err = err
	}
}

// Close stops the sink and returns the first write or close error.
// It is safe to call Close multiple times.
func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return s.err
	}
	s.closed = true
	if s.closer != nil {
		if err := s.closer.Close(); err != nil && s.err == nil {
			s.err = err
		}
	}
	return s.err
}

var _ Sink = (*FileSink)(nil)
