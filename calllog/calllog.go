// Package calllog provides an interceptor that logs every call and keeps
// per-command counters. It never skips a call.
package calllog

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/wippyai/objtrack/chain"
	"github.com/wippyai/objtrack/vk"
)

// Name is the interceptor name used in settings.
const Name = "call_log"

const startKey = "calllog.start"

// Stat counts the outcomes of one command.
type Stat struct {
	Name       string
	Calls      uint64
	Dispatched uint64
	Succeeded  uint64
}

// Skipped is the number of calls that never reached the next layer.
func (s Stat) Skipped() uint64 { return s.Calls - s.Dispatched }

// Logger logs calls at debug level.
type Logger struct {
	log   *zap.Logger
	mu    sync.Mutex
	stats map[string]*Stat
}

// New creates a call logger writing to l. A nil l discards output but
// still counts.
func New(l *zap.Logger) *Logger {
	if l == nil {
		l = zap.NewNop()
	}
	return &Logger{log: l.Named("calls"), stats: make(map[string]*Stat)}
}

func (c *Logger) Name() string { return Name }

func (c *Logger) PreValidate(ctx context.Context, call *vk.Call, r *chain.Report) bool {
	c.count(call.Name, func(s *Stat) { s.Calls++ })
	r.Put(startKey, time.Now())
	if ce := c.log.Check(zapcore.DebugLevel, "call"); ce != nil {
		ce.Write(zap.Stringer("call", call), zap.Uint64("thread", call.Thread))
	}
	return false
}

func (c *Logger) PreRecord(ctx context.Context, call *vk.Call, r *chain.Report) {
	c.count(call.Name, func(s *Stat) { s.Dispatched++ })
}

func (c *Logger) PostRecord(ctx context.Context, call *vk.Call, result vk.Result, r *chain.Report) {
	c.count(call.Name, func(s *Stat) { s.Succeeded++ })
	if ce := c.log.Check(zapcore.DebugLevel, "returned"); ce != nil {
		fields := []zap.Field{zap.String("call", call.Name), zap.Stringer("result", result),
			zap.Stringers("out", []vk.Handle(call.Out))}
		if start, ok := r.Value(startKey).(time.Time); ok {
			fields = append(fields, zap.Duration("took", time.Since(start)))
		}
		ce.Write(fields...)
	}
}

func (c *Logger) count(name string, fn func(*Stat)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.stats[name]
	if !ok {
		s = &Stat{Name: name}
		c.stats[name] = s
	}
	fn(s)
}

// Stats returns a copy of the counters sorted by command name.
func (c *Logger) Stats() []Stat {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Stat, 0, len(c.stats))
	for _, s := range c.stats {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Reset clears all counters.
func (c *Logger) Reset() {
	c.mu.Lock()
	c.stats = make(map[string]*Stat)
	c.mu.Unlock()
}

var _ chain.Interceptor = (*Logger)(nil)
