package diag

import (
	"bytes"
	"io"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/wippyai/objtrack/errors"
	"github.com/wippyai/objtrack/vk"
)

func sampleViolation() Violation {
	return New(errors.KindUseAfterFree, "vkCmdDraw", 0x2a, vk.ObjectCommandBuffer, "handle was destroyed").
		WithParam("commandBuffer").
		WithParent(0x10)
}

func TestNewViolation(t *testing.T) {
	v := sampleViolation()

	assert.Equal(t, "ObjTrack-UseAfterFree-vkCmdDraw", v.ID)
	assert.Equal(t, SeverityError, v.Severity)
	assert.Equal(t, "commandBuffer", v.Param)
	assert.Equal(t, vk.Handle(0x10), v.Parent)
	assert.Contains(t, v.String(), "VkCommandBuffer 0x2a")

	leak := New(errors.KindLeakedObject, "vkDestroyDevice", 1, vk.ObjectBuffer, "%d left", 3)
	assert.Equal(t, SeverityWarning, leak.Severity)
	assert.Equal(t, "3 left", leak.Message)
}

func TestViolationErr(t *testing.T) {
	err := sampleViolation().Err()

	assert.True(t, errors.Is(err, &errors.Error{Kind: errors.KindUseAfterFree}))
	assert.Equal(t, vk.Handle(0x2a), err.Handle)
	assert.Equal(t, "vkCmdDraw", err.Call)
}

func TestParseSeverities(t *testing.T) {
	mask, err := ParseSeverities("error, warning")
	require.NoError(t, err)
	assert.True(t, mask.Has(SeverityError))
	assert.True(t, mask.Has(SeverityWarning))
	assert.False(t, mask.Has(SeverityInfo))
	assert.Equal(t, "error|warning", mask.String())

	mask, err = ParseSeverities("all")
	require.NoError(t, err)
	assert.Equal(t, SeverityAll, mask)

	_, err = ParseSeverities("error,loud")
	assert.Error(t, err)
}

func TestOnly(t *testing.T) {
	c := NewCollector()
	sink := Only(SeverityError, c)

	sink.Report(sampleViolation())
	sink.Report(New(errors.KindLeakedObject, "vkDestroyDevice", 1, vk.ObjectBuffer, "leak"))

	require.Equal(t, 1, c.Len())
	assert.Equal(t, errors.KindUseAfterFree, c.Violations()[0].Kind)
}

func TestMulti(t *testing.T) {
	a, b := NewCollector(), NewCollector()
	var calls int
	sink := Multi(a, nil, b, SinkFunc(func(Violation) { calls++ }))

	sink.Report(sampleViolation())

	assert.Equal(t, 1, a.Len())
	assert.Equal(t, 1, b.Len())
	assert.Equal(t, 1, calls)
}

func TestCollector(t *testing.T) {
	c := NewCollector()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				c.Report(sampleViolation())
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 400, c.Len())
	assert.Equal(t, 400, c.Count(errors.KindUseAfterFree))
	assert.Zero(t, c.Count(errors.KindLeakedObject))

	c.Reset()
	assert.Zero(t, c.Len())
}

func TestErr(t *testing.T) {
	vs := []Violation{
		sampleViolation(),
		New(errors.KindLeakedObject, "vkDestroyDevice", 1, vk.ObjectBuffer, "leak"),
		New(errors.KindInvalidHandle, "vkCmdDraw", 3, vk.ObjectCommandBuffer, "never created"),
	}

	err := Err(vs)
	require.Error(t, err)
	assert.Len(t, multierr.Errors(err), 2)
	assert.NoError(t, Err(vs[1:2]))
}

func TestZapSink(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	sink := NewZapSink(zap.New(core))

	sink.Report(sampleViolation())
	sink.Report(New(errors.KindLeakedObject, "vkDestroyDevice", 1, vk.ObjectBuffer, "leak"))

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, zapcore.ErrorLevel, entries[0].Level)
	assert.Equal(t, "handle was destroyed", entries[0].Message)
	assert.Equal(t, "use_after_free", entries[0].ContextMap()["kind"])
	assert.Equal(t, "commandBuffer", entries[0].ContextMap()["param"])
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
}

func TestEventEncoding(t *testing.T) {
	ev := NewEvent("session-1", sampleViolation())

	data, err := eventEncMode.Marshal(ev)
	require.NoError(t, err)

	var got Event
	require.NoError(t, eventDecMode.Unmarshal(data, &got))
	assert.True(t, ev.Timestamp.Equal(got.Timestamp))
	assert.Equal(t, ev.Violation(), got.Violation())
	assert.Equal(t, "session-1", got.Session)

	again, err := eventEncMode.Marshal(ev)
	require.NoError(t, err)
	assert.Equal(t, data, again, "encoding must be deterministic")
}

func TestStreamSinkAndReader(t *testing.T) {
	var buf bytes.Buffer
	sink := NewStreamSink(&buf, "s2")
	sink.Report(sampleViolation())
	require.NoError(t, sink.Close())

	events, err := NewStreamReader(&buf, Filter{Session: "s2"}).ReadAll()
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, NewEvent("s2", sampleViolation()).Violation(), events[0].Violation())
}

func TestFileSinkAndReader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "diag.cbor")

	sink, err := NewFileSink(path, "s1")
	require.NoError(t, err)
	sink.Report(sampleViolation())
	sink.Report(New(errors.KindLeakedObject, "vkDestroyDevice", 1, vk.ObjectBuffer, "leak"))
	require.NoError(t, sink.Close())
	require.NoError(t, sink.Close())

	// Reports after Close are dropped.
	sink.Report(sampleViolation())

	r, err := NewReader(path)
	require.NoError(t, err)
	defer r.Close()

	events, err := r.ReadAll()
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, errors.KindUseAfterFree, events[0].Kind)
	assert.Equal(t, errors.KindLeakedObject, events[1].Kind)

	// Appends on reopen.
	sink, err = NewFileSink(path, "s2")
	require.NoError(t, err)
	sink.Report(sampleViolation())
	require.NoError(t, sink.Close())

	fr, err := NewFilteredReader(path, Filter{Session: "s2"})
	require.NoError(t, err)
	defer fr.Close()
	events, err = fr.ReadAll()
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "s2", events[0].Session)
}

func TestReaderFilter(t *testing.T) {
	var buf bytes.Buffer
	sink := NewStreamSink(&buf, "s")
	sink.Report(sampleViolation())
	sink.Report(New(errors.KindLeakedObject, "vkDestroyDevice", 1, vk.ObjectBuffer, "leak"))
	sink.Report(New(errors.KindDoubleDestroy, "vkDestroyBuffer", 2, vk.ObjectBuffer, "twice"))
	require.NoError(t, sink.Close())
	data := buf.Bytes()

	future := time.Now().Add(time.Hour)
	tests := []struct {
		name   string
		filter Filter
		want   int
	}{
		{"all", Filter{}, 3},
		{"kind", Filter{Kind: errors.KindDoubleDestroy}, 1},
		{"call", Filter{Call: "vkCmdDraw"}, 1},
		{"severity", Filter{Severity: SeverityWarning}, 1},
		{"errors", Filter{Severity: SeverityError}, 2},
		{"session", Filter{Session: "other"}, 0},
		{"future", Filter{TimeStart: &future}, 0},
		{"before future", Filter{TimeEnd: &future}, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewStreamReader(bytes.NewReader(data), tt.filter)
			events, err := r.ReadAll()
			require.NoError(t, err)
			assert.Len(t, events, tt.want)
			_, err = r.Next()
			assert.Equal(t, io.EOF, err)
			assert.NoError(t, r.Close())
		})
	}
}
