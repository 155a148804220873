package layer

import (
	"sort"

	"github.com/wippyai/objtrack/calllog"
	"github.com/wippyai/objtrack/errors"
	"github.com/wippyai/objtrack/vk"
)

const (
	// LayerName is the name the layer is enabled by.
	LayerName = "VK_LAYER_OBJTRACK_object_lifetimes"

	// SpecVersion is the API version the command table describes.
	SpecVersion = "1.3.280"

	// ImplementationVersion is bumped on behavior changes.
	ImplementationVersion = 1

	description = "Object lifetime validation layer"
)

// Properties describes the layer to the host.
type Properties struct {
	LayerName             string
	SpecVersion           string
	Description           string
	ImplementationVersion uint32
}

// Properties returns the layer's identity.
func (l *Layer) Properties() Properties {
	return Properties{
		LayerName:             LayerName,
		SpecVersion:           SpecVersion,
		Description:           description,
		ImplementationVersion: ImplementationVersion,
	}
}

var extensions = []string{"VK_EXT_debug_utils"}

// Extensions returns the instance extensions the layer implements.
func (l *Layer) Extensions() []string {
	return append([]string(nil), extensions...)
}

// HasExtension reports whether the layer implements name.
func (l *Layer) HasExtension(name string) bool {
	for _, e := range extensions {
		if e == name {
			return true
		}
	}
	return false
}

// Stats is a point-in-time snapshot of layer state.
type Stats struct {
	Objects    map[vk.ObjectType]int
	Violations map[errors.Kind]uint64
	Calls      []calllog.Stat
	Tombstones int
	Blocks     int
}

// TotalViolations sums Violations.
func (s Stats) TotalViolations() uint64 {
	var n uint64
	for _, c := range s.Violations {
		n += c
	}
	return n
}

// Kinds returns the violation kinds seen, sorted.
func (s Stats) Kinds() []errors.Kind {
	out := make([]errors.Kind, 0, len(s.Violations))
	for k := range s.Violations {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Stats returns a snapshot. Violations are counted before severity
// filtering.
func (l *Layer) Stats() Stats {
	var s Stats
	l.guard.Do(func() {
		s.Objects = l.reg.CountByType()
		s.Tombstones = l.reg.Tombstones()
		s.Blocks = l.router.Len()
	})

	l.statsMu.Lock()
	s.Violations = make(map[errors.Kind]uint64, len(l.violations))
	for k, n := range l.violations {
		s.Violations[k] = n
	}
	l.statsMu.Unlock()

	s.Calls = l.calls.Stats()
	return s
}
