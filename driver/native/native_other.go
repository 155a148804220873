//go:build !((darwin || freebsd || linux) && !ios && !android && (amd64 || arm64))

package native

import (
	"github.com/wippyai/objtrack/driver"
	"github.com/wippyai/objtrack/errors"
	"github.com/wippyai/objtrack/vk"
)

// Library is unavailable on this platform.
type Library struct{}

// Open always fails on this platform.
func Open(string) (*Library, error) {
	return nil, errors.Unsupported(errors.PhaseDriver, "native driver loading on this platform")
}

func (l *Library) Path() string { return "" }
func (l *Library) Close() error { return nil }

func (l *Library) GlobalProcs() (driver.ProcTable, error) {
	return nil, errors.Unsupported(errors.PhaseDriver, "native driver loading on this platform")
}

func (l *Library) InstanceProcs(vk.Handle) (driver.ProcTable, error) {
	return nil, errors.Unsupported(errors.PhaseDriver, "native driver loading on this platform")
}

func (l *Library) DeviceProcs(vk.Handle) (driver.ProcTable, error) {
	return nil, errors.Unsupported(errors.PhaseDriver, "native driver loading on this platform")
}
