//go:build (darwin || freebsd || linux) && !ios && !android && (amd64 || arm64)

package native

import (
	"syscall"
	"testing"
	"unsafe"
)

// foreign is memory mapped outside the Go heap, the way a C caller's
// output arrays are.
type foreign struct {
	mem []byte
}

func newForeign(t *testing.T, words int) *foreign {
	t.Helper()
	mem, err := syscall.Mmap(-1, 0, words*8, syscall.PROT_READ|syscall.PROT_WRITE, syscall.MAP_ANON|syscall.MAP_PRIVATE)
	if err != nil {
		t.Fatalf("mmap: %v", err)
	}
	t.Cleanup(func() { _ = syscall.Munmap(mem) })
	return &foreign{mem: mem}
}

func (f *foreign) u64(i int) *uint64 { return (*uint64)(unsafe.Pointer(&f.mem[i*8])) }
func (f *foreign) u32(i int) *uint32 { return (*uint32)(unsafe.Pointer(&f.mem[i*8])) }

func (f *foreign) addr(i int) uintptr { return uintptr(unsafe.Pointer(&f.mem[i*8])) }
