package vk

import (
	"fmt"
	"strings"
)

// Arg is one handle argument of a call: a single Handle or a Handles list.
type Arg interface {
	handles() []Handle
}

// Call is the tagged description of one entry-point invocation. The layer
// fills nothing in; the next layer fills Out on success.
type Call struct {
	// Payload carries call-specific host data, e.g. a diagnostic sink for
	// messenger creation.
	Payload any

	Name string

	// Args holds the handle arguments in Command.Params order.
	Args [][]Handle

	// Out receives the handles produced by create/allocate/get/enumerate
	// commands.
	Out Handles

	// Extensions lists extensions enabled by instance/device creation.
	Extensions []string

	// Raw holds native ABI arguments when forwarding to a shared library.
	// Pointer arguments, output arrays included, must reference memory
	// outside the Go heap (C or mmap allocations); Go memory trips checkptr
	// under -race even when pinned.
	Raw []uintptr

	// Thread identifies the calling application thread.
	Thread uint64

	// Count is the number of objects requested by list-producing commands.
	Count int

	command *Command
}

// NewCall builds a call for the named command.
func NewCall(name string, args ...Arg) *Call {
	c := &Call{
		Name: name,
		Args: make([][]Handle, len(args)),
	}
	for i, a := range args {
		if a == nil {
			continue
		}
		c.Args[i] = a.handles()
	}
	c.command, _ = Lookup(name)
	return c
}

// Command returns the static description of the call, or nil for commands
// the layer does not know.
func (c *Call) Command() *Command {
	if c.command == nil || c.command.Name != c.Name {
		c.command, _ = Lookup(c.Name)
	}
	return c.command
}

// Handle returns the single handle at argument i, or NullHandle.
func (c *Call) Handle(i int) Handle {
	if i < 0 || i >= len(c.Args) || len(c.Args[i]) == 0 {
		return NullHandle
	}
	return c.Args[i][0]
}

// Handles returns all handles at argument i.
func (c *Call) Handles(i int) []Handle {
	if i < 0 || i >= len(c.Args) {
		return nil
	}
	return c.Args[i]
}

// Dispatch returns the dispatchable handle that selects the call's scope,
// or NullHandle for global commands.
func (c *Call) Dispatch() Handle {
	if cmd := c.Command(); cmd != nil && cmd.Scope() == ScopeGlobal {
		return NullHandle
	}
	return c.Handle(0)
}

// WithThread sets the calling thread id.
func (c *Call) WithThread(id uint64) *Call {
	c.Thread = id
	return c
}

// WithCount sets the number of requested output objects.
func (c *Call) WithCount(n int) *Call {
	c.Count = n
	return c
}

// WithPayload attaches call-specific host data.
func (c *Call) WithPayload(p any) *Call {
	c.Payload = p
	return c
}

// WithExtensions records enabled extension names.
func (c *Call) WithExtensions(names ...string) *Call {
	c.Extensions = append(c.Extensions, names...)
	return c
}

func (c *Call) String() string {
	var b strings.Builder
	b.WriteString(c.Name)
	b.WriteByte('(')
	for i, hs := range c.Args {
		if i > 0 {
			b.WriteString(", ")
		}
		if cmd := c.Command(); cmd != nil && i < len(cmd.Params) && cmd.Params[i].List {
			b.WriteByte('[')
			for j, h := range hs {
				if j > 0 {
					b.WriteString(", ")
				}
				b.WriteString(h.String())
			}
			b.WriteByte(']')
			continue
		}
		if len(hs) == 0 {
			b.WriteString("VK_NULL_HANDLE")
			continue
		}
		b.WriteString(hs[0].String())
	}
	b.WriteByte(')')
	if len(c.Out) > 0 {
		fmt.Fprintf(&b, " -> %v", []Handle(c.Out))
	}
	return b.String()
}
