// Package native resolves next-layer procedures from a native driver
// library loaded at run time with purego. No cgo is required.
//
// Calls forwarded through a native table must carry the native ABI
// arguments in vk.Call.Raw. Produced handles are decoded from the output
// pointer, which by convention is the last argument.
package native
