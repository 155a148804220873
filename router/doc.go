// Package router resolves a handle to the instance or device state block
// that owns it.
//
// State blocks live in an arena and are addressed by a Key allocated once
// when the block is created. Keys are never derived from handle bits.
// Instances, devices and physical devices are bound to their block
// directly; every other handle is resolved by walking the registry's
// parent links up to a bound handle.
//
// A block moves through Uninitialized, Active, TearingDown and Removed.
// Removed blocks leave the arena and their handles stop resolving.
package router
