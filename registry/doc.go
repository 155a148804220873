// Package registry provides the object registry: the database of every live
// handle, its type, its owning parent and its validity state.
//
// # Record Lifecycle
//
// A record is inserted when a creation call succeeds and retired when the
// matching destroy or free call is processed:
//
//	reg := registry.New()
//
//	// After vkCreateBuffer returns
//	err := reg.Insert(buf, vk.ObjectBuffer, device, registry.WithThread(tid))
//
//	// Before vkDestroyBuffer is forwarded
//	rec, err := reg.Remove(buf)
//
// # Tombstones
//
// Retired handles leave a tombstone so that the registry can tell a handle
// that never existed from one that was destroyed:
//
//	reg.Status(h) // StatusUnknown, StatusLive, StatusDestroyed or StatusOrphaned
//
// Every tombstone is kept unless WithTombstones sets a capacity. Past the
// capacity the oldest tombstones lose their record details and the handle
// reports StatusRetired, never StatusUnknown. Inserting a handle value that
// has a tombstone clears it, since drivers may reuse non-dispatchable handle
// values.
//
// # Parent Links
//
// Every record names its parent. Children and Descendants walk those links
// in creation order, which keeps destruction-order and leak reports
// deterministic.
//
// # Observers
//
// Register observers to track lifecycle events:
//
//	reg.Subscribe(registry.ObserverFunc(func(e registry.Event) {
//	    log.Printf("%s %s %s", e.Type, e.Record.Type, e.Record.Handle)
//	}))
//
// # Concurrency
//
// All methods are safe for concurrent use. Callers that need several
// operations to appear atomic to other threads must hold an outer lock.
package registry
