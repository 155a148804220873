// Package chain runs the ordered interceptor chain around one call.
//
// Every interceptor implements the same three-phase capability surface:
//
//	PreValidate(ctx, call, report) (skip bool)
//	PreRecord(ctx, call, report)
//	PostRecord(ctx, call, result, report)
//
// PreValidate runs across the entire chain before any PreRecord. If any
// interceptor asks to skip, the next layer is never called, no record phase
// runs, and the call returns vk.ErrorValidationFailed. PostRecord runs only
// when the next layer returned a success code.
//
// Run implements the locking discipline: the guard is held across the
// validate and pre-record phases, released around the next-layer call, and
// re-acquired for post-record.
package chain
