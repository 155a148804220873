// Package errors provides structured error types for the objtrack layer.
//
// Errors are categorized by Phase (where in call processing the error
// occurred) and Kind (what went wrong). Kinds include the full lifetime
// violation taxonomy, so registry and router failures can be turned into
// diagnostics without string matching.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseRegistry, errors.KindDuplicateHandle).
//		Call("vkCreateBuffer").
//		Handle(h, vk.ObjectBuffer).
//		Detail("driver returned a live handle").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.UnknownHandle(errors.PhaseRegistry, h)
//	err := errors.UnresolvedScope(h, "parent instance destroyed")
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
