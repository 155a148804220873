// Package diag defines diagnostic records and the sinks that receive them.
//
// A Violation is a structured record of one detected lifetime error:
// the violation kind, severity, offending call and handle, and a message.
// Violations are the only user-visible output of the validation engine
// besides native result codes.
//
// Sinks receive violations one at a time:
//
//	sink := diag.Multi(
//	    diag.Only(diag.SeverityError|diag.SeverityWarning, diag.NewZapSink(logger)),
//	    fileSink,
//	)
//	sink.Report(v)
//
// FileSink writes a CBOR event stream with integer keys and canonical
// encoding. Reader reads such a stream back, optionally filtered.
package diag
