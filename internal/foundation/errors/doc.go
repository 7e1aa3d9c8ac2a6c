// Package errors provides the classified error primitives used across protoimporter.
//
// Every failure surfaced to the user carries an ErrorCategory that names the
// stage that produced it (config, invocation, rewrite, assembly, verification)
// and a severity. The CLI adapter turns categories into exit codes.
//
// Example usage:
//
//	err := errors.RewriteError("import targets a module missing from the unit").
//		WithContext("artifact", "payment/payment_pb2.py").
//		WithCause(rewrite.ErrUnresolvedImport).
//		Build()
package errors
