// Package guardpeep removes retain/release pairs around
// guaranteed-begin/guaranteed-end builtin scopes.
//
// The begin/end pair asserts that another reference keeps the operand alive
// for the enclosed window, which makes the surrounding retain/release pure
// bookkeeping. The pass proves that assertion locally valid (contiguity of
// the retain with the begin, well-formed projections, a single token
// consumer, proper post-dominance of the end over the begin, an unambiguous
// matching release) and only then deletes the four anchor instructions,
// rewiring every remaining use back to the original operand.
//
// A failed condition is never an error: the pass silently skips the
// candidate. Hosting pipelines call it as
//
//	pass := guardpeep.New()
//	changed := pass.Run(fn)
//
// and must invalidate their instruction-level analysis caches whenever
// changed is true.
package guardpeep
