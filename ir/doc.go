// Package ir defines the reference-counted intermediate representation the
// optimizer works on: values, a closed set of instruction kinds, basic
// blocks and functions.
//
// The instruction set is deliberately small. The optimizer only needs to
// tell apart reference-count bookkeeping (retain, release), the paired
// guaranteed-begin/guaranteed-end builtins, tuple projections, calls and
// debug annotations; everything else is represented by Generic with an
// explicit side-effect flag. The Instr interface is sealed, so a type
// switch over its variants is exhaustive.
//
// Functions are built once through a Builder and then mutated in place by
// passes: instruction removal leaves a tombstone so positions stay stable
// during a scan, and Compact squeezes tombstones out afterwards.
package ir
