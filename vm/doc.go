// Package vm implements the stackviz stack-language interpreter.
//
// Programs are comma-separated tokens. Literal tokens push a String, or a
// Number when the text is decimal; tokens starting with ':' invoke a word
// from the interpreter's Vocabulary; "(" and ")" delimit an unevaluated
// list of token strings.
//
// This package contains:
//   - the Value model and the query/data/style Expression types
//   - Primitive and Macro words and the immutable Vocabulary
//   - the per-evaluation Context (stack and variables)
//   - the Interpreter, which splices macro bodies into the pending token
//     stream instead of calling them
//   - the built-in word library
//   - canonical CBOR encoding of results
package vm
