// Package compiler provides the lexer, parser, and code generator for a small
// statically typed scripting language with float, bool and string variables,
// structured control flow and float-only functions.
//
// Pipeline: source → Lex → Parse → Generate → LLVM IR module
package compiler
