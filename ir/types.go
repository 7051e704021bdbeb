// Copyright 2018 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package ir is a minimal, read-only, SSA-form intermediate representation
// for compiled C/C++ modules. It plays the role that golang.org/x/tools/go/ssa
// plays for knil: a typed def-use graph the analyzer walks, with stable
// value identity and dominator queries. Parsing a real object file or LLVM
// bitcode module into this representation is out of scope here; see
// Builder for the minimal construction API tests and the CLI loader use
// instead.
package ir

import "fmt"

// Type is the type of an IR value. The analyzer only distinguishes
// integers (by bit width, for signed-range saturation), pointers (by
// element type, for bitcast byte/element reinterpretation) and aggregates
// (by element count, for constant-data indexing).
type Type interface {
	String() string
	isType()
}

// IntType is a two's-complement scalar integer of the given bit width.
type IntType struct {
	Width int
}

func (t *IntType) String() string { return fmt.Sprintf("i%d", t.Width) }
func (*IntType) isType()          {}

// SignedMin returns the minimum representable value for the type's width.
func (t *IntType) SignedMin() int64 {
	if t.Width >= 64 {
		return -1 << 63
	}
	return -(int64(1) << uint(t.Width-1))
}

// SignedMax returns the maximum representable value for the type's width.
func (t *IntType) SignedMax() int64 {
	if t.Width >= 64 {
		return 1<<63 - 1
	}
	return int64(1)<<uint(t.Width-1) - 1
}

// PointerType is a pointer to Elem.
type PointerType struct {
	Elem Type
}

func (t *PointerType) String() string { return t.Elem.String() + "*" }
func (*PointerType) isType()          {}

// ArrayType is a fixed-length constant data aggregate, e.g. a string literal
// or a constant-initialized global array.
type ArrayType struct {
	Elem Type
	Len  int
}

func (t *ArrayType) String() string { return fmt.Sprintf("[%d x %s]", t.Len, t.Elem) }
func (*ArrayType) isType()          {}

// Position is a source location, surfaced from debug info (file:line:col).
// It is carried purely for reporting; the analysis never branches on it.
type Position struct {
	File string
	Line int
	Col  int
}

func (p Position) String() string {
	if p.File == "" {
		return "<unknown>"
	}
	return fmt.Sprintf("%s:%d:%d", p.File, p.Line, p.Col)
}
