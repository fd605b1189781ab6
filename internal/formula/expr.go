// Package formula implements parsing, evaluation, canonical formatting and
// reference rewriting for cell formulas. A formula is an arithmetic
// expression over numeric literals and single cell references with unary and
// binary + - * /.
package formula

import (
	"github.com/kalexmills/gridcalc/internal/position"
)

// Op identifies an operator by its source character.
type Op byte

const (
	OpAdd Op = '+'
	OpSub Op = '-'
	OpMul Op = '*'
	OpDiv Op = '/'
)

// the model used here for representing parse trees is inspired by the ast
// package in Go's standard library.

// Expr is an interface describing an expression node.
type Expr interface {
	isExpr() // marker method, just for type-safety.
}

// Number represents a numeric literal.
type Number struct {
	Value float64
}

// CellRef represents a reference to another cell. The position is mutated in
// place when rows or columns are inserted or deleted; a severed reference
// carries position.Deleted.
type CellRef struct {
	Pos position.Pos
}

// Unary represents a prefix + or - applied to an operand.
type Unary struct {
	Op Op
	X  Expr
}

// Binary represents a binary expression with left and right operands.
type Binary struct {
	Op Op
	X  Expr // left operand
	Y  Expr // right operand
}

// Parens represents an explicitly parenthesized subexpression. The parser
// preserves it so the writer can decide which parentheses survive.
type Parens struct {
	X Expr
}

func (*Number) isExpr()  {}
func (*CellRef) isExpr() {}
func (*Unary) isExpr()   {}
func (*Binary) isExpr()  {}
func (*Parens) isExpr()  {}

// collectCellRefs appends every reference node of e to out in source order.
func collectCellRefs(e Expr, out []*CellRef) []*CellRef {
	switch e := e.(type) {
	case *CellRef:
		out = append(out, e)
	case *Unary:
		out = collectCellRefs(e.X, out)
	case *Binary:
		out = collectCellRefs(e.X, out)
		out = collectCellRefs(e.Y, out)
	case *Parens:
		out = collectCellRefs(e.X, out)
	}
	return out
}
