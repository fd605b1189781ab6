package formula

import (
	"math"
	"strconv"
	"strings"
)

// parenCtx describes where a parenthesized subexpression sits relative to its
// surrounding operator; the writer uses it to decide which parentheses are
// load-bearing.
type parenCtx uint8

const (
	ctxTop      parenCtx = iota // root of the expression
	ctxUnary                    // operand of a unary + or -
	ctxDivLeft                  // left operand of /
	ctxDivRight                 // right operand of /
	ctxMul                      // either operand of *
	ctxAdd                      // either operand of +
	ctxSubLeft                  // left operand of -
	ctxSubRight                 // right operand of -
)

// writeExpr appends the canonical infix rendering of e to sb. No whitespace
// is emitted; parentheses are kept only where removing them would change the
// parse, and around the whole expression.
func writeExpr(sb *strings.Builder, e Expr, ctx parenCtx) {
	switch e := e.(type) {
	case *Number:
		sb.WriteString(formatNumber(e.Value))
	case *CellRef:
		label := e.Pos.String()
		if label == "" { // severed reference
			label = "#!REF"
		}
		sb.WriteString(label)
	case *Unary:
		sb.WriteByte(byte(e.Op))
		writeExpr(sb, e.X, ctxUnary)
	case *Binary:
		var left, right parenCtx
		switch e.Op {
		case OpAdd:
			left, right = ctxAdd, ctxAdd
		case OpSub:
			left, right = ctxSubLeft, ctxSubRight
		case OpMul:
			left, right = ctxMul, ctxMul
		case OpDiv:
			left, right = ctxDivLeft, ctxDivRight
		}
		writeExpr(sb, e.X, left)
		sb.WriteByte(byte(e.Op))
		writeExpr(sb, e.Y, right)
	case *Parens:
		inner := e.X
		for {
			p, ok := inner.(*Parens)
			if !ok {
				break
			}
			inner = p.X // redundant layer
		}
		b, ok := inner.(*Binary)
		if !ok || !keepParens(b.Op, ctx) {
			// parentheses around an atom or unary never survive
			writeExpr(sb, inner, ctx)
			return
		}
		sb.WriteByte('(')
		writeExpr(sb, inner, ctxTop)
		sb.WriteByte(')')
	}
}

// keepParens decides whether parentheses around a binary expression with
// operator inner survive in the given context.
func keepParens(inner Op, ctx parenCtx) bool {
	switch ctx {
	case ctxTop:
		return true
	case ctxUnary, ctxMul, ctxSubRight:
		return inner == OpAdd || inner == OpSub
	case ctxDivLeft:
		return inner == OpAdd || inner == OpSub
	case ctxDivRight:
		return true
	case ctxAdd, ctxSubLeft:
		return false
	}
	return true
}

// formatNumber renders a float the way cell values display: integral values
// without a fractional part, everything else in the shortest form that
// round-trips.
func formatNumber(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}
