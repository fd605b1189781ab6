package formula

import (
	"math"
	"strconv"

	"github.com/kalexmills/gridcalc/internal/position"
)

// Value is the result of evaluating a formula or reading a cell. It holds one
// of:
//   - float64: a numeric value
//   - string: text (only from cells, never from evaluation)
//   - CellError: an in-cell error value (#DIV/0!, #VALUE!, #REF!)
//   - nil: an empty cell
type Value any

// ErrorCode distinguishes the in-cell error values.
type ErrorCode uint8

const (
	ErrorCodeDiv0  ErrorCode = iota + 1 // division by zero or overflow
	ErrorCodeValue                      // reference target is not numeric
	ErrorCodeRef                        // reference target was deleted
)

var errorLabels = map[ErrorCode]string{
	ErrorCodeDiv0:  "#DIV/0!",
	ErrorCodeValue: "#VALUE!",
	ErrorCodeRef:   "#!REF",
}

// CellError is an error value held by a cell. Unlike the package-level
// sentinel errors it is a legitimate cell value, not a failure of an API
// call, and propagates through formula evaluation.
type CellError struct {
	Code ErrorCode
}

func (e CellError) Error() string {
	return errorLabels[e.Code]
}

// ValueSource resolves cell values during evaluation. ok reports whether a
// cell exists at p; evaluation treats missing cells as zero.
type ValueSource interface {
	ValueAt(p position.Pos) (v Value, ok bool)
}

// divisorEpsilon is the magnitude below which a divisor counts as zero.
const divisorEpsilon = 1e-200

// evalExpr computes the value of an expression against src. The result is
// always a float64 or a CellError.
func evalExpr(e Expr, src ValueSource) Value {
	switch e := e.(type) {
	case *Number:
		return e.Value
	case *Parens:
		return evalExpr(e.X, src)
	case *CellRef:
		if e.Pos == position.Deleted {
			return CellError{Code: ErrorCodeRef}
		}
		v, ok := src.ValueAt(e.Pos)
		if !ok || v == nil {
			return 0.0
		}
		switch v := v.(type) {
		case float64:
			return v
		case CellError:
			return v
		case string:
			return numericView(v)
		}
		return 0.0
	case *Unary:
		v := evalExpr(e.X, src)
		if _, bad := v.(CellError); bad {
			return v
		}
		if e.Op == OpSub {
			return -v.(float64)
		}
		return v
	case *Binary:
		lhs := evalExpr(e.X, src)
		rhs := evalExpr(e.Y, src)
		// the left operand's error wins over the right's
		if _, bad := lhs.(CellError); bad {
			return lhs
		}
		if _, bad := rhs.(CellError); bad {
			return rhs
		}
		x, y := lhs.(float64), rhs.(float64)
		switch e.Op {
		case OpAdd:
			return finiteOrDiv0(x + y)
		case OpSub:
			return finiteOrDiv0(x - y)
		case OpMul:
			return finiteOrDiv0(x * y)
		case OpDiv:
			if math.Abs(y) <= divisorEpsilon {
				return CellError{Code: ErrorCodeDiv0}
			}
			return x / y
		}
	}
	return 0.0
}

// finiteOrDiv0 maps overflow to the #DIV/0! error value.
func finiteOrDiv0(v float64) Value {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return CellError{Code: ErrorCodeDiv0}
	}
	return v
}

// numericView interprets referenced cell text as a number: the text must
// contain no ASCII letter and parse in full as a finite float. Anything else
// is a #VALUE! error.
func numericView(s string) Value {
	for i := 0; i < len(s); i++ {
		if between(rune(s[i]), 'a', 'z') || between(rune(s[i]), 'A', 'Z') {
			return CellError{Code: ErrorCodeValue}
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return CellError{Code: ErrorCodeValue}
	}
	return f
}

// FormatValue renders a value the way the printers display it: text verbatim,
// numbers without trailing zeros, errors by their label, empty cells as
// nothing.
func FormatValue(v Value) string {
	switch v := v.(type) {
	case string:
		return v
	case float64:
		return formatNumber(v)
	case CellError:
		return v.Error()
	}
	return ""
}
