package formula

import (
	"fmt"
	"testing"

	"github.com/kalexmills/gridcalc/internal/position"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gridStub backs evaluation tests with a plain map of cell values.
type gridStub map[position.Pos]Value

func (g gridStub) ValueAt(p position.Pos) (Value, bool) {
	v, ok := g[p]
	return v, ok
}

func evaluate(t *testing.T, src ValueSource, expr string) Value {
	t.Helper()
	f, err := Parse(expr)
	require.NoError(t, err)
	return f.Evaluate(src)
}

func TestEvaluateArithmetic(t *testing.T) {
	grid := gridStub{}
	tests := map[string]float64{
		"1":                                  1,
		"42":                                 42,
		"2 + 2":                              4,
		"2 + 2*2":                            6,
		"4/2 + 6/3":                          4,
		"(2+3)*4 + (3-4)*5":                  15,
		"(12+13) * (14+(13-24/(1+1))*55-46)": 575,
		"-5":                                 -5,
		"+5":                                 5,
		"--5":                                5,
		"2*-3":                               -6,
		"1/4":                                0.25,
	}
	for expr, want := range tests {
		t.Run(expr, func(t *testing.T) {
			assert.Equal(t, Value(want), evaluate(t, grid, expr))
		})
	}
}

func TestEvaluateReferences(t *testing.T) {
	grid := gridStub{
		{Row: 0, Col: 0}: "1",      // A1: numeric text
		{Row: 1, Col: 0}: 2.0,      // A2: number
		{Row: 2, Col: 0}: nil,      // A3: empty holder
		{Row: 3, Col: 0}: "words",  // A4: text
		{Row: 4, Col: 0}: "3D",     // A5: text starting with a digit
		{Row: 5, Col: 0}: "1e5",    // A6: scientific text counts as letters
		{Row: 6, Col: 0}: CellError{Code: ErrorCodeDiv0}, // A7
	}
	tests := map[string]Value{
		"A1+A2": 3.0,
		"A1+A3": 1.0, // empty holder
		"A1+B1": 1.0, // absent cell
		"A1+E9": 1.0, // cell far outside the populated grid
		"A4":    CellError{Code: ErrorCodeValue},
		"A5":    CellError{Code: ErrorCodeValue},
		"A6":    CellError{Code: ErrorCodeValue},
		"A7+1":  CellError{Code: ErrorCodeDiv0},
	}
	for expr, want := range tests {
		t.Run(expr, func(t *testing.T) {
			assert.Equal(t, want, evaluate(t, grid, expr))
		})
	}
}

func TestEvaluateDivision(t *testing.T) {
	grid := gridStub{}
	div0 := Value(CellError{Code: ErrorCodeDiv0})

	assert.Equal(t, div0, evaluate(t, grid, "1/0"))
	assert.Equal(t, div0, evaluate(t, grid, "0/0"))
	assert.Equal(t, div0, evaluate(t, grid, "1e+200/1e-200"))
	assert.Equal(t, div0, evaluate(t, grid, "1/A1")) // empty divisor is zero

	max := 1.7976931348623157e+308
	assert.Equal(t, div0, evaluate(t, grid, fmt.Sprintf("%g+%g", max, max)))
	assert.Equal(t, div0, evaluate(t, grid, fmt.Sprintf("%g-%g", -max, max)))
	assert.Equal(t, div0, evaluate(t, grid, fmt.Sprintf("%g*%g", max, max)))
}

func TestEvaluateErrorPrecedence(t *testing.T) {
	grid := gridStub{
		{Row: 0, Col: 0}: CellError{Code: ErrorCodeValue}, // A1
		{Row: 0, Col: 1}: CellError{Code: ErrorCodeDiv0},  // B1
	}
	// the left operand's error shadows the right's
	assert.Equal(t, Value(CellError{Code: ErrorCodeValue}), evaluate(t, grid, "A1+B1"))
	assert.Equal(t, Value(CellError{Code: ErrorCodeDiv0}), evaluate(t, grid, "B1+A1"))
	// errors short-circuit overflow handling
	assert.Equal(t, Value(CellError{Code: ErrorCodeValue}), evaluate(t, grid, "A1/0"))
	// unary propagates
	assert.Equal(t, Value(CellError{Code: ErrorCodeValue}), evaluate(t, grid, "-A1"))
}

func TestEvaluateSeveredReference(t *testing.T) {
	f, err := Parse("A1+A2")
	require.NoError(t, err)
	f.HandleDeletedRows(0, 1)
	// A1 is severed; A2 slid up to A1
	assert.Equal(t, Value(CellError{Code: ErrorCodeRef}), f.Evaluate(gridStub{{Row: 0, Col: 0}: 5.0}))
}
