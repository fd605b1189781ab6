package formula

import (
	"testing"

	"github.com/kalexmills/gridcalc/internal/position"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// reformat parses and re-renders an expression.
func reformat(t *testing.T, expr string) string {
	t.Helper()
	f, err := Parse(expr)
	require.NoError(t, err, "input %q", expr)
	return f.Expression()
}

func TestExpressionFormatting(t *testing.T) {
	tests := map[string]string{
		"  1  ":                              "1",
		"  -1  ":                             "-1",
		"2 + 2":                              "2+2",
		"(2*3)+4":                            "2*3+4",
		"(2*3)-4":                            "2*3-4",
		"( ( (  1) ) )":                      "1",
		"-(123 + 456) / -B35 * 1":            "-(123+456)/-B35*1",
		"+(123 - 456) / -B35 * 1":            "+(123-456)/-B35*1",
		"(1 / 2) / 3":                        "1/2/3",
		"1 / (2 / 3)":                        "1/(2/3)",
		"+(1*2)":                             "+1*2",
		"-(1*2)":                             "-1*2",
		"1.5 * 2e3":                          "1.5*2000",
	}
	for input, want := range tests {
		t.Run(input, func(t *testing.T) {
			assert.Equal(t, want, reformat(t, input))
		})
	}
}

// TestExpressionFormattingExhaustive pins the full paren-elision table: every
// operator pairing over atoms, unaries and binaries.
func TestExpressionFormattingExhaustive(t *testing.T) {
	tests := map[string]string{
		"(1)":     "1",
		"(1)+(1)": "1+1",
		"(1)-(1)": "1-1",
		"(1)*(1)": "1*1",
		"(1)/(1)": "1/1",
		"-(1)":    "-1",
		"+(1)":    "+1",

		"(A1)":      "A1",
		"(A1)+(A1)": "A1+A1",
		"(A1)-(A1)": "A1-A1",
		"(A1)*(A1)": "A1*A1",
		"(A1)/(A1)": "A1/A1",
		"-(A1)":     "-A1",
		"+(A1)":     "+A1",

		"(-1)":      "-1",
		"(+1)":      "+1",
		"(-1)+(-1)": "-1+-1",
		"(-1)-(-1)": "-1--1",
		"(-1)*(-1)": "-1*-1",
		"(-1)/(-1)": "-1/-1",
		"(+1)+(+1)": "+1++1",
		"(+1)-(+1)": "+1-+1",
		"(+1)*(+1)": "+1*+1",
		"(+1)/(+1)": "+1/+1",

		"(-A1)":       "-A1",
		"(+A1)":       "+A1",
		"(-A1)+(-A1)": "-A1+-A1",
		"(-A1)-(-A1)": "-A1--A1",
		"(-A1)*(-A1)": "-A1*-A1",
		"(-A1)/(-A1)": "-A1/-A1",

		"(1+1)/(1+1)": "(1+1)/(1+1)",
		"(1-1)/(1-1)": "(1-1)/(1-1)",
		"(1*1)/(1*1)": "1*1/(1*1)",
		"(1/1)/(1/1)": "1/1/(1/1)",

		"(A1+A1)/(A1+A1)": "(A1+A1)/(A1+A1)",
		"(A1-A1)/(A1-A1)": "(A1-A1)/(A1-A1)",
		"(A1*A1)/(A1*A1)": "A1*A1/(A1*A1)",
		"(A1/A1)/(A1/A1)": "A1/A1/(A1/A1)",

		"(1+1)+(1+1)": "1+1+1+1",
		"(1-1)+(1-1)": "1-1+1-1",
		"(1*1)+(1*1)": "1*1+1*1",
		"(1/1)+(1/1)": "1/1+1/1",

		"(A1+A1)+(A1+A1)": "A1+A1+A1+A1",
		"(A1-A1)+(A1-A1)": "A1-A1+A1-A1",
		"(A1*A1)+(A1*A1)": "A1*A1+A1*A1",
		"(A1/A1)+(A1/A1)": "A1/A1+A1/A1",

		"(1+1)-(1+1)": "1+1-(1+1)",
		"(1-1)-(1-1)": "1-1-(1-1)",
		"(1*1)-(1*1)": "1*1-1*1",
		"(1/1)-(1/1)": "1/1-1/1",

		"(A1+A1)-(A1+A1)": "A1+A1-(A1+A1)",
		"(A1-A1)-(A1-A1)": "A1-A1-(A1-A1)",
		"(A1*A1)-(A1*A1)": "A1*A1-A1*A1",
		"(A1/A1)-(A1/A1)": "A1/A1-A1/A1",

		"(1+1)*(1+1)": "(1+1)*(1+1)",
		"(1-1)*(1-1)": "(1-1)*(1-1)",
		"(1*1)*(1*1)": "1*1*1*1",
		"(1/1)*(1/1)": "1/1*1/1",

		"(A1+A1)*(A1+A1)": "(A1+A1)*(A1+A1)",
		"(A1-A1)*(A1-A1)": "(A1-A1)*(A1-A1)",
		"(A1*A1)*(A1*A1)": "A1*A1*A1*A1",
		"(A1/A1)*(A1/A1)": "A1/A1*A1/A1",

		"+(1+1)": "+(1+1)",
		"+(1-1)": "+(1-1)",
		"+(1*1)": "+1*1",
		"+(1/1)": "+1/1",
		"+(+1)":  "++1",
		"-(1+1)": "-(1+1)",
		"-(1-1)": "-(1-1)",
		"-(1*1)": "-1*1",
		"-(1/1)": "-1/1",
		"-(-1)":  "--1",

		"+(A1+A1)": "+(A1+A1)",
		"+(A1-A1)": "+(A1-A1)",
		"+(A1*A1)": "+A1*A1",
		"+(A1/A1)": "+A1/A1",
		"+(+A1)":   "++A1",
		"-(A1+A1)": "-(A1+A1)",
		"-(A1-A1)": "-(A1-A1)",
		"-(A1*A1)": "-A1*A1",
		"-(A1/A1)": "-A1/A1",
		"-(-A1)":   "--A1",
	}
	for input, want := range tests {
		t.Run(input, func(t *testing.T) {
			assert.Equal(t, want, reformat(t, input))
		})
	}
}

// TestFormattingRoundTrip re-parses canonical output and checks it renders
// identically; canonical text is a fixed point of the writer.
func TestFormattingRoundTrip(t *testing.T) {
	inputs := []string{
		"(12+13) * (14+(13-24/(1+1))*55-46)",
		"-(123 + 456) / -B35 * 1",
		"(1*1)/(1*1)",
		"(1-1)-(1-1)",
		"+(+1)",
		"A1 + A2 + A1 + A3",
		"((B2))*(C3+1)",
	}
	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			once := reformat(t, in)
			assert.Equal(t, once, reformat(t, once))
		})
	}
}

func TestSeveredReferenceFormatting(t *testing.T) {
	f, err := Parse("A1+B2")
	require.NoError(t, err)
	hr := f.HandleDeletedRows(0, 1)
	assert.Equal(t, ReferencesChanged, hr)
	assert.Equal(t, "#!REF+B1", f.Expression())
	assert.Equal(t, []position.Pos{{Row: 0, Col: 1}}, f.ReferencedCells())
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "", FormatValue(nil))
	assert.Equal(t, "6", FormatValue(6.0))
	assert.Equal(t, "0.5", FormatValue(0.5))
	assert.Equal(t, "1000000", FormatValue(1e6))
	assert.Equal(t, "meow", FormatValue("meow"))
	assert.Equal(t, "#DIV/0!", FormatValue(CellError{Code: ErrorCodeDiv0}))
	assert.Equal(t, "#VALUE!", FormatValue(CellError{Code: ErrorCodeValue}))
	assert.Equal(t, "#!REF", FormatValue(CellError{Code: ErrorCodeRef}))
}
