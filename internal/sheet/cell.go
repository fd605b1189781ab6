package sheet

import (
	"strconv"
	"strings"

	"github.com/kalexmills/gridcalc/internal/formula"
	"github.com/kalexmills/gridcalc/internal/position"
)

// Cell is the read surface of one grid slot.
type Cell interface {
	// GetValue returns the displayed value: a string, a float64 or a
	// formula.CellError. Empty cells display as 0.
	GetValue() formula.Value
	// GetText returns the source text: the literal as stored, or "=" plus the
	// canonical expression for formulas.
	GetText() string
	// GetReferencedCells returns the positions a formula cell reads,
	// deduplicated in first-occurrence order. Nil for non-formula cells.
	GetReferencedCells() []position.Pos
}

// inner is one of the cell variants a holder can own.
type inner interface {
	value() formula.Value
	text() string
}

// holder owns at most one inner cell for its grid slot, plus the back-edges
// of every formula holder that references this slot. A holder with a nil
// inner is an empty cell kept alive to host back-edges.
type holder struct {
	sheet  *Sheet
	inner  inner
	usedBy []*holder
}

var _ Cell = (*holder)(nil)

func (h *holder) GetValue() formula.Value {
	if h.inner == nil {
		return 0.0
	}
	h.update()
	return h.inner.value()
}

func (h *holder) GetText() string {
	if h.inner == nil {
		return ""
	}
	return h.inner.text()
}

func (h *holder) GetReferencedCells() []position.Pos {
	if fc, ok := h.inner.(*formulaCell); ok {
		return fc.f.ReferencedCells()
	}
	return nil
}

// lastCall is the idempotence key for SetCell: the text a repeated write
// compares against.
func (h *holder) lastCall() string {
	return h.GetText()
}

// update re-evaluates an invalidated formula cell, first driving the caches
// of its references current so evaluation sees consistent inputs.
func (h *holder) update() {
	fc, ok := h.inner.(*formulaCell)
	if !ok || !fc.invalid {
		return
	}
	for _, p := range fc.f.ReferencedCells() {
		if dep := h.sheet.holderAt(p); dep != nil {
			dep.update()
		}
	}
	fc.cached = fc.f.Evaluate(h.sheet)
	fc.invalid = false
}

// literalCell stores plain text. The numeric view is computed lazily: text
// with no ASCII letter that parses in full as a float displays as a number.
// A leading ' keeps the stored text verbatim but displays the tail.
type literalCell struct {
	textValue string
	parsed    bool
	num       float64
	isNum     bool
}

func (c *literalCell) value() formula.Value {
	if strings.HasPrefix(c.textValue, "'") {
		return c.textValue[1:]
	}
	if !c.parsed {
		c.parsed = true
		c.num, c.isNum = parseNumericText(c.textValue)
	}
	if c.isNum {
		return c.num
	}
	return c.textValue
}

func (c *literalCell) text() string {
	return c.textValue
}

func parseNumericText(s string) (float64, bool) {
	for i := 0; i < len(s); i++ {
		if 'a' <= s[i] && s[i] <= 'z' || 'A' <= s[i] && s[i] <= 'Z' {
			return 0, false
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// errorCell holds a pre-rendered text and a fixed error value. It is created
// when a formula's numeric literal over- or underflows during parsing.
type errorCell struct {
	textValue string
	err       formula.CellError
}

func (c *errorCell) value() formula.Value {
	return c.err
}

func (c *errorCell) text() string {
	return c.textValue
}

// formulaCell owns a parsed formula, its cached result and the dirty flag
// driving on-demand re-evaluation.
type formulaCell struct {
	f       *formula.Formula
	cached  formula.Value
	invalid bool
}

func (c *formulaCell) value() formula.Value {
	return c.cached
}

func (c *formulaCell) text() string {
	return "=" + c.f.Expression()
}
