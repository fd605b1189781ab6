package formula

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kalexmills/gridcalc/internal/position"
)

// ErrTableTooBig is returned when shifting references for a row/column
// insertion would push a reference past the grid bounds. The handlers check
// before they mutate, so a failed call leaves the formula untouched.
var ErrTableTooBig = errors.New("table too big")

// HandlingResult reports what a structural rewrite did to a formula's
// references.
type HandlingResult int

const (
	NothingChanged        HandlingResult = iota
	ReferencesRenamedOnly                // positions shifted, values unaffected
	ReferencesChanged                    // at least one reference was severed
)

func (hr HandlingResult) String() string {
	switch hr {
	case NothingChanged:
		return "NothingChanged"
	case ReferencesRenamedOnly:
		return "ReferencesRenamedOnly"
	case ReferencesChanged:
		return "ReferencesChanged"
	}
	return "Unknown"
}

// Formula is a parsed expression together with its reference bookkeeping.
type Formula struct {
	root Expr
	// cells lists every reference node in source order; rewrites mutate the
	// nodes through this list.
	cells []*CellRef
	// refs is the external view: valid positions only, deduplicated, ordered
	// by first occurrence.
	refs []position.Pos
}

// Parse parses the expression text (without the leading '='). It returns
// ErrParse for syntax faults and ErrNumberRange when a numeric literal does
// not fit a float64.
func Parse(text string) (*Formula, error) {
	root, err := parse(text)
	if err != nil {
		return nil, err
	}
	f := &Formula{root: root, cells: collectCellRefs(root, nil)}
	f.updateRefs()
	return f, nil
}

// Evaluate computes the formula's value against src. The result is a float64
// or a CellError.
func (f *Formula) Evaluate(src ValueSource) Value {
	return evalExpr(f.root, src)
}

// Expression renders the canonical text of the formula: infix, no whitespace,
// minimal parentheses.
func (f *Formula) Expression() string {
	var sb strings.Builder
	writeExpr(&sb, f.root, ctxTop)
	return sb.String()
}

// ReferencedCells returns the positions the formula reads, deduplicated and
// ordered by first occurrence. Severed references are excluded. The slice is
// shared; callers must not modify it.
func (f *Formula) ReferencedCells() []position.Pos {
	return f.refs
}

func (f *Formula) updateRefs() {
	f.refs = f.refs[:0]
	seen := make(map[position.Pos]struct{}, len(f.cells))
	for _, c := range f.cells {
		if !c.Pos.IsValid() {
			continue
		}
		if _, dup := seen[c.Pos]; dup {
			continue
		}
		seen[c.Pos] = struct{}{}
		f.refs = append(f.refs, c.Pos)
	}
}

// HandleInsertedRows shifts references at or below the insertion point down
// by count rows. If any reference would leave the grid the formula is left
// untouched and ErrTableTooBig is returned.
func (f *Formula) HandleInsertedRows(before, count int) (HandlingResult, error) {
	for _, c := range f.cells {
		if c.Pos.Row >= before && c.Pos.Row+count >= position.MaxRows {
			return NothingChanged, fmt.Errorf("%w: cannot shift reference %s by %d rows", ErrTableTooBig, c.Pos, count)
		}
	}
	res := NothingChanged
	for _, c := range f.cells {
		if c.Pos.Row >= before {
			c.Pos.Row += count
			res = ReferencesRenamedOnly
		}
	}
	if res != NothingChanged {
		f.updateRefs()
	}
	return res, nil
}

// HandleInsertedCols is the column analogue of HandleInsertedRows.
func (f *Formula) HandleInsertedCols(before, count int) (HandlingResult, error) {
	for _, c := range f.cells {
		if c.Pos.Col >= before && c.Pos.Col+count >= position.MaxCols {
			return NothingChanged, fmt.Errorf("%w: cannot shift reference %s by %d cols", ErrTableTooBig, c.Pos, count)
		}
	}
	res := NothingChanged
	for _, c := range f.cells {
		if c.Pos.Col >= before {
			c.Pos.Col += count
			res = ReferencesRenamedOnly
		}
	}
	if res != NothingChanged {
		f.updateRefs()
	}
	return res, nil
}

// HandleDeletedRows severs references inside the deleted band and shifts
// references below it up by count rows.
func (f *Formula) HandleDeletedRows(first, count int) HandlingResult {
	res := NothingChanged
	last := first + count - 1
	for _, c := range f.cells {
		switch {
		case c.Pos.Row >= first && c.Pos.Row <= last:
			c.Pos = position.Deleted
			res = ReferencesChanged
		case c.Pos.Row > last:
			c.Pos.Row -= count
			if res != ReferencesChanged {
				res = ReferencesRenamedOnly
			}
		}
	}
	if res != NothingChanged {
		f.updateRefs()
	}
	return res
}

// HandleDeletedCols is the column analogue of HandleDeletedRows.
func (f *Formula) HandleDeletedCols(first, count int) HandlingResult {
	res := NothingChanged
	last := first + count - 1
	for _, c := range f.cells {
		switch {
		case c.Pos.Col >= first && c.Pos.Col <= last:
			c.Pos = position.Deleted
			res = ReferencesChanged
		case c.Pos.Col > last:
			c.Pos.Col -= count
			if res != ReferencesChanged {
				res = ReferencesRenamedOnly
			}
		}
	}
	if res != NothingChanged {
		f.updateRefs()
	}
	return res
}
