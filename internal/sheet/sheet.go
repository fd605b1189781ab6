// Package sheet implements the spreadsheet grid: sparse holder storage,
// dependency bookkeeping, memoized evaluation with transitive invalidation,
// and structural row/column mutation with reference rewriting.
package sheet

import (
	"errors"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"golang.org/x/exp/slices"

	"github.com/kalexmills/gridcalc/internal/formula"
	"github.com/kalexmills/gridcalc/internal/position"
)

var (
	// ErrInvalidPosition is returned when an API call names a position
	// outside the grid.
	ErrInvalidPosition = errors.New("invalid position")
	// ErrCircRef is returned whenever a formula edit would introduce a
	// circular reference. The edit is rolled back.
	ErrCircRef = errors.New("circular reference detected")
	// ErrTableTooBig is returned when an insertion would push the grid or any
	// occupied cell past its bounds. Nothing is mutated.
	ErrTableTooBig = formula.ErrTableTooBig
)

// Sheet is a sparse row-major grid of cell holders. It is single-threaded:
// operations run to completion and are not safe for concurrent use.
type Sheet struct {
	// rows is indexed by row then column; absent trailing slots are implicit.
	rows [][]*holder
	// printRows and printCols bound the printable rectangle.
	printRows int
	printCols int
	// objects counts live holders; when it drops to zero the printable
	// rectangle collapses.
	objects int

	log logrus.FieldLogger
}

// Option configures a Sheet.
type Option func(*Sheet)

// WithLogger routes the sheet's debug logging to l.
func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Sheet) {
		s.log = l
	}
}

// New creates an empty sheet.
func New(opts ...Option) *Sheet {
	discard := logrus.New()
	discard.SetOutput(io.Discard)
	s := &Sheet{log: discard}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetCell parses text and stores the resulting cell at pos. Empty text
// empties the cell; a leading ' stores an escaped literal; "=" followed by an
// expression stores a formula. Re-setting a cell to its current text is a
// no-op. Formula edits that would create a reference cycle are rejected with
// ErrCircRef and rolled back.
func (s *Sheet) SetCell(pos position.Pos, text string) error {
	if !pos.IsValid() {
		return fmt.Errorf("%w: %v", ErrInvalidPosition, pos)
	}
	existed := s.holderAt(pos) != nil
	h := s.ensureHolder(pos, true)
	if h.lastCall() == text {
		return nil
	}
	if hasFormulaPrefix(text) {
		if err := s.setFormula(pos, h, text, existed); err != nil {
			return err
		}
	} else {
		s.removeForwardEdges(h)
		if text == "" {
			h.inner = nil
		} else {
			h.inner = &literalCell{textValue: text}
		}
	}
	for _, dep := range h.usedBy {
		s.invalidate(dep)
	}
	s.log.WithFields(logrus.Fields{"pos": pos.String(), "text": text}).Debug("set cell")
	return nil
}

// hasFormulaPrefix reports whether text denotes a formula: a leading '='
// followed by at least one character. A lone "=" and the '= escape are
// literals.
func hasFormulaPrefix(text string) bool {
	return len(text) > 1 && text[0] == '='
}

func (s *Sheet) setFormula(pos position.Pos, h *holder, text string, existed bool) error {
	f, err := formula.Parse(text[1:])
	if err != nil {
		if errors.Is(err, formula.ErrNumberRange) {
			// an out-of-range numeric literal becomes a #DIV/0! error cell
			// holding the original text
			s.removeForwardEdges(h)
			h.inner = &errorCell{textValue: text, err: formula.CellError{Code: formula.ErrorCodeDiv0}}
			return nil
		}
		if !existed {
			s.dropHolder(pos)
		}
		return err
	}
	refs := f.ReferencedCells()
	if s.hasCycle(pos, refs) {
		if !existed {
			s.dropHolder(pos)
		}
		return fmt.Errorf("%w: %v", ErrCircRef, pos)
	}
	s.removeForwardEdges(h)
	// drive referenced caches current so evaluation sees consistent inputs
	for _, rp := range refs {
		if dep := s.holderAt(rp); dep != nil {
			dep.update()
		}
	}
	value := f.Evaluate(s)
	h.inner = &formulaCell{f: f, cached: value}
	// every referenced position gets a holder, created empty if need be, so
	// the back-edge has somewhere to live
	for _, rp := range refs {
		dep := s.ensureHolder(rp, false)
		dep.usedBy = append(dep.usedBy, h)
	}
	return nil
}

// hasCycle walks forward references depth-first from the proposed reference
// set; a cycle exists iff the walk reaches the edited position. Each holder
// is visited at most once, which bounds the walk on diamonds.
func (s *Sheet) hasCycle(origin position.Pos, refs []position.Pos) bool {
	visited := make(map[*holder]struct{})
	var walk func(refs []position.Pos) bool
	walk = func(refs []position.Pos) bool {
		for _, p := range refs {
			if p == origin {
				return true
			}
			h := s.holderAt(p)
			if h == nil {
				continue
			}
			if _, seen := visited[h]; seen {
				continue
			}
			visited[h] = struct{}{}
			if fc, ok := h.inner.(*formulaCell); ok {
				if walk(fc.f.ReferencedCells()) {
					return true
				}
			}
		}
		return false
	}
	return walk(refs)
}

// GetCell returns the cell at pos, or nil when the slot is empty.
func (s *Sheet) GetCell(pos position.Pos) (Cell, error) {
	if !pos.IsValid() {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPosition, pos)
	}
	h := s.holderAt(pos)
	if h == nil {
		return nil, nil
	}
	return h, nil
}

// ClearCell empties the cell at pos. Downstream formulas keep their
// back-edges and are invalidated; they now read the position as empty. When
// the last holder dies the printable rectangle collapses to zero.
func (s *Sheet) ClearCell(pos position.Pos) error {
	if !pos.IsValid() {
		return fmt.Errorf("%w: %v", ErrInvalidPosition, pos)
	}
	h := s.holderAt(pos)
	if h == nil {
		return nil
	}
	s.invalidate(h)
	s.removeForwardEdges(h)
	h.inner = nil
	if len(h.usedBy) == 0 {
		s.dropHolder(pos)
	}
	s.log.WithField("pos", pos.String()).Debug("clear cell")
	return nil
}

// GetPrintableSize returns the printable rectangle as (rows, cols). Writes
// grow it to cover the written cell, insertions grow it and deletions shrink
// it by their count, and it collapses to zero when no holder remains. Clearing
// a cell does not otherwise shrink it.
func (s *Sheet) GetPrintableSize() (rows, cols int) {
	return s.printRows, s.printCols
}

// ValueAt implements formula.ValueSource. Reading an invalidated formula
// recomputes it first.
func (s *Sheet) ValueAt(p position.Pos) (formula.Value, bool) {
	h := s.holderAt(p)
	if h == nil {
		return nil, false
	}
	return h.GetValue(), true
}

// InsertRows shifts rows at index >= before down by count. It fails with
// ErrTableTooBig, mutating nothing, when the printable size or any occupied
// slot would reach the row bound.
func (s *Sheet) InsertRows(before, count int) error {
	if s.printRows+count >= position.MaxRows {
		return fmt.Errorf("%w: cannot insert %d rows", ErrTableTooBig, count)
	}
	maxRow := s.maxOccupiedRow()
	if maxRow >= before && maxRow+count >= position.MaxRows {
		return fmt.Errorf("%w: cannot insert %d rows", ErrTableTooBig, count)
	}
	rewritten := make(map[*holder]struct{})
	for r := before; r < len(s.rows); r++ {
		for _, h := range s.rows[r] {
			if h == nil {
				continue
			}
			if err := s.rewriteDependentsOnInsert(h, rewritten, before, count, true); err != nil {
				return err
			}
		}
	}
	if before < len(s.rows) {
		s.rows = slices.Insert(s.rows, before, make([][]*holder, count)...)
	}
	s.printRows += count
	s.log.WithFields(logrus.Fields{"before": before, "count": count}).Debug("insert rows")
	return nil
}

// InsertCols is the column analogue of InsertRows.
func (s *Sheet) InsertCols(before, count int) error {
	if s.printCols+count >= position.MaxCols {
		return fmt.Errorf("%w: cannot insert %d cols", ErrTableTooBig, count)
	}
	maxCol := s.maxOccupiedCol()
	if maxCol >= before && maxCol+count >= position.MaxCols {
		return fmt.Errorf("%w: cannot insert %d cols", ErrTableTooBig, count)
	}
	rewritten := make(map[*holder]struct{})
	for _, row := range s.rows {
		for c := before; c < len(row); c++ {
			if row[c] == nil {
				continue
			}
			if err := s.rewriteDependentsOnInsert(row[c], rewritten, before, count, false); err != nil {
				return err
			}
		}
	}
	for r, row := range s.rows {
		if before < len(row) {
			s.rows[r] = slices.Insert(row, before, make([]*holder, count)...)
		}
	}
	s.printCols += count
	s.log.WithFields(logrus.Fields{"before": before, "count": count}).Debug("insert cols")
	return nil
}

// DeleteRows removes count rows starting at first. References into the band
// are rewritten to the deleted sentinel; references below it are renamed.
func (s *Sheet) DeleteRows(first, count int) {
	type slot struct {
		r, c int
		h    *holder
	}
	var band []slot
	for r := first; r < first+count && r < len(s.rows); r++ {
		for c, h := range s.rows[r] {
			if h != nil {
				band = append(band, slot{r: r, c: c, h: h})
			}
		}
	}
	// detach forward edges first, while every reference still names its
	// pre-rewrite position
	for _, sl := range band {
		s.removeForwardEdges(sl.h)
	}
	rewritten := make(map[*holder]struct{})
	for _, sl := range band {
		s.rewriteDependentsOnDelete(sl.h, rewritten, first, count, true)
		s.invalidate(sl.h)
		sl.h.usedBy = nil
		s.rows[sl.r][sl.c] = nil
		s.objects--
	}
	// holders below the band slide up; their dependents see renames only
	for r := first + count; r < len(s.rows); r++ {
		for _, h := range s.rows[r] {
			if h != nil {
				s.rewriteDependentsOnDelete(h, rewritten, first, count, true)
			}
		}
	}
	if first < len(s.rows) {
		end := first + count
		if end > len(s.rows) {
			end = len(s.rows)
		}
		s.rows = slices.Delete(s.rows, first, end)
	}
	s.printRows -= count
	if s.printRows < 0 {
		s.printRows = 0
	}
	if s.printCols == 1 && s.printRows == 0 {
		s.printCols = 0
	}
	if s.objects == 0 {
		s.printRows, s.printCols = 0, 0
	}
	s.log.WithFields(logrus.Fields{"first": first, "count": count}).Debug("delete rows")
}

// DeleteCols is the column analogue of DeleteRows.
func (s *Sheet) DeleteCols(first, count int) {
	type slot struct {
		r, c int
		h    *holder
	}
	var band []slot
	for r, row := range s.rows {
		for c := first; c < first+count && c < len(row); c++ {
			if row[c] != nil {
				band = append(band, slot{r: r, c: c, h: row[c]})
			}
		}
	}
	for _, sl := range band {
		s.removeForwardEdges(sl.h)
	}
	rewritten := make(map[*holder]struct{})
	for _, sl := range band {
		s.rewriteDependentsOnDelete(sl.h, rewritten, first, count, false)
		s.invalidate(sl.h)
		sl.h.usedBy = nil
		s.rows[sl.r][sl.c] = nil
		s.objects--
	}
	for r, row := range s.rows {
		end := first + count
		if end > len(row) {
			end = len(row)
		}
		for c := end; c < len(row); c++ {
			if row[c] != nil {
				s.rewriteDependentsOnDelete(row[c], rewritten, first, count, false)
			}
		}
		if first < len(row) {
			s.rows[r] = slices.Delete(row, first, end)
		}
	}
	s.printCols -= count
	if s.printCols < 0 {
		s.printCols = 0
	}
	if s.printCols == 0 && s.printRows == 1 {
		s.printRows = 0
	}
	if s.objects == 0 {
		s.printRows, s.printCols = 0, 0
	}
	s.log.WithFields(logrus.Fields{"first": first, "count": count}).Debug("delete cols")
}

// rewriteDependentsOnInsert renames references in every formula that reads h,
// at most once per mutating call.
func (s *Sheet) rewriteDependentsOnInsert(h *holder, done map[*holder]struct{}, before, count int, rows bool) error {
	for _, dep := range h.usedBy {
		if _, ok := done[dep]; ok {
			continue
		}
		done[dep] = struct{}{}
		fc, ok := dep.inner.(*formulaCell)
		if !ok {
			continue
		}
		var err error
		if rows {
			_, err = fc.f.HandleInsertedRows(before, count)
		} else {
			_, err = fc.f.HandleInsertedCols(before, count)
		}
		if err != nil {
			// unreachable: every reference has a holder, so the occupied-slot
			// scan rejects the insertion first
			return err
		}
	}
	return nil
}

// rewriteDependentsOnDelete rewrites every formula that reads h, at most once
// per mutating call, invalidating formulas whose references were severed.
// Renamed-only rewrites keep their cached values.
func (s *Sheet) rewriteDependentsOnDelete(h *holder, done map[*holder]struct{}, first, count int, rows bool) {
	for _, dep := range h.usedBy {
		if _, ok := done[dep]; ok {
			continue
		}
		done[dep] = struct{}{}
		fc, ok := dep.inner.(*formulaCell)
		if !ok {
			continue
		}
		var hr formula.HandlingResult
		if rows {
			hr = fc.f.HandleDeletedRows(first, count)
		} else {
			hr = fc.f.HandleDeletedCols(first, count)
		}
		if hr == formula.ReferencesChanged {
			s.invalidate(dep)
		}
	}
}

// invalidate marks h's cached value stale and propagates to everything that
// transitively depends on it. An already-invalid formula terminates the walk;
// its dependents are invalid by invariant.
func (s *Sheet) invalidate(h *holder) {
	if fc, ok := h.inner.(*formulaCell); ok {
		if fc.invalid {
			return
		}
		fc.invalid = true
	}
	for _, dep := range h.usedBy {
		s.invalidate(dep)
	}
}

// removeForwardEdges deletes h from the usedBy list of every holder its
// formula references.
func (s *Sheet) removeForwardEdges(h *holder) {
	for _, p := range h.GetReferencedCells() {
		t := s.holderAt(p)
		if t == nil {
			continue
		}
		if i := slices.Index(t.usedBy, h); i >= 0 {
			t.usedBy = slices.Delete(t.usedBy, i, i+1)
		}
	}
}

func (s *Sheet) holderAt(p position.Pos) *holder {
	if p.Row < 0 || p.Row >= len(s.rows) {
		return nil
	}
	row := s.rows[p.Row]
	if p.Col < 0 || p.Col >= len(row) {
		return nil
	}
	return row[p.Col]
}

// ensureHolder returns the holder at p, creating storage and an empty holder
// as needed. Only printable writes grow the printable rectangle; holders
// created to host back-edges do not.
func (s *Sheet) ensureHolder(p position.Pos, printable bool) *holder {
	if p.Row >= len(s.rows) {
		s.rows = append(s.rows, make([][]*holder, p.Row+1-len(s.rows))...)
	}
	if p.Col >= len(s.rows[p.Row]) {
		s.rows[p.Row] = append(s.rows[p.Row], make([]*holder, p.Col+1-len(s.rows[p.Row]))...)
	}
	if s.rows[p.Row][p.Col] == nil {
		s.rows[p.Row][p.Col] = &holder{sheet: s}
		s.objects++
	}
	if printable {
		if s.printRows <= p.Row {
			s.printRows = p.Row + 1
		}
		if s.printCols <= p.Col {
			s.printCols = p.Col + 1
		}
	}
	return s.rows[p.Row][p.Col]
}

// dropHolder removes the holder at p outright; used by ClearCell and by
// rollback of failed edits on previously empty slots.
func (s *Sheet) dropHolder(p position.Pos) {
	if s.holderAt(p) == nil {
		return
	}
	s.rows[p.Row][p.Col] = nil
	s.objects--
	if s.objects == 0 {
		s.printRows, s.printCols = 0, 0
	}
}

func (s *Sheet) maxOccupiedRow() int {
	for r := len(s.rows) - 1; r >= 0; r-- {
		for _, h := range s.rows[r] {
			if h != nil {
				return r
			}
		}
	}
	return -1
}

func (s *Sheet) maxOccupiedCol() int {
	max := -1
	for _, row := range s.rows {
		for c := len(row) - 1; c > max; c-- {
			if row[c] != nil {
				max = c
				break
			}
		}
	}
	return max
}
