package sheet

import (
	"io"
	"strings"

	"github.com/kalexmills/gridcalc/internal/formula"
	"github.com/kalexmills/gridcalc/internal/position"
)

// PrintValues writes the printable rectangle's displayed values to w, columns
// separated by tabs, each row terminated by a newline. Empty slots emit
// nothing; errors print their labels.
func (s *Sheet) PrintValues(w io.Writer) error {
	return s.print(w, func(h *holder) string {
		return formula.FormatValue(h.GetValue())
	})
}

// PrintTexts writes the printable rectangle's source texts to w in the same
// shape as PrintValues.
func (s *Sheet) PrintTexts(w io.Writer) error {
	return s.print(w, (*holder).GetText)
}

func (s *Sheet) print(w io.Writer, render func(*holder) string) error {
	var sb strings.Builder
	for r := 0; r < s.printRows; r++ {
		for c := 0; c < s.printCols; c++ {
			if c > 0 {
				sb.WriteByte('\t')
			}
			h := s.holderAt(position.Pos{Row: r, Col: c})
			if h == nil || h.inner == nil {
				continue
			}
			sb.WriteString(render(h))
		}
		sb.WriteByte('\n')
	}
	_, err := io.WriteString(w, sb.String())
	return err
}
