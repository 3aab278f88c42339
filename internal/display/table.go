package display

import (
	"fmt"
	"io"

	"github.com/pterm/pterm"
)

// RenderTable writes a boxed table with a header row. Rows shorter than the
// header are padded with empty cells.
func RenderTable(w io.Writer, header []string, rows [][]string) error {
	data := pterm.TableData{header}
	for _, r := range rows {
		row := make([]string, len(header))
		copy(row, r)
		data = append(data, row)
	}
	out, err := pterm.DefaultTable.WithHasHeader().WithBoxed().WithData(data).Srender()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, out)
	return err
}
