package consistency

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
)

// Render prints the report in the same rounded-table style the rest of the
// CLI surface uses, with an explicit all-clear per direction.
func Render(out io.Writer, r Report) {
	if len(r.MissingArtifacts) == 0 {
		fmt.Fprintln(out, "All IDs have corresponding epub files.")
	} else {
		t := table.NewWriter()
		t.SetOutputMirror(out)
		t.SetStyle(table.StyleRounded)
		t.AppendHeader(table.Row{"ID missing epub"})
		for _, id := range r.MissingArtifacts {
			t.AppendRow(table.Row{id})
		}
		t.Render()
	}

	if len(r.OrphanArtifacts) == 0 {
		fmt.Fprintln(out, "All epub files have corresponding table entries.")
	} else {
		t := table.NewWriter()
		t.SetOutputMirror(out)
		t.SetStyle(table.StyleRounded)
		t.AppendHeader(table.Row{"Epub without table entry"})
		for _, name := range r.OrphanArtifacts {
			t.AppendRow(table.Row{name})
		}
		t.Render()
	}
}
