package report

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/Sumatoshi-tech/depcheck/pkg/reconcile"
)

// writeTable renders one row per scope followed by one row per violation.
func writeTable(w io.Writer, res *reconcile.Result) error {
	scopes := table.NewWriter()
	scopes.SetOutputMirror(w)
	scopes.SetStyle(table.StyleLight)
	scopes.Style().Options.SeparateRows = false
	scopes.AppendHeader(table.Row{"Scope", "Files", "Declared", "Imported", "Violations"})

	for _, s := range res.Scopes {
		scopes.AppendRow(table.Row{s.Scope, s.Files, s.Declared, s.Imported, len(s.Violations)})
	}

	scopes.AppendFooter(table.Row{fmt.Sprintf("Total: %d scopes", len(res.Scopes)), "", "", "", len(res.Violations())})
	scopes.Render()

	violations := res.Violations()
	if len(violations) == 0 {
		return nil
	}

	fmt.Fprintln(w)

	tbl := table.NewWriter()
	tbl.SetOutputMirror(w)
	tbl.SetStyle(table.StyleLight)
	tbl.AppendHeader(table.Row{"Rule", "Scope", "Name", "Location"})

	for _, v := range violations {
		tbl.AppendRow(table.Row{v.Rule, v.Scope, v.Name, v.Location})
	}

	tbl.Render()

	return nil
}
