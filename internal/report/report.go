// Package report renders a run summary for the terminal.
package report

import (
	"io"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/JakeFAU/sdvx-chart-sync/internal/pipeline"
)

// Render writes one row per level followed by a totals footer.
func Render(w io.Writer, summary pipeline.Summary) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.SetTitle("run " + summary.RunID)
	t.AppendHeader(table.Row{"Level", "Status", "Entries", "Failed"})

	for _, lv := range summary.Levels {
		status := "ok"
		if !lv.Fetched {
			status = "skipped: " + lv.Error
		}
		t.AppendRow(table.Row{lv.Level, status, lv.Entries, lv.Failed})
	}

	t.AppendFooter(table.Row{"Total", footerStatus(summary), summary.Processed, summary.Failed})
	t.Render()
}

func footerStatus(summary pipeline.Summary) string {
	if summary.FinalizeError != "" {
		return "finalize failed: " + summary.FinalizeError
	}
	if summary.PagesFailed > 0 {
		return "pages skipped"
	}
	return "done"
}
