package main

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// reportColumn describes one column of a CLI report. Count columns are
// right-aligned so record and failure totals line up.
type reportColumn struct {
	title string
	count bool
}

// renderReport draws the sidecar and run tables. Short rows are padded so a
// sidecar with no recorded outcome still renders a full line.
func renderReport(columns []reportColumn, rows [][]string) string {
	if len(columns) == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleLight)

	header := make(table.Row, len(columns))
	configs := make([]table.ColumnConfig, len(columns))
	for i, col := range columns {
		header[i] = col.title
		align := text.AlignLeft
		if col.count {
			align = text.AlignRight
		}
		configs[i] = table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		}
	}
	tw.AppendHeader(header)
	tw.SetColumnConfigs(configs)

	for _, row := range rows {
		cells := make(table.Row, len(columns))
		for i := range columns {
			var cell string
			if i < len(row) {
				cell = row[i]
			}
			cells[i] = cell
		}
		tw.AppendRow(cells)
	}

	return tw.Render()
}
