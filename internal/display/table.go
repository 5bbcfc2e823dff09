package display

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/backmassage/dashpack/internal/pipeline"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

func renderTable(headers []string, rows [][]string, aligns []columnAlignment, footer []string) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i := 0; i < columns; i++ {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := 0; i < columns; i++ {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}
	if len(footer) > 0 {
		f := make(table.Row, columns)
		for i := 0; i < columns && i < len(footer); i++ {
			f[i] = footer[i]
		}
		tw.AppendFooter(f)
	}

	columnConfigs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		columnConfigs = append(columnConfigs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
			AlignFooter: align,
		})
	}
	tw.SetColumnConfigs(columnConfigs)

	return tw.Render()
}

// ReportTable renders one row per job, in label order.
func ReportTable(r *pipeline.Report) string {
	jobs := append([]*pipeline.Job(nil), r.Jobs...)
	sortByLabel(jobs)

	rows := make([][]string, 0, len(jobs))
	for _, j := range jobs {
		result := "ok"
		detail := j.Outcome.Transcode.Summary()
		if !j.Outcome.Succeeded() {
			result = "FAILED"
			detail = j.Outcome.Reason()
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", j.Label),
			j.Title(),
			result,
			detail,
			FormatBytes(j.Outcome.InputBytes),
			FormatBytes(j.Outcome.OutputBytes),
			FormatDuration(j.Outcome.Elapsed),
		})
	}

	s := r.Stats
	footer := []string{"", fmt.Sprintf("%d jobs", s.Total), fmt.Sprintf("%d ok", s.Succeeded),
		fmt.Sprintf("%d failed", s.Failed), FormatBytes(s.TotalInputBytes), FormatBytes(s.TotalOutputBytes),
		FormatDuration(r.Elapsed)}

	return renderTable(
		[]string{"#", "Title", "Result", "Detail", "Input", "Output", "Time"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight},
		footer,
	)
}

// PlanTable renders the dry-run plan.
func PlanTable(rows []pipeline.PlanRow) string {
	out := make([][]string, 0, len(rows))
	var total int64
	for _, r := range rows {
		codec := r.Codec
		if codec == "" {
			codec = "?"
		}
		out = append(out, []string{filepath.Base(r.Source), r.Title, codec, r.Action, FormatBytes(r.Bytes)})
		total += r.Bytes
	}
	return renderTable(
		[]string{"Source", "Title", "Codec", "Action", "Size"},
		out,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight},
		[]string{fmt.Sprintf("%d files", len(rows)), "", "", "", FormatBytes(total)},
	)
}

func sortByLabel(jobs []*pipeline.Job) {
	sort.Slice(jobs, func(a, b int) bool { return jobs[a].Label < jobs[b].Label })
}
