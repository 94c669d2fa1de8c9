package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/outreach-cli/internal/qualify"
)

// Output formats for qualification results.
const (
	formatTable = "table"
	formatJSON  = "json"
	formatCSV   = "csv"
	formatXLSX  = "xlsx"
)

// resultRow is one qualification flattened for CSV and XLSX export.
type resultRow struct {
	Email          string  `csv:"email"`
	Name           string  `csv:"name"`
	Tier           string  `csv:"tier"`
	TotalScore     int     `csv:"total_score"`
	Budget         int     `csv:"budget"`
	Authority      int     `csv:"authority"`
	Need           int     `csv:"need"`
	Timeline       int     `csv:"timeline"`
	Trust          int     `csv:"trust"`
	Priority       string  `csv:"priority"`
	AssignTo       string  `csv:"assign_to"`
	Package        string  `csv:"package"`
	EstimatedValue int64   `csv:"estimated_value"`
	Probability    float64 `csv:"probability"`
	NextAction     string  `csv:"next_action"`
}

var resultHeader = []string{
	"email", "name", "tier", "total_score", "budget", "authority", "need",
	"timeline", "trust", "priority", "assign_to", "package", "estimated_value",
	"probability", "next_action",
}

func toRow(r qualify.Result) resultRow {
	row := resultRow{
		Email:          r.Email,
		Name:           r.Name,
		Tier:           string(r.Tier),
		TotalScore:     r.TotalScore,
		Budget:         r.Scores.Budget,
		Authority:      r.Scores.Authority,
		Need:           r.Scores.Need,
		Timeline:       r.Scores.Timeline,
		Trust:          r.Scores.Trust,
		Priority:       string(r.Priority.Level),
		AssignTo:       r.Priority.AssignTo,
		Package:        r.RecommendedPackage.Name,
		EstimatedValue: r.EstimatedValue.Amount,
		Probability:    r.EstimatedValue.Probability,
	}
	if len(r.NextActions) > 0 {
		row.NextAction = r.NextActions[0].Action
	}
	return row
}

// writeResults writes results to out in format. XLSX needs a file path, so
// it is handled by writeResultsFile.
func writeResults(out io.Writer, format string, results []qualify.Result) error {
	switch format {
	case formatTable:
		formatResultsTable(out, results)
		return nil
	case formatJSON:
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	case formatCSV:
		rows := make([]resultRow, len(results))
		for i, r := range results {
			rows[i] = toRow(r)
		}
		data, err := csvutil.Marshal(rows)
		if err != nil {
			return eris.Wrap(err, "marshal csv")
		}
		_, err = out.Write(data)
		return err
	default:
		return eris.Errorf("unsupported output format: %s", format)
	}
}

// writeResultsFile writes results to path, or stdout when path is empty.
func writeResultsFile(path, format string, results []qualify.Result) error {
	if format == formatXLSX {
		if path == "" {
			return eris.New("xlsx output requires --out")
		}
		return writeXLSX(path, results)
	}

	if path == "" {
		return writeResults(os.Stdout, format, results)
	}
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "create %s", path)
	}
	if err := writeResults(f, format, results); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func writeXLSX(path string, results []qualify.Result) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Leads")
	if err != nil {
		return eris.Wrap(err, "xlsx: add sheet")
	}

	header := sheet.AddRow()
	for _, h := range resultHeader {
		header.AddCell().SetString(h)
	}

	for _, r := range results {
		row := toRow(r)
		x := sheet.AddRow()
		x.AddCell().SetString(row.Email)
		x.AddCell().SetString(row.Name)
		x.AddCell().SetString(row.Tier)
		x.AddCell().SetInt(row.TotalScore)
		x.AddCell().SetInt(row.Budget)
		x.AddCell().SetInt(row.Authority)
		x.AddCell().SetInt(row.Need)
		x.AddCell().SetInt(row.Timeline)
		x.AddCell().SetInt(row.Trust)
		x.AddCell().SetString(row.Priority)
		x.AddCell().SetString(row.AssignTo)
		x.AddCell().SetString(row.Package)
		x.AddCell().SetInt64(row.EstimatedValue)
		x.AddCell().SetFloat(row.Probability)
		x.AddCell().SetString(row.NextAction)
	}

	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "xlsx: save %s", path)
	}
	return nil
}

// formatResultsTable writes a tabular list of results to out.
func formatResultsTable(out io.Writer, results []qualify.Result) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "EMAIL\tTIER\tSCORE\tB/A/N/T/T\tPRIORITY\tVALUE\tNEXT")
	_, _ = fmt.Fprintln(w, "-----\t----\t-----\t---------\t--------\t-----\t----")

	for _, r := range results {
		row := toRow(r)
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d/%d\t%d/%d/%d/%d/%d\t%s\t$%d\t%s\n",
			truncate(row.Email, 32),
			row.Tier,
			row.TotalScore, r.MaxScore,
			row.Budget, row.Authority, row.Need, row.Timeline, row.Trust,
			row.Priority,
			row.EstimatedValue,
			truncate(row.NextAction, 40),
		)
	}
	_ = w.Flush()
}

// formatReport writes an aggregate qualification report to out.
func formatReport(out io.Writer, rep qualify.Report) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Qualified leads:\t%d\n", rep.TotalQualified)
	for _, t := range qualify.Tiers {
		_, _ = fmt.Fprintf(w, "  %s:\t%d\n", t, rep.TierBreakdown[t])
	}
	_, _ = fmt.Fprintf(w, "Average score:\t%d\n", rep.AverageScores.Total)
	_, _ = fmt.Fprintf(w, "  budget/authority/need/timeline/trust:\t%d/%d/%d/%d/%d\n",
		rep.AverageScores.Budget, rep.AverageScores.Authority, rep.AverageScores.Need,
		rep.AverageScores.Timeline, rep.AverageScores.Trust)
	_, _ = fmt.Fprintf(w, "Pipeline value:\t$%d\n", rep.Pipeline.Total)
	_, _ = fmt.Fprintf(w, "  weighted:\t$%d\n", rep.Pipeline.Weighted)
	_, _ = fmt.Fprintf(w, "  average:\t$%d\n", rep.Pipeline.Average)
	_, _ = fmt.Fprintf(w, "Pending actions:\t%d\n", rep.TotalPendingActions)
	_, _ = fmt.Fprintf(w, "Urgent actions:\t%d\n", len(rep.UrgentActions))
	_ = w.Flush()

	for _, a := range rep.UrgentActions {
		_, _ = fmt.Fprintf(out, "  ! %s: %s (%s)\n", a.Lead, a.Action, a.Timeline)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
