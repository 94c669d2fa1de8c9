package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jszwec/csvutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/outreach-cli/internal/qualify"
)

func sampleResults() []qualify.Result {
	q := qualify.MustDefault()
	return []qualify.Result{
		q.Qualify(qualify.Profile{
			Email:       "cto@acme.com",
			Name:        "Dana",
			Title:       "CTO",
			Comment:     "Our enterprise budget is approved and we need this ASAP. How does onboarding work? What does it include?",
			TriggerWord: "DATA",
		}),
		q.Qualify(qualify.Profile{Email: "sam@small.io", Comment: "cool"}),
	}
}

func TestWriteResults_CSV(t *testing.T) {
	results := sampleResults()
	var buf bytes.Buffer
	require.NoError(t, writeResults(&buf, formatCSV, results))

	header := strings.SplitN(buf.String(), "\n", 2)[0]
	assert.Equal(t, strings.Join(resultHeader, ","), header)

	var rows []resultRow
	require.NoError(t, csvutil.Unmarshal(buf.Bytes(), &rows))
	require.Len(t, rows, 2)
	assert.Equal(t, "cto@acme.com", rows[0].Email)
	assert.Equal(t, results[0].TotalScore, rows[0].TotalScore)
	assert.Equal(t, string(results[1].Tier), rows[1].Tier)
}

func TestWriteResults_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeResults(&buf, formatJSON, sampleResults()))

	var out []qualify.Result
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Len(t, out, 2)
}

func TestWriteResults_Table(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeResults(&buf, formatTable, sampleResults()))

	out := buf.String()
	assert.Contains(t, out, "EMAIL")
	assert.Contains(t, out, "cto@acme.com")
	assert.Contains(t, out, "sam@small.io")
}

func TestWriteResults_Unsupported(t *testing.T) {
	var buf bytes.Buffer
	err := writeResults(&buf, "yaml", sampleResults())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported output format")
}

func TestWriteResultsFile_XLSX(t *testing.T) {
	results := sampleResults()
	path := filepath.Join(t.TempDir(), "leads.xlsx")
	require.NoError(t, writeResultsFile(path, formatXLSX, results))

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	require.Len(t, f.Sheets, 1)

	sheet := f.Sheets[0]
	assert.Equal(t, "Leads", sheet.Name)
	require.Len(t, sheet.Rows, 3)
	assert.Equal(t, "email", sheet.Rows[0].Cells[0].String())
	assert.Equal(t, "cto@acme.com", sheet.Rows[1].Cells[0].String())
	assert.Equal(t, string(results[0].Tier), sheet.Rows[1].Cells[2].String())
}

func TestWriteResultsFile_XLSXNeedsPath(t *testing.T) {
	err := writeResultsFile("", formatXLSX, sampleResults())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--out")
}

func TestWriteResultsFile_CSVFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "leads.csv")
	require.NoError(t, writeResultsFile(path, formatCSV, sampleResults()))

	rows, err := readCSVRows(path)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestFormatReport(t *testing.T) {
	var buf bytes.Buffer
	formatReport(&buf, qualify.Summarize(sampleResults()))

	out := buf.String()
	assert.Contains(t, out, "Qualified leads:")
	assert.Contains(t, out, "enterprise")
	assert.Contains(t, out, "Pipeline value:")
}

func TestFormatReport_Empty(t *testing.T) {
	var buf bytes.Buffer
	formatReport(&buf, qualify.Summarize(nil))
	assert.Regexp(t, `Qualified leads:\s+0\n`, buf.String())
}

func TestToRow_NoActions(t *testing.T) {
	row := toRow(qualify.Result{Email: "a@b.com"})
	assert.Empty(t, row.NextAction)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
}
