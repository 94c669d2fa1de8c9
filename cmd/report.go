package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/outreach-cli/internal/qualify"
	"github.com/sells-group/outreach-cli/internal/store"
)

var (
	reportTier   string
	reportFormat string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Summarize stored qualifications and autoresponses",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("process"); err != nil {
			return err
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		leads, err := st.ListLeads(ctx, store.LeadFilter{Tier: qualify.Tier(reportTier), Limit: 100000})
		if err != nil {
			return eris.Wrap(err, "report: list leads")
		}
		results := make([]qualify.Result, len(leads))
		for i, l := range leads {
			results[i] = l.Qualification
		}

		ar, err := st.AutoresponseStats(ctx, time.Now())
		if err != nil {
			return eris.Wrap(err, "report: autoresponse stats")
		}

		rep := outreachReport{Qualification: qualify.Summarize(results), Autoresponses: ar}
		out := cmd.OutOrStdout()
		if reportFormat == formatJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(rep)
		}
		formatReport(out, rep.Qualification)
		formatAutoresponseStats(out, ar)
		return nil
	},
}

type outreachReport struct {
	Qualification qualify.Report           `json:"qualification"`
	Autoresponses *store.AutoresponseStats `json:"autoresponses"`
}

func init() {
	reportCmd.Flags().StringVar(&reportTier, "tier", "", "only include leads in this tier")
	reportCmd.Flags().StringVar(&reportFormat, "format", formatTable, "output format: table, json")
	rootCmd.AddCommand(reportCmd)
}

// formatAutoresponseStats writes autoresponse totals to out, response types
// sorted by name.
func formatAutoresponseStats(out io.Writer, s *store.AutoresponseStats) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Autoresponses:\t%d\n", s.Total)
	_, _ = fmt.Fprintf(w, "  suppressed:\t%d\n", s.Suppressed)
	_, _ = fmt.Fprintf(w, "  last 24h:\t%d\n", s.Last24Hours)
	_, _ = fmt.Fprintf(w, "  last 7d:\t%d\n", s.Last7Days)

	types := make([]string, 0, len(s.ByType))
	for t := range s.ByType {
		types = append(types, t)
	}
	sort.Strings(types)
	for _, t := range types {
		_, _ = fmt.Fprintf(w, "  %s:\t%d\n", t, s.ByType[t])
	}
	_ = w.Flush()
}
