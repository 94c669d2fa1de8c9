package main

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/outreach-cli/internal/classify"
	"github.com/sells-group/outreach-cli/internal/qualify"
)

var (
	qualifyInput        string
	qualifyFormat       string
	qualifyOut          string
	qualifyTier         string
	qualifyHighPriority bool
	qualifyReport       bool
)

var qualifyCmd = &cobra.Command{
	Use:   "qualify",
	Short: "Score a file of leads on BANT+",
	Long:  "Reads lead profiles from a CSV or JSON file, classifies each comment, scores and tiers every lead concurrently, and writes the results as a table, JSON, CSV or XLSX.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("local"); err != nil {
			return err
		}
		cls, q, err := loadEngine()
		if err != nil {
			return err
		}

		profiles, err := readProfiles(qualifyInput)
		if err != nil {
			return err
		}

		results, err := qualifyAll(cmd.Context(), cls, q, profiles, cfg.Batch.MaxConcurrentLeads)
		if err != nil {
			return err
		}

		if qualifyTier != "" {
			results = qualify.ByTier(results, qualify.Tier(qualifyTier))
		}
		if qualifyHighPriority {
			results = qualify.HighPriority(results)
		}

		if qualifyReport {
			formatReport(cmd.OutOrStdout(), qualify.Summarize(results))
			return nil
		}
		return writeResultsFile(qualifyOut, qualifyFormat, results)
	},
}

func init() {
	qualifyCmd.Flags().StringVar(&qualifyInput, "input", "", "path to leads file, .csv or .json (required)")
	qualifyCmd.Flags().StringVar(&qualifyFormat, "format", formatTable, "output format: table, json, csv, xlsx")
	qualifyCmd.Flags().StringVar(&qualifyOut, "out", "", "output file (default stdout; required for xlsx)")
	qualifyCmd.Flags().StringVar(&qualifyTier, "tier", "", "only output leads in this tier")
	qualifyCmd.Flags().BoolVar(&qualifyHighPriority, "high-priority", false, "only output high priority leads")
	qualifyCmd.Flags().BoolVar(&qualifyReport, "report", false, "print an aggregate report instead of rows")
	_ = qualifyCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(qualifyCmd)
}

// readProfiles loads lead profiles from a CSV (header row, csv tags of
// qualify.Profile) or JSON array file.
func readProfiles(path string) ([]qualify.Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "read leads %s", path)
	}

	var profiles []qualify.Profile
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		if err := csvutil.Unmarshal(data, &profiles); err != nil {
			return nil, eris.Wrapf(err, "parse leads csv %s", path)
		}
	case ".json":
		if err := json.Unmarshal(data, &profiles); err != nil {
			return nil, eris.Wrapf(err, "parse leads json %s", path)
		}
	default:
		return nil, eris.Errorf("unsupported leads file type: %s", path)
	}
	return profiles, nil
}

// qualifyAll classifies and qualifies profiles with at most concurrency in
// flight. Results keep input order.
func qualifyAll(ctx context.Context, cls *classify.Classifier, q *qualify.Qualifier, profiles []qualify.Profile, concurrency int) ([]qualify.Result, error) {
	if concurrency < 1 {
		concurrency = 1
	}
	results := make([]qualify.Result, len(profiles))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	var done atomic.Int64
	for i, p := range profiles {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if p.Classification == nil {
				res := cls.Classify(p.Comment)
				p.Classification = &res
			}
			results[i] = q.Qualify(p)
			done.Add(1)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "qualify leads")
	}

	zap.L().Info("qualification complete",
		zap.Int64("leads", done.Load()),
		zap.Int("concurrency", concurrency),
	)
	return results, nil
}
