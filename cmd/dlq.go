package main

import (
	"encoding/json"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/outreach-cli/internal/resilience"
)

var dlqCmd = &cobra.Command{
	Use:   "dlq",
	Short: "Inspect and retry dead-lettered side effects",
}

var dlqStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the number of dead-lettered entries",
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

		n, err := st.CountDLQ(ctx)
		if err != nil {
			return eris.Wrap(err, "dlq status")
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Dead letters: %d\n", n)
		return nil
	},
}

var (
	dlqStage string
	dlqLimit int
)

var dlqRetryCmd = &cobra.Command{
	Use:   "retry",
	Short: "Retry due dead-lettered stages",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initApp(ctx, "process")
		if err != nil {
			return err
		}
		defer env.Close()

		stats, err := env.Pipeline.RetryDeadLetters(ctx, resilience.DLQFilter{Stage: dlqStage, Limit: dlqLimit})
		if err != nil {
			return eris.Wrap(err, "dlq retry")
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(stats)
	},
}

func init() {
	dlqRetryCmd.Flags().StringVar(&dlqStage, "stage", "", "only retry this stage (respond, schedule, publish, crm)")
	dlqRetryCmd.Flags().IntVar(&dlqLimit, "limit", 100, "max entries to retry")

	dlqCmd.AddCommand(dlqStatusCmd)
	dlqCmd.AddCommand(dlqRetryCmd)
	rootCmd.AddCommand(dlqCmd)
}
