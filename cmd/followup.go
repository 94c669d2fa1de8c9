package main

import (
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/followup"
)

var followupCmd = &cobra.Command{
	Use:   "followup",
	Short: "Run scheduled follow-ups",
	Long:  "Commands for working due follow-ups, either by polling the store or as a Temporal worker.",
}

var followupOnce bool

var followupRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Poll the store for due follow-ups and publish them",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("followup"); err != nil {
			return err
		}
		if cfg.Followup.Backend != "store" {
			return eris.Errorf("followup run needs the store backend, got %q (use followup worker)", cfg.Followup.Backend)
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		pub := initPublisher()
		defer pub.Close() //nolint:errcheck

		poller := followup.NewPoller(st, followup.NewEventExecutor(pub),
			time.Duration(cfg.Followup.PollIntervalSecs)*time.Second, cfg.Followup.BatchSize)

		if followupOnce {
			n, err := poller.RunOnce(ctx)
			if err != nil {
				return err
			}
			zap.L().Info("follow-ups processed", zap.Int("count", n))
			return nil
		}
		return poller.Run(ctx)
	},
}

var followupWorkerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run the Temporal follow-up worker",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("followup"); err != nil {
			return err
		}

		c, err := followup.Dial(cfg.Temporal.HostPort, cfg.Temporal.Namespace)
		if err != nil {
			return err
		}
		defer c.Close()

		pub := initPublisher()
		defer pub.Close() //nolint:errcheck

		w := followup.NewWorker(c, cfg.Temporal.TaskQueue, followup.NewActivities(followup.NewEventExecutor(pub)))
		if err := w.Start(); err != nil {
			return eris.Wrap(err, "start temporal worker")
		}
		zap.L().Info("temporal worker started",
			zap.String("host_port", cfg.Temporal.HostPort),
			zap.String("task_queue", cfg.Temporal.TaskQueue),
		)

		<-ctx.Done()
		w.Stop()
		zap.L().Info("temporal worker stopped")
		return nil
	},
}

func init() {
	followupRunCmd.Flags().BoolVar(&followupOnce, "once", false, "process due follow-ups once and exit")
	followupCmd.AddCommand(followupRunCmd)
	followupCmd.AddCommand(followupWorkerCmd)
	rootCmd.AddCommand(followupCmd)
}
