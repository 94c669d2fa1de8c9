package main

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync/atomic"
	"syscall"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/pipeline"
)

var (
	importPath  string
	importLimit int
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Process a file of replies",
	Long:  "Reads replies from a CSV or JSON file and runs each through the pipeline. Replies already processed are skipped.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		msgs, err := readMessages(importPath)
		if err != nil {
			return err
		}
		if importLimit > 0 && len(msgs) > importLimit {
			msgs = msgs[:importLimit]
		}

		env, err := initApp(ctx, "process")
		if err != nil {
			return err
		}
		defer env.Close()

		stats, err := processAll(ctx, env.Pipeline, msgs, cfg.Batch.MaxConcurrentLeads)
		if err != nil {
			return err
		}

		zap.L().Info("import complete",
			zap.String("file", importPath),
			zap.Int64("processed", stats.Processed),
			zap.Int64("duplicates", stats.Duplicates),
			zap.Int64("invalid", stats.Invalid),
			zap.Int64("failed", stats.Failed),
		)
		return nil
	},
}

func init() {
	importCmd.Flags().StringVar(&importPath, "file", "", "path to replies file, .csv or .json (required)")
	importCmd.Flags().IntVar(&importLimit, "limit", 0, "max number of replies to process (0 = all)")
	_ = importCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(importCmd)
}

func readMessages(path string) ([]model.IncomingMessage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "read replies %s", path)
	}

	var msgs []model.IncomingMessage
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		if err := csvutil.Unmarshal(data, &msgs); err != nil {
			return nil, eris.Wrapf(err, "parse replies csv %s", path)
		}
	case ".json":
		if err := json.Unmarshal(data, &msgs); err != nil {
			return nil, eris.Wrapf(err, "parse replies json %s", path)
		}
	default:
		return nil, eris.Errorf("unsupported replies file type: %s", path)
	}
	return msgs, nil
}

// importStats counts pipeline outcomes for a batch of replies.
type importStats struct {
	Processed  int64
	Duplicates int64
	Invalid    int64
	Failed     int64
}

// processAll runs msgs through p concurrently. Individual failures are
// logged and counted; they do not abort the batch.
func processAll(ctx context.Context, p *pipeline.Pipeline, msgs []model.IncomingMessage, concurrency int) (importStats, error) {
	if len(msgs) == 0 {
		zap.L().Info("no replies to import")
		return importStats{}, nil
	}
	if concurrency < 1 {
		concurrency = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	var processed, duplicates, invalid, failed atomic.Int64
	for _, msg := range msgs {
		g.Go(func() error {
			log := zap.L().With(zap.String("email", msg.SenderEmail))

			out, err := p.Process(gctx, msg)
			switch {
			case errors.Is(err, pipeline.ErrInvalidMessage):
				invalid.Add(1)
				log.Warn("invalid reply skipped", zap.Error(err))
			case err != nil:
				failed.Add(1)
				log.Error("reply failed", zap.Error(err))
			case out.Duplicate:
				duplicates.Add(1)
			default:
				processed.Add(1)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return importStats{}, eris.Wrap(err, "import replies")
	}
	return importStats{
		Processed:  processed.Load(),
		Duplicates: duplicates.Load(),
		Invalid:    invalid.Load(),
		Failed:     failed.Load(),
	}, nil
}
