package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"scribe/internal/feed"
	"scribe/internal/ledger"
	"scribe/internal/logging"
	"scribe/internal/pipeline"
	"scribe/internal/services/ytdlp"
)

func newHarvestCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "harvest",
		Short: "Fetch and transcribe new episodes from the content feed",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			store, err := ledger.Open(cfg.LedgerPath())
			if err != nil {
				return fmt.Errorf("open ledger: %w", err)
			}
			defer store.Close()

			archive, err := feed.OpenArchive(cfg.ArchivePath())
			if err != nil {
				return fmt.Errorf("open archive: %w", err)
			}
			source := feed.NewSource(cfg.Feed.ChannelURL, ytdlp.NewService(cfg.Feed.Downloader), archive, logger)

			stages := buildStages(cfg, nil, true, logger)
			harvester := pipeline.NewHarvester(cfg, source, store,
				stages.normalizer, stages.recognizer, stages.publisher, logger)

			return harvester.Run(signalCtx)
		},
	}
}
