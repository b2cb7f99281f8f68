package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"scribe/internal/logging"
	"scribe/internal/pipeline"
	"scribe/internal/pullqueue"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Process the remote pull queue until it is drained",
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

			queue := pullqueue.NewClient(cfg.Queue, logger)
			stages := buildStages(cfg, queue, false, logger)
			controller := pipeline.NewController(cfg, stages.pipelineStages(), logger)

			return controller.RunPullQueue(signalCtx, queue)
		},
	}
}
