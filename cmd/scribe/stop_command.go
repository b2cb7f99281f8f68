package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

func newStopCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Ask a running pipeline to finish after the current item",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			path := cfg.Paths.StopFile
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return fmt.Errorf("create stop marker directory: %w", err)
			}
			if err := os.WriteFile(path, nil, 0o644); err != nil {
				return fmt.Errorf("write stop marker: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Stop requested; marker written to %s\n", path)
			return nil
		},
	}
}
