// Package normalize converts raw media into the canonical recognition format.
package normalize

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"

	"scribe/internal/logging"
	"scribe/internal/services"
	"scribe/internal/services/ffmpeg"
	"scribe/internal/stage"
	"scribe/internal/workitem"
)

// Normalizer is the conversion stage: raw media in, mono 16 kHz PCM out.
type Normalizer struct {
	converter *ffmpeg.Service
	audioDir  string
	logger    *slog.Logger
}

// NewNormalizer creates a conversion stage writing into audioDir.
func NewNormalizer(converter *ffmpeg.Service, audioDir string, logger *slog.Logger) *Normalizer {
	return &Normalizer{
		converter: converter,
		audioDir:  audioDir,
		logger:    logging.NewComponentLogger(logger, "normalize"),
	}
}

// Prepare validates that the item carries a fetched raw file.
func (n *Normalizer) Prepare(_ context.Context, item *workitem.Item) error {
	if item.RawFile == "" {
		return services.Wrap(services.ErrConversion, "normalize", "prepare",
			fmt.Sprintf("no raw file for %s", item.ID), nil)
	}
	if _, err := os.Stat(item.RawFile); err != nil {
		return services.Wrap(services.ErrConversion, "normalize", "prepare", item.RawFile, err)
	}
	return nil
}

// Execute converts the raw file to canonical audio. The raw file is removed
// whether or not conversion succeeds: a failed item is reported and never
// retried, so its raw media has no further use.
func (n *Normalizer) Execute(ctx context.Context, item *workitem.Item) error {
	dest := filepath.Join(n.audioDir, item.ID+".wav")
	err := n.converter.ConvertToCanonical(ctx, item.RawFile, dest)
	if removeErr := os.Remove(item.RawFile); removeErr != nil {
		n.logger.Warn("raw file cleanup failed",
			logging.String(logging.FieldItemID, item.ID),
			logging.Error(removeErr),
		)
	}
	if err != nil {
		_ = os.Remove(dest)
		return services.Wrap(services.ErrConversion, "normalize", "convert",
			fmt.Sprintf("convert %s", item.Label()), err)
	}

	item.RawFile = ""
	item.AudioFile = dest
	n.logger.Info("audio normalized",
		logging.String(logging.FieldItemID, item.ID),
		logging.String("path", dest),
	)
	return nil
}

// HealthCheck verifies that the conversion binary is on PATH.
func (n *Normalizer) HealthCheck(context.Context) stage.Health {
	if _, err := exec.LookPath(n.converter.Binary()); err != nil {
		return stage.Unhealthy("normalize", fmt.Sprintf("%s not found", n.converter.Binary()))
	}
	return stage.Healthy("normalize")
}

// BatchNormalize loudness-normalizes every item's raw audio into audioDir in a
// single tool invocation. Raw files are kept for the publish stage to archive.
// An empty batch is a no-op.
func (n *Normalizer) BatchNormalize(ctx context.Context, items []*workitem.Item) error {
	if len(items) == 0 {
		return nil
	}
	inputs := make([]string, 0, len(items))
	outputs := make([]string, 0, len(items))
	for _, item := range items {
		if item.RawFile == "" {
			return services.Wrap(services.ErrConversion, "normalize", "batch",
				fmt.Sprintf("no raw file for %s", item.ID), nil)
		}
		inputs = append(inputs, item.RawFile)
		outputs = append(outputs, filepath.Join(n.audioDir, item.ID+".wav"))
	}
	if err := n.converter.NormalizeBatch(ctx, inputs, outputs); err != nil {
		return services.Wrap(services.ErrConversion, "normalize", "batch",
			fmt.Sprintf("normalize %d items", len(items)), err)
	}
	for i, item := range items {
		item.AudioFile = outputs[i]
	}
	n.logger.Info("batch normalized", logging.Int("items", len(items)))
	return nil
}
