// Package publish moves finished transcripts into the output directory and
// cleans up or archives the intermediate media.
package publish

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"scribe/internal/fileutil"
	"scribe/internal/logging"
	"scribe/internal/services"
	"scribe/internal/stage"
	"scribe/internal/workitem"
)

// Reporter submits the finished caption artifact back to a work-item source.
// A nil Reporter publishes locally only.
type Reporter interface {
	Submit(ctx context.Context, item *workitem.Item, captionPath string) error
}

// Publisher is the final stage: transcript artifacts move to the output
// directory, intermediate audio is deleted or archived, and the result is
// optionally submitted upstream.
type Publisher struct {
	outputDir      string
	backupRawDir   string
	backupAudioDir string
	reporter       Reporter
	logger         *slog.Logger
}

// NewPublisher creates a publish stage. Backup directories may be empty; then
// intermediate files are deleted instead of archived.
func NewPublisher(outputDir, backupRawDir, backupAudioDir string, reporter Reporter, logger *slog.Logger) *Publisher {
	return &Publisher{
		outputDir:      outputDir,
		backupRawDir:   backupRawDir,
		backupAudioDir: backupAudioDir,
		reporter:       reporter,
		logger:         logging.NewComponentLogger(logger, "publish"),
	}
}

// Prepare validates that the item carries recognition artifacts.
func (p *Publisher) Prepare(_ context.Context, item *workitem.Item) error {
	if item.TranscriptFile == "" || item.CaptionFile == "" {
		return services.Wrap(services.ErrValidation, "publish", "prepare",
			fmt.Sprintf("missing artifacts for %s", item.ID), nil)
	}
	return os.MkdirAll(p.outputDir, 0o755)
}

// Execute publishes the item. A caption file already present in the output
// directory means an earlier run published this item; the move is skipped and
// only cleanup runs.
func (p *Publisher) Execute(ctx context.Context, item *workitem.Item) error {
	destVtt := filepath.Join(p.outputDir, item.ID+".vtt")
	destTxt := filepath.Join(p.outputDir, item.ID+".txt")

	if _, err := os.Stat(destVtt); err == nil {
		p.logger.Info("already published",
			logging.String(logging.FieldItemID, item.ID),
			logging.String("path", destVtt),
		)
	} else {
		if err := fileutil.MoveFile(item.TranscriptFile, destTxt); err != nil {
			return services.Wrap(services.ErrValidation, "publish", "move", item.TranscriptFile, err)
		}
		if err := fileutil.MoveFile(item.CaptionFile, destVtt); err != nil {
			return services.Wrap(services.ErrValidation, "publish", "move", item.CaptionFile, err)
		}
		// SRT is produced only when requested; carry it along if present.
		srcSrt := strings.TrimSuffix(item.CaptionFile, ".vtt") + ".srt"
		if _, err := os.Stat(srcSrt); err == nil {
			if err := fileutil.MoveFile(srcSrt, filepath.Join(p.outputDir, item.ID+".srt")); err != nil {
				return services.Wrap(services.ErrValidation, "publish", "move", srcSrt, err)
			}
		}
	}
	item.TranscriptFile = destTxt
	item.CaptionFile = destVtt

	if err := p.cleanup(item); err != nil {
		return err
	}

	if p.reporter != nil {
		if err := p.reporter.Submit(ctx, item, destVtt); err != nil {
			return services.Wrap(services.ErrExternalTool, "publish", "submit", item.ID, err)
		}
	}

	p.logger.Info("item published",
		logging.String(logging.FieldItemID, item.ID),
		logging.String("caption", destVtt),
	)
	return nil
}

// HealthCheck verifies the output directory is writable.
func (p *Publisher) HealthCheck(context.Context) stage.Health {
	if err := os.MkdirAll(p.outputDir, 0o755); err != nil {
		return stage.Unhealthy("publish", err.Error())
	}
	return stage.Healthy("publish")
}

// cleanup archives or removes the intermediate media. Audio moves to the
// backup directory when one is configured, otherwise it is deleted. Raw media
// still present (bulk mode keeps it until publish) is handled the same way.
func (p *Publisher) cleanup(item *workitem.Item) error {
	if item.AudioFile != "" {
		if err := p.retire(item.AudioFile, p.backupAudioDir); err != nil {
			return services.Wrap(services.ErrValidation, "publish", "cleanup", item.AudioFile, err)
		}
		item.AudioFile = ""
	}
	if item.RawFile != "" {
		if err := p.retire(item.RawFile, p.backupRawDir); err != nil {
			return services.Wrap(services.ErrValidation, "publish", "cleanup", item.RawFile, err)
		}
		item.RawFile = ""
	}
	return nil
}

func (p *Publisher) retire(path, backupDir string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if backupDir == "" {
		return os.Remove(path)
	}
	return fileutil.MoveFile(path, filepath.Join(backupDir, filepath.Base(path)))
}
