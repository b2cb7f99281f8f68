package main

import (
	"log/slog"

	"scribe/internal/config"
	"scribe/internal/fetch"
	"scribe/internal/normalize"
	"scribe/internal/pipeline"
	"scribe/internal/publish"
	"scribe/internal/recognize"
	"scribe/internal/services/ffmpeg"
	"scribe/internal/services/whisper"
)

// stageSet bundles the concrete stage implementations so both run modes wire
// them the same way.
type stageSet struct {
	fetcher    *fetch.Fetcher
	normalizer *normalize.Normalizer
	recognizer *recognize.Recognizer
	publisher  *publish.Publisher
}

// buildStages wires the concrete stages. Bulk mode additionally requests SRT
// captions and archives intermediate media to the backup directory; pull mode
// deletes intermediates as soon as the item is published.
func buildStages(cfg *config.Config, reporter publish.Reporter, bulk bool, logger *slog.Logger) stageSet {
	converter := ffmpeg.NewService(cfg.FFmpeg.Binary, cfg.FFmpeg.NormalizeBinary, cfg.FFmpeg.SampleRate)
	engine := whisper.NewService(whisper.Config{
		Binary:           cfg.Whisper.Binary,
		ModelDir:         cfg.Whisper.ModelDir,
		Model:            cfg.Whisper.Model,
		Threads:          cfg.Whisper.Threads,
		Language:         cfg.Whisper.Language,
		EntropyThreshold: cfg.Whisper.EntropyThreshold,
		EmitSRT:          cfg.Whisper.EmitSRT || bulk,
	})

	backupRaw := ""
	backupAudio := ""
	if bulk && cfg.Paths.BackupDir != "" {
		backupRaw = cfg.BackupRawDir()
		backupAudio = cfg.BackupAudioDir()
	}

	return stageSet{
		fetcher:    fetch.NewFetcher(cfg.RawDir(), logger),
		normalizer: normalize.NewNormalizer(converter, cfg.AudioDir(), logger),
		recognizer: recognize.NewRecognizer(engine, cfg.TranscriptDir(), logger),
		publisher:  publish.NewPublisher(cfg.Paths.OutputDir, backupRaw, backupAudio, reporter, logger),
	}
}

func (s stageSet) pipelineStages() pipeline.Stages {
	return pipeline.Stages{
		Fetch:     s.fetcher,
		Normalize: s.normalizer,
		Recognize: s.recognizer,
		Publish:   s.publisher,
	}
}
