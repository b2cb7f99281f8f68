// Package recognize runs the external speech-recognition engine and collects
// its transcript artifacts.
package recognize

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"

	"scribe/internal/fileutil"
	"scribe/internal/logging"
	"scribe/internal/services"
	"scribe/internal/services/whisper"
	"scribe/internal/stage"
	"scribe/internal/textutil"
	"scribe/internal/workitem"
)

// Recognizer is the recognition stage. It produces a plain transcript and a
// timed caption file per item, both scrubbed of the engine's silence
// hallucination.
type Recognizer struct {
	engine        *whisper.Service
	transcriptDir string
	logger        *slog.Logger
}

// NewRecognizer creates a recognition stage writing into transcriptDir.
func NewRecognizer(engine *whisper.Service, transcriptDir string, logger *slog.Logger) *Recognizer {
	return &Recognizer{
		engine:        engine,
		transcriptDir: transcriptDir,
		logger:        logging.NewComponentLogger(logger, "recognize"),
	}
}

// Prepare validates that the item carries canonical audio and that the model
// file exists.
func (r *Recognizer) Prepare(_ context.Context, item *workitem.Item) error {
	if item.AudioFile == "" {
		return services.Wrap(services.ErrRecognition, "recognize", "prepare",
			fmt.Sprintf("no audio file for %s", item.ID), nil)
	}
	if _, err := os.Stat(item.AudioFile); err != nil {
		return services.Wrap(services.ErrRecognition, "recognize", "prepare", item.AudioFile, err)
	}
	if _, err := os.Stat(r.engine.ModelPath()); err != nil {
		return services.Wrap(services.ErrRecognition, "recognize", "prepare",
			fmt.Sprintf("model %s", r.engine.ModelPath()), err)
	}
	return nil
}

// Execute transcribes the item's audio. Artifacts land in the transcript
// directory named after the item id.
func (r *Recognizer) Execute(ctx context.Context, item *workitem.Item) error {
	outputBase := filepath.Join(r.transcriptDir, item.ID)
	if err := r.engine.Transcribe(ctx, item.AudioFile, outputBase, item.Language); err != nil {
		return services.Wrap(services.ErrRecognition, "recognize", "transcribe",
			fmt.Sprintf("transcribe %s", item.Label()), err)
	}

	txt := outputBase + ".txt"
	vtt := outputBase + ".vtt"
	if err := scrubArtifacts(txt, vtt); err != nil {
		return services.Wrap(services.ErrRecognition, "recognize", "scrub", item.ID, err)
	}
	if srt := outputBase + ".srt"; fileExists(srt) {
		if err := scrubArtifacts(srt); err != nil {
			return services.Wrap(services.ErrRecognition, "recognize", "scrub", item.ID, err)
		}
	}

	item.TranscriptFile = txt
	item.CaptionFile = vtt
	r.logger.Info("audio transcribed",
		logging.String(logging.FieldItemID, item.ID),
		logging.String("transcript", txt),
	)
	return nil
}

// HealthCheck verifies the engine binary and model file are present.
func (r *Recognizer) HealthCheck(context.Context) stage.Health {
	if _, err := exec.LookPath(r.engine.Binary()); err != nil {
		return stage.Unhealthy("recognize", fmt.Sprintf("%s not found", r.engine.Binary()))
	}
	if _, err := os.Stat(r.engine.ModelPath()); err != nil {
		return stage.Unhealthy("recognize", fmt.Sprintf("model %s missing", r.engine.ModelPath()))
	}
	return stage.Healthy("recognize")
}

// RecognizeBatch transcribes every item in a single engine invocation. The
// engine derives output names from the audio paths; the artifacts are moved
// into the transcript directory and scrubbed afterwards.
func (r *Recognizer) RecognizeBatch(ctx context.Context, items []*workitem.Item) error {
	if len(items) == 0 {
		return nil
	}
	audioPaths := make([]string, 0, len(items))
	for _, item := range items {
		if item.AudioFile == "" {
			return services.Wrap(services.ErrRecognition, "recognize", "batch",
				fmt.Sprintf("no audio file for %s", item.ID), nil)
		}
		audioPaths = append(audioPaths, item.AudioFile)
	}

	if err := r.engine.TranscribeBatch(ctx, audioPaths, ""); err != nil {
		return services.Wrap(services.ErrRecognition, "recognize", "batch",
			fmt.Sprintf("transcribe %d items", len(items)), err)
	}

	for _, item := range items {
		engineTxt, engineVtt := whisper.BatchOutputs(item.AudioFile)
		txt := filepath.Join(r.transcriptDir, item.ID+".txt")
		vtt := filepath.Join(r.transcriptDir, item.ID+".vtt")
		if err := fileutil.MoveFile(engineTxt, txt); err != nil {
			return services.Wrap(services.ErrRecognition, "recognize", "collect", item.ID, err)
		}
		if err := fileutil.MoveFile(engineVtt, vtt); err != nil {
			return services.Wrap(services.ErrRecognition, "recognize", "collect", item.ID, err)
		}
		if err := scrubArtifacts(txt, vtt); err != nil {
			return services.Wrap(services.ErrRecognition, "recognize", "scrub", item.ID, err)
		}
		// SRT output is optional; collect it when the engine emitted one.
		if engineSrt := item.AudioFile + ".srt"; fileExists(engineSrt) {
			srt := filepath.Join(r.transcriptDir, item.ID+".srt")
			if err := fileutil.MoveFile(engineSrt, srt); err != nil {
				return services.Wrap(services.ErrRecognition, "recognize", "collect", item.ID, err)
			}
			if err := scrubArtifacts(srt); err != nil {
				return services.Wrap(services.ErrRecognition, "recognize", "scrub", item.ID, err)
			}
		}
		item.TranscriptFile = txt
		item.CaptionFile = vtt
	}
	r.logger.Info("batch transcribed", logging.Int("items", len(items)))
	return nil
}

func scrubArtifacts(paths ...string) error {
	for _, path := range paths {
		if err := textutil.StripHallucinationFile(path); err != nil {
			return err
		}
	}
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
