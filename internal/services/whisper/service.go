package whisper

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	langpkg "scribe/internal/language"
)

// Service invokes the external recognition engine. The engine is opaque: it
// takes file-path arguments and reports success via its exit status.
type Service struct {
	cfg           Config
	commandRunner func(ctx context.Context, name string, args ...string) error
}

// NewService creates a recognition service with the given configuration.
func NewService(cfg Config) *Service {
	return &Service{cfg: cfg}
}

// WithCommandRunner sets a custom command runner (for testing).
func (s *Service) WithCommandRunner(runner func(ctx context.Context, name string, args ...string) error) {
	s.commandRunner = runner
}

// Binary returns the engine executable, for health checks and error output.
func (s *Service) Binary() string {
	return s.cfg.Binary
}

// Model returns the configured model name for logging.
func (s *Service) Model() string {
	if s.cfg.Model != "" {
		return s.cfg.Model
	}
	return DefaultModel
}

// ModelPath returns the ggml model file the engine will load.
func (s *Service) ModelPath() string {
	return filepath.Join(s.cfg.ModelDir, "ggml-"+s.Model()+".bin")
}

// Transcribe runs the engine on a single canonical audio file, writing
// outputBase.txt and outputBase.vtt.
func (s *Service) Transcribe(ctx context.Context, audioPath, outputBase, language string) error {
	if audioPath == "" {
		return fmt.Errorf("transcribe: audio path required")
	}
	if outputBase == "" {
		return fmt.Errorf("transcribe: output base required")
	}
	if err := os.MkdirAll(filepath.Dir(outputBase), 0o755); err != nil {
		return fmt.Errorf("transcribe: ensure output dir: %w", err)
	}

	args := s.buildArgs(language)
	args = append(args, "-f", audioPath, "-of", outputBase)
	return s.run(ctx, s.cfg.Binary, args...)
}

// TranscribeBatch runs the engine once over every audio file in the batch.
// Output names are engine-derived: each input produces <path>.txt and
// <path>.vtt beside the audio file.
func (s *Service) TranscribeBatch(ctx context.Context, audioPaths []string, language string) error {
	if len(audioPaths) == 0 {
		return nil
	}
	args := s.buildArgs(language)
	for _, path := range audioPaths {
		args = append(args, "-f", path)
	}
	return s.run(ctx, s.cfg.Binary, args...)
}

// BatchOutputs returns the artifact paths the engine derives for a batch input.
func BatchOutputs(audioPath string) (txt, vtt string) {
	return audioPath + ".txt", audioPath + ".vtt"
}

func (s *Service) buildArgs(language string) []string {
	args := make([]string, 0, 16)
	args = append(args, "-m", s.ModelPath())
	if s.cfg.Threads > 0 {
		args = append(args, "-t", strconv.Itoa(s.cfg.Threads))
	}
	if lang := langpkg.ToISO2(language); lang != "" {
		args = append(args, "-l", lang)
	} else if lang := langpkg.ToISO2(s.cfg.Language); lang != "" {
		args = append(args, "-l", lang)
	}
	args = append(args, "-otxt", "-ovtt")
	if s.cfg.EmitSRT {
		args = append(args, "-osrt")
	}
	if s.cfg.EntropyThreshold > 0 {
		args = append(args, "-et", strconv.FormatFloat(s.cfg.EntropyThreshold, 'f', 1, 64))
	}
	return args
}

func (s *Service) run(ctx context.Context, name string, args ...string) error {
	if s.commandRunner != nil {
		return s.commandRunner(ctx, name, args...)
	}
	cmd := exec.CommandContext(ctx, name, args...)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(output)))
	}
	return nil
}
