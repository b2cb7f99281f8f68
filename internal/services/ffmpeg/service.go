package ffmpeg

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// Service wraps the media conversion toolchain: ffmpeg for per-file canonical
// conversion and ffmpeg-normalize for batch loudness normalization.
type Service struct {
	binary          string
	normalizeBinary string
	sampleRate      int
	commandRunner   func(ctx context.Context, name string, args ...string) error
}

// NewService creates a conversion service. Zero values fall back to the
// conventional tool names and 16 kHz.
func NewService(binary, normalizeBinary string, sampleRate int) *Service {
	if binary == "" {
		binary = "ffmpeg"
	}
	if normalizeBinary == "" {
		normalizeBinary = "ffmpeg-normalize"
	}
	if sampleRate <= 0 {
		sampleRate = 16000
	}
	return &Service{binary: binary, normalizeBinary: normalizeBinary, sampleRate: sampleRate}
}

// WithCommandRunner sets a custom command runner (for testing).
func (s *Service) WithCommandRunner(runner func(ctx context.Context, name string, args ...string) error) {
	s.commandRunner = runner
}

// Binary returns the ffmpeg executable name for health checks.
func (s *Service) Binary() string { return s.binary }

// ConvertToCanonical transcodes src into the canonical recognition format:
// mono, signed 16-bit PCM, at the configured sample rate.
func (s *Service) ConvertToCanonical(ctx context.Context, src, dst string) error {
	if src == "" || dst == "" {
		return fmt.Errorf("convert: source and destination paths required")
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("convert: ensure destination dir: %w", err)
	}
	args := []string{
		"-hide_banner", "-nostdin", "-loglevel", "error", "-y",
		"-i", src,
		"-vn",
		"-ac", "1",
		"-ar", strconv.Itoa(s.sampleRate),
		"-c:a", "pcm_s16le",
		dst,
	}
	return s.run(ctx, s.binary, args...)
}

// NormalizeBatch loudness-normalizes every input into its paired output in a
// single tool invocation, resampling to the canonical rate. An empty batch is
// a no-op, not an error.
func (s *Service) NormalizeBatch(ctx context.Context, inputs, outputs []string) error {
	if len(inputs) == 0 {
		return nil
	}
	if len(inputs) != len(outputs) {
		return fmt.Errorf("normalize batch: %d inputs but %d outputs", len(inputs), len(outputs))
	}
	for _, out := range outputs {
		if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
			return fmt.Errorf("normalize batch: ensure output dir: %w", err)
		}
	}
	args := make([]string, 0, len(inputs)*2+8)
	args = append(args, inputs...)
	args = append(args, "-o")
	args = append(args, outputs...)
	args = append(args,
		"-f",
		"-vn",
		"-ar", strconv.Itoa(s.sampleRate),
		"-ext", "wav",
	)
	return s.run(ctx, s.normalizeBinary, args...)
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
