package ffmpeg

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
)

func captureArgs(t *testing.T, invoke func(*Service) error) [][]string {
	t.Helper()
	service := NewService("ffmpeg", "ffmpeg-normalize", 16000)
	var calls [][]string
	service.WithCommandRunner(func(_ context.Context, name string, args ...string) error {
		calls = append(calls, append([]string{name}, args...))
		return nil
	})
	if err := invoke(service); err != nil {
		t.Fatalf("invoke: %v", err)
	}
	return calls
}

func TestConvertToCanonicalArgs(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "audio", "ep-1.wav")
	calls := captureArgs(t, func(s *Service) error {
		return s.ConvertToCanonical(context.Background(), "/raw/ep-1.mp3", dst)
	})
	if len(calls) != 1 {
		t.Fatalf("expected one invocation, got %d", len(calls))
	}

	line := strings.Join(calls[0], " ")
	for _, fragment := range []string{
		"ffmpeg",
		"-i /raw/ep-1.mp3",
		"-vn",
		"-ac 1",
		"-ar 16000",
		"-c:a pcm_s16le",
		dst,
	} {
		if !strings.Contains(line, fragment) {
			t.Fatalf("args %q missing %q", line, fragment)
		}
	}
}

func TestNormalizeBatchArgs(t *testing.T) {
	outDir := t.TempDir()
	outputs := []string{filepath.Join(outDir, "a.wav"), filepath.Join(outDir, "b.wav")}
	calls := captureArgs(t, func(s *Service) error {
		return s.NormalizeBatch(context.Background(), []string{"/raw/a.wav", "/raw/b.wav"}, outputs)
	})
	if len(calls) != 1 {
		t.Fatalf("expected a single batch invocation, got %d", len(calls))
	}

	args := calls[0]
	if args[0] != "ffmpeg-normalize" {
		t.Fatalf("wrong tool: %s", args[0])
	}
	line := strings.Join(args, " ")
	if !strings.Contains(line, "/raw/a.wav /raw/b.wav -o "+outputs[0]+" "+outputs[1]) {
		t.Fatalf("inputs and outputs not paired: %q", line)
	}
	for _, fragment := range []string{" -f", " -vn", "-ar 16000", "-ext wav"} {
		if !strings.Contains(line, fragment) {
			t.Fatalf("args %q missing %q", line, fragment)
		}
	}
}

func TestNormalizeBatchEmptyIsNoop(t *testing.T) {
	calls := captureArgs(t, func(s *Service) error {
		return s.NormalizeBatch(context.Background(), nil, nil)
	})
	if len(calls) != 0 {
		t.Fatal("empty batch must not invoke the tool")
	}
}

func TestNormalizeBatchRejectsLengthMismatch(t *testing.T) {
	service := NewService("", "", 0)
	err := service.NormalizeBatch(context.Background(), []string{"/a.wav"}, nil)
	if err == nil {
		t.Fatal("expected error for mismatched inputs and outputs")
	}
}

func TestConvertValidatesPaths(t *testing.T) {
	service := NewService("", "", 0)
	if err := service.ConvertToCanonical(context.Background(), "", "/out.wav"); err == nil {
		t.Fatal("expected error for missing source")
	}
}
