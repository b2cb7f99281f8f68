package recognize

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"scribe/internal/logging"
	"scribe/internal/services"
	"scribe/internal/services/whisper"
	"scribe/internal/textutil"
	"scribe/internal/workitem"
)

// newStubRecognizer wires an engine stub that writes output files the way the
// real engine does: next to -of in single mode, next to each -f in batch mode.
func newStubRecognizer(t *testing.T, runErr error) *Recognizer {
	t.Helper()

	modelDir := t.TempDir()
	engine := whisper.NewService(whisper.Config{
		Binary:   "whisper-cli",
		ModelDir: modelDir,
		Model:    "medium",
	})
	if err := os.WriteFile(engine.ModelPath(), []byte("model"), 0o644); err != nil {
		t.Fatalf("write model fixture: %v", err)
	}

	engine.WithCommandRunner(func(_ context.Context, name string, args ...string) error {
		if runErr != nil {
			return runErr
		}
		body := "hello\n" + textutil.HallucinationPhrase + "\n"
		var outputBase string
		var inputs []string
		for i := 0; i < len(args); i++ {
			switch args[i] {
			case "-of":
				outputBase = args[i+1]
				i++
			case "-f":
				inputs = append(inputs, args[i+1])
				i++
			}
		}
		if outputBase != "" {
			writeArtifacts(t, outputBase+".txt", outputBase+".vtt", body)
			return nil
		}
		for _, input := range inputs {
			txt, vtt := whisper.BatchOutputs(input)
			writeArtifacts(t, txt, vtt, body)
		}
		return nil
	})

	return NewRecognizer(engine, filepath.Join(t.TempDir(), "transcripts"), logging.NewNop())
}

func writeArtifacts(t *testing.T, txt, vtt, body string) {
	t.Helper()
	for _, path := range []string{txt, vtt} {
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatalf("write artifact %s: %v", path, err)
		}
	}
}

func writeAudio(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("pcm"), 0o644); err != nil {
		t.Fatalf("write audio fixture: %v", err)
	}
	return path
}

func TestExecuteProducesScrubbedArtifacts(t *testing.T) {
	recognizer := newStubRecognizer(t, nil)
	item := &workitem.Item{ID: "ep-1", AudioFile: writeAudio(t, t.TempDir(), "ep-1.wav")}

	if err := recognizer.Prepare(context.Background(), item); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if err := recognizer.Execute(context.Background(), item); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if filepath.Base(item.TranscriptFile) != "ep-1.txt" || filepath.Base(item.CaptionFile) != "ep-1.vtt" {
		t.Fatalf("unexpected artifact names: %q %q", item.TranscriptFile, item.CaptionFile)
	}
	for _, path := range []string{item.TranscriptFile, item.CaptionFile} {
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("read artifact: %v", err)
		}
		if strings.Contains(string(data), textutil.HallucinationPhrase) {
			t.Fatalf("hallucination phrase not scrubbed from %s", path)
		}
	}
}

func TestExecuteClassifiesEngineFailure(t *testing.T) {
	recognizer := newStubRecognizer(t, errors.New("engine crashed"))
	item := &workitem.Item{ID: "ep-1", AudioFile: writeAudio(t, t.TempDir(), "ep-1.wav")}

	err := recognizer.Execute(context.Background(), item)
	if !errors.Is(err, services.ErrRecognition) {
		t.Fatalf("expected ErrRecognition, got %v", err)
	}
	if services.FailureCode(err) != services.CodeRecognition {
		t.Fatalf("expected code 902, got %d", services.FailureCode(err))
	}
}

func TestPrepareRequiresAudioAndModel(t *testing.T) {
	recognizer := newStubRecognizer(t, nil)

	err := recognizer.Prepare(context.Background(), &workitem.Item{ID: "ep-1"})
	if !errors.Is(err, services.ErrRecognition) {
		t.Fatalf("expected ErrRecognition for missing audio, got %v", err)
	}
}

func TestHealthCheckRequiresEngineBinary(t *testing.T) {
	modelDir := t.TempDir()
	engine := whisper.NewService(whisper.Config{
		Binary:   "whisper-cli-nonexistent",
		ModelDir: modelDir,
		Model:    "medium",
	})
	if err := os.WriteFile(engine.ModelPath(), []byte("model"), 0o644); err != nil {
		t.Fatalf("write model fixture: %v", err)
	}
	recognizer := NewRecognizer(engine, t.TempDir(), logging.NewNop())

	health := recognizer.HealthCheck(context.Background())
	if health.Ready {
		t.Fatal("expected unhealthy stage when engine binary is missing")
	}
	if !strings.Contains(health.Detail, engine.Binary()) {
		t.Fatalf("detail %q does not name the binary", health.Detail)
	}
}

func TestHealthCheckPassesWithBinaryAndModel(t *testing.T) {
	modelDir := t.TempDir()
	engine := whisper.NewService(whisper.Config{
		Binary:   "sh",
		ModelDir: modelDir,
		Model:    "medium",
	})
	if err := os.WriteFile(engine.ModelPath(), []byte("model"), 0o644); err != nil {
		t.Fatalf("write model fixture: %v", err)
	}
	recognizer := NewRecognizer(engine, t.TempDir(), logging.NewNop())

	if health := recognizer.HealthCheck(context.Background()); !health.Ready {
		t.Fatalf("expected healthy stage, got detail %q", health.Detail)
	}
}

func TestRecognizeBatchCollectsEngineOutputs(t *testing.T) {
	recognizer := newStubRecognizer(t, nil)
	audioDir := t.TempDir()
	items := []*workitem.Item{
		{ID: "a", AudioFile: writeAudio(t, audioDir, "a.wav")},
		{ID: "b", AudioFile: writeAudio(t, audioDir, "b.wav")},
	}

	if err := recognizer.RecognizeBatch(context.Background(), items); err != nil {
		t.Fatalf("RecognizeBatch: %v", err)
	}

	for _, item := range items {
		if item.CaptionFile == "" {
			t.Fatalf("caption not set for %s", item.ID)
		}
		if filepath.Dir(item.CaptionFile) != recognizer.transcriptDir {
			t.Fatalf("caption for %s not collected into transcript dir: %s", item.ID, item.CaptionFile)
		}
		data, err := os.ReadFile(item.CaptionFile)
		if err != nil {
			t.Fatalf("read caption: %v", err)
		}
		if strings.Contains(string(data), textutil.HallucinationPhrase) {
			t.Fatalf("hallucination phrase not scrubbed for %s", item.ID)
		}
		// Engine-derived files must be moved, not copied.
		engineTxt, _ := whisper.BatchOutputs(item.AudioFile)
		if _, statErr := os.Stat(engineTxt); !os.IsNotExist(statErr) {
			t.Fatalf("engine output for %s left behind", item.ID)
		}
	}
}

func TestRecognizeBatchEmptyIsNoop(t *testing.T) {
	recognizer := newStubRecognizer(t, errors.New("must not run"))
	if err := recognizer.RecognizeBatch(context.Background(), nil); err != nil {
		t.Fatalf("RecognizeBatch: %v", err)
	}
}
