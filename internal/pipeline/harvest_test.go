package pipeline_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"scribe/internal/config"
	"scribe/internal/feed"
	"scribe/internal/ledger"
	"scribe/internal/logging"
	"scribe/internal/normalize"
	"scribe/internal/pipeline"
	"scribe/internal/publish"
	"scribe/internal/recognize"
	"scribe/internal/services/ffmpeg"
	"scribe/internal/services/whisper"
	"scribe/internal/services/ytdlp"
	"scribe/internal/testsupport"
)

type harvestFixture struct {
	cfg       *config.Config
	store     *ledger.Store
	harvester *pipeline.Harvester
	ffmpegRun *int
	engineRun *int
}

// newHarvestFixture wires a full harvester over stubbed external tools. The
// downloader stub creates the raw file, the converter stub creates canonical
// audio, and the engine stub writes transcript artifacts beside each input.
func newHarvestFixture(t *testing.T, listing string) *harvestFixture {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	logger := logging.NewNop()

	store, err := ledger.Open(cfg.LedgerPath())
	if err != nil {
		t.Fatalf("open ledger: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	downloader := ytdlp.NewService("yt-dlp")
	downloader.WithCommandRunner(func(_ context.Context, name string, args ...string) ([]byte, error) {
		if len(args) > 0 && args[0] == "--flat-playlist" {
			return []byte(listing), nil
		}
		// Download invocation: create the file the tool would produce.
		for i, arg := range args {
			if arg == "-o" && i+1 < len(args) {
				url := args[len(args)-1]
				id := filepath.Base(url)
				path := filepath.Join(filepath.Dir(args[i+1]), id+".wav")
				if err := os.WriteFile(path, []byte("raw"), 0o644); err != nil {
					return nil, err
				}
			}
		}
		return nil, nil
	})

	archive, err := feed.OpenArchive(cfg.ArchivePath())
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	source := feed.NewSource("https://feed.example.com/channel", downloader, archive, logger)

	ffmpegRuns := 0
	converter := ffmpeg.NewService("ffmpeg", "ffmpeg-normalize", 16000)
	converter.WithCommandRunner(func(_ context.Context, name string, args ...string) error {
		ffmpegRuns++
		// Outputs follow the -o flag.
		emit := false
		for _, arg := range args {
			if arg == "-o" {
				emit = true
				continue
			}
			if emit && filepath.Ext(arg) == ".wav" {
				if err := os.WriteFile(arg, []byte("pcm"), 0o644); err != nil {
					return err
				}
			}
		}
		return nil
	})

	engineRuns := 0
	engine := whisper.NewService(whisper.Config{Binary: "whisper-cli", ModelDir: cfg.Whisper.ModelDir, Model: "medium"})
	engine.WithCommandRunner(func(_ context.Context, name string, args ...string) error {
		engineRuns++
		for i := 0; i < len(args); i++ {
			if args[i] == "-f" && i+1 < len(args) {
				txt, vtt := whisper.BatchOutputs(args[i+1])
				for _, path := range []string{txt, vtt} {
					if err := os.WriteFile(path, []byte("text\n"), 0o644); err != nil {
						return err
					}
				}
				i++
			}
		}
		return nil
	})

	normalizer := normalize.NewNormalizer(converter, cfg.AudioDir(), logger)
	recognizer := recognize.NewRecognizer(engine, cfg.TranscriptDir(), logger)
	publisher := publish.NewPublisher(cfg.Paths.OutputDir, cfg.BackupRawDir(), cfg.BackupAudioDir(), nil, logger)

	return &harvestFixture{
		cfg:       cfg,
		store:     store,
		harvester: pipeline.NewHarvester(cfg, source, store, normalizer, recognizer, publisher, logger),
		ffmpegRun: &ffmpegRuns,
		engineRun: &engineRuns,
	}
}

func TestHarvestProcessesNewEntries(t *testing.T) {
	listing := "ep-1\thttps://v.example.com/ep-1\t60\tFirst\n" +
		"ep-2\thttps://v.example.com/ep-2\t90\tSecond\n"
	fixture := newHarvestFixture(t, listing)

	if err := fixture.harvester.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	for _, id := range []string{"ep-1", "ep-2"} {
		if _, err := os.Stat(filepath.Join(fixture.cfg.Paths.OutputDir, id+".vtt")); err != nil {
			t.Fatalf("expected published caption for %s: %v", id, err)
		}
	}
	if *fixture.ffmpegRun != 1 {
		t.Fatalf("expected one batch normalize invocation, got %d", *fixture.ffmpegRun)
	}
	if *fixture.engineRun != 1 {
		t.Fatalf("expected one batch recognize invocation, got %d", *fixture.engineRun)
	}

	summary, err := fixture.store.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if summary.Published != 2 {
		t.Fatalf("expected 2 published episodes, got %+v", summary)
	}
}

func TestHarvestSkipsSeenEntries(t *testing.T) {
	listing := "ep-1\thttps://v.example.com/ep-1\t60\tFirst\n"
	fixture := newHarvestFixture(t, listing)

	if err := fixture.harvester.Run(context.Background()); err != nil {
		t.Fatalf("first Run: %v", err)
	}
	if err := fixture.harvester.Run(context.Background()); err != nil {
		t.Fatalf("second Run: %v", err)
	}

	// The second run must not re-transcribe: one engine run total.
	if *fixture.engineRun != 1 {
		t.Fatalf("expected engine to run once across both passes, got %d", *fixture.engineRun)
	}
}

func TestHarvestSkipsLedgerTranscribedEntries(t *testing.T) {
	listing := "ep-1\thttps://v.example.com/ep-1\t60\tFirst\n"
	fixture := newHarvestFixture(t, listing)

	// Transcribed per the ledger but absent from the download archive, as
	// after an archive file loss.
	if err := fixture.store.MarkTranscribed(context.Background(), "ep-1"); err != nil {
		t.Fatalf("MarkTranscribed: %v", err)
	}

	if err := fixture.harvester.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if _, err := os.Stat(filepath.Join(fixture.cfg.RawDir(), "ep-1.wav")); !os.IsNotExist(err) {
		t.Fatalf("transcribed episode must not be re-downloaded: %v", err)
	}
	if *fixture.engineRun != 0 {
		t.Fatalf("expected no engine invocations, got %d", *fixture.engineRun)
	}
}

func TestHarvestReconcilesExistingCaptions(t *testing.T) {
	listing := "ep-1\thttps://v.example.com/ep-1\t60\tFirst\n"
	fixture := newHarvestFixture(t, listing)

	// A caption published by an earlier deployment, unknown to the ledger.
	if err := os.WriteFile(filepath.Join(fixture.cfg.Paths.OutputDir, "ep-9.vtt"), []byte("WEBVTT\n"), 0o644); err != nil {
		t.Fatalf("write caption: %v", err)
	}

	if err := fixture.harvester.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	done, err := fixture.store.IsTranscribed(context.Background(), "ep-9")
	if err != nil {
		t.Fatalf("IsTranscribed: %v", err)
	}
	if !done {
		t.Fatal("pre-existing caption must be reconciled into the ledger")
	}
}
