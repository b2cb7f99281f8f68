package pipeline_test

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"

	"scribe/internal/logging"
	"scribe/internal/pipeline"
	"scribe/internal/services"
	"scribe/internal/stage"
	"scribe/internal/testsupport"
	"scribe/internal/workitem"
)

// fakeQueue serves a fixed list of items and records failure reports.
type fakeQueue struct {
	mu      sync.Mutex
	items   []*workitem.Item
	reports map[string]services.Code
}

func newFakeQueue(items ...*workitem.Item) *fakeQueue {
	return &fakeQueue{items: items, reports: make(map[string]services.Code)}
}

func (q *fakeQueue) Next(context.Context) (*workitem.Item, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil, nil
	}
	item := q.items[0]
	q.items = q.items[1:]
	return item, nil
}

func (q *fakeQueue) ReportError(_ context.Context, item *workitem.Item, code services.Code) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.reports[item.ID] = code
	return nil
}

// fakeStage records executions and can fail on selected items.
type fakeStage struct {
	name     string
	executed []string
	fail     map[string]error
	onExec   func(ctx context.Context, item *workitem.Item) error
}

func (s *fakeStage) Prepare(context.Context, *workitem.Item) error { return nil }

func (s *fakeStage) Execute(ctx context.Context, item *workitem.Item) error {
	s.executed = append(s.executed, item.ID)
	if s.onExec != nil {
		if err := s.onExec(ctx, item); err != nil {
			return err
		}
	}
	if err, ok := s.fail[item.ID]; ok {
		return err
	}
	return nil
}

func (s *fakeStage) HealthCheck(context.Context) stage.Health { return stage.Healthy(s.name) }

func newStages() (pipeline.Stages, *fakeStage, *fakeStage, *fakeStage, *fakeStage) {
	fetch := &fakeStage{name: "fetch"}
	norm := &fakeStage{name: "normalize"}
	rec := &fakeStage{name: "recognize"}
	pub := &fakeStage{name: "publish"}
	return pipeline.Stages{Fetch: fetch, Normalize: norm, Recognize: rec, Publish: pub}, fetch, norm, rec, pub
}

func TestRunPullQueueProcessesAllItems(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	stages, fetch, _, _, pub := newStages()
	queue := newFakeQueue(
		&workitem.Item{ID: "ep-1", SourceURL: "https://cdn.example.com/1.mp3", DurationSeconds: 60},
		&workitem.Item{ID: "ep-2", SourceURL: "https://cdn.example.com/2.mp3"},
	)

	controller := pipeline.NewController(cfg, stages, logging.NewNop())
	if err := controller.RunPullQueue(context.Background(), queue); err != nil {
		t.Fatalf("RunPullQueue: %v", err)
	}

	if len(fetch.executed) != 2 || len(pub.executed) != 2 {
		t.Fatalf("expected both items through all stages, fetch=%v publish=%v", fetch.executed, pub.executed)
	}
	if len(queue.reports) != 0 {
		t.Fatalf("no failures expected, got %v", queue.reports)
	}
}

func TestRunPullQueueEmptyQueue(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	stages, fetch, _, _, _ := newStages()

	controller := pipeline.NewController(cfg, stages, logging.NewNop())
	if err := controller.RunPullQueue(context.Background(), newFakeQueue()); err != nil {
		t.Fatalf("RunPullQueue: %v", err)
	}
	if len(fetch.executed) != 0 {
		t.Fatalf("no stages should run on an empty queue, got %v", fetch.executed)
	}
}

func TestRunPullQueueReportsFailureAndContinues(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	stages, _, _, rec, pub := newStages()
	rec.fail = map[string]error{
		"ep-1": services.Wrap(services.ErrRecognition, "recognize", "transcribe", "ep-1", errors.New("engine crashed")),
	}
	queue := newFakeQueue(
		&workitem.Item{ID: "ep-1", SourceURL: "https://cdn.example.com/1.mp3"},
		&workitem.Item{ID: "ep-2", SourceURL: "https://cdn.example.com/2.mp3"},
	)

	controller := pipeline.NewController(cfg, stages, logging.NewNop())
	if err := controller.RunPullQueue(context.Background(), queue); err != nil {
		t.Fatalf("RunPullQueue: %v", err)
	}

	if code, ok := queue.reports["ep-1"]; !ok || code != services.CodeRecognition {
		t.Fatalf("expected code 902 for ep-1, got %v", queue.reports)
	}
	if len(pub.executed) != 1 || pub.executed[0] != "ep-2" {
		t.Fatalf("failed item must not publish; second item must: %v", pub.executed)
	}
}

func TestRunPullQueueFailureCodesByStage(t *testing.T) {
	tests := []struct {
		name   string
		marker error
		want   services.Code
	}{
		{"download", services.ErrDownload, services.CodeDownload},
		{"conversion", services.ErrConversion, services.CodeConversion},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := testsupport.NewConfig(t)
			stages, fetch, _, _, _ := newStages()
			fetch.fail = map[string]error{
				"ep-1": services.Wrap(tc.marker, "stage", "op", "ep-1", nil),
			}
			queue := newFakeQueue(&workitem.Item{ID: "ep-1", SourceURL: "https://x.example.com/1.mp3"})

			controller := pipeline.NewController(cfg, stages, logging.NewNop())
			if err := controller.RunPullQueue(context.Background(), queue); err != nil {
				t.Fatalf("RunPullQueue: %v", err)
			}
			if queue.reports["ep-1"] != tc.want {
				t.Fatalf("expected code %d, got %d", tc.want, queue.reports["ep-1"])
			}
		})
	}
}

func TestRunPullQueueInterruptMidItemReportsCodeZero(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stages, _, _, rec, pub := newStages()
	rec.onExec = func(ctx context.Context, item *workitem.Item) error {
		cancel()
		return ctx.Err()
	}
	queue := newFakeQueue(
		&workitem.Item{ID: "ep-1", SourceURL: "https://x.example.com/1.mp3"},
		&workitem.Item{ID: "ep-2", SourceURL: "https://x.example.com/2.mp3"},
	)

	controller := pipeline.NewController(cfg, stages, logging.NewNop())
	if err := controller.RunPullQueue(ctx, queue); err != nil {
		t.Fatalf("RunPullQueue: %v", err)
	}

	if queue.reports["ep-1"] != services.CodeInterrupted {
		t.Fatalf("expected code 0 for interrupted item, got %v", queue.reports)
	}
	if len(pub.executed) != 0 {
		t.Fatalf("no item should publish after interrupt, got %v", pub.executed)
	}
}

func TestRunPullQueueHonorsStopMarker(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := os.WriteFile(cfg.Paths.StopFile, nil, 0o644); err != nil {
		t.Fatalf("write stop marker: %v", err)
	}

	stages, fetch, _, _, _ := newStages()
	queue := newFakeQueue(&workitem.Item{ID: "ep-1", SourceURL: "https://x.example.com/1.mp3"})

	controller := pipeline.NewController(cfg, stages, logging.NewNop())
	if err := controller.RunPullQueue(context.Background(), queue); err != nil {
		t.Fatalf("RunPullQueue: %v", err)
	}

	if len(fetch.executed) != 0 {
		t.Fatal("stop marker must end the run before any item")
	}
	if _, err := os.Stat(cfg.Paths.StopFile); !os.IsNotExist(err) {
		t.Fatal("stop marker must be consumed")
	}
}

func TestRunPullQueueSingleInstance(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	stages, _, _, _, _ := newStages()

	// Occupy the run lock with a first controller mid-run by holding it via a
	// blocking stage.
	blocked := make(chan struct{})
	release := make(chan struct{})
	stages.Fetch = &fakeStage{name: "fetch", onExec: func(context.Context, *workitem.Item) error {
		close(blocked)
		<-release
		return nil
	}}
	queue := newFakeQueue(&workitem.Item{ID: "ep-1", SourceURL: "https://x.example.com/1.mp3"})

	controller := pipeline.NewController(cfg, stages, logging.NewNop())
	done := make(chan error, 1)
	go func() { done <- controller.RunPullQueue(context.Background(), queue) }()
	<-blocked

	second := pipeline.NewController(cfg, newStagesOnly(), logging.NewNop())
	err := second.RunPullQueue(context.Background(), newFakeQueue())
	if err == nil {
		t.Fatal("expected second run to fail while lock is held")
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first run: %v", err)
	}
}

func newStagesOnly() pipeline.Stages {
	s, _, _, _, _ := newStages()
	return s
}
