package pipeline

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"scribe/internal/config"
	"scribe/internal/feed"
	"scribe/internal/ledger"
	"scribe/internal/logging"
	"scribe/internal/normalize"
	"scribe/internal/publish"
	"scribe/internal/recognize"
	"scribe/internal/runlock"
	"scribe/internal/workitem"
)

// Harvester runs the bulk feed mode: list the channel, download what is new,
// then normalize and recognize the whole batch in single tool invocations.
// Unlike the pull loop there is no upstream to report failures to; a failed
// item is logged and retried implicitly on the next run because the ledger
// never marks it complete.
type Harvester struct {
	cfg        *config.Config
	source     *feed.Source
	store      *ledger.Store
	normalizer *normalize.Normalizer
	recognizer *recognize.Recognizer
	publisher  *publish.Publisher
	logger     *slog.Logger
}

// NewHarvester builds a bulk-mode controller.
func NewHarvester(
	cfg *config.Config,
	source *feed.Source,
	store *ledger.Store,
	normalizer *normalize.Normalizer,
	recognizer *recognize.Recognizer,
	publisher *publish.Publisher,
	logger *slog.Logger,
) *Harvester {
	return &Harvester{
		cfg:        cfg,
		source:     source,
		store:      store,
		normalizer: normalizer,
		recognizer: recognizer,
		publisher:  publisher,
		logger: logging.NewComponentLogger(logger, "harvest").
			With(logging.String(logging.FieldRunID, uuid.NewString())),
	}
}

// Run executes one harvest pass.
func (h *Harvester) Run(ctx context.Context) error {
	lock, err := runlock.Acquire(h.cfg.Paths.LockFile)
	if err != nil {
		return err
	}
	defer lock.Release()

	h.logger.Info("run started", logging.String("mode", "harvest"))

	imported, err := h.store.Reconcile(ctx, h.cfg.Paths.OutputDir)
	if err != nil {
		return err
	}
	if imported > 0 {
		h.logger.Info("existing captions reconciled", logging.Int("imported", imported))
	}

	items, err := h.collectBatch(ctx)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		h.logger.Info("nothing to do")
		return nil
	}

	if err := h.normalizeBatch(ctx, items); err != nil {
		return err
	}
	if err := h.recognizeBatch(ctx, items); err != nil {
		return err
	}
	published := h.publishBatch(ctx, items)

	h.logger.Info("run finished",
		logging.Int("items", len(items)),
		logging.Int("published", published),
	)
	return nil
}

// collectBatch resumes ledger items a previous run left unfinished and
// downloads the channel entries not seen before. Download failures skip the
// entry; it stays out of the archive and is retried next run.
func (h *Harvester) collectBatch(ctx context.Context) ([]*workitem.Item, error) {
	items := h.resumePending(ctx)

	fresh, err := h.source.NextBatch(ctx)
	if err != nil {
		return nil, err
	}
	for _, item := range fresh {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		// The archive can lose entries the ledger still knows about; the
		// ledger is the source of truth for completed recognition.
		done, err := h.store.IsTranscribed(ctx, item.ID)
		if err != nil {
			return nil, err
		}
		if done {
			h.logger.Info("episode already transcribed, skipping download",
				logging.String(logging.FieldItemID, item.ID))
			continue
		}
		if err := h.source.Download(ctx, item, h.cfg.RawDir()); err != nil {
			h.logger.Error("download failed", append(itemAttrs(item), logging.Error(err))...)
			continue
		}
		if err := h.store.MarkFetched(ctx, item.ID, item.Title, item.SourceURL, item.DurationSeconds); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

// resumePending rebuilds work items for episodes the ledger shows as fetched
// but not transcribed, reattaching whatever intermediate files still exist.
func (h *Harvester) resumePending(ctx context.Context) []*workitem.Item {
	episodes, err := h.store.PendingItems(ctx)
	if err != nil {
		h.logger.Warn("pending item lookup failed", logging.Error(err))
		return nil
	}
	var items []*workitem.Item
	for _, episode := range episodes {
		item := &workitem.Item{
			ID:              episode.ID,
			Title:           episode.Title,
			SourceURL:       episode.SourceURL,
			DurationSeconds: episode.DurationSeconds,
		}
		raw := filepath.Join(h.cfg.RawDir(), episode.ID+".wav")
		if _, err := os.Stat(raw); err == nil {
			item.RawFile = raw
		}
		audio := filepath.Join(h.cfg.AudioDir(), episode.ID+".wav")
		if _, err := os.Stat(audio); err == nil {
			item.AudioFile = audio
		}
		if item.RawFile == "" && item.AudioFile == "" {
			h.logger.Warn("pending episode has no local media, skipping",
				logging.String(logging.FieldItemID, episode.ID))
			continue
		}
		items = append(items, item)
	}
	if len(items) > 0 {
		h.logger.Info("pending episodes resumed", logging.Int("items", len(items)))
	}
	return items
}

// normalizeBatch loudness-normalizes the ledger-pending subset in one tool
// invocation and marks each episode.
func (h *Harvester) normalizeBatch(ctx context.Context, items []*workitem.Item) error {
	pendingIDs, err := h.store.FilterPendingNormalize(ctx, itemIDs(items))
	if err != nil {
		return err
	}
	pending := selectItems(items, pendingIDs)

	// Drop items whose raw media disappeared; they re-enter via resume once
	// the media is restored.
	runnable := pending[:0]
	for _, item := range pending {
		if item.RawFile == "" {
			h.logger.Warn("no raw media to normalize",
				logging.String(logging.FieldItemID, item.ID))
			continue
		}
		runnable = append(runnable, item)
	}

	if err := h.normalizer.BatchNormalize(ctx, runnable); err != nil {
		return err
	}
	for _, item := range runnable {
		if err := h.store.MarkNormalized(ctx, item.ID); err != nil {
			return err
		}
	}
	return nil
}

// recognizeBatch transcribes the ledger-pending subset in a single engine
// invocation and logs batch throughput against total media duration.
func (h *Harvester) recognizeBatch(ctx context.Context, items []*workitem.Item) error {
	pendingIDs, err := h.store.FilterPendingTranscribe(ctx, itemIDs(items))
	if err != nil {
		return err
	}
	pending := selectItems(items, pendingIDs)

	runnable := pending[:0]
	totalDuration := 0.0
	for _, item := range pending {
		if item.AudioFile == "" {
			h.logger.Warn("no canonical audio to transcribe",
				logging.String(logging.FieldItemID, item.ID))
			continue
		}
		runnable = append(runnable, item)
		totalDuration += item.DurationSeconds
	}
	if len(runnable) == 0 {
		return nil
	}

	started := time.Now()
	if err := h.recognizer.RecognizeBatch(ctx, runnable); err != nil {
		return err
	}
	elapsed := time.Since(started)

	attrs := []logging.Attr{
		logging.Int("items", len(runnable)),
		logging.Duration("elapsed", elapsed),
	}
	if ratio, ok := throughput(totalDuration, elapsed); ok {
		attrs = append(attrs, logging.Float64("speed_ratio", ratio))
	}
	h.logger.Info("batch recognized", logging.Args(attrs...)...)

	for _, item := range runnable {
		if err := h.store.MarkTranscribed(ctx, item.ID); err != nil {
			return err
		}
	}
	return nil
}

// publishBatch moves every transcribed item's artifacts to the output
// directory. Items without artifacts (earlier stage skipped them) are left
// for the next run.
func (h *Harvester) publishBatch(ctx context.Context, items []*workitem.Item) int {
	published := 0
	for _, item := range items {
		if item.CaptionFile == "" {
			h.attachArtifacts(item)
		}
		if item.CaptionFile == "" {
			continue
		}
		if err := h.publisher.Prepare(ctx, item); err != nil {
			h.logger.Error("publish failed", append(itemAttrs(item), logging.Error(err))...)
			continue
		}
		if err := h.publisher.Execute(ctx, item); err != nil {
			h.logger.Error("publish failed", append(itemAttrs(item), logging.Error(err))...)
			continue
		}
		if err := h.store.MarkPublished(ctx, item.ID); err != nil {
			h.logger.Error("ledger update failed", append(itemAttrs(item), logging.Error(err))...)
			continue
		}
		published++
	}
	return published
}

// attachArtifacts reconnects transcript files a previous run produced but
// never published.
func (h *Harvester) attachArtifacts(item *workitem.Item) {
	txt := filepath.Join(h.cfg.TranscriptDir(), item.ID+".txt")
	vtt := filepath.Join(h.cfg.TranscriptDir(), item.ID+".vtt")
	if _, err := os.Stat(vtt); err != nil {
		return
	}
	if _, err := os.Stat(txt); err != nil {
		return
	}
	item.TranscriptFile = txt
	item.CaptionFile = vtt
}

func itemIDs(items []*workitem.Item) []string {
	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ID)
	}
	return ids
}

func selectItems(items []*workitem.Item, ids []string) []*workitem.Item {
	wanted := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		wanted[id] = struct{}{}
	}
	selected := make([]*workitem.Item, 0, len(ids))
	for _, item := range items {
		if _, ok := wanted[item.ID]; ok {
			selected = append(selected, item)
		}
	}
	return selected
}
