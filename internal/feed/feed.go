// Package feed implements the bulk work-item source: channel listing through
// the external downloader plus the append-only download-seen archive.
package feed

import (
	"context"
	"fmt"
	"log/slog"

	"scribe/internal/logging"
	"scribe/internal/services"
	"scribe/internal/services/ytdlp"
	"scribe/internal/workitem"
)

// Source lists a channel and turns unseen entries into work items.
type Source struct {
	channelURL string
	downloader *ytdlp.Service
	archive    *Archive
	logger     *slog.Logger
}

// NewSource builds a feed source over the given downloader and archive.
func NewSource(channelURL string, downloader *ytdlp.Service, archive *Archive, logger *slog.Logger) *Source {
	return &Source{
		channelURL: channelURL,
		downloader: downloader,
		archive:    archive,
		logger:     logging.NewComponentLogger(logger, "feed"),
	}
}

// NextBatch lists the channel and returns the entries not yet recorded in the
// archive, oldest entry last as the downloader reports them.
func (s *Source) NextBatch(ctx context.Context) ([]*workitem.Item, error) {
	if s.channelURL == "" {
		return nil, fmt.Errorf("%w: feed channel url not configured", services.ErrConfiguration)
	}
	entries, err := s.downloader.ListChannel(ctx, s.channelURL)
	if err != nil {
		return nil, err
	}

	items := make([]*workitem.Item, 0, len(entries))
	for _, entry := range entries {
		if s.archive.Contains(entry.ID) {
			continue
		}
		items = append(items, &workitem.Item{
			ID:              entry.ID,
			SourceURL:       entry.URL,
			Title:           entry.Title,
			DurationSeconds: entry.DurationSeconds,
		})
	}
	s.logger.Info("channel listed",
		logging.Int("entries", len(entries)),
		logging.Int("new", len(items)),
	)
	return items, nil
}

// Download fetches the item's audio into destDir and records the item in the
// archive. The item's RawFile is set to the downloaded path.
func (s *Source) Download(ctx context.Context, item *workitem.Item, destDir string) error {
	entry := ytdlp.Entry{ID: item.ID, URL: item.SourceURL, Title: item.Title}
	path, err := s.downloader.DownloadAudio(ctx, entry, destDir)
	if err != nil {
		return services.Wrap(services.ErrDownload, "fetch", "download_audio",
			fmt.Sprintf("download %s", item.Label()), err)
	}
	item.RawFile = path
	return s.archive.Add(item.ID)
}
