package workitem

import "strings"

// Item is one unit of media to be transcribed. It is created by a work-item
// source, treated as read-only metadata afterwards, and carries the paths of
// the artifacts each stage produces for it.
type Item struct {
	// ID is the opaque identifier assigned by the source (remote episode id
	// or content id). Output artifacts are named after it.
	ID string
	// SourceURL locates the raw media.
	SourceURL string
	// Token authenticates per-item reports back to a pull queue, when the
	// source supplies one.
	Token string
	// Language is an optional recognition hint.
	Language string
	// DurationSeconds is the expected media length, used only for the
	// throughput report. Zero when unknown.
	DurationSeconds float64
	// Title is display metadata only.
	Title string

	// Stage artifacts, filled in as the item moves downstream.
	RawFile        string
	AudioFile      string
	TranscriptFile string
	CaptionFile    string
}

// Label returns the item title when present, otherwise the identifier.
func (i *Item) Label() string {
	if title := strings.TrimSpace(i.Title); title != "" {
		return title
	}
	return i.ID
}
