package ledger

import "time"

// Episode is one ledger row: the stage-completion record for an identifier.
type Episode struct {
	ID              string
	Title           string
	SourceURL       string
	DurationSeconds float64
	FetchedAt       *time.Time
	NormalizedAt    *time.Time
	TranscribedAt   *time.Time
	PublishedAt     *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Stage reports the furthest stage the episode has completed.
func (e *Episode) Stage() string {
	switch {
	case e.PublishedAt != nil:
		return "published"
	case e.TranscribedAt != nil:
		return "transcribed"
	case e.NormalizedAt != nil:
		return "normalized"
	case e.FetchedAt != nil:
		return "fetched"
	default:
		return "seen"
	}
}

// Summary aggregates ledger counts for status output.
type Summary struct {
	Total                int
	Fetched              int
	Normalized           int
	Transcribed          int
	Published            int
	TotalDurationSeconds float64
}
