package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Store is the persisted record of which episode identifiers completed each
// pipeline stage. It replaces directory scanning as the source of truth for
// "already processed", so the reprocessing invariant holds independently of
// filesystem layout.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the ledger database and applies migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("ledger: path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure ledger directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string { return s.path }

// MarkFetched records that an episode's raw media was acquired. Idempotent:
// an existing fetched_at timestamp is preserved, metadata is refreshed.
func (s *Store) MarkFetched(ctx context.Context, id, title, sourceURL string, durationSeconds float64) error {
	if err := validateID(id); err != nil {
		return err
	}
	now := timestamp()
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO episodes (id, title, source_url, duration_seconds, fetched_at, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(id) DO UPDATE SET
            title = excluded.title,
            source_url = excluded.source_url,
            duration_seconds = excluded.duration_seconds,
            fetched_at = COALESCE(episodes.fetched_at, excluded.fetched_at),
            updated_at = excluded.updated_at`,
		id, nullableString(title), nullableString(sourceURL), durationSeconds, now, now, now,
	)
	if err != nil {
		return fmt.Errorf("mark fetched: %w", err)
	}
	return nil
}

// MarkNormalized records canonical-audio completion for an episode.
func (s *Store) MarkNormalized(ctx context.Context, id string) error {
	return s.markStage(ctx, id, "normalized_at")
}

// MarkTranscribed records recognition completion for an episode.
func (s *Store) MarkTranscribed(ctx context.Context, id string) error {
	return s.markStage(ctx, id, "transcribed_at")
}

// MarkPublished records that output artifacts reached the stable output directory.
func (s *Store) MarkPublished(ctx context.Context, id string) error {
	return s.markStage(ctx, id, "published_at")
}

func (s *Store) markStage(ctx context.Context, id, column string) error {
	if err := validateID(id); err != nil {
		return err
	}
	now := timestamp()
	// Column names come from the fixed call sites above, never from input.
	query := fmt.Sprintf(`
        INSERT INTO episodes (id, %[1]s, created_at, updated_at)
        VALUES (?, ?, ?, ?)
        ON CONFLICT(id) DO UPDATE SET
            %[1]s = COALESCE(episodes.%[1]s, excluded.%[1]s),
            updated_at = excluded.updated_at`, column)
	if _, err := s.db.ExecContext(ctx, query, id, now, now, now); err != nil {
		return fmt.Errorf("mark %s: %w", strings.TrimSuffix(column, "_at"), err)
	}
	return nil
}

// IsTranscribed reports whether an episode already completed recognition.
func (s *Store) IsTranscribed(ctx context.Context, id string) (bool, error) {
	row := s.db.QueryRowContext(ctx, `SELECT transcribed_at FROM episodes WHERE id = ?`, id)
	var transcribed sql.NullString
	if err := row.Scan(&transcribed); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("query transcribed: %w", err)
	}
	return transcribed.Valid, nil
}

// FilterPendingNormalize returns the subset of ids, in input order, that have
// not completed the normalize stage.
func (s *Store) FilterPendingNormalize(ctx context.Context, ids []string) ([]string, error) {
	return s.filterPending(ctx, ids, "normalized_at")
}

// FilterPendingTranscribe returns the subset of ids, in input order, that have
// not completed the recognition stage.
func (s *Store) FilterPendingTranscribe(ctx context.Context, ids []string) ([]string, error) {
	return s.filterPending(ctx, ids, "transcribed_at")
}

func (s *Store) filterPending(ctx context.Context, ids []string, column string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	placeholders := makePlaceholders(len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	// Column names come from the fixed call sites above.
	query := fmt.Sprintf(
		`SELECT id FROM episodes WHERE id IN (%s) AND %s IS NOT NULL`,
		placeholders, column,
	)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("filter pending: %w", err)
	}
	defer rows.Close()

	done := make(map[string]struct{}, len(ids))
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		done[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	pending := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := done[id]; !ok {
			pending = append(pending, id)
		}
	}
	return pending, nil
}

// PendingItems returns episodes that were fetched but never transcribed,
// oldest first. These are resumed on the next harvest run.
func (s *Store) PendingItems(ctx context.Context) ([]*Episode, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+episodeColumns+` FROM episodes
         WHERE fetched_at IS NOT NULL AND transcribed_at IS NULL
         ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("query pending items: %w", err)
	}
	defer rows.Close()
	return collectEpisodes(rows)
}

// List returns every ledger row ordered by creation time.
func (s *Store) List(ctx context.Context) ([]*Episode, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+episodeColumns+` FROM episodes ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list episodes: %w", err)
	}
	defer rows.Close()
	return collectEpisodes(rows)
}

// Reconcile imports pre-existing output artifacts into the ledger so a
// crash-restart never reprocesses episodes whose captions already exist.
func (s *Store) Reconcile(ctx context.Context, outputDir string) (int, error) {
	matches, err := filepath.Glob(filepath.Join(outputDir, "*.vtt"))
	if err != nil {
		return 0, fmt.Errorf("scan output directory: %w", err)
	}
	imported := 0
	for _, match := range matches {
		id := strings.TrimSuffix(filepath.Base(match), ".vtt")
		if id == "" {
			continue
		}
		done, err := s.IsTranscribed(ctx, id)
		if err != nil {
			return imported, err
		}
		if done {
			continue
		}
		if err := s.MarkTranscribed(ctx, id); err != nil {
			return imported, err
		}
		if err := s.MarkPublished(ctx, id); err != nil {
			return imported, err
		}
		imported++
	}
	return imported, nil
}

// Stats aggregates per-stage completion counts for status output.
func (s *Store) Stats(ctx context.Context) (Summary, error) {
	row := s.db.QueryRowContext(ctx, `
        SELECT COUNT(1),
               COUNT(fetched_at),
               COUNT(normalized_at),
               COUNT(transcribed_at),
               COUNT(published_at),
               COALESCE(SUM(duration_seconds), 0)
        FROM episodes`)
	var summary Summary
	if err := row.Scan(
		&summary.Total,
		&summary.Fetched,
		&summary.Normalized,
		&summary.Transcribed,
		&summary.Published,
		&summary.TotalDurationSeconds,
	); err != nil {
		return Summary{}, fmt.Errorf("ledger stats: %w", err)
	}
	return summary, nil
}

const episodeColumns = "id, title, source_url, duration_seconds, fetched_at, normalized_at, transcribed_at, published_at, created_at, updated_at"

func collectEpisodes(rows *sql.Rows) ([]*Episode, error) {
	var episodes []*Episode
	for rows.Next() {
		episode, err := scanEpisode(rows)
		if err != nil {
			return nil, err
		}
		episodes = append(episodes, episode)
	}
	return episodes, rows.Err()
}

func scanEpisode(scanner interface{ Scan(dest ...any) error }) (*Episode, error) {
	var (
		id          string
		title       sql.NullString
		sourceURL   sql.NullString
		duration    float64
		fetched     sql.NullString
		normalized  sql.NullString
		transcribed sql.NullString
		published   sql.NullString
		createdRaw  string
		updatedRaw  string
	)
	if err := scanner.Scan(&id, &title, &sourceURL, &duration, &fetched, &normalized, &transcribed, &published, &createdRaw, &updatedRaw); err != nil {
		return nil, err
	}

	episode := &Episode{
		ID:              id,
		Title:           title.String,
		SourceURL:       sourceURL.String,
		DurationSeconds: duration,
	}
	episode.FetchedAt = parseNullableTime(fetched)
	episode.NormalizedAt = parseNullableTime(normalized)
	episode.TranscribedAt = parseNullableTime(transcribed)
	episode.PublishedAt = parseNullableTime(published)
	if created, err := time.Parse(time.RFC3339Nano, createdRaw); err == nil {
		episode.CreatedAt = created
	}
	if updated, err := time.Parse(time.RFC3339Nano, updatedRaw); err == nil {
		episode.UpdatedAt = updated
	}
	return episode, nil
}

func parseNullableTime(value sql.NullString) *time.Time {
	if !value.Valid || value.String == "" {
		return nil
	}
	parsed, err := time.Parse(time.RFC3339Nano, value.String)
	if err != nil {
		return nil
	}
	return &parsed
}

func validateID(id string) error {
	if strings.TrimSpace(id) == "" {
		return errors.New("ledger: episode id is required")
	}
	return nil
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
