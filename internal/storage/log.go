package storage

import (
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/conorfennell/knolvocab/internal/domain"
)

// mutationRow mirrors a card_mutations row before it becomes a domain value.
type mutationRow struct {
	Seq       int64
	ID        string `validate:"required"`
	Front     string
	Back      string
	Tags      string
	Source    string
	CreatedAt int64 `validate:"gt=0"`
	UpdatedAt int64 `validate:"gtefield=CreatedAt"`
	Version   int   `validate:"gte=1"`
	Deleted   bool
}

// eventRow mirrors a review_events row before it becomes a domain value.
type eventRow struct {
	Seq        int64
	ID         string `validate:"required"`
	CardID     string `validate:"required"`
	ReviewedAt int64  `validate:"gt=0"`
	Rating     string `validate:"oneof=again hard good easy"`
	Mode       string `validate:"oneof=recognize recall typing"`
	DurationMs sql.NullInt64
}

func toMillis(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func joinTags(tags []string) string {
	return strings.Join(tags, "\n")
}

func splitTags(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

// AppendCardMutation appends a card snapshot to the mutation log.
func (db *DB) AppendCardMutation(m domain.CardMutation) error {
	row := mutationRow{
		ID:        m.ID,
		Front:     m.Front,
		Back:      m.Back,
		Tags:      joinTags(m.Tags),
		Source:    m.Source,
		CreatedAt: toMillis(m.CreatedAt),
		UpdatedAt: toMillis(m.UpdatedAt),
		Version:   m.Version,
		Deleted:   m.Deleted,
	}
	if err := db.validate.Struct(row); err != nil {
		return fmt.Errorf("invalid card mutation %s v%d: %w", m.ID, m.Version, err)
	}

	_, err := db.conn.Exec(`
		INSERT INTO card_mutations (id, front, back, tags, source, created_at, updated_at, version, deleted)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		row.ID,
		row.Front,
		row.Back,
		row.Tags,
		row.Source,
		row.CreatedAt,
		row.UpdatedAt,
		row.Version,
		row.Deleted,
	)
	if err != nil {
		return fmt.Errorf("failed to append card mutation %s v%d: %w", m.ID, m.Version, err)
	}
	return nil
}

// AppendReviewEvent appends a review outcome to the review log.
func (db *DB) AppendReviewEvent(e domain.ReviewEvent) error {
	row := eventRow{
		ID:         e.ID,
		CardID:     e.CardID,
		ReviewedAt: toMillis(e.ReviewedAt),
		Rating:     e.Rating.String(),
		Mode:       e.Mode.String(),
	}
	if e.Duration != nil {
		row.DurationMs = sql.NullInt64{Int64: e.Duration.Milliseconds(), Valid: true}
	}
	if err := db.validate.Struct(row); err != nil {
		return fmt.Errorf("invalid review event %s: %w", e.ID, err)
	}

	_, err := db.conn.Exec(`
		INSERT INTO review_events (id, card_id, reviewed_at, rating, mode, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		row.ID,
		row.CardID,
		row.ReviewedAt,
		row.Rating,
		row.Mode,
		row.DurationMs,
	)
	if err != nil {
		return fmt.Errorf("failed to append review event %s: %w", e.ID, err)
	}
	return nil
}

// ReadAllCardMutations returns every card mutation in append order.
// Rows that fail validation are skipped with a warning.
func (db *DB) ReadAllCardMutations() ([]domain.CardMutation, error) {
	rows, err := db.conn.Query(`
		SELECT seq, id, front, back, tags, source, created_at, updated_at, version, deleted
		FROM card_mutations ORDER BY seq
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to read card mutations: %w", err)
	}
	defer rows.Close()

	var mutations []domain.CardMutation
	for rows.Next() {
		var r mutationRow
		if err := rows.Scan(
			&r.Seq,
			&r.ID,
			&r.Front,
			&r.Back,
			&r.Tags,
			&r.Source,
			&r.CreatedAt,
			&r.UpdatedAt,
			&r.Version,
			&r.Deleted,
		); err != nil {
			return nil, fmt.Errorf("failed to scan card mutation row: %w", err)
		}
		if err := db.validate.Struct(r); err != nil {
			slog.Warn("Skipping malformed card mutation", "seq", r.Seq, "id", r.ID, "error", err)
			continue
		}
		mutations = append(mutations, domain.CardMutation{
			ID:        r.ID,
			Front:     r.Front,
			Back:      r.Back,
			Tags:      splitTags(r.Tags),
			Source:    r.Source,
			CreatedAt: fromMillis(r.CreatedAt),
			UpdatedAt: fromMillis(r.UpdatedAt),
			Version:   r.Version,
			Deleted:   r.Deleted,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate card mutations: %w", err)
	}
	return mutations, nil
}

// ReadAllReviewEvents returns every review event in append order.
// Rows that fail validation are skipped with a warning.
func (db *DB) ReadAllReviewEvents() ([]domain.ReviewEvent, error) {
	rows, err := db.conn.Query(`
		SELECT seq, id, card_id, reviewed_at, rating, mode, duration_ms
		FROM review_events ORDER BY seq
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to read review events: %w", err)
	}
	defer rows.Close()

	var events []domain.ReviewEvent
	for rows.Next() {
		var r eventRow
		if err := rows.Scan(&r.Seq, &r.ID, &r.CardID, &r.ReviewedAt, &r.Rating, &r.Mode, &r.DurationMs); err != nil {
			return nil, fmt.Errorf("failed to scan review event row: %w", err)
		}
		if err := db.validate.Struct(r); err != nil {
			slog.Warn("Skipping malformed review event", "seq", r.Seq, "id", r.ID, "error", err)
			continue
		}
		// Validation guarantees both names parse.
		rating, _ := domain.ParseRating(r.Rating)
		mode, _ := domain.ParseMode(r.Mode)
		e := domain.ReviewEvent{
			ID:         r.ID,
			CardID:     r.CardID,
			ReviewedAt: fromMillis(r.ReviewedAt),
			Rating:     rating,
			Mode:       mode,
		}
		if r.DurationMs.Valid {
			d := time.Duration(r.DurationMs.Int64) * time.Millisecond
			e.Duration = &d
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate review events: %w", err)
	}
	return events, nil
}
