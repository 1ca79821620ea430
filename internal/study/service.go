package study

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/conorfennell/knolvocab/internal/domain"
	"github.com/conorfennell/knolvocab/internal/index"
	"github.com/conorfennell/knolvocab/internal/scheduler"
	"github.com/conorfennell/knolvocab/internal/srs"
	"github.com/conorfennell/knolvocab/internal/storage"
)

// ErrUnknownCard is returned when a card ID does not name a live card.
var ErrUnknownCard = errors.New("unknown card")

// Settings controls card selection.
type Settings struct {
	NewCardsPerDay int
	LoopMode       bool
	RecentWindow   int // number of recently reviewed cards penalised by the scheduler
}

// Service answers study questions from the two logs. Every call rebuilds
// the index, so it always reflects what is stored.
type Service struct {
	db       *storage.DB
	params   srs.Params
	builder  *index.Builder
	settings Settings
}

// NewService creates a Service over db.
func NewService(db *storage.DB, params srs.Params, settings Settings) *Service {
	return &Service{
		db:       db,
		params:   params,
		builder:  index.NewBuilder(params),
		settings: settings,
	}
}

func (s *Service) load(now time.Time) (*index.Index, []domain.ReviewEvent, error) {
	mutations, err := s.db.ReadAllCardMutations()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read card mutations: %w", err)
	}
	events, err := s.db.ReadAllReviewEvents()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read review events: %w", err)
	}
	idx := s.builder.Build(mutations, events, now)
	return idx, liveEvents(idx, events), nil
}

// liveEvents drops events of cards that are not live in idx, so deleted
// cards neither use up the new-card quota nor count as recently reviewed.
func liveEvents(idx *index.Index, events []domain.ReviewEvent) []domain.ReviewEvent {
	live := make([]domain.ReviewEvent, 0, len(events))
	for _, e := range events {
		if _, ok := idx.Cards[e.CardID]; ok {
			live = append(live, e)
		}
	}
	return live
}

// Snapshot builds the index at now.
func (s *Service) Snapshot(now time.Time) (*index.Index, error) {
	idx, _, err := s.load(now)
	return idx, err
}

// Next selects the card to present at now. exclude is usually the card that
// is currently on screen and may be empty.
func (s *Service) Next(now time.Time, exclude string) (domain.Card, bool, error) {
	idx, events, err := s.load(now)
	if err != nil {
		return domain.Card{}, false, err
	}
	card, ok := scheduler.SelectNext(idx, now, scheduler.Options{
		NewCardsPerDay:    s.settings.NewCardsPerDay,
		TodayNewCardCount: scheduler.NewCardsIntroduced(events, startOfDay(now)),
		LoopMode:          s.settings.LoopMode,
		ExcludeCardID:     exclude,
		RecentCardIDs:     recentCardIDs(events, s.settings.RecentWindow),
	})
	return card, ok, nil
}

// Review records a rating for a live card and returns the card's new state.
// A zero mode is recorded as recognize.
func (s *Service) Review(cardID string, rating domain.Rating, mode domain.Mode, at time.Time, duration *time.Duration) (srs.State, error) {
	if !rating.IsValid() {
		return srs.State{}, fmt.Errorf("%w: %d", domain.ErrInvalidRating, rating)
	}
	if mode == 0 {
		mode = domain.Recognize
	}
	if !mode.IsValid() {
		return srs.State{}, fmt.Errorf("%w: %d", domain.ErrInvalidMode, mode)
	}
	// The log keeps millisecond precision.
	at = at.Truncate(time.Millisecond)

	idx, _, err := s.load(at)
	if err != nil {
		return srs.State{}, err
	}
	if _, ok := idx.Cards[cardID]; !ok {
		return srs.State{}, fmt.Errorf("%w: %s", ErrUnknownCard, cardID)
	}

	event := domain.ReviewEvent{
		ID:         uuid.NewString(),
		CardID:     cardID,
		ReviewedAt: at,
		Rating:     rating,
		Mode:       mode,
		Duration:   duration,
	}
	if err := s.db.AppendReviewEvent(event); err != nil {
		return srs.State{}, fmt.Errorf("failed to record review: %w", err)
	}
	next := s.params.Transition(idx.State(cardID), rating, at)
	slog.Debug("review recorded", "card_id", cardID, "rating", rating, "mode", mode, "due_at", next.DueAt)
	return next, nil
}

// Preview returns the state each rating would produce for a live card at now.
func (s *Service) Preview(cardID string, now time.Time) (map[domain.Rating]srs.State, error) {
	idx, err := s.Snapshot(now)
	if err != nil {
		return nil, err
	}
	if _, ok := idx.Cards[cardID]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCard, cardID)
	}
	return s.params.Preview(idx.State(cardID), now), nil
}

// Stats summarizes the deck at now.
func (s *Service) Stats(now time.Time) (scheduler.Summary, error) {
	idx, err := s.Snapshot(now)
	if err != nil {
		return scheduler.Summary{}, err
	}
	return scheduler.Stats(idx, now), nil
}

// TodayNewCount counts live cards first reviewed since the start of now's
// local day.
func (s *Service) TodayNewCount(now time.Time) (int, error) {
	_, events, err := s.load(now)
	if err != nil {
		return 0, err
	}
	return scheduler.NewCardsIntroduced(events, startOfDay(now)), nil
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// recentCardIDs returns up to n distinct card IDs, most recently reviewed first.
func recentCardIDs(events []domain.ReviewEvent, n int) []string {
	if n <= 0 {
		return nil
	}
	sorted := slices.Clone(events)
	slices.SortStableFunc(sorted, func(a, b domain.ReviewEvent) int {
		return b.ReviewedAt.Compare(a.ReviewedAt)
	})
	var ids []string
	for _, e := range sorted {
		if len(ids) == n {
			break
		}
		if !slices.Contains(ids, e.CardID) {
			ids = append(ids, e.CardID)
		}
	}
	return ids
}
