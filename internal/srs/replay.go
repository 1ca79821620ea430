package srs

import (
	"math"
	"slices"
	"time"

	"github.com/conorfennell/knolvocab/internal/domain"
)

// Replay folds a card's review events through Transition, oldest first,
// starting from the new-card state. Events may be passed in any order;
// events with equal timestamps keep their relative order. The slice is not
// modified.
func (p Params) Replay(events []domain.ReviewEvent, createdAt time.Time) State {
	ordered := slices.Clone(events)
	slices.SortStableFunc(ordered, func(a, b domain.ReviewEvent) int {
		return a.ReviewedAt.Compare(b.ReviewedAt)
	})

	s := p.NewState(createdAt)
	for _, e := range ordered {
		s = p.Transition(s, e.Rating, e.ReviewedAt)
	}
	return s
}

// Replay applies DefaultParams().Replay.
func Replay(events []domain.ReviewEvent, createdAt time.Time) State {
	return DefaultParams().Replay(events, createdAt)
}

// Retention estimates the probability of recalling the card at now using
// an exponential forgetting curve whose strength grows with the interval
// and the ease factor. Cards without a successful review have retention 0.
func Retention(s State, now time.Time) float64 {
	if s.Reps == 0 || s.LastReviewAt == nil {
		return 0
	}
	strength := float64(s.IntervalDays) * float64(Day/time.Millisecond) * (s.EaseFactor / 2.5)
	if strength <= 0 {
		return 0
	}
	elapsed := float64(now.Sub(*s.LastReviewAt) / time.Millisecond)
	return math.Exp(-elapsed / strength)
}
