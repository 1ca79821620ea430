package scheduler

import (
	"math"
	"slices"
	"time"

	"github.com/conorfennell/knolvocab/internal/domain"
	"github.com/conorfennell/knolvocab/internal/index"
	"github.com/conorfennell/knolvocab/internal/srs"
)

// Options carries the per-call inputs of SelectNext.
type Options struct {
	NewCardsPerDay    int
	TodayNewCardCount int      // new cards already introduced today
	LoopMode          bool     // keep presenting reviewed cards once nothing is due
	ExcludeCardID     string   // usually the card currently on screen
	RecentCardIDs     []string // most recent first
}

// SelectNext picks the card to present next. It tries, in order: the due
// card with the highest priority, the oldest new card if today's quota
// allows, and in loop mode the reviewed card with the highest priority
// regardless of its due date. It returns false when there is nothing to
// present. The index is not modified.
func SelectNext(idx *index.Index, now time.Time, opts Options) (domain.Card, bool) {
	if id, ok := best(idx, idx.DueAt(now), now, opts); ok {
		return idx.Card(id), true
	}

	if opts.TodayNewCardCount < opts.NewCardsPerDay {
		for _, id := range idx.New {
			if id != opts.ExcludeCardID {
				return idx.Card(id), true
			}
		}
	}

	if !opts.LoopMode {
		return domain.Card{}, false
	}

	var reviewed []string
	for _, id := range idx.Order {
		if idx.State(id).Reps > 0 {
			reviewed = append(reviewed, id)
		}
	}
	if id, ok := best(idx, reviewed, now, opts); ok {
		return idx.Card(id), true
	}

	for _, id := range idx.Order {
		if id != opts.ExcludeCardID && !slices.Contains(opts.RecentCardIDs, id) {
			return idx.Card(id), true
		}
	}
	if len(idx.Order) > 0 {
		return idx.Card(idx.Order[0]), true
	}
	return domain.Card{}, false
}

// best returns the candidate with the highest priority. Earlier candidates
// win ties.
func best(idx *index.Index, candidates []string, now time.Time, opts Options) (string, bool) {
	var (
		bestID    string
		bestScore float64
		found     bool
	)
	for _, id := range candidates {
		if id == opts.ExcludeCardID {
			continue
		}
		score := Priority(idx.State(id), id, now, opts.RecentCardIDs)
		if !found || score > bestScore {
			bestID, bestScore, found = id, score, true
		}
	}
	return bestID, found
}

// Priority scores how urgently a card should be shown at now. Higher is
// more urgent. recent lists recently shown card IDs, most recent first.
func Priority(s srs.State, id string, now time.Time, recent []string) float64 {
	var score float64

	if s.Reps > 0 && s.Reps <= 2 && s.IntervalDays <= 1 && s.LastReviewAt != nil {
		minutes := now.Sub(*s.LastReviewAt).Minutes()
		if minutes < 30 {
			score += 40 + (30 - minutes)
		} else {
			score += 35
		}
	}

	if now.After(s.DueAt) {
		overdueDays := float64(now.Sub(s.DueAt)) / float64(srs.Day)
		score += math.Min(100, 50+overdueDays*10)
	} else {
		untilDays := float64(s.DueAt.Sub(now)) / float64(srs.Day)
		score += math.Max(0, 30-untilDays*5)
	}

	if r := srs.Retention(s, now); r < 0.9 {
		score += (0.9 - r) * 50
	}

	score += math.Min(20, float64(s.Lapses)*4)

	if s.EaseFactor < 2.5 {
		score += (2.5 - s.EaseFactor) * 10
	}

	if i := slices.Index(recent, id); i >= 0 {
		score -= math.Max(0, 30-float64(i)*5)
	}

	return score
}

// NewCardsIntroduced counts the cards whose first review happened at or
// after since.
func NewCardsIntroduced(events []domain.ReviewEvent, since time.Time) int {
	first := make(map[string]time.Time, len(events))
	for _, e := range events {
		if t, ok := first[e.CardID]; !ok || e.ReviewedAt.Before(t) {
			first[e.CardID] = e.ReviewedAt
		}
	}
	n := 0
	for _, t := range first {
		if !t.Before(since) {
			n++
		}
	}
	return n
}
