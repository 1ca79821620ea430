package srs

import (
	"fmt"
	"math"
	"time"

	"github.com/conorfennell/knolvocab/internal/domain"
)

// Day is the length of one scheduling interval unit.
const Day = 24 * time.Hour

// MatureIntervalDays is the interval at which a card counts as mature.
const MatureIntervalDays = 21

// Params holds the parameters of the SM-2 transition.
type Params struct {
	InitialEase       float64       // ease factor of a card that has never been reviewed
	MinEase           float64       // lower bound for the ease factor
	MaxEase           float64       // upper bound for the ease factor
	MaxIntervalDays   int           // upper bound for the interval
	MinReviewInterval time.Duration // reviews closer together than this are consolidation reviews
}

// DefaultParams returns the parameters used by the package-level functions.
func DefaultParams() Params {
	return Params{
		InitialEase:       2.5,
		MinEase:           1.3,
		MaxEase:           3.0,
		MaxIntervalDays:   365,
		MinReviewInterval: time.Hour,
	}
}

// Validate reports whether the parameters describe a usable transition.
func (p Params) Validate() error {
	if p.MinEase <= 0 || p.MinEase > p.MaxEase {
		return fmt.Errorf("ease bounds [%.2f, %.2f] are invalid", p.MinEase, p.MaxEase)
	}
	if p.InitialEase < p.MinEase || p.InitialEase > p.MaxEase {
		return fmt.Errorf("initial ease %.2f is outside [%.2f, %.2f]", p.InitialEase, p.MinEase, p.MaxEase)
	}
	if p.MaxIntervalDays < 1 {
		return fmt.Errorf("maximum interval %d must be at least one day", p.MaxIntervalDays)
	}
	if p.MinReviewInterval < 0 {
		return fmt.Errorf("minimum review interval %s must not be negative", p.MinReviewInterval)
	}
	return nil
}

// State holds the scheduling state of a card. It is always derived from the
// card's review events and never stored as ground truth.
type State struct {
	Reps         int // successful reviews since the last lapse
	IntervalDays int // 0 until the card is reviewed
	EaseFactor   float64
	Lapses       int
	LastReviewAt *time.Time // nil before the first review
	DueAt        time.Time
}

// IsNew reports whether the card has no successful reviews since its last lapse.
func (s State) IsNew() bool {
	return s.Reps == 0
}

// IsDue reports whether a reviewed card is scheduled at or before now.
func (s State) IsDue(now time.Time) bool {
	return s.Reps > 0 && !s.DueAt.After(now)
}

// IsMature reports whether the card has reached the mature interval.
func (s State) IsMature() bool {
	return s.Reps > 0 && s.IntervalDays >= MatureIntervalDays
}

// NewState returns the state of a card with no reviews, due at createdAt.
func (p Params) NewState(createdAt time.Time) State {
	return State{EaseFactor: p.InitialEase, DueAt: createdAt}
}

// Quality maps a rating to its SM-2 quality. It panics on a rating outside
// the enum; callers are expected to validate input before it reaches here.
func Quality(r domain.Rating) int {
	switch r {
	case domain.Again:
		return 0
	case domain.Hard:
		return 3
	case domain.Good:
		return 4
	case domain.Easy:
		return 5
	default:
		panic(fmt.Sprintf("srs: unknown rating %d", int(r)))
	}
}

// Transition computes the state after reviewing a card with the given
// rating at the given time. The input state is not modified.
func (p Params) Transition(s State, rating domain.Rating, at time.Time) State {
	q := Quality(rating)

	consolidation := s.LastReviewAt != nil && at.Sub(*s.LastReviewAt) < p.MinReviewInterval && s.Reps > 0

	next := s
	switch {
	case q < 3:
		// A failure resets progress even inside the consolidation window.
		next.Reps = 0
		next.IntervalDays = 1
		next.Lapses++
	case !consolidation:
		next.Reps++
		next.IntervalDays = p.nextInterval(next.Reps, s.IntervalDays, s.EaseFactor)
		next.EaseFactor = p.nextEase(s.EaseFactor, q)
	}

	reviewed := at
	next.LastReviewAt = &reviewed
	next.DueAt = at.Add(time.Duration(next.IntervalDays) * Day)
	return next
}

// Preview returns the state the card would reach for each possible rating.
func (p Params) Preview(s State, at time.Time) map[domain.Rating]State {
	out := make(map[domain.Rating]State, 4)
	for _, r := range []domain.Rating{domain.Again, domain.Hard, domain.Good, domain.Easy} {
		out[r] = p.Transition(s, r, at)
	}
	return out
}

// nextInterval applies the SM-2 interval schedule for the given rep count.
func (p Params) nextInterval(reps, interval int, ease float64) int {
	var days int
	switch reps {
	case 1:
		days = 1
	case 2:
		days = 6
	default:
		days = int(math.Round(float64(interval) * ease))
	}
	if days < 1 {
		days = 1
	}
	if days > p.MaxIntervalDays {
		days = p.MaxIntervalDays
	}
	return days
}

// nextEase applies the SM-2 ease adjustment, clamped to [MinEase, MaxEase].
func (p Params) nextEase(ease float64, quality int) float64 {
	d := float64(5 - quality)
	ease += 0.1 - d*(0.08+d*0.02)
	return math.Min(p.MaxEase, math.Max(p.MinEase, ease))
}

// Transition applies DefaultParams().Transition.
func Transition(s State, rating domain.Rating, at time.Time) State {
	return DefaultParams().Transition(s, rating, at)
}

// NewState applies DefaultParams().NewState.
func NewState(createdAt time.Time) State {
	return DefaultParams().NewState(createdAt)
}
