package srs

import (
	"math"
	"testing"
	"time"

	"github.com/conorfennell/knolvocab/internal/domain"
)

func review(rating domain.Rating, at time.Time) domain.ReviewEvent {
	return domain.ReviewEvent{CardID: "c1", Rating: rating, ReviewedAt: at, Mode: domain.Recognize}
}

func TestReplayEmpty(t *testing.T) {
	created := t0.Add(-48 * time.Hour)
	s := Replay(nil, created)
	if s.Reps != 0 || s.IntervalDays != 0 {
		t.Errorf("Expected a new card, got %+v", s)
	}
	if !s.DueAt.Equal(created) {
		t.Errorf("Expected DueAt to be the creation time %v, got %v", created, s.DueAt)
	}
}

func TestReplayMatchesFold(t *testing.T) {
	events := []domain.ReviewEvent{
		review(domain.Good, t0),
		review(domain.Good, t0.Add(Day)),
		review(domain.Again, t0.Add(7*Day)),
		review(domain.Easy, t0.Add(8*Day)),
	}

	want := NewState(t0)
	for _, e := range events {
		want = Transition(want, e.Rating, e.ReviewedAt)
	}

	got := Replay(events, t0)
	assertSameState(t, got, want)
}

func TestReplayIsDeterministic(t *testing.T) {
	events := []domain.ReviewEvent{
		review(domain.Hard, t0),
		review(domain.Good, t0.Add(2*Day)),
		review(domain.Good, t0.Add(2*Day+5*time.Minute)),
		review(domain.Easy, t0.Add(9*Day)),
	}
	assertSameState(t, Replay(events, t0), Replay(events, t0))
}

func TestReplaySortsByTimestamp(t *testing.T) {
	ordered := []domain.ReviewEvent{
		review(domain.Good, t0),
		review(domain.Again, t0.Add(Day)),
		review(domain.Good, t0.Add(3*Day)),
	}
	shuffled := []domain.ReviewEvent{ordered[2], ordered[0], ordered[1]}

	assertSameState(t, Replay(shuffled, t0), Replay(ordered, t0))

	if shuffled[0].ReviewedAt != ordered[2].ReviewedAt {
		t.Error("Replay reordered the caller's slice")
	}
}

func TestRetention(t *testing.T) {
	t.Run("new card", func(t *testing.T) {
		if r := Retention(NewState(t0), t0.Add(Day)); r != 0 {
			t.Errorf("Expected 0 retention for a new card, got %f", r)
		}
	})

	t.Run("just reviewed", func(t *testing.T) {
		s := Transition(NewState(t0), domain.Good, t0)
		assertFloat(t, "Retention", Retention(s, t0), 1)
	})

	t.Run("one interval later", func(t *testing.T) {
		s := Transition(NewState(t0), domain.Good, t0)
		// strength equals one day at ease 2.5
		assertFloat(t, "Retention", Retention(s, t0.Add(Day)), math.Exp(-1))
	})
}

func assertSameState(t *testing.T, got, want State) {
	t.Helper()
	if got.Reps != want.Reps || got.IntervalDays != want.IntervalDays || got.Lapses != want.Lapses {
		t.Errorf("Expected reps=%d interval=%d lapses=%d, got reps=%d interval=%d lapses=%d",
			want.Reps, want.IntervalDays, want.Lapses, got.Reps, got.IntervalDays, got.Lapses)
	}
	if got.EaseFactor != want.EaseFactor {
		t.Errorf("Expected ease %v, got %v", want.EaseFactor, got.EaseFactor)
	}
	if !got.DueAt.Equal(want.DueAt) {
		t.Errorf("Expected DueAt %v, got %v", want.DueAt, got.DueAt)
	}
	if (got.LastReviewAt == nil) != (want.LastReviewAt == nil) ||
		(got.LastReviewAt != nil && !got.LastReviewAt.Equal(*want.LastReviewAt)) {
		t.Errorf("Expected LastReviewAt %v, got %v", want.LastReviewAt, got.LastReviewAt)
	}
}
