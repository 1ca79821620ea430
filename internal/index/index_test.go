package index

import (
	"slices"
	"testing"
	"time"

	"github.com/conorfennell/knolvocab/internal/domain"
	"github.com/conorfennell/knolvocab/internal/srs"
)

var t0 = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

func mutation(id string, version int, deleted bool, front string, created time.Time) domain.CardMutation {
	return domain.CardMutation{
		ID:        id,
		Front:     front,
		Back:      front + " (back)",
		CreatedAt: created,
		UpdatedAt: created.Add(time.Duration(version) * time.Minute),
		Version:   version,
		Deleted:   deleted,
	}
}

func event(cardID string, rating domain.Rating, at time.Time) domain.ReviewEvent {
	return domain.ReviewEvent{ID: cardID + at.String(), CardID: cardID, Rating: rating, ReviewedAt: at, Mode: domain.Recognize}
}

func TestProject(t *testing.T) {
	testCases := []struct {
		name      string
		mutations []domain.CardMutation
		wantLive  map[string]string // id -> front
	}{
		{
			name: "latest version wins regardless of order",
			mutations: []domain.CardMutation{
				mutation("a", 3, false, "third", t0),
				mutation("a", 1, false, "first", t0),
				mutation("a", 2, false, "second", t0),
			},
			wantLive: map[string]string{"a": "third"},
		},
		{
			name: "deleted latest removes the card",
			mutations: []domain.CardMutation{
				mutation("a", 1, false, "first", t0),
				mutation("a", 2, true, "first", t0),
				mutation("b", 1, false, "other", t0),
			},
			wantLive: map[string]string{"b": "other"},
		},
		{
			name: "soft delete then restore",
			mutations: []domain.CardMutation{
				mutation("a", 1, false, "v1", t0),
				mutation("a", 2, true, "v1", t0),
				mutation("a", 3, false, "v3", t0),
			},
			wantLive: map[string]string{"a": "v3"},
		},
		{
			name:      "empty log",
			mutations: nil,
			wantLive:  map[string]string{},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cards := Project(tc.mutations)
			if len(cards) != len(tc.wantLive) {
				t.Fatalf("Expected %d live cards, got %d", len(tc.wantLive), len(cards))
			}
			for id, front := range tc.wantLive {
				c, ok := cards[id]
				if !ok {
					t.Fatalf("Expected card %q to be live", id)
				}
				if c.Front != front {
					t.Errorf("Expected card %q front %q, got %q", id, front, c.Front)
				}
			}
		})
	}
}

func TestProjectRestoreIsReplaceNotMerge(t *testing.T) {
	v1 := mutation("a", 1, false, "v1", t0)
	v1.Tags = []string{"verbs"}
	v2 := mutation("a", 2, true, "v1", t0)
	v3 := mutation("a", 3, false, "v3", t0)

	c := Project([]domain.CardMutation{v1, v2, v3})["a"]
	if len(c.Tags) != 0 {
		t.Errorf("Expected restored card to carry only its own tags, got %v", c.Tags)
	}
	if c.Version != 3 {
		t.Errorf("Expected version 3, got %d", c.Version)
	}
}

func TestLatestEqualVersions(t *testing.T) {
	early := mutation("a", 2, false, "early", t0)
	late := mutation("a", 2, false, "late", t0)
	late.UpdatedAt = early.UpdatedAt.Add(time.Second)

	for _, order := range [][]domain.CardMutation{{early, late}, {late, early}} {
		if got := Latest(order)["a"].Front; got != "late" {
			t.Errorf("Expected later UpdatedAt to win, got %q", got)
		}
	}

	first := mutation("a", 2, false, "first", t0)
	second := mutation("a", 2, false, "second", t0)
	if got := Latest([]domain.CardMutation{first, second})["a"].Front; got != "second" {
		t.Errorf("Expected the later record in the log to win a full tie, got %q", got)
	}
}

func TestBuild(t *testing.T) {
	mutations := []domain.CardMutation{
		mutation("new-late", 1, false, "new late", t0.Add(2*time.Hour)),
		mutation("new-early", 1, false, "new early", t0.Add(time.Hour)),
		mutation("due-a", 1, false, "due a", t0),
		mutation("due-b", 1, false, "due b", t0),
		mutation("future", 1, false, "future", t0),
		mutation("gone", 1, false, "gone", t0),
		mutation("gone", 2, true, "gone", t0),
	}
	events := []domain.ReviewEvent{
		event("due-a", domain.Good, t0.Add(time.Hour)),
		event("due-b", domain.Good, t0),
		// second success pushes "future" out to t0+7d
		event("future", domain.Good, t0),
		event("future", domain.Good, t0.Add(24*time.Hour)),
		event("gone", domain.Good, t0),
	}
	now := t0.Add(3 * srs.Day)

	idx := Build(mutations, events, now)

	if idx.Len() != 5 {
		t.Fatalf("Expected 5 live cards, got %d", idx.Len())
	}
	if _, ok := idx.States["gone"]; ok {
		t.Error("Expected no state for a deleted card")
	}
	if want := []string{"due-b", "due-a"}; !slices.Equal(idx.Due, want) {
		t.Errorf("Expected due list %v, got %v", want, idx.Due)
	}
	if want := []string{"new-early", "new-late"}; !slices.Equal(idx.New, want) {
		t.Errorf("Expected new list %v, got %v", want, idx.New)
	}
	if slices.Contains(idx.Due, "future") || slices.Contains(idx.New, "future") {
		t.Error("Expected a card scheduled in the future to be neither due nor new")
	}
	if s := idx.State("new-late"); !s.DueAt.Equal(t0.Add(2 * time.Hour)) {
		t.Errorf("Expected new card due at its creation time, got %v", s.DueAt)
	}
}

func TestBuildLapsedCardIsNew(t *testing.T) {
	mutations := []domain.CardMutation{mutation("a", 1, false, "a", t0)}
	events := []domain.ReviewEvent{
		event("a", domain.Good, t0),
		event("a", domain.Again, t0.Add(2*srs.Day)),
	}
	idx := Build(mutations, events, t0.Add(10*srs.Day))
	if !slices.Equal(idx.New, []string{"a"}) {
		t.Errorf("Expected the lapsed card in the new list, got %v", idx.New)
	}
	if len(idx.Due) != 0 {
		t.Errorf("Expected no due cards, got %v", idx.Due)
	}
}

func TestBuildIsIdempotent(t *testing.T) {
	mutations := []domain.CardMutation{
		mutation("a", 1, false, "a", t0),
		mutation("b", 1, false, "b", t0),
		mutation("c", 1, false, "c", t0.Add(time.Minute)),
	}
	events := []domain.ReviewEvent{
		event("a", domain.Good, t0),
		event("b", domain.Hard, t0),
		event("a", domain.Easy, t0.Add(2*srs.Day)),
	}
	now := t0.Add(20 * srs.Day)

	first := Build(mutations, events, now)
	second := Build(mutations, events, now)

	if !slices.Equal(first.Order, second.Order) || !slices.Equal(first.Due, second.Due) || !slices.Equal(first.New, second.New) {
		t.Fatalf("Expected identical lists, got %v/%v/%v and %v/%v/%v",
			first.Order, first.Due, first.New, second.Order, second.Due, second.New)
	}
	for id, s := range first.States {
		o := second.States[id]
		if s.Reps != o.Reps || s.IntervalDays != o.IntervalDays || s.EaseFactor != o.EaseFactor || !s.DueAt.Equal(o.DueAt) {
			t.Errorf("State for %q differs between builds: %+v vs %+v", id, s, o)
		}
	}
}

func TestDueAtLaterInstant(t *testing.T) {
	mutations := []domain.CardMutation{mutation("a", 1, false, "a", t0)}
	events := []domain.ReviewEvent{event("a", domain.Good, t0)}

	idx := Build(mutations, events, t0.Add(time.Hour))
	if len(idx.Due) != 0 {
		t.Fatalf("Expected no due cards at build time, got %v", idx.Due)
	}
	if got := idx.DueAt(t0.Add(srs.Day)); !slices.Equal(got, []string{"a"}) {
		t.Errorf("Expected card due exactly at DueAt, got %v", got)
	}
}

func TestIndexPanicsOnUnknownID(t *testing.T) {
	idx := Build(nil, nil, t0)
	defer func() {
		if recover() == nil {
			t.Error("Expected a panic for an ID that is not in the index")
		}
	}()
	idx.Card("missing")
}
