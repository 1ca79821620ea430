package scheduler

import (
	"time"

	"github.com/conorfennell/knolvocab/internal/index"
)

// Summary counts the cards of an index by learning stage.
type Summary struct {
	Total    int
	Due      int
	New      int
	Learning int // reviewed, interval below srs.MatureIntervalDays
	Mature   int
}

// Stats summarizes idx at now.
func Stats(idx *index.Index, now time.Time) Summary {
	sum := Summary{Total: idx.Len()}
	for _, id := range idx.Order {
		s := idx.State(id)
		switch {
		case s.IsNew():
			sum.New++
		case s.IsMature():
			sum.Mature++
		default:
			sum.Learning++
		}
		if s.IsDue(now) {
			sum.Due++
		}
	}
	return sum
}
