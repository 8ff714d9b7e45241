package metrics

import (
	"sync"

	"go.uber.org/atomic"

	"interview-engine/pkg/models"
)

// Tracker sequences frame analyses so results are applied in capture
// order. Analyses may complete out of order; a completion for a frame
// older than the last applied one is dropped, never letting a stale
// label overwrite a newer one. It also tallies applied labels so a
// dominant emotion can be reported per question.
type Tracker struct {
	nextSeq atomic.Uint64

	mu       sync.Mutex
	applied  uint64
	smoother *Smoother
	counts   map[models.Emotion]int
}

func NewTracker(blend float64) *Tracker {
	return &Tracker{
		smoother: NewSmoother(blend),
		counts:   make(map[models.Emotion]int),
	}
}

// NextSeq assigns a sequence number at frame capture time. Safe to call
// from any goroutine.
func (t *Tracker) NextSeq() uint64 {
	return t.nextSeq.Add(1)
}

// Commit applies an analysis result for the frame with the given
// sequence number. It returns the resulting metrics and whether the
// result was applied; stale completions report false.
func (t *Tracker) Commit(seq uint64, det *models.Detection) (models.FaceMetrics, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if seq <= t.applied {
		return t.smoother.Current(), false
	}
	t.applied = seq

	m := t.smoother.Apply(det)
	if det != nil {
		t.counts[m.Emotion]++
	}
	return m, true
}

// Current returns the latest metrics.
func (t *Tracker) Current() models.FaceMetrics {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.smoother.Current()
}

// Dominant returns the most frequently applied label since the last reset.
func (t *Tracker) Dominant() models.Emotion {
	t.mu.Lock()
	defer t.mu.Unlock()

	var (
		best  models.Emotion
		bestN int
	)
	for label, n := range t.counts {
		if n > bestN {
			best, bestN = label, n
		}
	}
	return best
}

// ResetWindow clears the dominant-label tally for a new question. The
// smoothed confidence carries over; the sequence ordering does too.
func (t *Tracker) ResetWindow() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.counts = make(map[models.Emotion]int)
}
