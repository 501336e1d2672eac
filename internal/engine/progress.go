package engine

import (
	"sync"
	"time"

	"github.com/scrypster/lorebinders/pkg/types"
)

// Progress reports one unit of work starting within a stage.
type Progress struct {
	Stage   types.Stage `json:"stage"`
	Current int         `json:"current"`
	Total   int         `json:"total"`
	Message string      `json:"message"`
	At      time.Time   `json:"at"`
}

// ProgressFunc receives progress updates. It may be called from several
// goroutines at once during extraction and summarization.
type ProgressFunc func(Progress)

// ProgressRecorder collects progress updates in arrival order.
type ProgressRecorder struct {
	mu     sync.Mutex
	events []Progress
}

// NewProgressRecorder returns an empty recorder.
func NewProgressRecorder() *ProgressRecorder {
	return &ProgressRecorder{}
}

// Record appends p. Pass rec.Record as a ProgressFunc.
func (r *ProgressRecorder) Record(p Progress) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, p)
}

// Events returns a copy of everything recorded so far.
func (r *ProgressRecorder) Events() []Progress {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Progress, len(r.events))
	copy(out, r.events)
	return out
}

// Count returns how many updates were recorded for stage.
func (r *ProgressRecorder) Count(stage types.Stage) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Stage == stage {
			n++
		}
	}
	return n
}
