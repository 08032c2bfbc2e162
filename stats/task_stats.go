// Package stats tracks per-task bookkeeping — id, kind, file name,
// start/end time, bytes and block counts, success — for the CLI to
// read back through the coordinator's Stats snapshot.
//
// Grounded directly on stats/xaction_stats.go's BaseXactStats: same
// field set and the same Running()/Finished() derived-from-EndTime
// idiom, with the bucket-specific fields (Bck) dropped since this
// system has no bucket concept.
package stats

import (
	"sync"
	"time"
)

// TaskStats is one task's lifecycle record.
type TaskStats struct {
	IDX         string    `json:"id"`
	KindX       string    `json:"kind"`
	NameX       string    `json:"name"`
	StartTimeX  time.Time `json:"start_time"`
	EndTimeX    time.Time `json:"end_time"`
	BlockCountX int64     `json:"block_count,string"`
	BytesCountX int64     `json:"bytes_count,string"`
	SuccessX    bool      `json:"success"`
}

func (s *TaskStats) ID() string           { return s.IDX }
func (s *TaskStats) Kind() string         { return s.KindX }
func (s *TaskStats) Name() string         { return s.NameX }
func (s *TaskStats) StartTime() time.Time { return s.StartTimeX }
func (s *TaskStats) EndTime() time.Time   { return s.EndTimeX }
func (s *TaskStats) BlockCount() int64    { return s.BlockCountX }
func (s *TaskStats) BytesCount() int64    { return s.BytesCountX }
func (s *TaskStats) Success() bool        { return s.SuccessX }
func (s *TaskStats) Running() bool        { return s.EndTimeX.IsZero() }
func (s *TaskStats) Finished() bool       { return !s.EndTimeX.IsZero() }

// Registry is a thread-safe table of TaskStats keyed by task id. The
// coordinator is its only writer; the CLI and any future UI only read
// snapshots.
type Registry struct {
	mu   sync.Mutex
	byID map[string]*TaskStats
}

// NewRegistry creates an empty task stats registry.
func NewRegistry() *Registry {
	return &Registry{byID: make(map[string]*TaskStats, 16)}
}

// Start records a task beginning at now.
func (r *Registry) Start(id, kind, name string, now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[id] = &TaskStats{IDX: id, KindX: kind, NameX: name, StartTimeX: now}
}

// Finish records a task's completion.
func (r *Registry) Finish(id string, blockCount int, bytesCount int64, success bool, now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byID[id]
	if !ok {
		s = &TaskStats{IDX: id}
		r.byID[id] = s
	}
	s.EndTimeX = now
	s.BlockCountX = int64(blockCount)
	s.BytesCountX = bytesCount
	s.SuccessX = success
}

// Snapshot returns a copy of every tracked task's current stats.
func (r *Registry) Snapshot() []TaskStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]TaskStats, 0, len(r.byID))
	for _, s := range r.byID {
		out = append(out, *s)
	}
	return out
}

// Prune removes finished entries older than age relative to now,
// keeping the registry from growing without bound across a long-lived
// coordinator process.
func (r *Registry) Prune(now time.Time, age time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, s := range r.byID {
		if s.Finished() && now.Sub(s.EndTimeX) > age {
			delete(r.byID, id)
		}
	}
}
