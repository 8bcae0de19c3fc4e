package queue

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/codebuildervaibhav/video-pipeline/internal/types"
)

// ErrTaskNotFound is returned for unknown task ids
var ErrTaskNotFound = errors.New("task not found")

type record struct {
	mu   sync.Mutex
	task types.Task
}

// Registry holds the live task records. Membership changes take the map
// lock; transitions lock only their own record.
type Registry struct {
	mu    sync.RWMutex
	tasks map[string]*record
	now   func() time.Time
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		tasks: make(map[string]*record),
		now:   time.Now,
	}
}

// Create registers a PENDING task
func (r *Registry) Create(id, videoURL string) types.Task {
	now := r.now()
	rec := &record{task: types.Task{
		ID:        id,
		VideoURL:  videoURL,
		Status:    types.StatusPending,
		Progress:  types.StageProgress[types.StatusPending],
		Message:   "Task created.",
		CreatedAt: now,
		UpdatedAt: now,
	}}

	r.mu.Lock()
	r.tasks[id] = rec
	r.mu.Unlock()
	return rec.task
}

func (r *Registry) lookup(id string) (*record, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.tasks[id]
	return rec, ok
}

// Get returns a snapshot of the task
func (r *Registry) Get(id string) (types.Task, bool) {
	rec, ok := r.lookup(id)
	if !ok {
		return types.Task{}, false
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return rec.task, true
}

// Update moves a task to status. Progress comes from the stage table and
// never decreases. Terminal tasks are not changed.
func (r *Registry) Update(id, status, message string) error {
	return r.mutate(id, func(t *types.Task) {
		t.Status = status
		t.Message = message
		if p, ok := types.StageProgress[status]; ok && p > t.Progress {
			t.Progress = p
		}
	})
}

// Complete attaches the result and marks the task COMPLETED
func (r *Registry) Complete(id string, result *types.Result, message string) error {
	return r.mutate(id, func(t *types.Task) {
		t.Status = types.StatusCompleted
		t.Progress = types.StageProgress[types.StatusCompleted]
		t.Message = message
		t.Result = result
	})
}

// Fail marks the task FAILED with the cause in its message. Progress keeps
// its last value.
func (r *Registry) Fail(id string, cause error) error {
	return r.mutate(id, func(t *types.Task) {
		t.Status = types.StatusFailed
		t.Message = "Task failed."
		if cause != nil {
			t.Message = "Task failed: " + cause.Error()
			t.Error = cause.Error()
		}
	})
}

func (r *Registry) mutate(id string, fn func(t *types.Task)) error {
	rec, ok := r.lookup(id)
	if !ok {
		return ErrTaskNotFound
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if types.IsTerminal(rec.task.Status) {
		return nil
	}
	fn(&rec.task)
	rec.task.UpdatedAt = r.now()
	return nil
}

// List returns snapshots of every task, newest first
func (r *Registry) List() []types.Task {
	r.mu.RLock()
	recs := make([]*record, 0, len(r.tasks))
	for _, rec := range r.tasks {
		recs = append(recs, rec)
	}
	r.mu.RUnlock()

	out := make([]types.Task, 0, len(recs))
	for _, rec := range recs {
		rec.mu.Lock()
		out = append(out, rec.task)
		rec.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// PruneTerminal evicts finished tasks last updated before maxAge ago and
// returns how many were removed
func (r *Registry) PruneTerminal(maxAge time.Duration) int {
	cutoff := r.now().Add(-maxAge)

	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, rec := range r.tasks {
		rec.mu.Lock()
		expired := types.IsTerminal(rec.task.Status) && rec.task.UpdatedAt.Before(cutoff)
		rec.mu.Unlock()
		if expired {
			delete(r.tasks, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of registered tasks
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tasks)
}
