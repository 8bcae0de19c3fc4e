package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/codebuildervaibhav/video-pipeline/internal/types"
)

func TestRegistry_ProgressIsMonotonic(t *testing.T) {
	r := NewRegistry()
	r.Create("t1", "https://example.com/v.mp4")

	r.Update("t1", types.StatusTranscribing, "Transcribing.")
	r.Update("t1", types.StatusNoiseReduction, "out of order")

	task, ok := r.Get("t1")
	if !ok {
		t.Fatal("task missing")
	}
	if task.Progress != 60 {
		t.Fatalf("progress decreased to %d", task.Progress)
	}
	if task.Status != types.StatusNoiseReduction {
		t.Fatalf("status not applied: %s", task.Status)
	}
}

func TestRegistry_TerminalIsFinal(t *testing.T) {
	r := NewRegistry()
	r.Create("t1", "")
	r.Update("t1", types.StatusDownloading, "Downloading.")
	r.Fail("t1", errors.New("boom"))
	r.Update("t1", types.StatusTranscribing, "late")
	r.Complete("t1", &types.Result{}, "late")

	task, _ := r.Get("t1")
	if task.Status != types.StatusFailed || task.Error != "boom" || task.Progress != 10 {
		t.Fatalf("unexpected terminal record: %+v", task)
	}
	if task.Result != nil {
		t.Fatal("failed task gained a result")
	}
}

func TestRegistry_FailMessageCarriesCause(t *testing.T) {
	r := NewRegistry()
	r.Create("t1", "")
	r.Create("t2", "")
	r.Fail("t1", errors.New("download failed: 404"))
	r.Fail("t2", nil)

	task, _ := r.Get("t1")
	if task.Message != "Task failed: download failed: 404" {
		t.Fatalf("message = %q", task.Message)
	}
	if task, _ := r.Get("t2"); task.Message != "Task failed." || task.Error != "" {
		t.Fatalf("nil cause: %+v", task)
	}
}

func TestRegistry_UnknownTask(t *testing.T) {
	r := NewRegistry()
	if err := r.Update("missing", types.StatusDownloading, ""); !errors.Is(err, ErrTaskNotFound) {
		t.Fatalf("expected ErrTaskNotFound, got %v", err)
	}
	if _, ok := r.Get("missing"); ok {
		t.Fatal("unexpected task")
	}
}

func TestRegistry_ListAndPrune(t *testing.T) {
	r := NewRegistry()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := base
	r.now = func() time.Time { return clock }

	r.Create("old", "")
	r.Complete("old", &types.Result{}, "done")
	clock = base.Add(time.Hour)
	r.Create("new", "")
	clock = base.Add(48 * time.Hour)
	r.Create("newest-running", "")

	list := r.List()
	if len(list) != 3 || list[0].ID != "newest-running" || list[2].ID != "old" {
		t.Fatalf("unexpected order: %+v", list)
	}

	if n := r.PruneTerminal(24 * time.Hour); n != 1 {
		t.Fatalf("expected 1 pruned, got %d", n)
	}
	if _, ok := r.Get("old"); ok {
		t.Fatal("old terminal task survived pruning")
	}
	if r.Len() != 2 {
		t.Fatalf("expected 2 tasks left, got %d", r.Len())
	}
}

func TestRegistry_ConcurrentUpdates(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		id := fmt.Sprintf("t%d", i)
		r.Create(id, "")
		wg.Add(1)
		go func() {
			defer wg.Done()
			for _, s := range []string{types.StatusDownloading, types.StatusDownloaded, types.StatusTranscribing} {
				r.Update(id, s, s)
				r.Get(id)
				r.List()
			}
			r.Complete(id, &types.Result{}, "done")
		}()
	}
	wg.Wait()
	for _, task := range r.List() {
		if task.Status != types.StatusCompleted || task.Progress != 100 {
			t.Fatalf("unexpected record %+v", task)
		}
	}
}

type processorFunc func(ctx context.Context, job *Job) error

func (f processorFunc) Process(ctx context.Context, job *Job) error { return f(ctx, job) }

type memHistory struct {
	mu    sync.Mutex
	saved map[string]types.Task
}

func (h *memHistory) SaveTask(ctx context.Context, task types.Task) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.saved == nil {
		h.saved = make(map[string]types.Task)
	}
	h.saved[task.ID] = task
	return nil
}

func TestWorkerPool_SubmitCompletes(t *testing.T) {
	r := NewRegistry()
	hist := &memHistory{}
	proc := processorFunc(func(ctx context.Context, job *Job) error {
		if !job.Recipe.Transcribe {
			return errors.New("recipe not passed through")
		}
		r.Update(job.ID, types.StatusDownloading, "Downloading.")
		return r.Complete(job.ID, &types.Result{FinalVideoPath: "out.mp4"}, "done")
	})
	wp := NewWorkerPool(2, r, proc, hist, zerolog.Nop())

	id := wp.Submit("https://example.com/v.mp4", types.DefaultRecipe())
	if id == "" {
		t.Fatal("empty task id")
	}
	if err := wp.Stop(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}

	task, _ := r.Get(id)
	if task.Status != types.StatusCompleted || task.Result.FinalVideoPath != "out.mp4" {
		t.Fatalf("unexpected task %+v", task)
	}
	if hist.saved[id].Status != types.StatusCompleted {
		t.Fatalf("terminal snapshot not persisted: %+v", hist.saved)
	}
}

func TestWorkerPool_ErrorAndPanicFailTask(t *testing.T) {
	r := NewRegistry()
	proc := processorFunc(func(ctx context.Context, job *Job) error {
		if job.VideoURL == "panic" {
			panic("kaboom")
		}
		return errors.New("download failed")
	})
	wp := NewWorkerPool(0, r, proc, nil, zerolog.Nop())

	errID := wp.Submit("error", types.Recipe{})
	panicID := wp.Submit("panic", types.Recipe{})
	wp.Stop(context.Background())

	if task, _ := r.Get(errID); task.Status != types.StatusFailed || task.Error != "download failed" || task.Message != "Task failed: download failed" {
		t.Fatalf("unexpected error task %+v", task)
	}
	if task, _ := r.Get(panicID); task.Status != types.StatusFailed || task.Error != "worker panic: kaboom" {
		t.Fatalf("unexpected panic task %+v", task)
	}
}

func TestWorkerPool_BoundsConcurrency(t *testing.T) {
	r := NewRegistry()
	var (
		mu      sync.Mutex
		current int
		peak    int
	)
	proc := processorFunc(func(ctx context.Context, job *Job) error {
		mu.Lock()
		current++
		if current > peak {
			peak = current
		}
		mu.Unlock()
		time.Sleep(20 * time.Millisecond)
		mu.Lock()
		current--
		mu.Unlock()
		return r.Complete(job.ID, &types.Result{}, "done")
	})
	wp := NewWorkerPool(2, r, proc, nil, zerolog.Nop())
	for i := 0; i < 6; i++ {
		wp.Submit("v", types.Recipe{})
	}
	wp.Stop(context.Background())

	if peak > 2 {
		t.Fatalf("expected at most 2 concurrent jobs, saw %d", peak)
	}
}

func TestWorkerPool_StopCancelsOnDeadline(t *testing.T) {
	r := NewRegistry()
	proc := processorFunc(func(ctx context.Context, job *Job) error {
		<-ctx.Done()
		return ctx.Err()
	})
	wp := NewWorkerPool(1, r, proc, nil, zerolog.Nop())
	id := wp.Submit("v", types.Recipe{})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := wp.Stop(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
	if task, _ := r.Get(id); task.Status != types.StatusFailed {
		t.Fatalf("cancelled task not failed: %+v", task)
	}
}
