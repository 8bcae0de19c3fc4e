package queue

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/codebuildervaibhav/video-pipeline/internal/types"
)

// Processor runs the pipeline for one job, reporting through the registry
type Processor interface {
	Process(ctx context.Context, job *Job) error
}

// History persists terminal task snapshots
type History interface {
	SaveTask(ctx context.Context, task types.Task) error
}

// WorkerPool launches one goroutine per submitted job. workerCount bounds
// how many process at once; 0 means unbounded.
type WorkerPool struct {
	registry  *Registry
	processor Processor
	history   History
	sem       chan struct{}
	logger    zerolog.Logger

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running atomic.Int32
}

// NewWorkerPool creates a worker pool. history may be nil.
func NewWorkerPool(workerCount int, registry *Registry, processor Processor, history History, logger zerolog.Logger) *WorkerPool {
	ctx, cancel := context.WithCancel(context.Background())
	wp := &WorkerPool{
		registry:  registry,
		processor: processor,
		history:   history,
		logger:    logger.With().Str("component", "worker_pool").Logger(),
		ctx:       ctx,
		cancel:    cancel,
	}
	if workerCount > 0 {
		wp.sem = make(chan struct{}, workerCount)
	}
	wp.logger.Info().Int("workers", workerCount).Msg("worker pool ready")
	return wp
}

// Submit registers a task and starts processing it in the background. The
// task id is returned immediately.
func (wp *WorkerPool) Submit(videoURL string, recipe types.Recipe) string {
	job := NewJob(videoURL, recipe)
	wp.registry.Create(job.ID, videoURL)

	wp.wg.Add(1)
	go wp.worker(job)

	wp.logger.Info().Str("task_id", job.ID).Str("video_url", videoURL).Msg("task submitted")
	return job.ID
}

// Running returns the number of jobs currently processing
func (wp *WorkerPool) Running() int {
	return int(wp.running.Load())
}

func (wp *WorkerPool) worker(job *Job) {
	defer wp.wg.Done()
	log := wp.logger.With().Str("task_id", job.ID).Logger()

	if wp.sem != nil {
		select {
		case wp.sem <- struct{}{}:
			defer func() { <-wp.sem }()
		case <-wp.ctx.Done():
			wp.registry.Fail(job.ID, fmt.Errorf("server shutting down"))
			wp.persist(job.ID)
			return
		}
	}

	wp.running.Add(1)
	defer wp.running.Add(-1)

	func() {
		defer func() {
			if r := recover(); r != nil {
				log.Error().Interface("panic", r).Str("stack", string(debug.Stack())).Msg("panic processing task")
				wp.registry.Fail(job.ID, fmt.Errorf("worker panic: %v", r))
			}
		}()

		if err := wp.processor.Process(wp.ctx, job); err != nil {
			log.Error().Err(err).Msg("task failed")
			wp.registry.Fail(job.ID, err)
		}
	}()

	wp.persist(job.ID)
}

func (wp *WorkerPool) persist(id string) {
	if wp.history == nil {
		return
	}
	task, ok := wp.registry.Get(id)
	if !ok {
		return
	}
	if err := wp.history.SaveTask(context.Background(), task); err != nil {
		wp.logger.Warn().Err(err).Str("task_id", id).Msg("failed to save task history")
	}
}

// Stop waits for running tasks to finish. When ctx expires first the
// running tasks are cancelled and ctx's error is returned once they exit.
func (wp *WorkerPool) Stop(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		wp.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		wp.cancel()
		return nil
	case <-ctx.Done():
		wp.logger.Warn().Int("running", wp.Running()).Msg("shutdown deadline reached, cancelling tasks")
		wp.cancel()
		<-done
		return ctx.Err()
	}
}
