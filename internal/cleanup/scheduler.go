package cleanup

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// TaskPruner evicts finished tasks older than maxAge
type TaskPruner interface {
	PruneTerminal(maxAge time.Duration) int
}

// Config configures the Scheduler
type Config struct {
	Dirs          []string
	Interval      time.Duration
	MaxAge        time.Duration
	TaskRetention time.Duration
}

// Scheduler periodically removes stale temp files and workspaces and
// evicts old finished tasks from the registry
type Scheduler struct {
	cfg      Config
	tasks    TaskPruner
	logger   zerolog.Logger
	stopChan chan struct{}
	stopOnce sync.Once
	now      func() time.Time
}

// NewScheduler creates a new cleanup scheduler. tasks may be nil.
func NewScheduler(cfg Config, tasks TaskPruner, logger zerolog.Logger) *Scheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Minute
	}
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = 24 * time.Hour
	}
	return &Scheduler{
		cfg:      cfg,
		tasks:    tasks,
		logger:   logger.With().Str("component", "cleanup").Logger(),
		stopChan: make(chan struct{}),
		now:      time.Now,
	}
}

// Start runs one sweep and then sweeps on every interval until Stop
func (s *Scheduler) Start() {
	s.logger.Info().Msg("running initial temp file cleanup")
	s.Sweep()

	ticker := time.NewTicker(s.cfg.Interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.Sweep()
			case <-s.stopChan:
				return
			}
		}
	}()

	s.logger.Info().
		Dur("interval", s.cfg.Interval).
		Dur("max_age", s.cfg.MaxAge).
		Msg("cleanup scheduler started")
}

// Stop stops the cleanup scheduler
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
		s.logger.Info().Msg("cleanup scheduler stopped")
	})
}

// Sweep removes old entries from every configured directory and prunes the
// task registry
func (s *Scheduler) Sweep() {
	var (
		deletedCount int
		deletedSize  int64
	)
	for _, dir := range s.cfg.Dirs {
		n, size := s.cleanDir(dir)
		deletedCount += n
		deletedSize += size
	}
	if deletedCount > 0 {
		s.logger.Info().
			Int("deleted", deletedCount).
			Float64("freed_mb", float64(deletedSize)/(1024*1024)).
			Msg("cleanup complete")
	}

	if s.tasks != nil && s.cfg.TaskRetention > 0 {
		if n := s.tasks.PruneTerminal(s.cfg.TaskRetention); n > 0 {
			s.logger.Info().Int("tasks", n).Msg("evicted finished tasks")
		}
	}
}

// cleanDir removes top-level entries older than MaxAge. Workspaces are
// directories, so a stale one goes as a whole.
func (s *Scheduler) cleanDir(dir string) (int, int64) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn().Err(err).Str("dir", dir).Msg("failed to read directory")
		}
		return 0, 0
	}

	now := s.now()
	var (
		count int
		size  int64
	)
	for _, entry := range entries {
		info, err := entry.Info()
		if err != nil {
			continue
		}
		age := now.Sub(info.ModTime())
		if age <= s.cfg.MaxAge {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		entrySize := info.Size()
		if entry.IsDir() {
			entrySize = dirSize(path)
		}
		if err := os.RemoveAll(path); err != nil {
			s.logger.Warn().Err(err).Str("path", path).Msg("failed to delete old entry")
			continue
		}
		count++
		size += entrySize
		s.logger.Debug().
			Str("path", path).
			Dur("age", age.Round(time.Hour)).
			Int64("size_kb", entrySize/1024).
			Msg("deleted old temp entry")
	}
	return count, size
}

func dirSize(dir string) int64 {
	var total int64
	filepath.Walk(dir, func(_ string, info os.FileInfo, err error) error {
		if err == nil && !info.IsDir() {
			total += info.Size()
		}
		return nil
	})
	return total
}

// EnsureDirs creates the given directories if they don't exist
func EnsureDirs(dirs ...string) error {
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return nil
}
