// Package media maps keep sets and caption overlays onto ffmpeg requests
// and runs them.
package media

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Default encoding settings
const (
	DefaultVideoCodec     = "libx264"
	DefaultPreset         = "medium"
	DefaultCRF            = 23
	DefaultAudioCodec     = "aac"
	DefaultDenoiseTimeout = 300 * time.Second

	// lines of engine output kept for error reports
	logTailLines = 40
)

// ErrEngineNotFound is returned when ffmpeg or ffprobe cannot be located
var ErrEngineNotFound = errors.New("media engine not found")

// EngineError is a failed ffmpeg/ffprobe invocation
type EngineError struct {
	Op  string
	Err error
	Log string
}

func (e *EngineError) Error() string {
	if e.Log == "" {
		return fmt.Sprintf("ffmpeg %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("ffmpeg %s: %v\n%s", e.Op, e.Err, e.Log)
}

func (e *EngineError) Unwrap() error { return e.Err }

// Options configures an Executor. Empty paths are resolved from PATH.
type Options struct {
	FFmpegPath     string
	FFprobePath    string
	Threads        int
	VideoCodec     string
	Preset         string
	CRF            int
	AudioCodec     string
	DenoiseTimeout time.Duration
}

// Executor runs ffmpeg and ffprobe
type Executor struct {
	logger      zerolog.Logger
	ffmpegPath  string
	ffprobePath string
	opts        Options
}

// New creates an executor, locating the binaries up front
func New(logger zerolog.Logger, opts Options) (*Executor, error) {
	ffmpegPath, err := lookPath(opts.FFmpegPath, "ffmpeg")
	if err != nil {
		return nil, err
	}
	ffprobePath, err := lookPath(opts.FFprobePath, "ffprobe")
	if err != nil {
		return nil, err
	}

	if opts.VideoCodec == "" {
		opts.VideoCodec = DefaultVideoCodec
	}
	if opts.Preset == "" {
		opts.Preset = DefaultPreset
	}
	if opts.CRF <= 0 {
		opts.CRF = DefaultCRF
	}
	if opts.AudioCodec == "" {
		opts.AudioCodec = DefaultAudioCodec
	}
	if opts.DenoiseTimeout <= 0 {
		opts.DenoiseTimeout = DefaultDenoiseTimeout
	}

	return &Executor{
		logger:      logger.With().Str("component", "ffmpeg").Logger(),
		ffmpegPath:  ffmpegPath,
		ffprobePath: ffprobePath,
		opts:        opts,
	}, nil
}

func lookPath(configured, name string) (string, error) {
	if configured == "" {
		configured = name
	}
	p, err := exec.LookPath(configured)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrEngineNotFound, name, err)
	}
	return p, nil
}

// Progress is one ffmpeg progress block
type Progress struct {
	Frame int
	Time  string
	Speed string
}

// RunOptions configures one ffmpeg execution
type RunOptions struct {
	Op              string
	Args            []string
	ProgressHandler func(*Progress)
	LogHandler      func(line string)
}

// Run executes ffmpeg with the given arguments and streams its output.
// A failure is returned as *EngineError carrying the tail of the log.
func (e *Executor) Run(ctx context.Context, opts RunOptions) error {
	if len(opts.Args) == 0 {
		return fmt.Errorf("no arguments provided")
	}

	baseArgs := []string{"-y", "-hide_banner", "-loglevel", "info"}
	if e.opts.Threads > 0 {
		baseArgs = append(baseArgs, "-threads", fmt.Sprintf("%d", e.opts.Threads))
	}
	baseArgs = append(baseArgs, "-progress", "pipe:2")
	args := append(baseArgs, opts.Args...)

	e.logger.Debug().
		Str("op", opts.Op).
		Strs("args", args).
		Msg("executing ffmpeg")

	cmd := exec.CommandContext(ctx, e.ffmpegPath, args...)

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("failed to create stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return &EngineError{Op: opts.Op, Err: err}
	}

	// stderr must be drained before Wait
	tail := newLogTail(logTailLines)
	streamOutput(stderr, tail, opts.ProgressHandler, opts.LogHandler)

	if err := cmd.Wait(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &EngineError{Op: opts.Op, Err: err, Log: tail.String()}
	}

	e.logger.Debug().Str("op", opts.Op).Msg("ffmpeg execution completed")
	return nil
}

// streamOutput splits ffmpeg stderr into progress blocks and log lines
func streamOutput(r io.Reader, tail *logTail, progressHandler func(*Progress), logHandler func(string)) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	progress := &Progress{}

	for scanner.Scan() {
		line := scanner.Text()

		switch {
		case strings.HasPrefix(line, "frame="):
			fmt.Sscanf(line, "frame=%d", &progress.Frame)
		case strings.HasPrefix(line, "out_time="):
			progress.Time = strings.TrimPrefix(line, "out_time=")
		case strings.HasPrefix(line, "speed="):
			progress.Speed = strings.TrimSpace(strings.TrimPrefix(line, "speed="))
		case strings.HasPrefix(line, "progress="):
			if progressHandler != nil {
				progressHandler(progress)
			}
			progress = &Progress{}
		case isProgressKey(line):
			// other progress keys carry nothing we report
		default:
			tail.Add(line)
			if logHandler != nil {
				logHandler(line)
			}
		}
	}
}

var progressKeys = []string{
	"fps=", "stream_", "bitrate=", "total_size=", "out_time_us=", "out_time_ms=",
	"dup_frames=", "drop_frames=",
}

func isProgressKey(line string) bool {
	for _, k := range progressKeys {
		if strings.HasPrefix(line, k) {
			return true
		}
	}
	return false
}

// logTail keeps the last n lines written to it
type logTail struct {
	mu    sync.Mutex
	lines []string
	max   int
}

func newLogTail(n int) *logTail {
	return &logTail{max: n}
}

func (t *logTail) Add(line string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lines = append(t.lines, line)
	if len(t.lines) > t.max {
		t.lines = t.lines[len(t.lines)-t.max:]
	}
}

func (t *logTail) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return strings.Join(t.lines, "\n")
}
