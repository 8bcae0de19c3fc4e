package media

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/codebuildervaibhav/video-pipeline/internal/types"
)

// Silence detection defaults
const (
	DefaultSilenceNoiseDB     = -50.0
	DefaultSilenceMinDuration = 1.0
)

// Denoise removes broadband noise from the audio track, copying video
func (e *Executor) Denoise(ctx context.Context, input, output string) error {
	e.logger.Info().
		Str("input", input).
		Str("output", output).
		Dur("timeout", e.opts.DenoiseTimeout).
		Msg("reducing noise")

	ctx, cancel := context.WithTimeout(ctx, e.opts.DenoiseTimeout)
	defer cancel()

	return e.Run(ctx, RunOptions{
		Op: "denoise",
		Args: []string{
			"-i", input,
			"-af", "afftdn",
			"-c:v", "copy",
			output,
		},
		LogHandler: func(line string) {
			e.logger.Trace().Str("ffmpeg", line).Msg("denoise")
		},
	})
}

// ExtractAudio writes the audio track of input as mp3
func (e *Executor) ExtractAudio(ctx context.Context, input, output string) error {
	e.logger.Info().
		Str("input", input).
		Str("output", output).
		Msg("extracting audio")

	return e.Run(ctx, RunOptions{
		Op: "extract audio",
		Args: []string{
			"-i", input,
			"-q:a", "0",
			"-map", "a",
			output,
		},
		LogHandler: func(line string) {
			e.logger.Trace().Str("ffmpeg", line).Msg("audio extraction")
		},
	})
}

// ExtractClip copies [start, end] of input into output without re-encoding
func (e *Executor) ExtractClip(ctx context.Context, input, output string, start, end float64) error {
	if start < 0 || end <= start {
		return fmt.Errorf("invalid clip range [%s, %s]", fmtSeconds(start), fmtSeconds(end))
	}

	e.logger.Info().
		Str("input", input).
		Str("output", output).
		Float64("start", start).
		Float64("end", end).
		Msg("extracting clip")

	return e.Run(ctx, RunOptions{
		Op: "extract clip",
		Args: []string{
			"-i", input,
			"-ss", fmtSeconds(start),
			"-to", fmtSeconds(end),
			"-c", "copy",
			output,
		},
	})
}

// DetectSilence finds spans quieter than noiseDB lasting at least minDuration
func (e *Executor) DetectSilence(ctx context.Context, input string, noiseDB, minDuration float64) ([]types.TimeSpan, error) {
	e.logger.Info().
		Str("input", input).
		Float64("noise_db", noiseDB).
		Float64("min_duration", minDuration).
		Msg("detecting silence")

	var (
		mu  sync.Mutex
		out strings.Builder
	)
	err := e.Run(ctx, RunOptions{
		Op: "detect silence",
		Args: []string{
			"-i", input,
			"-af", fmt.Sprintf("silencedetect=n=%sdB:d=%s",
				strconv.FormatFloat(noiseDB, 'f', -1, 64),
				strconv.FormatFloat(minDuration, 'f', -1, 64)),
			"-f", "null",
			"-",
		},
		LogHandler: func(line string) {
			mu.Lock()
			out.WriteString(line)
			out.WriteByte('\n')
			mu.Unlock()
		},
	})
	if err != nil {
		return nil, err
	}

	mu.Lock()
	defer mu.Unlock()
	return parseSilenceOutput(out.String()), nil
}

// parseSilenceOutput pairs silence_start and silence_end markers. A start
// without a matching end is dropped.
func parseSilenceOutput(output string) []types.TimeSpan {
	spans := []types.TimeSpan{}
	var (
		start   float64
		started bool
	)

	for _, line := range strings.Split(output, "\n") {
		if v, ok := markerValue(line, "silence_start:"); ok {
			start, started = v, true
			continue
		}
		if v, ok := markerValue(line, "silence_end:"); ok && started {
			if v > start {
				spans = append(spans, types.TimeSpan{Start: start, End: v})
			}
			started = false
		}
	}
	return spans
}

func markerValue(line, marker string) (float64, bool) {
	idx := strings.Index(line, marker)
	if idx < 0 {
		return 0, false
	}
	fields := strings.Fields(line[idx+len(marker):])
	if len(fields) == 0 {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.TrimSuffix(fields[0], "|"), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
