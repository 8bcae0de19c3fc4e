package media

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/codebuildervaibhav/video-pipeline/internal/captions"
)

// BurnRequest composites a rendered caption script onto a video. The audio
// stream is copied untouched and only the video is re-encoded.
type BurnRequest struct {
	Video  string
	Output string
	Script string
	Events int
}

// PlanCaptionBurn packages a styled overlay for burning into video
func PlanCaptionBurn(doc *captions.Document, video, output string) *BurnRequest {
	return &BurnRequest{
		Video:  video,
		Output: output,
		Script: doc.String(),
		Events: len(doc.Events),
	}
}

// Args builds the ffmpeg arguments, given where the script was written
func (r *BurnRequest) Args(scriptPath string, enc Options) []string {
	return []string{
		"-i", r.Video,
		"-vf", "ass=" + escapeFilterPath(scriptPath),
		"-c:v", enc.VideoCodec,
		"-preset", enc.Preset,
		"-crf", strconv.Itoa(enc.CRF),
		"-c:a", "copy",
		r.Output,
	}
}

// BurnCaptions writes the script next to the output, runs the burn and
// removes the script again
func (e *Executor) BurnCaptions(ctx context.Context, req *BurnRequest) error {
	e.logger.Info().
		Str("video", req.Video).
		Str("output", req.Output).
		Int("events", req.Events).
		Msg("burning captions")

	script, err := os.CreateTemp(filepath.Dir(req.Output), "captions-*.ass")
	if err != nil {
		return fmt.Errorf("failed to create caption script: %w", err)
	}
	scriptPath := script.Name()
	defer os.Remove(scriptPath)

	if _, err := script.WriteString(req.Script); err != nil {
		script.Close()
		return fmt.Errorf("failed to write caption script: %w", err)
	}
	if err := script.Close(); err != nil {
		return fmt.Errorf("failed to write caption script: %w", err)
	}

	return e.Run(ctx, RunOptions{
		Op:   "burn captions",
		Args: req.Args(scriptPath, e.opts),
		LogHandler: func(line string) {
			e.logger.Trace().Str("ffmpeg", line).Msg("burn captions")
		},
	})
}

// escapeFilterPath escapes a path for use inside a filter argument
func escapeFilterPath(p string) string {
	p = strings.ReplaceAll(p, "\\", "\\\\")
	p = strings.ReplaceAll(p, ":", "\\:")
	p = strings.ReplaceAll(p, "'", "\\'")
	return p
}
