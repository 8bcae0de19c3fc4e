package media

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/codebuildervaibhav/video-pipeline/internal/types"
)

// Probe defaults for values the container does not report
const (
	DefaultFrameRate  = 30.0
	DefaultSampleRate = 44100
	DefaultChannels   = 1
)

// Probe reads video and audio stream metadata with ffprobe
func (e *Executor) Probe(ctx context.Context, path string) (*types.VideoMetadata, error) {
	if path == "" {
		return nil, fmt.Errorf("file path is required")
	}

	cmd := exec.CommandContext(ctx, e.ffprobePath,
		"-v", "error",
		"-show_streams",
		"-show_format",
		"-of", "json",
		path,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	output, err := cmd.Output()
	if err != nil {
		return nil, &EngineError{Op: "probe", Err: err, Log: strings.TrimSpace(stderr.String())}
	}

	meta, err := parseProbe(output)
	if err != nil {
		return nil, err
	}

	e.logger.Debug().
		Str("path", path).
		Int("width", meta.Width).
		Int("height", meta.Height).
		Str("aspect_ratio", meta.AspectRatio).
		Float64("duration", meta.Duration).
		Float64("frame_rate", meta.FrameRate).
		Msg("probed video")
	return meta, nil
}

// probeResult matches ffprobe JSON output structure
type probeResult struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
	Streams []struct {
		CodecType          string `json:"codec_type"`
		Width              int    `json:"width"`
		Height             int    `json:"height"`
		DisplayAspectRatio string `json:"display_aspect_ratio"`
		RFrameRate         string `json:"r_frame_rate"`
		Duration           string `json:"duration"`
		SampleRate         string `json:"sample_rate"`
		Channels           int    `json:"channels"`
	} `json:"streams"`
}

func parseProbe(output []byte) (*types.VideoMetadata, error) {
	var probe probeResult
	if err := json.Unmarshal(output, &probe); err != nil {
		return nil, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}

	var meta *types.VideoMetadata
	for _, s := range probe.Streams {
		switch s.CodecType {
		case "video":
			if meta != nil {
				continue
			}
			meta = &types.VideoMetadata{
				Width:       s.Width,
				Height:      s.Height,
				AspectRatio: aspectRatio(s.DisplayAspectRatio, s.Width, s.Height),
				FrameRate:   ParseFrameRate(s.RFrameRate),
			}
			if d, err := strconv.ParseFloat(s.Duration, 64); err == nil {
				meta.Duration = d
			}
		}
	}
	if meta == nil {
		return nil, fmt.Errorf("no video stream found")
	}

	if meta.Duration <= 0 {
		if d, err := strconv.ParseFloat(probe.Format.Duration, 64); err == nil {
			meta.Duration = d
		}
	}

	for _, s := range probe.Streams {
		if s.CodecType != "audio" {
			continue
		}
		audio := &types.AudioInfo{SampleRate: DefaultSampleRate, Channels: DefaultChannels}
		if sr, err := strconv.Atoi(s.SampleRate); err == nil && sr > 0 {
			audio.SampleRate = sr
		}
		if s.Channels > 0 {
			audio.Channels = s.Channels
		}
		meta.Audio = audio
		break
	}
	return meta, nil
}

// aspectRatio prefers the display aspect ratio and otherwise reduces
// width:height
func aspectRatio(dar string, width, height int) string {
	if dar != "" && dar != "N/A" && dar != "0:1" {
		return dar
	}
	if width <= 0 || height <= 0 {
		return ""
	}
	g := gcd(width, height)
	return fmt.Sprintf("%d:%d", width/g, height/g)
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

// ParseFrameRate converts an ffprobe rate such as "30000/1001" to frames
// per second, falling back to DefaultFrameRate
func ParseFrameRate(rate string) float64 {
	rate = strings.TrimSpace(rate)
	if num, den, ok := strings.Cut(rate, "/"); ok {
		n, err1 := strconv.ParseFloat(num, 64)
		d, err2 := strconv.ParseFloat(den, 64)
		if err1 == nil && err2 == nil && n > 0 && d > 0 {
			return n / d
		}
		return DefaultFrameRate
	}
	if v, err := strconv.ParseFloat(rate, 64); err == nil && v > 0 {
		return v
	}
	return DefaultFrameRate
}

var supportedContainers = map[string]bool{
	".mp4": true, ".mov": true, ".mkv": true, ".webm": true, ".avi": true,
	".m4v": true, ".mpeg": true, ".mpg": true, ".flv": true,
}

// IsSupportedContainer reports whether filename has a video extension the
// pipeline accepts
func IsSupportedContainer(filename string) bool {
	return supportedContainers[strings.ToLower(filepath.Ext(filename))]
}
