package pipeline

import (
	"context"

	"github.com/codebuildervaibhav/video-pipeline/internal/captions"
	"github.com/codebuildervaibhav/video-pipeline/internal/media"
	"github.com/codebuildervaibhav/video-pipeline/internal/types"
)

// Fetcher downloads a source locator into a directory
type Fetcher interface {
	Fetch(ctx context.Context, locator, destDir string) (string, error)
}

// MediaEngine runs the media transforms
type MediaEngine interface {
	Denoise(ctx context.Context, input, output string) error
	Probe(ctx context.Context, path string) (*types.VideoMetadata, error)
	ExtractAudio(ctx context.Context, input, output string) error
	DetectSilence(ctx context.Context, input string, noiseDB, minDuration float64) ([]types.TimeSpan, error)
	Cut(ctx context.Context, req *media.CutRequest, input, output string) error
	BurnCaptions(ctx context.Context, req *media.BurnRequest) error
}

// Transcriber produces a word-level transcript from an audio file
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) ([]types.Word, error)
}

// Analyzer makes the editing judgments
type Analyzer interface {
	ClassifyContent(ctx context.Context, srt string) (*types.Classification, error)
	ClassifySilence(ctx context.Context, cues []captions.Cue, span types.TimeSpan) (string, error)
	DetectFillerWords(ctx context.Context, audioPath string) ([]types.FillerWord, error)
	DetectRetakes(ctx context.Context, srt string) ([]types.Retake, error)
	SuggestBRoll(ctx context.Context, srt string) ([]types.BRollSuggestion, error)
	DetectSilentIntervals(ctx context.Context, audioPath string) ([]types.TimeSpan, error)
}

// Artifacts are the files a task produced. Publish moves them out of the
// task workspace and returns their new locations.
type Artifacts struct {
	TaskID    string
	SourceURL string
	Video     string
	SRT       string
	Timeline  string
	RemoteURL string
	Result    *types.Result
}

// Publisher stores finished artifacts
type Publisher interface {
	Publish(ctx context.Context, a Artifacts) (Artifacts, error)
}

// Tracker receives task transitions
type Tracker interface {
	Update(id, status, message string) error
	Complete(id string, result *types.Result, message string) error
}
