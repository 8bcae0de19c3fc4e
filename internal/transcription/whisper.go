package transcription

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/codebuildervaibhav/video-pipeline/internal/types"
)

// DefaultSpeaker labels every word; local Whisper does not diarize
const DefaultSpeaker = "SPEAKER_00"

// WhisperTranscriber wraps Python's OpenAI Whisper for word-level transcription
type WhisperTranscriber struct {
	modelName  string
	whisperCmd string
	language   string
	workDir    string
	logger     zerolog.Logger
	mu         sync.Mutex // one model load at a time
}

// NewWhisperTranscriber creates a transcriber. model may be a model name or
// a path containing one (e.g. "ggml-small.bin").
func NewWhisperTranscriber(model, language, workDir string, logger zerolog.Logger) *WhisperTranscriber {
	logger = logger.With().Str("component", "whisper").Logger()
	name := modelNameFrom(model)
	logger.Info().Str("model", name).Msg("whisper transcriber configured, availability is checked on first use")

	return &WhisperTranscriber{
		modelName:  name,
		whisperCmd: "python",
		language:   language,
		workDir:    workDir,
		logger:     logger,
	}
}

func modelNameFrom(model string) string {
	for _, name := range []string{"tiny", "base", "small", "medium", "large"} {
		if strings.Contains(strings.ToLower(model), name) {
			return name
		}
	}
	return "small"
}

// Transcribe processes an audio file and returns its words with timings
func (wt *WhisperTranscriber) Transcribe(ctx context.Context, audioPath string) ([]types.Word, error) {
	wt.mu.Lock()
	defer wt.mu.Unlock()

	wt.logger.Info().Str("audio", audioPath).Msg("transcribing")

	outDir, err := os.MkdirTemp(wt.workDir, "whisper-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create whisper output dir: %w", err)
	}
	defer os.RemoveAll(outDir)

	absAudioPath, err := filepath.Abs(audioPath)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	args := []string{"-m", "whisper",
		absAudioPath,
		"--model", wt.modelName,
		"--output_dir", outDir,
		"--output_format", "json",
		"--word_timestamps", "True",
		"--fp16", "False",
	}
	if wt.language != "" {
		args = append(args, "--language", wt.language)
	}

	cmd := exec.CommandContext(ctx, wt.whisperCmd, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("whisper transcription failed: %w\nOutput: %s", err, string(output))
	}

	baseName := strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath))
	jsonData, err := os.ReadFile(filepath.Join(outDir, baseName+".json"))
	if err != nil {
		return nil, fmt.Errorf("failed to read whisper output: %w", err)
	}

	words, err := parseWhisperOutput(jsonData)
	if err != nil {
		return nil, err
	}
	wt.logger.Info().Int("words", len(words)).Msg("transcription completed")
	return words, nil
}

// parseWhisperOutput flattens segment words. Segments without word timings
// are spread evenly over the segment span.
func parseWhisperOutput(data []byte) ([]types.Word, error) {
	var out WhisperOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to parse whisper JSON: %w", err)
	}

	var words []types.Word
	for _, seg := range out.Segments {
		if len(seg.Words) > 0 {
			for _, w := range seg.Words {
				text := strings.TrimSpace(w.Word)
				if text == "" || w.End <= w.Start {
					continue
				}
				words = append(words, types.Word{Word: text, Start: w.Start, End: w.End, Speaker: DefaultSpeaker})
			}
			continue
		}

		tokens := strings.Fields(seg.Text)
		if len(tokens) == 0 || seg.End <= seg.Start {
			continue
		}
		step := (seg.End - seg.Start) / float64(len(tokens))
		for i, tok := range tokens {
			words = append(words, types.Word{
				Word:    tok,
				Start:   seg.Start + float64(i)*step,
				End:     seg.Start + float64(i+1)*step,
				Speaker: DefaultSpeaker,
			})
		}
	}
	if len(words) == 0 {
		return nil, fmt.Errorf("whisper produced no words")
	}
	return words, nil
}

// WhisperOutput matches Python Whisper's JSON output format
type WhisperOutput struct {
	Text     string           `json:"text"`
	Language string           `json:"language"`
	Segments []WhisperSegment `json:"segments"`
}

// WhisperSegment represents a timestamped segment from Whisper
type WhisperSegment struct {
	ID    int           `json:"id"`
	Start float64       `json:"start"`
	End   float64       `json:"end"`
	Text  string        `json:"text"`
	Words []WhisperWord `json:"words"`
}

// WhisperWord is one word when --word_timestamps is enabled
type WhisperWord struct {
	Word  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}
