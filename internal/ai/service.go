package ai

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/codebuildervaibhav/video-pipeline/internal/captions"
	"github.com/codebuildervaibhav/video-pipeline/internal/types"
)

// Service runs the editing judgments against a Completer
type Service struct {
	llm    Completer
	logger zerolog.Logger
}

// NewService creates a service over llm
func NewService(llm Completer, logger zerolog.Logger) *Service {
	return &Service{
		llm:    llm,
		logger: logger.With().Str("component", "ai").Logger(),
	}
}

// Transcribe returns a speaker-labelled word-level transcript of an audio file
func (s *Service) Transcribe(ctx context.Context, audioPath string) ([]types.Word, error) {
	audio, err := loadAudio(audioPath)
	if err != nil {
		return nil, err
	}

	raw, err := s.llm.Complete(ctx, Prompt{System: systemPrompt, Text: transcribePrompt, Audio: audio, JSON: true})
	if err != nil {
		return nil, fmt.Errorf("transcription request failed: %w", err)
	}

	var reply struct {
		Words []types.Word `json:"words"`
	}
	if err := decodeReply("transcribe", raw, &reply); err != nil {
		return nil, err
	}

	words := make([]types.Word, 0, len(reply.Words))
	for _, w := range reply.Words {
		if strings.TrimSpace(w.Word) == "" || w.Start < 0 || w.End <= w.Start {
			continue
		}
		words = append(words, w)
	}
	if len(words) == 0 {
		return nil, &ResponseError{Task: "transcribe", Raw: raw, Err: fmt.Errorf("no timed words")}
	}

	s.logger.Info().Int("words", len(words)).Msg("transcription received")
	return words, nil
}

// ClassifyContent decides whether a transcript is a podcast or a short
func (s *Service) ClassifyContent(ctx context.Context, srt string) (*types.Classification, error) {
	raw, err := s.llm.Complete(ctx, Prompt{System: systemPrompt, Text: fmt.Sprintf(classifyContentPrompt, srt), JSON: true})
	if err != nil {
		return nil, fmt.Errorf("content classification request failed: %w", err)
	}

	var c types.Classification
	if err := decodeReply("classify content", raw, &c); err != nil {
		return nil, err
	}
	if strings.TrimSpace(c.Type) == "" {
		return nil, &ResponseError{Task: "classify content", Raw: raw, Err: fmt.Errorf("missing type")}
	}
	return &c, nil
}

var silenceLabels = []string{types.SilenceDeadAir, types.SilenceSceneChange, types.SilencePause}

// ClassifySilence labels one silence from the lines spoken around it. A
// reply that names no known label yields SilenceUnknown.
func (s *Service) ClassifySilence(ctx context.Context, cues []captions.Cue, span types.TimeSpan) (string, error) {
	before, after := surroundingText(cues, span)

	raw, err := s.llm.Complete(ctx, Prompt{
		System: systemPrompt,
		Text:   fmt.Sprintf(classifySilencePrompt, span.Duration(), before, after),
	})
	if err != nil {
		return types.SilenceUnknown, fmt.Errorf("silence classification request failed: %w", err)
	}

	reply := strings.ToLower(strings.Trim(strings.TrimSpace(raw), `"'.`))
	for _, label := range silenceLabels {
		if reply == label {
			return label, nil
		}
	}
	for _, label := range silenceLabels {
		if strings.Contains(reply, label) {
			return label, nil
		}
	}
	return types.SilenceUnknown, nil
}

// surroundingText finds the last cue ending before span and the first cue
// starting after it
func surroundingText(cues []captions.Cue, span types.TimeSpan) (string, string) {
	var before, after string
	for i := len(cues) - 1; i >= 0; i-- {
		if cues[i].End < span.Start {
			before = cues[i].Text
			break
		}
	}
	for _, c := range cues {
		if c.Start > span.End {
			after = c.Text
			break
		}
	}
	return before, after
}

// DetectFillerWords finds filler words in an audio file. Entries whose end
// does not follow their start are dropped.
func (s *Service) DetectFillerWords(ctx context.Context, audioPath string) ([]types.FillerWord, error) {
	audio, err := loadAudio(audioPath)
	if err != nil {
		return nil, err
	}

	raw, err := s.llm.Complete(ctx, Prompt{System: systemPrompt, Text: fillerWordsPrompt, Audio: audio, JSON: true})
	if err != nil {
		return nil, fmt.Errorf("filler word request failed: %w", err)
	}

	var reply struct {
		FillerWords []types.FillerWord `json:"filler_words"`
	}
	if err := decodeReply("detect filler words", raw, &reply); err != nil {
		return nil, err
	}

	out := make([]types.FillerWord, 0, len(reply.FillerWords))
	for _, f := range reply.FillerWords {
		if f.Start < 0 || f.End <= f.Start {
			s.logger.Debug().Str("word", f.Word).Msg("dropping filler word with invalid span")
			continue
		}
		out = append(out, f)
	}
	return out, nil
}

// DetectRetakes finds stumbled or repeated passages in a transcript
func (s *Service) DetectRetakes(ctx context.Context, srt string) ([]types.Retake, error) {
	raw, err := s.llm.Complete(ctx, Prompt{System: systemPrompt, Text: fmt.Sprintf(retakesPrompt, srt), JSON: true})
	if err != nil {
		return nil, fmt.Errorf("retake request failed: %w", err)
	}

	var reply struct {
		Retakes []types.Retake `json:"retakes_to_remove"`
	}
	if err := decodeReply("detect retakes", raw, &reply); err != nil {
		return nil, err
	}

	out := make([]types.Retake, 0, len(reply.Retakes))
	for _, r := range reply.Retakes {
		if r.Start >= 0 && r.End > r.Start {
			out = append(out, r)
		}
	}
	return out, nil
}

// SuggestBRoll proposes illustrative shots for a transcript
func (s *Service) SuggestBRoll(ctx context.Context, srt string) ([]types.BRollSuggestion, error) {
	raw, err := s.llm.Complete(ctx, Prompt{System: systemPrompt, Text: fmt.Sprintf(bRollPrompt, srt), JSON: true})
	if err != nil {
		return nil, fmt.Errorf("b-roll request failed: %w", err)
	}

	var reply struct {
		Suggestions []types.BRollSuggestion `json:"b_roll_suggestions"`
	}
	if err := decodeReply("suggest b-roll", raw, &reply); err != nil {
		return nil, err
	}

	out := make([]types.BRollSuggestion, 0, len(reply.Suggestions))
	for _, b := range reply.Suggestions {
		if strings.TrimSpace(b.Suggestion) != "" {
			out = append(out, b)
		}
	}
	return out, nil
}

// DetectSilentIntervals asks the model for spans without dialogue
func (s *Service) DetectSilentIntervals(ctx context.Context, audioPath string) ([]types.TimeSpan, error) {
	audio, err := loadAudio(audioPath)
	if err != nil {
		return nil, err
	}

	raw, err := s.llm.Complete(ctx, Prompt{System: systemPrompt, Text: silentIntervalsPrompt, Audio: audio, JSON: true})
	if err != nil {
		return nil, fmt.Errorf("silence detection request failed: %w", err)
	}

	var reply struct {
		Intervals []struct {
			Start types.Timestamp `json:"start"`
			End   types.Timestamp `json:"end"`
		} `json:"silent_intervals"`
	}
	if err := decodeReply("detect silent intervals", raw, &reply); err != nil {
		return nil, err
	}

	out := make([]types.TimeSpan, 0, len(reply.Intervals))
	for _, iv := range reply.Intervals {
		if iv.Start >= 0 && iv.End > iv.Start {
			out = append(out, types.TimeSpan{Start: float64(iv.Start), End: float64(iv.End)})
		}
	}
	return out, nil
}

func loadAudio(path string) (*Audio, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio: %w", err)
	}
	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if format != "wav" {
		format = "mp3"
	}
	return &Audio{Data: data, Format: format}, nil
}
