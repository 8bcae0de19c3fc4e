package pipeline

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/codebuildervaibhav/video-pipeline/internal/captions"
	"github.com/codebuildervaibhav/video-pipeline/internal/media"
	"github.com/codebuildervaibhav/video-pipeline/internal/planner"
	"github.com/codebuildervaibhav/video-pipeline/internal/timeline"
	"github.com/codebuildervaibhav/video-pipeline/internal/types"
)

func (p *Pipeline) download(s *state) StageResult {
	p.report(s, types.StatusDownloading, "Downloading video...")

	path, err := p.deps.Fetcher.Fetch(s.ctx, s.job.VideoURL, s.ws.Path("source"))
	if err != nil {
		return Fatal(err)
	}
	s.source = path
	s.video = path

	p.report(s, types.StatusDownloaded, "Video downloaded.")
	return OK()
}

func (p *Pipeline) reduceNoise(s *state) StageResult {
	p.report(s, types.StatusNoiseReduction, "Applying noise reduction...")

	out := s.derived("denoised")
	if err := p.deps.Media.Denoise(s.ctx, s.video, out); err != nil {
		p.report(s, types.StatusNoiseReductionFailed, "Noise reduction failed, continuing with original video.")
		return Skipped("noise reduction failed", err)
	}
	s.video = out

	p.report(s, types.StatusNoiseReductionComplete, "Noise reduction complete.")
	return OK()
}

func (p *Pipeline) probe(s *state) StageResult {
	p.report(s, types.StatusGettingMetadata, "Getting video metadata...")

	meta, err := p.deps.Media.Probe(s.ctx, s.video)
	if err != nil {
		return Skipped("metadata unavailable", err)
	}
	s.meta = meta

	p.report(s, types.StatusMetadataComplete, "Metadata retrieved.")
	return OK()
}

// ensureAudio extracts the current video's audio track once per video
func (p *Pipeline) ensureAudio(s *state) (string, error) {
	if s.audio != "" && s.audioFor == s.video {
		return s.audio, nil
	}
	s.audioN++
	out := s.ws.Path(fmt.Sprintf("audio-%d.mp3", s.audioN))
	if err := p.deps.Media.ExtractAudio(s.ctx, s.video, out); err != nil {
		return "", err
	}
	s.audio = out
	s.audioFor = s.video
	return out, nil
}

func (p *Pipeline) transcribe(s *state) StageResult {
	p.report(s, types.StatusTranscribing, "Transcribing audio...")

	if p.deps.Transcriber == nil {
		return Fatal(errNoTranscriber)
	}
	audio, err := p.ensureAudio(s)
	if err != nil {
		return Fatal(fmt.Errorf("audio extraction failed: %w", err))
	}
	words, err := p.deps.Transcriber.Transcribe(s.ctx, audio)
	if err != nil {
		return Fatal(fmt.Errorf("transcription failed: %w", err))
	}
	s.words = words
	p.report(s, types.StatusTranscriptionComplete, "Transcription complete.")

	p.report(s, types.StatusSavingSRT, "Saving SRT file...")
	s.cues = captions.CuesFromWords(words)
	s.srt = captions.ComposeSRT(s.cues)
	path := s.ws.Path("transcript.srt")
	if err := os.WriteFile(path, []byte(s.srt), 0644); err != nil {
		return Fatal(fmt.Errorf("failed to save SRT: %w", err))
	}
	s.srtAt = path

	p.report(s, types.StatusSRTSaved, "SRT file saved.")
	return OK()
}

func (p *Pipeline) detectSilence(s *state) StageResult {
	p.report(s, types.StatusDetectingSilence, "Detecting silence...")

	var (
		spans []types.TimeSpan
		err   error
	)
	if s.recipe.SilenceDetector == types.SilenceDetectorAI {
		spans, err = p.detectSilenceAI(s)
	} else {
		spans, err = p.deps.Media.DetectSilence(s.ctx, s.video, p.opts.SilenceNoiseDB, p.opts.SilenceMinDuration)
	}
	if err != nil {
		return Skipped("silence detection failed", err)
	}
	s.silence = spans

	p.report(s, types.StatusSilenceDetectionComplete, fmt.Sprintf("Found %d silent intervals.", len(spans)))
	return OK()
}

func (p *Pipeline) detectSilenceAI(s *state) ([]types.TimeSpan, error) {
	if p.deps.Analyzer == nil {
		return nil, errNoAnalyzer
	}
	audio, err := p.ensureAudio(s)
	if err != nil {
		return nil, err
	}
	return p.deps.Analyzer.DetectSilentIntervals(s.ctx, audio)
}

func (p *Pipeline) classifyContent(s *state) StageResult {
	p.report(s, types.StatusClassifyingContent, "Classifying content...")

	if p.deps.Analyzer == nil {
		return Skipped("content classification unavailable", errNoAnalyzer)
	}
	c, err := p.deps.Analyzer.ClassifyContent(s.ctx, s.srt)
	if err != nil {
		return Skipped("content classification failed", err)
	}
	s.classification = c

	p.report(s, types.StatusContentClassificationComplete, "Content classified.")
	return OK()
}

// classifySilence labels each silence on its own; one failed span stays
// unknown without affecting the others
func (p *Pipeline) classifySilence(s *state) StageResult {
	p.report(s, types.StatusClassifyingSilence, "Classifying silence...")

	if p.deps.Analyzer == nil {
		return Skipped("silence classification unavailable", errNoAnalyzer)
	}
	labels := make([]string, len(s.silence))
	failed := 0
	for i, span := range s.silence {
		if err := s.ctx.Err(); err != nil {
			break
		}
		label, err := p.deps.Analyzer.ClassifySilence(s.ctx, s.cues, span)
		if err != nil || label == "" {
			failed++
			s.log.Warn().Err(err).Float64("start", span.Start).Float64("end", span.End).Msg("silence left unclassified")
			label = types.SilenceUnknown
		}
		labels[i] = label
	}
	s.silenceLabels = labels

	p.report(s, types.StatusSilenceClassificationComplete, "Silence classified.")
	if failed > 0 {
		return Skipped(fmt.Sprintf("%d of %d silences unclassified", failed, len(s.silence)), nil)
	}
	return OK()
}

func (p *Pipeline) detectFillerWords(s *state) StageResult {
	p.report(s, types.StatusDetectingFillerWords, "Detecting filler words...")

	if p.deps.Analyzer == nil {
		return Skipped("filler word detection unavailable", errNoAnalyzer)
	}
	audio, err := p.ensureAudio(s)
	if err != nil {
		return Skipped("audio extraction failed", err)
	}
	fillers, err := p.deps.Analyzer.DetectFillerWords(s.ctx, audio)
	if err != nil {
		return Skipped("filler word detection failed", err)
	}
	s.fillers = fillers

	p.report(s, types.StatusFillerWordDetectionComplete, fmt.Sprintf("Found %d filler words.", len(fillers)))
	return OK()
}

func (p *Pipeline) detectRetakes(s *state) StageResult {
	p.report(s, types.StatusDetectingRetakes, "Detecting retakes...")

	if p.deps.Analyzer == nil {
		return Skipped("retake detection unavailable", errNoAnalyzer)
	}
	retakes, err := p.deps.Analyzer.DetectRetakes(s.ctx, s.srt)
	if err != nil {
		return Skipped("retake detection failed", err)
	}
	s.retakes = retakes

	p.report(s, types.StatusRetakeDetectionComplete, fmt.Sprintf("Found %d retakes.", len(retakes)))
	return OK()
}

func (p *Pipeline) suggestBRoll(s *state) StageResult {
	p.report(s, types.StatusSuggestingBRoll, "Suggesting b-roll...")

	if p.deps.Analyzer == nil {
		return Skipped("b-roll suggestions unavailable", errNoAnalyzer)
	}
	suggestions, err := p.deps.Analyzer.SuggestBRoll(s.ctx, s.srt)
	if err != nil {
		return Skipped("b-roll suggestion failed", err)
	}
	s.bRoll = suggestions

	p.report(s, types.StatusBRollSuggestionComplete, "B-roll suggestions ready.")
	return OK()
}

func (p *Pipeline) cut(s *state) StageResult {
	p.report(s, types.StatusPreparingCuts, "Preparing cuts...")

	if s.meta == nil || s.meta.Duration <= 0 {
		return Skipped("cut skipped", planner.ErrUnknownDuration)
	}

	sources := planner.Sources{Silence: s.silenceSpans()}
	for _, f := range s.fillers {
		sources.Filler = append(sources.Filler, f.Span())
	}
	for _, r := range s.retakes {
		sources.Retakes = append(sources.Retakes, r.Span())
	}

	full := []types.TimeSpan{{Start: 0, End: s.meta.Duration}}
	plan, err := planner.Build(s.meta.Duration, sources, planner.PolicyFromRecipe(s.recipe))
	if err != nil {
		s.keep = full
		return Skipped("cut planning failed", err)
	}
	if plan == nil {
		s.keep = full
		return OK()
	}
	if plan.EverythingRemoved() {
		s.everythingRemoved = true
		return Skipped("every segment marked for removal, keeping original video", nil)
	}

	keep, dropped := media.DropShortSegments(plan.Keep, p.opts.Crossfade)
	if len(dropped) > 0 {
		s.log.Warn().
			Int("dropped", len(dropped)).
			Float64("crossfade", p.opts.Crossfade).
			Msg("dropping keep segments shorter than the crossfade")
	}
	if len(keep) == 0 {
		s.everythingRemoved = true
		return Skipped("every kept segment is shorter than the crossfade, keeping original video", nil)
	}

	req, err := media.PlanCut(keep, p.opts.Crossfade)
	if err != nil {
		s.keep = full
		return Skipped("cut rejected", err)
	}

	p.report(s, types.StatusCuttingVideo, fmt.Sprintf("Cutting video into %d segments...", len(req.Segments)))
	out := s.derived("cut")
	if err := p.deps.Media.Cut(s.ctx, req, s.video, out); err != nil {
		s.keep = full
		return Skipped("cut failed, keeping uncut video", err)
	}
	s.video = out
	s.keep = req.Segments
	s.cutApplied = true
	return OK()
}

func (p *Pipeline) exportTimeline(s *state) StageResult {
	p.report(s, types.StatusExportingTimeline, "Exporting timeline...")

	path := s.ws.Path("timeline.xml")
	if err := timeline.WriteFile(path, s.meta, s.keepOrFull(), filepath.Base(s.source)); err != nil {
		return Skipped("timeline export failed", err)
	}
	s.timeline = path

	p.report(s, types.StatusTimelineExported, "Timeline exported.")
	return OK()
}

func (p *Pipeline) burnCaptions(s *state) StageResult {
	p.report(s, types.StatusRetranscribing, "Transcribing final video for captions...")

	words := s.words
	if s.cutApplied || len(words) == 0 {
		if p.deps.Transcriber == nil {
			return Skipped("captions unavailable", errNoTranscriber)
		}
		audio, err := p.ensureAudio(s)
		if err != nil {
			return Skipped("audio extraction failed", err)
		}
		words, err = p.deps.Transcriber.Transcribe(s.ctx, audio)
		if err != nil {
			return Skipped("caption transcription failed", err)
		}
	}

	style := s.recipe.ASSStyle
	if style == nil {
		style = p.opts.DefaultStyle
	}
	wordsPerLine := 0
	if style != nil {
		wordsPerLine = style.WordsPerLine
	}

	unlabeled := make([]types.Word, len(words))
	for i, w := range words {
		w.Speaker = ""
		unlabeled[i] = w
	}
	doc := captions.Style(captions.GroupCues(captions.CuesFromWords(unlabeled), wordsPerLine), style)
	if len(doc.Events) == 0 {
		return Skipped("no caption lines", nil)
	}

	p.report(s, types.StatusBurningCaptions, "Burning captions...")
	out := s.derived("captioned")
	if err := p.deps.Media.BurnCaptions(s.ctx, media.PlanCaptionBurn(doc, s.video, out)); err != nil {
		return Skipped("caption burn failed, keeping video without captions", err)
	}
	s.video = out
	return OK()
}

func (p *Pipeline) publish(s *state) StageResult {
	p.report(s, types.StatusPublishingResults, "Publishing results...")

	result := s.assemble()
	published, err := p.deps.Publisher.Publish(s.ctx, Artifacts{
		TaskID:    s.job.ID,
		SourceURL: s.job.VideoURL,
		Video:     s.video,
		SRT:       s.srtAt,
		Timeline:  s.timeline,
		Result:    result,
	})
	if err != nil {
		return Fatal(fmt.Errorf("failed to publish results: %w", err))
	}

	result.FinalVideoPath = published.Video
	result.SRTPath = published.SRT
	result.TimelinePath = published.Timeline
	result.GDriveURL = published.RemoteURL
	s.result = result
	return OK()
}
