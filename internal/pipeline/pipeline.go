// Package pipeline runs a video through the post-production stages selected
// by its recipe.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/codebuildervaibhav/video-pipeline/internal/captions"
	"github.com/codebuildervaibhav/video-pipeline/internal/cleanup"
	"github.com/codebuildervaibhav/video-pipeline/internal/queue"
	"github.com/codebuildervaibhav/video-pipeline/internal/types"
)

var (
	errNoAnalyzer    = errors.New("no AI analyzer configured")
	errNoTranscriber = errors.New("no transcriber configured")
)

// Options tune the stages
type Options struct {
	// WorkDir holds one workspace per running task
	WorkDir string
	// Crossfade between kept segments in seconds; 0 joins them with concat
	Crossfade          float64
	SilenceNoiseDB     float64
	SilenceMinDuration float64
	// DefaultStyle is used when a recipe burns captions without a style
	DefaultStyle *types.StyleConfig
}

// Deps are the collaborators a pipeline drives. Analyzer may be nil, in
// which case the AI stages degrade.
type Deps struct {
	Fetcher     Fetcher
	Media       MediaEngine
	Transcriber Transcriber
	Analyzer    Analyzer
	Publisher   Publisher
	Tracker     Tracker
}

// Pipeline is the stage interpreter
type Pipeline struct {
	deps   Deps
	opts   Options
	stages []stage
	logger zerolog.Logger
}

// New creates a pipeline
func New(deps Deps, opts Options, logger zerolog.Logger) (*Pipeline, error) {
	switch {
	case deps.Fetcher == nil:
		return nil, errors.New("pipeline: fetcher is required")
	case deps.Media == nil:
		return nil, errors.New("pipeline: media engine is required")
	case deps.Publisher == nil:
		return nil, errors.New("pipeline: publisher is required")
	case deps.Tracker == nil:
		return nil, errors.New("pipeline: tracker is required")
	}
	p := &Pipeline{
		deps:   deps,
		opts:   opts,
		logger: logger.With().Str("component", "pipeline").Logger(),
	}
	p.stages = p.buildStages()
	return p, nil
}

// Process runs every enabled stage for job and completes the task. The
// returned error is the fatal stage failure, if any. The task workspace is
// removed on every path.
func (p *Pipeline) Process(ctx context.Context, job *queue.Job) error {
	log := p.logger.With().Str("task_id", job.ID).Logger()

	ws, err := cleanup.NewWorkspace(p.opts.WorkDir, job.ID)
	if err != nil {
		return err
	}
	defer func() {
		if err := ws.Remove(); err != nil {
			log.Warn().Err(err).Msg("failed to remove workspace")
		}
	}()

	s := &state{
		ctx:    ctx,
		job:    job,
		recipe: job.Recipe,
		ws:     ws,
		log:    log,
	}

	for _, st := range p.stages {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("task cancelled before %s: %w", st.name, err)
		}
		if !st.enabled(s) {
			continue
		}

		res := st.run(s)
		switch res.Outcome {
		case OutcomeFatal:
			log.Error().Err(res.Err).Str("stage", st.name).Msg("stage failed")
			return fmt.Errorf("%s: %w", st.name, res.Err)
		case OutcomeSkipped:
			ev := log.Warn().Str("stage", st.name).Str("reason", res.Reason)
			if res.Err != nil {
				ev = ev.Err(res.Err)
			}
			ev.Msg("stage degraded")
		default:
			log.Debug().Str("stage", st.name).Msg("stage done")
		}
	}

	log.Info().Str("video", s.result.FinalVideoPath).Msg("task completed")
	return p.deps.Tracker.Complete(job.ID, s.result, "Video processing completed successfully.")
}

func (p *Pipeline) report(s *state, status, message string) {
	if err := p.deps.Tracker.Update(s.job.ID, status, message); err != nil {
		s.log.Warn().Err(err).Str("status", status).Msg("failed to record status")
	}
}

func (p *Pipeline) buildStages() []stage {
	r := func(pred func(types.Recipe) bool) func(*state) bool {
		return func(s *state) bool { return pred(s.recipe) }
	}
	return []stage{
		{name: "download", enabled: always, run: p.download},
		{name: "noise_reduction", enabled: r(func(r types.Recipe) bool { return r.ApplyNoiseReduction }), run: p.reduceNoise},
		{name: "metadata", enabled: always, run: p.probe},
		{name: "transcribe", enabled: r(func(r types.Recipe) bool { return r.Transcribe }), run: p.transcribe},
		{name: "detect_silence", enabled: r(func(r types.Recipe) bool { return r.DetectSilence }), run: p.detectSilence},
		{name: "classify_content", enabled: func(s *state) bool { return s.recipe.ClassifyContent && s.srt != "" }, run: p.classifyContent},
		{name: "classify_silence", enabled: func(s *state) bool {
			return s.recipe.ClassifySilence && s.srt != "" && len(s.silence) > 0
		}, run: p.classifySilence},
		{name: "detect_filler_words", enabled: r(func(r types.Recipe) bool { return r.DetectFillerWords }), run: p.detectFillerWords},
		{name: "detect_retakes", enabled: func(s *state) bool { return s.recipe.DetectRetakes && s.srt != "" }, run: p.detectRetakes},
		{name: "suggest_b_roll", enabled: func(s *state) bool { return s.recipe.SuggestBRoll && s.srt != "" }, run: p.suggestBRoll},
		{name: "cut", enabled: r(func(r types.Recipe) bool { return r.CutVideo }), run: p.cut},
		{name: "timeline", enabled: func(s *state) bool { return s.recipe.ExportTimeline && len(s.keepOrFull()) > 0 }, run: p.exportTimeline},
		{name: "captions", enabled: r(func(r types.Recipe) bool { return r.BurnCaptions }), run: p.burnCaptions},
		{name: "publish", enabled: always, run: p.publish},
	}
}

// AvailableAspectRatios lists the output aspect ratios a source supports
func AvailableAspectRatios(meta *types.VideoMetadata) []string {
	if meta == nil || meta.AspectRatio == "" {
		return []string{}
	}
	if meta.AspectRatio == "16:9" {
		return []string{"16:9", "9:16"}
	}
	return []string{meta.AspectRatio}
}

// state is what stages share while one task runs
type state struct {
	ctx    context.Context
	job    *queue.Job
	recipe types.Recipe
	ws     *cleanup.Workspace
	log    zerolog.Logger

	source   string
	video    string
	audio    string
	audioFor string
	audioN   int
	meta     *types.VideoMetadata

	words []types.Word
	cues  []captions.Cue
	srt   string
	srtAt string

	silence        []types.TimeSpan
	silenceLabels  []string
	classification *types.Classification
	fillers        []types.FillerWord
	retakes        []types.Retake
	bRoll          []types.BRollSuggestion

	keep              []types.TimeSpan
	everythingRemoved bool
	cutApplied        bool
	timeline          string

	result *types.Result
}

// derived names a workspace file after the current video's container
func (s *state) derived(stem string) string {
	ext := filepath.Ext(s.video)
	if ext == "" {
		ext = ".mp4"
	}
	return s.ws.Path(stem + ext)
}

// keepOrFull is the applied keep set, or the whole source when no cut was
// made. It is empty when every segment was marked for removal.
func (s *state) keepOrFull() []types.TimeSpan {
	if s.keep != nil {
		return s.keep
	}
	if s.everythingRemoved {
		return nil
	}
	if s.meta != nil && s.meta.Duration > 0 {
		return []types.TimeSpan{{Start: 0, End: s.meta.Duration}}
	}
	return nil
}

// silenceSpans is the classified silence. Nothing is reported before
// classification has run, and unknown spans are never removable.
func (s *state) silenceSpans() []types.ClassifiedSpan {
	out := make([]types.ClassifiedSpan, 0, len(s.silence))
	if s.silenceLabels == nil {
		return out
	}
	for i, span := range s.silence {
		label := types.SilenceUnknown
		if i < len(s.silenceLabels) && s.silenceLabels[i] != "" {
			label = s.silenceLabels[i]
		}
		out = append(out, types.ClassifiedSpan{
			TimeSpan:  span,
			Type:      label,
			Removable: label != types.SilenceUnknown && s.recipe.SilenceRemovable(label),
		})
	}
	return out
}

func (s *state) assemble() *types.Result {
	res := &types.Result{
		FinalVideoPath:        s.video,
		SRTPath:               s.srtAt,
		Classification:        s.classification,
		SilenceIntervals:      s.silenceSpans(),
		FillerWords:           s.fillers,
		AvailableAspectRatios: AvailableAspectRatios(s.meta),
		KeepSegments:          s.keep,
		EverythingRemoved:     s.everythingRemoved,
		Retakes:               s.retakes,
		BRollSuggestions:      s.bRoll,
		TimelinePath:          s.timeline,
		Metadata:              s.meta,
	}
	if res.FillerWords == nil {
		res.FillerWords = []types.FillerWord{}
	}
	if res.KeepSegments == nil {
		res.KeepSegments = []types.TimeSpan{}
	}
	if res.Retakes == nil {
		res.Retakes = []types.Retake{}
	}
	if res.BRollSuggestions == nil {
		res.BRollSuggestions = []types.BRollSuggestion{}
	}
	return res
}
