package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/codebuildervaibhav/video-pipeline/internal/captions"
	"github.com/codebuildervaibhav/video-pipeline/internal/media"
	"github.com/codebuildervaibhav/video-pipeline/internal/queue"
	"github.com/codebuildervaibhav/video-pipeline/internal/types"
)

type fakeFetcher struct {
	err error
}

func (f *fakeFetcher) Fetch(ctx context.Context, locator, destDir string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return "", err
	}
	path := filepath.Join(destDir, "input.mp4")
	return path, os.WriteFile(path, []byte("video"), 0644)
}

type fakeMedia struct {
	mu         sync.Mutex
	meta       *types.VideoMetadata
	silence    []types.TimeSpan
	denoiseErr error
	probeErr   error
	probePanic bool
	cutErr     error
	calls      []string
	probed     string
	cutReq     *media.CutRequest
	burnReq    *media.BurnRequest
}

func (m *fakeMedia) record(call string) {
	m.mu.Lock()
	m.calls = append(m.calls, call)
	m.mu.Unlock()
}

func (m *fakeMedia) called(call string) bool {
	for _, c := range m.calls {
		if c == call {
			return true
		}
	}
	return false
}

func (m *fakeMedia) Denoise(ctx context.Context, input, output string) error {
	m.record("denoise")
	return m.denoiseErr
}

func (m *fakeMedia) Probe(ctx context.Context, path string) (*types.VideoMetadata, error) {
	m.record("probe")
	if m.probePanic {
		panic("probe exploded")
	}
	m.probed = path
	return m.meta, m.probeErr
}

func (m *fakeMedia) ExtractAudio(ctx context.Context, input, output string) error {
	m.record("extract_audio")
	return os.WriteFile(output, []byte("mp3"), 0644)
}

func (m *fakeMedia) DetectSilence(ctx context.Context, input string, noiseDB, minDuration float64) ([]types.TimeSpan, error) {
	m.record("detect_silence")
	return m.silence, nil
}

func (m *fakeMedia) Cut(ctx context.Context, req *media.CutRequest, input, output string) error {
	m.record("cut")
	m.cutReq = req
	if m.cutErr != nil {
		return m.cutErr
	}
	return os.WriteFile(output, []byte("cut"), 0644)
}

func (m *fakeMedia) BurnCaptions(ctx context.Context, req *media.BurnRequest) error {
	m.record("burn")
	m.burnReq = req
	return os.WriteFile(req.Output, []byte("burned"), 0644)
}

type fakeTranscriber struct {
	words []types.Word
	err   error
	calls int
}

func (t *fakeTranscriber) Transcribe(ctx context.Context, audioPath string) ([]types.Word, error) {
	t.calls++
	return t.words, t.err
}

type fakeAnalyzer struct {
	label   string
	fillers []types.FillerWord
}

func (a *fakeAnalyzer) ClassifyContent(ctx context.Context, srt string) (*types.Classification, error) {
	return &types.Classification{Type: "Short-form"}, nil
}

func (a *fakeAnalyzer) ClassifySilence(ctx context.Context, cues []captions.Cue, span types.TimeSpan) (string, error) {
	if a.label == "" {
		return types.SilenceUnknown, errors.New("no reply")
	}
	return a.label, nil
}

func (a *fakeAnalyzer) DetectFillerWords(ctx context.Context, audioPath string) ([]types.FillerWord, error) {
	return a.fillers, nil
}

func (a *fakeAnalyzer) DetectRetakes(ctx context.Context, srt string) ([]types.Retake, error) {
	return nil, nil
}

func (a *fakeAnalyzer) SuggestBRoll(ctx context.Context, srt string) ([]types.BRollSuggestion, error) {
	return []types.BRollSuggestion{{Timestamp: "00:01", Suggestion: "city skyline"}}, nil
}

func (a *fakeAnalyzer) DetectSilentIntervals(ctx context.Context, audioPath string) ([]types.TimeSpan, error) {
	return []types.TimeSpan{{Start: 1, End: 2}}, nil
}

type fakePublisher struct {
	got     Artifacts
	missing []string
	err     error
}

func (p *fakePublisher) Publish(ctx context.Context, a Artifacts) (Artifacts, error) {
	p.got = a
	for _, f := range []string{a.Video, a.SRT, a.Timeline} {
		if f == "" {
			continue
		}
		if _, err := os.Stat(f); err != nil {
			p.missing = append(p.missing, f)
		}
	}
	if p.err != nil {
		return Artifacts{}, p.err
	}
	out := a
	out.Video = "/out/" + filepath.Base(a.Video)
	if a.SRT != "" {
		out.SRT = "/out/" + filepath.Base(a.SRT)
	}
	if a.Timeline != "" {
		out.Timeline = "/out/" + filepath.Base(a.Timeline)
	}
	return out, nil
}

type recordingTracker struct {
	*queue.Registry
	mu       sync.Mutex
	statuses []string
}

func (r *recordingTracker) Update(id, status, message string) error {
	r.mu.Lock()
	r.statuses = append(r.statuses, status)
	r.mu.Unlock()
	return r.Registry.Update(id, status, message)
}

type harness struct {
	media       *fakeMedia
	fetcher     *fakeFetcher
	transcriber *fakeTranscriber
	analyzer    *fakeAnalyzer
	publisher   *fakePublisher
	tracker     *recordingTracker
	workDir     string
	pipeline    *Pipeline
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		media: &fakeMedia{meta: &types.VideoMetadata{
			Width: 1920, Height: 1080, AspectRatio: "16:9", Duration: 10, FrameRate: 30,
		}},
		fetcher: &fakeFetcher{},
		transcriber: &fakeTranscriber{words: []types.Word{
			{Word: "hello", Start: 0.5, End: 1, Speaker: "SPEAKER_00"},
			{Word: "world", Start: 6, End: 6.5, Speaker: "SPEAKER_00"},
		}},
		analyzer:  &fakeAnalyzer{label: types.SilencePause},
		publisher: &fakePublisher{},
		tracker:   &recordingTracker{Registry: queue.NewRegistry()},
		workDir:   t.TempDir(),
	}
	return h
}

func (h *harness) run(t *testing.T, recipe types.Recipe) (*queue.Job, error) {
	t.Helper()
	p, err := New(Deps{
		Fetcher:     h.fetcher,
		Media:       h.media,
		Transcriber: h.transcriber,
		Analyzer:    h.analyzer,
		Publisher:   h.publisher,
		Tracker:     h.tracker,
	}, Options{WorkDir: h.workDir, Crossfade: media.DefaultCrossfade}, zerolog.Nop())
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}
	h.pipeline = p

	job := queue.NewJob("https://example.com/talk.mp4", recipe)
	h.tracker.Create(job.ID, job.VideoURL)
	return job, p.Process(context.Background(), job)
}

func (h *harness) assertWorkspaceRemoved(t *testing.T) {
	t.Helper()
	entries, err := os.ReadDir(h.workDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Fatalf("workspace not removed: %v", entries)
	}
}

func TestProcess_AllStagesDisabled(t *testing.T) {
	h := newHarness(t)
	job, err := h.run(t, types.Recipe{})
	if err != nil {
		t.Fatalf("process: %v", err)
	}

	want := []string{
		types.StatusDownloading, types.StatusDownloaded,
		types.StatusGettingMetadata, types.StatusMetadataComplete,
		types.StatusPublishingResults,
	}
	if strings.Join(h.tracker.statuses, ",") != strings.Join(want, ",") {
		t.Fatalf("unexpected transitions %v", h.tracker.statuses)
	}

	task, _ := h.tracker.Get(job.ID)
	if task.Status != types.StatusCompleted || task.Progress != 100 {
		t.Fatalf("unexpected task %+v", task)
	}
	res := task.Result
	if res.FinalVideoPath != "/out/input.mp4" || h.publisher.got.Video == "" {
		t.Fatalf("original media not published: %+v", res)
	}

	data, _ := json.Marshal(res)
	for _, key := range []string{`"silence_intervals":[]`, `"filler_words":[]`, `"retakes":[]`, `"b_roll_suggestions":[]`, `"keep_segments":[]`} {
		if !strings.Contains(string(data), key) {
			t.Errorf("expected %s in %s", key, data)
		}
	}
	if !strings.Contains(string(data), `"classification":null`) {
		t.Errorf("classification should be null: %s", data)
	}
	if h.media.called("denoise") || h.media.called("cut") || h.media.called("burn") {
		t.Fatalf("disabled stages ran: %v", h.media.calls)
	}
	h.assertWorkspaceRemoved(t)
}

func TestProcess_DefaultRecipe(t *testing.T) {
	h := newHarness(t)
	h.media.silence = []types.TimeSpan{{Start: 2, End: 4}}
	h.analyzer.fillers = []types.FillerWord{{Word: "um", Start: 7, End: 7.5, CanBeRemoved: true}}

	job, err := h.run(t, types.DefaultRecipe())
	if err != nil {
		t.Fatalf("process: %v", err)
	}

	task, _ := h.tracker.Get(job.ID)
	if task.Status != types.StatusCompleted {
		t.Fatalf("unexpected status %s", task.Status)
	}

	last := -1
	for _, s := range h.tracker.statuses {
		if types.StageProgress[s] < last {
			t.Fatalf("progress decreased at %s: %v", s, h.tracker.statuses)
		}
		last = types.StageProgress[s]
	}

	if h.media.cutReq == nil || len(h.media.cutReq.Segments) != 3 {
		t.Fatalf("unexpected cut request %+v", h.media.cutReq)
	}
	res := task.Result
	wantKeep := []types.TimeSpan{{Start: 0, End: 2}, {Start: 4, End: 7}, {Start: 7.5, End: 10}}
	if len(res.KeepSegments) != 3 || res.KeepSegments[1] != wantKeep[1] {
		t.Fatalf("unexpected keep set %+v", res.KeepSegments)
	}
	if res.SilenceIntervals[0].Type != types.SilencePause || !res.SilenceIntervals[0].Removable {
		t.Fatalf("unexpected silence %+v", res.SilenceIntervals)
	}
	if h.transcriber.calls != 2 {
		t.Fatalf("expected the cut video to be transcribed again, got %d calls", h.transcriber.calls)
	}
	if h.media.burnReq == nil || strings.Contains(h.media.burnReq.Script, "SPEAKER_00") {
		t.Fatalf("captions not burned or carry speaker labels")
	}
	if res.FinalVideoPath != "/out/captioned.mp4" || res.SRTPath != "/out/transcript.srt" {
		t.Fatalf("unexpected paths %+v", res)
	}
	if strings.Join(res.AvailableAspectRatios, ",") != "16:9,9:16" {
		t.Fatalf("unexpected aspect ratios %v", res.AvailableAspectRatios)
	}
	if len(h.publisher.missing) != 0 {
		t.Fatalf("artifacts missing at publish time: %v", h.publisher.missing)
	}
	h.assertWorkspaceRemoved(t)
}

func TestProcess_DownloadFailureIsFatal(t *testing.T) {
	h := newHarness(t)
	h.fetcher.err = errors.New("404")

	_, err := h.run(t, types.DefaultRecipe())
	if err == nil || !strings.Contains(err.Error(), "download") {
		t.Fatalf("expected download error, got %v", err)
	}
	if h.media.called("probe") {
		t.Fatal("pipeline continued after download failure")
	}
	h.assertWorkspaceRemoved(t)
}

func TestProcess_TranscriptionFailureIsFatal(t *testing.T) {
	h := newHarness(t)
	h.transcriber.err = errors.New("model offline")

	job, err := h.run(t, types.DefaultRecipe())
	if err == nil || !strings.Contains(err.Error(), "model offline") {
		t.Fatalf("expected transcription error, got %v", err)
	}
	if task, _ := h.tracker.Get(job.ID); task.Status == types.StatusCompleted {
		t.Fatal("task completed despite fatal failure")
	}
	if h.media.called("detect_silence") {
		t.Fatal("later stages ran")
	}
	h.assertWorkspaceRemoved(t)
}

func TestProcess_NoiseReductionFailureDegrades(t *testing.T) {
	h := newHarness(t)
	h.media.denoiseErr = errors.New("afftdn failed")

	job, err := h.run(t, types.Recipe{ApplyNoiseReduction: true})
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	found := false
	for _, s := range h.tracker.statuses {
		if s == types.StatusNoiseReductionFailed {
			found = true
		}
	}
	if !found {
		t.Fatalf("NOISE_REDUCTION_FAILED not reported: %v", h.tracker.statuses)
	}
	if filepath.Base(h.media.probed) != "input.mp4" {
		t.Fatalf("expected original media to be probed, got %s", h.media.probed)
	}
	if task, _ := h.tracker.Get(job.ID); task.Status != types.StatusCompleted {
		t.Fatalf("unexpected status %s", task.Status)
	}
}

// silenceCut is the smallest recipe that removes classified silence
func silenceCut() types.Recipe {
	return types.Recipe{Transcribe: true, DetectSilence: true, ClassifySilence: true, CutVideo: true, RemoveSilence: true}
}

func TestProcess_DropsSegmentsShorterThanCrossfade(t *testing.T) {
	h := newHarness(t)
	h.media.silence = []types.TimeSpan{{Start: 2, End: 4.97}, {Start: 5, End: 8}}

	job, err := h.run(t, silenceCut())
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	want := []types.TimeSpan{{Start: 0, End: 2}, {Start: 8, End: 10}}
	if h.media.cutReq == nil || !reflect.DeepEqual(h.media.cutReq.Segments, want) {
		t.Fatalf("unexpected cut request %+v", h.media.cutReq)
	}
	for _, seg := range h.media.cutReq.Segments {
		if seg.Duration() < media.DefaultCrossfade {
			t.Fatalf("engine invoked with a segment shorter than the crossfade: %v", seg)
		}
	}
	task, _ := h.tracker.Get(job.ID)
	if task.Result.FinalVideoPath != "/out/cut.mp4" {
		t.Fatalf("expected the cut video, got %s", task.Result.FinalVideoPath)
	}
	if !reflect.DeepEqual(task.Result.KeepSegments, want) {
		t.Fatalf("keep_segments = %v, want %v", task.Result.KeepSegments, want)
	}
}

func TestProcess_FailedCutReportsFullKeepSet(t *testing.T) {
	h := newHarness(t)
	h.media.silence = []types.TimeSpan{{Start: 3, End: 4}}
	h.media.cutErr = errors.New("ffmpeg exited 1")

	job, err := h.run(t, silenceCut())
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	task, _ := h.tracker.Get(job.ID)
	if task.Result.FinalVideoPath != "/out/input.mp4" {
		t.Fatalf("expected the uncut video, got %s", task.Result.FinalVideoPath)
	}
	want := []types.TimeSpan{{Start: 0, End: 10}}
	if !reflect.DeepEqual(task.Result.KeepSegments, want) {
		t.Fatalf("keep_segments = %v, want %v", task.Result.KeepSegments, want)
	}
}

func TestProcess_UnclassifiedSilenceIsNotCut(t *testing.T) {
	h := newHarness(t)
	h.media.silence = []types.TimeSpan{{Start: 3, End: 4}}

	job, err := h.run(t, types.Recipe{DetectSilence: true, CutVideo: true, RemoveSilence: true})
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if h.media.called("cut") {
		t.Fatalf("unclassified silence was cut: %+v", h.media.cutReq)
	}
	task, _ := h.tracker.Get(job.ID)
	if len(task.Result.SilenceIntervals) != 0 {
		t.Fatalf("silence_intervals should only carry classified spans: %+v", task.Result.SilenceIntervals)
	}
	data, _ := json.Marshal(task.Result)
	if !strings.Contains(string(data), `"silence_intervals":[]`) {
		t.Fatalf("expected empty silence_intervals in %s", data)
	}
}

func TestProcess_UnknownSilenceIsKept(t *testing.T) {
	h := newHarness(t)
	h.media.silence = []types.TimeSpan{{Start: 3, End: 4}}
	h.analyzer.label = ""

	job, err := h.run(t, silenceCut())
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if h.media.called("cut") {
		t.Fatal("silence that failed classification was cut")
	}
	task, _ := h.tracker.Get(job.ID)
	spans := task.Result.SilenceIntervals
	if len(spans) != 1 || spans[0].Type != types.SilenceUnknown || spans[0].Removable {
		t.Fatalf("unexpected silence %+v", spans)
	}
}

func TestProcess_EverythingRemoved(t *testing.T) {
	h := newHarness(t)
	h.media.silence = []types.TimeSpan{{Start: 0, End: 10}}

	recipe := silenceCut()
	recipe.ExportTimeline = true
	job, err := h.run(t, recipe)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	res, _ := h.tracker.Get(job.ID)
	if !res.Result.EverythingRemoved || len(res.Result.KeepSegments) != 0 {
		t.Fatalf("unexpected result %+v", res.Result)
	}
	if h.media.called("cut") || res.Result.TimelinePath != "" {
		t.Fatal("cut or timeline ran with an empty keep set")
	}
}

func TestProcess_UnknownDurationSkipsCut(t *testing.T) {
	h := newHarness(t)
	h.media.probeErr = errors.New("ffprobe missing")
	h.media.meta = nil
	h.media.silence = []types.TimeSpan{{Start: 1, End: 2}}

	job, err := h.run(t, silenceCut())
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	task, _ := h.tracker.Get(job.ID)
	if h.media.called("cut") || len(task.Result.AvailableAspectRatios) != 0 {
		t.Fatalf("unexpected result %+v", task.Result)
	}
}

func TestProcess_TimelineExport(t *testing.T) {
	h := newHarness(t)
	h.media.silence = []types.TimeSpan{{Start: 3, End: 4}}

	recipe := silenceCut()
	recipe.ExportTimeline = true
	job, err := h.run(t, recipe)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	task, _ := h.tracker.Get(job.ID)
	if task.Result.TimelinePath != "/out/timeline.xml" {
		t.Fatalf("timeline not published: %+v", task.Result)
	}
}

func TestProcess_AISilenceDetector(t *testing.T) {
	h := newHarness(t)
	h.analyzer.label = ""

	job, err := h.run(t, types.Recipe{Transcribe: true, DetectSilence: true, ClassifySilence: true, SilenceDetector: types.SilenceDetectorAI})
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if h.media.called("detect_silence") {
		t.Fatal("ffmpeg detector used")
	}
	task, _ := h.tracker.Get(job.ID)
	if len(task.Result.SilenceIntervals) != 1 || task.Result.SilenceIntervals[0].Type != types.SilenceUnknown {
		t.Fatalf("unexpected silence %+v", task.Result.SilenceIntervals)
	}
}

func TestProcess_PublishFailureIsFatal(t *testing.T) {
	h := newHarness(t)
	h.publisher.err = errors.New("disk full")

	if _, err := h.run(t, types.Recipe{}); err == nil {
		t.Fatal("expected publish error")
	}
	h.assertWorkspaceRemoved(t)
}

func TestProcess_WorkspaceRemovedOnPanic(t *testing.T) {
	h := newHarness(t)
	h.media.probePanic = true

	func() {
		defer func() {
			if r := recover(); r == nil {
				t.Fatal("expected panic")
			}
		}()
		h.run(t, types.Recipe{})
	}()
	h.assertWorkspaceRemoved(t)
}

func TestProcess_Cancelled(t *testing.T) {
	h := newHarness(t)
	p, _ := New(Deps{Fetcher: h.fetcher, Media: h.media, Publisher: h.publisher, Tracker: h.tracker},
		Options{WorkDir: h.workDir}, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	job := queue.NewJob("x", types.Recipe{})
	h.tracker.Create(job.ID, "x")

	if err := p.Process(ctx, job); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
	h.assertWorkspaceRemoved(t)
}

func TestNew_RequiresCollaborators(t *testing.T) {
	if _, err := New(Deps{}, Options{}, zerolog.Nop()); err == nil {
		t.Fatal("expected error")
	}
}

func TestAvailableAspectRatios(t *testing.T) {
	cases := []struct {
		meta *types.VideoMetadata
		want string
	}{
		{nil, ""},
		{&types.VideoMetadata{AspectRatio: "16:9"}, "16:9,9:16"},
		{&types.VideoMetadata{AspectRatio: "4:3"}, "4:3"},
		{&types.VideoMetadata{}, ""},
	}
	for _, c := range cases {
		got := AvailableAspectRatios(c.meta)
		if got == nil || strings.Join(got, ",") != c.want {
			t.Errorf("AvailableAspectRatios(%+v) = %v, want %q", c.meta, got, c.want)
		}
	}
}
