package media

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/codebuildervaibhav/video-pipeline/internal/types"
)

// DefaultCrossfade is the fade length between kept segments, in seconds
const DefaultCrossfade = 0.05

var (
	// ErrEmptyKeepSet is returned when there is nothing left to cut together
	ErrEmptyKeepSet = errors.New("keep set is empty")
	// ErrSegmentTooShort is returned when a segment cannot hold the crossfade
	ErrSegmentTooShort = errors.New("segment shorter than crossfade")
)

// SegmentError identifies the kept segment that failed validation
type SegmentError struct {
	Index     int
	Span      types.TimeSpan
	Crossfade float64
	Err       error
}

func (e *SegmentError) Error() string {
	return fmt.Sprintf("segment %d [%s, %s] (crossfade %s): %v",
		e.Index, fmtSeconds(e.Span.Start), fmtSeconds(e.Span.End), fmtSeconds(e.Crossfade), e.Err)
}

func (e *SegmentError) Unwrap() error { return e.Err }

// CutMode is how kept segments are joined
type CutMode string

const (
	CutTrim      CutMode = "trim"
	CutCrossfade CutMode = "crossfade"
	CutConcat    CutMode = "concat"
)

// Transition joins segment Index with segment Index+1
type Transition struct {
	Index int
	// Offset is where the fade starts within segment Index
	Offset float64
	// StreamOffset is where the fade starts on the joined output so far
	StreamOffset float64
}

// CutRequest is a validated description of the cut for the engine
type CutRequest struct {
	Mode        CutMode
	Segments    []types.TimeSpan
	Crossfade   float64
	Transitions []Transition
	// NoAudio drops the audio chains for sources without an audio stream
	NoAudio bool
}

// PlanCut validates a keep set and maps it onto an engine request. One
// segment is a plain trim. Several segments are chained with crossfades of
// the given length, or concatenated when crossfade is not positive. Every
// segment must be at least as long as the crossfade.
func PlanCut(keep []types.TimeSpan, crossfade float64) (*CutRequest, error) {
	if len(keep) == 0 {
		return nil, ErrEmptyKeepSet
	}
	for i, seg := range keep {
		if seg.Start < 0 || seg.End <= seg.Start {
			return nil, &SegmentError{Index: i, Span: seg, Crossfade: crossfade, Err: errors.New("end must follow a non-negative start")}
		}
		if i > 0 && seg.Start < keep[i-1].End {
			return nil, &SegmentError{Index: i, Span: seg, Crossfade: crossfade, Err: errors.New("overlaps previous segment")}
		}
	}

	req := &CutRequest{
		Segments: append([]types.TimeSpan(nil), keep...),
	}
	switch {
	case len(keep) == 1:
		req.Mode = CutTrim
		return req, nil
	case crossfade <= 0:
		req.Mode = CutConcat
		return req, nil
	}

	req.Mode = CutCrossfade
	req.Crossfade = crossfade
	for i, seg := range keep {
		if seg.Duration() < crossfade {
			return nil, &SegmentError{Index: i, Span: seg, Crossfade: crossfade, Err: ErrSegmentTooShort}
		}
	}

	var joined float64
	for i := 0; i < len(keep)-1; i++ {
		joined += keep[i].Duration()
		req.Transitions = append(req.Transitions, Transition{
			Index:        i,
			Offset:       keep[i].Duration() - crossfade,
			StreamOffset: joined - float64(i+1)*crossfade,
		})
	}
	return req, nil
}

// DropShortSegments removes segments too short to carry a crossfade on
// either side, folding them into the neighbouring removals. A single
// segment or a disabled crossfade keeps everything.
func DropShortSegments(keep []types.TimeSpan, crossfade float64) (kept, dropped []types.TimeSpan) {
	if crossfade <= 0 || len(keep) < 2 {
		return keep, nil
	}
	kept = make([]types.TimeSpan, 0, len(keep))
	for _, seg := range keep {
		if seg.Duration() < crossfade {
			dropped = append(dropped, seg)
			continue
		}
		kept = append(kept, seg)
	}
	return kept, dropped
}

// OutputDuration is the length of the joined media
func (r *CutRequest) OutputDuration() float64 {
	var total float64
	for _, s := range r.Segments {
		total += s.Duration()
	}
	if r.Mode == CutCrossfade {
		total -= float64(len(r.Transitions)) * r.Crossfade
	}
	return total
}

// FilterGraph renders the request as an ffmpeg filter_complex graph whose
// outputs are labelled [outv] and [outa]
func (r *CutRequest) FilterGraph() string {
	var b strings.Builder
	n := len(r.Segments)
	single := n == 1

	for i, seg := range r.Segments {
		vLabel, aLabel := fmt.Sprintf("v%d", i), fmt.Sprintf("a%d", i)
		if single {
			vLabel, aLabel = "outv", "outa"
		}
		fmt.Fprintf(&b, "[0:v]trim=start=%s:end=%s,setpts=PTS-STARTPTS[%s];",
			fmtSeconds(seg.Start), fmtSeconds(seg.End), vLabel)
		if !r.NoAudio {
			fmt.Fprintf(&b, "[0:a]atrim=start=%s:end=%s,asetpts=PTS-STARTPTS[%s];",
				fmtSeconds(seg.Start), fmtSeconds(seg.End), aLabel)
		}
	}

	switch {
	case single:
	case r.Mode == CutConcat:
		for i := 0; i < n; i++ {
			fmt.Fprintf(&b, "[v%d]", i)
			if !r.NoAudio {
				fmt.Fprintf(&b, "[a%d]", i)
			}
		}
		if r.NoAudio {
			fmt.Fprintf(&b, "concat=n=%d:v=1:a=0[outv]", n)
		} else {
			fmt.Fprintf(&b, "concat=n=%d:v=1:a=1[outv][outa]", n)
		}
	default:
		prevV, prevA := "v0", "a0"
		for _, t := range r.Transitions {
			outV, outA := fmt.Sprintf("vx%d", t.Index), fmt.Sprintf("ax%d", t.Index)
			if t.Index == n-2 {
				outV, outA = "outv", "outa"
			}
			fmt.Fprintf(&b, "[%s][v%d]xfade=transition=fade:duration=%s:offset=%s[%s];",
				prevV, t.Index+1, fmtSeconds(r.Crossfade), fmtSeconds(t.StreamOffset), outV)
			if !r.NoAudio {
				fmt.Fprintf(&b, "[%s][a%d]acrossfade=d=%s[%s];",
					prevA, t.Index+1, fmtSeconds(r.Crossfade), outA)
			}
			prevV, prevA = outV, outA
		}
	}

	return strings.TrimSuffix(b.String(), ";")
}

// Args builds the ffmpeg arguments that apply the request to input
func (r *CutRequest) Args(input, output string, enc Options) []string {
	args := []string{
		"-i", input,
		"-filter_complex", r.FilterGraph(),
		"-map", "[outv]",
	}
	if !r.NoAudio {
		args = append(args, "-map", "[outa]")
	}
	args = append(args,
		"-c:v", enc.VideoCodec,
		"-preset", enc.Preset,
		"-crf", strconv.Itoa(enc.CRF),
	)
	if !r.NoAudio {
		args = append(args, "-c:a", enc.AudioCodec)
	}
	return append(args, output)
}

// Cut applies a planned cut to input and writes output
func (e *Executor) Cut(ctx context.Context, req *CutRequest, input, output string) error {
	e.logger.Info().
		Str("input", input).
		Str("output", output).
		Str("mode", string(req.Mode)).
		Int("segments", len(req.Segments)).
		Msg("cutting video")

	return e.Run(ctx, RunOptions{
		Op:   "cut",
		Args: req.Args(input, output, e.opts),
		LogHandler: func(line string) {
			e.logger.Trace().Str("ffmpeg", line).Msg("cut")
		},
	})
}

func fmtSeconds(sec float64) string {
	return strconv.FormatFloat(sec, 'f', 3, 64)
}
