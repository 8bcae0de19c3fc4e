// Package planner turns detected silence, filler and retake spans into the
// set of segments to keep.
package planner

import (
	"errors"

	"github.com/codebuildervaibhav/video-pipeline/internal/interval"
	"github.com/codebuildervaibhav/video-pipeline/internal/types"
)

// ErrUnknownDuration is returned when the media duration is not positive
var ErrUnknownDuration = errors.New("planner: media duration unknown")

// Policy is the part of a recipe that decides what gets removed
type Policy struct {
	CutVideo          bool
	RemoveSilence     bool
	RemoveFillerWords bool
	RemoveRetakes     bool
}

// PolicyFromRecipe extracts the cut policy from a recipe
func PolicyFromRecipe(r types.Recipe) Policy {
	return Policy{
		CutVideo:          r.CutVideo,
		RemoveSilence:     r.RemoveSilence,
		RemoveFillerWords: r.RemoveFillerWords,
		RemoveRetakes:     r.RemoveRetakes,
	}
}

// Sources are the independently detected span sets
type Sources struct {
	Silence []types.ClassifiedSpan
	Filler  []types.ClassifiedSpan
	Retakes []types.ClassifiedSpan
}

// Plan is the outcome of cut planning
type Plan struct {
	Duration float64
	Removed  []types.TimeSpan
	Keep     []types.TimeSpan
	// Dropped counts removable spans discarded as empty after clamping
	Dropped int
}

// EverythingRemoved reports whether no media survives the cut
func (p *Plan) EverythingRemoved() bool {
	return len(p.Keep) == 0
}

// Build computes the keep set. A nil plan means no cut is needed and the
// media passes through unchanged.
func Build(duration float64, src Sources, policy Policy) (*Plan, error) {
	if !policy.CutVideo {
		return nil, nil
	}

	var removable []types.TimeSpan
	collect := func(enabled bool, spans []types.ClassifiedSpan) {
		if !enabled {
			return
		}
		for _, s := range spans {
			if s.Removable {
				removable = append(removable, s.TimeSpan)
			}
		}
	}
	collect(policy.RemoveSilence, src.Silence)
	collect(policy.RemoveFillerWords, src.Filler)
	collect(policy.RemoveRetakes, src.Retakes)

	if len(removable) == 0 {
		return nil, nil
	}
	if duration <= 0 {
		return nil, ErrUnknownDuration
	}

	clamped := interval.Clamp(removable, duration)
	plan := &Plan{
		Duration: duration,
		Dropped:  len(removable) - len(clamped),
	}
	if len(clamped) == 0 {
		return nil, nil
	}

	plan.Removed = interval.Merge(clamped)
	plan.Keep = interval.Complement(plan.Removed, duration)
	return plan, nil
}
