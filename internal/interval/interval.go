// Package interval implements set operations over media time spans.
package interval

import (
	"sort"

	"github.com/codebuildervaibhav/video-pipeline/internal/types"
)

// Merge returns the minimal sorted set of spans covering the union of the
// input. Spans that touch are merged. Spans with End < Start are ignored.
func Merge(spans []types.TimeSpan) []types.TimeSpan {
	sorted := make([]types.TimeSpan, 0, len(spans))
	for _, s := range spans {
		if s.End < s.Start {
			continue
		}
		sorted = append(sorted, s)
	}
	if len(sorted) == 0 {
		return []types.TimeSpan{}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Start < sorted[j].Start
	})

	out := make([]types.TimeSpan, 0, len(sorted))
	cur := sorted[0]
	for _, next := range sorted[1:] {
		if next.Start <= cur.End {
			if next.End > cur.End {
				cur.End = next.End
			}
			continue
		}
		out = append(out, cur)
		cur = next
	}
	return append(out, cur)
}

// Complement returns the spans of [0, duration] not covered by removed,
// which must already be merged. The result never extends past duration.
func Complement(removed []types.TimeSpan, duration float64) []types.TimeSpan {
	keep := []types.TimeSpan{}
	cursor := 0.0
	for _, r := range removed {
		end := r.Start
		if end > duration {
			end = duration
		}
		if cursor < end {
			keep = append(keep, types.TimeSpan{Start: cursor, End: end})
		}
		if r.End > cursor {
			cursor = r.End
		}
	}
	if cursor < duration {
		keep = append(keep, types.TimeSpan{Start: cursor, End: duration})
	}
	return keep
}

// Clamp bounds spans to [0, duration] and drops the ones left empty
func Clamp(spans []types.TimeSpan, duration float64) []types.TimeSpan {
	out := make([]types.TimeSpan, 0, len(spans))
	for _, s := range spans {
		if s.Start < 0 {
			s.Start = 0
		}
		if s.End > duration {
			s.End = duration
		}
		if s.End <= s.Start {
			continue
		}
		out = append(out, s)
	}
	return out
}

// Total returns the summed length of spans
func Total(spans []types.TimeSpan) float64 {
	var sum float64
	for _, s := range spans {
		sum += s.Duration()
	}
	return sum
}
