package planner

import (
	"errors"
	"reflect"
	"testing"

	"github.com/codebuildervaibhav/video-pipeline/internal/types"
)

func cs(s, e float64, removable bool) types.ClassifiedSpan {
	return types.ClassifiedSpan{TimeSpan: types.TimeSpan{Start: s, End: e}, Removable: removable}
}

func ts(s, e float64) types.TimeSpan { return types.TimeSpan{Start: s, End: e} }

var allOn = Policy{CutVideo: true, RemoveSilence: true, RemoveFillerWords: true, RemoveRetakes: true}

func TestBuild_NoCutNeeded(t *testing.T) {
	tests := []struct {
		name   string
		src    Sources
		policy Policy
	}{
		{"cut disabled", Sources{Silence: []types.ClassifiedSpan{cs(1, 2, true)}}, Policy{RemoveSilence: true}},
		{"nothing detected", Sources{}, allOn},
		{"nothing removable", Sources{Filler: []types.ClassifiedSpan{cs(1, 2, false)}}, allOn},
		{"silence removal off", Sources{Silence: []types.ClassifiedSpan{cs(1, 2, true)}}, Policy{CutVideo: true, RemoveFillerWords: true}},
		{"spans past end", Sources{Silence: []types.ClassifiedSpan{cs(120, 130, true)}}, allOn},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := Build(100, tt.src, tt.policy)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if plan != nil {
				t.Fatalf("expected nil plan, got %+v", plan)
			}
		})
	}
}

func TestBuild_UnionOfSilenceAndFiller(t *testing.T) {
	src := Sources{
		Silence: []types.ClassifiedSpan{cs(10, 20, true), cs(50, 55, false)},
		Filler:  []types.ClassifiedSpan{cs(15, 30, true), cs(70, 71, true)},
	}
	plan, err := Build(100, src, allOn)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	wantRemoved := []types.TimeSpan{ts(10, 30), ts(70, 71)}
	wantKeep := []types.TimeSpan{ts(0, 10), ts(30, 70), ts(71, 100)}
	if !reflect.DeepEqual(plan.Removed, wantRemoved) {
		t.Fatalf("removed = %v, want %v", plan.Removed, wantRemoved)
	}
	if !reflect.DeepEqual(plan.Keep, wantKeep) {
		t.Fatalf("keep = %v, want %v", plan.Keep, wantKeep)
	}
}

func TestBuild_ClampsPastDuration(t *testing.T) {
	plan, err := Build(100, Sources{Silence: []types.ClassifiedSpan{cs(90, 104.2, true)}}, allOn)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if !reflect.DeepEqual(plan.Keep, []types.TimeSpan{ts(0, 90)}) {
		t.Fatalf("keep = %v", plan.Keep)
	}
}

func TestBuild_EverythingRemovedIsDistinctFromNoCut(t *testing.T) {
	plan, err := Build(100, Sources{Retakes: []types.ClassifiedSpan{cs(0, 60, true), cs(60, 100, true)}}, allOn)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if plan == nil {
		t.Fatal("expected a plan, got nil")
	}
	if !plan.EverythingRemoved() || len(plan.Keep) != 0 {
		t.Fatalf("expected empty keep set, got %v", plan.Keep)
	}
}

func TestBuild_UnknownDuration(t *testing.T) {
	_, err := Build(0, Sources{Silence: []types.ClassifiedSpan{cs(1, 2, true)}}, allOn)
	if !errors.Is(err, ErrUnknownDuration) {
		t.Fatalf("expected ErrUnknownDuration, got %v", err)
	}
}

func TestPolicyFromRecipe(t *testing.T) {
	p := PolicyFromRecipe(types.Recipe{CutVideo: true, RemoveFillerWords: true})
	if !p.CutVideo || p.RemoveSilence || !p.RemoveFillerWords || p.RemoveRetakes {
		t.Fatalf("unexpected policy: %+v", p)
	}
}
