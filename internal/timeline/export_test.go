package timeline

import (
	"bytes"
	"encoding/xml"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/codebuildervaibhav/video-pipeline/internal/types"
)

func meta30() *types.VideoMetadata {
	return &types.VideoMetadata{
		Width: 1920, Height: 1080, AspectRatio: "16:9", Duration: 40, FrameRate: 30,
		Audio: &types.AudioInfo{SampleRate: 48000, Channels: 2},
	}
}

func TestExport_BackToBackPlacement(t *testing.T) {
	keep := []types.TimeSpan{{Start: 0, End: 10}, {Start: 20, End: 30}}
	data, err := Export(meta30(), keep, "talk.mp4")
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	var doc Document
	if err := xml.Unmarshal(data, &doc); err != nil {
		t.Fatalf("output is not well-formed: %v", err)
	}

	video := doc.Sequence.Media.Video.Track.ClipItems
	audio := doc.Sequence.Media.Audio.Track.ClipItems
	if len(video) != 2 || len(audio) != 2 {
		t.Fatalf("expected 2 clips per track, got %d/%d", len(video), len(audio))
	}

	second := video[1]
	if second.Start != 300 || second.End != 600 {
		t.Fatalf("second clip placed at %d-%d, want 300-600", second.Start, second.End)
	}
	if second.In != 600 || second.Out != 900 {
		t.Fatalf("second clip source range %d-%d, want 600-900", second.In, second.Out)
	}
	if audio[1].In != second.In || audio[1].Out != second.Out || audio[1].Start != second.Start {
		t.Fatalf("audio clip not aligned with video: %+v", audio[1])
	}
	if doc.Sequence.Duration != 600 {
		t.Fatalf("sequence duration = %d, want 600", doc.Sequence.Duration)
	}
	if doc.Sequence.Name != "talk" || doc.Sequence.Rate.NTSC != "FALSE" {
		t.Fatalf("unexpected sequence header: %+v", doc.Sequence)
	}
}

func TestExport_LinksAndSharedFile(t *testing.T) {
	keep := []types.TimeSpan{{Start: 1, End: 2}, {Start: 3, End: 4}, {Start: 5, End: 6}}
	doc, err := Build(meta30(), keep, "/media/in.mov")
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	video := doc.Sequence.Media.Video.Track.ClipItems
	audio := doc.Sequence.Media.Audio.Track.ClipItems
	for i := range video {
		v, a := video[i], audio[i]
		if v.Links[0].LinkClipRef != v.ID || v.Links[1].LinkClipRef != a.ID {
			t.Fatalf("clip %d video links wrong: %+v", i, v.Links)
		}
		if a.Links[0].LinkClipRef != v.ID || a.Links[1].LinkClipRef != a.ID {
			t.Fatalf("clip %d audio links wrong: %+v", i, a.Links)
		}
		if v.Links[0].ClipIndex != i+1 || a.Links[1].GroupIndex != 1 {
			t.Fatalf("clip %d link indexes wrong: %+v", i, a.Links)
		}
		if v.File.ID != "file-1" || a.File.ID != "file-1" {
			t.Fatalf("clip %d does not reference file-1", i)
		}
	}
	if video[0].File.Media == nil || *video[0].File.Duration != 1200 {
		t.Fatalf("first use should carry the full file record: %+v", video[0].File)
	}
	if video[1].File.Media != nil || video[1].File.PathURL != "" {
		t.Fatalf("later uses should only reference the file: %+v", video[1].File)
	}
	if video[0].Name != "in.mov" || video[0].File.PathURL != "/media/in.mov" {
		t.Fatalf("unexpected names: %q %q", video[0].Name, video[0].File.PathURL)
	}
}

func TestExport_Deterministic(t *testing.T) {
	keep := []types.TimeSpan{{Start: 0.5, End: 7.25}, {Start: 9, End: 12}}
	a, err := Export(meta30(), keep, "x.mp4")
	if err != nil {
		t.Fatal(err)
	}
	b, _ := Export(meta30(), keep, "x.mp4")
	if !bytes.Equal(a, b) {
		t.Fatal("export is not deterministic")
	}
	if !strings.HasPrefix(string(a), xml.Header) {
		t.Fatal("missing xml header")
	}
	if strings.Count(string(a), "<pathurl>") != 1 {
		t.Fatal("file record should be written in full once")
	}
}

func TestExport_FrameRounding(t *testing.T) {
	m := meta30()
	m.FrameRate = 29.97
	doc, err := Build(m, []types.TimeSpan{{Start: 1.01, End: 2.0}}, "a.mp4")
	if err != nil {
		t.Fatal(err)
	}
	clip := doc.Sequence.Media.Video.Track.ClipItems[0]
	// 1.01*29.97 = 30.27 -> 30, 2.0*29.97 = 59.94 -> 60
	if clip.In != 30 || clip.Out != 60 {
		t.Fatalf("in/out = %d/%d, want 30/60", clip.In, clip.Out)
	}
	if doc.Sequence.Rate.Timebase != 30 || doc.Sequence.Rate.NTSC != "TRUE" {
		t.Fatalf("unexpected rate: %+v", doc.Sequence.Rate)
	}
}

func TestExport_DefaultsWithoutMetadata(t *testing.T) {
	doc, err := Build(nil, []types.TimeSpan{{Start: 0, End: 1}}, "a.mp4")
	if err != nil {
		t.Fatal(err)
	}
	sc := doc.Sequence.Media.Video.Format.SampleCharacteristics
	if sc.Width != DefaultWidth || doc.Sequence.Rate.Timebase != 30 {
		t.Fatalf("defaults not applied: %+v", sc)
	}
	if doc.Sequence.Media.Audio.Format.SampleCharacteristics.SampleRate != DefaultSampleRate {
		t.Fatal("default sample rate not applied")
	}
}

func TestExport_RejectsBadSegments(t *testing.T) {
	tests := []struct {
		name string
		keep []types.TimeSpan
	}{
		{"reversed", []types.TimeSpan{{Start: 5, End: 2}}},
		{"negative", []types.TimeSpan{{Start: -1, End: 2}}},
		{"overlapping", []types.TimeSpan{{Start: 0, End: 5}, {Start: 4, End: 6}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Export(meta30(), tt.keep, "a.mp4")
			var segErr *SegmentError
			if !errors.As(err, &segErr) {
				t.Fatalf("expected SegmentError, got %v", err)
			}
		})
	}
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "timeline.xml")
	if err := WriteFile(path, meta30(), []types.TimeSpan{{Start: 0, End: 3}}, "a.mp4"); err != nil {
		t.Fatalf("write: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `<sequence id="sequence-1">`) {
		t.Fatalf("unexpected content:\n%s", data)
	}
}
