// Package timeline exports a keep set as an xmeml v4 sequence that
// non-linear editors can import.
package timeline

import (
	"encoding/xml"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/codebuildervaibhav/video-pipeline/internal/types"
)

// Defaults for metadata the probe could not provide
const (
	DefaultFrameRate  = 30.0
	DefaultWidth      = 1920
	DefaultHeight     = 1080
	DefaultSampleRate = 44100
	DefaultChannels   = 1
)

// SegmentError reports a keep segment that cannot be placed
type SegmentError struct {
	Index int
	Span  types.TimeSpan
	Cause string
}

func (e *SegmentError) Error() string {
	return fmt.Sprintf("timeline: segment %d [%.3f, %.3f]: %s", e.Index, e.Span.Start, e.Span.End, e.Cause)
}

// format is the resolved metadata used while building a document
type format struct {
	fps        float64
	rate       Rate
	width      int
	height     int
	sampleRate int
	channels   int
	duration   float64
}

func resolveFormat(meta *types.VideoMetadata) format {
	f := format{
		fps:        DefaultFrameRate,
		width:      DefaultWidth,
		height:     DefaultHeight,
		sampleRate: DefaultSampleRate,
		channels:   DefaultChannels,
	}
	if meta != nil {
		if meta.FrameRate > 0 {
			f.fps = meta.FrameRate
		}
		if meta.Width > 0 && meta.Height > 0 {
			f.width, f.height = meta.Width, meta.Height
		}
		if meta.Audio != nil {
			if meta.Audio.SampleRate > 0 {
				f.sampleRate = meta.Audio.SampleRate
			}
			if meta.Audio.Channels > 0 {
				f.channels = meta.Audio.Channels
			}
		}
		f.duration = meta.Duration
	}

	f.rate = Rate{Timebase: int(math.Round(f.fps)), NTSC: "FALSE"}
	if f.fps != math.Trunc(f.fps) {
		f.rate.NTSC = "TRUE"
	}
	return f
}

// frames converts seconds to the nearest frame index
func (f format) frames(sec float64) int {
	return int(math.Round(sec * f.fps))
}

// Build assembles the xmeml document for keep, placing segments back to
// back from frame 0. Segments must be ordered and non-overlapping; a
// segment that rounds to zero frames is left out.
func Build(meta *types.VideoMetadata, keep []types.TimeSpan, sourceFilename string) (*Document, error) {
	f := resolveFormat(meta)
	clipName := filepath.Base(sourceFilename)

	doc := &Document{
		Version: "4",
		Sequence: Sequence{
			ID:   "sequence-1",
			Name: strings.TrimSuffix(clipName, filepath.Ext(clipName)),
			Rate: f.rate,
			Media: SequenceMedia{
				Video: VideoMedia{
					Format: VideoFormat{SampleCharacteristics: VideoCharacteristics{
						Width:            f.width,
						Height:           f.height,
						Anamorphic:       "FALSE",
						PixelAspectRatio: "square",
						FieldDominance:   "none",
						ColorDepth:       24,
						Rate:             &Rate{Timebase: f.rate.Timebase, NTSC: f.rate.NTSC},
					}},
				},
				Audio: AudioMedia{
					NumOutputChannels: 2,
					Format: AudioFormat{SampleCharacteristics: AudioCharacteristics{
						Depth:      16,
						SampleRate: f.sampleRate,
					}},
				},
			},
		},
	}

	video := &doc.Sequence.Media.Video.Track
	audio := &doc.Sequence.Media.Audio.Track

	cursor := 0
	clipCounter := 1
	prevEnd := math.Inf(-1)
	for i, seg := range keep {
		if seg.Start < 0 || seg.End <= seg.Start {
			return nil, &SegmentError{Index: i, Span: seg, Cause: "end must follow a non-negative start"}
		}
		if seg.Start < prevEnd {
			return nil, &SegmentError{Index: i, Span: seg, Cause: "overlaps or precedes the previous segment"}
		}
		prevEnd = seg.End

		in, out := f.frames(seg.Start), f.frames(seg.End)
		length := out - in
		if length <= 0 {
			continue
		}

		videoID := fmt.Sprintf("clipitem-%d", clipCounter)
		audioID := fmt.Sprintf("clipitem-%d", clipCounter+1)

		vFile := File{ID: "file-1"}
		if len(video.ClipItems) == 0 {
			vFile = f.fileRecord(clipName, sourceFilename)
		}

		vClip := ClipItem{
			ID: videoID, Name: clipName, Enabled: "TRUE",
			Duration: length, Start: cursor, End: cursor + length,
			In: in, Out: out,
			File: vFile,
		}
		aClip := vClip
		aClip.ID = audioID
		aClip.File = File{ID: "file-1"}

		// Clip indexes are 1-based positions within each track
		index := len(video.ClipItems) + 1
		links := []Link{
			{LinkClipRef: videoID, MediaType: "video", TrackIndex: 1, ClipIndex: index},
			{LinkClipRef: audioID, MediaType: "audio", TrackIndex: 1, ClipIndex: index, GroupIndex: 1},
		}
		vClip.Links = links
		aClip.Links = append([]Link(nil), links...)

		video.ClipItems = append(video.ClipItems, vClip)
		audio.ClipItems = append(audio.ClipItems, aClip)

		cursor += length
		clipCounter += 2
	}

	doc.Sequence.Duration = cursor
	return doc, nil
}

// fileRecord is the full source description emitted on first use
func (f format) fileRecord(name, path string) File {
	duration := f.frames(f.duration)
	return File{
		ID:       "file-1",
		Name:     name,
		PathURL:  path,
		Duration: &duration,
		Rate:     &Rate{Timebase: f.rate.Timebase, NTSC: f.rate.NTSC},
		Media: &FileMedia{
			Video: FileVideo{SampleCharacteristics: VideoCharacteristics{Width: f.width, Height: f.height}},
			Audio: FileAudio{
				SampleCharacteristics: AudioCharacteristics{Depth: 16, SampleRate: f.sampleRate},
				ChannelCount:          f.channels,
			},
		},
	}
}

// Export renders the timeline for keep as indented xmeml
func Export(meta *types.VideoMetadata, keep []types.TimeSpan, sourceFilename string) ([]byte, error) {
	doc, err := Build(meta, keep, sourceFilename)
	if err != nil {
		return nil, err
	}

	body, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode timeline: %w", err)
	}

	out := make([]byte, 0, len(xml.Header)+len(body)+1)
	out = append(out, xml.Header...)
	out = append(out, body...)
	out = append(out, '\n')
	return out, nil
}

// WriteFile exports the timeline and writes it to path
func WriteFile(path string, meta *types.VideoMetadata, keep []types.TimeSpan, sourceFilename string) error {
	data, err := Export(meta, keep, sourceFilename)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create timeline directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write timeline: %w", err)
	}
	return nil
}
