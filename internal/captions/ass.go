package captions

import (
	"fmt"
	"math"
	"strings"

	"github.com/codebuildervaibhav/video-pipeline/internal/types"
)

// ASS alignment codes (numpad layout)
const (
	AlignTop    = 8
	AlignMiddle = 5
	AlignBottom = 2
)

// StyleLine is a fully resolved ASS style record
type StyleLine struct {
	Name            string
	Fontname        string
	Fontsize        string
	PrimaryColour   string
	SecondaryColour string
	OutlineColour   string
	BackColour      string
	Bold            string
	Italic          string
	Underline       string
	StrikeOut       string
	ScaleX          string
	ScaleY          string
	Spacing         string
	Angle           string
	BorderStyle     string
	Outline         string
	Shadow          string
	Alignment       int
	MarginL         string
	MarginR         string
	MarginV         string
	Encoding        string
}

// String renders the "Style:" line in V4+ field order
func (s StyleLine) String() string {
	fields := []string{
		s.Name, s.Fontname, s.Fontsize, s.PrimaryColour, s.SecondaryColour,
		s.OutlineColour, s.BackColour, s.Bold, s.Italic, s.Underline, s.StrikeOut,
		s.ScaleX, s.ScaleY, s.Spacing, s.Angle, s.BorderStyle, s.Outline, s.Shadow,
		fmt.Sprintf("%d", s.Alignment), s.MarginL, s.MarginR, s.MarginV, s.Encoding,
	}
	return "Style: " + strings.Join(fields, ",")
}

// Event is one dialogue line of the overlay
type Event struct {
	Start float64
	End   float64
	Text  string
}

// Document is a styled overlay ready to be written as an .ass file
type Document struct {
	Style  StyleLine
	Events []Event
}

// AlignmentFor maps a position name to its alignment code. Unknown or empty
// positions are bottom aligned.
func AlignmentFor(position string) int {
	switch strings.ToLower(strings.TrimSpace(position)) {
	case "top":
		return AlignTop
	case "middle":
		return AlignMiddle
	default:
		return AlignBottom
	}
}

// ResolveStyle fills every style attribute from cfg or the defaults
func ResolveStyle(cfg *types.StyleConfig) StyleLine {
	if cfg == nil {
		cfg = &types.StyleConfig{}
	}
	str := func(v, def string) string {
		if strings.TrimSpace(v) == "" {
			return def
		}
		return strings.TrimSpace(v)
	}
	return StyleLine{
		Name:            "Default",
		Fontname:        str(cfg.Fontname, "Arial"),
		Fontsize:        cfg.Fontsize.Or("72"),
		PrimaryColour:   str(cfg.PrimaryColour, "&H00FFFFFF"),
		SecondaryColour: str(cfg.SecondaryColour, "&H000000FF"),
		OutlineColour:   str(cfg.OutlineColour, "&H00000000"),
		BackColour:      str(cfg.BackColour, "&H80000000"),
		Bold:            cfg.Bold.Or("0"),
		Italic:          cfg.Italic.Or("0"),
		Underline:       cfg.Underline.Or("0"),
		StrikeOut:       cfg.StrikeOut.Or("0"),
		ScaleX:          cfg.ScaleX.Or("100"),
		ScaleY:          cfg.ScaleY.Or("100"),
		Spacing:         cfg.Spacing.Or("0"),
		Angle:           cfg.Angle.Or("0"),
		BorderStyle:     cfg.BorderStyle.Or("1"),
		Outline:         cfg.Outline.Or("3"),
		Shadow:          cfg.Shadow.Or("2"),
		Alignment:       AlignmentFor(cfg.Position),
		MarginL:         cfg.MarginL.Or("30"),
		MarginR:         cfg.MarginR.Or("30"),
		MarginV:         cfg.MarginV.Or("30"),
		Encoding:        cfg.Encoding.Or("1"),
	}
}

// Style converts cues into a styled overlay, one event per cue in input
// order. Cues with negative or non-increasing times are skipped, as are
// cues that round to the same centisecond.
func Style(cues []Cue, cfg *types.StyleConfig) *Document {
	doc := &Document{Style: ResolveStyle(cfg)}
	for _, c := range cues {
		if c.Start < 0 || c.End <= c.Start {
			continue
		}
		// cues shorter than a centisecond render as zero-length lines
		if assTime(c.Start) == assTime(c.End) {
			continue
		}
		doc.Events = append(doc.Events, Event{
			Start: c.Start,
			End:   c.End,
			Text:  sanitizeASS(c.Text),
		})
	}
	return doc
}

// String renders the complete .ass script
func (d *Document) String() string {
	var b strings.Builder
	b.WriteString(assHeader)
	b.WriteString(d.Style.String())
	b.WriteString("\n\n[Events]\n")
	b.WriteString("Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text\n")
	for _, e := range d.Events {
		fmt.Fprintf(&b, "Dialogue: 0,%s,%s,%s,,0,0,0,,%s\n", assTime(e.Start), assTime(e.End), d.Style.Name, e.Text)
	}
	return b.String()
}

const assHeader = `[Script Info]
Title: video-pipeline captions
ScriptType: v4.00+
WrapStyle: 0
PlayResX: 1920
PlayResY: 1080
ScaledBorderAndShadow: yes

[V4+ Styles]
Format: Name, Fontname, Fontsize, PrimaryColour, SecondaryColour, OutlineColour, BackColour, Bold, Italic, Underline, StrikeOut, ScaleX, ScaleY, Spacing, Angle, BorderStyle, Outline, Shadow, Alignment, MarginL, MarginR, MarginV, Encoding
`

// assTime formats seconds as h:mm:ss.cc, truncating to centiseconds
func assTime(sec float64) string {
	if sec < 0 {
		sec = 0
	}
	cs := int64(math.Floor(sec*100 + 1e-6))
	h := cs / 360000
	cs -= h * 360000
	m := cs / 6000
	cs -= m * 6000
	s := cs / 100
	cs -= s * 100
	return fmt.Sprintf("%d:%02d:%02d.%02d", h, m, s, cs)
}

func sanitizeASS(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "{", "(")
	s = strings.ReplaceAll(s, "}", ")")
	return strings.TrimSpace(s)
}
