package types

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Silence detector backends
const (
	SilenceDetectorFFmpeg = "ffmpeg"
	SilenceDetectorAI     = "ai"
)

// Recipe selects which pipeline stages run for a job. A missing key in a
// submitted recipe disables its stage.
type Recipe struct {
	ApplyNoiseReduction bool         `json:"apply_noise_reduction"`
	Transcribe          bool         `json:"transcribe"`
	DetectSilence       bool         `json:"detect_silence"`
	ClassifyContent     bool         `json:"classify_content"`
	ClassifySilence     bool         `json:"classify_silence"`
	DetectFillerWords   bool         `json:"detect_filler_words"`
	CutVideo            bool         `json:"cut_video"`
	RemoveSilence       bool         `json:"remove_silence"`
	RemoveFillerWords   bool         `json:"remove_filler_words"`
	BurnCaptions        bool         `json:"burn_captions"`
	ASSStyle            *StyleConfig `json:"ass_style,omitempty"`

	DetectRetakes        bool     `json:"detect_retakes,omitempty"`
	RemoveRetakes        bool     `json:"remove_retakes,omitempty"`
	SuggestBRoll         bool     `json:"suggest_b_roll,omitempty"`
	ExportTimeline       bool     `json:"export_timeline,omitempty"`
	SilenceDetector      string   `json:"silence_detector,omitempty"`
	SilenceTypesToRemove []string `json:"silence_types_to_remove,omitempty"`
}

// DefaultRecipe is used when a submission carries no recipe
func DefaultRecipe() Recipe {
	return Recipe{
		ApplyNoiseReduction: true,
		Transcribe:          true,
		DetectSilence:       true,
		ClassifyContent:     true,
		ClassifySilence:     true,
		DetectFillerWords:   true,
		CutVideo:            true,
		RemoveSilence:       true,
		RemoveFillerWords:   true,
		BurnCaptions:        true,
		ASSStyle: &StyleConfig{
			Position:      "Bottom",
			WordsPerLine:  10,
			Fontname:      "Arial",
			Fontsize:      "72",
			PrimaryColour: "&H00FFFFFF",
			Outline:       "3",
			Shadow:        "2",
		},
	}
}

// SilenceRemovable reports whether a silence label is removed under the
// recipe. An empty SilenceTypesToRemove removes every label.
func (r Recipe) SilenceRemovable(label string) bool {
	if len(r.SilenceTypesToRemove) == 0 {
		return true
	}
	for _, t := range r.SilenceTypesToRemove {
		if strings.EqualFold(strings.TrimSpace(t), label) {
			return true
		}
	}
	return false
}

// StyleConfig is the caption style section of a recipe. Keys follow the
// ASS style field names so a recipe can be written against the format
// directly. Unset values resolve to the stylist defaults.
type StyleConfig struct {
	Position        string     `json:"position,omitempty" yaml:"position"`
	WordsPerLine    int        `json:"words_per_line,omitempty" yaml:"words_per_line"`
	Fontname        string     `json:"Fontname,omitempty" yaml:"fontname"`
	Fontsize        StyleValue `json:"Fontsize,omitempty" yaml:"fontsize"`
	PrimaryColour   string     `json:"PrimaryColour,omitempty" yaml:"primary_colour"`
	SecondaryColour string     `json:"SecondaryColour,omitempty" yaml:"secondary_colour"`
	OutlineColour   string     `json:"OutlineColour,omitempty" yaml:"outline_colour"`
	BackColour      string     `json:"BackColour,omitempty" yaml:"back_colour"`
	Bold            StyleValue `json:"Bold,omitempty" yaml:"bold"`
	Italic          StyleValue `json:"Italic,omitempty" yaml:"italic"`
	Underline       StyleValue `json:"Underline,omitempty" yaml:"underline"`
	StrikeOut       StyleValue `json:"StrikeOut,omitempty" yaml:"strike_out"`
	ScaleX          StyleValue `json:"ScaleX,omitempty" yaml:"scale_x"`
	ScaleY          StyleValue `json:"ScaleY,omitempty" yaml:"scale_y"`
	Spacing         StyleValue `json:"Spacing,omitempty" yaml:"spacing"`
	Angle           StyleValue `json:"Angle,omitempty" yaml:"angle"`
	BorderStyle     StyleValue `json:"BorderStyle,omitempty" yaml:"border_style"`
	Outline         StyleValue `json:"Outline,omitempty" yaml:"outline"`
	Shadow          StyleValue `json:"Shadow,omitempty" yaml:"shadow"`
	MarginL         StyleValue `json:"MarginL,omitempty" yaml:"margin_l"`
	MarginR         StyleValue `json:"MarginR,omitempty" yaml:"margin_r"`
	MarginV         StyleValue `json:"MarginV,omitempty" yaml:"margin_v"`
	Encoding        StyleValue `json:"Encoding,omitempty" yaml:"encoding"`
}

// StyleValue holds a style attribute written either as a JSON string or a
// JSON number. The empty value means unset.
type StyleValue string

// UnmarshalJSON keeps the literal text of numbers, strings and booleans
func (v *StyleValue) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	switch {
	case s == "null":
		*v = ""
	case strings.HasPrefix(s, `"`):
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		*v = StyleValue(str)
	case s == "true":
		*v = "1"
	case s == "false":
		*v = "0"
	default:
		if _, err := strconv.ParseFloat(s, 64); err != nil {
			return err
		}
		*v = StyleValue(s)
	}
	return nil
}

// Or returns the value, or def when unset
func (v StyleValue) Or(def string) string {
	if strings.TrimSpace(string(v)) == "" {
		return def
	}
	return strings.TrimSpace(string(v))
}
