package types

// TimeSpan is an interval of media time in seconds
type TimeSpan struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Duration returns End - Start
func (s TimeSpan) Duration() float64 {
	return s.End - s.Start
}

// ClassifiedSpan is a TimeSpan carrying a label and a removability flag
type ClassifiedSpan struct {
	TimeSpan
	Type      string `json:"type"`
	Removable bool   `json:"removable"`
}

// FillerWord is a detected verbal filler
type FillerWord struct {
	Word         string    `json:"word"`
	Start        Timestamp `json:"start"`
	End          Timestamp `json:"end"`
	CanBeRemoved bool      `json:"can_be_removed"`
	Reasoning    string    `json:"reasoning"`
}

// Span returns the filler word as a classified span
func (f FillerWord) Span() ClassifiedSpan {
	return ClassifiedSpan{
		TimeSpan:  TimeSpan{Start: float64(f.Start), End: float64(f.End)},
		Type:      "filler",
		Removable: f.CanBeRemoved,
	}
}

// Retake is a stumbled or repeated passage suggested for removal
type Retake struct {
	Start     Timestamp `json:"start"`
	End       Timestamp `json:"end"`
	Reasoning string    `json:"reasoning"`
}

// Span returns the retake as a removable classified span
func (r Retake) Span() ClassifiedSpan {
	return ClassifiedSpan{
		TimeSpan:  TimeSpan{Start: float64(r.Start), End: float64(r.End)},
		Type:      "retake",
		Removable: true,
	}
}
