package timeline

import "encoding/xml"

// Document is the root of an xmeml v4 interchange file
type Document struct {
	XMLName  xml.Name `xml:"xmeml"`
	Version  string   `xml:"version,attr"`
	Sequence Sequence `xml:"sequence"`
}

// Sequence is the single edited sequence of the document
type Sequence struct {
	ID       string        `xml:"id,attr"`
	Name     string        `xml:"name"`
	Rate     Rate          `xml:"rate"`
	Media    SequenceMedia `xml:"media"`
	Duration int           `xml:"duration"`
}

// Rate is an xmeml frame rate. NTSC marks the 1000/1001 variant of Timebase.
type Rate struct {
	Timebase int    `xml:"timebase"`
	NTSC     string `xml:"ntsc"`
}

type SequenceMedia struct {
	Video VideoMedia `xml:"video"`
	Audio AudioMedia `xml:"audio"`
}

type VideoMedia struct {
	Format VideoFormat `xml:"format"`
	Track  Track       `xml:"track"`
}

type VideoFormat struct {
	SampleCharacteristics VideoCharacteristics `xml:"samplecharacteristics"`
}

type VideoCharacteristics struct {
	Width            int    `xml:"width"`
	Height           int    `xml:"height"`
	Anamorphic       string `xml:"anamorphic,omitempty"`
	PixelAspectRatio string `xml:"pixelaspectratio,omitempty"`
	FieldDominance   string `xml:"fielddominance,omitempty"`
	ColorDepth       int    `xml:"colordepth,omitempty"`
	Rate             *Rate  `xml:"rate,omitempty"`
}

type AudioMedia struct {
	NumOutputChannels int         `xml:"numOutputChannels"`
	Format            AudioFormat `xml:"format"`
	Track             Track       `xml:"track"`
}

type AudioFormat struct {
	SampleCharacteristics AudioCharacteristics `xml:"samplecharacteristics"`
}

type AudioCharacteristics struct {
	Depth      int `xml:"depth"`
	SampleRate int `xml:"samplerate"`
}

// Track holds clip items in timeline order
type Track struct {
	ClipItems []ClipItem `xml:"clipitem"`
}

// ClipItem places a source range on a track. All times are frames.
type ClipItem struct {
	ID       string `xml:"id,attr"`
	Name     string `xml:"name"`
	Enabled  string `xml:"enabled"`
	Duration int    `xml:"duration"`
	Start    int    `xml:"start"`
	End      int    `xml:"end"`
	In       int    `xml:"in"`
	Out      int    `xml:"out"`
	File     File   `xml:"file"`
	Links    []Link `xml:"link"`
}

// File is a source media record. Only the first use carries the details;
// later clip items reference it by ID alone.
type File struct {
	ID       string     `xml:"id,attr"`
	Name     string     `xml:"name,omitempty"`
	PathURL  string     `xml:"pathurl,omitempty"`
	Duration *int       `xml:"duration,omitempty"`
	Rate     *Rate      `xml:"rate,omitempty"`
	Media    *FileMedia `xml:"media,omitempty"`
}

type FileMedia struct {
	Video FileVideo `xml:"video"`
	Audio FileAudio `xml:"audio"`
}

type FileVideo struct {
	SampleCharacteristics VideoCharacteristics `xml:"samplecharacteristics"`
}

type FileAudio struct {
	SampleCharacteristics AudioCharacteristics `xml:"samplecharacteristics"`
	ChannelCount          int                  `xml:"channelcount"`
}

// Link ties a clip item to its synced partner
type Link struct {
	LinkClipRef string `xml:"linkclipref"`
	MediaType   string `xml:"mediatype"`
	TrackIndex  int    `xml:"trackindex"`
	ClipIndex   int    `xml:"clipindex"`
	GroupIndex  int    `xml:"groupindex,omitempty"`
}
