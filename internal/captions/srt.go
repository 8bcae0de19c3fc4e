package captions

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/codebuildervaibhav/video-pipeline/internal/types"
)

// Cue is one subtitle entry
type Cue struct {
	Index int
	Start float64
	End   float64
	Text  string
}

// BlockError describes an SRT block that was skipped
type BlockError struct {
	Block  int
	Reason string
}

func (e *BlockError) Error() string {
	return fmt.Sprintf("srt block %d: %s", e.Block, e.Reason)
}

var blankLineRE = regexp.MustCompile(`\n\s*\n`)

// ParseSRT reads SRT content. Blocks without a "-->" timing line or whose
// end does not follow their start are skipped and reported; parsing always
// continues with the next block.
func ParseSRT(content string) ([]Cue, []error) {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, nil
	}

	var (
		cues []Cue
		errs []error
	)
	for i, block := range blankLineRE.Split(content, -1) {
		lines := strings.Split(strings.TrimSpace(block), "\n")

		timing := -1
		for j, l := range lines {
			if strings.Contains(l, "-->") {
				timing = j
				break
			}
		}
		if timing < 0 {
			errs = append(errs, &BlockError{Block: i + 1, Reason: "missing --> separator"})
			continue
		}

		parts := strings.SplitN(lines[timing], "-->", 2)
		start, err := types.ParseTimestamp(parts[0])
		if err != nil {
			errs = append(errs, &BlockError{Block: i + 1, Reason: err.Error()})
			continue
		}
		endField := strings.Fields(parts[1])
		if len(endField) == 0 {
			errs = append(errs, &BlockError{Block: i + 1, Reason: "missing end time"})
			continue
		}
		end, err := types.ParseTimestamp(endField[0])
		if err != nil {
			errs = append(errs, &BlockError{Block: i + 1, Reason: err.Error()})
			continue
		}
		if start < 0 || end <= start {
			errs = append(errs, &BlockError{Block: i + 1, Reason: "end does not follow start"})
			continue
		}

		index := len(cues) + 1
		if timing > 0 {
			if n, err := strconv.Atoi(strings.TrimSpace(lines[0])); err == nil {
				index = n
			}
		}

		text := make([]string, 0, len(lines)-timing-1)
		for _, l := range lines[timing+1:] {
			if l = strings.TrimSpace(l); l != "" {
				text = append(text, l)
			}
		}

		cues = append(cues, Cue{
			Index: index,
			Start: start,
			End:   end,
			Text:  strings.Join(text, " "),
		})
	}
	return cues, errs
}

// ComposeSRT renders cues as SRT, renumbering from 1
func ComposeSRT(cues []Cue) string {
	var b strings.Builder
	for i, c := range cues {
		fmt.Fprintf(&b, "%d\n%s --> %s\n%s\n\n", i+1, srtTime(c.Start), srtTime(c.End), c.Text)
	}
	return b.String()
}

// CuesFromWords builds one cue per transcript word, prefixed with its
// speaker label when present
func CuesFromWords(words []types.Word) []Cue {
	cues := make([]Cue, 0, len(words))
	for _, w := range words {
		text := strings.TrimSpace(w.Word)
		if text == "" || w.End <= w.Start {
			continue
		}
		if w.Speaker != "" {
			text = fmt.Sprintf("[%s] %s", w.Speaker, text)
		}
		cues = append(cues, Cue{Index: len(cues) + 1, Start: w.Start, End: w.End, Text: text})
	}
	return cues
}

var speakerLabelRE = regexp.MustCompile(`^\[([^\]]+)\]\s*`)

// GroupCues joins consecutive cues into lines of at most n entries. A line
// never spans two speakers, and the speaker label is kept once per line.
func GroupCues(cues []Cue, n int) []Cue {
	if n <= 1 {
		out := make([]Cue, len(cues))
		copy(out, cues)
		return out
	}

	var (
		out     []Cue
		cur     *Cue
		count   int
		speaker string
	)
	flush := func() {
		if cur != nil {
			cur.Index = len(out) + 1
			out = append(out, *cur)
			cur = nil
			count = 0
		}
	}
	for _, c := range cues {
		label := ""
		body := c.Text
		if m := speakerLabelRE.FindStringSubmatch(c.Text); m != nil {
			label = m[1]
			body = strings.TrimSpace(c.Text[len(m[0]):])
		}
		if cur != nil && (count >= n || label != speaker) {
			flush()
		}
		if cur == nil {
			next := c
			cur = &next
			speaker = label
			count = 1
			continue
		}
		cur.End = c.End
		cur.Text += " " + body
		count++
	}
	flush()
	return out
}

// srtTime formats seconds as HH:MM:SS,mmm
func srtTime(sec float64) string {
	if sec < 0 {
		sec = 0
	}
	ms := int64(math.Round(sec * 1000))
	h := ms / 3600000
	ms -= h * 3600000
	m := ms / 60000
	ms -= m * 60000
	s := ms / 1000
	ms -= s * 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}
