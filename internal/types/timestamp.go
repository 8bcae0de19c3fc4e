package types

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Timestamp is a point in media time, in seconds. It decodes from a JSON
// number or from a clock string such as "0:01:02.5" and encodes as seconds.
type Timestamp float64

// UnmarshalJSON accepts numbers and clock strings
func (t *Timestamp) UnmarshalJSON(b []byte) error {
	var n float64
	if err := json.Unmarshal(b, &n); err == nil {
		*t = Timestamp(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("timestamp must be a number or string: %s", string(b))
	}
	sec, err := ParseTimestamp(s)
	if err != nil {
		return err
	}
	*t = Timestamp(sec)
	return nil
}

// ParseTimestamp converts "H:MM:SS(.ms)", "MM:SS(.ms)" or plain seconds to
// seconds. A comma is accepted as the decimal separator, as in SRT.
func ParseTimestamp(s string) (float64, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
	if s == "" {
		return 0, fmt.Errorf("invalid timestamp format: empty")
	}

	parts := strings.Split(s, ":")
	if len(parts) > 3 {
		return 0, fmt.Errorf("invalid timestamp format: %s", s)
	}

	var total float64
	for _, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return 0, fmt.Errorf("invalid timestamp format: %s", s)
		}
		total = total*60 + v
	}
	return total, nil
}
