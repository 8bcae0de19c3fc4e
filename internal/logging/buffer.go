package logging

import (
	"strings"
	"sync"
)

// DefaultBufferLines is how many lines a LogBuffer keeps by default
const DefaultBufferLines = 1000

// LogBuffer keeps the most recent log lines in memory
type LogBuffer struct {
	mu    sync.Mutex
	lines []string
	max   int
}

// NewLogBuffer creates a buffer holding up to max lines
func NewLogBuffer(max int) *LogBuffer {
	if max <= 0 {
		max = DefaultBufferLines
	}
	return &LogBuffer{
		lines: make([]string, 0, max),
		max:   max,
	}
}

func (lb *LogBuffer) Write(p []byte) (int, error) {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	for _, line := range strings.Split(strings.TrimRight(string(p), "\n"), "\n") {
		if line == "" {
			continue
		}
		lb.lines = append(lb.lines, line)
	}
	if len(lb.lines) > lb.max {
		lb.lines = append(lb.lines[:0:0], lb.lines[len(lb.lines)-lb.max:]...)
	}

	return len(p), nil
}

// GetLogs returns a copy of the buffered lines, oldest first
func (lb *LogBuffer) GetLogs() []string {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	logs := make([]string, len(lb.lines))
	copy(logs, lb.lines)
	return logs
}
