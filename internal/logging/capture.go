package logging

import (
	"strings"
	"sync"
)

// TextSink receives the captured text. fyne's binding.String satisfies it.
type TextSink interface {
	Set(string) error
}

// LineCapture keeps the last limit log lines and mirrors them into a sink.
type LineCapture struct {
	mu    sync.Mutex
	lines []string
	limit int
	sink  TextSink
}

// NewLineCapture creates a capture holding at most limit lines.
func NewLineCapture(sink TextSink, limit int) *LineCapture {
	if limit <= 0 {
		limit = 300
	}
	return &LineCapture{sink: sink, limit: limit}
}

// Write implements io.Writer.
func (l *LineCapture) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	text := strings.ReplaceAll(string(p), "\r\n", "\n")
	for _, part := range strings.Split(text, "\n") {
		if part == "" {
			continue
		}
		l.lines = append(l.lines, part)
	}
	if len(l.lines) > l.limit {
		l.lines = l.lines[len(l.lines)-l.limit:]
	}
	if l.sink != nil {
		_ = l.sink.Set(strings.Join(l.lines, "\n"))
	}
	return len(p), nil
}

// Lines returns a copy of the captured lines.
func (l *LineCapture) Lines() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.lines...)
}
