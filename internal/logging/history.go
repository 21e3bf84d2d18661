package logging

import "time"

// LogEntry is one recorded event.
type LogEntry struct {
	Timestamp time.Time      `json:"timestamp"`
	Level     Level          `json:"level"`
	Message   string         `json:"message"`
	Category  string         `json:"category"`
	Data      map[string]any `json:"data,omitempty"`
}

// history is a fixed-capacity ring of entries kept in insertion order.
// Callers synchronize access.
type history struct {
	buf   []LogEntry
	start int
	size  int
}

func newHistory(capacity int) *history {
	return &history{buf: make([]LogEntry, capacity)}
}

func (h *history) push(e LogEntry) {
	if len(h.buf) == 0 {
		return
	}
	if h.size < len(h.buf) {
		h.buf[(h.start+h.size)%len(h.buf)] = e
		h.size++
		return
	}
	h.buf[h.start] = e
	h.start = (h.start + 1) % len(h.buf)
}

// at returns the i-th oldest entry.
func (h *history) at(i int) LogEntry {
	return h.buf[(h.start+i)%len(h.buf)]
}

func (h *history) entries() []LogEntry {
	out := make([]LogEntry, h.size)
	for i := range h.size {
		out[i] = h.at(i)
	}
	return out
}

func (h *history) reset() {
	clear(h.buf)
	h.start = 0
	h.size = 0
}

func (h *history) len() int      { return h.size }
func (h *history) capacity() int { return len(h.buf) }
