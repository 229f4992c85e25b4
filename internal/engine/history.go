package engine

// DefaultHistorySize is how many chat messages an interaction keeps.
const DefaultHistorySize = 64

// history is a fixed-size ring of chat messages, oldest first.
// Not safe for concurrent use; the owning Interaction serializes access.
type history struct {
	buf   []string
	start int
	n     int
}

func newHistory(size int) *history {
	if size <= 0 {
		size = DefaultHistorySize
	}
	return &history{buf: make([]string, size)}
}

// Append adds msg, evicting the oldest message when full.
func (h *history) Append(msg string) {
	if h.n < len(h.buf) {
		h.buf[(h.start+h.n)%len(h.buf)] = msg
		h.n++
		return
	}
	h.buf[h.start] = msg
	h.start = (h.start + 1) % len(h.buf)
}

// Messages returns a copy of the history, oldest first.
func (h *history) Messages() []string {
	out := make([]string, h.n)
	for i := 0; i < h.n; i++ {
		out[i] = h.buf[(h.start+i)%len(h.buf)]
	}
	return out
}

// Len returns the number of stored messages.
func (h *history) Len() int {
	return h.n
}

// Clear drops every message.
func (h *history) Clear() {
	for i := range h.buf {
		h.buf[i] = ""
	}
	h.start = 0
	h.n = 0
}
