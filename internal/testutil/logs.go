package testutil

import (
	"bufio"
	"bytes"
	"encoding/json"
	"log/slog"
	"sync"
)

// LogCapture collects slog output as JSON lines so tests can assert on what
// the engine logged.
type LogCapture struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

// Entry is one decoded log line.
type Entry struct {
	Level   string
	Message string
	Attrs   map[string]any
}

// NewLogCapture returns a capture and a debug-level logger writing into it.
func NewLogCapture() (*LogCapture, *slog.Logger) {
	c := &LogCapture{}
	h := slog.NewJSONHandler(c, &slog.HandlerOptions{Level: slog.LevelDebug})
	return c, slog.New(h)
}

// Write implements io.Writer.
func (c *LogCapture) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.Write(p)
}

// Entries decodes everything logged so far.
func (c *LogCapture) Entries() []Entry {
	c.mu.Lock()
	data := bytes.Clone(c.buf.Bytes())
	c.mu.Unlock()

	var out []Entry
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		var m map[string]any
		if err := json.Unmarshal(sc.Bytes(), &m); err != nil {
			continue
		}
		e := Entry{Attrs: make(map[string]any)}
		for k, v := range m {
			switch k {
			case slog.LevelKey:
				e.Level, _ = v.(string)
			case slog.MessageKey:
				e.Message, _ = v.(string)
			case slog.TimeKey:
			default:
				e.Attrs[k] = v
			}
		}
		out = append(out, e)
	}
	return out
}

// Messages returns the message of every entry at level or above, in order.
func (c *LogCapture) Messages(level slog.Level) []string {
	var out []string
	for _, e := range c.Entries() {
		var l slog.Level
		if err := l.UnmarshalText([]byte(e.Level)); err != nil || l < level {
			continue
		}
		out = append(out, e.Message)
	}
	return out
}

// Has reports whether msg was logged at any level.
func (c *LogCapture) Has(msg string) bool {
	for _, e := range c.Entries() {
		if e.Message == msg {
			return true
		}
	}
	return false
}
