package process

import (
	"bytes"
	"sync"
)

// maxLineLength caps a single buffered line.
const maxLineLength = 4096

// Tail is an io.Writer that keeps the last n complete lines written to it.
type Tail struct {
	mu      sync.Mutex
	n       int
	lines   []string
	partial []byte
}

// NewTail returns a Tail holding at most n lines.
func NewTail(n int) *Tail {
	return &Tail{n: n}
}

func (t *Tail) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	data := p
	for len(data) > 0 {
		i := bytes.IndexByte(data, '\n')
		if i < 0 {
			t.partial = append(t.partial, data...)
			if len(t.partial) > maxLineLength {
				t.push(string(t.partial[:maxLineLength]))
				t.partial = t.partial[:0]
			}
			break
		}
		t.partial = append(t.partial, data[:i]...)
		t.push(string(bytes.TrimRight(t.partial, "\r")))
		t.partial = t.partial[:0]
		data = data[i+1:]
	}
	return len(p), nil
}

func (t *Tail) push(line string) {
	if len(t.lines) == t.n {
		copy(t.lines, t.lines[1:])
		t.lines = t.lines[:t.n-1]
	}
	t.lines = append(t.lines, line)
}

// Lines returns the buffered lines, oldest first, including an unterminated
// last line.
func (t *Tail) Lines() []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]string, len(t.lines), len(t.lines)+1)
	copy(out, t.lines)
	if len(t.partial) > 0 {
		out = append(out, string(t.partial))
	}
	return out
}
