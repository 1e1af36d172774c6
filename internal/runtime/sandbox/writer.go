package sandbox

import "io"

// limitedWriter keeps the first max bytes and silently drops the rest so a
// chatty program cannot exhaust memory. Writes always report full success to
// avoid killing the child with EPIPE.
type limitedWriter struct {
	w       io.Writer
	max     int
	written int
}

func (l *limitedWriter) Write(p []byte) (int, error) {
	if l.max <= 0 {
		return l.w.Write(p)
	}
	remaining := l.max - l.written
	if remaining <= 0 {
		return len(p), nil
	}
	chunk := p
	if len(chunk) > remaining {
		chunk = chunk[:remaining]
	}
	n, err := l.w.Write(chunk)
	l.written += n
	if err != nil {
		return n, err
	}
	return len(p), nil
}
