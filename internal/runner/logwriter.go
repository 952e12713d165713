package runner

import (
	"bytes"
	"context"
	"log/slog"
)

// maxLine caps a buffered partial line; longer output is logged in chunks.
const maxLine = 64 * 1024

// lineWriter turns a process output stream into one log record per line.
// Each stream gets its own writer, so no locking is needed.
type lineWriter struct {
	logger *slog.Logger
	level  slog.Level
	stream string
	buf    []byte
}

func newLineWriter(logger *slog.Logger, level slog.Level, stream string) *lineWriter {
	return &lineWriter{logger: logger, level: level, stream: stream}
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.buf = append(w.buf, p...)
	for {
		i := bytes.IndexByte(w.buf, '\n')
		if i < 0 {
			break
		}
		w.emit(w.buf[:i])
		w.buf = w.buf[i+1:]
	}
	if len(w.buf) >= maxLine {
		w.emit(w.buf)
		w.buf = nil
	}
	return len(p), nil
}

// Flush logs any trailing output that did not end with a newline.
func (w *lineWriter) Flush() {
	if len(w.buf) > 0 {
		w.emit(w.buf)
		w.buf = nil
	}
}

func (w *lineWriter) emit(line []byte) {
	line = bytes.TrimRight(line, "\r")
	w.logger.Log(context.Background(), w.level, string(line), "stream", w.stream)
}
