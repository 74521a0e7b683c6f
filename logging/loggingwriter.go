package logging

import (
	"net/http"
)

// LoggingWriter wraps a response writer and records the status code and
// the number of bytes written, for the access log and the metrics.
type LoggingWriter struct {
	writer http.ResponseWriter
	code   int
	bytes  int64
}

// NewLoggingWriter wraps w.
func NewLoggingWriter(w http.ResponseWriter) *LoggingWriter {
	return &LoggingWriter{writer: w}
}

func (lw *LoggingWriter) Write(data []byte) (count int, err error) {
	if lw.code == 0 {
		lw.code = http.StatusOK
	}

	count, err = lw.writer.Write(data)
	lw.bytes += int64(count)
	return
}

func (lw *LoggingWriter) WriteHeader(code int) {
	if lw.code != 0 {
		return
	}

	if code == 0 {
		code = http.StatusOK
	}

	lw.writer.WriteHeader(code)
	lw.code = code
}

func (lw *LoggingWriter) Header() http.Header {
	return lw.writer.Header()
}

func (lw *LoggingWriter) Flush() {
	if f, ok := lw.writer.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap allows http.ResponseController to reach the wrapped writer.
func (lw *LoggingWriter) Unwrap() http.ResponseWriter {
	return lw.writer
}

// StatusCode returns the status code sent, or 200 when nothing was
// written yet.
func (lw *LoggingWriter) StatusCode() int {
	if lw.code == 0 {
		return http.StatusOK
	}

	return lw.code
}

// Bytes returns the number of body bytes written.
func (lw *LoggingWriter) Bytes() int64 {
	return lw.bytes
}
