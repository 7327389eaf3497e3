package logging

import (
	"strings"
	"testing"
)

// testWriter hands each console line to t.Log so output stays with the test that produced it.
type testWriter struct {
	tb testing.TB
}

func (w testWriter) Write(p []byte) (int, error) {
	w.tb.Helper()
	w.tb.Log(strings.TrimSuffix(string(p), "\n"))
	return len(p), nil
}

// NewTestAppender returns an appender that logs through tb.
func NewTestAppender(tb testing.TB) Appender {
	return NewWriterAppender(testWriter{tb})
}
