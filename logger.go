package bcycle

import (
	"log"
	"sync/atomic"
	"testing"
)

// Logger can be implemented to get informed about important states.
type Logger interface {
	LogDebugEvent(entry LogEntry)
	LogRespondError(err error)
	LogCacheError(err error)
}

type stdLogger struct{ *log.Logger }

func (l stdLogger) LogDebugEvent(entry LogEntry) {
	l.Logger.Printf("bcycle: debug event %s %v: %+v", entry.Request, entry.Tags, entry.Data)
}

func (l stdLogger) LogRespondError(err error) {
	l.Logger.Printf("bcycle: error while responding: %s", err)
}

func (l stdLogger) LogCacheError(err error) {
	l.Logger.Printf("bcycle: cache error: %s", err)
}

// NewStdLogger returns a logger that prints to l, or the standard logger when l is nil.
func NewStdLogger(l *log.Logger) Logger {
	if l == nil {
		l = log.Default()
	}
	return stdLogger{l}
}

type TestLogger struct {
	tb testing.TB

	NumLogDebugEvent   int64
	NumLogRespondError int64
	NumLogCacheError   int64
}

func NewTestLogger(tb testing.TB) *TestLogger {
	return &TestLogger{tb: tb}
}

func (l *TestLogger) LogDebugEvent(entry LogEntry) {
	atomic.AddInt64(&l.NumLogDebugEvent, 1)
	l.tb.Logf("bcycle: debug event %s %v: %+v", entry.Request, entry.Tags, entry.Data)
}

func (l *TestLogger) LogRespondError(err error) {
	atomic.AddInt64(&l.NumLogRespondError, 1)
	l.tb.Logf("bcycle: error while responding: %s", err)
}

func (l *TestLogger) LogCacheError(err error) {
	atomic.AddInt64(&l.NumLogCacheError, 1)
	l.tb.Logf("bcycle: cache error: %s", err)
}

var _ Logger = &TestLogger{}
