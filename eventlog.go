package bcycle

import (
	"fmt"
	"slices"
	"time"

	"github.com/samber/lo"
)

// LogEntry is one entry in a request's event log.
type LogEntry struct {
	Request   string    `json:"request"`
	Timestamp time.Time `json:"timestamp"`
	Tags      []string  `json:"tags"`
	Data      any       `json:"data,omitempty"`
}

// ErrorData replaces error values that are logged, so entries stay serializable.
type ErrorData struct {
	Message string `json:"message"`
	Code    Code   `json:"code,omitempty"`
	Trace   string `json:"trace,omitempty"`
}

// Log appends an entry to the request's event log with the current time. Duplicate tags are
// removed. Errors are normalized into [ErrorData] and add the "error" tag, their stack trace is
// included only for entries tagged "uncaught".
func (r *Request) Log(tags []string, data any) {
	r.LogAt(tags, data, time.Now())
}

// LogAt is like [Request.Log] but with an explicit timestamp.
func (r *Request) LogAt(tags []string, data any, ts time.Time) {
	entry := LogEntry{Request: r.ID, Timestamp: ts, Tags: lo.Uniq(tags), Data: data}

	if err, ok := data.(error); ok {
		entry.Tags = lo.Uniq(append(entry.Tags, "error"))

		edata := ErrorData{Message: err.Error(), Code: CodeOf(err)}
		if lo.Contains(entry.Tags, "uncaught") {
			edata.Trace = fmt.Sprintf("%+v", err)
		}
		entry.Data = edata
	}

	r.mu.Lock()
	r.logger = append(r.logger, entry)
	r.mu.Unlock()

	r.engine.emit(RequestLogged{Req: r, Entry: entry})
	if lo.Some(entry.Tags, r.engine.cfg.DebugTags) {
		r.engine.logs.LogDebugEvent(entry)
	}
}

// GetLog returns the entries that carry any of the given tags, in insertion order. Without
// tags the whole log is returned.
func (r *Request) GetLog(tags ...string) []LogEntry {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(tags) == 0 {
		return slices.Clone(r.logger)
	}

	return lo.Filter(r.logger, func(e LogEntry, _ int) bool {
		return lo.Some(e.Tags, tags)
	})
}
