// Package monitoring reports engine failures to an error tracker.
package monitoring

import (
	"sync"
	"time"
)

// Monitor defines methods used for error reporting.
type Monitor interface {
	CaptureException(err error, tags map[string]string)
	CaptureMessage(msg string, tags map[string]string)
	Recover()
	Flush(timeout time.Duration)
}

type NopMonitor struct{}

func (NopMonitor) CaptureException(error, map[string]string) {}
func (NopMonitor) CaptureMessage(string, map[string]string)  {}
func (NopMonitor) Recover()                                  {}
func (NopMonitor) Flush(time.Duration)                       {}

var (
	mu      sync.RWMutex
	current Monitor = NopMonitor{}
)

// Init sets the global monitor implementation. A nil monitor restores the
// no-op one.
func Init(m Monitor) {
	mu.Lock()
	defer mu.Unlock()
	if m == nil {
		m = NopMonitor{}
	}
	current = m
}

func get() Monitor {
	mu.RLock()
	defer mu.RUnlock()
	return current
}

// StationTags returns the tag set attached to station scoped reports.
func StationTags(stationID, operation string) map[string]string {
	return map[string]string{"station": stationID, "operation": operation}
}

// CaptureException records the error with optional tags.
func CaptureException(err error, tags map[string]string) {
	if err == nil {
		return
	}
	get().CaptureException(err, tags)
}

// CaptureMessage records an informational event.
func CaptureMessage(msg string, tags map[string]string) {
	get().CaptureMessage(msg, tags)
}

// Recover captures panics in goroutines. It must be deferred directly.
func Recover() {
	get().Recover()
}

// Flush flushes buffered events.
func Flush(d time.Duration) {
	get().Flush(d)
}

// Captured is one report kept by a Recorder.
type Captured struct {
	Err     error
	Message string
	Tags    map[string]string
}

// Recorder is an in-memory Monitor for tests and local runs.
type Recorder struct {
	mu     sync.Mutex
	events []Captured
}

func (r *Recorder) CaptureException(err error, tags map[string]string) {
	r.mu.Lock()
	r.events = append(r.events, Captured{Err: err, Tags: tags})
	r.mu.Unlock()
}

func (r *Recorder) CaptureMessage(msg string, tags map[string]string) {
	r.mu.Lock()
	r.events = append(r.events, Captured{Message: msg, Tags: tags})
	r.mu.Unlock()
}

func (r *Recorder) Recover()            {}
func (r *Recorder) Flush(time.Duration) {}

// Events returns a copy of the captured reports.
func (r *Recorder) Events() []Captured {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Captured(nil), r.events...)
}
