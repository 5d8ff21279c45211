// Package events carries everything a run reports: progress, warnings,
// structural violations, saves and pages left for a human.
package events

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/dgallion1/voybot/internal/section"
)

// Kind is the event category.
type Kind string

const (
	KindInfo      Kind = "info"
	KindWarning   Kind = "warning"
	KindViolation Kind = "violation"
	KindSave      Kind = "save"
	KindFollow    Kind = "follow"
)

// Event is one reported fact about a page.
type Event struct {
	Time    time.Time `json:"time"`
	Kind    Kind      `json:"kind"`
	Page    string    `json:"page"`
	Message string    `json:"message"`
}

// Line renders the event the way it goes into the run log file.
func (e Event) Line() string {
	msg := strings.ReplaceAll(e.Message, "\n", " ")
	return fmt.Sprintf("%s [%s] %s: %s", e.Time.Format(time.DateTime), e.Kind, e.Page, msg)
}

// Sink receives run events. Transform steps only see this interface.
type Sink interface {
	Info(page, msg string)
	Warning(page, msg string)
	Violation(page string, v section.Violation)
	Save(page, summary string)
	// Follow marks a page for human follow-up.
	Follow(page, reason string)
}

// RunLog is the Sink of one run: it mirrors events to slog, appends them to
// a log file and keeps them for the run report.
type RunLog struct {
	mu     sync.Mutex
	log    *slog.Logger
	w      io.Writer
	closer io.Closer
	events []Event
	now    func() time.Time
}

// NewRunLog writes lines to w when w is non-nil.
func NewRunLog(w io.Writer, log *slog.Logger) *RunLog {
	return &RunLog{log: log, w: w, now: time.Now}
}

// OpenRunLog appends to <dir>/<name>.log, creating dir as needed. An empty
// dir keeps events in memory only.
func OpenRunLog(dir, name string, log *slog.Logger) (*RunLog, error) {
	if dir == "" {
		return NewRunLog(nil, log), nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create run log dir: %w", err)
	}
	path := filepath.Join(dir, name+".log")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open run log: %w", err)
	}
	rl := NewRunLog(f, log.With("run_log", path))
	rl.closer = f
	return rl, nil
}

func (r *RunLog) Info(page, msg string) {
	r.emit(Event{Kind: KindInfo, Page: page, Message: msg}, slog.LevelInfo)
}

func (r *RunLog) Warning(page, msg string) {
	r.emit(Event{Kind: KindWarning, Page: page, Message: msg}, slog.LevelWarn)
}

func (r *RunLog) Violation(page string, v section.Violation) {
	r.emit(Event{Kind: KindViolation, Page: page, Message: v.String()}, slog.LevelWarn)
}

func (r *RunLog) Save(page, summary string) {
	r.emit(Event{Kind: KindSave, Page: page, Message: summary}, slog.LevelInfo)
}

func (r *RunLog) Follow(page, reason string) {
	r.emit(Event{Kind: KindFollow, Page: page, Message: reason}, slog.LevelInfo)
}

func (r *RunLog) emit(e Event, level slog.Level) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e.Time = r.now()
	r.events = append(r.events, e)
	r.log.Log(context.Background(), level, e.Message, "event", e.Kind, "page", e.Page)
	if r.w != nil {
		if _, err := io.WriteString(r.w, e.Line()+"\n"); err != nil {
			r.log.Error("write run log", "error", err)
		}
	}
}

// Events returns a copy of everything recorded so far.
func (r *RunLog) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Filter returns the recorded events of the given kinds.
func (r *RunLog) Filter(kinds ...Kind) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Event
	for _, e := range r.events {
		for _, k := range kinds {
			if e.Kind == k {
				out = append(out, e)
				break
			}
		}
	}
	return out
}

// Close flushes and closes the log file, if any.
func (r *RunLog) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closer == nil {
		return nil
	}
	err := r.closer.Close()
	r.closer = nil
	r.w = nil
	return err
}
