// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package audit records band transitions and mitigation lifecycle events.
package audit

import (
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"grimm.is/linkguard/internal/clock"
	"grimm.is/linkguard/internal/errors"
	"grimm.is/linkguard/internal/logging"
)

// EventLogHeader is the first line of every event log.
const EventLogHeader = "#tsv\ttime\tevent\tdetail\n"

// EventLogName is the event log file name inside the output directory.
const EventLogName = "events.tsv"

// Mitigation lifecycle event names.
const (
	EventMitigationDispatched = "mitigation-dispatched"
	EventMitigationSucceeded  = "mitigation-succeeded"
	EventMitigationFailed     = "mitigation-failed"
)

// Event is one event log entry. Band transitions use the band label as Name.
type Event struct {
	Time   time.Time
	Name   string
	Detail string
	// BandIndex is set for band transitions, -1 otherwise.
	BandIndex int
}

// BandEvent builds a transition event for the band label.
func BandEvent(ts time.Time, index int, label, detail string) Event {
	return Event{Time: ts, Name: label, Detail: detail, BandIndex: index}
}

// MitigationEvent builds a lifecycle event.
func MitigationEvent(ts time.Time, name, detail string) Event {
	return Event{Time: ts, Name: name, Detail: detail, BandIndex: -1}
}

// IsMitigation reports whether ev is a mitigation lifecycle event.
func (ev Event) IsMitigation() bool {
	switch ev.Name {
	case EventMitigationDispatched, EventMitigationSucceeded, EventMitigationFailed:
		return true
	}
	return false
}

var sanitizer = strings.NewReplacer("\t", " ", "\r\n", " ", "\n", " ", "\r", " ")

// String encodes the event as one tab-separated line without newline.
func (ev Event) String() string {
	return strings.Join([]string{
		strconv.FormatFloat(clock.EpochSeconds(ev.Time), 'f', -1, 64),
		sanitizer.Replace(ev.Name),
		sanitizer.Replace(ev.Detail),
	}, "\t")
}

// Recorder accepts events.
type Recorder interface {
	Record(ev Event) error
}

// EventLog is the append-only event file. It is shared between the sampling
// loop and the mitigation task; each record is written under the lock.
type EventLog struct {
	mu     sync.Mutex
	w      io.Writer
	closer io.Closer
}

// NewEventLog writes the header to w and returns a log appending to it.
func NewEventLog(w io.Writer) (*EventLog, error) {
	if _, err := io.WriteString(w, EventLogHeader); err != nil {
		return nil, errors.Wrap(err, errors.KindIO, "failed to write event log header")
	}
	l := &EventLog{w: w}
	if c, ok := w.(io.Closer); ok {
		l.closer = c
	}
	return l, nil
}

// OpenEventLog creates or truncates path and writes the header.
func OpenEventLog(path string) (*EventLog, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return nil, errors.Attr(errors.Wrap(err, errors.KindIO, "failed to open event log"), "path", path)
	}
	l, err := NewEventLog(f)
	if err != nil {
		f.Close()
		return nil, errors.Attr(err, "path", path)
	}
	return l, nil
}

// Record appends ev as a single write.
func (l *EventLog) Record(ev Event) error {
	line := ev.String() + "\n"

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.w == nil {
		return errors.New(errors.KindIO, "event log is closed")
	}
	if _, err := io.WriteString(l.w, line); err != nil {
		return errors.Attr(errors.Wrap(err, errors.KindIO, "failed to write event record"), "event", ev.Name)
	}
	return nil
}

// Close closes the underlying file. Later writes fail with KindIO.
func (l *EventLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.w = nil
	if l.closer == nil {
		return nil
	}
	return l.closer.Close()
}

// Fanout delivers every event to a primary recorder, whose error is
// returned, and to observers, whose errors are only logged. Observers only
// see events the primary accepted.
type Fanout struct {
	primary   Recorder
	observers []Recorder
	logger    *logging.Logger
}

// NewFanout builds a Fanout. Nil observers are skipped.
func NewFanout(primary Recorder, logger *logging.Logger, observers ...Recorder) *Fanout {
	if logger == nil {
		logger = logging.WithComponent("audit")
	}
	f := &Fanout{primary: primary, logger: logger}
	for _, o := range observers {
		if o != nil {
			f.observers = append(f.observers, o)
		}
	}
	return f
}

// Record implements Recorder.
func (f *Fanout) Record(ev Event) error {
	if err := f.primary.Record(ev); err != nil {
		return err
	}
	for _, o := range f.observers {
		if oerr := o.Record(ev); oerr != nil {
			f.logger.Warn("Event observer failed", "event", ev.Name, "error", oerr)
		}
	}
	return nil
}
