package events

import "sync"

// Event represents a structured state change emitted by the protocol.
type Event interface {
	EventType() string
}

// Emitter broadcasts events to downstream subscribers (e.g. the API feed or
// the structured log).
type Emitter interface {
	Emit(Event)
}

// NoopEmitter is a helper that satisfies the Emitter interface while discarding
// all events. It is useful when a component wants to optionally expose events.
type NoopEmitter struct{}

// Emit implements the Emitter interface.
func (NoopEmitter) Emit(Event) {}

// Record is the flat, typed payload every protocol event is reduced to.
type Record struct {
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}

// EventType satisfies the Event interface.
func (r *Record) EventType() string {
	if r == nil {
		return ""
	}
	return r.Type
}

// Buffer holds events until the surrounding unit of work commits. Events of a
// discarded unit are dropped with the buffer.
type Buffer struct {
	events []Event
}

// Emit implements the Emitter interface.
func (b *Buffer) Emit(evt Event) {
	if b == nil || evt == nil {
		return
	}
	b.events = append(b.events, evt)
}

// Events returns the buffered events in emission order.
func (b *Buffer) Events() []Event {
	if b == nil {
		return nil
	}
	out := make([]Event, len(b.events))
	copy(out, b.events)
	return out
}

// Flush forwards the buffered events to dst and empties the buffer.
func (b *Buffer) Flush(dst Emitter) {
	if b == nil {
		return
	}
	if dst != nil {
		for _, evt := range b.events {
			dst.Emit(evt)
		}
	}
	b.events = nil
}

// Fanout delivers each event to every wrapped emitter.
type Fanout []Emitter

// Emit implements the Emitter interface.
func (f Fanout) Emit(evt Event) {
	for _, dst := range f {
		if dst != nil {
			dst.Emit(evt)
		}
	}
}

// Log retains the most recent records for polling clients.
type Log struct {
	mu      sync.RWMutex
	limit   int
	next    uint64
	entries []LogEntry
}

// LogEntry pairs a record with its position in the feed.
type LogEntry struct {
	Sequence uint64  `json:"sequence"`
	Event    *Record `json:"event"`
}

// NewLog returns a feed that keeps at most limit entries.
func NewLog(limit int) *Log {
	if limit <= 0 {
		limit = 1024
	}
	return &Log{limit: limit}
}

// Emit implements the Emitter interface. Events that are not records are
// reduced to their type.
func (l *Log) Emit(evt Event) {
	if l == nil || evt == nil {
		return
	}
	record, ok := evt.(*Record)
	if !ok {
		record = &Record{Type: evt.EventType(), Attributes: map[string]string{}}
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.next++
	l.entries = append(l.entries, LogEntry{Sequence: l.next, Event: record})
	if overflow := len(l.entries) - l.limit; overflow > 0 {
		l.entries = append([]LogEntry(nil), l.entries[overflow:]...)
	}
}

// Since returns up to max entries with a sequence greater than after.
func (l *Log) Since(after uint64, max int) []LogEntry {
	if l == nil {
		return nil
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]LogEntry, 0)
	for _, entry := range l.entries {
		if entry.Sequence <= after {
			continue
		}
		out = append(out, entry)
		if max > 0 && len(out) >= max {
			break
		}
	}
	return out
}
