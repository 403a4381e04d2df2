// Copyright (C) 2026 Evstore Engine contributors.
// See LICENSE for copying information.

package eventstore

import "sync"

// Session is a scoped buffer of pending appends, opened against one
// ObjectDocument and committed (or discarded) as a unit.
type Session struct {
	mu      sync.Mutex
	doc     *ObjectDocument
	token   string
	pending []Event
	closed  bool
}

// OpenSession begins buffering appends against doc's active stream. token
// is the object document's precondition token as read by GetOrCreate/Get
// when doc was obtained; CommitSession uses it, not a re-read, as the
// document store's own precondition. Commit happens only
// when the caller later calls Engine.CommitSession; Abort discards the
// buffer without touching the backend.
func OpenSession(doc *ObjectDocument, token string) *Session {
	return &Session{doc: doc, token: token}
}

// Append buffers event, assigning event_version =
// active.current_stream_version + 1 + buffer_count. It does not
// contact the backend. Returns the event with its assigned version.
func (s *Session) Append(event Event) Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	event.EventVersion = s.doc.Active.CurrentStreamVersion + 1 + int64(len(s.pending))
	s.pending = append(s.pending, event)
	return event
}

// Pending returns a copy of the buffered, not-yet-committed events.
func (s *Session) Pending() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Event(nil), s.pending...)
}

// Abort discards buffered events without any I/O.
func (s *Session) Abort() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = nil
	s.closed = true
}

// Document returns the ObjectDocument this session was opened against.
func (s *Session) Document() *ObjectDocument {
	return s.doc
}
