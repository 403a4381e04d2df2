// Copyright (C) 2026 Evstore Engine contributors.
// See LICENSE for copying information.

// Package eventstore implements the CORE of the event-sourcing storage
// engine: the append-only, per-aggregate event stream, the object document
// that anchors it, the hash-chain concurrency protocol, and at-least-once
// commit with idempotent rollback. It is grounded on storj's
// satellite/metabase package: one package owning the full lifecycle of a
// per-aggregate metadata record plus its data, with stable error codes and
// monkit-instrumented operations.
package eventstore

import "time"

// WildcardHash is the sentinel value that disables hash-chain comparisons,
// used for bootstrap, migration, and external imports.
const WildcardHash = "*"

// ClosedEventType is the reserved event type that terminates a stream.
const ClosedEventType = "EventStream.Closed"

// Event is the unit of change appended to a stream.
type Event struct {
	EventVersion int64             `json:"eventVersion"`
	EventType    string            `json:"eventType"`
	Payload      []byte            `json:"payload"`
	Timestamp    time.Time         `json:"timestamp"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// StreamChunk records one chunk object a long stream has spilled into.
type StreamChunk struct {
	ChunkID           string `json:"chunkId"`
	FirstEventVersion int64  `json:"firstEventVersion"`
	LastEventVersion  int64  `json:"lastEventVersion"`
}

// StreamSnapShot records one named snapshot taken up to a given version.
type StreamSnapShot struct {
	Name         string `json:"name"`
	UntilVersion int64  `json:"untilVersion"`
}

// ChunkSettings configures whether and how a stream spills events into
// chunk objects once its event count grows large.
type ChunkSettings struct {
	EnableChunks bool  `json:"enableChunks"`
	ChunkSize    int64 `json:"chunkSize"`
}

// BrokenStreamInfo records the version range orphaned when a rollback
// itself failed after a failed commit (Invariant 6).
type BrokenStreamInfo struct {
	BrokenAt              time.Time `json:"brokenAt"`
	OrphanedFrom          int64     `json:"orphanedFrom"`
	OrphanedTo            int64     `json:"orphanedTo"`
	ErrorMessage          string    `json:"errorMessage"`
	OriginalExceptionType string    `json:"originalExceptionType"`
	CleanupExceptionType  string    `json:"cleanupExceptionType"`
}

// RollbackRecord is one append-only entry in a stream's rollback history.
type RollbackRecord struct {
	RolledBackAt         time.Time `json:"rolledBackAt"`
	FromVersion           int64    `json:"fromVersion"`
	ToVersion             int64    `json:"toVersion"`
	EventsRemoved         int      `json:"eventsRemoved"`
	OriginalError         string   `json:"originalError"`
	OriginalExceptionType string   `json:"originalExceptionType"`
}

// StreamInformation is the embedded description of an object's active (or
// terminated) stream: identity, version, type tags, store selection,
// chunking, snapshots, and break/rollback bookkeeping.
type StreamInformation struct {
	StreamIdentifier     string `json:"streamIdentifier"`
	CurrentStreamVersion int64  `json:"currentStreamVersion"`

	StreamType         string `json:"streamType,omitempty"`
	DocumentType       string `json:"documentType,omitempty"`
	DocumentTagType    string `json:"documentTagType,omitempty"`
	EventStreamTagType string `json:"eventStreamTagType,omitempty"`
	DocumentRefType    string `json:"documentRefType,omitempty"`

	DataStore        string `json:"dataStore,omitempty"`
	DocumentStore     string `json:"documentStore,omitempty"`
	DocumentTagStore  string `json:"documentTagStore,omitempty"`
	StreamTagStore    string `json:"streamTagStore,omitempty"`
	SnapShotStore     string `json:"snapShotStore,omitempty"`

	StreamChunks []StreamChunk    `json:"streamChunks,omitempty"`
	SnapShots    []StreamSnapShot `json:"snapShots,omitempty"`

	ChunkSettings     *ChunkSettings    `json:"chunkSettings,omitempty"`
	BrokenStreamInfo  *BrokenStreamInfo `json:"brokenStreamInfo,omitempty"`
	RollbackHistory   []RollbackRecord  `json:"rollbackHistory,omitempty"`
}

// IsEmpty reports whether the stream has never been committed to.
func (s *StreamInformation) IsEmpty() bool {
	return s.CurrentStreamVersion < 0
}

// IsBroken reports whether the stream is in the Broken state.
func (s *StreamInformation) IsBroken() bool {
	return s.BrokenStreamInfo != nil
}

// ObjectDocument is the per-aggregate metadata record anchoring the active
// stream, terminated streams, hash chain, chunking, and snapshot metadata.
type ObjectDocument struct {
	ObjectName string `json:"objectName"`
	ObjectID   string `json:"objectId"`

	Active             StreamInformation   `json:"active"`
	TerminatedStreams  []StreamInformation `json:"terminatedStreams,omitempty"`

	SchemaVersion *string `json:"schemaVersion,omitempty"`

	Hash     *string `json:"hash"`
	PrevHash *string `json:"prevHash"`
}

// HashOrWildcard returns doc.Hash, or the wildcard sentinel if nil.
func (d *ObjectDocument) HashOrWildcard() string {
	return derefOrWildcard(d.Hash)
}

// PrevHashOrWildcard returns doc.PrevHash, or the wildcard sentinel if nil.
func (d *ObjectDocument) PrevHashOrWildcard() string {
	return derefOrWildcard(d.PrevHash)
}

func derefOrWildcard(s *string) string {
	if s == nil {
		return WildcardHash
	}
	return *s
}

// StreamDataDocument is the backend-stored object holding all events for
// one stream of one object.
type StreamDataDocument struct {
	ObjectID               string  `json:"objectId"`
	ObjectName             string  `json:"objectName"`
	LastObjectDocumentHash string  `json:"lastObjectDocumentHash"`
	Events                 []Event `json:"events"`
}

// LastEvent returns the highest-version event, or nil if empty.
func (d *StreamDataDocument) LastEvent() *Event {
	if len(d.Events) == 0 {
		return nil
	}
	return &d.Events[len(d.Events)-1]
}

// IsClosed reports whether the stream's last event is the reserved
// EventStream.Closed terminator (Invariant 3).
func (d *StreamDataDocument) IsClosed() bool {
	last := d.LastEvent()
	return last != nil && last.EventType == ClosedEventType
}

// TagKind is the closed enum of tag types.
type TagKind int

const (
	// DocumentTag indexes by object-id.
	DocumentTag TagKind = iota
	// StreamTag indexes by stream-identifier.
	StreamTag
)

// TagEntry is one (aggregate-name, tag) -> set-of-ids index entry.
type TagEntry struct {
	Tag       string          `json:"tag"`
	ObjectIDs map[string]bool `json:"-"`
}

// tagEntryWire is the on-the-wire shape: ObjectIDs as schema names it
// ("objectIds[]"), stored as a sorted slice rather than the in-memory set.
type tagEntryWire struct {
	Tag       string   `json:"tag"`
	ObjectIDs []string `json:"objectIds"`
}
