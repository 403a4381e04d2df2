// Copyright (C) 2026 Evstore Engine contributors.
// See LICENSE for copying information.

package eventstore

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"go.evstore.dev/engine/errs2"
)

// Engine is the event-stream append/read engine: it owns the
// commit protocol, rollback, and range reads, delegating persistence to a
// DataStore and DocumentStore.
type Engine struct {
	documents *DocumentStore
	data      *DataStore
	log       *zap.Logger
}

// NewEngine returns an Engine over documents and data.
func NewEngine(documents *DocumentStore, data *DataStore, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{documents: documents, data: data, log: log}
}

// Read returns the ordered events of doc's active stream in [start, until].
func (e *Engine) Read(ctx context.Context, doc *ObjectDocument, start, until *int64) ([]Event, error) {
	return e.data.Read(ctx, doc, start, until)
}

// ReadAsStream returns a lazy, cancellable sequence of doc's active
// stream's events in [start, until].
func (e *Engine) ReadAsStream(ctx context.Context, doc *ObjectDocument, start, until *int64) <-chan EventOrErr {
	return e.data.ReadAsStream(ctx, doc, start, until)
}

// CommitSession runs the ten-step commit protocol for session's
// buffered events against the ObjectDocument it was opened with. On
// success it returns the document's new persisted state. On a failed
// document-store write after a successful data-store write, it rolls back
// the just-written events (idempotently) and either surfaces the original
// failure (rollback succeeded) or a StreamBroken error (rollback failed).
func (e *Engine) CommitSession(ctx context.Context, session *Session) (_ *ObjectDocument, err error) {
	defer mon.Task()(&ctx)(&err)

	session.mu.Lock()
	doc := session.doc
	token := session.token
	events := append([]Event(nil), session.pending...)
	session.mu.Unlock()

	if len(events) == 0 {
		return doc, nil
	}
	if doc.Active.IsBroken() {
		return nil, errs2.New(errs2.StreamBroken, errs2.CodeStreamBroken,
			"stream %s for %s/%s is broken and requires admin repair", doc.Active.StreamIdentifier, doc.ObjectName, doc.ObjectID)
	}

	fromVersion := events[0].EventVersion
	toVersion := events[len(events)-1].EventVersion

	// steps 1-7: data-store append, with its own hash-chain and
	// closed-stream checks.
	result, err := e.data.Append(ctx, doc, events)
	if err != nil {
		return nil, err
	}

	// step 8: advance the object document and persist it.
	mutated := *doc
	mutated.PrevHash = doc.Hash
	mutated.Hash = strPtr(result.NewHash)
	mutated.Active.CurrentStreamVersion = toVersion
	mutated.Active.StreamChunks = append(append([]StreamChunk(nil), doc.Active.StreamChunks...), result.NewChunks...)

	_, setErr := e.documents.Set(ctx, &mutated, token)
	if setErr == nil {
		session.closed = true
		return &mutated, nil
	}

	// step 9: rollback on partial failure.
	removed, rollbackErr := e.RollbackRange(ctx, doc, fromVersion, toVersion)
	if rollbackErr == nil {
		e.appendRollbackRecord(ctx, doc, fromVersion, toVersion, removed, setErr)
		return nil, setErr
	}

	// rollback itself failed: mark the stream Broken (step 9, cleanup path).
	broken := *doc
	broken.Active.BrokenStreamInfo = &BrokenStreamInfo{
		BrokenAt:              nowFunc(),
		OrphanedFrom:          fromVersion,
		OrphanedTo:            toVersion,
		ErrorMessage:          setErr.Error(),
		OriginalExceptionType: errorTypeName(setErr),
		CleanupExceptionType:  errorTypeName(rollbackErr),
	}
	// best-effort persistence of the broken marker; its own failure must
	// not mask the StreamBroken error being surfaced.
	if _, err := e.documents.Set(ctx, &broken, token); err != nil {
		e.log.Error("failed to persist broken-stream marker",
			zap.String("objectName", doc.ObjectName), zap.String("objectId", doc.ObjectID), zap.Error(err))
	}

	return nil, errs2.Wrap(errs2.StreamBroken, errs2.CodeStreamBroken,
		wrapBoth(setErr, rollbackErr), "commit and rollback both failed for "+doc.ObjectName+"/"+doc.ObjectID)
}

// RollbackRange removes events in [from, to] from doc's active stream's
// data document. Idempotent: a second call over an already-removed range
// returns 0.
func (e *Engine) RollbackRange(ctx context.Context, doc *ObjectDocument, from, to int64) (int, error) {
	return e.data.RemoveEventsForFailedCommit(ctx, doc, from, to)
}

func (e *Engine) appendRollbackRecord(ctx context.Context, doc *ObjectDocument, from, to int64, removed int, cause error) {
	record := RollbackRecord{
		RolledBackAt:          nowFunc(),
		FromVersion:           from,
		ToVersion:             to,
		EventsRemoved:         removed,
		OriginalError:         cause.Error(),
		OriginalExceptionType: errorTypeName(cause),
	}

	updated, token, err := e.documents.getRaw(ctx, doc.ObjectName, doc.ObjectID)
	if err != nil {
		e.log.Warn("could not record rollback history", zap.Error(err))
		return
	}
	updated.Active.RollbackHistory = append(updated.Active.RollbackHistory, record)

	if _, err := e.documents.Set(ctx, updated, token); err != nil {
		e.log.Warn("could not persist rollback history", zap.Error(err))
	}
}

// AdminRepair clears broken_stream_info, returning the stream to Active
// state. Admin continuation only, never automatic.
func (e *Engine) AdminRepair(ctx context.Context, name, id string) (*ObjectDocument, error) {
	doc, token, err := e.documents.getRaw(ctx, name, id)
	if err != nil {
		return nil, err
	}
	doc.Active.BrokenStreamInfo = nil
	if _, err := e.documents.Set(ctx, doc, token); err != nil {
		return nil, err
	}
	return doc, nil
}

func strPtr(s string) *string { return &s }

// nowFunc is a seam for deterministic tests.
var nowFunc = time.Now

func errorTypeName(err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("%T", err)
}

func wrapBoth(a, b error) error {
	return &bothErr{a: a, b: b}
}

type bothErr struct{ a, b error }

func (e *bothErr) Error() string {
	return "commit error: " + e.a.Error() + "; cleanup error: " + e.b.Error()
}

func (e *bothErr) Unwrap() []error { return []error{e.a, e.b} }
