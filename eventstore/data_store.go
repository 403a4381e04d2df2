// Copyright (C) 2026 Evstore Engine contributors.
// See LICENSE for copying information.

package eventstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"go.evstore.dev/engine/backend"
	"go.evstore.dev/engine/errs2"
)

// DataStore persists StreamDataDocument per stream.
type DataStore struct {
	store      backend.Store
	log        *zap.Logger
	containers containerGuard
}

// NewDataStore returns a DataStore backed by store. Container (bucket)
// creation is optional and gated by autoCreateBucket, the same way
// NewDocumentStore gates it.
func NewDataStore(store backend.Store, log *zap.Logger, autoCreateBucket bool) *DataStore {
	if log == nil {
		log = zap.NewNop()
	}
	return &DataStore{store: store, log: log, containers: newContainerGuard(store, autoCreateBucket)}
}

func eventsKey(objectName, objectID string) string {
	return backend.KeyFor(strings.ToLower(objectName), objectID, ".events.json")
}

func chunkKey(objectName, objectID, chunkID string) string {
	return backend.KeyFor(strings.ToLower(objectName), objectID, fmt.Sprintf(".chunk-%s.events.json", chunkID))
}

// AppendResult carries the outcome of a successful Append that the caller
// (Engine.CommitSession) must fold back into the ObjectDocument before
// persisting it.
type AppendResult struct {
	NewHash   string
	NewChunks []StreamChunk
}

// Append implements commit-protocol steps 1-7 at the data-store layer:
// resolve the existing data document, check closed/hash-chain, append in
// memory, compute the new hash, and write with precondition. Rejects an
// empty batch with InvalidArgument.
func (s *DataStore) Append(ctx context.Context, doc *ObjectDocument, events []Event) (_ AppendResult, err error) {
	defer mon.Task()(&ctx)(&err)

	if len(events) == 0 {
		return AppendResult{}, errs2.New(errs2.InvalidArgument, errs2.CodeEmptyEventBatch, "append called with an empty event batch")
	}

	if err := s.containers.ensure(ctx, doc.ObjectName); err != nil {
		return AppendResult{}, err
	}

	key := eventsKey(doc.ObjectName, doc.ObjectID)
	existing, token, err := s.getDataDocument(ctx, key)
	if err != nil {
		return AppendResult{}, err
	}

	if existing != nil && existing.IsClosed() {
		return AppendResult{}, errs2.New(errs2.StreamClosed, errs2.CodeStreamClosed,
			"stream %s for %s/%s is closed", doc.Active.StreamIdentifier, doc.ObjectName, doc.ObjectID)
	}

	storedLast := WildcardHash
	nextVersion := int64(0)
	var baseEvents []Event
	if existing != nil {
		storedLast = existing.LastObjectDocumentHash
		baseEvents = existing.Events
		if last := existing.LastEvent(); last != nil {
			nextVersion = last.EventVersion + 1
		}
	}
	expected := doc.HashOrWildcard()
	if !HashChainMatches(storedLast, expected) {
		return AppendResult{}, errs2.New(errs2.ConcurrencyConflict, errs2.CodeHashMismatch,
			"hash chain mismatch committing to %s/%s: stored %q, expected %q", doc.ObjectName, doc.ObjectID, storedLast, expected)
	}

	// The batch's first version must land exactly where the stream
	// currently stands; a mismatch means another commit landed since this
	// session was opened, not a malformed request.
	if events[0].EventVersion != nextVersion {
		return AppendResult{}, errs2.New(errs2.ConcurrencyConflict, errs2.CodeStaleStreamVersion,
			"stale session committing to %s/%s: stream is at version %d, session expected %d",
			doc.ObjectName, doc.ObjectID, nextVersion, events[0].EventVersion)
	}
	for i, e := range events {
		if e.EventVersion != nextVersion+int64(i) {
			return AppendResult{}, errs2.New(errs2.InvalidArgument, errs2.CodeInvalidRange,
				"non-contiguous event versions appending to %s/%s", doc.ObjectName, doc.ObjectID)
		}
	}

	newHash := NextHash(doc.HashOrWildcard(), events)

	allEvents := append(append([]Event(nil), baseEvents...), events...)

	result := AppendResult{NewHash: newHash}
	mainEvents, newChunks, err := s.spillChunks(ctx, doc, allEvents)
	if err != nil {
		return AppendResult{}, err
	}
	result.NewChunks = newChunks

	newDoc := StreamDataDocument{
		ObjectID:               doc.ObjectID,
		ObjectName:             doc.ObjectName,
		LastObjectDocumentHash: newHash,
		Events:                 mainEvents,
	}

	data, err := json.Marshal(newDoc)
	if err != nil {
		return AppendResult{}, errs2.Wrap(errs2.InvalidArgument, errs2.CodeEmptyEventBatch, err, "marshal stream data document")
	}

	precondition := backend.NoneMatch()
	if existing != nil {
		precondition = backend.Match(token)
	}
	if _, err := s.store.Put(ctx, key, data, precondition); err != nil {
		if errs2.Is(err, errs2.ConcurrencyConflict) {
			return AppendResult{}, errs2.New(errs2.ConcurrencyConflict, errs2.CodePreconditionFailed,
				"concurrent append to %s/%s", doc.ObjectName, doc.ObjectID)
		}
		return AppendResult{}, err
	}

	return result, nil
}

// spillChunks applies chunk_settings: once the combined event set exceeds
// ChunkSize, the oldest surplus events are moved into new chunk objects
// and only the tail remains in the main events document.
func (s *DataStore) spillChunks(ctx context.Context, doc *ObjectDocument, events []Event) ([]Event, []StreamChunk, error) {
	settings := doc.Active.ChunkSettings
	if settings == nil || !settings.EnableChunks || settings.ChunkSize <= 0 {
		return events, nil, nil
	}

	var newChunks []StreamChunk
	nextChunkNumber := len(doc.Active.StreamChunks) + 1
	for int64(len(events)) > settings.ChunkSize {
		cut := events[:settings.ChunkSize]
		events = events[settings.ChunkSize:]

		chunkID := fmt.Sprintf("%06d", nextChunkNumber)
		nextChunkNumber++

		data, err := json.Marshal(StreamDataDocument{
			ObjectID:               doc.ObjectID,
			ObjectName:             doc.ObjectName,
			LastObjectDocumentHash: WildcardHash,
			Events:                 cut,
		})
		if err != nil {
			return nil, nil, errs2.Wrap(errs2.InvalidArgument, errs2.CodeEmptyEventBatch, err, "marshal chunk")
		}
		if _, err := s.store.Put(ctx, chunkKey(doc.ObjectName, doc.ObjectID, chunkID), data, backend.NoneMatch()); err != nil {
			return nil, nil, err
		}
		newChunks = append(newChunks, StreamChunk{
			ChunkID:           chunkID,
			FirstEventVersion: cut[0].EventVersion,
			LastEventVersion:  cut[len(cut)-1].EventVersion,
		})
	}
	return events, newChunks, nil
}

// Read returns the ordered events in [start, until] (both inclusive,
// nil-start means 0, nil-until means the current tip). An absent stream
// data document yields an empty slice, not an error. Chunk objects that
// overlap the requested range are fetched concurrently (bounded) via
// errgroup, then merged and sorted.
func (s *DataStore) Read(ctx context.Context, doc *ObjectDocument, start, until *int64) (_ []Event, err error) {
	defer mon.Task()(&ctx)(&err)

	lo := int64(0)
	if start != nil {
		lo = *start
	}
	hi := int64(-1)
	if until != nil {
		hi = *until
	} else if doc != nil {
		hi = doc.Active.CurrentStreamVersion
	}
	if start != nil && until != nil && *start > *until {
		return nil, errs2.New(errs2.InvalidArgument, errs2.CodeInvalidRange, "invalid range [%d, %d]", *start, *until)
	}

	var relevantChunks []StreamChunk
	for _, chunk := range doc.Active.StreamChunks {
		if chunk.LastEventVersion < lo || (hi >= 0 && chunk.FirstEventVersion > hi) {
			continue
		}
		relevantChunks = append(relevantChunks, chunk)
	}

	perChunk := make([][]Event, len(relevantChunks))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(4)
	for i, chunk := range relevantChunks {
		i, chunk := i, chunk
		group.Go(func() error {
			data, _, err := s.getDataDocument(groupCtx, chunkKey(doc.ObjectName, doc.ObjectID, chunk.ChunkID))
			if err != nil {
				return err
			}
			if data != nil {
				perChunk[i] = filterRange(data.Events, lo, hi)
			}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	var out []Event
	for _, events := range perChunk {
		out = append(out, events...)
	}

	main, _, err := s.getDataDocument(ctx, eventsKey(doc.ObjectName, doc.ObjectID))
	if err != nil {
		return nil, err
	}
	if main != nil {
		out = append(out, filterRange(main.Events, lo, hi)...)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].EventVersion < out[j].EventVersion })
	return out, nil
}

func filterRange(events []Event, lo, hi int64) []Event {
	var out []Event
	for _, e := range events {
		if e.EventVersion < lo {
			continue
		}
		if hi >= 0 && e.EventVersion > hi {
			continue
		}
		out = append(out, e)
	}
	return out
}

// EventOrErr is one element of a ReadAsStream channel.
type EventOrErr struct {
	Event Event
	Err   error
}

// ReadAsStream returns a lazily-produced, cancellable sequence of events in
// [start, until]. The channel is closed once exhausted, on error, or on
// context cancellation; at most one more element is yielded after
// cancellation fires.
func (s *DataStore) ReadAsStream(ctx context.Context, doc *ObjectDocument, start, until *int64) <-chan EventOrErr {
	out := make(chan EventOrErr)

	go func() {
		defer close(out)

		events, err := s.Read(ctx, doc, start, until)
		if err != nil {
			select {
			case out <- EventOrErr{Err: err}:
			case <-ctx.Done():
			}
			return
		}

		for _, e := range events {
			// Cancellation is tested before every yielded element, so at
			// most one more element is delivered after it fires.
			select {
			case <-ctx.Done():
				select {
				case out <- EventOrErr{Err: errs2.New(errs2.Cancelled, errs2.CodeCancelled, "read cancelled")}:
				default:
				}
				return
			default:
			}

			select {
			case out <- EventOrErr{Event: e}:
				// The send may have won the race against a cancellation
				// that had already fired; stop here so it is the only one.
				if ctx.Err() != nil {
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	return out
}

// RemoveEventsForFailedCommit removes events whose version falls in
// [from, to], writing back only if the set changed. If the backing
// object is absent, it returns 0 without writing. Idempotent: calling it
// twice with the same range returns 0 the second time.
func (s *DataStore) RemoveEventsForFailedCommit(ctx context.Context, doc *ObjectDocument, from, to int64) (_ int, err error) {
	defer mon.Task()(&ctx)(&err)

	key := eventsKey(doc.ObjectName, doc.ObjectID)
	existing, token, err := s.getDataDocument(ctx, key)
	if err != nil {
		return 0, err
	}
	if existing == nil {
		return 0, nil
	}

	var kept []Event
	removed := 0
	for _, e := range existing.Events {
		if e.EventVersion >= from && e.EventVersion <= to {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	if removed == 0 {
		return 0, nil
	}

	existing.Events = kept
	data, err := json.Marshal(existing)
	if err != nil {
		return 0, errs2.Wrap(errs2.InvalidArgument, errs2.CodeEmptyEventBatch, err, "marshal stream data document")
	}
	if _, err := s.store.Put(ctx, key, data, backend.Match(token)); err != nil {
		if errs2.Is(err, errs2.ConcurrencyConflict) {
			return 0, errs2.New(errs2.ConcurrencyConflict, errs2.CodePreconditionFailed, "concurrent rollback of %s/%s", doc.ObjectName, doc.ObjectID)
		}
		return 0, err
	}
	return removed, nil
}

func (s *DataStore) getDataDocument(ctx context.Context, key string) (*StreamDataDocument, string, error) {
	obj, err := s.store.Get(ctx, key)
	if err != nil {
		if errs2.Is(err, errs2.NotFound) {
			return nil, "", nil
		}
		return nil, "", err
	}
	var doc StreamDataDocument
	if err := json.Unmarshal(obj.Data, &doc); err != nil {
		return nil, "", errs2.Wrap(errs2.BackendUnavailable, errs2.CodeTransportFailure, err, "unmarshal stream data document")
	}
	return &doc, obj.Token, nil
}
