// Copyright (C) 2026 Evstore Engine contributors.
// See LICENSE for copying information.

package eventstore

import (
	"context"
	"encoding/json"
	"strings"

	"go.uber.org/zap"

	"go.evstore.dev/engine/backend"
	"go.evstore.dev/engine/errs2"
)

// TagIndex maintains (aggregate, tag) -> set-of-ids with add/remove/query
// semantics. The stream-tag store is optional: a deployment that never
// tags streams can leave it unconfigured, and StreamTag operations fail
// with ConfigError instead of silently falling back to the document store.
type TagIndex struct {
	store       backend.Store
	streamStore backend.Store
	log         *zap.Logger
}

// NewTagIndex returns a TagIndex backed by store for DocumentTag lookups
// and streamStore for StreamTag lookups. streamStore may be nil, in which
// case any StreamTag operation fails with ConfigError.
func NewTagIndex(store, streamStore backend.Store, log *zap.Logger) *TagIndex {
	if log == nil {
		log = zap.NewNop()
	}
	return &TagIndex{store: store, streamStore: streamStore, log: log}
}

// storeFor returns the backend serving kind, or a ConfigError if kind is
// StreamTag and no stream-tag store was configured.
func (t *TagIndex) storeFor(kind TagKind) (backend.Store, error) {
	if kind == StreamTag {
		if t.streamStore == nil {
			return nil, errs2.New(errs2.ConfigError, errs2.CodeTagStoreUnconfigured,
				"no stream-tag store configured")
		}
		return t.streamStore, nil
	}
	return t.store, nil
}

func tagKey(objectName string, kind TagKind, tag string) string {
	lower := strings.ToLower(objectName)
	switch kind {
	case StreamTag:
		return lower + "/tags/stream-by-tag/" + tag + ".json"
	default:
		return lower + "/tags/doc-by-tag/" + tag + ".json"
	}
}

func idForTag(document *ObjectDocument, kind TagKind) string {
	if kind == StreamTag {
		return document.Active.StreamIdentifier
	}
	return document.ObjectID
}

// Set adds document's id (object-id for DocumentTag, stream-identifier for
// StreamTag) to tag's set, retrying the atomic read-modify-write under
// precondition until it wins or the id is already present.
func (t *TagIndex) Set(ctx context.Context, document *ObjectDocument, objectName string, kind TagKind, tag string) (err error) {
	defer mon.Task()(&ctx)(&err)

	store, err := t.storeFor(kind)
	if err != nil {
		return err
	}

	id := idForTag(document, kind)
	key := tagKey(objectName, kind, tag)

	for {
		entry, token, err := t.getRaw(ctx, store, key, tag)
		if err != nil && !errs2.Is(err, errs2.NotFound) {
			return err
		}
		if !entry.Add(id) {
			return nil
		}

		data, err := json.Marshal(entry)
		if err != nil {
			return errs2.Wrap(errs2.InvalidArgument, errs2.CodeEmptyObjectID, err, "marshal tag entry")
		}

		precondition := backend.NoneMatch()
		if token != "" {
			precondition = backend.Match(token)
		}
		_, err = store.Put(ctx, key, data, precondition)
		if err == nil {
			return nil
		}
		if !errs2.Is(err, errs2.ConcurrencyConflict) {
			return err
		}
		// lost the race, retry with a fresh read
	}
}

// Remove deletes document's id from tag's set. When the resulting set is
// empty the tag object itself is deleted (Invariant 5).
func (t *TagIndex) Remove(ctx context.Context, document *ObjectDocument, objectName string, kind TagKind, tag string) (err error) {
	defer mon.Task()(&ctx)(&err)

	store, err := t.storeFor(kind)
	if err != nil {
		return err
	}

	id := idForTag(document, kind)
	key := tagKey(objectName, kind, tag)

	for {
		entry, token, err := t.getRaw(ctx, store, key, tag)
		if err != nil {
			if errs2.Is(err, errs2.NotFound) {
				return nil
			}
			return err
		}
		if !entry.Remove(id) {
			return nil
		}

		if entry.Empty() {
			if err := store.Delete(ctx, key); err != nil {
				return err
			}
			return nil
		}

		data, err := json.Marshal(entry)
		if err != nil {
			return errs2.Wrap(errs2.InvalidArgument, errs2.CodeEmptyObjectID, err, "marshal tag entry")
		}
		_, err = store.Put(ctx, key, data, backend.Match(token))
		if err == nil {
			return nil
		}
		if !errs2.Is(err, errs2.ConcurrencyConflict) {
			return err
		}
	}
}

// Get returns tag's id set for objectName (empty set, not error, if the
// tag object is absent).
func (t *TagIndex) Get(ctx context.Context, objectName string, kind TagKind, tag string) (_ *TagEntry, err error) {
	defer mon.Task()(&ctx)(&err)

	store, err := t.storeFor(kind)
	if err != nil {
		return nil, err
	}

	entry, _, err := t.getRaw(ctx, store, tagKey(objectName, kind, tag), tag)
	if err != nil {
		if errs2.Is(err, errs2.NotFound) {
			return NewTagEntry(tag), nil
		}
		return nil, err
	}
	return entry, nil
}

func (t *TagIndex) getRaw(ctx context.Context, store backend.Store, key, tag string) (*TagEntry, string, error) {
	obj, err := store.Get(ctx, key)
	if err != nil {
		if errs2.Is(err, errs2.NotFound) {
			return NewTagEntry(tag), "", errs2.New(errs2.NotFound, errs2.CodeStreamDataNotFound, "tag %q not found", tag)
		}
		return nil, "", err
	}
	var entry TagEntry
	if err := json.Unmarshal(obj.Data, &entry); err != nil {
		return nil, "", errs2.Wrap(errs2.BackendUnavailable, errs2.CodeTransportFailure, err, "unmarshal tag entry")
	}
	return &entry, obj.Token, nil
}
