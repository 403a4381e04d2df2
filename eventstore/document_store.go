// Copyright (C) 2026 Evstore Engine contributors.
// See LICENSE for copying information.

package eventstore

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	monkit "gopkg.in/spacemonkeygo/monkit.v2"

	"go.evstore.dev/engine/backend"
	"go.evstore.dev/engine/errs2"
)

var mon = monkit.Package()

// DocumentStore is the CRUD layer for ObjectDocument, with backend-native
// optimistic concurrency.
type DocumentStore struct {
	store      backend.Store
	log        *zap.Logger
	containers containerGuard
}

// NewDocumentStore returns a DocumentStore backed by store. Container
// (bucket) creation is optional and gated by autoCreateBucket: when true,
// the first write under a given object name triggers a cached
// EnsureContainer call; when false, writes proceed directly and a missing
// container surfaces as whatever ConfigError the backend classifies it as.
func NewDocumentStore(store backend.Store, log *zap.Logger, autoCreateBucket bool) *DocumentStore {
	if log == nil {
		log = zap.NewNop()
	}
	return &DocumentStore{store: store, log: log, containers: newContainerGuard(store, autoCreateBucket)}
}

func documentKey(objectName, objectID string) string {
	return backend.KeyFor(strings.ToLower(objectName), objectID, ".json")
}

// GetOrCreate returns the existing document for (name, id), or initializes
// a fresh one (Empty state, current_stream_version -1, hash/prev_hash nil)
// and persists it. On a read that races with a concurrent create, it
// returns whichever document survives the precondition race.
func (s *DocumentStore) GetOrCreate(ctx context.Context, name, id string) (_ *ObjectDocument, _ string, err error) {
	defer mon.Task()(&ctx)(&err)

	if err := validateNameAndID(name, id); err != nil {
		return nil, "", err
	}

	doc, token, err := s.getRaw(ctx, name, id)
	if err == nil {
		return doc, token, nil
	}
	if !errs2.Is(err, errs2.NotFound) {
		return nil, "", err
	}

	if err := s.containers.ensure(ctx, name); err != nil {
		return nil, "", err
	}

	fresh := &ObjectDocument{
		ObjectName: name,
		ObjectID:   id,
		Active: StreamInformation{
			StreamIdentifier:     uuid.NewString(),
			CurrentStreamVersion: -1,
		},
	}

	data, marshalErr := json.Marshal(fresh)
	if marshalErr != nil {
		return nil, "", errs2.Wrap(errs2.InvalidArgument, errs2.CodeEmptyObjectID, marshalErr, "marshal fresh document")
	}

	newToken, putErr := s.store.Put(ctx, documentKey(name, id), data, backend.NoneMatch())
	if putErr == nil {
		return fresh, newToken, nil
	}
	if !errs2.Is(putErr, errs2.ConcurrencyConflict) {
		return nil, "", putErr
	}

	// Lost the create race: whoever won survives.
	return s.getRaw(ctx, name, id)
}

// Get returns the document for (name, id), failing with NotFound if absent.
func (s *DocumentStore) Get(ctx context.Context, name, id string) (_ *ObjectDocument, err error) {
	defer mon.Task()(&ctx)(&err)

	if err := validateNameAndID(name, id); err != nil {
		return nil, err
	}
	doc, _, err := s.getRaw(ctx, name, id)
	return doc, err
}

func (s *DocumentStore) getRaw(ctx context.Context, name, id string) (*ObjectDocument, string, error) {
	obj, err := s.store.Get(ctx, documentKey(name, id))
	if err != nil {
		if errs2.Is(err, errs2.NotFound) {
			return nil, "", errs2.New(errs2.NotFound, errs2.CodeDocumentNotFound, "object document %s/%s not found", name, id)
		}
		return nil, "", err
	}

	var doc ObjectDocument
	if err := json.Unmarshal(obj.Data, &doc); err != nil {
		return nil, "", errs2.Wrap(errs2.BackendUnavailable, errs2.CodeTransportFailure, err, "unmarshal object document")
	}
	return &doc, obj.Token, nil
}

// Set writes document using token as the precondition (empty token means
// create-only). On precondition failure it fails with ConcurrencyConflict.
// It returns the new precondition token on success.
func (s *DocumentStore) Set(ctx context.Context, document *ObjectDocument, token string) (_ string, err error) {
	defer mon.Task()(&ctx)(&err)

	if err := validateNameAndID(document.ObjectName, document.ObjectID); err != nil {
		return "", err
	}

	if err := s.containers.ensure(ctx, document.ObjectName); err != nil {
		return "", err
	}

	data, err := json.Marshal(document)
	if err != nil {
		return "", errs2.Wrap(errs2.InvalidArgument, errs2.CodeEmptyObjectID, err, "marshal document")
	}

	precondition := backend.NoneMatch()
	if token != "" {
		precondition = backend.Match(token)
	}

	newToken, err := s.store.Put(ctx, documentKey(document.ObjectName, document.ObjectID), data, precondition)
	if err != nil {
		if errs2.Is(err, errs2.ConcurrencyConflict) {
			return "", errs2.New(errs2.ConcurrencyConflict, errs2.CodePreconditionFailed,
				"concurrent write to object document %s/%s", document.ObjectName, document.ObjectID)
		}
		return "", err
	}
	return newToken, nil
}

// GetFirstByTag resolves tag through the tag index and hydrates the first
// matching document. Empty/whitespace ids in the tag set are skipped.
func (s *DocumentStore) GetFirstByTag(ctx context.Context, tags *TagIndex, name string, kind TagKind, tag string) (_ *ObjectDocument, err error) {
	defer mon.Task()(&ctx)(&err)

	entry, err := tags.Get(ctx, name, kind, tag)
	if err != nil {
		return nil, err
	}
	for id := range entry.ObjectIDs {
		if strings.TrimSpace(id) == "" {
			continue
		}
		doc, lookupErr := s.lookupByTagID(ctx, name, kind, id)
		if lookupErr != nil {
			if errs2.Is(lookupErr, errs2.NotFound) {
				continue
			}
			return nil, lookupErr
		}
		return doc, nil
	}
	return nil, errs2.New(errs2.NotFound, errs2.CodeDocumentNotFound, "no document for %s tag %q", name, tag)
}

// GetByTag resolves tag through the tag index and hydrates every matching
// document. Empty/whitespace ids in the tag set are skipped.
func (s *DocumentStore) GetByTag(ctx context.Context, tags *TagIndex, name string, kind TagKind, tag string) (_ []*ObjectDocument, err error) {
	defer mon.Task()(&ctx)(&err)

	entry, err := tags.Get(ctx, name, kind, tag)
	if err != nil {
		return nil, err
	}

	var docs []*ObjectDocument
	for id := range entry.ObjectIDs {
		if strings.TrimSpace(id) == "" {
			continue
		}
		doc, lookupErr := s.lookupByTagID(ctx, name, kind, id)
		if lookupErr != nil {
			if errs2.Is(lookupErr, errs2.NotFound) {
				continue
			}
			return nil, lookupErr
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// lookupByTagID resolves a tag-set id to a document. DocumentTag ids are
// object-ids and hydrate directly; StreamTag ids are stream-identifiers and
// require a tag-index-style scan because the canonical key is by object-id.
func (s *DocumentStore) lookupByTagID(ctx context.Context, name string, kind TagKind, id string) (*ObjectDocument, error) {
	if kind == DocumentTag {
		return s.Get(ctx, name, id)
	}
	return s.findByStreamIdentifier(ctx, name, id)
}

func (s *DocumentStore) findByStreamIdentifier(ctx context.Context, name, streamIdentifier string) (*ObjectDocument, error) {
	page, err := s.store.ListPrefix(ctx, strings.ToLower(name)+"/", "")
	if err != nil {
		return nil, err
	}
	for _, key := range page.Keys {
		if !strings.HasSuffix(key, ".json") || strings.Contains(key, "/tags/") {
			continue
		}
		obj, err := s.store.Get(ctx, key)
		if err != nil {
			continue
		}
		var doc ObjectDocument
		if err := json.Unmarshal(obj.Data, &doc); err != nil {
			continue
		}
		if doc.Active.StreamIdentifier == streamIdentifier {
			return &doc, nil
		}
	}
	return nil, errs2.New(errs2.NotFound, errs2.CodeDocumentNotFound, "no document with stream %q", streamIdentifier)
}

func validateNameAndID(name, id string) error {
	if strings.TrimSpace(name) == "" {
		return errs2.New(errs2.InvalidArgument, errs2.CodeEmptyAggregateName, "aggregate name must not be empty")
	}
	if strings.TrimSpace(id) == "" {
		return errs2.New(errs2.InvalidArgument, errs2.CodeEmptyObjectID, "object id must not be empty")
	}
	return nil
}
