// Copyright (C) 2026 Evstore Engine contributors.
// See LICENSE for copying information.

// Package checkpoint implements the minimal projection checkpoint contract
// the engine exposes to projection factories: save/load/status, and
// an external checkpoint blob written by fingerprint. The engine treats a
// projection as opaque bytes; it only inspects the reserved top-level
// "$status" and "$checkpoint" keys.
package checkpoint

import (
	"context"
	"encoding/json"
	"reflect"
	"sync"
	"time"

	"go.uber.org/zap"

	"go.evstore.dev/engine/backend"
	"go.evstore.dev/engine/errs2"
)

// Status is the projection status enum.
type Status int

const (
	// Active is the default status when $status is absent.
	Active Status = iota
	// Rebuilding marks a projection undergoing a rebuild.
	Rebuilding
	// Disabled marks a projection that should not be queried.
	Disabled
)

const (
	statusField     = "$status"
	checkpointField = "$checkpoint"
)

// Factory is a projection checkpoint store over a single bucket.
type Factory struct {
	store  backend.Store
	bucket string
	log    *zap.Logger

	mu           sync.Mutex
	lastModified map[string]time.Time
}

// New returns a Factory writing projection blobs to bucket via store. The
// bucket-relative key layout follows "{bucket}/{projection_blob_name}".
func New(store backend.Store, bucket string, log *zap.Logger) *Factory {
	if log == nil {
		log = zap.NewNop()
	}
	return &Factory{store: store, bucket: bucket, log: log, lastModified: make(map[string]time.Time)}
}

func (f *Factory) key(blobName string) string {
	return f.bucket + "/" + blobName
}

// DefaultBlobName returns typeName + ".json", the default when the caller
// does not override the blob name.
func DefaultBlobName(typeName string) string {
	return typeName + ".json"
}

// Save writes data under blobName. If data carries a "$checkpoint"
// fingerprint and no checkpoint object of that fingerprint exists yet,
// Save also writes that checkpoint object.
func (f *Factory) Save(ctx context.Context, blobName string, data []byte) error {
	if _, err := f.store.Put(ctx, f.key(blobName), data, backend.Precondition{Kind: backend.Unconditional}); err != nil {
		return errs2.Wrap(errs2.BackendUnavailable, errs2.CodeTransportFailure, err, "save projection "+blobName)
	}
	f.touch(blobName)

	fingerprint, ok := extractCheckpointFingerprint(data)
	if !ok || fingerprint == "" {
		return nil
	}

	checkpointKey := "checkpoints/" + fingerprint + ".json"
	if _, err := f.store.Get(ctx, checkpointKey); err == nil {
		return nil
	} else if !errs2.Is(err, errs2.NotFound) {
		return err
	}

	if _, err := f.store.Put(ctx, checkpointKey, data, backend.NoneMatch()); err != nil && !errs2.Is(err, errs2.ConcurrencyConflict) {
		return errs2.Wrap(errs2.BackendUnavailable, errs2.CodeTransportFailure, err, "save checkpoint "+fingerprint)
	}
	return nil
}

// SaveProjection is the typed variant of Save: it marshals projection to
// JSON, defaulting an empty blob name to DefaultBlobName of its Go type's
// simple name, then Saves.
func SaveProjection[T any](ctx context.Context, f *Factory, blobName string, projection T) error {
	if blobName == "" {
		t := reflect.TypeOf((*T)(nil)).Elem()
		for t.Kind() == reflect.Pointer {
			t = t.Elem()
		}
		blobName = DefaultBlobName(t.Name())
	}
	data, err := json.Marshal(projection)
	if err != nil {
		return errs2.Wrap(errs2.InvalidArgument, errs2.CodeEmptyObjectID, err, "marshal projection")
	}
	return f.Save(ctx, blobName, data)
}

// GetOrCreate returns the projection blob's bytes, writing defaultData if
// absent.
func (f *Factory) GetOrCreate(ctx context.Context, blobName string, defaultData []byte) ([]byte, error) {
	obj, err := f.store.Get(ctx, f.key(blobName))
	if err == nil {
		return obj.Data, nil
	}
	if !errs2.Is(err, errs2.NotFound) {
		return nil, err
	}
	if err := f.Save(ctx, blobName, defaultData); err != nil {
		return nil, err
	}
	return defaultData, nil
}

// Exists reports whether blobName's projection object exists.
func (f *Factory) Exists(ctx context.Context, blobName string) (bool, error) {
	_, err := f.store.Head(ctx, f.key(blobName))
	if err == nil {
		return true, nil
	}
	if errs2.Is(err, errs2.NotFound) {
		return false, nil
	}
	return false, err
}

// Delete removes blobName's projection object.
func (f *Factory) Delete(ctx context.Context, blobName string) error {
	return f.store.Delete(ctx, f.key(blobName))
}

// GetLastModified returns the last time Save wrote blobName, tracked
// in-process since the abstract backend contract exposes no native
// last-modified operation.
func (f *Factory) GetLastModified(blobName string) (time.Time, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.lastModified[blobName]
	return t, ok
}

func (f *Factory) touch(blobName string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastModified[blobName] = nowFunc()
}

// GetStatus reads the "$status" field of blobName's projection, defaulting
// to Active if absent.
func (f *Factory) GetStatus(ctx context.Context, blobName string) (Status, error) {
	obj, err := f.store.Get(ctx, f.key(blobName))
	if err != nil {
		if errs2.Is(err, errs2.NotFound) {
			return Active, nil
		}
		return Active, err
	}
	var wrapper struct {
		Status *Status `json:"$status"`
	}
	if err := json.Unmarshal(obj.Data, &wrapper); err != nil {
		return Active, errs2.Wrap(errs2.BackendUnavailable, errs2.CodeTransportFailure, err, "parse projection status")
	}
	if wrapper.Status == nil {
		return Active, nil
	}
	return *wrapper.Status, nil
}

// SetStatus rewrites blobName's "$status" field in place.
func (f *Factory) SetStatus(ctx context.Context, blobName string, status Status) error {
	obj, err := f.store.Get(ctx, f.key(blobName))
	if err != nil {
		return err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(obj.Data, &fields); err != nil {
		return errs2.Wrap(errs2.BackendUnavailable, errs2.CodeTransportFailure, err, "parse projection")
	}
	encoded, err := json.Marshal(status)
	if err != nil {
		return err
	}
	if fields == nil {
		fields = make(map[string]json.RawMessage)
	}
	fields[statusField] = encoded

	data, err := json.Marshal(fields)
	if err != nil {
		return err
	}
	return f.Save(ctx, blobName, data)
}

func extractCheckpointFingerprint(data []byte) (string, bool) {
	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal(data, &wrapper); err != nil {
		return "", false
	}
	raw, ok := wrapper[checkpointField]
	if !ok {
		return "", false
	}
	var fingerprint string
	if err := json.Unmarshal(raw, &fingerprint); err != nil {
		return "", false
	}
	return fingerprint, true
}

// nowFunc is a seam for deterministic tests.
var nowFunc = time.Now
