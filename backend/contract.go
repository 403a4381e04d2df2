// Copyright (C) 2026 Evstore Engine contributors.
// See LICENSE for copying information.

// Package backend defines the abstract object-store contract every storage
// adapter must implement. The contract is deliberately backend-agnostic:
// adapters translate their native errors
// into the errs2 taxonomy and their native conditional-write mechanism
// (ETag, generation number, ...) into Precondition.
package backend

import (
	"context"
	"fmt"

	"go.evstore.dev/engine/errs2"
)

// PreconditionKind selects the conditional-write semantics of a Put.
type PreconditionKind int

const (
	// Unconditional writes regardless of the object's current state.
	Unconditional PreconditionKind = iota
	// IfMatch writes only if the object's current token equals Token.
	IfMatch
	// IfNoneMatch writes only if the object does not currently exist.
	IfNoneMatch
)

// Precondition describes the conditional-write clause of a Put.
type Precondition struct {
	Kind  PreconditionKind
	Token string // only meaningful when Kind == IfMatch
}

// Match returns the IfMatch precondition for token.
func Match(token string) Precondition {
	return Precondition{Kind: IfMatch, Token: token}
}

// NoneMatch returns the IfNoneMatch precondition (create-only).
func NoneMatch() Precondition {
	return Precondition{Kind: IfNoneMatch}
}

// Object is the result of a Get: the object's bytes and its opaque
// precondition token (e.g. ETag). Callers must treat Token as opaque and
// never persist it beyond the lifetime of one commit.
type Object struct {
	Data  []byte
	Token string
}

// Page is one page of a ListPrefix call.
type Page struct {
	Keys       []string
	NextCursor string // empty when there are no more pages
}

// Store is the backend adapter contract. Every method is a suspension
// point and must be cancellable via ctx.
type Store interface {
	// Get fetches an object together with its precondition token in a
	// single round trip. Returns a NotFound-kind error if absent.
	Get(ctx context.Context, key string) (Object, error)

	// Put writes data at key honoring precondition. Returns the new
	// token on success, or a ConcurrencyConflict-kind error if the
	// precondition was not met.
	Put(ctx context.Context, key string, data []byte, precondition Precondition) (string, error)

	// Head returns only the precondition token, without fetching bytes.
	// Used outside hot paths only.
	Head(ctx context.Context, key string) (string, error)

	// Delete removes an object. Deleting an absent object is not an error.
	Delete(ctx context.Context, key string) error

	// ListPrefix lists keys under prefix, paginated via cursor.
	ListPrefix(ctx context.Context, prefix string, cursor string) (Page, error)

	// EnsureContainer idempotently verifies/creates the named container
	// (bucket). Implementations must cache a verified container so that
	// N concurrent calls cause at most one underlying creation call.
	EnsureContainer(ctx context.Context, container string) error
}

// NotFoundError constructs the stable NotFound error for a missing key.
func NotFoundError(key string) error {
	return errs2.New(errs2.NotFound, errs2.CodeStreamDataNotFound, "object %q not found", key)
}

// PreconditionFailedError constructs the stable ConcurrencyConflict error
// for a failed conditional write.
func PreconditionFailedError(key string) error {
	return errs2.New(errs2.ConcurrencyConflict, errs2.CodePreconditionFailed, "precondition failed writing %q", key)
}

// KeyFor builds the canonical key for object-name/object-id style paths.
func KeyFor(lowerObjectName, objectID, suffix string) string {
	if suffix == "" {
		return fmt.Sprintf("%s/%s", lowerObjectName, objectID)
	}
	return fmt.Sprintf("%s/%s%s", lowerObjectName, objectID, suffix)
}
