// Copyright (C) 2026 Evstore Engine contributors.
// See LICENSE for copying information.

// Package errs2 defines the stable error taxonomy shared by every package
// in this module. Each Kind maps to a zeebo/errs class and a stable code of
// the form EL***-<CATEGORY>-<NNNN>. Callers should compare against Kind with
// errs2.Is, never against error strings.
package errs2

import (
	"fmt"

	"github.com/zeebo/errs"
)

// Kind is one entry of the error taxonomy shared across the module.
type Kind int

const (
	// InvalidArgument covers null/empty names, malformed ranges, empty batches.
	InvalidArgument Kind = iota
	// NotFound covers a Get (not GetOrCreate) against an absent document/stream.
	NotFound
	// ConcurrencyConflict covers a precondition or hash-chain mismatch.
	ConcurrencyConflict
	// StreamClosed covers an append against a stream whose last event closed it.
	StreamClosed
	// StreamBroken covers a rollback failure after a failed commit.
	StreamBroken
	// ConfigError covers a missing backend, disabled auto-create, or missing factory.
	ConfigError
	// FactoryMissing covers a named store/tag/type that was never registered.
	FactoryMissing
	// BackendUnavailable covers a transport-level failure from an adapter.
	BackendUnavailable
	// Cancelled covers a fired cancellation handle.
	Cancelled
)

var classes = map[Kind]*errs.Class{
	InvalidArgument:     classOf("EL-VAL"),
	NotFound:            classOf("EL-NFD"),
	ConcurrencyConflict: classOf("EL-CCY"),
	StreamClosed:        classOf("EL-CLS"),
	StreamBroken:        classOf("EL-BRK"),
	ConfigError:         classOf("EL-CFG"),
	FactoryMissing:      classOf("EL-FAC"),
	BackendUnavailable:  classOf("EL-BKE"),
	Cancelled:           classOf("EL-CNC"),
}

func classOf(prefix string) *errs.Class {
	c := errs.Class(prefix)
	return &c
}

// Code is a stable, documented identifier such as "EL-VAL-0002".
type Code string

// New builds an error of the given Kind carrying a stable Code and a
// human-readable message naming the aggregate/object and operation
// involved.
func New(kind Kind, code Code, format string, args ...any) error {
	class := classes[kind]
	msg := fmt.Sprintf("[%s] %s", code, fmt.Sprintf(format, args...))
	return class.New("%s", msg)
}

// Wrap attaches a Kind/Code to an underlying cause without discarding it.
func Wrap(kind Kind, code Code, cause error, context string) error {
	class := classes[kind]
	return class.Wrap(fmt.Errorf("[%s] %s: %w", code, context, cause))
}

// Is reports whether err belongs to the given Kind's error class.
func Is(err error, kind Kind) bool {
	class := classes[kind]
	return class.Has(err)
}

// Stable error codes referenced throughout the engine. Numbering follows
// the category, not call order, so adding a new failure mode never shifts
// existing codes.
const (
	CodeEmptyAggregateName   Code = "EL-VAL-0001"
	CodeEmptyObjectID        Code = "EL-VAL-0002"
	CodeInvalidPageSize      Code = "EL-VAL-0003"
	CodeEmptyEventBatch      Code = "EL-VAL-0004"
	CodeInvalidRange         Code = "EL-VAL-0005"
	CodeDocumentNotFound     Code = "EL-NFD-0001"
	CodeStreamDataNotFound   Code = "EL-NFD-0002"
	CodeHashMismatch         Code = "EL-CCY-0001"
	CodePreconditionFailed   Code = "EL-CCY-0002"
	CodeStaleStreamVersion   Code = "EL-CCY-0003"
	CodeStreamClosed         Code = "EL-CLS-0001"
	CodeStreamBroken         Code = "EL-BRK-0001"
	CodeRollbackFailed       Code = "EL-BRK-0002"
	CodeBackendMissing       Code = "EL-CFG-0001"
	CodeContainerMissing     Code = "EL-CFG-0002"
	CodeTagStoreUnconfigured Code = "EL-CFG-0003"
	CodeStoreNotRegistered   Code = "EL-FAC-0001"
	CodeTransportFailure     Code = "EL-BKE-0001"
	CodeCancelled            Code = "EL-CNC-0001"
)
