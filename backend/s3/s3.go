// Copyright (C) 2026 Evstore Engine contributors.
// See LICENSE for copying information.

// Package s3 implements backend.Store against an S3-compatible object store
// using the minio-go client SDK, the way storj's own gateway and
// s3-benchmark tooling speak S3. Conditional writes are expressed via the
// minio-go core client, which passes arbitrary headers (If-Match,
// If-None-Match) straight through to the PUT request.
package s3

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"sync"

	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"
	monkit "gopkg.in/spacemonkeygo/monkit.v2"

	"go.evstore.dev/engine/backend"
	"go.evstore.dev/engine/errs2"
)

var mon = monkit.Package()

// Store adapts an S3-compatible bucket to backend.Store.
type Store struct {
	core   minio.Core
	bucket string
	log    *zap.Logger

	verifiedMu sync.Mutex
	verified   map[string]bool
}

var _ backend.Store = (*Store)(nil)

// New returns a Store writing objects under bucket via client.
func New(client *minio.Client, bucket string, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{
		core:     minio.Core{Client: client},
		bucket:   bucket,
		log:      log,
		verified: make(map[string]bool),
	}
}

// Get implements backend.Store.
func (s *Store) Get(ctx context.Context, key string) (_ backend.Object, err error) {
	defer mon.Task()(&ctx)(&err)

	reader, info, _, err := s.core.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		if isNoSuchBucket(err) {
			return backend.Object{}, errs2.Wrap(errs2.ConfigError, errs2.CodeContainerMissing, err, "get "+key)
		}
		if isNoSuchKey(err) {
			return backend.Object{}, backend.NotFoundError(key)
		}
		return backend.Object{}, errs2.Wrap(errs2.BackendUnavailable, errs2.CodeTransportFailure, err, "get "+key)
	}
	defer func() { _ = reader.Close() }()

	data, err := io.ReadAll(reader)
	if err != nil {
		return backend.Object{}, errs2.Wrap(errs2.BackendUnavailable, errs2.CodeTransportFailure, err, "read "+key)
	}
	return backend.Object{Data: data, Token: info.ETag}, nil
}

// Put implements backend.Store.
func (s *Store) Put(ctx context.Context, key string, data []byte, precondition backend.Precondition) (_ string, err error) {
	defer mon.Task()(&ctx)(&err)

	headers := map[string][]string{}
	switch precondition.Kind {
	case backend.IfNoneMatch:
		headers["If-None-Match"] = []string{"*"}
	case backend.IfMatch:
		headers["If-Match"] = []string{precondition.Token}
	case backend.Unconditional:
		// no header
	}

	info, err := s.core.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), "", "", headers, nil)
	if err != nil {
		if isNoSuchBucket(err) {
			return "", errs2.Wrap(errs2.ConfigError, errs2.CodeContainerMissing, err, "put "+key)
		}
		if isPreconditionFailed(err) {
			return "", backend.PreconditionFailedError(key)
		}
		return "", errs2.Wrap(errs2.BackendUnavailable, errs2.CodeTransportFailure, err, "put "+key)
	}
	return info.ETag, nil
}

// Head implements backend.Store.
func (s *Store) Head(ctx context.Context, key string) (_ string, err error) {
	defer mon.Task()(&ctx)(&err)

	info, err := s.core.Client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if isNoSuchKey(err) {
			return "", backend.NotFoundError(key)
		}
		return "", errs2.Wrap(errs2.BackendUnavailable, errs2.CodeTransportFailure, err, "head "+key)
	}
	return info.ETag, nil
}

// Delete implements backend.Store.
func (s *Store) Delete(ctx context.Context, key string) (err error) {
	defer mon.Task()(&ctx)(&err)

	err = s.core.Client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{})
	if err != nil && !isNoSuchKey(err) {
		return errs2.Wrap(errs2.BackendUnavailable, errs2.CodeTransportFailure, err, "delete "+key)
	}
	return nil
}

// ListPrefix implements backend.Store.
func (s *Store) ListPrefix(ctx context.Context, prefix string, cursor string) (_ backend.Page, err error) {
	defer mon.Task()(&ctx)(&err)

	result, err := s.core.ListObjectsV2(s.bucket, prefix, cursor, false, "", 1000, "")
	if err != nil {
		return backend.Page{}, errs2.Wrap(errs2.BackendUnavailable, errs2.CodeTransportFailure, err, "list "+prefix)
	}

	page := backend.Page{}
	for _, obj := range result.Contents {
		page.Keys = append(page.Keys, obj.Key)
	}
	if result.IsTruncated {
		page.NextCursor = result.NextContinuationToken
	}
	return page, nil
}

// EnsureContainer implements backend.Store. Verification is cached
// per-bucket so N concurrent calls cause at most one MakeBucket call.
func (s *Store) EnsureContainer(ctx context.Context, container string) (err error) {
	defer mon.Task()(&ctx)(&err)

	s.verifiedMu.Lock()
	defer s.verifiedMu.Unlock()
	if s.verified[container] {
		return nil
	}

	exists, err := s.core.Client.BucketExists(ctx, container)
	if err != nil {
		return errs2.Wrap(errs2.BackendUnavailable, errs2.CodeTransportFailure, err, "bucket-exists "+container)
	}
	if !exists {
		if err := s.core.Client.MakeBucket(ctx, container, minio.MakeBucketOptions{}); err != nil {
			resp := minio.ToErrorResponse(err)
			if resp.Code != "BucketAlreadyOwnedByYou" && resp.Code != "BucketAlreadyExists" {
				return errs2.Wrap(errs2.ConfigError, errs2.CodeContainerMissing, err, "make-bucket "+container)
			}
		}
	}

	s.verified[container] = true
	return nil
}

func isNoSuchKey(err error) bool {
	resp := minio.ToErrorResponse(err)
	return resp.Code == "NoSuchKey" || resp.StatusCode == http.StatusNotFound
}

func isNoSuchBucket(err error) bool {
	resp := minio.ToErrorResponse(err)
	return resp.Code == "NoSuchBucket"
}

func isPreconditionFailed(err error) bool {
	resp := minio.ToErrorResponse(err)
	return resp.Code == "PreconditionFailed" || resp.StatusCode == http.StatusPreconditionFailed ||
		resp.StatusCode == http.StatusConflict
}
