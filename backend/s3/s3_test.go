// Copyright (C) 2026 Evstore Engine contributors.
// See LICENSE for copying information.

package s3

import (
	"net/http"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/require"
)

// Store's conformance (CRUD, conditional-write semantics, pagination) is
// exercised by internal/backendtest.RunTests against a live S3-compatible
// endpoint; that suite requires real infrastructure and is not run here.
// These tests cover the adapter's own error-classification logic, the part
// that has no dependency on a running server.

func TestIsNoSuchKeyMatchesCode(t *testing.T) {
	require.True(t, isNoSuchKey(minio.ErrorResponse{Code: "NoSuchKey"}))
}

func TestIsNoSuchKeyMatchesStatus(t *testing.T) {
	require.True(t, isNoSuchKey(minio.ErrorResponse{StatusCode: http.StatusNotFound}))
}

func TestIsNoSuchKeyRejectsUnrelatedError(t *testing.T) {
	require.False(t, isNoSuchKey(minio.ErrorResponse{Code: "AccessDenied", StatusCode: http.StatusForbidden}))
}

func TestIsPreconditionFailedMatchesCodeAndStatus(t *testing.T) {
	require.True(t, isPreconditionFailed(minio.ErrorResponse{Code: "PreconditionFailed"}))
	require.True(t, isPreconditionFailed(minio.ErrorResponse{StatusCode: http.StatusPreconditionFailed}))
	require.True(t, isPreconditionFailed(minio.ErrorResponse{StatusCode: http.StatusConflict}))
}

func TestIsPreconditionFailedRejectsUnrelatedError(t *testing.T) {
	require.False(t, isPreconditionFailed(minio.ErrorResponse{Code: "InternalError", StatusCode: http.StatusInternalServerError}))
}

func TestIsNoSuchBucketMatchesCode(t *testing.T) {
	require.True(t, isNoSuchBucket(minio.ErrorResponse{Code: "NoSuchBucket", StatusCode: http.StatusNotFound}))
}

func TestIsNoSuchBucketRejectsNoSuchKey(t *testing.T) {
	require.False(t, isNoSuchBucket(minio.ErrorResponse{Code: "NoSuchKey", StatusCode: http.StatusNotFound}))
}
