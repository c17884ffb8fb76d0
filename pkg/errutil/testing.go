// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Wildmere Contributors

package errutil

import (
	"testing"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// AssertErrorCode fails the test unless err is a coded error carrying the
// given code. Wildmere wraps every domain error with an oops code, so a
// plain error here usually means a wrapping step was skipped.
func AssertErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	oopsErr, ok := oops.AsOops(err)
	require.True(t, ok, "expected a coded error, got %T: %v", err, err)
	assert.Equal(t, code, oopsErr.Code(), "error: %v", err)
}

// AssertErrorContext fails the test unless err carries key with the given
// value in its structured context.
func AssertErrorContext(t *testing.T, err error, key string, value any) {
	t.Helper()
	require.Error(t, err)
	oopsErr, ok := oops.AsOops(err)
	require.True(t, ok, "expected a coded error, got %T: %v", err, err)
	got, present := oopsErr.Context()[key]
	require.True(t, present, "context key %q missing, have %v", key, oopsErr.Context())
	assert.Equal(t, value, got)
}
