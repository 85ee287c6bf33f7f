// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package history

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
)

// unreachableStore points at a closed port; every network call fails.
func unreachableStore(t *testing.T) *Store {
	t.Helper()
	client, err := weaviate.NewClient(weaviate.Config{Scheme: "http", Host: "localhost:1"})
	require.NoError(t, err)
	return NewStore(client)
}

// TestNewStore_NilClientPanics verifies the constructor contract.
func TestNewStore_NilClientPanics(t *testing.T) {
	assert.Panics(t, func() { NewStore(nil) })
}

// TestStore_Append_EmptyAnswerSkipped verifies failed turns leave no
// trace: the skip happens before any network call, so even an
// unreachable Weaviate succeeds here.
func TestStore_Append_EmptyAnswerSkipped(t *testing.T) {
	s := unreachableStore(t)
	assert.NoError(t, s.Append(context.Background(), "sess", "question", ""))
}

// TestStore_Append_UnreachableWeaviate verifies a real write against a
// dead store errors instead of silently dropping the turn.
func TestStore_Append_UnreachableWeaviate(t *testing.T) {
	s := unreachableStore(t)
	assert.Error(t, s.Append(context.Background(), "sess", "question", "answer"))
}

// TestStore_Recent_UnreachableWeaviate verifies history reads surface
// transport failures to the caller, who decides whether to degrade.
func TestStore_Recent_UnreachableWeaviate(t *testing.T) {
	s := unreachableStore(t)
	turns, err := s.Recent(context.Background(), "sess", 10)
	assert.Error(t, err)
	assert.Nil(t, turns)
}
