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
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/codewords/services/editor/ast"
	"github.com/AleutianAI/codewords/services/editor/lang/blocks"
)

// version returns revision n of document "doc-1": a program of n lets.
func version(t *testing.T, n int) *ast.Document {
	t.Helper()
	stmts := make([]*ast.Expression, n)
	for i := range stmts {
		stmts[i] = blocks.NewLet("v"+strconv.Itoa(i), blocks.Num(strconv.Itoa(i)))
	}
	doc, err := ast.NewDocumentWithID("doc-1", blocks.NewProgram(stmts...))
	require.NoError(t, err)
	return doc
}

type storeFactory func(t *testing.T, limit int) Store

func factories() map[string]storeFactory {
	return map[string]storeFactory{
		"memory": func(t *testing.T, limit int) Store {
			return NewMemoryStore(limit)
		},
		"badger": func(t *testing.T, limit int) Store {
			cfg := InMemoryBadgerConfig()
			cfg.Limit = limit
			s, err := OpenBadgerStore(cfg, ast.NewRegistry(blocks.Language()))
			require.NoError(t, err)
			return s
		},
	}
}

func TestStore_AppendAndRead(t *testing.T) {
	for name, open := range factories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := open(t, 10)
			defer s.Close()

			_, err := s.Latest(ctx, "doc-1")
			assert.ErrorIs(t, err, ErrNotFound)

			for n := 1; n <= 3; n++ {
				rev, err := s.Append(ctx, version(t, n))
				require.NoError(t, err)
				assert.Equal(t, uint64(n), rev.Number)
				assert.Equal(t, "doc-1", rev.DocumentID)
				assert.False(t, rev.CreatedAt.IsZero())
			}

			latest, err := s.Latest(ctx, "doc-1")
			require.NoError(t, err)
			assert.Equal(t, uint64(3), latest.Number)
			assert.True(t, ast.Equal(latest.Document.Root(), version(t, 3).Root()))
			assert.Equal(t, "doc-1", latest.Document.ID())

			second, err := s.Get(ctx, "doc-1", 2)
			require.NoError(t, err)
			assert.Equal(t, 2, second.Document.Root().ChildCount())

			_, err = s.Get(ctx, "doc-1", 9)
			assert.ErrorIs(t, err, ErrNotFound)

			list, err := s.List(ctx, "doc-1")
			require.NoError(t, err)
			require.Len(t, list, 3)
			for i, rev := range list {
				assert.Equal(t, uint64(i+1), rev.Number)
			}

			other, err := s.List(ctx, "doc-2")
			require.NoError(t, err)
			assert.Empty(t, other)

			_, err = s.Append(ctx, nil)
			assert.ErrorIs(t, err, ErrNilDocument)
		})
	}
}

func TestStore_LimitEvictsOldest(t *testing.T) {
	for name, open := range factories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := open(t, 2)
			defer s.Close()

			for n := 1; n <= 4; n++ {
				_, err := s.Append(ctx, version(t, n))
				require.NoError(t, err)
			}

			list, err := s.List(ctx, "doc-1")
			require.NoError(t, err)
			require.Len(t, list, 2)
			assert.Equal(t, uint64(3), list[0].Number)
			assert.Equal(t, uint64(4), list[1].Number)

			_, err = s.Get(ctx, "doc-1", 1)
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestStore_TruncateRenumbers(t *testing.T) {
	for name, open := range factories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := open(t, 10)
			defer s.Close()

			for n := 1; n <= 4; n++ {
				_, err := s.Append(ctx, version(t, n))
				require.NoError(t, err)
			}
			require.NoError(t, s.Truncate(ctx, "doc-1", 2))

			latest, err := s.Latest(ctx, "doc-1")
			require.NoError(t, err)
			assert.Equal(t, uint64(2), latest.Number)

			rev, err := s.Append(ctx, version(t, 1))
			require.NoError(t, err)
			assert.Equal(t, uint64(3), rev.Number)

			require.NoError(t, s.Truncate(ctx, "missing", 0))
		})
	}
}

func TestStore_TruncateAfterEvictionKeepsNumbering(t *testing.T) {
	for name, open := range factories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := open(t, 2)
			defer s.Close()

			for n := 1; n <= 5; n++ {
				_, err := s.Append(ctx, version(t, n))
				require.NoError(t, err)
			}
			// Revisions 4 and 5 are retained; 1 to 3 were evicted.
			require.NoError(t, s.Truncate(ctx, "doc-1", 2))
			list, err := s.List(ctx, "doc-1")
			require.NoError(t, err)
			assert.Empty(t, list)

			rev, err := s.Append(ctx, version(t, 1))
			require.NoError(t, err)
			assert.Equal(t, uint64(3), rev.Number)

			rev, err = s.Append(ctx, version(t, 2))
			require.NoError(t, err)
			assert.Equal(t, uint64(4), rev.Number)
		})
	}
}

func TestStore_TruncateAboveLatestKeepsNumbering(t *testing.T) {
	for name, open := range factories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := open(t, 10)
			defer s.Close()

			for n := 1; n <= 3; n++ {
				_, err := s.Append(ctx, version(t, n))
				require.NoError(t, err)
			}
			require.NoError(t, s.Truncate(ctx, "doc-1", 100))

			rev, err := s.Append(ctx, version(t, 1))
			require.NoError(t, err)
			assert.Equal(t, uint64(4), rev.Number)
		})
	}
}

func TestStore_Closed(t *testing.T) {
	for name, open := range factories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := open(t, 10)
			require.NoError(t, s.Close())

			_, err := s.Append(ctx, version(t, 1))
			assert.ErrorIs(t, err, ErrClosed)
			_, err = s.Latest(ctx, "doc-1")
			assert.ErrorIs(t, err, ErrClosed)
			_, err = s.List(ctx, "doc-1")
			assert.ErrorIs(t, err, ErrClosed)
			assert.ErrorIs(t, s.Truncate(ctx, "doc-1", 0), ErrClosed)
		})
	}
}

func TestBadgerStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultBadgerConfig(t.TempDir())
	cfg.GCInterval = 0
	reg := ast.NewRegistry(blocks.Language())

	s, err := OpenBadgerStore(cfg, reg)
	require.NoError(t, err)
	_, err = s.Append(ctx, version(t, 2))
	require.NoError(t, err)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close(), "second close is a no-op")

	s, err = OpenBadgerStore(cfg, reg)
	require.NoError(t, err)
	defer s.Close()
	latest, err := s.Latest(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), latest.Number)
	assert.True(t, ast.Equal(latest.Document.Root(), version(t, 2).Root()))
}

func TestOpenBadgerStore_Validation(t *testing.T) {
	reg := ast.NewRegistry(blocks.Language())

	_, err := OpenBadgerStore(BadgerConfig{}, reg)
	assert.ErrorContains(t, err, "path is required")

	_, err = OpenBadgerStore(InMemoryBadgerConfig(), nil)
	assert.ErrorContains(t, err, "registry is required")

	cfg := InMemoryBadgerConfig()
	cfg.GCDiscardRatio = 2
	_, err = OpenBadgerStore(cfg, reg)
	assert.Error(t, err)
}

func TestMemoryStore_DefaultLimit(t *testing.T) {
	s := NewMemoryStore(0)
	assert.Equal(t, DefaultLimit, s.limit)
}
