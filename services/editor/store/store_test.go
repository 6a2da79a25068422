// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package store_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/codewords/services/editor/action"
	"github.com/AleutianAI/codewords/services/editor/ast"
	"github.com/AleutianAI/codewords/services/editor/history"
	"github.com/AleutianAI/codewords/services/editor/lang/blocks"
	"github.com/AleutianAI/codewords/services/editor/reducer"
	"github.com/AleutianAI/codewords/services/editor/render"
	"github.com/AleutianAI/codewords/services/editor/snippet"
	"github.com/AleutianAI/codewords/services/editor/store"
)

func newStore(opts ...store.Option) *store.Store {
	r := reducer.New(nil, map[string]render.LineBuilder{blocks.LanguageName: blocks.NewBuilder()})
	return store.New(r, opts...)
}

func letDoc(t *testing.T) *ast.Document {
	t.Helper()
	doc, err := blocks.NewDocument(blocks.NewLet("x", blocks.Num("1")))
	require.NoError(t, err)
	return doc
}

// appendAfterFirst inserts stmt after the first top-level statement.
func appendAfterFirst(t *testing.T, s *store.Store, stmt *ast.Expression) {
	t.Helper()
	root := s.State().Document.Root()
	a, err := action.NewApplyEdit(ast.InsertionEdit{
		Kind:        ast.EditAfter,
		Path:        ast.Path{root.SlotAt(0)},
		Expressions: []*ast.Expression{stmt},
		Priority:    1,
	})
	require.NoError(t, err)
	require.NoError(t, s.Dispatch(context.Background(), a))
}

func TestStore_InitialState(t *testing.T) {
	s := newStore()
	require.NotNil(t, s.State())
	assert.Nil(t, s.State().Document)
	assert.Nil(t, s.History())
	assert.NotNil(t, s.Reducer())
}

func TestStore_DispatchNotifiesOnChange(t *testing.T) {
	s := newStore()
	var changes []store.Change
	id := s.Subscribe(func(c store.Change) {
		changes = append(changes, c)
	})

	doc := letDoc(t)
	require.NoError(t, s.Dispatch(context.Background(), action.NewSetDocument(doc)))
	require.Len(t, changes, 1)
	assert.Equal(t, action.TypeSetDocument, changes[0].Action.Type())
	assert.Nil(t, changes[0].Prev.Document)
	assert.Same(t, doc, changes[0].Next.Document)
	assert.Same(t, s.State(), changes[0].Next)

	// Same document again: nothing changes, nobody is told.
	require.NoError(t, s.Dispatch(context.Background(), action.NewSetDocument(doc)))
	assert.Len(t, changes, 1)

	assert.True(t, s.Unsubscribe(id))
	assert.False(t, s.Unsubscribe(id))
	require.NoError(t, s.Dispatch(context.Background(), action.NewSetDocument(nil)))
	assert.Len(t, changes, 1)
}

func TestStore_NotifiesInSubscriptionOrder(t *testing.T) {
	s := newStore()
	var order []int
	var ids []string
	for i := range 8 {
		ids = append(ids, s.Subscribe(func(store.Change) { order = append(order, i) }))
	}
	require.True(t, s.Unsubscribe(ids[3]))

	require.NoError(t, s.Dispatch(context.Background(), action.NewSetDocument(letDoc(t))))
	assert.Equal(t, []int{0, 1, 2, 4, 5, 6, 7}, order)

	order = nil
	s.Subscribe(func(store.Change) { order = append(order, 8) })
	require.NoError(t, s.Dispatch(context.Background(), action.NewSetDocument(nil)))
	assert.Equal(t, []int{0, 1, 2, 4, 5, 6, 7, 8}, order)
}

func TestStore_FailedDispatchKeepsState(t *testing.T) {
	s := newStore()
	before := s.State()
	notified := false
	s.Subscribe(func(store.Change) { notified = true })

	a, err := action.NewApplyEdit(ast.InsertionEdit{
		Kind:        ast.EditAppend,
		Path:        ast.Path{},
		Expressions: []*ast.Expression{blocks.Num("1")},
		Priority:    1,
	})
	require.NoError(t, err)
	err = s.Dispatch(context.Background(), a)
	assert.True(t, reducer.IsNoDocument(err))
	assert.Same(t, before, s.State())
	assert.False(t, notified)
}

func TestStore_DispatchAllStopsAtFirstError(t *testing.T) {
	s := newStore()
	handler := action.NewClickHandler(func(context.Context, action.ClickEvent) bool { return false })
	first, err := action.NewAddExprClickHandlers(map[string]action.ClickHandler{"select": handler})
	require.NoError(t, err)
	other, err := action.NewAddExprClickHandlers(map[string]action.ClickHandler{
		"select": action.NewClickHandler(func(context.Context, action.ClickEvent) bool { return true }),
	})
	require.NoError(t, err)

	err = s.DispatchAll(context.Background(),
		action.NewSetDocument(letDoc(t)),
		first,
		other,
		action.NewSetDocument(nil),
	)
	require.Error(t, err)
	assert.True(t, reducer.IsDuplicateHandler(err))
	assert.Contains(t, err.Error(), "action 2")
	assert.NotNil(t, s.State().Document, "actions after the failure are not dispatched")
}

func TestStore_RejectsReentrantDispatch(t *testing.T) {
	s := newStore()
	var reentrant error
	fn := snippet.SuggestFunc(func(ctx context.Context, _ snippet.Context) []snippet.ScoredSnippet {
		reentrant = s.Dispatch(ctx, action.NewSetDocument(nil))
		return nil
	})

	require.NoError(t, s.Dispatch(context.Background(), action.NewSetDocument(letDoc(t))))
	require.NoError(t, s.Dispatch(context.Background(), action.NewSetSnippetSuggestFns(fn)))
	assert.ErrorIs(t, reentrant, store.ErrReentrantDispatch)
	assert.NotNil(t, s.State().Document)
}

func TestStore_ListenerMayDispatch(t *testing.T) {
	s := newStore()
	once := sync.Once{}
	s.Subscribe(func(c store.Change) {
		once.Do(func() {
			assert.NoError(t, s.Dispatch(context.Background(), action.NewSetSnippetPaletteContents("let", nil)))
		})
	})
	require.NoError(t, s.Dispatch(context.Background(), action.NewSetDocument(letDoc(t))))
	assert.Equal(t, "let", s.State().SearchText)
}

func TestStore_ListenerPanicIsRecovered(t *testing.T) {
	s := newStore()
	called := false
	s.Subscribe(func(store.Change) { panic("boom") })
	s.Subscribe(func(store.Change) { called = true })

	require.NoError(t, s.Dispatch(context.Background(), action.NewSetDocument(letDoc(t))))
	assert.True(t, called)
}

func TestStore_ConcurrentDispatch(t *testing.T) {
	s := newStore()
	require.NoError(t, s.Dispatch(context.Background(), action.NewSetDocument(letDoc(t))))
	start := s.State().Generation

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			text := "a"
			if i%2 == 1 {
				text = "b"
			}
			assert.NoError(t, s.Dispatch(context.Background(), action.NewSetSnippetPaletteContents(text, nil)))
		}(i)
	}
	wg.Wait()
	assert.Greater(t, s.State().Generation, start)
	assert.LessOrEqual(t, s.State().Generation, start+20)
}

// TestStore_ClickInnermostFirst verifies handlers run innermost span first
// and stop at the first one that consumes the click.
func TestStore_ClickInnermostFirst(t *testing.T) {
	s := newStore()
	var calls []string
	record := func(result bool) action.ClickHandler {
		return action.NewClickHandler(func(_ context.Context, ev action.ClickEvent) bool {
			calls = append(calls, ev.HandlerID+":"+ev.Expr.Type().Name)
			return result
		})
	}
	handlers, err := action.NewAddExprClickHandlers(map[string]action.ClickHandler{
		blocks.HandlerSelect: record(false),
		blocks.HandlerRename: record(true),
	})
	require.NoError(t, err)
	require.NoError(t, s.DispatchAll(context.Background(), action.NewSetDocument(letDoc(t)), handlers))

	// Column 4 of "let x = 1" is the declared name.
	handled, err := s.Click(context.Background(), 0, 4)
	require.NoError(t, err)
	assert.True(t, handled)
	assert.Equal(t, []string{"select:" + blocks.TypeName, "rename:" + blocks.TypeName}, calls)

	// The keyword only has the statement's select handler, which declines.
	calls = nil
	handled, err = s.Click(context.Background(), 0, 1)
	require.NoError(t, err)
	assert.False(t, handled)
	assert.Equal(t, []string{"select:" + blocks.TypeLet}, calls)
}

func TestStore_ClickSkipsUnregisteredHandlers(t *testing.T) {
	s := newStore()
	var got action.ClickEvent
	handlers, err := action.NewAddExprClickHandlers(map[string]action.ClickHandler{
		blocks.HandlerRename: action.NewClickHandler(func(_ context.Context, ev action.ClickEvent) bool {
			got = ev
			return true
		}),
	})
	require.NoError(t, err)
	require.NoError(t, s.DispatchAll(context.Background(), action.NewSetDocument(letDoc(t)), handlers))

	handled, err := s.Click(context.Background(), 0, 4)
	require.NoError(t, err)
	assert.True(t, handled)
	assert.Equal(t, blocks.HandlerRename, got.HandlerID)
	assert.Equal(t, "x", got.Expr.Value())
	assert.Equal(t, "name", got.Path.Last())
	assert.Same(t, s.State().Document, got.Document)
}

func TestStore_ClickErrors(t *testing.T) {
	s := newStore()
	_, err := s.Click(context.Background(), 0, 0)
	assert.True(t, reducer.IsNoDocument(err))

	require.NoError(t, s.Dispatch(context.Background(), action.NewSetDocument(letDoc(t))))
	_, err = s.Click(context.Background(), 5, 0)
	assert.ErrorIs(t, err, store.ErrNoLine)
}

func TestStore_HistoryAndUndo(t *testing.T) {
	h := history.NewMemoryStore(10)
	s := newStore(store.WithHistory(h))
	ctx := context.Background()

	doc := letDoc(t)
	require.NoError(t, s.Dispatch(ctx, action.NewSetDocument(doc)))
	appendAfterFirst(t, s, blocks.NewLet("y", blocks.Num("2")))
	appendAfterFirst(t, s, blocks.NewLet("z", blocks.Num("3")))

	revs, err := h.List(ctx, doc.ID())
	require.NoError(t, err)
	require.Len(t, revs, 3)
	assert.Equal(t, 3, s.State().Document.Root().ChildCount())

	undone, err := s.Undo(ctx)
	require.NoError(t, err)
	assert.True(t, undone)
	assert.Equal(t, 2, s.State().Document.Root().ChildCount())

	undone, err = s.Undo(ctx)
	require.NoError(t, err)
	assert.True(t, undone)
	assert.True(t, ast.Equal(s.State().Document.Root(), doc.Root()))
	assert.Len(t, s.State().RenderedLines, 1)

	undone, err = s.Undo(ctx)
	require.NoError(t, err)
	assert.False(t, undone, "the first revision cannot be undone")

	revs, err = h.List(ctx, doc.ID())
	require.NoError(t, err)
	assert.Len(t, revs, 1, "undo does not record the restored document")
}

func TestStore_UndoErrors(t *testing.T) {
	_, err := newStore().Undo(context.Background())
	assert.ErrorIs(t, err, store.ErrNoHistory)

	s := newStore(store.WithHistory(history.NewMemoryStore(10)))
	_, err = s.Undo(context.Background())
	assert.True(t, reducer.IsNoDocument(err))
}

func TestStore_WithState(t *testing.T) {
	r := reducer.New(nil, map[string]render.LineBuilder{blocks.LanguageName: blocks.NewBuilder()})
	st, err := r.Reduce(context.Background(), nil, action.NewSetDocument(letDoc(t)))
	require.NoError(t, err)

	s := store.New(r, store.WithState(st))
	assert.Same(t, st, s.State())
}
