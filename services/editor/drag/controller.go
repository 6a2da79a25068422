// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package drag turns pointer gestures on the snippet palette into actions.
//
//	Idle ──Start──▶ Dragging ──Move/Hover (target changed)──▶ Dragging
//	  ▲                 │
//	  └──End / Cancel───┘   End with a hovered target dispatches
//	                        APPLY_EDIT, then the release.
//
// Targets come from the dragged snippet. Suggestions are not recomputed
// while dragging, and the document is assumed not to change until the
// drag ends.
package drag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/AleutianAI/codewords/services/editor/action"
	"github.com/AleutianAI/codewords/services/editor/reducer"
	"github.com/AleutianAI/codewords/services/editor/render"
	"github.com/AleutianAI/codewords/services/editor/snippet"
)

var (
	// ErrDragInProgress is returned by Start while a drag is active.
	ErrDragInProgress = errors.New("drag already in progress")

	// ErrNotDragging is returned by Move, Hover, End and Cancel when idle.
	ErrNotDragging = errors.New("no drag in progress")

	// ErrUnknownTarget is returned by Hover for an ID the snippet lacks.
	ErrUnknownTarget = errors.New("snippet has no such target")
)

// Store is where the controller reads the drag and sends its actions.
type Store interface {
	Dispatch(ctx context.Context, a action.Action) error
	State() *reducer.EditorState
}

// Geometry is the initial drag shadow.
type Geometry struct {
	Precise  bool
	WidthPx  float64
	HeightPx float64
	OffsetX  float64
	OffsetY  float64
}

// Controller drives one store's drag.
//
// Thread Safety: safe for concurrent use; gestures are serialized.
type Controller struct {
	store  Store
	logger *slog.Logger

	mu     sync.Mutex
	layout Layout
}

// NewController creates a controller for store.
func NewController(store Store) *Controller {
	return &Controller{
		store:  store,
		logger: slog.Default().With(slog.String("component", "drag")),
	}
}

// Start begins dragging s. layout positions s's targets and is used by Move
// until the drag ends.
func (c *Controller) Start(ctx context.Context, s snippet.ScoredSnippetWithTargets, g Geometry, layout Layout) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.store.State().Drag != nil {
		return ErrDragInProgress
	}
	d := action.NewDragInProgress(s, g.Precise, g.WidthPx, g.HeightPx, g.OffsetX, g.OffsetY)
	a, err := action.NewSnippetDragUpdate(action.DragStart, d)
	if err != nil {
		return err
	}
	if err := c.store.Dispatch(ctx, a); err != nil {
		return fmt.Errorf("start drag: %w", err)
	}
	c.layout = layout
	c.logger.Debug("drag started",
		slog.String("snippet", s.Snippet.ID()),
		slog.Int("targets", len(s.Targets)))
	return nil
}

// Move hit-tests (x, y) and dispatches a hover change when the hovered
// target differs from the current one.
//
// Outputs:
//
//	bool - True when an action was dispatched.
//	error - ErrNotDragging or a dispatch error.
func (c *Controller) Move(ctx context.Context, x, y float64) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	d := c.store.State().Drag
	if d == nil {
		return false, ErrNotDragging
	}
	return c.hover(ctx, d, c.layout.HitTest(d.Snippet.Targets, x, y))
}

// Hover sets the hovered target by ID. An empty ID clears it.
func (c *Controller) Hover(ctx context.Context, targetID string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	d := c.store.State().Drag
	if d == nil {
		return false, ErrNotDragging
	}
	if targetID == "" {
		return c.hover(ctx, d, nil)
	}
	t, ok := d.Snippet.Target(targetID)
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrUnknownTarget, targetID)
	}
	return c.hover(ctx, d, t)
}

func (c *Controller) hover(ctx context.Context, d *action.DragInProgress, t *render.ResolvedTarget) (bool, error) {
	if sameTarget(d.Hovered, t) {
		return false, nil
	}
	a, err := action.NewSnippetDragUpdate(action.DragHoverChange, d.WithHovered(t))
	if err != nil {
		return false, err
	}
	if err := c.store.Dispatch(ctx, a); err != nil {
		return false, fmt.Errorf("hover: %w", err)
	}
	return true, nil
}

func sameTarget(a, b *render.ResolvedTarget) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.ID == b.ID
}

// End finishes the drag.
//
// Description:
//
//	With a hovered target, dispatches exactly one APPLY_EDIT carrying the
//	snippet's edit for that target and then the release. Without one, only
//	the release is dispatched. The release is sent even when the edit
//	fails, so the drag never outlives End.
//
// Outputs:
//
//	bool - True when the edit was applied.
//	error - ErrNotDragging, or the edit and release errors joined.
func (c *Controller) End(ctx context.Context) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	d := c.store.State().Drag
	if d == nil {
		return false, ErrNotDragging
	}
	c.layout = Layout{}

	var editErr error
	applied := false
	if edit, ok := d.HoveredEdit(); ok {
		a, err := action.NewApplyEdit(edit)
		if err == nil {
			err = c.store.Dispatch(ctx, a)
		}
		if err != nil {
			editErr = fmt.Errorf("drop %s: %w", d.Snippet.Snippet.ID(), err)
			c.logger.Warn("drop failed", slog.String("error", err.Error()))
		} else {
			applied = true
		}
	}

	release, err := action.NewSnippetDragUpdate(action.DragRelease, nil)
	if err == nil {
		err = c.store.Dispatch(ctx, release)
	}
	return applied, errors.Join(editErr, err)
}

// Cancel abandons the drag without changing the document.
func (c *Controller) Cancel(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.store.State().Drag == nil {
		return ErrNotDragging
	}
	c.layout = Layout{}
	a, err := action.NewSnippetDragUpdate(action.DragCanceled, nil)
	if err != nil {
		return err
	}
	return c.store.Dispatch(ctx, a)
}
