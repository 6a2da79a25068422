// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/AleutianAI/codewords/services/editor"
	"github.com/AleutianAI/codewords/services/editor/drag"
	"github.com/AleutianAI/codewords/services/editor/snippet"
	"github.com/AleutianAI/codewords/services/editor/telemetry"
	"github.com/AleutianAI/codewords/services/editor/watch"
)

// =============================================================================
// render
// =============================================================================

func (a *app) renderCmd() *cobra.Command {
	var showTargets bool
	cmd := &cobra.Command{
		Use:   "render <document>",
		Short: "Print a document as text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.openDocument(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer svc.Close()

			a.printLines(svc)
			if showTargets {
				for _, l := range editor.NewStateView(svc.State(), nil).Lines {
					if len(l.Targets) > 0 {
						a.out.Row(strconv.Itoa(l.Index+1), strings.Join(l.Targets, ","))
					}
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&showTargets, "targets", false, "List the drop targets on each line")
	return cmd
}

// =============================================================================
// suggest
// =============================================================================

func (a *app) suggestCmd() *cobra.Command {
	var showTargets bool
	cmd := &cobra.Command{
		Use:   "suggest <document> [query]",
		Short: "Rank palette snippets for a query",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.openDocument(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer svc.Close()

			query := ""
			if len(args) == 2 {
				query = args[1]
			}
			list, err := svc.Suggestions(cmd.Context(), query)
			if err != nil {
				return err
			}
			if len(list) == 0 {
				a.out.Warning("no snippets match")
				return nil
			}
			a.printSnippets(list, showTargets)
			return nil
		},
	}
	cmd.Flags().BoolVar(&showTargets, "targets", false, "List the drop targets of each snippet")
	return cmd
}

func (a *app) printSnippets(list []snippet.ScoredSnippetWithTargets, showTargets bool) {
	for _, v := range editor.NewSnippetViews(list) {
		a.out.Row(v.ID, strconv.FormatFloat(v.Score, 'f', 2, 64), v.Display, strconv.Itoa(len(v.Targets)))
		if !showTargets {
			continue
		}
		for _, t := range v.Targets {
			a.out.Row("", t.ID, targetRef(t), "line "+strconv.Itoa(t.Line+1))
		}
	}
}

// =============================================================================
// edit
// =============================================================================

func (a *app) editCmd() *cobra.Command {
	var (
		snippetID string
		targetID  string
		query     string
		output    string
	)
	cmd := &cobra.Command{
		Use:   "edit <document>",
		Short: "Drop a snippet on a target and save the document",
		Long: `Drops a palette snippet on one of its drop targets and writes the
result back to the document (or to --output).

--target takes a target ID or a locator KIND:POSITION:path, such as
INLINE:REPLACE:statements.0.value. Both are listed by
"codewords suggest <document> <query> --targets". IDs are only stable for
one rendering; locators are stable for the document.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, err := a.openDocument(ctx, args[0])
			if err != nil {
				return err
			}
			defer svc.Close()

			list, err := svc.Suggestions(ctx, query)
			if err != nil {
				return err
			}
			id, err := resolveTarget(list, snippetID, targetID)
			if err != nil {
				return err
			}
			applied, err := svc.Drop(ctx, query, snippetID, id)
			if err != nil {
				return err
			}
			if !applied {
				a.out.Warning("the drop was not applied")
				return nil
			}
			dest := output
			if dest == "" {
				dest = args[0]
			}
			if err := svc.SaveFile(dest); err != nil {
				return err
			}
			a.printLines(svc)
			a.out.Success("saved " + dest)
			return nil
		},
	}
	cmd.Flags().StringVarP(&snippetID, "snippet", "s", "", "Snippet ID (required)")
	cmd.Flags().StringVarP(&targetID, "target", "t", "", "Drop target ID or KIND:POSITION:path locator (required)")
	cmd.Flags().StringVarP(&query, "query", "q", "", "Palette query the target was listed for")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the result here instead")
	_ = cmd.MarkFlagRequired("snippet")
	_ = cmd.MarkFlagRequired("target")
	return cmd
}

// targetRef is the stable locator of a target: KIND:POSITION:dotted.path.
func targetRef(t editor.TargetView) string {
	return t.Kind + ":" + t.Position + ":" + strings.Join(t.Path, ".")
}

// resolveTarget finds ref, an ID or a locator, among the targets of
// snippetID and returns the target's ID.
func resolveTarget(list []snippet.ScoredSnippetWithTargets, snippetID, ref string) (string, error) {
	for _, v := range editor.NewSnippetViews(list) {
		if v.ID != snippetID {
			continue
		}
		for _, t := range v.Targets {
			if t.ID == ref || targetRef(t) == ref {
				return t.ID, nil
			}
		}
		return "", fmt.Errorf("%w: %s", drag.ErrUnknownTarget, ref)
	}
	return "", fmt.Errorf("%w: %s", editor.ErrUnknownSnippet, snippetID)
}

// =============================================================================
// apply
// =============================================================================

func (a *app) applyCmd() *cobra.Command {
	var (
		output string
		dryRun bool
	)
	cmd := &cobra.Command{
		Use:   "apply <document> <actions.json>",
		Short: "Dispatch wire actions against a document",
		Long: `Reads one JSON action, or a JSON array of actions, and dispatches them
in order. The first failure stops the run and leaves the file untouched.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			data, err := os.ReadFile(args[1])
			if err != nil {
				return err
			}
			actions, err := splitActions(data)
			if err != nil {
				return err
			}

			svc, err := a.openDocument(ctx, args[0])
			if err != nil {
				return err
			}
			defer svc.Close()

			for i, raw := range actions {
				typ, err := svc.Apply(ctx, raw)
				if err != nil {
					return fmt.Errorf("action %d: %w", i, err)
				}
				slog.Debug("action applied", slog.Int("index", i), slog.String("type", string(typ)))
			}
			a.printLines(svc)
			if dryRun {
				return nil
			}
			dest := output
			if dest == "" {
				dest = args[0]
			}
			if err := svc.SaveFile(dest); err != nil {
				return err
			}
			a.out.Success(fmt.Sprintf("applied %d action(s), saved %s", len(actions), dest))
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the result here instead")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the result without saving")
	return cmd
}

// splitActions accepts a single JSON object or an array of them.
func splitActions(data []byte) ([]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, errors.New("no actions")
	}
	if trimmed[0] != '[' {
		return []json.RawMessage{trimmed}, nil
	}
	var list []json.RawMessage
	if err := json.Unmarshal(trimmed, &list); err != nil {
		return nil, fmt.Errorf("parse actions: %w", err)
	}
	return list, nil
}

// =============================================================================
// watch
// =============================================================================

func (a *app) watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch <document>",
		Short: "Re-render a document whenever it changes on disk",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.watch(ctx, args[0])
		},
	}
}

// watch renders path and reloads it on every change until ctx ends.
func (a *app) watch(ctx context.Context, path string) error {
	svc, err := a.openDocument(ctx, path)
	if err != nil {
		return err
	}
	defer svc.Close()
	a.out.Title(path)
	a.printLines(svc)

	w, err := watch.New(path, func(ctx context.Context, p string) {
		if err := svc.LoadFile(ctx, p); err != nil {
			a.out.Warning(fmt.Sprintf("reload failed: %v", err))
			return
		}
		a.out.Title(p)
		a.printLines(svc)
	}, nil)
	if err != nil {
		return err
	}
	if err := w.Start(ctx); err != nil {
		w.Stop()
		return err
	}
	defer w.Stop()

	a.out.Success("watching " + w.Path())
	a.out.Muted("Ctrl-C to stop")
	<-ctx.Done()
	return nil
}

// =============================================================================
// history
// =============================================================================

func (a *app) historyCmd() *cobra.Command {
	var full bool
	cmd := &cobra.Command{
		Use:   "history <document>",
		Short: "List the stored revisions of a document",
		Long: `Lists the revisions recorded for the document's ID. Revisions outlive
the process only with the badger history backend.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, err := a.openService(ctx)
			if err != nil {
				return err
			}
			defer svc.Close()

			doc, err := svc.ReadDocument(args[0])
			if err != nil {
				return err
			}
			revs, err := svc.RevisionsOf(ctx, doc.ID())
			if err != nil {
				return err
			}
			if len(revs) == 0 {
				a.out.Warning("no revisions recorded for " + doc.ID())
				return nil
			}
			for _, r := range revs {
				lines := svc.DocumentLines(r.Document)
				first := ""
				if len(lines) > 0 {
					first = lines[0]
				}
				a.out.Row(strconv.FormatUint(r.Number, 10), r.CreatedAt.Format("2006-01-02 15:04:05"), first)
				if full {
					for i, l := range lines {
						a.out.Line(i+1, l)
					}
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&full, "full", false, "Print every revision in full")
	return cmd
}

// =============================================================================
// serve
// =============================================================================

func (a *app) serveCmd() *cobra.Command {
	var (
		addr     string
		document string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the editor over HTTP and websocket",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr != "" {
				a.cfg.Server.Addr = addr
			}
			if !a.cfg.Server.Debug {
				gin.SetMode(gin.ReleaseMode)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			shutdown, err := telemetry.Init(ctx, a.cfg.Telemetry)
			if err != nil {
				return fmt.Errorf("init telemetry: %w", err)
			}
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					slog.Warn("telemetry shutdown failed", slog.String("error", err.Error()))
				}
			}()

			var svc *editor.Service
			err = a.out.WithSpinner("Opening editor", func() error {
				var err error
				if document != "" {
					svc, err = a.openDocument(ctx, document)
				} else {
					svc, err = a.openService(ctx)
				}
				return err
			})
			if err != nil {
				return err
			}
			defer svc.Close()

			a.out.Box("codewords", "listening on "+a.cfg.Server.Addr)
			return editor.Serve(ctx, svc)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address; overrides the config")
	cmd.Flags().StringVarP(&document, "document", "d", "", "Document to load at startup")
	return cmd
}
