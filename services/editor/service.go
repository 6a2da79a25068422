// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package editor wires the editor core into a service.
//
// A Service owns one Store, its history, the snippet engine and a drag
// controller. The HTTP handlers, the websocket session and the CLI all go
// through it:
//
//	svc, err := editor.NewService(ctx, editor.DefaultConfig())
//	if err != nil { ... }
//	defer svc.Close()
//	_ = svc.LoadFile(ctx, "main.cw.yaml")
//	suggestions, _ := svc.Suggestions(ctx, "let")
package editor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/singleflight"

	"github.com/AleutianAI/codewords/pkg/logging"
	"github.com/AleutianAI/codewords/services/editor/action"
	"github.com/AleutianAI/codewords/services/editor/ast"
	"github.com/AleutianAI/codewords/services/editor/drag"
	"github.com/AleutianAI/codewords/services/editor/history"
	"github.com/AleutianAI/codewords/services/editor/lang/blocks"
	"github.com/AleutianAI/codewords/services/editor/reducer"
	"github.com/AleutianAI/codewords/services/editor/render"
	"github.com/AleutianAI/codewords/services/editor/snippet"
	"github.com/AleutianAI/codewords/services/editor/snippet/search"
	"github.com/AleutianAI/codewords/services/editor/store"
)

// ServiceVersion is reported by the health endpoint.
const ServiceVersion = "0.1.0"

var tracer = otel.Tracer("codewords.editor")

// Sentinel errors for the editor service.
var (
	// ErrUnknownSnippet indicates a snippet ID not in the current palette.
	ErrUnknownSnippet = errors.New("unknown snippet")

	// ErrUnsupportedFormat indicates a document file extension the
	// service cannot read.
	ErrUnsupportedFormat = errors.New("unsupported document format")
)

// Selection is the expression last selected by a click.
type Selection struct {
	Line int      `json:"line"`
	Path ast.Path `json:"path"`
	Type string   `json:"type"`
}

// Service is one editing session.
//
// Thread Safety: safe for concurrent use.
type Service struct {
	config   Config
	registry *ast.Registry
	language *ast.Language
	catalog  *snippet.Catalog
	search   *search.Suggester
	engine   *snippet.Engine
	history  history.Store
	store    *store.Store
	drag     *drag.Controller
	decoder  *action.Decoder
	logger   *slog.Logger

	suggestions singleflight.Group

	mu        sync.Mutex
	selection *Selection
	closed    bool
}

// NewService builds a service from cfg.
//
// Description:
//
//	Opens the configured history backend, builds the reducer for the
//	configured language and installs the default suggest functions (the
//	language's catalog, its search parsers, and in-scope names for browsing)
//	and click handlers.
//
// Outputs:
//
//	*Service - Call Close when done.
//	error - Invalid configuration or history that cannot be opened.
func NewService(ctx context.Context, cfg Config) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	registry := ast.NewRegistry(blocks.Language())
	lang, err := registry.Lookup(cfg.Language)
	if err != nil {
		return nil, err
	}

	hist, err := openHistory(cfg.History, registry)
	if err != nil {
		return nil, err
	}

	engine := snippet.NewEngine(cfg.Engine)
	r := reducer.New(engine, map[string]render.LineBuilder{
		blocks.LanguageName: blocks.NewBuilder(),
	})
	var opts []store.Option
	if hist != nil {
		opts = append(opts, store.WithHistory(hist))
	}

	suggester := search.NewSuggester(blocks.SearchParsers(), &search.Options{
		ScoreScale:  search.DefaultScoreScale,
		TraceParses: cfg.Logging.Level == logging.LevelDebug,
	})

	s := &Service{
		config:   cfg,
		registry: registry,
		language: lang,
		catalog:  blocks.DefaultCatalog(),
		search:   suggester,
		engine:   engine,
		history:  hist,
		store:    store.New(r, opts...),
		logger:   slog.Default().With(slog.String("component", "editor")),
	}
	s.drag = drag.NewController(s.store)
	s.decoder = &action.Decoder{
		Registry:        registry,
		DefaultLanguage: lang.Name(),
		Snippets:        s.lookupSnippet,
	}

	if err := s.install(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

func openHistory(cfg HistoryConfig, reg *ast.Registry) (history.Store, error) {
	switch cfg.Backend {
	case HistoryNone:
		return nil, nil
	case HistoryBadger:
		bcfg := cfg.BadgerConfig()
		bcfg.Logger = slog.Default().With(slog.String("component", "badger"))
		st, err := history.OpenBadgerStore(bcfg, reg)
		if err != nil {
			return nil, fmt.Errorf("open history: %w", err)
		}
		return st, nil
	default:
		return history.NewMemoryStore(cfg.Limit), nil
	}
}

func (s *Service) install(ctx context.Context) error {
	handlers, err := action.NewAddExprClickHandlers(map[string]action.ClickHandler{
		blocks.HandlerSelect: action.NewClickHandler(s.handleSelect),
		blocks.HandlerRename: action.NewClickHandler(s.handleRename),
	})
	if err != nil {
		return err
	}
	return s.store.DispatchAll(ctx,
		action.NewSetSnippetSuggestFns(s.catalog, s.search, blocks.Names{BrowseOnly: true}),
		handlers,
	)
}

// handleSelect records the clicked expression and consumes the click.
func (s *Service) handleSelect(_ context.Context, ev action.ClickEvent) bool {
	sel := &Selection{Line: ev.Line, Path: ev.Path.Clone()}
	if ev.Expr != nil {
		sel.Type = ev.Expr.Type().Name
	}
	s.mu.Lock()
	s.selection = sel
	s.mu.Unlock()
	return true
}

// handleRename only logs and declines; renaming needs a text prompt the
// service does not have.
func (s *Service) handleRename(_ context.Context, ev action.ClickEvent) bool {
	s.logger.Debug("rename requested", slog.String("path", ev.Path.String()))
	return false
}

// lookupSnippet resolves palette IDs for the action decoder: the current
// palette first, then the catalog.
func (s *Service) lookupSnippet(id string) (snippet.Snippet, bool) {
	if sn, ok := s.store.State().Snippet(id); ok {
		return sn.Snippet, true
	}
	return s.catalog.Lookup(id)
}

// Config returns the configuration the service was built with.
func (s *Service) Config() Config { return s.config }

// Store returns the underlying store.
func (s *Service) Store() *store.Store { return s.store }

// Registry returns the languages the service understands.
func (s *Service) Registry() *ast.Registry { return s.registry }

// Decoder returns the wire action decoder.
func (s *Service) Decoder() *action.Decoder { return s.decoder }

// Drag returns the drag controller.
func (s *Service) Drag() *drag.Controller { return s.drag }

// State returns the current editor state.
func (s *Service) State() *reducer.EditorState { return s.store.State() }

// Selection returns the last clicked expression, or nil.
func (s *Service) Selection() *Selection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selection
}

// Load replaces the document.
func (s *Service) Load(ctx context.Context, doc *ast.Document) error {
	return s.store.Dispatch(ctx, action.NewSetDocument(doc))
}

// LoadFile reads a document from a .json, .yaml or .yml file and loads it.
func (s *Service) LoadFile(ctx context.Context, path string) error {
	doc, err := s.ReadDocument(path)
	if err != nil {
		return err
	}
	return s.Load(ctx, doc)
}

// ReadDocument parses a document file without loading it.
func (s *Service) ReadDocument(path string) (*ast.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return ast.UnmarshalDocument(data, s.registry)
	case ".yaml", ".yml":
		return ast.UnmarshalDocumentYAML(data, s.registry)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
}

// SaveFile writes the current document to path in the format its
// extension names.
func (s *Service) SaveFile(path string) error {
	doc := s.store.State().Document
	if doc == nil {
		return &reducer.NoDocumentError{Action: "save"}
	}
	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		data, err = ast.MarshalDocument(doc)
	case ".yaml", ".yml":
		data, err = ast.MarshalDocumentYAML(doc)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Apply decodes one wire action and dispatches it.
func (s *Service) Apply(ctx context.Context, data []byte) (action.Type, error) {
	a, err := s.decoder.Decode(data)
	if err != nil {
		return "", err
	}
	return a.Type(), s.store.Dispatch(ctx, a)
}

// Search sets the palette search text, keeping any predefined palette.
func (s *Service) Search(ctx context.Context, text string) error {
	return s.store.Dispatch(ctx, action.NewSetSnippetPaletteContents(text, s.store.State().Predefined))
}

// Suggestions ranks snippets for query against the current state without
// changing it.
//
// Description:
//
//	Uses the predefined palette when one is set, otherwise the registered
//	suggest functions with query as search text. Concurrent calls for the
//	same state generation and query share one computation.
//
// Outputs:
//
//	[]snippet.ScoredSnippetWithTargets - Ranked snippets, best first.
//	error - Only from a cancelled context.
func (s *Service) Suggestions(ctx context.Context, query string) ([]snippet.ScoredSnippetWithTargets, error) {
	ctx, span := tracer.Start(ctx, "editor.Service.Suggestions")
	defer span.End()

	st := s.store.State()
	key := fmt.Sprintf("%d\x00%s", st.Generation, query)
	span.SetAttributes(
		attribute.Int64("generation", int64(st.Generation)),
		attribute.String("query", query),
	)

	v, err, shared := s.suggestions.Do(key, func() (any, error) {
		sc := snippet.Context{
			Document:      st.Document,
			RenderedLines: st.RenderedLines,
			SearchText:    query,
			SuggestFns:    st.SuggestFns,
		}
		if st.Predefined != nil {
			return s.engine.Predefined(sc, st.Predefined), nil
		}
		return s.engine.Calculate(ctx, sc), nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	result, ok := v.([]snippet.ScoredSnippetWithTargets)
	if !ok {
		err := fmt.Errorf("unexpected type from suggestion group: got %T", v)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Bool("shared", shared), attribute.Int("count", len(result)))

	out := make([]snippet.ScoredSnippetWithTargets, len(result))
	for i := range result {
		out[i] = result[i].Clone()
	}
	return out, nil
}

// Drop drags the snippet with snippetID onto targetID and releases it.
//
// Description:
//
//	Looks the snippet up among the suggestions for query and drives the
//	drag controller through start, hover and end, so the document
//	receives exactly one APPLY_EDIT before the drag is cleared.
//
// Outputs:
//
//	bool - True when the edit was applied.
//	error - ErrUnknownSnippet, drag.ErrUnknownTarget or a dispatch error.
func (s *Service) Drop(ctx context.Context, query, snippetID, targetID string) (bool, error) {
	ctx, span := tracer.Start(ctx, "editor.Service.Drop")
	defer span.End()
	span.SetAttributes(attribute.String("snippet", snippetID), attribute.String("target", targetID))

	applied, err := s.drop(ctx, query, snippetID, targetID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return applied, err
}

func (s *Service) drop(ctx context.Context, query, snippetID, targetID string) (bool, error) {
	candidates, err := s.Suggestions(ctx, query)
	if err != nil {
		return false, err
	}
	var chosen *snippet.ScoredSnippetWithTargets
	for i := range candidates {
		if candidates[i].Snippet.ID() == snippetID {
			chosen = &candidates[i]
			break
		}
	}
	if chosen == nil {
		return false, fmt.Errorf("%w: %s", ErrUnknownSnippet, snippetID)
	}

	if err := s.drag.Start(ctx, *chosen, drag.Geometry{Precise: true}, drag.Layout{}); err != nil {
		return false, err
	}
	if _, err := s.drag.Hover(ctx, targetID); err != nil {
		return false, errors.Join(err, s.drag.Cancel(ctx))
	}
	return s.drag.End(ctx)
}

// Click routes a click to the handlers of the span under it.
func (s *Service) Click(ctx context.Context, line, column int) (bool, error) {
	return s.store.Click(ctx, line, column)
}

// Undo restores the previous revision of the document.
func (s *Service) Undo(ctx context.Context) (bool, error) {
	return s.store.Undo(ctx)
}

// Revisions lists the stored revisions of the current document.
func (s *Service) Revisions(ctx context.Context) ([]history.Revision, error) {
	if s.history == nil {
		return nil, store.ErrNoHistory
	}
	doc := s.store.State().Document
	if doc == nil {
		return nil, &reducer.NoDocumentError{Action: "history"}
	}
	return s.history.List(ctx, doc.ID())
}

// RevisionsOf lists the stored revisions of any document ID, loaded or not.
func (s *Service) RevisionsOf(ctx context.Context, docID string) ([]history.Revision, error) {
	if s.history == nil {
		return nil, store.ErrNoHistory
	}
	return s.history.List(ctx, docID)
}

// Lines returns the current document as indented text lines, with tokens
// passed through st when it is non-nil.
func (s *Service) Lines(indent string, st render.Styler) []string {
	lines := s.store.State().RenderedLines
	out := make([]string, len(lines))
	for i, l := range lines {
		if st != nil {
			out[i] = l.Format(indent, st)
		} else {
			out[i] = l.Text(indent)
		}
	}
	return out
}

// Close releases the history backend. Safe to call more than once.
func (s *Service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if s.history != nil {
		return s.history.Close()
	}
	return nil
}

// DocumentLines renders any document of a known language as plain text.
// Documents without a line builder render as nothing.
func (s *Service) DocumentLines(doc *ast.Document) []string {
	if doc == nil {
		return nil
	}
	b, ok := s.store.Reducer().Builder(doc.Language())
	if !ok {
		return nil
	}
	_, lines, err := render.RenderDocument(doc, b)
	if err != nil {
		s.logger.Warn("render revision failed", slog.String("error", err.Error()))
		return nil
	}
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = l.Text("  ")
	}
	return out
}
