// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package action

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/AleutianAI/codewords/services/editor/ast"
	"github.com/AleutianAI/codewords/services/editor/snippet"
)

var (
	// ErrMissingType indicates a wire action without a "type" field.
	ErrMissingType = errors.New("action has no type")

	// ErrNotWireEncodable indicates an action that carries code (handlers,
	// suggest functions, drag state) and has no wire form.
	ErrNotWireEncodable = errors.New("action has no wire form")

	// ErrUnknownSnippet indicates a predefined snippet ID the decoder could
	// not resolve.
	ErrUnknownSnippet = errors.New("unknown snippet")
)

// Envelope is the wire form of an action.
//
// Predefined is tri-state like the action field: absent or null decodes to
// "no fixed palette", an empty array to an empty fixed palette.
type Envelope struct {
	Type       Type              `json:"type"`
	Document   *ast.DocumentWire `json:"document,omitempty"`
	Language   string            `json:"language,omitempty"`
	Edit       *ast.EditWire     `json:"edit,omitempty"`
	SearchText string            `json:"search_text,omitempty"`
	Predefined []string          `json:"predefined"`
	Clear      bool              `json:"clear,omitempty"`
}

// SnippetResolver looks up a snippet by ID.
type SnippetResolver func(id string) (snippet.Snippet, bool)

// Decoder turns wire actions into Actions.
type Decoder struct {
	// Registry resolves document and edit languages.
	Registry *ast.Registry

	// DefaultLanguage is used for edits that name no language.
	DefaultLanguage string

	// Snippets resolves predefined palette entries. Nil rejects any
	// non-empty palette.
	Snippets SnippetResolver
}

// Decode parses one JSON action.
//
// Description:
//
//	SET_DOCUMENT, APPLY_EDIT and SET_SNIPPET_PALETTE_CONTENTS have wire
//	forms. The other known types carry code and fail with
//	ErrNotWireEncodable. Any other type decodes to Unknown with the raw
//	payload, which the reducer ignores.
func (d *Decoder) Decode(data []byte) (Action, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode action: %w", err)
	}
	if env.Type == "" {
		return nil, ErrMissingType
	}
	switch env.Type {
	case TypeSetDocument:
		if env.Clear {
			return SetDocument{}, nil
		}
		doc, err := ast.DocumentFromWire(d.Registry, env.Document)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", env.Type, err)
		}
		return NewSetDocument(doc), nil

	case TypeApplyEdit:
		if env.Edit == nil {
			return nil, fmt.Errorf("decode %s: %w", env.Type, ErrEmptyEdit)
		}
		name := env.Language
		if name == "" {
			name = d.DefaultLanguage
		}
		lang, err := d.Registry.Lookup(name)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", env.Type, err)
		}
		edit, err := ast.EditFromWire(lang, env.Edit)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", env.Type, err)
		}
		return NewApplyEdit(edit)

	case TypeSetSnippetPaletteContents:
		list, err := d.predefined(env.Predefined)
		if err != nil {
			return nil, err
		}
		return NewSetSnippetPaletteContents(env.SearchText, list), nil

	case TypeAddExprClickHandlers, TypeSetSnippetSuggestFns, TypeSnippetDragUpdate:
		return nil, fmt.Errorf("decode %s: %w", env.Type, ErrNotWireEncodable)

	default:
		return Unknown{Name: string(env.Type), Payload: json.RawMessage(data)}, nil
	}
}

func (d *Decoder) predefined(ids []string) (*snippet.PredefinedList, error) {
	if ids == nil {
		return nil, nil
	}
	list := &snippet.PredefinedList{Snippets: make([]snippet.ScoredSnippetWithTargets, 0, len(ids))}
	for _, id := range ids {
		var s snippet.Snippet
		ok := false
		if d.Snippets != nil {
			s, ok = d.Snippets(id)
		}
		if !ok {
			return nil, fmt.Errorf("decode palette: %w: %q", ErrUnknownSnippet, id)
		}
		list.Snippets = append(list.Snippets, snippet.ScoredSnippetWithTargets{
			ScoredSnippet: snippet.ScoredSnippet{Snippet: s},
		})
	}
	return list, nil
}

// Encode returns the JSON wire form of a.
func Encode(a Action) ([]byte, error) {
	env := Envelope{Type: a.Type()}
	switch a := a.(type) {
	case SetDocument:
		if a.Document == nil {
			env.Clear = true
		} else {
			env.Document = ast.DocumentToWire(a.Document)
		}
	case ApplyEdit:
		env.Edit = ast.EditToWire(a.Edit)
		if len(a.Edit.Expressions) > 0 && a.Edit.Expressions[0].Language() != nil {
			env.Language = a.Edit.Expressions[0].Language().Name()
		}
	case SetSnippetPaletteContents:
		env.SearchText = a.SearchText
		if a.Predefined != nil {
			env.Predefined = make([]string, 0, len(a.Predefined.Snippets))
			for _, s := range a.Predefined.Snippets {
				env.Predefined = append(env.Predefined, s.Snippet.ID())
			}
		}
	case Unknown:
		if len(a.Payload) > 0 {
			return a.Payload, nil
		}
	default:
		return nil, fmt.Errorf("encode %s: %w", a.Type(), ErrNotWireEncodable)
	}
	return json.Marshal(env)
}
