// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ast

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// -----------------------------------------------------------------------------
// Wire Format
// -----------------------------------------------------------------------------

// ExpressionWire is the serialized form of an Expression.
//
// Fixed and dynamic expressions list their slots in render order so that
// generated slot names survive a round trip and paths stay stable.
type ExpressionWire struct {
	Type  string     `json:"type" yaml:"type"`
	Value string     `json:"value,omitempty" yaml:"value,omitempty"`
	Slots []SlotWire `json:"slots,omitempty" yaml:"slots,omitempty"`
}

// SlotWire is one named slot. A nil Expr is an empty fixed slot.
type SlotWire struct {
	Name string          `json:"name" yaml:"name"`
	Expr *ExpressionWire `json:"expr,omitempty" yaml:"expr,omitempty"`
}

// DocumentWire is the serialized form of a Document.
type DocumentWire struct {
	ID       string          `json:"id" yaml:"id"`
	Language string          `json:"language" yaml:"language"`
	Root     *ExpressionWire `json:"root" yaml:"root"`
}

// EditWire is the serialized form of an InsertionEdit.
type EditWire struct {
	Kind        string            `json:"kind" yaml:"kind"`
	Path        []string          `json:"path" yaml:"path"`
	Expressions []*ExpressionWire `json:"expressions" yaml:"expressions"`
	Priority    int               `json:"priority,omitempty" yaml:"priority,omitempty"`
}

// ToWire converts an expression tree to its wire form.
func ToWire(e *Expression) *ExpressionWire {
	if e == nil {
		return nil
	}
	w := &ExpressionWire{Type: e.typ.Name, Value: e.value}
	if len(e.slots) > 0 {
		w.Slots = make([]SlotWire, len(e.slots))
		for i, name := range e.slots {
			w.Slots[i] = SlotWire{Name: name, Expr: ToWire(e.children[name])}
		}
	}
	return w
}

// FromWire builds a draft expression tree in lang.
//
// Outputs:
//
//	*Expression - Draft tree; freeze it before publishing.
//	error - ErrUnknownType, ErrUnknownSlot, ErrInvalidSlotName.
func FromWire(lang *Language, w *ExpressionWire) (*Expression, error) {
	if w == nil {
		return nil, fmt.Errorf("decode expression: %w", ErrNilDocument)
	}
	e, err := lang.NewExpression(w.Type)
	if err != nil {
		return nil, err
	}
	switch e.typ.Kind {
	case KindLeaf:
		if len(w.Slots) > 0 {
			return nil, fmt.Errorf("decode %s: leaf has slots: %w", w.Type, ErrUnknownSlot)
		}
		e.value = w.Value
	case KindFixed:
		for _, s := range w.Slots {
			if !e.HasSlot(s.Name) {
				return nil, fmt.Errorf("decode %s.%s: %w", w.Type, s.Name, ErrUnknownSlot)
			}
			if s.Expr == nil {
				continue
			}
			child, err := FromWire(lang, s.Expr)
			if err != nil {
				return nil, err
			}
			e.children[s.Name] = child
		}
	case KindDynamic:
		for _, s := range w.Slots {
			if !ValidSlotName(s.Name) {
				return nil, fmt.Errorf("decode %s.%q: %w", w.Type, s.Name, ErrInvalidSlotName)
			}
			if _, dup := e.children[s.Name]; dup {
				return nil, fmt.Errorf("decode %s: duplicate slot %q: %w", w.Type, s.Name, ErrInvalidSlotName)
			}
			if s.Expr == nil {
				return nil, fmt.Errorf("decode %s.%s: %w", w.Type, s.Name, ErrUnfilledSlot)
			}
			child, err := FromWire(lang, s.Expr)
			if err != nil {
				return nil, err
			}
			e.slots = append(e.slots, s.Name)
			e.children[s.Name] = child
		}
	}
	return e, nil
}

// DocumentToWire converts a document to its wire form.
func DocumentToWire(d *Document) *DocumentWire {
	return &DocumentWire{
		ID:       d.id,
		Language: d.Language().Name(),
		Root:     ToWire(d.root),
	}
}

// DocumentFromWire rebuilds and freezes a document.
func DocumentFromWire(reg *Registry, w *DocumentWire) (*Document, error) {
	if w == nil || w.Root == nil {
		return nil, ErrNilDocument
	}
	lang, err := reg.Lookup(w.Language)
	if err != nil {
		return nil, err
	}
	root, err := FromWire(lang, w.Root)
	if err != nil {
		return nil, fmt.Errorf("decode document %s: %w", w.ID, err)
	}
	return NewDocumentWithID(w.ID, root)
}

// EditToWire converts an insertion edit to its wire form.
func EditToWire(e InsertionEdit) *EditWire {
	w := &EditWire{
		Kind:        e.Kind.String(),
		Path:        e.Path.Clone(),
		Expressions: make([]*ExpressionWire, len(e.Expressions)),
		Priority:    e.Priority,
	}
	for i, expr := range e.Expressions {
		w.Expressions[i] = ToWire(expr)
	}
	return w
}

// EditFromWire rebuilds an insertion edit whose expressions are in lang.
func EditFromWire(lang *Language, w *EditWire) (InsertionEdit, error) {
	kind, err := ParseEditKind(w.Kind)
	if err != nil {
		return InsertionEdit{}, err
	}
	edit := InsertionEdit{
		Kind:        kind,
		Path:        Path(w.Path).Clone(),
		Expressions: make([]*Expression, len(w.Expressions)),
		Priority:    w.Priority,
	}
	for i, ew := range w.Expressions {
		expr, err := FromWire(lang, ew)
		if err != nil {
			return InsertionEdit{}, fmt.Errorf("decode edit expression %d: %w", i, err)
		}
		edit.Expressions[i] = expr
	}
	return edit, nil
}

// -----------------------------------------------------------------------------
// JSON / YAML
// -----------------------------------------------------------------------------

// MarshalDocument encodes a document as JSON.
func MarshalDocument(d *Document) ([]byte, error) {
	return json.Marshal(DocumentToWire(d))
}

// UnmarshalDocument decodes a JSON document.
func UnmarshalDocument(data []byte, reg *Registry) (*Document, error) {
	var w DocumentWire
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("unmarshal document: %w", err)
	}
	return DocumentFromWire(reg, &w)
}

// UnmarshalDocumentYAML decodes a YAML document. The layout matches the JSON
// form, which makes hand-written fixture files practical.
func UnmarshalDocumentYAML(data []byte, reg *Registry) (*Document, error) {
	var w DocumentWire
	if err := yaml.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("unmarshal document yaml: %w", err)
	}
	if w.ID == "" {
		w.ID = NewDocumentID()
	}
	return DocumentFromWire(reg, &w)
}

// MarshalDocumentYAML encodes a document as YAML.
func MarshalDocumentYAML(d *Document) ([]byte, error) {
	return yaml.Marshal(DocumentToWire(d))
}
