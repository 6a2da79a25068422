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
	"fmt"
	"regexp"
	"slices"
)

// slotNamePattern is the alphabet for every slot name, fixed or generated.
var slotNamePattern = regexp.MustCompile(`^[0-9A-Za-z_]+$`)

// ValidSlotName reports whether name may be used as a slot name.
func ValidSlotName(name string) bool {
	return slotNamePattern.MatchString(name)
}

// -----------------------------------------------------------------------------
// Kind
// -----------------------------------------------------------------------------

// Kind selects how an ExpressionType stores its children.
type Kind int

const (
	// KindLeaf expressions have no children and carry a Value.
	KindLeaf Kind = iota

	// KindFixed expressions have the named slots declared by their type.
	KindFixed

	// KindDynamic expressions have an ordered, resizable list of slots.
	KindDynamic
)

// String returns "leaf", "fixed", "dynamic" or "unknown".
func (k Kind) String() string {
	switch k {
	case KindLeaf:
		return "leaf"
	case KindFixed:
		return "fixed"
	case KindDynamic:
		return "dynamic"
	default:
		return "unknown"
	}
}

// -----------------------------------------------------------------------------
// ExpressionType
// -----------------------------------------------------------------------------

// SlotSpec declares one named slot of a fixed ExpressionType.
type SlotSpec struct {
	// Name is the slot name. Must match [0-9A-Za-z_]+.
	Name string

	// Accepts lists the categories of expression this slot may hold.
	// An empty list accepts any category.
	Accepts []string
}

// ExpressionType identifies a node kind and how it may be composed.
//
// Types are declared as values and registered with NewLanguage, which
// validates them and binds them to the language. A type must not be shared
// between languages.
type ExpressionType struct {
	// Name is unique within the language.
	Name string

	// Kind is the child storage strategy.
	Kind Kind

	// Category groups types for slot compatibility ("statement",
	// "expression", ...).
	Category string

	// Slots declares the slots of a KindFixed type, in render order.
	Slots []SlotSpec

	// ChildAccepts lists the categories a KindDynamic type accepts.
	// An empty list accepts any category.
	ChildAccepts []string

	// IntroducesScope marks types that open a new declaration scope.
	IntroducesScope bool

	// DeclaresSlot names the slot whose leaf Value is declared in the
	// enclosing scope. Empty means the type declares nothing.
	DeclaresSlot string

	language *Language
}

// Language returns the language the type is registered with, or nil.
func (t *ExpressionType) Language() *Language {
	return t.language
}

// SlotNames returns the declared slot names of a fixed type in render order.
func (t *ExpressionType) SlotNames() []string {
	names := make([]string, len(t.Slots))
	for i, s := range t.Slots {
		names[i] = s.Name
	}
	return names
}

// slotSpec finds a declared slot by name.
func (t *ExpressionType) slotSpec(name string) (SlotSpec, bool) {
	for _, s := range t.Slots {
		if s.Name == name {
			return s, true
		}
	}
	return SlotSpec{}, false
}

// Accepts reports whether child may be placed in the named slot of an
// expression of this type. For dynamic types the slot name is ignored.
func (t *ExpressionType) Accepts(slot string, child *ExpressionType) bool {
	if child == nil {
		return false
	}
	switch t.Kind {
	case KindDynamic:
		return acceptsCategory(t.ChildAccepts, child.Category)
	case KindFixed:
		spec, ok := t.slotSpec(slot)
		return ok && acceptsCategory(spec.Accepts, child.Category)
	default:
		return false
	}
}

func acceptsCategory(accepts []string, category string) bool {
	return len(accepts) == 0 || slices.Contains(accepts, category)
}

// New creates a draft Expression of this type.
//
// Fixed slots start empty. Dynamic types start with no slots.
func (t *ExpressionType) New() *Expression {
	e := &Expression{typ: t}
	if t.Kind == KindFixed {
		e.slots = t.SlotNames()
		e.children = make(map[string]*Expression, len(t.Slots))
	} else if t.Kind == KindDynamic {
		e.children = make(map[string]*Expression)
	}
	return e
}

// NewLeaf creates a draft leaf Expression carrying value.
func (t *ExpressionType) NewLeaf(value string) *Expression {
	e := t.New()
	e.value = value
	return e
}

func (t *ExpressionType) validate() error {
	if t.Name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidType)
	}
	switch t.Kind {
	case KindLeaf:
		if len(t.Slots) > 0 {
			return fmt.Errorf("%w: leaf type %s declares slots", ErrInvalidType, t.Name)
		}
	case KindFixed:
		if len(t.Slots) == 0 {
			return fmt.Errorf("%w: fixed type %s has no slots", ErrInvalidType, t.Name)
		}
		seen := make(map[string]struct{}, len(t.Slots))
		for _, s := range t.Slots {
			if !ValidSlotName(s.Name) {
				return fmt.Errorf("%w: type %s slot %q: %w", ErrInvalidType, t.Name, s.Name, ErrInvalidSlotName)
			}
			if _, dup := seen[s.Name]; dup {
				return fmt.Errorf("%w: type %s duplicate slot %q", ErrInvalidType, t.Name, s.Name)
			}
			seen[s.Name] = struct{}{}
		}
	case KindDynamic:
		if len(t.Slots) > 0 {
			return fmt.Errorf("%w: dynamic type %s declares fixed slots", ErrInvalidType, t.Name)
		}
	default:
		return fmt.Errorf("%w: type %s has unknown kind %d", ErrInvalidType, t.Name, t.Kind)
	}
	if t.DeclaresSlot != "" {
		if _, ok := t.slotSpec(t.DeclaresSlot); !ok {
			return fmt.Errorf("%w: type %s declares through missing slot %q", ErrInvalidType, t.Name, t.DeclaresSlot)
		}
	}
	return nil
}

// -----------------------------------------------------------------------------
// Language
// -----------------------------------------------------------------------------

// Language is a named set of ExpressionTypes.
//
// Thread Safety: immutable after NewLanguage returns.
type Language struct {
	name  string
	types map[string]*ExpressionType
	order []string
}

// NewLanguage validates and registers the given types.
//
// Inputs:
//
//	name - Language name, unique within a Registry.
//	types - Type definitions. Each is bound to the new language.
//
// Outputs:
//
//	*Language - The language.
//	error - ErrInvalidType for malformed or duplicate types.
func NewLanguage(name string, types ...*ExpressionType) (*Language, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: language name is empty", ErrInvalidType)
	}
	l := &Language{
		name:  name,
		types: make(map[string]*ExpressionType, len(types)),
		order: make([]string, 0, len(types)),
	}
	for _, t := range types {
		if t == nil {
			return nil, fmt.Errorf("%w: nil type in language %s", ErrInvalidType, name)
		}
		if err := t.validate(); err != nil {
			return nil, err
		}
		if _, dup := l.types[t.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate type %s in language %s", ErrInvalidType, t.Name, name)
		}
		if t.language != nil && t.language.name != name {
			return nil, fmt.Errorf("%w: type %s already belongs to %s", ErrInvalidType, t.Name, t.language.name)
		}
		t.language = l
		l.types[t.Name] = t
		l.order = append(l.order, t.Name)
	}
	return l, nil
}

// Name returns the language name.
func (l *Language) Name() string {
	return l.name
}

// Type looks up a type by name.
func (l *Language) Type(name string) (*ExpressionType, bool) {
	t, ok := l.types[name]
	return t, ok
}

// Types returns the registered types in registration order.
func (l *Language) Types() []*ExpressionType {
	out := make([]*ExpressionType, len(l.order))
	for i, name := range l.order {
		out[i] = l.types[name]
	}
	return out
}

// NewExpression creates a draft Expression of the named type.
func (l *Language) NewExpression(typeName string) (*Expression, error) {
	t, ok := l.types[typeName]
	if !ok {
		return nil, fmt.Errorf("%w: %s in language %s", ErrUnknownType, typeName, l.name)
	}
	return t.New(), nil
}

// Registry maps language names to Languages.
type Registry struct {
	languages map[string]*Language
}

// NewRegistry creates a registry holding the given languages.
func NewRegistry(languages ...*Language) *Registry {
	r := &Registry{languages: make(map[string]*Language, len(languages))}
	for _, l := range languages {
		r.languages[l.name] = l
	}
	return r
}

// Lookup returns the language registered under name.
func (r *Registry) Lookup(name string) (*Language, error) {
	l, ok := r.languages[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownLanguage, name)
	}
	return l, nil
}
