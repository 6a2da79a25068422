// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package blocks

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/AleutianAI/codewords/services/editor/ast"
	"github.com/AleutianAI/codewords/services/editor/snippet/search"
)

// Parser scores, before the suggester's scale is applied.
const (
	NumberScore      = 1000.0
	IdentifierScore  = 200.0
	PunctuationBonus = 10.0
)

// SearchParsers returns the parsers installed by the editor service, in
// the order their snippets are offered.
func SearchParsers() []search.Parser {
	return []search.Parser{&NumberParser{}, &IdentifierParser{}, &CallParser{}}
}

// numberState is where a NumberParser stopped.
type numberState int

const (
	numNoMatch numberState = iota
	numEmpty
	numSign
	numPoint
	numZero
	numInteger
	numFloat
	numInfinity
	numNaN
)

type numberParse struct {
	state numberState
	sign  byte
}

// NumberParser reads decimal literals: an optional sign, digits, and an
// optional fraction. "Infinity" and "NaN" are accepted when enabled.
type NumberParser struct {
	AllowInfinity bool
	AllowNaN      bool
}

// Name implements search.Parser.
func (p *NumberParser) Name() string {
	return "number"
}

// AttemptParse implements search.Parser.
func (p *NumberParser) AttemptParse(_ context.Context, sc *search.Context, start int, prev *search.PendingParse) ([]*search.PendingParse, error) {
	if !sc.Allows(numberType) {
		return nil, nil
	}
	resumed, err := search.ValidatePrev(sc, start, prev)
	if err != nil {
		return nil, err
	}
	st := numberParse{state: numEmpty}
	n := 0
	if resumed {
		s, ok := prev.State.(numberParse)
		if !ok {
			return nil, fmt.Errorf("number state %T: %w", prev.State, search.ErrForeignParse)
		}
		st, n = s, prev.End-prev.Start
	}

	input := sc.SearchText
loop:
	for ; start+n < len(input); n++ {
		c := input[start+n]
		switch st.state {
		case numEmpty:
			switch {
			case c == '-' || c == '+':
				st.state, st.sign = numSign, c
			case c == '0':
				st.state = numZero
			case c == '.':
				st.state = numPoint
			case isDigit(c):
				st.state = numInteger
			case p.AllowInfinity && (c == 'i' || c == 'I'):
				st.state = numInfinity
			case p.AllowNaN && (c == 'n' || c == 'N'):
				st.state = numNaN
			default:
				st.state = numNoMatch
				break loop
			}
		case numSign:
			switch {
			case c == '.':
				st.state = numPoint
			case isDigit(c):
				st.state = numInteger
			case p.AllowInfinity && (c == 'i' || c == 'I'):
				st.state = numInfinity
			default:
				st.state = numNoMatch
				break loop
			}
		case numZero, numInteger:
			switch {
			case c == '.':
				st.state = numFloat
			case isDigit(c):
				st.state = numInteger
			default:
				break loop
			}
		case numPoint:
			if !isDigit(c) {
				st.state = numNoMatch
				break loop
			}
			st.state = numFloat
		case numFloat:
			if !isDigit(c) {
				break loop
			}
		case numInfinity:
			if !p.wordContinues(st, "infinity", n, c) {
				if isWordChar(c) {
					st.state = numNoMatch
				}
				break loop
			}
		case numNaN:
			if !p.wordContinues(st, "nan", n, c) {
				if isWordChar(c) {
					st.state = numNoMatch
				}
				break loop
			}
		default:
			return nil, fmt.Errorf("number parser in state %d", st.state)
		}
	}

	end := start + n
	parse := &search.PendingParse{
		Parser:      p,
		Input:       input,
		Start:       start,
		End:         end,
		State:       st,
		MayContinue: end == len(input),
	}
	switch st.state {
	case numNoMatch:
		return nil, nil
	case numEmpty, numSign, numPoint:
		return []*search.PendingParse{parse}, nil
	case numZero, numInteger, numFloat:
		parse.Score = NumberScore
		setNumber(parse, input[start:end])
	case numInfinity:
		code := "Infinity"
		if st.sign != 0 {
			code = string(st.sign) + code
		}
		// Grows from 1 on the first letter to NumberScore on the last.
		matched := n
		if st.sign != 0 {
			matched--
		}
		parse.Score = (NumberScore-1)*float64(matched-1)/float64(len("infinity")-1) + 1
		parse.MayContinue = parse.MayContinue && matched < len("infinity")
		setNumber(parse, code)
	case numNaN:
		parse.MayContinue = parse.MayContinue && n < len("nan")
		if n == len("nan") {
			parse.Score = NumberScore
			setNumber(parse, "NaN")
		}
	}
	return []*search.PendingParse{parse}, nil
}

// wordContinues reports whether c is the next letter of word.
func (p *NumberParser) wordContinues(st numberParse, word string, n int, c byte) bool {
	i := n
	if st.sign != 0 {
		i--
	}
	return i < len(word) && unicode.ToLower(rune(c)) == rune(word[i])
}

func setNumber(parse *search.PendingParse, code string) {
	parse.Expr = Num(code)
	parse.Snippet = NewTemplate("number:"+code, parse.Expr)
}

// identifierParse is one candidate name matched from the start of the
// parse.
type identifierParse struct {
	name    string
	matched int
}

// IdentifierParser matches the search text against the names declared in
// the visible scopes, case-insensitively. A name matches while the text is
// a prefix of it, and a fully matched name ends the parse at the first
// character after it. Each matched character is worth IdentifierScore
// divided by the name's length.
type IdentifierParser struct{}

// Name implements search.Parser.
func (p *IdentifierParser) Name() string {
	return "identifier"
}

// AttemptParse implements search.Parser.
func (p *IdentifierParser) AttemptParse(_ context.Context, sc *search.Context, start int, prev *search.PendingParse) ([]*search.PendingParse, error) {
	if !sc.Allows(identifierType) || sc.Document == nil {
		return nil, nil
	}
	resumed, err := search.ValidatePrev(sc, start, prev)
	if err != nil {
		return nil, err
	}

	var candidates []identifierParse
	if resumed {
		s, ok := prev.State.(identifierParse)
		if !ok {
			return nil, fmt.Errorf("identifier state %T: %w", prev.State, search.ErrForeignParse)
		}
		candidates = []identifierParse{s}
	} else {
		if start >= len(sc.SearchText) || !isIdentifierStart(sc.SearchText[start]) {
			return nil, nil
		}
		for _, name := range visibleNames(sc) {
			candidates = append(candidates, identifierParse{name: name})
		}
	}

	input := sc.SearchText
	var out []*search.PendingParse
	for _, cand := range candidates {
		for cand.matched < len(cand.name) && start+cand.matched < len(input) &&
			strings.EqualFold(input[start+cand.matched:start+cand.matched+1], cand.name[cand.matched:cand.matched+1]) {
			cand.matched++
		}
		end := start + cand.matched
		if cand.matched == 0 || (cand.matched < len(cand.name) && end < len(input)) {
			continue
		}
		expr := Ident(cand.name)
		out = append(out, &search.PendingParse{
			Parser:      p,
			Input:       input,
			Start:       start,
			End:         end,
			Score:       IdentifierScore * float64(cand.matched) / float64(len(cand.name)),
			MayContinue: end == len(input),
			Expr:        expr,
			Snippet:     NewTemplate("ident:"+cand.name, expr),
			State:       cand,
		})
	}
	return out, nil
}

// visibleNames lists the names declared in sc.Scopes without repeats, in
// scope then declaration order.
func visibleNames(sc *search.Context) []string {
	scopes := sc.Document.Scopes()
	seen := make(map[string]struct{})
	var out []string
	for _, id := range sc.Scopes {
		s, err := scopes.Scope(id)
		if err != nil {
			continue
		}
		for _, name := range s.Names() {
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			out = append(out, name)
		}
	}
	return out
}

// CallParser reads "callee(arg)". The callee and the argument are both
// delegated: the callee must parse as an Identifier, the argument as any
// expression. The closing parenthesis is optional, and "callee(" alone
// offers the call with an empty argument.
type CallParser struct{}

// Name implements search.Parser.
func (p *CallParser) Name() string {
	return "call"
}

// AttemptParse implements search.Parser.
//
// Every parse a CallParser returns itself is final; continuation happens
// through the delegated parses it returns alongside.
func (p *CallParser) AttemptParse(ctx context.Context, sc *search.Context, start int, prev *search.PendingParse) ([]*search.PendingParse, error) {
	if !sc.Allows(callType) || sc.Document == nil {
		return nil, nil
	}
	if _, err := search.ValidatePrev(sc, start, prev); err != nil {
		return nil, err
	}
	callee := &search.Constraint{AllowType: func(t *ast.ExpressionType) bool { return t == identifierType }}
	return sc.Delegate(ctx, callee, start, func(ctx context.Context, sc *search.Context, callStart int, fn *search.PendingParse) ([]*search.PendingParse, error) {
		return p.afterCallee(ctx, sc, callStart, fn)
	})
}

// afterCallee expects "(" after the callee, then delegates the argument.
func (p *CallParser) afterCallee(ctx context.Context, sc *search.Context, start int, fn *search.PendingParse) ([]*search.PendingParse, error) {
	input := sc.SearchText
	pos := skipSpaces(input, fn.End)
	if pos == len(input) || input[pos] != '(' {
		return nil, nil
	}
	pos++
	score := fn.Score + PunctuationBonus

	empty := p.call(input, start, pos, score, fn.Expr, nil)
	out := []*search.PendingParse{empty}
	pos = skipSpaces(input, pos)
	if pos < len(input) && input[pos] == ')' {
		empty.End = pos + 1
		empty.Score += PunctuationBonus
		return out, nil
	}

	argOnly := &search.Constraint{AllowType: func(t *ast.ExpressionType) bool { return t.Category == CategoryExpression }}
	args, err := sc.Delegate(ctx, argOnly, pos, func(_ context.Context, sc *search.Context, _ int, arg *search.PendingParse) ([]*search.PendingParse, error) {
		end := skipSpaces(sc.SearchText, arg.End)
		total := score + arg.Score
		switch {
		case end == len(sc.SearchText):
			return []*search.PendingParse{p.call(sc.SearchText, start, end, total, fn.Expr, arg.Expr)}, nil
		case sc.SearchText[end] == ')':
			return []*search.PendingParse{p.call(sc.SearchText, start, end+1, total+PunctuationBonus, fn.Expr, arg.Expr)}, nil
		default:
			return nil, nil
		}
	})
	if err != nil {
		return nil, err
	}
	return append(out, args...), nil
}

func (p *CallParser) call(input string, start, end int, score float64, callee, arg *ast.Expression) *search.PendingParse {
	expr := NewCall(callee, arg)
	return &search.PendingParse{
		Parser:  p,
		Input:   input,
		Start:   start,
		End:     end,
		Score:   score,
		Expr:    expr,
		Snippet: NewTemplate("call:"+DisplaySpan(expr).Text(), expr),
	}
}

func skipSpaces(s string, i int) int {
	for i < len(s) && s[i] == ' ' {
		i++
	}
	return i
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isWordChar(c byte) bool {
	return c == '_' || isDigit(c) || unicode.IsLetter(rune(c))
}

func isIdentifierStart(c byte) bool {
	return c == '_' || c == '$' || unicode.IsLetter(rune(c))
}
