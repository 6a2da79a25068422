// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ux

import (
	"bytes"
	"os"
	"strings"
	"testing"
)

func TestTokenStyler_KnownAndUnknownStyles(t *testing.T) {
	s := NewTokenStyler()
	if got := s.Apply("unknown-style", "x"); got != "x" {
		t.Errorf("unknown style should pass through, got %q", got)
	}
	if got := s.Apply("keyword", "let"); !strings.Contains(got, "let") {
		t.Errorf("styled output %q lost its text", got)
	}
	for _, name := range []string{"keyword", "identifier", "declaration", "number", "punctuation", "placeholder"} {
		if _, ok := TokenStyles[name]; !ok {
			t.Errorf("no style for %q", name)
		}
	}
}

func TestPlainAndBracketStylers(t *testing.T) {
	if got := (PlainStyler{}).Apply("number", "1"); got != "1" {
		t.Errorf("PlainStyler = %q", got)
	}
	if got := (BracketStyler{}).Apply("number", "1"); got != "[number:1]" {
		t.Errorf("BracketStyler = %q", got)
	}
}

func TestIsTerminal(t *testing.T) {
	if IsTerminal(nil) {
		t.Error("nil file is not a terminal")
	}
	f, err := os.CreateTemp(t.TempDir(), "out")
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if IsTerminal(f) {
		t.Error("regular file is not a terminal")
	}
}

func TestNewOutput_NonFileIsPlain(t *testing.T) {
	var buf bytes.Buffer
	o := NewOutput(&buf)
	if o.Color {
		t.Error("buffer output should not be coloured")
	}
	if _, ok := o.Styler().(PlainStyler); !ok {
		t.Errorf("plain output should use PlainStyler, got %T", o.Styler())
	}
}

func TestOutput_PlainMessages(t *testing.T) {
	var buf bytes.Buffer
	o := &Output{W: &buf}

	o.Title("doc")
	o.Success("saved")
	o.Warning("slow")
	o.Error("broken")
	o.Muted("hidden in plain mode")
	o.Line(1, "let x = 1")
	o.Row("a", "b")
	o.Box("k", "v")

	want := "# doc\nOK: saved\nWARN: slow\nERROR: broken\n  1\t let x = 1\na\tb\nk: v\n"
	if buf.String() != want {
		t.Errorf("output =\n%q\nwant\n%q", buf.String(), want)
	}
}

func TestOutput_ColorMessagesKeepText(t *testing.T) {
	var buf bytes.Buffer
	o := &Output{W: &buf, Color: true}
	o.Success("saved")
	o.Line(2, "x")
	o.Muted("shown")
	for _, want := range []string{"saved", "x", "shown"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("output %q missing %q", buf.String(), want)
		}
	}
	if _, ok := o.Styler().(*TokenStyler); !ok {
		t.Errorf("colour output should use TokenStyler, got %T", o.Styler())
	}
}
