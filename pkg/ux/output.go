// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package ux renders editor output for terminals.
package ux

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

// Palette - deep ocean teals and arctic waters
var (
	ColorTealBright  = lipgloss.Color("#2CD7C7")
	ColorTealPrimary = lipgloss.Color("#20B9B4")
	ColorTealDeep    = lipgloss.Color("#16858E")
	ColorSlate       = lipgloss.Color("#2C4A54")
	ColorGold        = lipgloss.Color("#F4D03F")
	ColorCoral       = lipgloss.Color("#F08A5D")
	ColorError       = lipgloss.Color("#E74C3C")
	ColorFog         = lipgloss.Color("#8FA9B0")
)

// Styles provides pre-configured lipgloss styles.
var Styles = struct {
	Title   lipgloss.Style
	Muted   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Box     lipgloss.Style
}{
	Title:   lipgloss.NewStyle().Bold(true).Foreground(ColorTealBright),
	Muted:   lipgloss.NewStyle().Foreground(ColorSlate),
	Success: lipgloss.NewStyle().Foreground(ColorTealBright),
	Warning: lipgloss.NewStyle().Foreground(ColorGold),
	Error:   lipgloss.NewStyle().Foreground(ColorError),
	Box: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorTealDeep).
		Padding(0, 1),
}

// TokenStyles maps render style names to lipgloss styles.
var TokenStyles = map[string]lipgloss.Style{
	"keyword":     lipgloss.NewStyle().Bold(true).Foreground(ColorTealPrimary),
	"identifier":  lipgloss.NewStyle().Foreground(ColorFog),
	"declaration": lipgloss.NewStyle().Underline(true).Foreground(ColorTealBright),
	"number":      lipgloss.NewStyle().Foreground(ColorCoral),
	"punctuation": lipgloss.NewStyle().Foreground(ColorSlate),
	"placeholder": lipgloss.NewStyle().Italic(true).Foreground(ColorGold),
}

// TokenStyler colours tokens with TokenStyles. It implements the editor's
// render.Styler.
type TokenStyler struct {
	styles map[string]lipgloss.Style
}

// NewTokenStyler returns a styler using TokenStyles.
func NewTokenStyler() *TokenStyler {
	return &TokenStyler{styles: TokenStyles}
}

// Apply renders text in the style registered for style. Unknown styles
// pass text through.
func (s *TokenStyler) Apply(style, text string) string {
	st, ok := s.styles[style]
	if !ok {
		return text
	}
	return st.Render(text)
}

// PlainStyler leaves tokens as they are.
type PlainStyler struct{}

// Apply returns text unchanged.
func (PlainStyler) Apply(_, text string) string {
	return text
}

// BracketStyler marks tokens as [style:text], for logs and golden files.
type BracketStyler struct{}

// Apply wraps text in its style name.
func (BracketStyler) Apply(style, text string) string {
	return "[" + style + ":" + text + "]"
}

// IsTerminal reports whether f is an interactive terminal.
func IsTerminal(f *os.File) bool {
	if f == nil {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Output writes user-facing messages.
//
// With Color unset every method prints plain, tab-separated text that
// scripts can parse.
type Output struct {
	W     io.Writer
	Color bool
}

// NewOutput returns an Output on w, colouring when w is a terminal and
// NO_COLOR is unset.
func NewOutput(w io.Writer) *Output {
	color := false
	if f, ok := w.(*os.File); ok && os.Getenv("NO_COLOR") == "" {
		color = IsTerminal(f)
	}
	return &Output{W: w, Color: color}
}

// Styler decorates token text by style name.
type Styler interface {
	Apply(style, text string) string
}

// Styler returns the token styler matching o's colour mode.
func (o *Output) Styler() Styler {
	if o.Color {
		return NewTokenStyler()
	}
	return PlainStyler{}
}

// Title prints a heading.
func (o *Output) Title(text string) {
	if !o.Color {
		fmt.Fprintf(o.W, "# %s\n", text)
		return
	}
	fmt.Fprintln(o.W, Styles.Title.Render(text))
}

// Success prints a success line.
func (o *Output) Success(text string) {
	if !o.Color {
		fmt.Fprintf(o.W, "OK: %s\n", text)
		return
	}
	fmt.Fprintf(o.W, "%s %s\n", Styles.Success.Render("✓"), text)
}

// Warning prints a warning line.
func (o *Output) Warning(text string) {
	if !o.Color {
		fmt.Fprintf(o.W, "WARN: %s\n", text)
		return
	}
	fmt.Fprintf(o.W, "%s %s\n", Styles.Warning.Render("⚠"), Styles.Warning.Render(text))
}

// Error prints an error line.
func (o *Output) Error(text string) {
	if !o.Color {
		fmt.Fprintf(o.W, "ERROR: %s\n", text)
		return
	}
	fmt.Fprintf(o.W, "%s %s\n", Styles.Error.Render("✗"), Styles.Error.Render(text))
}

// Muted prints secondary text. Plain mode drops it.
func (o *Output) Muted(text string) {
	if !o.Color {
		return
	}
	fmt.Fprintln(o.W, Styles.Muted.Render(text))
}

// Line prints one rendered editor line with a gutter.
func (o *Output) Line(n int, text string) {
	gutter := fmt.Sprintf("%3d", n)
	if o.Color {
		gutter = Styles.Muted.Render(gutter + " │")
	} else {
		gutter += "\t"
	}
	fmt.Fprintf(o.W, "%s %s\n", gutter, text)
}

// Row prints tab-separated columns, or muted-separated ones in colour.
func (o *Output) Row(cols ...string) {
	if !o.Color {
		fmt.Fprintln(o.W, strings.Join(cols, "\t"))
		return
	}
	fmt.Fprintln(o.W, strings.Join(cols, Styles.Muted.Render("  ")))
}

// Box prints content in a rounded box.
func (o *Output) Box(title, content string) {
	if !o.Color {
		fmt.Fprintf(o.W, "%s: %s\n", title, content)
		return
	}
	fmt.Fprintln(o.W, Styles.Box.Render(Styles.Title.Render(title)+"\n"+content))
}
