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
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/codewords/pkg/logging"
	"github.com/AleutianAI/codewords/pkg/ux"
	"github.com/AleutianAI/codewords/services/editor"
)

// app holds what every command shares: flags, configuration, the logger
// and the output writer.
type app struct {
	stdout io.Writer
	stderr io.Writer

	configPath string
	logLevel   string
	jsonLogs   bool
	plain      bool

	cfg    editor.Config
	logger *logging.Logger
	out    *ux.Output
}

// newRootCmd builds the command tree writing to stdout and stderr.
func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:   "codewords",
		Short: "A structured code editor core",
		Long: `codewords edits programs as trees of blocks.

Documents are JSON or YAML files. Snippets from the palette are dropped on
the targets the engine computes for them, and every committed document is
kept as a revision.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
		PersistentPostRun: func(*cobra.Command, []string) { a.teardown() },
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "",
		"Path to a YAML or JSON config file")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "",
		"Log level (debug, info, warn, error); overrides the config")
	root.PersistentFlags().BoolVar(&a.jsonLogs, "json-logs", false,
		"Write logs as JSON")
	root.PersistentFlags().BoolVar(&a.plain, "plain", false,
		"Disable colour output")

	root.AddCommand(
		a.renderCmd(),
		a.suggestCmd(),
		a.editCmd(),
		a.applyCmd(),
		a.watchCmd(),
		a.historyCmd(),
		a.serveCmd(),
	)
	return root
}

// setup loads configuration and installs the logger.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := editor.LoadConfig(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		lvl, err := logging.ParseLevel(a.logLevel)
		if err != nil {
			return fmt.Errorf("--log-level: %w", err)
		}
		cfg.Logging.Level = lvl
	}
	if a.jsonLogs {
		cfg.Logging.JSON = true
	}
	a.cfg = cfg

	a.logger = logging.New(logging.Config{
		Level:   cfg.Logging.Level,
		LogDir:  cfg.Logging.Dir,
		Service: "codewords",
		JSON:    cfg.Logging.JSON,
		Writer:  a.stderr,
	})
	a.logger.SetDefault()

	a.out = ux.NewOutput(a.stdout)
	if a.plain {
		a.out.Color = false
	}
	return nil
}

func (a *app) teardown() {
	if a.logger != nil {
		_ = a.logger.Close()
	}
}

// openService creates an editor service from the loaded configuration.
func (a *app) openService(ctx context.Context) (*editor.Service, error) {
	return editor.NewService(ctx, a.cfg)
}

// openDocument creates a service and loads path into it.
func (a *app) openDocument(ctx context.Context, path string) (*editor.Service, error) {
	svc, err := a.openService(ctx)
	if err != nil {
		return nil, err
	}
	if err := svc.LoadFile(ctx, path); err != nil {
		_ = svc.Close()
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return svc, nil
}

// printLines writes the rendered document with a line gutter.
func (a *app) printLines(svc *editor.Service) {
	for i, line := range svc.Lines("  ", a.out.Styler()) {
		a.out.Line(i+1, line)
	}
}
