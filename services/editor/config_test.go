// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package editor

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/codewords/pkg/logging"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestDefaultConfig_IsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "blocks", cfg.Language)
	assert.Equal(t, HistoryMemory, cfg.History.Backend)
	assert.Equal(t, ":8090", cfg.Server.Addr)
	assert.Equal(t, logging.LevelInfo, cfg.Logging.Level)
}

func TestLoadConfig_MissingFileKeepsDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Server, cfg.Server)

	cfg, err = LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().History, cfg.History)
}

func TestLoadConfig_YAML(t *testing.T) {
	path := writeFile(t, "codewords.yaml", `
engine:
  max_snippets: 3
  parallel: true
history:
  backend: badger
  path: /tmp/codewords-history
  limit: 10
  gc_interval: 1m
server:
  addr: ":9999"
  burst: 5
logging:
  level: debug
  json: true
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Engine.MaxSnippets)
	assert.True(t, cfg.Engine.Parallel)
	assert.Equal(t, HistoryBadger, cfg.History.Backend)
	assert.Equal(t, 10, cfg.History.Limit)
	assert.Equal(t, time.Minute, cfg.History.GCInterval)
	assert.Equal(t, ":9999", cfg.Server.Addr)
	assert.Equal(t, 5, cfg.Server.Burst)
	assert.Equal(t, DefaultConfig().Server.ActionsPerSecond, cfg.Server.ActionsPerSecond, "unset fields keep defaults")
	assert.Equal(t, logging.LevelDebug, cfg.Logging.Level)
	assert.True(t, cfg.Logging.JSON)

	bcfg := cfg.History.BadgerConfig()
	assert.Equal(t, "/tmp/codewords-history", bcfg.Path)
	assert.Equal(t, 10, bcfg.Limit)
	assert.False(t, bcfg.InMemory)
}

func TestLoadConfig_JSON(t *testing.T) {
	path := writeFile(t, "codewords.json", `{"server": {"addr": ":7000"}, "history": {"backend": "none"}}`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.Server.Addr)
	assert.Equal(t, HistoryNone, cfg.History.Backend)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("CODEWORDS_ADDR", ":1234")
	t.Setenv("CODEWORDS_LOG_LEVEL", "warn")
	t.Setenv("CODEWORDS_HISTORY_LIMIT", "7")
	t.Setenv("CODEWORDS_MAX_SNIPPETS", "2")
	t.Setenv("CODEWORDS_PARALLEL_SUGGEST", "1")

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, ":1234", cfg.Server.Addr)
	assert.Equal(t, logging.LevelWarn, cfg.Logging.Level)
	assert.Equal(t, 7, cfg.History.Limit)
	assert.Equal(t, 2, cfg.Engine.MaxSnippets)
	assert.True(t, cfg.Engine.Parallel)
}

func TestLoadConfig_BadLogLevel(t *testing.T) {
	t.Setenv("CODEWORDS_LOG_LEVEL", "chatty")
	_, err := LoadConfig("")
	assert.ErrorIs(t, err, logging.ErrUnknownLevel)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"unknown backend", "history:\n  backend: postgres\n"},
		{"badger without path", "history:\n  backend: badger\n"},
		{"zero limit", "history:\n  limit: 0\n"},
		{"no rate", "server:\n  actions_per_second: 0\n"},
		{"empty language", "language: \"\"\n"},
		{"not yaml or json", "{{{"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeFile(t, "bad.yaml", tt.content))
			assert.Error(t, err)
		})
	}
}

func TestConfig_InMemoryBadgerNeedsNoPath(t *testing.T) {
	cfg := DefaultConfig()
	cfg.History.Backend = HistoryBadger
	cfg.History.InMemory = true
	require.NoError(t, cfg.Validate())

	bcfg := cfg.History.BadgerConfig()
	assert.True(t, bcfg.InMemory)
	assert.Equal(t, cfg.History.Limit, bcfg.Limit)
}
