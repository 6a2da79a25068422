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
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/codewords/pkg/logging"
	"github.com/AleutianAI/codewords/services/editor/history"
	"github.com/AleutianAI/codewords/services/editor/snippet"
	"github.com/AleutianAI/codewords/services/editor/telemetry"
)

// History backends.
const (
	HistoryMemory = "memory"
	HistoryBadger = "badger"
	HistoryNone   = "none"
)

// configValidate checks Config struct tags.
var configValidate = validator.New()

// Config is the complete editor service configuration.
type Config struct {
	// Language names the language of new and loaded documents.
	Language string `json:"language" yaml:"language" validate:"required"`

	Engine    snippet.EngineConfig `json:"engine" yaml:"engine"`
	History   HistoryConfig        `json:"history" yaml:"history"`
	Server    ServerConfig         `json:"server" yaml:"server"`
	Logging   LoggingConfig        `json:"logging" yaml:"logging"`
	Telemetry telemetry.Config     `json:"telemetry" yaml:"telemetry"`
}

// HistoryConfig selects where document revisions are kept.
type HistoryConfig struct {
	// Backend is "memory", "badger" or "none".
	Backend string `json:"backend" yaml:"backend" validate:"oneof=memory badger none"`

	// Limit is the number of revisions kept per document.
	Limit int `json:"limit" yaml:"limit" validate:"min=1,max=100000"`

	// Path is the BadgerDB directory. Required for an on-disk badger backend.
	Path string `json:"path" yaml:"path" validate:"required_if=Backend badger InMemory false"`

	InMemory   bool          `json:"in_memory" yaml:"in_memory"`
	SyncWrites bool          `json:"sync_writes" yaml:"sync_writes"`
	GCInterval time.Duration `json:"gc_interval" yaml:"gc_interval" validate:"min=0"`
}

// ServerConfig configures `codewords serve`.
type ServerConfig struct {
	Addr  string `json:"addr" yaml:"addr" validate:"required"`
	Debug bool   `json:"debug" yaml:"debug"`

	// ActionsPerSecond and Burst limit each websocket session.
	ActionsPerSecond float64 `json:"actions_per_second" yaml:"actions_per_second" validate:"gt=0"`
	Burst            int     `json:"burst" yaml:"burst" validate:"min=1"`

	// MaxMessageBytes caps one websocket message.
	MaxMessageBytes int64 `json:"max_message_bytes" yaml:"max_message_bytes" validate:"min=1024"`

	ShutdownTimeout time.Duration `json:"shutdown_timeout" yaml:"shutdown_timeout" validate:"gt=0"`
}

// LoggingConfig configures pkg/logging for the binaries.
type LoggingConfig struct {
	Level logging.Level `json:"level" yaml:"level"`
	Dir   string        `json:"dir" yaml:"dir"`
	JSON  bool          `json:"json" yaml:"json"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() Config {
	return Config{
		Language: "blocks",
		Engine:   snippet.DefaultEngineConfig(),
		History: HistoryConfig{
			Backend:    HistoryMemory,
			Limit:      256,
			GCInterval: 10 * time.Minute,
		},
		Server: ServerConfig{
			Addr:             ":8090",
			ActionsPerSecond: 50,
			Burst:            20,
			MaxMessageBytes:  1 << 20,
			ShutdownTimeout:  10 * time.Second,
		},
		Logging: LoggingConfig{
			Level: logging.LevelInfo,
		},
		Telemetry: telemetry.DefaultConfig(),
	}
}

// LoadConfig reads configuration from path.
//
// Description:
//
//	Starts from DefaultConfig, overlays the file (YAML, or JSON when YAML
//	parsing fails), then environment overrides, then validates. An empty
//	path or a missing file keeps the defaults.
//
// Environment:
//
//	CODEWORDS_LANGUAGE         - Language
//	CODEWORDS_ADDR             - Server.Addr
//	CODEWORDS_LOG_LEVEL        - Logging.Level
//	CODEWORDS_LOG_DIR          - Logging.Dir
//	CODEWORDS_HISTORY_BACKEND  - History.Backend
//	CODEWORDS_HISTORY_PATH     - History.Path
//	CODEWORDS_HISTORY_LIMIT    - History.Limit
//	CODEWORDS_MAX_SNIPPETS     - Engine.MaxSnippets
//	CODEWORDS_PARALLEL_SUGGEST - Engine.Parallel
//
// Outputs:
//
//	Config - The loaded configuration. Defaults on error.
//	error - Read, parse or validation failure.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		if err := loadConfigFile(path, &cfg); err != nil {
			return DefaultConfig(), fmt.Errorf("load config file: %w", err)
		}
	}
	if err := loadConfigFromEnv(&cfg); err != nil {
		return DefaultConfig(), err
	}
	if err := cfg.Validate(); err != nil {
		return DefaultConfig(), fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func loadConfigFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		if jsonErr := json.Unmarshal(data, cfg); jsonErr != nil {
			return fmt.Errorf("parse config (tried YAML and JSON): YAML error: %v, JSON error: %w", err, jsonErr)
		}
	}
	return nil
}

func loadConfigFromEnv(cfg *Config) error {
	cfg.Language = getEnvOr("CODEWORDS_LANGUAGE", cfg.Language)
	cfg.Server.Addr = getEnvOr("CODEWORDS_ADDR", cfg.Server.Addr)
	cfg.Logging.Dir = getEnvOr("CODEWORDS_LOG_DIR", cfg.Logging.Dir)
	cfg.History.Backend = getEnvOr("CODEWORDS_HISTORY_BACKEND", cfg.History.Backend)
	cfg.History.Path = getEnvOr("CODEWORDS_HISTORY_PATH", cfg.History.Path)

	if v := os.Getenv("CODEWORDS_LOG_LEVEL"); v != "" {
		lvl, err := logging.ParseLevel(v)
		if err != nil {
			return fmt.Errorf("CODEWORDS_LOG_LEVEL: %w", err)
		}
		cfg.Logging.Level = lvl
	}
	if v := os.Getenv("CODEWORDS_HISTORY_LIMIT"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			cfg.History.Limit = i
		}
	}
	if v := os.Getenv("CODEWORDS_MAX_SNIPPETS"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			cfg.Engine.MaxSnippets = i
		}
	}
	if v := os.Getenv("CODEWORDS_PARALLEL_SUGGEST"); v != "" {
		cfg.Engine.Parallel = v == "true" || v == "1"
	}
	return nil
}

// Validate checks every struct tag in the configuration tree.
func (c Config) Validate() error {
	return configValidate.Struct(c)
}

// BadgerConfig converts the history settings for history.OpenBadgerStore.
func (h HistoryConfig) BadgerConfig() history.BadgerConfig {
	var cfg history.BadgerConfig
	if h.InMemory {
		cfg = history.InMemoryBadgerConfig()
	} else {
		cfg = history.DefaultBadgerConfig(h.Path)
	}
	cfg.Limit = h.Limit
	cfg.SyncWrites = h.SyncWrites
	cfg.GCInterval = h.GCInterval
	return cfg
}

func getEnvOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
