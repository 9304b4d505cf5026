/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// AppConfig is the user-editable configuration persisted to a YAML file in the user scope.
// Environment variables are treated as read-only overrides at runtime.
//
// config_version: bump when the structure changes in a backward-incompatible way.

type GeneralConfig struct {
	Title string `yaml:"title"` // fallback document title when a script has no headers
}

type LLMConfig struct {
	Provider  string `yaml:"provider"` // openai | deepseek | gemini | mock
	Model     string `yaml:"model"`
	BaseURL   string `yaml:"base_url"`
	TimeoutMs int    `yaml:"timeout_ms"`
	// APIKey is not stored on disk; it lives in the OS keychain.
}

type ParserConfig struct {
	Markers      []string `yaml:"markers"`
	KeepPreamble bool     `yaml:"keep_preamble"`
}

type ExportConfig struct {
	PageFormat    string `yaml:"page_format"` // A4 | Letter
	PageWidthPx   int    `yaml:"page_width_px"`
	PageHeightPx  int    `yaml:"page_height_px"` // 0 derives the height from page_format
	MarginPx      int    `yaml:"margin_px"`
	IncludeImages bool   `yaml:"include_images"`
	FontPath      string `yaml:"font_path"`
	Preset        string `yaml:"preset"`
	OutDir        string `yaml:"out_dir"`
}

type StorageConfig struct {
	Driver   string `yaml:"driver"` // sqlite | pgx | none
	DSN      string `yaml:"dsn"`
	KeepLast int    `yaml:"keep_last"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

type AppConfig struct {
	ConfigVersion int           `yaml:"config_version"`
	General       GeneralConfig `yaml:"general"`
	LLM           LLMConfig     `yaml:"llm"`
	Parser        ParserConfig  `yaml:"parser"`
	Export        ExportConfig  `yaml:"export"`
	Storage       StorageConfig `yaml:"storage"`
	Server        ServerConfig  `yaml:"server"`
	Logging       LoggingConfig `yaml:"logging"`
}

// DefaultMarkers mirrors script.DefaultMarkers; kept here so the config file can be
// dumped without importing the parser.
var DefaultMarkers = []string{
	"INT./EXT.", "I/E.", "INT.", "EXT.",
	"FADE IN:", "FADE OUT.", "CUT TO:", "DISSOLVE TO:", "SMASH CUT TO:",
	`re:Scene\s+\d+:`,
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		General:       GeneralConfig{Title: "Generated Script"},
		LLM:           LLMConfig{Provider: "mock", Model: "gpt-4o-mini", TimeoutMs: 60000},
		Parser:        ParserConfig{Markers: append([]string(nil), DefaultMarkers...), KeepPreamble: false},
		Export: ExportConfig{
			PageFormat:    "A4",
			PageWidthPx:   794,
			MarginPx:      24,
			IncludeImages: true,
			Preset:        "print",
		},
		Storage: StorageConfig{Driver: "sqlite", KeepLast: 200},
		Server:  ServerConfig{Addr: ":8080"},
		Logging: LoggingConfig{Level: "info", Format: "console", Source: false, File: ""},
	}
}

// Env var names used as overrides.
const (
	EnvLLMProvider  = "GSW_LLM_PROVIDER"
	EnvLLMModel     = "GSW_LLM_MODEL"
	EnvLLMBaseURL   = "GSW_LLM_BASE_URL"
	EnvLLMTimeoutMs = "GSW_LLM_TIMEOUT_MS"
	EnvLLMAPIKey    = "GSW_LLM_API_KEY"
	EnvMarkers      = "GSW_MARKERS" // separated by "|"
	EnvPageFormat   = "GSW_PAGE_FORMAT"
	EnvNoImages     = "GSW_NO_IMAGES"
	EnvStoreDriver  = "GSW_STORE_DRIVER"
	EnvStoreDSN     = "GSW_STORE_DSN"
	EnvServerAddr   = "GSW_ADDR"
	// EnvLogLevel Logging envs
	EnvLogLevel  = "GSW_LOG_LEVEL"
	EnvLogFormat = "GSW_LOG_FORMAT"
	EnvLogSource = "GSW_LOG_SOURCE"
	EnvLogFile   = "GSW_LOG_FILE"
)

// ConfigDir returns the per-user config directory.
func ConfigDir() (string, error) {
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" {
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "GoScriptWriter")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "GoScriptWriter")
	default:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			base = filepath.Join(xdg, "goscriptwriter")
		} else {
			base = filepath.Join(os.Getenv("HOME"), ".config", "goscriptwriter")
		}
	}
	if base == "" || base == "goscriptwriter" {
		return "", errors.New("cannot resolve config directory")
	}
	return base, nil
}

// ConfigPath returns the per-user config file path.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Load reads the user config file (if present), applies defaults, and merges environment overrides.
// The LLM API key is returned separately; it comes from the environment or the keychain.
func Load() (AppConfig, string, error) {
	path, err := ConfigPath()
	if err != nil {
		cfg := Defaults()
		applyEnvOverrides(&cfg)
		return cfg, loadAPIKey(), err
	}
	return LoadFrom(path)
}

// LoadFrom is Load with an explicit file path. A missing file is not an error,
// a malformed one is.
func LoadFrom(path string) (AppConfig, string, error) {
	cfg := Defaults()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		var fileCfg AppConfig
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			return cfg, "", fmt.Errorf("parse config %s: %w", path, err)
		}
		mergeInto(&cfg, &fileCfg)
	case !errors.Is(err, os.ErrNotExist):
		return cfg, "", fmt.Errorf("read config %s: %w", path, err)
	}
	applyEnvOverrides(&cfg)
	return cfg, loadAPIKey(), nil
}

// Save writes the user config YAML and persists the API key into the OS keyring (if non-empty).
func Save(cfg AppConfig, apiKey string) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return SaveTo(path, cfg, apiKey)
}

// SaveTo is Save with an explicit file path.
func SaveTo(path string, cfg AppConfig, apiKey string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := Dump(cfg)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return err
	}
	if apiKey != "" {
		if err := tokenStore.Set(keyringService, keyringAPIKey, apiKey); err != nil {
			return fmt.Errorf("store api key: %w", err)
		}
	}
	return nil
}

// Dump renders cfg as YAML.
func Dump(cfg AppConfig) ([]byte, error) {
	return yaml.Marshal(cfg)
}

func loadAPIKey() string {
	if v := strings.TrimSpace(os.Getenv(EnvLLMAPIKey)); v != "" {
		return v
	}
	tok, _ := tokenStore.Get(keyringService, keyringAPIKey)
	return tok
}

func mergeInto(dst *AppConfig, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	if strings.TrimSpace(src.General.Title) != "" {
		dst.General.Title = strings.TrimSpace(src.General.Title)
	}
	// llm
	if src.LLM.Provider != "" {
		dst.LLM.Provider = strings.ToLower(strings.TrimSpace(src.LLM.Provider))
	}
	if src.LLM.Model != "" {
		dst.LLM.Model = src.LLM.Model
	}
	if src.LLM.BaseURL != "" {
		dst.LLM.BaseURL = src.LLM.BaseURL
	}
	if src.LLM.TimeoutMs != 0 {
		dst.LLM.TimeoutMs = src.LLM.TimeoutMs
	}
	// parser: an explicit list replaces the defaults entirely
	if src.Parser.Markers != nil {
		dst.Parser.Markers = append([]string(nil), src.Parser.Markers...)
	}
	dst.Parser.KeepPreamble = src.Parser.KeepPreamble
	// export
	if src.Export.PageFormat != "" {
		dst.Export.PageFormat = src.Export.PageFormat
	}
	if src.Export.PageWidthPx > 0 {
		dst.Export.PageWidthPx = src.Export.PageWidthPx
	}
	if src.Export.PageHeightPx > 0 {
		dst.Export.PageHeightPx = src.Export.PageHeightPx
	}
	if src.Export.MarginPx > 0 {
		dst.Export.MarginPx = src.Export.MarginPx
	}
	// booleans: copy directly from src (file) so user preferences persist
	dst.Export.IncludeImages = src.Export.IncludeImages
	if src.Export.FontPath != "" {
		dst.Export.FontPath = src.Export.FontPath
	}
	if src.Export.Preset != "" {
		dst.Export.Preset = strings.ToLower(src.Export.Preset)
	}
	if src.Export.OutDir != "" {
		dst.Export.OutDir = src.Export.OutDir
	}
	// storage
	if src.Storage.Driver != "" {
		dst.Storage.Driver = strings.ToLower(strings.TrimSpace(src.Storage.Driver))
	}
	if src.Storage.DSN != "" {
		dst.Storage.DSN = src.Storage.DSN
	}
	if src.Storage.KeepLast != 0 {
		dst.Storage.KeepLast = src.Storage.KeepLast
	}
	if src.Server.Addr != "" {
		dst.Server.Addr = src.Server.Addr
	}
	// logging
	if strings.TrimSpace(src.Logging.Level) != "" {
		dst.Logging.Level = strings.ToLower(strings.TrimSpace(src.Logging.Level))
	}
	if strings.TrimSpace(src.Logging.Format) != "" {
		dst.Logging.Format = strings.ToLower(strings.TrimSpace(src.Logging.Format))
	}
	dst.Logging.Source = src.Logging.Source
	if strings.TrimSpace(src.Logging.File) != "" {
		dst.Logging.File = strings.TrimSpace(src.Logging.File)
	}
}

func parseBool(v string) bool {
	lv := strings.ToLower(strings.TrimSpace(v))
	return lv == "1" || lv == "true" || lv == "on" || lv == "yes"
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := strings.TrimSpace(os.Getenv(EnvLLMProvider)); v != "" {
		cfg.LLM.Provider = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLLMModel)); v != "" {
		cfg.LLM.Model = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvLLMBaseURL)); v != "" {
		cfg.LLM.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvLLMTimeoutMs)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.LLM.TimeoutMs = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvMarkers)); v != "" {
		var markers []string
		for _, m := range strings.Split(v, "|") {
			if m = strings.TrimSpace(m); m != "" {
				markers = append(markers, m)
			}
		}
		cfg.Parser.Markers = markers
	}
	if v := strings.TrimSpace(os.Getenv(EnvPageFormat)); v != "" {
		cfg.Export.PageFormat = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvNoImages)); v != "" {
		cfg.Export.IncludeImages = !parseBool(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvStoreDriver)); v != "" {
		cfg.Storage.Driver = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvStoreDSN)); v != "" {
		cfg.Storage.DSN = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvServerAddr)); v != "" {
		cfg.Server.Addr = v
	}
	// logging overrides
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogSource)); v != "" {
		cfg.Logging.Source = parseBool(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFile)); v != "" {
		cfg.Logging.File = v
	}
}

// EnvOverrideFor returns the env var name if the field is overridden by environment variables.
func EnvOverrideFor(key string) (string, bool) {
	var env string
	switch key {
	case "llm.provider":
		env = EnvLLMProvider
	case "llm.model":
		env = EnvLLMModel
	case "llm.base_url":
		env = EnvLLMBaseURL
	case "llm.timeout_ms":
		env = EnvLLMTimeoutMs
	case "parser.markers":
		env = EnvMarkers
	case "export.page_format":
		env = EnvPageFormat
	case "export.include_images":
		env = EnvNoImages
	case "storage.driver":
		env = EnvStoreDriver
	case "storage.dsn":
		env = EnvStoreDSN
	case "server.addr":
		env = EnvServerAddr
	case "logging.level":
		env = EnvLogLevel
	case "logging.format":
		env = EnvLogFormat
	case "logging.source":
		env = EnvLogSource
	case "logging.file":
		env = EnvLogFile
	default:
		return "", false
	}
	if os.Getenv(env) != "" {
		return env, true
	}
	return "", false
}

// DefaultStoreDSN returns the SQLite history database path next to the config file.
func DefaultStoreDSN() string {
	dir, err := ConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "history.sqlite")
}
