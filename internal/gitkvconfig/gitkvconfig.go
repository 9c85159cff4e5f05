// Package gitkvconfig loads Store configuration from a layered source: a
// TOML file on disk, then environment variables, then explicit overrides,
// in increasing priority. Grounded on the teacher's own BurntSushi/toml and
// spf13/viper requires (unused directly in its tree, but declared for
// exactly this purpose) and on datamon's cmd/config.go viper.Unmarshal
// pattern for the unmarshal-into-struct shape.
package gitkvconfig

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/spf13/viper"
)

// History holds the compaction thresholds from spec.md §4.8.
type History struct {
	Enabled             bool  `toml:"enabled" mapstructure:"enabled"`
	WriteCountThreshold int   `toml:"write_count_threshold" mapstructure:"write_count_threshold"`
	WriteBytesThreshold int64 `toml:"write_bytes_threshold" mapstructure:"write_bytes_threshold"`
}

// Index controls the optional SQLite key-mirror accelerator.
type Index struct {
	Enabled bool   `toml:"enabled" mapstructure:"enabled"`
	Path    string `toml:"path" mapstructure:"path"`
}

// WSRelay controls the optional WebSocket event relay.
type WSRelay struct {
	Enabled bool   `toml:"enabled" mapstructure:"enabled"`
	Addr    string `toml:"addr" mapstructure:"addr"`
}

// Config is the full shape spec.md §6 documents for Store construction,
// plus the supplemented index/relay/drift-detection knobs from
// SPEC_FULL.md §5.
type Config struct {
	RepoURL             string        `toml:"repo_url" mapstructure:"repo_url"`
	Branch              string        `toml:"branch" mapstructure:"branch"`
	Username            string        `toml:"username" mapstructure:"username"`
	Token               string        `toml:"token" mapstructure:"token"`
	DataDir             string        `toml:"data_dir" mapstructure:"data_dir"`
	AutoSync            bool          `toml:"auto_sync" mapstructure:"auto_sync"`
	SyncOnChange        bool          `toml:"sync_on_change" mapstructure:"sync_on_change"`
	SyncIntervalMinutes int           `toml:"sync_interval_minutes" mapstructure:"sync_interval_minutes"`
	History             History       `toml:"history" mapstructure:"history"`
	DebounceInterval    time.Duration `toml:"-" mapstructure:"-"`

	DriftDetection bool    `toml:"drift_detection" mapstructure:"drift_detection"`
	Index          Index   `toml:"index" mapstructure:"index"`
	WSRelay        WSRelay `toml:"ws_relay" mapstructure:"ws_relay"`

	Logger *log.Logger `toml:"-" mapstructure:"-"`
}

// Defaults returns spec.md §6's documented configuration defaults, plus
// SPEC_FULL.md's off-by-default supplemented features.
func Defaults() Config {
	dataDir := ".gitkv/storage/.git-storage"
	if cwd, err := os.Getwd(); err == nil {
		dataDir = cwd + "/storage/.git-storage"
	}
	return Config{
		Branch:              "main",
		Username:            "git",
		DataDir:             dataDir,
		AutoSync:            true,
		SyncOnChange:        true,
		SyncIntervalMinutes: 0,
		DebounceInterval:    10 * time.Second,
		History: History{
			Enabled:             true,
			WriteCountThreshold: 200,
			WriteBytesThreshold: 5 * 1024 * 1024,
		},
		DriftDetection: false,
		Index:          Index{Enabled: false, Path: "index.db"},
		WSRelay:        WSRelay{Enabled: false, Addr: ":8099"},
	}
}

// Load reads defaults, then path (if non-empty and present) via TOML, then
// GITKV_-prefixed environment variables, each layer overriding the last.
func Load(path string) (Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			var fileCfg Config
			meta, err := toml.DecodeFile(path, &fileCfg)
			if err != nil {
				return cfg, fmt.Errorf("decode config %s: %w", path, err)
			}
			cfg = mergeNonZero(cfg, fileCfg, meta)
		} else if !os.IsNotExist(err) {
			return cfg, fmt.Errorf("stat config %s: %w", path, err)
		}
	}

	v := viper.New()
	v.SetEnvPrefix("GITKV")
	v.AutomaticEnv()
	for _, key := range []string{
		"repo_url", "branch", "username", "token", "data_dir",
		"auto_sync", "sync_on_change", "sync_interval_minutes",
	} {
		if v.IsSet(key) {
			applyEnvOverride(&cfg, key, v)
		}
	}

	if cfg.Logger == nil {
		cfg.Logger = log.New(os.Stderr, "[gitkv] ", log.LstdFlags)
	}
	return cfg, nil
}

// mergeNonZero layers override onto base. Most fields use the zero value as
// "absent" (fine for strings/ints, which are never meaningfully zero in a
// real config), but auto_sync/sync_on_change default to true, so a zero
// value (false) is indistinguishable from "not set" — meta.IsDefined tells
// us whether the TOML file actually set the key, letting the file disable
// them. history.enabled, drift_detection and the index/ws_relay tables are
// taken from the file the same way, whenever the file defines them.
func mergeNonZero(base, override Config, meta toml.MetaData) Config {
	if override.RepoURL != "" {
		base.RepoURL = override.RepoURL
	}
	if override.Branch != "" {
		base.Branch = override.Branch
	}
	if override.Username != "" {
		base.Username = override.Username
	}
	if override.Token != "" {
		base.Token = override.Token
	}
	if override.DataDir != "" {
		base.DataDir = override.DataDir
	}
	if override.SyncIntervalMinutes != 0 {
		base.SyncIntervalMinutes = override.SyncIntervalMinutes
	}
	if meta.IsDefined("auto_sync") {
		base.AutoSync = override.AutoSync
	}
	if meta.IsDefined("sync_on_change") {
		base.SyncOnChange = override.SyncOnChange
	}
	if override.History.WriteCountThreshold != 0 {
		base.History.WriteCountThreshold = override.History.WriteCountThreshold
	}
	if override.History.WriteBytesThreshold != 0 {
		base.History.WriteBytesThreshold = override.History.WriteBytesThreshold
	}
	if meta.IsDefined("history", "enabled") {
		base.History.Enabled = override.History.Enabled
	}
	if meta.IsDefined("drift_detection") {
		base.DriftDetection = override.DriftDetection
	}
	if meta.IsDefined("index") {
		base.Index = override.Index
	}
	if meta.IsDefined("ws_relay") {
		base.WSRelay = override.WSRelay
	}
	return base
}

func applyEnvOverride(cfg *Config, key string, v *viper.Viper) {
	switch key {
	case "repo_url":
		cfg.RepoURL = v.GetString(key)
	case "branch":
		cfg.Branch = v.GetString(key)
	case "username":
		cfg.Username = v.GetString(key)
	case "token":
		cfg.Token = v.GetString(key)
	case "data_dir":
		cfg.DataDir = v.GetString(key)
	case "auto_sync":
		cfg.AutoSync = v.GetBool(key)
	case "sync_on_change":
		cfg.SyncOnChange = v.GetBool(key)
	case "sync_interval_minutes":
		cfg.SyncIntervalMinutes = v.GetInt(key)
	}
}
