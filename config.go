package emojidb

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/tailscale/hujson"
)

const (
	defaultReleaseBaseURL    = "https://github.com/ikwerre-dev/EmojiDB/releases/latest/download"
	defaultReadyTimeout      = 5 * time.Second
	defaultReadyGracePeriod  = 100 * time.Millisecond
	defaultShutdownTimeout   = 5 * time.Second
	defaultOutboundQueueSize = 256
)

// Environment variables read by Config.ApplyEnv.
const (
	EnvEnginePath     = "EMOJIDB_ENGINE_PATH"
	EnvReleaseBaseURL = "EMOJIDB_RELEASE_URL"
	EnvCacheDir       = "EMOJIDB_CACHE_DIR"
)

// Config defines the configuration for the client.
//
// The zero value is usable: the engine binary is downloaded into the user
// cache directory and every timeout takes its default.
type Config struct {
	// EnginePath is the path of an engine executable to run.
	//
	// If empty, the engine for the current platform is resolved from the
	// cache directory and downloaded when missing.
	EnginePath string `json:"engine_path,omitempty"`
	// EngineArgs are extra command line arguments for the engine.
	EngineArgs []string `json:"engine_args,omitempty"`
	// EngineEnv are extra "KEY=value" entries appended to the engine's environment.
	EngineEnv []string `json:"engine_env,omitempty"`
	// ReleaseBaseURL is the URL engine binaries are downloaded from.
	ReleaseBaseURL string `json:"release_base_url,omitempty"`
	// CacheDir is the directory downloaded engine binaries are kept in.
	CacheDir string `json:"cache_dir,omitempty"`

	// ReadyTimeout bounds the handshake performed by Connect.
	ReadyTimeout time.Duration `json:"-"`
	// SkipHandshake makes Connect wait ReadyGracePeriod after spawning the
	// engine instead of probing it.
	SkipHandshake bool `json:"skip_handshake,omitempty"`
	// ReadyGracePeriod is the fixed delay used when SkipHandshake is set.
	ReadyGracePeriod time.Duration `json:"-"`
	// CallTimeout bounds every call. An earlier context deadline still wins.
	// Zero means calls wait until the engine answers or exits.
	CallTimeout time.Duration `json:"-"`
	// ShutdownTimeout bounds the graceful part of Close.
	ShutdownTimeout time.Duration `json:"-"`
	// OutboundQueueSize is the number of requests that may wait to be
	// written to the engine before calls fail with ErrQueueFull.
	OutboundQueueSize int `json:"outbound_queue_size,omitempty"`

	// Logger receives lifecycle, protocol and engine stderr logs.
	// Defaults to slog.Default().
	Logger *slog.Logger `json:"-"`
	// HTTP is used to download engine binaries. Defaults to NewHTTPClient().
	HTTP HTTPClient `json:"-"`
}

// fileConfig is the on-disk shape of Config. Durations are strings like "5s".
type fileConfig struct {
	Config
	ReadyTimeout     string `json:"ready_timeout,omitempty"`
	ReadyGracePeriod string `json:"ready_grace_period,omitempty"`
	CallTimeout      string `json:"call_timeout,omitempty"`
	ShutdownTimeout  string `json:"shutdown_timeout,omitempty"`
}

// LoadConfigFile reads a JSON config file. Comments and trailing commas are allowed.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return parseConfig(data)
}

func parseConfig(data []byte) (*Config, error) {
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return nil, fmt.Errorf("invalid JSONC: %w", err)
	}

	var fc fileConfig
	if err := json.Unmarshal(standardized, &fc); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}

	cfg := fc.Config
	durations := []struct {
		name  string
		value string
		dst   *time.Duration
	}{
		{"ready_timeout", fc.ReadyTimeout, &cfg.ReadyTimeout},
		{"ready_grace_period", fc.ReadyGracePeriod, &cfg.ReadyGracePeriod},
		{"call_timeout", fc.CallTimeout, &cfg.CallTimeout},
		{"shutdown_timeout", fc.ShutdownTimeout, &cfg.ShutdownTimeout},
	}
	for _, d := range durations {
		if d.value == "" {
			continue
		}
		v, err := time.ParseDuration(d.value)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", d.name, err)
		}
		*d.dst = v
	}
	return &cfg, nil
}

// ApplyEnv overrides fields with the EMOJIDB_* environment variables that are set.
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvEnginePath); v != "" {
		c.EnginePath = v
	}
	if v := os.Getenv(EnvReleaseBaseURL); v != "" {
		c.ReleaseBaseURL = v
	}
	if v := os.Getenv(EnvCacheDir); v != "" {
		c.CacheDir = v
	}
}

func (c *Config) releaseBaseURL() string {
	if c.ReleaseBaseURL != "" {
		return c.ReleaseBaseURL
	}
	return defaultReleaseBaseURL
}

func (c *Config) cacheDir() string {
	if c.CacheDir != "" {
		return c.CacheDir
	}
	base, err := os.UserCacheDir()
	if err != nil {
		base = os.TempDir()
	}
	return filepath.Join(base, "emojidb", "bin")
}

func (c *Config) readyTimeout() time.Duration {
	if c.ReadyTimeout > 0 {
		return c.ReadyTimeout
	}
	return defaultReadyTimeout
}

func (c *Config) readyGracePeriod() time.Duration {
	if c.ReadyGracePeriod > 0 {
		return c.ReadyGracePeriod
	}
	return defaultReadyGracePeriod
}

func (c *Config) shutdownTimeout() time.Duration {
	if c.ShutdownTimeout > 0 {
		return c.ShutdownTimeout
	}
	return defaultShutdownTimeout
}

func (c *Config) outboundQueueSize() int {
	if c.OutboundQueueSize > 0 {
		return c.OutboundQueueSize
	}
	return defaultOutboundQueueSize
}
