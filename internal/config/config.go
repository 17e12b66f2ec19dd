package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/Netflix/go-env"
)

// Store backends.
const (
	StoreFile   = "file"
	StoreSQLite = "sqlite"
	StoreBadger = "badger"
)

// Leave policies. LeaveResetSelf clears the leaving user's own unread counter, LeaveResetNone
// leaves counters untouched.
const (
	LeaveResetSelf = "self"
	LeaveResetNone = "none"
)

// ServerConfig holds settings for the relay server runtime.
type ServerConfig struct {
	ListenAddr     string        `env:"DMRELAY_LISTEN_ADDR,default=:9000"`
	HTTPAddr       string        `env:"DMRELAY_HTTP_ADDR,default=:4000"`
	// ReadTimeout bounds WebSocket reads; pings keep idle peers alive. TCP has no keepalive
	// frame, so TCP reads use TCPIdleTimeout, where 0 disables the deadline.
	ReadTimeout    time.Duration `env:"DMRELAY_READ_TIMEOUT,default=5m"`
	TCPIdleTimeout time.Duration `env:"DMRELAY_TCP_IDLE_TIMEOUT,default=0s"`
	WriteTimeout   time.Duration `env:"DMRELAY_WRITE_TIMEOUT,default=15s"`
	MaxFrameBytes  int           `env:"DMRELAY_MAX_FRAME_BYTES,default=1048576"`
	FlushInterval  time.Duration `env:"DMRELAY_FLUSH_INTERVAL,default=30s"`
	LeavePolicy    string        `env:"DMRELAY_LEAVE_POLICY,default=self"`
	CORSOrigins    string        `env:"DMRELAY_CORS_ORIGINS,default=*"`
	Store          StoreConfig
	Log            LogConfig
}

// ClientConfig holds settings for the terminal client.
type ClientConfig struct {
	ServerAddr    string `env:"DMRELAY_SERVER_ADDR,default=localhost:9000"`
	RawPrefix     string `env:"DMRELAY_COMMAND_PREFIX,default=/"`
	CommandPrefix rune
}

// StoreConfig captures snapshot storage configuration.
type StoreConfig struct {
	Backend string `env:"DMRELAY_STORE,default=file"`
	Path    string `env:"DMRELAY_STORE_PATH,default=chatHistory.json"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Backend   string `env:"DMRELAY_LOG_BACKEND,default=text"`
	Level     string `env:"DMRELAY_LOG_LEVEL,default=info"`
	AddSource bool   `env:"DMRELAY_LOG_SOURCE,default=false"`
}

// LoadServerConfig builds the server configuration from environment variables with sensible defaults.
func LoadServerConfig() (ServerConfig, error) {
	var cfg ServerConfig
	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	cfg.Store.Backend = strings.ToLower(strings.TrimSpace(cfg.Store.Backend))
	cfg.LeavePolicy = strings.ToLower(strings.TrimSpace(cfg.LeavePolicy))
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c ServerConfig) Validate() error {
	switch c.Store.Backend {
	case StoreFile, StoreSQLite, StoreBadger:
	default:
		return fmt.Errorf("config: unknown store backend %q", c.Store.Backend)
	}
	if strings.TrimSpace(c.Store.Path) == "" {
		return fmt.Errorf("config: store path required")
	}
	switch c.LeavePolicy {
	case LeaveResetSelf, LeaveResetNone:
	default:
		return fmt.Errorf("config: unknown leave policy %q", c.LeavePolicy)
	}
	if c.TCPIdleTimeout < 0 {
		return fmt.Errorf("config: tcp idle timeout must not be negative")
	}
	if c.MaxFrameBytes <= 0 {
		return fmt.Errorf("config: max frame bytes must be positive")
	}
	return nil
}

// AllowedOrigins splits the comma separated CORS origin list.
func (c ServerConfig) AllowedOrigins() []string {
	origins := make([]string, 0)
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

// LoadClientConfig builds the client configuration from environment variables.
func LoadClientConfig() (ClientConfig, error) {
	var cfg ClientConfig
	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	cfg.CommandPrefix = '/'
	if runes := []rune(cfg.RawPrefix); len(runes) > 0 {
		cfg.CommandPrefix = runes[0]
	}
	return cfg, nil
}
