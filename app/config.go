package app

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/IamSpotted/ITSF-Agent/app/identity"
	"github.com/IamSpotted/ITSF-Agent/app/logger"
	"github.com/IamSpotted/ITSF-Agent/app/services"
	"github.com/IamSpotted/ITSF-Agent/app/utils"
	"github.com/IamSpotted/ITSF-Agent/storage/postgres"
	"gopkg.in/yaml.v3"
)

const (
	defaultConfigFile       = "agent.yaml"
	defaultStateDirName     = "DeviceAgent"
	defaultJournalFile      = "journal.db"
	defaultCheckInDays      = 7
	defaultRetentionDays    = 30
	defaultStatusListenAddr = "127.0.0.1:8787"
	defaultTokenTTL         = 12 * time.Hour
)

// RemoteConfig holds the remote device store connection settings
type RemoteConfig struct {
	DSN         string        `yaml:"dsn"`
	Timeout     time.Duration `yaml:"timeout" validate:"gte=0"`
	AutoMigrate bool          `yaml:"auto_migrate"`
	MaxConns    int32         `yaml:"max_conns" validate:"gte=0"`
}

// DiffConfig selects the compared fields
type DiffConfig struct {
	Fields         []string `yaml:"fields"`
	RAMToleranceGB int      `yaml:"ram_tolerance_gb" validate:"gte=0"`
}

// StatusConfig controls the local status API
type StatusConfig struct {
	ListenAddr     string        `yaml:"listen_addr"`
	JWTSecret      string        `yaml:"jwt_secret"`
	TokenTTL       time.Duration `yaml:"token_ttl" validate:"gte=0"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
}

// Config holds device agent configuration
type Config struct {
	Remote               RemoteConfig      `yaml:"remote"`
	CheckInIntervalDays  int               `yaml:"check_in_interval_days" validate:"min=1,max=365"`
	PollCeiling          time.Duration     `yaml:"poll_ceiling" validate:"gte=0"`
	StateDir             string            `yaml:"state_dir" validate:"required"`
	TriggerPath          string            `yaml:"trigger_path" validate:"required"`
	JournalPath          string            `yaml:"journal_path"`
	JournalRetentionDays int               `yaml:"journal_retention_days" validate:"gte=0"`
	DisplayTimezone      string            `yaml:"display_timezone"`
	Site                 identity.SiteInfo `yaml:"site"`
	Diff                 DiffConfig        `yaml:"diff"`
	Status               StatusConfig      `yaml:"status"`
	Logging              logger.Config     `yaml:"logging"`
}

// DefaultConfig returns the configuration used when no file or environment
// override is present
func DefaultConfig() *Config {
	stateDir := defaultStateDirName
	if dir, err := os.UserConfigDir(); err == nil {
		stateDir = filepath.Join(dir, defaultStateDirName)
	}

	return &Config{
		Remote: RemoteConfig{
			Timeout: services.DefaultRemoteTimeout,
		},
		CheckInIntervalDays:  defaultCheckInDays,
		PollCeiling:          services.DefaultPollCeiling,
		StateDir:             stateDir,
		TriggerPath:          services.DefaultTriggerPath(),
		JournalRetentionDays: defaultRetentionDays,
		Diff: DiffConfig{
			RAMToleranceGB: services.DefaultRAMToleranceGB,
		},
		Status: StatusConfig{
			ListenAddr: defaultStatusListenAddr,
			TokenTTL:   defaultTokenTTL,
		},
		Logging: logger.Config{
			Level: "info",
		},
	}
}

// ConfigPath returns the configuration file location
func ConfigPath() string {
	if path := os.Getenv("AGENT_CONFIG"); path != "" {
		return path
	}
	exe, err := os.Executable()
	if err != nil {
		return defaultConfigFile
	}
	return filepath.Join(filepath.Dir(exe), defaultConfigFile)
}

// LoadConfig loads configuration from the YAML file at path, then applies
// environment overrides. A missing file is not an error.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
			}
		}
	}

	applyEnv(cfg)

	if cfg.JournalPath == "" {
		cfg.JournalPath = filepath.Join(cfg.StateDir, defaultJournalFile)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.Remote.DSN = getEnv("AGENT_REMOTE_DSN", cfg.Remote.DSN)
	if v := os.Getenv("AGENT_REMOTE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Remote.Timeout = d
		}
	}
	if v := os.Getenv("AGENT_AUTO_MIGRATE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Remote.AutoMigrate = b
		}
	}

	if v := os.Getenv("AGENT_CHECK_IN_INTERVAL_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.CheckInIntervalDays = n
		}
	}
	if v := os.Getenv("AGENT_POLL_CEILING"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.PollCeiling = d
		}
	}

	cfg.StateDir = getEnv("AGENT_STATE_DIR", cfg.StateDir)
	cfg.TriggerPath = getEnv("AGENT_TRIGGER_PATH", cfg.TriggerPath)
	cfg.JournalPath = getEnv("AGENT_JOURNAL_PATH", cfg.JournalPath)
	cfg.DisplayTimezone = getEnv("AGENT_DISPLAY_TIMEZONE", cfg.DisplayTimezone)

	cfg.Status.ListenAddr = getEnv("AGENT_STATUS_ADDR", cfg.Status.ListenAddr)
	cfg.Status.JWTSecret = getEnv("AGENT_JWT_SECRET", cfg.Status.JWTSecret)
	if v := os.Getenv("AGENT_ALLOWED_ORIGINS"); v != "" {
		cfg.Status.AllowedOrigins = splitList(v)
	}

	cfg.Logging.Level = getEnv("AGENT_LOG_LEVEL", cfg.Logging.Level)
	cfg.Logging.Output = getEnv("AGENT_LOG_OUTPUT", cfg.Logging.Output)
	if v := os.Getenv("AGENT_DEBUG"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Logging.Debug = b
		}
	}
}

// Validate checks struct constraints and the diff field list
func (c *Config) Validate() error {
	if err := utils.ValidateStruct(c); err != nil {
		return err
	}
	if _, err := c.DiffPolicy(); err != nil {
		return fmt.Errorf("invalid diff configuration: %w", err)
	}
	return nil
}

// CheckInInterval returns the check-in interval as a duration
func (c *Config) CheckInInterval() time.Duration {
	return time.Duration(c.CheckInIntervalDays) * 24 * time.Hour
}

// JournalRetention returns how long journaled attempts are kept; zero keeps them forever
func (c *Config) JournalRetention() time.Duration {
	return time.Duration(c.JournalRetentionDays) * 24 * time.Hour
}

// SyncOptions returns the sync service options for this configuration
func (c *Config) SyncOptions(agentVersion string) services.SyncOptions {
	return services.SyncOptions{
		Interval:      c.CheckInInterval(),
		RemoteTimeout: c.Remote.Timeout,
		AgentVersion:  agentVersion,
	}
}

// DiffPolicy builds the diff policy for this configuration
func (c *Config) DiffPolicy() (services.DiffPolicy, error) {
	return services.NewDiffPolicy(c.Diff.Fields, c.Diff.RAMToleranceGB)
}

// PostgresOptions returns the remote store options for this configuration
func (c *Config) PostgresOptions() postgres.Options {
	return postgres.Options{
		DSN:         c.Remote.DSN,
		AutoMigrate: c.Remote.AutoMigrate,
		MaxConns:    c.Remote.MaxConns,
	}
}

// ConfigSource holds the active configuration and notifies subscribers when
// it is reloaded
type ConfigSource struct {
	path        string
	mu          sync.RWMutex
	current     *Config
	subscribers []func(*Config)
}

// NewConfigSource loads the configuration at path
func NewConfigSource(path string) (*ConfigSource, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}
	return &ConfigSource{path: path, current: cfg}, nil
}

// Path returns the configuration file location
func (s *ConfigSource) Path() string {
	return s.path
}

// Current returns the active configuration
func (s *ConfigSource) Current() *Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Subscribe registers fn to receive every successfully reloaded configuration
func (s *ConfigSource) Subscribe(fn func(*Config)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribers = append(s.subscribers, fn)
}

// Reload re-reads the configuration. On error the active configuration is kept.
func (s *ConfigSource) Reload() error {
	cfg, err := LoadConfig(s.path)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.current = cfg
	subscribers := append([]func(*Config){}, s.subscribers...)
	s.mu.Unlock()

	for _, fn := range subscribers {
		fn(cfg)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
