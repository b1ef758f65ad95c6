package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v6"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultConfigPath      = "config.toml"
	DefaultDotEnvPath      = ".env"
	DefaultHTTPAddr        = ":8080"
	DefaultJWTExpiresIn    = 24 * time.Hour
	DefaultSearchBaseURL   = "https://aminul-youtube-api.vercel.app"
	DefaultResolverBaseURL = "https://aminul-rest-api-three.vercel.app"
	DefaultHTTPTimeout     = 30 * time.Second
	DefaultDownloadTimeout = 10 * time.Minute
	DefaultMaxResults      = 5
	DefaultScratchDir      = "data/scratch"
	DefaultScratchTTL      = time.Hour
	DefaultSweepSchedule   = "@every 10m"
	DefaultSessionBackend  = "memory"
	DefaultSessionTTL      = 10 * time.Minute
	DefaultPurgeSchedule   = "@every 1m"
	DefaultRedisAddr       = "127.0.0.1:6379"
	DefaultRedisKeyPrefix  = "ytbot:pending:"
	DefaultCommandPrefix   = "/"
	DefaultBotID           = "ytbot"
)

type Config struct {
	Log      LogConfig       `toml:"log" yaml:"log"`
	Server   ServerConfig    `toml:"server" yaml:"server"`
	Auth     AuthConfig      `toml:"auth" yaml:"auth"`
	Video    VideoConfig     `toml:"video" yaml:"video"`
	Storage  StorageConfig   `toml:"storage" yaml:"storage"`
	Session  SessionConfig   `toml:"session" yaml:"session"`
	Redis    RedisConfig     `toml:"redis" yaml:"redis"`
	Commands CommandsConfig  `toml:"commands" yaml:"commands"`
	Channels []ChannelConfig `toml:"channels" yaml:"channels" validate:"dive"`
}

type LogConfig struct {
	Level  string `toml:"level" yaml:"level" env:"YTBOT_LOG_LEVEL" validate:"omitempty,oneof=debug info warn warning error"`
	Format string `toml:"format" yaml:"format" env:"YTBOT_LOG_FORMAT" validate:"omitempty,oneof=text json"`
}

type ServerConfig struct {
	Addr string `toml:"addr" yaml:"addr" env:"YTBOT_SERVER_ADDR" validate:"required"`
}

type AuthConfig struct {
	JWTSecret    string        `toml:"jwt_secret" yaml:"jwt_secret" env:"YTBOT_JWT_SECRET"`
	JWTExpiresIn time.Duration `toml:"jwt_expires_in" yaml:"jwt_expires_in" env:"YTBOT_JWT_EXPIRES_IN" validate:"gt=0"`
}

type VideoConfig struct {
	SearchBaseURL   string        `toml:"search_base_url" yaml:"search_base_url" env:"YTBOT_SEARCH_BASE_URL" validate:"required,url"`
	ResolverBaseURL string        `toml:"resolver_base_url" yaml:"resolver_base_url" env:"YTBOT_RESOLVER_BASE_URL" validate:"required,url"`
	HTTPTimeout     time.Duration `toml:"http_timeout" yaml:"http_timeout" env:"YTBOT_HTTP_TIMEOUT" validate:"gt=0"`
	DownloadTimeout time.Duration `toml:"download_timeout" yaml:"download_timeout" env:"YTBOT_DOWNLOAD_TIMEOUT" validate:"gt=0"`
	MaxResults      int           `toml:"max_results" yaml:"max_results" env:"YTBOT_MAX_RESULTS" validate:"min=1,max=5"`
}

type StorageConfig struct {
	ScratchDir    string        `toml:"scratch_dir" yaml:"scratch_dir" env:"YTBOT_SCRATCH_DIR" validate:"required"`
	ScratchTTL    time.Duration `toml:"scratch_ttl" yaml:"scratch_ttl" env:"YTBOT_SCRATCH_TTL" validate:"gt=0"`
	SweepSchedule string        `toml:"sweep_schedule" yaml:"sweep_schedule" env:"YTBOT_SWEEP_SCHEDULE" validate:"required"`
}

type SessionConfig struct {
	Backend       string        `toml:"backend" yaml:"backend" env:"YTBOT_SESSION_BACKEND" validate:"oneof=memory redis"`
	TTL           time.Duration `toml:"ttl" yaml:"ttl" env:"YTBOT_SESSION_TTL" validate:"gt=0"`
	PurgeSchedule string        `toml:"purge_schedule" yaml:"purge_schedule" env:"YTBOT_SESSION_PURGE_SCHEDULE" validate:"required"`
}

type RedisConfig struct {
	Addr      string `toml:"addr" yaml:"addr" env:"YTBOT_REDIS_ADDR"`
	Password  string `toml:"password" yaml:"password" env:"YTBOT_REDIS_PASSWORD"`
	DB        int    `toml:"db" yaml:"db" env:"YTBOT_REDIS_DB" validate:"min=0"`
	KeyPrefix string `toml:"key_prefix" yaml:"key_prefix" env:"YTBOT_REDIS_KEY_PREFIX"`
}

type CommandsConfig struct {
	Prefixes []string `toml:"prefixes" yaml:"prefixes" env:"YTBOT_COMMAND_PREFIXES" envSeparator:","`
}

// ChannelConfig declares one platform connection. Token values are expanded
// against the environment so secrets can stay out of the file.
type ChannelConfig struct {
	ID       string `toml:"id" yaml:"id" validate:"required"`
	Type     string `toml:"type" yaml:"type" validate:"required,oneof=telegram discord local"`
	BotID    string `toml:"bot_id" yaml:"bot_id"`
	Token    string `toml:"token" yaml:"token" validate:"required_unless=Type local"`
	Disabled bool   `toml:"disabled" yaml:"disabled"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Server: ServerConfig{
			Addr: DefaultHTTPAddr,
		},
		Auth: AuthConfig{
			JWTExpiresIn: DefaultJWTExpiresIn,
		},
		Video: VideoConfig{
			SearchBaseURL:   DefaultSearchBaseURL,
			ResolverBaseURL: DefaultResolverBaseURL,
			HTTPTimeout:     DefaultHTTPTimeout,
			DownloadTimeout: DefaultDownloadTimeout,
			MaxResults:      DefaultMaxResults,
		},
		Storage: StorageConfig{
			ScratchDir:    DefaultScratchDir,
			ScratchTTL:    DefaultScratchTTL,
			SweepSchedule: DefaultSweepSchedule,
		},
		Session: SessionConfig{
			Backend:       DefaultSessionBackend,
			TTL:           DefaultSessionTTL,
			PurgeSchedule: DefaultPurgeSchedule,
		},
		Redis: RedisConfig{
			Addr:      DefaultRedisAddr,
			KeyPrefix: DefaultRedisKeyPrefix,
		},
		Commands: CommandsConfig{
			Prefixes: []string{DefaultCommandPrefix},
		},
	}
}

// LoadDotEnv loads KEY=VALUE pairs from path into the process environment.
// A missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		path = DefaultDotEnvPath
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// Load reads the config file at path (TOML, or YAML by extension), applies
// YTBOT_* environment overrides and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = DefaultConfigPath
	}

	if err := decodeFile(path, &cfg); err != nil {
		return cfg, err
	}
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func decodeFile(path string, cfg *Config) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("decode yaml: %w", err)
		}
	default:
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return fmt.Errorf("decode toml: %w", err)
		}
	}
	return nil
}

func (c *Config) normalize() {
	prefixes := make([]string, 0, len(c.Commands.Prefixes))
	for _, p := range c.Commands.Prefixes {
		if p = strings.TrimSpace(p); p != "" {
			prefixes = append(prefixes, p)
		}
	}
	if len(prefixes) == 0 {
		prefixes = []string{DefaultCommandPrefix}
	}
	c.Commands.Prefixes = prefixes
	if strings.TrimSpace(c.Redis.KeyPrefix) == "" {
		c.Redis.KeyPrefix = DefaultRedisKeyPrefix
	}
	for i := range c.Channels {
		ch := &c.Channels[i]
		ch.ID = strings.TrimSpace(ch.ID)
		ch.Type = strings.ToLower(strings.TrimSpace(ch.Type))
		ch.Token = strings.TrimSpace(os.ExpandEnv(ch.Token))
		if strings.TrimSpace(ch.BotID) == "" {
			ch.BotID = DefaultBotID
		}
	}
}

var validate = validator.New()

// Validate checks field constraints and cross-field rules.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("invalid config: %s failed %q", fe.Namespace(), fe.Tag())
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Session.Backend == "redis" && strings.TrimSpace(c.Redis.Addr) == "" {
		return fmt.Errorf("invalid config: redis.addr is required for the redis session backend")
	}
	seen := map[string]struct{}{}
	for _, ch := range c.Channels {
		if _, ok := seen[ch.ID]; ok {
			return fmt.Errorf("invalid config: duplicate channel id %q", ch.ID)
		}
		seen[ch.ID] = struct{}{}
	}
	return nil
}
