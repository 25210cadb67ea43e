package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"github.com/yuuki-launcher/yuuki-core/internal/domain"
	"github.com/yuuki-launcher/yuuki-core/internal/logging"
)

// TokenStoreType selects where issued tokens are kept across restarts.
type TokenStoreType string

const (
	TokenStoreNone    TokenStoreType = "none"
	TokenStoreKeyring TokenStoreType = "keyring"
	TokenStorePass    TokenStoreType = "pass"
	TokenStoreChain   TokenStoreType = "chain"
)

const (
	EnvPrefix      = "YUUKI"
	configDirName  = "yuuki"
	configFileName = "config.toml"
)

// Default configuration values
const (
	DefaultLogLevel              = logging.DefaultLevel
	DefaultLogFormat             = logging.FormatJSON
	DefaultTokenStore            = TokenStoreNone
	DefaultKeyringService        = "yuuki"
	DefaultRetryMaxAttempts uint = 3
	DefaultRetryInitial          = 100 * time.Millisecond
	DefaultRetryMax              = time.Second
)

type LogConfig struct {
	Level  string         `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format logging.Format `mapstructure:"format" validate:"oneof=json console"`
}

type AccountsConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

type TokensConfig struct {
	Store TokenStoreType `mapstructure:"store" validate:"required,oneof=none keyring pass chain"`
	// KeyringService is the service name entries are filed under in the OS keyring.
	KeyringService string `mapstructure:"keyring_service"`
}

// RetryConfig bounds how hard the account store write is retried.
type RetryConfig struct {
	MaxAttempts     uint          `mapstructure:"max_attempts" validate:"min=1,max=10"`
	InitialInterval time.Duration `mapstructure:"initial_interval"`
	MaxInterval     time.Duration `mapstructure:"max_interval"`
}

// ProviderConfig describes an RFC 8628 identity provider. Providers without an
// entry fall back to the local device login flow.
type ProviderConfig struct {
	Name          string   `mapstructure:"name" validate:"required"`
	ClientID      string   `mapstructure:"client_id" validate:"required"`
	DeviceAuthURL string   `mapstructure:"device_auth_url" validate:"required,url"`
	TokenURL      string   `mapstructure:"token_url" validate:"required,url"`
	ProfileURL    string   `mapstructure:"profile_url" validate:"omitempty,url"`
	Scopes        []string `mapstructure:"scopes"`
}

type Config struct {
	Log       LogConfig        `mapstructure:"log"`
	Accounts  AccountsConfig   `mapstructure:"accounts"`
	Tokens    TokensConfig     `mapstructure:"tokens"`
	Retry     RetryConfig      `mapstructure:"retry"`
	Providers []ProviderConfig `mapstructure:"providers" validate:"dive"`
}

// Default creates a new Config with default values applied.
func Default() (*Config, error) {
	cfg := &Config{}
	if err := cfg.ApplyDefaults(); err != nil {
		return nil, fmt.Errorf("apply config defaults: %w", err)
	}
	return cfg, nil
}

// ApplyDefaults fills unset fields. The accounts path is derived from the user
// config directory, so it can fail on hosts without one.
func (c *Config) ApplyDefaults() error {
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	c.Log.Level = strings.ToLower(c.Log.Level)
	if c.Log.Format == "" {
		c.Log.Format = DefaultLogFormat
	}
	if c.Tokens.Store == "" {
		c.Tokens.Store = DefaultTokenStore
	}
	if c.Tokens.KeyringService == "" {
		c.Tokens.KeyringService = DefaultKeyringService
	}
	if c.Retry.MaxAttempts == 0 {
		c.Retry.MaxAttempts = DefaultRetryMaxAttempts
	}
	if c.Retry.InitialInterval == 0 {
		c.Retry.InitialInterval = DefaultRetryInitial
	}
	if c.Retry.MaxInterval == 0 {
		c.Retry.MaxInterval = DefaultRetryMax
	}
	for i := range c.Providers {
		c.Providers[i].Name = strings.ToLower(strings.TrimSpace(c.Providers[i].Name))
	}

	if strings.TrimSpace(c.Accounts.Path) == "" {
		configDir, err := os.UserConfigDir()
		if err != nil {
			return fmt.Errorf("%w: accounts.path required (auto-detect failed: %w)", domain.ErrConfigIO, err)
		}
		c.Accounts.Path = filepath.Join(configDir, configDirName, "accounts.toml")
	}

	return nil
}

func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrConfigParse, err)
	}

	if c.Retry.MaxInterval < c.Retry.InitialInterval {
		return fmt.Errorf("%w: retry.max_interval %s is shorter than retry.initial_interval %s",
			domain.ErrConfigParse, c.Retry.MaxInterval, c.Retry.InitialInterval)
	}

	seen := make(map[string]struct{}, len(c.Providers))
	for _, provider := range c.Providers {
		if _, ok := seen[provider.Name]; ok {
			return fmt.Errorf("%w: provider %q configured twice", domain.ErrConfigParse, provider.Name)
		}
		seen[provider.Name] = struct{}{}
	}

	return nil
}

// DefaultPath is <user config dir>/yuuki/config.toml.
func DefaultPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("%w: resolve user config dir: %w", domain.ErrConfigIO, err)
	}

	return filepath.Join(configDir, configDirName, configFileName), nil
}

// NewViper reads the config file at path (or DefaultPath when empty) with
// YUUKI_* environment overrides. A missing file yields defaults only.
func NewViper(path string) (*viper.Viper, error) {
	if strings.TrimSpace(path) == "" {
		defaultPath, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = defaultPath
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Unmarshal only sees env overrides for keys viper already knows about.
	v.SetDefault("log.level", DefaultLogLevel)
	v.SetDefault("log.format", string(DefaultLogFormat))
	v.SetDefault("accounts.path", "")
	v.SetDefault("tokens.store", string(DefaultTokenStore))
	v.SetDefault("tokens.keyring_service", DefaultKeyringService)
	v.SetDefault("retry.max_attempts", DefaultRetryMaxAttempts)
	v.SetDefault("retry.initial_interval", DefaultRetryInitial)
	v.SetDefault("retry.max_interval", DefaultRetryMax)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		var parseErr viper.ConfigParseError
		switch {
		case errors.As(err, &notFound), errors.Is(err, fs.ErrNotExist):
		case errors.As(err, &parseErr):
			return nil, fmt.Errorf("%w: read config %s: %w", domain.ErrConfigParse, path, err)
		default:
			return nil, fmt.Errorf("%w: read config %s: %w", domain.ErrConfigIO, path, err)
		}
	}

	return v, nil
}

// Load decodes v into a Config, applies defaults and validates it.
func Load(v *viper.Viper) (*Config, error) {
	if v == nil {
		v = viper.New()
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("%w: decode config: %w", domain.ErrConfigParse, err)
	}
	if err := cfg.ApplyDefaults(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}
