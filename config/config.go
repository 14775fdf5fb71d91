// Package config loads wallet harness configuration from YAML with
// environment variable overrides.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/evmkit/walletsession/chains"
	"github.com/evmkit/walletsession/types"
)

// Config represents the harness configuration.
type Config struct {
	Session       SessionConfig       `mapstructure:"session"`
	Injected      InjectedConfig      `mapstructure:"injected"`
	WalletConnect WalletConnectConfig `mapstructure:"walletconnect"`
	Metrics       MetricsConfig       `mapstructure:"metrics"`
	Logging       LoggingConfig       `mapstructure:"logging"`
	Chains        []chains.Config     `mapstructure:"chains"`
}

// SessionConfig contains session controller settings.
type SessionConfig struct {
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	SwitchTimeout  time.Duration `mapstructure:"switch_timeout"`
	SettleDelay    time.Duration `mapstructure:"settle_delay"`
	ChainMismatch  string        `mapstructure:"chain_mismatch"`
	EstimateGas    bool          `mapstructure:"estimate_gas"`
}

// InjectedConfig contains settings for the locally reachable wallet endpoint.
type InjectedConfig struct {
	RPCURL       string        `mapstructure:"rpc_url"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
}

// WalletConnectConfig contains WalletConnect pairing settings.
type WalletConnectConfig struct {
	ProjectID string `mapstructure:"project_id"`
	RelayURL  string `mapstructure:"relay_url"`
	AppName   string `mapstructure:"app_name"`
	AppURL    string `mapstructure:"app_url"`
}

// MetricsConfig contains metrics exposition settings.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

// Load loads configuration from file and environment variables. Each call
// works on its own viper instance, so repeated loads do not see each other's
// state.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("session.connect_timeout", "30s")
	v.SetDefault("session.switch_timeout", "5s")
	v.SetDefault("session.settle_delay", "1s")
	v.SetDefault("session.chain_mismatch", "fail")
	v.SetDefault("session.estimate_gas", false)

	v.SetDefault("injected.poll_interval", "4s")

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.port", 9090)

	v.SetDefault("logging.level", "info")
}

func validate(config *Config) error {
	switch config.Session.ChainMismatch {
	case "fail", "adopt":
	default:
		return fmt.Errorf("session.chain_mismatch must be \"fail\" or \"adopt\", got %q",
			config.Session.ChainMismatch)
	}
	if config.Injected.RPCURL == "" && config.WalletConnect.ProjectID == "" {
		return fmt.Errorf("either injected.rpc_url or walletconnect.project_id is required")
	}
	return nil
}

// MismatchPolicy maps the configured mismatch mode to its typed value.
func (c *Config) MismatchPolicy() types.ChainMismatchPolicy {
	if c.Session.ChainMismatch == "adopt" {
		return types.MismatchAdopt
	}
	return types.MismatchFail
}

// ChainRegistry builds a chain registry from the built-in defaults overlaid
// with the configured chain entries.
func (c *Config) ChainRegistry() (*chains.Registry, error) {
	reg := chains.DefaultRegistry()
	for _, cfg := range c.Chains {
		if err := reg.Register(cfg); err != nil {
			return nil, err
		}
	}
	return reg, nil
}
