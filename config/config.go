// Package config loads conduit settings from defaults, an optional
// file, and CONDUIT_ environment variables.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix starts every environment override.  For example,
// CONDUIT_API_BASE_URL sets api.base_url.
const EnvPrefix = "CONDUIT"

// Config holds everything a host needs.
type Config struct {
	API      APIConfig
	Storage  StorageConfig
	IO       string
	WS       WSConfig
	MQTT     MQTTConfig
	Schedule ScheduleConfig
	Log      LogConfig
}

type APIConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// StorageConfig selects the token store.  Driver is memory, bolt, or
// sqlite.
type StorageConfig struct {
	Driver string `mapstructure:"driver"`
	Path   string `mapstructure:"path"`
}

type WSConfig struct {
	Addr string `mapstructure:"addr"`
}

type MQTTConfig struct {
	Broker    string        `mapstructure:"broker"`
	ClientID  string        `mapstructure:"client_id"`
	InTopic   string        `mapstructure:"in_topic"`
	OutTopic  string        `mapstructure:"out_topic"`
	KeepAlive time.Duration `mapstructure:"keep_alive"`
}

// ScheduleConfig has cron expressions for periodic events.  Empty
// means never.
type ScheduleConfig struct {
	Refresh string `mapstructure:"refresh"`
}

type LogConfig struct {
	V int `mapstructure:"v"`
}

// Drivers and couplings that Validate accepts.
var (
	Drivers   = []string{"memory", "bolt", "sqlite"}
	Couplings = []string{"std", "ws", "mqtt"}
)

func defaults(v *viper.Viper) {
	v.SetDefault("api.base_url", "https://conduit.productionready.io/api")
	v.SetDefault("api.timeout", 30*time.Second)
	v.SetDefault("storage.driver", "memory")
	v.SetDefault("storage.path", "conduit.db")
	v.SetDefault("io", "std")
	v.SetDefault("ws.addr", "localhost:8080")
	v.SetDefault("mqtt.broker", "tcp://localhost:1883")
	v.SetDefault("mqtt.client_id", "conduit")
	v.SetDefault("mqtt.in_topic", "conduit/in")
	v.SetDefault("mqtt.out_topic", "conduit/out")
	v.SetDefault("mqtt.keep_alive", 10*time.Minute)
	v.SetDefault("schedule.refresh", "")
	v.SetDefault("log.v", 0)
}

// Load reads the configuration.  An empty filename means
// $CONDUIT_CONFIG or, failing that, an optional conduit.{yaml,toml,json}
// in the working directory.
func Load(filename string) (Config, error) {
	v := viper.New()
	defaults(v)

	if filename == "" {
		filename = os.Getenv(EnvPrefix + "_CONFIG")
	}

	explicit := filename != ""
	if explicit {
		v.SetConfigFile(filename)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("conduit")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, missing := err.(viper.ConfigFileNotFoundError); explicit || !missing {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate checks the enumerated settings.
func (c Config) Validate() error {
	if !oneOf(c.Storage.Driver, Drivers) {
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	if !oneOf(c.IO, Couplings) {
		return fmt.Errorf("unknown io %q", c.IO)
	}
	if c.API.Timeout < 0 {
		return fmt.Errorf("negative api timeout %v", c.API.Timeout)
	}
	return nil
}

func oneOf(s string, ss []string) bool {
	for _, x := range ss {
		if s == x {
			return true
		}
	}
	return false
}
