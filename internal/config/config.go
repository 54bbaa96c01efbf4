// Package config loads configs/config.yml with CO2_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const envPrefix = "CO2"

type Config struct {
	Port string    `mapstructure:"port"`
	Log  LogConfig `mapstructure:"log"`
	DB   DBConfig  `mapstructure:"db"`

	Netatmo NetatmoConfig `mapstructure:"netatmo"`
	Agent   AgentConfig   `mapstructure:"agent"`
	Notify  NotifyConfig  `mapstructure:"notify"`
	API     APIConfig     `mapstructure:"api"`
	Auth    AuthConfig    `mapstructure:"auth"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type DBConfig struct {
	Path string `mapstructure:"path"`
}

type NetatmoConfig struct {
	ClientID     string        `mapstructure:"client_id"`
	ClientSecret string        `mapstructure:"client_secret"`
	RedirectURI  string        `mapstructure:"redirect_uri"`
	APIBase      string        `mapstructure:"api_base"`
	Scopes       []string      `mapstructure:"scopes"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

type AgentConfig struct {
	MaxRefreshAttempts int           `mapstructure:"max_refresh_attempts"`
	ProbeAddr          string        `mapstructure:"probe_addr"`
	ProbeInterval      time.Duration `mapstructure:"probe_interval"`
}

type NotifyConfig struct {
	WebhookURL   string `mapstructure:"webhook_url"`
	AMQPURL      string `mapstructure:"amqp_url"`
	AMQPQueue    string `mapstructure:"amqp_queue"`
	MQTTBroker   string `mapstructure:"mqtt_broker"`
	MQTTTopic    string `mapstructure:"mqtt_topic"`
	MQTTClientID string `mapstructure:"mqtt_client_id"`
}

type APIConfig struct {
	// KeyHash is a bcrypt hash. Empty leaves /api/v1 open.
	KeyHash string `mapstructure:"key_hash"`
}

type AuthConfig struct {
	StateSecret string        `mapstructure:"state_secret"`
	StateTTL    time.Duration `mapstructure:"state_ttl"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("db.path", "co2_monitor.db")
	v.SetDefault("netatmo.client_id", "")
	v.SetDefault("netatmo.client_secret", "")
	v.SetDefault("netatmo.redirect_uri", "")
	v.SetDefault("netatmo.api_base", "https://api.netatmo.com/")
	v.SetDefault("netatmo.scopes", []string{"read_station", "read_homecoach"})
	v.SetDefault("netatmo.timeout", 30*time.Second)
	v.SetDefault("agent.max_refresh_attempts", 10)
	v.SetDefault("agent.probe_addr", "api.netatmo.com:443")
	v.SetDefault("agent.probe_interval", 30*time.Second)
	v.SetDefault("notify.webhook_url", "")
	v.SetDefault("notify.amqp_url", "")
	v.SetDefault("notify.amqp_queue", "co2.notifications")
	v.SetDefault("notify.mqtt_broker", "")
	v.SetDefault("notify.mqtt_topic", "co2/notifications")
	v.SetDefault("notify.mqtt_client_id", "co2_monitor")
	v.SetDefault("api.key_hash", "")
	v.SetDefault("auth.state_secret", "")
	v.SetDefault("auth.state_ttl", 10*time.Minute)
}

// Load reads config.yml from the given directories (configs/ by default).
// A missing file is not an error; defaults and environment still apply.
func Load(paths ...string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yml")
	if len(paths) == 0 {
		paths = []string{"configs"}
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// Validate checks what the agent cannot start without.
func (c Config) Validate() error {
	var errs []error
	if c.Netatmo.ClientID == "" {
		errs = append(errs, errors.New("netatmo.client_id is required"))
	}
	if c.Netatmo.ClientSecret == "" {
		errs = append(errs, errors.New("netatmo.client_secret is required"))
	}
	if c.Auth.StateSecret == "" {
		errs = append(errs, errors.New("auth.state_secret is required"))
	}
	if c.Notify.AMQPURL != "" && c.Notify.AMQPQueue == "" {
		errs = append(errs, errors.New("notify.amqp_queue is required with notify.amqp_url"))
	}
	if c.Notify.MQTTBroker != "" && c.Notify.MQTTTopic == "" {
		errs = append(errs, errors.New("notify.mqtt_topic is required with notify.mqtt_broker"))
	}
	return errors.Join(errs...)
}
