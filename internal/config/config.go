package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

const (
	KeyN8NBaseURL           = "n8n_base_url"
	KeyN8NAPIKey            = "n8n_api_key"
	KeyClickUpToken         = "clickup_api_token"
	KeyClickUpBaseURL       = "clickup_base_url"
	KeyClickUpTeamID        = "clickup_team_id"
	KeyClickUpListID        = "clickup_list_id"
	KeyClickUpSessionTaskID = "clickup_session_task_id"
	KeyGoogleClientID       = "google_client_id"
	KeyGoogleClientSecret   = "google_client_secret"
	KeyGoogleTokenFile      = "google_token_file"
	KeyCanvaClientID        = "canva_client_id"
	KeyCanvaClientSecret    = "canva_client_secret"
	KeyCanvaTokenFile       = "canva_token_file"
	KeyRedisURL             = "redis_url"
	KeySlackWebhookURL      = "slack_webhook_url"
	KeySlackBotToken        = "slack_bot_token"
	KeySlackChannel         = "slack_channel"
	KeyWebhookSecret        = "webhook_secret"
	KeyClickUpWebhookSecret = "clickup_webhook_secret"
	KeyHTTPAddress          = "http_address"
	KeyTimezone             = "timezone"
)

// Config holds every setting opsflow reads. Each key is read from the
// environment variable of the same name in upper case, from a .env file in
// the working directory or from opsflow.yaml, in that order of precedence.
type Config struct {
	N8NBaseURL string `mapstructure:"n8n_base_url"`
	N8NAPIKey  string `mapstructure:"n8n_api_key"`

	ClickUpToken         string `mapstructure:"clickup_api_token"`
	ClickUpBaseURL       string `mapstructure:"clickup_base_url"`
	ClickUpTeamID        string `mapstructure:"clickup_team_id"`
	ClickUpListID        string `mapstructure:"clickup_list_id"`
	ClickUpSessionTaskID string `mapstructure:"clickup_session_task_id"`

	GoogleClientID     string `mapstructure:"google_client_id"`
	GoogleClientSecret string `mapstructure:"google_client_secret"`
	GoogleTokenFile    string `mapstructure:"google_token_file"`

	CanvaClientID     string `mapstructure:"canva_client_id"`
	CanvaClientSecret string `mapstructure:"canva_client_secret"`
	CanvaTokenFile    string `mapstructure:"canva_token_file"`

	RedisURL string `mapstructure:"redis_url"`

	SlackWebhookURL string `mapstructure:"slack_webhook_url"`
	SlackBotToken   string `mapstructure:"slack_bot_token"`
	SlackChannel    string `mapstructure:"slack_channel"`

	WebhookSecret        string `mapstructure:"webhook_secret"`
	ClickUpWebhookSecret string `mapstructure:"clickup_webhook_secret"`
	HTTPAddress          string `mapstructure:"http_address"`
	Timezone             string `mapstructure:"timezone"`
}

var keys = []string{
	KeyN8NBaseURL, KeyN8NAPIKey,
	KeyClickUpToken, KeyClickUpBaseURL, KeyClickUpTeamID, KeyClickUpListID, KeyClickUpSessionTaskID,
	KeyGoogleClientID, KeyGoogleClientSecret, KeyGoogleTokenFile,
	KeyCanvaClientID, KeyCanvaClientSecret, KeyCanvaTokenFile,
	KeyRedisURL,
	KeySlackWebhookURL, KeySlackBotToken, KeySlackChannel,
	KeyWebhookSecret, KeyClickUpWebhookSecret, KeyHTTPAddress, KeyTimezone,
}

type LoadOptions struct {
	// ConfigFile is an explicit yaml file. When empty opsflow.yaml is looked
	// up in the working directory and in $HOME/.opsflow.
	ConfigFile string
	// EnvFile defaults to .env in the working directory.
	EnvFile string
}

func Load(opts LoadOptions) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	for _, key := range keys {
		if err := v.BindEnv(key, EnvName(key)); err != nil {
			log.Warn().Err(err).Msgf("Failed to bind environment variable %s", EnvName(key))
		}
	}

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
	} else {
		v.SetConfigName("opsflow")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.opsflow")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		log.Debug().Msg("Config file not found, using environment variables and defaults")
	} else {
		log.Debug().Msgf("Using config file: %s", v.ConfigFileUsed())
	}

	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}

	if err := mergeEnvFile(v, envFile); err != nil {
		return nil, err
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	return &config, nil
}

// mergeEnvFile reads KEY=value lines on top of the yaml file. Real
// environment variables still win because they are bound explicitly.
func mergeEnvFile(v *viper.Viper, path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("error reading %s: %w", path, err)
	}

	dotenv := viper.New()
	dotenv.SetConfigFile(path)
	dotenv.SetConfigType("env")

	if err := dotenv.ReadInConfig(); err != nil {
		return fmt.Errorf("error reading %s: %w", path, err)
	}

	if err := v.MergeConfigMap(dotenv.AllSettings()); err != nil {
		return fmt.Errorf("error merging %s: %w", path, err)
	}

	log.Debug().Str("path", path).Msg("Loaded env file")

	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(KeyHTTPAddress, ":8081")
	v.SetDefault(KeyClickUpBaseURL, "https://api.clickup.com/api/v2")
	v.SetDefault(KeyTimezone, "America/Los_Angeles")
	v.SetDefault(KeyGoogleTokenFile, "google_token.json")
	v.SetDefault(KeyCanvaTokenFile, "canva_token.json")
}

func EnvName(key string) string {
	return strings.ToUpper(key)
}

func (c *Config) values() map[string]string {
	return map[string]string{
		KeyN8NBaseURL:           c.N8NBaseURL,
		KeyN8NAPIKey:            c.N8NAPIKey,
		KeyClickUpToken:         c.ClickUpToken,
		KeyClickUpBaseURL:       c.ClickUpBaseURL,
		KeyClickUpTeamID:        c.ClickUpTeamID,
		KeyClickUpListID:        c.ClickUpListID,
		KeyClickUpSessionTaskID: c.ClickUpSessionTaskID,
		KeyGoogleClientID:       c.GoogleClientID,
		KeyGoogleClientSecret:   c.GoogleClientSecret,
		KeyGoogleTokenFile:      c.GoogleTokenFile,
		KeyCanvaClientID:        c.CanvaClientID,
		KeyCanvaClientSecret:    c.CanvaClientSecret,
		KeyCanvaTokenFile:       c.CanvaTokenFile,
		KeyRedisURL:             c.RedisURL,
		KeySlackWebhookURL:      c.SlackWebhookURL,
		KeySlackBotToken:        c.SlackBotToken,
		KeySlackChannel:         c.SlackChannel,
		KeyWebhookSecret:        c.WebhookSecret,
		KeyClickUpWebhookSecret: c.ClickUpWebhookSecret,
		KeyHTTPAddress:          c.HTTPAddress,
		KeyTimezone:             c.Timezone,
	}
}

// Require fails with the environment variable names of every key that is
// empty. Commands call it with the keys they need.
func (c *Config) Require(keys ...string) error {
	values := c.values()

	var missingVars []string
	for _, key := range keys {
		if strings.TrimSpace(values[key]) == "" {
			missingVars = append(missingVars, EnvName(key))
		}
	}

	if len(missingVars) > 0 {
		sort.Strings(missingVars)
		return fmt.Errorf("missing required environment variables: %s", strings.Join(missingVars, ", "))
	}

	return nil
}

func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.UTC, nil
	}

	location, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", EnvName(KeyTimezone), err)
	}

	return location, nil
}

// Summary lists every key with secrets masked, for `opsflow status`.
func (c *Config) Summary() map[string]string {
	summary := map[string]string{}

	for key, value := range c.values() {
		switch {
		case value == "":
			summary[EnvName(key)] = "(unset)"
		case isSecret(key):
			summary[EnvName(key)] = "(set)"
		default:
			summary[EnvName(key)] = value
		}
	}

	return summary
}

func isSecret(key string) bool {
	for _, marker := range []string{"key", "token", "secret", "webhook_url"} {
		if strings.Contains(key, marker) && !strings.HasSuffix(key, "_file") {
			return true
		}
	}
	return false
}
