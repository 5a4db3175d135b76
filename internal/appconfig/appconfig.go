package appconfig

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v2"
)

const (
	DefaultBaseURL     = "http://localhost:5000"
	DefaultTimeout     = 10 * time.Second
	DefaultInterval    = 3 * time.Second
	DefaultIdleTimeout = 30 * time.Second
	DefaultCookieName  = "studentdesk_session"
	DefaultTopic       = "persistent://public/default/student-events"
	DefaultSub         = "studentdesk"
)

// DefaultStaff is the roster used when none is configured.
var DefaultStaff = []string{"abc", "bca"}

// Config holds all configuration details
type Config struct {
	API      APIConfig      `yaml:"api"`
	Sync     SyncConfig     `yaml:"sync"`
	Staff    []string       `yaml:"staff"`
	Sessions SessionsConfig `yaml:"sessions"`
	Cookie   CookieConfig   `yaml:"cookie"`
	Pulsar   PulsarConfig   `yaml:"pulsar"`
}

// APIConfig defines the student API connection details
type APIConfig struct {
	BaseURL string        `yaml:"baseURL"`
	Timeout time.Duration `yaml:"timeout"`
}

// SyncConfig defines the polling behaviour of dashboard views
type SyncConfig struct {
	Interval    time.Duration `yaml:"interval"`
	IdleTimeout time.Duration `yaml:"idleTimeout"`
}

// SessionsConfig selects the session store. Driver is "memory" or "postgres".
type SessionsConfig struct {
	Driver string `yaml:"driver"`
	Source string `yaml:"source"`
}

type CookieConfig struct {
	Name   string `yaml:"name"`
	Secure bool   `yaml:"secure"`
}

// PulsarConfig defines the messaging system connection details.
// Change events are disabled when URL is empty.
type PulsarConfig struct {
	URL          string `yaml:"url"`
	Topic        string `yaml:"topic"`
	Subscription string `yaml:"subscription"`
}

// LoadConfig loads and parses the configuration from a given file path.
// A .env file in the same directory is loaded into the environment first.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		err := errors.New("config file path is required")
		log.Error().Err(err).Msg("config file not provided")
		return nil, err
	}

	envFile := filepath.Join(filepath.Dir(path), ".env")
	if _, err := os.Stat(envFile); err == nil {
		if err := godotenv.Load(envFile); err != nil {
			log.Error().Err(err).Str("file", envFile).Msg("error loading env file")
			return nil, err
		}
	}

	// Parse the template file
	tmpl, err := template.ParseFiles(path)
	if err != nil {
		log.Error().Err(err).Msg("error parsing config file template")
		return nil, err
	}

	// Execute the template with environment variables
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, loadEnvVars()); err != nil {
		log.Error().Err(err).Msg("error executing config file template")
		return nil, err
	}

	// Load and unmarshal the YAML
	var config Config
	if err := yaml.Unmarshal(buf.Bytes(), &config); err != nil {
		log.Error().Err(err).Msg("failed to unmarshal config YAML")
		return nil, err
	}

	config.applyDefaults()
	return &config, nil
}

// Default returns a configuration with every default applied.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

func (c *Config) applyDefaults() {
	if c.API.BaseURL == "" {
		c.API.BaseURL = DefaultBaseURL
	}
	if c.API.Timeout <= 0 {
		c.API.Timeout = DefaultTimeout
	}
	if c.Sync.Interval <= 0 {
		c.Sync.Interval = DefaultInterval
	}
	if c.Sync.IdleTimeout <= 0 {
		c.Sync.IdleTimeout = DefaultIdleTimeout
	}
	if len(c.Staff) == 0 {
		c.Staff = append([]string(nil), DefaultStaff...)
	}
	if c.Sessions.Driver == "" {
		c.Sessions.Driver = "memory"
	}
	if c.Cookie.Name == "" {
		c.Cookie.Name = DefaultCookieName
	}
	if c.Pulsar.Topic == "" {
		c.Pulsar.Topic = DefaultTopic
	}
	if c.Pulsar.Subscription == "" {
		c.Pulsar.Subscription = DefaultSub
	}
}

// loadEnvVars loads environment variables into a map
func loadEnvVars() map[string]string {
	envVars := make(map[string]string)
	for _, env := range os.Environ() {
		kv := strings.SplitN(env, "=", 2)
		if len(kv) == 2 {
			envVars[kv[0]] = kv[1]
		}
	}
	return envVars
}
