package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/MegaGrindStone/sentichat/internal/models"
	"github.com/MegaGrindStone/sentichat/internal/services"
	"github.com/MegaGrindStone/sentichat/internal/theme"
	"gopkg.in/yaml.v3"
)

type preferenceStore interface {
	theme.Store
	io.Closer
}

type preferencesConfig interface {
	store(ctx context.Context, cfgDir string) (preferenceStore, error)
}

type config struct {
	Port        string            `yaml:"port"`
	LogLevel    string            `yaml:"logLevel"`
	Sentiment   sentimentConfig   `yaml:"sentiment"`
	Chat        chatConfig        `yaml:"chat"`
	Theme       themeConfig       `yaml:"theme"`
	Preferences preferencesConfig `yaml:"preferences"`
}

type sentimentConfig struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
}

type chatConfig struct {
	MaxMessages int `yaml:"maxMessages"`
}

type themeConfig struct {
	Default string `yaml:"default"`
}

type boltConfig struct {
	Path string `yaml:"path"`
}

type redisConfig struct {
	URL    string `yaml:"url"`
	Prefix string `yaml:"prefix"`
}

const defaultPort = "8080"

func defaultConfig() config {
	return config{
		Port: defaultPort,
		Sentiment: sentimentConfig{
			URL: services.DefaultSentimentEndpoint,
		},
		Theme: themeConfig{
			Default: string(models.ThemeLight),
		},
		Preferences: &boltConfig{},
	}
}

// loadConfig reads the config file at path on top of the defaults. A missing file is not an
// error.
func loadConfig(path string) (config, error) {
	cfg := defaultConfig()

	cfgFile, err := os.Open(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return config{}, fmt.Errorf("error opening config file: %w", err)
	}
	defer cfgFile.Close()

	if err := yaml.NewDecoder(cfgFile).Decode(&cfg); err != nil && err != io.EOF {
		return config{}, fmt.Errorf("error decoding config file: %w", err)
	}
	return cfg, nil
}

func (c *config) UnmarshalYAML(value *yaml.Node) error {
	var rawConfig struct {
		Port        string          `yaml:"port"`
		LogLevel    string          `yaml:"logLevel"`
		Sentiment   sentimentConfig `yaml:"sentiment"`
		Chat        chatConfig      `yaml:"chat"`
		Theme       themeConfig     `yaml:"theme"`
		Preferences map[string]any  `yaml:"preferences"`
	}

	// Start from the current values so absent keys keep their defaults.
	rawConfig.Port = c.Port
	rawConfig.LogLevel = c.LogLevel
	rawConfig.Sentiment = c.Sentiment
	rawConfig.Chat = c.Chat
	rawConfig.Theme = c.Theme

	if err := value.Decode(&rawConfig); err != nil {
		return err
	}

	c.Port = rawConfig.Port
	c.LogLevel = rawConfig.LogLevel
	c.Sentiment = rawConfig.Sentiment
	c.Chat = rawConfig.Chat
	c.Theme = rawConfig.Theme

	if rawConfig.Preferences == nil {
		if c.Preferences == nil {
			c.Preferences = &boltConfig{}
		}
		return nil
	}

	backend, _ := rawConfig.Preferences["backend"].(string)
	delete(rawConfig.Preferences, "backend")

	prefsRawYAML, err := yaml.Marshal(rawConfig.Preferences)
	if err != nil {
		return err
	}

	var prefs preferencesConfig
	switch backend {
	case "", "bolt":
		prefs = &boltConfig{}
	case "redis":
		prefs = &redisConfig{}
	default:
		return fmt.Errorf("unknown preferences backend: %s", backend)
	}

	if err := yaml.Unmarshal(prefsRawYAML, prefs); err != nil {
		return err
	}

	c.Preferences = prefs

	return nil
}

// applyEnv overrides the file settings with the environment.
func (c *config) applyEnv() {
	if port := os.Getenv("PORT"); port != "" {
		c.Port = port
	}
	if url := os.Getenv("SENTIMENT_API_URL"); url != "" {
		c.Sentiment.URL = url
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		c.LogLevel = level
	}
	if url := os.Getenv("REDIS_URL"); url != "" {
		prefix := ""
		if rc, ok := c.Preferences.(*redisConfig); ok {
			prefix = rc.Prefix
		}
		c.Preferences = &redisConfig{URL: url, Prefix: prefix}
	}
}

func (c config) defaultTheme() (models.Theme, error) {
	if c.Theme.Default == "" {
		return models.ThemeLight, nil
	}
	t, err := models.ParseTheme(c.Theme.Default)
	if err != nil {
		return "", fmt.Errorf("invalid default theme: %w", err)
	}
	return t, nil
}

func (c config) logLevel() (slog.Level, error) {
	var level slog.Level
	if c.LogLevel == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(strings.ToUpper(c.LogLevel))); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q: %w", c.LogLevel, err)
	}
	return level, nil
}

func (b boltConfig) store(_ context.Context, cfgDir string) (preferenceStore, error) {
	path := b.Path
	if path == "" {
		path = filepath.Join(cfgDir, "store.db")
	}
	db, err := services.NewBoltDB(path)
	if err != nil {
		return nil, err
	}
	return db, nil
}

func (r redisConfig) store(ctx context.Context, _ string) (preferenceStore, error) {
	if r.URL == "" {
		return nil, fmt.Errorf("redis url is required")
	}
	rdb, err := services.NewRedis(ctx, r.URL, r.Prefix)
	if err != nil {
		return nil, err
	}
	return rdb, nil
}
