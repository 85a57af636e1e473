// Package config loads and persists ytscout settings the XDG way: a TOML
// file under the user config directory, seeded from an embedded default on
// first run, with environment overrides.
package config

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"
)

//go:embed config.toml
var defaultFS embed.FS

const appName = "ytscout"

// Config holds application settings.
type Config struct {
	// User configurable settings
	OpenAIAPIKey   string
	YouTubeAPIKey  string
	Model          string
	OutputDir      string
	TranscriptsDir string
	MaxResults     int
	Languages      []string
	ScrapeInterval time.Duration
	LLMTimeout     time.Duration
	Verbose        bool
	Quiet          bool
	Prompt         string

	// Fixed XDG paths (not configurable)
	ConfigDir string
	DataDir   string
	CacheDir  string
	LogDir    string
}

// EnsureDefaultConfig writes the embedded default config.toml into configDir
// if no config file exists there yet.
func EnsureDefaultConfig(configDir string) error {
	path := filepath.Join(configDir, "config.toml")
	if fileExists(path) {
		return nil
	}
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	content, err := defaultFS.ReadFile("config.toml")
	if err != nil {
		return fmt.Errorf("reading embedded default configuration: %w", err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return fmt.Errorf("writing default configuration: %w", err)
	}
	return nil
}

// Init loads configuration from the standard XDG locations.
func Init() (*Config, error) {
	configDir := filepath.Join(xdg.ConfigHome, appName)
	return Load(configDir)
}

// Load reads configuration from configDir, applying defaults and environment
// overrides. Fixed directories are derived from XDG regardless of configDir so
// cache and data stay in their standard locations.
func Load(configDir string) (*Config, error) {
	dataDir := filepath.Join(xdg.DataHome, appName)
	cacheDir := filepath.Join(xdg.CacheHome, appName)
	logDir := filepath.Join(xdg.StateHome, appName)

	v := viper.New()

	v.SetDefault("model", "gpt-4o-mini")
	v.SetDefault("output_dir", filepath.Join(dataDir, "reports"))
	v.SetDefault("transcripts_dir", filepath.Join(dataDir, "transcripts"))
	v.SetDefault("max_results", 5)
	v.SetDefault("languages", []string{"en"})
	v.SetDefault("scrape_interval", 3*time.Second)
	v.SetDefault("llm_timeout", 2*time.Minute)
	v.SetDefault("verbose", false)
	v.SetDefault("quiet", false)
	v.SetDefault("prompt", "")

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	v.SetEnvPrefix("YTSCOUT")
	v.AutomaticEnv()

	// API keys are commonly exported under their vendor names.
	_ = v.BindEnv("openai_api_key", "OPENAI_API_KEY")
	_ = v.BindEnv("youtube_api_key", "YOUTUBE_API_KEY")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	cfg := &Config{
		OpenAIAPIKey:   v.GetString("openai_api_key"),
		YouTubeAPIKey:  v.GetString("youtube_api_key"),
		Model:          v.GetString("model"),
		OutputDir:      v.GetString("output_dir"),
		TranscriptsDir: v.GetString("transcripts_dir"),
		MaxResults:     v.GetInt("max_results"),
		Languages:      v.GetStringSlice("languages"),
		ScrapeInterval: v.GetDuration("scrape_interval"),
		LLMTimeout:     v.GetDuration("llm_timeout"),
		Verbose:        v.GetBool("verbose"),
		Quiet:          v.GetBool("quiet"),
		Prompt:         v.GetString("prompt"),

		ConfigDir: configDir,
		DataDir:   dataDir,
		CacheDir:  cacheDir,
		LogDir:    logDir,
	}

	return cfg, nil
}

// Save persists the user-configurable settings back to configDir/config.toml.
func (c *Config) Save() error {
	if err := os.MkdirAll(c.ConfigDir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigType("toml")
	v.Set("openai_api_key", c.OpenAIAPIKey)
	v.Set("youtube_api_key", c.YouTubeAPIKey)
	v.Set("model", c.Model)
	v.Set("output_dir", c.OutputDir)
	v.Set("transcripts_dir", c.TranscriptsDir)
	v.Set("max_results", c.MaxResults)
	v.Set("languages", c.Languages)
	v.Set("scrape_interval", c.ScrapeInterval.String())
	v.Set("llm_timeout", c.LLMTimeout.String())
	v.Set("verbose", c.Verbose)
	v.Set("quiet", c.Quiet)
	v.Set("prompt", c.Prompt)

	path := filepath.Join(c.ConfigDir, "config.toml")
	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// EnsureDirs creates the directories ytscout writes to.
func (c *Config) EnsureDirs() error {
	for _, dir := range []string{c.ConfigDir, c.DataDir, c.CacheDir, c.LogDir, c.OutputDir, c.TranscriptsDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating directory %s: %w", dir, err)
		}
	}
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}
