// Package config loads and validates the ambuassist configuration file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"ambuassist/internal/logging"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all ambuassist configuration.
type Config struct {
	// Scope is the clinic ("ambulatorio") every remote call is scoped to.
	Scope string `yaml:"scope" validate:"required"`

	API     APIConfig     `yaml:"api"`
	Speech  SpeechConfig  `yaml:"speech"`
	UI      UIConfig      `yaml:"ui"`
	Cache   CacheConfig   `yaml:"cache"`
	Logging LoggingConfig `yaml:"logging"`
}

// APIConfig configures the remote assistant service.
type APIConfig struct {
	BaseURL string `yaml:"base_url" validate:"required,url"`
	Token   string `yaml:"token"`
	Timeout string `yaml:"timeout"`
}

// SpeechConfig configures the speech capabilities.
type SpeechConfig struct {
	Language    string            `yaml:"language" validate:"required"`
	Recognition RecognitionConfig `yaml:"recognition"`
	Synthesis   SynthesisConfig   `yaml:"synthesis"`
}

// RecognitionConfig configures speech-to-text.
type RecognitionConfig struct {
	Provider     string `yaml:"provider" validate:"oneof=gcp none"` // gcp, none
	AudioCommand string `yaml:"audio_command"`                      // emits raw LINEAR16 mono on stdout
	SampleRate   int    `yaml:"sample_rate" validate:"gte=8000,lte=48000"`
	Credentials  string `yaml:"credentials"`
}

// SynthesisConfig configures text-to-speech.
type SynthesisConfig struct {
	Command string `yaml:"command"` // text is appended as the last argument
	Rate    int    `yaml:"rate"`
}

// UIConfig configures the widget.
type UIConfig struct {
	Theme       string `yaml:"theme" validate:"oneof=light dark"`
	PanelWidth  int    `yaml:"panel_width" validate:"gte=30"`
	PanelHeight int    `yaml:"panel_height" validate:"gte=12"`
	WebBaseURL  string `yaml:"web_base_url" validate:"omitempty,url"`
	OpenCommand string `yaml:"open_command"`
	DownloadDir string `yaml:"download_dir"`
}

// CacheConfig configures the offline roster cache.
type CacheConfig struct {
	Path string `yaml:"path"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	DebugMode  bool            `yaml:"debug_mode"`
	Level      string          `yaml:"level" validate:"omitempty,oneof=debug info warn warning error"`
	JSONFormat bool            `yaml:"json_format"`
	Categories map[string]bool `yaml:"categories"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Scope: "",
		API: APIConfig{
			BaseURL: "http://localhost:8001/api",
			Timeout: "60s",
		},
		Speech: SpeechConfig{
			Language: "it-IT",
			Recognition: RecognitionConfig{
				Provider:     "gcp",
				AudioCommand: "arecord -q -f S16_LE -r 16000 -c 1 -t raw",
				SampleRate:   16000,
			},
			Synthesis: SynthesisConfig{
				Command: "espeak-ng -v it",
				Rate:    160,
			},
		},
		UI: UIConfig{
			Theme:       "light",
			PanelWidth:  64,
			PanelHeight: 30,
			OpenCommand: "xdg-open",
			DownloadDir: ".",
		},
		Cache: CacheConfig{
			Path: "",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Dir returns the directory where config, logs and cache live. A workspace-local
// .ambuassist directory wins over the home-level one.
func Dir() (string, error) {
	if cwd, err := os.Getwd(); err == nil {
		localDir := filepath.Join(cwd, ".ambuassist")
		if stat, err := os.Stat(localDir); err == nil && stat.IsDir() {
			return localDir, nil
		}
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".ambuassist"), nil
}

// DefaultPath returns the default config file path.
func DefaultPath() string {
	dir, err := Dir()
	if err != nil {
		return filepath.Join(".ambuassist", "config.yaml")
	}
	return filepath.Join(dir, "config.yaml")
}

// Load loads configuration from a YAML file. A missing file yields defaults.
// A .env file in the working directory is loaded first so its variables can
// feed the environment overrides.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logging.Boot("ignoring unreadable .env: %v", err)
	}

	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyEnvOverrides()
	if cfg.Cache.Path == "" {
		cfg.Cache.Path = filepath.Join(filepath.Dir(path), "roster.db")
	}
	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("AMBUASSIST_BASE_URL"); v != "" {
		c.API.BaseURL = v
	}
	if v := os.Getenv("AMBUASSIST_TOKEN"); v != "" {
		c.API.Token = v
	}
	if v := os.Getenv("AMBUASSIST_SCOPE"); v != "" {
		c.Scope = v
	}
	if v := os.Getenv("AMBUASSIST_THEME"); v != "" {
		c.UI.Theme = v
	}
	if v := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); v != "" && c.Speech.Recognition.Credentials == "" {
		c.Speech.Recognition.Credentials = v
	}
}

var validate = validator.New()

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s (%s)", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(fields, ", "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// GetAPITimeout returns the API timeout as a duration.
func (c *Config) GetAPITimeout() time.Duration {
	d, err := time.ParseDuration(c.API.Timeout)
	if err != nil || d <= 0 {
		return 60 * time.Second
	}
	return d
}

// LoggingSettings converts the logging section for the logging package.
func (c *Config) LoggingSettings() logging.Settings {
	return logging.Settings{
		DebugMode:  c.Logging.DebugMode,
		Level:      c.Logging.Level,
		JSONFormat: c.Logging.JSONFormat,
		Categories: c.Logging.Categories,
	}
}
