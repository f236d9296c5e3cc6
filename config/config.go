package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ibreez3/hult-gpt/chat"
)

const (
	ModeEcho      = "echo"
	ModeSimulated = "simulated"
	ModeGPT       = "gpt"
)

var DefaultModels = []string{"gpt-4o-mini", "gpt-3.5-turbo", "gpt-4-turbo"}

type Config struct {
	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`
	OpenAI struct {
		BaseURL       string   `yaml:"base_url"`
		Model         string   `yaml:"model"`
		Models        []string `yaml:"models"`
		APIKeyEnv     string   `yaml:"api_key_env"`
		APIKey        string   `yaml:"-"`
		MaxAttempts   int      `yaml:"max_attempts"`
		MultiplierSec float64  `yaml:"multiplier_sec"`
		MinWaitSec    float64  `yaml:"min_wait_sec"`
		MaxWaitSec    float64  `yaml:"max_wait_sec"`
	} `yaml:"openai"`
	Chat struct {
		Mode          string `yaml:"mode"`
		TypingDelayMs int    `yaml:"typing_delay_ms"`
	} `yaml:"chat"`
	Log struct {
		Dir string `yaml:"dir"`
	} `yaml:"log"`
}

// Load reads the YAML file at path. An empty path yields the defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return Parse(nil)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	return Parse(b)
}

func Parse(b []byte) (Config, error) {
	var cfg Config
	if len(b) > 0 {
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	}
	if cfg.OpenAI.APIKeyEnv == "" {
		cfg.OpenAI.APIKeyEnv = "OPENAI_API_KEY"
	}
	cfg.OpenAI.APIKey = os.Getenv(cfg.OpenAI.APIKeyEnv)
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if len(cfg.OpenAI.Models) == 0 {
		cfg.OpenAI.Models = append([]string(nil), DefaultModels...)
	}
	if cfg.OpenAI.Model == "" {
		cfg.OpenAI.Model = cfg.OpenAI.Models[0]
	}
	if cfg.OpenAI.MaxAttempts == 0 {
		cfg.OpenAI.MaxAttempts = chat.DefaultMaxAttempts
	}
	if cfg.OpenAI.MultiplierSec == 0 {
		cfg.OpenAI.MultiplierSec = chat.DefaultMultiplier.Seconds()
	}
	if cfg.OpenAI.MinWaitSec == 0 {
		cfg.OpenAI.MinWaitSec = chat.DefaultMinWait.Seconds()
	}
	if cfg.OpenAI.MaxWaitSec == 0 {
		cfg.OpenAI.MaxWaitSec = chat.DefaultMaxWait.Seconds()
	}
	if cfg.Chat.Mode == "" {
		cfg.Chat.Mode = ModeGPT
	}
	if cfg.Chat.TypingDelayMs == 0 {
		cfg.Chat.TypingDelayMs = int(chat.DefaultTypingDelay / time.Millisecond)
	}
	if cfg.Log.Dir == "" {
		cfg.Log.Dir = "output"
	}
	return cfg, nil
}

// Check validates the settings for the selected mode. The API key is only
// required when talking to the real endpoint.
func (c Config) Check() error {
	switch c.Chat.Mode {
	case ModeEcho, ModeSimulated:
	case ModeGPT:
		if c.OpenAI.APIKey == "" {
			return fmt.Errorf("missing OpenAI API key in env %s", c.OpenAI.APIKeyEnv)
		}
	default:
		return fmt.Errorf("unknown chat mode %q (want %s, %s or %s)", c.Chat.Mode, ModeEcho, ModeSimulated, ModeGPT)
	}
	found := false
	for _, m := range c.OpenAI.Models {
		if m == c.OpenAI.Model {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("default model %q is not in openai.models", c.OpenAI.Model)
	}
	if c.OpenAI.MinWaitSec > c.OpenAI.MaxWaitSec {
		return fmt.Errorf("openai.min_wait_sec %.1f exceeds max_wait_sec %.1f", c.OpenAI.MinWaitSec, c.OpenAI.MaxWaitSec)
	}
	return nil
}

func (c Config) RetryPolicy() chat.RetryPolicy {
	return chat.RetryPolicy{
		MaxAttempts: c.OpenAI.MaxAttempts,
		Multiplier:  seconds(c.OpenAI.MultiplierSec),
		MinWait:     seconds(c.OpenAI.MinWaitSec),
		MaxWait:     seconds(c.OpenAI.MaxWaitSec),
	}
}

func (c Config) TypingDelay() time.Duration {
	return time.Duration(c.Chat.TypingDelayMs) * time.Millisecond
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
