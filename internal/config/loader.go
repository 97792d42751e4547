package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Profile selects which model the lifecycle manager loads.
type Profile string

const (
	// ProfileLocal is the developer default: large model, override honored.
	ProfileLocal Profile = "local"
	// ProfileConstrained is used on small/cloud hosts: small model, no override.
	ProfileConstrained Profile = "constrained"
)

// Config holds runtime parameters for the service.
// Zero values mean "unspecified" and are replaced by defaults in Normalize.
type Config struct {
	Addr      string `json:"addr" yaml:"addr" toml:"addr"`
	ModelsDir string `json:"models_dir" yaml:"models_dir" toml:"models_dir"`
	StaticDir string `json:"static_dir" yaml:"static_dir" toml:"static_dir"`

	// Model selection.
	LocalModel       string `json:"local_model" yaml:"local_model" toml:"local_model"`
	ConstrainedModel string `json:"constrained_model" yaml:"constrained_model" toml:"constrained_model"`
	ModelOverride    string `json:"model_override" yaml:"model_override" toml:"model_override"`
	// Profile: "local", "constrained", or empty for auto-detection.
	Profile string `json:"profile" yaml:"profile" toml:"profile"`

	// llama-server runtime.
	LlamaBin     string `json:"llama_bin" yaml:"llama_bin" toml:"llama_bin"`
	LlamaCtxSize int    `json:"llama_ctx_size" yaml:"llama_ctx_size" toml:"llama_ctx_size"`
	LlamaThreads int    `json:"llama_threads" yaml:"llama_threads" toml:"llama_threads"`

	// Rate limiting and admission.
	RateBudget    int `json:"rate_budget" yaml:"rate_budget" toml:"rate_budget"`
	RateWindowSec int `json:"rate_window_sec" yaml:"rate_window_sec" toml:"rate_window_sec"`
	MaxQueueDepth int `json:"max_queue_depth" yaml:"max_queue_depth" toml:"max_queue_depth"`
	MaxWaitSec    int `json:"max_wait_sec" yaml:"max_wait_sec" toml:"max_wait_sec"`

	AllowedOrigins []string `json:"allowed_origins" yaml:"allowed_origins" toml:"allowed_origins"`
	LogLevel       string   `json:"log_level" yaml:"log_level" toml:"log_level"`
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}

// Defaults applied by Normalize.
const (
	DefaultAddr             = ":8000"
	DefaultLocalModel       = "smollm2-1.7b.gguf"
	DefaultConstrainedModel = "smollm2-360m.gguf"
	DefaultLlamaBin         = "llama-server"
	DefaultRateBudget       = 30
	DefaultRateWindow       = time.Minute
)

// Normalize fills unset fields with package defaults.
func (c *Config) Normalize() {
	if c.Addr == "" {
		c.Addr = DefaultAddr
	}
	if c.ModelsDir == "" {
		c.ModelsDir = "~/models/llm"
	}
	if c.LocalModel == "" {
		c.LocalModel = DefaultLocalModel
	}
	if c.ConstrainedModel == "" {
		c.ConstrainedModel = DefaultConstrainedModel
	}
	if c.LlamaBin == "" {
		c.LlamaBin = DefaultLlamaBin
	}
	if c.RateBudget <= 0 {
		c.RateBudget = DefaultRateBudget
	}
	if c.RateWindowSec <= 0 {
		c.RateWindowSec = int(DefaultRateWindow / time.Second)
	}
}

// RateWindow returns the limiter window as a duration.
func (c Config) RateWindow() time.Duration {
	return time.Duration(c.RateWindowSec) * time.Second
}

// constrainedMarkers are environment variables whose presence indicates a
// resource-constrained cloud host.
var constrainedMarkers = []string{
	"RAILWAY_ENVIRONMENT",
	"RENDER",
	"FLY_APP_NAME",
	"DYNO",
	"K_SERVICE",
	"GOOGLE_CLOUD_PROJECT",
}

// DetectProfile resolves the deployment profile once at startup. An explicit
// profile in the config wins; otherwise the marker set decides.
func (c Config) DetectProfile(lookup func(string) (string, bool)) Profile {
	switch strings.ToLower(strings.TrimSpace(c.Profile)) {
	case string(ProfileLocal):
		return ProfileLocal
	case string(ProfileConstrained):
		return ProfileConstrained
	}
	if lookup == nil {
		lookup = os.LookupEnv
	}
	for _, marker := range constrainedMarkers {
		if v, ok := lookup(marker); ok && v != "" {
			return ProfileConstrained
		}
	}
	return ProfileLocal
}
