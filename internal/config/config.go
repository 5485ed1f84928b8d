package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Storage    StorageConfig    `koanf:"storage"`
	OpenAI     OpenAIConfig     `koanf:"openai"`
	Stripe     StripeConfig     `koanf:"stripe"`
	Gatekeeper GatekeeperConfig `koanf:"gatekeeper"`
}

type ServerConfig struct {
	Port           int      `koanf:"port"`
	AllowedOrigins []string `koanf:"allowed_origins"`
}

type StorageConfig struct {
	Path string `koanf:"path"`
}

type OpenAIConfig struct {
	APIKey  string `koanf:"api_key"`
	BaseURL string `koanf:"base_url"`
	Model   string `koanf:"model"`
}

type StripeConfig struct {
	SecretKey     string `koanf:"secret_key"`
	WebhookSecret string `koanf:"webhook_secret"`
	SuccessURL    string `koanf:"success_url"`
	CancelURL     string `koanf:"cancel_url"`
}

type GatekeeperConfig struct {
	// Mode is the default access mode: "licensed" or "free". Custom-key
	// access is selected per request by presenting an upstream API key,
	// never as a server-wide default.
	Mode string `koanf:"mode"`
	// RateLimitMS is the minimum gap between two requests from the same
	// client IP, in milliseconds.
	RateLimitMS int `koanf:"rate_limit_ms"`
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// Load reads config.yaml (if present) and overlays EC_-prefixed
// environment variables. EC_OPENAI__API_KEY maps to openai.api_key.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(file.Provider("config.yaml"), yaml.Parser()); err != nil {
		// Missing file is fine, env vars can carry the whole config.
		if !os.IsNotExist(err) {
			return nil, err
		}
	}

	if err := k.Load(env.Provider("EC_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "EC_")), "__", ".", -1)
	}), nil); err != nil {
		return nil, err
	}

	// Default values
	if !k.Exists("server.port") {
		k.Set("server.port", 8080)
	}
	if !k.Exists("storage.path") {
		k.Set("storage.path", "./data/gateway.db")
	}
	if !k.Exists("openai.model") {
		k.Set("openai.model", "gpt-4o-mini")
	}
	if !k.Exists("gatekeeper.mode") {
		k.Set("gatekeeper.mode", "licensed")
	}
	if !k.Exists("gatekeeper.rate_limit_ms") {
		k.Set("gatekeeper.rate_limit_ms", 2000)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	// Substitute ${VAR} references so secrets can stay out of config.yaml
	cfg.OpenAI.APIKey = substituteEnvVars(cfg.OpenAI.APIKey)
	cfg.Stripe.SecretKey = substituteEnvVars(cfg.Stripe.SecretKey)
	cfg.Stripe.WebhookSecret = substituteEnvVars(cfg.Stripe.WebhookSecret)

	return &cfg, nil
}

// Validate checks that the secrets required at startup are present.
// Missing secrets fail fast, before any request is accepted.
func (c *Config) Validate() error {
	if c.OpenAI.APIKey == "" {
		return fmt.Errorf("openai.api_key is required (EC_OPENAI__API_KEY)")
	}
	if c.Storage.Path == "" {
		return fmt.Errorf("storage.path is required (EC_STORAGE__PATH)")
	}
	switch c.Gatekeeper.Mode {
	case "licensed", "free":
	case "custom_key":
		return fmt.Errorf("gatekeeper.mode custom_key is selected per request by the x-api-key header, not as a server default")
	default:
		return fmt.Errorf("gatekeeper.mode must be licensed or free, got %q", c.Gatekeeper.Mode)
	}
	return nil
}

func substituteEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := envVarPattern.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}
