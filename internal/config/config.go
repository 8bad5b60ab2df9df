package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
)

// Config aggregates every setting the service reads from the environment.
type Config struct {
	Env    string
	Server ServerConfig
	Forest ForestConfig
	AI     AIConfig
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	forest, err := loadForestConfig()
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Env:    getEnvOrDefault("APP_ENV", "development"),
		Server: server,
		Forest: forest,
		AI:     ai,
	}, nil
}

// Production reports whether APP_ENV selects production behaviour.
func (c *Config) Production() bool {
	return strings.EqualFold(c.Env, "production")
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr string
}

func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// Accept ":8080" or "127.0.0.1:8080" as given.
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// ForestConfig tunes the thought forest and its notifications.
type ForestConfig struct {
	SeedText      string
	NotifyPolicy  string
	ToastDuration time.Duration
	IDMode        string
	MaxTextLength int
}

const (
	IDModeUUID     = "uuid"
	IDModeSequence = "sequence"
)

func loadForestConfig() (ForestConfig, error) {
	duration, err := parseDurationEnv("THREADLINE_TOAST_DURATION", 1600*time.Millisecond)
	if err != nil {
		return ForestConfig{}, err
	}
	if duration <= 0 {
		return ForestConfig{}, fmt.Errorf("invalid THREADLINE_TOAST_DURATION value %q: must be positive", os.Getenv("THREADLINE_TOAST_DURATION"))
	}

	policy := strings.ToLower(getEnvOrDefault("THREADLINE_NOTIFY_POLICY", "corrected"))
	if policy != "corrected" && policy != "legacy" {
		return ForestConfig{}, fmt.Errorf("invalid THREADLINE_NOTIFY_POLICY value %q", policy)
	}

	idMode := strings.ToLower(getEnvOrDefault("THREADLINE_ID_MODE", IDModeUUID))
	if idMode != IDModeUUID && idMode != IDModeSequence {
		return ForestConfig{}, fmt.Errorf("invalid THREADLINE_ID_MODE value %q", idMode)
	}

	maxText := 2000
	if override, err := parseOptionalIntEnv("THREADLINE_MAX_TEXT"); err != nil {
		return ForestConfig{}, err
	} else if override != nil {
		if *override < 1 {
			return ForestConfig{}, fmt.Errorf("invalid THREADLINE_MAX_TEXT value %d: must be positive", *override)
		}
		maxText = *override
	}

	return ForestConfig{
		SeedText:      getEnvOrDefault("THREADLINE_SEED_TEXT", ""),
		NotifyPolicy:  policy,
		ToastDuration: duration,
		IDMode:        idMode,
		MaxTextLength: maxText,
	}, nil
}

// AIConfig describes the ark chat model used for mood classification.
type AIConfig struct {
	APIKey         string
	AccessKey      string
	SecretKey      string
	Model          string
	BaseURL        string
	Region         string
	Temperature    *float64
	TopP           *float64
	MaxTokens      *int
	MoodLLMEnabled bool
}

// Enabled reports whether credentials and a model were supplied.
func (c AIConfig) Enabled() bool {
	return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
}

// NewChatModel creates an ark chat model from the configuration.
func (c AIConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("ark credentials or model missing: provide ARK_API_KEY + Model or an AK/SK pair")
	}

	var temperature *float32
	if c.Temperature != nil {
		val := float32(*c.Temperature)
		temperature = &val
	}

	var topP *float32
	if c.TopP != nil {
		val := float32(*c.TopP)
		topP = &val
	}

	cfg := &ark.ChatModelConfig{
		BaseURL:     c.BaseURL,
		Region:      c.Region,
		APIKey:      c.APIKey,
		AccessKey:   c.AccessKey,
		SecretKey:   c.SecretKey,
		Model:       c.Model,
		MaxTokens:   c.MaxTokens,
		Temperature: temperature,
		TopP:        topP,
	}

	return ark.NewChatModel(ctx, cfg)
}

func loadAIConfig() (AIConfig, error) {
	temperature, err := parseOptionalFloatEnv("ARK_TEMPERATURE")
	if err != nil {
		return AIConfig{}, err
	}

	topP, err := parseOptionalFloatEnv("ARK_TOP_P")
	if err != nil {
		return AIConfig{}, err
	}

	maxTokens, err := parseOptionalIntEnv("ARK_MAX_TOKENS")
	if err != nil {
		return AIConfig{}, err
	}

	moodEnabled, err := parseBoolEnv("MOOD_LLM_ENABLED", false)
	if err != nil {
		return AIConfig{}, err
	}

	return AIConfig{
		APIKey:         strings.TrimSpace(os.Getenv("ARK_API_KEY")),
		AccessKey:      strings.TrimSpace(os.Getenv("ARK_ACCESS_KEY")),
		SecretKey:      strings.TrimSpace(os.Getenv("ARK_SECRET_KEY")),
		Model:          strings.TrimSpace(os.Getenv("Model")),
		BaseURL:        getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
		Region:         getEnvOrDefault("ARK_REGION", "cn-beijing"),
		Temperature:    temperature,
		TopP:           topP,
		MaxTokens:      maxTokens,
		MoodLLMEnabled: moodEnabled,
	}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
