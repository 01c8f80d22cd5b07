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

// Provider 标识对话生成所使用的模型服务。
type Provider string

const (
	ProviderOpenAI Provider = "openai"
	ProviderArk    Provider = "ark"
)

// Config 聚合整个服务的配置项。
type Config struct {
	Server   ServerConfig
	AI       AIConfig
	Dialogue DialogueConfig
	Speech   SpeechConfig
	Images   ImageConfig
}

// Load 从环境变量加载配置。
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig()
	if err != nil {
		return nil, err
	}

	dialogue, err := loadDialogueConfig()
	if err != nil {
		return nil, err
	}

	images, err := loadImageConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server:   server,
		AI:       ai,
		Dialogue: dialogue,
		Speech:   loadSpeechConfig(),
		Images:   images,
	}, nil
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Addr string
}

// loadServerConfig 解析服务器监听地址。
func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// 允许用户直接传入 ":8080" 或 "127.0.0.1:8080"。
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// AIConfig 描述大模型相关配置。
type AIConfig struct {
	Provider       Provider
	KeysFile       string
	OpenAIModel    string
	OpenAIBaseURL  string
	RequestTimeout time.Duration
	Temperature    *float64
	MaxTokens      *int
	Ark            ArkConfig
}

// ArkConfig 描述火山方舟模型配置。
type ArkConfig struct {
	APIKey    string
	AccessKey string
	SecretKey string
	Model     string
	BaseURL   string
	Region    string
	TopP      *float64
}

// DialogueConfig bounds the conversation simulator.
type DialogueConfig struct {
	MaxRounds     int
	DefaultRounds int
	WordLimit     int
}

// SpeechConfig 描述语音转写配置
type SpeechConfig struct {
	Model    string
	Language string
}

// ImageConfig 描述图片变体生成配置
type ImageConfig struct {
	Count int
	Size  string
}

// Enabled 表示是否提供了必需的密钥。
func (c ArkConfig) Enabled() bool {
	return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
}

// NewArkChatModel 使用配置创建一个方舟模型实例。
func (c AIConfig) NewArkChatModel(ctx context.Context) (model.ChatModel, error) {
	if !c.Ark.Enabled() {
		return nil, fmt.Errorf("Ark 凭证或模型配置缺失，至少提供 ARK_API_KEY + ARK_MODEL 或 AK/SK 组合")
	}

	var temperature *float32
	if c.Temperature != nil {
		val := float32(*c.Temperature)
		temperature = &val
	}

	var topP *float32
	if c.Ark.TopP != nil {
		val := float32(*c.Ark.TopP)
		topP = &val
	}

	var maxTokens *int
	if c.MaxTokens != nil {
		val := *c.MaxTokens
		maxTokens = &val
	}

	var timeout *time.Duration
	if c.RequestTimeout > 0 {
		val := c.RequestTimeout
		timeout = &val
	}

	cfg := &ark.ChatModelConfig{
		BaseURL:     c.Ark.BaseURL,
		Region:      c.Ark.Region,
		APIKey:      c.Ark.APIKey,
		AccessKey:   c.Ark.AccessKey,
		SecretKey:   c.Ark.SecretKey,
		Model:       c.Ark.Model,
		Timeout:     timeout,
		MaxTokens:   maxTokens,
		Temperature: temperature,
		TopP:        topP,
	}

	return ark.NewChatModel(ctx, cfg)
}

func loadAIConfig() (AIConfig, error) {
	temperature, err := parseOptionalFloatEnv("AI_TEMPERATURE")
	if err != nil {
		return AIConfig{}, err
	}

	topP, err := parseOptionalFloatEnv("ARK_TOP_P")
	if err != nil {
		return AIConfig{}, err
	}

	maxTokens, err := parseOptionalIntEnv("AI_MAX_TOKENS")
	if err != nil {
		return AIConfig{}, err
	}

	timeout, err := parseDurationEnv("AI_REQUEST_TIMEOUT", 2*time.Minute)
	if err != nil {
		return AIConfig{}, err
	}

	provider := Provider(strings.ToLower(getEnvOrDefault("AI_PROVIDER", string(ProviderOpenAI))))
	switch provider {
	case ProviderOpenAI, ProviderArk:
	default:
		return AIConfig{}, fmt.Errorf("invalid AI_PROVIDER value %q", provider)
	}

	return AIConfig{
		Provider:       provider,
		KeysFile:       getEnvOrDefault("OPENAI_KEYS_FILE", DefaultKeysFile),
		OpenAIModel:    getEnvOrDefault("OPENAI_MODEL", "gpt-3.5-turbo"),
		OpenAIBaseURL:  strings.TrimSpace(os.Getenv("OPENAI_BASE_URL")),
		RequestTimeout: timeout,
		Temperature:    temperature,
		MaxTokens:      maxTokens,
		Ark: ArkConfig{
			APIKey:    strings.TrimSpace(os.Getenv("ARK_API_KEY")),
			AccessKey: strings.TrimSpace(os.Getenv("ARK_ACCESS_KEY")),
			SecretKey: strings.TrimSpace(os.Getenv("ARK_SECRET_KEY")),
			Model:     strings.TrimSpace(os.Getenv("ARK_MODEL")),
			BaseURL:   getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
			Region:    getEnvOrDefault("ARK_REGION", "cn-beijing"),
			TopP:      topP,
		},
	}, nil
}

func loadDialogueConfig() (DialogueConfig, error) {
	cfg := DialogueConfig{MaxRounds: 10, DefaultRounds: 4}

	maxRounds, err := parseOptionalIntEnv("DIALOGUE_MAX_ROUNDS")
	if err != nil {
		return DialogueConfig{}, err
	}
	if maxRounds != nil {
		if *maxRounds < 0 {
			return DialogueConfig{}, fmt.Errorf("invalid DIALOGUE_MAX_ROUNDS value %d", *maxRounds)
		}
		cfg.MaxRounds = *maxRounds
	}
	if cfg.DefaultRounds > cfg.MaxRounds {
		cfg.DefaultRounds = cfg.MaxRounds
	}

	wordLimit, err := parseOptionalIntEnv("DIALOGUE_WORD_LIMIT")
	if err != nil {
		return DialogueConfig{}, err
	}
	if wordLimit != nil && *wordLimit > 0 {
		cfg.WordLimit = *wordLimit
	}

	return cfg, nil
}

func loadSpeechConfig() SpeechConfig {
	return SpeechConfig{
		Model:    getEnvOrDefault("WHISPER_MODEL", "whisper-1"),
		Language: strings.TrimSpace(os.Getenv("WHISPER_LANGUAGE")),
	}
}

func loadImageConfig() (ImageConfig, error) {
	cfg := ImageConfig{Count: 5, Size: getEnvOrDefault("IMAGE_VARIATION_SIZE", "1024x1024")}

	count, err := parseOptionalIntEnv("IMAGE_VARIATION_COUNT")
	if err != nil {
		return ImageConfig{}, err
	}
	if count != nil {
		if *count < 1 || *count > 10 {
			return ImageConfig{}, fmt.Errorf("invalid IMAGE_VARIATION_COUNT value %d: must be between 1 and 10", *count)
		}
		cfg.Count = *count
	}

	switch cfg.Size {
	case "256x256", "512x512", "1024x1024":
	default:
		return ImageConfig{}, fmt.Errorf("invalid IMAGE_VARIATION_SIZE value %q", cfg.Size)
	}

	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
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
