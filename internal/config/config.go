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

// Config 聚合整个服务的配置项。
type Config struct {
	Server  ServerConfig
	Store   StoreConfig
	AI      AIConfig
	Session SessionConfig
	Chat    ChatConfig
	Debug   bool
}

// Load 从环境变量加载配置。
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	store, err := loadStoreConfig()
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig()
	if err != nil {
		return nil, err
	}

	session, err := loadSessionConfig()
	if err != nil {
		return nil, err
	}

	chat, err := loadChatConfig()
	if err != nil {
		return nil, err
	}

	debug, err := parseBoolEnv("DEBUG", false)
	if err != nil {
		return nil, err
	}

	return &Config{Server: server, Store: store, AI: ai, Session: session, Chat: chat, Debug: debug}, nil
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Addr string
}

// loadServerConfig 解析服务器监听地址。
func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "3001"
	}

	if strings.Contains(port, ":") {
		// 允许用户直接传入 ":3001" 或 "127.0.0.1:3001"。
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// Store drivers.
const (
	StoreDriverMemory   = "memory"
	StoreDriverSupabase = "supabase"
)

// StoreConfig 描述消息存储配置。
type StoreConfig struct {
	Driver      string
	SupabaseURL string
	SupabaseKey string
	Table       string
	Timeout     time.Duration
}

func loadStoreConfig() (StoreConfig, error) {
	timeout, err := parseSecondsEnv("STORE_TIMEOUT", 10*time.Second)
	if err != nil {
		return StoreConfig{}, err
	}

	cfg := StoreConfig{
		SupabaseURL: strings.TrimSpace(os.Getenv("SUPABASE_URL")),
		SupabaseKey: strings.TrimSpace(os.Getenv("SUPABASE_KEY")),
		Table:       getEnvOrDefault("MESSAGES_TABLE", "messages"),
		Timeout:     timeout,
	}

	defaultDriver := StoreDriverMemory
	if cfg.SupabaseURL != "" && cfg.SupabaseKey != "" {
		defaultDriver = StoreDriverSupabase
	}
	cfg.Driver = strings.ToLower(getEnvOrDefault("STORE_DRIVER", defaultDriver))

	switch cfg.Driver {
	case StoreDriverMemory:
	case StoreDriverSupabase:
		if cfg.SupabaseURL == "" || cfg.SupabaseKey == "" {
			return StoreConfig{}, fmt.Errorf("STORE_DRIVER=supabase requires SUPABASE_URL and SUPABASE_KEY")
		}
	default:
		return StoreConfig{}, fmt.Errorf("invalid STORE_DRIVER value: %q", cfg.Driver)
	}

	return cfg, nil
}

// Responder providers.
const (
	ProviderRules  = "rules"
	ProviderArk    = "ark"
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// AIConfig 描述回复生成相关配置。
type AIConfig struct {
	Provider  string
	APIKey    string
	AccessKey string
	SecretKey string
	Model     string
	BaseURL   string
	Region    string
	Timeout   time.Duration
}

// Remote 表示是否使用远程生成模型。
func (c AIConfig) Remote() bool {
	return c.Provider != "" && c.Provider != ProviderRules
}

// Enabled 表示远程提供方是否具备必需的密钥。
func (c AIConfig) Enabled() bool {
	switch c.Provider {
	case ProviderArk:
		return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
	case ProviderOpenAI, ProviderGemini:
		return c.APIKey != ""
	default:
		return false
	}
}

// NewChatModel 使用配置创建一个 Ark 模型实例。
// 生成参数（温度、最大长度）由调用方按请求传入。
func (c AIConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	if c.Provider != ProviderArk || !c.Enabled() {
		return nil, fmt.Errorf("Ark 凭证或模型配置缺失，至少提供 ARK_API_KEY + AI_MODEL 或 AK/SK 组合")
	}

	timeout := c.Timeout
	cfg := &ark.ChatModelConfig{
		BaseURL:   c.BaseURL,
		Region:    c.Region,
		APIKey:    c.APIKey,
		AccessKey: c.AccessKey,
		SecretKey: c.SecretKey,
		Model:     c.Model,
		Timeout:   &timeout,
	}

	return ark.NewChatModel(ctx, cfg)
}

func loadAIConfig() (AIConfig, error) {
	timeout, err := parseSecondsEnv("AI_TIMEOUT", 30*time.Second)
	if err != nil {
		return AIConfig{}, err
	}

	provider := strings.ToLower(getEnvOrDefault("AI_PROVIDER", ProviderRules))
	cfg := AIConfig{Provider: provider, Timeout: timeout}

	switch provider {
	case ProviderRules:
	case ProviderArk:
		cfg.APIKey = strings.TrimSpace(os.Getenv("ARK_API_KEY"))
		cfg.AccessKey = strings.TrimSpace(os.Getenv("ARK_ACCESS_KEY"))
		cfg.SecretKey = strings.TrimSpace(os.Getenv("ARK_SECRET_KEY"))
		cfg.Model = getEnvOrDefault("AI_MODEL", strings.TrimSpace(os.Getenv("Model")))
		cfg.BaseURL = getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3")
		cfg.Region = getEnvOrDefault("ARK_REGION", "cn-beijing")
	case ProviderOpenAI:
		cfg.APIKey = strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
		cfg.Model = getEnvOrDefault("AI_MODEL", "gpt-4")
		cfg.BaseURL = strings.TrimSpace(os.Getenv("OPENAI_BASE_URL"))
	case ProviderGemini:
		cfg.APIKey = strings.TrimSpace(os.Getenv("GEMINI_API_KEY"))
		cfg.Model = getEnvOrDefault("AI_MODEL", "gemini-2.0-flash-001")
	default:
		return AIConfig{}, fmt.Errorf("invalid AI_PROVIDER value: %q", provider)
	}

	return cfg, nil
}

// SessionConfig 描述会话标识的临时存储。
type SessionConfig struct {
	RedisURL string
	TTL      time.Duration
	Key      string
}

func loadSessionConfig() (SessionConfig, error) {
	ttl := 24 * time.Hour
	if raw := strings.TrimSpace(os.Getenv("SESSION_TTL")); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return SessionConfig{}, fmt.Errorf("invalid SESSION_TTL value %q: %w", raw, err)
		}
		ttl = parsed
	}

	return SessionConfig{
		RedisURL: strings.TrimSpace(os.Getenv("REDIS_URL")),
		TTL:      ttl,
		Key:      getEnvOrDefault("SESSION_KEY", "momversation-session-id"),
	}, nil
}

// ChatConfig 描述对话编排配置。
type ChatConfig struct {
	ResponseDelay time.Duration
	// IdleTimeout 超过该时长未使用的会话控制器会被回收
	IdleTimeout time.Duration
}

func loadChatConfig() (ChatConfig, error) {
	delayMs, err := parseOptionalIntEnv("RESPONSE_DELAY_MS")
	if err != nil {
		return ChatConfig{}, err
	}

	var delay time.Duration
	if delayMs != nil {
		if *delayMs < 0 {
			return ChatConfig{}, fmt.Errorf("invalid RESPONSE_DELAY_MS value: %d", *delayMs)
		}
		delay = time.Duration(*delayMs) * time.Millisecond
	}

	idle, err := parseSecondsEnv("CHAT_IDLE_TIMEOUT", 30*time.Minute)
	if err != nil {
		return ChatConfig{}, err
	}

	return ChatConfig{ResponseDelay: delay, IdleTimeout: idle}, nil
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

func parseSecondsEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	seconds, err := parseOptionalIntEnv(key)
	if err != nil {
		return 0, err
	}
	if seconds == nil {
		return defaultValue, nil
	}
	if *seconds <= 0 {
		return 0, fmt.Errorf("invalid %s value: %d", key, *seconds)
	}
	return time.Duration(*seconds) * time.Second, nil
}
