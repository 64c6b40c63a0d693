package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	ProviderGigaChat = "gigachat"

	DefaultAuthURL       = "https://ngw.devices.sberbank.ru:9443/api/v2/oauth"
	DefaultBaseURL       = "https://gigachat.devices.sberbank.ru/api/v1"
	DefaultScope         = "GIGACHAT_API_PERS"
	DefaultModel         = "GigaChat"
	DefaultMaxFileSize   = 20 << 20 // 20 MiB
	DefaultMaxTextLength = 4000
	DefaultHistoryLimit  = 10
	// Telegram rejects messages above 4096 characters.
	DefaultMaxMessageLength = 4096
)

// Config represents runtime configuration for the bot.
type Config struct {
	Telegram    TelegramConfig            `json:"telegram"`
	Completion  CompletionConfig          `json:"completion"`
	Providers   map[string]ProviderConfig `json:"providers"`
	BasicConfig BasicConfig               `json:"basic_config"`
	Policy      PolicyConfig              `json:"policy"`
	Redis       RedisConfig               `json:"redis"`
}

type TelegramConfig struct {
	Token              string `json:"token"`
	APIEndpoint        string `json:"api_endpoint"`
	PollTimeoutSeconds int    `json:"poll_timeout_seconds"`
	Debug              bool   `json:"debug"`
}

// CompletionConfig describes the chat-completion endpoint and how to authorize against it.
type CompletionConfig struct {
	Provider           string  `json:"provider"`
	AuthURL            string  `json:"auth_url"`
	BaseURL            string  `json:"base_url"`
	ClientID           string  `json:"client_id"`
	ClientSecret       string  `json:"client_secret"`
	Credentials        string  `json:"credentials"`
	AccessToken        string  `json:"access_token"`
	Scope              string  `json:"scope"`
	Model              string  `json:"model"`
	Temperature        float32 `json:"temperature"`
	MaxTokens          int     `json:"max_tokens"`
	TimeoutSeconds     int     `json:"timeout_seconds"`
	InsecureSkipVerify bool    `json:"insecure_skip_verify"`
}

type ProviderConfig struct {
	BaseURL string `json:"base_url"`
	Model   string `json:"model"`
	APIKey  string `json:"api_key"`
}

type BasicConfig struct {
	DownloadDir       string `json:"download_dir"`
	OCRLanguage       string `json:"ocr_language"`
	MaxFileSize       int64  `json:"max_file_size"`
	MaxTextLength     int    `json:"max_text_length"`
	SystemPromptPath  string `json:"system_prompt_path"`
	HistoryLimit      int    `json:"history_limit"`
	MaxMessageLength  int    `json:"max_message_length"`
	ServerAddress     string `json:"server_address"`
	APIToken          string `json:"api_token"`
	MinWorkers        int    `json:"min_workers"`
	MaxWorkers        int    `json:"max_workers"`
	QueueSize         int    `json:"queue_size"`
	WorkerIdleTimeout int    `json:"worker_idle_timeout"`
	TempFileTTL       int    `json:"temp_file_ttl"`
	TempCleanInterval int    `json:"temp_clean_interval"`
}

// PolicyConfig toggles the Office keyword allow-list.
type PolicyConfig struct {
	DomainFilter bool     `json:"domain_filter"`
	Keywords     []string `json:"keywords"`
}

type RedisConfig struct {
	Enabled    bool   `json:"enabled"`
	Host       string `json:"host"`
	Port       int    `json:"port"`
	Username   string `json:"username"`
	Password   string `json:"password"`
	DB         int    `json:"db"`
	HistoryTTL int    `json:"history_ttl"`
	HistoryKey string `json:"history_key"`
}

// Load reads configuration from the provided path (defaults to config.json), then
// applies .env and process environment overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if path == "" {
		path = "config.json"
	}

	cfg := &Config{}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}
	file, err := os.Open(absPath)
	switch {
	case err == nil:
		defer file.Close()
		if err := json.NewDecoder(file).Decode(cfg); err != nil {
			return nil, fmt.Errorf("decode config: %w", err)
		}
		if cfg.BasicConfig.SystemPromptPath != "" && !filepath.IsAbs(cfg.BasicConfig.SystemPromptPath) {
			cfg.BasicConfig.SystemPromptPath = filepath.Join(filepath.Dir(absPath), cfg.BasicConfig.SystemPromptPath)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("open config %s: %w", absPath, err)
	}

	// .env never overrides variables already present in the environment.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString(&c.Telegram.Token, "TELEGRAM_TOKEN", "TELEGRAM_BOT_TOKEN")
	setString(&c.Completion.Provider, "OFFICEBOT_PROVIDER")
	setString(&c.Completion.AuthURL, "GIGACHAT_AUTH_URL")
	setString(&c.Completion.BaseURL, "GIGACHAT_API_URL")
	setString(&c.Completion.ClientID, "GIGACHAT_CLIENT_ID")
	setString(&c.Completion.ClientSecret, "GIGACHAT_CLIENT_SECRET")
	setString(&c.Completion.Credentials, "GIGACHAT_CREDENTIALS")
	setString(&c.Completion.AccessToken, "GIGA_CHAT_TOKEN", "GIGACHAT_ACCESS_TOKEN")
	setString(&c.Completion.Scope, "GIGACHAT_SCOPE")
	setString(&c.Completion.Model, "GIGACHAT_MODEL")
	setString(&c.BasicConfig.DownloadDir, "DOWNLOAD_DIR")
	setString(&c.BasicConfig.OCRLanguage, "TESSERACT_LANG")
	setString(&c.BasicConfig.SystemPromptPath, "SYSTEM_PROMPT_PATH")
	setString(&c.BasicConfig.ServerAddress, "OFFICEBOT_HTTP_ADDR")
	setString(&c.BasicConfig.APIToken, "OFFICEBOT_API_TOKEN")
	setString(&c.Redis.HistoryKey, "OFFICEBOT_HISTORY_KEY")

	if v, ok := lookup("MAX_FILE_SIZE"); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("parse MAX_FILE_SIZE: %w", err)
		}
		c.BasicConfig.MaxFileSize = n
	}
	if v, ok := lookup("MAX_TEXT_LENGTH"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse MAX_TEXT_LENGTH: %w", err)
		}
		c.BasicConfig.MaxTextLength = n
	}
	if v, ok := lookup("OFFICEBOT_DOMAIN_FILTER"); ok {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("parse OFFICEBOT_DOMAIN_FILTER: %w", err)
		}
		c.Policy.DomainFilter = enabled
	}
	if v, ok := lookup("GIGACHAT_INSECURE"); ok {
		insecure, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("parse GIGACHAT_INSECURE: %w", err)
		}
		c.Completion.InsecureSkipVerify = insecure
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Completion.Provider == "" {
		c.Completion.Provider = ProviderGigaChat
	}
	if c.Completion.AuthURL == "" {
		c.Completion.AuthURL = DefaultAuthURL
	}
	if c.Completion.BaseURL == "" {
		c.Completion.BaseURL = DefaultBaseURL
	}
	if c.Completion.Scope == "" {
		c.Completion.Scope = DefaultScope
	}
	if c.Completion.Model == "" {
		c.Completion.Model = DefaultModel
	}
	if c.Completion.Temperature == 0 {
		c.Completion.Temperature = 0.7
	}
	if c.Completion.MaxTokens == 0 {
		c.Completion.MaxTokens = 1000
	}
	if c.Completion.TimeoutSeconds == 0 {
		c.Completion.TimeoutSeconds = 30
	}
	if c.Telegram.PollTimeoutSeconds == 0 {
		c.Telegram.PollTimeoutSeconds = 60
	}
	if c.BasicConfig.DownloadDir == "" {
		c.BasicConfig.DownloadDir = "downloads"
	}
	if c.BasicConfig.OCRLanguage == "" {
		c.BasicConfig.OCRLanguage = "rus+eng"
	}
	if c.BasicConfig.MaxFileSize == 0 {
		c.BasicConfig.MaxFileSize = DefaultMaxFileSize
	}
	if c.BasicConfig.MaxTextLength == 0 {
		c.BasicConfig.MaxTextLength = DefaultMaxTextLength
	}
	if c.BasicConfig.HistoryLimit == 0 {
		c.BasicConfig.HistoryLimit = DefaultHistoryLimit
	}
	if c.BasicConfig.MaxMessageLength == 0 {
		c.BasicConfig.MaxMessageLength = DefaultMaxMessageLength
	}
	if c.BasicConfig.MinWorkers == 0 {
		c.BasicConfig.MinWorkers = 2
	}
	if c.BasicConfig.MaxWorkers == 0 {
		c.BasicConfig.MaxWorkers = 8
	}
	if c.BasicConfig.QueueSize == 0 {
		c.BasicConfig.QueueSize = 64
	}
	if c.BasicConfig.WorkerIdleTimeout == 0 {
		c.BasicConfig.WorkerIdleTimeout = 5
	}
	if c.BasicConfig.TempFileTTL == 0 {
		c.BasicConfig.TempFileTTL = 60
	}
	if c.BasicConfig.TempCleanInterval == 0 {
		c.BasicConfig.TempCleanInterval = 15
	}
	if c.Redis.HistoryTTL == 0 {
		c.Redis.HistoryTTL = 24 * 60
	}
}

// Validate reports configuration errors that must stop the process before it starts.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Telegram.Token) == "" {
		return errors.New("TELEGRAM_TOKEN not set")
	}
	provider := strings.ToLower(strings.TrimSpace(c.Completion.Provider))
	if provider == ProviderGigaChat {
		hasPair := c.Completion.ClientID != "" && c.Completion.ClientSecret != ""
		if !hasPair && c.Completion.Credentials == "" && c.Completion.AccessToken == "" {
			return errors.New("gigachat credentials not set: provide client id/secret, GIGACHAT_CREDENTIALS or GIGA_CHAT_TOKEN")
		}
		if c.Completion.AccessToken == "" && c.Completion.AuthURL == "" {
			return errors.New("auth_url must be configured")
		}
	} else {
		prov, ok := c.Providers[provider]
		if !ok {
			return fmt.Errorf("provider %s not configured", provider)
		}
		if prov.APIKey == "" {
			return fmt.Errorf("provider %s: api_key must be configured", provider)
		}
	}
	if c.BasicConfig.MaxFileSize <= 0 {
		return errors.New("max_file_size must be positive")
	}
	if c.BasicConfig.MaxTextLength <= 0 {
		return errors.New("max_text_length must be positive")
	}
	if c.BasicConfig.HistoryLimit <= 0 {
		return errors.New("history_limit must be positive")
	}
	return nil
}

func lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

func setString(dst *string, keys ...string) {
	for _, key := range keys {
		if v, ok := lookup(key); ok {
			*dst = v
			return
		}
	}
}
