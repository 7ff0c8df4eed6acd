package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ConfigPath is the default config file location, relative to the working
// directory. Override per deployment with the CONFIG_PATH environment
// variable or an explicit Load argument.
const ConfigPath = "config.yaml"

// FileConfig represents configuration loaded from YAML.
type FileConfig struct {
	Port     string `yaml:"port"`
	LogLevel string `yaml:"logLevel"`

	DatabaseURL string `yaml:"databaseURL"`

	RedisAddr     string `yaml:"redisAddr"`
	RedisPassword string `yaml:"redisPassword"`

	StorageEndpoint  string `yaml:"storageEndpoint"`
	StorageAccessKey string `yaml:"storageAccessKey"`
	StorageSecretKey string `yaml:"storageSecretKey"`
	StorageUseSSL    bool   `yaml:"storageUseSSL"`
	StoragePublicURL string `yaml:"storagePublicURL"`
	StorageProject   string `yaml:"storageProject"`
	StoriesBucket    string `yaml:"storiesBucket"`
	GalleryBucket    string `yaml:"galleryBucket"`
	ResourcesBucket  string `yaml:"resourcesBucket"`

	LLMBaseURL  string `yaml:"llmBaseURL"`
	LLMAPIKey   string `yaml:"llmAPIKey"`
	LLMModel    string `yaml:"llmModel"`
	LLMSiteURL  string `yaml:"llmSiteURL"`
	LLMSiteName string `yaml:"llmSiteName"`

	SessionSecret     string `yaml:"sessionSecret"`
	SessionTTLDays    int    `yaml:"sessionTTLDays"`
	SessionCookieName string `yaml:"sessionCookieName"`
	SecureCookies     bool   `yaml:"secureCookies"`

	TrustedProxyCIDRs []string `yaml:"trustedProxyCidrs"`

	ChatRateLimitPerMinute   int `yaml:"chatRateLimitPerMinute"`
	StoryRateLimitPerMinute  int `yaml:"storyRateLimitPerMinute"`
	SignupRateLimitPerMinute int `yaml:"signupRateLimitPerMinute"`

	MaxUploadBytes            int64    `yaml:"maxUploadBytes"`
	AllowedExtensions         []string `yaml:"allowedExtensions"`
	NewsFetchLimit            int      `yaml:"newsFetchLimit"`
	NewsTickerIntervalSeconds int      `yaml:"newsTickerIntervalSeconds"`
}

// Load reads config from path (defaults to config.yaml).
func Load(path string) (FileConfig, error) {
	cfg := FileConfig{}
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path == "" {
		path = ConfigPath
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	// Override with environment variables
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.RedisAddr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.RedisPassword = v
	}
	if v := os.Getenv("STORAGE_ENDPOINT"); v != "" {
		cfg.StorageEndpoint = v
	}
	if v := os.Getenv("STORAGE_ACCESS_KEY"); v != "" {
		cfg.StorageAccessKey = v
	}
	if v := os.Getenv("STORAGE_SECRET_KEY"); v != "" {
		cfg.StorageSecretKey = v
	}
	if v := os.Getenv("STORAGE_USE_SSL"); v != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			cfg.StorageUseSSL = b
		}
	}
	if v := os.Getenv("STORAGE_PUBLIC_URL"); v != "" {
		cfg.StoragePublicURL = v
	}
	if v := os.Getenv("LLM_BASE_URL"); v != "" {
		cfg.LLMBaseURL = v
	}
	if v := os.Getenv("LLM_API_KEY"); v != "" {
		cfg.LLMAPIKey = v
	}
	if v := os.Getenv("LLM_MODEL"); v != "" {
		cfg.LLMModel = v
	}
	if v := os.Getenv("SESSION_SECRET"); v != "" {
		cfg.SessionSecret = v
	}
	if v := os.Getenv("TRUSTED_PROXY_CIDRS"); v != "" {
		cfg.TrustedProxyCIDRs = splitCSV(v)
	}
	if v := os.Getenv("ALLOWED_EXTENSIONS"); v != "" {
		cfg.AllowedExtensions = splitCSV(v)
	}
	if v := os.Getenv("MAX_UPLOAD_BYTES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.MaxUploadBytes = n
		}
	}
	if v := os.Getenv("CHAT_RATE_LIMIT_PER_MINUTE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.ChatRateLimitPerMinute = n
		}
	}
	if v := os.Getenv("STORY_RATE_LIMIT_PER_MINUTE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.StoryRateLimitPerMinute = n
		}
	}
	if v := os.Getenv("SIGNUP_RATE_LIMIT_PER_MINUTE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.SignupRateLimitPerMinute = n
		}
	}
	applyDefaults(&cfg)
	if err := validateConfig(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyDefaults(cfg *FileConfig) {
	if cfg.SessionTTLDays <= 0 {
		cfg.SessionTTLDays = 30
	}
	if cfg.SessionCookieName == "" {
		cfg.SessionCookieName = "session"
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 10 << 20
	}
	if cfg.NewsFetchLimit <= 0 {
		cfg.NewsFetchLimit = 5
	}
	if cfg.NewsTickerIntervalSeconds <= 0 {
		cfg.NewsTickerIntervalSeconds = 5
	}
	if cfg.StoriesBucket == "" {
		cfg.StoriesBucket = "stories"
	}
	if cfg.GalleryBucket == "" {
		cfg.GalleryBucket = "gallery"
	}
	if cfg.ResourcesBucket == "" {
		cfg.ResourcesBucket = "resources"
	}
}

func validateConfig(cfg FileConfig) error {
	if cfg.Port == "" {
		return errors.New("config: port is required (set in config.yaml)")
	}
	if cfg.DatabaseURL == "" {
		return errors.New("config: databaseURL is required (set in config.yaml or DATABASE_URL)")
	}
	if strings.TrimSpace(cfg.RedisAddr) == "" {
		return errors.New("config: redisAddr is required for distributed rate limiting")
	}
	if cfg.StorageEndpoint == "" {
		return errors.New("config: storageEndpoint is required (set in config.yaml or STORAGE_ENDPOINT)")
	}
	if cfg.StoragePublicURL == "" {
		return errors.New("config: storagePublicURL is required (set in config.yaml or STORAGE_PUBLIC_URL)")
	}
	if cfg.LLMBaseURL == "" {
		return errors.New("config: llmBaseURL is required (set in config.yaml or LLM_BASE_URL)")
	}
	if cfg.LLMModel == "" {
		return errors.New("config: llmModel is required (set in config.yaml or LLM_MODEL)")
	}
	if cfg.SessionSecret == "" {
		return errors.New("config: sessionSecret is required (set in config.yaml or SESSION_SECRET)")
	}
	if cfg.ChatRateLimitPerMinute < 0 || cfg.StoryRateLimitPerMinute < 0 || cfg.SignupRateLimitPerMinute < 0 {
		return errors.New("config: rate limits must be >= 0")
	}
	return nil
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}
