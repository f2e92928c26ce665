package infra

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents application configuration loaded from environment variables
// and an optional config.yaml.
type Config struct {
	AppEnv             string
	Port               string
	DatabaseURL        string
	RedisAddr          string
	RedisPassword      string
	RedisDB            int
	JWTSecret          string
	GeminiAPIKey       string
	GeminiModel        string
	GeminiBaseURL      string
	WatermarkLogoPath  string
	CORSAllowedOrigins []string
	UnlimitedPlanKeys  []string
	StandardPlanKeys   []string
	HTTPReadTimeout    time.Duration
	HTTPWriteTimeout   time.Duration
	HTTPIdleTimeout    time.Duration
	RateLimitPerMin    int
	MaxUploadBytes     int64
	SessionTTL         time.Duration
	PlanCacheTTL       time.Duration
}

// Plan keys observed across deployments of the billing provider. They are
// configuration, overridable through plans.unlimited / plans.standard.
var (
	defaultUnlimitedPlanKeys = []string{"unlimited_plan", "unlimited_ai_headshots", "Unlimited AI Headshots"}
	defaultStandardPlanKeys  = []string{"standard_plan", "standard-plan"}
)

// LoadConfig loads configuration and applies defaults where needed.
func LoadConfig() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	cfg := &Config{
		AppEnv:             v.GetString("app_env"),
		Port:               v.GetString("port"),
		DatabaseURL:        strings.TrimSpace(v.GetString("database_url")),
		RedisAddr:          strings.TrimSpace(v.GetString("redis_addr")),
		RedisPassword:      v.GetString("redis_password"),
		RedisDB:            v.GetInt("redis_db"),
		JWTSecret:          v.GetString("jwt_secret"),
		GeminiAPIKey:       strings.TrimSpace(v.GetString("gemini_api_key")),
		GeminiModel:        v.GetString("gemini_model"),
		GeminiBaseURL:      v.GetString("gemini_base_url"),
		WatermarkLogoPath:  strings.TrimSpace(v.GetString("watermark_logo_path")),
		CORSAllowedOrigins: getList(v, "cors_allowed_origins"),
		UnlimitedPlanKeys:  getList(v, "plans.unlimited"),
		StandardPlanKeys:   getList(v, "plans.standard"),
		HTTPReadTimeout:    time.Second * time.Duration(v.GetInt("http_read_timeout_seconds")),
		HTTPWriteTimeout:   time.Second * time.Duration(v.GetInt("http_write_timeout_seconds")),
		HTTPIdleTimeout:    time.Second * time.Duration(v.GetInt("http_idle_timeout_seconds")),
		RateLimitPerMin:    v.GetInt("rate_limit_per_minute"),
		MaxUploadBytes:     int64(v.GetInt("max_upload_mb")) << 20,
		SessionTTL:         time.Minute * time.Duration(v.GetInt("session_ttl_minutes")),
		PlanCacheTTL:       time.Second * time.Duration(v.GetInt("plan_cache_ttl_seconds")),
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if len(cfg.UnlimitedPlanKeys) == 0 && len(cfg.StandardPlanKeys) == 0 {
		return nil, fmt.Errorf("at least one plan key must be configured")
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app_env", "development")
	v.SetDefault("port", "8080")
	v.SetDefault("redis_db", 0)
	v.SetDefault("gemini_model", "gemini-2.0-flash-exp-image-generation")
	v.SetDefault("gemini_base_url", "https://generativelanguage.googleapis.com/v1beta")
	v.SetDefault("cors_allowed_origins", []string{"http://localhost:5173"})
	v.SetDefault("plans.unlimited", defaultUnlimitedPlanKeys)
	v.SetDefault("plans.standard", defaultStandardPlanKeys)
	v.SetDefault("http_read_timeout_seconds", 30)
	// Generation is awaited inside the request, so writes get a long budget.
	v.SetDefault("http_write_timeout_seconds", 300)
	v.SetDefault("http_idle_timeout_seconds", 60)
	v.SetDefault("rate_limit_per_minute", 30)
	v.SetDefault("max_upload_mb", 10)
	v.SetDefault("session_ttl_minutes", 60)
	v.SetDefault("plan_cache_ttl_seconds", 60)
}

// getList accepts both YAML lists and comma separated env values. Items may
// contain spaces ("Unlimited AI Headshots"), so env values split on commas only.
func getList(v *viper.Viper, key string) []string {
	var raw []string
	switch val := v.Get(key).(type) {
	case string:
		raw = strings.Split(val, ",")
	case []string:
		raw = val
	case []any:
		for _, item := range val {
			raw = append(raw, fmt.Sprint(item))
		}
	}
	var out []string
	for _, item := range raw {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
