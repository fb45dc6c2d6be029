// Package config loads and validates app config using Viper: secrets and connection info from env
// and an optional .env file, feature defaults from a JSON file that is created or completed on load.
package config

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the merged, read-only application configuration. Build it once with Load and pass it by
// pointer; nothing mutates it after Load returns.
type Config struct {
	Env  EnvConfig
	File FileConfig
}

// EnvConfig holds environment-sourced settings.
type EnvConfig struct {
	// HTTPAddr is the address the HTTP server listens on (e.g. :8000).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// AppEnv is the application environment ("development", "production", ...).
	AppEnv string `mapstructure:"APP_ENV"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `mapstructure:"LOG_LEVEL"`
	// DatabaseURL is the Postgres DSN.
	DatabaseURL string `mapstructure:"DATABASE_URL"`

	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`

	// JWTSecretKey is the HMAC secret used to sign session tokens.
	JWTSecretKey string `mapstructure:"JWT_SECRET_KEY"`
	// JWTTTL is the session token lifetime (e.g. "720h").
	JWTTTL string `mapstructure:"JWT_TTL"`
	// BcryptCost is the bcrypt cost factor (4–31); default 12.
	BcryptCost int `mapstructure:"BCRYPT_COST"`

	CookieName     string `mapstructure:"COOKIE_NAME"`
	CookieMaxAge   int    `mapstructure:"COOKIE_MAX_AGE"`
	CookieSecure   bool   `mapstructure:"COOKIE_SECURE"`
	CookieHTTPOnly bool   `mapstructure:"COOKIE_HTTPONLY"`
	CookieSameSite string `mapstructure:"COOKIE_SAMESITE"`
	CookieDomain   string `mapstructure:"COOKIE_DOMAIN"`
	CookiePath     string `mapstructure:"COOKIE_PATH"`

	// SMSProvider selects the SMS sender: "aliyun" (Dysmsapi) or "gateway" (SMSGatewayURL).
	SMSProvider string `mapstructure:"SMS_PROVIDER"`
	// SMSAliyunEndpoint is the Dysmsapi endpoint host.
	SMSAliyunEndpoint string `mapstructure:"SMS_ALIYUN_ENDPOINT"`
	// SMSGatewayURL is the send endpoint of a self-hosted gateway; required when SMSProvider is gateway.
	SMSGatewayURL      string `mapstructure:"SMS_GATEWAY_URL"`
	SMSAccessKeyID     string `mapstructure:"SMS_ACCESS_KEY_ID"`
	SMSAccessKeySecret string `mapstructure:"SMS_ACCESS_KEY_SECRET"`
	SMSSignName        string `mapstructure:"SMS_SIGN_NAME"`
	// SMS template IDs per verification purpose.
	SMSTemplateRegister string `mapstructure:"SMS_TEMPLATE_REGISTER"`
	SMSTemplateLogin    string `mapstructure:"SMS_TEMPLATE_LOGIN"`
	SMSTemplateReset    string `mapstructure:"SMS_TEMPLATE_RESET"`

	// VerificationSingleUse deletes a verification code after its first successful check.
	VerificationSingleUse bool `mapstructure:"VERIFICATION_SINGLE_USE"`
	// DevVerificationCodes skips SMS and keeps codes in memory for GET /dev/verification-code.
	// Rejected when AppEnv is production.
	DevVerificationCodes bool `mapstructure:"DEV_VERIFICATION_CODES"`

	OTLPEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTLPInsecure bool   `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`

	// ConfigPath is the JSON file holding the file-sourced section.
	ConfigPath string `mapstructure:"APP_CONFIG_PATH"`
}

// FileConfig holds file-sourced feature defaults.
type FileConfig struct {
	UserConfig UserConfig `mapstructure:"user_config" json:"user_config"`
}

// UserConfig holds account defaults.
type UserConfig struct {
	UserPoints UserPoints `mapstructure:"user_points" json:"user_points"`
}

// UserPoints are the points granted on registration and per accepted invitation.
type UserPoints struct {
	InitPoints   int `mapstructure:"init_points" json:"init_points"`
	InvitePoints int `mapstructure:"invite_points" json:"invite_points"`
}

// SMS providers.
const (
	SMSProviderAliyun  = "aliyun"
	SMSProviderGateway = "gateway"
)

var fileDefaults = map[string]any{
	"user_config.user_points.init_points":   0,
	"user_config.user_points.invite_points": 1000,
}

// Load reads .env (if present) and the environment, then the JSON config file, and returns the
// merged Config. Missing .env is ignored. A missing config file is created with defaults, and a
// file missing keys is rewritten once with the defaults filled in.
func Load() (*Config, error) {
	env, err := loadEnv()
	if err != nil {
		return nil, err
	}
	file, err := LoadFile(env.ConfigPath)
	if err != nil {
		return nil, err
	}
	return &Config{Env: *env, File: *file}, nil
}

func loadEnv() (*EnvConfig, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8000")
	v.SetDefault("APP_ENV", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("JWT_SECRET_KEY", "")
	v.SetDefault("JWT_TTL", "720h") // 30d
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("COOKIE_NAME", "auth_token")
	v.SetDefault("COOKIE_MAX_AGE", 30*24*60*60)
	v.SetDefault("COOKIE_SECURE", false)
	v.SetDefault("COOKIE_HTTPONLY", true)
	v.SetDefault("COOKIE_SAMESITE", "lax")
	v.SetDefault("COOKIE_DOMAIN", "")
	v.SetDefault("COOKIE_PATH", "/")
	v.SetDefault("SMS_PROVIDER", SMSProviderAliyun)
	v.SetDefault("SMS_ALIYUN_ENDPOINT", "dysmsapi.aliyuncs.com")
	v.SetDefault("SMS_GATEWAY_URL", "")
	v.SetDefault("SMS_ACCESS_KEY_ID", "")
	v.SetDefault("SMS_ACCESS_KEY_SECRET", "")
	v.SetDefault("SMS_SIGN_NAME", "")
	v.SetDefault("SMS_TEMPLATE_REGISTER", "SMS_476785298")
	v.SetDefault("SMS_TEMPLATE_LOGIN", "SMS_476855314")
	v.SetDefault("SMS_TEMPLATE_RESET", "SMS_476695363")
	v.SetDefault("VERIFICATION_SINGLE_USE", false)
	v.SetDefault("DEV_VERIFICATION_CODES", false)
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", false)
	v.SetDefault("APP_CONFIG_PATH", filepath.Join("data", "config.json"))

	var cfg EnvConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.HTTPAddr == "" {
		return nil, errors.New("config: HTTP_ADDR must be set")
	}
	if strings.TrimSpace(cfg.JWTSecretKey) == "" {
		return nil, errors.New("config: JWT_SECRET_KEY must be set")
	}
	if cfg.DevVerificationCodes && cfg.AppEnv == "production" {
		return nil, errors.New("config: DEV_VERIFICATION_CODES must not be true when APP_ENV=production")
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = 12
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		return nil, errors.New("config: BCRYPT_COST must be between 4 and 31")
	}
	switch strings.ToLower(cfg.CookieSameSite) {
	case "lax", "strict", "none":
	default:
		return nil, fmt.Errorf("config: COOKIE_SAMESITE must be lax, strict or none, got %q", cfg.CookieSameSite)
	}
	switch strings.ToLower(cfg.SMSProvider) {
	case SMSProviderAliyun:
	case SMSProviderGateway:
		if cfg.SMSGatewayURL == "" && !cfg.DevVerificationCodes {
			return nil, errors.New("config: SMS_GATEWAY_URL must be set when SMS_PROVIDER=gateway")
		}
	default:
		return nil, fmt.Errorf("config: SMS_PROVIDER must be aliyun or gateway, got %q", cfg.SMSProvider)
	}
	cfg.SMSProvider = strings.ToLower(cfg.SMSProvider)
	return &cfg, nil
}

// LoadFile reads the JSON feature-defaults file at path, creating it or filling in missing keys.
func LoadFile(path string) (*FileConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	for k, val := range fileDefaults {
		v.SetDefault(k, val)
	}

	rewrite := false
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		rewrite = true
	} else if err != nil {
		return nil, fmt.Errorf("config: stat %s: %w", path, err)
	} else {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		for k := range fileDefaults {
			if !v.InConfig(k) {
				rewrite = true
				break
			}
		}
	}

	if rewrite {
		if dir := filepath.Dir(path); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("config: create %s: %w", dir, err)
			}
		}
		if err := v.WriteConfigAs(path); err != nil {
			return nil, fmt.Errorf("config: write %s: %w", path, err)
		}
	}

	var fc FileConfig
	if err := v.Unmarshal(&fc); err != nil {
		return nil, err
	}
	return &fc, nil
}

// TokenTTL parses JWTTTL as a time.Duration. Returns 720h if unset or invalid.
func (c *EnvConfig) TokenTTL() time.Duration {
	d, err := time.ParseDuration(c.JWTTTL)
	if err != nil || d <= 0 {
		return 720 * time.Hour
	}
	return d
}

// SameSite returns the cookie SameSite mode.
func (c *EnvConfig) SameSite() http.SameSite {
	switch strings.ToLower(c.CookieSameSite) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}

// IsProduction reports whether APP_ENV is production.
func (c *EnvConfig) IsProduction() bool {
	return c.AppEnv == "production"
}
