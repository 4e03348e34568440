// Package config loads the gateway's boot configuration from the
// environment via spf13/viper, matching the teacher's
// cmd/registry/main.go viper-default/env-override pattern. Every secret
// named in spec §6 is required; Load aborts with a clear diagnostic when
// one is missing rather than booting into an insecure default.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds every environment-sourced setting spec §6 names.
type Config struct {
	SecretKey                string
	StoreURI                 string
	StoreDatabase            string
	CacheURI                 string
	AllowedOrigins           []string
	LogLevel                 string
	AccessTokenTTL           time.Duration
	DuplicateSaleWindow      time.Duration
	DeliveryRetentionDays    int
	RateLimitPerMinute       int
	HTTPPort                 int
	Issuer                   string
	Project                  string
	Version                  string
	SMTPHost                 string
	SMTPPort                 int
	SMTPUsername             string
	SMTPPassword             string
	SMTPFrom                 string
}

// Load reads configuration from the environment (and an optional
// gateway.yaml/env file, per the teacher's viper setup), applying
// defaults for everything except the secrets that must be supplied at
// boot: SECRET_KEY, STORE_URI, CACHE_URI.
func Load() (*Config, error) {
	viper.SetConfigName("gateway")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("configs")
	viper.AddConfigPath(".")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("log_level", "info")
	viper.SetDefault("access_token_expire_minutes", 60)
	viper.SetDefault("duplicate_sale_window_minutes", 5)
	viper.SetDefault("delivery_retention_days", 90)
	viper.SetDefault("rate_limit", "500/minute")
	viper.SetDefault("allowed_origins", []string{"http://localhost:3000"})
	viper.SetDefault("http_port", 8080)
	viper.SetDefault("store_database", "mcpgateway")
	viper.SetDefault("issuer", "mcp-gateway")
	viper.SetDefault("project", "mcp-gateway")
	viper.SetDefault("version", "dev")
	viper.SetDefault("smtp_port", 587)
	viper.SetDefault("smtp_from", "no-reply@mcp-gateway.local")

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !isConfigNotFound(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{
		SecretKey:             viper.GetString("secret_key"),
		StoreURI:              viper.GetString("store_uri"),
		StoreDatabase:         viper.GetString("store_database"),
		CacheURI:              viper.GetString("cache_uri"),
		AllowedOrigins:        viper.GetStringSlice("allowed_origins"),
		LogLevel:              viper.GetString("log_level"),
		AccessTokenTTL:        time.Duration(viper.GetInt("access_token_expire_minutes")) * time.Minute,
		DuplicateSaleWindow:   time.Duration(viper.GetInt("duplicate_sale_window_minutes")) * time.Minute,
		DeliveryRetentionDays: viper.GetInt("delivery_retention_days"),
		RateLimitPerMinute:    parseRateLimit(viper.GetString("rate_limit")),
		HTTPPort:              viper.GetInt("http_port"),
		Issuer:                viper.GetString("issuer"),
		Project:               viper.GetString("project"),
		Version:               viper.GetString("version"),
		SMTPHost:              viper.GetString("smtp_host"),
		SMTPPort:              viper.GetInt("smtp_port"),
		SMTPUsername:          viper.GetString("smtp_username"),
		SMTPPassword:          viper.GetString("smtp_password"),
		SMTPFrom:              viper.GetString("smtp_from"),
	}

	if err := cfg.validateSecrets(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validateSecrets aborts boot with a clear diagnostic if any
// required-at-boot secret is missing, per spec §6.
func (c *Config) validateSecrets() error {
	var missing []string
	if c.SecretKey == "" {
		missing = append(missing, "SECRET_KEY")
	}
	if c.StoreURI == "" {
		missing = append(missing, "STORE_URI")
	}
	if c.CacheURI == "" {
		missing = append(missing, "CACHE_URI")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}

func parseRateLimit(spec string) int {
	// "500/minute" → 500; anything unparsable falls back to the spec default.
	parts := strings.SplitN(spec, "/", 2)
	if len(parts) != 2 {
		return 500
	}
	var n int
	if _, err := fmt.Sscanf(parts[0], "%d", &n); err != nil || n <= 0 {
		return 500
	}
	return n
}

func isConfigNotFound(err error, target *viper.ConfigFileNotFoundError) bool {
	_, ok := err.(viper.ConfigFileNotFoundError)
	if ok {
		*target = err.(viper.ConfigFileNotFoundError)
	}
	return ok
}
