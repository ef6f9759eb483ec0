package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Mining   MiningConfig   `mapstructure:"mining"`
	Contract ContractConfig `mapstructure:"contract"`
}

type ServerConfig struct {
	Port           int     `mapstructure:"port"`
	TimeoutSeconds int     `mapstructure:"timeout_seconds"`
	RateLimitRPS   float64 `mapstructure:"rate_limit_rps"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
}

type AuthConfig struct {
	JWTSecret     string           `mapstructure:"jwt_secret"`
	TokenTTLHours int              `mapstructure:"token_ttl_hours"`
	Operators     []OperatorConfig `mapstructure:"operators"`
}

// OperatorConfig is one provisioned API login. PasswordHash is a bcrypt
// hash, never a plaintext password.
type OperatorConfig struct {
	UserID       string `mapstructure:"user_id"`
	PasswordHash string `mapstructure:"password_hash"`
	Role         string `mapstructure:"role"`
}

type RedisConfig struct {
	URL     string `mapstructure:"url"`
	Enabled bool   `mapstructure:"enabled"`
}

type MiningConfig struct {
	DefaultDifficulty int    `mapstructure:"default_difficulty"`
	DefaultProfile    string `mapstructure:"default_profile"`
}

type ContractConfig struct {
	SweepIntervalSeconds int `mapstructure:"sweep_interval_seconds"`
	AuditRetentionDays   int `mapstructure:"audit_retention_days"`
}

func (s ServerConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutSeconds) * time.Second
}

func (a AuthConfig) TokenTTL() time.Duration {
	return time.Duration(a.TokenTTLHours) * time.Hour
}

func (c ContractConfig) SweepInterval() time.Duration {
	return time.Duration(c.SweepIntervalSeconds) * time.Second
}

func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.timeout_seconds", 30)
	viper.SetDefault("server.rate_limit_rps", 50)
	viper.SetDefault("server.rate_limit_burst", 100)
	viper.SetDefault("auth.token_ttl_hours", 12)
	viper.SetDefault("redis.enabled", false)
	viper.SetDefault("mining.default_difficulty", 2)
	viper.SetDefault("mining.default_profile", "CPU")
	viper.SetDefault("contract.sweep_interval_seconds", 60)
	viper.SetDefault("contract.audit_retention_days", 365)

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}
