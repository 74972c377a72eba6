// Package config loads and holds the application configuration.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Conf is the process wide configuration populated by Init.
var Conf Config

// Config mirrors the structure of configs/config.yaml.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Log      LogConfig      `mapstructure:"log"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	MinIO    MinIOConfig    `mapstructure:"minio"`
	Paystack PaystackConfig `mapstructure:"paystack"`
	Upload   UploadConfig   `mapstructure:"upload"`
	CORS     CORSConfig     `mapstructure:"cors"`
}

// ServerConfig holds the HTTP server settings.
type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

// DatabaseConfig holds the connection settings of every data store.
type DatabaseConfig struct {
	// Driver selects the gorm dialector: "postgres" (default) or "mysql".
	Driver      string      `mapstructure:"driver"`
	DSN         string      `mapstructure:"dsn"`
	AutoMigrate bool        `mapstructure:"auto_migrate"`
	Redis       RedisConfig `mapstructure:"redis"`
}

// RedisConfig holds the Redis settings.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AuthConfig holds the settings used to verify tokens issued by the auth provider.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
}

// LogConfig holds the logging settings.
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

// KafkaConfig holds the event producer settings.
type KafkaConfig struct {
	Brokers string `mapstructure:"brokers"`
	Topic   string `mapstructure:"topic"`
}

// MinIOConfig holds the object storage settings.
type MinIOConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	// PublicBaseURL is the project URL of the hosted backend; public object
	// URLs are built from it when set.
	PublicBaseURL string        `mapstructure:"public_base_url"`
	Buckets       BucketsConfig `mapstructure:"buckets"`
}

// BucketsConfig maps the logical buckets to physical bucket names.
type BucketsConfig struct {
	Content string `mapstructure:"content"`
	Covers  string `mapstructure:"covers"`
	Avatars string `mapstructure:"avatars"`
}

// PaystackConfig holds the payment gateway settings.
type PaystackConfig struct {
	BaseURL           string        `mapstructure:"base_url"`
	SecretKey         string        `mapstructure:"secret_key"`
	Timeout           time.Duration `mapstructure:"timeout"`
	Currency          string        `mapstructure:"currency"`
	BankCountry       string        `mapstructure:"bank_country"`
	PlatformPercent   float64       `mapstructure:"platform_percentage"`
	ProducerSharePct  int           `mapstructure:"producer_share"`
	ProvisionLockTTL  time.Duration `mapstructure:"provision_lock_ttl"`
	BankListCacheTTL  time.Duration `mapstructure:"bank_list_cache_ttl"`
	BankListRetries   int           `mapstructure:"bank_list_retries"`
	DownloadURLExpiry time.Duration `mapstructure:"download_url_expiry"`
}

// UploadConfig holds the upload pipeline limits.
type UploadConfig struct {
	MaxConcurrentChunks int   `mapstructure:"max_concurrent_chunks"`
	FullTrackMaxBytes   int64 `mapstructure:"full_track_max_bytes"`
	StemsMaxBytes       int64 `mapstructure:"stems_max_bytes"`
	// MaxRequestBytes caps the multipart body accepted by the upload endpoint.
	MaxRequestBytes int64 `mapstructure:"max_request_bytes"`
}

// CORSConfig holds the allowed origins of the web client.
type CORSConfig struct {
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// Init reads the YAML file at configPath into Conf and panics on failure.
func Init(configPath string) {
	cfg, err := Load(configPath)
	if err != nil {
		panic(err)
	}
	Conf = *cfg
}

// Load reads the YAML file at configPath, applies defaults and environment overrides.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	bindEnv(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.MinIO.PublicBaseURL = strings.TrimRight(cfg.MinIO.PublicBaseURL, "/")
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "release")
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.auto_migrate", true)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("kafka.topic", "beatmarket-events")
	v.SetDefault("minio.buckets.content", "content")
	v.SetDefault("minio.buckets.covers", "covers")
	v.SetDefault("minio.buckets.avatars", "avatars")
	v.SetDefault("paystack.base_url", "https://api.paystack.co")
	v.SetDefault("paystack.timeout", 30*time.Second)
	v.SetDefault("paystack.currency", "NGN")
	v.SetDefault("paystack.bank_country", "nigeria")
	v.SetDefault("paystack.platform_percentage", 10.0)
	v.SetDefault("paystack.producer_share", 90)
	v.SetDefault("paystack.provision_lock_ttl", time.Minute)
	v.SetDefault("paystack.bank_list_cache_ttl", 24*time.Hour)
	v.SetDefault("paystack.bank_list_retries", 3)
	v.SetDefault("paystack.download_url_expiry", time.Hour)
	v.SetDefault("upload.max_concurrent_chunks", 3)
	v.SetDefault("upload.full_track_max_bytes", 70*1024*1024)
	v.SetDefault("upload.stems_max_bytes", 250*1024*1024)
	v.SetDefault("upload.max_request_bytes", 260*1024*1024)
	v.SetDefault("cors.allow_origins", []string{"*"})
}

// bindEnv maps the hosted backend environment variables onto config keys.
func bindEnv(v *viper.Viper) {
	_ = v.BindEnv("minio.public_base_url", "SUPABASE_URL")
	_ = v.BindEnv("minio.secret_access_key", "SUPABASE_SERVICE_ROLE_KEY", "SUPABASE_ANON_KEY")
	_ = v.BindEnv("auth.jwt_secret", "SUPABASE_JWT_SECRET")
	_ = v.BindEnv("database.dsn", "DATABASE_URL")
	_ = v.BindEnv("paystack.secret_key", "PAYSTACK_SECRET_KEY")
}
