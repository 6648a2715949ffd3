package models

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

type Config struct {
	ServerAddr  string `yaml:"server_addr" env:"SERVER_ADDR"`
	DatabaseURL string `yaml:"database_url" env:"DATABASE_URL"`
	Development bool   `yaml:"development" env:"DEVELOPMENT"`

	KafkaBroker string `yaml:"kafka_broker" env:"KAFKA_BROKER"`
	KafkaTopic  string `yaml:"kafka_topic" env:"KAFKA_TOPIC"`
	KafkaGroup  string `yaml:"kafka_group" env:"KAFKA_GROUP"`

	RedisAddr     string `yaml:"redis_addr" env:"REDIS_ADDR"`
	RedisPassword string `yaml:"redis_password" env:"REDIS_PASSWORD"`
	RedisDB       int    `yaml:"redis_db" env:"REDIS_DB"`

	JWTSecret  string        `yaml:"jwt_secret" env:"JWT_SECRET"`
	AccessTTL  time.Duration `yaml:"access_ttl" env:"ACCESS_TTL"`
	RefreshTTL time.Duration `yaml:"refresh_ttl" env:"REFRESH_TTL"`

	// media backend: "local" or "s3"
	MediaBackend string `yaml:"media_backend" env:"MEDIA_BACKEND"`
	StoragePath  string `yaml:"storage_path" env:"STORAGE_PATH"`
	S3Endpoint   string `yaml:"s3_endpoint" env:"S3_ENDPOINT"`
	S3AccessKey  string `yaml:"s3_access_key" env:"S3_ACCESS_KEY"`
	S3SecretKey  string `yaml:"s3_secret_key" env:"S3_SECRET_KEY"`
	S3Bucket     string `yaml:"s3_bucket" env:"S3_BUCKET"`
	S3UseSSL     bool   `yaml:"s3_use_ssl" env:"S3_USE_SSL"`

	CollageCellSize   int    `yaml:"collage_cell_size" env:"COLLAGE_CELL_SIZE"`
	CollageFormat     string `yaml:"collage_format" env:"COLLAGE_FORMAT"`
	CollageBackground string `yaml:"collage_background" env:"COLLAGE_BACKGROUND"`
	WatermarkText     string `yaml:"watermark_text" env:"WATERMARK_TEXT"`

	MaxUploadSize int64   `yaml:"max_upload_size" env:"MAX_UPLOAD_SIZE"`
	AuthRateLimit float64 `yaml:"auth_rate_limit" env:"AUTH_RATE_LIMIT"`
	AuthRateBurst int     `yaml:"auth_rate_burst" env:"AUTH_RATE_BURST"`
}

func DefaultConfig() Config {
	return Config{
		ServerAddr:        ":8080",
		KafkaTopic:        "photos",
		KafkaGroup:        "photo-processor-group",
		AccessTTL:         15 * time.Minute,
		RefreshTTL:        7 * 24 * time.Hour,
		MediaBackend:      "local",
		StoragePath:       "media",
		CollageCellSize:   300,
		CollageFormat:     "jpeg",
		CollageBackground: "white",
		MaxUploadSize:     32 << 20,
		AuthRateLimit:     5,
		AuthRateBurst:     10,
	}
}

// LoadConfig reads the YAML file at path (if it exists), then applies .env
// and process environment overrides.
func LoadConfig(path string) (*Config, error) {
	const op = "models.LoadConfig"

	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	_ = godotenv.Load()
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	c.CollageFormat = strings.ToLower(c.CollageFormat)
	c.MediaBackend = strings.ToLower(c.MediaBackend)

	switch {
	case c.DatabaseURL == "":
		return errors.New("database_url is required")
	case c.JWTSecret == "":
		return errors.New("jwt_secret is required")
	case c.AccessTTL <= 0 || c.RefreshTTL <= 0:
		return errors.New("token ttl must be positive")
	case c.CollageCellSize <= 0:
		return errors.New("collage_cell_size must be positive")
	case c.CollageFormat != "jpeg" && c.CollageFormat != "jpg" && c.CollageFormat != "png":
		return fmt.Errorf("unsupported collage_format %q", c.CollageFormat)
	}

	switch c.MediaBackend {
	case "local":
		if c.StoragePath == "" {
			return errors.New("storage_path is required for local media")
		}
	case "s3":
		if c.S3Endpoint == "" || c.S3Bucket == "" {
			return errors.New("s3_endpoint and s3_bucket are required for s3 media")
		}
	default:
		return fmt.Errorf("unsupported media_backend %q", c.MediaBackend)
	}
	return nil
}
