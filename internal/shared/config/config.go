package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Providers ProvidersConfig `mapstructure:"providers"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline"`
	Render    RenderConfig    `mapstructure:"render"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Log       LogConfig       `mapstructure:"log"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Address      string        `mapstructure:"address"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	AllowOrigins []string      `mapstructure:"allow_origins"`
}

// DatabaseConfig holds database configuration.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
}

// DSN returns the database connection string.
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// ProvidersConfig holds generation provider credentials and tuning.
type ProvidersConfig struct {
	OpenAIAPIKey     string        `mapstructure:"openai_api_key"`
	OpenAIBaseURL    string        `mapstructure:"openai_base_url"`
	FalAPIKey        string        `mapstructure:"fal_api_key"`
	FalBaseURL       string        `mapstructure:"fal_base_url"`
	ReplicateToken   string        `mapstructure:"replicate_token"`
	ReplicateBaseURL string        `mapstructure:"replicate_base_url"`
	RequestTimeout   time.Duration `mapstructure:"request_timeout"`

	HealthCheckInterval time.Duration `mapstructure:"health_check_interval"`
	FailureThreshold    uint32        `mapstructure:"failure_threshold"`
	CircuitTimeout      time.Duration `mapstructure:"circuit_timeout"`
}

// PipelineConfig holds shot pipeline tuning.
type PipelineConfig struct {
	BatchConcurrency int `mapstructure:"batch_concurrency"`
}

// RenderConfig holds render worker configuration.
type RenderConfig struct {
	ProjectRoot   string `mapstructure:"project_root"`
	OutputDir     string `mapstructure:"output_dir"`
	FFmpegPath    string `mapstructure:"ffmpeg_path"`
	PublishFinals bool   `mapstructure:"publish_finals"`
}

// StorageConfig holds object storage configuration for published renders.
type StorageConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	Region          string `mapstructure:"region"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	Bucket          string `mapstructure:"bucket"`
}

// AuthConfig holds operator authentication configuration.
type AuthConfig struct {
	JWTSecret   string        `mapstructure:"jwt_secret"`
	TokenExpiry time.Duration `mapstructure:"token_expiry"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load loads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	v.AddConfigPath("/etc/cutroom")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
		// Config file not found, use defaults and env
	}

	v.SetEnvPrefix("CUTROOM")
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// Override with environment variables for sensitive values
	if key := os.Getenv("CUTROOM_OPENAI_API_KEY"); key != "" {
		cfg.Providers.OpenAIAPIKey = key
	}
	if key := os.Getenv("CUTROOM_FAL_API_KEY"); key != "" {
		cfg.Providers.FalAPIKey = key
	}
	if token := os.Getenv("CUTROOM_REPLICATE_TOKEN"); token != "" {
		cfg.Providers.ReplicateToken = token
	}
	if secret := os.Getenv("CUTROOM_JWT_SECRET"); secret != "" {
		cfg.Auth.JWTSecret = secret
	}
	if password := os.Getenv("CUTROOM_DB_PASSWORD"); password != "" {
		cfg.Database.Password = password
	}
	if password := os.Getenv("CUTROOM_REDIS_PASSWORD"); password != "" {
		cfg.Redis.Password = password
	}
	if key := os.Getenv("CUTROOM_STORAGE_SECRET_KEY"); key != "" {
		cfg.Storage.SecretAccessKey = key
	}

	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.idle_timeout", 120*time.Second)

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "cutroom")
	v.SetDefault("database.database", "cutroom")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)
	v.SetDefault("database.conn_max_idle_time", 10*time.Minute)

	// Redis defaults
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.db", 0)

	// Provider defaults
	v.SetDefault("providers.openai_base_url", "https://api.openai.com")
	v.SetDefault("providers.fal_base_url", "https://fal.run")
	v.SetDefault("providers.replicate_base_url", "https://api.replicate.com")
	v.SetDefault("providers.request_timeout", 120*time.Second)
	v.SetDefault("providers.health_check_interval", 30*time.Second)
	v.SetDefault("providers.failure_threshold", 5)
	v.SetDefault("providers.circuit_timeout", 60*time.Second)

	// Pipeline defaults
	v.SetDefault("pipeline.batch_concurrency", 4)

	// Render defaults
	v.SetDefault("render.project_root", "./projects")
	v.SetDefault("render.output_dir", "renders")
	v.SetDefault("render.ffmpeg_path", "ffmpeg")
	v.SetDefault("render.publish_finals", false)

	// Auth defaults
	v.SetDefault("auth.token_expiry", 24*time.Hour)

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}
