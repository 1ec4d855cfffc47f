package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"floordesign/logger"
)

// Config holds all configuration for the server and the floorctl CLI.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Media    MediaConfig    `mapstructure:"media"`
	Tracker  TrackerConfig  `mapstructure:"tracker"`
	Upload   UploadConfig   `mapstructure:"upload"`
	Log      LogConfig      `mapstructure:"log"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	ReadTimeout  int    `mapstructure:"read_timeout"`
	WriteTimeout int    `mapstructure:"write_timeout"`
	IdleTimeout  int    `mapstructure:"idle_timeout"`
	StaticDir    string `mapstructure:"static_dir"`
	// AllowedOrigins is the CORS allow-list of storefront origins.
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseConfig selects the database/sql driver: sqlite, mysql or postgres.
type DatabaseConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

// AuthConfig holds token and seeding settings.
type AuthConfig struct {
	JWTSecret          string `mapstructure:"jwt_secret"`
	TokenTTLHours      int    `mapstructure:"token_ttl_hours"`
	CookieName         string `mapstructure:"cookie_name"`
	CookieSecure       bool   `mapstructure:"cookie_secure"`
	LoginRatePerMinute int    `mapstructure:"login_rate_per_minute"`
	AdminEmail         string `mapstructure:"admin_email"`
	AdminPassword      string `mapstructure:"admin_password"`
}

// TokenTTL returns the token lifetime.
func (a AuthConfig) TokenTTL() time.Duration {
	return time.Duration(a.TokenTTLHours) * time.Hour
}

// MediaConfig selects and configures the remote media host.
type MediaConfig struct {
	Provider          string           `mapstructure:"provider"`
	RequestsPerSecond int              `mapstructure:"requests_per_second"`
	MaxImageWidth     int              `mapstructure:"max_image_width"`
	Cloudinary        CloudinaryConfig `mapstructure:"cloudinary"`
	Minio             MinioConfig      `mapstructure:"minio"`
	S3                S3Config         `mapstructure:"s3"`
}

// CloudinaryConfig holds Cloudinary upload API settings.
type CloudinaryConfig struct {
	BaseURL      string `mapstructure:"base_url"`
	CloudName    string `mapstructure:"cloud_name"`
	UploadPreset string `mapstructure:"upload_preset"`
	APIKey       string `mapstructure:"api_key"`
	APISecret    string `mapstructure:"api_secret"`
	Timeout      int    `mapstructure:"timeout"`
}

// MinioConfig holds S3-compatible endpoint settings.
type MinioConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	PublicURL string `mapstructure:"public_url"`
}

// S3Config holds AWS S3 settings. Endpoint is optional (localstack).
type S3Config struct {
	Region    string `mapstructure:"region"`
	Bucket    string `mapstructure:"bucket"`
	Endpoint  string `mapstructure:"endpoint"`
	PublicURL string `mapstructure:"public_url"`
}

// TrackerConfig selects where upload session state is kept.
type TrackerConfig struct {
	Backend        string      `mapstructure:"backend"`
	RetentionHours int         `mapstructure:"retention_hours"`
	Redis          RedisConfig `mapstructure:"redis"`
}

// RedisConfig holds Redis connection details.
type RedisConfig struct {
	Host      string `mapstructure:"host"`
	Port      int    `mapstructure:"port"`
	Password  string `mapstructure:"password"`
	Database  int    `mapstructure:"database"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

// UploadConfig tunes the admin product upload workflow.
type UploadConfig struct {
	StrictRoots      bool `mapstructure:"strict_roots"`
	CleanupOnFailure bool `mapstructure:"cleanup_on_failure"`
	MaxRequestMB     int  `mapstructure:"max_request_mb"`
}

// LogConfig mirrors logger.Config in file-friendly units.
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Dir        string `mapstructure:"dir"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	UseColor   bool   `mapstructure:"use_color"`
	ShowCaller bool   `mapstructure:"show_caller"`
}

// LoggerConfig converts the file settings to logger.Config.
func (l LogConfig) LoggerConfig() logger.Config {
	return logger.Config{
		Level:      logger.ParseLevel(l.Level),
		LogDir:     l.Dir,
		MaxSize:    int64(l.MaxSizeMB) * 1024 * 1024,
		MaxAge:     l.MaxAgeDays,
		UseColor:   l.UseColor,
		ShowCaller: l.ShowCaller,
	}
}

// Load reads config.yaml (or the file at path) with FLOOR_* environment overrides.
// A missing config file is not an error; defaults apply.
func Load(path string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	setDefaults(v)

	v.SetEnvPrefix("FLOOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 60)
	v.SetDefault("server.write_timeout", 60)
	v.SetDefault("server.idle_timeout", 120)
	v.SetDefault("server.static_dir", "./web")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "./floordesign.db")

	v.SetDefault("auth.jwt_secret", "change-this-secret-in-production")
	v.SetDefault("auth.token_ttl_hours", 24*7)
	v.SetDefault("auth.cookie_name", "floor-and-design-token")
	v.SetDefault("auth.cookie_secure", false)
	v.SetDefault("auth.login_rate_per_minute", 10)
	v.SetDefault("auth.admin_email", "admin@floordesign.local")
	v.SetDefault("auth.admin_password", "admin123")

	v.SetDefault("media.provider", "cloudinary")
	v.SetDefault("media.requests_per_second", 5)
	v.SetDefault("media.max_image_width", 0)
	v.SetDefault("media.cloudinary.base_url", "https://api.cloudinary.com/v1_1")
	v.SetDefault("media.cloudinary.cloud_name", "")
	v.SetDefault("media.cloudinary.upload_preset", "")
	v.SetDefault("media.cloudinary.api_key", "")
	v.SetDefault("media.cloudinary.api_secret", "")
	v.SetDefault("media.cloudinary.timeout", 60)
	v.SetDefault("media.minio.endpoint", "localhost:9000")
	v.SetDefault("media.minio.access_key", "")
	v.SetDefault("media.minio.secret_key", "")
	v.SetDefault("media.minio.bucket", "floordesign")
	v.SetDefault("media.minio.region", "")
	v.SetDefault("media.minio.use_ssl", false)
	v.SetDefault("media.minio.public_url", "http://localhost:9000")
	v.SetDefault("media.s3.region", "eu-west-3")
	v.SetDefault("media.s3.bucket", "floordesign")
	v.SetDefault("media.s3.endpoint", "")
	v.SetDefault("media.s3.public_url", "")

	v.SetDefault("tracker.backend", "memory")
	v.SetDefault("tracker.retention_hours", 24)
	v.SetDefault("tracker.redis.host", "localhost")
	v.SetDefault("tracker.redis.port", 6379)
	v.SetDefault("tracker.redis.password", "")
	v.SetDefault("tracker.redis.database", 0)
	v.SetDefault("tracker.redis.key_prefix", "floordesign:upload:")

	v.SetDefault("upload.strict_roots", false)
	v.SetDefault("upload.cleanup_on_failure", false)
	v.SetDefault("upload.max_request_mb", 512)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.dir", "./logs")
	v.SetDefault("log.max_size_mb", 10)
	v.SetDefault("log.max_age_days", 7)
	v.SetDefault("log.use_color", true)
	v.SetDefault("log.show_caller", false)
}
