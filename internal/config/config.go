package config // package config loads application configuration from .env, environment variables and an optional config file

import (
	"errors"
	"fmt"
	"strings"

	"github.com/joho/godotenv" // .env support for local development
	"github.com/spf13/viper"   // layered configuration: defaults < config file < environment
)

// Environment names recognised by APP_ENV.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
	EnvTest        = "test"
)

// Config holds all runtime configuration values.  It is built once by Load
// and handed to constructors explicitly; nothing in the application reads
// the environment after startup.
type Config struct {
	Env      string // application environment (development, production, test)
	Port     string // HTTP port to listen on
	LogLevel string // logrus level name

	DB DBConfig

	JWTSecret      string // secret used to sign access tokens
	AccessTTLMin   int    // access token time-to-live in minutes
	RefreshTTLDays int    // refresh token time-to-live in days
	BcryptCost     int    // bcrypt cost for password hashing

	WhitelistOrigins    []string // CORS origins accepted outside development
	WhitelistAdminsMail []string // emails allowed to register with the admin role

	Storage    StorageConfig
	AWSProfile string

	RabbitMQURL     string // empty disables activity publishing
	ActivityLogPath string // file the activity consumer appends to

	RateLimit RateLimitConfig
	Cache     CacheConfig
	Redis     RedisConfig
}

// DBConfig selects and addresses the relational store.
type DBConfig struct {
	Driver string // mysql | sqlite
	User   string
	Pass   string
	Host   string
	Port   string
	Name   string
	Path   string // sqlite database file
}

// StorageConfig addresses the S3 bucket holding blog banners.
type StorageConfig struct {
	Bucket    string
	Region    string
	Endpoint  string // custom endpoint for S3 compatible services
	KeyPrefix string // folder banners are stored under, e.g. blog-api/<uuid>
	PublicURL string // base URL used to build banner links; S3 virtual host URL when empty
	AccessKey string // static credentials for S3 compatible services; AWS default chain when empty
	SecretKey string
}

// IsDevelopment reports whether the service runs with development defaults.
func (c Config) IsDevelopment() bool { return c.Env == EnvDevelopment }

// IsProduction reports whether APP_ENV=production.
func (c Config) IsProduction() bool { return c.Env == EnvProduction }

// IsTest reports whether APP_ENV=test.
func (c Config) IsTest() bool { return c.Env == EnvTest }

// IsAdminEmail reports whether email may register as an admin.
func (c Config) IsAdminEmail(email string) bool {
	email = strings.ToLower(strings.TrimSpace(email))
	for _, allowed := range c.WhitelistAdminsMail {
		if strings.ToLower(allowed) == email {
			return true
		}
	}
	return false
}

// Load reads .env (never overriding variables already set), the optional
// config.{yaml,json} file in the working directory and the process
// environment.  Missing required keys are reported together in one error.
func Load() (Config, error) {
	_ = godotenv.Load() // optional file

	v := newViper()
	v.SetConfigName("config")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}
	return fromViper(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("APP_ENV", EnvDevelopment)
	v.SetDefault("APP_PORT", "3000")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DB_DRIVER", "mysql")
	v.SetDefault("DB_HOST", "127.0.0.1")
	v.SetDefault("DB_PORT", "3306")
	v.SetDefault("DB_PATH", "data/blog.db")
	v.SetDefault("ACCESS_TOKEN_TTL_MIN", 60)
	v.SetDefault("REFRESH_TOKEN_TTL_DAYS", 7)
	v.SetDefault("BCRYPT_COST", 10)
	v.SetDefault("STORAGE_REGION", "us-east-1")
	v.SetDefault("STORAGE_KEY_PREFIX", "blog-api")
	v.SetDefault("ACTIVITY_LOG_PATH", "logs/activity.log")

	setRateLimitDefaults(v)
	setCacheDefaults(v)
	setRedisDefaults(v)
	return v
}

func fromViper(v *viper.Viper) (Config, error) {
	cfg := Config{
		Env:      strings.ToLower(v.GetString("APP_ENV")),
		Port:     v.GetString("APP_PORT"),
		LogLevel: v.GetString("LOG_LEVEL"),
		DB: DBConfig{
			Driver: strings.ToLower(v.GetString("DB_DRIVER")),
			User:   v.GetString("DB_USER"),
			Pass:   v.GetString("DB_PASS"), // empty allowed
			Host:   v.GetString("DB_HOST"),
			Port:   v.GetString("DB_PORT"),
			Name:   v.GetString("DB_NAME"),
			Path:   v.GetString("DB_PATH"),
		},
		JWTSecret:           v.GetString("JWT_SECRET"),
		AccessTTLMin:        v.GetInt("ACCESS_TOKEN_TTL_MIN"),
		RefreshTTLDays:      v.GetInt("REFRESH_TOKEN_TTL_DAYS"),
		BcryptCost:          v.GetInt("BCRYPT_COST"),
		WhitelistOrigins:    splitList(v.GetString("WHITELIST_ORIGINS")),
		WhitelistAdminsMail: splitList(v.GetString("WHITELIST_ADMINS_MAIL")),
		Storage: StorageConfig{
			Bucket:    v.GetString("STORAGE_BUCKET"),
			Region:    v.GetString("STORAGE_REGION"),
			Endpoint:  v.GetString("STORAGE_ENDPOINT"),
			KeyPrefix: strings.Trim(v.GetString("STORAGE_KEY_PREFIX"), "/"),
			PublicURL: strings.TrimRight(v.GetString("STORAGE_PUBLIC_URL"), "/"),
			AccessKey: v.GetString("STORAGE_ACCESS_KEY"),
			SecretKey: v.GetString("STORAGE_SECRET_KEY"),
		},
		AWSProfile:      v.GetString("AWS_PROFILE"),
		RabbitMQURL:     v.GetString("RABBITMQ_URL"),
		ActivityLogPath: v.GetString("ACTIVITY_LOG_PATH"),
		RateLimit:       rateLimitFromViper(v),
		Cache:           cacheFromViper(v),
		Redis:           redisFromViper(v),
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	var missing []string
	require := func(key, val string) {
		if strings.TrimSpace(val) == "" {
			missing = append(missing, key)
		}
	}
	require("JWT_SECRET", c.JWTSecret)

	switch c.DB.Driver {
	case "mysql":
		require("DB_USER", c.DB.User)
		require("DB_HOST", c.DB.Host)
		require("DB_PORT", c.DB.Port)
		require("DB_NAME", c.DB.Name)
	case "sqlite":
		require("DB_PATH", c.DB.Path)
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DB.Driver)
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required config: %s", strings.Join(missing, ", "))
	}

	switch c.Env {
	case EnvDevelopment, EnvProduction, EnvTest:
	default:
		return fmt.Errorf("invalid APP_ENV %q", c.Env)
	}
	if c.AccessTTLMin <= 0 {
		return fmt.Errorf("invalid ACCESS_TOKEN_TTL_MIN: %d", c.AccessTTLMin)
	}
	if c.RefreshTTLDays <= 0 {
		return fmt.Errorf("invalid REFRESH_TOKEN_TTL_DAYS: %d", c.RefreshTTLDays)
	}
	return nil
}

// splitList turns "a, b,,c" into [a b c].
func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
