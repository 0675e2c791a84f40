package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/nhscc/qoverflow.api.hscc.bdpa.org-sub000/pkg/logger"
	"github.com/spf13/viper"
)

// Config holds application configuration
type Config struct {
	Server    ServerConfig
	MongoDB   MongoDBConfig
	Redis     RedisConfig
	JWT       JWTConfig
	RateLimit RateLimitConfig
	Limits    Limits
	Views     ViewsConfig
	LogLevel  string
}

type ServerConfig struct {
	Port         string
	Host         string
	Environment  string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// MongoDBConfig is optional: an empty URI selects the in-memory stores.
type MongoDBConfig struct {
	URI      string
	Database string
	Timeout  time.Duration
}

// RedisConfig is optional: an empty Host disables view de-duplication,
// token revocation and the shared rate limiter.
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

func (r RedisConfig) Addr() string {
	if r.Host == "" {
		return ""
	}
	return r.Host + ":" + r.Port
}

type JWTConfig struct {
	Secret         string
	AccessTokenTTL time.Duration
}

type RateLimitConfig struct {
	Enabled bool
	RPS     float64
	Burst   int
	Window  time.Duration
}

// Limits bounds user input and page sizes.
type Limits struct {
	MaxTitleLength   int
	MaxTextLength    int
	MaxCommentLength int
	MaxSubjectLength int
	ResultsPerPage   int
}

// DefaultLimits matches the defaults LoadConfig applies.
func DefaultLimits() Limits {
	return Limits{
		MaxTitleLength:   150,
		MaxTextLength:    3000,
		MaxCommentLength: 150,
		MaxSubjectLength: 75,
		ResultsPerPage:   100,
	}
}

type ViewsConfig struct {
	DedupeTTL time.Duration
}

// LoadConfig loads configuration from environment variables and an optional .env file
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	viper.AutomaticEnv()

	d := DefaultLimits()
	viper.SetDefault("SERVER_PORT", "5001")
	viper.SetDefault("SERVER_HOST", "0.0.0.0")
	viper.SetDefault("SERVER_ENVIRONMENT", "development")
	viper.SetDefault("MONGODB_DATABASE", "qoverflow")
	viper.SetDefault("MONGODB_TIMEOUT", 10)
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("JWT_ACCESS_TOKEN_TTL", 60)
	viper.SetDefault("RATE_LIMIT_ENABLED", true)
	viper.SetDefault("RATE_LIMIT_RPS", 10.0)
	viper.SetDefault("RATE_LIMIT_BURST", 20)
	viper.SetDefault("RATE_LIMIT_WINDOW", 1)
	viper.SetDefault("MAX_TITLE_LENGTH", d.MaxTitleLength)
	viper.SetDefault("MAX_TEXT_LENGTH", d.MaxTextLength)
	viper.SetDefault("MAX_COMMENT_LENGTH", d.MaxCommentLength)
	viper.SetDefault("MAX_SUBJECT_LENGTH", d.MaxSubjectLength)
	viper.SetDefault("RESULTS_PER_PAGE", d.ResultsPerPage)
	viper.SetDefault("VIEW_DEDUPE_TTL", 3600)
	viper.SetDefault("LOG_LEVEL", "info")

	cfg := &Config{
		Server: ServerConfig{
			Port:         viper.GetString("SERVER_PORT"),
			Host:         viper.GetString("SERVER_HOST"),
			Environment:  viper.GetString("SERVER_ENVIRONMENT"),
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		MongoDB: MongoDBConfig{
			URI:      viper.GetString("MONGODB_URI"),
			Database: viper.GetString("MONGODB_DATABASE"),
			Timeout:  time.Duration(viper.GetInt("MONGODB_TIMEOUT")) * time.Second,
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetString("REDIS_PORT"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		JWT: JWTConfig{
			Secret:         os.Getenv("JWT_SECRET"),
			AccessTokenTTL: time.Duration(viper.GetInt("JWT_ACCESS_TOKEN_TTL")) * time.Minute,
		},
		RateLimit: RateLimitConfig{
			Enabled: viper.GetBool("RATE_LIMIT_ENABLED"),
			RPS:     viper.GetFloat64("RATE_LIMIT_RPS"),
			Burst:   viper.GetInt("RATE_LIMIT_BURST"),
			Window:  time.Duration(viper.GetInt("RATE_LIMIT_WINDOW")) * time.Second,
		},
		Limits: Limits{
			MaxTitleLength:   viper.GetInt("MAX_TITLE_LENGTH"),
			MaxTextLength:    viper.GetInt("MAX_TEXT_LENGTH"),
			MaxCommentLength: viper.GetInt("MAX_COMMENT_LENGTH"),
			MaxSubjectLength: viper.GetInt("MAX_SUBJECT_LENGTH"),
			ResultsPerPage:   viper.GetInt("RESULTS_PER_PAGE"),
		},
		Views:    ViewsConfig{DedupeTTL: time.Duration(viper.GetInt("VIEW_DEDUPE_TTL")) * time.Second},
		LogLevel: viper.GetString("LOG_LEVEL"),
	}

	if err := cfg.Limits.Validate(); err != nil {
		return nil, err
	}
	if cfg.JWT.Secret == "" {
		if cfg.Server.Environment == "production" {
			return nil, fmt.Errorf("JWT_SECRET is required in production")
		}
		logger.Warnf("JWT_SECRET is not set; set a secure value in production")
	}

	return cfg, nil
}

// Validate rejects non-positive limits.
func (l Limits) Validate() error {
	for name, v := range map[string]int{
		"MAX_TITLE_LENGTH":   l.MaxTitleLength,
		"MAX_TEXT_LENGTH":    l.MaxTextLength,
		"MAX_COMMENT_LENGTH": l.MaxCommentLength,
		"MAX_SUBJECT_LENGTH": l.MaxSubjectLength,
		"RESULTS_PER_PAGE":   l.ResultsPerPage,
	} {
		if v <= 0 {
			return fmt.Errorf("%s must be positive, got %d", name, v)
		}
	}
	return nil
}
