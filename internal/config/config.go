package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the classroom service.
type Config struct {
	AppName              string
	AppEnv               string
	AppPort              string
	AllowOrigins         string
	BackendURL           string
	BackendTimeout       time.Duration
	RedisURL             string
	ViewTTL              time.Duration
	QuizAdvanceDelay     time.Duration
	SubmissionMaxFileMB  int
	LoaderMaxConcurrency int
	RateLimitMax         int
	RateLimitWindow      time.Duration
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// IsProduction reports whether the service runs in production.
func (c Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production")
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("CLASSROOM")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	return fromViper(v)
}

func fromViper(v *viper.Viper) (Config, error) {
	v.SetDefault("app.name", "GEMA Classroom")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("app.allow_origins", "*")
	v.SetDefault("backend.timeout", "0s")
	v.SetDefault("view.ttl", "2h")
	v.SetDefault("quiz.advance_delay", "1500ms")
	v.SetDefault("submission.max_file_mb", 10)
	v.SetDefault("loader.max_concurrency", 8)
	v.SetDefault("ratelimit.max", 10)
	v.SetDefault("ratelimit.window", "10s")

	durations := map[string]*time.Duration{}
	cfg := Config{
		AppName:              v.GetString("app.name"),
		AppEnv:               v.GetString("app.env"),
		AppPort:              v.GetString("app.port"),
		AllowOrigins:         v.GetString("app.allow_origins"),
		BackendURL:           strings.TrimRight(strings.TrimSpace(v.GetString("backend.url")), "/"),
		RedisURL:             strings.TrimSpace(v.GetString("redis.url")),
		SubmissionMaxFileMB:  v.GetInt("submission.max_file_mb"),
		LoaderMaxConcurrency: v.GetInt("loader.max_concurrency"),
		RateLimitMax:         v.GetInt("ratelimit.max"),
	}
	durations["backend.timeout"] = &cfg.BackendTimeout
	durations["view.ttl"] = &cfg.ViewTTL
	durations["quiz.advance_delay"] = &cfg.QuizAdvanceDelay
	durations["ratelimit.window"] = &cfg.RateLimitWindow

	for key, target := range durations {
		parsed, err := time.ParseDuration(v.GetString(key))
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", key, err)
		}
		if parsed < 0 {
			return Config{}, fmt.Errorf("invalid %s: must not be negative", key)
		}
		*target = parsed
	}

	if cfg.BackendURL == "" {
		return Config{}, fmt.Errorf("backend url must be provided")
	}
	if parsed, err := url.Parse(cfg.BackendURL); err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return Config{}, fmt.Errorf("backend url %q is not an absolute url", cfg.BackendURL)
	}

	if cfg.ViewTTL == 0 {
		cfg.ViewTTL = 2 * time.Hour
	}
	if cfg.SubmissionMaxFileMB <= 0 {
		cfg.SubmissionMaxFileMB = 10
	}
	if cfg.LoaderMaxConcurrency <= 0 {
		cfg.LoaderMaxConcurrency = 8
	}
	if cfg.RateLimitMax <= 0 {
		cfg.RateLimitMax = 10
	}

	return cfg, nil
}
