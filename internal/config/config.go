package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Env                    string
	Port                   int
	DatabaseURL            string
	RedisAddr              string
	RedisPassword          string
	RedisDB                int
	JWTSecret              string
	TokenSecret            string
	TerminalKey            string
	AdminKey               string
	ProcessorBaseURL       string
	ProcessorAPIKey        string
	ProcessorWebhookSecret string
	ProcessorMock          bool
	OrderTTL               time.Duration
	SweepInterval          time.Duration
	PendingWindow          time.Duration
	CacheTTL               time.Duration
	RateLimitPerMinute     int64
	LogJSON                bool
}

func Default() Config {
	return Config{
		Env:                "dev",
		Port:               5000,
		ProcessorBaseURL:   "http://127.0.0.1:8090",
		ProcessorMock:      true,
		OrderTTL:           15 * time.Minute,
		SweepInterval:      60 * time.Second,
		PendingWindow:      2 * time.Minute,
		CacheTTL:           5 * time.Second,
		RateLimitPerMinute: 10,
		LogJSON:            true,
	}
}

func EnvDefaults() Config {
	return fromEnv(Default())
}

func fromEnv(c Config) Config {
	if v := os.Getenv("POURPASS_ENV"); v != "" {
		c.Env = v
	}
	if v := os.Getenv("POURPASS_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Port = p
		}
	}
	if v := os.Getenv("POURPASS_DATABASE_URL"); v != "" {
		c.DatabaseURL = v
	}
	if v := os.Getenv("POURPASS_REDIS_ADDR"); v != "" {
		c.RedisAddr = v
	}
	if v := os.Getenv("POURPASS_REDIS_PASSWORD"); v != "" {
		c.RedisPassword = v
	}
	if v := os.Getenv("POURPASS_REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.RedisDB = n
		}
	}
	if v := os.Getenv("POURPASS_JWT_SECRET"); v != "" {
		c.JWTSecret = v
	}
	if v := os.Getenv("POURPASS_TOKEN_SECRET"); v != "" {
		c.TokenSecret = v
	}
	if v := os.Getenv("POURPASS_TERMINAL_KEY"); v != "" {
		c.TerminalKey = v
	}
	if v := os.Getenv("POURPASS_ADMIN_KEY"); v != "" {
		c.AdminKey = v
	}
	if v := os.Getenv("POURPASS_PROCESSOR_BASE_URL"); v != "" {
		c.ProcessorBaseURL = v
	}
	if v := os.Getenv("POURPASS_PROCESSOR_API_KEY"); v != "" {
		c.ProcessorAPIKey = v
		c.ProcessorMock = false
	}
	if v := os.Getenv("POURPASS_PROCESSOR_WEBHOOK_SECRET"); v != "" {
		c.ProcessorWebhookSecret = v
	}
	if v := os.Getenv("POURPASS_PROCESSOR_MOCK"); v != "" {
		c.ProcessorMock = isTrue(v)
	}
	if v := os.Getenv("POURPASS_ORDER_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.OrderTTL = d
		}
	}
	if v := os.Getenv("POURPASS_SWEEP_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.SweepInterval = d
		}
	}
	if v := os.Getenv("POURPASS_PENDING_WINDOW"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.PendingWindow = d
		}
	}
	if v := os.Getenv("POURPASS_CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.CacheTTL = d
		}
	}
	if v := os.Getenv("POURPASS_RATE_LIMIT_PER_MINUTE"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.RateLimitPerMinute = n
		}
	}
	if v := os.Getenv("POURPASS_LOG_JSON"); v != "" {
		c.LogJSON = isTrue(v)
	}
	return c
}

func isTrue(v string) bool {
	switch v {
	case "1", "true", "TRUE", "True":
		return true
	}
	return false
}
