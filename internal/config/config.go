package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ListenAddr string
	LogLevel   string

	StoreDriver string
	DB          DBConfig

	IdentitySecret []byte
	BackendURL     string
	PaymentURL     string

	ESURL      string
	ESUser     string
	ESPassword string
	ESIndex    string

	KafkaBrokers []string

	CartDebounce   time.Duration
	ProfileIdleTTL time.Duration
	CookieSecure   bool
	AllowOrigins   []string

	SignInPath    string
	LandingPath   string
	ForbiddenPath string
}

func Load() *Config {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("notice: .env file not found: %v. Using system environment variables", err)
	}

	cfg := &Config{
		ListenAddr: EnvDefault("LISTEN_ADDR", ":8080"),
		LogLevel:   EnvDefault("LOG_LEVEL", "info"),

		StoreDriver: EnvDefault("STORE_DRIVER", "postgres"),
		DB:          loadDBConfig(),

		IdentitySecret: []byte(must(os.Getenv("IDENTITY_HS256_SECRET"), "IDENTITY_HS256_SECRET")),
		BackendURL:     must(os.Getenv("BACKEND_URL"), "BACKEND_URL"),
		PaymentURL:     os.Getenv("PAYMENT_URL"),

		ESURL:      os.Getenv("ES_URL"),
		ESUser:     os.Getenv("ES_USER"),
		ESPassword: os.Getenv("ES_PASSWORD"),
		ESIndex:    EnvDefault("ES_INDEX", "product"),

		KafkaBrokers: CSV(os.Getenv("KAFKA_BROKERS")),

		CartDebounce:   EnvDurationDefault("CART_DEBOUNCE", 300*time.Millisecond),
		ProfileIdleTTL: EnvDurationDefault("PROFILE_IDLE_TTL", 30*time.Minute),
		CookieSecure:   EnvBoolDefault("COOKIE_SECURE", true),
		AllowOrigins:   CSV(os.Getenv("CORS_ORIGINS")),

		SignInPath:    EnvDefault("SIGNIN_PATH", "/signin"),
		LandingPath:   EnvDefault("LANDING_PATH", "/dashboard"),
		ForbiddenPath: EnvDefault("FORBIDDEN_PATH", "/forbidden"),
	}
	if cfg.StoreDriver == "postgres" {
		must(cfg.DB.DSN, "DATABASE_URL")
	}
	return cfg
}

func must(v string, name string) string {
	if v == "" {
		log.Fatalf("missing required env %s", name)
	}
	return v
}

func CSV(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func EnvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func EnvIntDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func EnvDurationDefault(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		return def
	}
	return d
}

func EnvBoolDefault(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
