package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StorePostgres = "postgres"
	StoreMongo    = "mongo"
	StoreMemory   = "memory"
)

type Config struct {
	Env  string
	Port int

	StoreDriver   string
	DBURL         string
	DBAutoMigrate bool
	DBMaxConns    int
	MongoURI      string
	MongoDatabase string

	JWTSecret          string
	JWTTTLHours        int
	AuthRevalidateUser bool

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	AuthRateLimit         int
	AuthRateWindowSeconds int

	// per user limit on product writes
	WriteRateLimit         int
	WriteRateWindowSeconds int

	CORSAllowedOrigins []string
	MaxBodyBytes       int64
	ExposeErrorDetails bool

	OTLPEndpoint     string
	OTLPInsecure     bool
	OTelServiceName  string
	TraceSampleRatio float64
}

// Load reads an optional .env file and then the process environment.
func Load() Config {
	// a missing .env is fine, real deployments set the environment directly
	_ = godotenv.Load()

	env := getEnv("APP_ENV", "dev")

	return Config{
		Env:  env,
		Port: getEnvInt("PORT", 5000),

		StoreDriver:   strings.ToLower(getEnv("STORE_DRIVER", StorePostgres)),
		DBURL:         getEnv("DATABASE_URL", buildDBURL()),
		DBAutoMigrate: getEnvBool("DB_AUTO_MIGRATE", env == "dev"),
		DBMaxConns:    getEnvInt("DB_MAX_CONNS", 10),
		MongoURI:      getEnv("MONGO_URI", "mongodb://127.0.0.1:27017"),
		MongoDatabase: getEnv("MONGO_DATABASE", "storefront"),

		JWTSecret:          os.Getenv("JWT_SECRET"),
		JWTTTLHours:        getEnvInt("JWT_TTL_HOURS", 72),
		AuthRevalidateUser: getEnvBool("AUTH_REVALIDATE_USER", false),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		AuthRateLimit:         getEnvInt("AUTH_RATE_LIMIT", 20),
		AuthRateWindowSeconds: getEnvInt("AUTH_RATE_WINDOW_SECONDS", 60),

		WriteRateLimit:         getEnvInt("WRITE_RATE_LIMIT", 60),
		WriteRateWindowSeconds: getEnvInt("WRITE_RATE_WINDOW_SECONDS", 60),

		CORSAllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:5173")),
		MaxBodyBytes:       int64(getEnvInt("MAX_BODY_BYTES", 1<<20)),
		ExposeErrorDetails: getEnvBool("EXPOSE_ERROR_DETAILS", env != "prod"),

		OTLPEndpoint:     os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		OTLPInsecure:     getEnvBool("OTEL_EXPORTER_OTLP_INSECURE", true),
		OTelServiceName:  getEnv("OTEL_SERVICE_NAME", "storefront"),
		TraceSampleRatio: getEnvFloat("OTEL_TRACES_SAMPLER_ARG", 1),
	}
}

// Validate reports configuration the server cannot start with.
func (c Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.JWTSecret) == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}

	switch c.StoreDriver {
	case StorePostgres, StoreMongo, StoreMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver))
	}

	if c.JWTTTLHours <= 0 {
		errs = append(errs, errors.New("JWT_TTL_HOURS must be positive"))
	}

	if c.AuthRateLimit <= 0 {
		errs = append(errs, errors.New("AUTH_RATE_LIMIT must be positive"))
	}
	if c.AuthRateWindowSeconds <= 0 {
		errs = append(errs, errors.New("AUTH_RATE_WINDOW_SECONDS must be positive"))
	}
	if c.WriteRateLimit <= 0 {
		errs = append(errs, errors.New("WRITE_RATE_LIMIT must be positive"))
	}
	if c.WriteRateWindowSeconds <= 0 {
		errs = append(errs, errors.New("WRITE_RATE_WINDOW_SECONDS must be positive"))
	}

	if c.TraceSampleRatio < 0 || c.TraceSampleRatio > 1 {
		errs = append(errs, errors.New("OTEL_TRACES_SAMPLER_ARG must be between 0 and 1"))
	}

	if c.Port <= 0 {
		errs = append(errs, errors.New("PORT must be positive"))
	}

	return errors.Join(errs...)
}

func (c Config) TokenTTL() time.Duration {
	return time.Duration(c.JWTTTLHours) * time.Hour
}

func (c Config) AuthRateWindow() time.Duration {
	return time.Duration(c.AuthRateWindowSeconds) * time.Second
}

func (c Config) WriteRateWindow() time.Duration {
	return time.Duration(c.WriteRateWindowSeconds) * time.Second
}

func buildDBURL() string {
	host := getEnv("DB_HOST", "127.0.0.1")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "storefront")
	pass := getEnv("DB_PASSWORD", "storefront")
	name := getEnv("DB_NAME", "storefront")
	ssl := getEnv("DB_SSLMODE", "disable")

	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=" + ssl
}

func WithTimeout(duration time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), duration)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		num, err := strconv.Atoi(v)

		if err != nil {
			return fallback
		}

		return num
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fallback
		}
		return f
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fallback
		}
		return b
	}
	return fallback
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))

	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
