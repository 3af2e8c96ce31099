package config

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"
)

const (
	EnvDev   = "dev"
	EnvProd  = "prod"
	EnvLocal = "local"
)

var globalConfig *Config

func Global() *Config {
	return globalConfig
}

func SetGlobal(cfg *Config) {
	globalConfig = cfg
}

type Config struct {
	Env       string `env:"ENV" env-required:"true"`
	HTTP      HTTPConfig
	Postgres  PostgresConfig
	JWT       JWTConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
}

type HTTPConfig struct {
	Host            string        `env:"HTTP_HOST" env-default:"0.0.0.0"`
	Port            string        `env:"HTTP_PORT" env-default:"8080"`
	ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT" env-default:"10s"`
	WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT" env-default:"30s"`
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" env-default:"5s"`
}

type PostgresConfig struct {
	Host           string        `env:"POSTGRES_HOST" env-required:"true"`
	Port           int           `env:"POSTGRES_PORT" env-default:"5432"`
	Username       string        `env:"POSTGRES_USERNAME" env-required:"true"`
	Password       string        `env:"POSTGRES_PASSWORD" env-required:"true"`
	Database       string        `env:"POSTGRES_DATABASE" env-required:"true"`
	SSLMode        string        `env:"POSTGRES_SSL_MODE" env-default:"disable"`
	ConnectTimeout time.Duration `env:"POSTGRES_CONNECT_TIMEOUT" env-default:"10s"`
	PingTimeout    time.Duration `env:"POSTGRES_PING_TIMEOUT" env-default:"10s"`
	MaxConns       int32         `env:"POSTGRES_MAX_CONNS" env-default:"10"`
}

// URL builds a postgres:// connection string. Credentials are escaped.
func (c PostgresConfig) URL() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.Username, c.Password),
		Host:   net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:   "/" + c.Database,
	}
	u.RawQuery = fmt.Sprintf("sslmode=%s", url.QueryEscape(c.SSLMode))
	return u.String()
}

type JWTConfig struct {
	Issuer         string        `env:"JWT_ISSUER" env-default:"go-tracker"`
	SigningKey     string        `env:"JWT_SIGNING_KEY" env-required:"true"`
	AccessTokenTTL time.Duration `env:"JWT_ACCESS_TOKEN_TTL" env-default:"15m"`
}

type AuthConfig struct {
	// AdminUsernames are granted the admin role on registration.
	AdminUsernames []string `env:"AUTH_ADMIN_USERNAMES" env-separator:","`
}

type RateLimitConfig struct {
	Enabled           bool          `env:"RATE_LIMIT_ENABLED" env-default:"false"`
	RequestsPerSecond float64       `env:"RATE_LIMIT_RPS" env-default:"10"`
	Burst             int           `env:"RATE_LIMIT_BURST" env-default:"20"`
	ClientTTL         time.Duration `env:"RATE_LIMIT_CLIENT_TTL" env-default:"3m"`
}
