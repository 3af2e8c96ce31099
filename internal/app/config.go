package app

import (
	_ "github.com/joho/godotenv/autoload"

	"github.com/adanyl0v/go-tracker/internal/config"
)

func MustReadEnv() {
	cfg, err := config.NewEnvReader().Read()
	if err != nil {
		globalLogger.Error().
			Err(err).
			Msg("failed to read env")
		panic(err)
	}
	globalLogger.Info().
		Str("env", cfg.Env).
		Bool("rate_limit", cfg.RateLimit.Enabled).
		Int("admins", len(cfg.Auth.AdminUsernames)).
		Msg("read env")

	config.SetGlobal(cfg)
}
