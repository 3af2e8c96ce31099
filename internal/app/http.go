package app

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"github.com/adanyl0v/go-tracker/internal/config"
	"github.com/adanyl0v/go-tracker/internal/database"
	"github.com/adanyl0v/go-tracker/internal/delivery/http/v1"
	"github.com/adanyl0v/go-tracker/internal/ratelimit"
	"github.com/adanyl0v/go-tracker/internal/repository/postgres"
	"github.com/adanyl0v/go-tracker/internal/services"
)

// Version is reported by the healthcheck. It is set at build time.
var Version = "dev"

func MustListenAndServeHTTP() {
	cfg := config.Global()
	if cfg.Env != config.EnvLocal {
		gin.SetMode(gin.ReleaseMode)
	}
	gin.DebugPrintRouteFunc = func(httpMethod, absolutePath, handlerName string, nuHandlers int) {
		globalLogger.Debug().
			Str("method", httpMethod).
			Str("path", absolutePath).
			Int("handlers", nuHandlers).
			Msg("registered route")
	}

	httpCfg := cfg.HTTP

	router := gin.New()
	router.Use(v1.RequestLogger(globalLogger))
	router.Use(gin.Recovery())

	var limiter *ratelimit.Limiter
	if cfg.RateLimit.Enabled {
		limiter = ratelimit.New(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst, cfg.RateLimit.ClientTTL)
		defer limiter.Stop()
		router.Use(v1.RateLimit(globalLogger, limiter))
	}
	registerRoutes(router)

	server := &http.Server{
		Addr:         net.JoinHostPort(httpCfg.Host, httpCfg.Port),
		Handler:      router,
		ReadTimeout:  httpCfg.ReadTimeout,
		WriteTimeout: httpCfg.WriteTimeout,
	}

	go func() {
		globalLogger.Info().
			Str("host", httpCfg.Host).
			Str("port", httpCfg.Port).
			Msg("setting up http server")
		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			globalLogger.Error().
				Err(err).
				Msg("failed to listen and serve http")
			panic(err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	globalLogger.Info().
		Str("signal", sig.String()).
		Msg("shutting down http server")

	ctx, cancel := context.WithTimeout(context.Background(), httpCfg.ShutdownTimeout)
	defer cancel()

	err := server.Shutdown(ctx)
	if err != nil {
		globalLogger.Error().
			Err(err).
			Msg("failed to shutdown http server")
		panic(err)
	}
	globalLogger.Info().Msg("shut down http server")
}

func registerRoutes(router gin.IRouter) {
	cfg := config.Global()
	opts := services.Options{
		JWTIssuer:         cfg.JWT.Issuer,
		JWTSigningKey:     []byte(cfg.JWT.SigningKey),
		JWTAccessTokenTTL: cfg.JWT.AccessTokenTTL,
		AdminUsernames:    cfg.Auth.AdminUsernames,
	}
	resolve := func(db database.DBTX) *services.Set {
		return services.NewSet(globalLogger, postgres.NewRepositories(db), opts)
	}

	v1Handler := v1.New(globalLogger, globalPostgresPool, resolve, v1.Options{
		Env:           cfg.Env,
		Version:       Version,
		SecureCookies: cfg.Env == config.EnvProd,
	})
	v1.RegisterRoutes(router, v1Handler)
}
