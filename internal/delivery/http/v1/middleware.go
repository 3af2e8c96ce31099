package v1

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/adanyl0v/go-tracker/internal/database"
	"github.com/adanyl0v/go-tracker/internal/models"
	"github.com/adanyl0v/go-tracker/internal/ratelimit"
	"github.com/adanyl0v/go-tracker/internal/services"
)

const (
	sessionCtxKey  = "session"
	servicesCtxKey = "services"
	userCtxKey     = "user"
)

// HandleSessionMiddleware lends one transaction to the request. The
// handler commits it before responding; otherwise it is rolled back when
// the chain returns, including on abort and panic.
func (h *handlerImpl) HandleSessionMiddleware(c *gin.Context) {
	session, err := database.Begin(c, h.db)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to begin session")
		abort(c, newStatusTextError(http.StatusInternalServerError))
		return
	}
	defer func() {
		err := session.Release(context.WithoutCancel(c))
		if err != nil {
			h.logger.Error().
				Err(err).
				Msg("failed to release session")
		}
	}()

	c.Set(sessionCtxKey, session)
	c.Set(servicesCtxKey, h.resolve(session))
	c.Next()
}

func (h *handlerImpl) HandleAuthMiddleware(c *gin.Context) {
	token, ok := accessTokenFromRequest(c)
	if !ok {
		h.logger.Error().Msg("no access token provided")
		abort(c, newUnauthorizedError(errAuthorizationNeeded.Error()))
		return
	}

	user, err := h.services(c).Auth.Authenticate(c, token)
	if err != nil {
		h.abortWithServiceError(c, err, "failed to authenticate")
		return
	}

	c.Set(userCtxKey, user)
	c.Next()
}

// accessTokenFromRequest reads a bearer token, falling back to the
// cookie set on login.
func accessTokenFromRequest(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	if header != "" {
		scheme, token, found := strings.Cut(header, " ")
		if !found || !strings.EqualFold(scheme, "Bearer") || token == "" {
			return "", false
		}
		return token, true
	}

	token, err := c.Cookie(accessTokenCookie)
	if err != nil || token == "" {
		return "", false
	}
	return token, true
}

func (h *handlerImpl) services(c *gin.Context) *services.Set {
	set, _ := c.MustGet(servicesCtxKey).(*services.Set)
	return set
}

func sessionFromContext(c *gin.Context) (*database.Session, bool) {
	value, exists := c.Get(sessionCtxKey)
	if !exists {
		return nil, false
	}
	session, ok := value.(*database.Session)
	return session, ok
}

func userFromContext(c *gin.Context) *models.User {
	user, _ := c.MustGet(userCtxKey).(*models.User)
	return user
}

func actorFromContext(c *gin.Context) services.Actor {
	return services.ActorFromUser(userFromContext(c))
}

// RequestLogger writes one access log line per request.
func RequestLogger(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		event := logger.Info()
		switch {
		case status >= http.StatusInternalServerError:
			event = logger.Error()
		case status >= http.StatusBadRequest:
			event = logger.Warn()
		}

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		event.
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Msg("handled request")
	}
}

// RateLimit rejects clients that exceed their token bucket with 429.
func RateLimit(logger zerolog.Logger, limiter *ratelimit.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if !limiter.Allow(ip) {
			logger.Warn().
				Str("client_ip", ip).
				Msg("rate limit exceeded")
			abort(c, newAPIError(http.StatusTooManyRequests, errRateLimitExceeded.Error()))
			return
		}
		c.Next()
	}
}
