package v1

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"github.com/adanyl0v/go-tracker/internal/models"
	"github.com/adanyl0v/go-tracker/internal/services"
)

const accessTokenCookie = "access_token"

type userResponse struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email,omitempty"`
	IsActive  bool      `json:"is_active"`
	IsAdmin   bool      `json:"is_admin"`
	CreatedAt time.Time `json:"created_at"`
}

func newUserResponse(user *models.User) userResponse {
	return userResponse{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		IsActive:  user.IsActive,
		IsAdmin:   user.IsAdmin,
		CreatedAt: user.CreatedAt,
	}
}

type registerRequest struct {
	Username string `json:"username" binding:"required,alphanum,min=3,max=64"`
	Email    string `json:"email" binding:"omitempty,email,max=255"`
	Password string `json:"password" binding:"required,min=6,max=255"`
}

func (h *handlerImpl) HandleRegister(c *gin.Context) {
	var req registerRequest
	if !h.bindJSON(c, &req) {
		return
	}
	h.logger.Info().
		Str("username", req.Username).
		Msg("register request")

	user, err := h.services(c).Auth.Register(c, services.RegisterParams{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.abortWithServiceError(c, err, "failed to register user")
		return
	}

	h.respond(c, http.StatusCreated, newUserResponse(user))
}

type loginRequest struct {
	Username string `json:"username" form:"username" binding:"required,max=64"`
	Password string `json:"password" form:"password" binding:"required,max=255"`
}

type loginResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

func (h *handlerImpl) HandleLogin(c *gin.Context) {
	var req loginRequest
	if !h.bind(c, &req, binding.Default(c.Request.Method, c.ContentType()), errInvalidRequestBody) {
		return
	}

	result, err := h.services(c).Auth.Login(c, services.LoginParams{
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		h.abortWithServiceError(c, err, "failed to login")
		return
	}

	h.setAccessTokenCookie(c, result.AccessToken, time.Until(result.AccessTokenExpiresAt))
	h.respond(c, http.StatusOK, loginResponse{
		AccessToken: result.AccessToken,
		TokenType:   "bearer",
		ExpiresAt:   result.AccessTokenExpiresAt,
	})
}

func (h *handlerImpl) HandleLogout(c *gin.Context) {
	h.clearCookie(c, accessTokenCookie)
	h.respond(c, http.StatusNoContent, nil)
}

func (h *handlerImpl) HandleMe(c *gin.Context) {
	h.respond(c, http.StatusOK, newUserResponse(userFromContext(c)))
}

func (h *handlerImpl) setAccessTokenCookie(c *gin.Context, token string, maxAge time.Duration) {
	const httpOnly = true
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(accessTokenCookie, token, int(maxAge.Seconds()),
		"/", "", h.secureCookies, httpOnly)
}

func (h *handlerImpl) clearCookie(c *gin.Context, name string) {
	c.SetCookie(name, "", -1,
		"/", "", h.secureCookies, true)
}
