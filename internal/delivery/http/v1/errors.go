package v1

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/adanyl0v/go-tracker/internal/services"
)

var (
	errInvalidRequestBody  = errors.New("invalid request body")
	errInvalidQuery        = errors.New("invalid query parameters")
	errValidationFailed    = errors.New("validation failed")
	errAuthorizationNeeded = errors.New("authorization required")
	errRateLimitExceeded   = errors.New("rate limit exceeded")
)

type apiError struct {
	Code    int               `json:"-"`
	Message string            `json:"error"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func newAPIError(code int, message string) apiError {
	return apiError{
		Code:    code,
		Message: message,
	}
}

func (e apiError) Error() string {
	return e.Message
}

func abort(c *gin.Context, err apiError) {
	c.AbortWithStatusJSON(err.Code, err)
}

func newStatusTextError(status int) apiError {
	return newAPIError(status, http.StatusText(status))
}

func newBadRequestError(message string) apiError {
	return newAPIError(http.StatusBadRequest, message)
}

func newUnauthorizedError(message string) apiError {
	return newAPIError(http.StatusUnauthorized, message)
}

func newForbiddenError(message string) apiError {
	return newAPIError(http.StatusForbidden, message)
}

func newNotFoundError(message string) apiError {
	return newAPIError(http.StatusNotFound, message)
}

func newConflictError(message string) apiError {
	return newAPIError(http.StatusConflict, message)
}

func newValidationError(fields map[string]string) apiError {
	err := newAPIError(http.StatusUnprocessableEntity, errValidationFailed.Error())
	err.Fields = fields
	return err
}

// newServiceError maps a service failure to the response the caller sees.
// Sentinel messages are safe to expose, anything else is reported as 500.
func newServiceError(err error) apiError {
	switch {
	case errors.Is(err, services.ErrTaskNotFound),
		errors.Is(err, services.ErrShipmentNotFound):
		return newNotFoundError(err.Error())
	case errors.Is(err, services.ErrForbidden):
		return newForbiddenError(err.Error())
	case errors.Is(err, services.ErrNoFieldsToUpdate):
		return newBadRequestError(err.Error())
	case errors.Is(err, services.ErrInvalidTaskStatus),
		errors.Is(err, services.ErrInvalidShipmentStatus),
		errors.Is(err, services.ErrInvalidPriority),
		errors.Is(err, services.ErrInvalidWeight):
		return newAPIError(http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, services.ErrUserAlreadyExists):
		return newConflictError(err.Error())
	case errors.Is(err, services.ErrInvalidCredentials),
		errors.Is(err, services.ErrInvalidToken):
		return newUnauthorizedError(err.Error())
	default:
		return newStatusTextError(http.StatusInternalServerError)
	}
}

func (h *handlerImpl) abortWithServiceError(c *gin.Context, err error, msg string) {
	apiErr := newServiceError(err)
	if apiErr.Code >= http.StatusInternalServerError {
		h.logger.Error().
			Err(err).
			Msg(msg)
	} else {
		h.logger.Warn().
			Err(err).
			Int("status", apiErr.Code).
			Msg(msg)
	}
	abort(c, apiErr)
}
