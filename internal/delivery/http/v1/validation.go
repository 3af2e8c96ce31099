package v1

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var registerTagNamesOnce sync.Once

// registerValidatorTagNames makes field errors report json names
// instead of Go struct field names.
func registerValidatorTagNames() {
	registerTagNamesOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(field reflect.StructField) string {
			for _, tag := range []string{"json", "form"} {
				name, _, _ := strings.Cut(field.Tag.Get(tag), ",")
				if name == "-" {
					return ""
				}
				if name != "" {
					return name
				}
			}
			return field.Name
		})
	})
}

// bind decodes the request with b and aborts with 400 on malformed input
// or 422 listing every invalid field.
func (h *handlerImpl) bind(c *gin.Context, req any, b binding.Binding, malformed error) bool {
	err := c.ShouldBindWith(req, b)
	if err == nil {
		return true
	}

	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		fields := fieldErrors(validationErrs)
		h.logger.Warn().
			Interface("fields", fields).
			Msg("request validation failed")
		abort(c, newValidationError(fields))
		return false
	}

	h.logger.Error().
		Err(err).
		Msg("failed to bind request")
	abort(c, newBadRequestError(malformed.Error()))
	return false
}

func (h *handlerImpl) bindJSON(c *gin.Context, req any) bool {
	return h.bind(c, req, binding.JSON, errInvalidRequestBody)
}

func (h *handlerImpl) bindQuery(c *gin.Context, req any) bool {
	return h.bind(c, req, binding.Query, errInvalidQuery)
}

func fieldErrors(errs validator.ValidationErrors) map[string]string {
	fields := make(map[string]string, len(errs))
	for _, e := range errs {
		fields[fieldName(e)] = fieldMessage(e)
	}
	return fields
}

// fieldName drops the request struct name from the namespace, so nested
// fields read as "items[1].title".
func fieldName(e validator.FieldError) string {
	_, name, found := strings.Cut(e.Namespace(), ".")
	if !found {
		return e.Field()
	}
	return name
}

func fieldMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "min":
		if e.Kind() == reflect.String {
			return fmt.Sprintf("must be at least %s characters", e.Param())
		}
		if e.Kind() == reflect.Slice {
			return fmt.Sprintf("must contain at least %s items", e.Param())
		}
		return fmt.Sprintf("must be at least %s", e.Param())
	case "max":
		if e.Kind() == reflect.String {
			return fmt.Sprintf("must be at most %s characters", e.Param())
		}
		if e.Kind() == reflect.Slice {
			return fmt.Sprintf("must contain at most %s items", e.Param())
		}
		return fmt.Sprintf("must be at most %s", e.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", e.Param())
	case "lte":
		return fmt.Sprintf("must be at most %s", e.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", strings.ReplaceAll(e.Param(), " ", ", "))
	case "email":
		return "must be a valid email address"
	case "alphanum":
		return "must contain only letters and digits"
	default:
		return fmt.Sprintf("failed on the %q rule", e.Tag())
	}
}

// parseID reports whether raw is a well-formed id. Anything else cannot
// name a stored row.
func parseID(raw string) bool {
	_, err := uuid.Parse(raw)
	return err == nil
}
