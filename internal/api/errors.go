package api

import (
	"errors"
	"net/http"
	"strconv"

	"fitstudio/internal/apperr"
	"fitstudio/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// RespondError writes err using the status and message of its kind. The cause
// of unclassified errors is logged and never returned to the client.
func RespondError(c *gin.Context, err error) {
	status := apperr.Status(err)
	if !apperr.Known(err) {
		logger.WithError(err).Error("request failed",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"trace_id", c.GetString("trace_id"),
		)
	}
	c.JSON(status, ErrorResponse{Message: apperr.Message(err)})
}

// BindJSON binds the request body into dst and reports validation failures
// as a 400 with per-field details. It returns false when a response was written.
func BindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		RespondValidation(c, err)
		return false
	}
	return true
}

func RespondValidation(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "validation failed",
			Errors:  FieldErrors(verrs),
		})
		return
	}
	c.JSON(http.StatusBadRequest, ErrorResponse{Message: "invalid request body"})
}

func FieldErrors(verrs validator.ValidationErrors) []FieldError {
	out := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, FieldError{
			Field:   fe.Field(),
			Tag:     fe.Tag(),
			Message: fieldMessage(fe),
		})
	}
	return out
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "email":
		return fe.Field() + " must be a valid email address"
	case "min":
		return fe.Field() + " must be at least " + fe.Param()
	case "max":
		return fe.Field() + " must be at most " + fe.Param()
	case "gte":
		return fe.Field() + " must be greater than or equal to " + fe.Param()
	case "lte":
		return fe.Field() + " must be less than or equal to " + fe.Param()
	case "oneof":
		return fe.Field() + " must be one of: " + fe.Param()
	default:
		return fe.Field() + " is invalid"
	}
}

// ParamID parses a positive integer path parameter. It writes a 400 and
// returns false when the parameter is malformed.
func ParamID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "invalid " + name})
		return 0, false
	}
	return id, true
}

// Pagination reads limit/offset query parameters with sane bounds.
func Pagination(c *gin.Context, defaultLimit int) (limit, offset int) {
	limit, err := strconv.Atoi(c.Query("limit"))
	if err != nil || limit <= 0 {
		limit = defaultLimit
	}
	if limit > 100 {
		limit = 100
	}
	offset, err = strconv.Atoi(c.Query("offset"))
	if err != nil || offset < 0 {
		offset = 0
	}
	return limit, offset
}
