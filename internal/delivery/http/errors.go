package http

import (
	"errors"
	"fmt"
	"net/http"
	"stock-forecast/internal/apperror"
	"stock-forecast/internal/dto"
	"stock-forecast/pkg/logger"
	"strings"

	goValidator "github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

const (
	codeInvalidArgument = "invalid_argument"
	codeInternal        = "internal_error"
)

type errorMapping struct {
	status int
	code   string
}

var errorMappings = map[error]errorMapping{
	apperror.ErrNotFound:          {http.StatusNotFound, "not_found"},
	apperror.ErrNotAvailable:      {http.StatusServiceUnavailable, "model_not_available"},
	apperror.ErrInvalidModel:      {http.StatusInternalServerError, "model_invalid"},
	apperror.ErrInvalidArgument:   {http.StatusBadRequest, codeInvalidArgument},
	apperror.ErrExhausted:         {http.StatusUnprocessableEntity, "horizon_exhausted"},
	apperror.ErrPredictionFailed:  {http.StatusBadGateway, "prediction_failed"},
	apperror.ErrValidation:        {http.StatusInternalServerError, "serialization_invalid"},
	apperror.ErrPersistenceFailed: {http.StatusServiceUnavailable, "persistence_failed"},
	apperror.ErrUnauthorized:      {http.StatusUnauthorized, "unauthorized"},
	apperror.ErrForbidden:         {http.StatusForbidden, "forbidden"},
	apperror.ErrConflict:          {http.StatusConflict, "conflict"},
}

func newErrorResponse(status int, code, message string) *dto.ErrorResponse {
	return dto.NewErrorResponse(status, code, message)
}

// handleError maps a service error to its status and stable code and logs it.
// Errors outside the taxonomy are reported as a generic 500 without detail.
func (h *HttpAPIHandler) handleError(c echo.Context, err error) error {
	ctx := c.Request().Context()
	mapping, ok := errorMappings[apperror.Kind(err)]
	if !ok {
		h.log.ErrorContext(ctx, "Unhandled request error", logger.ErrorField(err))
		return c.JSON(http.StatusInternalServerError, newErrorResponse(http.StatusInternalServerError, codeInternal, "internal server error"))
	}

	if mapping.status >= http.StatusInternalServerError {
		h.log.ErrorContext(ctx, "Request failed", logger.ErrorField(err), logger.StringField("error_code", mapping.code))
	} else {
		h.log.WarnContext(ctx, "Request rejected", logger.ErrorField(err), logger.StringField("error_code", mapping.code))
	}
	return c.JSON(mapping.status, newErrorResponse(mapping.status, mapping.code, err.Error()))
}

func validationMessage(err error) string {
	var verrs goValidator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", fe.Field()))
		case "eqfield":
			msgs = append(msgs, fmt.Sprintf("%s must match %s", fe.Field(), fe.Param()))
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s must be one of [%s]", fe.Field(), fe.Param()))
		case "datetime":
			msgs = append(msgs, fmt.Sprintf("%s must be a YYYY-MM-DD date", fe.Field()))
		default:
			if fe.Param() != "" {
				msgs = append(msgs, fmt.Sprintf("%s failed %s=%s", fe.Field(), fe.Tag(), fe.Param()))
			} else {
				msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
			}
		}
	}
	return strings.Join(msgs, "; ")
}
