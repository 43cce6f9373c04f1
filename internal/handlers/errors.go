package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/vidfriends/vidvault/internal/apperrors"
	"github.com/vidfriends/vidvault/internal/logging"
)

type messageResponse struct {
	Message string `json:"message"`
}

// HandleHTTPError is the echo HTTPErrorHandler. It is the only place errors become responses.
func HandleHTTPError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	logger := logging.FromContext(c.Request().Context())
	status, message := http.StatusInternalServerError, apperrors.InternalMessage

	var appErr *apperrors.Error
	var httpErr *echo.HTTPError
	switch {
	case errors.As(err, &appErr):
		status, message = appErr.HTTPStatus(), appErr.PublicMessage()
		if appErr.Kind == apperrors.KindInternal {
			logger.Error("request failed", "error", err)
		}
	case errors.As(err, &httpErr):
		status = httpErr.Code
		if status >= http.StatusInternalServerError {
			logger.Error("request failed", "error", err)
		} else {
			message = fmt.Sprint(httpErr.Message)
		}
	default:
		logger.Error("unhandled error", "error", err)
	}

	var writeErr error
	if c.Request().Method == http.MethodHead {
		writeErr = c.NoContent(status)
	} else {
		writeErr = c.JSON(status, messageResponse{Message: message})
	}
	if writeErr != nil {
		logger.Error("write error response", "error", writeErr)
	}
}
