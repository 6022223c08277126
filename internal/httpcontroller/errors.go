package httpcontroller

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/tagwise/tagwise/internal/errors"
	"github.com/tagwise/tagwise/internal/logger"
)

// ErrorResponse is the JSON body of every error reply.
type ErrorResponse struct {
	Error    string `json:"error"`
	Message  string `json:"message"`
	Code     int    `json:"code"`
	Category string `json:"category,omitempty"`
}

// HandlerError carries the status code chosen for an error.
type HandlerError struct {
	Err      error
	Message  string
	Code     int
	Category string
}

func (e *HandlerError) Error() string {
	return e.Message
}

func (e *HandlerError) Unwrap() error {
	return e.Err
}

// HandleError converts err to a JSON error response.
func (s *Server) HandleError(err error, c echo.Context) error {
	he := classifyError(err)

	if he.Code >= http.StatusInternalServerError {
		s.log.Error("request failed",
			logger.String("method", c.Request().Method),
			logger.String("path", c.Request().URL.Path),
			logger.Int("status", he.Code),
			logger.Error(err))
	} else {
		s.log.Debug("request rejected",
			logger.String("path", c.Request().URL.Path),
			logger.Int("status", he.Code),
			logger.String("reason", he.Message))
	}

	if c.Response().Committed {
		return nil
	}
	return c.JSON(he.Code, ErrorResponse{
		Error:    http.StatusText(he.Code),
		Message:  he.Message,
		Code:     he.Code,
		Category: he.Category,
	})
}

// httpErrorHandler routes errors returned by handlers and middleware
// through HandleError.
func (s *Server) httpErrorHandler(err error, c echo.Context) {
	if herr := s.HandleError(err, c); herr != nil {
		s.log.Warn("failed to write error response", logger.Error(herr))
	}
}

func classifyError(err error) *HandlerError {
	var (
		he          *HandlerError
		echoErr     *echo.HTTPError
		enhancedErr *errors.EnhancedError
	)

	switch {
	case errors.As(err, &he):
		return he
	case errors.As(err, &echoErr):
		return &HandlerError{
			Err:     echoErr,
			Message: fmt.Sprintf("%v", echoErr.Message),
			Code:    echoErr.Code,
		}
	case errors.As(err, &enhancedErr):
		category := enhancedErr.GetCategory()
		code := mapCategoryToHTTPStatus(errors.ErrorCategory(category))
		msg := enhancedErr.Error()
		if code >= http.StatusInternalServerError {
			msg = "An unexpected error occurred"
		}
		return &HandlerError{
			Err:      enhancedErr,
			Message:  msg,
			Code:     code,
			Category: category,
		}
	default:
		return &HandlerError{
			Err:     err,
			Message: "An unexpected error occurred",
			Code:    http.StatusInternalServerError,
		}
	}
}

// mapCategoryToHTTPStatus maps error categories to appropriate HTTP status codes
func mapCategoryToHTTPStatus(category errors.ErrorCategory) int {
	switch category {
	case errors.CategoryValidation, errors.CategoryConfiguration, errors.CategoryResolution:
		return http.StatusBadRequest
	case errors.CategoryNotFound:
		return http.StatusNotFound
	case errors.CategoryConflict:
		return http.StatusConflict
	case errors.CategoryLimit:
		return http.StatusTooManyRequests
	case errors.CategoryState, errors.CategoryCancellation:
		return http.StatusServiceUnavailable
	case errors.CategoryTimeout:
		return http.StatusGatewayTimeout
	case errors.CategoryNetwork:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func notFound(format string, args ...any) error {
	return &HandlerError{
		Message: fmt.Sprintf(format, args...),
		Code:    http.StatusNotFound,
	}
}

func badRequest(format string, args ...any) error {
	return &HandlerError{
		Message: fmt.Sprintf(format, args...),
		Code:    http.StatusBadRequest,
	}
}
