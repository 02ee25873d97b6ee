package http

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// ValidationFailedResponse writes a 400 with per-field details.
func ValidationFailedResponse(c echo.Context, errs []ValidationError) error {
	return c.JSON(http.StatusBadRequest, ErrorResponse{
		Status:  "error",
		Message: "Invalid request",
		Errors:  errs,
	})
}

// TooManyRequestsResponse writes a 429.
func TooManyRequestsResponse(c echo.Context) error {
	return c.JSON(http.StatusTooManyRequests, ErrorResponse{
		Status:  "error",
		Message: "Rate limit exceeded",
	})
}

// InternalServerErrorResponse writes a 500 without leaking internals.
func InternalServerErrorResponse(c echo.Context) error {
	return c.JSON(http.StatusInternalServerError, ErrorResponse{
		Status:  "error",
		Message: "Internal server error",
	})
}
