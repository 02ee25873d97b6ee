package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	applogger "TradeRelay/pkg/logger"

	"github.com/labstack/echo/v4"
)

// Recover turns handler panics into 500 responses instead of dropped
// connections.
func Recover(l *applogger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			defer func() {
				if r := recover(); r != nil {
					err, ok := r.(error)
					if !ok {
						err = fmt.Errorf("%v", r)
					}
					l.Error("panic recovered",
						applogger.Error(err),
						applogger.String("stack", string(debug.Stack())),
					)
					_ = c.JSON(http.StatusInternalServerError, map[string]interface{}{
						"status":  "error",
						"message": "Internal Server Error",
					})
				}
			}()
			return next(c)
		}
	}
}
