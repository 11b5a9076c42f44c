package helpers

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// GetJWTTokenFromContext extracts the bearer token from the Authorization header.
func GetJWTTokenFromContext(c echo.Context) (string, error) {
	authHeader := c.Request().Header.Get("Authorization")
	if authHeader == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
	}
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization header format")
	}
	token := strings.TrimPrefix(authHeader, "Bearer ")
	if token == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "empty token")
	}
	return token, nil
}

// GetSubject returns the authenticated caller, or "anonymous" when auth is off.
func GetSubject(c echo.Context) string {
	if s, ok := GetSubjectRaw(c); ok && s != "" {
		return s
	}
	return "anonymous"
}
