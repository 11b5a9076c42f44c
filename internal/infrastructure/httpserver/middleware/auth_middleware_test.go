package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/avatarctic/tiered-cache/go/internal/infrastructure/httpserver/helpers"
	"github.com/avatarctic/tiered-cache/go/internal/infrastructure/httpserver/middleware"
)

func serve(m *middleware.JWTMiddleware, authHeader string) (echo.Context, error) {
	e := echo.New()
	handler := m.RequireJWT()(func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	return c, handler(c)
}

func requireStatus(t *testing.T, err error, code int) {
	t.Helper()
	require.Error(t, err)
	htErr, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	require.Equal(t, code, htErr.Code)
}

func TestJWTMiddleware_DisabledWithoutSecret(t *testing.T) {
	m := middleware.NewJWTMiddleware("", logrus.New())
	c, err := serve(m, "")
	require.NoError(t, err)
	require.Equal(t, "anonymous", helpers.GetSubject(c))
}

func TestJWTMiddleware_MissingTokenReturns401(t *testing.T) {
	m := middleware.NewJWTMiddleware("s", logrus.New())
	_, err := serve(m, "")
	requireStatus(t, err, http.StatusUnauthorized)

	_, err = serve(m, "Basic abc")
	requireStatus(t, err, http.StatusUnauthorized)
}

func TestJWTMiddleware_RejectsNonHMAC(t *testing.T) {
	m := middleware.NewJWTMiddleware("s", logrus.New())
	token := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: "x"})
	signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = serve(m, "Bearer "+signed)
	requireStatus(t, err, http.StatusUnauthorized)
}

func TestJWTMiddleware_ExpiredTokenReturns401(t *testing.T) {
	m := middleware.NewJWTMiddleware("s", logrus.New())
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "x",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
	})
	signed, err := token.SignedString([]byte("s"))
	require.NoError(t, err)

	_, err = serve(m, "Bearer "+signed)
	requireStatus(t, err, http.StatusUnauthorized)
}

func TestJWTMiddleware_ValidTokenSetsSubject(t *testing.T) {
	m := middleware.NewJWTMiddleware("s", logrus.New())
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "renderer"})
	signed, err := token.SignedString([]byte("s"))
	require.NoError(t, err)

	c, err := serve(m, "Bearer "+signed)
	require.NoError(t, err)
	require.Equal(t, "renderer", helpers.GetSubject(c))
}
