package helpers

import (
	"github.com/labstack/echo/v4"
)

type ctxKey string

const (
	keySubject ctxKey = "subject"
)

func SetSubject(c echo.Context, sub string) { c.Set(string(keySubject), sub) }
func GetSubjectRaw(c echo.Context) (string, bool) {
	v := c.Get(string(keySubject))
	s, ok := v.(string)
	return s, ok
}
