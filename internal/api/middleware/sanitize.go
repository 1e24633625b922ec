package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/hikari-health/auth-core/internal/core/security"
)

// Sanitize cleans the JSON body and the query string independently before
// they reach binding. Bodies that are not valid JSON are left untouched so
// binding reports them.
func Sanitize() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()

			if req.URL.RawQuery != "" {
				req.URL.RawQuery = url.Values(security.SanitizeValues(req.URL.Query())).Encode()
			}

			if req.Body != nil && strings.HasPrefix(req.Header.Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
				raw, err := io.ReadAll(req.Body)
				_ = req.Body.Close()
				if err != nil {
					return err
				}
				clean := sanitizeJSON(raw)
				req.Body = io.NopCloser(bytes.NewReader(clean))
				req.ContentLength = int64(len(clean))
			}
			return next(c)
		}
	}
}

func sanitizeJSON(raw []byte) []byte {
	var v any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return raw
	}
	out, err := json.Marshal(security.Sanitize(v))
	if err != nil {
		return raw
	}
	return out
}
