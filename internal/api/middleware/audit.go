package middleware

import (
	"bytes"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/oklog/ulid/v2"

	"github.com/hikari-health/auth-core/internal/api/metrics"
	"github.com/hikari-health/auth-core/internal/core/domain"
	"github.com/hikari-health/auth-core/internal/core/ports"
	"github.com/hikari-health/auth-core/internal/core/security"
)

// maxAuditBody bounds how much of a request or response body the audit
// stage inspects.
const maxAuditBody = 64 << 10

// Audit records one domain.AuditEvent per request after the handler and the
// error handler have run. It grades the request with security.Assess and
// scans the response for foreign tenant ids and sensitive values. Nothing
// here changes the response; recording is handed to sink.
func Audit(sink ports.AuditSink) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()

			var reqBody []byte
			if req.Body != nil {
				reqBody, _ = io.ReadAll(io.LimitReader(req.Body, maxAuditBody))
				req.Body = readCloser{io.MultiReader(bytes.NewReader(reqBody), req.Body), req.Body}
			}

			capture := &capturingWriter{ResponseWriter: c.Response().Writer}
			c.Response().Writer = capture

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			now := time.Now()
			ac, authed := Auth(c)
			res := c.Response()

			result := security.Assess(security.RequestFacts{
				Operation:   c.Path(),
				Body:        reqBody,
				Authed:      authed,
				RateLimited: IsRateLimited(err),
				Err:         err,
			}, now)

			findings := security.ScanOutbound(capture.body.Bytes(), ac.TenantID, ac.UserID)
			risk := result.RiskLevel
			for _, f := range findings {
				risk = risk.Max(f.RiskLevel)
				metrics.AuditFindingsTotal.WithLabelValues(f.Kind).Inc()
			}

			event := domain.AuditEvent{
				ID:         ulid.Make().String(),
				Operation:  c.Path(),
				Method:     req.Method,
				Path:       req.URL.Path,
				IP:         c.RealIP(),
				UserAgent:  req.UserAgent(),
				UserID:     ac.UserID,
				TenantID:   ac.TenantID,
				RequestID:  res.Header().Get(echo.HeaderXRequestID),
				Status:     res.Status,
				Duration:   now.Sub(start),
				Outcome:    domain.OutcomeSuccess,
				RiskLevel:  risk,
				Errors:     result.Errors,
				Findings:   findings,
				OccurredAt: now,
			}
			if err != nil || res.Status >= http.StatusBadRequest {
				event.Outcome = domain.OutcomeFailure
			}
			if err != nil {
				event.Error = err.Error()
			}
			sink.Record(event)

			return err
		}
	}
}

type readCloser struct {
	io.Reader
	io.Closer
}

// capturingWriter tees the first maxAuditBody bytes of the response.
type capturingWriter struct {
	http.ResponseWriter
	body bytes.Buffer
}

func (w *capturingWriter) Write(b []byte) (int, error) {
	if room := maxAuditBody - w.body.Len(); room > 0 {
		if len(b) > room {
			w.body.Write(b[:room])
		} else {
			w.body.Write(b)
		}
	}
	return w.ResponseWriter.Write(b)
}

func (w *capturingWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
