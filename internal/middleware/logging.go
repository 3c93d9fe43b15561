package middleware

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/sipico/archive-api/internal/logging"
)

// APIBodyFields are the JSON fields of API bodies that are safe to log.
// Everything else, notably "token", is redacted.
var APIBodyFields = []string{
	"TYPE", "id", "abid", "ulid", "created_by_id", "created", "modified",
	"expires", "is_valid", "username", "name", "signal", "ref", "endpoint",
	"enabled", "level", "error", "message", "hint", "field", "fields",
	"verbose_name", "prefix", "label", "help", "status", "database",
}

// DebugLogging logs each request and its response as one entry, with headers
// and bodies masked. It does nothing unless the logger has DEBUG enabled, so
// it can stay in the chain and follow runtime level changes.
//
// allowlist names the JSON fields kept in logged bodies; nil keeps all.
func DebugLogging(logger *slog.Logger, allowlist []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !logger.Enabled(r.Context(), slog.LevelDebug) {
				next.ServeHTTP(w, r)
				return
			}

			var reqBody []byte
			if r.Body != nil {
				var err error
				reqBody, err = io.ReadAll(r.Body)
				if err != nil {
					logger.Error("failed to read request body", "error", err)
				}
				r.Body = io.NopCloser(bytes.NewReader(reqBody))
			}

			rec := &captureWriter{ResponseWriter: w, status: http.StatusOK}
			start := time.Now()
			next.ServeHTTP(rec, r)

			logger.LogAttrs(r.Context(), slog.LevelDebug, "http exchange",
				slog.String("request_id", RequestIDFromContext(r.Context())),
				slog.Group("request",
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.String("query", r.URL.RawQuery),
					slog.Any("headers", maskHeaders(r.Header)),
					slog.String("body", maskBody(reqBody, allowlist)),
				),
				slog.Group("response",
					slog.Int("status", rec.status),
					slog.Any("headers", maskHeaders(rec.Header())),
					slog.String("body", maskBody(rec.body.Bytes(), allowlist)),
				),
				slog.Int64("duration_ms", time.Since(start).Milliseconds()),
			)
		})
	}
}

// maskHeaders flattens headers to their first value, masking credentials.
func maskHeaders(headers http.Header) map[string]string {
	out := make(map[string]string, len(headers))
	for name, values := range headers {
		if len(values) > 0 {
			out[name] = logging.MaskHeader(name, values[0])
		}
	}
	return out
}

func maskBody(body []byte, allowlist []string) string {
	if len(body) == 0 {
		return ""
	}
	if !utf8.Valid(body) {
		return logging.FormatBinaryData(body)
	}
	return string(logging.MaskJSONBody(body, allowlist))
}

// captureWriter records the status and a copy of the body written through it.
type captureWriter struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (c *captureWriter) WriteHeader(code int) {
	c.status = code
	c.ResponseWriter.WriteHeader(code)
}

func (c *captureWriter) Write(b []byte) (int, error) {
	c.body.Write(b)
	return c.ResponseWriter.Write(b)
}
