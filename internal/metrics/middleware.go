package metrics

import (
	"net/http"
	"regexp"
	"time"
)

// numericSegment matches numeric path segments.
var numericSegment = regexp.MustCompile(`/(\d+)`)

// abidSegment matches ABID path segments, e.g. /apt_01HN3Q8Z7K0_5X2M9A1C_B7D3_W4R8T2YQ.
var abidSegment = regexp.MustCompile(`/[a-z0-9]{2,3}_[0-9A-Z]{11}_[0-9A-Z]{8}_[0-9A-Z]{4}_[0-9A-Z]{8}`)

// statusRecorder wraps http.ResponseWriter to capture the status code
type statusRecorder struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

// WriteHeader captures the status code and writes it to the underlying ResponseWriter
func (r *statusRecorder) WriteHeader(code int) {
	if !r.written {
		r.statusCode = code
		r.written = true
		r.ResponseWriter.WriteHeader(code)
	}
}

// Write ensures WriteHeader is called before writing body
func (r *statusRecorder) Write(b []byte) (int, error) {
	if !r.written {
		r.statusCode = http.StatusOK
		r.written = true
	}
	return r.ResponseWriter.Write(b)
}

// Middleware records the count and latency of each request by method,
// normalized path and status. Panics are recovered and recorded as 500.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Wrap the response writer to capture the status code
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK, // default if not explicitly set
		}

		// Record start time for duration measurement
		startTime := time.Now()

		// A panicking handler is recovered here and counted as a 500.
		defer func() {
			duration := time.Since(startTime).Seconds()

			statusCode := recorder.statusCode
			if err := recover(); err != nil {
				if !recorder.written {
					recorder.WriteHeader(http.StatusInternalServerError)
				}
				statusCode = http.StatusInternalServerError
			}

			// e.g. /api/tokens/apt_... becomes /api/tokens/:abid
			normalizedPath := normalizePath(r.URL.Path)

			statusStr := http.StatusText(statusCode)
			if statusStr == "" {
				statusStr = "UNKNOWN"
			}

			RecordRequest(r.Method, normalizedPath, statusStr)
			RecordRequestDuration(r.Method, normalizedPath, statusStr, duration)
		}()

		// Call the next handler
		next.ServeHTTP(recorder, r)
	})
}

// normalizePath takes a request path and returns a normalized version for use as a metric label.
// This prevents cardinality explosion from unique IDs in paths.
// Examples:
//
//	/api/tokens/apt_01HN3Q8Z7K0_5X2M9A1C_B7D3_W4R8T2YQ -> /api/tokens/:abid
//	/api/users/42 -> /api/users/:id
func normalizePath(path string) string {
	path = abidSegment.ReplaceAllString(path, "/:abid")
	return numericSegment.ReplaceAllString(path, "/:id")
}
