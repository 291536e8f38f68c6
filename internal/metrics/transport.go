package metrics

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RequestIDHeader carries the per-request correlation ID.
const RequestIDHeader = "X-Request-ID"

// roundTripperFunc adapts a function to http.RoundTripper.
type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

// InstrumentTransport wraps base so every outbound backend request is counted
// and timed, labelled by URL path.
func InstrumentTransport(reg *Registry, base http.RoundTripper) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	if reg == nil {
		return base
	}
	return roundTripperFunc(func(r *http.Request) (*http.Response, error) {
		reg.apiRequestsInFlight.Inc()
		defer reg.apiRequestsInFlight.Dec()

		start := time.Now()
		resp, err := base.RoundTrip(r)
		status := 0
		if err == nil {
			status = resp.StatusCode
		}
		reg.RecordAPIRequest(r.URL.Path, status, time.Since(start).Seconds())
		return resp, err
	})
}

// LoggingTransport wraps base so every outbound request carries a request ID
// and is logged at debug level.
func LoggingTransport(logger *zap.Logger, base http.RoundTripper) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	if logger == nil {
		return base
	}
	return roundTripperFunc(func(r *http.Request) (*http.Response, error) {
		requestID := uuid.NewString()
		r = r.Clone(r.Context())
		r.Header.Set(RequestIDHeader, requestID)

		start := time.Now()
		resp, err := base.RoundTrip(r)

		fields := []zap.Field{
			zap.String("request_id", requestID),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("duration", time.Since(start)),
		}
		if err != nil {
			logger.Debug("api request failed", append(fields, zap.Error(err))...)
			return nil, err
		}
		logger.Debug("api request", append(fields, zap.Int("status", resp.StatusCode))...)
		return resp, nil
	})
}
