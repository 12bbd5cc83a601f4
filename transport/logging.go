package transport

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// NewLoggingTransport logs every request made through next at debug level,
// and every transport error at error level. Each request and its response
// share a correlation id (UUID v7).
func NewLoggingTransport(next http.RoundTripper, logger *slog.Logger) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &loggingTransport{next: next, logger: logger}
}

type loggingTransport struct {
	next   http.RoundTripper
	logger *slog.Logger
}

var _ http.RoundTripper = (*loggingTransport)(nil)

func (l *loggingTransport) RoundTrip(request *http.Request) (*http.Response, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("error generating correlation id: %w", err)
	}

	ctx := request.Context()
	log := l.logger.With(
		"correlation_id", id.String(),
		"method", request.Method,
		"url", redactURL(request),
	)

	log.DebugContext(ctx, "http request")

	start := time.Now()

	response, err := l.next.RoundTrip(request)
	if err != nil {
		log.ErrorContext(ctx, "http request failed", "error", err, "duration", time.Since(start))

		return response, err
	}

	log.DebugContext(ctx, "http response",
		"status", response.StatusCode,
		"content_length", response.ContentLength,
		"duration", time.Since(start))

	return response, nil
}

// redactURL drops user info and query values so credentials never reach the log.
func redactURL(request *http.Request) string {
	if request.URL == nil {
		return ""
	}

	u := *request.URL
	u.User = nil

	if u.RawQuery != "" {
		query := u.Query()
		for key := range query {
			if key != "page" {
				query.Set(key, "REDACTED")
			}
		}

		u.RawQuery = query.Encode()
	}

	return u.String()
}
