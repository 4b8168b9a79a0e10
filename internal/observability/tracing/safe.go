package tracing

import (
	"errors"

	"github.com/smallbiznis/sprintboard/pkg/apperr"
	"go.opentelemetry.io/otel/attribute"
)

var allowedSpanKeys = map[attribute.Key]struct{}{
	"http.method":             {},
	"http.route":              {},
	"http.status_code":        {},
	"http.server_duration_ms": {},
	"request_id":              {},
}

// SafeAttributes drops attributes outside the span allowlist.
func SafeAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	out := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedSpanKeys[attr.Key]; ok {
			out = append(out, attr)
		}
	}
	return out
}

// SafeError reduces err to its classification so user content never reaches a span.
func SafeError(err error) error {
	if err == nil {
		return nil
	}
	if appErr, ok := apperr.As(err); ok {
		return errors.New(string(appErr.Kind) + ":" + appErr.Code)
	}
	return errors.New("internal_error")
}
