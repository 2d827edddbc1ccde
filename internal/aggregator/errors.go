package aggregator

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// APIError is a non-2xx aggregator response. The body is kept verbatim so
// permanent failures can be inspected by operators.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("aggregator error (status %d): %s", e.StatusCode, e.Body)
}

// Retryable reports whether err is worth a delayed re-enqueue: network
// failures, timeouts and 5xx responses. Auth failures are retried once
// inside the client; any other 4xx is permanent.
func Retryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode >= 500
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}
