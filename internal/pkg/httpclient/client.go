// Package httpclient builds the http.Client shared by the outbound adapters.
package httpclient

import (
	"context"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/jcmexdev/cart-service/internal/pkg/constants"
)

// New returns a client with a hard per-request timeout. Outgoing requests are
// traced and carry the inbound request id.
func New(timeout time.Duration) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConnsPerHost = 20
	transport.IdleConnTimeout = 90 * time.Second

	return &http.Client{
		Timeout:   timeout,
		Transport: otelhttp.NewTransport(&requestIDTransport{next: transport}),
	}
}

type requestIDTransport struct {
	next http.RoundTripper
}

func (t *requestIDTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get(constants.HeaderXRequestId) == "" {
		if id := RequestIDFromContext(req.Context()); id != "" {
			req = req.Clone(req.Context())
			req.Header.Set(constants.HeaderXRequestId, id)
		}
	}
	return t.next.RoundTrip(req)
}

// RequestIDFromContext returns the request id attached by the inbound middleware.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(constants.ContextKeyRequestID).(string)
	return id
}
