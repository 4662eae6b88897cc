package requester

import "context"

// Transport sends a request to url and returns the buffered response.
// req.URL is empty; url already carries the host prefix. A non-nil error
// means no response exists; HTTP error statuses are responses, not errors.
type Transport interface {
	RoundTrip(ctx context.Context, url string, req Request) (*Response, error)
}

// TransportFunc adapts a function to Transport.
type TransportFunc func(ctx context.Context, url string, req Request) (*Response, error)

func (f TransportFunc) RoundTrip(ctx context.Context, url string, req Request) (*Response, error) {
	return f(ctx, url, req)
}
