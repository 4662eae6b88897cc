package requester

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kbukum/apikit/security"
	"github.com/kbukum/apikit/version"
)

// DefaultTimeout bounds a whole HTTPTransport round trip.
const DefaultTimeout = 30 * time.Second

// HTTPTransport sends requests with net/http. Data bodies are form encoded
// when the request says so and JSON encoded otherwise.
type HTTPTransport struct {
	client    *http.Client
	encoder   QueryEncoder
	userAgent string
}

// NewHTTPTransport builds a transport with its own connection pool.
// A zero timeout means DefaultTimeout.
func NewHTTPTransport(timeout time.Duration, tlsCfg *security.TLSConfig) (*HTTPTransport, error) {
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	rt := http.DefaultTransport.(*http.Transport).Clone()
	if err := tlsCfg.Apply(rt); err != nil {
		return nil, err
	}
	return &HTTPTransport{
		client:    &http.Client{Transport: rt, Timeout: timeout},
		encoder:   FormEncoder{},
		userAgent: version.UserAgent(),
	}, nil
}

// NewHTTPTransportWithClient wraps an existing client, e.g. httptest.Server.Client().
func NewHTTPTransportWithClient(c *http.Client) *HTTPTransport {
	return &HTTPTransport{client: c, encoder: FormEncoder{}, userAgent: version.UserAgent()}
}

func (t *HTTPTransport) RoundTrip(ctx context.Context, url string, req Request) (*Response, error) {
	body, contentType, err := t.encodeBody(req)
	if err != nil {
		return nil, &TransportError{Code: ErrCodeEncoding, Method: req.Method, URL: url, Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, url, body)
	if err != nil {
		return nil, &TransportError{Code: ErrCodeEncoding, Method: req.Method, URL: url, Err: err}
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}
	if body != nil && contentType != "" && httpReq.Header.Get(HeaderContentType) == "" {
		httpReq.Header.Set(HeaderContentType, contentType)
	}
	if httpReq.Header.Get(HeaderUserAgent) == "" {
		httpReq.Header.Set(HeaderUserAgent, t.userAgent)
	}

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, classify(ctx, req.Method, url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classify(ctx, req.Method, url, fmt.Errorf("read response body: %w", err))
	}
	return NewResponse(resp.StatusCode, resp.Header, data), nil
}

// Close releases idle connections.
func (t *HTTPTransport) Close() error {
	t.client.CloseIdleConnections()
	return nil
}

func classify(ctx context.Context, method, url string, err error) *TransportError {
	code := ErrCodeConnection
	var timeout interface{ Timeout() bool }
	if ctx.Err() != nil || (errors.As(err, &timeout) && timeout.Timeout()) {
		code = ErrCodeTimeout
	}
	return &TransportError{Code: code, Method: method, URL: url, Err: err}
}

// encodeBody returns the body reader and the Content-Type to use when the
// request has none.
func (t *HTTPTransport) encodeBody(req Request) (io.Reader, string, error) {
	switch v := req.Body.(type) {
	case nil:
		return nil, "", nil
	case io.Reader:
		return v, "", nil
	case []byte:
		return bytes.NewReader(v), "", nil
	case string:
		return strings.NewReader(v), "text/plain", nil
	case Data:
		if isForm(req.Headers) {
			return strings.NewReader(t.encoder.Encode(v)), ContentTypeForm, nil
		}
	case map[string]any:
		if isForm(req.Headers) {
			return strings.NewReader(t.encoder.Encode(Data(v))), ContentTypeForm, nil
		}
	}
	data, err := json.Marshal(req.Body)
	if err != nil {
		return nil, "", err
	}
	return bytes.NewReader(data), ContentTypeJSON, nil
}

func isForm(headers map[string]string) bool {
	for k, v := range headers {
		if strings.EqualFold(k, HeaderContentType) {
			return strings.HasPrefix(strings.ToLower(v), ContentTypeForm)
		}
	}
	return false
}
