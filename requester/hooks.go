package requester

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"net/http"
	"net/textproto"

	"github.com/google/uuid"
)

// BeforeRequestHook may rewrite the request and endpoint before dispatch.
// An error ends the call without touching the transport and is passed to
// the ErrorHook.
type BeforeRequestHook interface {
	BeforeRequest(ctx context.Context, req Request, ep Endpoint) (Request, Endpoint, error)
}

// BeforeRequestFunc adapts a function to BeforeRequestHook.
type BeforeRequestFunc func(ctx context.Context, req Request, ep Endpoint) (Request, Endpoint, error)

func (f BeforeRequestFunc) BeforeRequest(ctx context.Context, req Request, ep Endpoint) (Request, Endpoint, error) {
	return f(ctx, req, ep)
}

// AfterResponseHook turns a transport response into an outcome or a failure.
type AfterResponseHook interface {
	AfterResponse(ctx context.Context, resp *Response, req Request, ep Endpoint) (*Outcome, error)
}

// AfterResponseFunc adapts a function to AfterResponseHook.
type AfterResponseFunc func(ctx context.Context, resp *Response, req Request, ep Endpoint) (*Outcome, error)

func (f AfterResponseFunc) AfterResponse(ctx context.Context, resp *Response, req Request, ep Endpoint) (*Outcome, error) {
	return f(ctx, resp, req, ep)
}

// ErrorHook sees every failure that is not a transport failure. Returning a
// nil error with a non-nil outcome recovers the call; returning neither keeps
// the original failure.
type ErrorHook interface {
	OnError(ctx context.Context, err error) (*Outcome, error)
}

// ErrorFunc adapts a function to ErrorHook.
type ErrorFunc func(ctx context.Context, err error) (*Outcome, error)

func (f ErrorFunc) OnError(ctx context.Context, err error) (*Outcome, error) { return f(ctx, err) }

// TransportErrorHook sees failures raised by the transport. The call always
// fails; a nil result keeps the original error.
type TransportErrorHook interface {
	OnTransportError(ctx context.Context, err error) error
}

// TransportErrorFunc adapts a function to TransportErrorHook.
type TransportErrorFunc func(ctx context.Context, err error) error

func (f TransportErrorFunc) OnTransportError(ctx context.Context, err error) error { return f(ctx, err) }

var (
	identityBeforeRequest = BeforeRequestFunc(func(_ context.Context, req Request, ep Endpoint) (Request, Endpoint, error) {
		return req, ep, nil
	})
	passthroughError = ErrorFunc(func(_ context.Context, err error) (*Outcome, error) {
		return nil, err
	})
	defaultAfterResponse  = AfterResponseFunc(DecodeResponse)
	defaultTransportError = TransportErrorFunc(UnwrapDeferred)
)

// DecodeResponse is the default AfterResponseHook:
//   - raw endpoints get the response untouched;
//   - 413 yields the text body as a success value;
//   - 204 yields a nil value;
//   - any other 2xx yields the decoded JSON body;
//   - everything else fails with *ApplicationError.
func DecodeResponse(_ context.Context, resp *Response, _ Request, ep Endpoint) (*Outcome, error) {
	out := &Outcome{StatusCode: resp.StatusCode, Response: resp, Raw: ep.Raw}
	switch {
	case ep.Raw:
		return out, nil
	case resp.StatusCode == http.StatusRequestEntityTooLarge:
		out.Value = resp.Text()
		return out, nil
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if resp.StatusCode == http.StatusNoContent {
			return out, nil
		}
		var v any
		if err := resp.JSON(&v); err != nil {
			return nil, fmt.Errorf("requester: %w", err)
		}
		out.Value = v
		return out, nil
	default:
		return nil, &ApplicationError{
			StatusCode: resp.StatusCode,
			Body:       errorBody(resp),
			Header:     resp.Header,
		}
	}
}

func errorBody(resp *Response) any {
	if len(resp.Bytes()) == 0 {
		return nil
	}
	var v any
	if err := json.Unmarshal(resp.Bytes(), &v); err != nil {
		return resp.Text()
	}
	return v
}

// UnwrapDeferred is the default TransportErrorHook. It replaces a
// DeferredError with its reason and returns any other error unchanged.
func UnwrapDeferred(ctx context.Context, err error) error {
	deferred, ok := err.(DeferredError)
	if !ok {
		return err
	}
	if reason := deferred.Reason(ctx); reason != nil {
		return reason
	}
	return err
}

// ChainBeforeRequest runs hooks in order, each seeing the previous result.
func ChainBeforeRequest(hooks ...BeforeRequestHook) BeforeRequestHook {
	return BeforeRequestFunc(func(ctx context.Context, req Request, ep Endpoint) (Request, Endpoint, error) {
		var err error
		for _, h := range hooks {
			if req, ep, err = h.BeforeRequest(ctx, req, ep); err != nil {
				return req, ep, err
			}
		}
		return req, ep, nil
	})
}

// RequestIDHook sets header to a random UUID unless the request already
// carries one. An empty header means X-Request-Id.
func RequestIDHook(header string) BeforeRequestHook {
	if header == "" {
		header = HeaderRequestID
	}
	header = textproto.CanonicalMIMEHeaderKey(header)
	return BeforeRequestFunc(func(_ context.Context, req Request, ep Endpoint) (Request, Endpoint, error) {
		if _, ok := req.Headers[header]; ok {
			return req, ep, nil
		}
		req.Headers = maps.Clone(req.Headers)
		if req.Headers == nil {
			req.Headers = make(map[string]string, 1)
		}
		req.Headers[header] = uuid.NewString()
		return req, ep, nil
	})
}
