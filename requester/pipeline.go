package requester

import (
	"context"
	"errors"

	"github.com/kbukum/apikit/logger"
)

var errNoResponse = errors.New("transport returned neither a response nor an error")

// pipeline runs one call: before hook, transport, after hook. Failures leave
// through OnTransportError when no response exists and through OnError
// otherwise. Nothing is retried.
type pipeline struct {
	host      string
	transport Transport

	before           BeforeRequestHook
	after            AfterResponseHook
	onError          ErrorHook
	onTransportError TransportErrorHook

	log *logger.Logger
}

func (p *pipeline) run(ctx context.Context, req Request, ep Endpoint) (*Outcome, error) {
	hookedReq, hookedEp, err := p.before.BeforeRequest(ctx, req, ep)
	if err != nil {
		p.log.Debug("before request hook failed", logger.MergeWithError(
			logger.Fields(logger.FieldEndpoint, ep.Path), err))
		return p.fail(ctx, err)
	}
	req, ep = hookedReq, hookedEp

	url := p.resolveURL(req.URL)
	send := req
	send.URL = ""

	resp, err := p.transport.RoundTrip(ctx, url, send)
	if err == nil && resp == nil {
		err = noResponse(req.Method, url)
	}
	if err != nil {
		if hooked := p.onTransportError.OnTransportError(ctx, err); hooked != nil {
			return nil, hooked
		}
		return nil, err
	}

	out, err := p.after.AfterResponse(ctx, resp, req, ep)
	if err != nil {
		return p.fail(ctx, err)
	}
	return out, nil
}

// fail hands err to the error hook. A hook that returns neither an outcome
// nor an error leaves the call failed with err.
func (p *pipeline) fail(ctx context.Context, err error) (*Outcome, error) {
	out, hookErr := p.onError.OnError(ctx, err)
	if out == nil && hookErr == nil {
		return nil, err
	}
	return out, hookErr
}

func noResponse(method, url string) *TransportError {
	return &TransportError{Code: ErrCodeConnection, Method: method, URL: url, Err: errNoResponse}
}

// resolveURL prefixes url with the host and a slash. Neither side is trimmed.
func (p *pipeline) resolveURL(url string) string {
	if p.host == "" {
		return url
	}
	return p.host + "/" + url
}
