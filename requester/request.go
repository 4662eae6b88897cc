package requester

import (
	"maps"
)

// Request is a transport-ready request. URL is relative to the client host
// until the pipeline dispatches it.
type Request struct {
	Method  string            `json:"method"`
	URL     string            `json:"url"`
	Headers map[string]string `json:"headers"`
	// Body is Data for compiled body methods, nil when there is nothing to
	// send, or any value a caller put there through WithBody.
	Body any `json:"body,omitempty"`
	// Extra carries request fields the HTTP transport does not interpret.
	// Custom transports and hooks may read them.
	Extra map[string]any `json:"extra,omitempty"`
}

// Options are request fields layered over a compiled request. Zero fields
// leave the request alone. Headers replace the merged headers as a whole;
// Extra is merged key by key.
type Options struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    any
	Extra   map[string]any
}

func (o Options) clone() Options {
	o.Headers = maps.Clone(o.Headers)
	o.Extra = maps.Clone(o.Extra)
	return o
}

func (o Options) apply(r *Request) {
	if o.Method != "" {
		r.Method = o.Method
	}
	if o.URL != "" {
		r.URL = o.URL
	}
	if o.Headers != nil {
		r.Headers = maps.Clone(o.Headers)
	}
	if o.Body != nil {
		r.Body = o.Body
	}
	if len(o.Extra) > 0 {
		if r.Extra == nil {
			r.Extra = make(map[string]any, len(o.Extra))
		}
		maps.Copy(r.Extra, o.Extra)
	}
}

// CallOption adjusts a single endpoint call.
type CallOption func(*callOptions)

type callOptions struct {
	addHeaders map[string]string
	override   Options
}

func newCallOptions(opts []CallOption) callOptions {
	var co callOptions
	for _, opt := range opts {
		opt(&co)
	}
	return co
}

// AddHeaders merges headers over the client and endpoint headers. Repeated
// use accumulates.
func AddHeaders(headers map[string]string) CallOption {
	return func(co *callOptions) {
		co.addHeaders = mergeHeaders(co.addHeaders, headers)
	}
}

// WithMethod overrides the compiled method.
func WithMethod(method string) CallOption {
	return func(co *callOptions) { co.override.Method = method }
}

// WithURL overrides the compiled URL, query string included.
func WithURL(url string) CallOption {
	return func(co *callOptions) { co.override.URL = url }
}

// WithHeaders replaces every compiled header, the forced Content-Type too.
func WithHeaders(headers map[string]string) CallOption {
	return func(co *callOptions) { co.override.Headers = maps.Clone(headers) }
}

// WithBody overrides the compiled body.
func WithBody(body any) CallOption {
	return func(co *callOptions) { co.override.Body = body }
}

// WithExtra sets one extra request field.
func WithExtra(key string, value any) CallOption {
	return func(co *callOptions) {
		if co.override.Extra == nil {
			co.override.Extra = make(map[string]any)
		}
		co.override.Extra[key] = value
	}
}
