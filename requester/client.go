package requester

import (
	"context"
	"io"
	"maps"

	"github.com/kbukum/apikit/logger"
)

// Client compiles and sends endpoint calls for one API host. It is
// immutable after New and safe for concurrent use.
type Client struct {
	cfg       Config
	compiler  *Compiler
	pipeline  *pipeline
	transport Transport
	owned     io.Closer
	log       *logger.Logger
}

type options struct {
	transport   Transport
	middlewares []Middleware
	before      BeforeRequestHook
	after       AfterResponseHook
	onError     ErrorHook
	onTransport TransportErrorHook
	encoder     QueryEncoder
	log         *logger.Logger
}

// Option configures a Client.
type Option func(*options)

// WithTransport replaces the default HTTPTransport.
func WithTransport(t Transport) Option {
	return func(o *options) { o.transport = t }
}

// WithMiddleware wraps the transport. The first middleware is outermost.
func WithMiddleware(m ...Middleware) Option {
	return func(o *options) { o.middlewares = append(o.middlewares, m...) }
}

// WithBeforeRequest sets the hook run before dispatch.
func WithBeforeRequest(h BeforeRequestHook) Option {
	return func(o *options) { o.before = h }
}

// WithAfterResponse replaces DecodeResponse.
func WithAfterResponse(h AfterResponseHook) Option {
	return func(o *options) { o.after = h }
}

// WithOnError sets the hook for failures that are not transport failures.
func WithOnError(h ErrorHook) Option {
	return func(o *options) { o.onError = h }
}

// WithOnTransportError replaces UnwrapDeferred.
func WithOnTransportError(h TransportErrorHook) Option {
	return func(o *options) { o.onTransport = h }
}

// WithQueryEncoder replaces FormEncoder for query strings.
func WithQueryEncoder(e QueryEncoder) Option {
	return func(o *options) { o.encoder = e }
}

// WithLogger replaces the "requester" component logger.
func WithLogger(l *logger.Logger) Option {
	return func(o *options) { o.log = l }
}

// New validates cfg and builds a client. Without WithTransport it creates an
// HTTPTransport from cfg.Timeout and cfg.TLS, which Close releases.
func New(cfg Config, opts ...Option) (*Client, error) {
	cfg = cfg.clone()
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := options{
		before:      identityBeforeRequest,
		after:       defaultAfterResponse,
		onError:     passthroughError,
		onTransport: defaultTransportError,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = logger.Get("requester")
	}
	log := o.log.WithFields(logger.Fields("client", cfg.Name))

	c := &Client{cfg: cfg, log: log}
	transport := o.transport
	if transport == nil {
		ht, err := NewHTTPTransport(cfg.Timeout, cfg.TLS)
		if err != nil {
			return nil, err
		}
		transport, c.owned = ht, ht
	}
	c.transport = Chain(o.middlewares...)(transport)

	c.compiler = NewCompiler(o.encoder, log)
	c.pipeline = &pipeline{
		host:             cfg.Host,
		transport:        c.transport,
		before:           o.before,
		after:            o.after,
		onError:          o.onError,
		onTransportError: o.onTransport,
		log:              log,
	}
	return c, nil
}

// Request sends req through the hook pipeline without compiling an
// endpoint. req.URL is still prefixed with the host.
func (c *Client) Request(ctx context.Context, req Request, ep Endpoint) (*Outcome, error) {
	return c.pipeline.run(ctx, req, ep)
}

// Compile builds the request an endpoint call would send, without sending it.
func (c *Client) Compile(ep Endpoint, data Data, opts ...CallOption) Request {
	return c.compiler.Compile(c.cfg.Headers, ep, data, opts...)
}

// Transport returns the transport with middlewares applied.
func (c *Client) Transport() Transport { return c.transport }

// Headers returns a copy of the client headers.
func (c *Client) Headers() map[string]string { return maps.Clone(c.cfg.Headers) }

// Host returns the configured host.
func (c *Client) Host() string { return c.cfg.Host }

// Close releases the default transport. Injected transports are left to
// their owner.
func (c *Client) Close() error {
	if c.owned == nil {
		return nil
	}
	return c.owned.Close()
}
