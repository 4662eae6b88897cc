package requester

import (
	"context"
	"maps"
	"slices"
	"strconv"

	"github.com/kbukum/apikit/errors"
	"github.com/kbukum/apikit/logger"
	"github.com/kbukum/apikit/validation"
)

// Names of the endpoints every source has.
const (
	EndpointGet    = "get"
	EndpointPost   = "post"
	EndpointUpdate = "update"
	EndpointRemove = "remove"
)

// EndpointFunc calls one endpoint of a source.
type EndpointFunc func(ctx context.Context, data Data, opts ...CallOption) (*Outcome, error)

// Source holds the endpoint functions of one resource.
type Source struct {
	path      string
	endpoints Endpoints
	funcs     map[string]EndpointFunc
}

// StandardEndpoints returns the four endpoints every source starts with.
func StandardEndpoints(basePath string) Endpoints {
	withID := basePath + "/:id"
	return Endpoints{
		EndpointGet: NewEndpoint("GET", basePath),
		EndpointPost: NewEndpoint("POST", basePath).
			WithHeaders(map[string]string{HeaderContentType: ContentTypeForm}),
		EndpointUpdate: NewEndpoint("PUT", withID, "id"),
		EndpointRemove: NewEndpoint("DELETE", withID, "id"),
	}
}

// Source builds the endpoint functions for basePath. custom entries are
// added after the standard ones and replace them on a name collision.
// headers are layered over the client headers for every endpoint.
func (c *Client) Source(basePath string, custom Endpoints, headers map[string]string) (*Source, error) {
	for name, ep := range custom {
		if err := validateEndpoint(name, ep); err != nil {
			return nil, errors.Validation("invalid endpoint "+strconv.Quote(name)).WithCause(err).WithDetail("endpoint", name)
		}
	}

	endpoints := StandardEndpoints(basePath)
	for name, ep := range custom {
		endpoints[name] = ep.clone()
	}

	base := mergeHeaders(c.cfg.Headers, headers)
	s := &Source{path: basePath, endpoints: endpoints, funcs: make(map[string]EndpointFunc, len(endpoints))}
	for name, ep := range endpoints {
		s.funcs[name] = c.endpointFunc(base, ep)
	}

	c.log.Debug("source built", logger.Fields(logger.FieldEndpoint, basePath, "endpoints", s.Names()))
	return s, nil
}

// validateEndpoint checks a custom entry: its name must be set and its
// descriptor valid.
func validateEndpoint(name string, ep Endpoint) error {
	if err := validation.New().Required("name", name).Validate(); err != nil {
		return err
	}
	return ep.Validate()
}

func (c *Client) endpointFunc(headers map[string]string, ep Endpoint) EndpointFunc {
	return func(ctx context.Context, data Data, opts ...CallOption) (*Outcome, error) {
		req := c.compiler.Compile(headers, ep, data, opts...)
		return c.pipeline.run(ctx, req, ep)
	}
}

// Path returns the base path the source was built for.
func (s *Source) Path() string { return s.path }

// Names returns the endpoint names in sorted order.
func (s *Source) Names() []string {
	return slices.Sorted(maps.Keys(s.funcs))
}

// Func returns the named endpoint function.
func (s *Source) Func(name string) (EndpointFunc, bool) {
	f, ok := s.funcs[name]
	return f, ok
}

// Endpoint returns a copy of the named endpoint descriptor.
func (s *Source) Endpoint(name string) (Endpoint, bool) {
	ep, ok := s.endpoints[name]
	if !ok {
		return Endpoint{}, false
	}
	return ep.clone(), true
}

// Call invokes the named endpoint. An unknown name fails with a NOT_FOUND
// *errors.AppError without sending anything.
func (s *Source) Call(ctx context.Context, name string, data Data, opts ...CallOption) (*Outcome, error) {
	f, ok := s.funcs[name]
	if !ok {
		return nil, errors.NotFound("endpoint", name)
	}
	return f(ctx, data, opts...)
}

// Get calls the "get" endpoint: GET on the base path, data as query string.
func (s *Source) Get(ctx context.Context, data Data, opts ...CallOption) (*Outcome, error) {
	return s.Call(ctx, EndpointGet, data, opts...)
}

// Post calls the "post" endpoint: POST on the base path, data as a form body.
func (s *Source) Post(ctx context.Context, data Data, opts ...CallOption) (*Outcome, error) {
	return s.Call(ctx, EndpointPost, data, opts...)
}

// Update calls the "update" endpoint: PUT on base/:id.
func (s *Source) Update(ctx context.Context, data Data, opts ...CallOption) (*Outcome, error) {
	return s.Call(ctx, EndpointUpdate, data, opts...)
}

// Remove calls the "remove" endpoint: DELETE on base/:id.
func (s *Source) Remove(ctx context.Context, data Data, opts ...CallOption) (*Outcome, error) {
	return s.Call(ctx, EndpointRemove, data, opts...)
}
