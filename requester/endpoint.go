package requester

import (
	"maps"
	"slices"

	"github.com/kbukum/apikit/validation"
)

// Data is the call-time input of an endpoint. Values are scalars or slices.
// Keys named by Endpoint.Params fill path placeholders; the rest become the
// query string or the body.
type Data map[string]any

// Clone returns a shallow copy of d.
func (d Data) Clone() Data {
	if d == nil {
		return nil
	}
	return maps.Clone(d)
}

// Endpoint describes one HTTP operation.
type Endpoint struct {
	// Method is sent verbatim. It is upper-cased only to decide whether the
	// request carries a body.
	Method string `json:"method" validate:"required"`
	// Path is a template with :name placeholders, e.g. "users/:id".
	Path string `json:"path"`
	// Params lists the placeholder names in substitution order.
	Params  []string          `json:"params" validate:"dive,required"`
	Headers map[string]string `json:"headers,omitempty"`
	// Options are layered over the compiled request.
	Options *Options `json:"-"`
	// Raw endpoints return the transport response without decoding.
	Raw bool `json:"raw"`
}

// Endpoints maps function names to endpoint descriptors.
type Endpoints map[string]Endpoint

// NewEndpoint returns an endpoint for method and path template.
func NewEndpoint(method, path string, params ...string) Endpoint {
	return Endpoint{Method: method, Path: path, Params: params}
}

// WithHeaders returns a copy of e with headers merged over its own.
func (e Endpoint) WithHeaders(headers map[string]string) Endpoint {
	e.Headers = mergeHeaders(e.Headers, headers)
	return e
}

// WithOptions returns a copy of e carrying opts.
func (e Endpoint) WithOptions(opts Options) Endpoint {
	o := opts.clone()
	e.Options = &o
	return e
}

// AsRaw returns a copy of e that skips response decoding.
func (e Endpoint) AsRaw() Endpoint {
	e.Raw = true
	return e
}

// Validate checks that the method is set and no param name is empty.
func (e Endpoint) Validate() error {
	return validation.Validate(e)
}

func (e Endpoint) clone() Endpoint {
	e.Params = slices.Clone(e.Params)
	e.Headers = maps.Clone(e.Headers)
	if e.Options != nil {
		o := e.Options.clone()
		e.Options = &o
	}
	return e
}
