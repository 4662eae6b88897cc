package requester

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Response is a buffered transport response.
type Response struct {
	StatusCode int
	Header     http.Header
	body       []byte
}

// NewResponse returns a response holding body. Transports other than
// HTTPTransport use it to hand results to the pipeline.
func NewResponse(status int, header http.Header, body []byte) *Response {
	if header == nil {
		header = http.Header{}
	}
	return &Response{StatusCode: status, Header: header, body: body}
}

// Bytes returns the body. The slice is shared; do not modify it.
func (r *Response) Bytes() []byte { return r.body }

// Text returns the body as a string.
func (r *Response) Text() string { return string(r.body) }

// JSON decodes the body into v.
func (r *Response) JSON(v any) error {
	if err := json.Unmarshal(r.body, v); err != nil {
		return fmt.Errorf("decode %d response body: %w", r.StatusCode, err)
	}
	return nil
}

// Outcome is the result of a successful call.
type Outcome struct {
	StatusCode int
	// Value is the decoded JSON body, nil for 204, or the text body for 413.
	// Raw endpoints leave it nil.
	Value any
	// Response is the transport response the outcome was built from.
	Response *Response
	Raw      bool
}

// Decode decodes the JSON body into v. A 204 outcome leaves v untouched.
func (o *Outcome) Decode(v any) error {
	if o.Response == nil || o.StatusCode == http.StatusNoContent {
		return nil
	}
	return o.Response.JSON(v)
}
