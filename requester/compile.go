package requester

import (
	"fmt"
	"maps"
	"net/textproto"
	"reflect"
	"strings"

	"github.com/kbukum/apikit/logger"
)

// Header names and values the compiler sets.
const (
	HeaderAccept      = "Accept"
	HeaderContentType = "Content-Type"
	HeaderRequestID   = "X-Request-Id"
	HeaderUserAgent   = "User-Agent"

	ContentTypeJSON = "application/json"
	ContentTypeForm = "application/x-www-form-urlencoded"
)

// MissingParam replaces a placeholder whose key is absent from the call data.
const MissingParam = "undefined"

// HasBody reports whether method sends its data as a body instead of a
// query string. The comparison ignores case.
func HasBody(method string) bool {
	switch strings.ToUpper(method) {
	case "PUT", "POST", "PATCH":
		return true
	default:
		return false
	}
}

// Compiler turns an endpoint and call data into a Request. It holds no
// per-call state and is safe for concurrent use.
type Compiler struct {
	encoder QueryEncoder
	log     *logger.Logger
}

// NewCompiler returns a compiler using encoder for query strings. A nil
// encoder means FormEncoder; a nil log discards warnings.
func NewCompiler(encoder QueryEncoder, log *logger.Logger) *Compiler {
	if encoder == nil {
		encoder = FormEncoder{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Compiler{encoder: encoder, log: log}
}

// Compile builds the request for one call. headers are the client headers;
// they, ep and data are never modified.
//
// Header precedence, lowest first: headers, ep.Headers, AddHeaders, then the
// form Content-Type forced when a body is attached. Request fields are then
// layered: compiled values, ep.Options, call options.
func (c *Compiler) Compile(headers map[string]string, ep Endpoint, data Data, opts ...CallOption) Request {
	co := newCallOptions(opts)

	path, missing := ResolvePath(ep.Path, ep.Params, data)
	if len(missing) > 0 {
		c.log.Warn("path placeholders missing from call data", logger.Fields(
			logger.FieldEndpoint, ep.Path,
			logger.FieldParam, missing,
		))
	}
	clean := withoutKeys(data, ep.Params)

	req := Request{
		Method:  ep.Method,
		URL:     path,
		Headers: mergeHeaders(headers, ep.Headers, co.addHeaders),
	}
	switch {
	case len(clean) == 0:
	case HasBody(ep.Method):
		req.Body = clean
		req.Headers[HeaderContentType] = ContentTypeForm
	default:
		req.URL = path + "?" + c.encoder.Encode(clean)
	}

	if ep.Options != nil {
		ep.Options.apply(&req)
	}
	co.override.apply(&req)
	return req
}

// ResolvePath substitutes params into template in one pass. Each name
// replaces the first ":name" still present in the template text; text
// inserted by an earlier substitution is never searched. The second result
// lists names whose key was absent from data; they render as MissingParam.
func ResolvePath(template string, params []string, data Data) (string, []string) {
	type segment struct {
		text     string
		template bool
	}
	segments := []segment{{text: template, template: true}}
	var missing []string

	for _, name := range params {
		token := ":" + name
		for i, seg := range segments {
			if !seg.template {
				continue
			}
			at := strings.Index(seg.text, token)
			if at < 0 {
				continue
			}
			value, ok := data[name]
			if !ok {
				missing = append(missing, name)
			}
			replaced := []segment{
				{text: seg.text[:at], template: true},
				{text: stringify(value, ok)},
				{text: seg.text[at+len(token):], template: true},
			}
			segments = append(segments[:i], append(replaced, segments[i+1:]...)...)
			break
		}
	}

	var b strings.Builder
	for _, seg := range segments {
		b.WriteString(seg.text)
	}
	return b.String(), missing
}

// stringify renders a path value: nil as "null", slices joined by commas.
func stringify(v any, present bool) string {
	if !present {
		return MissingParam
	}
	switch t := v.(type) {
	case nil:
		return "null"
	case string:
		return t
	case []byte:
		return string(t)
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		parts := make([]string, rv.Len())
		for i := range parts {
			parts[i] = stringify(rv.Index(i).Interface(), true)
		}
		return strings.Join(parts, ",")
	}
	return fmt.Sprint(v)
}

func withoutKeys(data Data, keys []string) Data {
	clean := make(Data, len(data))
	maps.Copy(clean, data)
	for _, k := range keys {
		delete(clean, k)
	}
	return clean
}

// mergeHeaders layers header maps into a new map, later maps winning.
// Keys are canonicalized so that "content-type" and "Content-Type" collide.
func mergeHeaders(layers ...map[string]string) map[string]string {
	n := 0
	for _, l := range layers {
		n += len(l)
	}
	out := make(map[string]string, n)
	for _, l := range layers {
		for k, v := range l {
			out[textproto.CanonicalMIMEHeaderKey(k)] = v
		}
	}
	return out
}
