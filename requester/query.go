package requester

import (
	"net/url"
	"reflect"

	"github.com/gorilla/schema"

	"github.com/kbukum/apikit/errors"
)

// QueryEncoder renders call data as a query string, without the leading "?".
type QueryEncoder interface {
	Encode(data Data) string
}

// QueryEncoderFunc adapts a function to QueryEncoder.
type QueryEncoderFunc func(data Data) string

func (f QueryEncoderFunc) Encode(data Data) string { return f(data) }

// FormEncoder encodes with url.Values rules: keys sorted, a slice repeats
// its key once per element, nil encodes as an empty value.
type FormEncoder struct{}

func (FormEncoder) Encode(data Data) string {
	return Values(data).Encode()
}

// Values converts data to url.Values using the FormEncoder rules.
func Values(data Data) url.Values {
	values := make(url.Values, len(data))
	for k, v := range data {
		switch t := v.(type) {
		case nil:
			values.Set(k, "")
		case string, []byte:
			values.Set(k, stringify(t, true))
		default:
			rv := reflect.ValueOf(v)
			if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
				values.Set(k, stringify(v, true))
				continue
			}
			for i := range rv.Len() {
				values.Add(k, stringify(rv.Index(i).Interface(), true))
			}
		}
	}
	return values
}

var structEncoder = newStructEncoder()

func newStructEncoder() *schema.Encoder {
	enc := schema.NewEncoder()
	enc.SetAliasTag("url")
	return enc
}

// StructData converts a struct into Data using `url` field tags, the way
// query parameters are usually declared:
//
//	type ListUsers struct {
//	    Page  int      `url:"page"`
//	    Tags  []string `url:"tag,omitempty"`
//	}
//
// Fields with one value become strings; repeated fields stay slices.
func StructData(v any) (Data, error) {
	values := map[string][]string{}
	if err := structEncoder.Encode(v, values); err != nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "cannot encode struct as call data").WithCause(err)
	}
	data := make(Data, len(values))
	for k, vs := range values {
		if len(vs) == 1 {
			data[k] = vs[0]
		} else {
			data[k] = vs
		}
	}
	return data, nil
}
