package client

import (
	"fmt"
	"net/url"
	"reflect"
	"strconv"
	"time"
)

// Params builds query strings. Nil, empty strings and empty lists are
// dropped; lists become repeated parameters; times are sent as UTC RFC3339.
type Params struct {
	values url.Values
}

// NewParams returns an empty builder.
func NewParams() *Params {
	return &Params{values: url.Values{}}
}

// Set adds name=value unless the value is empty. Existing values are replaced.
func (p *Params) Set(name string, value any) *Params {
	p.values.Del(name)
	for _, v := range formatParam(reflect.ValueOf(value)) {
		p.values.Add(name, v)
	}
	return p
}

// SetIf calls Set only when cond holds; used for optional flags whose zero
// value must not be sent.
func (p *Params) SetIf(cond bool, name string, value any) *Params {
	if cond {
		p.Set(name, value)
	}
	return p
}

// Merge copies non-empty extra values over the builder's.
func (p *Params) Merge(extra url.Values) *Params {
	for name, vs := range extra {
		if len(vs) == 0 || (len(vs) == 1 && vs[0] == "") {
			continue
		}
		p.values[name] = append([]string(nil), vs...)
	}
	return p
}

// Values returns the built query. The result is a copy.
func (p *Params) Values() url.Values {
	out := make(url.Values, len(p.values))
	for k, vs := range p.values {
		out[k] = append([]string(nil), vs...)
	}
	return out
}

var timeType = reflect.TypeOf(time.Time{})

func formatParam(v reflect.Value) []string {
	for v.IsValid() && (v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface) {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}
	if !v.IsValid() {
		return nil
	}

	if v.Type() == timeType {
		t := v.Interface().(time.Time)
		if t.IsZero() {
			return nil
		}
		return []string{t.UTC().Format(time.RFC3339)}
	}

	switch v.Kind() {
	case reflect.String:
		if v.Len() == 0 {
			return nil
		}
		return []string{v.String()}
	case reflect.Bool:
		return []string{strconv.FormatBool(v.Bool())}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return []string{strconv.FormatInt(v.Int(), 10)}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return []string{strconv.FormatUint(v.Uint(), 10)}
	case reflect.Float32, reflect.Float64:
		return []string{strconv.FormatFloat(v.Float(), 'f', -1, 64)}
	case reflect.Slice, reflect.Array:
		var out []string
		for i := 0; i < v.Len(); i++ {
			out = append(out, formatParam(v.Index(i))...)
		}
		return out
	}

	if s, ok := v.Interface().(fmt.Stringer); ok {
		if str := s.String(); str != "" {
			return []string{str}
		}
		return nil
	}
	return []string{fmt.Sprint(v.Interface())}
}
