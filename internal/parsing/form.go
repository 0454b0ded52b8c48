// Package parsing normalizes submitted résumé forms, in either the legacy flat
// key layout or the dynamic bracketed layout, into validated CVData.
package parsing

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// Form is an ordered multi-map of submitted fields. Values keep submission
// order per key, and Keys reports keys in first-submission order.
type Form struct {
	pairs []pair
}

type pair struct {
	key   string
	value string
}

// NewForm returns an empty form
func NewForm() *Form {
	return &Form{}
}

// ParseURLEncoded decodes an application/x-www-form-urlencoded body without
// losing the order in which fields were submitted.
func ParseURLEncoded(body string) (*Form, error) {
	f := NewForm()
	for _, part := range strings.Split(body, "&") {
		if part == "" {
			continue
		}
		rawKey, rawValue, _ := strings.Cut(part, "=")
		key, err := url.QueryUnescape(rawKey)
		if err != nil {
			return nil, &ParseError{Message: fmt.Sprintf("invalid field name %q", rawKey), Cause: err}
		}
		value, err := url.QueryUnescape(rawValue)
		if err != nil {
			return nil, &ParseError{Message: fmt.Sprintf("invalid value for %q", key), Cause: err}
		}
		f.Add(key, value)
	}
	return f, nil
}

// FromValues builds a form from decoded url.Values. Key order is not
// recoverable from a map, so keys are sorted; values keep their order.
func FromValues(values url.Values) *Form {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	f := NewForm()
	for _, k := range keys {
		for _, v := range values[k] {
			f.Add(k, v)
		}
	}
	return f
}

// Add appends a value for key
func (f *Form) Add(key, value string) {
	f.pairs = append(f.pairs, pair{key: key, value: value})
}

// Set replaces every value of key with value
func (f *Form) Set(key, value string) {
	f.Del(key)
	f.Add(key, value)
}

// Del removes every value of key
func (f *Form) Del(key string) {
	kept := f.pairs[:0]
	for _, p := range f.pairs {
		if p.key != key {
			kept = append(kept, p)
		}
	}
	f.pairs = kept
}

// Lookup returns the last submitted value of key, the way a browser form
// decoder resolves repeated scalar fields.
func (f *Form) Lookup(key string) (string, bool) {
	for i := len(f.pairs) - 1; i >= 0; i-- {
		if f.pairs[i].key == key {
			return f.pairs[i].value, true
		}
	}
	return "", false
}

// Get returns the last submitted value of key, or "" when absent
func (f *Form) Get(key string) string {
	v, _ := f.Lookup(key)
	return v
}

// Values returns every value of key in submission order
func (f *Form) Values(key string) []string {
	var out []string
	for _, p := range f.pairs {
		if p.key == key {
			out = append(out, p.value)
		}
	}
	return out
}

// Has reports whether key was submitted
func (f *Form) Has(key string) bool {
	_, ok := f.Lookup(key)
	return ok
}

// Keys returns the distinct keys in first-submission order
func (f *Form) Keys() []string {
	seen := make(map[string]bool, len(f.pairs))
	keys := make([]string, 0, len(f.pairs))
	for _, p := range f.pairs {
		if !seen[p.key] {
			seen[p.key] = true
			keys = append(keys, p.key)
		}
	}
	return keys
}

// Len returns the number of submitted key/value pairs
func (f *Form) Len() int {
	return len(f.pairs)
}

// Encode serializes the form as a urlencoded body in submission order
func (f *Form) Encode() string {
	var sb strings.Builder
	for i, p := range f.pairs {
		if i > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(url.QueryEscape(p.key))
		sb.WriteByte('=')
		sb.WriteString(url.QueryEscape(p.value))
	}
	return sb.String()
}

// URLValues converts the form to url.Values
func (f *Form) URLValues() url.Values {
	values := make(url.Values, len(f.pairs))
	for _, p := range f.pairs {
		values.Add(p.key, p.value)
	}
	return values
}
