package parsing

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Field is one submitted name/value pair
type Field struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Fields returns the submitted pairs in order
func (f *Form) Fields() []Field {
	fields := make([]Field, len(f.pairs))
	for i, p := range f.pairs {
		fields[i] = Field{Name: p.key, Value: p.value}
	}
	return fields
}

// FromFields builds a form from name/value pairs
func FromFields(fields []Field) *Form {
	f := NewForm()
	for _, field := range fields {
		f.Add(field.Name, field.Value)
	}
	return f
}

// ParseJSON decodes a form given as JSON: either an array of {name, value}
// objects, or an object whose members are strings or arrays of strings.
// Member order is kept in both cases.
func ParseJSON(data []byte) (*Form, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var fields []Field
		if err := json.Unmarshal(trimmed, &fields); err != nil {
			return nil, &ParseError{Message: "invalid JSON field list", Cause: err}
		}
		return FromFields(fields), nil
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	if err := expectDelim(dec, '{'); err != nil {
		return nil, err
	}
	f := NewForm()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, &ParseError{Message: "invalid JSON form", Cause: err}
		}
		key := tok.(string)

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, &ParseError{Message: fmt.Sprintf("invalid JSON value for %q", key), Cause: err}
		}
		var one string
		if err := json.Unmarshal(raw, &one); err == nil {
			f.Add(key, one)
			continue
		}
		var many []string
		if err := json.Unmarshal(raw, &many); err != nil {
			return nil, &ParseError{Message: fmt.Sprintf("value for %q must be a string or an array of strings", key), Cause: err}
		}
		for _, v := range many {
			f.Add(key, v)
		}
	}
	if err := expectDelim(dec, '}'); err != nil {
		return nil, err
	}
	return f, nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return &ParseError{Message: "invalid JSON form", Cause: err}
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return &ParseError{Message: fmt.Sprintf("invalid JSON form: expected %q", want)}
	}
	return nil
}
