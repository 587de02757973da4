package settings

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Type is the storage tag of a setting value
type Type string

const (
	TypeString  Type = "string"
	TypeBoolean Type = "boolean"
	TypeNumber  Type = "number"
	TypeJSON    Type = "json"
)

// Valid reports whether t is a known type tag
func (t Type) Valid() bool {
	switch t {
	case TypeString, TypeBoolean, TypeNumber, TypeJSON:
		return true
	}
	return false
}

// Value is a typed setting value. The concrete types are StringValue,
// BoolValue, NumberValue and JSONValue.
type Value interface {
	Type() Type
	// Encode renders the value for the string column.
	Encode() string
	// Native returns the value as a plain Go value for JSON responses.
	Native() any
	isValue()
}

type StringValue string

func (v StringValue) Type() Type     { return TypeString }
func (v StringValue) Encode() string { return string(v) }
func (v StringValue) Native() any    { return string(v) }
func (StringValue) isValue()         {}

type BoolValue bool

func (v BoolValue) Type() Type     { return TypeBoolean }
func (v BoolValue) Encode() string { return strconv.FormatBool(bool(v)) }
func (v BoolValue) Native() any    { return bool(v) }
func (BoolValue) isValue()         {}

type NumberValue float64

func (v NumberValue) Type() Type     { return TypeNumber }
func (v NumberValue) Encode() string { return strconv.FormatFloat(float64(v), 'f', -1, 64) }
func (v NumberValue) Native() any    { return float64(v) }
func (NumberValue) isValue()         {}

// JSONValue holds a validated JSON document
type JSONValue struct {
	Raw json.RawMessage
}

func (v JSONValue) Type() Type     { return TypeJSON }
func (v JSONValue) Encode() string { return string(v.Raw) }
func (v JSONValue) Native() any    { return v.Raw }
func (JSONValue) isValue()         {}

// Decode parses the stored string form according to its type tag
func Decode(t Type, raw string) (Value, error) {
	switch t {
	case TypeString:
		return StringValue(raw), nil
	case TypeBoolean:
		b, err := strconv.ParseBool(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("invalid boolean %q", raw)
		}
		return BoolValue(b), nil
	case TypeNumber:
		f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q", raw)
		}
		return NumberValue(f), nil
	case TypeJSON:
		if !json.Valid([]byte(raw)) {
			return nil, fmt.Errorf("invalid json document")
		}
		return JSONValue{Raw: json.RawMessage(raw)}, nil
	default:
		return nil, fmt.Errorf("unknown setting type %q", t)
	}
}

// FromInput converts a decoded JSON request value into a typed Value.
// Strings are accepted for every type and parsed like stored values.
func FromInput(t Type, v any) (Value, error) {
	if s, ok := v.(string); ok {
		return Decode(t, s)
	}

	switch t {
	case TypeBoolean:
		if b, ok := v.(bool); ok {
			return BoolValue(b), nil
		}
	case TypeNumber:
		switch n := v.(type) {
		case float64:
			return NumberValue(n), nil
		case json.Number:
			f, err := n.Float64()
			if err != nil {
				return nil, err
			}
			return NumberValue(f), nil
		}
	case TypeJSON:
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		return JSONValue{Raw: raw}, nil
	case TypeString:
	default:
		return nil, fmt.Errorf("unknown setting type %q", t)
	}
	return nil, fmt.Errorf("value does not match type %s", t)
}
