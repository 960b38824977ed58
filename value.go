package pulsekit

import (
	json "github.com/goccy/go-json"
)

// Value is a closed sum type for record properties: a recursive structure of
// strings, numbers, booleans, arrays and maps. Values are serialized once,
// at record construction time, into the record's payload bytes.
type Value interface {
	isValue()
}

type String string

type Int int64

type Float float64

type Bool bool

type Array []Value

type Map map[string]Value

func (String) isValue() {}
func (Int) isValue()    {}
func (Float) isValue()  {}
func (Bool) isValue()   {}
func (Array) isValue()  {}
func (Map) isValue()    {}

// marshalValue serializes a property value into payload bytes. A nil value
// yields a nil payload, which encodes as an empty payload field.
func marshalValue(v Value) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}
