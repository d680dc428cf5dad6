// Package dewberry implements the blockberries payload codec: a compact,
// self-describing binary format for dynamic values such as transaction
// payloads, contract events, and query documents.
//
// The format extends a MessagePack-style tag scheme with fixed-width
// integers up to 256 bits, a dedicated 20-byte [Address] type, a dedicated
// 32-byte [Hash] type, and no floating point. Encoders always pick the
// smallest form that can carry a value, so equal values produce equal
// bytes; decoders accept any legal width, so payloads from other encoders
// round-trip too.
//
// [Encoder] builds a payload through chainable writes. [Decoder] walks one
// with typed reads, non-advancing peeks, and recursive skips. [Value] is
// the generic decoded form for payloads whose shape is not known up front.
// Cramberry remains the codec for schema'd structs; dewberry carries the
// dynamic payloads those structs point at.
package dewberry

import "fmt"

// Marshaler is implemented by types that encode themselves as a single
// dewberry payload.
type Marshaler interface {
	MarshalDewberry() ([]byte, error)
}

// Unmarshaler is implemented by types that decode themselves from a
// single dewberry payload.
type Unmarshaler interface {
	UnmarshalDewberry(data []byte) error
}

// Encode encodes one Value into a fresh buffer.
func Encode(v Value) ([]byte, error) {
	return NewEncoder().WriteValue(v).Finalize()
}

// Decode decodes exactly one value from data and requires the buffer to
// end there. Use a Decoder or DecodeAll for flat multi-value sequences.
func Decode(data []byte) (Value, error) {
	d := NewDecoder(data)
	v, err := d.ReadValue()
	if err != nil {
		return Value{}, err
	}
	if d.More() {
		return Value{}, fmt.Errorf("dewberry: %d byte(s) of trailing data after value", len(data)-d.Pos())
	}
	return v, nil
}

// DecodeAll decodes a buffer written as a flat sequence of values.
func DecodeAll(data []byte) ([]Value, error) {
	d := NewDecoder(data)
	var vals []Value
	for d.More() {
		v, err := d.ReadValue()
		if err != nil {
			return nil, err
		}
		vals = append(vals, v)
	}
	return vals, nil
}
