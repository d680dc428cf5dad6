package dewgrpc

import (
	"fmt"

	"github.com/blockberries/dewberry"
)

// Wire types for the PayloadService RPCs. Each encodes itself as a
// dewberry map; unknown keys are skipped on decode so either side can
// add fields without breaking the other.

// Compile-time codec checks.
var (
	_ dewberry.Marshaler   = (*PayloadRequest)(nil)
	_ dewberry.Unmarshaler = (*PayloadRequest)(nil)
	_ dewberry.Marshaler   = (*InspectResponse)(nil)
	_ dewberry.Unmarshaler = (*InspectResponse)(nil)
	_ dewberry.Marshaler   = (*CanonicalizeResponse)(nil)
	_ dewberry.Unmarshaler = (*CanonicalizeResponse)(nil)
	_ dewberry.Marshaler   = (*CheckResponse)(nil)
	_ dewberry.Unmarshaler = (*CheckResponse)(nil)
)

// decodeFields reads a map and dispatches each entry to field. The
// callback must consume exactly one value, or skip by returning
// errSkipField.
func decodeFields(data []byte, field func(key string, d *dewberry.Decoder) error) error {
	d := dewberry.NewDecoder(data)
	n, err := d.ReadMapHeader()
	if err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		key, err := d.ReadString()
		if err != nil {
			return err
		}
		if err := field(key, d); err != nil {
			if err == errSkipField {
				if err := d.Skip(); err != nil {
					return err
				}
				continue
			}
			return fmt.Errorf("field %q: %w", key, err)
		}
	}
	return nil
}

// errSkipField tells decodeFields to discard an unrecognized field.
var errSkipField = fmt.Errorf("skip field")

// PayloadRequest carries the payload bytes for all three RPCs.
type PayloadRequest struct {
	Payload []byte
}

func (r *PayloadRequest) MarshalDewberry() ([]byte, error) {
	return dewberry.NewEncoder().
		WriteMapHeader(1).
		WriteBytesField("payload", r.Payload).
		Finalize()
}

func (r *PayloadRequest) UnmarshalDewberry(data []byte) error {
	return decodeFields(data, func(key string, d *dewberry.Decoder) error {
		if key != "payload" {
			return errSkipField
		}
		p, err := d.ReadBytes()
		if err != nil {
			return err
		}
		r.Payload = p
		return nil
	})
}

// InspectResponse carries the diagnosis and structural statistics of a
// payload.
type InspectResponse struct {
	Diagnosis string
	Values    uint64
	TopLevel  uint64
	MaxDepth  uint64
	Bytes     uint64
}

func (r *InspectResponse) MarshalDewberry() ([]byte, error) {
	return dewberry.NewEncoder().
		WriteMapHeader(5).
		WriteStringField("diagnosis", r.Diagnosis).
		WriteUint64Field("values", r.Values).
		WriteUint64Field("top_level", r.TopLevel).
		WriteUint64Field("max_depth", r.MaxDepth).
		WriteUint64Field("bytes", r.Bytes).
		Finalize()
}

func (r *InspectResponse) UnmarshalDewberry(data []byte) error {
	return decodeFields(data, func(key string, d *dewberry.Decoder) error {
		var err error
		switch key {
		case "diagnosis":
			r.Diagnosis, err = d.ReadString()
		case "values":
			r.Values, err = d.ReadUint64()
		case "top_level":
			r.TopLevel, err = d.ReadUint64()
		case "max_depth":
			r.MaxDepth, err = d.ReadUint64()
		case "bytes":
			r.Bytes, err = d.ReadUint64()
		default:
			return errSkipField
		}
		return err
	})
}

// CanonicalizeResponse carries a payload rewritten to minimal widths.
type CanonicalizeResponse struct {
	Canonical []byte
	Changed   bool
}

func (r *CanonicalizeResponse) MarshalDewberry() ([]byte, error) {
	return dewberry.NewEncoder().
		WriteMapHeader(2).
		WriteBytesField("canonical", r.Canonical).
		WriteBoolField("changed", r.Changed).
		Finalize()
}

func (r *CanonicalizeResponse) UnmarshalDewberry(data []byte) error {
	return decodeFields(data, func(key string, d *dewberry.Decoder) error {
		var err error
		switch key {
		case "canonical":
			r.Canonical, err = d.ReadBytes()
		case "changed":
			r.Changed, err = d.ReadBool()
		default:
			return errSkipField
		}
		return err
	})
}

// CheckResponse reports whether a payload is structurally valid. A
// malformed payload is a result, not an RPC failure.
type CheckResponse struct {
	Valid bool
	Error string
}

func (r *CheckResponse) MarshalDewberry() ([]byte, error) {
	return dewberry.NewEncoder().
		WriteMapHeader(2).
		WriteBoolField("valid", r.Valid).
		WriteStringField("error", r.Error).
		Finalize()
}

func (r *CheckResponse) UnmarshalDewberry(data []byte) error {
	return decodeFields(data, func(key string, d *dewberry.Decoder) error {
		var err error
		switch key {
		case "valid":
			r.Valid, err = d.ReadBool()
		case "error":
			r.Error, err = d.ReadString()
		default:
			return errSkipField
		}
		return err
	})
}
