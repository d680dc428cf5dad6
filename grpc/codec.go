// Package dewgrpc exposes payload inspection over gRPC, with dewberry
// itself registered as the message codec.
//
// No protobuf code generation is involved. Every wire type implements
// dewberry.Marshaler and dewberry.Unmarshaler, encoding itself as a
// dewberry map, so the service's own traffic is carried in the format
// it inspects.
package dewgrpc

import (
	"fmt"

	"github.com/blockberries/dewberry"
	"google.golang.org/grpc/encoding"
)

const codecName = "dewberry"

// Codec implements grpc/encoding.Codec over dewberry payloads. Message
// types must implement dewberry.Marshaler and dewberry.Unmarshaler.
type Codec struct{}

func (Codec) Marshal(v any) ([]byte, error) {
	m, ok := v.(dewberry.Marshaler)
	if !ok {
		return nil, fmt.Errorf("dewgrpc: %T does not implement dewberry.Marshaler", v)
	}
	data, err := m.MarshalDewberry()
	if err != nil {
		return nil, fmt.Errorf("dewgrpc: marshal %T: %w", v, err)
	}
	return data, nil
}

func (Codec) Unmarshal(data []byte, v any) error {
	u, ok := v.(dewberry.Unmarshaler)
	if !ok {
		return fmt.Errorf("dewgrpc: %T does not implement dewberry.Unmarshaler", v)
	}
	if err := u.UnmarshalDewberry(data); err != nil {
		return fmt.Errorf("dewgrpc: unmarshal %T: %w", v, err)
	}
	return nil
}

func (Codec) Name() string { return codecName }

func init() {
	encoding.RegisterCodec(Codec{})
}
