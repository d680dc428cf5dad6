package dewtest

import (
	"bytes"
	"errors"
	"testing"

	"github.com/blockberries/dewberry"
)

// RunCodecSuite runs the conformance suite against the codec: golden
// vectors in both directions, random round trips, skip/read byte
// equivalence, peek idempotence, and truncation detection. Any codec
// change must keep this suite green; the vectors are the wire contract.
func RunCodecSuite(t *testing.T) {
	t.Helper()

	t.Run("golden_encode", func(t *testing.T) {
		for _, vec := range Vectors() {
			got, err := dewberry.Encode(vec.Value)
			if err != nil {
				t.Errorf("%s: encode: %v", vec.Name, err)
				continue
			}
			if !bytes.Equal(got, vec.Bytes()) {
				t.Errorf("%s: encoded % X, want % X", vec.Name, got, vec.Bytes())
			}
		}
	})

	t.Run("golden_decode", func(t *testing.T) {
		for _, vec := range Vectors() {
			got, err := dewberry.Decode(vec.Bytes())
			if err != nil {
				t.Errorf("%s: decode: %v", vec.Name, err)
				continue
			}
			if !got.Equal(vec.Value) {
				t.Errorf("%s: decoded %s, want %s", vec.Name, got, vec.Value)
			}
		}
	})

	t.Run("round_trip_random", func(t *testing.T) {
		g := NewGenerator(1)
		for i := 0; i < 500; i++ {
			want := g.Value(4)
			data, err := dewberry.Encode(want)
			if err != nil {
				t.Fatalf("value %d: encode: %v", i, err)
			}
			got, err := dewberry.Decode(data)
			if err != nil {
				t.Fatalf("value %d: decode of % X: %v", i, data, err)
			}
			if !got.Equal(want) {
				t.Fatalf("value %d: round trip changed %s to %s", i, want, got)
			}
		}
	})

	t.Run("skip_read_equivalence", func(t *testing.T) {
		g := NewGenerator(2)
		for i := 0; i < 200; i++ {
			data, err := dewberry.Encode(g.Value(4))
			if err != nil {
				t.Fatalf("value %d: encode: %v", i, err)
			}
			reader := dewberry.NewDecoder(data)
			if _, err := reader.ReadValue(); err != nil {
				t.Fatalf("value %d: read: %v", i, err)
			}
			skipper := dewberry.NewDecoder(data)
			if err := skipper.Skip(); err != nil {
				t.Fatalf("value %d: skip: %v", i, err)
			}
			if reader.Pos() != skipper.Pos() {
				t.Fatalf("value %d: read consumed %d, skip consumed %d", i, reader.Pos(), skipper.Pos())
			}
		}
	})

	t.Run("peek_idempotent", func(t *testing.T) {
		for _, vec := range Vectors() {
			d := dewberry.NewDecoder(vec.Bytes())
			k1, err := d.PeekKind()
			if err != nil {
				t.Fatalf("%s: peek: %v", vec.Name, err)
			}
			k2, err := d.PeekKind()
			if err != nil || k1 != k2 {
				t.Fatalf("%s: second peek = %s, %v", vec.Name, k2, err)
			}
			if d.Pos() != 0 {
				t.Fatalf("%s: peek moved the cursor", vec.Name)
			}
			if k1 != vec.Value.Kind() {
				t.Errorf("%s: peek = %s, value kind = %s", vec.Name, k1, vec.Value.Kind())
			}
		}
	})

	t.Run("truncation", func(t *testing.T) {
		for _, vec := range Vectors() {
			data := vec.Bytes()
			for n := 0; n < len(data); n++ {
				if _, err := dewberry.Decode(data[:n]); !errors.Is(err, dewberry.ErrTruncated) {
					t.Fatalf("%s: prefix %d/%d: expected ErrTruncated, got %v", vec.Name, n, len(data), err)
				}
			}
		}
	})
}
