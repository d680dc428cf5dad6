// Package inspect examines dewberry payloads from untrusted sources.
//
// The codec itself is deliberately permissive: it follows whatever
// structure the tags claim, however deep. An Inspector adds the guard a
// payload boundary needs (a nesting depth limit) plus structural
// statistics, diagnostic rendering, and canonicalization. Foreign
// encoders may legally emit non-minimal widths; Canonicalize rewrites a
// payload to the minimal form this codec's encoder produces.
package inspect

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/blockberries/dewberry"
)

// DefaultMaxDepth bounds structural nesting when an Inspector does not
// set its own limit. Fifty levels is far beyond any sane payload while
// keeping adversarial deeply-nested input from exhausting the stack.
const DefaultMaxDepth = 50

// ErrTooDeep reports a payload nested beyond the inspector's depth limit.
var ErrTooDeep = errors.New("dewberry/inspect: nesting depth limit exceeded")

// Inspector examines payloads under a depth limit. The zero value uses
// DefaultMaxDepth. An Inspector is stateless and safe for concurrent use.
type Inspector struct {
	// MaxDepth is the deepest array/map nesting accepted; values at the
	// top level are at depth 1. Zero means DefaultMaxDepth.
	MaxDepth int
}

func (ins Inspector) maxDepth() int {
	if ins.MaxDepth > 0 {
		return ins.MaxDepth
	}
	return DefaultMaxDepth
}

// Stats summarizes the structure of a payload.
type Stats struct {
	// Values counts every value in the payload, nested ones included.
	Values int
	// PerKind counts values by kind.
	PerKind map[dewberry.Kind]int
	// MaxDepth is the deepest nesting observed; scalars at the top
	// level give 1.
	MaxDepth int
	// Bytes is the total encoded size.
	Bytes int
	// TopLevel counts the values in the payload's flat top-level
	// sequence.
	TopLevel int
}

// Validate walks a payload end to end without materializing anything
// and reports the first structural problem: a truncation, an unknown
// tag, or nesting beyond the depth limit. A nil error means every typed
// read the payload's tags call for would succeed.
func (ins Inspector) Validate(data []byte) error {
	d := dewberry.NewDecoder(data)
	for d.More() {
		if err := ins.walk(d, 1, nil); err != nil {
			return err
		}
	}
	return nil
}

// Stats walks a payload and returns its structural summary, failing on
// the same conditions as Validate.
func (ins Inspector) Stats(data []byte) (Stats, error) {
	st := Stats{PerKind: make(map[dewberry.Kind]int), Bytes: len(data)}
	d := dewberry.NewDecoder(data)
	for d.More() {
		st.TopLevel++
		if err := ins.walk(d, 1, &st); err != nil {
			return Stats{}, err
		}
	}
	return st, nil
}

// walk consumes one value, recursing through containers. It drives the
// decoder with header reads and scalar skips so its byte consumption
// matches the codec's exactly; st is optional.
func (ins Inspector) walk(d *dewberry.Decoder, depth int, st *Stats) error {
	if depth > ins.maxDepth() {
		return fmt.Errorf("%w: depth %d at offset %d", ErrTooDeep, depth, d.Pos())
	}
	k, err := d.PeekKind()
	if err != nil {
		return err
	}
	if st != nil {
		st.Values++
		st.PerKind[k]++
		if depth > st.MaxDepth {
			st.MaxDepth = depth
		}
	}
	switch k {
	case dewberry.KindArray:
		n, err := d.ReadArrayHeader()
		if err != nil {
			return err
		}
		for i := 0; i < n; i++ {
			if err := ins.walk(d, depth+1, st); err != nil {
				return err
			}
		}
		return nil
	case dewberry.KindMap:
		n, err := d.ReadMapHeader()
		if err != nil {
			return err
		}
		for i := 0; i < n; i++ {
			if _, err := d.ReadString(); err != nil {
				return err
			}
			if err := ins.walk(d, depth+1, st); err != nil {
				return err
			}
		}
		return nil
	default:
		return d.Skip()
	}
}

// Diagnose renders a payload in human-readable diagnostic notation, one
// line per top-level value. Strings quote, integers print in decimal,
// byte blobs, addresses and hashes print as 0x-prefixed hex.
func (ins Inspector) Diagnose(data []byte) (string, error) {
	if err := ins.Validate(data); err != nil {
		return "", err
	}
	vals, err := dewberry.DecodeAll(data)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for _, v := range vals {
		b.WriteString(v.String())
		b.WriteByte('\n')
	}
	return b.String(), nil
}

// Canonicalize re-encodes a payload in this codec's minimal form and
// reports whether the bytes changed. A payload from a conforming
// minimal-width encoder comes back unchanged; one carrying oversized
// widths is rewritten. Map entry order is preserved; canonical form
// fixes widths, not semantics.
func (ins Inspector) Canonicalize(data []byte) ([]byte, bool, error) {
	if err := ins.Validate(data); err != nil {
		return nil, false, err
	}
	vals, err := dewberry.DecodeAll(data)
	if err != nil {
		return nil, false, err
	}
	e := dewberry.NewEncoder()
	for _, v := range vals {
		e.WriteValue(v)
	}
	out, err := e.Finalize()
	if err != nil {
		return nil, false, err
	}
	return out, !bytes.Equal(out, data), nil
}

// IsCanonical reports whether a payload already uses minimal widths.
func (ins Inspector) IsCanonical(data []byte) (bool, error) {
	_, changed, err := ins.Canonicalize(data)
	if err != nil {
		return false, err
	}
	return !changed, nil
}
