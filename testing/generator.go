package dewtest

import (
	"math/big"
	"math/rand"

	"github.com/blockberries/dewberry"

	"github.com/holiman/uint256"
)

// Generator produces pseudo-random Values from a fixed seed, so
// property tests are reproducible: the same seed always yields the
// same sequence.
type Generator struct {
	rng *rand.Rand
}

// NewGenerator returns a generator for the given seed.
func NewGenerator(seed int64) *Generator {
	return &Generator{rng: rand.New(rand.NewSource(seed))}
}

// Value produces one random value nested at most maxDepth levels.
func (g *Generator) Value(maxDepth int) dewberry.Value {
	// Containers get rarer as depth runs out.
	kinds := 8
	if maxDepth > 1 {
		kinds = 10
	}
	switch g.rng.Intn(kinds) {
	case 0:
		return dewberry.Nil()
	case 1:
		return dewberry.Bool(g.rng.Intn(2) == 0)
	case 2:
		return dewberry.Uint64(g.uint64())
	case 3:
		return g.wideUint()
	case 4:
		return g.int()
	case 5:
		return dewberry.Str(g.str())
	case 6:
		return dewberry.Bin(g.blob())
	case 7:
		if g.rng.Intn(2) == 0 {
			var a dewberry.Address
			g.rng.Read(a[:])
			return dewberry.Addr(a)
		}
		var h dewberry.Hash
		g.rng.Read(h[:])
		return dewberry.Block(h)
	case 8:
		n := g.rng.Intn(6)
		elems := make([]dewberry.Value, n)
		for i := range elems {
			elems[i] = g.Value(maxDepth - 1)
		}
		return dewberry.Array(elems...)
	default:
		n := g.rng.Intn(5)
		ents := make([]dewberry.MapEntry, n)
		for i := range ents {
			ents[i] = dewberry.Entry(g.str(), g.Value(maxDepth-1))
		}
		return dewberry.Map(ents...)
	}
}

// uint64 biases toward width boundaries, where the interesting bugs
// live.
func (g *Generator) uint64() uint64 {
	boundaries := []uint64{0, 1, 127, 128, 255, 256, 65535, 65536, 1<<32 - 1, 1 << 32, 1<<64 - 1}
	if g.rng.Intn(2) == 0 {
		return boundaries[g.rng.Intn(len(boundaries))]
	}
	return g.rng.Uint64()
}

func (g *Generator) wideUint() dewberry.Value {
	v := new(uint256.Int)
	words := g.rng.Intn(4) + 1
	for i := 0; i < words; i++ {
		v[i] = g.rng.Uint64()
	}
	return dewberry.Uint256(v)
}

func (g *Generator) int() dewberry.Value {
	switch g.rng.Intn(3) {
	case 0:
		boundaries := []int64{-1, -32, -33, -128, -129, -32768, -32769, -1 << 31, -1<<31 - 1, -1 << 63}
		return dewberry.Int64(boundaries[g.rng.Intn(len(boundaries))])
	case 1:
		return dewberry.Int64(-int64(g.rng.Uint64() >> 1))
	default:
		mag := new(big.Int).Rand(g.rng, maxMagnitude)
		return dewberry.BigInt(mag.Neg(mag))
	}
}

// maxMagnitude is 2^255, so negated magnitudes stay in the int256
// range.
var maxMagnitude = new(big.Int).Lsh(big.NewInt(1), 255)

func (g *Generator) str() string {
	lens := []int{0, 1, 5, 31, 32, 255, 256}
	n := lens[g.rng.Intn(len(lens))]
	const alphabet = "abcdefghijklmnopqrstuvwxyz0123456789_"
	b := make([]byte, n)
	for i := range b {
		b[i] = alphabet[g.rng.Intn(len(alphabet))]
	}
	return string(b)
}

func (g *Generator) blob() []byte {
	lens := []int{0, 1, 17, 255, 256, 1000}
	p := make([]byte, lens[g.rng.Intn(len(lens))])
	g.rng.Read(p)
	return p
}
