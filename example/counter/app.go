// Package counter implements a minimal payload-driven contract that
// counts increments per caller. It demonstrates the codec's basic
// moves: building transaction payloads with field helpers, selective
// decoding on the way in, and emitting events as payloads.
//
// Transaction payload: {"op": "increment", "from": address, "by": n}.
// Event payload: {"kind": "increment", "from": address, "by": n, "total": n}.
package counter

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/blockberries/dewberry"
)

// ErrRejected reports a transaction the contract refuses.
var ErrRejected = errors.New("counter: transaction rejected")

// App counts increments, in total and per calling address.
type App struct {
	mu    sync.RWMutex
	total uint64
	byCaller map[dewberry.Address]uint64
}

// New creates an empty counter.
func New() *App {
	return &App{byCaller: make(map[dewberry.Address]uint64)}
}

// IncrementTx builds the payload for an increment of n by from.
func IncrementTx(from dewberry.Address, n uint64) []byte {
	data, err := dewberry.NewEncoder().
		WriteMapHeader(3).
		WriteStringField("op", "increment").
		WriteAddressField("from", from).
		WriteUint64Field("by", n).
		Finalize()
	if err != nil {
		panic("counter: increment tx encoding failed: " + err.Error())
	}
	return data
}

// Apply executes one transaction payload and returns the emitted event
// payload. Unknown ops, missing fields, and malformed payloads are
// rejected; state is untouched on any error.
func (app *App) Apply(tx []byte) ([]byte, error) {
	op, from, by, err := decodeTx(tx)
	if err != nil {
		return nil, err
	}
	if op != "increment" {
		return nil, fmt.Errorf("%w: unknown op %q", ErrRejected, op)
	}

	app.mu.Lock()
	app.total += by
	app.byCaller[from] += by
	total := app.total
	app.mu.Unlock()

	return dewberry.NewEncoder().
		WriteMapHeader(4).
		WriteStringField("kind", "increment").
		WriteAddressField("from", from).
		WriteUint64Field("by", by).
		WriteUint64Field("total", total).
		Finalize()
}

// decodeTx pulls the three fields out of a transaction, skipping any
// it does not know.
func decodeTx(tx []byte) (op string, from dewberry.Address, by uint64, err error) {
	d := dewberry.NewDecoder(tx)
	n, err := d.ReadMapHeader()
	if err != nil {
		return "", from, 0, fmt.Errorf("%w: %v", ErrRejected, err)
	}
	var haveOp, haveFrom, haveBy bool
	for i := 0; i < n; i++ {
		key, kerr := d.ReadString()
		if kerr != nil {
			return "", from, 0, fmt.Errorf("%w: %v", ErrRejected, kerr)
		}
		var verr error
		switch key {
		case "op":
			op, verr = d.ReadString()
			haveOp = verr == nil
		case "from":
			from, verr = d.ReadAddress()
			haveFrom = verr == nil
		case "by":
			by, verr = d.ReadUint64()
			haveBy = verr == nil
		default:
			verr = d.Skip()
		}
		if verr != nil {
			return "", from, 0, fmt.Errorf("%w: field %q: %v", ErrRejected, key, verr)
		}
	}
	if !haveOp || !haveFrom || !haveBy {
		return "", from, 0, fmt.Errorf("%w: missing required field", ErrRejected)
	}
	return op, from, by, nil
}

// Total returns the total of all applied increments.
func (app *App) Total() uint64 {
	app.mu.RLock()
	defer app.mu.RUnlock()
	return app.total
}

// CallerTotal returns the sum of increments from one address.
func (app *App) CallerTotal(from dewberry.Address) uint64 {
	app.mu.RLock()
	defer app.mu.RUnlock()
	return app.byCaller[from]
}

// StateRoot returns a deterministic fingerprint of the state: the hash
// of a canonical state payload with callers in address order.
func (app *App) StateRoot() dewberry.Hash {
	app.mu.RLock()
	defer app.mu.RUnlock()

	addrs := make([]dewberry.Address, 0, len(app.byCaller))
	for a := range app.byCaller {
		addrs = append(addrs, a)
	}
	sort.Slice(addrs, func(i, j int) bool {
		return string(addrs[i][:]) < string(addrs[j][:])
	})

	e := dewberry.NewEncoder().
		WriteMapHeader(2).
		WriteUint64Field("total", app.total).
		WriteString("callers").
		WriteArrayHeader(len(addrs))
	for _, a := range addrs {
		e.WriteArrayHeader(2).
			WriteAddress(a).
			WriteUint64(app.byCaller[a])
	}
	data, err := e.Finalize()
	if err != nil {
		panic("counter: state encoding failed: " + err.Error())
	}
	return dewberry.Hash(sha256.Sum256(data))
}
