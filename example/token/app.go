// Package token implements a fungible-token ledger whose transactions
// and events are dewberry payloads. Balances are wei-denominated
// 256-bit amounts, and the full state snapshots deterministically with
// cramberry.
//
// Transaction payloads are maps keyed by "op":
//
//	mint:          {"op", "to", "amount"}
//	burn:          {"op", "from", "amount"}
//	transfer:      {"op", "from", "to", "amount"}
//	approve:       {"op", "owner", "spender", "amount"}
//	transfer_from: {"op", "spender", "owner", "to", "amount"}
//
// Unknown map keys are skipped so that old ledgers tolerate extended
// transaction formats.
package token

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/blockberries/cramberry/pkg/cramberry"
	"github.com/blockberries/dewberry"
	"github.com/holiman/uint256"
)

// Ledger rejection errors. Apply wraps these with tx detail.
var (
	ErrBadTx                 = errors.New("token: malformed transaction")
	ErrUnknownOp             = errors.New("token: unknown operation")
	ErrInsufficientBalance   = errors.New("token: insufficient balance")
	ErrInsufficientAllowance = errors.New("token: insufficient allowance")
	ErrSupplyOverflow        = errors.New("token: total supply overflow")
)

type allowanceKey struct {
	owner   dewberry.Address
	spender dewberry.Address
}

// Ledger is an in-memory token ledger. All methods are safe for
// concurrent use.
type Ledger struct {
	mu         sync.RWMutex
	height     uint64
	supply     *uint256.Int
	balances   map[dewberry.Address]*uint256.Int
	allowances map[allowanceKey]*uint256.Int
}

// New creates an empty ledger.
func New() *Ledger {
	return &Ledger{
		supply:     new(uint256.Int),
		balances:   make(map[dewberry.Address]*uint256.Int),
		allowances: make(map[allowanceKey]*uint256.Int),
	}
}

// ---------------------------------------------------------------------------
// Transaction builders
// ---------------------------------------------------------------------------

func finalizeTx(e *dewberry.Encoder) []byte {
	tx, err := e.Finalize()
	if err != nil {
		panic(fmt.Sprintf("token: building tx: %v", err))
	}
	return tx
}

// MintTx creates new tokens for an address.
func MintTx(to dewberry.Address, amount *uint256.Int) []byte {
	return finalizeTx(dewberry.NewEncoder().
		WriteMapHeader(3).
		WriteStringField("op", "mint").
		WriteAddressField("to", to).
		WriteUint256Field("amount", amount))
}

// BurnTx destroys tokens held by an address.
func BurnTx(from dewberry.Address, amount *uint256.Int) []byte {
	return finalizeTx(dewberry.NewEncoder().
		WriteMapHeader(3).
		WriteStringField("op", "burn").
		WriteAddressField("from", from).
		WriteUint256Field("amount", amount))
}

// TransferTx moves tokens between addresses.
func TransferTx(from, to dewberry.Address, amount *uint256.Int) []byte {
	return finalizeTx(dewberry.NewEncoder().
		WriteMapHeader(4).
		WriteStringField("op", "transfer").
		WriteAddressField("from", from).
		WriteAddressField("to", to).
		WriteUint256Field("amount", amount))
}

// ApproveTx sets the spender's allowance over the owner's tokens.
func ApproveTx(owner, spender dewberry.Address, amount *uint256.Int) []byte {
	return finalizeTx(dewberry.NewEncoder().
		WriteMapHeader(4).
		WriteStringField("op", "approve").
		WriteAddressField("owner", owner).
		WriteAddressField("spender", spender).
		WriteUint256Field("amount", amount))
}

// TransferFromTx spends the owner's tokens using the spender's allowance.
func TransferFromTx(spender, owner, to dewberry.Address, amount *uint256.Int) []byte {
	return finalizeTx(dewberry.NewEncoder().
		WriteMapHeader(5).
		WriteStringField("op", "transfer_from").
		WriteAddressField("spender", spender).
		WriteAddressField("owner", owner).
		WriteAddressField("to", to).
		WriteUint256Field("amount", amount))
}

// ---------------------------------------------------------------------------
// Execution
// ---------------------------------------------------------------------------

// txFields holds the decoded transaction. Address fields not present
// in the payload stay zero; set tracks which were seen.
type txFields struct {
	op      string
	from    dewberry.Address
	to      dewberry.Address
	owner   dewberry.Address
	spender dewberry.Address
	amount  *uint256.Int
	set     map[string]bool
}

func decodeTx(tx []byte) (*txFields, error) {
	d := dewberry.NewDecoder(tx)
	n, err := d.ReadMapHeader()
	if err != nil {
		return nil, err
	}
	f := &txFields{set: make(map[string]bool)}
	for i := 0; i < n; i++ {
		key, err := d.ReadString()
		if err != nil {
			return nil, err
		}
		switch key {
		case "op":
			f.op, err = d.ReadString()
		case "from":
			f.from, err = d.ReadAddress()
		case "to":
			f.to, err = d.ReadAddress()
		case "owner":
			f.owner, err = d.ReadAddress()
		case "spender":
			f.spender, err = d.ReadAddress()
		case "amount":
			f.amount, err = d.ReadUint256()
		default:
			err = d.Skip()
		}
		if err != nil {
			return nil, err
		}
		f.set[key] = true
	}
	return f, nil
}

func (f *txFields) require(keys ...string) error {
	for _, k := range keys {
		if !f.set[k] {
			return fmt.Errorf("%w: missing field %q for op %q", ErrBadTx, k, f.op)
		}
	}
	return nil
}

// Apply executes one transaction and returns its event payload.
// Rejected transactions leave the ledger unchanged.
func (l *Ledger) Apply(tx []byte) ([]byte, error) {
	f, err := decodeTx(tx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadTx, err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	var ev []byte
	switch f.op {
	case "mint":
		ev, err = l.mint(f)
	case "burn":
		ev, err = l.burn(f)
	case "transfer":
		ev, err = l.transfer(f)
	case "approve":
		ev, err = l.approve(f)
	case "transfer_from":
		ev, err = l.transferFrom(f)
	default:
		err = fmt.Errorf("%w: %q", ErrUnknownOp, f.op)
	}
	if err != nil {
		return nil, err
	}
	l.height++
	return ev, nil
}

func (l *Ledger) mint(f *txFields) ([]byte, error) {
	if err := f.require("to", "amount"); err != nil {
		return nil, err
	}
	supply, overflow := new(uint256.Int).AddOverflow(l.supply, f.amount)
	if overflow {
		return nil, ErrSupplyOverflow
	}
	l.supply = supply
	l.credit(f.to, f.amount)

	return finalizeTx(dewberry.NewEncoder().
		WriteMapHeader(4).
		WriteStringField("kind", "mint").
		WriteAddressField("to", f.to).
		WriteUint256Field("amount", f.amount).
		WriteUint256Field("supply", l.supply)), nil
}

func (l *Ledger) burn(f *txFields) ([]byte, error) {
	if err := f.require("from", "amount"); err != nil {
		return nil, err
	}
	if err := l.debit(f.from, f.amount); err != nil {
		return nil, err
	}
	l.supply = new(uint256.Int).Sub(l.supply, f.amount)

	return finalizeTx(dewberry.NewEncoder().
		WriteMapHeader(4).
		WriteStringField("kind", "burn").
		WriteAddressField("from", f.from).
		WriteUint256Field("amount", f.amount).
		WriteUint256Field("supply", l.supply)), nil
}

func (l *Ledger) transfer(f *txFields) ([]byte, error) {
	if err := f.require("from", "to", "amount"); err != nil {
		return nil, err
	}
	if err := l.move(f.from, f.to, f.amount); err != nil {
		return nil, err
	}
	return finalizeTx(dewberry.NewEncoder().
		WriteMapHeader(4).
		WriteStringField("kind", "transfer").
		WriteAddressField("from", f.from).
		WriteAddressField("to", f.to).
		WriteUint256Field("amount", f.amount)), nil
}

func (l *Ledger) approve(f *txFields) ([]byte, error) {
	if err := f.require("owner", "spender", "amount"); err != nil {
		return nil, err
	}
	key := allowanceKey{owner: f.owner, spender: f.spender}
	if f.amount.IsZero() {
		delete(l.allowances, key)
	} else {
		l.allowances[key] = f.amount.Clone()
	}
	return finalizeTx(dewberry.NewEncoder().
		WriteMapHeader(4).
		WriteStringField("kind", "approve").
		WriteAddressField("owner", f.owner).
		WriteAddressField("spender", f.spender).
		WriteUint256Field("amount", f.amount)), nil
}

func (l *Ledger) transferFrom(f *txFields) ([]byte, error) {
	if err := f.require("spender", "owner", "to", "amount"); err != nil {
		return nil, err
	}
	key := allowanceKey{owner: f.owner, spender: f.spender}
	allowed := l.allowances[key]
	if allowed == nil || allowed.Lt(f.amount) {
		return nil, fmt.Errorf("%w: spender %s over owner %s", ErrInsufficientAllowance, f.spender, f.owner)
	}
	if err := l.move(f.owner, f.to, f.amount); err != nil {
		return nil, err
	}
	rest := new(uint256.Int).Sub(allowed, f.amount)
	if rest.IsZero() {
		delete(l.allowances, key)
	} else {
		l.allowances[key] = rest
	}
	return finalizeTx(dewberry.NewEncoder().
		WriteMapHeader(5).
		WriteStringField("kind", "transfer_from").
		WriteAddressField("spender", f.spender).
		WriteAddressField("owner", f.owner).
		WriteAddressField("to", f.to).
		WriteUint256Field("amount", f.amount)), nil
}

func (l *Ledger) credit(addr dewberry.Address, amount *uint256.Int) {
	bal := l.balances[addr]
	if bal == nil {
		bal = new(uint256.Int)
	}
	// Supply is bounded by 2^256-1, so per-address balances cannot overflow.
	l.balances[addr] = new(uint256.Int).Add(bal, amount)
}

func (l *Ledger) debit(addr dewberry.Address, amount *uint256.Int) error {
	bal := l.balances[addr]
	if bal == nil || bal.Lt(amount) {
		return fmt.Errorf("%w: address %s", ErrInsufficientBalance, addr)
	}
	rest := new(uint256.Int).Sub(bal, amount)
	if rest.IsZero() {
		delete(l.balances, addr)
	} else {
		l.balances[addr] = rest
	}
	return nil
}

func (l *Ledger) move(from, to dewberry.Address, amount *uint256.Int) error {
	if err := l.debit(from, amount); err != nil {
		return err
	}
	l.credit(to, amount)
	return nil
}

// ---------------------------------------------------------------------------
// Queries
// ---------------------------------------------------------------------------

// BalanceOf returns a copy of the address's balance in wei.
func (l *Ledger) BalanceOf(addr dewberry.Address) *uint256.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if bal := l.balances[addr]; bal != nil {
		return bal.Clone()
	}
	return new(uint256.Int)
}

// Allowance returns a copy of the spender's remaining allowance.
func (l *Ledger) Allowance(owner, spender dewberry.Address) *uint256.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if a := l.allowances[allowanceKey{owner: owner, spender: spender}]; a != nil {
		return a.Clone()
	}
	return new(uint256.Int)
}

// TotalSupply returns a copy of the total minted supply.
func (l *Ledger) TotalSupply() *uint256.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.supply.Clone()
}

// Height returns the number of transactions applied so far.
func (l *Ledger) Height() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.height
}

// ---------------------------------------------------------------------------
// Snapshots
// ---------------------------------------------------------------------------

type balanceRecord struct {
	Addr    dewberry.Address `cramberry:"1"`
	Balance []byte           `cramberry:"2"` // minimal big-endian
}

type allowanceRecord struct {
	Owner   dewberry.Address `cramberry:"1"`
	Spender dewberry.Address `cramberry:"2"`
	Amount  []byte           `cramberry:"3"`
}

type snapshot struct {
	Height     uint64            `cramberry:"1"`
	Supply     []byte            `cramberry:"2"`
	Balances   []balanceRecord   `cramberry:"3"`
	Allowances []allowanceRecord `cramberry:"4"`
}

func (l *Ledger) snapshot() *snapshot {
	s := &snapshot{
		Height: l.height,
		Supply: l.supply.Bytes(),
	}
	for addr, bal := range l.balances {
		s.Balances = append(s.Balances, balanceRecord{Addr: addr, Balance: bal.Bytes()})
	}
	sort.Slice(s.Balances, func(i, j int) bool {
		return bytes.Compare(s.Balances[i].Addr[:], s.Balances[j].Addr[:]) < 0
	})
	for key, amt := range l.allowances {
		s.Allowances = append(s.Allowances, allowanceRecord{
			Owner:   key.owner,
			Spender: key.spender,
			Amount:  amt.Bytes(),
		})
	}
	sort.Slice(s.Allowances, func(i, j int) bool {
		a, b := &s.Allowances[i], &s.Allowances[j]
		if c := bytes.Compare(a.Owner[:], b.Owner[:]); c != 0 {
			return c < 0
		}
		return bytes.Compare(a.Spender[:], b.Spender[:]) < 0
	})
	return s
}

// Snapshot serializes the full ledger state. Records are sorted by
// address so identical states always produce identical bytes.
func (l *Ledger) Snapshot() ([]byte, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return cramberry.Marshal(l.snapshot())
}

// RestoreLedger rebuilds a ledger from Snapshot output.
func RestoreLedger(data []byte) (*Ledger, error) {
	var s snapshot
	if err := cramberry.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("token: restoring snapshot: %w", err)
	}
	l := New()
	l.height = s.Height
	l.supply.SetBytes(s.Supply)
	for _, rec := range s.Balances {
		l.balances[rec.Addr] = new(uint256.Int).SetBytes(rec.Balance)
	}
	for _, rec := range s.Allowances {
		key := allowanceKey{owner: rec.Owner, spender: rec.Spender}
		l.allowances[key] = new(uint256.Int).SetBytes(rec.Amount)
	}
	return l, nil
}

// StateRoot computes a SHA256 commitment over the serialized state.
func (l *Ledger) StateRoot() dewberry.Hash {
	l.mu.RLock()
	defer l.mu.RUnlock()
	data, err := cramberry.Marshal(l.snapshot())
	if err != nil {
		panic(fmt.Sprintf("token: state is always serializable: %v", err))
	}
	return dewberry.Hash(sha256.Sum256(data))
}
