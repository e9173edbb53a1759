// Package utxo implements the per-transaction unspent-output set
// (spec §4.1): the live outputs of one transaction, indexed by
// output position, plus a tombstone set recording which positions
// have already been spent.
package utxo

import (
	"sort"

	"github.com/dolthub/swiss"

	"github.com/davincci9412/Cil-core/bc"
	"github.com/davincci9412/Cil-core/errors"
)

// ErrAlreadySpent is returned by CoinsAtIndex for a tombstoned
// position.
var ErrAlreadySpent = errors.New("already spent")

// ErrAlreadyDeleted is returned by SpendCoins for a position that is
// already tombstoned.
var ErrAlreadyDeleted = errors.New("already deleted")

// ErrNotFound is returned for a position that never held a live
// output, distinguishing "never existed" from "already spent" per
// §4.1's tie-break note.
var ErrNotFound = errors.New("not found")

// UTXO is the unspent-output set belonging to one transaction.
//
// For any index i, either outputs[i] is present or i is in spent,
// never both (§3's invariant). A position absent from both sets has
// simply never existed.
type UTXO struct {
	TxHash  bc.Hash
	outputs *swiss.Map[bc.OutputIndex, bc.Coins]
	spent   map[bc.OutputIndex]struct{}
}

// New returns a UTXO over the given live outputs.
func New(txHash bc.Hash, outputs map[bc.OutputIndex]bc.Coins) *UTXO {
	m := swiss.NewMap[bc.OutputIndex, bc.Coins](uint32(len(outputs)))
	for i, c := range outputs {
		m.Put(i, c)
	}
	return &UTXO{
		TxHash:  txHash,
		outputs: m,
		spent:   make(map[bc.OutputIndex]struct{}),
	}
}

// Empty returns a UTXO with no outputs and no tombstones, suitable as
// the accumulator for a transaction's freshly minted outputs.
func Empty(txHash bc.Hash) *UTXO {
	return New(txHash, nil)
}

// CoinsAtIndex returns the Coins at output position i, or fails if
// that position is tombstoned or never existed.
func (u *UTXO) CoinsAtIndex(i bc.OutputIndex) (bc.Coins, error) {
	if c, ok := u.outputs.Get(i); ok {
		return c, nil
	}
	if _, ok := u.spent[i]; ok {
		return bc.Coins{}, ErrAlreadySpent
	}
	return bc.Coins{}, ErrNotFound
}

// SpendCoins marks position i spent. It fails with ErrAlreadyDeleted
// if i is already tombstoned, and with ErrNotFound if i never held a
// live output.
func (u *UTXO) SpendCoins(i bc.OutputIndex) error {
	if _, ok := u.outputs.Get(i); !ok {
		if _, ok := u.spent[i]; ok {
			return ErrAlreadyDeleted
		}
		return ErrNotFound
	}
	u.outputs.Delete(i)
	u.spent[i] = struct{}{}
	return nil
}

// CreateCoins inserts a new live output at position i. It fails if a
// live output already occupies i.
func (u *UTXO) CreateCoins(i bc.OutputIndex, c bc.Coins) error {
	if _, ok := u.outputs.Get(i); ok {
		return errors.WithDetailf(errors.New("output already exists"), "index %d", i)
	}
	u.outputs.Put(i, c)
	return nil
}

// IsEmpty reports whether no live outputs remain.
func (u *UTXO) IsEmpty() bool {
	return u.outputs.Count() == 0
}

// LiveIndices returns the positions still holding a live output, in
// ascending order, for deterministic enumeration in logs and tests.
func (u *UTXO) LiveIndices() []bc.OutputIndex {
	idx := make([]bc.OutputIndex, 0, int(u.outputs.Count()))
	u.outputs.Iter(func(i bc.OutputIndex, _ bc.Coins) bool {
		idx = append(idx, i)
		return false
	})
	sort.Slice(idx, func(a, b int) bool { return idx[a] < idx[b] })
	return idx
}

// TombstoneCount returns the number of positions marked spent.
func (u *UTXO) TombstoneCount() int {
	return len(u.spent)
}

// TombstonedIndices returns the positions marked spent, in ascending
// order.
func (u *UTXO) TombstonedIndices() []bc.OutputIndex {
	idx := make([]bc.OutputIndex, 0, len(u.spent))
	for i := range u.spent {
		idx = append(idx, i)
	}
	sort.Slice(idx, func(a, b int) bool { return idx[a] < idx[b] })
	return idx
}

// IsTombstoned reports whether i has been marked spent.
func (u *UTXO) IsTombstoned(i bc.OutputIndex) bool {
	_, ok := u.spent[i]
	return ok
}

// Clone returns a deep copy of u, for copy-on-write overlays.
func (u *UTXO) Clone() *UTXO {
	c := &UTXO{
		TxHash:  u.TxHash,
		outputs: swiss.NewMap[bc.OutputIndex, bc.Coins](uint32(u.outputs.Count())),
		spent:   make(map[bc.OutputIndex]struct{}, len(u.spent)),
	}
	u.outputs.Iter(func(i bc.OutputIndex, coins bc.Coins) bool {
		c.outputs.Put(i, coins)
		return false
	})
	for i := range u.spent {
		c.spent[i] = struct{}{}
	}
	return c
}
