// Package patch implements the copy-on-write overlay of UTXO
// mutations, contract state, and receipts accumulated while
// processing one block (spec §4.2).
package patch

import (
	"github.com/cespare/xxhash/v2"

	"github.com/davincci9412/Cil-core/bc"
	"github.com/davincci9412/Cil-core/contract"
	"github.com/davincci9412/Cil-core/errors"
	"github.com/davincci9412/Cil-core/utxo"
)

// ErrContractConflict is returned by Merge when both patches set the
// same contract address at the same level to differing code or data.
var ErrContractConflict = errors.New("conflicting contract state")

// ErrReceiptCollision is returned by Merge when both patches record a
// receipt for the same transaction hash.
var ErrReceiptCollision = errors.New("conflicting receipt")

type contractEntry struct {
	contract *contract.Contract
	level    uint64
}

// Patch is a single-writer overlay for one block's worth of
// mutations, held exclusively by its block processor while that
// block is being applied (spec §5).
type Patch struct {
	utxoMap     map[bc.Hash]*utxo.UTXO
	contractMap map[bc.Address]contractEntry
	receiptMap  map[bc.Hash]*bc.Receipt
	level       uint64

	// spendTxHash reverse-indexes, for each spent (tx_hash, index)
	// pair, the hash of the transaction that spent it. Kept for
	// potential reverse-indexing, per §4.2's note on spend_coins.
	spendTxHash map[spendKey]bc.Hash
}

type spendKey struct {
	txHash bc.Hash
	index  bc.OutputIndex
}

// New returns an empty patch at level 0.
func New() *Patch {
	return &Patch{
		utxoMap:     make(map[bc.Hash]*utxo.UTXO),
		contractMap: make(map[bc.Address]contractEntry),
		receiptMap:  make(map[bc.Hash]*bc.Receipt),
		spendTxHash: make(map[spendKey]bc.Hash),
	}
}

// Level returns the patch's block-height tie-break value.
func (p *Patch) Level() uint64 { return p.level }

// SetLevel sets the patch's block-height tie-break value.
func (p *Patch) SetLevel(level uint64) { p.level = level }

// GetUTXO returns the overlay copy of the UTXO for txHash, if this
// patch has mutated it, or nil otherwise. A nil result means the
// caller should fall back to the read-only storage snapshot.
func (p *Patch) GetUTXO(txHash bc.Hash) *utxo.UTXO {
	return p.utxoMap[txHash]
}

// CreateCoins inserts a new output at (txHash, index), lazily
// creating the overlay UTXO entry if this is the first mutation for
// txHash in this patch. It fails if a live output already occupies
// that position in this patch's overlay.
func (p *Patch) CreateCoins(txHash bc.Hash, index bc.OutputIndex, coins bc.Coins) error {
	u, ok := p.utxoMap[txHash]
	if !ok {
		u = utxo.Empty(txHash)
		p.utxoMap[txHash] = u
	}
	if err := u.CreateCoins(index, coins); err != nil {
		return errors.Wrapf(err, "tx %s index %d", txHash, index)
	}
	return nil
}

// SpendCoins lazily clones storageUTXO into the patch's overlay on
// first write (copy-on-write), then marks index spent, recording
// spendingTxHash for reverse-indexing (§4.2).
func (p *Patch) SpendCoins(storageUTXO *utxo.UTXO, index bc.OutputIndex, spendingTxHash bc.Hash) error {
	u, ok := p.utxoMap[storageUTXO.TxHash]
	if !ok {
		u = storageUTXO.Clone()
		p.utxoMap[storageUTXO.TxHash] = u
	}
	if err := u.SpendCoins(index); err != nil {
		return err
	}
	p.spendTxHash[spendKey{u.TxHash, index}] = spendingTxHash
	return nil
}

// SpendingTxHash returns the hash of the transaction that spent
// (txHash, index) within this patch, if any.
func (p *Patch) SpendingTxHash(txHash bc.Hash, index bc.OutputIndex) (bc.Hash, bool) {
	h, ok := p.spendTxHash[spendKey{txHash, index}]
	return h, ok
}

// SetContract records a newly deployed or updated contract at the
// patch's current level.
func (p *Patch) SetContract(c *contract.Contract) {
	p.contractMap[c.Address] = contractEntry{contract: c, level: p.level}
}

// GetContract returns the overlay copy of the contract at addr, if
// this patch has mutated it, or nil otherwise.
func (p *Patch) GetContract(addr bc.Address) *contract.Contract {
	e, ok := p.contractMap[addr]
	if !ok {
		return nil
	}
	return e.contract
}

// AddReceipt records the receipt for txHash. It fails if a receipt
// for that hash is already present (receipts are assumed disjoint by
// tx hash, per §4.2).
func (p *Patch) AddReceipt(txHash bc.Hash, r *bc.Receipt) error {
	if _, ok := p.receiptMap[txHash]; ok {
		return errors.WithDetailf(ErrReceiptCollision, "tx %s", txHash)
	}
	p.receiptMap[txHash] = r
	return nil
}

// Receipt returns the receipt recorded for txHash, if any.
func (p *Patch) Receipt(txHash bc.Hash) (*bc.Receipt, bool) {
	r, ok := p.receiptMap[txHash]
	return r, ok
}

// ReceiptHashes returns the transaction hashes with recorded
// receipts, insertion order is not preserved (callers needing
// ordering should track it themselves, per §5's "receipts are
// insertion-ordered by tx_hash" guarantee living in the caller, not
// the map).
func (p *Patch) ReceiptHashes() []bc.Hash {
	hashes := make([]bc.Hash, 0, len(p.receiptMap))
	for h := range p.receiptMap {
		hashes = append(hashes, h)
	}
	return hashes
}

// TouchedUTXOHashes returns the tx_hashes this patch holds an overlay
// UTXO for, so a commit-to-storage caller knows which storage-side
// UTXOs to replace.
func (p *Patch) TouchedUTXOHashes() []bc.Hash {
	hashes := make([]bc.Hash, 0, len(p.utxoMap))
	for h := range p.utxoMap {
		hashes = append(hashes, h)
	}
	return hashes
}

// TouchedContractAddrs returns the addresses this patch holds an
// overlay Contract for.
func (p *Patch) TouchedContractAddrs() []bc.Address {
	addrs := make([]bc.Address, 0, len(p.contractMap))
	for a := range p.contractMap {
		addrs = append(addrs, a)
	}
	return addrs
}

// Merge returns a new patch that is the union of p and other's
// mutations (§4.2):
//   - for any UTXO present in both, the result's tombstone set is the
//     union of both tombstone sets (an output spent in either input
//     is spent in the result);
//   - for contract state, the higher level wins; at equal level,
//     both sides setting the same address to differing code or data
//     is a conflict, while identical state on both sides is accepted
//     and not reported;
//   - for receipts, a tx hash recorded in both sides is a conflict.
func Merge(a, b *Patch) (*Patch, error) {
	m := New()
	m.level = a.level
	if b.level > m.level {
		m.level = b.level
	}

	for txHash, u := range a.utxoMap {
		m.utxoMap[txHash] = u.Clone()
	}
	for txHash, u := range b.utxoMap {
		if existing, ok := m.utxoMap[txHash]; ok {
			merged, err := mergeUTXO(existing, u)
			if err != nil {
				return nil, errors.Wrapf(err, "merging utxo %s", txHash)
			}
			m.utxoMap[txHash] = merged
		} else {
			m.utxoMap[txHash] = u.Clone()
		}
	}

	for addr, e := range a.contractMap {
		m.contractMap[addr] = e
	}
	for addr, e := range b.contractMap {
		existing, ok := m.contractMap[addr]
		switch {
		case !ok:
			m.contractMap[addr] = e
		case e.level > existing.level:
			m.contractMap[addr] = e
		case e.level < existing.level:
			// keep existing
		default:
			if contractConflictKey(existing.contract) != contractConflictKey(e.contract) {
				return nil, errors.WithDetailf(ErrContractConflict, "address %s", addr)
			}
			m.contractMap[addr] = e
		}
	}

	for txHash, r := range a.receiptMap {
		m.receiptMap[txHash] = r
	}
	for txHash, r := range b.receiptMap {
		if existing, ok := m.receiptMap[txHash]; ok {
			if !sameReceipt(existing, r) {
				return nil, errors.WithDetailf(ErrReceiptCollision, "tx %s", txHash)
			}
			continue
		}
		m.receiptMap[txHash] = r
	}

	for k, v := range a.spendTxHash {
		m.spendTxHash[k] = v
	}
	for k, v := range b.spendTxHash {
		m.spendTxHash[k] = v
	}

	return m, nil
}

// mergeUTXO unions two overlay copies of the same underlying UTXO:
// the live set is their intersection, the tombstone set their union
// (§4.2 — an output spent in either input is spent in the result).
func mergeUTXO(a, b *utxo.UTXO) (*utxo.UTXO, error) {
	merged := a.Clone()
	for _, i := range b.TombstonedIndices() {
		if merged.IsTombstoned(i) {
			continue
		}
		if _, err := merged.CoinsAtIndex(i); err == nil {
			if err := merged.SpendCoins(i); err != nil {
				return nil, err
			}
		}
		// If merged never saw this position at all (neither live nor
		// tombstoned), there is nothing to tombstone: a never observed
		// that output existing, so it stays absent in the merge result.
	}
	return merged, nil
}

func sameReceipt(a, b *bc.Receipt) bool {
	if a == b {
		return true
	}
	if a.Status != b.Status || a.CoinsUsed != b.CoinsUsed || a.ContractAddress != b.ContractAddress {
		return false
	}
	if len(a.InternalTxns) != len(b.InternalTxns) {
		return false
	}
	for i := range a.InternalTxns {
		if a.InternalTxns[i] != b.InternalTxns[i] {
			return false
		}
	}
	return true
}

// contractConflictKey reports a comparable fingerprint of a
// contract's mutable state, used only to distinguish "both sides
// made the identical change" (no real conflict) from "both sides
// disagree" (a reportable conflict). It hashes data+code with a
// non-cryptographic hash (xxhash), consistent with this package's use
// of xxhash for merge-time bookkeeping that never touches consensus
// security (spec SPEC_FULL §2).
func contractConflictKey(c *contract.Contract) uint64 {
	h := xxhash.New()
	h.Write([]byte(c.Code))
	contract.HashData(h, c.Data)
	return h.Sum64()
}
