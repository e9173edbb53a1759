// Package storage defines the Storage facade the core consumes (spec
// §6) and an in-memory implementation used by tests and cmd/ledgerctl.
// The core never reads from Storage directly during processing — the
// caller stages a snapshot and later applies the resulting patch.
package storage

import (
	"context"

	"github.com/davincci9412/Cil-core/bc"
	"github.com/davincci9412/Cil-core/contract"
	"github.com/davincci9412/Cil-core/patch"
	"github.com/davincci9412/Cil-core/utxo"
)

// Storage is the persistence facade consumed by a block-level caller
// (out of scope for this core): a read-only snapshot source and a
// sink for committing an accepted block's patch.
type Storage interface {
	GetUTXOsSnapshot(ctx context.Context, hashes []bc.Hash) (map[bc.Hash]*utxo.UTXO, error)
	ApplyPatch(ctx context.Context, p *patch.Patch) error
	GetContract(ctx context.Context, addr bc.Address) (*contract.Contract, error)
}

// MemStore is an in-memory Storage, grounded in the teacher's
// cos/memstore: it exists to let tests and cmd/ledgerctl avoid needing
// a database, not to model a persistence layer (Non-goal: persistent
// disk layout).
type MemStore struct {
	utxos     map[bc.Hash]*utxo.UTXO
	contracts map[bc.Address]*contract.Contract
	receipts  map[bc.Hash]*bc.Receipt
}

// New returns an empty MemStore.
func New() *MemStore {
	return &MemStore{
		utxos:     make(map[bc.Hash]*utxo.UTXO),
		contracts: make(map[bc.Address]*contract.Contract),
		receipts:  make(map[bc.Hash]*bc.Receipt),
	}
}

// Seed inserts u directly into the store, bypassing ApplyPatch. Tests
// use this to stand up the "already on disk" UTXOs a scenario starts
// from.
func (m *MemStore) Seed(u *utxo.UTXO) {
	m.utxos[u.TxHash] = u
}

// GetUTXOsSnapshot returns a read-only view of the requested
// transactions' UTXOs; a hash with no stored entry is simply absent
// from the result, as the caller already treats a missing map entry
// as "not found".
func (m *MemStore) GetUTXOsSnapshot(ctx context.Context, hashes []bc.Hash) (map[bc.Hash]*utxo.UTXO, error) {
	snapshot := make(map[bc.Hash]*utxo.UTXO, len(hashes))
	for _, h := range hashes {
		if u, ok := m.utxos[h]; ok {
			snapshot[h] = u.Clone()
		}
	}
	return snapshot, nil
}

// ApplyPatch commits p's UTXO mutations, contract updates, and
// receipts into the store, replacing any existing entry for the same
// key. Committing a patch is the one place a UTXO's identity changes
// from "overlay copy" to "storage truth"; callers must not continue
// mutating p afterward.
func (m *MemStore) ApplyPatch(ctx context.Context, p *patch.Patch) error {
	for _, h := range p.ReceiptHashes() {
		r, _ := p.Receipt(h)
		m.receipts[h] = r
	}
	for _, h := range p.TouchedUTXOHashes() {
		if u := p.GetUTXO(h); u != nil {
			m.utxos[h] = u
		}
	}
	for _, addr := range p.TouchedContractAddrs() {
		if c := p.GetContract(addr); c != nil {
			m.contracts[addr] = c
		}
	}
	return nil
}

// GetContract returns the persisted contract at addr, or nil if none
// has been deployed there.
func (m *MemStore) GetContract(ctx context.Context, addr bc.Address) (*contract.Contract, error) {
	return m.contracts[addr], nil
}

// Receipt returns the receipt committed for txHash, if any. This is a
// MemStore-only convenience (not part of the Storage interface) for
// tests that want to inspect a committed block's outcome.
func (m *MemStore) Receipt(txHash bc.Hash) (*bc.Receipt, bool) {
	r, ok := m.receipts[txHash]
	return r, ok
}

