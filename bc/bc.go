// Package bc defines the wire-level data model shared by every other
// package in this module: addresses, coins, transactions and their
// inputs/outputs, and receipts (spec §3).
package bc

import (
	"encoding/hex"
	"fmt"
	"time"

	"golang.org/x/crypto/sha3"

	"github.com/davincci9412/Cil-core/errors"
)

// Exported constants (§6).
const (
	// MinContractFee is the minimum coin amount a sandbox entry
	// (CreateContract or RunContract) always consumes, win or lose.
	MinContractFee uint64 = 10

	// TimeoutCode bounds the wall-clock time a single sandbox
	// execution may run before being torn down by the host.
	TimeoutCode = 250 * time.Millisecond

	// ContractMethodSeparator joins persisted method source texts in
	// Contract.Code.
	ContractMethodSeparator = "\n// --- method ---\n"

	// AddressPrefix is prepended to an Address's hex form by
	// Address.String(); it is a display convenience only, never part
	// of the 20 raw address bytes.
	AddressPrefix = "cil1"
)

// TxStatus is a Receipt's outcome.
type TxStatus string

const (
	TxStatusOK     TxStatus = "OK"
	TxStatusFailed TxStatus = "FAILED"
)

// AddressSize is the length in bytes of an Address (§3).
const AddressSize = 20

// Address is a 20-byte identifier derived from a public key.
type Address [AddressSize]byte

// String renders the address as a prefixed hex string.
func (a Address) String() string {
	return AddressPrefix + hex.EncodeToString(a[:])
}

// HashSize is the length in bytes of a content-addressed hash (§3).
const HashSize = 32

// Hash is a 32-byte content-addressed identifier.
type Hash [HashSize]byte

func (h Hash) String() string { return hex.EncodeToString(h[:]) }

// Bytes returns the hash's bytes.
func (h Hash) Bytes() []byte { return h[:] }

// IsZero reports whether h is the zero hash.
func (h Hash) IsZero() bool { return h == Hash{} }

// SumHash computes the content hash used throughout this module
// (SHA3-256, matching the teacher's protocol/state/tree_items.go use
// of golang.org/x/crypto/sha3 for content addressing).
func SumHash(data []byte) Hash {
	return Hash(sha3.Sum256(data))
}

// Coins is a value object: an amount and the address entitled to
// spend it. Immutable once created (§3).
type Coins struct {
	Amount   uint64
	Receiver Address
}

// OutputIndex identifies a position within a transaction's output
// list.
type OutputIndex uint32

// TxInput references a previously created, unspent output and
// proves the spender's claim to it.
type TxInput struct {
	ReferencedTxHash Hash
	OutputIndex      OutputIndex
	ClaimProof       [65]byte // recoverable ECDSA signature, see crypto.Sign
}

// TxOutput is a newly minted coin.
type TxOutput struct {
	Coins Coins
}

// Transaction is a content-addressed set of inputs and outputs,
// optionally carrying contract deployment or invocation data (§3).
type Transaction struct {
	Inputs  []TxInput
	Outputs []TxOutput

	// ContractCode is the contract source text, non-empty only for a
	// deployment transaction.
	ContractCode string

	// ContractInvocation is a "methodName(args...)" string (or empty
	// for default dispatch), non-empty only for an invocation
	// transaction against an already-deployed contract.
	ContractInvocation string
	ContractAddress    Address // target of ContractInvocation; ignored for deployments

	// WitnessGroupID names the concilium responsible for this
	// transaction's block; the core threads it through untouched (no
	// witness-voting logic here, per Non-goals).
	WitnessGroupID [16]byte

	hash     Hash
	hashSet  bool
}

// IsIssue reports whether tx is a coinbase/issue transaction: one
// with no inputs (§3).
func (tx *Transaction) IsIssue() bool {
	return len(tx.Inputs) == 0
}

// IsContractDeploy reports whether tx deploys a contract.
func (tx *Transaction) IsContractDeploy() bool {
	return tx.ContractCode != ""
}

// IsContractInvocation reports whether tx invokes a contract. An
// invocation is identified by a non-zero ContractAddress; the
// invocation string itself may legitimately be empty (default
// dispatch, §4.6 step 1).
func (tx *Transaction) IsContractInvocation() bool {
	return tx.ContractAddress != Address{}
}

// Hash returns the transaction's content-addressed hash, memoized
// after first computation. Hash is computed over every
// order-sensitive field; two transactions with identically-valued
// but differently-ordered inputs/outputs are considered distinct,
// matching the "content-addressed" invariant in §3.
func (tx *Transaction) Hash() Hash {
	if tx.hashSet {
		return tx.hash
	}
	h := sha3.New256()
	for _, in := range tx.Inputs {
		// ClaimProof is deliberately excluded: it is a signature over
		// this hash, so including it would make the digest a claimant
		// must sign depend on the signature itself.
		h.Write(in.ReferencedTxHash[:])
		fmt.Fprintf(h, "%d", in.OutputIndex)
	}
	for _, out := range tx.Outputs {
		fmt.Fprintf(h, "%d", out.Coins.Amount)
		h.Write(out.Coins.Receiver[:])
	}
	h.Write([]byte(tx.ContractCode))
	h.Write([]byte(tx.ContractInvocation))
	h.Write(tx.ContractAddress[:])
	h.Write(tx.WitnessGroupID[:])
	var sum Hash
	copy(sum[:], h.Sum(nil))
	tx.hash = sum
	tx.hashSet = true
	return sum
}

// HashAt returns the digest the claimant of input i must have
// signed. The indexed form exists to enable future SIGHASH-style
// partial commitments; for now HashAt(i) == Hash() for every i, a
// placeholder explicitly called out in spec §4.3 step 2a.
func (tx *Transaction) HashAt(i int) Hash {
	return tx.Hash()
}

// Fee returns totalIn - totalOut, failing if outputs exceed inputs or
// the subtraction would underflow. This is a convenience a
// block-level caller would otherwise reimplement; the core's
// obligation stops at returning totalIn and totalOut correctly
// (§4.4), this helper just packages the subtraction.
func Fee(totalIn, totalOut uint64) (uint64, error) {
	if totalOut > totalIn {
		return 0, errors.New("outputs exceed inputs")
	}
	return totalIn - totalOut, nil
}

// Receipt describes the outcome of processing one transaction (§3).
type Receipt struct {
	Status          TxStatus
	CoinsUsed       uint64
	ContractAddress Address // set only for a successful deployment
	InternalTxns    []Hash
}
