// Package crypto is the Crypto facade named in §6 of the
// specification: sign, verify, recover a public key from a
// (message, signature) pair, and derive an address from a public
// key. Everything above this package treats it as a trusted library;
// unlike the teacher's ed25519-based chainkd, this ledger's claim
// proofs need public-key recovery (the verifier never sees the
// claimant's public key, only their address), so the facade is built
// on secp256k1 recoverable ECDSA, the scheme used throughout the rest
// of the retrieved UTXO-ledger pack.
package crypto

import (
	"crypto/sha256"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"golang.org/x/crypto/ripemd160"

	"github.com/davincci9412/Cil-core/errors"
)

// AddressSize is the length in bytes of a derived Address, per §3.
const AddressSize = 20

// ErrInvalidKey is returned when a private key is malformed.
var ErrInvalidKey = errors.New("invalid private key")

// ErrInvalidSignature is returned when a signature is malformed or
// does not recover to a valid public key.
var ErrInvalidSignature = errors.New("invalid signature")

// KeyPair is a secp256k1 key pair.
type KeyPair struct {
	Private *btcec.PrivateKey
	Public  *btcec.PublicKey
}

// CreateKeyPair generates a fresh random key pair. It is a thin
// wrapper over btcec.NewPrivateKey and is the only operation in this
// package that is not required to be deterministic (it is never
// called from validation paths, only by tests and the demo CLI).
func CreateKeyPair() (KeyPair, error) {
	priv, err := btcec.NewPrivateKey()
	if err != nil {
		return KeyPair{}, errors.Wrap(err, "generating key pair")
	}
	return KeyPair{Private: priv, Public: priv.PubKey()}, nil
}

// KeyPairFromPrivate reconstructs a KeyPair from a 32-byte private
// key.
func KeyPairFromPrivate(priv []byte) (KeyPair, error) {
	if len(priv) != 32 {
		return KeyPair{}, errors.WithDetailf(ErrInvalidKey, "want 32 bytes, got %d", len(priv))
	}
	pk := secp256k1PrivKeyFromBytes(priv)
	return KeyPair{Private: pk, Public: pk.PubKey()}, nil
}

func secp256k1PrivKeyFromBytes(b []byte) *btcec.PrivateKey {
	priv, _ := btcec.PrivKeyFromBytes(b)
	return priv
}

// Sign produces a 65-byte recoverable ECDSA signature over message
// using priv. The message is hashed with SHA-256 before signing, as
// required by the compact-recoverable signature scheme.
func Sign(message []byte, priv *btcec.PrivateKey) ([65]byte, error) {
	var out [65]byte
	if priv == nil {
		return out, ErrInvalidKey
	}
	digest := sha256.Sum256(message)
	sig, err := ecdsa.SignCompact(priv, digest[:], true)
	if err != nil {
		return out, errors.Wrap(ErrInvalidSignature, err.Error())
	}
	if len(sig) != 65 {
		return out, errors.WithDetailf(ErrInvalidSignature, "unexpected signature length %d", len(sig))
	}
	copy(out[:], sig)
	return out, nil
}

// RecoverPublicKey recovers the public key that produced sig over
// message.
func RecoverPublicKey(message []byte, sig [65]byte) (*btcec.PublicKey, error) {
	digest := sha256.Sum256(message)
	pub, _, err := ecdsa.RecoverCompact(sig[:], digest[:])
	if err != nil {
		return nil, errors.Wrap(ErrInvalidSignature, err.Error())
	}
	return pub, nil
}

// AddressFromBytes derives a 20-byte address from arbitrary bytes:
// the Hash160 (SHA-256 then RIPEMD-160) of the input, following the
// same construction as the teacher's crypto/hash160. GetAddress and
// contract-address derivation from a deploying transaction's hash
// (spec §4.5 step 5) both reduce to this one primitive.
func AddressFromBytes(data []byte) (addr [AddressSize]byte) {
	sha := sha256.Sum256(data)
	r := ripemd160.New()
	r.Write(sha[:])
	copy(addr[:], r.Sum(nil))
	return addr
}

// GetAddress derives a 20-byte address from a public key: the
// Hash160 of its compressed SEC1 encoding.
func GetAddress(pub *btcec.PublicKey) (addr [AddressSize]byte) {
	return AddressFromBytes(pub.SerializeCompressed())
}

// Verify is a convenience combining RecoverPublicKey and GetAddress:
// it reports whether sig is a valid claim proof over message by the
// holder of wantAddr.
func Verify(message []byte, sig [65]byte, wantAddr [AddressSize]byte) bool {
	pub, err := RecoverPublicKey(message, sig)
	if err != nil {
		return false
	}
	return GetAddress(pub) == wantAddr
}
