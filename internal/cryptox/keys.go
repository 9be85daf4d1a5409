// Package cryptox holds the cryptographic primitives of the mail client:
// account keypairs, per-recipient sealing of mail payloads, the keccak
// hashes used for thread ids and account addresses, and the passphrase
// protected keyfile.
package cryptox

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"github.com/dmitrijs2005/melonmail/internal/common"
	"golang.org/x/crypto/nacl/box"
)

// Keypair is the account's Curve25519 key pair. It is owned by the session
// and passed by pointer; it is never written into mailbox state.
type Keypair struct {
	PublicKey  *[32]byte
	PrivateKey *[32]byte
}

// GenerateKeypair creates a fresh account keypair.
func GenerateKeypair() (*Keypair, error) {
	pub, priv, err := box.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate keypair: %w", err)
	}
	return &Keypair{PublicKey: pub, PrivateKey: priv}, nil
}

// Address is the account identity derived from the public key.
func (k *Keypair) Address() string {
	return AddressFromPublicKey(k.PublicKey)
}

// Wipe zeroes the private key in place.
func (k *Keypair) Wipe() {
	if k == nil || k.PrivateKey == nil {
		return
	}
	common.WipeByteArray(k.PrivateKey[:])
}

// EncodeKey renders a 32-byte key as standard base64.
func EncodeKey(k *[32]byte) string {
	return base64.StdEncoding.EncodeToString(k[:])
}

// DecodeKey parses a base64 key produced by EncodeKey.
func DecodeKey(s string) (*[32]byte, error) {
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decode key: %w", err)
	}
	if len(b) != 32 {
		return nil, fmt.Errorf("decode key: want 32 bytes, got %d", len(b))
	}
	var k [32]byte
	copy(k[:], b)
	return &k, nil
}
