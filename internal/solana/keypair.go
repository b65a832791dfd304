package solana

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"

	"github.com/mr-tron/base58"
)

// Keypair is an ed25519 signing key with its base58 public address.
type Keypair struct {
	pub  ed25519.PublicKey
	priv ed25519.PrivateKey
}

// NewKeypair generates a fresh random keypair.
func NewKeypair() (*Keypair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate keypair: %w", err)
	}
	return &Keypair{pub: pub, priv: priv}, nil
}

// KeypairFromSeed derives a keypair from a 32-byte seed.
func KeypairFromSeed(seed []byte) (*Keypair, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("seed must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	priv := ed25519.NewKeyFromSeed(seed)
	return &Keypair{pub: priv.Public().(ed25519.PublicKey), priv: priv}, nil
}

// KeypairFromBase58 decodes a base58-encoded 64-byte secret key.
func KeypairFromBase58(secret string) (*Keypair, error) {
	raw, err := base58.Decode(secret)
	if err != nil {
		return nil, fmt.Errorf("decode secret key: %w", err)
	}
	if len(raw) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("secret key must be %d bytes, got %d", ed25519.PrivateKeySize, len(raw))
	}
	priv := ed25519.PrivateKey(raw)
	return &Keypair{pub: priv.Public().(ed25519.PublicKey), priv: priv}, nil
}

// PublicKey returns the base58 address of the keypair.
func (k *Keypair) PublicKey() string {
	return base58.Encode(k.pub)
}

// SecretBase58 returns the base58-encoded 64-byte secret key.
func (k *Keypair) SecretBase58() string {
	return base58.Encode(k.priv)
}

// Sign signs a message with the private key.
func (k *Keypair) Sign(message []byte) []byte {
	return ed25519.Sign(k.priv, message)
}
