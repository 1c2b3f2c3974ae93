package crypto

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
)

// SignatureSize is the length of an ed25519 signature.
const SignatureSize = ed25519.SignatureSize

// GenerateKeypair derives an ed25519 keypair from a 32-byte seed, or from
// crypto/rand when seed is nil.
func GenerateKeypair(seed []byte) (privateKey, publicKey []byte, err error) {
	if seed == nil {
		pub, priv, err := ed25519.GenerateKey(rand.Reader)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to generate keypair: %w", err)
		}
		return priv.Seed(), pub, nil
	}

	if len(seed) != ed25519.SeedSize {
		return nil, nil, fmt.Errorf("invalid seed length %d, expected %d", len(seed), ed25519.SeedSize)
	}

	priv := ed25519.NewKeyFromSeed(seed)
	pub := priv.Public().(ed25519.PublicKey)
	return priv.Seed(), pub, nil
}

// Sign produces a 64-byte ed25519 signature over message using a 32-byte seed.
func Sign(message, seed []byte) ([]byte, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("invalid private key length %d, expected %d", len(seed), ed25519.SeedSize)
	}
	priv := ed25519.NewKeyFromSeed(seed)
	return ed25519.Sign(priv, message), nil
}

// VerifySignature checks an ed25519 signature against a 32-byte public key.
func VerifySignature(message, signature, publicKey []byte) bool {
	if len(publicKey) != ed25519.PublicKeySize || len(signature) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(publicKey), message, signature)
}
