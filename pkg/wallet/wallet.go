package wallet

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"github.com/datsfilipe/datschain/pkg/crypto"
)

// AddressLength is the byte length of a wallet address.
const AddressLength = 20

// Wallet is an account admitted to the ledger. The address is derived from
// the public key and never changes after creation.
type Wallet struct {
	Address    []byte `json:"address"`
	PublicKey  []byte `json:"public_key"`
	PrivateKey []byte `json:"private_key"`
}

// New derives a wallet from raw key material. The address is the first 20
// bytes of the public key, zero-padded when the key is shorter.
func New(privateKey, publicKey []byte) *Wallet {
	return &Wallet{
		Address:    publicKeyToAddress(publicKey),
		PublicKey:  publicKey,
		PrivateKey: privateKey,
	}
}

// AddressHex returns the hex encoding of the wallet address.
func (w *Wallet) AddressHex() string {
	return hex.EncodeToString(w.Address)
}

// Sign produces a 64-byte signature over message with the wallet's private
// key. The private key must be a valid 32-byte ed25519 seed.
func (w *Wallet) Sign(message []byte) ([]byte, error) {
	sig, err := crypto.Sign(message, w.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to sign message: %w", err)
	}
	return sig, nil
}

// SignTransfer signs the canonical transfer message from || to || value bytes
// (each value as big-endian u64).
func (w *Wallet) SignTransfer(to []byte, value []uint64) ([]byte, error) {
	return w.Sign(TransferMessage(w.Address, to, value))
}

// TransferMessage builds the byte string signed for a transfer.
func TransferMessage(from, to []byte, value []uint64) []byte {
	msg := make([]byte, 0, len(from)+len(to)+8*len(value))
	msg = append(msg, from...)
	msg = append(msg, to...)
	for _, v := range value {
		var be [8]byte
		binary.BigEndian.PutUint64(be[:], v)
		msg = append(msg, be[:]...)
	}
	return msg
}

func publicKeyToAddress(publicKey []byte) []byte {
	address := make([]byte, AddressLength)
	copy(address, publicKey)
	return address
}
