package chain

import (
	"encoding/binary"
	"encoding/hex"
	"strconv"
	"time"

	"github.com/datsfilipe/datschain/pkg/crypto"
)

// Transaction is a transfer between two addresses. The hash is computed at
// construction over the canonical rendering of the transfer fields and is
// the transaction's identity inside a block.
type Transaction struct {
	From      []byte   `json:"from"`
	To        []byte   `json:"to"`
	Value     []uint64 `json:"value"`
	Timestamp uint64   `json:"timestamp"`
	Nonce     uint64   `json:"nonce"`
	Hash      []byte   `json:"hash"`
}

// NewTransaction builds a transaction and computes its hash:
// keccak256(hex(from) || hex(to) || hex(value bytes, big-endian) || dec(nonce)).
func NewTransaction(from, to []byte, value []uint64) *Transaction {
	const nonce = 0

	valueBytes := make([]byte, 0, 8*len(value))
	for _, v := range value {
		var be [8]byte
		binary.BigEndian.PutUint64(be[:], v)
		valueBytes = append(valueBytes, be[:]...)
	}

	data := hex.EncodeToString(from) +
		hex.EncodeToString(to) +
		hex.EncodeToString(valueBytes) +
		strconv.FormatUint(nonce, 10)

	digest := crypto.Keccak256([]byte(data))

	return &Transaction{
		From:      from,
		To:        to,
		Value:     value,
		Timestamp: uint64(time.Now().Unix()),
		Nonce:     nonce,
		Hash:      digest[:],
	}
}

// HashHex returns the hex encoding of the transaction hash.
func (t *Transaction) HashHex() string {
	return hex.EncodeToString(t.Hash)
}
