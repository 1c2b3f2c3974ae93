package chain

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datsfilipe/datschain/pkg/crypto"
)

func TestNewTransactionHash(t *testing.T) {
	from := []byte{0x01, 0x02}
	to := []byte{0x03, 0x04}
	tx := NewTransaction(from, to, []uint64{256})

	require.Len(t, tx.Hash, 32)
	assert.Equal(t, uint64(0), tx.Nonce)
	assert.NotZero(t, tx.Timestamp)

	// hex(from) || hex(to) || hex(value bytes BE) || dec(nonce)
	preimage := "0102" + "0304" + "0000000000000100" + "0"
	want := crypto.Keccak256([]byte(preimage))
	assert.Equal(t, want[:], tx.Hash)
}

func TestTransactionHashHex(t *testing.T) {
	tx := NewTransaction([]byte{1}, []byte{2}, nil)
	assert.Equal(t, hex.EncodeToString(tx.Hash), tx.HashHex())
	assert.Len(t, tx.HashHex(), 64)
}

func TestTransactionHashIsContentAddressed(t *testing.T) {
	a := NewTransaction([]byte{1}, []byte{2}, []uint64{5})
	b := NewTransaction([]byte{1}, []byte{2}, []uint64{5})
	c := NewTransaction([]byte{1}, []byte{2}, []uint64{6})

	// Timestamp is captured but not hashed.
	assert.Equal(t, a.Hash, b.Hash)
	assert.NotEqual(t, a.Hash, c.Hash)
}
