package chain

import (
	"bytes"
	"encoding/hex"
	"strconv"
	"strings"
	"time"

	"github.com/datsfilipe/datschain/pkg/crypto"
)

// BlockStatus tracks whether a block is still under construction.
type BlockStatus string

const (
	// StatusUnfinalized marks a block that may still receive transactions
	// and has not been mined.
	StatusUnfinalized BlockStatus = "Unfinalized"
	// StatusFinalized marks a mined block. Finalized blocks never change.
	StatusFinalized BlockStatus = "Finalized"
)

// Block is pure data; mining and chain membership are handled by the free
// Mine function and the Blockchain.
type Block struct {
	Transactions []*Transaction `json:"transactions"`
	PreviousHash []byte         `json:"previous_hash"`
	Hash         []byte         `json:"hash"`
	Nonce        uint64         `json:"nonce"`
	Timestamp    uint64         `json:"timestamp"`
	Status       BlockStatus    `json:"status"`
	Height       uint64         `json:"height"`
}

// NewBlock constructs an unfinalized block at the given height. The hash is
// computed over the current fields with nonce 0. The genesis block is built
// with a nil previous hash; hashing treats it as the empty string.
func NewBlock(transactions []*Transaction, previousHash []byte, height uint64) *Block {
	b := &Block{
		Transactions: transactions,
		PreviousHash: previousHash,
		Nonce:        0,
		Timestamp:    uint64(time.Now().Unix()),
		Status:       StatusUnfinalized,
		Height:       height,
	}
	b.Hash = b.computeHash()
	return b
}

// buildBlockData renders the hashed preimage of a block:
// hex(previous_hash) || keccak_hex(concatenated tx hex hashes) || dec(nonce) || dec(timestamp).
func buildBlockData(transactions []*Transaction, previousHash []byte, nonce, timestamp uint64) string {
	var sb strings.Builder

	sb.WriteString(hex.EncodeToString(previousHash))

	var txData strings.Builder
	for _, tx := range transactions {
		txData.WriteString(tx.HashHex())
	}
	sb.WriteString(crypto.Transform(txData.String()))

	sb.WriteString(strconv.FormatUint(nonce, 10))
	sb.WriteString(strconv.FormatUint(timestamp, 10))

	return sb.String()
}

func (b *Block) computeHash() []byte {
	digest := crypto.Keccak256([]byte(buildBlockData(b.Transactions, b.PreviousHash, b.Nonce, b.Timestamp)))
	return digest[:]
}

// AddTransaction appends a transaction to an unfinalized block. Finalized
// blocks reject the append.
func (b *Block) AddTransaction(tx *Transaction) bool {
	if b.Status == StatusFinalized {
		return false
	}
	b.Transactions = append(b.Transactions, tx)
	return true
}

// Verify recomputes the block hash from its fields and checks it both
// matches the stored hash and meets the difficulty target.
func (b *Block) Verify(targetBits uint64) bool {
	hash := b.computeHash()
	if !bytes.Equal(hash, b.Hash) {
		return false
	}
	return MeetsDifficulty(hash, targetBits)
}

// Clone returns a deep enough copy for lock-free mining: the transaction
// slice is copied, the transactions themselves are immutable once included.
func (b *Block) Clone() *Block {
	cp := *b
	cp.Transactions = make([]*Transaction, len(b.Transactions))
	copy(cp.Transactions, b.Transactions)
	cp.PreviousHash = append([]byte(nil), b.PreviousHash...)
	cp.Hash = append([]byte(nil), b.Hash...)
	return &cp
}

// MeetsDifficulty reports whether the raw hash bytes carry at least
// targetBits leading zero bits.
func MeetsDifficulty(hash []byte, targetBits uint64) bool {
	var leadingZeros uint64

	for _, by := range hash {
		if by == 0 {
			leadingZeros += 8
			continue
		}

		mask := byte(0x80)
		for mask > 0 && by&mask == 0 {
			leadingZeros++
			mask >>= 1
		}
		break
	}

	return leadingZeros >= targetBits
}
