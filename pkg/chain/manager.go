package chain

import (
	"time"

	"github.com/emirpasic/gods/maps/linkedhashmap"
)

// BlockManager accumulates pending transactions and tracks blocks that have
// been cut but not yet mined. Unfinalized blocks are kept in insertion order
// so the newest one keeps absorbing transactions.
type BlockManager struct {
	pending       []*Transaction
	lastBlockTime time.Time
	blockInterval time.Duration
	unfinalized   *linkedhashmap.Map // height -> *Block
}

// NewBlockManager creates a manager that cuts a new block at most once per
// interval.
func NewBlockManager(blockInterval time.Duration) *BlockManager {
	return &BlockManager{
		lastBlockTime: time.Now(),
		blockInterval: blockInterval,
		unfinalized:   linkedhashmap.New(),
	}
}

// AddTransaction records a pending transaction. When an unfinalized block
// exists the transaction also joins the newest one; otherwise the next
// creation tick will pick it up.
func (m *BlockManager) AddTransaction(tx *Transaction) {
	m.pending = append(m.pending, tx)

	if newest := m.newestUnfinalized(); newest != nil {
		newest.AddTransaction(tx)
	}
}

// ProcessBlockCreation cuts a new unfinalized block when there is pending
// work and the cadence interval has elapsed. Returns nil otherwise.
func (m *BlockManager) ProcessBlockCreation(c *Blockchain) *Block {
	if len(m.pending) == 0 {
		return nil
	}
	if time.Since(m.lastBlockTime) < m.blockInterval {
		return nil
	}

	height := c.Height()
	previousHash := c.LastHash()

	transactions := m.pending
	m.pending = nil

	block := NewBlock(transactions, previousHash, height)
	m.unfinalized.Put(height, block)
	m.lastBlockTime = time.Now()

	return block
}

// UnfinalizedBlock returns the tracked block at a height, if any.
func (m *BlockManager) UnfinalizedBlock(height uint64) (*Block, bool) {
	v, ok := m.unfinalized.Get(height)
	if !ok {
		return nil, false
	}
	return v.(*Block), true
}

// RemoveUnfinalized drops the tracked block at a height.
func (m *BlockManager) RemoveUnfinalized(height uint64) {
	m.unfinalized.Remove(height)
}

// UnfinalizedCount returns the number of tracked unfinalized blocks.
func (m *BlockManager) UnfinalizedCount() int {
	return m.unfinalized.Size()
}

// PendingCount returns the number of transactions awaiting a block.
func (m *BlockManager) PendingCount() int {
	return len(m.pending)
}

func (m *BlockManager) newestUnfinalized() *Block {
	it := m.unfinalized.Iterator()
	if !it.Last() {
		return nil
	}
	return it.Value().(*Block)
}
