package node

import (
	"context"
	"fmt"

	"github.com/datsfilipe/datschain/pkg/chain"
	"github.com/datsfilipe/datschain/pkg/ledger"
)

// The mining service drives the node through these helpers; they take the
// chain and manager locks only long enough to snapshot or mutate, never
// around proof-of-work hashing.

// CreateNextBlock runs one block-creation tick under the chain and manager
// locks. Nil when nothing is pending or the cadence has not elapsed.
func (n *Node) CreateNextBlock() *chain.Block {
	n.chainMu.Lock()
	defer n.chainMu.Unlock()
	n.managerMu.Lock()
	defer n.managerMu.Unlock()

	return n.manager.ProcessBlockCreation(n.chain)
}

// PrepareDifficulty retargets the chain for the block about to be mined.
// Returns the target, the difficulty it replaced, and whether it moved.
func (n *Node) PrepareDifficulty(b *chain.Block) (target, previous uint64, changed bool) {
	n.chainMu.Lock()
	defer n.chainMu.Unlock()

	previous = n.chain.CurrentDifficulty()
	target = chain.NextDifficulty(n.chain, b)
	if target != previous {
		n.chain.SetDifficulty(target)
		return target, previous, true
	}
	return target, previous, false
}

// ChainService exposes the chain to mining behind the chain lock.
func (n *Node) ChainService() chain.ChainService {
	return &lockedChain{n: n}
}

// ManagerService exposes the manager to mining behind the manager lock.
func (n *Node) ManagerService() chain.ManagerService {
	return &lockedManager{n: n}
}

// CommitBlockEntry records a mined block under the blocks category and
// returns the formatted entry for publication.
func (n *Node) CommitBlockEntry(ctx context.Context, b *chain.Block) (string, error) {
	value := ledger.BlocksValue(b)

	n.ledgerMu.Lock()
	defer n.ledgerMu.Unlock()

	key := n.ledger.GetKey(value)
	if _, ok := n.ledger.Commit(ctx, key, value, ledger.CategoryBlocks); !ok {
		return "", fmt.Errorf("failed to commit block %d to ledger", b.Height)
	}

	return n.ledger.FormatEntryValue(key, value), nil
}

// CommitDifficultyUpdate records a retarget under the mining category and
// returns the formatted entry for publication.
func (n *Node) CommitDifficultyUpdate(ctx context.Context, current, previous uint64) (string, error) {
	difference := current - previous
	if previous > current {
		difference = previous - current
	}

	value := ledger.MiningValue(&ledger.DifficultyUpdate{
		Current:    current,
		Previous:   previous,
		Difference: difference,
	})

	n.ledgerMu.Lock()
	defer n.ledgerMu.Unlock()

	key := n.ledger.GetKey(value)
	if _, ok := n.ledger.Commit(ctx, key, value, ledger.CategoryMining); !ok {
		return "", fmt.Errorf("failed to commit difficulty update to ledger")
	}

	return n.ledger.FormatEntryValue(key, value), nil
}

// lockedChain serialises chain access for the mining path.
type lockedChain struct {
	n *Node
}

func (lc *lockedChain) CurrentDifficulty() uint64 {
	lc.n.chainMu.Lock()
	defer lc.n.chainMu.Unlock()
	return lc.n.chain.CurrentDifficulty()
}

func (lc *lockedChain) BlockByHeight(height uint64) (*chain.Block, bool) {
	lc.n.chainMu.Lock()
	defer lc.n.chainMu.Unlock()
	return lc.n.chain.BlockByHeight(height)
}

func (lc *lockedChain) AppendBlock(b *chain.Block) error {
	lc.n.chainMu.Lock()
	defer lc.n.chainMu.Unlock()
	return lc.n.chain.AddBlock(b)
}

// lockedManager serialises manager access for the mining path.
type lockedManager struct {
	n *Node
}

func (lm *lockedManager) RemoveUnfinalized(height uint64) {
	lm.n.managerMu.Lock()
	defer lm.n.managerMu.Unlock()
	lm.n.manager.RemoveUnfinalized(height)
}
