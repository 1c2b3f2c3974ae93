package chain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chainAdapter exposes a Blockchain through the mining service surface.
type chainAdapter struct {
	*Blockchain
}

func (a *chainAdapter) AppendBlock(b *Block) error { return a.AddBlock(b) }

// impossibleChain reports a difficulty no hash can meet.
type impossibleChain struct{}

func (impossibleChain) CurrentDifficulty() uint64           { return 257 }
func (impossibleChain) BlockByHeight(uint64) (*Block, bool) { return nil, false }
func (impossibleChain) AppendBlock(*Block) error            { return nil }

// recordingManager tracks unfinalized removals.
type recordingManager struct {
	removed []uint64
}

func (r *recordingManager) RemoveUnfinalized(height uint64) {
	r.removed = append(r.removed, height)
}

func TestMineSucceedsAtLowDifficulty(t *testing.T) {
	c := NewBlockchain(4)
	mgr := &recordingManager{}

	b := NewBlock(nil, c.LastHash(), c.Height())
	ok := Mine(b, &chainAdapter{c}, mgr, DefaultMaxAttempts)
	require.True(t, ok)

	assert.Equal(t, StatusFinalized, b.Status)
	assert.True(t, MeetsDifficulty(b.Hash, 4))
	assert.Equal(t, uint64(2), c.Height())
	assert.Equal(t, []uint64{1}, mgr.removed)
}

func TestMineExhaustsExactlyMaxAttempts(t *testing.T) {
	mgr := &recordingManager{}
	b := NewBlock(nil, nil, 1)

	ok := Mine(b, impossibleChain{}, mgr, 10)
	require.False(t, ok)

	// One nonce per attempt, nothing finalized, nothing removed.
	assert.Equal(t, uint64(10), b.Nonce)
	assert.Equal(t, StatusUnfinalized, b.Status)
	assert.Empty(t, mgr.removed)
}

func TestMineDoesNotRemoveOnAppendFailure(t *testing.T) {
	// The mined block extends nothing: height 5 against a fresh chain.
	c := NewBlockchain(0)
	mgr := &recordingManager{}

	b := NewBlock(nil, c.LastHash(), 5)
	ok := Mine(b, &chainAdapter{c}, mgr, DefaultMaxAttempts)
	require.False(t, ok)

	assert.Empty(t, mgr.removed)
	assert.Equal(t, uint64(1), c.Height())
}
