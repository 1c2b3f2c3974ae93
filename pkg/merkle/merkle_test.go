package merkle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func leaf(b byte) [32]byte {
	var l [32]byte
	for i := range l {
		l[i] = b
	}
	return l
}

func TestCommitPromotesStaged(t *testing.T) {
	tree := NewTree("blocks")
	tree.Insert(leaf(1))
	tree.Insert(leaf(2))

	assert.Equal(t, 0, tree.LeafCount())
	assert.Equal(t, 2, tree.StagedCount())

	ok, proof, indices := tree.Commit()
	require.True(t, ok)
	require.NotEmpty(t, proof)
	assert.Equal(t, []int{0, 1}, indices)
	assert.Equal(t, 2, tree.LeafCount())
	assert.Equal(t, 0, tree.StagedCount())

	root, hasRoot := tree.Root()
	require.True(t, hasRoot)
	assert.True(t, tree.VerifyRoot(root))
}

func TestCommitEmptyTree(t *testing.T) {
	tree := NewTree("mining")

	ok, proof, indices := tree.Commit()
	require.True(t, ok)
	assert.Nil(t, proof)
	assert.Nil(t, indices)

	_, hasRoot := tree.Root()
	assert.False(t, hasRoot)
}

func TestRollbackRevertsLastCommit(t *testing.T) {
	tree := NewTree("accounts")
	tree.Insert(leaf(1))
	ok, _, _ := tree.Commit()
	require.True(t, ok)
	rootBefore, hasRoot := tree.Root()
	require.True(t, hasRoot)

	tree.Insert(leaf(2))
	ok, _, _ = tree.Commit()
	require.True(t, ok)
	require.Equal(t, 2, tree.LeafCount())

	// Rollback reverts the second commit and any staged leaves.
	tree.Insert(leaf(3))
	tree.Rollback()

	assert.Equal(t, 1, tree.LeafCount())
	assert.Equal(t, 0, tree.StagedCount())
	assert.True(t, tree.VerifyRoot(rootBefore))

	// A second rollback without an intervening commit changes nothing.
	tree.Rollback()
	assert.Equal(t, 1, tree.LeafCount())
}

func TestVerifyCommittedProof(t *testing.T) {
	tree := NewTree("blocks")
	for b := byte(1); b <= 5; b++ {
		tree.Insert(leaf(b))
	}

	ok, proof, indices := tree.Commit()
	require.True(t, ok)

	// The full batch verifies, and so does any single leaf of it.
	assert.True(t, tree.Verify(tree.Leaves(), indices, proof))
	assert.True(t, tree.Verify([][32]byte{leaf(3)}, indices, proof))
}

func TestVerifyRejectsForeignLeaf(t *testing.T) {
	tree := NewTree("blocks")
	tree.Insert(leaf(1))
	ok, proof, indices := tree.Commit()
	require.True(t, ok)

	assert.False(t, tree.Verify([][32]byte{leaf(9)}, indices, proof))
}

func TestVerifyRejectsGarbageProof(t *testing.T) {
	tree := NewTree("blocks")
	tree.Insert(leaf(1))
	ok, proof, indices := tree.Commit()
	require.True(t, ok)

	assert.False(t, tree.Verify([][32]byte{leaf(1)}, indices, []byte{0x01}))

	// Flipping a byte in the leaf layer must break root recomputation.
	corrupted := append([]byte(nil), proof...)
	corrupted[len(corrupted)-40] ^= 0xff
	assert.False(t, tree.Verify([][32]byte{leaf(1)}, indices, corrupted))
}

func TestVerifyWithoutRoot(t *testing.T) {
	tree := NewTree("blocks")
	assert.False(t, tree.Verify([][32]byte{leaf(1)}, []int{0}, []byte{}))
}

func TestStaleProofFailsAfterLaterCommit(t *testing.T) {
	tree := NewTree("blocks")
	tree.Insert(leaf(1))
	ok, proof, indices := tree.Commit()
	require.True(t, ok)

	tree.Insert(leaf(2))
	ok, _, _ = tree.Commit()
	require.True(t, ok)

	// The old proof pins the old root; it no longer matches the live one.
	assert.False(t, tree.Verify([][32]byte{leaf(1)}, indices, proof))
}

func TestDuplicateLeavesKeepInsertionOrder(t *testing.T) {
	tree := NewTree("blocks")
	tree.Insert(leaf(7))
	tree.Insert(leaf(7))
	tree.Insert(leaf(1))
	ok, _, _ := tree.Commit()
	require.True(t, ok)

	leaves := tree.Leaves()
	require.Len(t, leaves, 3)
	assert.Equal(t, leaf(7), leaves[0])
	assert.Equal(t, leaf(7), leaves[1])
	assert.Equal(t, leaf(1), leaves[2])
}

func TestOddLeafCountBuildsRoot(t *testing.T) {
	tree := NewTree("blocks")
	for b := byte(1); b <= 3; b++ {
		tree.Insert(leaf(b))
	}
	ok, proof, indices := tree.Commit()
	require.True(t, ok)
	assert.True(t, tree.Verify(tree.Leaves(), indices, proof))
}

func TestProofRoundTrip(t *testing.T) {
	p := &Proof{
		LeafCount: 2,
		Indices:   []int{0, 1},
		Leaves:    [][32]byte{leaf(1), leaf(2)},
		Root:      leaf(9),
	}

	decoded, err := unmarshalProof(marshalProof(p))
	require.NoError(t, err)
	assert.Equal(t, p, decoded)
}
