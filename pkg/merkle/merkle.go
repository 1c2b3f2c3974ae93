package merkle

import (
	"github.com/ethereum/go-ethereum/crypto"
)

// NewTree creates an empty tree for the given category identifier.
func NewTree(identifier string) *Tree {
	return &Tree{identifier: identifier}
}

// Identifier returns the category name this tree authenticates.
func (t *Tree) Identifier() string {
	return t.identifier
}

// Insert stages a leaf. The leaf becomes part of the tree on the next Commit.
func (t *Tree) Insert(leaf [32]byte) {
	t.staged = append(t.staged, leaf)
}

// Rollback discards all staged leaves and reverts the most recent commit,
// restoring the previously committed leaf set. A second Rollback without an
// intervening Commit is a no-op beyond clearing staged leaves.
func (t *Tree) Rollback() {
	t.staged = nil
	t.committed = t.previous

	if len(t.committed) == 0 {
		t.levels = nil
		return
	}
	t.levels = buildLevels(t.committed)
}

// Commit promotes staged leaves, rebuilds the tree and produces a batch proof
// over the full current leaf set. The proof is verified locally before the
// commit is accepted; on verification failure the staged leaves are discarded,
// the committed state stays as it was, and (false, nil, nil) is returned.
//
// A commit of an empty tree succeeds trivially with no proof.
func (t *Tree) Commit() (bool, []byte, []int) {
	leaves := make([][32]byte, 0, len(t.committed)+len(t.staged))
	leaves = append(leaves, t.committed...)
	leaves = append(leaves, t.staged...)

	if len(leaves) == 0 {
		t.staged = nil
		return true, nil, nil
	}

	levels := buildLevels(leaves)
	root := levels[len(levels)-1][0]

	indices := make([]int, len(leaves))
	for i := range indices {
		indices[i] = i
	}

	proofBytes := marshalProof(&Proof{
		LeafCount: uint32(len(leaves)),
		Indices:   indices,
		Leaves:    leaves,
		Root:      root,
	})

	if !verifyAgainstRoot(proofBytes, leaves, indices, root) {
		// The failed commit never lands: drop the staged leaves and keep the
		// previously committed state untouched.
		t.staged = nil
		return false, nil, nil
	}

	t.previous = t.committed
	t.committed = leaves
	t.staged = nil
	t.levels = levels

	return true, proofBytes, indices
}

// Verify checks a batch proof against the current committed root. Every leaf
// in leavesToVerify must appear at one of the proven indices. Returns false
// when the tree has no root or the proof does not parse.
func (t *Tree) Verify(leavesToVerify [][32]byte, indices []int, proofBytes []byte) bool {
	root, ok := t.Root()
	if !ok {
		return false
	}
	return verifyAgainstRoot(proofBytes, leavesToVerify, indices, root)
}

// Root returns the committed root. ok is false until at least one leaf has
// been committed.
func (t *Tree) Root() ([32]byte, bool) {
	if len(t.levels) == 0 {
		return [32]byte{}, false
	}
	return t.levels[len(t.levels)-1][0], true
}

// Leaves returns the committed leaves in insertion order.
func (t *Tree) Leaves() [][32]byte {
	out := make([][32]byte, len(t.committed))
	copy(out, t.committed)
	return out
}

// LeafCount returns the number of committed leaves.
func (t *Tree) LeafCount() int {
	return len(t.committed)
}

// StagedCount returns the number of leaves staged but not yet committed.
func (t *Tree) StagedCount() int {
	return len(t.staged)
}

// VerifyRoot reports whether the claimed root matches the committed root.
func (t *Tree) VerifyRoot(claimed [32]byte) bool {
	root, ok := t.Root()
	return ok && root == claimed
}

// buildLevels constructs all tree levels bottom-up from the leaf layer.
// If a level has an odd number of nodes, the last node is paired with itself.
func buildLevels(leaves [][32]byte) [][][32]byte {
	levels := [][][32]byte{leaves}

	current := leaves
	for len(current) > 1 {
		next := make([][32]byte, 0, (len(current)+1)/2)

		for i := 0; i < len(current); i += 2 {
			left := current[i]
			right := left
			if i+1 < len(current) {
				right = current[i+1]
			}
			next = append(next, hashPair(left, right))
		}

		levels = append(levels, next)
		current = next
	}

	return levels
}

// verifyAgainstRoot parses the proof, checks that every queried leaf sits at
// one of the proven indices, recomputes the root from the proof's leaf layer
// and compares it against the expected root.
func verifyAgainstRoot(proofBytes []byte, leavesToVerify [][32]byte, indices []int, root [32]byte) bool {
	proof, err := unmarshalProof(proofBytes)
	if err != nil {
		return false
	}
	if len(proof.Leaves) != int(proof.LeafCount) || len(proof.Indices) != len(proof.Leaves) {
		return false
	}

	proven := make(map[int]struct{}, len(proof.Indices))
	for _, idx := range proof.Indices {
		if idx < 0 || idx >= int(proof.LeafCount) {
			return false
		}
		proven[idx] = struct{}{}
	}
	for _, idx := range indices {
		if _, ok := proven[idx]; !ok {
			return false
		}
	}

	for _, leaf := range leavesToVerify {
		found := false
		for _, candidate := range proof.Leaves {
			if candidate == leaf {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	levels := buildLevels(proof.Leaves)
	computed := levels[len(levels)-1][0]

	return computed == proof.Root && computed == root
}

// hashPair computes keccak256(left || right) for two 32-byte hashes.
func hashPair(left, right [32]byte) [32]byte {
	data := make([]byte, 64)
	copy(data[0:32], left[:])
	copy(data[32:64], right[:])

	var out [32]byte
	copy(out[:], crypto.Keccak256(data))
	return out
}
