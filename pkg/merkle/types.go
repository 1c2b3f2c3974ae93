package merkle

// Tree is an append-only authenticated set of 32-byte leaves with staged
// writes. Leaves inserted via Insert are not part of the tree until Commit
// promotes them; Rollback discards them. Insertion order is preserved and
// duplicate leaves are allowed.
type Tree struct {
	identifier string

	committed [][32]byte
	previous  [][32]byte // committed state before the last commit
	staged    [][32]byte

	// levels stores all tree levels for the committed leaf set
	// levels[0] = leaves, levels[len-1] = root
	levels [][][32]byte
}

// Proof is a batch proof over the full committed leaf set of a tree at the
// time of a commit. It pins the proven indices, the leaf layer and the root
// they hash up to; verification replays the hash and compares the result
// against the tree's live root.
type Proof struct {
	LeafCount uint32
	Indices   []int
	Leaves    [][32]byte
	Root      [32]byte
}
