package ledger

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/datsfilipe/datschain/pkg/crypto"
	"github.com/datsfilipe/datschain/pkg/merkle"
	"github.com/datsfilipe/datschain/pkg/persistence"
)

// categoryTree is the tree surface the ledger drives. Satisfied by
// merkle.Tree; tests substitute failing stubs.
type categoryTree interface {
	Insert(leaf [32]byte)
	Commit() (bool, []byte, []int)
	Rollback()
	Verify(leaves [][32]byte, indices []int, proofBytes []byte) bool
	Leaves() [][32]byte
}

// Ledger is the three-category authenticated store. Every successful commit
// leaves the category tree committed and the KV store holding the formatted
// entry; a failure of either leaves both untouched.
//
// The ledger is not self-locking; callers serialise access (the node guards
// it with a mutex, after the chain and manager locks).
type Ledger struct {
	miningTree   categoryTree
	accountsTree categoryTree
	blocksTree   categoryTree

	entries map[[32]byte]*Entry
	store   persistence.Store
	logger  *zap.Logger
}

// New creates a ledger over the given durable store.
func New(store persistence.Store, logger *zap.Logger) *Ledger {
	return &Ledger{
		miningTree:   merkle.NewTree(string(CategoryMining)),
		accountsTree: merkle.NewTree(string(CategoryAccounts)),
		blocksTree:   merkle.NewTree(string(CategoryBlocks)),
		entries:      make(map[[32]byte]*Entry),
		store:        store,
		logger:       logger,
	}
}

// GetKey derives the content key of a value: Keccak-256 over its canonical
// JSON rendering, folded into 32 bytes. This defines content addressing for
// all three categories.
func (l *Ledger) GetKey(v Value) [32]byte {
	canonical, err := json.Marshal(v)
	if err != nil {
		// Only reachable with an empty variant; key on the raw error text so
		// the caller still gets a deterministic value.
		canonical = []byte(err.Error())
	}
	return crypto.FoldKey(crypto.Transform(string(canonical)))
}

// Exists reports whether an equivalent value is already present, by
// computed content key.
func (l *Ledger) Exists(v Value) bool {
	_, ok := l.entries[l.GetKey(v)]
	return ok
}

// Entry returns the committed entry for a key.
func (l *Ledger) Entry(key [32]byte) (*Entry, bool) {
	e, ok := l.entries[key]
	return e, ok
}

// EntryCount returns the number of committed entries.
func (l *Ledger) EntryCount() int {
	return len(l.entries)
}

// Commit runs the write-through commit protocol: stage the key into the
// category tree, commit the tree, record the entry, persist the formatted
// entry. On any failure the tree is rolled back, the entry map restored and
// no proof returned.
func (l *Ledger) Commit(ctx context.Context, key [32]byte, value Value, category Category) (*Proof, bool) {
	tree := l.treeFor(category)
	if tree == nil {
		l.logger.Sugar().Warnw("Commit to unknown category", "category", category)
		return nil, false
	}

	tree.Insert(key)
	ok, proofBytes, indices := tree.Commit()
	if !ok {
		l.logger.Sugar().Errorw("Merkle commit failed, tree rolled back",
			"category", category, "key", crypto.ToHex(key[:]))
		return nil, false
	}

	proof := &Proof{
		Category:  category,
		Indices:   indices,
		ProofData: proofBytes,
	}

	prior, hadPrior := l.entries[key]
	version := uint64(0)
	if hadPrior {
		version = prior.Version + 1
	}

	l.entries[key] = &Entry{
		Key:     key,
		Value:   value,
		Proof:   proof,
		Version: version,
	}

	formatted := l.FormatEntryValue(key, value)
	if err := l.store.Put(ctx, key, formatted); err != nil {
		// Write-through failed: revert the tree commit and the entry so
		// neither side observes the half-applied write.
		tree.Rollback()
		if hadPrior {
			l.entries[key] = prior
		} else {
			delete(l.entries, key)
		}
		l.logger.Sugar().Errorw("KV write-through failed, commit rolled back",
			"category", category, "key", crypto.ToHex(key[:]), "error", err)
		return nil, false
	}

	return proof, true
}

// VerifyEntry checks an entry's stored proof against its category tree.
// False when the entry or its proof is missing, or the tree rejects it.
func (l *Ledger) VerifyEntry(key [32]byte) bool {
	entry, ok := l.entries[key]
	if !ok || entry.Proof == nil {
		return false
	}

	tree := l.treeFor(entry.Proof.Category)
	if tree == nil {
		return false
	}

	return tree.Verify([][32]byte{key}, entry.Proof.Indices, entry.Proof.ProofData)
}

// FormatEntryValue renders the persisted and gossiped wire form of an entry:
// {"key":"<hex>", "value":<json>, "version":<n>}. The version is the one
// currently recorded for the key, zero when the key is unknown.
func (l *Ledger) FormatEntryValue(key [32]byte, value Value) string {
	version := uint64(0)
	if entry, ok := l.entries[key]; ok {
		version = entry.Version
	}

	valueJSON, err := json.Marshal(value)
	if err != nil {
		valueJSON = []byte("null")
	}

	return fmt.Sprintf(`{"key":"%s", "value":%s, "version":%d}`,
		crypto.ToHex(key[:]), valueJSON, version)
}

// LatestBlockKey returns the most recently committed blocks-category leaf.
func (l *Ledger) LatestBlockKey() ([32]byte, bool) {
	return lastLeaf(l.blocksTree)
}

// LatestAccountKey returns the most recently committed accounts-category leaf.
func (l *Ledger) LatestAccountKey() ([32]byte, bool) {
	return lastLeaf(l.accountsTree)
}

// LatestMiningKey returns the most recently committed mining-category leaf.
func (l *Ledger) LatestMiningKey() ([32]byte, bool) {
	return lastLeaf(l.miningTree)
}

// LeafCount returns the committed leaf count of a category tree.
func (l *Ledger) LeafCount(category Category) int {
	tree := l.treeFor(category)
	if tree == nil {
		return 0
	}
	return len(tree.Leaves())
}

func (l *Ledger) treeFor(category Category) categoryTree {
	switch category {
	case CategoryMining:
		return l.miningTree
	case CategoryAccounts:
		return l.accountsTree
	case CategoryBlocks:
		return l.blocksTree
	}
	return nil
}

func lastLeaf(tree categoryTree) ([32]byte, bool) {
	leaves := tree.Leaves()
	if len(leaves) == 0 {
		return [32]byte{}, false
	}
	return leaves[len(leaves)-1], true
}
