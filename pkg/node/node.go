package node

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/datsfilipe/datschain/pkg/chain"
	"github.com/datsfilipe/datschain/pkg/config"
	"github.com/datsfilipe/datschain/pkg/crypto"
	"github.com/datsfilipe/datschain/pkg/ledger"
	"github.com/datsfilipe/datschain/pkg/persistence"
	"github.com/datsfilipe/datschain/pkg/wallet"
)

// Broadcaster publishes a payload text to the gossip overlay. Implemented by
// gossip.Overlay; tests substitute recorders.
type Broadcaster interface {
	Broadcast(text string)
}

// Node is the shared context binding the ledger, the chain, the block
// manager and the durable store. All cross-subsystem flows (wallet
// admission, peer intake, mining) go through it.
//
// Lock ordering is fixed at chain -> manager -> ledger -> storage; the store
// serialises its own writes internally.
type Node struct {
	cfg    *config.Config
	logger *zap.Logger

	chainMu sync.Mutex
	chain   *chain.Blockchain

	managerMu sync.Mutex
	manager   *chain.BlockManager

	ledgerMu sync.Mutex
	ledger   *ledger.Ledger

	broadcasterMu sync.Mutex
	broadcaster   Broadcaster
}

// New wires a node over the given durable store.
func New(cfg *config.Config, store persistence.Store, logger *zap.Logger) *Node {
	return &Node{
		cfg:     cfg,
		logger:  logger,
		chain:   chain.NewBlockchain(chain.InitialDifficultyBits),
		manager: chain.NewBlockManager(cfg.BlockInterval),
		ledger:  ledger.New(store, logger),
	}
}

// SetBroadcaster attaches the gossip overlay. The node and the overlay
// reference each other (intake one way, publication the other), so the
// overlay is attached after construction.
func (n *Node) SetBroadcaster(b Broadcaster) {
	n.broadcasterMu.Lock()
	defer n.broadcasterMu.Unlock()
	n.broadcaster = b
}

// Broadcast publishes a payload text through the attached overlay; a no-op
// while no overlay is attached.
func (n *Node) Broadcast(text string) {
	n.broadcasterMu.Lock()
	b := n.broadcaster
	n.broadcasterMu.Unlock()

	if b == nil {
		n.logger.Sugar().Debugw("Broadcast with no overlay attached")
		return
	}
	b.Broadcast(text)
}

// Config returns the node configuration.
func (n *Node) Config() *config.Config {
	return n.cfg
}

// Logger returns the node logger.
func (n *Node) Logger() *zap.Logger {
	return n.logger
}

// HandlePeerUpdate is the peer-intake pipeline: parse the envelope, reject
// values already present by content key, commit through the ledger, and
// return a human-readable acknowledgement.
//
// The key advertised inside the envelope is ignored; the ledger recomputes
// the content key from the received value and trusts only that.
func (n *Node) HandlePeerUpdate(categoryName, jsonValue string) (string, error) {
	category, ok := ledger.ParseCategory(categoryName)
	if !ok {
		return "", fmt.Errorf("unknown category %q", categoryName)
	}

	env, err := ledger.ParseEnvelope(jsonValue)
	if err != nil {
		return "", fmt.Errorf("failed to decode %s update: %w", category, err)
	}

	n.ledgerMu.Lock()
	defer n.ledgerMu.Unlock()

	key := n.ledger.GetKey(env.Value)
	if n.ledger.Exists(env.Value) {
		return "", fmt.Errorf("%s already exists in ledger", category)
	}

	if _, ok := n.ledger.Commit(context.Background(), key, env.Value, category); !ok {
		return "", fmt.Errorf("failed to commit %s update to ledger", category)
	}

	return fmt.Sprintf("Data accepted: %s", crypto.ToHex(key[:])), nil
}

// CreateWallet admits a wallet under the accounts category and broadcasts
// the formatted entry to peers. Returns the entry's content key and the
// derived address.
func (n *Node) CreateWallet(ctx context.Context, privateKey, publicKey []byte) ([32]byte, string, error) {
	w := wallet.New(privateKey, publicKey)
	value := ledger.AccountsValue(w)

	n.ledgerMu.Lock()
	key := n.ledger.GetKey(value)

	if _, ok := n.ledger.Commit(ctx, key, value, ledger.CategoryAccounts); !ok {
		n.ledgerMu.Unlock()
		return [32]byte{}, "", fmt.Errorf("failed to commit wallet to ledger")
	}

	formatted := n.ledger.FormatEntryValue(key, value)
	n.ledgerMu.Unlock()

	n.logger.Sugar().Infow("Created wallet", "address", w.AddressHex())
	n.Broadcast(string(ledger.CategoryAccounts) + ":" + formatted)

	return key, w.AddressHex(), nil
}

// SubmitTransaction builds a transaction and offers it to the block manager.
func (n *Node) SubmitTransaction(from, to []byte, value []uint64) *chain.Transaction {
	tx := chain.NewTransaction(from, to, value)

	n.managerMu.Lock()
	n.manager.AddTransaction(tx)
	n.managerMu.Unlock()

	n.logger.Sugar().Infow("Accepted transaction", "tx_hash", tx.HashHex())
	return tx
}

// VerifyEntry checks a committed entry's proof.
func (n *Node) VerifyEntry(key [32]byte) bool {
	n.ledgerMu.Lock()
	defer n.ledgerMu.Unlock()
	return n.ledger.VerifyEntry(key)
}

// LedgerEntry returns a committed entry.
func (n *Node) LedgerEntry(key [32]byte) (*ledger.Entry, bool) {
	n.ledgerMu.Lock()
	defer n.ledgerMu.Unlock()
	return n.ledger.Entry(key)
}
