package ledger

import (
	"encoding/json"
	"fmt"

	"github.com/datsfilipe/datschain/pkg/chain"
	"github.com/datsfilipe/datschain/pkg/wallet"
)

// Category names one of the three authenticated stores.
type Category string

const (
	CategoryMining   Category = "mining"
	CategoryAccounts Category = "accounts"
	CategoryBlocks   Category = "blocks"
)

// Categories lists every valid category.
var Categories = []Category{CategoryMining, CategoryAccounts, CategoryBlocks}

// ParseCategory validates a wire category name.
func ParseCategory(s string) (Category, bool) {
	switch Category(s) {
	case CategoryMining, CategoryAccounts, CategoryBlocks:
		return Category(s), true
	}
	return "", false
}

// DifficultyUpdate records a retarget of the proof-of-work difficulty.
type DifficultyUpdate struct {
	Current    uint64 `json:"current"`
	Previous   uint64 `json:"previous"`
	Difference uint64 `json:"difference"`
}

// Value is the payload of a ledger entry: exactly one of the three category
// variants is set. The JSON form is externally tagged, e.g.
// {"Accounts":{...}}, so the wire shape names its category.
type Value struct {
	Mining   *DifficultyUpdate
	Accounts *wallet.Wallet
	Blocks   *chain.Block
}

// MiningValue wraps a difficulty update.
func MiningValue(u *DifficultyUpdate) Value { return Value{Mining: u} }

// AccountsValue wraps a wallet.
func AccountsValue(w *wallet.Wallet) Value { return Value{Accounts: w} }

// BlocksValue wraps a block.
func BlocksValue(b *chain.Block) Value { return Value{Blocks: b} }

// Category returns the category the set variant belongs to.
func (v Value) Category() (Category, bool) {
	switch {
	case v.Mining != nil:
		return CategoryMining, true
	case v.Accounts != nil:
		return CategoryAccounts, true
	case v.Blocks != nil:
		return CategoryBlocks, true
	}
	return "", false
}

// MarshalJSON emits the externally tagged form.
func (v Value) MarshalJSON() ([]byte, error) {
	switch {
	case v.Mining != nil:
		return json.Marshal(map[string]*DifficultyUpdate{"Mining": v.Mining})
	case v.Accounts != nil:
		return json.Marshal(map[string]*wallet.Wallet{"Accounts": v.Accounts})
	case v.Blocks != nil:
		return json.Marshal(map[string]*chain.Block{"Blocks": v.Blocks})
	}
	return nil, fmt.Errorf("ledger value has no variant set")
}

// UnmarshalJSON decodes the externally tagged form. Exactly one known tag
// must be present.
func (v *Value) UnmarshalJSON(data []byte) error {
	var tagged map[string]json.RawMessage
	if err := json.Unmarshal(data, &tagged); err != nil {
		return fmt.Errorf("failed to decode ledger value: %w", err)
	}
	if len(tagged) != 1 {
		return fmt.Errorf("ledger value must have exactly one variant, got %d", len(tagged))
	}

	for tag, raw := range tagged {
		switch tag {
		case "Mining":
			v.Mining = &DifficultyUpdate{}
			return json.Unmarshal(raw, v.Mining)
		case "Accounts":
			v.Accounts = &wallet.Wallet{}
			return json.Unmarshal(raw, v.Accounts)
		case "Blocks":
			v.Blocks = &chain.Block{}
			return json.Unmarshal(raw, v.Blocks)
		default:
			return fmt.Errorf("unknown ledger value variant %q", tag)
		}
	}
	return nil
}

// Proof authenticates an entry against its category tree.
type Proof struct {
	Category  Category
	Indices   []int
	ProofData []byte
}

// Entry is a committed ledger record. Version counts re-commits of the same
// content key, starting at 0.
type Entry struct {
	Key     [32]byte
	Value   Value
	Proof   *Proof
	Version uint64
}

// Envelope is the wire form of an entry as persisted and gossiped:
// {"key":..., "value":..., "version":...}. The advertised key is carried but
// receivers recompute their own.
type Envelope struct {
	Key     string `json:"key"`
	Value   Value  `json:"value"`
	Version uint64 `json:"version"`
}

// ParseEnvelope decodes a wire envelope.
func ParseEnvelope(data string) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal([]byte(data), &env); err != nil {
		return nil, fmt.Errorf("failed to decode envelope: %w", err)
	}
	if _, ok := env.Value.Category(); !ok {
		return nil, fmt.Errorf("envelope value has no variant set")
	}
	return &env, nil
}
