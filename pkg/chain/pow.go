package chain

// DefaultMaxAttempts bounds a single mining run.
const DefaultMaxAttempts uint64 = 1_000_000

// ChainService is the chain surface mining needs: the difficulty view plus
// the ability to append the mined block.
type ChainService interface {
	ChainView
	AppendBlock(b *Block) error
}

// ManagerService lets mining retire the block it mined from the
// unfinalized set.
type ManagerService interface {
	RemoveUnfinalized(height uint64)
}

// Mine runs proof of work over b, incrementing the nonce and rehashing until
// the chain's current difficulty is met or maxAttempts nonces have failed.
// On success the block is finalized, appended through the chain service, and
// removed from the manager's unfinalized set; Mine then returns true. It
// returns false when attempts are exhausted or the append is rejected.
//
// Retargeting happens before mining: the driver applies NextDifficulty to
// the chain, then Mine works against CurrentDifficulty so the proof and the
// append validation agree on the target.
//
// Mine only touches the chain through the two services, so callers can hand
// it a clone and keep their locks out of the hash loop.
func Mine(b *Block, chain ChainService, manager ManagerService, maxAttempts uint64) bool {
	targetBits := chain.CurrentDifficulty()

	for attempt := uint64(0); attempt < maxAttempts; attempt++ {
		b.Nonce++
		hash := b.computeHash()

		if !MeetsDifficulty(hash, targetBits) {
			continue
		}

		b.Hash = hash
		b.Status = StatusFinalized

		if err := chain.AppendBlock(b); err != nil {
			return false
		}
		manager.RemoveUnfinalized(b.Height)
		return true
	}

	return false
}
