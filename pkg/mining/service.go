package mining

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/datsfilipe/datschain/pkg/chain"
	"github.com/datsfilipe/datschain/pkg/ledger"
)

// Driver is the node surface the mining service drives. Satisfied by
// node.Node; tests substitute stubs.
type Driver interface {
	CreateNextBlock() *chain.Block
	PrepareDifficulty(b *chain.Block) (target, previous uint64, changed bool)
	ChainService() chain.ChainService
	ManagerService() chain.ManagerService
	CommitBlockEntry(ctx context.Context, b *chain.Block) (string, error)
	CommitDifficultyUpdate(ctx context.Context, current, previous uint64) (string, error)
	Broadcast(text string)
}

// Service periodically cuts the next unfinalised block and mines it. Proof
// of work runs on its own goroutine; the driver's locks are only held inside
// the snapshot and commit helpers.
type Service struct {
	driver          Driver
	logger          *zap.Logger
	period          time.Duration
	maxAttempts     uint64
	recordRetargets bool
}

// NewService creates a mining service ticking at the given period.
func NewService(driver Driver, period time.Duration, recordRetargets bool, logger *zap.Logger) *Service {
	return &Service{
		driver:          driver,
		logger:          logger,
		period:          period,
		maxAttempts:     chain.DefaultMaxAttempts,
		recordRetargets: recordRetargets,
	}
}

// Run drives the mining loop until the context is cancelled.
func (s *Service) Run(ctx context.Context) {
	ticker := time.NewTicker(s.period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// tick runs one mining round: snapshot the next block, retarget, mine a
// clone off the locks, then commit and publish the result.
func (s *Service) tick(ctx context.Context) {
	block := s.driver.CreateNextBlock()
	if block == nil {
		return
	}

	height := block.Height
	s.logger.Sugar().Infow("Starting mining", "height", height)

	target, previous, changed := s.driver.PrepareDifficulty(block)
	if changed {
		s.logger.Sugar().Infow("Difficulty retargeted",
			"height", height, "target", target, "previous", previous)
		if s.recordRetargets {
			s.publishDifficultyUpdate(ctx, target, previous)
		}
	}

	// PoW is CPU-bound: run it off this loop so ticks never stall the
	// cooperative parts of the node.
	clone := block.Clone()
	result := make(chan bool, 1)
	go func() {
		result <- chain.Mine(clone, s.driver.ChainService(), s.driver.ManagerService(), s.maxAttempts)
	}()

	var mined bool
	select {
	case <-ctx.Done():
		return
	case mined = <-result:
	}

	if !mined {
		s.logger.Sugar().Warnw("Proof of work failed", "height", height, "attempts", s.maxAttempts)
		return
	}

	s.logger.Sugar().Infow("Mined block", "height", height, "nonce", clone.Nonce)

	formatted, err := s.driver.CommitBlockEntry(ctx, clone)
	if err != nil {
		s.logger.Sugar().Errorw("Failed to commit mined block", "height", height, "error", err)
		return
	}

	s.driver.Broadcast(string(ledger.CategoryBlocks) + ":" + formatted)
}

func (s *Service) publishDifficultyUpdate(ctx context.Context, current, previous uint64) {
	formatted, err := s.driver.CommitDifficultyUpdate(ctx, current, previous)
	if err != nil {
		s.logger.Sugar().Errorw("Failed to commit difficulty update", "error", err)
		return
	}
	s.driver.Broadcast(string(ledger.CategoryMining) + ":" + formatted)
}
