package gossip

import (
	"context"
	"fmt"
	"net"
	"time"
)

// Seed dialing schedule: up to maxDialAttempts per seed, each gated by
// dialTimeout, with a backoff that starts at initialDialBackoff and grows by
// dialBackoffStep between attempts.
const (
	maxDialAttempts    = 5
	dialTimeout        = 10 * time.Second
	initialDialBackoff = 15 * time.Second
	dialBackoffStep    = 10 * time.Second
)

// Connect dials a single peer and, on success, runs its connection lifecycle
// in the background.
func (o *Overlay) Connect(ctx context.Context, addr string) error {
	dialer := &net.Dialer{Timeout: dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", addr, err)
	}

	o.logger.Sugar().Infow("Connected to peer", "peer", conn.RemoteAddr().String())
	go o.HandleConnection(ctx, conn)
	return nil
}

// ConnectSeeds dials the static seed list in the background. Each seed gets
// its own retry loop; the node's own address is skipped.
func (o *Overlay) ConnectSeeds(ctx context.Context, addrs []string, selfAddr string) {
	for _, addr := range addrs {
		if addr == "" || addr == selfAddr {
			continue
		}

		go o.dialWithRetry(ctx, addr)
	}
}

func (o *Overlay) dialWithRetry(ctx context.Context, addr string) {
	delay := initialDialBackoff

	for attempt := 0; attempt < maxDialAttempts; attempt++ {
		err := o.Connect(ctx, addr)
		if err == nil {
			return
		}
		o.logger.Sugar().Warnw("Failed to connect to seed",
			"peer", addr, "attempt", attempt+1, "error", err)

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
		delay += dialBackoffStep
	}

	o.logger.Sugar().Warnw("Giving up on seed", "peer", addr, "attempts", maxDialAttempts)
}
