package gossip

import (
	"context"
	"net"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/datsfilipe/datschain/pkg/ledger"
)

// sendQueueSize is the per-peer buffered frame queue. A peer that cannot
// drain it in time loses frames (logged as lag, never fatal).
const sendQueueSize = 100

// IntakeFunc hands a category-tagged JSON value from a peer to the ledger
// pipeline. The returned acknowledgement is logged; an error suppresses the
// relay of the originating frame.
type IntakeFunc func(category, jsonValue string) (string, error)

type peer struct {
	id   string
	addr string
	conn net.Conn
	send chan []byte
	done chan struct{}

	closeOnce sync.Once
}

func (p *peer) close() {
	p.closeOnce.Do(func() {
		close(p.done)
		_ = p.conn.Close()
	})
}

// Overlay is the gossip fabric: one framed TCP connection per peer, a
// process-wide seen set for duplicate suppression, and fan-out relay of
// accepted updates.
type Overlay struct {
	logger *zap.Logger
	intake IntakeFunc

	peersMu sync.RWMutex
	peers   map[string]*peer

	seenMu sync.Mutex
	seen   map[[MessageIDSize]byte]struct{}
}

// NewOverlay creates an overlay delivering peer updates to intake.
func NewOverlay(intake IntakeFunc, logger *zap.Logger) *Overlay {
	return &Overlay{
		logger: logger,
		intake: intake,
		peers:  make(map[string]*peer),
		seen:   make(map[[MessageIDSize]byte]struct{}),
	}
}

// Listen binds the overlay listener and serves inbound connections until the
// context is cancelled. The bind failure is returned to the caller; accept
// errors after a successful bind only end the loop when the listener closed.
func (o *Overlay) Listen(ctx context.Context, addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	go func() {
		<-ctx.Done()
		_ = listener.Close()
	}()

	o.logger.Sugar().Infow("Network listener started", "addr", addr)

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			o.logger.Sugar().Warnw("Failed to accept connection", "error", err)
			continue
		}

		go o.HandleConnection(ctx, conn)
	}
}

// HandleConnection runs a peer's lifecycle: register, spawn the send task,
// process inbound frames serially, and on any exit remove the peer and close
// the connection.
func (o *Overlay) HandleConnection(ctx context.Context, conn net.Conn) {
	p := &peer{
		id:   uuid.NewString(),
		addr: conn.RemoteAddr().String(),
		conn: conn,
		send: make(chan []byte, sendQueueSize),
		done: make(chan struct{}),
	}

	o.addPeer(p)
	defer o.removePeer(p)

	o.logger.Sugar().Infow("Handling connection",
		"peer", p.addr, "connection_id", p.id, "total", o.PeerCount())

	// Send task: drains the peer's queue onto the wire.
	go func() {
		for {
			select {
			case frame := <-p.send:
				if err := WriteFrame(conn, frame); err != nil {
					o.logger.Sugar().Warnw("Error sending to peer",
						"peer", p.addr, "connection_id", p.id, "error", err)
					p.close()
					return
				}
			case <-p.done:
				return
			}
		}
	}()

	// Receive task: inbound frames are processed in arrival order.
	for {
		if ctx.Err() != nil {
			return
		}

		frame, err := ReadFrame(conn)
		if err != nil {
			o.logger.Sugar().Infow("Connection closed",
				"peer", p.addr, "connection_id", p.id, "error", err)
			return
		}

		o.processFrame(frame, p)
	}
}

// processFrame runs the peer-intake pipeline on one inbound frame: decode,
// suppress duplicates, commit through intake, and relay on success.
func (o *Overlay) processFrame(frame []byte, from *peer) {
	msg, err := DecodeFrame(frame)
	if err != nil {
		o.logger.Sugar().Warnw("Dropping undecodable frame", "peer", from.addr, "error", err)
		return
	}

	if !o.markSeen(msg.ID) {
		o.logger.Sugar().Debugw("Dropping duplicate message",
			"peer", from.addr, "msg_id", msg.ID)
		return
	}

	if _, ok := ledger.ParseCategory(msg.Category); !ok {
		o.logger.Sugar().Infow("Received non-ledger message",
			"peer", from.addr, "category", msg.Category)
		return
	}

	ack, err := o.intake(msg.Category, msg.Value)
	if err != nil {
		o.logger.Sugar().Warnw("Rejected peer update",
			"peer", from.addr, "category", msg.Category, "error", err)
		return
	}

	o.logger.Sugar().Infow("Processed peer update",
		"peer", from.addr, "category", msg.Category, "ack", ack)

	o.fanOut(frame, from.addr)
}

// Broadcast publishes a payload text to every connected peer. The message id
// is registered in the seen set so the node never re-processes its own
// update when it echoes back.
func (o *Overlay) Broadcast(text string) {
	frame, id := EncodeFrame(text)

	if !o.markSeen(id) {
		o.logger.Sugar().Warnw("Broadcast of an already-seen message", "msg_id", id)
	}

	o.fanOut(frame, "")
}

// fanOut enqueues a frame to every peer except the named one. A full peer
// queue drops that peer's copy; lag is logged, not fatal.
func (o *Overlay) fanOut(frame []byte, exceptAddr string) {
	o.peersMu.RLock()
	targets := make([]*peer, 0, len(o.peers))
	for addr, p := range o.peers {
		if addr == exceptAddr {
			continue
		}
		targets = append(targets, p)
	}
	o.peersMu.RUnlock()

	o.logger.Sugar().Debugw("Broadcasting to peers", "count", len(targets))

	for _, p := range targets {
		select {
		case <-p.done:
		case p.send <- frame:
		default:
			o.logger.Sugar().Warnw("Peer send queue full, dropping frame",
				"peer", p.addr, "connection_id", p.id)
		}
	}
}

// markSeen records a message id, reporting whether it was new.
func (o *Overlay) markSeen(id [MessageIDSize]byte) bool {
	o.seenMu.Lock()
	defer o.seenMu.Unlock()

	if _, ok := o.seen[id]; ok {
		return false
	}
	o.seen[id] = struct{}{}
	return true
}

// Seen reports whether a message id has been processed or originated.
func (o *Overlay) Seen(id [MessageIDSize]byte) bool {
	o.seenMu.Lock()
	defer o.seenMu.Unlock()

	_, ok := o.seen[id]
	return ok
}

// PeerCount returns the number of live peer connections.
func (o *Overlay) PeerCount() int {
	o.peersMu.RLock()
	defer o.peersMu.RUnlock()
	return len(o.peers)
}

func (o *Overlay) addPeer(p *peer) {
	o.peersMu.Lock()
	defer o.peersMu.Unlock()

	if old, ok := o.peers[p.addr]; ok {
		old.close()
	}
	o.peers[p.addr] = p
}

func (o *Overlay) removePeer(p *peer) {
	o.peersMu.Lock()
	if current, ok := o.peers[p.addr]; ok && current == p {
		delete(o.peers, p.addr)
	}
	remaining := len(o.peers)
	o.peersMu.Unlock()

	p.close()
	o.logger.Sugar().Infow("Removed peer",
		"peer", p.addr, "connection_id", p.id, "remaining", remaining)
}
