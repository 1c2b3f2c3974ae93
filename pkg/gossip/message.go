package gossip

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"
)

// MessageIDSize is the length of a gossip message id.
const MessageIDSize = sha256.Size

// Message is a decoded gossip payload: a category-tagged JSON value plus the
// id that deduplicates it across the overlay.
type Message struct {
	ID       [MessageIDSize]byte
	Category string
	Value    string
}

// EncodeFrame renders a payload text into the wire frame body: lowercase hex
// of SHA-256(base64(text)) || base64(text).
func EncodeFrame(text string) ([]byte, [MessageIDSize]byte) {
	b64 := base64.StdEncoding.EncodeToString([]byte(text))
	id := sha256.Sum256([]byte(b64))

	raw := make([]byte, 0, MessageIDSize+len(b64))
	raw = append(raw, id[:]...)
	raw = append(raw, b64...)

	return []byte(hex.EncodeToString(raw)), id
}

// DecodeFrame parses a wire frame body back into its message id and payload
// text. The frame must be UTF-8 hex of at least a message id; the payload
// must be valid base64 of a "category:json" text.
func DecodeFrame(frame []byte) (*Message, error) {
	raw, err := hex.DecodeString(string(frame))
	if err != nil {
		return nil, fmt.Errorf("frame is not valid hex: %w", err)
	}

	if len(raw) < MessageIDSize {
		return nil, fmt.Errorf("frame of %d bytes is shorter than a message id", len(raw))
	}

	var id [MessageIDSize]byte
	copy(id[:], raw[:MessageIDSize])

	text, err := base64.StdEncoding.DecodeString(string(raw[MessageIDSize:]))
	if err != nil {
		return nil, fmt.Errorf("frame payload is not valid base64: %w", err)
	}

	category, value, ok := strings.Cut(string(text), ":")
	if !ok || value == "" {
		return nil, fmt.Errorf("frame payload is not a category-tagged message")
	}

	return &Message{ID: id, Category: category, Value: value}, nil
}
