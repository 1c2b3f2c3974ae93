package gossip

import (
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer

	payload := []byte("hello, overlay")
	require.NoError(t, WriteFrame(&buf, payload))

	// 4-byte big-endian length prefix.
	assert.Equal(t, []byte{0x00, 0x00, 0x00, 0x0e}, buf.Bytes()[:4])

	decoded, err := ReadFrame(&buf)
	require.NoError(t, err)
	assert.Equal(t, payload, decoded)
}

func TestReadFrameShortInput(t *testing.T) {
	_, err := ReadFrame(bytes.NewReader([]byte{0x00, 0x00}))
	assert.Error(t, err)

	// Header promises more bytes than the stream holds.
	_, err = ReadFrame(bytes.NewReader([]byte{0x00, 0x00, 0x00, 0x10, 0x01}))
	assert.Error(t, err)
}

func TestReadFrameRejectsOversize(t *testing.T) {
	var header [4]byte
	header[0] = 0xff
	_, err := ReadFrame(bytes.NewReader(header[:]))
	assert.Error(t, err)
}

func TestEncodeFrameLayout(t *testing.T) {
	text := "accounts:{\"key\":\"00\"}"
	frame, id := EncodeFrame(text)

	raw, err := hex.DecodeString(string(frame))
	require.NoError(t, err)

	b64 := base64.StdEncoding.EncodeToString([]byte(text))
	wantID := sha256.Sum256([]byte(b64))

	assert.Equal(t, wantID, id)
	assert.Equal(t, wantID[:], raw[:MessageIDSize])
	assert.Equal(t, b64, string(raw[MessageIDSize:]))
}

func TestDecodeFrameRoundTrip(t *testing.T) {
	frame, id := EncodeFrame(`blocks:{"height":1}`)

	msg, err := DecodeFrame(frame)
	require.NoError(t, err)
	assert.Equal(t, id, msg.ID)
	assert.Equal(t, "blocks", msg.Category)
	assert.Equal(t, `{"height":1}`, msg.Value)
}

func TestDecodeFrameRejectsNonHex(t *testing.T) {
	_, err := DecodeFrame([]byte("zz-not-hex"))
	assert.Error(t, err)
}

func TestDecodeFrameRejectsShortPayload(t *testing.T) {
	// Valid hex, but fewer raw bytes than a message id.
	short := hex.EncodeToString(make([]byte, MessageIDSize-1))
	_, err := DecodeFrame([]byte(short))
	assert.Error(t, err)
}

func TestDecodeFrameRejectsBadBase64(t *testing.T) {
	raw := make([]byte, MessageIDSize)
	raw = append(raw, []byte("!!!not-base64!!!")...)
	_, err := DecodeFrame([]byte(hex.EncodeToString(raw)))
	assert.Error(t, err)
}

func TestDecodeFrameRejectsUntaggedText(t *testing.T) {
	frame, _ := EncodeFrame("no category separator here")
	_, err := DecodeFrame(frame)
	assert.Error(t, err)
}

func TestBase64RoundTrip(t *testing.T) {
	for _, s := range []string{"", "a", "mining:{}", "unicode ✓ payload"} {
		encoded := base64.StdEncoding.EncodeToString([]byte(s))
		decoded, err := base64.StdEncoding.DecodeString(encoded)
		require.NoError(t, err)
		assert.Equal(t, s, string(decoded))
	}
}
