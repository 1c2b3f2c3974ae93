package crypto

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransformIsKeccakHex(t *testing.T) {
	// Keccak-256 of the empty string.
	assert.Equal(t, "c5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470", Transform(""))

	digest := Transform("datschain")
	assert.Len(t, digest, 64)
	assert.True(t, VerifyTransform("datschain", digest))
	assert.False(t, VerifyTransform("datschain!", digest))
}

func TestKeccak256MatchesTransform(t *testing.T) {
	digest := Keccak256([]byte("abc"))
	assert.Equal(t, Transform("abc"), ToHex(digest[:]))
}

func TestFoldKeyTruncatesHexDigest(t *testing.T) {
	digest := Transform("payload")
	key := FoldKey(digest)

	// The first 32 ASCII characters of the digest become the key bytes.
	assert.Equal(t, []byte(digest[:32]), key[:])
}

func TestFoldKeyPadsShortInput(t *testing.T) {
	key := FoldKey("abcd")
	assert.Equal(t, []byte("abcd"), key[:4])
	assert.Equal(t, make([]byte, 28), key[4:])
}

func TestHexRoundTrip(t *testing.T) {
	for _, b := range [][]byte{{}, {0x00}, {0xde, 0xad, 0xbe, 0xef}, bytes.Repeat([]byte{0xff}, 32)} {
		decoded, err := FromHex(ToHex(b))
		require.NoError(t, err)
		assert.True(t, bytes.Equal(b, decoded))
	}
}

func TestGenerateKeypairDeterministicFromSeed(t *testing.T) {
	seed := bytes.Repeat([]byte{0x11}, 32)

	priv1, pub1, err := GenerateKeypair(seed)
	require.NoError(t, err)
	priv2, pub2, err := GenerateKeypair(seed)
	require.NoError(t, err)

	assert.Equal(t, priv1, priv2)
	assert.Equal(t, pub1, pub2)
	assert.Equal(t, seed, priv1)
}

func TestGenerateKeypairRandom(t *testing.T) {
	priv, pub, err := GenerateKeypair(nil)
	require.NoError(t, err)
	assert.Len(t, priv, 32)
	assert.Len(t, pub, 32)
}

func TestGenerateKeypairRejectsBadSeed(t *testing.T) {
	_, _, err := GenerateKeypair([]byte("short"))
	assert.Error(t, err)
}

func TestSignAndVerifySignature(t *testing.T) {
	seed := bytes.Repeat([]byte{0x22}, 32)
	_, pub, err := GenerateKeypair(seed)
	require.NoError(t, err)

	sig, err := Sign([]byte("message"), seed)
	require.NoError(t, err)
	require.Len(t, sig, SignatureSize)

	assert.True(t, VerifySignature([]byte("message"), sig, pub))
	assert.False(t, VerifySignature([]byte("other"), sig, pub))
	assert.False(t, VerifySignature([]byte("message"), sig[:10], pub))
}
