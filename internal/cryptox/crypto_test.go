package cryptox

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenDigest(t *testing.T) {
	// sha256("abc")
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", TokenDigest("abc"))

	d := TokenDigest("session-token")
	assert.Len(t, d, 64)
	assert.Equal(t, d, TokenDigest("session-token"))
	assert.NotEqual(t, d, TokenDigest("session-token2"))
}
