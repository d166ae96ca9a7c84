package vectorstore

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeriveID_IsDeterministic(t *testing.T) {
	a := DeriveID("abcdef0123456789abcdef0123456789abcdef0123456789abcdef01234567")
	b := DeriveID("abcdef0123456789abcdef0123456789abcdef0123456789abcdef01234567")
	assert.Equal(t, a, b)
}

func TestDeriveID_DiffersOnDifferentInput(t *testing.T) {
	a := DeriveID("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	b := DeriveID("bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
	assert.NotEqual(t, a, b)
}

func TestDeriveID_HasUUIDShape(t *testing.T) {
	id := DeriveID("0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcd")

	parts := strings.Split(id, "-")
	assert.Len(t, parts, 5)
	assert.Len(t, parts[0], 8)
	assert.Len(t, parts[1], 4)
	assert.Len(t, parts[2], 4)
	assert.Len(t, parts[3], 4)
	assert.Len(t, parts[4], 12)

	assert.Equal(t, byte('5'), parts[2][0], "version nibble must be forced to 5")
	assert.Contains(t, "89ab", string(parts[3][0]), "variant nibble must be forced to RFC 4122 variant")
}

func TestDeriveID_PadsShortHashes(t *testing.T) {
	id := DeriveID("ab")
	assert.Len(t, id, 36)
}
