package filterlist

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChecksum(t *testing.T) {
	// MD5 of "test" is CY9rzUYh03PK3k6DJie09g==, base64 padding stripped.
	assert.Equal(t, "CY9rzUYh03PK3k6DJie09g", Checksum([]byte("test")))
}

func TestNormalizeBody(t *testing.T) {
	body := "[Adblock Plus 2.0]\n! Title: Test\n\n||example.org^\n"
	data, checksum, err := NormalizeBody(strings.NewReader(body))
	require.NoError(t, err)
	assert.Equal(t, "", checksum)

	// Blank lines are dropped, no trailing newline.
	assert.Equal(t, "[Adblock Plus 2.0]\n! Title: Test\n||example.org^", string(data))
}

func TestNormalizeBodyExtractsChecksum(t *testing.T) {
	canonical := "[Adblock Plus 2.0]\n! Title: Test\n||example.org^"
	declared := Checksum([]byte(canonical))

	body := "[Adblock Plus 2.0]\n! Title: Test\n! Checksum: " + declared + "\n||example.org^\n"
	data, checksum, err := NormalizeBody(strings.NewReader(body))
	require.NoError(t, err)

	// The checksum line is excluded from the canonical buffer and its value
	// round-trips.
	assert.Equal(t, canonical, string(data))
	assert.Equal(t, declared, checksum)
	assert.Equal(t, declared, Checksum(data))
}

func TestNormalizeBodyInvalidHeader(t *testing.T) {
	_, _, err := NormalizeBody(strings.NewReader("; nope\n"))
	assert.ErrorIs(t, err, ErrInvalidHeader)
}
