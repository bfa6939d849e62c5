package network

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/izot/lon-core/internal/lonerr"
)

// TestDomainLenCodeRoundTripsValidLengths implements spec section 8's
// "for every L in {0,1,3,6}, decode(encode(L)) == L" property.
func TestDomainLenCodeRoundTripsValidLengths(t *testing.T) {
	for _, length := range []int{0, 1, 3, 6} {
		code, err := domainLenCode(length)
		require.NoError(t, err, "length=%d", length)
		assert.Equal(t, length, domainLenFromCode(code), "length=%d code=%d", length, code)
	}
}

func TestDomainLenCodeRejectsInvalidLengths(t *testing.T) {
	for _, length := range []int{2, 4, 5, 7, -1, 100} {
		_, err := domainLenCode(length)
		require.Error(t, err, "length=%d", length)
		assert.True(t, lonerr.Is(err, lonerr.InvalidDomain), "length=%d", length)
	}
}

func TestDomainLenCodeAssignsDistinctCodes(t *testing.T) {
	seen := make(map[uint8]int)
	for _, length := range []int{0, 1, 3, 6} {
		code, err := domainLenCode(length)
		require.NoError(t, err)
		if prior, ok := seen[code]; ok {
			t.Fatalf("code %d assigned to both length %d and length %d", code, prior, length)
		}
		seen[code] = length
	}
	assert.Len(t, seen, 4)
}

// TestDomainLenFromCodePreservesCode3OpenQuestion documents spec.md §9's
// preserved open question: decode always maps wire code 3 to a 6-byte
// domain length. Whether a 6-byte domain is ultimately accepted is a
// node-configuration decision made elsewhere, not at decode time — so
// domainLenFromCode itself never rejects code 3.
func TestDomainLenFromCodePreservesCode3OpenQuestion(t *testing.T) {
	assert.Equal(t, 6, domainLenFromCode(3))
}

func TestDomainLenFromCodeMapsAllFourWireCodes(t *testing.T) {
	cases := map[uint8]int{0: 0, 1: 1, 2: 3, 3: 6}
	for code, wantLength := range cases {
		assert.Equal(t, wantLength, domainLenFromCode(code), "code=%d", code)
	}
}

// TestDomainLenFromCodeIgnoresUpperBits confirms the function masks its
// input to the 2-bit wire field, since callers decode it out of a
// multi-field byte (see Decode in npdu.go).
func TestDomainLenFromCodeIgnoresUpperBits(t *testing.T) {
	assert.Equal(t, 6, domainLenFromCode(0xFF))
	assert.Equal(t, 0, domainLenFromCode(0xFC))
}
