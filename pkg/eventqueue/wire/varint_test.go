package wire_test

import (
	"bytes"
	"io"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/eventqueue/pkg/eventqueue/wire"
)

func TestVarintBoundaries(t *testing.T) {
	tests := []struct {
		value uint32
		size  int
	}{
		{0, 1},
		{127, 1},
		{128, 2},
		{16383, 2},
		{16384, 3},
		{math.MaxInt32, 5},
		{math.MaxUint32, 5},
	}

	for _, tt := range tests {
		buf := wire.AppendUvarint32(nil, tt.value)
		assert.Len(t, buf, tt.size, "value %d", tt.value)
		assert.Equal(t, tt.size, wire.SizeUvarint32(tt.value))

		got, err := wire.ReadUvarint32(bytes.NewReader(buf))
		require.NoError(t, err)
		assert.Equal(t, tt.value, got)
	}
}

func TestVarintLayout(t *testing.T) {
	assert.Equal(t, []byte{0xac, 0x02}, wire.AppendUvarint32(nil, 300))
	assert.Equal(t, []byte{0x7f}, wire.AppendUvarint32(nil, 127))
}

func TestVarintSignedIsBitCast(t *testing.T) {
	assert.Equal(t, uint32(math.MaxUint32), wire.ToUnsigned(-1))
	assert.Equal(t, int32(-1), wire.ToSigned(math.MaxUint32))
	assert.Equal(t, int32(math.MinInt32), wire.ToSigned(wire.ToUnsigned(math.MinInt32)))

	// Small negatives take the full width.
	assert.Equal(t, 5, wire.SizeUvarint32(wire.ToUnsigned(-1)))
}

func TestVarintRejectsOverflow(t *testing.T) {
	_, err := wire.ReadUvarint32(bytes.NewReader([]byte{0xff, 0xff, 0xff, 0xff, 0x1f}))
	assert.ErrorIs(t, err, wire.ErrVarintOverflow)

	_, err = wire.ReadUvarint32(bytes.NewReader([]byte{0x80, 0x80, 0x80, 0x80, 0x80, 0x01}))
	assert.ErrorIs(t, err, wire.ErrVarintOverflow)
}

func TestVarintTruncated(t *testing.T) {
	_, err := wire.ReadUvarint32(bytes.NewReader([]byte{0x80}))
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)

	_, err = wire.ReadUvarint32(bytes.NewReader(nil))
	assert.ErrorIs(t, err, io.EOF)
}
