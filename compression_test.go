package cxlmemctrl

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fangyunh/CC-DRAM-Gem5/packetqueue"
)

func TestRoundUpToCacheline(t *testing.T) {
	require.Equal(t, uint64(64), roundUpToCacheline(1))
	require.Equal(t, uint64(64), roundUpToCacheline(64))
	require.Equal(t, uint64(128), roundUpToCacheline(65))
}

func TestLZ4CompressionOnRepetitiveData(t *testing.T) {
	src := make([]byte, granularity2KiB)
	for i := range src {
		src[i] = 0x42
	}

	sizes, ok := LZ4Compression(src, granularity2KiB)
	require.True(t, ok)
	require.Len(t, sizes, 1)
	require.Less(t, int(sizes[0]), len(src))
}

func TestLZ4CompressionOnMultipleBlocks(t *testing.T) {
	src := make([]byte, 4*granularity1KiB)
	for i := range src {
		src[i] = byte(i % 3)
	}

	sizes, ok := LZ4Compression(src, granularity1KiB)
	require.True(t, ok)
	require.Len(t, sizes, 4)
	for _, s := range sizes {
		require.Greater(t, s, uint32(0))
		require.Less(t, int(s), granularity1KiB)
	}
}

func TestLZ4CompressionOnEmptyInput(t *testing.T) {
	sizes, ok := LZ4Compression(nil, granularity1KiB)
	require.True(t, ok)
	require.Empty(t, sizes)
}

func TestLZ4CompressionFailsOnIncompressibleBlock(t *testing.T) {
	src := make([]byte, granularity1KiB)
	rand.New(rand.NewSource(1)).Read(src)

	_, ok := LZ4Compression(src, granularity1KiB)
	require.False(t, ok)
}

func TestDynamicCompressionBelowThresholdIsNoop(t *testing.T) {
	c, _, _, _ := newTestComp(t)
	c.writePktThreshold = 4

	c.writeQueue.Enqueue(makeWrite(0, 64))

	c.DynamicCompression()

	require.Equal(t, 0, len(c.compressedBlockSizes))
	require.EqualValues(t, 0, c.stats.TotalCompressionTimes)
}

func TestDynamicCompressionPopulatesPerBlockSizes(t *testing.T) {
	c, _, _, _ := newTestComp(t)
	c.writePktThreshold = 4
	c.writeQueue = packetqueue.New[*Packet](4)

	for i := 0; i < 4; i++ {
		pkt := makeWrite(uint64(i*64), 64)
		for j := range pkt.payload {
			pkt.payload[j] = 0xCD
		}
		c.writeQueue.Enqueue(pkt)
	}

	c.DynamicCompression()

	require.EqualValues(t, 1, c.stats.TotalCompressionTimes)
	require.NotEmpty(t, c.cmpBlockSizes)
}
