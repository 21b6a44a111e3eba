package cxlmemctrl

import (
	"testing"

	"github.com/sarchlab/akita/v3/sim"
	"github.com/stretchr/testify/require"

	"github.com/fangyunh/CC-DRAM-Gem5/packetqueue"
)

func newTestComp(t *testing.T) (*Comp, *testCPU, *testMem, sim.Engine) {
	engine := sim.NewSerialEngine()
	cpu := newTestCPU()
	mem := newTestMem()

	c := MakeBuilder().
		WithEngine(engine).
		WithFreq(1 * sim.GHz).
		WithCPUPort(cpu).
		WithMemPort(mem).
		WithReadBufferSize(2).
		WithWriteBufferSize(2).
		WithResponseBufferSize(2).
		WithWritePktThreshold(4).
		WithBlockSize(2048).
		Build("TestMemCtrl")

	return c, cpu, mem, engine
}

func makeWrite(addr, size uint64) *Packet {
	return PacketBuilder{}.
		WithAddr(addr).
		WithSize(size).
		WithDirection(DirWrite).
		WithRequestorID("cpu0").
		WithNeedsResponse(false).
		Build()
}

func makeRead(addr, size uint64) *Packet {
	return PacketBuilder{}.
		WithAddr(addr).
		WithSize(size).
		WithDirection(DirRead).
		WithRequestorID("cpu0").
		WithNeedsResponse(true).
		Build()
}

func TestAdmitWriteCoalesces(t *testing.T) {
	c, cpu, _, engine := newTestComp(t)

	require.True(t, c.RecvTimingReq(makeWrite(100, 64)))
	require.True(t, c.RecvTimingReq(makeWrite(100, 64)))

	require.Equal(t, 1, c.writeQueue.Size())

	engine.Run()
	require.Len(t, cpu.responses, 2)
}

func TestAdmitWriteQueueFullSetsRetry(t *testing.T) {
	c, _, _, _ := newTestComp(t)

	require.True(t, c.RecvTimingReq(makeWrite(100, 64)))
	require.True(t, c.RecvTimingReq(makeWrite(200, 64)))

	ok := c.RecvTimingReq(makeWrite(300, 64))
	require.False(t, ok)
	require.True(t, c.retryWrReq)
	require.EqualValues(t, 1, c.stats.TotalRetryWrReq)
}

func TestRAWForwardingReadHitsPendingWrite(t *testing.T) {
	c, cpu, _, engine := newTestComp(t)

	require.True(t, c.RecvTimingReq(makeWrite(500, 64)))
	require.True(t, c.RecvTimingReq(makeRead(500, 64)))

	engine.Run()

	// The forwarded read is delivered at once; the write's own ack
	// follows after the frontend latency.
	require.Len(t, cpu.responses, 2)
	require.Equal(t, uint64(500), cpu.responses[0].Addr())
}

func TestHandleReadRequestSlidesAcrossRegionBoundary(t *testing.T) {
	c, _, _, _ := newTestComp(t)
	c.blockSize = 2048

	start, end := c.alignCompressedWindow(1536, 1024)

	require.Equal(t, uint64(1024), start)
	require.Equal(t, uint64(2047), end)
	require.Equal(t, start/c.blockSize, end/c.blockSize)
}

func TestHandleReadRequestNoSlideWhenAligned(t *testing.T) {
	c, _, _, _ := newTestComp(t)
	c.blockSize = 2048

	start, end := c.alignCompressedWindow(0, 1024)

	require.Equal(t, uint64(0), start)
	require.Equal(t, uint64(1023), end)
}

func TestHandleReadRequestEnqueuesUncompressedWhenNotCompressed(t *testing.T) {
	c, _, _, _ := newTestComp(t)

	pkt := makeRead(64, 64)
	c.handleReadRequest(pkt)

	require.Equal(t, 1, c.readQueue.Size())
	require.EqualValues(t, 1, c.stats.TotalNonDRAMReadPackets)

	head, ok := c.readQueue.Peek()
	require.True(t, ok)
	require.Same(t, pkt, head)
}

func TestHandleReadRequestAmplifiesWhenCompressed(t *testing.T) {
	c, _, _, _ := newTestComp(t)
	c.blockSize = 2048
	c.compressedBlockSizes[0x80_0040] = 1024

	pkt := makeRead(0x80_0040, 64)
	c.handleReadRequest(pkt)

	require.Equal(t, 1, c.readQueue.Size())
	require.EqualValues(t, 0, c.stats.TotalNonDRAMReadPackets)

	synthetic, ok := c.readQueue.Peek()
	require.True(t, ok)
	require.EqualValues(t, 1024, synthetic.Size())
	require.Equal(t, synthetic.Addr()/c.blockSize, (synthetic.Addr()+synthetic.Size()-1)/c.blockSize)
	require.Same(t, pkt, c.compressedReadMap[synthetic])
}

func TestCompressionSelectedSizeOnHighlyCompressibleData(t *testing.T) {
	c, _, _, _ := newTestComp(t)
	c.writeQueue = packetqueue.New[*Packet](4)

	for i := 0; i < 4; i++ {
		pkt := makeWrite(uint64(i*64), 64)
		for j := range pkt.payload {
			pkt.payload[j] = 0xAB
		}
		c.writeQueue.Enqueue(pkt)
	}

	sizes, ok := c.CompressionSelectedSize(4)
	require.True(t, ok)
	require.NotEmpty(t, sizes)
	for _, s := range sizes {
		require.Greater(t, s, uint32(0))
		require.LessOrEqual(t, s, uint32(granularity4KiB))
	}
}

func TestDrainReportsDrainedWhenEmpty(t *testing.T) {
	c, _, _, engine := newTestComp(t)

	state := c.Drain(engine.CurrentTime())
	require.Equal(t, DrainStateDrained, state)
}

func TestDrainWaitsForPendingWork(t *testing.T) {
	c, _, _, engine := newTestComp(t)

	require.True(t, c.RecvTimingReq(makeRead(64, 64)))

	done := false
	c.drainHandler = func() { done = true }

	state := c.Drain(engine.CurrentTime())
	require.Equal(t, DrainStateDraining, state)

	engine.Run()

	require.True(t, done)
}

func TestResendReqUnblocksOnReqRetry(t *testing.T) {
	c, _, mem, _ := newTestComp(t)

	require.True(t, c.RecvTimingReq(makeWrite(100, 64)))

	mem.accept = false
	require.True(t, c.RecvTimingReq(makeRead(200, 64)))

	c.Engine.Run()
	require.True(t, c.resendReq)

	mem.accept = true
	c.RecvReqRetry()
	c.Engine.Run()

	require.False(t, c.resendReq)
}
