package cxlmemctrl

import (
	"github.com/pierrec/lz4/v4"
)

// Compression granularities the write-batch compressor tries, in
// ascending order.
const (
	granularity1KiB = 1024
	granularity2KiB = 2048
	granularity4KiB = 4096

	// promoteThreshold1to2 is the ratio of the 2 KiB batch total to the
	// 1 KiB batch total below which 2 KiB is preferred.
	promoteThreshold1to2 = 0.8
	// promoteThreshold2to4 is the ratio of the 4 KiB batch total to the
	// winning 1/2 KiB batch total below which 4 KiB is preferred.
	promoteThreshold2to4 = 0.5
)

// roundUpToCacheline rounds n up to the nearest multiple of
// CachelineSize, the unit DRAM is actually accessed in.
func roundUpToCacheline(n uint64) uint64 {
	if n%CachelineSize == 0 {
		return n
	}
	return n + (CachelineSize - n%CachelineSize)
}

// alignCompressedWindow computes the DRAM-aligned access window for a
// compressed block of cmpSize bytes starting at addr, sliding the window
// left within its interleave region so the access never straddles a
// blockSize boundary.
func (c *Comp) alignCompressedWindow(addr uint64, cmpSize uint32) (startAddr, endAddr uint64) {
	startAddr = addr
	endAddr = startAddr + uint64(cmpSize) - 1

	if startAddr/c.blockSize != endAddr/c.blockSize {
		slide := (endAddr % c.blockSize) + 1
		startAddr -= slide
		endAddr -= slide
	}

	return startAddr, endAddr
}

// handleReadRequest is the read-admission half of the compression model.
// If addr is not a key in compressedBlockSizes the read targets an
// uncompressed region: enqueue pkt as-is and count a non-DRAM read.
// Otherwise the data lives inside a compressed block and a synthetic
// "big read" covering that block is enqueued in pkt's place, with pkt
// parked in compressedReadMap until the synthetic read's response comes
// back and gets trimmed down to the bytes pkt actually asked for.
//
// compressedBlockSizes entries are never cleared: a later write to the
// same address, or a batch issued uncompressed, leaves the old block size
// in place until a later compressed batch overwrites it, so a read of
// that address still amplifies to the old size.
func (c *Comp) handleReadRequest(pkt *Packet) {
	cmpSize, compressed := c.compressedBlockSizes[pkt.Addr()]
	if !compressed {
		c.readQueue.Enqueue(pkt)
		c.stats.TotalNonDRAMReadPackets++
		c.stats.TotalNonDRAMReadBytes += int64(pkt.Size())
		return
	}

	startAddr, endAddr := c.alignCompressedWindow(pkt.Addr(), cmpSize)

	synthetic := PacketBuilder{}.
		WithAddr(startAddr).
		WithSize(endAddr - startAddr + 1).
		WithDirection(DirRead).
		WithRequestorID(pkt.RequestorID()).
		WithNeedsResponse(true).
		Build()

	if c.compressedReadMap == nil {
		c.compressedReadMap = make(map[*Packet]*Packet)
	}
	c.compressedReadMap[synthetic] = pkt

	c.readQueue.Enqueue(synthetic)
}

// writeBatchSource concatenates the payloads of the first n packets in
// the write queue, the raw bytes the compressor operates on. A non-empty
// source shorter than 4 KiB is padded with zeros up to 4 KiB.
func (c *Comp) writeBatchSource(n int) []byte {
	var buf []byte
	for i := 0; i < n; i++ {
		pkt, err := c.writeQueue.Index(i)
		if err != nil {
			break
		}
		buf = append(buf, pkt.Payload()...)
	}
	if len(buf) > 0 && len(buf) < granularity4KiB {
		buf = append(buf, make([]byte, granularity4KiB-len(buf))...)
	}
	return buf
}

// sumBlockSizes adds up a set of per-block compressed sizes.
func sumBlockSizes(sizes []uint32) uint64 {
	var total uint64
	for _, s := range sizes {
		total += uint64(s)
	}
	return total
}

// LZ4Compression splits src into blocks of granularity bytes and
// compresses each one independently with the real LZ4 block compressor,
// returning the per-block compressed sizes. An empty src returns
// (nil, true). Otherwise it fails the whole granularity — returning
// (nil, false) — if src doesn't even hold one full block, or if any
// block fails to compress or comes back no smaller than its own source
// bytes.
func LZ4Compression(src []byte, granularity int) (sizes []uint32, ok bool) {
	if len(src) == 0 {
		return nil, true
	}

	numBlocks := len(src) / granularity
	if numBlocks == 0 {
		return nil, false
	}

	sizes = make([]uint32, numBlocks)

	var compressor lz4.Compressor
	for i := 0; i < numBlocks; i++ {
		block := src[i*granularity : (i+1)*granularity]
		dst := make([]byte, lz4.CompressBlockBound(len(block)))

		n, err := compressor.CompressBlock(block, dst)
		if err != nil || n == 0 || n >= len(block) {
			return nil, false
		}

		sizes[i] = uint32(n)
	}

	return sizes, true
}

// CompressionSelectedSize tries the three compression granularities
// against the first n pending write packets and picks a winner per the
// 0.8/0.5 cost thresholds, comparing each candidate's aggregate
// compressed size against the granularity it is being weighed against
// rather than against the raw uncompressed length. It returns the
// winning per-block sizes rounded up to the cacheline, or (nil, false)
// if every granularity came back incompressible.
func (c *Comp) CompressionSelectedSize(n int) (sizes []uint32, ok bool) {
	src := c.writeBatchSource(n)
	if len(src) == 0 {
		return nil, false
	}

	sizes1, ok1 := LZ4Compression(src, granularity1KiB)
	sizes2, ok2 := LZ4Compression(src, granularity2KiB)

	var winner []uint32
	switch {
	case ok1 && ok2:
		if float64(sumBlockSizes(sizes2)) <= promoteThreshold1to2*float64(sumBlockSizes(sizes1)) {
			winner = sizes2
		} else {
			winner = sizes1
		}
	case ok2:
		winner = sizes2
	case ok1:
		winner = sizes1
	}

	sizes4, ok4 := LZ4Compression(src, granularity4KiB)
	if ok4 && (winner == nil || float64(sumBlockSizes(sizes4)) <= promoteThreshold2to4*float64(sumBlockSizes(winner))) {
		winner = sizes4
	}

	if winner == nil {
		return nil, false
	}

	rounded := make([]uint32, len(winner))
	for i, s := range winner {
		rounded[i] = uint32(roundUpToCacheline(uint64(s)))
	}

	return rounded, true
}

// DynamicCompression runs once per write batch, on the first step of a
// WRITE turn: it selects a compression granularity for the first
// writePktThreshold pending writes and stashes the result in
// cmpBlockSizes for the write-drain loop to distribute across the
// batch's addresses. An incompressible-at-every-granularity result
// clears cmpBlockSizes, which the write-drain loop reads as "issue this
// batch uncompressed".
func (c *Comp) DynamicCompression() {
	n := c.writeQueue.Size()
	if n < c.writePktThreshold {
		return
	}
	n = c.writePktThreshold

	sizes, ok := c.CompressionSelectedSize(n)
	c.stats.TotalCompressionTimes++

	if !ok {
		c.cmpBlockSizes = nil
		return
	}

	c.cmpBlockSizes = sizes
	for _, s := range sizes {
		c.stats.compressedSizes.add(float64(s))
	}
}
