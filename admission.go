package cxlmemctrl

import (
	"log"

	"github.com/sarchlab/akita/v3/sim"
	"github.com/sarchlab/akita/v3/tracing"
)

// matchAddrSize returns a predicate matching packets with the same
// address and size as pkt, the equality write-coalescing and RAW
// forwarding both scan the write queue for.
func matchAddrSize(pkt *Packet) func(*Packet) bool {
	return func(q *Packet) bool {
		return q.Addr() == pkt.Addr() && q.Size() == pkt.Size()
	}
}

// RecvTimingReq admits an incoming request from the CPU side: a read that
// a pending write can forward is answered at once; otherwise reject
// outright if the relevant buffer is full, else buffer the packet and
// kick the request pipeline. A cache-responding packet is an invariant
// violation and panics.
func (c *Comp) RecvTimingReq(pkt *Packet) bool {
	if pkt.IsCacheResp() {
		log.Panicf("%s: cache-responding packet %s sent for admission", c.name, pkt.Meta().ID)
	}

	now := c.Engine.CurrentTime()
	tracing.TraceReqReceive(pkt, c)

	var ok bool
	if pkt.Direction() == DirWrite {
		ok = c.admitWrite(pkt, now)
	} else {
		ok = c.admitRead(pkt, now)
	}

	if !ok {
		return false
	}

	if c.hasPrevArrival {
		c.stats.TotalInterArrivalGap += float64(now - c.prevArrival)
	}
	c.hasPrevArrival = true
	c.prevArrival = now

	c.scheduleRequestEvent(now)

	return true
}

// admitWrite buffers an incoming write, coalescing it into an
// address-and-size match already pending in the write queue instead of
// enqueuing a duplicate entry. Every admitted write is acknowledged to
// the CPU immediately, regardless of which branch admitted it.
func (c *Comp) admitWrite(pkt *Packet, now sim.VTimeInSec) bool {
	if c.writeQueue.IsFull() {
		c.retryWrReq = true
		c.stats.TotalRetryWrReq++
		return false
	}

	if i := c.writeQueue.FindIndex(matchAddrSize(pkt)); i >= 0 {
		c.writeQueue.Update(i, pkt.clonePacket())
		// The coalesced packet's latency is absorbed into the pending
		// write's own entry; it never gets one of its own to close.
		c.ackWrite(pkt, now)
		return true
	}

	if err := c.writeQueue.Enqueue(pkt.clonePacket()); err != nil {
		c.retryWrReq = true
		c.stats.TotalRetryWrReq++
		return false
	}

	c.recordAdmission(now, pkt.Meta().ID)
	c.stats.TotalWritePackets++
	c.stats.TotalWriteBytes += int64(pkt.Size())

	c.ackWrite(pkt, now)

	return true
}

// ackWrite schedules the CPU-facing acknowledgment for a write that was
// just buffered or coalesced. Writes are acked on admission and never
// wait for the downstream issue to complete.
func (c *Comp) ackWrite(pkt *Packet, now sim.VTimeInSec) {
	tracing.TraceReqComplete(pkt, c)
	c.scheduleDelivery(pkt, now, c.staticFrontendLatency)
}

// admitRead buffers an incoming read, first checking whether a pending
// write in the write queue can satisfy it via RAW forwarding, else
// handing it to handleReadRequest to decide whether it needs to be
// amplified into a compressed-block-sized read.
func (c *Comp) admitRead(pkt *Packet, now sim.VTimeInSec) bool {
	if fwd := c.findInWriteQueue(pkt); fwd != nil {
		resp := fwd.clonePacket()
		resp.ID = pkt.Meta().ID
		resp.dir = DirRead
		resp.needsResponse = false
		c.recordAdmission(now, pkt.Meta().ID)
		c.stats.TotalReadPackets++
		c.stats.TotalReadBytes += int64(pkt.Size())
		c.deliverNow(resp, now)
		return true
	}

	if c.readQueue.IsFull() {
		c.retryRdReq = true
		c.stats.TotalRetryRdReq++
		return false
	}

	c.recordAdmission(now, pkt.Meta().ID)
	c.stats.TotalReadPackets++
	c.stats.TotalReadBytes += int64(pkt.Size())

	c.handleReadRequest(pkt)

	return true
}

// findInWriteQueue returns the pending write, if any, whose address and
// size exactly match pkt, for RAW forwarding. Only full-cacheline reads
// forward, and the match is exact-address only; a read covered by only
// part of a pending write does not forward.
func (c *Comp) findInWriteQueue(pkt *Packet) *Packet {
	if pkt.Size() != CachelineSize {
		return nil
	}
	i := c.writeQueue.FindIndex(matchAddrSize(pkt))
	if i < 0 {
		return nil
	}
	w, err := c.writeQueue.Index(i)
	if err != nil {
		return nil
	}
	return w
}

// deliverNow schedules an immediate deliverEvent for a packet that was
// satisfied without going through the bus-turn state machine at all,
// e.g. a RAW-forwarded read.
func (c *Comp) deliverNow(pkt *Packet, now sim.VTimeInSec) {
	c.Engine.Schedule(newDeliverEvent(now, c, pkt))
}
