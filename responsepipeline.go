package cxlmemctrl

import (
	"log"

	"github.com/sarchlab/akita/v3/sim"
	"github.com/sarchlab/akita/v3/tracing"
)

// RecvTimingResp admits a response arriving from the memory side into
// respQueue. Every read response is subject to the same backpressure
// check regardless of whether it is an amplified read or an ordinary
// read; a write completion is consumed at once and never queued.
func (c *Comp) RecvTimingResp(pkt *Packet) bool {
	// Writes were already acked to the CPU on admission; their downstream
	// completion only closes out write-latency bookkeeping and is never
	// forwarded upstream.
	if pkt.Direction() == DirWrite {
		c.closeLatency(c.Engine.CurrentTime(), pkt.Meta().ID, false)
		return true
	}

	if c.respQueue.IsFull() {
		c.resendMemResp = true
		c.stats.TotalResendMemResp++
		return false
	}

	c.respQueue.Enqueue(pkt)

	now := c.Engine.CurrentTime()
	c.scheduleResponseEvent(c.Freq.NCyclesLater(c.delay, now))

	return true
}

// isAmplifiedRead reports whether pkt is the widened read the request
// pipeline fabricated to satisfy block alignment, rather than the
// original CPU-issued read.
func (c *Comp) isAmplifiedRead(pkt *Packet) bool {
	_, ok := c.compressedReadMap[pkt]
	return ok
}

// extractAmplifiedRead trims an amplified read's payload back down to
// the slice the original CPU request actually asked for, and returns the
// original request packet. An amplified read that does not cover the
// original's bytes is an invariant violation and panics.
func (c *Comp) extractAmplifiedRead(pkt *Packet) *Packet {
	orig, ok := c.compressedReadMap[pkt]
	if !ok {
		return pkt
	}
	delete(c.compressedReadMap, pkt)

	offset := orig.Addr() - pkt.Addr()
	payload := pkt.Payload()

	if orig.Addr() < pkt.Addr() || offset+orig.Size() > uint64(len(payload)) {
		log.Panicf("%s: amplified read at %#x (%d bytes) does not cover read at %#x (%d bytes)",
			c.name, pkt.Addr(), len(payload), orig.Addr(), orig.Size())
	}
	orig.payload = append([]byte(nil), payload[offset:offset+orig.Size()]...)

	return orig
}

// scheduleResponseEvent schedules a responseEvent if one is not already
// pending, mirroring scheduleRequestEvent's dedup guard.
func (c *Comp) scheduleResponseEvent(now sim.VTimeInSec) {
	if c.respEventScheduled {
		return
	}
	c.respEventScheduled = true
	c.Engine.Schedule(newResponseEvent(now, c))
}

// processResponseEvent drains one entry off respQueue, running it
// through access-and-respond, sends the memory side a retry if it had
// been turned away for lack of queue space, and reschedules itself if
// more responses remain buffered.
func (c *Comp) processResponseEvent(now sim.VTimeInSec) error {
	if c.respBlocked {
		return nil
	}

	pkt, err := c.respQueue.Dequeue()
	if err != nil {
		if c.draining && c.isFullyDrained() {
			c.signalDrainDone()
		}
		return nil
	}

	if c.resendMemResp {
		c.resendMemResp = false
		c.memPort.SendRetryResp()
	}

	c.accessAndRespond(pkt, now)

	if !c.respQueue.IsEmpty() {
		c.scheduleResponseEvent(c.Freq.NextTick(now))
	}

	return nil
}

// accessAndRespond finishes off one response: if it is an amplified
// read it is trimmed and attributed to DRAM-read latency, the copy back
// into the original packet is charged to TotalReadCopyLatency, and the
// resulting packet is scheduled for delivery back to the CPU.
func (c *Comp) accessAndRespond(pkt *Packet, now sim.VTimeInSec) {
	outgoing := pkt

	if c.isAmplifiedRead(pkt) {
		outgoing = c.extractAmplifiedRead(pkt)

		if _, compressed := c.compressedBlockSizes[outgoing.Addr()]; compressed {
			c.stats.TotalDRAMReadPackets++
			c.stats.TotalDRAMReadLatency += float64(c.staticBackendLatency)
			c.stats.TotalDRAMReadBytes += int64(outgoing.Size())
			c.stats.TotalReadCopyLatency += float64(c.delay)
		}
	}

	tracing.TraceReqComplete(outgoing, c)

	c.scheduleDelivery(outgoing, now, c.staticFrontendLatency+c.staticBackendLatency)
}

// scheduleDelivery arms a deliverEvent for pkt, ticks cycles after now,
// the shared scheduling step behind every CPU-facing completion: read
// responses, write acks, and amplified-read extractions alike.
func (c *Comp) scheduleDelivery(pkt *Packet, now sim.VTimeInSec, ticks int) {
	deliverAt := c.Freq.NCyclesLater(ticks, now)
	c.Engine.Schedule(newDeliverEvent(deliverAt, c, pkt))
}

// handleDeliverEvent sends a finished packet back to the CPU side. If
// the CPU side cannot accept it right now the packet is parked on
// blockedResponses until RecvRespRetry unblocks it.
func (c *Comp) handleDeliverEvent(e *deliverEvent) error {
	pkt := e.pkt

	if !c.cpuPort.SendTimingResp(pkt) {
		c.respBlocked = true
		c.blockedResponses = append(c.blockedResponses, pkt)
		return nil
	}

	now := e.Time()
	isRead := pkt.Direction() == DirRead
	c.closeLatency(now, pkt.Meta().ID, isRead)

	tracing.TraceReqFinalize(pkt, c)

	return nil
}

// RecvRespRetry is called by the CPU side once it can accept a response
// it previously rejected, flushing any packets parked on
// blockedResponses.
func (c *Comp) RecvRespRetry() {
	if !c.respBlocked {
		return
	}

	for len(c.blockedResponses) > 0 {
		pkt := c.blockedResponses[0]
		if !c.cpuPort.SendTimingResp(pkt) {
			return
		}
		c.blockedResponses = c.blockedResponses[1:]

		now := c.Engine.CurrentTime()
		isRead := pkt.Direction() == DirRead
		c.closeLatency(now, pkt.Meta().ID, isRead)
		tracing.TraceReqFinalize(pkt, c)
	}

	c.respBlocked = false

	if c.resendMemResp {
		c.resendMemResp = false
		c.memPort.SendRetryResp()
	}
}
