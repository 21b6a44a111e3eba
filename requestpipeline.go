package cxlmemctrl

import "github.com/sarchlab/akita/v3/sim"

// processRequestEvent runs one step of the bus-turn state machine: pick a
// direction to serve, try to advance it, and reschedule itself if there
// is more work and nothing is currently stalled on a retry.
func (c *Comp) processRequestEvent(now sim.VTimeInSec) error {
	if c.resendReq {
		return nil
	}

	if c.draining && c.isFullyDrained() {
		c.signalDrainDone()
		return nil
	}

	c.selectNextState()

	switch c.rwState {
	case stateRead:
		c.stepRead(now)
	case stateWrite:
		c.stepWrite(now)
	}

	c.afterRequestStep(now)

	return nil
}

// selectNextState decides which direction the request pipeline should
// serve next. It keeps draining the current direction until that queue
// runs dry, then flips to whichever nextRWState was requested, falling
// back to whichever queue actually has work.
func (c *Comp) selectNextState() {
	switch c.rwState {
	case stateRead:
		if !c.readQueue.IsEmpty() {
			return
		}
	case stateWrite:
		if !c.writeQueue.IsEmpty() {
			return
		}
	}

	if c.nextRWState != stateStart {
		c.rwState = c.nextRWState
		c.nextRWState = stateStart
		return
	}

	switch {
	case !c.readQueue.IsEmpty():
		c.rwState = stateRead
	case !c.writeQueue.IsEmpty():
		c.rwState = stateWrite
	default:
		c.rwState = stateStart
	}
}

// stepRead pops the head of the read queue and issues it downstream
// verbatim. Whether that head entry is the CPU's original read or a
// synthetic amplified read built by handleReadRequest at admission time
// was already decided before it ever reached this queue.
func (c *Comp) stepRead(now sim.VTimeInSec) {
	pkt, ok := c.readQueue.Peek()
	if !ok {
		c.nextRWState = stateWrite
		return
	}

	if !c.memPort.SendTimingReq(pkt) {
		c.resendReq = true
		c.nextRWState = stateRead
		return
	}

	c.readQueue.Dequeue()
	c.nextRWState = stateWrite
}

// stepWrite drains one write off the head of the write queue. On the
// first step of a fresh batch (cmpedPkt == 0) it runs the dynamic
// compressor once; for the rest of the batch it distributes the
// selected per-block compressed sizes across packetsPerBlock-sized
// runs of addresses, saturating at the last block for any remainder.
func (c *Comp) stepWrite(now sim.VTimeInSec) {
	pkt, ok := c.writeQueue.Peek()
	if !ok {
		c.nextRWState = stateRead
		return
	}

	if c.cmpedPkt == 0 && c.writeQueue.Size() >= c.writePktThreshold {
		c.blockIndex = 0
		c.DynamicCompression()
	}

	if len(c.cmpBlockSizes) > 0 {
		if c.compressedBlockSizes == nil {
			c.compressedBlockSizes = make(map[uint64]uint32)
		}
		c.compressedBlockSizes[pkt.Addr()] = c.cmpBlockSizes[c.blockIndex]
	}

	if !c.memPort.SendTimingReq(pkt) {
		c.resendReq = true
		c.nextRWState = stateWrite
		return
	}

	c.writeQueue.Dequeue()
	c.cmpedPkt++

	if len(c.cmpBlockSizes) > 0 {
		packetsPerBlock := c.writePktThreshold / len(c.cmpBlockSizes)
		if packetsPerBlock < 1 {
			packetsPerBlock = 1
		}
		if c.cmpedPkt%packetsPerBlock == 0 && c.blockIndex < len(c.cmpBlockSizes)-1 {
			c.blockIndex++
		}
	}

	if c.cmpedPkt >= c.writePktThreshold || c.writeQueue.IsEmpty() {
		c.nextRWState = stateStart
		c.cmpedPkt = 0
		c.cmpBlockSizes = nil
		c.blockIndex = 0
	} else {
		c.nextRWState = stateRead
	}
}

// afterRequestStep sends the CPU a retry for each direction it turned
// away that has queue space again, then reschedules the request pipeline
// if there is more work pending and nothing is currently stalled waiting
// on a retry.
func (c *Comp) afterRequestStep(now sim.VTimeInSec) {
	if c.retryRdReq && !c.readQueue.IsFull() {
		c.retryRdReq = false
		c.cpuPort.SendRetryReq()
	}
	if c.retryWrReq && !c.writeQueue.IsFull() {
		c.retryWrReq = false
		c.cpuPort.SendRetryReq()
	}

	if c.resendReq {
		return
	}
	if c.readQueue.IsEmpty() && c.writeQueue.IsEmpty() {
		return
	}
	c.scheduleRequestEvent(c.Freq.NextTick(now))
}

// RecvReqRetry is called by the memory side once it can accept a request
// it previously rejected, unblocking the request pipeline.
func (c *Comp) RecvReqRetry() {
	if !c.resendReq {
		return
	}
	c.resendReq = false

	now := c.Engine.CurrentTime()
	c.scheduleRequestEvent(now)
}
