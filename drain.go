package cxlmemctrl

import "github.com/sarchlab/akita/v3/sim"

// DrainState reports the outcome of a Drain call.
type DrainState int

const (
	// DrainStateDrained means the controller's read, write and response
	// queues are all empty and the caller may proceed immediately.
	DrainStateDrained DrainState = iota
	// DrainStateDraining means the controller still has buffered or
	// in-flight packets; the caller will be notified via drainHandler
	// once they finish draining.
	DrainStateDraining
)

// isFullyDrained reports whether every buffer the controller owns is
// empty, the condition both the request and response pipelines must
// agree on before a pending Drain can complete.
func (c *Comp) isFullyDrained() bool {
	return c.readQueue.IsEmpty() && c.writeQueue.IsEmpty() && c.respQueue.IsEmpty()
}

// Drain reports whether the controller can be drained immediately, and
// otherwise arms it to notify drainHandler once its queues empty out.
func (c *Comp) Drain(now sim.VTimeInSec) DrainState {
	if c.isFullyDrained() {
		return DrainStateDrained
	}

	c.draining = true
	c.scheduleRequestEvent(now)
	c.scheduleResponseEvent(now)

	return DrainStateDraining
}

// signalDrainDone finalizes the average-latency statistics and notifies
// drainHandler, if one was configured, that the controller has finished
// draining.
func (c *Comp) signalDrainDone() {
	c.draining = false
	c.stats.calculateAvgLatency()

	if c.statsSink != nil {
		c.statsSink.record(float64(c.Engine.CurrentTime()), &c.stats)
	}

	if c.drainHandler != nil {
		c.drainHandler()
	}
}
