package cxlmemctrl

import "github.com/sarchlab/akita/v3/sim"

// recordAdmission stamps the arrival time of a packet that was just
// admitted into one of the controller's buffers, keyed by the packet's
// tracing id so latency can be closed out later regardless of which
// queue the packet passes through on its way back out.
func (c *Comp) recordAdmission(now sim.VTimeInSec, id string) {
	if c.packetLatency == nil {
		c.packetLatency = make(map[string]sim.VTimeInSec)
	}
	c.packetLatency[id] = now
}

// closeLatency looks up the admission time recorded for id, removes the
// entry, records the resulting latency into the latency histograms, and
// returns the latency in seconds. It returns 0 if no admission time was
// recorded for id.
func (c *Comp) closeLatency(now sim.VTimeInSec, id string, isRead bool) float64 {
	start, ok := c.packetLatency[id]
	if !ok {
		return 0
	}
	delete(c.packetLatency, id)

	latency := float64(now - start)
	c.stats.recordLatency(latency, isRead)

	return latency
}
