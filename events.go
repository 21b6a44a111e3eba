package cxlmemctrl

import "github.com/sarchlab/akita/v3/sim"

// requestEvent drives one step of the read/write bus-turn state machine.
type requestEvent struct {
	*sim.EventBase
}

func newRequestEvent(t sim.VTimeInSec, handler sim.Handler) *requestEvent {
	return &requestEvent{sim.NewEventBase(t, handler)}
}

// responseEvent drains one entry off respQueue.
type responseEvent struct {
	*sim.EventBase
}

func newResponseEvent(t sim.VTimeInSec, handler sim.Handler) *responseEvent {
	return &responseEvent{sim.NewEventBase(t, handler)}
}

// deliverEvent carries a single packet on its way back to the CPU port.
type deliverEvent struct {
	*sim.EventBase
	pkt *Packet
}

func newDeliverEvent(
	t sim.VTimeInSec, handler sim.Handler, pkt *Packet,
) *deliverEvent {
	return &deliverEvent{sim.NewEventBase(t, handler), pkt}
}
