package cxlmemctrl

import (
	"log"
	"reflect"

	"github.com/sarchlab/akita/v3/sim"

	"github.com/fangyunh/CC-DRAM-Gem5/packetqueue"
)

// rwState is the bus-turn direction the request pipeline is currently
// draining, or about to switch to.
type rwState int

const (
	stateStart rwState = iota
	stateRead
	stateWrite
)

// Comp is the CXL-attached memory controller. It is not driven by a
// per-cycle Tick: every state transition runs off the
// requestEvent/responseEvent/deliverEvent the admission and drain paths
// schedule, matching the event-scheduled model this component's domain
// requires.
type Comp struct {
	sim.HookableBase

	name string

	Engine sim.Engine
	Freq   sim.Freq

	cpuPort CPUPort
	memPort MemPort

	readQueue  *packetqueue.Queue[*Packet]
	writeQueue *packetqueue.Queue[*Packet]
	respQueue  *packetqueue.Queue[*Packet]

	packetLatency        map[string]sim.VTimeInSec
	compressedReadMap    map[*Packet]*Packet
	compressedBlockSizes map[uint64]uint32
	cmpBlockSizes        []uint32

	rwState     rwState
	nextRWState rwState

	cmpedPkt   int
	blockIndex int

	prevArrival    sim.VTimeInSec
	hasPrevArrival bool

	retryRdReq    bool
	retryWrReq    bool
	resendReq     bool
	resendMemResp bool
	respBlocked   bool

	blockedResponses []*Packet

	reqEventScheduled  bool
	respEventScheduled bool

	draining bool

	writePktThreshold     int
	blockSize             uint64
	staticFrontendLatency int
	staticBackendLatency  int
	delay                 int

	stats     Stats
	statsSink *statsSink

	drainHandler func()
}

// Name returns the controller's name, as required by tracing.NamedHookable.
func (c *Comp) Name() string { return c.name }

// NumHooks reports how many hooks are registered on this controller.
func (c *Comp) NumHooks() int { return len(c.Hooks()) }

// Handle dispatches the event kinds this controller schedules for itself,
// following a straightforward type switch.
func (c *Comp) Handle(e sim.Event) error {
	switch evt := e.(type) {
	case *requestEvent:
		c.reqEventScheduled = false
		return c.processRequestEvent(evt.Time())
	case *responseEvent:
		c.respEventScheduled = false
		return c.processResponseEvent(evt.Time())
	case *deliverEvent:
		return c.handleDeliverEvent(evt)
	default:
		log.Panicf("%s: cannot handle event of type %s", c.name, reflect.TypeOf(e))
	}
	return nil
}

func (c *Comp) scheduleRequestEvent(now sim.VTimeInSec) {
	if c.reqEventScheduled {
		return
	}
	c.reqEventScheduled = true
	c.Engine.Schedule(newRequestEvent(now, c))
}

func (c *Comp) checkPortsConnected() {
	if c.cpuPort == nil || !c.cpuPort.IsConnected() {
		log.Panicf("%s: CPU-side port is not connected", c.name)
	}
	if c.memPort == nil || !c.memPort.IsConnected() {
		log.Panicf("%s: memory-side port is not connected", c.name)
	}
}

// RecvFunctional forwards an untimed functional access straight to the
// memory side.
func (c *Comp) RecvFunctional(pkt *Packet) {
	c.memPort.RecvFunctional(pkt)
}

// GetAddrRanges reports the address ranges served through this controller.
func (c *Comp) GetAddrRanges() []AddrRange {
	return c.memPort.GetAddrRanges()
}

// RecvRangeChange is called by the memory side when its address map
// changes; the controller propagates the notification to the CPU side.
func (c *Comp) RecvRangeChange() {
	c.cpuPort.SendRangeChange()
}
