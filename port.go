package cxlmemctrl

// AddrRange describes a half-open range of addresses [Base, Limit).
type AddrRange struct {
	Base  uint64
	Limit uint64
}

// Contains reports whether addr falls inside the range.
func (r AddrRange) Contains(addr uint64) bool {
	return addr >= r.Base && addr < r.Limit
}

// CPUPort is the capability set the controller uses to talk back to the
// CPU-side requestor. It is a capability struct rather than a virtual port
// hierarchy: the controller is handed exactly the callbacks it needs and
// nothing more.
type CPUPort interface {
	// SendTimingResp delivers pkt to the CPU. It returns false if the CPU
	// side cannot accept it right now.
	SendTimingResp(pkt *Packet) bool

	// SendRetryReq notifies the CPU that a previously rejected request can
	// now be resubmitted.
	SendRetryReq()

	// SendRangeChange propagates a downstream address-map change upward.
	SendRangeChange()

	// IsConnected reports whether the CPU side has been wired up.
	IsConnected() bool
}

// MemPort is the capability set the controller uses to talk to the
// downstream memory timing model.
type MemPort interface {
	// SendTimingReq issues pkt downstream. It returns false if the memory
	// side cannot accept it right now.
	SendTimingReq(pkt *Packet) bool

	// SendRetryResp notifies the memory side that a previously rejected
	// response can now be resubmitted.
	SendRetryResp()

	// GetAddrRanges returns the address ranges the memory side serves.
	GetAddrRanges() []AddrRange

	// RecvFunctional performs an untimed, atomic access; used for
	// functional inspection only, never for timing.
	RecvFunctional(pkt *Packet)

	// IsConnected reports whether the memory side has been wired up.
	IsConnected() bool
}
