package cxlmemctrl

// testCPU is a CPUPort double that records every response handed to it
// and can be toggled to reject the next delivery, exercising the
// respBlocked/RecvRespRetry handshake.
type testCPU struct {
	connected bool
	accept    bool
	responses []*Packet
	retries   int
}

func newTestCPU() *testCPU {
	return &testCPU{connected: true, accept: true}
}

func (c *testCPU) SendTimingResp(pkt *Packet) bool {
	if !c.accept {
		return false
	}
	c.responses = append(c.responses, pkt)
	return true
}

func (c *testCPU) SendRetryReq() { c.retries++ }

func (c *testCPU) SendRangeChange() {}

func (c *testCPU) IsConnected() bool { return c.connected }

// testMem is a MemPort double that records every request handed to it
// and can be toggled to reject the next send.
type testMem struct {
	connected bool
	accept    bool
	requests  []*Packet
	ranges    []AddrRange
	retries   int
}

func newTestMem() *testMem {
	return &testMem{
		connected: true,
		accept:    true,
		ranges:    []AddrRange{{Base: 0, Limit: 1 << 40}},
	}
}

func (m *testMem) SendTimingReq(pkt *Packet) bool {
	if !m.accept {
		return false
	}
	m.requests = append(m.requests, pkt)
	return true
}

func (m *testMem) SendRetryResp() { m.retries++ }

func (m *testMem) GetAddrRanges() []AddrRange { return m.ranges }

func (m *testMem) RecvFunctional(pkt *Packet) {}

func (m *testMem) IsConnected() bool { return m.connected }
