// Command cxlmemctrl-demo drives a standalone CXL memory controller
// through a small synthetic trace and prints "done" once the trace has
// run; it does not print the controller's statistics. It plays the same
// role akita's own cmd/root.go plays as a thin cobra front end over
// library code.
package main

import (
	"fmt"
	"math/rand"
	"os"

	"github.com/sarchlab/akita/v3/sim"
	"github.com/spf13/cobra"

	cxlmemctrl "github.com/fangyunh/CC-DRAM-Gem5"
)

var (
	numRequests int
	writeRatio  float64
	seed        int64
)

var rootCmd = &cobra.Command{
	Use:   "cxlmemctrl-demo",
	Short: "Run a synthetic trace through a CXL memory controller",
	Long: "cxlmemctrl-demo builds a cxlmemctrl.Comp with fake CPU and " +
		"memory ports, drives it with a synthetic read/write trace, " +
		"and prints \"done\" when the trace has run.",
	RunE: run,
}

func init() {
	rootCmd.Flags().IntVar(&numRequests, "requests", 1000,
		"number of requests to generate")
	rootCmd.Flags().Float64Var(&writeRatio, "write-ratio", 0.3,
		"fraction of generated requests that are writes")
	rootCmd.Flags().Int64Var(&seed, "seed", 1,
		"random seed for the synthetic trace")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func main() {
	Execute()
}

func run(cmd *cobra.Command, args []string) error {
	engine := sim.NewSerialEngine()

	cpu := newFakeCPU()
	mem := newFakeMemory()

	ctrl := cxlmemctrl.MakeBuilder().
		WithEngine(engine).
		WithFreq(1 * sim.GHz).
		WithCPUPort(cpu).
		WithMemPort(mem).
		Build("MemCtrl")

	cpu.ctrl = ctrl
	mem.ctrl = ctrl

	rng := rand.New(rand.NewSource(seed))
	for i := 0; i < numRequests; i++ {
		dir := cxlmemctrl.DirRead
		if rng.Float64() < writeRatio {
			dir = cxlmemctrl.DirWrite
		}

		pkt := cxlmemctrl.PacketBuilder{}.
			WithAddr(uint64(rng.Intn(1 << 20))).
			WithSize(64).
			WithDirection(dir).
			WithRequestorID("cpu0").
			WithNeedsResponse(true).
			Build()

		if !ctrl.RecvTimingReq(pkt) {
			cpu.pending = append(cpu.pending, pkt)
		}
	}

	engine.Run()

	fmt.Println("done")
	return nil
}

// fakeCPU is a minimal CPUPort double that counts how many responses it
// has received and resubmits rejected requests when told to retry.
type fakeCPU struct {
	ctrl     *cxlmemctrl.Comp
	pending  []*cxlmemctrl.Packet
	received int
}

func newFakeCPU() *fakeCPU { return &fakeCPU{} }

func (c *fakeCPU) SendTimingResp(pkt *cxlmemctrl.Packet) bool {
	c.received++
	return true
}

func (c *fakeCPU) SendRetryReq() {
	for len(c.pending) > 0 {
		pkt := c.pending[0]
		if !c.ctrl.RecvTimingReq(pkt) {
			return
		}
		c.pending = c.pending[1:]
	}
}

func (c *fakeCPU) SendRangeChange() {}

func (c *fakeCPU) IsConnected() bool { return true }

// fakeMemory is a minimal MemPort double that immediately turns every
// request into a response on the same engine tick.
type fakeMemory struct {
	ctrl   *cxlmemctrl.Comp
	ranges []cxlmemctrl.AddrRange
}

func newFakeMemory() *fakeMemory {
	return &fakeMemory{
		ranges: []cxlmemctrl.AddrRange{{Base: 0, Limit: 1 << 32}},
	}
}

func (m *fakeMemory) SendTimingReq(pkt *cxlmemctrl.Packet) bool {
	return m.ctrl.RecvTimingResp(pkt)
}

func (m *fakeMemory) SendRetryResp() {}

func (m *fakeMemory) GetAddrRanges() []cxlmemctrl.AddrRange { return m.ranges }

func (m *fakeMemory) RecvFunctional(pkt *cxlmemctrl.Packet) {}

func (m *fakeMemory) IsConnected() bool { return true }
