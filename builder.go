package cxlmemctrl

import (
	"github.com/sarchlab/akita/v3/sim"

	"github.com/fangyunh/CC-DRAM-Gem5/packetqueue"
)

// Builder configures and builds a Comp, the same fluent With* builder
// pattern this codebase's ancestry uses for its own components.
type Builder struct {
	engine sim.Engine
	freq   sim.Freq

	cpuPort CPUPort
	memPort MemPort

	readQueueSize  int
	writeQueueSize int
	respQueueSize  int

	writePktThreshold int
	blockSize         uint64

	staticFrontendLatency int
	staticBackendLatency  int
	delay                 int

	statsBackend StatsBackend
	statsDSN     string

	drainHandler func()
}

// MakeBuilder returns a Builder populated with the controller's default
// configuration.
func MakeBuilder() Builder {
	return Builder{
		freq: 1 * sim.GHz,

		readQueueSize:  8,
		writeQueueSize: 8,
		respQueueSize:  8,

		writePktThreshold: 64,
		blockSize:         2048,

		staticFrontendLatency: 20,
		staticBackendLatency:  100,
		delay:                 5,

		statsBackend: StatsBackendNone,
	}
}

// WithEngine sets the simulation engine the controller schedules events
// on.
func (b Builder) WithEngine(engine sim.Engine) Builder {
	b.engine = engine
	return b
}

// WithFreq sets the controller's operating frequency.
func (b Builder) WithFreq(freq sim.Freq) Builder {
	b.freq = freq
	return b
}

// WithCPUPort sets the capability set used to talk to the CPU side.
func (b Builder) WithCPUPort(port CPUPort) Builder {
	b.cpuPort = port
	return b
}

// WithMemPort sets the capability set used to talk to the memory side.
func (b Builder) WithMemPort(port MemPort) Builder {
	b.memPort = port
	return b
}

// WithReadBufferSize sets the read queue's capacity.
func (b Builder) WithReadBufferSize(size int) Builder {
	b.readQueueSize = size
	return b
}

// WithWriteBufferSize sets the write queue's capacity.
func (b Builder) WithWriteBufferSize(size int) Builder {
	b.writeQueueSize = size
	return b
}

// WithResponseBufferSize sets the response queue's capacity.
func (b Builder) WithResponseBufferSize(size int) Builder {
	b.respQueueSize = size
	return b
}

// WithWritePktThreshold sets how many pending writes must accumulate
// before the dynamic compressor evaluates a batch.
func (b Builder) WithWritePktThreshold(n int) Builder {
	b.writePktThreshold = n
	return b
}

// WithBlockSize sets the DRAM interleave region size reads are aligned
// against.
func (b Builder) WithBlockSize(size uint64) Builder {
	b.blockSize = size
	return b
}

// WithStaticFrontendLatency sets the fixed front-end latency, in cycles,
// charged to every admitted packet.
func (b Builder) WithStaticFrontendLatency(cycles int) Builder {
	b.staticFrontendLatency = cycles
	return b
}

// WithStaticBackendLatency sets the fixed back-end latency, in cycles,
// charged to every read response that comes back from the memory side.
func (b Builder) WithStaticBackendLatency(cycles int) Builder {
	b.staticBackendLatency = cycles
	return b
}

// WithDelay sets the fixed delay, in cycles, between a read response
// arriving from the memory side and the controller processing it for
// delivery to the CPU port.
func (b Builder) WithDelay(cycles int) Builder {
	b.delay = cycles
	return b
}

// WithStatsBackend configures where the stats snapshot taken each time a
// drain completes is persisted, and the DSN (file path or connection string) used to reach
// it.
func (b Builder) WithStatsBackend(backend StatsBackend, dsn string) Builder {
	b.statsBackend = backend
	b.statsDSN = dsn
	return b
}

// WithDrainHandler sets the callback invoked once a Drain call
// completes asynchronously.
func (b Builder) WithDrainHandler(handler func()) Builder {
	b.drainHandler = handler
	return b
}

// Build constructs the configured Comp.
func (b Builder) Build(name string) *Comp {
	c := &Comp{
		name: name,

		Engine: b.engine,
		Freq:   b.freq,

		cpuPort: b.cpuPort,
		memPort: b.memPort,

		readQueue:  packetqueue.New[*Packet](b.readQueueSize),
		writeQueue: packetqueue.New[*Packet](b.writeQueueSize),
		respQueue:  packetqueue.New[*Packet](b.respQueueSize),

		packetLatency:        make(map[string]sim.VTimeInSec),
		compressedReadMap:    make(map[*Packet]*Packet),
		compressedBlockSizes: make(map[uint64]uint32),

		writePktThreshold:     b.writePktThreshold,
		blockSize:             b.blockSize,
		staticFrontendLatency: b.staticFrontendLatency,
		staticBackendLatency:  b.staticBackendLatency,
		delay:                 b.delay,

		stats: newStats(),

		drainHandler: b.drainHandler,
	}

	c.statsSink = newStatsSink(b.statsBackend, b.statsDSN)

	c.checkPortsConnected()

	return c
}
