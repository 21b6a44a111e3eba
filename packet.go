package cxlmemctrl

import "github.com/sarchlab/akita/v3/sim"

// Direction distinguishes a read packet from a write packet.
type Direction int

const (
	DirRead Direction = iota
	DirWrite
)

// CachelineSize is the unit of data transferred between the CPU and
// memory.
const CachelineSize = 64

// Packet is the request/response object the controller operates on. The
// host owns its lifetime except for the copies the write path clones and
// the synthetic big reads the compression path fabricates.
//
// Packet embeds sim.MsgMeta purely so it satisfies sim.Msg and can be
// handed to the tracing package the way any other akita message is; it
// never travels through an akita sim.Port.
type Packet struct {
	sim.MsgMeta

	addr          uint64
	size          uint64
	dir           Direction
	payload       []byte
	requestorID   string
	isCacheResp   bool
	needsResponse bool
}

// Meta returns the packet's message metadata.
func (p *Packet) Meta() *sim.MsgMeta {
	return &p.MsgMeta
}

// Addr returns the packet's address.
func (p *Packet) Addr() uint64 { return p.addr }

// Size returns the packet's byte size.
func (p *Packet) Size() uint64 { return p.size }

// Direction returns whether the packet is a read or a write.
func (p *Packet) Direction() Direction { return p.dir }

// Payload returns the packet's data buffer.
func (p *Packet) Payload() []byte { return p.payload }

// RequestorID returns the id of the packet's originating requestor.
func (p *Packet) RequestorID() string { return p.requestorID }

// IsCacheResp reports whether this packet is a cache-to-cache response,
// which the controller never accepts for admission.
func (p *Packet) IsCacheResp() bool { return p.isCacheResp }

// NeedsResponse reports whether the CPU side expects a response for this
// packet.
func (p *Packet) NeedsResponse() bool { return p.needsResponse }

// Clone returns a fresh copy of p with its own payload buffer and a new
// id, satisfying sim.Msg's Clone requirement.
func (p *Packet) Clone() sim.Msg {
	return p.clonePacket()
}

// clonePacket is the typed counterpart of Clone, used internally wherever
// a *Packet is needed rather than the sim.Msg interface, e.g. write
// admission cloning an incoming write before buffering it.
func (p *Packet) clonePacket() *Packet {
	c := *p
	c.ID = sim.GetIDGenerator().Generate()
	c.payload = make([]byte, len(p.payload))
	copy(c.payload, p.payload)
	return &c
}

// PacketBuilder builds Packets with a fluent With* chain, the same pattern
// the request/response builders in this codebase's ancestry use.
type PacketBuilder struct {
	addr          uint64
	size          uint64
	dir           Direction
	payload       []byte
	requestorID   string
	isCacheResp   bool
	needsResponse bool
}

// WithAddr sets the address of the packet to build.
func (b PacketBuilder) WithAddr(addr uint64) PacketBuilder {
	b.addr = addr
	return b
}

// WithSize sets the byte size of the packet to build.
func (b PacketBuilder) WithSize(size uint64) PacketBuilder {
	b.size = size
	return b
}

// WithDirection sets the direction of the packet to build.
func (b PacketBuilder) WithDirection(dir Direction) PacketBuilder {
	b.dir = dir
	return b
}

// WithPayload sets the payload of the packet to build.
func (b PacketBuilder) WithPayload(payload []byte) PacketBuilder {
	b.payload = payload
	return b
}

// WithRequestorID sets the requestor id of the packet to build.
func (b PacketBuilder) WithRequestorID(id string) PacketBuilder {
	b.requestorID = id
	return b
}

// WithCacheResp marks the packet to build as a cache-to-cache response.
func (b PacketBuilder) WithCacheResp(v bool) PacketBuilder {
	b.isCacheResp = v
	return b
}

// WithNeedsResponse sets whether the packet to build expects a response.
func (b PacketBuilder) WithNeedsResponse(v bool) PacketBuilder {
	b.needsResponse = v
	return b
}

// Build creates a new Packet.
func (b PacketBuilder) Build() *Packet {
	p := &Packet{
		addr:          b.addr,
		size:          b.size,
		dir:           b.dir,
		requestorID:   b.requestorID,
		isCacheResp:   b.isCacheResp,
		needsResponse: b.needsResponse,
	}
	p.ID = sim.GetIDGenerator().Generate()

	p.payload = b.payload
	if p.payload == nil {
		p.payload = make([]byte, b.size)
	}

	return p
}
