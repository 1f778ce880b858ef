package udt

import (
	"fmt"
)

// MaxPacketSize is the largest datagram-equivalent payload the
// underlying data channel carries, headers included.
const MaxPacketSize = 1464

// Packet owns a fixed-capacity byte buffer and a cursor. It is either
// synthesized for writing or decoded from received bytes. The packet
// never outlives its buffer; Clone deep-copies it.
type Packet struct {
	buf    []byte
	cursor int
	hdr    Header
	sender SockAddr
}

// NewPacket allocates a packet for writing. capacity is the payload
// capacity in bytes; pass -1 for the maximum the transport allows.
// The header is written immediately and the cursor is positioned at
// the payload boundary. Payload bytes start zeroed.
func NewPacket(capacity int, reliable, partOfMessage bool) *Packet {
	headerSize := HeaderSize(partOfMessage)
	if capacity < 0 {
		capacity = MaxPacketSize - headerSize
	}

	p := &Packet{
		buf: make([]byte, headerSize+capacity),
		hdr: Header{
			Reliable:        reliable,
			IsPartOfMessage: partOfMessage,
		},
	}
	p.hdr.encode(p.buf)
	p.cursor = headerSize
	return p
}

// FromReceivedBytes decodes a data packet received from the transport.
// The buffer is copied; the caller may reuse data. Obfuscated payloads
// (level != 0) are passed through unmodified; this client does not
// reverse the scramble.
func FromReceivedBytes(data []byte, sender SockAddr) (*Packet, error) {
	hdr, err := decodeHeader(data)
	if err != nil {
		return nil, err
	}

	buf := make([]byte, len(data))
	copy(buf, data)

	return &Packet{
		buf:    buf,
		cursor: hdr.Size(),
		hdr:    hdr,
		sender: sender,
	}, nil
}

// Clone returns a deep copy: the clone owns an independent buffer and
// re-derives its payload offset from the source's message-flag state.
func (p *Packet) Clone() *Packet {
	buf := make([]byte, len(p.buf))
	copy(buf, p.buf)
	return &Packet{
		buf:    buf,
		cursor: p.cursor,
		hdr:    p.hdr,
		sender: p.sender,
	}
}

// Accessors.

func (p *Packet) SequenceNumber() SequenceNumber { return p.hdr.SequenceNumber }
func (p *Packet) IsReliable() bool               { return p.hdr.Reliable }
func (p *Packet) IsPartOfMessage() bool          { return p.hdr.IsPartOfMessage }
func (p *Packet) Obfuscation() ObfuscationLevel  { return p.hdr.Obfuscation }
func (p *Packet) MessageNumber() uint32          { return p.hdr.MessageNumber }
func (p *Packet) Position() PacketPosition       { return p.hdr.Position }
func (p *Packet) MessagePartNumber() uint32      { return p.hdr.MessagePartNumber }
func (p *Packet) Sender() SockAddr               { return p.sender }

// HeaderSize returns the size of this packet's header.
func (p *Packet) HeaderSize() int { return p.hdr.Size() }

// Bytes returns the full wire bytes, header included. The returned
// slice aliases the packet's buffer.
func (p *Packet) Bytes() []byte { return p.buf }

// Size returns the total wire size.
func (p *Packet) Size() int { return len(p.buf) }

// Payload returns the bytes after the header. For a received packet
// this is the full received payload; for a written packet it spans
// the full payload capacity (unwritten bytes are zero).
func (p *Packet) Payload() []byte { return p.buf[p.hdr.Size():] }

// Cursor returns the current write/read cursor offset.
func (p *Packet) Cursor() int { return p.cursor }

// Seek repositions the cursor. Offsets outside the buffer are clamped.
func (p *Packet) Seek(offset int) {
	if offset < 0 {
		offset = 0
	}
	if offset > len(p.buf) {
		offset = len(p.buf)
	}
	p.cursor = offset
}

// Write appends data at the cursor. It fails without writing anything
// when data does not fit in the remaining capacity; payloads are
// never silently truncated.
func (p *Packet) Write(data []byte) (int, error) {
	if p.cursor+len(data) > len(p.buf) {
		return 0, fmt.Errorf("payload of %d bytes exceeds remaining packet capacity %d", len(data), len(p.buf)-p.cursor)
	}
	copy(p.buf[p.cursor:], data)
	p.cursor += len(data)
	return len(data), nil
}

// Read copies up to len(out) bytes from the cursor and advances it.
func (p *Packet) Read(out []byte) int {
	n := copy(out, p.buf[p.cursor:])
	p.cursor += n
	return n
}

// WriteSequenceNumber rewrites the header of a finalized packet with a
// new sequence number. The payload cursor is saved, the header words
// are re-serialized from offset 0, and the cursor is restored.
func (p *Packet) WriteSequenceNumber(sn SequenceNumber) {
	p.hdr.SequenceNumber = sn % SequenceNumberModulus
	p.rewriteHeader()
}

// WriteMessageNumber rewrites the message sub-header in place. The
// packet must have been created part-of-message.
func (p *Packet) WriteMessageNumber(messageNumber uint32, position PacketPosition, partNumber uint32) {
	if !p.hdr.IsPartOfMessage {
		return
	}
	p.hdr.MessageNumber = messageNumber & messageNumberMask
	p.hdr.Position = position
	p.hdr.MessagePartNumber = partNumber
	p.rewriteHeader()
}

func (p *Packet) rewriteHeader() {
	saved := p.cursor
	p.cursor = 0
	p.hdr.encode(p.buf)
	p.cursor = saved
}
