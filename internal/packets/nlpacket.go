package packets

import (
	"crypto/md5"
	"encoding/binary"
	"fmt"

	"github.com/google/uuid"

	"github.com/namark/vircadia-web-sdk/internal/udt"
)

const (
	typeAndVersionSize = 2
	sourceIDSize       = 2
	hashSize           = md5.Size
)

// LocalHeaderSize returns the size of the typed layer's header for a
// packet type: type and version bytes, plus source ID and hash for
// sourced/verified types.
func LocalHeaderSize(t PacketType) int {
	size := typeAndVersionSize
	if t.Sourced() {
		size += sourceIDSize
	}
	if t.Verified() {
		size += hashSize
	}
	return size
}

// TotalHeaderSize returns the full header size, framing included.
func TotalHeaderSize(t PacketType, partOfMessage bool) int {
	return udt.HeaderSize(partOfMessage) + LocalHeaderSize(t)
}

// NLPacket is a typed packet. It shares the base Packet's buffer and
// adds the protocol type, version and, for sourced types, the sender's
// session-local ID and integrity hash.
type NLPacket struct {
	*udt.Packet

	packetType PacketType
	version    uint8
	sourceID   uint16
	hash       [hashSize]byte
}

// NewNLPacket creates a typed packet for writing. capacity is payload
// capacity; -1 uses the maximum remaining after the full header. The
// type and version bytes are written immediately; source ID and hash
// space is zeroed and filled in by WriteSourceID / WriteHash before
// sending.
func NewNLPacket(t PacketType, capacity int, reliable, partOfMessage bool) *NLPacket {
	localHeader := LocalHeaderSize(t)
	if capacity < 0 {
		capacity = udt.MaxPacketSize - udt.HeaderSize(partOfMessage) - localHeader
	}

	base := udt.NewPacket(localHeader+capacity, reliable, partOfMessage)
	p := &NLPacket{
		Packet:     base,
		packetType: t,
		version:    VersionForType(t),
	}
	p.writeTypeAndVersion()
	base.Seek(TotalHeaderSize(t, partOfMessage))
	return p
}

// FromBase adapts a parsed base packet into a typed packet,
// re-deriving the extended header offsets from the type byte.
func FromBase(base *udt.Packet) (*NLPacket, error) {
	payload := base.Payload()
	if len(payload) < typeAndVersionSize {
		return nil, fmt.Errorf("packet too short for type and version: %d bytes", len(payload))
	}

	p := &NLPacket{
		Packet:     base,
		packetType: PacketType(payload[0]),
		version:    payload[1],
	}

	offset := typeAndVersionSize
	if p.packetType.Sourced() {
		if len(payload) < offset+sourceIDSize {
			return nil, fmt.Errorf("%s packet too short for source ID: %d bytes", p.packetType, len(payload))
		}
		p.sourceID = binary.LittleEndian.Uint16(payload[offset:])
		offset += sourceIDSize
	}
	if p.packetType.Verified() {
		if len(payload) < offset+hashSize {
			return nil, fmt.Errorf("%s packet too short for verification hash: %d bytes", p.packetType, len(payload))
		}
		copy(p.hash[:], payload[offset:])
		offset += hashSize
	}

	base.Seek(base.HeaderSize() + offset)
	return p, nil
}

func (p *NLPacket) Type() PacketType { return p.packetType }
func (p *NLPacket) Version() uint8   { return p.version }
func (p *NLPacket) SourceID() uint16 { return p.sourceID }

// Payload returns the bytes after the complete typed header.
func (p *NLPacket) Payload() []byte {
	return p.Packet.Payload()[LocalHeaderSize(p.packetType):]
}

// writeTypeAndVersion serializes the typed header prefix at the base
// payload boundary without moving the cursor.
func (p *NLPacket) writeTypeAndVersion() {
	raw := p.Packet.Payload()
	raw[0] = byte(p.packetType)
	raw[1] = p.version
}

// WriteSourceID stores the sender's session-local ID in the header of
// an already-built sourced packet. The payload cursor is untouched.
func (p *NLPacket) WriteSourceID(id uint16) {
	if !p.packetType.Sourced() {
		return
	}
	p.sourceID = id
	binary.LittleEndian.PutUint16(p.Packet.Payload()[typeAndVersionSize:], id)
}

// WriteHash computes and stores the integrity hash for a verified
// packet, keyed by the receiving node's connection secret. Call after
// the payload and source ID are final.
func (p *NLPacket) WriteHash(secret uuid.UUID) {
	if !p.packetType.Verified() {
		return
	}
	h := p.computeHash(secret)
	copy(p.hash[:], h[:])
	copy(p.Packet.Payload()[typeAndVersionSize+sourceIDSize:], h[:])
}

// VerifyHash recomputes the hash over the received payload and
// compares it with the one carried in the header.
func (p *NLPacket) VerifyHash(secret uuid.UUID) bool {
	if !p.packetType.Verified() {
		return true
	}
	return p.computeHash(secret) == p.hash
}

func (p *NLPacket) computeHash(secret uuid.UUID) [hashSize]byte {
	h := md5.New()
	h.Write(p.Payload())
	h.Write(secret[:])
	var out [hashSize]byte
	copy(out[:], h.Sum(nil))
	return out
}
