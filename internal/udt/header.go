package udt

import (
	"encoding/binary"
	"fmt"
)

// Wire layout of the packet header (little-endian words).
//
//	 0                   1                   2                   3
//	 0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1
//	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
//	|C|R|M| O |                Sequence Number                      |
//	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
//	| P |     |              Message Number                         |  if M
//	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
//	|                     Message Part Number                       |  if M
//	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
//
// C = control (always 0 for data packets), R = reliability,
// M = part-of-message, O = 2-bit obfuscation level, P = 2-bit packet
// position.
const (
	controlBitMask       uint32 = 0x80000000
	reliabilityBitMask   uint32 = 0x40000000
	messageBitMask       uint32 = 0x20000000
	obfuscationLevelMask uint32 = 0x18000000
	obfuscationShift            = 27

	sequenceNumberMask uint32 = 0x07FFFFFF

	packetPositionMask  uint32 = 0xC0000000
	packetPositionShift        = 30
	messageNumberMask   uint32 = 0x07FFFFFF
)

// Header sizes in bytes.
const (
	baseHeaderSize    = 4
	messageHeaderSize = 12
)

// PacketPosition encodes where a packet falls within a multipacket message.
type PacketPosition uint8

const (
	PositionOnly   PacketPosition = 0
	PositionLast   PacketPosition = 1
	PositionFirst  PacketPosition = 2
	PositionMiddle PacketPosition = 3
)

func (p PacketPosition) String() string {
	switch p {
	case PositionOnly:
		return "ONLY"
	case PositionLast:
		return "LAST"
	case PositionFirst:
		return "FIRST"
	case PositionMiddle:
		return "MIDDLE"
	}
	return fmt.Sprintf("PacketPosition(%d)", uint8(p))
}

// ObfuscationLevel is the sender-applied payload scramble code (0-3).
// Level 0 means no obfuscation. Levels 1-3 are parsed but not
// reversed by this client; consumers see the scrambled bytes.
type ObfuscationLevel uint8

const NoObfuscation ObfuscationLevel = 0

// Header is the decoded form of the bit-packed packet header.
type Header struct {
	SequenceNumber    SequenceNumber
	Reliable          bool
	IsPartOfMessage   bool
	Obfuscation       ObfuscationLevel
	MessageNumber     uint32
	Position          PacketPosition
	MessagePartNumber uint32
}

// HeaderSize returns the encoded size of a header with or without the
// message sub-header.
func HeaderSize(partOfMessage bool) int {
	if partOfMessage {
		return messageHeaderSize
	}
	return baseHeaderSize
}

// Size returns the encoded size of h.
func (h Header) Size() int {
	return HeaderSize(h.IsPartOfMessage)
}

// encode serializes h into buf, which must hold at least h.Size() bytes.
func (h Header) encode(buf []byte) {
	word := uint32(h.SequenceNumber) & sequenceNumberMask
	word |= (uint32(h.Obfuscation) << obfuscationShift) & obfuscationLevelMask
	if h.Reliable {
		word |= reliabilityBitMask
	}
	if h.IsPartOfMessage {
		word |= messageBitMask
	}
	binary.LittleEndian.PutUint32(buf[0:4], word)

	if h.IsPartOfMessage {
		msgWord := h.MessageNumber & messageNumberMask
		msgWord |= uint32(h.Position) << packetPositionShift
		binary.LittleEndian.PutUint32(buf[4:8], msgWord)
		binary.LittleEndian.PutUint32(buf[8:12], h.MessagePartNumber)
	}
}

// decodeHeader parses the leading header words of data. It fails on
// short input and on a set control bit: control packets are not data
// packets and must not reach this path.
func decodeHeader(data []byte) (Header, error) {
	if len(data) < baseHeaderSize {
		return Header{}, fmt.Errorf("packet too short: %d bytes (need at least %d)", len(data), baseHeaderSize)
	}

	word := binary.LittleEndian.Uint32(data[0:4])
	if word&controlBitMask != 0 {
		return Header{}, fmt.Errorf("control bit set on data packet")
	}

	h := Header{
		SequenceNumber:  SequenceNumber(word & sequenceNumberMask),
		Reliable:        word&reliabilityBitMask != 0,
		IsPartOfMessage: word&messageBitMask != 0,
		Obfuscation:     ObfuscationLevel((word & obfuscationLevelMask) >> obfuscationShift),
	}

	if h.IsPartOfMessage {
		if len(data) < messageHeaderSize {
			return Header{}, fmt.Errorf("message packet too short: %d bytes (need at least %d)", len(data), messageHeaderSize)
		}
		msgWord := binary.LittleEndian.Uint32(data[4:8])
		h.MessageNumber = msgWord & messageNumberMask
		h.Position = PacketPosition(msgWord >> packetPositionShift)
		h.MessagePartNumber = binary.LittleEndian.Uint32(data[8:12])
	}

	return h, nil
}
