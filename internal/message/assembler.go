// Package message reconstructs logical messages from one or more
// typed packets sharing a message number.
package message

import (
	"github.com/namark/vircadia-web-sdk/internal/packets"
	"github.com/namark/vircadia-web-sdk/internal/udt"
	"github.com/namark/vircadia-web-sdk/internal/util"
)

// ReceivedMessage aggregates the payload of one or more typed packets
// that share a message number. Single-packet (non-multipart) messages
// complete immediately.
type ReceivedMessage struct {
	Type     packets.PacketType
	Version  uint8
	Sender   udt.SockAddr
	SourceID uint16 // 0 for unsourced types

	payload    []byte
	complete   bool
	numPackets int
	nextPart   uint32
}

// Payload returns the concatenated payload bytes accumulated so far.
func (m *ReceivedMessage) Payload() []byte { return m.payload }

// IsComplete reports whether the full message has arrived.
func (m *ReceivedMessage) IsComplete() bool { return m.complete }

// NumPackets returns how many packets contributed to the message.
func (m *ReceivedMessage) NumPackets() int { return m.numPackets }

func newReceivedMessage(p *packets.NLPacket) *ReceivedMessage {
	payload := make([]byte, len(p.Payload()))
	copy(payload, p.Payload())
	return &ReceivedMessage{
		Type:       p.Type(),
		Version:    p.Version(),
		Sender:     p.Sender(),
		SourceID:   p.SourceID(),
		payload:    payload,
		numPackets: 1,
		nextPart:   1,
	}
}

func (m *ReceivedMessage) appendPacket(p *packets.NLPacket) {
	m.payload = append(m.payload, p.Payload()...)
	m.numPackets++
	m.nextPart++
}

// pendingKey identifies one in-flight multipacket message.
type pendingKey struct {
	messageNumber uint32
	sender        udt.SockAddr
}

// Assembler runs the per-(message number, sender) accumulation state
// machine and hands each completed message to deliver exactly once.
//
// Packets of a multipacket message are assumed to arrive in position
// order; the reliable channel guarantees it for reliable message
// types. Out-of-order arrival is a protocol violation: the whole
// pending message is dropped.
type Assembler struct {
	pending map[pendingKey]*ReceivedMessage
	deliver func(*ReceivedMessage)
}

// NewAssembler creates an assembler that calls deliver synchronously
// for every completed message, in completion order.
func NewAssembler(deliver func(*ReceivedMessage)) *Assembler {
	return &Assembler{
		pending: make(map[pendingKey]*ReceivedMessage),
		deliver: deliver,
	}
}

// PendingCount returns the number of in-flight multipacket messages.
func (a *Assembler) PendingCount() int { return len(a.pending) }

// Reset discards all in-flight accumulators.
func (a *Assembler) Reset() {
	a.pending = make(map[pendingKey]*ReceivedMessage)
}

// Feed processes one typed packet. Non-multipart packets and ONLY
// positions complete immediately; FIRST starts an accumulator, MIDDLE
// appends, LAST finalizes and delivers.
func (a *Assembler) Feed(p *packets.NLPacket) {
	if !p.IsPartOfMessage() {
		msg := newReceivedMessage(p)
		msg.complete = true
		a.deliver(msg)
		return
	}

	key := pendingKey{messageNumber: p.MessageNumber(), sender: p.Sender()}

	switch p.Position() {
	case udt.PositionOnly:
		msg := newReceivedMessage(p)
		msg.complete = true
		a.deliver(msg)

	case udt.PositionFirst:
		if _, exists := a.pending[key]; exists {
			util.LogWarning("duplicate FIRST for message %d from %s, restarting accumulation",
				key.messageNumber, key.sender)
			util.Stats.AddDropped()
		}
		if p.MessagePartNumber() != 0 {
			a.violation(key, p, "FIRST packet with part number %d")
			return
		}
		a.pending[key] = newReceivedMessage(p)

	case udt.PositionMiddle:
		msg, exists := a.pending[key]
		if !exists || p.MessagePartNumber() != msg.nextPart {
			a.violation(key, p, "MIDDLE packet out of order (part %d)")
			return
		}
		msg.appendPacket(p)

	case udt.PositionLast:
		msg, exists := a.pending[key]
		if !exists || p.MessagePartNumber() != msg.nextPart {
			a.violation(key, p, "LAST packet out of order (part %d)")
			return
		}
		msg.appendPacket(p)
		msg.complete = true
		delete(a.pending, key)
		a.deliver(msg)
	}
}

// violation logs an out-of-order multipart arrival and discards any
// pending state for the pair; the message is unrecoverable.
func (a *Assembler) violation(key pendingKey, p *packets.NLPacket, format string) {
	util.LogWarning("message %d from %s: "+format+", dropping message",
		key.messageNumber, key.sender, p.MessagePartNumber())
	util.Stats.AddDropped()
	delete(a.pending, key)
}
