package message

import (
	"bytes"
	"testing"

	"github.com/namark/vircadia-web-sdk/internal/packets"
	"github.com/namark/vircadia-web-sdk/internal/udt"
)

var testSender = udt.SockAddr{Host: 0x0A000001, Port: 40102}

// receivedPacket builds a typed packet as it would arrive off the
// wire: written, serialized, then re-parsed with a sender address.
func receivedPacket(t *testing.T, payload []byte, partOfMessage bool,
	messageNumber uint32, position udt.PacketPosition, partNumber uint32) *packets.NLPacket {
	t.Helper()

	p := packets.NewNLPacket(packets.TypeMessagesData, len(payload), true, partOfMessage)
	if _, err := p.Write(payload); err != nil {
		t.Fatalf("write payload: %v", err)
	}
	if partOfMessage {
		p.WriteMessageNumber(messageNumber, position, partNumber)
	}

	base, err := udt.FromReceivedBytes(p.Bytes(), testSender)
	if err != nil {
		t.Fatalf("parse base: %v", err)
	}
	parsed, err := packets.FromBase(base)
	if err != nil {
		t.Fatalf("parse typed: %v", err)
	}
	return parsed
}

func TestSinglePacketCompletesImmediately(t *testing.T) {
	var delivered []*ReceivedMessage
	a := NewAssembler(func(m *ReceivedMessage) { delivered = append(delivered, m) })

	a.Feed(receivedPacket(t, []byte("solo"), false, 0, udt.PositionOnly, 0))

	if len(delivered) != 1 {
		t.Fatalf("deliveries: got %d, want 1", len(delivered))
	}
	m := delivered[0]
	if !m.IsComplete() {
		t.Error("expected IsComplete() == true")
	}
	if !bytes.Equal(m.Payload(), []byte("solo")) {
		t.Errorf("payload: got %q", m.Payload())
	}
	if m.Sender != testSender {
		t.Errorf("sender: got %v, want %v", m.Sender, testSender)
	}
	if a.PendingCount() != 0 {
		t.Errorf("pending accumulators: got %d, want 0", a.PendingCount())
	}
}

func TestOnlyPositionCompletesImmediately(t *testing.T) {
	var delivered []*ReceivedMessage
	a := NewAssembler(func(m *ReceivedMessage) { delivered = append(delivered, m) })

	a.Feed(receivedPacket(t, []byte("one shot"), true, 9, udt.PositionOnly, 0))

	if len(delivered) != 1 || !delivered[0].IsComplete() {
		t.Fatalf("ONLY packet did not complete immediately: %d deliveries", len(delivered))
	}
}

func TestMultipartReconstruction(t *testing.T) {
	var delivered []*ReceivedMessage
	a := NewAssembler(func(m *ReceivedMessage) { delivered = append(delivered, m) })

	a.Feed(receivedPacket(t, []byte("first "), true, 7, udt.PositionFirst, 0))
	if len(delivered) != 0 {
		t.Fatalf("delivered before LAST: %d", len(delivered))
	}
	a.Feed(receivedPacket(t, []byte("middle "), true, 7, udt.PositionMiddle, 1))
	a.Feed(receivedPacket(t, []byte("last"), true, 7, udt.PositionLast, 2))

	if len(delivered) != 1 {
		t.Fatalf("deliveries: got %d, want exactly 1", len(delivered))
	}
	m := delivered[0]
	if !bytes.Equal(m.Payload(), []byte("first middle last")) {
		t.Errorf("payload: got %q", m.Payload())
	}
	if m.NumPackets() != 3 {
		t.Errorf("packet count: got %d, want 3", m.NumPackets())
	}
	if a.PendingCount() != 0 {
		t.Errorf("accumulator not discarded after completion: %d pending", a.PendingCount())
	}
}

func TestInterleavedSendersKeepSeparateMessages(t *testing.T) {
	var delivered []*ReceivedMessage
	a := NewAssembler(func(m *ReceivedMessage) { delivered = append(delivered, m) })

	// Same message number from two senders must not collide.
	first := receivedPacket(t, []byte("A1"), true, 3, udt.PositionFirst, 0)
	a.Feed(first)

	otherBase, err := udt.FromReceivedBytes(first.Packet.Bytes(), udt.SockAddr{Host: 9, Port: 9})
	if err != nil {
		t.Fatalf("parse base: %v", err)
	}
	other, err := packets.FromBase(otherBase)
	if err != nil {
		t.Fatalf("parse typed: %v", err)
	}
	a.Feed(other)

	if a.PendingCount() != 2 {
		t.Fatalf("pending: got %d, want 2", a.PendingCount())
	}

	a.Feed(receivedPacket(t, []byte("A2"), true, 3, udt.PositionLast, 1))
	if len(delivered) != 1 {
		t.Fatalf("deliveries: got %d, want 1", len(delivered))
	}
	if !bytes.Equal(delivered[0].Payload(), []byte("A1A2")) {
		t.Errorf("payload: got %q", delivered[0].Payload())
	}
	if a.PendingCount() != 1 {
		t.Errorf("other sender's accumulator lost: %d pending", a.PendingCount())
	}
}

func TestOutOfOrderMultipartDropsMessage(t *testing.T) {
	var delivered []*ReceivedMessage
	a := NewAssembler(func(m *ReceivedMessage) { delivered = append(delivered, m) })

	a.Feed(receivedPacket(t, []byte("first"), true, 5, udt.PositionFirst, 0))
	// Part 2 arrives where part 1 was expected.
	a.Feed(receivedPacket(t, []byte("skipped"), true, 5, udt.PositionMiddle, 2))

	if len(delivered) != 0 {
		t.Fatalf("violating message was delivered")
	}
	if a.PendingCount() != 0 {
		t.Errorf("accumulator kept after violation: %d pending", a.PendingCount())
	}

	// A LAST for the dropped pair finds no accumulator and is dropped too.
	a.Feed(receivedPacket(t, []byte("tail"), true, 5, udt.PositionLast, 3))
	if len(delivered) != 0 {
		t.Fatal("orphan LAST was delivered")
	}
}

func TestMiddleWithoutFirstIsDropped(t *testing.T) {
	var delivered []*ReceivedMessage
	a := NewAssembler(func(m *ReceivedMessage) { delivered = append(delivered, m) })

	a.Feed(receivedPacket(t, []byte("stray"), true, 11, udt.PositionMiddle, 1))

	if len(delivered) != 0 || a.PendingCount() != 0 {
		t.Fatalf("stray MIDDLE accepted: %d delivered, %d pending", len(delivered), a.PendingCount())
	}
}

func TestResetDiscardsPending(t *testing.T) {
	a := NewAssembler(func(*ReceivedMessage) {})

	a.Feed(receivedPacket(t, []byte("x"), true, 1, udt.PositionFirst, 0))
	if a.PendingCount() != 1 {
		t.Fatalf("pending: got %d, want 1", a.PendingCount())
	}
	a.Reset()
	if a.PendingCount() != 0 {
		t.Errorf("pending after reset: got %d, want 0", a.PendingCount())
	}
}
