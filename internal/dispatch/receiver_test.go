package dispatch

import (
	"testing"

	"github.com/google/uuid"

	"github.com/namark/vircadia-web-sdk/internal/message"
	"github.com/namark/vircadia-web-sdk/internal/nodes"
	"github.com/namark/vircadia-web-sdk/internal/packets"
	"github.com/namark/vircadia-web-sdk/internal/udt"
)

var mixerAddr = udt.SockAddr{Host: 0x0A000002, Port: 48000}

func registryWithMixer(t *testing.T) (*nodes.NodeList, *nodes.Node) {
	t.Helper()
	l := nodes.NewNodeList(nil)
	mixer := l.AddOrUpdateNode(uuid.New(), nodes.NodeTypeAudioMixer,
		mixerAddr, udt.SockAddr{}, 3, false, false, uuid.New(), 0)
	return l, mixer
}

// wireBytes serializes a finished typed packet the way the transport
// would deliver it.
func wireBytes(t *testing.T, packetType packets.PacketType, payload []byte, secret uuid.UUID) []byte {
	t.Helper()
	p := packets.NewNLPacket(packetType, len(payload), true, false)
	if _, err := p.Write(payload); err != nil {
		t.Fatalf("write payload: %v", err)
	}
	p.WriteSourceID(3)
	p.WriteHash(secret)
	return p.Bytes()
}

func TestSourcedListenerReceivesResolvedNode(t *testing.T) {
	registry, mixer := registryWithMixer(t)
	r := NewReceiver(registry)

	var gotNode *nodes.Node
	var gotMsg *message.ReceivedMessage
	r.RegisterSourcedListener(packets.TypeMixedAudio, func(m *message.ReceivedMessage, n *nodes.Node) {
		gotMsg, gotNode = m, n
	})

	r.ReceiveBytes(wireBytes(t, packets.TypeMixedAudio, []byte("pcm"), mixer.ConnectionSecret), mixerAddr)

	if gotMsg == nil {
		t.Fatal("listener was not invoked")
	}
	if gotNode != mixer {
		t.Errorf("resolved node: got %v, want the audio mixer", gotNode)
	}
	if string(gotMsg.Payload()) != "pcm" {
		t.Errorf("payload: got %q", gotMsg.Payload())
	}
}

func TestSourcedListenerUnknownSenderGetsNil(t *testing.T) {
	registry, mixer := registryWithMixer(t)
	r := NewReceiver(registry)

	invoked := false
	r.RegisterSourcedListener(packets.TypeMixedAudio, func(m *message.ReceivedMessage, n *nodes.Node) {
		invoked = true
		if n != nil {
			t.Errorf("unknown sender resolved to %v", n)
		}
	})

	unknown := udt.SockAddr{Host: 0x0A0000FF, Port: 1}
	r.ReceiveBytes(wireBytes(t, packets.TypeMixedAudio, []byte("pcm"), mixer.ConnectionSecret), unknown)

	if !invoked {
		t.Fatal("listener was not invoked for unknown sender")
	}
}

func TestRegisterReplacesListener(t *testing.T) {
	registry, _ := registryWithMixer(t)
	r := NewReceiver(registry)

	var first, second int
	r.RegisterListener(packets.TypeDomainList, func(*message.ReceivedMessage) { first++ })
	r.RegisterListener(packets.TypeDomainList, func(*message.ReceivedMessage) { second++ })

	r.ReceiveBytes(wireBytes(t, packets.TypeDomainList, []byte("roster"), uuid.Nil), mixerAddr)

	if first != 0 {
		t.Errorf("replaced listener was invoked %d times", first)
	}
	if second != 1 {
		t.Errorf("current listener invocations: got %d, want 1", second)
	}
}

func TestUnknownTypeIsDropped(t *testing.T) {
	registry, mixer := registryWithMixer(t)
	r := NewReceiver(registry)

	// No listener registered for MixedAudio: drop without panic.
	r.ReceiveBytes(wireBytes(t, packets.TypeMixedAudio, []byte("pcm"), mixer.ConnectionSecret), mixerAddr)
}

func TestBadHashIsDropped(t *testing.T) {
	registry, _ := registryWithMixer(t)
	r := NewReceiver(registry)

	invoked := false
	r.RegisterSourcedListener(packets.TypeMixedAudio, func(*message.ReceivedMessage, *nodes.Node) {
		invoked = true
	})

	// Hash computed with the wrong secret for a known sender.
	r.ReceiveBytes(wireBytes(t, packets.TypeMixedAudio, []byte("pcm"), uuid.New()), mixerAddr)

	if invoked {
		t.Error("packet with bad hash was dispatched")
	}
}

func TestVersionMismatchIsDropped(t *testing.T) {
	registry, mixer := registryWithMixer(t)
	r := NewReceiver(registry)

	invoked := false
	r.RegisterSourcedListener(packets.TypeMixedAudio, func(*message.ReceivedMessage, *nodes.Node) {
		invoked = true
	})

	data := wireBytes(t, packets.TypeMixedAudio, []byte("pcm"), mixer.ConnectionSecret)
	// Corrupt the version byte (first payload byte after the 4-byte
	// base header is the type, second is the version).
	data[5] = 0xFF
	r.ReceiveBytes(data, mixerAddr)

	if invoked {
		t.Error("packet with mismatched version was dispatched")
	}
}

func TestMalformedPacketIsDropped(t *testing.T) {
	registry, _ := registryWithMixer(t)
	r := NewReceiver(registry)

	// Control bit set; must be logged and dropped, not fatal.
	r.ReceiveBytes([]byte{0x00, 0x00, 0x00, 0x80, 0x02, 0x18}, mixerAddr)
	// Too short for any header.
	r.ReceiveBytes([]byte{0x01}, mixerAddr)
}
