package client

import (
	"encoding/binary"
	"testing"

	"github.com/namark/vircadia-web-sdk/internal/config"
	"github.com/namark/vircadia-web-sdk/internal/nodes"
	"github.com/namark/vircadia-web-sdk/internal/packets"
	"github.com/namark/vircadia-web-sdk/internal/udt"
)

type captureSender struct {
	frames [][]byte
}

func (s *captureSender) Send(data []byte, reliable bool) error {
	buf := make([]byte, len(data))
	copy(buf, data)
	s.frames = append(s.frames, buf)
	return nil
}

func newPacket() *packets.NLPacket {
	return packets.NewNLPacket(packets.TypeDomainListRequest, -1, false, false)
}

func seqOf(frame []byte) udt.SequenceNumber {
	word := binary.LittleEndian.Uint32(frame[:4])
	return udt.SequenceNumber(word & 0x07FFFFFF)
}

func TestSendStampsSequencePerDestination(t *testing.T) {
	c := New(config.Default())
	capture := &captureSender{}
	c.attach(capture)

	a := udt.SockAddr{Host: 1, Port: 40102}
	b := udt.SockAddr{Host: 2, Port: 40102}

	for _, addr := range []udt.SockAddr{a, a, a, b} {
		if err := c.sendPacket(newPacket(), addr); err != nil {
			t.Fatalf("sendPacket to %v: %v", addr, err)
		}
	}

	wantSeqs := []udt.SequenceNumber{0, 1, 2, 0}
	if len(capture.frames) != len(wantSeqs) {
		t.Fatalf("got %d frames, want %d", len(capture.frames), len(wantSeqs))
	}
	for i, frame := range capture.frames {
		if got := seqOf(frame); got != wantSeqs[i] {
			t.Errorf("frame %d: sequence = %d, want %d", i, got, wantSeqs[i])
		}
	}
}

func TestSendWithoutTransportFails(t *testing.T) {
	c := New(config.Default())
	if err := c.sendPacket(newPacket(), udt.SockAddr{Host: 1, Port: 1}); err == nil {
		t.Fatal("expected error with no transport attached")
	}
}

func TestNewAppliesInterestSet(t *testing.T) {
	cfg := config.Default()
	cfg.InterestSet = []string{"audio-mixer", "does-not-exist"}

	c := New(cfg)

	set := c.NodeList.InterestSet()
	if len(set) != 1 || set[0] != nodes.NodeTypeAudioMixer {
		t.Errorf("interest set = %v, want [audio-mixer]", set)
	}
}

func TestDomainSockAddrStable(t *testing.T) {
	a := domainSockAddr("wss://domain.example/ws")
	b := domainSockAddr("wss://domain.example/ws")
	other := domainSockAddr("wss://other.example/ws")

	if a != b {
		t.Errorf("same URL produced different addresses: %v vs %v", a, b)
	}
	if a == other {
		t.Error("distinct URLs produced the same address")
	}
	if a.IsNull() {
		t.Error("derived address is null")
	}
}
