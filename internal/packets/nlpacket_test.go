package packets

import (
	"bytes"
	"testing"

	"github.com/google/uuid"

	"github.com/namark/vircadia-web-sdk/internal/udt"
)

// TestParseLiteralTypedHeader decodes a captured unsourced packet:
// base header 03000000 (sequence 3, no flags), then type 0x02
// (DomainList) and version 0x18.
func TestParseLiteralTypedHeader(t *testing.T) {
	data := []byte{0x03, 0x00, 0x00, 0x00, 0x02, 0x18, 0xa3, 0xed, 0xa0, 0x1e}

	base, err := udt.FromReceivedBytes(data, udt.SockAddr{})
	if err != nil {
		t.Fatalf("base parse failed: %v", err)
	}
	if base.IsPartOfMessage() {
		t.Error("expected IsPartOfMessage() == false")
	}

	p, err := FromBase(base)
	if err != nil {
		t.Fatalf("typed parse failed: %v", err)
	}
	if p.Type() != TypeDomainList {
		t.Errorf("type: got %v (%d), want DomainList (2)", p.Type(), uint8(p.Type()))
	}
	if p.Version() != 0x18 {
		t.Errorf("version: got %d, want 0x18", p.Version())
	}
	if !bytes.Equal(p.Payload(), []byte{0xa3, 0xed, 0xa0, 0x1e}) {
		t.Errorf("payload: got %x", p.Payload())
	}
}

func TestHeaderSizes(t *testing.T) {
	testCases := []struct {
		name      string
		t         PacketType
		wantLocal int
	}{
		{"unsourced", TypeDomainListRequest, 2},
		{"sourced unverified", TypePing, 4},
		{"sourced verified", TypeAvatarData, 20},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := LocalHeaderSize(tc.t); got != tc.wantLocal {
				t.Errorf("LocalHeaderSize(%v): got %d, want %d", tc.t, got, tc.wantLocal)
			}
		})
	}

	if got := TotalHeaderSize(TypeAvatarData, true); got != 12+20 {
		t.Errorf("TotalHeaderSize message+verified: got %d, want 32", got)
	}
}

func TestSourcedRoundTrip(t *testing.T) {
	secret := uuid.New()

	p := NewNLPacket(TypeAvatarData, 8, true, false)
	if _, err := p.Write([]byte{1, 2, 3, 4, 5, 6, 7, 8}); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	p.WriteSequenceNumber(41)
	p.WriteSourceID(0xBEEF)
	p.WriteHash(secret)

	base, err := udt.FromReceivedBytes(p.Bytes(), udt.SockAddr{Host: 7, Port: 7})
	if err != nil {
		t.Fatalf("base parse failed: %v", err)
	}
	parsed, err := FromBase(base)
	if err != nil {
		t.Fatalf("typed parse failed: %v", err)
	}

	if parsed.Type() != TypeAvatarData {
		t.Errorf("type: got %v, want AvatarData", parsed.Type())
	}
	if parsed.SourceID() != 0xBEEF {
		t.Errorf("source ID: got %#x, want 0xBEEF", parsed.SourceID())
	}
	if !parsed.VerifyHash(secret) {
		t.Error("hash did not verify with the right secret")
	}
	if parsed.VerifyHash(uuid.New()) {
		t.Error("hash verified with the wrong secret")
	}
	if !bytes.Equal(parsed.Payload(), []byte{1, 2, 3, 4, 5, 6, 7, 8}) {
		t.Errorf("payload: got %v", parsed.Payload())
	}
}

func TestUnsourcedSkipsIdentity(t *testing.T) {
	p := NewNLPacket(TypeDomainListRequest, 4, true, false)

	// Source ID and hash writes are no-ops for unsourced types.
	p.WriteSourceID(0x1234)
	p.WriteHash(uuid.New())
	if p.SourceID() != 0 {
		t.Errorf("unsourced packet took a source ID: %#x", p.SourceID())
	}

	base, err := udt.FromReceivedBytes(p.Bytes(), udt.SockAddr{})
	if err != nil {
		t.Fatalf("base parse failed: %v", err)
	}
	parsed, err := FromBase(base)
	if err != nil {
		t.Fatalf("typed parse failed: %v", err)
	}
	if parsed.SourceID() != 0 {
		t.Errorf("source ID on unsourced type: got %#x, want 0", parsed.SourceID())
	}
}

func TestFromBaseRejectsTruncatedHeaders(t *testing.T) {
	testCases := []struct {
		name string
		data []byte
	}{
		{"missing version", []byte{0x00, 0x00, 0x00, 0x00, byte(TypeDomainList)}},
		{"missing source ID", []byte{0x00, 0x00, 0x00, 0x00, byte(TypePing), 22}},
		{"missing hash", []byte{0x00, 0x00, 0x00, 0x00, byte(TypeAvatarData), 45, 0x01, 0x00}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			base, err := udt.FromReceivedBytes(tc.data, udt.SockAddr{})
			if err != nil {
				t.Fatalf("base parse failed: %v", err)
			}
			if _, err := FromBase(base); err == nil {
				t.Fatal("expected error for truncated typed header")
			}
		})
	}
}
