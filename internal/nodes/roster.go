package nodes

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/google/uuid"

	"github.com/namark/vircadia-web-sdk/internal/udt"
)

// NodeInfo is one roster entry of a DomainList broadcast.
type NodeInfo struct {
	Type             NodeType
	UUID             uuid.UUID
	PublicSocket     udt.SockAddr
	LocalSocket      udt.SockAddr
	Permissions      Permissions
	IsReplicated     bool
	IsUpstream       bool
	LocalID          uint16
	ConnectionSecret uuid.UUID
}

// DomainListInfo is the decoded payload of a DomainList broadcast:
// the domain's identity, the session identity it assigned to this
// client, and the current roster.
type DomainListInfo struct {
	DomainUUID     uuid.UUID
	DomainLocalID  uint16
	SessionUUID    uuid.UUID
	SessionLocalID uint16
	Permissions    Permissions
	Nodes          []NodeInfo
}

const nodeInfoSize = 1 + 16 + 6 + 6 + 4 + 1 + 1 + 2 + 16

// ParseDomainList decodes a DomainList payload.
func ParseDomainList(payload []byte) (DomainListInfo, error) {
	const prefixSize = 16 + 2 + 16 + 2 + 4
	if len(payload) < prefixSize {
		return DomainListInfo{}, fmt.Errorf("domain list too short: %d bytes", len(payload))
	}

	var info DomainListInfo
	copy(info.DomainUUID[:], payload[0:16])
	info.DomainLocalID = binary.LittleEndian.Uint16(payload[16:18])
	copy(info.SessionUUID[:], payload[18:34])
	info.SessionLocalID = binary.LittleEndian.Uint16(payload[34:36])
	info.Permissions = Permissions(binary.LittleEndian.Uint32(payload[36:40]))

	rest := payload[prefixSize:]
	if len(rest)%nodeInfoSize != 0 {
		return DomainListInfo{}, fmt.Errorf("domain list roster misaligned: %d trailing bytes", len(rest)%nodeInfoSize)
	}

	for len(rest) > 0 {
		var n NodeInfo
		n.Type = NodeType(rest[0])
		copy(n.UUID[:], rest[1:17])
		n.PublicSocket = readSockAddr(rest[17:23])
		n.LocalSocket = readSockAddr(rest[23:29])
		n.Permissions = Permissions(binary.LittleEndian.Uint32(rest[29:33]))
		n.IsReplicated = rest[33] != 0
		n.IsUpstream = rest[34] != 0
		n.LocalID = binary.LittleEndian.Uint16(rest[35:37])
		copy(n.ConnectionSecret[:], rest[37:53])
		info.Nodes = append(info.Nodes, n)
		rest = rest[nodeInfoSize:]
	}

	return info, nil
}

// EncodeDomainList is the inverse of ParseDomainList. The client only
// consumes rosters; the encoder exists for loopback tests.
func EncodeDomainList(info DomainListInfo) []byte {
	var buf bytes.Buffer
	buf.Write(info.DomainUUID[:])
	writeUint16(&buf, info.DomainLocalID)
	buf.Write(info.SessionUUID[:])
	writeUint16(&buf, info.SessionLocalID)
	writeUint32(&buf, uint32(info.Permissions))

	for _, n := range info.Nodes {
		buf.WriteByte(byte(n.Type))
		buf.Write(n.UUID[:])
		writeSockAddr(&buf, n.PublicSocket)
		writeSockAddr(&buf, n.LocalSocket)
		writeUint32(&buf, uint32(n.Permissions))
		writeBool(&buf, n.IsReplicated)
		writeBool(&buf, n.IsUpstream)
		writeUint16(&buf, n.LocalID)
		buf.Write(n.ConnectionSecret[:])
	}
	return buf.Bytes()
}

func readSockAddr(b []byte) udt.SockAddr {
	return udt.SockAddr{
		Host: binary.LittleEndian.Uint32(b[0:4]),
		Port: binary.LittleEndian.Uint16(b[4:6]),
	}
}

func writeSockAddr(buf *bytes.Buffer, a udt.SockAddr) {
	writeUint32(buf, a.Host)
	writeUint16(buf, a.Port)
}

func writeUint16(buf *bytes.Buffer, v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	buf.Write(b[:])
}

func writeUint32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func writeBool(buf *bytes.Buffer, v bool) {
	if v {
		buf.WriteByte(1)
	} else {
		buf.WriteByte(0)
	}
}
