package nodes

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/namark/vircadia-web-sdk/internal/udt"
)

// Node is one known peer service. Nodes are created by roster
// broadcasts and refreshed in place on subsequent updates: the same
// identity always maps to the same *Node.
type Node struct {
	Type NodeType
	UUID uuid.UUID

	PublicSocket udt.SockAddr
	LocalSocket  udt.SockAddr

	// activeSocket is the socket traffic is sent to once the node is
	// usable; nil until activation.
	activeSocket *udt.SockAddr

	Permissions  Permissions
	LocalID      uint16
	IsReplicated bool
	IsUpstream   bool

	// ConnectionSecret authenticates outbound verified packets to
	// this node.
	ConnectionSecret uuid.UUID

	lastHeard time.Time
}

// ActiveSocket returns the usable socket, or the null address if the
// node has not been activated yet.
func (n *Node) ActiveSocket() udt.SockAddr {
	if n.activeSocket == nil {
		return udt.NullSockAddr
	}
	return *n.activeSocket
}

// IsActive reports whether the node has a usable socket.
func (n *Node) IsActive() bool { return n.activeSocket != nil }

// activate marks the public socket usable. Returns true on the first
// activation only.
func (n *Node) activate() bool {
	if n.activeSocket != nil {
		return false
	}
	sock := n.PublicSocket
	n.activeSocket = &sock
	return true
}

// TouchLastHeard refreshes the last-activity timestamp.
func (n *Node) TouchLastHeard() { n.lastHeard = time.Now() }

// LastHeard returns the time of the most recent activity from this node.
func (n *Node) LastHeard() time.Time { return n.lastHeard }

func (n *Node) String() string {
	return fmt.Sprintf("%s %s (%s)", n.Type, n.UUID, n.PublicSocket)
}
