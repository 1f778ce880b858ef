package nodes

import (
	"encoding/binary"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/namark/vircadia-web-sdk/internal/events"
	"github.com/namark/vircadia-web-sdk/internal/message"
	"github.com/namark/vircadia-web-sdk/internal/packets"
	"github.com/namark/vircadia-web-sdk/internal/udt"
	"github.com/namark/vircadia-web-sdk/internal/util"
)

// SelfID is the sentinel identity peers use to refer to "this client"
// in ignore/mute contexts. It is never a valid target for privileged
// actions.
var SelfID = uuid.MustParse("00000000-0000-0000-0000-000000000001")

// IgnoreChange reports an ignore-flag flip for a peer identity.
type IgnoreChange struct {
	ID      uuid.UUID
	Ignored bool
}

// SendFunc hands a finished packet to the transport for the given
// destination.
type SendFunc func(p *packets.NLPacket, addr udt.SockAddr) error

// NodeList is the registry of all known peer services. It is the
// single source of truth for peer identity and state; roster packet
// handlers and application code are its only writers.
type NodeList struct {
	mu   sync.Mutex
	send SendFunc

	nodes  map[uuid.UUID]*Node
	byAddr map[udt.SockAddr]uuid.UUID

	sessionUUID    uuid.UUID
	sessionLocalID uint16
	permissions    Permissions

	interest      map[NodeType]struct{}
	ignored       map[uuid.UUID]struct{}
	personalMuted map[uuid.UUID]struct{}

	domainAddr udt.SockAddr

	NodeAdded     events.Signal[*Node]
	NodeActivated events.Signal[*Node]
	NodeKilled    events.Signal[*Node]
	IgnoredNode   events.Signal[IgnoreChange]
}

// NewNodeList creates an empty registry. send is used for the packets
// the registry sends on its own behalf (ignore/mute/kick requests,
// ping replies).
func NewNodeList(send SendFunc) *NodeList {
	return &NodeList{
		send:          send,
		nodes:         make(map[uuid.UUID]*Node),
		byAddr:        make(map[udt.SockAddr]uuid.UUID),
		interest:      make(map[NodeType]struct{}),
		ignored:       make(map[uuid.UUID]struct{}),
		personalMuted: make(map[uuid.UUID]struct{}),
	}
}

// Session identity.

func (l *NodeList) SessionUUID() uuid.UUID {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sessionUUID
}

func (l *NodeList) SetSessionUUID(id uuid.UUID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sessionUUID = id
}

func (l *NodeList) SessionLocalID() uint16 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sessionLocalID
}

func (l *NodeList) SetSessionLocalID(id uint16) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sessionLocalID = id
}

func (l *NodeList) Permissions() Permissions {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.permissions
}

func (l *NodeList) SetPermissions(p Permissions) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.permissions = p
}

// SetDomainSockAddr records the domain peer's address, the
// destination for privileged kick requests.
func (l *NodeList) SetDomainSockAddr(addr udt.SockAddr) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.domainAddr = addr
}

// AddOrUpdateNode inserts a node on first sight or refreshes the
// mutable fields of the existing node with the same identity. The
// node's last-activity timestamp is refreshed either way.
func (l *NodeList) AddOrUpdateNode(id uuid.UUID, nodeType NodeType,
	publicSocket, localSocket udt.SockAddr, localID uint16,
	isReplicated, isUpstream bool, secret uuid.UUID, permissions Permissions) *Node {

	l.mu.Lock()
	node, exists := l.nodes[id]
	if !exists {
		node = &Node{Type: nodeType, UUID: id}
		l.nodes[id] = node
	}

	delete(l.byAddr, node.PublicSocket)
	node.Type = nodeType
	node.PublicSocket = publicSocket
	node.LocalSocket = localSocket
	node.LocalID = localID
	node.IsReplicated = isReplicated
	node.IsUpstream = isUpstream
	node.ConnectionSecret = secret
	node.Permissions = permissions
	node.TouchLastHeard()
	if !publicSocket.IsNull() {
		l.byAddr[publicSocket] = id
	}

	// An already-active node follows its public socket when a roster
	// update moves it.
	if node.activeSocket != nil && !publicSocket.IsNull() && *node.activeSocket != publicSocket {
		sock := publicSocket
		node.activeSocket = &sock
	}
	activated := !publicSocket.IsNull() && node.activate()
	l.mu.Unlock()

	if !exists {
		util.LogDebug("added %s", node)
		l.NodeAdded.Emit(node)
	}
	if activated {
		l.NodeActivated.Emit(node)
	}
	return node
}

// NodeWithUUID returns the node with the given identity, or nil.
func (l *NodeList) NodeWithUUID(id uuid.UUID) *Node {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.nodes[id]
}

// NodeWithAddr returns the node whose public socket matches addr, or
// nil if the sender is unknown.
func (l *NodeList) NodeWithAddr(addr udt.SockAddr) *Node {
	l.mu.Lock()
	defer l.mu.Unlock()
	if id, ok := l.byAddr[addr]; ok {
		return l.nodes[id]
	}
	return nil
}

// SoloNodeOfType returns the unique node of a solo type (for example
// the audio mixer), or nil when absent.
func (l *NodeList) SoloNodeOfType(t NodeType) *Node {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, n := range l.nodes {
		if n.Type == t {
			return n
		}
	}
	return nil
}

// EachNode calls fn for every known node.
func (l *NodeList) EachNode(fn func(*Node)) {
	l.mu.Lock()
	list := make([]*Node, 0, len(l.nodes))
	for _, n := range l.nodes {
		list = append(list, n)
	}
	l.mu.Unlock()
	for _, n := range list {
		fn(n)
	}
}

// Count returns the number of known nodes.
func (l *NodeList) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.nodes)
}

// KillNodeWithUUID removes a node and emits NodeKilled. Unknown
// identities are ignored.
func (l *NodeList) KillNodeWithUUID(id uuid.UUID) {
	l.mu.Lock()
	node, exists := l.nodes[id]
	if exists {
		delete(l.nodes, id)
		delete(l.byAddr, node.PublicSocket)
	}
	l.mu.Unlock()

	if exists {
		util.LogDebug("killed %s", node)
		l.NodeKilled.Emit(node)
	}
}

// Reset clears all nodes and the local session identity. Idempotent:
// resetting an already-empty registry is a no-op.
func (l *NodeList) Reset(reason string, domainInitiated bool) {
	l.mu.Lock()
	killed := make([]*Node, 0, len(l.nodes))
	for _, n := range l.nodes {
		killed = append(killed, n)
	}
	empty := len(l.nodes) == 0 && l.sessionUUID == uuid.Nil && l.sessionLocalID == 0
	l.nodes = make(map[uuid.UUID]*Node)
	l.byAddr = make(map[udt.SockAddr]uuid.UUID)
	l.sessionUUID = uuid.Nil
	l.sessionLocalID = 0
	l.permissions = 0
	l.mu.Unlock()

	if empty {
		return
	}
	util.LogDebug("node list reset (%s, domain-initiated=%v)", reason, domainInitiated)
	for _, n := range killed {
		l.NodeKilled.Emit(n)
	}
}

// Interest set.

// AddNodeTypesToInterestSet adds the given types to the interest set.
// Purely additive; duplicates are absorbed.
func (l *NodeList) AddNodeTypesToInterestSet(types ...NodeType) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, t := range types {
		l.interest[t] = struct{}{}
	}
}

// InterestSet returns the node types the client asks the domain to
// report, in stable order.
func (l *NodeList) InterestSet() []NodeType {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]NodeType, 0, len(l.interest))
	for t := range l.interest {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Ignore / personal mute.

// IgnoreNodeBySessionID flips the ignore flag for a peer identity,
// notifies the relevant mixers, and emits IgnoredNode.
func (l *NodeList) IgnoreNodeBySessionID(id uuid.UUID, ignored bool) {
	if id == uuid.Nil {
		util.LogWarning("ignore request for null identity, ignoring")
		return
	}

	l.mu.Lock()
	if ignored {
		l.ignored[id] = struct{}{}
	} else {
		delete(l.ignored, id)
	}
	l.mu.Unlock()

	l.sendIgnoreRequest(id, ignored)
	l.IgnoredNode.Emit(IgnoreChange{ID: id, Ignored: ignored})
}

// PersonalMuteNodeBySessionID flips the personal-mute flag for a peer
// identity and notifies the audio mixer.
func (l *NodeList) PersonalMuteNodeBySessionID(id uuid.UUID, muted bool) {
	if id == uuid.Nil {
		util.LogWarning("personal mute request for null identity, ignoring")
		return
	}

	l.mu.Lock()
	if muted {
		l.personalMuted[id] = struct{}{}
	} else {
		delete(l.personalMuted, id)
	}
	l.mu.Unlock()

	l.sendIgnoreRequest(id, muted)
	l.IgnoredNode.Emit(IgnoreChange{ID: id, Ignored: muted})
}

// RemoveFromIgnoreMuteSets clears both flags for an identity. Signals
// fire only for flags that actually changed.
func (l *NodeList) RemoveFromIgnoreMuteSets(id uuid.UUID) {
	l.mu.Lock()
	_, wasIgnored := l.ignored[id]
	_, wasMuted := l.personalMuted[id]
	delete(l.ignored, id)
	delete(l.personalMuted, id)
	l.mu.Unlock()

	if wasIgnored || wasMuted {
		l.IgnoredNode.Emit(IgnoreChange{ID: id, Ignored: false})
	}
}

// IsIgnored reports the ignore flag for an identity.
func (l *NodeList) IsIgnored(id uuid.UUID) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.ignored[id]
	return ok
}

// IsPersonalMuted reports the personal-mute flag for an identity.
func (l *NodeList) IsPersonalMuted(id uuid.UUID) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.personalMuted[id]
	return ok
}

// sendIgnoreRequest notifies the audio and avatar mixers of an
// ignore/mute flag change. Best effort; inactive mixers are skipped.
func (l *NodeList) sendIgnoreRequest(id uuid.UUID, enabled bool) {
	for _, t := range []NodeType{NodeTypeAudioMixer, NodeTypeAvatarMixer} {
		mixer := l.SoloNodeOfType(t)
		if mixer == nil || !mixer.IsActive() {
			continue
		}

		p := packets.NewNLPacket(packets.TypeNodeIgnoreRequest, 17, true, false)
		flag := byte(0)
		if enabled {
			flag = 1
		}
		if _, err := p.Write([]byte{flag}); err != nil {
			return
		}
		if _, err := p.Write(id[:]); err != nil {
			return
		}
		l.finalizeAndSend(p, mixer)
	}
}

// Privileged actions.

// MuteNodeBySessionID asks the audio mixer to server-mute a peer.
// Every failed precondition logs its own warning and aborts without
// any network action.
func (l *NodeList) MuteNodeBySessionID(id uuid.UUID) {
	if !l.validateKickTarget(id, "mute") {
		return
	}
	if !l.Permissions().CanKick() {
		util.LogWarning("cannot mute %s: session lacks kick permission", id)
		return
	}
	mixer := l.SoloNodeOfType(NodeTypeAudioMixer)
	if mixer == nil || !mixer.IsActive() {
		util.LogWarning("cannot mute %s: no active audio mixer", id)
		return
	}

	p := packets.NewNLPacket(packets.TypeNodeMuteRequest, 16, true, false)
	if _, err := p.Write(id[:]); err != nil {
		return
	}
	l.finalizeAndSend(p, mixer)
}

// KickNodeBySessionID asks the domain server to kick a peer. Same
// precondition discipline as MuteNodeBySessionID.
func (l *NodeList) KickNodeBySessionID(id uuid.UUID) {
	if !l.validateKickTarget(id, "kick") {
		return
	}
	if !l.Permissions().CanKick() {
		util.LogWarning("cannot kick %s: session lacks kick permission", id)
		return
	}

	l.mu.Lock()
	domainAddr := l.domainAddr
	l.mu.Unlock()
	if domainAddr.IsNull() {
		util.LogWarning("cannot kick %s: domain address unknown", id)
		return
	}

	p := packets.NewNLPacket(packets.TypeNodeKickRequest, 16, true, false)
	if _, err := p.Write(id[:]); err != nil {
		return
	}
	p.WriteSourceID(l.SessionLocalID())
	if l.send != nil {
		if err := l.send(p, domainAddr); err != nil {
			util.LogError("failed to send kick request: %v", err)
		}
	}
}

// validateKickTarget runs the identity preconditions shared by mute
// and kick. Each failure logs a distinct warning.
func (l *NodeList) validateKickTarget(id uuid.UUID, action string) bool {
	if id == uuid.Nil {
		util.LogWarning("cannot %s a null identity", action)
		return false
	}
	if id == l.SessionUUID() {
		util.LogWarning("cannot %s own session %s", action, id)
		return false
	}
	if id == SelfID {
		util.LogWarning("cannot %s the self sentinel identity", action)
		return false
	}
	return true
}

// finalizeAndSend stamps the source ID and integrity hash for the
// destination node and hands the packet to the transport.
func (l *NodeList) finalizeAndSend(p *packets.NLPacket, dest *Node) {
	p.WriteSourceID(l.SessionLocalID())
	p.WriteHash(dest.ConnectionSecret)
	if l.send == nil {
		return
	}
	if err := l.send(p, dest.ActiveSocket()); err != nil {
		util.LogError("failed to send %s to %s: %v", p.Type(), dest.Type, err)
	}
}

// ProcessPing answers a mixer ping with a PingReply echoing the ping
// payload, and refreshes the node's last-activity timestamp.
func (l *NodeList) ProcessPing(msg *message.ReceivedMessage, sender *Node) {
	if sender == nil {
		util.LogDebug("ping from unknown sender %s, dropping", msg.Sender)
		return
	}
	sender.TouchLastHeard()

	reply := packets.NewNLPacket(packets.TypePingReply, len(msg.Payload())+8, true, false)
	if _, err := reply.Write(msg.Payload()); err != nil {
		return
	}
	var local [8]byte
	binary.LittleEndian.PutUint64(local[:], uint64(sender.LastHeard().UnixMicro()))
	if _, err := reply.Write(local[:]); err != nil {
		return
	}
	l.finalizeAndSend(reply, sender)
}
