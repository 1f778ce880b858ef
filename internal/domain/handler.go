// Package domain governs the client's connection to a domain: the
// connect/handshake/refuse/error/disconnect lifecycle, periodic
// check-ins, and the roster packets the domain server sends.
package domain

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/namark/vircadia-web-sdk/internal/dispatch"
	"github.com/namark/vircadia-web-sdk/internal/events"
	"github.com/namark/vircadia-web-sdk/internal/message"
	"github.com/namark/vircadia-web-sdk/internal/nodes"
	"github.com/namark/vircadia-web-sdk/internal/packets"
	"github.com/namark/vircadia-web-sdk/internal/udt"
	"github.com/namark/vircadia-web-sdk/internal/util"
)

// State is the domain connection state.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateRefused
	StateError
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "DISCONNECTED"
	case StateConnecting:
		return "CONNECTING"
	case StateConnected:
		return "CONNECTED"
	case StateRefused:
		return "REFUSED"
	case StateError:
		return "ERROR"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

const (
	// DefaultCheckinInterval is the period of connect/list check-ins.
	DefaultCheckinInterval = time.Second

	// maxSilentCheckins is how many check-ins may pass without any
	// domain reply while connected before the link counts as lost.
	maxSilentCheckins = 5
)

// Handler owns the single outstanding domain connection.
type Handler struct {
	mu sync.Mutex

	state          State
	errorDetail    string
	refusalReason  string
	location       string
	domainAddr     udt.SockAddr
	token          uuid.UUID
	silentCheckins int

	checkinInterval time.Duration
	checkinCancel   context.CancelFunc

	nodeList *nodes.NodeList
	receiver *dispatch.Receiver
	send     nodes.SendFunc

	StateChanged events.Signal[State]
}

// NewHandler wires a handler to the registry, the dispatch receiver
// (its handlers for the domain packet types are registered here), and
// the outbound send function.
func NewHandler(nodeList *nodes.NodeList, receiver *dispatch.Receiver, send nodes.SendFunc) *Handler {
	h := &Handler{
		state:           StateDisconnected,
		checkinInterval: DefaultCheckinInterval,
		nodeList:        nodeList,
		receiver:        receiver,
		send:            send,
	}

	receiver.RegisterListener(packets.TypeDomainList, h.processDomainList)
	receiver.RegisterListener(packets.TypeDomainConnectionDenied, h.processConnectionDenied)
	receiver.RegisterListener(packets.TypeDomainServerConnectionToken, h.processConnectionToken)
	receiver.RegisterListener(packets.TypeDomainServerRemovedNode, h.processRemovedNode)
	receiver.RegisterSourcedListener(packets.TypePing, nodeList.ProcessPing)

	return h
}

// SetCheckinInterval overrides the check-in period. Takes effect on
// the next Connect.
func (h *Handler) SetCheckinInterval(d time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if d > 0 {
		h.checkinInterval = d
	}
}

// SetDomainSockAddr records the domain peer's address once signaling
// has produced one.
func (h *Handler) SetDomainSockAddr(addr udt.SockAddr) {
	h.mu.Lock()
	h.domainAddr = addr
	h.mu.Unlock()
	h.nodeList.SetDomainSockAddr(addr)
}

// State returns the current connection state.
func (h *Handler) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// ErrorDetail returns the human-readable detail for StateError.
func (h *Handler) ErrorDetail() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.errorDetail
}

// RefusalReason returns the reason string for StateRefused.
func (h *Handler) RefusalReason() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.refusalReason
}

// Connect starts connecting to the given domain location. An empty
// location is an error. Re-connecting to the same unchanged location
// while check-ins are already running is a no-op.
func (h *Handler) Connect(location string) {
	if location == "" {
		h.mu.Lock()
		cancel := h.checkinCancel
		h.checkinCancel = nil
		h.errorDetail = "cannot connect to an empty domain location"
		h.mu.Unlock()
		if cancel != nil {
			cancel()
		}
		util.LogWarning("cannot connect to an empty domain location")
		h.setState(StateError)
		return
	}

	h.mu.Lock()
	if h.location == location && h.checkinCancel != nil {
		h.mu.Unlock()
		return
	}
	if h.checkinCancel != nil {
		h.checkinCancel()
	}
	h.location = location
	h.silentCheckins = 0
	ctx, cancel := context.WithCancel(context.Background())
	h.checkinCancel = cancel
	interval := h.checkinInterval
	h.mu.Unlock()

	util.LogInfo("connecting to domain %q", location)
	h.setState(StateConnecting)
	go h.checkinLoop(ctx, interval)
}

// Disconnect tells the domain the client is leaving, stops check-ins,
// and clears all session state. Safe to call in any state.
func (h *Handler) Disconnect() {
	h.mu.Lock()
	cancel := h.checkinCancel
	h.checkinCancel = nil
	h.location = ""
	addr := h.domainAddr
	h.token = uuid.Nil
	h.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if !addr.IsNull() {
		p := packets.NewNLPacket(packets.TypeDomainDisconnectRequest, 0, true, false)
		if err := h.send(p, addr); err != nil {
			util.LogDebug("disconnect request not sent: %v", err)
		}
	}

	h.receiver.Reset()
	h.nodeList.Reset("disconnecting from domain", false)
	h.setState(StateDisconnected)
}

// TransportFailed moves the connection to StateError with detail.
// Called by the owner when the underlying transport breaks.
func (h *Handler) TransportFailed(detail string) {
	h.mu.Lock()
	cancel := h.checkinCancel
	h.checkinCancel = nil
	h.errorDetail = detail
	h.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	util.LogError("domain transport failed: %s", detail)
	h.setState(StateError)
}

// checkinLoop periodically sends a connect request (before handshake)
// or a list request (after) until cancelled. A silent domain while
// connected counts as a transport failure.
func (h *Handler) checkinLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	h.sendCheckin()
	for {
		select {
		case <-ticker.C:
			h.mu.Lock()
			h.silentCheckins++
			silent := h.silentCheckins
			connected := h.state == StateConnected
			h.mu.Unlock()

			if connected && silent > maxSilentCheckins {
				h.TransportFailed(fmt.Sprintf("no domain reply in %d check-ins", maxSilentCheckins))
				return
			}
			h.sendCheckin()

		case <-ctx.Done():
			return
		}
	}
}

func (h *Handler) sendCheckin() {
	h.mu.Lock()
	addr := h.domainAddr
	state := h.state
	token := h.token
	location := h.location
	h.mu.Unlock()

	if addr.IsNull() {
		util.LogDebug("check-in skipped, domain address unknown")
		return
	}

	packetType := packets.TypeDomainConnectRequest
	payload := h.connectRequestPayload(token, location)
	if state == StateConnected {
		packetType = packets.TypeDomainListRequest
		payload = h.interestPayload()
	}

	p := packets.NewNLPacket(packetType, len(payload), true, false)
	if _, err := p.Write(payload); err != nil {
		return
	}

	if err := h.send(p, addr); err != nil {
		util.LogWarning("check-in send failed: %v", err)
	}
}

// connectRequestPayload is token(16) + interest types + location.
func (h *Handler) connectRequestPayload(token uuid.UUID, location string) []byte {
	interest := h.interestPayload()
	out := make([]byte, 0, 16+len(interest)+2+len(location))
	out = append(out, token[:]...)
	out = append(out, interest...)
	var l [2]byte
	binary.LittleEndian.PutUint16(l[:], uint16(len(location)))
	out = append(out, l[:]...)
	out = append(out, location...)
	return out
}

// interestPayload is count(1) + one type byte per interest entry.
func (h *Handler) interestPayload() []byte {
	set := h.nodeList.InterestSet()
	out := make([]byte, 0, 1+len(set))
	out = append(out, byte(len(set)))
	for _, t := range set {
		out = append(out, byte(t))
	}
	return out
}

// Packet handlers.

// processDomainList applies a roster broadcast: session identity,
// permissions, and the node set. Receiving one while connecting
// completes the handshake.
func (h *Handler) processDomainList(msg *message.ReceivedMessage) {
	info, err := nodes.ParseDomainList(msg.Payload())
	if err != nil {
		util.LogWarning("dropping malformed domain list from %s: %v", msg.Sender, err)
		util.Stats.AddDropped()
		return
	}

	h.mu.Lock()
	h.silentCheckins = 0
	wasConnecting := h.state == StateConnecting
	h.mu.Unlock()

	h.nodeList.SetSessionUUID(info.SessionUUID)
	h.nodeList.SetSessionLocalID(info.SessionLocalID)
	h.nodeList.SetPermissions(info.Permissions)

	for _, n := range info.Nodes {
		h.nodeList.AddOrUpdateNode(n.UUID, n.Type, n.PublicSocket, n.LocalSocket,
			n.LocalID, n.IsReplicated, n.IsUpstream, n.ConnectionSecret, n.Permissions)
	}

	if wasConnecting {
		util.LogInfo("connected to domain, session %s", info.SessionUUID)
		h.setState(StateConnected)
	}
}

// processConnectionDenied terminates the handshake with the domain's
// reason: code(1) + len(2) + utf-8 reason.
func (h *Handler) processConnectionDenied(msg *message.ReceivedMessage) {
	payload := msg.Payload()
	reason := "connection denied"
	if len(payload) >= 3 {
		n := int(binary.LittleEndian.Uint16(payload[1:3]))
		if 3+n <= len(payload) {
			reason = string(payload[3 : 3+n])
		}
	}

	h.mu.Lock()
	h.refusalReason = reason
	cancel := h.checkinCancel
	h.checkinCancel = nil
	h.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	util.LogWarning("domain refused connection: %s", reason)
	h.setState(StateRefused)
}

// processConnectionToken updates the handshake nonce. A token arriving
// before the domain address is known is ignored; that is not an error.
func (h *Handler) processConnectionToken(msg *message.ReceivedMessage) {
	payload := msg.Payload()
	if len(payload) < 16 {
		util.LogWarning("dropping short connection token from %s", msg.Sender)
		util.Stats.AddDropped()
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.domainAddr.IsNull() {
		return
	}
	copy(h.token[:], payload[:16])
	h.silentCheckins = 0
}

// processRemovedNode kills the node named in the notification.
func (h *Handler) processRemovedNode(msg *message.ReceivedMessage) {
	payload := msg.Payload()
	if len(payload) < 16 {
		util.LogWarning("dropping short removed-node notification from %s", msg.Sender)
		util.Stats.AddDropped()
		return
	}
	var id uuid.UUID
	copy(id[:], payload[:16])
	h.nodeList.KillNodeWithUUID(id)
}

// ConnectionToken returns the current handshake nonce.
func (h *Handler) ConnectionToken() uuid.UUID {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.token
}

func (h *Handler) setState(s State) {
	h.mu.Lock()
	if h.state == s {
		h.mu.Unlock()
		return
	}
	prev := h.state
	h.state = s
	h.mu.Unlock()

	util.LogDebug("domain connection %s -> %s", prev, s)
	h.StateChanged.Emit(s)
}
