// Package dispatch routes completed messages to per-type listeners
// and owns the inbound pipeline from raw transport bytes to delivery.
package dispatch

import (
	"sync"

	"github.com/namark/vircadia-web-sdk/internal/message"
	"github.com/namark/vircadia-web-sdk/internal/nodes"
	"github.com/namark/vircadia-web-sdk/internal/packets"
	"github.com/namark/vircadia-web-sdk/internal/udt"
	"github.com/namark/vircadia-web-sdk/internal/util"
)

// UnsourcedListener handles messages of types that carry no sender
// identity.
type UnsourcedListener func(*message.ReceivedMessage)

// SourcedListener additionally receives the registry's notion of the
// sending node; nil when the sender address is unknown.
type SourcedListener func(*message.ReceivedMessage, *nodes.Node)

// NodeResolver looks peers up by address. *nodes.NodeList satisfies it.
type NodeResolver interface {
	NodeWithAddr(udt.SockAddr) *nodes.Node
}

// listenerEntry is the tagged variant stored per type: exactly one of
// the two handlers is set.
type listenerEntry struct {
	sourced   SourcedListener
	unsourced UnsourcedListener
}

// Receiver parses inbound buffers, reassembles messages, and invokes
// the single listener registered for each protocol type synchronously
// on the calling goroutine. Delivery order equals completion order.
type Receiver struct {
	mu        sync.Mutex
	listeners map[packets.PacketType]listenerEntry

	resolver  NodeResolver
	assembler *message.Assembler
}

// NewReceiver creates a receiver resolving senders through resolver.
func NewReceiver(resolver NodeResolver) *Receiver {
	r := &Receiver{
		listeners: make(map[packets.PacketType]listenerEntry),
		resolver:  resolver,
	}
	r.assembler = message.NewAssembler(r.dispatch)
	return r
}

// RegisterListener installs the handler for an unsourced type.
// Registering again for the same type replaces the previous listener;
// there is at most one listener per type.
func (r *Receiver) RegisterListener(t packets.PacketType, fn UnsourcedListener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners[t] = listenerEntry{unsourced: fn}
}

// RegisterSourcedListener installs the handler for a sourced type,
// with the same replacement semantics.
func (r *Receiver) RegisterSourcedListener(t packets.PacketType, fn SourcedListener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners[t] = listenerEntry{sourced: fn}
}

// Reset discards all in-flight reassembly state.
func (r *Receiver) Reset() {
	r.assembler.Reset()
}

// ReceiveBytes is the transport's entry point: one call per received
// channel message. Malformed packets are logged and dropped; nothing
// here is fatal.
func (r *Receiver) ReceiveBytes(data []byte, sender udt.SockAddr) {
	util.Stats.AddRecv(len(data))

	base, err := udt.FromReceivedBytes(data, sender)
	if err != nil {
		util.LogWarning("dropping malformed packet from %s: %v", sender, err)
		util.Stats.AddDropped()
		return
	}

	if base.Obfuscation() != udt.NoObfuscation {
		// De-obfuscation is not implemented; the payload passes
		// through scrambled.
		util.LogDebug("packet from %s carries obfuscation level %d", sender, base.Obfuscation())
	}

	p, err := packets.FromBase(base)
	if err != nil {
		util.LogWarning("dropping packet from %s: %v", sender, err)
		util.Stats.AddDropped()
		return
	}

	if v := packets.VersionForType(p.Type()); p.Version() != v {
		util.LogWarning("dropping %s packet from %s: version %d, expected %d",
			p.Type(), sender, p.Version(), v)
		util.Stats.AddDropped()
		return
	}

	if p.Type().Verified() {
		if node := r.resolver.NodeWithAddr(sender); node != nil && !p.VerifyHash(node.ConnectionSecret) {
			util.LogWarning("dropping %s packet from %s: hash verification failed", p.Type(), sender)
			util.Stats.AddDropped()
			return
		}
	}

	r.assembler.Feed(p)
}

// dispatch hands one completed message to its registered listener.
func (r *Receiver) dispatch(msg *message.ReceivedMessage) {
	r.mu.Lock()
	entry, ok := r.listeners[msg.Type]
	r.mu.Unlock()

	if !ok {
		util.LogWarning("no listener for %s packets, dropping message from %s", msg.Type, msg.Sender)
		util.Stats.AddDropped()
		return
	}

	if entry.sourced != nil {
		entry.sourced(msg, r.resolver.NodeWithAddr(msg.Sender))
		return
	}
	entry.unsourced(msg)
}
