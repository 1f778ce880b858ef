// Package transport carries framed packet bytes over a WebRTC
// PeerConnection with one reliable and one unreliable data channel.
// It performs no framing or dispatch of its own: payloads are opaque.
package transport

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/pion/webrtc/v4"

	"github.com/namark/vircadia-web-sdk/internal/udt"
	"github.com/namark/vircadia-web-sdk/internal/util"
)

// Transport wraps a PeerConnection and its data channel pair. The
// caller performs signaling through the exposed methods and then moves
// raw packet buffers with Send / OnBytes.
//
// Its lifecycle is governed by the reliable channel's state and the
// context passed at construction. The PeerConnection state is recorded
// but does not drive open/close decisions.
type Transport struct {
	pc         *webrtc.PeerConnection
	reliable   *webrtc.DataChannel
	unreliable *webrtc.DataChannel

	sender     *sender
	openSignal chan struct{}

	peerAddr udt.SockAddr

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.RWMutex
	pcState webrtc.PeerConnectionState
}

// NewTransport creates a Transport for the peer reachable behind the
// negotiated connection. peerAddr is the address inbound packets are
// attributed to; the datagram protocol's addressing survives the
// tunnel even though WebRTC itself has no sockets.
func NewTransport(ctx context.Context, peerAddr udt.SockAddr, stunServers []string) (*Transport, error) {
	pc, err := newPeerConnection(stunServers)
	if err != nil {
		return nil, fmt.Errorf("create peer connection: %w", err)
	}

	reliable, unreliable, err := newDataChannels(pc)
	if err != nil {
		pc.Close()
		return nil, fmt.Errorf("create data channels: %w", err)
	}

	tCtx, tCancel := context.WithCancel(ctx)

	t := &Transport{
		pc:         pc,
		reliable:   reliable,
		unreliable: unreliable,
		openSignal: make(chan struct{}),
		peerAddr:   peerAddr,
		ctx:        tCtx,
		cancel:     tCancel,
		pcState:    webrtc.PeerConnectionStateNew,
	}

	var openOnce sync.Once
	reliable.OnOpen(func() {
		openOnce.Do(func() { close(t.openSignal) })
	})

	reliable.OnClose(func() {
		util.LogDebug("reliable channel to %s closed", peerAddr)
		tCancel()
	})

	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		util.LogDebug("peer connection state: %s", state.String())
		t.mu.Lock()
		t.pcState = state
		t.mu.Unlock()
	})

	t.sender = newSender(tCtx, reliable, t.openSignal)

	return t, nil
}

// Ready returns a channel closed when the reliable channel is open.
func (t *Transport) Ready() <-chan struct{} {
	return t.openSignal
}

// Done returns a channel closed when the Transport is shut down.
func (t *Transport) Done() <-chan struct{} {
	return t.ctx.Done()
}

// Close shuts down the channels and the PeerConnection.
func (t *Transport) Close() error {
	t.cancel()
	return errors.Join(t.reliable.Close(), t.unreliable.Close(), t.pc.Close())
}

// PeerAddr returns the address this transport's peer is known by.
func (t *Transport) PeerAddr() udt.SockAddr {
	return t.peerAddr
}

// ConnectionState returns the last observed PeerConnection state.
func (t *Transport) ConnectionState() webrtc.PeerConnectionState {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.pcState
}

// Signaling.

// CreateOffer generates an SDP offer.
func (t *Transport) CreateOffer() (webrtc.SessionDescription, error) {
	return t.pc.CreateOffer(nil)
}

// CreateAnswer generates an SDP answer.
func (t *Transport) CreateAnswer() (webrtc.SessionDescription, error) {
	return t.pc.CreateAnswer(nil)
}

// SetLocalDescription applies the local SDP.
func (t *Transport) SetLocalDescription(sdp webrtc.SessionDescription) error {
	return t.pc.SetLocalDescription(sdp)
}

// SetRemoteDescription applies the remote SDP.
func (t *Transport) SetRemoteDescription(sdp webrtc.SessionDescription) error {
	return t.pc.SetRemoteDescription(sdp)
}

// OnICECandidate registers a callback invoked whenever a new local ICE
// candidate is gathered. A nil candidate signals the end of gathering.
func (t *Transport) OnICECandidate(fn func(*webrtc.ICECandidate)) {
	t.pc.OnICECandidate(fn)
}

// AddICECandidate adds a remote ICE candidate received through signaling.
func (t *Transport) AddICECandidate(candidate webrtc.ICECandidateInit) error {
	return t.pc.AddICECandidate(candidate)
}

// Data.

// Send hands one framed packet to the peer. Reliable sends go through
// the single-writer goroutine with backpressure; unreliable sends are
// best effort and drop when the channel is not open.
func (t *Transport) Send(data []byte, reliable bool) error {
	if len(data) > udt.MaxPacketSize {
		return fmt.Errorf("packet of %d bytes exceeds maximum %d", len(data), udt.MaxPacketSize)
	}

	if reliable {
		t.sender.send(t.ctx, data)
		return nil
	}

	select {
	case <-t.openSignal:
	default:
		return fmt.Errorf("unreliable channel not open")
	}
	if err := t.unreliable.Send(data); err != nil {
		return fmt.Errorf("unreliable send: %w", err)
	}
	util.Stats.AddSent(len(data))
	return nil
}

// OnBytes registers the callback invoked for every inbound channel
// message on either channel, attributed to the peer's address.
func (t *Transport) OnBytes(fn func(data []byte, sender udt.SockAddr)) {
	handler := func(msg webrtc.DataChannelMessage) {
		fn(msg.Data, t.peerAddr)
	}
	t.reliable.OnMessage(handler)
	t.unreliable.OnMessage(handler)
}
