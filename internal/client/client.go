// Package client assembles the protocol stack into a working domain
// client: signaling, transport, packet receive pipeline, node registry
// and the domain connection handler.
package client

import (
	"context"
	"fmt"
	"sync"

	"github.com/namark/vircadia-web-sdk/internal/config"
	"github.com/namark/vircadia-web-sdk/internal/dispatch"
	"github.com/namark/vircadia-web-sdk/internal/domain"
	"github.com/namark/vircadia-web-sdk/internal/nodes"
	"github.com/namark/vircadia-web-sdk/internal/packets"
	"github.com/namark/vircadia-web-sdk/internal/signaling"
	"github.com/namark/vircadia-web-sdk/internal/transport"
	"github.com/namark/vircadia-web-sdk/internal/udt"
	"github.com/namark/vircadia-web-sdk/internal/util"
)

// byteSender carries outbound wire bytes to a peer address. The
// transport satisfies it; tests swap in a capture.
type byteSender interface {
	Send(data []byte, reliable bool) error
}

// Client owns one domain connection end to end.
type Client struct {
	cfg config.Config

	mu     sync.Mutex
	sender byteSender
	// seqs holds the next sequence number per destination.
	seqs map[udt.SockAddr]udt.SequenceNumber

	NodeList *nodes.NodeList
	Receiver *dispatch.Receiver
	Handler  *domain.Handler
}

// New builds an unconnected client from cfg. The transport is attached
// later by Start, once signaling has produced one.
func New(cfg config.Config) *Client {
	c := &Client{
		cfg:  cfg,
		seqs: make(map[udt.SockAddr]udt.SequenceNumber),
	}

	c.NodeList = nodes.NewNodeList(c.sendPacket)
	for _, name := range cfg.InterestSet {
		t := nodes.NodeTypeFromName(name)
		if t == nodes.NodeTypeUnassigned {
			util.LogWarning("Ignoring unknown interest set entry %q", name)
			continue
		}
		c.NodeList.AddNodeTypesToInterestSet(t)
	}

	c.Receiver = dispatch.NewReceiver(c.NodeList)
	c.Handler = domain.NewHandler(c.NodeList, c.Receiver, c.sendPacket)
	c.Handler.SetCheckinInterval(cfg.CheckinInterval)

	return c
}

// Start establishes the WebRTC transport through the signaling
// endpoint, wires it to the receive pipeline and begins connecting to
// the configured domain location. It returns once the transport is up;
// the connection handshake continues in the background.
func (c *Client) Start(ctx context.Context) error {
	if c.cfg.SignalingURL == "" {
		return fmt.Errorf("no signaling URL configured")
	}

	domainAddr := domainSockAddr(c.cfg.SignalingURL)
	tr, err := signaling.Establish(ctx, c.cfg.SignalingURL, domainAddr, c.cfg.StunServers)
	if err != nil {
		return fmt.Errorf("establish transport: %w", err)
	}

	c.attach(tr)

	tr.OnBytes(c.Receiver.ReceiveBytes)
	go func() {
		select {
		case <-tr.Done():
			c.Handler.TransportFailed("peer connection closed")
		case <-ctx.Done():
		}
	}()

	c.Handler.SetDomainSockAddr(tr.PeerAddr())
	c.Handler.Connect(c.cfg.Location)
	return nil
}

// Stop disconnects from the domain and tears down the transport.
func (c *Client) Stop() {
	c.Handler.Disconnect()

	c.mu.Lock()
	sender := c.sender
	c.sender = nil
	c.mu.Unlock()

	if tr, ok := sender.(*transport.Transport); ok && tr != nil {
		if err := tr.Close(); err != nil {
			util.LogDebug("Transport close: %v", err)
		}
	}
}

func (c *Client) attach(s byteSender) {
	c.mu.Lock()
	c.sender = s
	c.mu.Unlock()
}

// sendPacket stamps the next sequence number for the destination and
// hands the wire bytes to the transport. It is the single send path
// for every outbound packet.
func (c *Client) sendPacket(p *packets.NLPacket, addr udt.SockAddr) error {
	c.mu.Lock()
	sender := c.sender
	if sender == nil {
		c.mu.Unlock()
		return fmt.Errorf("no transport attached")
	}
	seq := c.seqs[addr]
	c.seqs[addr] = seq.Next()
	c.mu.Unlock()

	p.WriteSequenceNumber(seq)
	if err := sender.Send(p.Bytes(), p.IsReliable()); err != nil {
		return fmt.Errorf("send %v to %v: %w", p.Type(), addr, err)
	}
	return nil
}

// domainSockAddr derives the pseudo socket address used to identify
// the domain peer on the data channels. WebRTC hides the real remote
// address, so the identity only has to be stable and unique per
// transport.
func domainSockAddr(url string) udt.SockAddr {
	var h uint32 = 2166136261
	for i := 0; i < len(url); i++ {
		h ^= uint32(url[i])
		h *= 16777619
	}
	if h == 0 {
		h = 1
	}
	return udt.SockAddr{Host: h, Port: 40102}
}
