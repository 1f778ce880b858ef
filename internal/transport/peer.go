package transport

import (
	"github.com/pion/webrtc/v4"
)

// DefaultSTUNServers are used for ICE candidate gathering when the
// configuration does not name its own.
var DefaultSTUNServers = []string{
	"stun:stun.l.google.com:19302",
	"stun:stun1.l.google.com:19302",
}

// newPeerConnection creates a PeerConnection configured with the given
// STUN servers.
func newPeerConnection(stunServers []string) (*webrtc.PeerConnection, error) {
	if len(stunServers) == 0 {
		stunServers = DefaultSTUNServers
	}
	config := webrtc.Configuration{
		ICEServers: []webrtc.ICEServer{
			{URLs: stunServers},
		},
	}
	return webrtc.NewPeerConnection(config)
}

// newDataChannels creates the pre-negotiated channel pair: a reliable
// ordered channel for messages whose types require ordering, and an
// unordered unreliable channel for frame-style traffic. Negotiated
// mode lets both ends create the channels independently without
// relying on OnDataChannel.
func newDataChannels(pc *webrtc.PeerConnection) (reliable, unreliable *webrtc.DataChannel, err error) {
	negotiated := true

	ordered := true
	reliableID := uint16(0)
	reliable, err = pc.CreateDataChannel("reliable", &webrtc.DataChannelInit{
		Ordered:    &ordered,
		Negotiated: &negotiated,
		ID:         &reliableID,
	})
	if err != nil {
		return nil, nil, err
	}

	unordered := false
	retransmits := uint16(0)
	unreliableID := uint16(1)
	unreliable, err = pc.CreateDataChannel("unreliable", &webrtc.DataChannelInit{
		Ordered:        &unordered,
		MaxRetransmits: &retransmits,
		Negotiated:     &negotiated,
		ID:             &unreliableID,
	})
	if err != nil {
		return nil, nil, err
	}

	return reliable, unreliable, nil
}
