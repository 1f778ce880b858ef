package signaling

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/pion/webrtc/v4"

	"github.com/namark/vircadia-web-sdk/internal/transport"
	"github.com/namark/vircadia-web-sdk/internal/udt"
	"github.com/namark/vircadia-web-sdk/internal/util"
)

// Establish dials the domain's signaling endpoint, runs the full SDP
// and ICE exchange as the offering side, and returns a Transport whose
// data channels are open. The WebSocket is closed before returning;
// it exists only for the bootstrap.
func Establish(ctx context.Context, wsURL string, peerAddr udt.SockAddr, stunServers []string) (*transport.Transport, error) {
	wsConn, err := dial(ctx, wsURL)
	if err != nil {
		return nil, err
	}
	defer wsConn.Close()

	tr, err := transport.NewTransport(ctx, peerAddr, stunServers)
	if err != nil {
		return nil, fmt.Errorf("create transport: %w", err)
	}

	if err := exchange(ctx, wsConn, tr); err != nil {
		tr.Close()
		return nil, err
	}
	return tr, nil
}

// dial connects to the signaling WebSocket.
func dial(ctx context.Context, url string) (*websocket.Conn, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("connect to signaling server: %w", err)
	}
	return conn, nil
}

// exchange performs the offering side of the SDP/ICE handshake:
//   - Create an Offer and send it
//   - Receive the Answer and ICE candidates
//   - Block until the data channels open or an error occurs
func exchange(ctx context.Context, wsConn *websocket.Conn, tr *transport.Transport) error {
	var wsMu sync.Mutex
	wsSend := func(msg message) {
		wsMu.Lock()
		defer wsMu.Unlock()
		if err := wsConn.WriteJSON(msg); err != nil {
			// A WS closed after tr.Ready() fired is expected.
			select {
			case <-tr.Ready():
			default:
				util.LogWarning("signaling send failed: %v", err)
			}
		}
	}

	// Trickle ICE candidates.
	tr.OnICECandidate(func(c *webrtc.ICECandidate) {
		if c == nil {
			return
		}
		data, _ := json.Marshal(c.ToJSON())
		wsSend(message{Type: msgTypeCandidate, Candidate: string(data)})
	})

	// Create and send the offer.
	offer, err := tr.CreateOffer()
	if err != nil {
		return fmt.Errorf("CreateOffer: %w", err)
	}
	if err := tr.SetLocalDescription(offer); err != nil {
		return fmt.Errorf("SetLocalDescription: %w", err)
	}
	wsSend(message{Type: msgTypeOffer, SDP: offer.SDP})

	// Read loop: answer + ICE candidates.
	errCh := make(chan error, 1)
	go func() {
		for {
			var msg message
			if err := wsConn.ReadJSON(&msg); err != nil {
				errCh <- err
				return
			}
			switch msg.Type {
			case msgTypeAnswer:
				if err := tr.SetRemoteDescription(webrtc.SessionDescription{
					Type: webrtc.SDPTypeAnswer,
					SDP:  msg.SDP,
				}); err != nil {
					util.LogWarning("SetRemoteDescription failed: %v", err)
				}
			case msgTypeCandidate:
				var init webrtc.ICECandidateInit
				if err := json.Unmarshal([]byte(msg.Candidate), &init); err == nil {
					if err := tr.AddICECandidate(init); err != nil {
						util.LogWarning("AddICECandidate failed: %v", err)
					}
				}
			}
		}
	}()

	// Wait for the data channels to open.
	select {
	case <-tr.Ready():
		return nil
	case err := <-errCh:
		select {
		case <-tr.Ready():
			return nil
		default:
			return fmt.Errorf("signaling exchange: %w", err)
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}
