package client

import (
	"fmt"
	"sync"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

// defaultSTUN is used when no STUN servers are configured.
var defaultSTUN = []string{"stun:stun.l.google.com:19302"}

// rtcTransport is the production Transport over a pion data channel.
type rtcTransport struct {
	pc        *webrtc.PeerConnection
	events    chan TransportEvent
	mu        sync.Mutex
	dc        *webrtc.DataChannel
	closeOnce sync.Once
}

// NewHostTransport builds the host-side transport. The host creates the
// payload channel up front so it rides along with the offer.
func NewHostTransport(stunURLs []string) (Transport, error) {
	t, err := newRTCTransport(stunURLs)
	if err != nil {
		return nil, err
	}
	dc, err := t.pc.CreateDataChannel(payloadChannel, nil)
	if err != nil {
		t.Close()
		return nil, fmt.Errorf("%w: create data channel: %v", ErrPeerUnavailable, err)
	}
	t.bindChannel(dc)
	return t, nil
}

// NewGuestTransport builds the guest-side transport, which waits for the
// host's payload channel to arrive.
func NewGuestTransport(stunURLs []string) (Transport, error) {
	t, err := newRTCTransport(stunURLs)
	if err != nil {
		return nil, err
	}
	t.pc.OnDataChannel(func(dc *webrtc.DataChannel) {
		if dc.Label() != payloadChannel {
			return
		}
		t.bindChannel(dc)
	})
	return t, nil
}

func newRTCTransport(stunURLs []string) (*rtcTransport, error) {
	if len(stunURLs) == 0 {
		stunURLs = defaultSTUN
	}
	pc, err := webrtc.NewPeerConnection(webrtc.Configuration{
		ICEServers: []webrtc.ICEServer{{URLs: stunURLs}},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPeerUnavailable, err)
	}

	t := &rtcTransport{pc: pc, events: make(chan TransportEvent, 32)}

	pc.OnICECandidate(func(candidate *webrtc.ICECandidate) {
		if candidate == nil {
			return
		}
		t.emit(TransportEvent{Kind: EventCandidate, Candidate: candidate.ToJSON().Candidate})
	})

	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		log.Debug().Str("state", state.String()).Msg("peer connection state")
		switch state {
		case webrtc.PeerConnectionStateFailed,
			webrtc.PeerConnectionStateClosed,
			webrtc.PeerConnectionStateDisconnected:
			t.emit(TransportEvent{Kind: EventFailed, Err: fmt.Errorf("peer connection %s", state)})
		}
	})

	return t, nil
}

// bindChannel wires the payload channel's callbacks into the event stream.
func (t *rtcTransport) bindChannel(dc *webrtc.DataChannel) {
	t.mu.Lock()
	t.dc = dc
	t.mu.Unlock()

	dc.OnOpen(func() {
		t.emit(TransportEvent{Kind: EventOpen})
	})
	dc.OnMessage(func(msg webrtc.DataChannelMessage) {
		t.emit(TransportEvent{Kind: EventData, Data: msg.Data})
	})
}

func (t *rtcTransport) CreateOffer() (string, error) {
	offer, err := t.pc.CreateOffer(nil)
	if err != nil {
		return "", fmt.Errorf("create offer: %w", err)
	}
	if err := t.pc.SetLocalDescription(offer); err != nil {
		return "", fmt.Errorf("set local description: %w", err)
	}
	return offer.SDP, nil
}

func (t *rtcTransport) HandleOffer(sdp string) (string, error) {
	offer := webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: sdp}
	if err := t.pc.SetRemoteDescription(offer); err != nil {
		return "", fmt.Errorf("set remote description: %w", err)
	}
	answer, err := t.pc.CreateAnswer(nil)
	if err != nil {
		return "", fmt.Errorf("create answer: %w", err)
	}
	if err := t.pc.SetLocalDescription(answer); err != nil {
		return "", fmt.Errorf("set local description: %w", err)
	}
	return answer.SDP, nil
}

func (t *rtcTransport) HandleAnswer(sdp string) error {
	answer := webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: sdp}
	return t.pc.SetRemoteDescription(answer)
}

func (t *rtcTransport) AddCandidate(candidate string) error {
	return t.pc.AddICECandidate(webrtc.ICECandidateInit{Candidate: candidate})
}

func (t *rtcTransport) Send(data []byte) error {
	t.mu.Lock()
	dc := t.dc
	t.mu.Unlock()
	if dc == nil {
		return fmt.Errorf("payload channel not open")
	}
	return dc.Send(data)
}

func (t *rtcTransport) Events() <-chan TransportEvent {
	return t.events
}

func (t *rtcTransport) Close() error {
	var err error
	t.closeOnce.Do(func() {
		err = t.pc.Close()
	})
	return err
}

// emit forwards an event without ever blocking a pion callback. A full
// buffer means the session stopped consuming, so dropping is safe.
func (t *rtcTransport) emit(ev TransportEvent) {
	select {
	case t.events <- ev:
	default:
		log.Debug().Int("kind", int(ev.Kind)).Msg("transport event dropped")
	}
}
