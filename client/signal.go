package client

import (
	"fmt"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// SignalMessage mirrors the relay's wire format.
type SignalMessage struct {
	Type      string `json:"type"`
	Room      string `json:"room,omitempty"`
	Role      string `json:"role,omitempty"`
	SDP       string `json:"sdp,omitempty"`
	Candidate string `json:"candidate,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Message types.
const (
	TypeJoin       = "join"
	TypePeerJoined = "peer_joined"
	TypeOffer      = "offer"
	TypeAnswer     = "answer"
	TypeCandidate  = "candidate"
	TypeBye        = "bye"
	TypeError      = "error"
)

// Peer roles.
const (
	RoleHost  = "host"
	RoleGuest = "guest"
)

// Signaller is the only surface a session needs from the signalling layer.
// The Messages channel closes when the relay connection dies.
type Signaller interface {
	Send(msg SignalMessage) error
	Messages() <-chan SignalMessage
	Close() error
}

// wsSignaller is the production Signaller: one WebSocket to the relay's
// per-room endpoint.
type wsSignaller struct {
	conn      *websocket.Conn
	msgs      chan SignalMessage
	writeMu   sync.Mutex
	closeOnce sync.Once
}

// DialSignaller connects to the relay's room endpoint. signalURL is the
// relay base, e.g. "ws://localhost:8080".
func DialSignaller(signalURL, roomID string) (Signaller, error) {
	endpoint := strings.TrimRight(signalURL, "/") + "/ws/" + roomID
	conn, _, err := websocket.DefaultDialer.Dial(endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %v", ErrRendezvousUnavailable, endpoint, err)
	}

	s := &wsSignaller{conn: conn, msgs: make(chan SignalMessage, 16)}
	go s.readPump()
	return s, nil
}

func (s *wsSignaller) Send(msg SignalMessage) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteJSON(msg)
}

func (s *wsSignaller) Messages() <-chan SignalMessage {
	return s.msgs
}

func (s *wsSignaller) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = s.conn.Close()
	})
	return err
}

// readPump feeds inbound messages to the session in arrival order. The
// channel closes when the connection does.
func (s *wsSignaller) readPump() {
	defer close(s.msgs)
	for {
		var msg SignalMessage
		if err := s.conn.ReadJSON(&msg); err != nil {
			log.Debug().Err(err).Msg("signalling read loop ended")
			return
		}
		s.msgs <- msg
	}
}
