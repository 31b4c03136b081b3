// Package server is the rendezvous relay: a WebSocket signalling service
// that pairs the host and guest of one ephemeral room and forwards their
// offer/answer/candidate exchange. It never sees the document itself; the
// payload travels peer to peer.
package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Server relays signalling between the two peers of each room.
type Server struct {
	rooms    *Registry
	upgrader websocket.Upgrader
}

// New creates a relay server with an empty room registry.
func New() *Server {
	return &Server{
		rooms: NewRegistry(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Rooms exposes the registry, mainly for tests and diagnostics.
func (s *Server) Rooms() *Registry {
	return s.rooms
}

// Handler returns the HTTP routes: the per-room WebSocket endpoint and a
// health check.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/ws/{room}", s.handleWebSocket)
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})
	return r
}

// ListenAndServe runs the relay on addr until the listener fails.
func (s *Server) ListenAndServe(addr string) error {
	log.Info().Str("addr", addr).Msg("rendezvous relay listening")
	return http.ListenAndServe(addr, s.Handler())
}

// handleWebSocket owns one peer connection for its whole lifetime: join,
// relay, and cleanup.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	roomID := mux.Vars(r)["room"]

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Str("room", roomID).Msg("websocket upgrade failed")
		return
	}

	p := &peer{conn: conn}
	defer p.close()

	// The first message must declare the peer's role.
	var join SignalMessage
	if err := conn.ReadJSON(&join); err != nil {
		return
	}
	if join.Type != TypeJoin || (join.Role != RoleHost && join.Role != RoleGuest) {
		p.send(SignalMessage{Type: TypeError, Error: ErrorBadJoin})
		return
	}
	p.role = join.Role

	room, err := s.join(roomID, p)
	if err != nil {
		p.send(SignalMessage{Type: TypeError, Error: errorCode(err)})
		return
	}

	log.Info().Str("room", roomID).Str("role", p.role).Msg("peer joined")
	defer s.leave(room, p)

	// Relay loop: everything after the join is forwarded verbatim to the
	// other side of the room, in arrival order.
	for {
		var msg SignalMessage
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		if other := room.counterpart(p.role); other != nil {
			if err := other.send(msg); err != nil {
				log.Warn().Err(err).Str("room", roomID).Msg("relay write failed")
			}
		}
	}
}

// join places a peer in its room slot. Hosts create the room, guests find it
// and wake the host with a peer_joined notification.
func (s *Server) join(roomID string, p *peer) (*Room, error) {
	if p.role == RoleHost {
		return s.rooms.Create(roomID, p)
	}

	room, err := s.rooms.Get(roomID)
	if err != nil {
		return nil, err
	}
	if err := room.attachGuest(p); err != nil {
		return nil, err
	}
	if host := room.counterpart(RoleGuest); host != nil {
		host.send(SignalMessage{Type: TypePeerJoined, Room: roomID})
	}
	return room, nil
}

// leave undoes join. A departing host kills the whole room (single-use); a
// departing guest just frees its slot. The remaining side gets a bye.
func (s *Server) leave(room *Room, p *peer) {
	if other := room.counterpart(p.role); other != nil {
		other.send(SignalMessage{Type: TypeBye, Room: room.ID})
	}
	if p.role == RoleHost {
		s.rooms.Remove(room.ID)
	} else {
		room.detachGuest()
	}
	log.Info().Str("room", room.ID).Str("role", p.role).Msg("peer left")
}

// errorCode maps registry errors to wire error codes.
func errorCode(err error) string {
	switch {
	case errors.Is(err, errRoomExists):
		return ErrorRoomExists
	case errors.Is(err, errRoomNotFound):
		return ErrorRoomNotFound
	case errors.Is(err, errRoomFull):
		return ErrorRoomFull
	default:
		return "internal"
	}
}
