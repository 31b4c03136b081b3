package server

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startRelay(t *testing.T) (*Server, string) {
	t.Helper()
	s := New()
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return s, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, wsURL, room string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(wsURL+"/ws/"+room, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMsg(t *testing.T, conn *websocket.Conn) SignalMessage {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg SignalMessage
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestHostGuestRelay(t *testing.T) {
	_, wsURL := startRelay(t)

	host := dial(t, wsURL, "room-1")
	require.NoError(t, host.WriteJSON(SignalMessage{Type: TypeJoin, Role: RoleHost}))

	guest := dial(t, wsURL, "room-1")
	require.NoError(t, guest.WriteJSON(SignalMessage{Type: TypeJoin, Role: RoleGuest}))

	// Host learns about the guest.
	msg := readMsg(t, host)
	assert.Equal(t, TypePeerJoined, msg.Type)
	assert.Equal(t, "room-1", msg.Room)

	// Offer travels host -> guest.
	require.NoError(t, host.WriteJSON(SignalMessage{Type: TypeOffer, SDP: "offer-sdp"}))
	msg = readMsg(t, guest)
	assert.Equal(t, TypeOffer, msg.Type)
	assert.Equal(t, "offer-sdp", msg.SDP)

	// Answer travels guest -> host.
	require.NoError(t, guest.WriteJSON(SignalMessage{Type: TypeAnswer, SDP: "answer-sdp"}))
	msg = readMsg(t, host)
	assert.Equal(t, TypeAnswer, msg.Type)
	assert.Equal(t, "answer-sdp", msg.SDP)

	// Candidates relay both ways, in order.
	require.NoError(t, host.WriteJSON(SignalMessage{Type: TypeCandidate, Candidate: "c1"}))
	require.NoError(t, host.WriteJSON(SignalMessage{Type: TypeCandidate, Candidate: "c2"}))
	assert.Equal(t, "c1", readMsg(t, guest).Candidate)
	assert.Equal(t, "c2", readMsg(t, guest).Candidate)
}

func TestHostRoomCollision(t *testing.T) {
	s, wsURL := startRelay(t)

	first := dial(t, wsURL, "room-dup")
	require.NoError(t, first.WriteJSON(SignalMessage{Type: TypeJoin, Role: RoleHost}))

	// Give the relay time to register the first host.
	require.Eventually(t, func() bool { return s.Rooms().Len() == 1 },
		time.Second, 10*time.Millisecond)

	second := dial(t, wsURL, "room-dup")
	require.NoError(t, second.WriteJSON(SignalMessage{Type: TypeJoin, Role: RoleHost}))

	msg := readMsg(t, second)
	assert.Equal(t, TypeError, msg.Type)
	assert.Equal(t, ErrorRoomExists, msg.Error)
}

func TestGuestRoomNotFound(t *testing.T) {
	_, wsURL := startRelay(t)

	guest := dial(t, wsURL, "no-such-room")
	require.NoError(t, guest.WriteJSON(SignalMessage{Type: TypeJoin, Role: RoleGuest}))

	msg := readMsg(t, guest)
	assert.Equal(t, TypeError, msg.Type)
	assert.Equal(t, ErrorRoomNotFound, msg.Error)
}

func TestSecondGuestRefused(t *testing.T) {
	_, wsURL := startRelay(t)

	host := dial(t, wsURL, "room-2")
	require.NoError(t, host.WriteJSON(SignalMessage{Type: TypeJoin, Role: RoleHost}))

	first := dial(t, wsURL, "room-2")
	require.NoError(t, first.WriteJSON(SignalMessage{Type: TypeJoin, Role: RoleGuest}))
	readMsg(t, host) // peer_joined

	second := dial(t, wsURL, "room-2")
	require.NoError(t, second.WriteJSON(SignalMessage{Type: TypeJoin, Role: RoleGuest}))

	msg := readMsg(t, second)
	assert.Equal(t, TypeError, msg.Type)
	assert.Equal(t, ErrorRoomFull, msg.Error)
}

func TestBadJoinRefused(t *testing.T) {
	_, wsURL := startRelay(t)

	conn := dial(t, wsURL, "room-3")
	require.NoError(t, conn.WriteJSON(SignalMessage{Type: TypeOffer, SDP: "x"}))

	msg := readMsg(t, conn)
	assert.Equal(t, TypeError, msg.Type)
	assert.Equal(t, ErrorBadJoin, msg.Error)
}

func TestHostLeavingKillsRoom(t *testing.T) {
	s, wsURL := startRelay(t)

	host := dial(t, wsURL, "room-4")
	require.NoError(t, host.WriteJSON(SignalMessage{Type: TypeJoin, Role: RoleHost}))

	guest := dial(t, wsURL, "room-4")
	require.NoError(t, guest.WriteJSON(SignalMessage{Type: TypeJoin, Role: RoleGuest}))
	readMsg(t, host) // peer_joined

	host.Close()

	// Guest is told the room is gone and the id becomes free.
	msg := readMsg(t, guest)
	assert.Equal(t, TypeBye, msg.Type)
	require.Eventually(t, func() bool { return s.Rooms().Len() == 0 },
		time.Second, 10*time.Millisecond)
}
