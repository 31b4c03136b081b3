// Package client implements the two sides of the rendezvous protocol: the
// Host, which owns a document and delivers it exactly once, and the Guest,
// which connects with a scanned room id and receives it. Each session runs
// its own event loop; its state table is the single source of truth.
package client

import (
	"errors"

	"github.com/google/uuid"
)

var (
	// ErrRendezvousUnavailable means the signalling channel could not be
	// established or died before the exchange completed.
	ErrRendezvousUnavailable = errors.New("rendezvous unavailable")

	// ErrPeerUnavailable means the peer transport could not be set up at all.
	ErrPeerUnavailable = errors.New("peer transport unavailable")
)

// payloadChannel names the single data channel carrying the document.
const payloadChannel = "payload"

// payloadMessage is the one message a host delivers per session. The text is
// raw, not the encoded fragment: no URL-length constraint applies on a
// direct channel.
type payloadMessage struct {
	Text string `json:"text"`
}

// NewRoomID mints a fresh room token. Random, unguessable by construction,
// valid for one rendezvous exchange and never reused.
func NewRoomID() string {
	return uuid.NewString()
}

// Session is a live rendezvous exchange, owned by the orchestrator.
type Session interface {
	RoomID() string
	// Destroy tears the session down. Idempotent: destroying an
	// already-closed session is a no-op, not an error.
	Destroy()
}
