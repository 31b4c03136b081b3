package client

// TransportEventKind distinguishes transport event kinds.
type TransportEventKind int

const (
	// EventCandidate carries a local ICE candidate to relay to the peer.
	EventCandidate TransportEventKind = iota + 1
	// EventOpen fires when the payload channel is open for sending.
	EventOpen
	// EventData carries an inbound payload message.
	EventData
	// EventFailed fires when the peer connection is lost for good.
	EventFailed
)

// TransportEvent is one event from the peer-to-peer leg of a session.
type TransportEvent struct {
	Kind      TransportEventKind
	Candidate string
	Data      []byte
	Err       error
}

// Transport abstracts the peer-to-peer leg so sessions can be driven by a
// fake in tests and by WebRTC in production.
type Transport interface {
	// CreateOffer produces the local offer SDP (host side).
	CreateOffer() (string, error)
	// HandleOffer applies a remote offer and produces the answer SDP
	// (guest side).
	HandleOffer(sdp string) (string, error)
	// HandleAnswer applies the remote answer (host side).
	HandleAnswer(sdp string) error
	// AddCandidate applies a relayed remote ICE candidate.
	AddCandidate(candidate string) error
	// Send writes one message to the payload channel.
	Send(data []byte) error
	// Events streams transport events in the order they occur.
	Events() <-chan TransportEvent
	Close() error
}
