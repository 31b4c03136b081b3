package server

// SignalMessage is a signalling message relayed between host and guest.
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

// Peer roles. The host creates the room and owns the document; the guest
// connects with a scanned room id.
const (
	RoleHost  = "host"
	RoleGuest = "guest"
)

// Error codes carried in the Error field of a TypeError message.
const (
	ErrorRoomExists   = "room_exists"
	ErrorRoomNotFound = "room_not_found"
	ErrorRoomFull     = "room_full"
	ErrorBadJoin      = "bad_join"
)
