// Package share models share links and the size-based delivery decision.
package share

import "strings"

// Mode is the delivery mode chosen for one share action.
type Mode int

const (
	// Inline embeds the full share link directly in a QR symbol.
	Inline Mode = iota + 1
	// Shortened asks an external service for a short URL first.
	Shortened
	// PeerTransfer moves the document over a direct peer channel; only a
	// room token travels in the link.
	PeerTransfer
)

// String returns the mode name for logs and status lines.
func (m Mode) String() string {
	switch m {
	case Inline:
		return "inline"
	case Shortened:
		return "shortened"
	case PeerTransfer:
		return "peer-transfer"
	default:
		return "unknown"
	}
}

// PeerPrefix marks a rendezvous fragment: '#p2p=<RoomId>'.
const PeerPrefix = "p2p="

// Default thresholds. QRLimit keeps inline links within comfortable QR
// capacity; HardCap is the point past which the shortening service is not
// even asked, to avoid dumping huge URLs on a third party.
const (
	DefaultQRLimit = 2300
	DefaultHardCap = 7000
)

// Thresholds holds the two ordered cut-offs driving the three-way branch.
// Deployments may tune the numbers; the ordering Inline < Shortened <
// PeerTransfer is fixed.
type Thresholds struct {
	QRLimit int
	HardCap int
}

// DefaultThresholds returns the stock cut-offs.
func DefaultThresholds() Thresholds {
	return Thresholds{QRLimit: DefaultQRLimit, HardCap: DefaultHardCap}
}

// Classify maps a candidate share-URL length to a delivery mode. Both
// thresholds are inclusive on the smaller side: a link of exactly QRLimit
// characters is still Inline, exactly HardCap is still Shortened.
func (t Thresholds) Classify(shareURLLen int) Mode {
	switch {
	case shareURLLen <= t.QRLimit:
		return Inline
	case shareURLLen <= t.HardCap:
		return Shortened
	default:
		return PeerTransfer
	}
}

// InlineLink builds the state-carrying form: origin + path + '#' + fragment.
func InlineLink(origin, path, fragment string) string {
	return origin + path + "#" + fragment
}

// PeerLink builds the rendezvous form: origin + path + '#p2p=' + roomID.
// It is short by construction, so it is always scannable no matter how large
// the document is.
func PeerLink(origin, path, roomID string) string {
	return origin + path + "#" + PeerPrefix + roomID
}

// ParsePeerFragment reports whether a URL fragment is a rendezvous fragment
// and extracts the room id. The two fragment forms are mutually exclusive
// and distinguished only by the literal prefix.
func ParsePeerFragment(fragment string) (roomID string, ok bool) {
	if !strings.HasPrefix(fragment, PeerPrefix) {
		return "", false
	}
	roomID = fragment[len(PeerPrefix):]
	return roomID, roomID != ""
}

// Fragment extracts the fragment portion of a share link, or "" when the
// link carries none.
func Fragment(link string) string {
	if i := strings.IndexByte(link, '#'); i >= 0 {
		return link[i+1:]
	}
	return ""
}
