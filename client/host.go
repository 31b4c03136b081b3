package client

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// HostState is the host side of the rendezvous state machine.
type HostState int

const (
	HostIdle HostState = iota
	HostRoomCreated
	HostListening
	HostPeerConnected
	HostDelivered
	HostClosed
)

// String returns the state name for logs and status lines.
func (s HostState) String() string {
	switch s {
	case HostIdle:
		return "idle"
	case HostRoomCreated:
		return "room-created"
	case HostListening:
		return "listening"
	case HostPeerConnected:
		return "peer-connected"
	case HostDelivered:
		return "delivered"
	case HostClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// DefaultHostGrace is how long a delivered session lingers so the payload
// can flush before teardown.
const DefaultHostGrace = 3 * time.Second

// HostConfig wires a host session to its collaborators.
type HostConfig struct {
	Signal    Signaller
	Transport Transport
	Text      string          // the document to deliver, raw
	Grace     time.Duration   // post-delivery linger (default DefaultHostGrace)
	OnState   func(HostState) // optional observer
}

// HostSession delivers one document to the first guest that connects, then
// closes. It never sends more than one payload message.
type HostSession struct {
	roomID string
	cfg    HostConfig

	mu    sync.Mutex
	state HostState
	err   error

	done        chan struct{}
	destroyOnce sync.Once
}

// NewHost creates a host session for a freshly minted room id. The session
// is in RoomCreated until Start announces the room to the relay.
func NewHost(roomID string, cfg HostConfig) *HostSession {
	if cfg.Grace <= 0 {
		cfg.Grace = DefaultHostGrace
	}
	h := &HostSession{roomID: roomID, cfg: cfg, done: make(chan struct{})}
	h.setState(HostRoomCreated)
	return h
}

// RoomID returns the session's room token.
func (h *HostSession) RoomID() string {
	return h.roomID
}

// State returns the current state.
func (h *HostSession) State() HostState {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// Err returns the error that ended the session, if any.
func (h *HostSession) Err() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.err
}

// Start opens the named room on the relay and begins listening for a guest.
// On failure the session surfaces the error and ends up Closed.
func (h *HostSession) Start() error {
	join := SignalMessage{Type: TypeJoin, Room: h.roomID, Role: RoleHost}
	if err := h.cfg.Signal.Send(join); err != nil {
		werr := fmt.Errorf("%w: %v", ErrRendezvousUnavailable, err)
		h.fail(werr)
		h.Destroy()
		return werr
	}
	h.setState(HostListening)
	go h.run()
	return nil
}

// Destroy tears the session down unconditionally. Idempotent.
func (h *HostSession) Destroy() {
	h.destroyOnce.Do(func() {
		close(h.done)
		h.cfg.Transport.Close()
		h.cfg.Signal.Close()
		h.setState(HostClosed)
		log.Debug().Str("room", h.roomID).Msg("host session destroyed")
	})
}

// run is the session's event loop. All transitions happen here, in the
// order the channels produce events.
func (h *HostSession) run() {
	var grace <-chan time.Time

	for {
		select {
		case <-h.done:
			return

		case msg, ok := <-h.cfg.Signal.Messages():
			if !ok {
				// Relay connection died. After delivery that is routine;
				// before it, the exchange is lost.
				if h.State() != HostDelivered {
					h.fail(fmt.Errorf("%w: signalling channel closed", ErrRendezvousUnavailable))
				}
				h.Destroy()
				return
			}
			if h.handleSignal(msg) {
				return
			}

		case ev := <-h.cfg.Transport.Events():
			done, graceTimer := h.handleTransport(ev)
			if done {
				return
			}
			if graceTimer != nil {
				grace = graceTimer
			}

		case <-grace:
			h.Destroy()
			return
		}
	}
}

// handleSignal processes one relay message; it reports whether the loop
// should exit.
func (h *HostSession) handleSignal(msg SignalMessage) bool {
	switch msg.Type {
	case TypeError:
		h.fail(fmt.Errorf("%w: relay refused room: %s", ErrRendezvousUnavailable, msg.Error))
		h.Destroy()
		return true

	case TypePeerJoined:
		// First connection wins. Anything arriving after Listening races
		// against teardown and loses.
		if h.State() != HostListening {
			log.Debug().Str("room", h.roomID).Msg("late guest ignored")
			return false
		}
		h.setState(HostPeerConnected)
		offer, err := h.cfg.Transport.CreateOffer()
		if err != nil {
			h.fail(fmt.Errorf("%w: %v", ErrPeerUnavailable, err))
			h.Destroy()
			return true
		}
		h.cfg.Signal.Send(SignalMessage{Type: TypeOffer, SDP: offer})

	case TypeAnswer:
		if err := h.cfg.Transport.HandleAnswer(msg.SDP); err != nil {
			log.Warn().Err(err).Str("room", h.roomID).Msg("bad answer")
		}

	case TypeCandidate:
		if err := h.cfg.Transport.AddCandidate(msg.Candidate); err != nil {
			log.Warn().Err(err).Str("room", h.roomID).Msg("bad candidate")
		}

	case TypeBye:
		// Guest left; the room stays open for the grace or until teardown.
		log.Debug().Str("room", h.roomID).Msg("guest left")
	}
	return false
}

// handleTransport processes one transport event. It reports whether the
// loop should exit and, after delivery, hands back the grace timer.
func (h *HostSession) handleTransport(ev TransportEvent) (exit bool, grace <-chan time.Time) {
	switch ev.Kind {
	case EventCandidate:
		h.cfg.Signal.Send(SignalMessage{Type: TypeCandidate, Candidate: ev.Candidate})

	case EventOpen:
		// Exactly one payload per session; the state guard makes a second
		// send structurally impossible.
		if h.State() != HostPeerConnected {
			return false, nil
		}
		data, err := json.Marshal(payloadMessage{Text: h.cfg.Text})
		if err != nil {
			h.fail(fmt.Errorf("marshal payload: %w", err))
			h.Destroy()
			return true, nil
		}
		if err := h.cfg.Transport.Send(data); err != nil {
			h.fail(fmt.Errorf("%w: send payload: %v", ErrPeerUnavailable, err))
			h.Destroy()
			return true, nil
		}
		h.setState(HostDelivered)
		log.Info().Str("room", h.roomID).Int("bytes", len(data)).Msg("payload delivered")
		return false, time.After(h.cfg.Grace)

	case EventFailed:
		if h.State() != HostDelivered {
			h.fail(fmt.Errorf("%w: %v", ErrRendezvousUnavailable, ev.Err))
		}
		h.Destroy()
		return true, nil
	}
	return false, nil
}

func (h *HostSession) setState(s HostState) {
	h.mu.Lock()
	h.state = s
	h.mu.Unlock()
	log.Debug().Str("room", h.roomID).Str("state", s.String()).Msg("host state")
	if h.cfg.OnState != nil {
		h.cfg.OnState(s)
	}
}

func (h *HostSession) fail(err error) {
	h.mu.Lock()
	if h.err == nil {
		h.err = err
	}
	h.mu.Unlock()
	log.Warn().Err(err).Str("room", h.roomID).Msg("host session failed")
}
