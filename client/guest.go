package client

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// GuestState is the guest side of the rendezvous state machine.
type GuestState int

const (
	GuestIdle GuestState = iota
	GuestConnecting
	GuestReceiving
	GuestDone
	GuestFailed
)

// String returns the state name for logs and status lines.
func (s GuestState) String() string {
	switch s {
	case GuestIdle:
		return "idle"
	case GuestConnecting:
		return "connecting"
	case GuestReceiving:
		return "receiving"
	case GuestDone:
		return "done"
	case GuestFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Guest timing defaults. The connect timeout is the bound that keeps a
// guest from hanging on "connecting" forever when the host tab is gone.
const (
	DefaultGuestTimeout = 30 * time.Second
	DefaultGuestLinger  = time.Second
)

// GuestConfig wires a guest session to its collaborators.
type GuestConfig struct {
	Signal    Signaller
	Transport Transport
	Timeout   time.Duration    // bound on the connect phase (default DefaultGuestTimeout)
	Linger    time.Duration    // delay before teardown after Done (default DefaultGuestLinger)
	OnState   func(GuestState) // optional observer
	OnReceive func(text string)
}

// GuestSession connects to a scanned room and receives the document once.
// Payload messages after the first are ignored, never reprocessed.
type GuestSession struct {
	roomID string
	cfg    GuestConfig

	mu    sync.Mutex
	state GuestState
	err   error

	done        chan struct{}
	destroyOnce sync.Once
}

// NewGuest creates a guest session for the room id taken from a '#p2p='
// fragment.
func NewGuest(roomID string, cfg GuestConfig) *GuestSession {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultGuestTimeout
	}
	if cfg.Linger <= 0 {
		cfg.Linger = DefaultGuestLinger
	}
	return &GuestSession{roomID: roomID, cfg: cfg, done: make(chan struct{})}
}

// RoomID returns the session's room token.
func (g *GuestSession) RoomID() string {
	return g.roomID
}

// State returns the current state.
func (g *GuestSession) State() GuestState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Err returns the error that failed the session, if any.
func (g *GuestSession) Err() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.err
}

// Start joins the room and begins connecting.
func (g *GuestSession) Start() error {
	g.setState(GuestConnecting)
	join := SignalMessage{Type: TypeJoin, Room: g.roomID, Role: RoleGuest}
	if err := g.cfg.Signal.Send(join); err != nil {
		werr := fmt.Errorf("%w: %v", ErrRendezvousUnavailable, err)
		g.fail(werr)
		g.Destroy()
		return werr
	}
	go g.run()
	return nil
}

// Destroy tears the session down. Idempotent; the terminal Done/Failed
// state is left intact.
func (g *GuestSession) Destroy() {
	g.destroyOnce.Do(func() {
		close(g.done)
		g.cfg.Transport.Close()
		g.cfg.Signal.Close()
		log.Debug().Str("room", g.roomID).Msg("guest session destroyed")
	})
}

// run is the session's event loop. The connect timer bounds everything up
// to the channel open; a session that never sees an open event resolves to
// Failed instead of waiting forever.
func (g *GuestSession) run() {
	connect := time.NewTimer(g.cfg.Timeout)
	defer connect.Stop()

	var linger <-chan time.Time

	for {
		select {
		case <-g.done:
			return

		case <-connect.C:
			if g.State() == GuestConnecting {
				g.fail(fmt.Errorf("%w: no connection within %s (is the sharing side still open?)",
					ErrRendezvousUnavailable, g.cfg.Timeout))
			}
			g.Destroy()
			return

		case msg, ok := <-g.cfg.Signal.Messages():
			if !ok {
				if g.State() != GuestDone {
					g.fail(fmt.Errorf("%w: signalling channel closed", ErrRendezvousUnavailable))
				}
				g.Destroy()
				return
			}
			if g.handleSignal(msg) {
				return
			}

		case ev := <-g.cfg.Transport.Events():
			exit, lingerTimer := g.handleTransport(ev, connect)
			if exit {
				return
			}
			if lingerTimer != nil {
				linger = lingerTimer
			}

		case <-linger:
			g.Destroy()
			return
		}
	}
}

// handleSignal processes one relay message; it reports whether the loop
// should exit.
func (g *GuestSession) handleSignal(msg SignalMessage) bool {
	switch msg.Type {
	case TypeError:
		g.fail(fmt.Errorf("%w: relay refused join: %s", ErrRendezvousUnavailable, msg.Error))
		g.Destroy()
		return true

	case TypeOffer:
		answer, err := g.cfg.Transport.HandleOffer(msg.SDP)
		if err != nil {
			g.fail(fmt.Errorf("%w: %v", ErrPeerUnavailable, err))
			g.Destroy()
			return true
		}
		g.cfg.Signal.Send(SignalMessage{Type: TypeAnswer, SDP: answer})

	case TypeCandidate:
		if err := g.cfg.Transport.AddCandidate(msg.Candidate); err != nil {
			log.Warn().Err(err).Str("room", g.roomID).Msg("bad candidate")
		}

	case TypeBye:
		// Host closed the room. Fine after we are done, fatal before.
		if g.State() != GuestDone {
			g.fail(fmt.Errorf("%w: room closed before transfer completed", ErrRendezvousUnavailable))
		}
		g.Destroy()
		return true
	}
	return false
}

// handleTransport processes one transport event. After the payload lands
// it hands back the linger timer that delays teardown.
func (g *GuestSession) handleTransport(ev TransportEvent, connect *time.Timer) (exit bool, linger <-chan time.Time) {
	switch ev.Kind {
	case EventCandidate:
		g.cfg.Signal.Send(SignalMessage{Type: TypeCandidate, Candidate: ev.Candidate})

	case EventOpen:
		if g.State() == GuestConnecting {
			connect.Stop()
			g.setState(GuestReceiving)
		}

	case EventData:
		// Only the first payload message counts; a Done session ignores
		// the rest.
		if g.State() != GuestReceiving {
			log.Debug().Str("room", g.roomID).Msg("extra payload ignored")
			return false, nil
		}
		var payload payloadMessage
		if err := json.Unmarshal(ev.Data, &payload); err != nil {
			g.fail(fmt.Errorf("%w: malformed payload: %v", ErrRendezvousUnavailable, err))
			g.Destroy()
			return true, nil
		}
		log.Info().Str("room", g.roomID).Int("bytes", len(ev.Data)).Msg("payload received")
		if g.cfg.OnReceive != nil {
			g.cfg.OnReceive(payload.Text)
		}
		g.setState(GuestDone)
		return false, time.After(g.cfg.Linger)

	case EventFailed:
		if g.State() != GuestDone {
			g.fail(fmt.Errorf("%w: %v", ErrRendezvousUnavailable, ev.Err))
		}
		g.Destroy()
		return true, nil
	}
	return false, nil
}

func (g *GuestSession) setState(s GuestState) {
	g.mu.Lock()
	g.state = s
	g.mu.Unlock()
	log.Debug().Str("room", g.roomID).Str("state", s.String()).Msg("guest state")
	if g.cfg.OnState != nil {
		g.cfg.OnState(s)
	}
}

func (g *GuestSession) fail(err error) {
	g.mu.Lock()
	if g.err == nil {
		g.err = err
	}
	g.mu.Unlock()
	g.setState(GuestFailed)
	log.Warn().Err(err).Str("room", g.roomID).Msg("guest session failed")
}
