package client

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type guestHarness struct {
	session  *GuestSession
	signal   *fakeSignaller
	transp   *fakeTransport
	received atomic.Value // last received text
	count    atomic.Int32
}

func startGuest(t *testing.T, timeout time.Duration) *guestHarness {
	t.Helper()
	gh := &guestHarness{signal: newFakeSignaller(), transp: newFakeTransport()}
	gh.session = NewGuest("room-g", GuestConfig{
		Signal:    gh.signal,
		Transport: gh.transp,
		Timeout:   timeout,
		Linger:    20 * time.Millisecond,
		OnReceive: func(text string) {
			gh.received.Store(text)
			gh.count.Add(1)
		},
	})
	require.NoError(t, gh.session.Start())
	t.Cleanup(gh.session.Destroy)
	return gh
}

func TestGuestHappyPath(t *testing.T) {
	gh := startGuest(t, time.Minute)
	g := gh.session

	joins := gh.signal.sentOfType(TypeJoin)
	require.Len(t, joins, 1)
	assert.Equal(t, RoleGuest, joins[0].Role)
	assert.Equal(t, GuestConnecting, g.State())

	// Host's offer produces our answer.
	gh.signal.push(SignalMessage{Type: TypeOffer, SDP: "remote-offer"})
	require.Eventually(t, func() bool { return len(gh.signal.sentOfType(TypeAnswer)) == 1 },
		time.Second, 5*time.Millisecond)
	assert.Equal(t, "answer-sdp", gh.signal.sentOfType(TypeAnswer)[0].SDP)

	// Channel open, then the payload.
	gh.transp.emit(TransportEvent{Kind: EventOpen})
	require.Eventually(t, func() bool { return g.State() == GuestReceiving },
		time.Second, 5*time.Millisecond)

	gh.transp.emit(TransportEvent{Kind: EventData, Data: []byte(`{"text":"hello"}`)})
	require.Eventually(t, func() bool { return g.State() == GuestDone },
		time.Second, 5*time.Millisecond)
	assert.Equal(t, "hello", gh.received.Load())

	// The linger timer tears the session down on its own.
	require.Eventually(t, func() bool { return gh.transp.isClosed() && gh.signal.isClosed() },
		time.Second, 5*time.Millisecond)
	assert.NoError(t, g.Err())
}

func TestGuestIgnoresSecondPayload(t *testing.T) {
	gh := startGuest(t, time.Minute)

	gh.transp.emit(TransportEvent{Kind: EventOpen})
	gh.transp.emit(TransportEvent{Kind: EventData, Data: []byte(`{"text":"first"}`)})
	require.Eventually(t, func() bool { return gh.session.State() == GuestDone },
		time.Second, 5*time.Millisecond)

	gh.transp.emit(TransportEvent{Kind: EventData, Data: []byte(`{"text":"second"}`)})
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, int32(1), gh.count.Load())
	assert.Equal(t, "first", gh.received.Load())
}

func TestGuestConnectTimeout(t *testing.T) {
	gh := startGuest(t, 50*time.Millisecond)

	// Nothing ever connects; a bounded wait must resolve to Failed.
	require.Eventually(t, func() bool { return gh.session.State() == GuestFailed },
		time.Second, 5*time.Millisecond)
	assert.True(t, errors.Is(gh.session.Err(), ErrRendezvousUnavailable))
	assert.True(t, gh.transp.isClosed())
}

func TestGuestRoomNotFound(t *testing.T) {
	gh := startGuest(t, time.Minute)

	gh.signal.push(SignalMessage{Type: TypeError, Error: "room_not_found"})
	require.Eventually(t, func() bool { return gh.session.State() == GuestFailed },
		time.Second, 5*time.Millisecond)
	assert.ErrorContains(t, gh.session.Err(), "room_not_found")
}

func TestGuestHostVanishesMidConnect(t *testing.T) {
	gh := startGuest(t, time.Minute)

	gh.signal.push(SignalMessage{Type: TypeBye})
	require.Eventually(t, func() bool { return gh.session.State() == GuestFailed },
		time.Second, 5*time.Millisecond)
	assert.True(t, errors.Is(gh.session.Err(), ErrRendezvousUnavailable))
}

func TestGuestMalformedPayload(t *testing.T) {
	gh := startGuest(t, time.Minute)

	gh.transp.emit(TransportEvent{Kind: EventOpen})
	gh.transp.emit(TransportEvent{Kind: EventData, Data: []byte("{not json")})
	require.Eventually(t, func() bool { return gh.session.State() == GuestFailed },
		time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(0), gh.count.Load())
}

func TestGuestTransportFailure(t *testing.T) {
	gh := startGuest(t, time.Minute)

	gh.transp.emit(TransportEvent{Kind: EventOpen})
	gh.transp.emit(TransportEvent{Kind: EventFailed, Err: errors.New("ice failed")})
	require.Eventually(t, func() bool { return gh.session.State() == GuestFailed },
		time.Second, 5*time.Millisecond)
}
