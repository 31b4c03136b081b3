package client

import "sync"

// fakeSignaller records outbound messages and lets tests inject inbound
// ones, so sessions run without a relay.
type fakeSignaller struct {
	mu     sync.Mutex
	sent   []SignalMessage
	msgs   chan SignalMessage
	closed bool
}

func newFakeSignaller() *fakeSignaller {
	return &fakeSignaller{msgs: make(chan SignalMessage, 16)}
}

func (f *fakeSignaller) Send(msg SignalMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakeSignaller) Messages() <-chan SignalMessage { return f.msgs }

func (f *fakeSignaller) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeSignaller) push(msg SignalMessage) { f.msgs <- msg }

func (f *fakeSignaller) sentMessages() []SignalMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]SignalMessage, len(f.sent))
	copy(out, f.sent)
	return out
}

func (f *fakeSignaller) sentOfType(typ string) []SignalMessage {
	var out []SignalMessage
	for _, m := range f.sentMessages() {
		if m.Type == typ {
			out = append(out, m)
		}
	}
	return out
}

func (f *fakeSignaller) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// fakeTransport stands in for the WebRTC leg: deterministic SDP strings and
// an event channel tests feed directly.
type fakeTransport struct {
	mu         sync.Mutex
	events     chan TransportEvent
	sent       [][]byte
	answers    []string
	candidates []string
	closed     bool
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{events: make(chan TransportEvent, 16)}
}

func (f *fakeTransport) CreateOffer() (string, error) { return "offer-sdp", nil }

func (f *fakeTransport) HandleOffer(sdp string) (string, error) { return "answer-sdp", nil }

func (f *fakeTransport) HandleAnswer(sdp string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.answers = append(f.answers, sdp)
	return nil
}

func (f *fakeTransport) AddCandidate(candidate string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.candidates = append(f.candidates, candidate)
	return nil
}

func (f *fakeTransport) Send(data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	buf := make([]byte, len(data))
	copy(buf, data)
	f.sent = append(f.sent, buf)
	return nil
}

func (f *fakeTransport) Events() <-chan TransportEvent { return f.events }

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeTransport) emit(ev TransportEvent) { f.events <- ev }

func (f *fakeTransport) sentPayloads() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]byte, len(f.sent))
	copy(out, f.sent)
	return out
}

func (f *fakeTransport) handledAnswers() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.answers))
	copy(out, f.answers)
	return out
}

func (f *fakeTransport) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}
