// Package app wires user intent to the codec, the size classifier and the
// rendezvous protocol. The Orchestrator owns the single live peer session;
// the "at most one session" invariant is enforced by destroy-before-create
// sequencing on that one handle.
package app

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"example.com/frag_share/client"
	"example.com/frag_share/pkg/codec"
	"example.com/frag_share/pkg/qr"
	"example.com/frag_share/pkg/share"
	"example.com/frag_share/pkg/shorten"
)

// UI receives every user-visible outcome. Implementations must not call
// back into the Orchestrator from these methods.
type UI interface {
	// ShareReady announces the link for the chosen delivery mode. qrPNG is
	// nil when QR rendering failed; the link itself is always usable.
	ShareReady(mode share.Mode, link string, qrPNG []byte)
	// DocumentLoaded replaces the editor document.
	DocumentLoaded(text string)
	// TransferStatus reports peer-transfer progress.
	TransferStatus(status string)
	// FragmentPersisted hands the guest its own permanent link after a
	// transfer, so the content survives without the peer connection.
	FragmentPersisted(link string)
	// ShareFailed surfaces a degraded share or receive attempt. Nothing
	// reported here is fatal; the editor stays usable.
	ShareFailed(err error)
}

// Orchestrator drives share actions and inbound links.
type Orchestrator struct {
	cfg        Config
	ui         UI
	codec      *codec.Codec // nil when compression init failed
	codecErr   error
	shortener  *shorten.Client
	thresholds share.Thresholds
	deb        *debouncer

	// Session factories, replaceable in tests.
	dialSignal     func(roomID string) (client.Signaller, error)
	hostTransport  func() (client.Transport, error)
	guestTransport func() (client.Transport, error)

	mu      sync.Mutex
	session client.Session
}

// New builds an orchestrator. A failed compression init does not fail
// construction: encoding features degrade and every share attempt reports
// the error instead.
func New(cfg Config, ui UI) *Orchestrator {
	o := &Orchestrator{
		cfg:        cfg,
		ui:         ui,
		shortener:  shorten.NewClient(shorten.Config{BaseURL: cfg.ShortenerURL}),
		thresholds: cfg.Thresholds(),
		deb:        newDebouncer(cfg.Debounce()),
	}

	c, err := codec.New()
	if err != nil {
		log.Error().Err(err).Msg("compression unavailable, URL encoding disabled")
		o.codecErr = err
	} else {
		o.codec = c
	}

	o.dialSignal = func(roomID string) (client.Signaller, error) {
		return client.DialSignaller(cfg.SignalURL, roomID)
	}
	o.hostTransport = func() (client.Transport, error) {
		return client.NewHostTransport(cfg.STUNURLs)
	}
	o.guestTransport = func() (client.Transport, error) {
		return client.NewGuestTransport(cfg.STUNURLs)
	}
	return o
}

// Share runs one share action for the current document text: encode,
// classify, then drive whichever delivery mode the length demands. Any
// session from an earlier share action is destroyed first.
func (o *Orchestrator) Share(text string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.teardownLocked()

	if o.codec == nil {
		o.ui.ShareFailed(o.codecErr)
		return
	}

	fragment, err := o.codec.Encode(text, o.cfg.CompressionLevel)
	if err != nil {
		o.ui.ShareFailed(err)
		return
	}
	if fragment == "" {
		// Empty document: no fragment, no URL update.
		return
	}

	link := share.InlineLink(o.cfg.Origin, o.cfg.Path, fragment)
	mode := o.thresholds.Classify(len(link))
	log.Info().Int("url_len", len(link)).Str("mode", mode.String()).Msg("share classified")

	switch mode {
	case share.Inline:
		o.ui.ShareReady(share.Inline, link, o.renderQR(link))

	case share.Shortened:
		short, err := o.shortener.Shorten(context.Background(), link)
		if err != nil {
			// Recoverable: show the failure, fall back to peer transfer,
			// which works at any size.
			o.ui.ShareFailed(err)
			o.startHostLocked(text)
			return
		}
		o.ui.ShareReady(share.Shortened, short, o.renderQR(short))

	case share.PeerTransfer:
		// Never ask the shortener above the hard cap.
		o.startHostLocked(text)
	}
}

// ScheduleShare debounces Share for rapid edits. Only the last scheduled
// share within the window fires, converging to the same final state.
func (o *Orchestrator) ScheduleShare(text string) {
	o.deb.Trigger(func() { o.Share(text) })
}

// HandleFragment reacts to an inbound URL fragment: a '#p2p=' fragment
// starts a guest session, any other non-empty fragment is decoded into the
// document, with the placeholder substituted on corruption.
func (o *Orchestrator) HandleFragment(fragment string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if roomID, ok := share.ParsePeerFragment(fragment); ok {
		o.startGuestLocked(roomID)
		return
	}
	if fragment == "" {
		return
	}
	if o.codec == nil {
		o.ui.ShareFailed(o.codecErr)
		return
	}

	text, err := o.codec.Decode(fragment)
	if err != nil {
		log.Warn().Err(err).Msg("inbound fragment corrupt")
		o.ui.DocumentLoaded(codec.Placeholder)
		return
	}
	o.ui.DocumentLoaded(text)
}

// Session returns the live peer session, if any.
func (o *Orchestrator) Session() client.Session {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.session
}

// Close tears down any live session and pending work.
func (o *Orchestrator) Close() {
	o.deb.Stop()
	o.mu.Lock()
	defer o.mu.Unlock()
	o.teardownLocked()
}

// startHostLocked opens a fresh room and hands the document to a host
// session. The QR carries only the room token, so it is scannable no matter
// how large the document is.
func (o *Orchestrator) startHostLocked(text string) {
	roomID := client.NewRoomID()

	sig, err := o.dialSignal(roomID)
	if err != nil {
		o.ui.ShareFailed(err)
		return
	}
	transport, err := o.hostTransport()
	if err != nil {
		sig.Close()
		o.ui.ShareFailed(err)
		return
	}

	host := client.NewHost(roomID, client.HostConfig{
		Signal:    sig,
		Transport: transport,
		Text:      text,
		Grace:     o.cfg.HostGrace(),
		OnState: func(s client.HostState) {
			o.ui.TransferStatus(s.String())
		},
	})
	if err := host.Start(); err != nil {
		o.ui.ShareFailed(err)
		return
	}
	o.session = host

	link := share.PeerLink(o.cfg.Origin, o.cfg.Path, roomID)
	o.ui.ShareReady(share.PeerTransfer, link, o.renderQR(link))
}

// startGuestLocked connects to a scanned room and wires the received text
// back into the document and a permanent link of our own.
func (o *Orchestrator) startGuestLocked(roomID string) {
	o.teardownLocked()

	sig, err := o.dialSignal(roomID)
	if err != nil {
		o.ui.ShareFailed(err)
		return
	}
	transport, err := o.guestTransport()
	if err != nil {
		sig.Close()
		o.ui.ShareFailed(err)
		return
	}

	guest := client.NewGuest(roomID, client.GuestConfig{
		Signal:    sig,
		Transport: transport,
		Timeout:   o.cfg.GuestTimeout(),
		OnState: func(s client.GuestState) {
			o.ui.TransferStatus(s.String())
		},
		OnReceive: o.receiveDocument,
	})
	if err := guest.Start(); err != nil {
		o.ui.ShareFailed(err)
		return
	}
	o.session = guest
}

// receiveDocument runs on the guest session's goroutine once the payload
// lands: load the document, then re-encode it so this side owns a link that
// works with no peer around.
func (o *Orchestrator) receiveDocument(text string) {
	o.ui.DocumentLoaded(text)

	if o.codec == nil {
		return
	}
	fragment, err := o.codec.Encode(text, o.cfg.CompressionLevel)
	if err != nil || fragment == "" {
		return
	}
	o.ui.FragmentPersisted(share.InlineLink(o.cfg.Origin, o.cfg.Path, fragment))
}

// teardownLocked destroys the current session, if any. Destroy is
// idempotent, so racing with a session's own shutdown is harmless.
func (o *Orchestrator) teardownLocked() {
	if o.session != nil {
		o.session.Destroy()
		o.session = nil
	}
}

// renderQR renders the link, or returns nil if the symbol cannot be built.
func (o *Orchestrator) renderQR(link string) []byte {
	png, err := qr.PNG(link, qr.Low, 256)
	if err != nil {
		log.Warn().Err(err).Int("len", len(link)).Msg("qr render failed")
		return nil
	}
	return png
}
