package main

import (
	"fmt"
	"io"
	"os"
	"sync"

	"example.com/frag_share/pkg/qr"
	"example.com/frag_share/pkg/share"
)

// consoleUI renders orchestrator outcomes to the terminal. done closes when
// a peer session reaches a terminal state.
type consoleUI struct {
	out      io.Writer
	done     chan struct{}
	doneOnce sync.Once
}

func newConsoleUI() *consoleUI {
	return &consoleUI{out: os.Stdout, done: make(chan struct{})}
}

func (u *consoleUI) ShareReady(mode share.Mode, link string, qrPNG []byte) {
	fmt.Fprintf(u.out, "share link (%s):\n%s\n", mode, link)
	if symbol, err := qr.Terminal(link, qr.Low); err == nil {
		fmt.Fprintln(u.out, symbol)
	}
	if mode == share.PeerTransfer {
		fmt.Fprintln(u.out, "waiting for the other side to scan...")
	}
}

func (u *consoleUI) DocumentLoaded(text string) {
	fmt.Fprintln(u.out, text)
}

func (u *consoleUI) TransferStatus(status string) {
	fmt.Fprintf(u.out, "transfer: %s\n", status)
	switch status {
	case "closed", "done", "failed":
		u.finish()
	}
}

func (u *consoleUI) FragmentPersisted(link string) {
	fmt.Fprintf(u.out, "permanent link:\n%s\n", link)
}

func (u *consoleUI) ShareFailed(err error) {
	fmt.Fprintf(os.Stderr, "share failed: %v\n", err)
}

func (u *consoleUI) finish() {
	u.doneOnce.Do(func() { close(u.done) })
}
