// fragshare is the command-line face of the sharing core: it runs the
// rendezvous relay, shares text as a fragment link or over a peer channel,
// and opens inbound links.
package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"example.com/frag_share/app"
	"example.com/frag_share/pkg/share"
	"example.com/frag_share/server"
)

var (
	cfgPath string
	verbose bool
)

func main() {
	root := &cobra.Command{
		Use:   "fragshare",
		Short: "Share text through URL fragments or an ephemeral peer channel",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
			if verbose {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			} else {
				zerolog.SetGlobalLevel(zerolog.WarnLevel)
			}
		},
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", "", "path to TOML config file")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(serveCmd(), shareCmd(), openCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// serveCmd runs the rendezvous relay.
func serveCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the rendezvous relay server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return server.New().ListenAndServe(addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	return cmd
}

// shareCmd encodes text and drives whichever delivery mode its size demands.
func shareCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "share [text]",
		Short: "Share text: prints the link and QR, or hosts a peer transfer",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.LoadConfig(cfgPath)
			if err != nil {
				return err
			}
			text, err := readText(file, args)
			if err != nil {
				return err
			}

			ui := newConsoleUI()
			orch := app.New(cfg, ui)
			defer orch.Close()

			orch.Share(text)
			if orch.Session() == nil {
				// Inline or shortened: everything already printed.
				return nil
			}
			waitForSession(ui)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "read the text from a file instead of args/stdin")
	return cmd
}

// openCmd handles an inbound share link or bare fragment.
func openCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "open <link-or-fragment>",
		Short: "Open a share link: decode it, or receive over the peer channel",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.LoadConfig(cfgPath)
			if err != nil {
				return err
			}

			fragment := args[0]
			if strings.Contains(fragment, "#") {
				fragment = share.Fragment(fragment)
			}

			ui := newConsoleUI()
			orch := app.New(cfg, ui)
			defer orch.Close()

			orch.HandleFragment(fragment)
			if orch.Session() == nil {
				return nil
			}
			waitForSession(ui)
			return nil
		},
	}
}

// readText resolves the document text from --file, args, or stdin.
func readText(file string, args []string) (string, error) {
	if file != "" {
		b, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", file, err)
		}
		return string(b), nil
	}
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	b, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return string(b), nil
}

// waitForSession blocks until the peer session reaches a terminal state or
// the user interrupts.
func waitForSession(ui *consoleUI) {
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	defer signal.Stop(interrupt)

	select {
	case <-ui.done:
	case <-interrupt:
		fmt.Fprintln(os.Stderr, "interrupted")
	}
}
