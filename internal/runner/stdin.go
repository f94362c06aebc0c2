package runner

import (
	"fmt"
	"os"

	"golang.org/x/term"
)

// controls is what the keyboard drives.
type controls interface {
	TogglePause() bool
	Stop()
}

// startStdinToggle starts a goroutine that reads single keypresses from
// stdin. Enter or Space toggles pause, 's' requests a stop. It returns a
// cleanup function that restores the terminal state. If stdin is not a
// terminal, it does nothing.
func startStdinToggle(c controls, quiet bool) (cleanup func()) {
	fd := int(os.Stdin.Fd())

	if !term.IsTerminal(fd) {
		return func() {}
	}

	oldState, err := term.MakeRaw(fd)
	if err != nil {
		if !quiet {
			fmt.Fprintf(os.Stderr, "[!] Could not enable raw terminal: %v\n", err)
		}
		return func() {}
	}

	// MakeRaw disables OPOST which stops \n → \r\n translation, causing
	// cursor alignment issues. Re-enable it since we only need raw input.
	fixOutputProcessing(fd)

	cleanup = func() {
		_ = term.Restore(fd, oldState)
	}

	go func() {
		buf := make([]byte, 1)
		for {
			n, err := os.Stdin.Read(buf)
			if err != nil {
				return
			}
			if n == 0 {
				continue
			}

			switch key := buf[0]; key {
			case 0x03:
				// Ctrl+C: restore terminal and re-send SIGINT so the
				// signal context fires normally.
				_ = term.Restore(fd, oldState)
				sendInterrupt()
				return
			case 's', 'S':
				c.Stop()
				if !quiet {
					fmt.Fprintf(os.Stderr, "\r\033[K[*] Stopping, waiting for in-flight probes\n")
				}
			case '\r', '\n', ' ':
				nowPaused := c.TogglePause()
				if !quiet {
					if nowPaused {
						fmt.Fprintf(os.Stderr, "\r\033[K[*] Scan PAUSED, press Enter or Space to resume, s to stop\n")
					} else {
						fmt.Fprintf(os.Stderr, "\r\033[K[*] Scan RESUMED\n")
					}
				}
			}
		}
	}()

	return cleanup
}

func isInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}
