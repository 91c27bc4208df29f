// ABOUTME: Live stream recorder for the oggcast CLI
// ABOUTME: Saves the Ogg pages received from a server's WebSocket endpoint
package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Resonate-Protocol/oggcast/internal/client"
)

// recordStream writes a server's stream into path until the stream ends,
// seconds elapse (when positive) or the process is interrupted
func recordStream(addr, path string, seconds float64) error {
	c := client.NewClient(client.Config{ServerAddr: addr})
	if err := c.Connect(); err != nil {
		return err
	}
	defer c.Close()

	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output: %w", err)
	}
	defer out.Close()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	written, err := copyPages(out, c, recordDeadline(seconds), sigChan)
	if err != nil {
		return err
	}

	log.Printf("Recorded %d bytes from %s (%s) into %s", written, c.Hello.Name, addr, path)
	return out.Close()
}

// recordDeadline fires after seconds. A non-positive limit never fires.
func recordDeadline(seconds float64) <-chan time.Time {
	if seconds <= 0 {
		return nil
	}
	return time.After(time.Duration(seconds * float64(time.Second)))
}

// copyPages writes the header then each received page until the stream
// ends or stop fires. Cutting a stream short leaves it without an EOS page,
// which players accept.
func copyPages(w io.Writer, c *client.Client, stop <-chan time.Time, interrupt <-chan os.Signal) (int64, error) {
	n, err := w.Write(c.Header)
	if err != nil {
		return 0, fmt.Errorf("failed to write output: %w", err)
	}
	written := int64(n)

	for {
		select {
		case page := <-c.Pages:
			n, err := w.Write(page)
			written += int64(n)
			if err != nil {
				return written, fmt.Errorf("failed to write output: %w", err)
			}
		case <-c.Ended:
			// Pages queued before the end marker are still delivered
			for {
				select {
				case page := <-c.Pages:
					n, err := w.Write(page)
					written += int64(n)
					if err != nil {
						return written, fmt.Errorf("failed to write output: %w", err)
					}
				default:
					return written, nil
				}
			}
		case <-stop:
			return written, nil
		case <-interrupt:
			return written, nil
		}
	}
}
