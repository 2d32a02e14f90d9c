// Package serialmux reads newline-delimited messages from a serial link and
// fans them out to any number of subscribers. The inference host streams one
// JSON detection frame per line over this link.
package serialmux

import (
	"bufio"
	"bytes"
	"context"
	crand "crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"sync"

	"tailscale.com/tsweb"
)

var ErrWriteFailed = errors.New("failed to write to serial port")

// maxLineBytes bounds a single frame line; busy frames with many detections
// can exceed bufio's 64KiB default.
const maxLineBytes = 1 << 20

var tailTemplate = template.Must(template.New("tail").Parse(`<!doctype html>
<title>serial tail</title>
<pre id="out"></pre>
<script>
const out = document.getElementById("out");
new EventSource("{{.}}").onmessage = (e) => { out.textContent = e.data + "\n" + out.textContent.slice(0, 20000); };
</script>`))

type subscriber struct {
	ch       chan string
	reliable bool
}

// SerialMux is a serial port multiplexer that allows multiple clients to
// subscribe to lines from a single serial port.
type SerialMux[T SerialPorter] struct {
	port         T
	subscribers  map[string]subscriber
	subscriberMu sync.Mutex
	commandMu    sync.Mutex
	closing      bool
	closingMu    sync.Mutex
}

// SerialMuxInterface defines the interface for the SerialMux type.
type SerialMuxInterface interface {
	// Subscribe creates a lossy channel for receiving lines: if the reader
	// is not ready the line is skipped. Suited to live tails.
	Subscribe() (string, chan string)
	// SubscribeReliable creates a channel that receives every line in order.
	// Monitor waits for the reader, so a slow reader applies backpressure to
	// the serial link instead of losing frames.
	SubscribeReliable() (string, chan string)
	// Unsubscribe removes a channel from the list of subscribers.
	Unsubscribe(string)
	// SendCommand writes the provided line to the serial port.
	SendCommand(string) error
	// Monitor reads lines from the serial port and sends them to the
	// subscribers until ctx is done or the port fails.
	Monitor(context.Context) error
	// Close closes all subscribed channels and closes the serial port.
	Close() error
	// AttachAdminRoutes attaches debugging endpoints under /debug/.
	AttachAdminRoutes(*http.ServeMux)
}

// NewSerialMux creates a SerialMux around an already opened port.
func NewSerialMux[T SerialPorter](port T) *SerialMux[T] {
	return &SerialMux[T]{
		port:        port,
		subscribers: make(map[string]subscriber),
	}
}

// randomID generates a random channel ID (8 byte random hex encoded value)
func randomID() string {
	b := make([]byte, 8)
	crand.Read(b)
	return hex.EncodeToString(b)
}

func (s *SerialMux[T]) subscribe(reliable bool) (string, chan string) {
	id := randomID()
	ch := make(chan string)
	s.closingMu.Lock()
	closing := s.closing
	s.closingMu.Unlock()
	if closing {
		// already shutting down: hand back a closed channel so readers return
		close(ch)
		return id, ch
	}
	s.subscriberMu.Lock()
	defer s.subscriberMu.Unlock()
	s.subscribers[id] = subscriber{ch: ch, reliable: reliable}
	return id, ch
}

func (s *SerialMux[T]) Subscribe() (string, chan string) { return s.subscribe(false) }

func (s *SerialMux[T]) SubscribeReliable() (string, chan string) { return s.subscribe(true) }

// Unsubscribe removes a subscriber from the serial mux.
func (s *SerialMux[T]) Unsubscribe(id string) {
	s.subscriberMu.Lock()
	defer s.subscriberMu.Unlock()
	if sub, ok := s.subscribers[id]; ok {
		close(sub.ch)
		delete(s.subscribers, id)
	}
}

// SendCommand writes a line to the serial port.
func (s *SerialMux[T]) SendCommand(command string) error {
	s.commandMu.Lock()
	defer s.commandMu.Unlock()
	if !bytes.HasSuffix([]byte(command), []byte("\n")) {
		command += "\n"
	}
	n, err := s.port.Write([]byte(command))
	if err != nil {
		return err
	}
	if n != len(command) {
		return ErrWriteFailed
	}
	return nil
}

// Monitor reads the serial port line by line and forwards each line to the
// subscribers in the order it was read.
func (s *SerialMux[T]) Monitor(ctx context.Context) error {
	scan := bufio.NewScanner(s.port)
	scan.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	lineChan := make(chan string)
	scanErrChan := make(chan error, 1)

	// the blocking scan.Scan runs in its own goroutine so the loop below can
	// still observe ctx cancellation
	go func() {
		defer close(lineChan)
		for scan.Scan() {
			select {
			case lineChan <- scan.Text():
			case <-ctx.Done():
				return
			}
		}
		if err := scan.Err(); err != nil {
			select {
			case scanErrChan <- err:
			case <-ctx.Done():
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case err := <-scanErrChan:
			return err

		case line, ok := <-lineChan:
			if !ok {
				select {
				case err := <-scanErrChan:
					return err
				default:
					return nil
				}
			}
			s.closingMu.Lock()
			if s.closing {
				s.closingMu.Unlock()
				return nil
			}
			s.closingMu.Unlock()

			if err := s.dispatch(ctx, line); err != nil {
				return err
			}
		}
	}
}

func (s *SerialMux[T]) dispatch(ctx context.Context, line string) error {
	s.subscriberMu.Lock()
	var reliable []chan string
	for _, sub := range s.subscribers {
		if sub.reliable {
			reliable = append(reliable, sub.ch)
			continue
		}
		select {
		case sub.ch <- line:
		default:
			// lossy subscriber not ready; skip
		}
	}
	s.subscriberMu.Unlock()

	for _, ch := range reliable {
		if err := sendReliable(ctx, ch, line); err != nil {
			return err
		}
	}
	return nil
}

// sendReliable blocks until ch accepts line or ctx ends. A send on a channel
// closed by a concurrent Unsubscribe is ignored.
func sendReliable(ctx context.Context, ch chan string, line string) (err error) {
	defer func() {
		if recover() != nil {
			err = nil
		}
	}()
	select {
	case ch <- line:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *SerialMux[T]) Close() error {
	s.closingMu.Lock()
	s.closing = true
	s.closingMu.Unlock()

	s.subscriberMu.Lock()
	defer s.subscriberMu.Unlock()
	for id, sub := range s.subscribers {
		close(sub.ch)
		delete(s.subscribers, id)
	}
	return s.port.Close()
}

// AttachAdminRoutes mounts a live tail of the serial link under /debug/.
func (s *SerialMux[T]) AttachAdminRoutes(mux *http.ServeMux) {
	debug := tsweb.Debugger(mux)

	debug.HandleFunc("serial-tail", "live tail of detection frames on the serial link", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := tailTemplate.Execute(w, "/debug/serial-tail-events"); err != nil {
			http.Error(w, "Failed to render template", http.StatusInternalServerError)
		}
	})

	// Server-Sent Events for lines coming from the serial port.
	debug.HandleSilentFunc("serial-tail-events", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")

		id, c := s.Subscribe()
		defer s.Unsubscribe(id)

		w.Write([]byte(": ping\n\n"))
		flusher.Flush()

		for {
			select {
			case payload, ok := <-c:
				if !ok {
					return
				}
				if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
					return
				}
				flusher.Flush()
			case <-r.Context().Done():
				return
			}
		}
	})
}
