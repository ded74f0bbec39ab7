// Package climate reads a temperature/humidity probe attached over a serial port.
//
// The probe firmware logs lines of the form
//
//	I (4041275) <tag>: <temp>,<humidity>
//
// where both values are integers in hundredths (2314 = 23.14).
package climate

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.bug.st/serial"
)

const retryInterval = 2 * time.Second

// ErrNoReading is returned before the first line has been parsed.
var ErrNoReading = errors.New("no climate reading yet")

// Reading is one parsed probe line.
type Reading struct {
	Temperature float64 // °C
	Humidity    float64 // %RH
	Time        time.Time
}

// ParseLine extracts a reading from a log line carrying tag.
func ParseLine(line, tag string) (temperature, humidity float64, ok bool) {
	idx := strings.Index(line, tag+":")
	if idx == -1 {
		return 0, 0, false
	}
	fields := strings.Split(strings.TrimSpace(line[idx+len(tag)+1:]), ",")
	if len(fields) < 2 {
		return 0, 0, false
	}
	t, err := strconv.Atoi(strings.TrimSpace(fields[0]))
	if err != nil {
		return 0, 0, false
	}
	h, err := strconv.Atoi(strings.TrimSpace(fields[1]))
	if err != nil {
		return 0, 0, false
	}
	return float64(t) / 100, float64(h) / 100, true
}

// Store holds the latest reading. Safe for concurrent use.
type Store struct {
	mu     sync.RWMutex
	latest Reading
	ok     bool
}

// Set replaces the latest reading.
func (s *Store) Set(r Reading) {
	s.mu.Lock()
	s.latest = r
	s.ok = true
	s.mu.Unlock()
}

// Latest returns the most recent reading.
func (s *Store) Latest() (Reading, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.ok {
		return Reading{}, ErrNoReading
	}
	return s.latest, nil
}

// Scan reads lines from r until EOF or ctx is done and stores every
// reading tagged with tag.
func Scan(ctx context.Context, r io.Reader, tag string, now func() time.Time, store *Store) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		line := scanner.Text()
		if line == "" {
			continue
		}
		if t, h, ok := ParseLine(line, tag); ok {
			store.Set(Reading{Temperature: t, Humidity: h, Time: now()})
		}
	}
	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

// Probe owns the serial port and feeds a Store.
type Probe struct {
	portName string
	mode     *serial.Mode
	tag      string
	store    *Store
}

// NewProbe creates a probe reader. Nothing is opened until Run.
func NewProbe(portName string, baudRate int, tag string, store *Store) *Probe {
	return &Probe{
		portName: portName,
		mode:     &serial.Mode{BaudRate: baudRate},
		tag:      tag,
		store:    store,
	}
}

// Run reads the port until ctx is done, reopening it after failures.
func (p *Probe) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		port, err := serial.Open(p.portName, p.mode)
		if err != nil {
			log.Printf("climate: open %s: %v", p.portName, err)
			if !sleep(ctx, retryInterval) {
				return nil
			}
			continue
		}

		stop := context.AfterFunc(ctx, func() { port.Close() })
		err = Scan(ctx, port, p.tag, time.Now, p.store)
		stop()
		port.Close()

		if ctx.Err() != nil {
			return nil
		}
		log.Printf("climate: serial disconnected, retrying: %v", err)
		if !sleep(ctx, retryInterval) {
			return nil
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// String describes the probe for logs.
func (p *Probe) String() string {
	return fmt.Sprintf("%s@%d tag=%s", p.portName, p.mode.BaudRate, p.tag)
}
