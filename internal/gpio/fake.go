package gpio

import (
	"errors"
	"sync"
)

// FakeLoadCell is a test double that returns scripted raw conversions.
type FakeLoadCell struct {
	// Samples contains scripted raw values to return.
	// Each call to ReadRaw() consumes the next sample.
	Samples []int32

	// index tracks current position in Samples
	index int

	// Closed tracks if Close was called
	Closed bool

	// ReadError, if set, will be returned by ReadRaw()
	ReadError error
}

// NewFakeLoadCell creates a FakeLoadCell with the given samples.
func NewFakeLoadCell(samples []int32) *FakeLoadCell {
	return &FakeLoadCell{Samples: samples}
}

// ReadRaw returns the next scripted sample.
// If samples are exhausted, returns the last sample repeatedly.
func (f *FakeLoadCell) ReadRaw() (int32, error) {
	if f.ReadError != nil {
		return 0, f.ReadError
	}

	if len(f.Samples) == 0 {
		return 0, errors.New("no samples configured")
	}

	sample := f.Samples[f.index]
	if f.index < len(f.Samples)-1 {
		f.index++
	}

	return sample, nil
}

// Close marks the load cell as closed.
func (f *FakeLoadCell) Close() error {
	f.Closed = true
	return nil
}

// Reset rewinds to the first sample.
func (f *FakeLoadCell) Reset() {
	f.index = 0
	f.Closed = false
}

// FakePulseInput is a test double for an edge source. By default edges
// emitted while paused are held and delivered on Resume. With DropWhilePaused
// they are discarded instead, as RealPulseInput does while edge detection is
// off. Safe for concurrent use.
type FakePulseInput struct {
	mu      sync.Mutex
	onEdge  func()
	paused  bool
	pending int

	// Pauses and Resumes count calls.
	Pauses  int
	Resumes int

	// PauseError, if set, is returned by Pause and the input stays live.
	PauseError error

	// ResumeError, if set, is returned by Resume after delivering held edges.
	ResumeError error

	// DropWhilePaused discards edges emitted while paused; Dropped counts them.
	DropWhilePaused bool
	Dropped         int

	Closed bool
}

// NewFakePulseInput creates a fake edge source that calls onEdge per edge.
func NewFakePulseInput(onEdge func()) *FakePulseInput {
	return &FakePulseInput{onEdge: onEdge}
}

// SetHandler replaces the edge callback.
func (f *FakePulseInput) SetHandler(onEdge func()) {
	f.mu.Lock()
	f.onEdge = onEdge
	f.mu.Unlock()
}

// Emit fires n edges.
func (f *FakePulseInput) Emit(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.paused {
		if f.DropWhilePaused {
			f.Dropped += n
		} else {
			f.pending += n
		}
		return
	}
	for i := 0; i < n; i++ {
		f.onEdge()
	}
}

// Pause holds edge delivery.
func (f *FakePulseInput) Pause() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Pauses++
	if f.PauseError != nil {
		return f.PauseError
	}
	f.paused = true
	return nil
}

// Resume delivers held edges and restarts delivery.
func (f *FakePulseInput) Resume() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Resumes++
	f.paused = false
	for ; f.pending > 0; f.pending-- {
		f.onEdge()
	}
	return f.ResumeError
}

// Paused reports whether delivery is currently held.
func (f *FakePulseInput) Paused() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.paused
}

// Close marks the input as closed.
func (f *FakePulseInput) Close() error {
	f.mu.Lock()
	f.Closed = true
	f.mu.Unlock()
	return nil
}
