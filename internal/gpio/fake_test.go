package gpio

import (
	"errors"
	"sync/atomic"
	"testing"
)

func TestFakeLoadCellRead(t *testing.T) {
	f := NewFakeLoadCell([]int32{100, -200, 300})

	for i, want := range []int32{100, -200, 300, 300} {
		got, err := f.ReadRaw()
		if err != nil {
			t.Fatalf("read %d: unexpected error: %v", i, err)
		}
		if got != want {
			t.Errorf("read %d: got %d, want %d", i, got, want)
		}
	}
}

func TestFakeLoadCellNoSamples(t *testing.T) {
	f := NewFakeLoadCell(nil)

	if _, err := f.ReadRaw(); err == nil {
		t.Error("expected error with no samples")
	}
}

func TestFakeLoadCellError(t *testing.T) {
	f := NewFakeLoadCell([]int32{1})
	f.ReadError = errors.New("simulated error")

	_, err := f.ReadRaw()
	if err == nil || err.Error() != "simulated error" {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestFakeLoadCellCloseAndReset(t *testing.T) {
	f := NewFakeLoadCell([]int32{1, 2})

	f.ReadRaw()
	if err := f.Close(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if !f.Closed {
		t.Error("should be closed after Close()")
	}

	f.Reset()
	if f.Closed {
		t.Error("should not be closed after Reset()")
	}
	if got, _ := f.ReadRaw(); got != 1 {
		t.Errorf("after reset: got %d, want 1", got)
	}
}

func TestFakePulseInputHoldsEdgesWhilePaused(t *testing.T) {
	var n atomic.Int64
	f := NewFakePulseInput(func() { n.Add(1) })

	f.Emit(3)
	if n.Load() != 3 {
		t.Fatalf("live edges: got %d, want 3", n.Load())
	}

	if err := f.Pause(); err != nil {
		t.Fatalf("pause: %v", err)
	}
	f.Emit(5)
	if n.Load() != 3 {
		t.Errorf("edges delivered while paused: got %d, want 3", n.Load())
	}

	if err := f.Resume(); err != nil {
		t.Fatalf("resume: %v", err)
	}
	if n.Load() != 8 {
		t.Errorf("after resume: got %d, want 8", n.Load())
	}
	if f.Pauses != 1 || f.Resumes != 1 {
		t.Errorf("calls: pauses=%d resumes=%d", f.Pauses, f.Resumes)
	}
}

func TestFakePulseInputPauseError(t *testing.T) {
	var n atomic.Int64
	f := NewFakePulseInput(func() { n.Add(1) })
	f.PauseError = errors.New("busy")

	if err := f.Pause(); err == nil {
		t.Fatal("expected pause error")
	}
	if f.Paused() {
		t.Error("input should stay live after failed pause")
	}
	f.Emit(2)
	if n.Load() != 2 {
		t.Errorf("edges: got %d, want 2", n.Load())
	}
}

func TestFakePulseInputDropsEdgesWhilePaused(t *testing.T) {
	var n atomic.Int64
	f := NewFakePulseInput(func() { n.Add(1) })
	f.DropWhilePaused = true

	f.Emit(3)
	if err := f.Pause(); err != nil {
		t.Fatalf("pause: %v", err)
	}
	f.Emit(5)
	if err := f.Resume(); err != nil {
		t.Fatalf("resume: %v", err)
	}
	f.Emit(1)

	if n.Load() != 4 {
		t.Errorf("delivered: got %d, want 4", n.Load())
	}
	if f.Dropped != 5 {
		t.Errorf("dropped: got %d, want 5", f.Dropped)
	}
}
