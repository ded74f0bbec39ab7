package climate

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLine(t *testing.T) {
	tests := []struct {
		input string
		ok    bool
		temp  float64
		hum   float64
	}{
		{"I (4041275) qf8mzr: 2314,2834", true, 23.14, 28.34},
		{"I (4041275) qf8mzr: -150,9000", true, -1.5, 90},
		{"I (4041275) qf8mzr: 2314,2834,99819", true, 23.14, 28.34},
		{"I (378) heap_init: At 3FFAE6E0 len 00001920 (6 KiB): DRAM", false, 0, 0},
		{"I (4041275) qf8mzr: 2314", false, 0, 0},
		{"I (4041275) qf8mzr: abc,2834", false, 0, 0},
		{"Random string without tag", false, 0, 0},
	}

	for _, tt := range tests {
		temp, hum, ok := ParseLine(tt.input, "qf8mzr")
		require.Equal(t, tt.ok, ok, "input: %q", tt.input)
		if tt.ok {
			assert.InDelta(t, tt.temp, temp, 1e-9, "input: %q", tt.input)
			assert.InDelta(t, tt.hum, hum, 1e-9, "input: %q", tt.input)
		}
	}
}

func TestStoreEmpty(t *testing.T) {
	var s Store
	_, err := s.Latest()
	assert.True(t, errors.Is(err, ErrNoReading))
}

func TestScanKeepsLatest(t *testing.T) {
	input := strings.Join([]string{
		"boot noise",
		"I (1) probe: 2100,4000",
		"",
		"I (2) other: 9999,9999",
		"I (3) probe: 2200,4100",
	}, "\n")

	at := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	var s Store
	err := Scan(context.Background(), strings.NewReader(input), "probe", func() time.Time { return at }, &s)
	require.NoError(t, err)

	r, err := s.Latest()
	require.NoError(t, err)
	assert.InDelta(t, 22.0, r.Temperature, 1e-9)
	assert.InDelta(t, 41.0, r.Humidity, 1e-9)
	assert.Equal(t, at, r.Time)
}

func TestScanStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var s Store
	err := Scan(ctx, strings.NewReader("I (1) probe: 2100,4000\n"), "probe", time.Now, &s)
	require.NoError(t, err)

	_, err = s.Latest()
	assert.ErrorIs(t, err, ErrNoReading)
}

func TestProbeString(t *testing.T) {
	p := NewProbe("/dev/ttyACM0", 115200, "probe", &Store{})
	assert.Equal(t, "/dev/ttyACM0@115200 tag=probe", p.String())
}
