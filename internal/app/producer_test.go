package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/panorama_capture/internal/gps"
	"github.com/relabs-tech/panorama_capture/internal/orientation"
	"github.com/relabs-tech/panorama_capture/internal/session"
)

type flakySource struct {
	n int
}

func (s *flakySource) Next() (orientation.Reading, error) {
	s.n++
	if s.n%2 == 0 {
		return orientation.Reading{}, errors.New("spi timeout")
	}
	return orientation.NewReading(float64(s.n), 90, 0), nil
}

func TestPumpReadings_SkipsSourceErrors(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var got []orientation.Reading
	done := make(chan error, 1)
	go func() {
		done <- pumpReadings(ctx, &flakySource{}, time.Millisecond, func(r orientation.Reading) error {
			mu.Lock()
			got = append(got, r)
			mu.Unlock()
			return nil
		})
	}()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) >= 3
	}, 2*time.Second, time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	mu.Lock()
	defer mu.Unlock()
	for _, r := range got {
		require.NotNil(t, r.Alpha)
		assert.Equal(t, 1, int(*r.Alpha)%2, "only odd samples succeed")
	}
}

func TestFormatStatus(t *testing.T) {
	st := session.Status{Granted: true, Total: 16, Remaining: 4, Policy: "dwell", Target: "abc"}
	assert.Equal(t, `[STAT] 12/16 captured  policy=dwell  target="abc"  capturing`, formatStatus(st))

	st.Granted = false
	assert.Contains(t, formatStatus(st), "waiting for sensors")

	st = session.Status{Granted: true, Total: 16, Complete: true, Policy: "instant"}
	assert.Contains(t, formatStatus(st), "16/16")
	assert.Contains(t, formatStatus(st), "complete")
}

func TestFormatReading_MissingAxes(t *testing.T) {
	beta := 45.0
	s := formatReading(orientation.Reading{Beta: &beta})
	assert.Contains(t, s, "BETA=  45.00")
	assert.Contains(t, s, "(no alpha)")
	assert.Contains(t, s, "(no gamma)")
	assert.NotContains(t, s, "(no beta)")
}

func TestFormatFixAndCapture(t *testing.T) {
	s := formatFix(gps.Fix{Latitude: 51.5636, Longitude: -0.704, Validity: "A"})
	assert.Contains(t, s, "lat=51.563600")
	assert.Contains(t, s, "lon=-0.704000")

	assert.Equal(t, "[SNAP] id=p1 photo=true left=3", formatCapture(CaptureMessage{ID: "p1", Photo: true, Remaining: 3}))
}
