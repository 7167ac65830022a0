package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/panorama_capture/internal/orientation"
)

func startDriver(t *testing.T, s *Session) (*Driver, <-chan FrameResult, context.CancelFunc, <-chan error) {
	t.Helper()
	frames := make(chan FrameResult, 64)
	d := NewDriver(s, time.Millisecond, func(res FrameResult) {
		select {
		case frames <- res:
		default:
		}
	})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()
	t.Cleanup(cancel)
	return d, frames, cancel, done
}

func waitFrame(t *testing.T, frames <-chan FrameResult, ok func(FrameResult) bool) FrameResult {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case res := <-frames:
			if ok(res) {
				return res
			}
		case <-timeout:
			t.Fatal("timed out waiting for frame")
		}
	}
}

func TestDriver_AimAndCapture(t *testing.T) {
	s := newSession(t, testConfig(), nil)
	first := s.Points()[0]
	d, frames, _, _ := startDriver(t, s)
	ctx := context.Background()

	require.NoError(t, d.Do(ctx, func(s *Session) error { return s.Grant(true) }))

	d.PushReading(readingFor(first.Position))
	res := waitFrame(t, frames, func(r FrameResult) bool { return r.Target != "" })
	assert.Equal(t, first.ID, res.Target)

	var capturedID string
	err := d.Do(ctx, func(s *Session) error {
		p, _, err := s.Capture()
		if p != nil {
			capturedID = p.ID
		}
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, first.ID, capturedID)

	res = waitFrame(t, frames, func(r FrameResult) bool { return r.Status.Remaining == 15 })
	assert.Empty(t, res.Target)
}

func TestDriver_FiltersEverySampleBetweenFrames(t *testing.T) {
	s := newSession(t, testConfig(), nil)
	// No frame runs during the test.
	d := NewDriver(s, time.Hour, nil)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go d.Run(ctx)

	require.NoError(t, d.Do(ctx, func(s *Session) error { return s.Grant(true) }))

	samples := []orientation.Reading{
		orientation.NewReading(10, 90, 0),
		orientation.NewReading(20, 80, 5),
		orientation.NewReading(30, 70, 10),
	}
	for _, r := range samples {
		d.PushReading(r)
		require.Eventually(t, func() bool { return len(d.readings.C()) == 0 }, 2*time.Second, time.Millisecond)
	}

	want, err := orientation.NewFilter(testConfig().Filter)
	require.NoError(t, err)
	var expected orientation.Angles
	for _, r := range samples {
		expected = want.Update(r)
	}

	var got orientation.Angles
	require.NoError(t, d.Do(ctx, func(s *Session) error {
		got = s.angles
		return nil
	}))
	assert.InDelta(t, expected.Alpha, got.Alpha, 1e-9)
	assert.InDelta(t, expected.Beta, got.Beta, 1e-9)
	assert.InDelta(t, expected.Gamma, got.Gamma, 1e-9)
}

func TestDriver_DropsReadingsBeforeGrant(t *testing.T) {
	s := newSession(t, testConfig(), nil)
	d, frames, _, _ := startDriver(t, s)

	d.PushReading(readingFor(s.Points()[0].Position))
	waitFrame(t, frames, func(FrameResult) bool { return true })
	res := waitFrame(t, frames, func(FrameResult) bool { return true })
	assert.False(t, res.Status.Granted)
	assert.Zero(t, res.Angles)
	assert.Empty(t, res.Target)
}

func TestDriver_ScreenRotation(t *testing.T) {
	s := newSession(t, testConfig(), nil)
	d, _, _, _ := startDriver(t, s)

	d.PushScreen(90)
	require.Eventually(t, func() bool {
		var screen float64
		_ = d.Do(context.Background(), func(s *Session) error {
			screen = s.screen
			return nil
		})
		return screen == 90
	}, 2*time.Second, 5*time.Millisecond)
}

func TestDriver_Stop(t *testing.T) {
	s := newSession(t, testConfig(), nil)
	d, _, cancel, done := startDriver(t, s)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("driver did not stop")
	}

	err := d.Do(context.Background(), func(*Session) error { return nil })
	assert.ErrorIs(t, err, ErrStopped)
}
