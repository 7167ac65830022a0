package orientation

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlot_LastValueWins(t *testing.T) {
	s := NewSlot[Reading]()

	_, ok := s.Take()
	assert.False(t, ok)

	s.Put(NewReading(1, 0, 0))
	s.Put(NewReading(2, 0, 0))
	s.Put(NewReading(3, 0, 0))

	got, ok := s.Take()
	assert.True(t, ok)
	assert.Equal(t, 3.0, *got.Alpha)

	// Taken once only.
	_, ok = s.Take()
	assert.False(t, ok)
}

func TestSlot_C(t *testing.T) {
	s := NewSlot[int]()
	s.Put(1)
	s.Put(2)

	select {
	case v := <-s.C():
		assert.Equal(t, 2, v)
	default:
		t.Fatal("value not ready")
	}
	_, ok := s.Take()
	assert.False(t, ok)
}

func TestSlot_ConcurrentProducers(t *testing.T) {
	s := NewSlot[int]()

	var wg sync.WaitGroup
	for p := 0; p < 8; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				s.Put(p*1000 + i)
			}
		}(p)
	}
	wg.Wait()

	v, ok := s.Take()
	assert.True(t, ok)
	assert.Equal(t, 999, v%1000, "one of the producers' final values must survive")
}

func TestMockSource_Ranges(t *testing.T) {
	src := NewMockSource()
	for i := 0; i < 10; i++ {
		r, err := src.Next()
		assert.NoError(t, err)
		a := r.Angles()
		assert.GreaterOrEqual(t, a.Alpha, 0.0)
		assert.Less(t, a.Alpha, 360.0)
		assert.GreaterOrEqual(t, a.Beta, -180.0)
		assert.LessOrEqual(t, a.Beta, 180.0)
		assert.GreaterOrEqual(t, a.Gamma, -90.0)
		assert.LessOrEqual(t, a.Gamma, 90.0)
	}
}
