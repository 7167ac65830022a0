package gps

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const rmc = "$GPRMC,220516,A,5133.82,N,00042.24,W,173.8,231.8,130694,004.2,W*70"

func TestReadFixes(t *testing.T) {
	input := strings.Join([]string{
		"garbage",
		"$GPRMC,truncated",
		"$GPGSA,A,3,04,05,,09,12,,,24,,,,,2.5,1.3,2.1*39",
		rmc,
		"",
	}, "\r\n")

	var fixes []Fix
	err := ReadFixes(strings.NewReader(input), func(f Fix) { fixes = append(fixes, f) })
	require.NoError(t, err)
	require.Len(t, fixes, 1)

	f := fixes[0]
	assert.True(t, f.Valid())
	assert.InDelta(t, 51.5636, f.Latitude, 1e-3)
	assert.InDelta(t, -0.7040, f.Longitude, 1e-3)
	assert.InDelta(t, 173.8, f.SpeedKnots, 1e-9)
	assert.InDelta(t, 231.8, f.CourseDeg, 1e-9)
	assert.NotEmpty(t, f.Time)
	assert.NotEmpty(t, f.Date)
}

func TestReadFixes_NoTrailingNewline(t *testing.T) {
	var n int
	err := ReadFixes(strings.NewReader(rmc), func(Fix) { n++ })
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("port closed") }

func TestReadFixes_ReadError(t *testing.T) {
	err := ReadFixes(failingReader{}, func(Fix) {})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "port closed")
}

func TestFix_Valid(t *testing.T) {
	assert.True(t, Fix{Validity: "A"}.Valid())
	assert.False(t, Fix{Validity: "V"}.Valid())
	assert.False(t, Fix{}.Valid())
}
