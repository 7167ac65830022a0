package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/panorama_capture/internal/capture"
	"github.com/relabs-tech/panorama_capture/internal/orientation"
)

func TestParse_Empty(t *testing.T) {
	cfg, err := Parse(strings.NewReader(""))
	require.NoError(t, err)
	if diff := cmp.Diff(Default(), cfg); diff != "" {
		t.Errorf("empty file should yield defaults (-want +got):\n%s", diff)
	}
}

func TestParse_Values(t *testing.T) {
	input := `
# comment
MQTT_BROKER = tcp://broker:1883
SPHERE_COUNT=32
SPHERE_RADIUS=10.5
CAPTURE_POLICY=dwell
DWELL_MS=1500
FILTER_MODE=exponential
SMOOTHING_FACTOR=0.2
PHOTO_FORMAT=webp
DISPLAY_I2C_ADDR=0x3D
ORIENTATION_SOURCE=imu
`
	cfg, err := Parse(strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, "tcp://broker:1883", cfg.MQTTBroker)
	assert.Equal(t, 32, cfg.SphereCount)
	assert.Equal(t, 10.5, cfg.SphereRadius)
	assert.Equal(t, "webp", cfg.PhotoFormat)
	assert.Equal(t, uint16(0x3D), cfg.DisplayI2CAddr)
	assert.Equal(t, "imu", cfg.OrientationSource)

	sc := cfg.Session()
	assert.Equal(t, capture.PolicyDwell, sc.Policy)
	assert.Equal(t, 1500*time.Millisecond, sc.Dwell)
	assert.Equal(t, 32, sc.Count)
	assert.Equal(t, orientation.ModeExponential, sc.Filter.Mode)
	assert.Equal(t, 0.2, sc.Filter.SmoothingFactor)
}

func TestParse_Errors(t *testing.T) {
	cases := map[string]string{
		"no equals":       "SPHERE_COUNT 16",
		"unknown key":     "COLOR=blue",
		"bad int":         "SPHERE_COUNT=many",
		"bad float":       "SPHERE_RADIUS=big",
		"negative count":  "SPHERE_COUNT=-1",
		"zero radius":     "SPHERE_RADIUS=0",
		"bad policy":      "CAPTURE_POLICY=burst",
		"bad format":      "PHOTO_FORMAT=gif",
		"bad source":      "ORIENTATION_SOURCE=gyro",
		"bad filter":      "FILTER_MODE=median",
		"bad smoothing":   "FILTER_MODE=exponential\nSMOOTHING_FACTOR=2",
		"empty broker":    "MQTT_BROKER=",
		"bad port":        "WEB_SERVER_PORT=70000",
		"bad i2c":         "DISPLAY_I2C_ADDR=zz",
		"imu without spi": "ORIENTATION_SOURCE=imu\nIMU_SPI_DEVICE=",
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(input))
			assert.Error(t, err)
		})
	}
}

func TestParse_ErrorHasLineNumber(t *testing.T) {
	_, err := Parse(strings.NewReader("# header\n\nSPHERE_COUNT=x\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 3")
}

func TestLoad_SampleFile(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "panorama_config.txt"))
	require.NoError(t, err)
	assert.Equal(t, 16, cfg.SphereCount)
	assert.Equal(t, "photos.zip", cfg.ArchiveName)
	assert.Equal(t, uint16(0x3C), cfg.DisplayI2CAddr)
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.txt"))
	assert.Error(t, err)
}

func TestInitGlobal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.txt")
	require.NoError(t, os.WriteFile(path, []byte("SPHERE_COUNT=8\n"), 0o644))

	require.NoError(t, InitGlobal(path))
	require.NotNil(t, Get())
	assert.Equal(t, 8, Get().SphereCount)

	// Later calls are no-ops.
	require.NoError(t, InitGlobal(filepath.Join(t.TempDir(), "other.txt")))
	assert.Equal(t, 8, Get().SphereCount)
}

func TestInterval(t *testing.T) {
	assert.Equal(t, 33*time.Millisecond, Interval(33))
}
