package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"periph.io/x/devices/v3/ssd1306/image1bit"

	"github.com/relabs-tech/panorama_capture/internal/gps"
	"github.com/relabs-tech/panorama_capture/internal/session"
)

func TestDrawBar_Fill(t *testing.T) {
	img, _ := newCanvas()
	drawBar(img, 4, 16)

	mid := barY + barH/2
	// Outline.
	assert.Equal(t, image1bit.On, img.BitAt(barX, mid))
	assert.Equal(t, image1bit.On, img.BitAt(barX+barW-1, mid))
	assert.Equal(t, image1bit.On, img.BitAt(64, barY))

	// 126*4/16 = 31 columns filled after the left edge.
	assert.Equal(t, image1bit.On, img.BitAt(barX+1, mid))
	assert.Equal(t, image1bit.On, img.BitAt(barX+31, mid))
	assert.Equal(t, image1bit.Off, img.BitAt(barX+32, mid))
}

func TestDrawBar_Complete(t *testing.T) {
	img, _ := newCanvas()
	drawBar(img, 16, 16)

	mid := barY + barH/2
	for x := barX; x < barX+barW; x++ {
		assert.Equal(t, image1bit.On, img.BitAt(x, mid), "x=%d", x)
	}
}

func TestDrawBar_NoMarkers(t *testing.T) {
	img, _ := newCanvas()
	drawBar(img, 0, 0)
	assert.Equal(t, image1bit.Off, img.BitAt(barX+1, barY+barH/2))
}

func TestRenderProgress_WaitingHasNoBar(t *testing.T) {
	img := renderProgress(displaySnapshot{})
	for x := barX; x < barX+barW; x++ {
		assert.Equal(t, image1bit.Off, img.BitAt(x, barY), "x=%d", x)
	}
}

func TestRenderProgress_DrawsBar(t *testing.T) {
	img := renderProgress(displaySnapshot{
		status:     session.Status{Granted: true, Total: 16, Remaining: 8},
		haveStatus: true,
		fix:        gps.Fix{Latitude: 51.5636, Longitude: -0.704, Validity: "A"},
		haveFix:    true,
	})

	mid := barY + barH/2
	assert.Equal(t, image1bit.On, img.BitAt(barX+63, mid))
	assert.Equal(t, image1bit.Off, img.BitAt(barX+64, mid))
}

func TestShortID(t *testing.T) {
	assert.Equal(t, "abc", shortID("abc"))
	assert.Equal(t, "12345678", shortID("1234567890abcdef"))
}
