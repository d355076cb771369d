package split

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func grey(w, h int, v uint8) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = v, v, v, 255
	}
	return img
}

func band(img *image.RGBA, y0, y1 int, v uint8) {
	for y := y0; y < y1; y++ {
		for x := img.Bounds().Min.X; x < img.Bounds().Max.X; x++ {
			img.SetRGBA(x, y, color.RGBA{v, v, v, 255})
		}
	}
}

func TestSplitWhiteGutter(t *testing.T) {
	img := grey(400, 600, 128)
	band(img, 290, 310, 250)

	res := Split(img, DefaultOptions())
	require.True(t, res.TwoProduct)
	assert.InDelta(t, 300, res.SplitY, 3)
	require.Len(t, res.Sections, 2)
	assert.Equal(t, PositionTop, res.Sections[0].Position)
	assert.Equal(t, image.Rect(0, 0, 400, res.SplitY), res.Sections[0].Bounds)
	assert.Equal(t, PositionBottom, res.Sections[1].Position)
	assert.Equal(t, image.Rect(0, res.SplitY, 400, 600), res.Sections[1].Bounds)
}

func TestSplitUniformGrey(t *testing.T) {
	res := Split(grey(400, 600, 128), DefaultOptions())
	assert.False(t, res.TwoProduct)
	require.Len(t, res.Sections, 1)
	assert.Equal(t, PositionFull, res.Sections[0].Position)
	assert.Equal(t, image.Rect(0, 0, 400, 600), res.Sections[0].Bounds)
	assert.InDelta(t, 128, res.Peak, 0.01)
}

func TestSplitBandNotBrightEnough(t *testing.T) {
	img := grey(400, 600, 128)
	band(img, 290, 310, 230)

	assert.False(t, Split(img, DefaultOptions()).TwoProduct)
}

func TestSplitIgnoresGutterOutsideSearchBand(t *testing.T) {
	img := grey(400, 600, 128)
	band(img, 100, 130, 255)

	assert.False(t, Split(img, DefaultOptions()).TwoProduct)
}

func TestSplitPositionBounds(t *testing.T) {
	img := grey(400, 600, 128)
	band(img, 380, 430, 255)

	opts := DefaultOptions()
	opts.BandEnd = 0.9
	opts.MaxPos = 0.6
	assert.False(t, Split(img, opts).TwoProduct, "split at ~67% is outside the accepted range")

	opts.MaxPos = 0.75
	assert.True(t, Split(img, opts).TwoProduct)
}

func TestSplitEmptyImage(t *testing.T) {
	res := Split(image.NewRGBA(image.Rect(0, 0, 0, 0)), DefaultOptions())
	assert.False(t, res.TwoProduct)
	assert.Len(t, res.Sections, 1)
}
