package raster

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pyhub-apps/pdfcatalog-golang/internal/testpdf"
	"github.com/pyhub-apps/pdfcatalog-golang/pkg/pdf"
)

func TestCoordinateRoundTrip(t *testing.T) {
	rects := []pdf.Rect{
		{X0: 0, Y0: 0, X1: 595.28, Y1: 841.89},
		{X0: 72, Y0: 144, X1: 216, Y1: 288},
		{X0: 33.3, Y0: 101.7, X1: 250.05, Y1: 400.2},
	}

	for _, dpi := range []float64{72, 100, 150, 300} {
		s := Scale(dpi)
		for _, r := range rects {
			px := ToPixels(r, dpi)
			assert.InDelta(t, r.X0*s, float64(px.Min.X), 0.5)
			assert.InDelta(t, r.Y1*s, float64(px.Max.Y), 0.5)

			back := ToPixels(ToDocument(px, dpi), dpi)
			assert.InDelta(t, px.Min.X, back.Min.X, 1)
			assert.InDelta(t, px.Min.Y, back.Min.Y, 1)
			assert.InDelta(t, px.Max.X, back.Max.X, 1)
			assert.InDelta(t, px.Max.Y, back.Max.Y, 1)
		}
	}
}

func TestPadClipsToBounds(t *testing.T) {
	bounds := image.Rect(0, 0, 100, 100)
	got := Pad(image.Rect(5, 10, 90, 98), 8, bounds)
	assert.Equal(t, image.Rect(0, 2, 98, 100), got)
}

func TestCropCopiesToOrigin(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 50, 50))
	src.Set(20, 30, color.RGBA{255, 0, 0, 255})

	out := Crop(src, image.Rect(10, 20, 40, 80))
	require.NotNil(t, out)
	assert.Equal(t, image.Rect(0, 0, 30, 30), out.Bounds())
	assert.Equal(t, color.RGBA{255, 0, 0, 255}, out.RGBAAt(10, 10))

	assert.Nil(t, Crop(src, image.Rect(60, 60, 70, 70)))
}

func TestOpaqueFlattensOntoWhite(t *testing.T) {
	src := image.NewNRGBA(image.Rect(3, 3, 5, 5))
	src.SetNRGBA(3, 3, color.NRGBA{0, 0, 0, 0})
	src.SetNRGBA(4, 4, color.NRGBA{0, 0, 255, 255})

	out := Opaque(src)
	assert.Equal(t, image.Rect(0, 0, 2, 2), out.Bounds())
	assert.Equal(t, color.RGBA{255, 255, 255, 255}, out.RGBAAt(0, 0))
	assert.Equal(t, color.RGBA{0, 0, 255, 255}, out.RGBAAt(1, 1))
}

func TestFitWithin(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2000, 1000))
	out := FitWithin(img, 1024)
	assert.Equal(t, 1024, out.Bounds().Dx())
	assert.Equal(t, 512, out.Bounds().Dy())

	small := image.NewRGBA(image.Rect(0, 0, 300, 200))
	assert.Same(t, small, FitWithin(small, 1024))
}

func TestEncode(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))

	png, err := EncodePNG(img)
	require.NoError(t, err)
	assert.Equal(t, "\x89PNG", string(png[:4]))

	jpg, err := EncodeJPEG(img, 75)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xFF, 0xD8}, jpg[:2])
}

func TestFitzRenderer(t *testing.T) {
	data := testpdf.MustBuild(t,
		testpdf.Page{Boxes: []testpdf.Box{{X: 100, Y: 100, W: 200, H: 200}}},
		testpdf.Page{},
	)
	r := NewFitzRenderer()

	n, err := r.PageCount(data)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	img, err := r.Render(data, 0, 150)
	require.NoError(t, err)
	s := Scale(150)
	assert.InDelta(t, testpdf.PageWidth*s, img.Bounds().Dx(), 2)
	assert.InDelta(t, testpdf.PageHeight*s, img.Bounds().Dy(), 2)

	// The box's top border is dark, the page background white.
	top := ToPixels(pdf.Rect{X0: 200, Y0: 100, X1: 201, Y1: 101}, 150)
	assert.Less(t, int(img.RGBAAt(top.Min.X, top.Min.Y).R), 128)
	assert.Equal(t, uint8(255), img.RGBAAt(10, 10).R)

	_, err = r.Render(data, 2, 72)
	assert.True(t, errors.Is(err, pdf.ErrPageRange))

	_, err = r.Render([]byte("nope"), 0, 72)
	assert.True(t, errors.Is(err, pdf.ErrOpen))
}
