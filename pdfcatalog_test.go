package pdfcatalog

import (
	"context"
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pyhub-apps/pdfcatalog-golang/internal/testpdf"
)

func TestExtractRegionsAndRewrite(t *testing.T) {
	picture := image.NewRGBA(image.Rect(0, 0, 200, 200))
	for y := 0; y < 200; y++ {
		for x := 0; x < 200; x++ {
			picture.Set(x, y, color.RGBA{20, 90, 160, 255})
		}
	}
	data := testpdf.MustBuild(t, testpdf.Page{
		Pictures: []testpdf.Picture{{X: 60, Y: 80, W: 160, H: 160, Img: picture}},
		Labels:   []testpdf.Label{{X: 300, Y: 120, Text: "€ 149,00"}},
	})

	regions, err := ExtractRegions(context.Background(), data, 0)
	require.NoError(t, err)
	assert.Len(t, regions.Illustrations, 1)

	out, err := RewritePrices(data, "€", 2, "$")
	require.NoError(t, err)
	assert.NotEqual(t, data, out)

	doc, err := OpenBytes(out)
	require.NoError(t, err)
	defer doc.Close()
	assert.Equal(t, 1, doc.PageCount())
}

func TestStructuralErrorsAreDistinct(t *testing.T) {
	_, err := ExtractRegions(context.Background(), []byte("not a pdf"), 0)
	assert.True(t, errors.Is(err, ErrOpen))

	data := testpdf.MustBuild(t, testpdf.Page{})
	_, err = ExtractRegions(context.Background(), data, 1)
	assert.True(t, errors.Is(err, ErrPageRange))

	regions, err := ExtractRegions(context.Background(), data, 0)
	require.NoError(t, err)
	assert.True(t, regions.Empty())
}
