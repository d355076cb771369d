package main

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pyhub-apps/pdfcatalog-golang/internal/testpdf"
	"github.com/pyhub-apps/pdfcatalog-golang/pkg/pdf"
)

func solidImage(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestPagesCommand(t *testing.T) {
	dir := t.TempDir()
	file := writeFile(t, dir, "catalog.pdf", testpdf.MustBuild(t,
		testpdf.Page{Boxes: []testpdf.Box{{X: 60, Y: 100, W: 200, H: 150}}},
		testpdf.Page{Labels: []testpdf.Label{{X: 100, Y: 100, Text: "LAMP-120"}}},
	))

	out, err := run(t, "pages", "--json", file)
	require.NoError(t, err)

	var pages []pageInfo
	require.NoError(t, json.Unmarshal([]byte(out), &pages))
	require.Len(t, pages, 2)
	assert.Equal(t, 1, pages[0].Page)
	assert.InDelta(t, testpdf.PageWidth, pages[0].Width, 0.01)
	assert.InDelta(t, testpdf.PageHeight, pages[1].Height, 0.01)
	assert.Positive(t, pages[0].Paths)
	assert.Positive(t, pages[1].Spans)

	out, err = run(t, "pages", "--no-color", file)
	require.NoError(t, err)
	assert.Contains(t, out, "2 pages")
}

func TestRenderCommand(t *testing.T) {
	dir := t.TempDir()
	file := writeFile(t, dir, "catalog.pdf", testpdf.MustBuild(t, testpdf.Page{}))
	target := filepath.Join(dir, "page.png")

	_, err := run(t, "render", "--dpi", "72", "-o", target, file)
	require.NoError(t, err)

	f, err := os.Open(target)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.InDelta(t, testpdf.PageWidth, img.Bounds().Dx(), 1)
	assert.InDelta(t, testpdf.PageHeight, img.Bounds().Dy(), 1)

	_, err = run(t, "render", "--page", "2", "-o", target, file)
	assert.ErrorIs(t, err, pdf.ErrPageRange)
}

func TestRegionsCommand(t *testing.T) {
	dir := t.TempDir()
	file := writeFile(t, dir, "catalog.pdf", testpdf.MustBuild(t, testpdf.Page{
		Pictures: []testpdf.Picture{{X: 50, Y: 60, W: 150, H: 150, Img: solidImage(200, 200, color.RGBA{180, 40, 40, 255})}},
	}))
	outDir := filepath.Join(dir, "regions")

	out, err := run(t, "regions", "--json", "-o", outDir, file)
	require.NoError(t, err)

	var pages []pageRegions
	require.NoError(t, json.Unmarshal([]byte(out), &pages))
	require.Len(t, pages, 1)
	assert.Equal(t, "zone", pages[0].Strategy)
	require.Len(t, pages[0].Regions, 1)

	reg := pages[0].Regions[0]
	assert.Equal(t, "illustration", reg.Kind)
	assert.Equal(t, filepath.Join(outDir, "p1_illustration_"+reg.Position+"_1.png"), reg.Path)
	assert.FileExists(t, reg.Path)

	_, err = run(t, "regions", "--page", "4", "-o", outDir, file)
	assert.ErrorIs(t, err, pdf.ErrPageRange)
}

func TestPricesCommand(t *testing.T) {
	dir := t.TempDir()
	file := writeFile(t, dir, "catalog.pdf", testpdf.MustBuild(t, testpdf.Page{Labels: []testpdf.Label{
		{X: 300, Y: 200, Text: "€ 149,00"},
	}}))
	target := filepath.Join(dir, "usd.pdf")

	out, err := run(t, "prices", "--json", "--from", "€", "-m", "2", "--to", "$", "-o", target, file)
	require.NoError(t, err)

	var summary priceSummary
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	assert.Equal(t, target, summary.Output)
	assert.Equal(t, 1, summary.Rewritten)
	require.Len(t, summary.Changes, 1)
	assert.Equal(t, 1, summary.Changes[0].Page)
	assert.Equal(t, "$ 298.00", summary.Changes[0].Replacement)
	assert.FileExists(t, target)

	_, err = run(t, "prices", "-o", target, file)
	assert.Error(t, err, "--from is required")
}

func gradient(w, h int, invert bool) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := uint8((x*255/w + y*255/h) / 2)
			if (x/8+y/8)%2 == 0 {
				v /= 2
			}
			if invert {
				v = 255 - v
			}
			img.Set(x, y, color.RGBA{v, v, v, 255})
		}
	}
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestHashAndSimilarCommands(t *testing.T) {
	dir := t.TempDir()
	query := writeFile(t, dir, "query.png", encodePNG(t, gradient(64, 64, false)))
	corpus := filepath.Join(dir, "corpus")
	require.NoError(t, os.Mkdir(corpus, 0o755))
	same := writeFile(t, corpus, "same.png", encodePNG(t, gradient(64, 64, false)))
	writeFile(t, corpus, "notes.txt", []byte("not an image"))

	out, err := run(t, "hash", "--json", query, same)
	require.NoError(t, err)
	var hashes []hashed
	require.NoError(t, json.Unmarshal([]byte(out), &hashes))
	require.Len(t, hashes, 2)
	assert.Len(t, hashes[0].Hash, 64)
	assert.Equal(t, hashes[0].Hash, hashes[1].Hash)

	out, err = run(t, "similar", "--json", query, corpus)
	require.NoError(t, err)
	var matches []match
	require.NoError(t, json.Unmarshal([]byte(out), &matches))
	require.Len(t, matches, 1)
	assert.Equal(t, same, matches[0].Path)
	assert.Equal(t, 0, matches[0].Distance)
	assert.Equal(t, 100, matches[0].Score)

	_, err = run(t, "hash", filepath.Join(corpus, "notes.txt"))
	assert.Error(t, err)
}

func TestPageIndexes(t *testing.T) {
	all, err := pageIndexes(nil, 3)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2}, all)

	some, err := pageIndexes([]int{3, 1}, 3)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 0}, some)

	_, err = pageIndexes([]int{0}, 3)
	assert.ErrorIs(t, err, pdf.ErrPageRange)
}

func TestBadConfigFails(t *testing.T) {
	dir := t.TempDir()
	cfg := writeFile(t, dir, "bad.yaml", []byte("layout: magazine\n"))
	file := writeFile(t, dir, "catalog.pdf", testpdf.MustBuild(t, testpdf.Page{}))

	_, err := run(t, "pages", "--config", cfg, file)
	assert.ErrorContains(t, err, "unknown layout")
}

// modelLog is a chat-completions endpoint that fails for model "a" and
// answers with no boxes otherwise, recording the model of every request.
type modelLog struct {
	mu     sync.Mutex
	models []string
}

func (m *modelLog) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Model string `json:"model"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	m.mu.Lock()
	m.models = append(m.models, req.Model)
	m.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if req.Model == "a" {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":{"message":"model unavailable","type":"server_error"}}`))
		return
	}
	json.NewEncoder(w).Encode(map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"model":   req.Model,
		"choices": []map[string]any{{"index": 0, "message": map[string]string{"role": "assistant", "content": "[]"}, "finish_reason": "stop"}},
	})
}

func TestRegionsCommandKeepsModelPreference(t *testing.T) {
	endpoint := &modelLog{}
	srv := httptest.NewServer(endpoint)
	defer srv.Close()
	t.Setenv("BOXES_API_URL", srv.URL+"/v1")
	t.Setenv("BOXES_MODELS", "a,b")

	dir := t.TempDir()
	file := writeFile(t, dir, "catalog.pdf", testpdf.MustBuild(t, testpdf.Page{}, testpdf.Page{}, testpdf.Page{}))

	_, err := run(t, "regions", "--json", "-o", filepath.Join(dir, "regions"), file)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "b", "b"}, endpoint.models, "pages after the first go straight to the model that answered")
}
