package boxes

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoxValid(t *testing.T) {
	tests := []struct {
		name string
		box  Box
		want bool
	}{
		{"Full page", Box{0, 0, 100, 100, ""}, true},
		{"Inner", Box{10, 20, 40, 60, LabelDrawing}, true},
		{"Inverted x", Box{40, 20, 10, 60, ""}, false},
		{"Zero height", Box{10, 20, 40, 20, ""}, false},
		{"Negative", Box{-1, 20, 40, 60, ""}, false},
		{"Beyond 100", Box{10, 20, 40, 100.5, ""}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.box.Valid())
		})
	}
}

func TestBoxToPixels(t *testing.T) {
	bounds := image.Rect(0, 0, 1000, 2000)

	assert.Equal(t, image.Rect(100, 400, 500, 1200), Box{X0: 10, Y0: 20, X1: 50, Y1: 60}.ToPixels(bounds, 0))
	assert.Equal(t, image.Rect(90, 390, 510, 1210), Box{X0: 10, Y0: 20, X1: 50, Y1: 60}.ToPixels(bounds, 10))
	assert.Equal(t, bounds, Box{X0: 0, Y0: 0, X1: 100, Y1: 100}.ToPixels(bounds, 10))
}

func TestParseBoxes(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    int
	}{
		{"Plain array", `[{"x0":1,"y0":2,"x1":3,"y1":4}]`, 1},
		{"Fenced", "Here you go:\n```json\n[{\"x0\":1,\"y0\":2,\"x1\":3,\"y1\":4,\"label\":\"drawing\"}]\n```", 1},
		{"Surrounded by prose", `The boxes are [{"x0":1,"y0":2,"x1":3,"y1":4},{"x0":5,"y0":6,"x1":7,"y1":8}] as requested.`, 2},
		{"Truncated", `[{"x0":1,"y0":2,"x1":3,"y1":4},{"x0":5,"y0":6,"x1":7,"y1":8},{"x0":9,"y0"`, 2},
		{"Bad element dropped", `[{"x0":1,"y0":2,"x1":3,"y1":4},"oops",{"x0":"wide"}]`, 1},
		{"Empty array", `[]`, 0},
		{"No array", `I cannot see any drawings.`, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Len(t, ParseBoxes(tt.content), tt.want)
		})
	}

	got := ParseBoxes("```json\n[{\"x0\":1,\"y0\":2,\"x1\":3,\"y1\":4,\"label\":\"drawing\"}]\n```")
	require.Len(t, got, 1)
	assert.True(t, got[0].IsDrawing())
}

// fakeEndpoint answers chat-completion requests at /v1/chat/completions.
type fakeEndpoint struct {
	mu     sync.Mutex
	calls  []string
	status map[string][]int // per model, consumed in order; 200 when exhausted
	reply  string
}

func (f *fakeEndpoint) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/v1/chat/completions" {
		http.NotFound(w, r)
		return
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var req struct {
		Model    string            `json:"model"`
		Messages []json.RawMessage `json:"messages"`
	}
	if err := json.Unmarshal(body, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	f.calls = append(f.calls, req.Model)
	status := http.StatusOK
	if codes := f.status[req.Model]; len(codes) > 0 {
		status, f.status[req.Model] = codes[0], codes[1:]
	}
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if status != http.StatusOK {
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]string{"message": http.StatusText(status), "type": "server_error"},
		})
		return
	}
	if len(req.Messages) != 1 || !bytes.Contains(req.Messages[0], []byte("data:image/jpeg;base64,")) {
		http.Error(w, "missing image", http.StatusBadRequest)
		return
	}
	json.NewEncoder(w).Encode(map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 1,
		"model":   req.Model,
		"choices": []map[string]any{{
			"index":         0,
			"message":       map[string]string{"role": "assistant", "content": f.reply},
			"finish_reason": "stop",
		}},
		"usage": map[string]int{"prompt_tokens": 1, "completion_tokens": 1, "total_tokens": 2},
	})
}

func newTestClient(t *testing.T, url, key string, opts ...Option) *Client {
	t.Helper()
	c, err := NewClient(url+"/v1", key, opts...)
	require.NoError(t, err)
	return c
}

func TestClientModelFallbackAndPreference(t *testing.T) {
	fake := &fakeEndpoint{
		status: map[string][]int{"a": {http.StatusInternalServerError, http.StatusInternalServerError}},
		reply:  `[{"x0":10,"y0":10,"x1":50,"y1":50,"label":"illustration"}]`,
	}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	c := newTestClient(t, srv.URL, "key", WithModels("a", "b", "c"))
	pref := NewPreference()
	ctx := WithPreference(context.Background(), pref)
	img := image.NewRGBA(image.Rect(0, 0, 64, 64))

	got, err := c.Boxes(ctx, img, "")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "b", pref.Model())

	_, err = c.Boxes(ctx, img, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "b"}, fake.calls, "the preferred model is tried first")
}

func TestClientRetriesRateLimit(t *testing.T) {
	fake := &fakeEndpoint{
		status: map[string][]int{"a": {http.StatusTooManyRequests, http.StatusTooManyRequests}},
		reply:  `[]`,
	}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	c := newTestClient(t, srv.URL, "", WithModels("a"), WithRetry(3, time.Millisecond))
	got, err := c.Boxes(context.Background(), image.NewRGBA(image.Rect(0, 0, 8, 8)), "find boxes")
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Len(t, fake.calls, 3)
}

func TestClientAllModelsFail(t *testing.T) {
	fake := &fakeEndpoint{
		status: map[string][]int{"a": {http.StatusTooManyRequests, http.StatusTooManyRequests}},
	}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	c := newTestClient(t, srv.URL, "", WithModels("a"), WithRetry(1, time.Millisecond))
	_, err := c.Boxes(context.Background(), image.NewRGBA(image.Rect(0, 0, 8, 8)), "")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRateLimited)
}

func TestClientHonoursDeadline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := newTestClient(t, srv.URL, "").Boxes(ctx, image.NewRGBA(image.Rect(0, 0, 8, 8)), "")
	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
}

func TestPreferenceFromEmptyContext(t *testing.T) {
	p := PreferenceFrom(context.Background())
	assert.Nil(t, p)
	assert.Equal(t, "", p.Model())
	p.Set("ignored")
}

func TestClientAcceptsFullEndpointURL(t *testing.T) {
	fake := &fakeEndpoint{reply: `[{"x0":0,"y0":0,"x1":100,"y1":100}]`}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	c, err := NewClient(srv.URL+"/v1/chat/completions", "key", WithModels("a"))
	require.NoError(t, err)
	got, err := c.Boxes(context.Background(), image.NewRGBA(image.Rect(0, 0, 8, 8)), "")
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, []string{"a"}, fake.calls)
}
