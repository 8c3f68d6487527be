package server

import (
	"bytes"
	"encoding/json"
	"image/png"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/ByLCY/textimage/dsl"
	"github.com/ByLCY/textimage/fonts"
	"github.com/ByLCY/textimage/imagegen"
)

const testStyles = `
style banner {
  size: 30
  colour: #ff0000
  background: #ffffff
}
`

func newTestServer(t *testing.T) (*Server, string) {
	t.Helper()
	root := t.TempDir()
	fontDir := filepath.Join(root, "fonts")
	if err := os.MkdirAll(fontDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(fontDir, "placeholder.ttf"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := imagegen.DefaultConfig()
	cfg.FontDirectory = fontDir
	cfg.CacheDirectory = filepath.Join(root, "cache")
	cfg.Font = fonts.DefaultBuiltin
	svc, err := imagegen.New(cfg)
	if err != nil {
		t.Fatalf("imagegen.New: %v", err)
	}
	file, err := dsl.ParseString(testStyles)
	if err != nil {
		t.Fatal(err)
	}
	lib, err := dsl.NewLibrary(file)
	if err != nil {
		t.Fatal(err)
	}
	return New(svc, WithStyles(lib)), root
}

func get(t *testing.T, s *Server, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func renderURL(params map[string]string) string {
	q := url.Values{}
	for k, v := range params {
		q.Set(k, v)
	}
	return "/render?" + q.Encode()
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t)
	rec := get(t, s, "/healthz")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body["status"] != "ok" || body["engine"] != imagegen.DefaultEngine {
		t.Fatalf("unexpected body %v", body)
	}
	if rec.Header().Get(RequestIDHeader) == "" {
		t.Fatalf("missing request id")
	}
}

func TestRenderMissThenHit(t *testing.T) {
	s, _ := newTestServer(t)
	target := renderURL(map[string]string{"text": "Hi", "size": "20", "angle": "15"})

	first := get(t, s, target)
	if first.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", first.Code, first.Body)
	}
	if ct := first.Header().Get("Content-Type"); ct != "image/png" {
		t.Fatalf("Content-Type = %q", ct)
	}
	if first.Header().Get("X-Cache") != "MISS" {
		t.Fatalf("first request should miss")
	}
	if _, err := png.DecodeConfig(bytes.NewReader(first.Body.Bytes())); err != nil {
		t.Fatalf("body is not a PNG: %v", err)
	}

	second := get(t, s, target)
	if second.Header().Get("X-Cache") != "HIT" {
		t.Fatalf("second request should hit")
	}
	if second.Header().Get("X-Fingerprint") != first.Header().Get("X-Fingerprint") {
		t.Fatalf("fingerprints differ")
	}
	if !bytes.Equal(first.Body.Bytes(), second.Body.Bytes()) {
		t.Fatalf("cached body differs")
	}

	other := get(t, s, renderURL(map[string]string{"text": "Hi", "size": "20", "angle": "0"}))
	if other.Header().Get("X-Cache") != "MISS" || other.Header().Get("X-Fingerprint") == first.Header().Get("X-Fingerprint") {
		t.Fatalf("changed angle must produce a new fingerprint")
	}
}

func TestRenderNoCache(t *testing.T) {
	s, _ := newTestServer(t)
	target := renderURL(map[string]string{"text": "Hi", "nocache": "1"})
	for i := 0; i < 2; i++ {
		rec := get(t, s, target)
		if rec.Code != http.StatusOK || rec.Header().Get("X-Cache") != "MISS" {
			t.Fatalf("request %d: status %d cache %q", i, rec.Code, rec.Header().Get("X-Cache"))
		}
	}
}

func TestRenderErrors(t *testing.T) {
	s, _ := newTestServer(t)
	tests := []struct {
		name   string
		target string
		want   int
	}{
		{"missing text", "/render", http.StatusBadRequest},
		{"bad size", renderURL(map[string]string{"text": "x", "size": "big"}), http.StatusBadRequest},
		{"bad colour", renderURL(map[string]string{"text": "x", "colour": "#ff"}), http.StatusBadRequest},
		{"bad width", renderURL(map[string]string{"text": "x", "width": "-1"}), http.StatusBadRequest},
		{"bad nocache", renderURL(map[string]string{"text": "x", "nocache": "maybe"}), http.StatusBadRequest},
		{"bad data", renderURL(map[string]string{"text": "x", "data": "{"}), http.StatusBadRequest},
		{"missing font", renderURL(map[string]string{"text": "x", "font": "missing"}), http.StatusNotFound},
		{"unknown style", "/styles/nope?text=x", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(t, s, tt.target)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.want, rec.Body)
			}
			var body map[string]string
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("error body is not JSON: %v", err)
			}
			if body["error"] == "" || body["request_id"] != rec.Header().Get(RequestIDHeader) {
				t.Fatalf("unexpected error body %v", body)
			}
		})
	}
}

func TestRenderWithDataAndSize(t *testing.T) {
	s, _ := newTestServer(t)
	rec := get(t, s, renderURL(map[string]string{
		"text":       "Hello ${user.name}",
		"data":       `{"user":{"name":"Ada"}}`,
		"width":      "120",
		"height":     "40",
		"wrap":       "true",
		"background": "#000",
	}))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body)
	}
	cfg, err := png.DecodeConfig(bytes.NewReader(rec.Body.Bytes()))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Width != 120 || cfg.Height != 40 {
		t.Fatalf("size = %dx%d, want 120x40", cfg.Width, cfg.Height)
	}
}

func TestStyles(t *testing.T) {
	s, _ := newTestServer(t)
	rec := get(t, s, "/styles")
	var list map[string][]string
	if err := json.NewDecoder(rec.Body).Decode(&list); err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(list["styles"], []string{"banner"}) {
		t.Fatalf("styles = %v", list["styles"])
	}

	rec = get(t, s, "/styles/banner?text=Sale")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body)
	}
	img, err := png.Decode(bytes.NewReader(rec.Body.Bytes()))
	if err != nil {
		t.Fatal(err)
	}
	r, g, b, a := img.At(0, 0).RGBA()
	if r != 0xffff || g != 0xffff || b != 0xffff || a != 0xffff {
		t.Fatalf("style background not applied: %v %v %v %v", r, g, b, a)
	}
}

func TestFonts(t *testing.T) {
	s, _ := newTestServer(t)
	rec := get(t, s, "/fonts")
	var body map[string][]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if !slices.Contains(body["fonts"], "placeholder.ttf") || !slices.Contains(body["fonts"], fonts.DefaultBuiltin) {
		t.Fatalf("fonts = %v", body["fonts"])
	}
}

func TestRequestIDIsEchoed(t *testing.T) {
	s, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if got := rec.Header().Get(RequestIDHeader); got != "abc-123" {
		t.Fatalf("request id = %q", got)
	}
}
