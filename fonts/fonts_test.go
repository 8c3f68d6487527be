package fonts

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/image/font/gofont/goregular"
)

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"arial":           "arial.ttf",
		"arial.ttf":       "arial.ttf",
		"Serif.otf":       "Serif.otf",
		" mono ":          "mono.ttf",
		"builtin:go-mono": "builtin:go-mono",
		"":                "",
	}
	for in, want := range cases {
		if got := Normalize(in); got != want {
			t.Fatalf("Normalize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestBaseName(t *testing.T) {
	cases := map[string]string{
		"arial.ttf":       "arial",
		"sub/Serif.otf":   "Serif",
		"builtin:go-mono": "builtin-go-mono",
	}
	for in, want := range cases {
		if got := BaseName(in); got != want {
			t.Fatalf("BaseName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestLocate(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "arial.ttf"), goregular.TTF, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(filepath.Join(dir, "folder.ttf"), 0o755); err != nil {
		t.Fatal(err)
	}

	path, err := Locate(dir, "arial")
	if err != nil {
		t.Fatalf("Locate error: %v", err)
	}
	if path != filepath.Join(dir, "arial.ttf") {
		t.Fatalf("unexpected path %q", path)
	}

	for _, name := range []string{"missing", "folder.ttf", "../arial.ttf", "", "builtin:nope"} {
		if _, err := Locate(dir, name); !errors.Is(err, ErrFontUnavailable) {
			t.Fatalf("Locate(%q) error = %v, want ErrFontUnavailable", name, err)
		}
	}

	if got, err := Locate("", DefaultBuiltin); err != nil || got != DefaultBuiltin {
		t.Fatalf("Locate(builtin) = %q, %v", got, err)
	}
}

func TestLoad(t *testing.T) {
	data, err := Load(DefaultBuiltin)
	if err != nil {
		t.Fatalf("Load builtin error: %v", err)
	}
	if !bytes.Equal(data, goregular.TTF) {
		t.Fatalf("builtin bytes mismatch")
	}
	if _, err := Load(filepath.Join(t.TempDir(), "nope.ttf")); !errors.Is(err, ErrFontUnavailable) {
		t.Fatalf("Load missing error = %v", err)
	}
}

func TestList(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.ttf", "a.otf", "notes.txt", "sub/c.ttf"} {
		path := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	got, err := List(dir)
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	want := append([]string{"a.otf", "b.ttf", "sub/c.ttf"}, Builtins()...)
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("List = %q, want %q", got, want)
	}
}

func TestFetchDownloadsOnce(t *testing.T) {
	var hits atomic.Int32
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		switch r.URL.Path {
		case "/css2":
			if !strings.Contains(r.URL.RawQuery, "family=Go+Sans") {
				t.Errorf("unexpected query %q", r.URL.RawQuery)
			}
			fmt.Fprintf(w, "@font-face { src: url(%s/files/gosans.ttf) format('truetype'); }", srv.URL)
		case "/files/gosans.ttf":
			w.Write(goregular.TTF)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	f := NewFetcher()
	f.CSSEndpoint = srv.URL + "/css2"
	dir := t.TempDir()

	name, err := f.Fetch(context.Background(), "google:Go Sans:400", dir)
	if err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	if name != "GoSans-400.ttf" {
		t.Fatalf("unexpected name %q", name)
	}
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		t.Fatalf("font not written: %v", err)
	}
	if !bytes.Equal(data, goregular.TTF) {
		t.Fatalf("font bytes mismatch")
	}

	if _, err := f.Fetch(context.Background(), "google:Go Sans:400", dir); err != nil {
		t.Fatalf("second Fetch error: %v", err)
	}
	if n := hits.Load(); n != 2 {
		t.Fatalf("expected 2 HTTP requests in total, got %d", n)
	}
}

func TestFetchRejectsBadSpec(t *testing.T) {
	if _, err := NewFetcher().Fetch(context.Background(), "local:arial", t.TempDir()); err == nil {
		t.Fatalf("expected error for non-google spec")
	}
}

func TestRemoteFileNameStaysInFontDir(t *testing.T) {
	for _, spec := range []string{"google:../../x:1", "google:Inter:800/../../y", `google:a\b:400`} {
		if name, err := RemoteFileName(spec); !errors.Is(err, ErrFontUnavailable) {
			t.Fatalf("RemoteFileName(%q) = %q, %v; want ErrFontUnavailable", spec, name, err)
		}
	}
	dir := t.TempDir()
	if _, err := NewFetcher().Fetch(context.Background(), "google:../../x:1", dir); err == nil {
		t.Fatalf("expected error for a spec escaping the font dir")
	}
}

func TestFetchRejectsOversizedFont(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/css2":
			fmt.Fprintf(w, "@font-face { src: url(%s/files/big.ttf) format('truetype'); }", srv.URL)
		case "/files/big.ttf":
			w.Write(goregular.TTF)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	f := NewFetcher()
	f.CSSEndpoint = srv.URL + "/css2"
	f.MaxFontBytes = int64(len(goregular.TTF) - 1)
	dir := t.TempDir()
	if _, err := f.Fetch(context.Background(), "google:Big:400", dir); err == nil {
		t.Fatalf("expected error for a font over the size limit")
	}
	if _, err := os.Stat(filepath.Join(dir, "Big-400.ttf")); !os.IsNotExist(err) {
		t.Fatalf("truncated font must not be written: %v", err)
	}

	f.MaxFontBytes = int64(len(goregular.TTF))
	if _, err := f.Fetch(context.Background(), "google:Big:400", dir); err != nil {
		t.Fatalf("font exactly at the limit rejected: %v", err)
	}
}

func TestWatcherReportsFontWrites(t *testing.T) {
	dir := t.TempDir()
	changed := make(chan string, 8)
	w, err := Watch(dir, func(name string) { changed <- name }, nil)
	if err != nil {
		t.Skipf("fsnotify unavailable: %v", err)
	}
	defer w.Close()

	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "arial.ttf"), goregular.TTF, 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case name := <-changed:
		if name != "arial.ttf" {
			t.Fatalf("unexpected change %q", name)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("no change event received")
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("second Close error: %v", err)
	}
}
