package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ByLCY/textimage/imagegen"
	"github.com/ByLCY/textimage/layout"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		wantErr string
		check   func(t *testing.T, cfg *File)
	}{
		{
			name: "empty path gives defaults",
			check: func(t *testing.T, cfg *File) {
				t.Helper()
				img, err := cfg.ImageConfig()
				if err != nil {
					t.Fatal(err)
				}
				def := imagegen.DefaultConfig()
				if img.Font != def.Font || img.SizePt != def.SizePt || img.CacheDirectory != def.CacheDirectory {
					t.Errorf("ImageConfig() = %+v, want defaults %+v", img, def)
				}
				if !img.CacheEnabled || img.Background != layout.Transparent || img.Colour != layout.Black {
					t.Errorf("unexpected defaults %+v", img)
				}
			},
		},
		{
			name: "toml overrides",
			file: "textimage.toml",
			content: `
engine = "opentype"
styles = "styles.style"

[render]
font = "verdana"
size = 40
angle = 15
width = 300
wrap = true
colour = "#ff0000"
background = "fff"

[cache]
enabled = false

[fonts]
watch = true
remote = ["google:Roboto:400"]

[log]
level = "debug"
`,
			check: func(t *testing.T, cfg *File) {
				t.Helper()
				if cfg.Engine != "opentype" || cfg.Styles != "styles.style" || !cfg.Fonts.Watch {
					t.Errorf("unexpected top-level values %+v", cfg)
				}
				if cfg.Cache.Dir != "./cache/" {
					t.Errorf("cache.dir default lost: %q", cfg.Cache.Dir)
				}
				img, err := cfg.ImageConfig()
				if err != nil {
					t.Fatal(err)
				}
				if img.Font != "verdana.ttf" || img.SizePt != 40 || img.Angle != 15 || !img.Wrap || img.CacheEnabled {
					t.Errorf("unexpected image config %+v", img)
				}
				if img.MaxWidth == nil || *img.MaxWidth != 300 || img.MaxHeight != nil {
					t.Errorf("unexpected caps %v %v", img.MaxWidth, img.MaxHeight)
				}
				if img.Colour != (layout.Color{R: 255}) || img.Background != layout.Opaque(layout.Color{R: 255, G: 255, B: 255}) {
					t.Errorf("unexpected colours %+v %+v", img.Colour, img.Background)
				}
			},
		},
		{
			name: "yaml overrides",
			file: "textimage.yaml",
			content: `
render:
  size: 24
  background: transparent
server:
  addr: 127.0.0.1:9000
log:
  file: /tmp/textimage.log
  max_size_mb: 5
`,
			check: func(t *testing.T, cfg *File) {
				t.Helper()
				if cfg.Render.Size != 24 || cfg.Server.Addr != "127.0.0.1:9000" || cfg.Log.MaxSizeMB != 5 {
					t.Errorf("unexpected values %+v", cfg)
				}
				if cfg.Render.Font != "arial.ttf" {
					t.Errorf("render.font default lost: %q", cfg.Render.Font)
				}
			},
		},
		{name: "unknown extension", file: "textimage.ini", content: "x=1", wantErr: "格式"},
		{name: "bad toml", file: "bad.toml", content: "engine = ", wantErr: "TOML"},
		{name: "unknown yaml field", file: "bad.yml", content: "rendr:\n  size: 3\n", wantErr: "YAML"},
		{name: "bad engine", file: "e.toml", content: `engine = "cairo"`, wantErr: "cairo"},
		{name: "bad level", file: "l.toml", content: "[log]\nlevel = \"loud\"", wantErr: "log.level"},
		{name: "bad colour", file: "c.toml", content: "[render]\ncolour = \"#ff\"", wantErr: "render.colour"},
		{name: "bad size", file: "s.toml", content: "[render]\nsize = 0", wantErr: "render.size"},
		{name: "bad remote", file: "r.toml", content: "[fonts]\nremote = [\"Roboto\"]", wantErr: "fonts.remote"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := ""
			if tt.file != "" {
				path = writeFile(t, tt.file, tt.content)
			}
			cfg, err := Load(path)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("Load() error = %v, want containing %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Load() error: %v", err)
			}
			if tt.check != nil {
				tt.check(t, cfg)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("error = %v, want ErrNotExist", err)
	}
}

func TestInvalidImageConfigIsInvalidInput(t *testing.T) {
	cfg := Default()
	cfg.Render.Height = -3
	if _, err := cfg.ImageConfig(); !errors.Is(err, imagegen.ErrInvalidInput) {
		t.Fatalf("error = %v, want ErrInvalidInput", err)
	}
}
