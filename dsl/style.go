package dsl

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/ByLCY/textimage/imagegen"
	"github.com/ByLCY/textimage/layout"
)

// ErrUnknownStyle reports a style name that is not defined.
var ErrUnknownStyle = errors.New("unknown style")

// Library holds parsed styles by name.
type Library struct {
	styles map[string]*StyleDecl
}

// Load reads and parses a style file from disk.
func Load(path string) (*Library, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("读取样式文件失败: %w", err)
	}
	defer f.Close()
	file, err := Parse(path, f)
	if err != nil {
		return nil, fmt.Errorf("%w: 解析样式文件失败: %v", layout.ErrInvalidInput, err)
	}
	return NewLibrary(file)
}

// NewLibrary indexes the styles of file; duplicate names are an error.
func NewLibrary(file *File) (*Library, error) {
	lib := &Library{styles: map[string]*StyleDecl{}}
	if file == nil {
		return lib, nil
	}
	for _, st := range file.Styles {
		if prev, ok := lib.styles[st.Name]; ok {
			return nil, fmt.Errorf("%w: %s: 样式 %q 已在 %s 定义", layout.ErrInvalidInput, st.Pos, st.Name, prev.Pos)
		}
		lib.styles[st.Name] = st
	}
	return lib, nil
}

// Names returns the style names in sorted order.
func (l *Library) Names() []string {
	names := make([]string, 0, len(l.styles))
	for name := range l.styles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup returns the named style.
func (l *Library) Lookup(name string) (*StyleDecl, error) {
	if l != nil {
		if st, ok := l.styles[name]; ok {
			return st, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownStyle, name)
}

// Apply writes the style's properties into cfg through the strict setters.
// cfg is left unchanged when any property is invalid.
func (s *StyleDecl) Apply(cfg *imagegen.Config) error {
	next := cfg.Clone()
	for _, p := range s.Properties {
		if err := p.apply(&next); err != nil {
			return fmt.Errorf("%s: 样式 %s 的属性 %s: %w", p.Pos, s.Name, p.Key, err)
		}
	}
	*cfg = next
	return nil
}

func (p *Property) apply(cfg *imagegen.Config) error {
	raw := p.Value.Raw()
	switch strings.ToLower(p.Key) {
	case "font":
		return cfg.SetFont(raw)
	case "size":
		n, err := p.number()
		if err != nil {
			return err
		}
		return cfg.SetFontSize(n, true)
	case "angle":
		n, err := p.number()
		if err != nil {
			return err
		}
		return cfg.SetFontAngle(n, true)
	case "colour", "color":
		return cfg.SetColour(raw)
	case "background":
		return cfg.SetBackground(raw)
	case "width", "height":
		dim, err := p.dimension()
		if err != nil {
			return err
		}
		if strings.EqualFold(p.Key, "width") {
			return cfg.SetSize(dim, cfg.MaxHeight, true)
		}
		return cfg.SetSize(cfg.MaxWidth, dim, true)
	case "wrap":
		switch raw {
		case "true", "on", "yes":
			cfg.UseWrapping(true)
		case "false", "off", "no":
			cfg.UseWrapping(false)
		default:
			return fmt.Errorf("%w: %q 不是布尔值", layout.ErrInvalidInput, raw)
		}
		return nil
	default:
		return fmt.Errorf("%w: 未知属性", layout.ErrInvalidInput)
	}
}

// number 去掉 px/pt 后缀；字号按像素解释。
func (p *Property) number() (string, error) {
	if p.Value == nil || p.Value.Number == nil {
		return "", fmt.Errorf("%w: 需要数字，实际 %q", layout.ErrInvalidInput, p.Value.Raw())
	}
	n := strings.TrimSuffix(strings.TrimSuffix(*p.Value.Number, "px"), "pt")
	return n, nil
}

// dimension returns nil for "auto".
func (p *Property) dimension() (any, error) {
	if p.Value != nil && p.Value.Ident != nil && *p.Value.Ident == "auto" {
		return nil, nil
	}
	return p.number()
}
