package imagegen

import (
	"fmt"
	"strings"

	"github.com/ByLCY/textimage/renderer"
	canvasrenderer "github.com/ByLCY/textimage/renderer/canvas"
	otrenderer "github.com/ByLCY/textimage/renderer/opentype"
)

// DefaultEngine is the glyph engine used when none is configured.
const DefaultEngine = canvasrenderer.Name

// Engines lists the available glyph engine names.
func Engines() []string {
	return []string{canvasrenderer.Name, otrenderer.Name}
}

// NewEngine creates the glyph engine called name ("" selects DefaultEngine).
func NewEngine(name string) (renderer.GlyphRenderer, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", canvasrenderer.Name:
		return canvasrenderer.NewRenderer(), nil
	case otrenderer.Name:
		return otrenderer.NewRenderer(), nil
	default:
		return nil, fmt.Errorf("%w: 未知渲染引擎 %q，可选 %s", ErrInvalidInput, name, strings.Join(Engines(), ", "))
	}
}
