// Package fonts resolves font identifiers to font files and bytes.
//
// An identifier is either a file name relative to a font directory
// ("arial.ttf", ".ttf" is appended when no extension is given) or a built-in
// font written as "builtin:<name>".
package fonts

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/goregular"
)

// ErrFontUnavailable reports that a font cannot be located or loaded.
var ErrFontUnavailable = errors.New("font unavailable")

// BuiltinPrefix marks identifiers served from the binary instead of the font directory.
const BuiltinPrefix = "builtin:"

// DefaultBuiltin is used by engine capability checks.
const DefaultBuiltin = BuiltinPrefix + "go-regular"

var builtins = map[string][]byte{
	"go-regular": goregular.TTF,
	"go-bold":    gobold.TTF,
	"go-mono":    gomono.TTF,
}

// Builtins returns the sorted identifiers of the built-in fonts.
func Builtins() []string {
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, BuiltinPrefix+name)
	}
	sort.Strings(names)
	return names
}

// IsBuiltin reports whether name refers to a built-in font.
func IsBuiltin(name string) bool {
	return strings.HasPrefix(name, BuiltinPrefix)
}

// Normalize 为没有扩展名的字体名补上 .ttf；内置字体保持原样。
func Normalize(name string) string {
	name = strings.TrimSpace(name)
	if name == "" || IsBuiltin(name) {
		return name
	}
	if filepath.Ext(name) == "" {
		return name + ".ttf"
	}
	return name
}

// BaseName returns the identifier without extension, safe to use as a
// directory name ("arial.ttf" -> "arial", "builtin:go-mono" -> "builtin-go-mono").
func BaseName(name string) string {
	if IsBuiltin(name) {
		return "builtin-" + strings.TrimPrefix(name, BuiltinPrefix)
	}
	base := filepath.Base(name)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Locate resolves name under dir and returns the path engines should load.
// Built-in identifiers are returned unchanged.
func Locate(dir, name string) (string, error) {
	name = Normalize(name)
	if name == "" {
		return "", fmt.Errorf("%w: 字体名为空", ErrFontUnavailable)
	}
	if IsBuiltin(name) {
		if _, ok := builtins[strings.TrimPrefix(name, BuiltinPrefix)]; !ok {
			return "", fmt.Errorf("%w: 找不到内置字体 %s", ErrFontUnavailable, name)
		}
		return name, nil
	}
	if !filepath.IsLocal(name) {
		return "", fmt.Errorf("%w: 字体名 %q 不能指向字体目录之外", ErrFontUnavailable, name)
	}
	path := filepath.Join(dir, name)
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrFontUnavailable, path, err)
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("%w: %s 不是普通文件", ErrFontUnavailable, path)
	}
	return path, nil
}

// Load returns the font bytes for a path produced by Locate.
func Load(path string) ([]byte, error) {
	if IsBuiltin(path) {
		data, ok := builtins[strings.TrimPrefix(path, BuiltinPrefix)]
		if !ok {
			return nil, fmt.Errorf("%w: 找不到内置字体 %s", ErrFontUnavailable, path)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: 读取字体 %s 失败: %v", ErrFontUnavailable, path, err)
	}
	return data, nil
}
