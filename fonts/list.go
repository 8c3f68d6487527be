package fonts

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
)

// FontPattern matches the font files an engine can load.
const FontPattern = "**/*.{ttf,otf,TTF,OTF}"

// List returns the identifiers of all fonts under dir followed by the
// built-in fonts. A missing dir only yields the built-ins.
func List(dir string) ([]string, error) {
	var names []string
	if dir != "" {
		matches, err := doublestar.Glob(os.DirFS(dir), FontPattern, doublestar.WithFilesOnly())
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("扫描字体目录 %s 失败: %w", dir, err)
		}
		sort.Strings(matches)
		names = append(names, matches...)
	}
	return append(names, Builtins()...), nil
}

// IsFontFile reports whether a file name looks like a loadable font.
func IsFontFile(name string) bool {
	ok, _ := doublestar.Match(FontPattern, filepath.ToSlash(name))
	return ok
}
