// Package cache stores rendered images on disk, addressed by a fingerprint of
// every parameter that affects the pixels.
//
// Layout:
//
//	<root>/what_is_this.txt
//	<root>/<font base name>/<sha256>.cache.png
//
// Entries are never expired. They are pure derived data and may be deleted by
// hand at any time. There is no cross-process locking: concurrent writers of
// the same key produce identical bytes and the last rename wins.
package cache

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/ByLCY/textimage/fonts"
	"github.com/ByLCY/textimage/layout"
)

// ErrStorageUnavailable reports that the cache directory cannot be created or written.
var ErrStorageUnavailable = errors.New("storage unavailable")

// MarkerFile explains the purpose of the cache root to operators.
const MarkerFile = "what_is_this.txt"

// EntrySuffix is appended to the fingerprint to form an entry file name.
const EntrySuffix = ".cache.png"

const markerText = `This directory is a cache of rendered text images.

Every file is derived data: it can be regenerated from the text and style that
produced it. It is safe to delete any file or sub-directory here at any time;
missing entries are rendered again on the next request.
`

// Key addresses one cache entry.
type Key struct {
	Font string `json:"font"`
	Sum  string `json:"sum"`
}

// String returns the hex digest.
func (k Key) String() string { return k.Sum }

// Fingerprint derives the cache key of req. Every field of the request is
// serialized in a fixed order with length prefixes for strings and an explicit
// "unset" marker for optional fields, then hashed with SHA-256.
func Fingerprint(req layout.Request) Key {
	var buf bytes.Buffer
	buf.WriteString("textimage/v1\n")
	writeString(&buf, "engine", req.Engine)
	writeString(&buf, "font", req.Font)
	writeString(&buf, "fontdir", req.FontDir)
	writeInt(&buf, "size", req.SizePt)
	writeInt(&buf, "angle", req.Angle)
	writeOptional(&buf, "width", req.MaxWidth)
	writeOptional(&buf, "height", req.MaxHeight)
	buf.WriteString("wrap=" + strconv.FormatBool(req.Wrap) + "\n")
	buf.WriteString("colour=" + req.Colour.Hex() + "\n")
	buf.WriteString("background=" + req.Background.String() + "\n")
	writeString(&buf, "text", req.Text)

	sum := sha256.Sum256(buf.Bytes())
	return Key{Font: req.Font, Sum: hex.EncodeToString(sum[:])}
}

func writeString(buf *bytes.Buffer, name, value string) {
	fmt.Fprintf(buf, "%s=%d:%s\n", name, len(value), value)
}

func writeInt(buf *bytes.Buffer, name string, value int) {
	fmt.Fprintf(buf, "%s=%d\n", name, value)
}

func writeOptional(buf *bytes.Buffer, name string, value *int) {
	if value == nil {
		fmt.Fprintf(buf, "%s=unset\n", name)
		return
	}
	writeInt(buf, name, *value)
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for best-effort failures.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Store is an on-disk cache rooted at one directory.
type Store struct {
	root   string
	logger *slog.Logger

	mu           sync.Mutex
	bootstrapped bool
}

// New creates a Store rooted at root. Nothing is created on disk until
// EnsureDirectory or Store is called.
func New(root string, opts ...Option) *Store {
	s := &Store{
		root:   root,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Root returns the cache root directory.
func (s *Store) Root() string { return s.root }

// Dir returns the sub-directory that holds entries for font.
func (s *Store) Dir(font string) string {
	return filepath.Join(s.root, fonts.BaseName(font))
}

// Path returns the file an entry is stored in.
func (s *Store) Path(key Key) string {
	return filepath.Join(s.Dir(key.Font), key.Sum+EntrySuffix)
}

// EnsureDirectory creates the cache root and the sub-directory for font. It
// succeeds silently when both already exist. The marker file must be written
// on the first call of a Store; a marker that goes missing later is restored
// on a best-effort basis.
func (s *Store) EnsureDirectory(font string) error {
	if err := s.bootstrap(); err != nil {
		return err
	}
	if font == "" {
		return nil
	}
	if err := os.MkdirAll(s.Dir(font), 0o755); err != nil {
		return fmt.Errorf("%w: 创建缓存目录 %s 失败: %v", ErrStorageUnavailable, s.Dir(font), err)
	}
	return nil
}

func (s *Store) bootstrap() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	info, err := os.Stat(s.root)
	switch {
	case err == nil && !info.IsDir():
		return fmt.Errorf("%w: %s 不是目录", ErrStorageUnavailable, s.root)
	case errors.Is(err, os.ErrNotExist):
		if err := os.MkdirAll(s.root, 0o755); err != nil {
			return fmt.Errorf("%w: 创建缓存目录 %s 失败: %v", ErrStorageUnavailable, s.root, err)
		}
		s.logger.Info("cache directory created", "root", s.root)
	case err != nil:
		return fmt.Errorf("%w: 访问缓存目录 %s 失败: %v", ErrStorageUnavailable, s.root, err)
	}

	if err := s.ensureMarker(); err != nil {
		if !s.bootstrapped {
			return fmt.Errorf("%w: 写入说明文件失败: %v", ErrStorageUnavailable, err)
		}
		s.logger.Debug("restore cache marker failed", "root", s.root, "error", err)
	}
	s.bootstrapped = true
	return nil
}

func (s *Store) ensureMarker() error {
	marker := filepath.Join(s.root, MarkerFile)
	info, err := os.Stat(marker)
	if err == nil {
		if info.Mode().IsRegular() {
			return nil
		}
		return fmt.Errorf("%s 不是普通文件", marker)
	}
	return os.WriteFile(marker, []byte(markerText), 0o644)
}

// Lookup returns the bytes of a well-formed entry. Missing, unreadable and
// corrupt files are all reported as a miss; a later Store overwrites them.
// An entry is well formed only if it decodes completely, so a truncated file
// with an intact header is still a miss.
func (s *Store) Lookup(key Key) ([]byte, bool) {
	path := s.Path(key)
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.logger.Debug("cache entry unreadable", "path", path, "error", err)
		}
		return nil, false
	}
	if _, err := png.Decode(bytes.NewReader(data)); err != nil {
		s.logger.Warn("cache entry corrupt, treating as miss", "path", path, "error", err)
		return nil, false
	}
	return data, true
}

// Store writes an entry through a temporary file and an atomic rename so that
// readers never see a partially written image.
func (s *Store) Store(key Key, data []byte) error {
	if err := s.EnsureDirectory(key.Font); err != nil {
		return err
	}
	if err := writeAtomic(s.Path(key), data, 0o644); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return nil
}

// Purge removes every entry rendered with font.
func (s *Store) Purge(font string) error {
	if err := os.RemoveAll(s.Dir(font)); err != nil {
		return fmt.Errorf("%w: 清理缓存目录 %s 失败: %v", ErrStorageUnavailable, s.Dir(font), err)
	}
	return nil
}

// writeAtomic writes data to a temp file next to path and renames it into place.
func writeAtomic(path string, data []byte, perm os.FileMode) error {
	f, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp.*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := f.Name()
	success := false
	defer func() {
		if !success {
			os.Remove(tmpName)
		}
	}()

	if _, err := io.Copy(f, bytes.NewReader(data)); err != nil {
		f.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}
	success = true
	return nil
}
