// Package imagegen is the entry point for rendering text to PNG. A Service
// owns the render configuration, a glyph engine and the disk cache, and is
// safe for concurrent use.
package imagegen

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/ByLCY/textimage/cache"
	"github.com/ByLCY/textimage/compose"
	"github.com/ByLCY/textimage/fonts"
	"github.com/ByLCY/textimage/layout"
	"github.com/ByLCY/textimage/renderer"
	canvasrenderer "github.com/ByLCY/textimage/renderer/canvas"
)

// Result describes a successful render.
type Result struct {
	Request   layout.Request
	Key       cache.Key
	CacheHit  bool
	CachePath string // empty when the cache was not consulted
	Box       *layout.BoundingBox
	Bytes     int
}

// Report converts r into the JSON debug report.
func (r Result) Report() *layout.Report {
	return &layout.Report{
		Request:     r.Request,
		Fingerprint: r.Key.Sum,
		CachePath:   r.CachePath,
		CacheHit:    r.CacheHit,
		Box:         r.Box,
		Bytes:       r.Bytes,
	}
}

// Option configures a Service.
type Option func(*options)

type options struct {
	glyphs    renderer.GlyphRenderer
	glyphsSet bool
	logger    *slog.Logger
}

// WithGlyphRenderer replaces the default canvas engine.
func WithGlyphRenderer(g renderer.GlyphRenderer) Option {
	return func(o *options) {
		o.glyphs = g
		o.glyphsSet = true
	}
}

// WithLogger sets the logger; the default discards everything.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// Service renders text with the current configuration.
type Service struct {
	glyphs   renderer.GlyphRenderer
	composer *compose.Composer
	logger   *slog.Logger

	mu    sync.RWMutex
	cfg   Config
	store *cache.Store // nil while caching is disabled
}

// New checks the glyph engine and, when caching is enabled, bootstraps the
// cache directory. Either failure is returned and no Service is created.
func New(cfg Config, opts ...Option) (*Service, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if !o.glyphsSet {
		o.glyphs = canvasrenderer.NewRenderer()
	}
	if o.logger == nil {
		o.logger = slog.New(slog.DiscardHandler)
	}
	if o.glyphs == nil {
		return nil, fmt.Errorf("%w: 未提供字形渲染器", ErrUnsupportedEnvironment)
	}
	if err := o.glyphs.Check(); err != nil {
		return nil, fmt.Errorf("%w: 字形渲染器 %s 不可用: %v", ErrUnsupportedEnvironment, o.glyphs.Name(), err)
	}
	cfg = cfg.Clone()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Service{
		glyphs:   o.glyphs,
		composer: compose.New(o.glyphs),
		logger:   o.logger,
		cfg:      cfg,
	}
	if cfg.CacheEnabled {
		store, err := s.openStore(cfg.CacheDirectory)
		if err != nil {
			return nil, err
		}
		s.store = store
	}
	o.logger.Info("render service ready", "engine", o.glyphs.Name(), "cache", cfg.CacheEnabled)
	return s, nil
}

func (s *Service) openStore(dir string) (*cache.Store, error) {
	store := cache.New(dir, cache.WithLogger(s.logger))
	if err := store.EnsureDirectory(""); err != nil {
		return nil, fmt.Errorf("初始化缓存目录失败: %w", err)
	}
	return store, nil
}

// Engine returns the name of the glyph engine in use.
func (s *Service) Engine() string { return s.glyphs.Name() }

// Snapshot returns a copy of the current configuration.
func (s *Service) Snapshot() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.Clone()
}

// Update applies fn to a copy of the configuration and installs the copy if
// fn succeeds. Enabling the cache or moving it bootstraps the new directory
// first; on failure the previous configuration stays in effect.
func (s *Service) Update(fn func(*Config) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.cfg.Clone()
	if err := fn(&next); err != nil {
		return err
	}
	if err := next.Validate(); err != nil {
		return err
	}
	store := s.store
	switch {
	case !next.CacheEnabled:
		store = nil
	case store == nil || store.Root() != next.CacheDirectory:
		opened, err := s.openStore(next.CacheDirectory)
		if err != nil {
			return err
		}
		store = opened
	}
	s.cfg, s.store = next, store
	return nil
}

// Generate renders text with the current configuration and hands the PNG to
// out. With bypassCache the cache is neither read nor written.
func (s *Service) Generate(ctx context.Context, text string, out Output, bypassCache bool) (Result, error) {
	s.mu.RLock()
	cfg, store := s.cfg.Clone(), s.store
	s.mu.RUnlock()
	return s.render(ctx, cfg, store, text, out, bypassCache)
}

// Render is Generate with an explicit configuration, e.g. a snapshot with
// per-request overrides. cfg must pass Validate.
func (s *Service) Render(ctx context.Context, cfg Config, text string, out Output, bypassCache bool) (Result, error) {
	if err := cfg.Validate(); err != nil {
		return Result{}, err
	}
	s.mu.RLock()
	store := s.store
	s.mu.RUnlock()
	switch {
	case !cfg.CacheEnabled:
		store = nil
	case store == nil || store.Root() != cfg.CacheDirectory:
		store = cache.New(cfg.CacheDirectory, cache.WithLogger(s.logger))
	}
	return s.render(ctx, cfg.Clone(), store, text, out, bypassCache)
}

func (s *Service) render(ctx context.Context, cfg Config, store *cache.Store, text string, out Output, bypassCache bool) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	if out == nil {
		return Result{}, fmt.Errorf("%w: 未指定输出目标", ErrDestinationUnwritable)
	}
	if err := out.prepare(); err != nil {
		return Result{}, err
	}
	fontPath, err := fonts.Locate(cfg.FontDirectory, cfg.Font)
	if err != nil {
		return Result{}, err
	}

	req := cfg.Request(text, s.glyphs.Name())
	res := Result{Request: req, Key: cache.Fingerprint(req)}
	useCache := store != nil && !bypassCache
	if useCache {
		res.CachePath = store.Path(res.Key)
		if data, ok := store.Lookup(res.Key); ok {
			s.logger.Debug("cache hit", "font", req.Font, "key", res.Key.Sum)
			if err := out.deliver(data); err != nil {
				return Result{}, err
			}
			res.CacheHit = true
			res.Bytes = len(data)
			return res, nil
		}
	}

	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	data, box, err := s.composer.Render(req, fontPath)
	if err != nil {
		return Result{}, err
	}
	res.Box = &box
	res.Bytes = len(data)

	if useCache {
		// 缓存写入失败只降级为未缓存，不影响本次输出
		if err := store.Store(res.Key, data); err != nil {
			s.logger.Warn("cache store failed", "font", req.Font, "key", res.Key.Sum, "error", err)
		}
	}
	if err := out.deliver(data); err != nil {
		return Result{}, err
	}
	s.logger.Debug("rendered", "font", req.Font, "key", res.Key.Sum, "bytes", res.Bytes)
	return res, nil
}

// FontChanged drops everything derived from the font file name: its cache
// entries and the engine's parsed copy.
func (s *Service) FontChanged(name string) {
	s.mu.RLock()
	cfg, store := s.cfg, s.store
	s.mu.RUnlock()

	name = fonts.Normalize(name)
	if store != nil {
		if err := store.Purge(name); err != nil {
			s.logger.Warn("purge font cache failed", "font", name, "error", err)
		}
	}
	s.glyphs.Forget(filepath.Join(cfg.FontDirectory, name))
	s.logger.Info("font changed", "font", name)
}
