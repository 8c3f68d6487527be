package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ByLCY/textimage/binding"
	"github.com/ByLCY/textimage/dsl"
	"github.com/ByLCY/textimage/fonts"
	"github.com/ByLCY/textimage/imagegen"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "engine": s.svc.Engine()})
}

// handleFonts lists the fonts usable in the font parameter.
func (s *Server) handleFonts(w http.ResponseWriter, r *http.Request) {
	names, err := fonts.List(s.svc.Snapshot().FontDirectory)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"fonts": names})
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, s.svc.Snapshot())
}

func (s *Server) handleStyleList(w http.ResponseWriter, r *http.Request) {
	var names []string
	if s.styles != nil {
		names = s.styles.Names()
	}
	writeJSON(w, http.StatusOK, map[string]any{"styles": names})
}

// handleStyleRender renders with a named style; query parameters still win.
func (s *Server) handleStyleRender(w http.ResponseWriter, r *http.Request) {
	style, err := s.styles.Lookup(chi.URLParam(r, "name"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	cfg := s.svc.Snapshot()
	if err := style.Apply(&cfg); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.render(w, r, cfg)
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, cfg imagegen.Config) {
	q := r.URL.Query()
	text := q.Get("text")
	if text == "" {
		s.writeError(w, r, fmt.Errorf("%w: 缺少 text 参数", imagegen.ErrInvalidInput))
		return
	}
	if raw := q.Get("data"); raw != "" {
		data, err := binding.Decode([]byte(raw))
		if err != nil {
			s.writeError(w, r, fmt.Errorf("%w: %v", imagegen.ErrInvalidInput, err))
			return
		}
		text = binding.Interpolate(text, data)
	}
	if err := applyQuery(&cfg, q); err != nil {
		s.writeError(w, r, err)
		return
	}
	bypass, err := queryBool(q, "nocache")
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	// 先渲染到缓冲区，以便在写出正文前设置缓存相关响应头
	out := &bufferedResponse{header: w.Header()}
	res, err := s.svc.Render(r.Context(), cfg, text, imagegen.EmitBytes{W: out}, bypass)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if res.CacheHit {
		w.Header().Set("X-Cache", "HIT")
	} else {
		w.Header().Set("X-Cache", "MISS")
	}
	w.Header().Set("X-Fingerprint", res.Key.Sum)
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.WriteHeader(http.StatusOK)
	w.Write(out.Bytes())
}

// applyQuery overrides cfg with the request's render parameters.
func applyQuery(cfg *imagegen.Config, q url.Values) error {
	if v := q.Get("font"); v != "" {
		if err := cfg.SetFont(v); err != nil {
			return err
		}
	}
	if v := q.Get("size"); v != "" {
		if err := cfg.SetFontSize(v, true); err != nil {
			return err
		}
	}
	if v := q.Get("angle"); v != "" {
		if err := cfg.SetFontAngle(v, true); err != nil {
			return err
		}
	}
	if q.Has("width") || q.Has("height") {
		var width, height any = cfg.MaxWidth, cfg.MaxHeight
		if q.Has("width") {
			width = dimension(q.Get("width"))
		}
		if q.Has("height") {
			height = dimension(q.Get("height"))
		}
		if err := cfg.SetSize(width, height, true); err != nil {
			return err
		}
	}
	if q.Has("wrap") {
		on, err := queryBool(q, "wrap")
		if err != nil {
			return err
		}
		cfg.UseWrapping(on)
	}
	if v := q.Get("colour"); v != "" {
		if err := cfg.SetColour(v); err != nil {
			return err
		}
	} else if v := q.Get("color"); v != "" {
		if err := cfg.SetColour(v); err != nil {
			return err
		}
	}
	if v := q.Get("background"); v != "" {
		if err := cfg.SetBackground(v); err != nil {
			return err
		}
	}
	return nil
}

// dimension maps "" and "auto" to an unset cap.
func dimension(v string) any {
	if v == "" || v == "auto" {
		return nil
	}
	return v
}

func queryBool(q url.Values, key string) (bool, error) {
	if !q.Has(key) {
		return false, nil
	}
	v := q.Get(key)
	if v == "" {
		return true, nil
	}
	on, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%w: 参数 %s=%q 不是布尔值", imagegen.ErrInvalidInput, key, v)
	}
	return on, nil
}

// bufferedResponse collects the PNG while exposing the real response headers.
type bufferedResponse struct {
	bytes.Buffer
	header http.Header
}

func (b *bufferedResponse) Header() http.Header { return b.header }

func statusFor(err error) int {
	switch {
	case errors.Is(err, imagegen.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, imagegen.ErrFontUnavailable), errors.Is(err, dsl.ErrUnknownStyle):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("render failed", "error", err, "request_id", RequestID(r.Context()))
	}
	h := w.Header()
	h.Del("Content-Length")
	writeJSON(w, status, map[string]string{
		"error":      err.Error(),
		"request_id": RequestID(r.Context()),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
