package imagegen

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
)

// Output is where a rendered PNG goes. It is implemented by EmitBytes and
// WriteToPath only.
type Output interface {
	// prepare 在渲染之前检查目标是否可写。
	prepare() error
	deliver(data []byte) error
}

// EmitBytes writes the PNG to W. When W is an http.ResponseWriter (or
// anything else exposing Header), Content-Type and Content-Length are set.
type EmitBytes struct {
	W io.Writer
}

type headerWriter interface {
	Header() http.Header
}

func (o EmitBytes) prepare() error {
	if o.W == nil {
		return fmt.Errorf("%w: 输出流为空", ErrDestinationUnwritable)
	}
	return nil
}

func (o EmitBytes) deliver(data []byte) error {
	if hw, ok := o.W.(headerWriter); ok {
		h := hw.Header()
		h.Set("Content-Type", "image/png")
		h.Set("Content-Length", strconv.Itoa(len(data)))
	}
	if _, err := o.W.Write(data); err != nil {
		return fmt.Errorf("%w: 写出图片失败: %v", ErrDestinationUnwritable, err)
	}
	return nil
}

// WriteToPath saves the PNG at Path, replacing any existing file. With
// MakeParents, missing parent directories are created at delivery time, after
// rendering succeeded; the writability check then probes the nearest existing
// ancestor instead.
type WriteToPath struct {
	Path        string
	MakeParents bool
}

func (o WriteToPath) prepare() error {
	if o.Path == "" {
		return fmt.Errorf("%w: 输出路径为空", ErrDestinationUnwritable)
	}
	info, err := os.Stat(o.Path)
	switch {
	case err == nil:
		if !info.Mode().IsRegular() {
			return fmt.Errorf("%w: %s 不是普通文件", ErrDestinationUnwritable, o.Path)
		}
		f, err := os.OpenFile(o.Path, os.O_WRONLY, 0)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrDestinationUnwritable, err)
		}
		f.Close()
		return nil
	case errors.Is(err, os.ErrNotExist):
		dir := filepath.Dir(o.Path)
		if o.MakeParents {
			if dir, err = existingAncestor(dir); err != nil {
				return err
			}
		}
		return probeDir(dir)
	default:
		return fmt.Errorf("%w: %v", ErrDestinationUnwritable, err)
	}
}

// probeDir 在 dir 中创建并删除一个探测文件，验证可写。
func probeDir(dir string) error {
	probe, err := os.CreateTemp(dir, ".probe-*")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDestinationUnwritable, err)
	}
	name := probe.Name()
	probe.Close()
	if err := os.Remove(name); err != nil {
		return fmt.Errorf("%w: %v", ErrDestinationUnwritable, err)
	}
	return nil
}

func existingAncestor(dir string) (string, error) {
	for {
		info, err := os.Stat(dir)
		switch {
		case err == nil && info.IsDir():
			return dir, nil
		case err == nil:
			return "", fmt.Errorf("%w: %s 不是目录", ErrDestinationUnwritable, dir)
		case !errors.Is(err, os.ErrNotExist):
			return "", fmt.Errorf("%w: %v", ErrDestinationUnwritable, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("%w: %s 没有可用的上级目录", ErrDestinationUnwritable, dir)
		}
		dir = parent
	}
}

func (o WriteToPath) deliver(data []byte) error {
	if o.MakeParents {
		if err := os.MkdirAll(filepath.Dir(o.Path), 0o755); err != nil {
			return fmt.Errorf("%w: 创建输出目录失败: %v", ErrDestinationUnwritable, err)
		}
	}
	if err := os.WriteFile(o.Path, data, 0o644); err != nil {
		return fmt.Errorf("%w: 写入 %s 失败: %v", ErrDestinationUnwritable, o.Path, err)
	}
	return nil
}
