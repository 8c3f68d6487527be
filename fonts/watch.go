package fonts

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Watcher reports font files that are written, created, removed or renamed in
// a font directory. Only the top level of the directory is watched.
type Watcher struct {
	dir      string
	fsw      *fsnotify.Watcher
	onChange func(name string)
	logger   *slog.Logger
	done     chan struct{}
	once     sync.Once
	wg       sync.WaitGroup
}

// Watch starts watching dir. onChange receives the font identifier relative
// to dir and is called from the watcher goroutine.
func Watch(dir string, onChange func(name string), logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("创建字体目录监听失败: %w", err)
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("监听字体目录 %s 失败: %w", dir, err)
	}
	w := &Watcher{
		dir:      dir,
		fsw:      fsw,
		onChange: onChange,
		logger:   logger,
		done:     make(chan struct{}),
	}
	w.wg.Add(1)
	go w.loop()
	return w, nil
}

func (w *Watcher) loop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if !IsFontFile(filepath.Base(ev.Name)) {
				continue
			}
			name, err := filepath.Rel(w.dir, ev.Name)
			if err != nil {
				name = filepath.Base(ev.Name)
			}
			w.logger.Debug("font changed", "font", name, "op", ev.Op.String())
			if w.onChange != nil {
				w.onChange(filepath.ToSlash(name))
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("font watcher error", "error", err)
		}
	}
}

// Close stops the watcher; it is safe to call more than once.
func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.done)
		err = w.fsw.Close()
		w.wg.Wait()
	})
	return err
}
