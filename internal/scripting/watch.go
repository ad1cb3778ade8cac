package scripting

import (
	"io/fs"
	"path/filepath"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher reloads scripts when .lua files change on disk. The fsnotify
// goroutine never touches the VM: it arms a reload on the tick scheduler,
// so the swap runs on the game loop goroutine on the next tick. This is
// exactly the cross-goroutine producer path the scheduler exists for.
type Watcher struct {
	engine  *Engine
	fsw     *fsnotify.Watcher
	pending atomic.Bool // collapses event bursts into one reload
	log     *zap.Logger
}

// NewWatcher watches the engine's script directory tree.
func NewWatcher(e *Engine, log *zap.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	err = filepath.WalkDir(e.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return fsw.Add(path)
		}
		return nil
	})
	if err != nil {
		fsw.Close()
		return nil, err
	}
	return &Watcher{engine: e, fsw: fsw, log: log}, nil
}

// Run consumes filesystem events until Close. Runs in its own goroutine.
func (w *Watcher) Run() {
	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Ext(ev.Name) != ".lua" {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
				continue
			}
			w.scheduleReload(ev.Name)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Warn("script watcher error", zap.Error(err))
		}
	}
}

// scheduleReload arms one reload on the next tick. Further events arriving
// before it runs are folded into the same reload.
func (w *Watcher) scheduleReload(file string) {
	if !w.pending.CompareAndSwap(false, true) {
		return
	}
	w.log.Info("script change detected", zap.String("file", file))
	e := w.engine
	e.sched.Schedule(e.clock.Current()+1, func() {
		w.pending.Store(false)
		if err := e.Reload(); err != nil {
			w.log.Error("script reload failed, keeping old vm", zap.Error(err))
		}
	})
}

func (w *Watcher) Close() error {
	return w.fsw.Close()
}
