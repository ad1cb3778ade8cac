// Package scripting hosts the embedded Lua VM. Scripts see the server
// through a small native surface: scheduling deferred work on the tick
// scheduler, iterating connected players, broadcasting, and logging.
package scripting

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"

	"github.com/2vg/CounterStrikeSharp/internal/core/event"
	"github.com/2vg/CounterStrikeSharp/internal/core/tick"
	"github.com/2vg/CounterStrikeSharp/internal/world"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// Engine wraps a single gopher-lua VM for script execution.
// All methods run on the game loop goroutine only; the VM is never shared
// across goroutines. Hot reload swaps the VM atomically between ticks.
type Engine struct {
	vm    *lua.LState
	dir   string
	files int

	sched *tick.Scheduler
	clock *tick.Clock
	world *world.State
	bus   *event.Bus

	broadcast func(msg string)

	log *zap.Logger
}

// NewEngine creates a Lua engine and loads all scripts under dir.
func NewEngine(dir string, sched *tick.Scheduler, clock *tick.Clock, ws *world.State, bus *event.Bus, log *zap.Logger) (*Engine, error) {
	e := &Engine{
		dir:   dir,
		sched: sched,
		clock: clock,
		world: ws,
		bus:   bus,
		log:   log,
	}
	vm, files, err := e.buildVM()
	if err != nil {
		return nil, err
	}
	e.vm = vm
	e.files = files
	return e, nil
}

// buildVM creates a fresh VM, registers natives, and loads every .lua file
// under the scripts directory in path order.
func (e *Engine) buildVM() (*lua.LState, int, error) {
	vm := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})
	vm.SetGlobal("API_VERSION", lua.LNumber(1))
	e.registerNatives(vm)

	var paths []string
	err := filepath.WalkDir(e.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && filepath.Ext(path) == ".lua" {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		vm.Close()
		return nil, 0, fmt.Errorf("scan scripts dir %s: %w", e.dir, err)
	}
	sort.Strings(paths)

	for _, path := range paths {
		if err := vm.DoFile(path); err != nil {
			vm.Close()
			return nil, 0, fmt.Errorf("load %s: %w", path, err)
		}
		e.log.Debug("loaded lua script", zap.String("file", path))
	}
	return vm, len(paths), nil
}

// Reload rebuilds the VM from disk and swaps it in. On error the old VM
// stays active. Must run on the game loop goroutine; deferred callbacks
// captured against the old VM become no-ops after the swap.
func (e *Engine) Reload() error {
	vm, files, err := e.buildVM()
	if err != nil {
		return err
	}
	old := e.vm
	e.vm = vm
	e.files = files
	old.Close()
	event.Emit(e.bus, event.ScriptsReloaded{Files: files})
	e.log.Info("scripts reloaded", zap.Int("files", files))
	return nil
}

// Files reports how many scripts the active VM loaded.
func (e *Engine) Files() int {
	return e.files
}

// SetBroadcast installs the function cs.broadcast delegates to.
func (e *Engine) SetBroadcast(fn func(msg string)) {
	e.broadcast = fn
}

func (e *Engine) Close() {
	e.vm.Close()
}

// OnPlayerConnect calls the optional on_player_connect(slot, name) hook.
func (e *Engine) OnPlayerConnect(slot int, name string) {
	e.callHook("on_player_connect", lua.LNumber(slot), lua.LString(name))
}

// OnPlayerDisconnect calls the optional on_player_disconnect(slot, name) hook.
func (e *Engine) OnPlayerDisconnect(slot int, name string) {
	e.callHook("on_player_disconnect", lua.LNumber(slot), lua.LString(name))
}

func (e *Engine) callHook(name string, args ...lua.LValue) {
	fn := e.vm.GetGlobal(name)
	if fn == lua.LNil {
		return
	}
	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    0,
		Protect: true,
	}, args...); err != nil {
		e.log.Error("lua hook error", zap.String("hook", name), zap.Error(err))
	}
}

// callScheduled invokes a Lua function released by the tick scheduler.
// vm pins the VM the function was created on: after a hot reload the old
// VM is closed, so stale callbacks are dropped instead of invoked.
func (e *Engine) callScheduled(vm *lua.LState, fn *lua.LFunction) {
	if vm != e.vm {
		e.log.Debug("dropping scheduled callback from reloaded vm")
		return
	}
	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    0,
		Protect: true,
	}); err != nil {
		e.log.Error("lua scheduled callback error", zap.Error(err))
	}
}
