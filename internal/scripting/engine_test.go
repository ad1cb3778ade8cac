package scripting

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/2vg/CounterStrikeSharp/internal/core/event"
	"github.com/2vg/CounterStrikeSharp/internal/core/tick"
	"github.com/2vg/CounterStrikeSharp/internal/world"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

type fixture struct {
	engine *Engine
	sched  *tick.Scheduler
	clock  *tick.Clock
	world  *world.State
	bus    *event.Bus
	dir    string
}

func newFixture(t *testing.T, script string) *fixture {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "init.lua"), []byte(script), 0o644); err != nil {
		t.Fatalf("write script: %v", err)
	}

	sched := tick.NewScheduler()
	clock := tick.NewClock()
	ws := world.NewState(16)
	bus := event.NewBus()

	e, err := NewEngine(dir, sched, clock, ws, bus, zap.NewNop())
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	t.Cleanup(e.Close)
	return &fixture{engine: e, sched: sched, clock: clock, world: ws, bus: bus, dir: dir}
}

// drainTo advances the clock to target and runs everything due.
func (f *fixture) drainTo(target int64) {
	for f.clock.Current() < target {
		cur := f.clock.Advance()
		for _, fn := range f.sched.CollectDue(cur) {
			fn()
		}
	}
}

func luaNumber(t *testing.T, vm *lua.LState, global string) int {
	t.Helper()
	v := vm.GetGlobal(global)
	n, ok := v.(lua.LNumber)
	if !ok {
		t.Fatalf("global %s = %v, want number", global, v)
	}
	return int(n)
}

func TestScheduleNative(t *testing.T) {
	f := newFixture(t, `
fired = 0
cs.schedule(5, function() fired = fired + 1 end)
cs.schedule(2, function() fired = fired + 10 end)
`)
	f.drainTo(2)
	if got := luaNumber(t, f.engine.vm, "fired"); got != 10 {
		t.Fatalf("fired = %d at tick 2, want 10", got)
	}
	f.drainTo(5)
	if got := luaNumber(t, f.engine.vm, "fired"); got != 11 {
		t.Fatalf("fired = %d at tick 5, want 11", got)
	}
	if f.sched.Pending() != 0 {
		t.Fatalf("Pending = %d, want 0", f.sched.Pending())
	}
}

func TestPlayersIteratorNative(t *testing.T) {
	f := newFixture(t, `
function slot_sum()
    local it = cs.players()
    local sum = 0
    local names = ""
    while it:has_next() do
        sum = sum + it:current_slot()
        names = names .. it:current_name()
        it:move_next()
    end
    return sum, names
end
`)
	f.world.AddPlayer(&world.Player{SessionID: 1, Name: "a"})
	f.world.AddPlayer(&world.Player{SessionID: 2, Name: "b"})
	f.world.AddPlayer(&world.Player{SessionID: 3, Name: "c"})
	f.world.RemovePlayer(2)

	vm := f.engine.vm
	if err := vm.CallByParam(lua.P{
		Fn:      vm.GetGlobal("slot_sum"),
		NRet:    2,
		Protect: true,
	}); err != nil {
		t.Fatalf("call slot_sum: %v", err)
	}
	names := vm.Get(-1)
	sum := vm.Get(-2)
	vm.Pop(2)

	if int(sum.(lua.LNumber)) != 2 { // slots 0 + 2
		t.Fatalf("slot sum = %v, want 2", sum)
	}
	if string(names.(lua.LString)) != "ac" {
		t.Fatalf("names = %v, want ac", names)
	}
}

func TestBroadcastAndCountNatives(t *testing.T) {
	f := newFixture(t, `
function announce()
    cs.broadcast("players: " .. cs.player_count())
end
`)
	var got []string
	f.engine.SetBroadcast(func(msg string) { got = append(got, msg) })
	f.world.AddPlayer(&world.Player{SessionID: 1, Name: "a"})

	vm := f.engine.vm
	if err := vm.CallByParam(lua.P{Fn: vm.GetGlobal("announce"), NRet: 0, Protect: true}); err != nil {
		t.Fatalf("call announce: %v", err)
	}
	if len(got) != 1 || got[0] != "players: 1" {
		t.Fatalf("broadcast = %v", got)
	}
}

func TestConnectHooks(t *testing.T) {
	f := newFixture(t, `
joins = 0
leaves = 0
function on_player_connect(slot, name) joins = joins + 1 end
function on_player_disconnect(slot, name) leaves = leaves + 1 end
`)
	f.engine.OnPlayerConnect(0, "a")
	f.engine.OnPlayerConnect(1, "b")
	f.engine.OnPlayerDisconnect(0, "a")

	if luaNumber(t, f.engine.vm, "joins") != 2 || luaNumber(t, f.engine.vm, "leaves") != 1 {
		t.Fatal("hooks not invoked")
	}
}

func TestReloadSwapsVMAndDropsStaleCallbacks(t *testing.T) {
	f := newFixture(t, `
marker = 1
cs.schedule(10, function() marker = 999 end)
`)
	oldVM := f.engine.vm

	var reloaded bool
	event.Subscribe(f.bus, func(event.ScriptsReloaded) { reloaded = true })

	if err := os.WriteFile(filepath.Join(f.dir, "init.lua"), []byte("marker = 2\n"), 0o644); err != nil {
		t.Fatalf("rewrite script: %v", err)
	}
	if err := f.engine.Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if f.engine.vm == oldVM {
		t.Fatal("vm not swapped")
	}
	if f.engine.Files() != 1 {
		t.Fatalf("Files = %d, want 1", f.engine.Files())
	}

	// The pre-reload callback must be dropped, not run against a closed VM.
	f.drainTo(10)
	if got := luaNumber(t, f.engine.vm, "marker"); got != 2 {
		t.Fatalf("marker = %d after reload, want 2", got)
	}

	f.bus.SwapBuffers()
	f.bus.DispatchAll()
	if !reloaded {
		t.Fatal("ScriptsReloaded event not emitted")
	}
}

func TestReloadKeepsOldVMOnError(t *testing.T) {
	f := newFixture(t, `marker = 1`)
	oldVM := f.engine.vm

	if err := os.WriteFile(filepath.Join(f.dir, "init.lua"), []byte("this is not lua ("), 0o644); err != nil {
		t.Fatalf("rewrite script: %v", err)
	}
	if err := f.engine.Reload(); err == nil {
		t.Fatal("Reload on broken script succeeded")
	}
	if f.engine.vm != oldVM {
		t.Fatal("vm swapped despite load error")
	}
	if luaNumber(t, f.engine.vm, "marker") != 1 {
		t.Fatal("old vm state lost")
	}
}
