package scripting

import (
	"github.com/2vg/CounterStrikeSharp/internal/world"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

const iteratorTypeName = "cs.player_iterator"

// registerNatives installs the `cs` table and the player-iterator userdata
// type into a fresh VM.
func (e *Engine) registerNatives(vm *lua.LState) {
	mt := vm.NewTypeMetatable(iteratorTypeName)
	vm.SetField(mt, "__index", vm.SetFuncs(vm.NewTable(), map[string]lua.LGFunction{
		"has_next":     iterHasNext,
		"current_slot": iterCurrentSlot,
		"current_name": iterCurrentName,
		"move_next":    iterMoveNext,
	}))

	cs := vm.SetFuncs(vm.NewTable(), map[string]lua.LGFunction{
		"current_tick": e.luaCurrentTick,
		"schedule":     e.luaSchedule,
		"players":      e.luaPlayers,
		"player_count": e.luaPlayerCount,
		"broadcast":    e.luaBroadcast,
		"log":          e.luaLog,
	})
	vm.SetGlobal("cs", cs)
}

// cs.current_tick() -> number
func (e *Engine) luaCurrentTick(vm *lua.LState) int {
	vm.Push(lua.LNumber(e.clock.Current()))
	return 1
}

// cs.schedule(delay_ticks, fn)
// Arms fn on the tick scheduler, delay_ticks from now. A delay of zero or
// less fires on the next tick's drain.
func (e *Engine) luaSchedule(vm *lua.LState) int {
	delay := int64(vm.CheckInt(1))
	fn := vm.CheckFunction(2)
	e.sched.Schedule(e.clock.Current()+delay, func() {
		e.callScheduled(vm, fn)
	})
	return 0
}

// cs.players() -> iterator over the players connected right now
func (e *Engine) luaPlayers(vm *lua.LState) int {
	ud := vm.NewUserData()
	ud.Value = e.world.ConnectedPlayers()
	vm.SetMetatable(ud, vm.GetTypeMetatable(iteratorTypeName))
	vm.Push(ud)
	return 1
}

// cs.player_count() -> number
func (e *Engine) luaPlayerCount(vm *lua.LState) int {
	vm.Push(lua.LNumber(e.world.PlayerCount()))
	return 1
}

// cs.broadcast(msg)
func (e *Engine) luaBroadcast(vm *lua.LState) int {
	msg := vm.CheckString(1)
	if e.broadcast != nil {
		e.broadcast(msg)
	}
	return 0
}

// cs.log(msg)
func (e *Engine) luaLog(vm *lua.LState) int {
	msg := vm.CheckString(1)
	e.log.Info(msg, zap.String("source", "lua"))
	return 0
}

func checkIterator(vm *lua.LState) *world.ConnectedIterator {
	ud := vm.CheckUserData(1)
	it, ok := ud.Value.(*world.ConnectedIterator)
	if !ok {
		vm.ArgError(1, "player iterator expected")
		return nil
	}
	return it
}

// it:has_next() -> bool
func iterHasNext(vm *lua.LState) int {
	it := checkIterator(vm)
	vm.Push(lua.LBool(it.HasNext()))
	return 1
}

// it:current_slot() -> number (-1 when exhausted)
func iterCurrentSlot(vm *lua.LState) int {
	it := checkIterator(vm)
	vm.Push(lua.LNumber(it.CurrentSlot()))
	return 1
}

// it:current_name() -> string ("" when exhausted)
func iterCurrentName(vm *lua.LState) int {
	it := checkIterator(vm)
	name := ""
	if p := it.Current(); p != nil {
		name = p.Name
	}
	vm.Push(lua.LString(name))
	return 1
}

// it:move_next()
func iterMoveNext(vm *lua.LState) int {
	it := checkIterator(vm)
	it.MoveNext()
	return 0
}
