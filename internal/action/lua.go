package action

import (
	"context"
	"fmt"

	lua "github.com/yuin/gopher-lua"
)

// luaHandler runs params.script in a fresh sandboxed state.
//
// Scripts see:
//
//	player            the player id
//	get_fact(name)    the player's fact value (0 if unset)
//	say(text)         present text to the player
//	log(msg)          write msg to the log
//
// Scripts cannot write facts; modifiers own fact writes.
func luaHandler(ctx context.Context, call Call) error {
	script := stringParam(call.Params, "script")
	if script == "" {
		return fmt.Errorf("params.script is required")
	}

	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	defer L.Close()
	L.SetContext(ctx)

	openSafeLibs(L)
	sandbox(L)
	registerScriptAPI(ctx, L, call)

	if err := L.DoString(script); err != nil {
		return fmt.Errorf("lua: %w", err)
	}
	return nil
}

// openSafeLibs opens only the safe subset of Lua standard libraries.
func openSafeLibs(L *lua.LState) {
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)
}

// sandbox removes globals that reach outside the script.
func sandbox(L *lua.LState) {
	dangerous := []string{
		"dofile", "loadfile", "load", "loadstring",
		"rawset", "rawget", "rawequal",
		"collectgarbage", "require", "module",
	}
	for _, name := range dangerous {
		L.SetGlobal(name, lua.LNil)
	}
	if tbl, ok := L.GetGlobal("math").(*lua.LTable); ok {
		tbl.RawSetString("randomseed", lua.LNil)
	}
}

func registerScriptAPI(ctx context.Context, L *lua.LState, call Call) {
	L.SetGlobal("player", lua.LString(call.Player))

	L.SetGlobal("get_fact", L.NewFunction(func(L *lua.LState) int {
		name := L.CheckString(1)
		L.Push(lua.LNumber(call.Facts.Get(call.Player, name)))
		return 1
	}))

	L.SetGlobal("say", L.NewFunction(func(L *lua.LState) int {
		text := L.CheckString(1)
		err := call.Presenter.Present(ctx, call.Player, Message{
			Kind:    MessageSay,
			Text:    text,
			EntryID: call.Entry.ID,
		})
		if err != nil {
			L.RaiseError("say: %v", err)
		}
		return 0
	}))

	L.SetGlobal("log", L.NewFunction(func(L *lua.LState) int {
		call.Logger.InfoContext(ctx, L.CheckString(1), "player", call.Player)
		return 0
	}))
}
