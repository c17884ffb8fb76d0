// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Wildmere Contributors

// Package luamod hosts interaction modules written in Lua. Operators drop a
// script next to the level data and the server exposes it through the same
// module contract the built-in Go modules implement, sandboxed to pure
// computation plus the host functions the script is handed.
package luamod

import (
	"fmt"

	lua "github.com/yuin/gopher-lua"
)

// safeLibrary is a Lua library safe to load into a sandboxed state.
type safeLibrary struct {
	name string
	fn   lua.LGFunction
}

// Safe: base, table, string, math. Blocked: os, io, debug, package.
func defaultSafeLibraries() []safeLibrary {
	return []safeLibrary{
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	}
}

// Base library functions blocked because they reach the filesystem.
var unsafeBaseFunctions = []string{"dofile", "loadfile", "loadstring", "load"}

// stateFactory creates sandboxed Lua states with only safe libraries.
type stateFactory struct {
	libraries []safeLibrary
}

func newStateFactory() *stateFactory {
	return &stateFactory{libraries: defaultSafeLibraries()}
}

// newState creates a fresh Lua state with only safe libraries loaded.
func (f *stateFactory) newState() (*lua.LState, error) {
	L := lua.NewState(lua.Options{
		SkipOpenLibs: true,
	})

	for _, lib := range f.libraries {
		if err := L.CallByParam(lua.P{
			Fn:      L.NewFunction(lib.fn),
			NRet:    0,
			Protect: true,
		}, lua.LString(lib.name)); err != nil {
			L.Close()
			return nil, fmt.Errorf("failed to open library %s: %w", lib.name, err)
		}
	}

	for _, fn := range unsafeBaseFunctions {
		L.SetGlobal(fn, lua.LNil)
	}

	return L, nil
}
