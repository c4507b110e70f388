package config

import (
	lua "github.com/yuin/gopher-lua"
)

// sandboxLuaVM strips the globals that reach outside the VM: the os and io
// libraries, module loading and debug. string, table and math stay available
// so configs can compute values.
func sandboxLuaVM(L *lua.LState) {
	for _, name := range []string{
		"os",
		"io",
		"require",
		"dofile",
		"loadfile",
		"load",
		"loadstring",
		"debug",
		"package",
	} {
		L.SetGlobal(name, lua.LNil)
	}
}

// newSandboxedVM creates a new Lua VM with sandboxing applied.
func newSandboxedVM() *lua.LState {
	L := lua.NewState()
	sandboxLuaVM(L)
	return L
}
