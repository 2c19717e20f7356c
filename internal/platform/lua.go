package platform

import (
	lua "github.com/yuin/gopher-lua"
)

// InjectPlatformTable creates a read-only platform table and injects it into the Lua state as a global.
// This should be called before loading any manifest code. distro may be nil when
// the manifest is evaluated outside a supported distribution (e.g. for printing).
func InjectPlatformTable(L *lua.LState, info *Info, distro *Distro) error {
	platformTable := L.NewTable()

	// Basic OS and architecture
	L.SetField(platformTable, "os", lua.LString(info.OS))
	L.SetField(platformTable, "arch", lua.LString(info.Arch))
	L.SetField(platformTable, "arch_raw", lua.LString(info.ArchRaw))
	L.SetField(platformTable, "is_linux", lua.LBool(info.IsLinux()))

	// Resolved distribution (nil when unresolved)
	if distro != nil {
		distroTable := L.NewTable()
		L.SetField(distroTable, "id", lua.LString(distro.ID))
		L.SetField(distroTable, "family", lua.LString(distro.Family))
		L.SetField(distroTable, "version", lua.LString(distro.Version))
		L.SetField(distroTable, "package_manager", lua.LString(distro.PackageManager))
		L.SetField(platformTable, "distro", distroTable)
		L.SetField(platformTable, "linux_family", lua.LString(distro.Family))
	} else {
		L.SetField(platformTable, "distro", lua.LNil)
		L.SetField(platformTable, "linux_family", lua.LNil)
	}

	// Family booleans
	L.SetField(platformTable, "is_arch_family", lua.LBool(distro != nil && distro.IsArch()))
	L.SetField(platformTable, "is_fedora_family", lua.LBool(distro != nil && distro.IsFedora()))
	L.SetField(platformTable, "is_debian_family", lua.LBool(distro != nil && distro.IsDebian()))

	// Helper function: when(condition, value)
	// Returns value if condition is true, nil otherwise
	whenFunc := L.NewFunction(func(L *lua.LState) int {
		cond := L.CheckBool(1)
		value := L.Get(2)
		if cond {
			L.Push(value)
		} else {
			L.Push(lua.LNil)
		}
		return 1
	})
	L.SetField(platformTable, "when", whenFunc)

	L.SetGlobal("platform", makeReadOnly(L, platformTable))

	return nil
}

// makeReadOnly makes a Lua table read-only by creating a proxy table with a metatable.
// The proxy redirects reads to the original table but prevents all writes.
func makeReadOnly(L *lua.LState, table *lua.LTable) *lua.LTable {
	mt := L.NewTable()

	L.SetField(mt, "__index", table)
	L.SetField(mt, "__newindex", L.NewFunction(func(L *lua.LState) int {
		L.RaiseError("platform table is read-only and cannot be modified")
		return 0
	}))
	L.SetField(mt, "__metatable", lua.LString("protected"))

	proxy := L.NewTable()
	L.SetMetatable(proxy, mt)

	return proxy
}
