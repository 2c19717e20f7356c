package config

// Lua schema field names and globals
const (
	luaGlobalManifest = "terminal"

	luaFieldPackages    = "packages"
	luaFieldAUR         = "aur"
	luaFieldDeploy      = "deploy"
	luaFieldDirectories = "directories"
	luaFieldFont        = "font"
	luaFieldShell       = "shell"
	luaFieldVerify      = "verify"

	luaFieldPrerequisites = "prerequisites"
	luaFieldCommon        = "common"
	luaFieldArch          = "arch"
	luaFieldFedora        = "fedora"
	luaFieldDebian        = "debian"

	luaFieldHelpers   = "helpers"
	luaFieldBootstrap = "bootstrap"
	luaFieldRepo      = "repo"
	luaFieldHelper    = "helper"

	luaFieldSource = "source"
	luaFieldDest   = "dest"

	luaFieldFamily = "family"
	luaFieldURL    = "url"
	luaFieldDir    = "dir"
	luaFieldSHA256 = "sha256"

	luaFieldTarget = "target"

	luaFieldName     = "name"
	luaFieldBinaries = "binaries"
)

// Resource limits applied to user manifests.
const (
	MaxManifestSize = 1 << 20 // 1 MiB
	MaxPackageCount = 500
	MaxMappingCount = 200
	MaxToolCount    = 100
)

// ManifestFileName is the manifest looked up at the root of the dotfiles source.
const ManifestFileName = "terminal-setup.lua"
