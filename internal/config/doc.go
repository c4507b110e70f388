// Package config loads the optional pbsetup user configuration, a Lua file
// evaluated in a sandboxed gopher-lua VM.
//
// # Location
//
// The file is looked up in order: the --config flag, the PBSETUP_CONFIG
// environment variable, then ~/.config/pbsetup/config.lua. Only the default
// location may be absent.
//
// # Schema
//
//	pbsetup = {
//	  port = 8090,
//	  version = "v0.30.3",
//	  cache_dir = "~/.pb_cache",
//	  releases_url = "https://api.github.com/repos/pocketbase/pocketbase/releases?per_page=30",
//	  download_base = "https://github.com/pocketbase/pocketbase/releases/download",
//	  fallback_versions = { "v0.30.3", "v0.30.2" },
//	  git = false,
//	  verify = { method = "gpg", keyring = "~/.config/pbsetup/pocketbase.asc" },
//	}
//
// Every field is optional. The read-only platform table from package platform
// is injected before the file runs, so values can depend on the host:
//
//	pbsetup = {
//	  port = platform.is_macos and 8091 or 8090,
//	}
//
// # Sandbox
//
// The os, io, debug and package libraries are removed along with require,
// dofile, loadfile, load and loadstring. string, table and math remain.
//
// # Writing
//
// Generator renders a Config back to Lua; WriteFile uses it for
// `pbsetup --write-config`.
package config
