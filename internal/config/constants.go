package config

// Lua schema field names and globals
const (
	luaGlobalPBSetup     = "pbsetup"
	luaFieldPort         = "port"
	luaFieldVersion      = "version"
	luaFieldCacheDir     = "cache_dir"
	luaFieldReleasesURL  = "releases_url"
	luaFieldDownloadBase = "download_base"
	luaFieldFallback     = "fallback_versions"
	luaFieldGit          = "git"
	luaFieldVerify       = "verify"
	luaFieldMethod       = "method"
	luaFieldKeyring      = "keyring"
)

// Port rules shared by the config file, the --port flag and the prompt.
const (
	MinPort     = 1024
	MaxPort     = 65535
	DefaultPort = 8090
)

// Verification method names accepted in verify.method.
const (
	VerifyNone = "none"
	VerifyGPG  = "gpg"
)
