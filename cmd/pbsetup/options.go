package main

import (
	"fmt"
	"io"

	"github.com/spf13/pflag"
)

// options holds the parsed command line.
type options struct {
	dir        string
	version    string
	port       string
	portSet    bool
	git        bool
	verify     string
	keyring    string
	cacheDir   string
	configPath string
	debug      bool

	listVersions bool
	writeConfig  bool
	force        bool
}

// newFlagSet declares the pbsetup flags on a fresh set bound to opts.
func newFlagSet(opts *options) *pflag.FlagSet {
	fs := pflag.NewFlagSet("pbsetup", pflag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&opts.version, "version", "", "PocketBase version to install (e.g. v0.30.3)")
	// Parsed by hand so a bad value falls back to the default instead of aborting.
	fs.StringVar(&opts.port, "port", "", "port baked into run.sh (1024-65535, default 8090)")
	fs.BoolVar(&opts.git, "git", false, "initialise a git repository and commit the scaffold")
	fs.StringVar(&opts.verify, "verify", "", "check fresh downloads: none or gpg")
	fs.StringVar(&opts.keyring, "keyring", "", "GPG keyring used with --verify gpg")
	fs.StringVar(&opts.cacheDir, "cache-dir", "", "artifact cache directory (default ~/.pb_cache)")
	fs.StringVar(&opts.configPath, "config", "", "Lua config file (default ~/.config/pbsetup/config.lua)")
	fs.BoolVar(&opts.debug, "debug", false, "log diagnostics to stderr")
	fs.BoolVar(&opts.listVersions, "list-versions", false, "print the available versions and exit")
	fs.BoolVar(&opts.writeConfig, "write-config", false, "write the default config file and exit")
	fs.BoolVar(&opts.force, "force", false, "overwrite an existing config file with --write-config")
	fs.BoolP("help", "h", false, "show help")

	return fs
}

// parseArgs parses args into options. pflag.ErrHelp is returned for -h and
// --help.
func parseArgs(args []string) (*options, *pflag.FlagSet, error) {
	opts := &options{}
	fs := newFlagSet(opts)

	if err := fs.Parse(args); err != nil {
		return nil, fs, err
	}
	if help, _ := fs.GetBool("help"); help {
		return nil, fs, pflag.ErrHelp
	}

	rest := fs.Args()
	if len(rest) > 1 {
		return nil, fs, fmt.Errorf("unexpected argument: %s", rest[1])
	}
	if len(rest) == 1 {
		opts.dir = rest[0]
	}
	opts.portSet = fs.Changed("port")

	return opts, fs, nil
}

func printUsage(w io.Writer, fs *pflag.FlagSet) {
	fmt.Fprintf(w, `pbsetup %s - create a PocketBase project with TypeScript hooks

Usage:
  pbsetup [PROJECT_DIR] [flags]

Without PROJECT_DIR the directory is asked for interactively. Release
archives are kept in ~/.pb_cache and reused on later runs.

Flags:
%s
Examples:
  pbsetup
  pbsetup ~/my_project
  pbsetup ~/my_project --version v0.30.3 --port 3000
  pbsetup ~/my_project --git
  pbsetup --list-versions
`, Version, fs.FlagUsages())
}
