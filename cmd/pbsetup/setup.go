package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/ZebulonRouseFrantzich/pbsetup/internal/binary"
	"github.com/ZebulonRouseFrantzich/pbsetup/internal/config"
	"github.com/ZebulonRouseFrantzich/pbsetup/internal/git"
	"github.com/ZebulonRouseFrantzich/pbsetup/internal/logging"
	"github.com/ZebulonRouseFrantzich/pbsetup/internal/platform"
	"github.com/ZebulonRouseFrantzich/pbsetup/internal/release"
	"github.com/ZebulonRouseFrantzich/pbsetup/internal/scaffold"
	"github.com/ZebulonRouseFrantzich/pbsetup/internal/ui"
)

// app wires the setup steps to their inputs and outputs.
type app struct {
	console  *ui.Console
	prompt   *prompter // nil when stdin is not a terminal
	stderr   io.Writer
	detector platform.Detector
	progress binary.Progress
	logger   logging.Logger
}

// run parses args and performs the requested action.
func (a *app) run(ctx context.Context, args []string) error {
	opts, fs, err := parseArgs(args)
	if errors.Is(err, pflag.ErrHelp) {
		printUsage(a.console.Writer(), fs)
		return nil
	}
	if err != nil {
		return err
	}

	debug := opts.debug || logging.DebugEnabled()
	a.logger = logging.New(a.stderr, debug)

	if opts.writeConfig {
		return a.writeConfig(opts)
	}

	info, err := a.detector.Detect(ctx)
	if err != nil {
		return fmt.Errorf("detect platform: %w", err)
	}

	fileCfg, cfgPath, err := config.NewParser(platform.Fixed(info)).Load(ctx, opts.configPath)
	if err != nil {
		return errors.New(config.FormatError(err, debug))
	}
	if fileCfg != nil {
		a.logger.Debug("loaded config", "path", cfgPath)
	}

	cfg, err := resolveConfig(opts, fileCfg)
	if err != nil {
		return err
	}

	if opts.listVersions {
		return a.listVersions(ctx, cfg)
	}

	start := time.Now()
	err = a.setup(ctx, opts, fileCfg, cfg, info)
	a.console.Done(time.Since(start), err)
	return err
}

// resolveConfig layers flags and environment over the config file and the
// built-in defaults. Port and version are resolved later by their own steps.
func resolveConfig(opts *options, fileCfg *config.Config) (*config.Config, error) {
	cfg := config.Defaults()
	cfg.Merge(fileCfg)

	cacheDir, err := resolveCacheDir(opts.cacheDir, fileCfg)
	if err != nil {
		return nil, err
	}
	cfg.CacheDir = cacheDir

	if opts.verify != "" {
		cfg.Verify.Method = strings.ToLower(strings.TrimSpace(opts.verify))
	}
	if opts.keyring != "" {
		cfg.Verify.Keyring = opts.keyring
	}
	if opts.git {
		cfg.Git = true
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.Verify.Keyring != "" {
		keyring, err := binary.ExpandHome(cfg.Verify.Keyring)
		if err != nil {
			return nil, err
		}
		cfg.Verify.Keyring = keyring
	}
	return cfg, nil
}

// resolveCacheDir applies flag > PBSETUP_CACHE_DIR > config file > default.
func resolveCacheDir(flagDir string, fileCfg *config.Config) (string, error) {
	if flagDir != "" {
		return binary.ExpandHome(flagDir)
	}
	if env := os.Getenv(binary.EnvCacheDir); env != "" {
		return binary.ExpandHome(env)
	}
	if fileCfg != nil && fileCfg.CacheDir != "" {
		return binary.ExpandHome(fileCfg.CacheDir)
	}
	return binary.DefaultCacheDir()
}

func (a *app) newCatalog(cfg *config.Config) *release.Catalog {
	catalog := release.NewCatalog()
	catalog.URL = cfg.ReleasesURL
	catalog.Fallback = cfg.FallbackVersions
	catalog.Logger = a.logger
	return catalog
}

// setup provisions one project.
func (a *app) setup(ctx context.Context, opts *options, fileCfg, cfg *config.Config, info *platform.Info) error {
	a.console.Title("PocketBase project setup")

	tag := info.Tag()
	a.console.Step("platform %s", tag)
	a.console.Detail("host reports %s/%s", info.OSRaw, info.ArchRaw)

	dir, err := a.selectDir(opts.dir)
	if err != nil {
		return err
	}

	port, err := a.selectPort(opts, fileCfg)
	if err != nil {
		return err
	}

	version, err := a.selectVersion(ctx, opts.version, fileCfg, cfg)
	if err != nil {
		return err
	}

	a.checkExistingProject(dir, version)

	method, err := binary.ParseVerificationMethod(cfg.Verify.Method)
	if err != nil {
		return err
	}
	manager, err := binary.NewManager(binary.Config{
		CacheDir:     cfg.CacheDir,
		DownloadBase: cfg.DownloadBase,
		Verification: method,
		Keyring:      cfg.Verify.Keyring,
		Progress:     a.progress,
		Logger:       a.logger,
	})
	if err != nil {
		return fmt.Errorf("create binary manager: %w", err)
	}

	artifact := manager.Locate(version, tag)
	a.console.Step("fetching %s", artifact.Filename)
	result, err := manager.Install(ctx, version, tag, dir)
	if err != nil {
		return err
	}
	if result.Cached {
		a.console.Detail("reused cached archive %s", result.Path)
	} else {
		a.console.Detail("downloaded %d bytes in %s", result.Size, result.DownloadTime.Round(time.Millisecond))
		if result.Verified != binary.VerificationNone {
			a.console.Detail("%s signature verified", result.Verified)
		}
	}
	a.console.Success("PocketBase %s extracted", version)

	a.console.Step("writing project files")
	writer, err := scaffold.NewWriter(a.logger)
	if err != nil {
		return err
	}
	files, err := writer.Write(ctx, scaffold.Project{Dir: dir, Port: port, Version: version})
	if err != nil {
		return fmt.Errorf("write project files: %w", err)
	}
	a.console.Success("%d files written", len(files))

	if cfg.Git {
		if err := a.initGit(ctx, dir, files); err != nil {
			return err
		}
	}

	a.report(dir)
	return nil
}

// selectDir resolves the project directory, creating it when absent. Without
// an argument the user is asked, and a non-empty directory must be
// confirmed.
func (a *app) selectDir(arg string) (string, error) {
	if arg != "" {
		dir, created, err := prepareDir(arg)
		if err != nil {
			return "", err
		}
		a.reportDir(dir, created)
		return dir, nil
	}

	if a.prompt == nil {
		return "", errors.New("project directory is required when stdin is not a terminal")
	}

	a.console.Step("project location")
	for {
		answer, err := a.prompt.ask("Project directory (. for the current one): ")
		if err != nil {
			return "", err
		}
		if answer == "" {
			continue
		}

		empty, err := isEmptyDir(answer)
		if err == nil && !empty {
			ok, err := a.prompt.confirm(fmt.Sprintf("%s is not empty. Continue?", answer))
			if err != nil {
				return "", err
			}
			if !ok {
				continue
			}
		}

		dir, created, err := prepareDir(answer)
		if err != nil {
			a.console.Warn("%v", err)
			continue
		}
		a.reportDir(dir, created)
		return dir, nil
	}
}

func (a *app) reportDir(dir string, created bool) {
	if created {
		a.console.Step("created %s", dir)
		return
	}
	a.console.Step("using %s", dir)
}

// prepareDir expands and absolutises path and makes sure it is a directory.
func prepareDir(path string) (dir string, created bool, err error) {
	expanded, err := binary.ExpandHome(path)
	if err != nil {
		return "", false, err
	}
	dir, err = filepath.Abs(expanded)
	if err != nil {
		return "", false, fmt.Errorf("resolve %s: %w", path, err)
	}

	info, err := os.Stat(dir)
	switch {
	case err == nil && !info.IsDir():
		return "", false, fmt.Errorf("not a directory: %s", dir)
	case err == nil:
		return dir, false, nil
	case !errors.Is(err, os.ErrNotExist):
		return "", false, fmt.Errorf("stat %s: %w", dir, err)
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", false, fmt.Errorf("create directory: %w", err)
	}
	return dir, true, nil
}

// isEmptyDir reports whether path is an existing directory with no entries.
func isEmptyDir(path string) (bool, error) {
	expanded, err := binary.ExpandHome(path)
	if err != nil {
		return false, err
	}
	entries, err := os.ReadDir(expanded)
	if err != nil {
		return false, err
	}
	return len(entries) == 0, nil
}

// selectPort applies --port, then the config file, then asks; anything
// unusable falls back to the default port.
func (a *app) selectPort(opts *options, fileCfg *config.Config) (int, error) {
	if opts.portSet {
		return a.checkPort(opts.port), nil
	}

	if fileCfg != nil && fileCfg.Port != 0 {
		a.console.Step("port %d", fileCfg.Port)
		return fileCfg.Port, nil
	}

	if a.prompt == nil {
		a.console.Step("port %d", config.DefaultPort)
		return config.DefaultPort, nil
	}

	answer, err := a.prompt.ask(fmt.Sprintf("Port [%d]: ", config.DefaultPort))
	if err != nil {
		return 0, err
	}
	if answer == "" {
		a.console.Step("port %d", config.DefaultPort)
		return config.DefaultPort, nil
	}
	return a.checkPort(answer), nil
}

// checkPort parses raw, substituting the default for invalid values.
func (a *app) checkPort(raw string) int {
	port, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		a.console.Warn("invalid port %q, using default %d", raw, config.DefaultPort)
		return config.DefaultPort
	}
	if err := config.ValidatePort(port); err != nil {
		a.console.Warn("%v, using default %d", err, config.DefaultPort)
		return config.DefaultPort
	}

	a.console.Step("port %d", port)
	return port
}

// selectVersion uses a valid --version as is. Otherwise the catalog (or its
// fallback table) is consulted: the user picks one, or the newest is taken
// when there is nobody to ask or the config asks for "latest".
func (a *app) selectVersion(ctx context.Context, override string, fileCfg, cfg *config.Config) (string, error) {
	if override != "" {
		if release.ValidVersion(override) {
			a.console.Step("version %s", override)
			return override, nil
		}
		a.console.Warn("invalid version %q, listing releases instead", override)
	} else if fileCfg != nil && fileCfg.Version != "" && fileCfg.Version != release.LatestVersion {
		a.console.Step("version %s", fileCfg.Version)
		return fileCfg.Version, nil
	}

	a.console.Step("listing releases")
	versions, fallback := a.newCatalog(cfg).Versions(ctx)
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if fallback {
		a.console.Warn("release listing unavailable, using built-in versions")
	} else {
		a.console.Detail("%d stable versions found", len(versions))
	}

	if len(versions) == 0 {
		a.console.Warn("no versions known, using %q", release.LatestVersion)
		return release.LatestVersion, nil
	}

	useNewest := a.prompt == nil || (override == "" && fileCfg != nil && fileCfg.Version == release.LatestVersion)
	if useNewest {
		a.console.Step("version %s", versions[0])
		return versions[0], nil
	}

	idx, err := a.prompt.choose("Available versions:", versions)
	if err != nil {
		return "", err
	}
	a.console.Step("version %s", versions[idx])
	return versions[idx], nil
}

// checkExistingProject warns when dir already holds a pbsetup project.
func (a *app) checkExistingProject(dir, version string) {
	existing, err := scaffold.ReadProjectConfig(dir)
	if errors.Is(err, scaffold.ErrNoProject) {
		return
	}
	if err != nil {
		a.logger.Debug("ignoring unreadable project config", "dir", dir, "error", err)
		return
	}

	change := release.Compare(existing.Version, version)
	a.console.Warn("%s already holds a project on %s (%s); its files will be overwritten", dir, existing.Version, change)
}

// initGit makes dir a repository with the scaffold as its first commit.
func (a *app) initGit(ctx context.Context, dir string, files []string) error {
	a.console.Step("initialising git repository")

	result, err := git.InitProject(ctx, git.NewClient(dir), files)
	if err != nil {
		return fmt.Errorf("initialise git: %w", err)
	}
	if !result.Initialized {
		a.console.Detail("already a git repository, left untouched")
		return nil
	}

	short := result.Commit
	if len(short) > 7 {
		short = short[:7]
	}
	a.console.Success("committed %s as %s <%s>", short, result.User.Name, result.User.Email)
	if result.User.IsDefault {
		a.console.Warn("no git identity found; set %s and %s or git config user.name/user.email", git.EnvGitName, git.EnvGitEmail)
	}
	return nil
}

// report prints the next steps.
func (a *app) report(dir string) {
	a.console.Println("")
	a.console.Println("Next steps:")
	a.console.Println("  1. cd %s", dir)
	a.console.Println("  2. ./init-types.sh             # TypeScript types, first time only")
	a.console.Println("  3. cd pb_hooks_ts && npm install")
	a.console.Println("  4. npm run build")
	a.console.Println("  5. cd ..")
	a.console.Println("  6. ./run.sh                    # start PocketBase")
	a.console.Println("")
	a.console.Println("See README.md for more.")
	a.console.Println("")
}

// listVersions prints the catalog, or the fallback table marked as such.
func (a *app) listVersions(ctx context.Context, cfg *config.Config) error {
	versions, fallback := a.newCatalog(cfg).Versions(ctx)
	if err := ctx.Err(); err != nil {
		return err
	}
	if fallback {
		a.console.Warn("release listing unavailable, showing built-in versions")
	}
	for _, v := range versions {
		a.console.Println("%s", v)
	}
	return nil
}

// writeConfig writes the default Lua config to the resolved config path.
func (a *app) writeConfig(opts *options) error {
	path, _, err := config.ResolvePath(opts.configPath)
	if err != nil {
		return err
	}
	if err := config.WriteFile(path, config.Defaults(), opts.force); err != nil {
		return err
	}
	a.console.Success("wrote %s", path)
	return nil
}
