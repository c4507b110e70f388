// Package scaffold writes the fixed set of project files around an
// extracted PocketBase binary.
package scaffold

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"text/template"

	"github.com/ZebulonRouseFrantzich/pbsetup/internal/binary"
	"github.com/ZebulonRouseFrantzich/pbsetup/internal/git"
	"github.com/ZebulonRouseFrantzich/pbsetup/internal/logging"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// ConfigFilename is the per-project record of the chosen port and version.
const ConfigFilename = "pb_config.json"

// Folders created in every project, slash-separated and relative to the root.
var Folders = []string{
	"pb_hooks",
	"pb_hooks_ts/src/entries",
	"pb_hooks_ts/src/types",
	"pb_hooks_ts/src/lib",
	"pb_migrations",
	"pb_public",
	"pb_data",
}

// file maps a template to its destination.
type file struct {
	template string
	dest     string
	mode     os.FileMode
}

var files = []file{
	{"package.json.tmpl", "pb_hooks_ts/package.json", 0644},
	{"tsup.config.ts.tmpl", "pb_hooks_ts/tsup.config.ts", 0644},
	{"tsconfig.json.tmpl", "pb_hooks_ts/tsconfig.json", 0644},
	{"main.pb.ts.tmpl", "pb_hooks_ts/src/entries/main.pb.ts", 0644},
	{"pocketbase.d.ts.tmpl", "pb_hooks_ts/src/types/pocketbase.d.ts", 0644},
	{"run.sh.tmpl", "run.sh", 0755},
	{"init-types.sh.tmpl", "init-types.sh", 0755},
	{"README.md.tmpl", "README.md", 0644},
}

// Project describes the project being scaffolded.
type Project struct {
	Dir     string
	Port    int
	Version string
}

// templateData is what the templates see.
type templateData struct {
	Port       int
	Version    string
	Executable string
}

// Writer renders the scaffold.
type Writer struct {
	templates *template.Template
	logger    logging.Logger
}

// NewWriter parses the embedded templates.
func NewWriter(logger logging.Logger) (*Writer, error) {
	tmpl, err := template.New("scaffold").Option("missingkey=error").ParseFS(templateFS, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &Writer{templates: tmpl, logger: logging.OrNop(logger)}, nil
}

// Write creates the folders and files of the scaffold under p.Dir, which
// must already exist. Existing files are overwritten. It returns the written
// files as slash-separated paths relative to p.Dir.
func (w *Writer) Write(ctx context.Context, p Project) ([]string, error) {
	if p.Dir == "" {
		return nil, fmt.Errorf("project directory is required")
	}
	if info, err := os.Stat(p.Dir); err != nil {
		return nil, fmt.Errorf("stat project directory: %w", err)
	} else if !info.IsDir() {
		return nil, fmt.Errorf("project path is not a directory: %s", p.Dir)
	}

	var written []string

	for _, folder := range Folders {
		if err := os.MkdirAll(filepath.Join(p.Dir, filepath.FromSlash(folder)), 0755); err != nil {
			return nil, fmt.Errorf("create %s: %w", folder, err)
		}
	}

	gitkeep := path.Join("pb_data", ".gitkeep")
	if err := writeFile(p.Dir, gitkeep, nil, 0644); err != nil {
		return nil, err
	}
	written = append(written, gitkeep)

	data := templateData{
		Port:       p.Port,
		Version:    p.Version,
		Executable: binary.ExecutableName,
	}

	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var buf bytes.Buffer
		if err := w.templates.ExecuteTemplate(&buf, f.template, data); err != nil {
			return nil, fmt.Errorf("render %s: %w", f.dest, err)
		}
		if err := writeFile(p.Dir, f.dest, buf.Bytes(), f.mode); err != nil {
			return nil, err
		}
		written = append(written, f.dest)
	}

	if err := git.WriteGitignore(filepath.Join(p.Dir, ".gitignore")); err != nil {
		return nil, err
	}
	written = append(written, ".gitignore")

	if err := WriteProjectConfig(p.Dir, ProjectConfig{Port: p.Port, Version: p.Version}); err != nil {
		return nil, err
	}
	written = append(written, ConfigFilename)

	w.logger.Debug("scaffold written", "dir", p.Dir, "files", len(written))

	return written, nil
}

// writeFile writes data to root/rel and forces mode, which os.WriteFile
// leaves unchanged on existing files.
func writeFile(root, rel string, data []byte, mode os.FileMode) error {
	dest := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.WriteFile(dest, data, mode); err != nil {
		return fmt.Errorf("write %s: %w", rel, err)
	}
	if err := os.Chmod(dest, mode); err != nil {
		return fmt.Errorf("chmod %s: %w", rel, err)
	}
	return nil
}

// ProjectConfig is the content of pb_config.json.
type ProjectConfig struct {
	Port    int    `json:"port"`
	Version string `json:"version"`
}

// WriteProjectConfig writes pb_config.json into dir.
func WriteProjectConfig(dir string, cfg ProjectConfig) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", ConfigFilename, err)
	}
	return writeFile(dir, ConfigFilename, append(data, '\n'), 0644)
}
