package git

import (
	"fmt"
	"os"
	"path/filepath"
)

// gitignoreTemplate is the .gitignore written into every new project.
// The PocketBase binary and its data directory are machine-local; the
// .gitkeep placeholder keeps pb_data/ present in fresh clones.
const gitignoreTemplate = `# PocketBase binary (fetched by pbsetup)
/pocketbase
/pocketbase.exe

# PocketBase data
pb_data/*
!pb_data/.gitkeep

# Dependencies
node_modules/
package-lock.json
yarn.lock
pnpm-lock.yaml

# Environment variables
.env
.env.local
.env.*.local

# IDE and editor
.vscode/
.idea/
*.swp
*.swo
*~
.sublime-project
.sublime-workspace

# OS
Thumbs.db
.DS_Store

# Logs
logs/
*.log
npm-debug.log*
yarn-debug.log*
yarn-error.log*

# Build output
dist/
build/
out/

# Compiled JavaScript from TypeScript
pb_hooks/*.js
pb_hooks/*.js.map

# Temporary files
*.tmp
.cache
`

// WriteGitignore writes the .gitignore template to the specified path.
// It creates parent directories if needed and sets file permissions to 0644.
func WriteGitignore(path string) error {
	if path == "" {
		return fmt.Errorf("write .gitignore: empty path")
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}

	if err := os.WriteFile(path, []byte(gitignoreTemplate), 0644); err != nil {
		return fmt.Errorf("write .gitignore: %w", err)
	}

	return nil
}
