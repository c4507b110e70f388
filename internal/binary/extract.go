package binary

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"

	"github.com/ZebulonRouseFrantzich/pbsetup/internal/logging"
	"github.com/ZebulonRouseFrantzich/pbsetup/internal/platform"
)

// ExecutableName is the server binary shipped in every release archive.
const ExecutableName = "pocketbase"

// Extractor handles archive extraction
type Extractor struct {
	logger logging.Logger
}

// NewExtractor creates a new extractor
func NewExtractor(logger logging.Logger) *Extractor {
	return &Extractor{logger: logging.OrNop(logger)}
}

// Extract unpacks every entry of the zip at archivePath into destDir,
// reproducing relative paths and overwriting existing files. Entries, and
// symlink targets, that would resolve outside destDir are rejected. Device,
// pipe and socket entries cannot be reproduced and are skipped. On POSIX tags the extracted
// pocketbase executable is then made executable.
func (e *Extractor) Extract(archivePath, destDir string, tag platform.Tag) error {
	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer reader.Close()

	if err := os.MkdirAll(destDir, 0755); err != nil {
		return fmt.Errorf("create dest dir: %w", err)
	}

	root := filepath.Clean(destDir)
	for _, f := range reader.File {
		target := filepath.Join(root, f.Name)

		// Security check: prevent path traversal
		if target != root && !strings.HasPrefix(target, root+string(os.PathSeparator)) {
			return fmt.Errorf("illegal file path: %s", f.Name)
		}

		mode := f.Mode()
		switch {
		case mode.IsDir():
			if err := os.MkdirAll(target, 0755); err != nil {
				return fmt.Errorf("create directory %s: %w", target, err)
			}

		case mode.IsRegular():
			if err := extractFile(f, target); err != nil {
				return err
			}

		case mode&os.ModeSymlink != 0:
			if err := extractSymlink(f, root, target); err != nil {
				return err
			}

		default:
			e.logger.Debug("skipping special archive entry", "name", f.Name, "mode", mode.String())
		}
	}

	if tag.IsPOSIX() {
		exe := filepath.Join(root, ExecutableName)
		if _, err := os.Stat(exe); err == nil {
			if err := SetExecutable(exe); err != nil {
				return err
			}
		}
	}

	return nil
}

// extractFile writes a single regular zip entry to target.
func extractFile(f *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return fmt.Errorf("create parent dir for %s: %w", target, err)
	}

	perm := f.Mode().Perm()
	if perm == 0 {
		perm = 0644
	}

	src, err := f.Open()
	if err != nil {
		return fmt.Errorf("open entry %s: %w", f.Name, err)
	}
	defer src.Close()

	outFile, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return fmt.Errorf("create file %s: %w", target, err)
	}

	if _, err := io.Copy(outFile, src); err != nil {
		outFile.Close()
		return fmt.Errorf("write file %s: %w", target, err)
	}

	if err := outFile.Close(); err != nil {
		return fmt.Errorf("close file %s: %w", target, err)
	}
	return nil
}

// extractSymlink recreates a symlink entry whose target stays inside root.
func extractSymlink(f *zip.File, root, target string) error {
	src, err := f.Open()
	if err != nil {
		return fmt.Errorf("open entry %s: %w", f.Name, err)
	}
	link, err := io.ReadAll(io.LimitReader(src, 4096))
	src.Close()
	if err != nil {
		return fmt.Errorf("read link %s: %w", f.Name, err)
	}

	dest := string(link)
	resolved := dest
	if !filepath.IsAbs(resolved) {
		resolved = filepath.Join(filepath.Dir(target), resolved)
	}
	resolved = filepath.Clean(resolved)
	if resolved != root && !strings.HasPrefix(resolved, root+string(os.PathSeparator)) {
		return fmt.Errorf("illegal link target: %s -> %s", f.Name, dest)
	}

	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return fmt.Errorf("create parent dir for %s: %w", target, err)
	}
	if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("replace %s: %w", target, err)
	}
	if err := os.Symlink(dest, target); err != nil {
		return fmt.Errorf("create symlink %s: %w", target, err)
	}
	return nil
}

// SetExecutable sets executable permissions on a file
func SetExecutable(path string) error {
	// Set permissions to 0755 (rwxr-xr-x)
	if err := os.Chmod(path, 0755); err != nil {
		return fmt.Errorf("set executable: %w", err)
	}
	return nil
}
