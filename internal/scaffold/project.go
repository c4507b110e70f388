package scaffold

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/tidwall/jsonc"
)

// ErrNoProject is returned when dir holds no pb_config.json.
var ErrNoProject = errors.New("not a pbsetup project")

// ReadProjectConfig reads pb_config.json from dir. Comments and trailing
// commas added by hand are tolerated.
func ReadProjectConfig(dir string) (*ProjectConfig, error) {
	data, err := os.ReadFile(filepath.Join(dir, ConfigFilename))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNoProject
		}
		return nil, fmt.Errorf("read %s: %w", ConfigFilename, err)
	}

	var cfg ProjectConfig
	if err := json.Unmarshal(jsonc.ToJSON(data), &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", ConfigFilename, err)
	}
	return &cfg, nil
}
