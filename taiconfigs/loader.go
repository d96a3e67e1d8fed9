package taiconfigs

import (
	_ "embed"
	"os"
	"path/filepath"
	"slices"

	"github.com/reusee/taidoc/configs"
	"github.com/reusee/taidoc/logs"
)

//go:embed schema.cue
var schema string

var configFileNames = []string{
	"taidoc.cue",
	".taidoc.cue",
}

// ConfigsLoader loads config files found in, by precedence:
// TAIDOC_CONFIG, the work file directory, the working directory, the user config directory and /etc.
func (Module) ConfigsLoader(
	logger logs.Logger,
) configs.Loader {

	var paths []string
	defer func() {
		if len(paths) > 0 {
			logger.Info("config file",
				"paths", paths,
			)
		}
	}()

	add := func(path string) {
		if slices.Contains(paths, path) {
			return
		}
		if _, err := os.Stat(path); err == nil {
			paths = append(paths, path)
		}
	}

	if path := os.Getenv("TAIDOC_CONFIG"); path != "" {
		add(path)
	}

	var dirs []string
	if *workFileFlag != "" {
		if abs, err := filepath.Abs(*workFileFlag); err == nil {
			dirs = append(dirs, filepath.Dir(abs))
		}
	}
	if dir, err := os.Getwd(); err == nil {
		dirs = append(dirs, dir)
	}
	if dir, err := os.UserConfigDir(); err == nil {
		dirs = append(dirs, dir)
	}
	dirs = append(dirs, "/etc")

	for _, dir := range dirs {
		for _, name := range configFileNames {
			add(filepath.Join(dir, name))
		}
	}

	return configs.NewLoader(paths, schema)
}
