package controllers

import (
	"os"
	"path/filepath"
)

// writeFile replaces path with content atomically.
// The temporary file lives in the same directory so the rename never crosses file systems.
func writeFile(path string, content []byte) (err error) {
	mode := os.FileMode(0644)
	if stat, err := os.Stat(path); err == nil {
		mode = stat.Mode().Perm()
	}

	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer func() {
		if err != nil {
			f.Close()
			os.Remove(tmp)
		}
	}()

	if _, err = f.Write(content); err != nil {
		return err
	}
	if err = f.Sync(); err != nil {
		return err
	}
	if err = f.Chmod(mode); err != nil {
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
