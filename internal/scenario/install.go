package scenario

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Install copies the *.yaml files of fsys into dir. Existing files are left
// alone so local edits survive. It returns the number of files written.
func Install(fsys fs.FS, dir string) (int, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return 0, fmt.Errorf("create scenarios dir: %w", err)
	}

	names, err := fs.Glob(fsys, "*.yaml")
	if err != nil {
		return 0, fmt.Errorf("glob bundled scenarios: %w", err)
	}

	written := 0
	for _, name := range names {
		dst := filepath.Join(dir, name)
		if _, err := os.Stat(dst); err == nil {
			continue
		} else if !errors.Is(err, fs.ErrNotExist) {
			return written, fmt.Errorf("stat %s: %w", dst, err)
		}

		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return written, fmt.Errorf("read bundled %s: %w", name, err)
		}
		if err := os.WriteFile(dst, data, 0644); err != nil {
			return written, fmt.Errorf("write %s: %w", dst, err)
		}
		written++
	}
	return written, nil
}
