// Package walk enumerates managed directories, selects eligible files, and
// discovers existing checksum sidecars in stable lexical order.
package walk

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Filter is the inclusion predicate applied to candidate files. Include and
// Exclude are doublestar patterns matched against the bare file name; an
// empty Include list admits everything. Exclude wins over Include. MaxSize 0
// means unlimited.
type Filter struct {
	Include []string
	Exclude []string
	MinSize int64
	MaxSize int64
}

// Match reports whether a file with the given name and size is eligible.
func (f Filter) Match(name string, size int64) bool {
	if size < f.MinSize {
		return false
	}
	if f.MaxSize > 0 && size > f.MaxSize {
		return false
	}
	for _, pattern := range f.Exclude {
		if ok, _ := doublestar.Match(pattern, name); ok {
			return false
		}
	}
	if len(f.Include) == 0 {
		return true
	}
	for _, pattern := range f.Include {
		if ok, _ := doublestar.Match(pattern, name); ok {
			return true
		}
	}
	return false
}

// Validate checks every pattern for doublestar syntax errors.
func (f Filter) Validate() error {
	for _, pattern := range append(append([]string(nil), f.Include...), f.Exclude...) {
		if !doublestar.ValidatePattern(pattern) {
			return fmt.Errorf("invalid file pattern %q", pattern)
		}
	}
	return nil
}

// Dirs lists root and its subdirectories down to depth levels below root
// (depth 0 = root only, negative = unlimited), in lexical walk order.
func Dirs(root string, depth int) ([]string, error) {
	root = filepath.Clean(root)
	var dirs []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if depth >= 0 && level(root, path) > depth {
			return fs.SkipDir
		}
		dirs = append(dirs, path)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dirs, nil
}

// Eligible lists the regular files directly inside dir that pass the filter,
// excluding the sidecar itself. Names are returned relative to dir, sorted.
func Eligible(dir, sidecarName string, filter Filter) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		name := entry.Name()
		if name == sidecarName {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", name, err)
		}
		if filter.Match(name, info.Size()) {
			files = append(files, name)
		}
	}
	return files, nil
}

// FindSidecars walks the tree under root and returns every sidecar named
// name, in lexical order. The order is the stable discovery order used to
// break scheduling ties.
func FindSidecars(root, name string) ([]string, error) {
	var sidecars []string
	err := filepath.WalkDir(filepath.Clean(root), func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && d.Name() == name {
			sidecars = append(sidecars, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sidecars, nil
}

func level(root, path string) int {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." {
		return 0
	}
	return strings.Count(rel, string(filepath.Separator)) + 1
}
