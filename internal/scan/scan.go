// Package scan walks generated-code directories, skipping VCS and dependency
// trees, and reports the files worth analyzing.
package scan

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// File carries per-entry metadata for a visited file.
type File struct {
	// Root-relative path using forward slashes (e.g., "code/app.txt").
	Path string
	// Absolute filesystem path.
	AbsPath string
	// File size in bytes; 0 when stat fails.
	Size int64
}

var skipDirs = map[string]struct{}{
	".git":         {},
	".hg":          {},
	".svn":         {},
	"node_modules": {},
	"vendor":       {},
	"target":       {},
	"build":        {},
	".next":        {},
	".cache":       {},
}

// List walks root and returns the files whose lowercased extension is in
// exts (e.g., ".txt", ".py"). An empty exts list accepts every file. A
// missing root yields an empty list, not an error.
func List(root string, exts ...string) ([]File, error) {
	if _, err := os.Stat(root); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	allow := make(map[string]struct{}, len(exts))
	for _, e := range exts {
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		allow[strings.ToLower(e)] = struct{}{}
	}

	var files []File
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if _, skip := skipDirs[filepath.Base(path)]; skip && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		if len(allow) > 0 {
			ext := strings.ToLower(filepath.Ext(path))
			if _, ok := allow[ext]; !ok {
				return nil
			}
		}
		rel, _ := filepath.Rel(root, path)
		size := int64(0)
		if fi, e := os.Stat(path); e == nil {
			size = fi.Size()
		}
		files = append(files, File{
			Path:    filepath.ToSlash(rel),
			AbsPath: path,
			Size:    size,
		})
		return nil
	})
	return files, err
}
