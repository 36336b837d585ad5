package utils

import (
	"fmt"
	"path/filepath"
	"strings"
)

// GetPathInfo resolves a source path to its absolute form and directory.
func GetPathInfo(relPath string) (fullPath string, parentDir string, err error) {
	// Convert to absolute path (resolves ../../ and cleans the path)
	fullPath, err = filepath.Abs(relPath)
	if err != nil {
		return "", "", err
	}

	parentDir = filepath.Dir(fullPath)

	return fullPath, parentDir, nil
}

// ReplaceExt swaps the extension of path for ext ("" strips it).
func ReplaceExt(path, ext string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ext
}

// OutputPaths picks one artifact path per source file.
//
// A single source writes to override when set, else to fallback with its
// extension changed to ext. Several sources each write next to themselves;
// override then names a directory.
func OutputPaths(sources []string, ext, override, fallback string) ([]string, error) {
	if len(sources) == 0 {
		return nil, fmt.Errorf("no source files")
	}
	if len(sources) == 1 {
		if override != "" {
			return []string{override}, nil
		}
		return []string{ReplaceExt(fallback, ext)}, nil
	}

	out := make([]string, len(sources))
	seen := make(map[string]string, len(sources))
	for i, src := range sources {
		p := ReplaceExt(src, ext)
		if override != "" {
			p = filepath.Join(override, filepath.Base(p))
		}
		full, _, err := GetPathInfo(p)
		if err != nil {
			return nil, err
		}
		if prev, dup := seen[full]; dup {
			return nil, fmt.Errorf("%s and %s both write %s", prev, src, p)
		}
		seen[full] = src
		out[i] = p
	}
	return out, nil
}
