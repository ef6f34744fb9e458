package scanner

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
)

// languageByExt maps file extensions to the language names detectors declare.
var languageByExt = map[string]string{
	".go":   "go",
	".js":   "javascript",
	".jsx":  "javascript",
	".mjs":  "javascript",
	".ts":   "typescript",
	".tsx":  "typescript",
	".py":   "python",
	".rb":   "ruby",
	".rs":   "rust",
	".java": "java",
}

// LanguageForPath returns the language for a path, or "" for files no
// detector can understand.
func LanguageForPath(path string) string {
	return languageByExt[strings.ToLower(filepath.Ext(path))]
}

// DiscoverFiles walks root and returns refs for every source file with a
// recognized language. Hidden directories and common dependency trees are
// skipped outright; the caller's ignore globs are applied later by Scan.
func DiscoverFiles(root string) ([]FileRef, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving project root %s: %w", root, err)
	}

	var files []FileRef
	err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if d.IsDir() {
			if path != absRoot && (strings.HasPrefix(name, ".") || name == "node_modules" || name == "vendor") {
				return filepath.SkipDir
			}
			return nil
		}
		lang := LanguageForPath(path)
		if lang == "" {
			return nil
		}
		rel, err := filepath.Rel(absRoot, path)
		if err != nil {
			return err
		}
		files = append(files, FileRef{
			Path:     path,
			RelPath:  filepath.ToSlash(rel),
			Language: lang,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", absRoot, err)
	}
	return files, nil
}
