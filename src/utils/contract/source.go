package contract

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/cassc/smart-contract-database-builder/src/utils/model"
)

// SanitizePath removes any components in a smart contract source path that
// could cause a directory traversal and forces absolute paths to be relative.
func SanitizePath(path string) string {
	parts := strings.Split(filepath.ToSlash(path), "/")
	kept := make([]string, 0, len(parts))
	for _, part := range parts {
		if part == "" || part == "." || part == ".." {
			continue
		}
		kept = append(kept, part)
	}
	return filepath.Join(kept...)
}

// WriteSources expands the stored source files into dir, unflattened, so the
// compiler (or a human) can resolve imports by relative path. Files without
// an extension get ".sol" appended unless that would collide with another
// entry.
func WriteSources(dir string, sources []model.SourceFile) (err error) {
	err = os.MkdirAll(dir, 0o755)
	if err != nil {
		return
	}

	names := make(map[string]bool, len(sources))
	for _, source := range sources {
		names[SanitizePath(source.Name)] = true
	}

	for _, source := range sources {
		sanitized := SanitizePath(source.Name)
		if sanitized == "" {
			continue
		}
		if filepath.Ext(sanitized) == "" {
			withExtension := sanitized + ".sol"
			if !names[withExtension] {
				sanitized = withExtension
			}
		}

		target := filepath.Join(dir, sanitized)
		err = os.MkdirAll(filepath.Dir(target), 0o755)
		if err != nil {
			return
		}
		err = os.WriteFile(target, []byte(source.Content), 0o644)
		if err != nil {
			return
		}
	}
	return
}
