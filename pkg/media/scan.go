package media

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"plexsync/pkg/logging"
)

// Entry is one scanned media file. Path is absolute and local.
type Entry struct {
	Path     string
	Duration int
	Title    string
}

// Scan walks dir recursively in lexical order and reads metadata for every file whose
// lowercased extension is in exts.
func Scan(ctx context.Context, dir string, exts map[string]bool, reader *Reader) ([]Entry, error) {
	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", dir, err)
	}

	var entries []Entry
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() {
			logging.Debug("Scanning folder: %s", path)
			return nil
		}
		if !IsMediaFile(path, exts) {
			return nil
		}

		meta := reader.Read(ctx, path)
		entries = append(entries, Entry{
			Path:     path,
			Duration: meta.Duration,
			Title:    meta.Title,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", root, err)
	}

	return entries, nil
}

// IsMediaFile reports whether path has an allow-listed extension.
func IsMediaFile(path string, exts map[string]bool) bool {
	return exts[strings.ToLower(filepath.Ext(path))]
}
