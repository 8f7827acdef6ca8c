// Package catalog discovers the items to rank from a recordings directory.
package catalog

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/okian/pairrank/internal/domain/model"
)

// DefaultExtensions are the audio formats accepted when none are configured.
var DefaultExtensions = []string{".mp3", ".wav", ".ogg", ".flac"}

// Scan lists the regular files in dir whose extension is one of exts,
// compared case-insensitively, sorted by name. A missing dir is created.
func Scan(dir string, exts []string) ([]model.Item, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create %s: %w", dir, err)
		}
		return []model.Item{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", dir, err)
	}

	accept := extensionSet(exts)
	items := make([]model.Item, 0, len(entries))
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		if Accepts(accept, e.Name()) {
			items = append(items, model.Item(e.Name()))
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i] < items[j] })
	return items, nil
}

// Accepts reports whether name carries one of the extensions in set.
func Accepts(set map[string]struct{}, name string) bool {
	_, ok := set[strings.ToLower(filepath.Ext(name))]
	return ok
}

func extensionSet(exts []string) map[string]struct{} {
	if len(exts) == 0 {
		exts = DefaultExtensions
	}
	set := make(map[string]struct{}, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		set[ext] = struct{}{}
	}
	return set
}
