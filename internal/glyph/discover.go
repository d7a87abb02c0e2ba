package glyph

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// DefaultFontDirs are searched for system fonts, in order.
var DefaultFontDirs = []string{
	"/usr/share/fonts",
	"/usr/local/share/fonts",
	"~/.fonts",
	"~/.local/share/fonts",
}

// RegularFonts are preferred monospace font files, best first.
var RegularFonts = []string{
	"DejaVuSansMono.ttf",
	"LiberationMono-Regular.ttf",
	"UbuntuMono-R.ttf",
	"NotoSansMono-Regular.ttf",
}

// CJKFonts are preferred fallback font files for wide scripts, best first.
var CJKFonts = []string{
	"NotoSansCJK-Regular.ttc",
	"NotoSansJP-Regular.otf",
	"DroidSansFallback.ttf",
	"wqy-microhei.ttc",
}

// Find searches dirs recursively for the first of names (in preference
// order, matched case-insensitively on the file name) and returns its path.
func Find(names, dirs []string) (string, error) {
	want := make(map[string]int, len(names))
	for i, n := range names {
		want[strings.ToLower(n)] = i
	}

	best, bestRank := "", len(names)
	for _, dir := range dirs {
		dir = expandHome(dir)
		_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				// Unreadable directories are skipped.
				if d != nil && d.IsDir() {
					return fs.SkipDir
				}
				return nil
			}
			if d.IsDir() {
				return nil
			}
			if rank, ok := want[strings.ToLower(d.Name())]; ok && rank < bestRank {
				best, bestRank = path, rank
				if rank == 0 {
					return fs.SkipAll
				}
			}
			return nil
		})
		if bestRank == 0 {
			break
		}
	}

	if best == "" {
		return "", fmt.Errorf("%w: none of %s", ErrFontNotFound, strings.Join(names, ", "))
	}
	return best, nil
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}
