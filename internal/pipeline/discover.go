package pipeline

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/backmassage/dashpack/internal/config"
	"github.com/backmassage/dashpack/internal/naming"
)

// Supported media file extensions (lowercase, with leading dot).
var mediaExtensions = map[string]bool{
	".mp4":  true,
	".mkv":  true,
	".avi":  true,
	".mov":  true,
	".webm": true,
	".flv":  true,
	".wmv":  true,
	".m4v":  true,
	".ts":   true,
}

// IsMedia reports whether path has a supported media extension.
func IsMedia(path string) bool {
	return mediaExtensions[strings.ToLower(filepath.Ext(path))]
}

// Discover walks inputDir, collects files with media extensions and returns
// them sorted lexicographically for deterministic processing order.
// Job directories from earlier runs are pruned, finished or not, so
// intermediates are never converted again.
func Discover(inputDir string) ([]string, error) {
	var files []string
	stems := map[string]map[string]bool{} // parent dir → media stems in it
	err := filepath.WalkDir(inputDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path == inputDir {
				return nil
			}
			parent := filepath.Dir(path)
			if _, ok := stems[parent]; !ok {
				stems[parent] = mediaStems(parent)
			}
			if isJobOutput(path, stems[parent]) {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() && IsMedia(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// isJobOutput reports whether dir is a job root: it holds a manifest, or it
// is named after a sibling source (with or without a " - dupN" suffix) and
// holds an encode or segment directory.
func isJobOutput(dir string, siblingStems map[string]bool) bool {
	if exists(filepath.Join(dir, naming.ManifestName)) {
		return true
	}
	name := filepath.Base(dir)
	if !siblingStems[name] && !siblingStems[naming.BaseTitle(name)] {
		return false
	}
	if exists(filepath.Join(dir, naming.SegmentRoot)) {
		return true
	}
	for _, c := range config.Codecs() {
		if exists(filepath.Join(dir, string(c))) {
			return true
		}
	}
	return false
}

func mediaStems(dir string) map[string]bool {
	out := map[string]bool{}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return out
	}
	for _, e := range entries {
		if !e.IsDir() && IsMedia(e.Name()) {
			out[naming.Stem(e.Name())] = true
		}
	}
	return out
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
