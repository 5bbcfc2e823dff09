// Package catalog writes the per-destination listings of packaged titles.
//
// One file is written per destination, named after the destination's
// 1-based position (server_1.json, server_2.json, ...). Each holds the full
// batch: catalogs are only written once every job has finished, so a listing
// never reflects a partial run.
package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/backmassage/dashpack/internal/config"
	"github.com/backmassage/dashpack/internal/failure"
)

// Entry is one packaged title as served from one destination.
type Entry struct {
	Title string `json:"title" yaml:"title"`
	URL   string `json:"url" yaml:"url"`
}

// URL joins a destination base, a path-escaped title and the manifest file
// name. A trailing slash on base is tolerated.
func URL(base, title, manifest string) string {
	return strings.TrimRight(base, "/") + "/" + url.PathEscape(title) + "/" + manifest
}

// Build returns the entries for one destination, sorted by title.
func Build(titles []string, base, manifest string) []Entry {
	sorted := append([]string(nil), titles...)
	sort.Strings(sorted)

	entries := make([]Entry, 0, len(sorted))
	for _, t := range sorted {
		entries = append(entries, Entry{Title: t, URL: URL(base, t, manifest)})
	}
	return entries
}

// FileName returns the listing file name for the destination at index i.
func FileName(i int, format config.CatalogFormat) string {
	return fmt.Sprintf("server_%d.%s", i+1, format)
}

// Emit writes one listing per destination into dir and returns the written
// paths. The file name follows the destination's position in the list; blank
// destinations keep their position but get no file. It is a no-op when there
// are no destinations or no titles.
func Emit(dir string, destinations, titles []string, manifest string, format config.CatalogFormat) ([]string, error) {
	if len(destinations) == 0 || len(titles) == 0 {
		return nil, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, failure.New(failure.IOFailure, "create catalog directory", dir, err)
	}

	var written []string
	for i, base := range destinations {
		if strings.TrimSpace(base) == "" {
			continue
		}
		data, err := Encode(Build(titles, base, manifest), format)
		if err != nil {
			return written, err
		}
		path := filepath.Join(dir, FileName(i, format))
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return written, failure.New(failure.IOFailure, "write catalog", path, err)
		}
		written = append(written, path)
	}
	return written, nil
}

// Encode serializes entries as indented JSON or YAML.
func Encode(entries []Entry, format config.CatalogFormat) ([]byte, error) {
	if entries == nil {
		entries = []Entry{}
	}
	switch format {
	case config.CatalogYAML:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(entries); err != nil {
			return nil, fmt.Errorf("encode yaml catalog: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("encode yaml catalog: %w", err)
		}
		return buf.Bytes(), nil
	case config.CatalogJSON, "":
		data, err := json.MarshalIndent(entries, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encode json catalog: %w", err)
		}
		return append(data, '\n'), nil
	}
	return nil, fmt.Errorf("unknown catalog format %q", format)
}
