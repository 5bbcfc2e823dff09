package config

import (
	"encoding/json"
	"strings"

	"github.com/backmassage/dashpack/internal/failure"
)

// ParseDestinations parses a destination list literal such as
// `["https://s1.example","https://s2.example"]`. An empty literal yields no
// destinations. A malformed literal returns a ConfigParseFailure; callers
// degrade that to an empty list and carry on without catalogs.
func ParseDestinations(raw string) ([]string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	var urls []string
	if err := json.Unmarshal([]byte(raw), &urls); err != nil {
		fe := failure.New(failure.ConfigParseFailure, "parse destination list", "", err)
		fe.Detail = raw
		return nil, fe
	}
	return cleanDestinations(urls), nil
}

// cleanDestinations trims entries. Blank entries are kept as "" so every
// destination keeps its position, which names its catalog file; the catalog
// writer skips them.
func cleanDestinations(urls []string) []string {
	if len(urls) == 0 {
		return nil
	}
	out := make([]string, len(urls))
	for i, u := range urls {
		out[i] = strings.TrimSpace(u)
	}
	return out
}
