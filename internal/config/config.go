// Package config holds runtime configuration: defaults, the optional TOML
// config file, CLI flag binding, and validation. Defaults match the original
// batch tool (10 s segments, 2 workers, copy on publish).
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
)

// --- Enum types for validated string fields ---

// Codec is the target video codec every non-conforming input is converted to.
type Codec string

const (
	CodecAV1  Codec = "av1" // Default.
	CodecHEVC Codec = "hevc"
	CodecH264 Codec = "h264"
)

// Codecs lists every supported target codec.
func Codecs() []Codec { return []Codec{CodecAV1, CodecHEVC, CodecH264} }

// CatalogFormat selects the serialization of the per-destination listings.
type CatalogFormat string

const (
	CatalogJSON CatalogFormat = "json" // Default, server_N.json.
	CatalogYAML CatalogFormat = "yaml"
)

// ColorMode controls ANSI color output.
type ColorMode string

const (
	ColorAuto   ColorMode = "auto"   // Enable colors when stdout is a TTY (default).
	ColorAlways ColorMode = "always" // Force colors on.
	ColorNever  ColorMode = "never"  // Disable colors entirely.
)

// Tools names the external binaries. Each may be a bare name resolved on
// PATH or an absolute path.
type Tools struct {
	FFmpeg    string `toml:"ffmpeg"`
	FFprobe   string `toml:"ffprobe"`
	HWEncoder string `toml:"hw_encoder"` // Empty disables the hardware tier.
}

// Config holds all runtime settings. It is populated by [DefaultConfig], then
// by an optional config file, then by explicitly set CLI flags.
type Config struct {
	// Paths.
	InputDir   string
	PublishDir string // Optional relocation root.
	CatalogDir string // Where server_N listings are written. Default: ".".
	ConfigFile string

	// Packaging.
	SegmentDuration int // Seconds. Default: 10.

	// Encoding.
	TargetCodec Codec  // Default: av1.
	HWQuality   string // Hardware encoder quality tier. Default: "balanced".
	CRF         int    // Software encoder CRF; 0 selects the codec profile default.

	// Scheduling.
	Workers        int           // Default: 2. 0 resolves to physical core count.
	ProcessTimeout time.Duration // Per external process; 0 means no limit.

	// Publishing.
	Destinations  []string // Destination base URLs, one catalog each.
	CopyOnPublish bool     // Default: true. false moves the job tree instead.
	CatalogFormat CatalogFormat

	Tools Tools

	// Display and logging.
	Verbose   bool
	ColorMode ColorMode
	LogFile   string
}

// DefaultConfig returns a Config with all defaults applied.
func DefaultConfig() Config {
	return Config{
		CatalogDir:      ".",
		SegmentDuration: 10,
		TargetCodec:     CodecAV1,
		HWQuality:       "balanced",
		Workers:         2,
		CopyOnPublish:   true,
		CatalogFormat:   CatalogJSON,
		Tools: Tools{
			FFmpeg:    "ffmpeg",
			FFprobe:   "ffprobe",
			HWEncoder: "QSVEncC64",
		},
		ColorMode: ColorAuto,
	}
}

// NormalizeDirArg strips trailing slashes from a directory path.
// The filesystem root "/" is returned unchanged so we don't produce an empty string.
func NormalizeDirArg(path string) string {
	if path == "/" {
		return "/"
	}
	return strings.TrimRight(path, "/")
}

// Validate checks enum fields and numeric ranges and requires an input
// directory.
func (c *Config) Validate() error {
	switch c.TargetCodec {
	case CodecAV1, CodecHEVC, CodecH264:
	default:
		return fmt.Errorf("invalid codec %q (use 'av1', 'hevc' or 'h264')", c.TargetCodec)
	}

	switch c.CatalogFormat {
	case CatalogJSON, CatalogYAML:
	default:
		return fmt.Errorf("invalid catalog format %q (use 'json' or 'yaml')", c.CatalogFormat)
	}

	switch c.ColorMode {
	case ColorAuto, ColorAlways, ColorNever:
	default:
		return fmt.Errorf("invalid color mode %q", c.ColorMode)
	}

	if c.SegmentDuration <= 0 {
		return fmt.Errorf("segment duration must be positive (got %d)", c.SegmentDuration)
	}
	if c.Workers < 0 {
		return fmt.Errorf("worker count must not be negative (got %d)", c.Workers)
	}
	if c.CRF < 0 || c.CRF > 63 {
		return fmt.Errorf("crf must be between 0 and 63 (got %d)", c.CRF)
	}
	if c.ProcessTimeout < 0 {
		return errors.New("process timeout must not be negative")
	}
	if strings.TrimSpace(c.HWQuality) == "" {
		return errors.New("hardware quality tier must not be empty")
	}
	if strings.TrimSpace(c.Tools.FFmpeg) == "" || strings.TrimSpace(c.Tools.FFprobe) == "" {
		return errors.New("ffmpeg and ffprobe commands must be configured")
	}

	if c.InputDir == "" {
		return errors.New("input directory is required (-i/--input)")
	}
	return nil
}

// ValidatePaths ensures the resolved publish directory is not inside (or
// equal to) the resolved input directory, so relocated job trees are never
// mixed into the tree being converted. Both arguments must be absolute,
// symlink-resolved paths.
func (c *Config) ValidatePaths(inputAbs, publishAbs string) error {
	sep := string(filepath.Separator)
	if publishAbs == inputAbs || strings.HasPrefix(publishAbs+sep, inputAbs+sep) {
		return errors.New("publish directory must not be inside input directory")
	}
	return nil
}

// ResolveWorkers returns the effective worker count: n when positive,
// otherwise the number of physical cores (logical count as a fallback).
func ResolveWorkers(n int) int {
	if n > 0 {
		return n
	}
	if cores, err := cpu.Counts(false); err == nil && cores > 0 {
		return cores
	}
	return runtime.NumCPU()
}
