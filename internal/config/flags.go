package config

// This file binds CLI flags. Flag values are captured into Flags rather than
// written straight into Config, then applied after the config file has been
// loaded so that only flags the user actually passed override file values.

import (
	"strings"
	"time"

	"github.com/spf13/pflag"
)

// Flags holds raw CLI values bound to a pflag.FlagSet.
type Flags struct {
	fs *pflag.FlagSet

	input         string
	segment       int
	workers       int
	serve         string
	publish       string
	copyOnPublish bool
	configFile    string
	catalogDir    string
	catalogFormat string
	codec         string
	hwQuality     string
	crf           int
	timeout       time.Duration
	ffmpeg        string
	ffprobe       string
	hwEncoder     string
	logFile       string
	verbose       bool
	forceColor    bool
	noColor       bool
}

// BindFlags registers every run flag on fs. Defaults shown in help come from
// DefaultConfig.
func BindFlags(fs *pflag.FlagSet) *Flags {
	d := DefaultConfig()
	f := &Flags{fs: fs}

	// Paths and packaging.
	fs.StringVarP(&f.input, "input", "i", "", "Directory tree of videos to convert (required)")
	fs.IntVarP(&f.segment, "time", "t", d.SegmentDuration, "DASH segment duration in seconds")
	fs.IntVarP(&f.workers, "parallel", "p", d.Workers, "Number of files processed concurrently (0 = physical cores)")
	fs.StringVar(&f.configFile, "config", "", "TOML configuration file")

	// Publishing.
	fs.StringVar(&f.serve, "serve", "", `Destination base URLs as a JSON list, e.g. '["https://s1.example","https://s2.example"]'`)
	fs.StringVar(&f.publish, "output", "", "Copy or move finished job directories into this directory")
	fs.BoolVar(&f.copyOnPublish, "copy", d.CopyOnPublish, "Copy to --output (set --copy=false to move)")
	fs.StringVar(&f.catalogDir, "catalog-dir", d.CatalogDir, "Directory for server_N catalog files")
	fs.StringVar(&f.catalogFormat, "catalog-format", string(d.CatalogFormat), "Catalog format: json | yaml")

	// Encoding.
	fs.StringVar(&f.codec, "codec", string(d.TargetCodec), "Target video codec: av1 | hevc | h264")
	fs.StringVar(&f.hwQuality, "hw-quality", d.HWQuality, "Hardware encoder quality tier")
	fs.IntVar(&f.crf, "crf", d.CRF, "Software encoder CRF (0 = codec default)")
	fs.DurationVar(&f.timeout, "timeout", 0, "Kill any external process running longer than this (0 = no limit)")
	fs.StringVar(&f.ffmpeg, "ffmpeg", d.Tools.FFmpeg, "ffmpeg binary")
	fs.StringVar(&f.ffprobe, "ffprobe", d.Tools.FFprobe, "ffprobe binary")
	fs.StringVar(&f.hwEncoder, "hw-encoder", d.Tools.HWEncoder, "Hardware encoder binary (empty disables the hardware tier)")

	// Display.
	fs.StringVarP(&f.logFile, "log", "l", "", "Append logs to file")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "Verbose output")
	fs.BoolVar(&f.forceColor, "color", false, "Force colored logs")
	fs.BoolVar(&f.noColor, "no-color", false, "Disable colored logs")

	return f
}

// ConfigFile returns the --config value.
func (f *Flags) ConfigFile() string { return f.configFile }

// Apply copies every explicitly set flag onto cfg. A malformed --serve list
// is not fatal: cfg.Destinations is cleared and the ConfigParseFailure is
// returned for the caller to log.
func (f *Flags) Apply(cfg *Config) (warning error) {
	set := f.fs.Changed

	if set("input") {
		cfg.InputDir = NormalizeDirArg(f.input)
	}
	if set("time") {
		cfg.SegmentDuration = f.segment
	}
	if set("parallel") {
		cfg.Workers = f.workers
	}
	if set("config") {
		cfg.ConfigFile = f.configFile
	}
	if set("output") {
		cfg.PublishDir = NormalizeDirArg(f.publish)
	}
	if set("copy") {
		cfg.CopyOnPublish = f.copyOnPublish
	}
	if set("catalog-dir") {
		cfg.CatalogDir = f.catalogDir
	}
	if set("catalog-format") {
		cfg.CatalogFormat = CatalogFormat(strings.ToLower(f.catalogFormat))
	}
	if set("codec") {
		cfg.TargetCodec = Codec(strings.ToLower(f.codec))
	}
	if set("hw-quality") {
		cfg.HWQuality = f.hwQuality
	}
	if set("crf") {
		cfg.CRF = f.crf
	}
	if set("timeout") {
		cfg.ProcessTimeout = f.timeout
	}
	if set("ffmpeg") {
		cfg.Tools.FFmpeg = f.ffmpeg
	}
	if set("ffprobe") {
		cfg.Tools.FFprobe = f.ffprobe
	}
	if set("hw-encoder") {
		cfg.Tools.HWEncoder = f.hwEncoder
	}
	if set("log") {
		cfg.LogFile = f.logFile
	}
	if set("verbose") {
		cfg.Verbose = f.verbose
	}
	if f.noColor {
		cfg.ColorMode = ColorNever
	} else if f.forceColor {
		cfg.ColorMode = ColorAlways
	}

	if set("serve") {
		dests, err := ParseDestinations(f.serve)
		cfg.Destinations = dests
		if err != nil {
			return err
		}
	}
	return nil
}
