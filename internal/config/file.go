package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// fileConfig mirrors the TOML layout:
//
//	[paths]   input, publish, catalog_dir, log_file
//	[encode]  codec, segment_duration, workers, hw_quality, crf, process_timeout
//	[publish] copy
//	[catalog] destinations, format
//	[tools]   ffmpeg, ffprobe, hw_encoder
type fileConfig struct {
	Paths struct {
		Input      string `toml:"input"`
		Publish    string `toml:"publish"`
		CatalogDir string `toml:"catalog_dir"`
		LogFile    string `toml:"log_file"`
	} `toml:"paths"`
	Encode struct {
		Codec           string `toml:"codec"`
		SegmentDuration int    `toml:"segment_duration"`
		Workers         int    `toml:"workers"`
		HWQuality       string `toml:"hw_quality"`
		CRF             int    `toml:"crf"`
		ProcessTimeout  string `toml:"process_timeout"`
	} `toml:"encode"`
	Publish struct {
		Copy bool `toml:"copy"`
	} `toml:"publish"`
	Catalog struct {
		Destinations []string `toml:"destinations"`
		Format       string   `toml:"format"`
	} `toml:"catalog"`
	Tools Tools `toml:"tools"`
}

// LoadFile overlays the TOML file at path onto cfg. Keys absent from the file
// keep their current values; unknown keys are rejected so typos surface.
func LoadFile(path string, cfg *Config) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config %s: %w", path, err)
	}
	defer f.Close()

	fc := toFile(cfg)
	dec := toml.NewDecoder(f)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&fc); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return fmt.Errorf("config %s: %s", path, strict.String())
		}
		return fmt.Errorf("config %s: %w", path, err)
	}
	return fromFile(&fc, cfg)
}

func toFile(cfg *Config) fileConfig {
	var fc fileConfig
	fc.Paths.Input = cfg.InputDir
	fc.Paths.Publish = cfg.PublishDir
	fc.Paths.CatalogDir = cfg.CatalogDir
	fc.Paths.LogFile = cfg.LogFile
	fc.Encode.Codec = string(cfg.TargetCodec)
	fc.Encode.SegmentDuration = cfg.SegmentDuration
	fc.Encode.Workers = cfg.Workers
	fc.Encode.HWQuality = cfg.HWQuality
	fc.Encode.CRF = cfg.CRF
	if cfg.ProcessTimeout > 0 {
		fc.Encode.ProcessTimeout = cfg.ProcessTimeout.String()
	}
	fc.Publish.Copy = cfg.CopyOnPublish
	fc.Catalog.Destinations = cfg.Destinations
	fc.Catalog.Format = string(cfg.CatalogFormat)
	fc.Tools = cfg.Tools
	return fc
}

func fromFile(fc *fileConfig, cfg *Config) error {
	cfg.InputDir = NormalizeDirArg(fc.Paths.Input)
	cfg.PublishDir = NormalizeDirArg(fc.Paths.Publish)
	cfg.CatalogDir = fc.Paths.CatalogDir
	cfg.LogFile = fc.Paths.LogFile
	cfg.TargetCodec = Codec(fc.Encode.Codec)
	cfg.SegmentDuration = fc.Encode.SegmentDuration
	cfg.Workers = fc.Encode.Workers
	cfg.HWQuality = fc.Encode.HWQuality
	cfg.CRF = fc.Encode.CRF
	cfg.ProcessTimeout = 0
	if fc.Encode.ProcessTimeout != "" {
		d, err := time.ParseDuration(fc.Encode.ProcessTimeout)
		if err != nil {
			return fmt.Errorf("encode.process_timeout: %w", err)
		}
		cfg.ProcessTimeout = d
	}
	cfg.CopyOnPublish = fc.Publish.Copy
	cfg.Destinations = cleanDestinations(fc.Catalog.Destinations)
	cfg.CatalogFormat = CatalogFormat(fc.Catalog.Format)
	cfg.Tools = fc.Tools
	return nil
}
