package naming

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/backmassage/dashpack/internal/config"
	"github.com/backmassage/dashpack/internal/failure"
)

// Fixed names inside a job root.
const (
	ManifestName = "main.mpd"
	SegmentRoot  = "live"
)

// JobDirs is the working-directory triple of one job.
type JobDirs struct {
	Root     string
	Encode   string
	Segments string
}

// Stem returns the source file name without its extension.
func Stem(source string) string {
	base := filepath.Base(source)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Derive returns the default layout for source when transcoding to codec.
func Derive(source string, codec config.Codec) JobDirs {
	return AtRoot(filepath.Join(filepath.Dir(source), Stem(source)), codec)
}

// AtRoot builds the layout under an explicit job root.
func AtRoot(root string, codec config.Codec) JobDirs {
	return JobDirs{
		Root:     root,
		Encode:   filepath.Join(root, string(codec)),
		Segments: filepath.Join(root, SegmentRoot),
	}
}

// Title is the job's output folder name, used in catalog entries.
func (d JobDirs) Title() string { return filepath.Base(d.Root) }

// Manifest is the absolute manifest path at the job root.
func (d JobDirs) Manifest() string { return filepath.Join(d.Root, ManifestName) }

// EncodedFile is where the transcode stage writes source's output.
func (d JobDirs) EncodedFile(source string) string {
	return filepath.Join(d.Encode, filepath.Base(source))
}

// Ensure creates all three directories.
func (d JobDirs) Ensure() error {
	for _, dir := range []string{d.Root, d.Encode, d.Segments} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return failure.New(failure.IOFailure, "create job directory", dir, err)
		}
	}
	return nil
}

// Layout hands out collision-free job layouts for one run.
type Layout struct {
	codec    config.Codec
	resolver *CollisionResolver
}

// NewLayout returns a Layout for the given target codec.
func NewLayout(codec config.Codec) *Layout {
	return &Layout{codec: codec, resolver: NewCollisionResolver()}
}

// For returns the layout of source. Titles are unique across the run: a
// source whose stem another source already claimed, in any directory, gets
// a " - dupN" root so published trees and catalog entries never collide.
// Safe for concurrent use.
func (l *Layout) For(source string) JobDirs {
	title := l.resolver.Resolve(source, Stem(source))
	return AtRoot(filepath.Join(filepath.Dir(source), title), l.codec)
}
