package dash

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/backmassage/dashpack/internal/config"
	"github.com/backmassage/dashpack/internal/failure"
	"github.com/backmassage/dashpack/internal/logging"
	"github.com/backmassage/dashpack/internal/naming"
	"github.com/backmassage/dashpack/internal/testsupport"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "folder-qualified reference",
			in:   `<SegmentTemplate initialization="./clip/live/init_$RepresentationID$.m4s" media="./clip/live/chunk_$RepresentationID$_$Number$.m4s"/>`,
			want: `<SegmentTemplate initialization="live/init_$RepresentationID$.m4s" media="live/chunk_$RepresentationID$_$Number$.m4s"/>`,
		},
		{
			name: "dot-relative without folder",
			in:   `<SegmentTemplate initialization="./live/init_0.m4s"/>`,
			want: `<SegmentTemplate initialization="live/init_0.m4s"/>`,
		},
		{
			name: "absolute windows path",
			in:   `<SegmentTemplate media="C:\media\in\clip\live\chunk_0_$Number$.m4s"/>`,
			want: `<SegmentTemplate media="live/chunk_0_$Number$.m4s"/>`,
		},
		{
			name: "absolute unix path",
			in:   `<SegmentTemplate media="/srv/in/clip/live/chunk_0_$Number$.m4s"/>`,
			want: `<SegmentTemplate media="live/chunk_0_$Number$.m4s"/>`,
		},
		{
			name: "single quotes",
			in:   `<SegmentTemplate media='./clip/live/chunk.m4s'/>`,
			want: `<SegmentTemplate media='live/chunk.m4s'/>`,
		},
		{
			name: "nested segment root keeps first component",
			in:   `<BaseURL x="a/live/b/live/c"/>`,
			want: `<BaseURL x="live/b/live/c"/>`,
		},
		{
			name: "lookalike folder untouched",
			in:   `<SegmentTemplate media="./clip/olive/chunk.m4s"/>`,
			want: `<SegmentTemplate media="./clip/olive/chunk.m4s"/>`,
		},
		{
			name: "no references",
			in:   `<MPD xmlns="urn:mpeg:dash:schema:mpd:2011"><Period id="0"/></MPD>`,
			want: `<MPD xmlns="urn:mpeg:dash:schema:mpd:2011"><Period id="0"/></MPD>`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			once := Normalize(tt.in, naming.SegmentRoot)
			assert.Equal(t, tt.want, once)
			assert.Equal(t, once, Normalize(once, naming.SegmentRoot), "normalizing twice must change nothing")
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	in := testsupport.Manifest("./clip/live")
	once := Normalize(in, naming.SegmentRoot)
	assert.Equal(t, once, Normalize(once, naming.SegmentRoot))
	assert.Equal(t, testsupport.Manifest("live"), once)
	assert.NotContains(t, once, "./clip")
}

func TestNormalizeDoesNotSpanAttributes(t *testing.T) {
	in := `<S t="0" d="1" />
</SegmentTimeline>
<BaseURL>http://cdn/live/</BaseURL>
<Rep id="0" media="./x/live/c.m4s">`
	out := Normalize(in, naming.SegmentRoot)
	assert.Contains(t, out, `<BaseURL>http://cdn/live/</BaseURL>`)
	assert.Contains(t, out, `media="live/c.m4s"`)
}

func TestNormalizeFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "main.mpd")
	require.NoError(t, os.WriteFile(path, []byte(testsupport.Manifest("./clip/live")), 0o640))

	changed, err := NormalizeFile(path, naming.SegmentRoot)
	require.NoError(t, err)
	assert.True(t, changed)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, testsupport.Manifest("live"), string(got))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o640), info.Mode().Perm())
}

func TestNormalizeFileUnchangedIsNotWritten(t *testing.T) {
	path := filepath.Join(t.TempDir(), "main.mpd")
	require.NoError(t, os.WriteFile(path, []byte(testsupport.Manifest("live")), 0o644))
	old := time.Now().Add(-time.Hour).Truncate(time.Second)
	require.NoError(t, os.Chtimes(path, old, old))

	changed, err := NormalizeFile(path, naming.SegmentRoot)
	require.NoError(t, err)
	assert.False(t, changed)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.True(t, info.ModTime().Equal(old), "file must not be rewritten")
}

func TestNormalizeFileMissing(t *testing.T) {
	_, err := NormalizeFile(filepath.Join(t.TempDir(), "nope.mpd"), naming.SegmentRoot)
	assert.ErrorIs(t, err, failure.IOFailure)
}

func packagerFixture(t *testing.T, m testsupport.Media) (*Packager, *testsupport.MediaRunner, string, naming.JobDirs) {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.SegmentDuration = 6
	runner := testsupport.NewMediaRunner().Set("clip.mp4", m)
	dirs := naming.Derive(filepath.Join(t.TempDir(), "clip.mp4"), cfg.TargetCodec)
	require.NoError(t, dirs.Ensure())
	input := dirs.EncodedFile("clip.mp4")
	require.NoError(t, os.WriteFile(input, []byte("encoded"), 0o644))
	return NewPackager(&cfg, runner), runner, input, dirs
}

func TestPackage(t *testing.T) {
	p, runner, input, dirs := packagerFixture(t, testsupport.DefaultMedia)

	manifest, err := p.Package(context.Background(), logging.Discard(), input, dirs)
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(manifest))
	assert.Equal(t, naming.ManifestName, filepath.Base(manifest))
	assert.FileExists(t, manifest)
	assert.FileExists(t, filepath.Join(dirs.Segments, "init_0.m4s"))

	calls := runner.Calls()
	require.Len(t, calls, 1)
	assert.True(t, testsupport.IsPackage(calls[0]))
	assert.Contains(t, strings.Join(calls[0].Args, " "), "-seg_duration 6")
}

func TestPackageFailureCarriesStderr(t *testing.T) {
	p, _, input, dirs := packagerFixture(t, testsupport.Media{Codec: "h264", VideoPackets: 1, PackageFails: true})

	_, err := p.Package(context.Background(), logging.Discard(), input, dirs)
	require.Error(t, err)
	assert.ErrorIs(t, err, failure.PackagingFailed)
	assert.ErrorIs(t, err, failure.ProcessExitFailure)

	var fe *failure.Error
	require.True(t, errors.As(err, &fe))
	assert.Contains(t, fe.Detail, "Could not write header")
}

func TestPackageSpawnFailure(t *testing.T) {
	p, runner, input, dirs := packagerFixture(t, testsupport.DefaultMedia)
	runner.MissingBinaries = []string{"ffmpeg"}

	_, err := p.Package(context.Background(), logging.Discard(), input, dirs)
	assert.ErrorIs(t, err, failure.PackagingFailed)
	assert.ErrorIs(t, err, failure.ProcessSpawnFailure)
}

func TestPackageInterrupted(t *testing.T) {
	p, _, input, dirs := packagerFixture(t, testsupport.DefaultMedia)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Package(ctx, logging.Discard(), input, dirs)
	assert.ErrorIs(t, err, failure.Interrupted)
}
