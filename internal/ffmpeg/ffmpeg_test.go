package ffmpeg

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/backmassage/dashpack/internal/config"
	"github.com/backmassage/dashpack/internal/failure"
	"github.com/backmassage/dashpack/internal/planner"
)

// --- builder tests ---

func TestProbeCodecArgs(t *testing.T) {
	cfg := config.DefaultConfig()
	cmd := ProbeCodec(&cfg, "/in/a.mp4")
	assert.Equal(t, "ffprobe", cmd.Name)
	assert.Equal(t, "/in/a.mp4", cmd.Args[len(cmd.Args)-1])
	assert.True(t, hasPair(cmd.Args, "-select_streams", "v:0"))
	assert.True(t, hasPair(cmd.Args, "-show_entries", "stream=codec_name"))
	assert.True(t, hasPair(cmd.Args, "-of", "json"))
}

func TestProbePacketsArgs(t *testing.T) {
	cfg := config.DefaultConfig()
	cmd := ProbePackets(&cfg, "/w/a.mp4", SelectAudio)
	assert.Contains(t, cmd.Args, "-count_packets")
	assert.True(t, hasPair(cmd.Args, "-select_streams", "a:0"))
	assert.True(t, hasPair(cmd.Args, "-show_entries", "stream=nb_read_packets"))
}

func TestHardwareEncodeArgs(t *testing.T) {
	cfg := config.DefaultConfig()
	prof, _ := planner.ProfileFor(config.CodecAV1)
	cmd := HardwareEncode(&cfg, prof, "/in/a.mp4", "/in/a/av1/a.mp4")
	assert.Equal(t, "QSVEncC64", cmd.Name)
	assert.Equal(t, []string{
		"--codec", "av1",
		"--input", "/in/a.mp4",
		"--output", "/in/a/av1/a.mp4",
		"--quality", "balanced",
		"--fallback-rc",
	}, cmd.Args)
}

func TestSoftwareEncodeArgs(t *testing.T) {
	cfg := config.DefaultConfig()
	prof, _ := planner.ProfileFor(config.CodecAV1)
	cmd := SoftwareEncode(&cfg, prof, "/in/a.mp4", "/out/a.mp4")
	assert.Equal(t, "ffmpeg", cmd.Name)
	assert.True(t, hasPair(cmd.Args, "-i", "/in/a.mp4"))
	assert.True(t, hasPair(cmd.Args, "-c:v", "libaom-av1"))
	assert.True(t, hasPair(cmd.Args, "-crf", "30"))
	assert.True(t, hasPair(cmd.Args, "-b:v", "0"))
	assert.True(t, hasPair(cmd.Args, "-c:a", "copy"))
	assert.Equal(t, "/out/a.mp4", cmd.Args[len(cmd.Args)-1])
	assert.True(t, hasPair(cmd.Args, "-loglevel", "error"))
}

func TestPackageArgs(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.SegmentDuration = 4
	cfg.Verbose = true
	cmd := Package(&cfg, "/in/a/av1/a.mp4", "live", "/in/a/main.mpd")

	assert.True(t, hasPair(cmd.Args, "-c", "copy"))
	assert.True(t, hasPair(cmd.Args, "-map", "0"))
	assert.True(t, hasPair(cmd.Args, "-f", "dash"))
	assert.True(t, hasPair(cmd.Args, "-seg_duration", "4"))
	assert.True(t, hasPair(cmd.Args, "-init_seg_name", "live/init_$RepresentationID$.m4s"))
	assert.True(t, hasPair(cmd.Args, "-media_seg_name", "live/chunk_$RepresentationID$_$Number$.m4s"))
	assert.True(t, hasPair(cmd.Args, "-loglevel", "info"))
	assert.Equal(t, "/in/a/main.mpd", cmd.Args[len(cmd.Args)-1])
}

func TestCommandString(t *testing.T) {
	cmd := Command{Name: "ffprobe", Args: []string{"-v", "error"}}
	assert.Equal(t, "ffprobe -v error", cmd.String())
}

// --- error helpers ---

func TestKindOf(t *testing.T) {
	assert.Equal(t, failure.Kind(""), KindOf(nil))
	assert.Equal(t, failure.ProcessSpawnFailure, KindOf(&SpawnError{Command: "x", Err: exec.ErrNotFound}))
	assert.Equal(t, failure.ProcessExitFailure, KindOf(&ExitError{Command: "x", Code: 1}))
	assert.Equal(t, failure.Interrupted, KindOf(&ExitError{Command: "x", Code: -1, Err: context.Canceled}))
}

func TestTailLines(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 30; i++ {
		b.WriteString("line\n")
	}
	b.WriteString("last error\n")
	got := TailLines(b.String(), 20)
	assert.Len(t, got, 20)
	assert.Equal(t, "last error", got[len(got)-1])

	assert.Nil(t, TailLines("   \n", 5))
	assert.Equal(t, []string{"a", "b"}, TailLines("a\r\n\nb", 5))
}

// --- ExecRunner tests (use small shell stubs, like the deps checks) ---

func TestExecRunnerSuccess(t *testing.T) {
	bin := stub(t, "ok", "echo '{\"streams\":[]}'\necho progress >&2\nexit 0")
	out, err := ExecRunner{}.Run(context.Background(), Command{Name: bin})
	require.NoError(t, err)
	assert.Equal(t, "{\"streams\":[]}\n", string(out.Stdout))
	assert.Equal(t, "progress\n", out.Stderr)
	assert.Equal(t, 0, out.ExitCode)
}

func TestExecRunnerExitFailure(t *testing.T) {
	bin := stub(t, "fail", "echo 'Unknown encoder' >&2\nexit 3")
	out, err := ExecRunner{}.Run(context.Background(), Command{Name: bin})

	var exitErr *ExitError
	require.True(t, errors.As(err, &exitErr), "err = %v", err)
	assert.Equal(t, 3, exitErr.Code)
	assert.Equal(t, 3, out.ExitCode)
	assert.Contains(t, exitErr.Stderr, "Unknown encoder")
	assert.Equal(t, failure.ProcessExitFailure, KindOf(err))
}

func TestExecRunnerSpawnFailure(t *testing.T) {
	_, err := ExecRunner{}.Run(context.Background(), Command{Name: "clearly-not-present-binary"})

	var spawnErr *SpawnError
	require.True(t, errors.As(err, &spawnErr), "err = %v", err)
	assert.True(t, errors.Is(err, exec.ErrNotFound))
	assert.Equal(t, failure.ProcessSpawnFailure, KindOf(err))
}

func TestExecRunnerTimeout(t *testing.T) {
	bin := stub(t, "hang", "exec sleep 10")
	start := time.Now()
	_, err := ExecRunner{Timeout: 200 * time.Millisecond}.Run(context.Background(), Command{Name: bin})

	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded), "err = %v", err)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func stub(t *testing.T, name, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell stubs need a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	return path
}

func hasPair(args []string, flag, value string) bool {
	i := slices.Index(args, flag)
	return i >= 0 && i+1 < len(args) && args[i+1] == value
}
