// Package testsupport provides fakes shared by package tests: a scripted
// media toolchain that stands in for ffprobe, ffmpeg and the hardware
// encoder.
package testsupport

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/backmassage/dashpack/internal/ffmpeg"
)

// Media scripts how the fake toolchain treats one file, keyed by base name.
// The same base name covers the source, the encoded copy and the package
// input, since the pipeline keeps file names across stages.
type Media struct {
	// Codec reported by the codec probe. Empty makes the probe report no
	// video stream.
	Codec string

	VideoPackets int
	AudioPackets int

	// BadAudioProbe makes the audio packet probe exit non-zero.
	BadAudioProbe bool

	HardwareFails bool
	SoftwareFails bool
	// EmptyEncode makes encoders exit cleanly but produce a file with zero
	// video packets.
	EmptyEncode  bool
	PackageFails bool
}

// DefaultMedia is a healthy h264 source.
var DefaultMedia = Media{Codec: "h264", VideoPackets: 240, AudioPackets: 180}

// MediaRunner is an ffmpeg.Runner that simulates the external tools against
// the real filesystem: encoders create their output file and the segmenter
// writes a manifest plus segments.
type MediaRunner struct {
	FFmpeg    string
	FFprobe   string
	HWEncoder string

	// Media overrides per base name; anything else uses Default.
	Media   map[string]Media
	Default Media

	// Delay holds every call, which makes concurrency observable.
	Delay time.Duration
	// MissingBinaries lists tool names that fail to spawn.
	MissingBinaries []string

	mu        sync.Mutex
	calls     []ffmpeg.Command
	active    int
	maxActive int
	encoded   map[string]Media
}

// NewMediaRunner returns a runner using the default tool names.
func NewMediaRunner() *MediaRunner {
	return &MediaRunner{
		FFmpeg:    "ffmpeg",
		FFprobe:   "ffprobe",
		HWEncoder: "QSVEncC64",
		Media:     map[string]Media{},
		Default:   DefaultMedia,
	}
}

// Set scripts the behaviour for one base name and returns the runner.
func (r *MediaRunner) Set(name string, m Media) *MediaRunner {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Media[name] = m
	return r
}

// Calls returns a copy of every command run so far.
func (r *MediaRunner) Calls() []ffmpeg.Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.calls)
}

// CallsTo counts commands whose binary matches name.
func (r *MediaRunner) CallsTo(name string) int {
	n := 0
	for _, c := range r.Calls() {
		if c.Name == name {
			n++
		}
	}
	return n
}

// CallsMatching counts commands for which match returns true.
func (r *MediaRunner) CallsMatching(match func(ffmpeg.Command) bool) int {
	n := 0
	for _, c := range r.Calls() {
		if match(c) {
			n++
		}
	}
	return n
}

// MaxActive reports the largest number of calls that overlapped.
func (r *MediaRunner) MaxActive() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.maxActive
}

// Run implements ffmpeg.Runner.
func (r *MediaRunner) Run(ctx context.Context, cmd ffmpeg.Command) (ffmpeg.Output, error) {
	r.mu.Lock()
	r.calls = append(r.calls, cmd)
	r.active++
	if r.active > r.maxActive {
		r.maxActive = r.active
	}
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		r.active--
		r.mu.Unlock()
	}()

	if slices.Contains(r.MissingBinaries, cmd.Name) {
		return ffmpeg.Output{ExitCode: -1}, &ffmpeg.SpawnError{Command: cmd.Name, Err: exec.ErrNotFound}
	}

	if r.Delay > 0 {
		select {
		case <-time.After(r.Delay):
		case <-ctx.Done():
			return ffmpeg.Output{ExitCode: -1}, &ffmpeg.ExitError{Command: cmd.Name, Code: -1, Err: ctx.Err()}
		}
	}
	if err := ctx.Err(); err != nil {
		return ffmpeg.Output{ExitCode: -1}, &ffmpeg.ExitError{Command: cmd.Name, Code: -1, Err: err}
	}

	switch {
	case slices.Contains(cmd.Args, "-version"):
		return ffmpeg.Output{Stdout: []byte(cmd.Name + " version 7.1-fake\n")}, nil
	case cmd.Name == r.FFprobe:
		return r.probe(cmd)
	case cmd.Name == r.HWEncoder:
		return r.hardware(cmd)
	case cmd.Name == r.FFmpeg && IsPackage(cmd):
		return r.segment(cmd)
	case cmd.Name == r.FFmpeg && len(cmd.Args) > 0 && cmd.Args[len(cmd.Args)-1] == "-":
		// Null-muxer test encode.
		if r.Default.SoftwareFails {
			return fail(cmd, 1, "Unknown encoder")
		}
		return ffmpeg.Output{}, nil
	case cmd.Name == r.FFmpeg:
		return r.software(cmd)
	}
	return ffmpeg.Output{ExitCode: -1}, &ffmpeg.SpawnError{Command: cmd.Name, Err: exec.ErrNotFound}
}

func (r *MediaRunner) mediaFor(path string) Media {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.Media[filepath.Base(path)]; ok {
		return m
	}
	return r.Default
}

func (r *MediaRunner) probe(cmd ffmpeg.Command) (ffmpeg.Output, error) {
	path := cmd.Args[len(cmd.Args)-1]
	m := r.mediaFor(path)
	if _, err := os.Stat(path); err != nil {
		return fail(cmd, 1, path+": No such file or directory")
	}

	if !slices.Contains(cmd.Args, "-count_packets") {
		if m.Codec == "" {
			return json(`{"programs":[],"streams":[]}`), nil
		}
		return json(fmt.Sprintf(`{"programs":[],"streams":[{"codec_name":%q}]}`, m.Codec)), nil
	}

	if r.encodedEmpty(path) {
		return json(`{"programs":[],"streams":[{"nb_read_packets":"0"}]}`), nil
	}
	if argAfter(cmd.Args, "-select_streams") == ffmpeg.SelectAudio {
		if m.BadAudioProbe {
			return fail(cmd, 1, "Invalid data found when processing input")
		}
		if m.AudioPackets == 0 {
			return json(`{"programs":[],"streams":[]}`), nil
		}
		return json(fmt.Sprintf(`{"programs":[],"streams":[{"nb_read_packets":"%d"}]}`, m.AudioPackets)), nil
	}
	return json(fmt.Sprintf(`{"programs":[],"streams":[{"nb_read_packets":"%d"}]}`, m.VideoPackets)), nil
}

func (r *MediaRunner) hardware(cmd ffmpeg.Command) (ffmpeg.Output, error) {
	in, out := argAfter(cmd.Args, "--input"), argAfter(cmd.Args, "--output")
	m := r.mediaFor(in)
	if m.HardwareFails {
		return fail(cmd, 1, "Failed to initialize encoder: unsupported device")
	}
	return r.writeEncoded(cmd, out, m)
}

func (r *MediaRunner) software(cmd ffmpeg.Command) (ffmpeg.Output, error) {
	in, out := argAfter(cmd.Args, "-i"), cmd.Args[len(cmd.Args)-1]
	m := r.mediaFor(in)
	if m.SoftwareFails {
		return fail(cmd, 1, "Error while opening encoder for output stream #0:0")
	}
	return r.writeEncoded(cmd, out, m)
}

func (r *MediaRunner) writeEncoded(cmd ffmpeg.Command, out string, m Media) (ffmpeg.Output, error) {
	if err := os.WriteFile(out, []byte("encoded:"+cmd.Name), 0o644); err != nil {
		return fail(cmd, 1, err.Error())
	}
	if m.EmptyEncode {
		r.mu.Lock()
		if r.encoded == nil {
			r.encoded = map[string]Media{}
		}
		r.encoded[out] = m
		r.mu.Unlock()
	}
	return ffmpeg.Output{}, nil
}

func (r *MediaRunner) encodedEmpty(path string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.encoded[path]
	return ok
}

// segment writes a manifest that references its segments the way the dash
// muxer does when given a path-qualified segment name, so the normalizer has
// something to rewrite.
func (r *MediaRunner) segment(cmd ffmpeg.Command) (ffmpeg.Output, error) {
	in, manifest := argAfter(cmd.Args, "-i"), cmd.Args[len(cmd.Args)-1]
	m := r.mediaFor(in)
	if m.PackageFails {
		return fail(cmd, 1, "Could not write header for output file #0 (incorrect codec parameters ?)")
	}

	dir := filepath.Dir(manifest)
	stem := filepath.Base(dir)
	liveDir := filepath.Join(dir, "live")
	if err := os.MkdirAll(liveDir, 0o755); err != nil {
		return fail(cmd, 1, err.Error())
	}
	for _, seg := range []string{"init_0.m4s", "chunk_0_1.m4s", "chunk_0_2.m4s"} {
		if err := os.WriteFile(filepath.Join(liveDir, seg), []byte("seg"), 0o644); err != nil {
			return fail(cmd, 1, err.Error())
		}
	}
	if err := os.WriteFile(manifest, []byte(Manifest("./"+stem+"/live")), 0o644); err != nil {
		return fail(cmd, 1, err.Error())
	}
	return ffmpeg.Output{}, nil
}

// Manifest renders a small MPD whose segment references live under prefix.
func Manifest(prefix string) string {
	return `<?xml version="1.0" encoding="utf-8"?>
<MPD xmlns="urn:mpeg:dash:schema:mpd:2011" profiles="urn:mpeg:dash:profile:isoff-live:2011" type="static" mediaPresentationDuration="PT20.0S" minBufferTime="PT10.0S">
	<Period id="0" start="PT0.0S">
		<AdaptationSet id="0" contentType="video" startWithSAP="1" segmentAlignment="true" bitstreamSwitching="true">
			<Representation id="0" mimeType="video/mp4" codecs="av01.0.08M.08" bandwidth="2000000" width="1920" height="1080">
				<SegmentTemplate timescale="15360" initialization="` + prefix + `/init_$RepresentationID$.m4s" media="` + prefix + `/chunk_$RepresentationID$_$Number$.m4s" startNumber="1">
					<SegmentTimeline>
						<S t="0" d="153600" r="1" />
					</SegmentTimeline>
				</SegmentTemplate>
			</Representation>
		</AdaptationSet>
	</Period>
</MPD>
`
}

// IsPackage reports whether cmd is a dash segmenting run.
func IsPackage(cmd ffmpeg.Command) bool {
	return argAfter(cmd.Args, "-f") == "dash"
}

// IsSoftwareEncode reports whether cmd is an ffmpeg video encode.
func IsSoftwareEncode(cmd ffmpeg.Command) bool {
	return slices.Contains(cmd.Args, "-c:v")
}

// IsPacketProbe reports whether cmd is an ffprobe packet count.
func IsPacketProbe(cmd ffmpeg.Command) bool {
	return slices.Contains(cmd.Args, "-count_packets")
}

// InputOf returns the media path a command reads.
func InputOf(cmd ffmpeg.Command) string {
	if v := argAfter(cmd.Args, "--input"); v != "" {
		return v
	}
	if v := argAfter(cmd.Args, "-i"); v != "" {
		return v
	}
	if len(cmd.Args) == 0 {
		return ""
	}
	return cmd.Args[len(cmd.Args)-1]
}

func argAfter(args []string, flag string) string {
	i := slices.Index(args, flag)
	if i < 0 || i+1 >= len(args) {
		return ""
	}
	return args[i+1]
}

func json(body string) ffmpeg.Output {
	return ffmpeg.Output{Stdout: []byte(body + "\n")}
}

func fail(cmd ffmpeg.Command, code int, stderr string) (ffmpeg.Output, error) {
	stderr = strings.TrimSpace(stderr) + "\n"
	out := ffmpeg.Output{Stderr: stderr, ExitCode: code}
	return out, &ffmpeg.ExitError{Command: cmd.Name, Code: code, Stderr: stderr}
}
