package ffmpeg

import (
	"strconv"

	"github.com/backmassage/dashpack/internal/config"
	"github.com/backmassage/dashpack/internal/planner"
)

// Segment name templates expanded by ffmpeg's dash muxer.
const (
	InitSegmentTemplate  = "init_$RepresentationID$.m4s"
	MediaSegmentTemplate = "chunk_$RepresentationID$_$Number$.m4s"
)

// Stream selectors for packet-count probes.
const (
	SelectVideo = "v:0"
	SelectAudio = "a:0"
)

// preamble is the shared ffmpeg prefix: no banner, never read stdin,
// overwrite outputs, errors only.
func preamble(cfg *config.Config) []string {
	level := "error"
	if cfg.Verbose {
		level = "info"
	}
	return []string{"-hide_banner", "-nostdin", "-y", "-loglevel", level}
}

// ProbeCodec asks ffprobe for the codec of the first video stream.
func ProbeCodec(cfg *config.Config, path string) Command {
	return Command{Name: cfg.Tools.FFprobe, Args: []string{
		"-v", "error",
		"-select_streams", SelectVideo,
		"-show_entries", "stream=codec_name",
		"-of", "json",
		path,
	}}
}

// ProbePackets asks ffprobe to count the readable packets of one stream.
func ProbePackets(cfg *config.Config, path, selector string) Command {
	return Command{Name: cfg.Tools.FFprobe, Args: []string{
		"-v", "error",
		"-select_streams", selector,
		"-count_packets",
		"-show_entries", "stream=nb_read_packets",
		"-of", "json",
		path,
	}}
}

// HardwareEncode builds the primary-tier transcode: the hardware encoder
// with its own multi-level rate-control fallback enabled.
func HardwareEncode(cfg *config.Config, prof planner.Profile, in, out string) Command {
	return Command{Name: cfg.Tools.HWEncoder, Args: []string{
		"--codec", prof.HWCodec,
		"--input", in,
		"--output", out,
		"--quality", cfg.HWQuality,
		"--fallback-rc",
	}}
}

// SoftwareEncode builds the fallback-tier transcode through ffmpeg. Audio is
// stream-copied.
func SoftwareEncode(cfg *config.Config, prof planner.Profile, in, out string) Command {
	args := preamble(cfg)
	args = append(args, "-i", in)
	args = append(args, prof.SoftwareVideoArgs(cfg.CRF)...)
	args = append(args, "-c:a", "copy", out)
	return Command{Name: cfg.Tools.FFmpeg, Args: args}
}

// Package builds the DASH segmenting command. Streams are copied, not
// re-encoded. Segment names are given relative to the manifest's directory,
// under segmentRoot, which is how the dash muxer resolves them.
func Package(cfg *config.Config, in, segmentRoot, manifestPath string) Command {
	args := preamble(cfg)
	args = append(args,
		"-i", in,
		"-c", "copy",
		"-map", "0",
		"-f", "dash",
		"-seg_duration", strconv.Itoa(cfg.SegmentDuration),
		"-use_template", "1",
		"-use_timeline", "1",
		"-dash_segment_type", "mp4",
		"-init_seg_name", segmentRoot+"/"+InitSegmentTemplate,
		"-media_seg_name", segmentRoot+"/"+MediaSegmentTemplate,
		manifestPath,
	)
	return Command{Name: cfg.Tools.FFmpeg, Args: args}
}

// Version builds "<bin> -version", used by diagnostics.
func Version(bin string) Command {
	return Command{Name: bin, Args: []string{"-version"}}
}

// TestEncode builds a tenth-of-a-second synthetic encode through the
// profile's software encoder, discarding the output.
func TestEncode(cfg *config.Config, prof planner.Profile) Command {
	args := []string{"-hide_banner", "-nostdin", "-loglevel", "error",
		"-f", "lavfi", "-i", "color=black:s=256x256:d=0.1"}
	args = append(args, prof.SoftwareVideoArgs(cfg.CRF)...)
	args = append(args, "-f", "null", "-")
	return Command{Name: cfg.Tools.FFmpeg, Args: args}
}
