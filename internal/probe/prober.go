package probe

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/backmassage/dashpack/internal/config"
	"github.com/backmassage/dashpack/internal/ffmpeg"
)

// Result is the parsed subset of an ffprobe JSON report.
type Result struct {
	Streams []Stream
}

// Stream holds the per-stream fields the probes request.
type Stream struct {
	Codec   string
	Packets int
}

// Codec returns the codec name of path's first video stream, lower-cased.
// An empty name with a nil error means ffprobe found no video stream.
func Codec(ctx context.Context, run ffmpeg.Runner, cfg *config.Config, path string) (string, error) {
	out, err := run.Run(ctx, ffmpeg.ProbeCodec(cfg, path))
	if err != nil {
		return "", err
	}
	res, err := ParseJSON(out.Stdout)
	if err != nil {
		return "", err
	}
	if len(res.Streams) == 0 {
		return "", nil
	}
	return strings.ToLower(res.Streams[0].Codec), nil
}

// PacketCount returns the number of readable packets in the stream chosen by
// selector (ffmpeg.SelectVideo, ffmpeg.SelectAudio). A file with no such
// stream counts as zero.
func PacketCount(ctx context.Context, run ffmpeg.Runner, cfg *config.Config, path, selector string) (int, error) {
	out, err := run.Run(ctx, ffmpeg.ProbePackets(cfg, path, selector))
	if err != nil {
		return 0, err
	}
	res, err := ParseJSON(out.Stdout)
	if err != nil {
		return 0, err
	}
	if len(res.Streams) == 0 {
		return 0, nil
	}
	return res.Streams[0].Packets, nil
}

// ParseJSON converts raw ffprobe JSON output into a Result.
// Exported for testing without a real ffprobe binary.
func ParseJSON(data []byte) (*Result, error) {
	var raw ffprobeOutput
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse ffprobe JSON: %w", err)
	}
	res := &Result{Streams: make([]Stream, 0, len(raw.Streams))}
	for _, s := range raw.Streams {
		res.Streams = append(res.Streams, Stream{
			Codec:   strings.TrimSpace(s.CodecName),
			Packets: parseInt(s.NbReadPackets),
		})
	}
	return res, nil
}

// --- ffprobe JSON wire types ---

type ffprobeOutput struct {
	Streams []ffprobeStream `json:"streams"`
}

type ffprobeStream struct {
	CodecName     string `json:"codec_name"`
	NbReadPackets string `json:"nb_read_packets"`
}

// ffprobe reports counters as strings; anything unparsable counts as zero.
func parseInt(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return 0
	}
	return n
}
