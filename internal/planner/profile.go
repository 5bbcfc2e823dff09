// Package planner decides how a job's video is brought to the target codec:
// which codec name ffprobe reports for an already-conforming source, and the
// encoder settings for the hardware and software tiers.
package planner

import (
	"fmt"
	"strconv"

	"github.com/backmassage/dashpack/internal/config"
)

// Profile holds the encoder settings for one target codec.
type Profile struct {
	// Codec is the target codec; it also names the intermediate encode
	// directory under each job root.
	Codec config.Codec

	// ProbeNames lists the codec_name values ffprobe reports for streams
	// already in the target codec.
	ProbeNames []string

	// HWCodec is the hardware encoder's --codec value.
	HWCodec string

	// SWEncoder is the ffmpeg software encoder; SWArgs follow "-c:v <SWEncoder>".
	SWEncoder string
	SWArgs    []string

	// DefaultCRF is used when the config leaves CRF at 0.
	DefaultCRF int
}

var profiles = map[config.Codec]Profile{
	config.CodecAV1: {
		Codec:      config.CodecAV1,
		ProbeNames: []string{"av1"},
		HWCodec:    "av1",
		SWEncoder:  "libaom-av1",
		SWArgs:     []string{"-b:v", "0"},
		DefaultCRF: 30,
	},
	config.CodecHEVC: {
		Codec:      config.CodecHEVC,
		ProbeNames: []string{"hevc", "h265"},
		HWCodec:    "hevc",
		SWEncoder:  "libx265",
		SWArgs:     []string{"-preset", "medium"},
		DefaultCRF: 23,
	},
	config.CodecH264: {
		Codec:      config.CodecH264,
		ProbeNames: []string{"h264", "avc1"},
		HWCodec:    "h264",
		SWEncoder:  "libx264",
		SWArgs:     []string{"-preset", "medium"},
		DefaultCRF: 23,
	},
}

// ProfileFor returns the profile for codec.
func ProfileFor(codec config.Codec) (Profile, error) {
	p, ok := profiles[codec]
	if !ok {
		return Profile{}, fmt.Errorf("no encoder profile for codec %q", codec)
	}
	return p, nil
}

// Matches reports whether an ffprobe codec_name is already the target codec.
func (p Profile) Matches(codecName string) bool {
	for _, n := range p.ProbeNames {
		if n == codecName {
			return true
		}
	}
	return false
}

// SoftwareVideoArgs returns the video codec arguments for the software tier,
// using crf when positive and the profile default otherwise.
func (p Profile) SoftwareVideoArgs(crf int) []string {
	if crf <= 0 {
		crf = p.DefaultCRF
	}
	args := []string{"-c:v", p.SWEncoder, "-crf", strconv.Itoa(crf)}
	return append(args, p.SWArgs...)
}
