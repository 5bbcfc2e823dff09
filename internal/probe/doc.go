// Package probe asks ffprobe the two questions the pipeline needs answered:
// which codec a file's primary video stream uses, and how many packets a
// stream actually yields when read back.
//
// Both queries use a single JSON call (-of json) and go through an
// [ffmpeg.Runner], so they can be exercised without real binaries.
package probe
