// Package dash turns a transcoded file into a DASH presentation: the
// [Packager] drives ffmpeg's dash muxer, and [NormalizeFile] rewrites the
// segment references in the produced manifest so they resolve relative to
// the manifest itself, wherever the job folder is later served from.
package dash
