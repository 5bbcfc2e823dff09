// Package naming derives the on-disk layout of a job from its source path.
//
// For a source <dir>/name.ext the job works in
//
//	<dir>/name/             job root, holds the manifest
//	<dir>/name/<codec>/     transcoded intermediate, same file name
//	<dir>/name/live/        DASH init and media segments
//
// The job root's base name is the job's title in the catalogs. Two sources
// with the same stem in the same directory are kept apart by the
// [CollisionResolver].
package naming
