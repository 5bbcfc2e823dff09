// Package pipeline runs a batch: it discovers source files, hands each to a
// bounded pool of workers that carry the job through transcode, packaging,
// manifest normalization and optional relocation, and collects one terminal
// outcome per job.
//
// A failing job never affects its siblings. [Run] returns only after every
// job has finished, so callers can build catalogs from a complete batch.
package pipeline
