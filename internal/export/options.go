// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package export implements the Export Pipeline collaborator: a snapshot
// of the LMS's users, courses, config, and database dump, packaged as a
// checksummed ZIP archive. The sync engine never depends on this package;
// it exists for operators who want a point-in-time export independent of
// a sync run.
package export

// Options configures one snapshot run.
type Options struct {
	// OutputDir is the directory the final archive (and any split parts)
	// are written to.
	OutputDir string
	// GzipSQLDump gzips the database/dump.sql component instead of
	// writing it plain.
	GzipSQLDump bool
	// CompressionLevel is the ZIP deflate level, [0,9]. 0 disables
	// compression for the container itself (components may still be
	// individually gzipped via GzipSQLDump).
	CompressionLevel int
	// SplitThresholdBytes splits any single archive member exceeding this
	// size into *.partNNN chunks with a *.split.json sidecar. Zero
	// disables splitting.
	SplitThresholdBytes int64
}

// DefaultOptions returns the snapshot defaults: deflate level 6, no SQL
// gzip, no splitting.
func DefaultOptions() Options {
	return Options{
		CompressionLevel: 6,
		GzipSQLDump:      false,
	}
}
