// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package model

// ReportManifest lists the artifacts an Export Pipeline run produced for a
// job, referenced by the job row's report_id. Unlike the job's own
// error_details/log_entries (JSON, meant to be read directly off the row),
// the manifest is machine-read only, so the store is free to pick a more
// compact wire encoding for it.
type ReportManifest struct {
	Files []ReportFile `msgpack:"files"`
}

// ReportFile describes one artifact within a report manifest.
type ReportFile struct {
	Name   string `msgpack:"name"`
	Bytes  int64  `msgpack:"bytes"`
	SHA256 string `msgpack:"sha256"`
}
