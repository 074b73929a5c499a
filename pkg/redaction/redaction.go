// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package redaction provides helpers for keeping personally identifiable
// information out of structured logs.
package redaction

import "strings"

// RedactEmail masks the local part of an email address, keeping the first
// character and the domain for debuggability without logging the full
// address: "alice@example.com" -> "a***@example.com".
func RedactEmail(email string) string {
	at := strings.IndexByte(email, '@')
	if at <= 0 {
		return "***"
	}
	return email[:1] + "***" + email[at:]
}

// RedactUsername masks all but the first two characters of a username.
func RedactUsername(username string) string {
	if len(username) <= 2 {
		return "***"
	}
	return username[:2] + "***"
}
