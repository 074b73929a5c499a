// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package jobstore

import (
	"github.com/akamensky/base58"
	"github.com/google/uuid"
)

// NewSyncID generates a new external-facing sync_id: a v4 UUID re-encoded
// as base58, giving a shorter, URL-safe, hyphen-free token.
func NewSyncID() string {
	id := uuid.New()
	return base58.Encode(id[:])
}
