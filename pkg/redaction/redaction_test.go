// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package redaction

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRedactEmail(t *testing.T) {
	assert.Equal(t, "a***@example.com", RedactEmail("alice@example.com"))
	assert.Equal(t, "***", RedactEmail("not-an-email"))
	assert.Equal(t, "***", RedactEmail("@example.com"))
}

func TestRedactUsername(t *testing.T) {
	assert.Equal(t, "al***", RedactUsername("alice"))
	assert.Equal(t, "***", RedactUsername("al"))
}
