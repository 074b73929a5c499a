// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package idpclient

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/linuxfoundation/lfx-v2-roster-sync-service/pkg/errors"
)

// mapStatus maps a non-2xx IdP response to the §7 error kinds. 401 is
// handled by the transport's retry-once logic before a request ever
// reaches this function a second time, so a 401 observed here means the
// retry already happened and failed.
func mapStatus(ctx context.Context, status int, bodyHint string) error {
	switch status {
	case http.StatusUnauthorized:
		slog.WarnContext(ctx, "idp request unauthorized after retry", "status", status)
		return errors.NewAuthError("idp authentication failed after retry")
	default:
		slog.WarnContext(ctx, "idp request failed", "status", status)
		return errors.NewRemoteError(status, bodyHint, "idp returned non-2xx status")
	}
}

func hint(body []byte) string {
	const max = 256
	if len(body) > max {
		return string(body[:max])
	}
	return string(body)
}
