// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package idpclient

import (
	"bytes"
	"io"
	"net/http"
	"time"

	"github.com/PuerkitoBio/rehttp"
)

// bearerRoundTripper injects the cached OAuth2 access token as a Bearer
// header and implements the §4.1 401 handling: on 401, the token is
// invalidated and the request retried exactly once; a second 401 is
// surfaced to the caller (which maps it to AuthError).
type bearerRoundTripper struct {
	cache *tokenCache
	next  http.RoundTripper
}

func (rt *bearerRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	var bodyBytes []byte
	if req.Body != nil {
		var err error
		bodyBytes, err = io.ReadAll(req.Body)
		if err != nil {
			return nil, err
		}
		req.Body = io.NopCloser(bytes.NewReader(bodyBytes))
	}

	token, err := rt.cache.GetAccessToken(req.Context(), false)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := rt.next.RoundTrip(req)
	if err != nil || resp.StatusCode != http.StatusUnauthorized {
		return resp, err
	}

	rt.cache.Invalidate()
	token, err = rt.cache.GetAccessToken(req.Context(), true)
	if err != nil {
		return nil, err
	}

	retryReq := req.Clone(req.Context())
	if bodyBytes != nil {
		retryReq.Body = io.NopCloser(bytes.NewReader(bodyBytes))
	}
	retryReq.Header.Set("Authorization", "Bearer "+token)

	return rt.next.RoundTrip(retryReq)
}

// newTransport builds the transport chain: a rehttp-based retrying
// transport for transient network/5xx errors, wrapped by the bearer
// auth/401-retry RoundTripper above.
func newTransport(cache *tokenCache, maxRetries int) http.RoundTripper {
	retrying := rehttp.NewTransport(
		http.DefaultTransport,
		rehttp.RetryAll(
			rehttp.RetryMaxRetries(maxRetries),
			rehttp.RetryAny(
				rehttp.RetryTemporaryErr(),
				rehttp.RetryStatuses(http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout),
			),
		),
		rehttp.ExpJitterDelay(200*time.Millisecond, 10*time.Second),
	)

	return &bearerRoundTripper{cache: cache, next: retrying}
}
