// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package idpclient

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwt"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/linuxfoundation/lfx-v2-roster-sync-service/pkg/errors"
)

// expirySkew is how long before the real expiry the cache treats a token
// as stale, per §4.1: "now < expires_at - 30s".
const expirySkew = 30 * time.Second

// tokenCache holds {access_token, expires_at} and performs the OAuth2
// client-credentials exchange on miss or force refresh.
type tokenCache struct {
	mu         sync.RWMutex
	token      string
	expiresAt  time.Time
	oauthConf  *clientcredentials.Config
}

func newTokenCache(cfg Config) *tokenCache {
	return &tokenCache{
		oauthConf: &clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.TokenURL,
		},
	}
}

// GetAccessToken returns the cached token when now < expires_at - 30s,
// otherwise performs a fresh client-credentials exchange and replaces it.
// Fails with errors.AuthError on a non-2xx exchange or a missing access token.
func (c *tokenCache) GetAccessToken(ctx context.Context, force bool) (string, error) {
	if !force {
		c.mu.RLock()
		if c.token != "" && time.Now().Before(c.expiresAt.Add(-expirySkew)) {
			tok := c.token
			c.mu.RUnlock()
			return tok, nil
		}
		c.mu.RUnlock()
	}

	tok, err := c.oauthConf.Token(ctx)
	if err != nil {
		return "", errors.NewAuthError("oauth2 client-credentials exchange failed", err)
	}
	if tok.AccessToken == "" {
		return "", errors.NewAuthError("oauth2 token response missing access_token")
	}

	expiresAt := tok.Expiry
	if expiresAt.IsZero() {
		expiresAt = expiryFromJWT(tok.AccessToken)
	}

	c.mu.Lock()
	c.token = tok.AccessToken
	c.expiresAt = expiresAt
	c.mu.Unlock()

	slog.InfoContext(ctx, "idp token refreshed", "expires_at", expiresAt.Format(time.RFC3339))

	return tok.AccessToken, nil
}

// Invalidate clears the cached token, forcing the next GetAccessToken call
// to perform a fresh exchange regardless of the force flag.
func (c *tokenCache) Invalidate() {
	c.mu.Lock()
	c.token = ""
	c.expiresAt = time.Time{}
	c.mu.Unlock()
}

// expiryFromJWT reads the exp claim off an access token without verifying
// its signature — the token is bearer-opaque to this client, only its own
// issuer can validate it. Falls back to a conservative default TTL.
func expiryFromJWT(token string) time.Time {
	tok, err := jwt.ParseInsecure([]byte(token))
	if err != nil {
		return time.Now().Add(5 * time.Minute)
	}
	exp := tok.Expiration()
	if exp.IsZero() {
		return time.Now().Add(5 * time.Minute)
	}
	return exp
}
