// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package idpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/linuxfoundation/lfx-v2-roster-sync-service/internal/domain/model"
	"github.com/linuxfoundation/lfx-v2-roster-sync-service/internal/domain/port"
	"github.com/linuxfoundation/lfx-v2-roster-sync-service/pkg/errors"
)

// Client implements port.IdPClient against the admin REST API described in
// the External Interfaces wire contract.
type Client struct {
	config     Config
	httpClient *http.Client
	tokens     *tokenCache
}

var _ port.IdPClient = (*Client)(nil)

// New creates an IdP client. Returns (nil, nil) in mock mode; callers are
// expected to substitute an in-memory test double in that case.
func New(cfg Config) (*Client, error) {
	if cfg.MockMode {
		return nil, nil
	}
	if cfg.BaseURL == "" || cfg.TokenURL == "" {
		return nil, fmt.Errorf("idp_url and idp token url are required")
	}

	tokens := newTokenCache(cfg)
	return &Client{
		config: cfg,
		tokens: tokens,
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: newTransport(tokens, cfg.MaxRetries),
		},
	}, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, out any) error {
	u := c.config.BaseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return fmt.Errorf("build idp request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		var authErr errors.AuthError
		if asAuthError(err, &authErr) {
			return authErr
		}
		return errors.NewRemoteError(0, "", "idp request failed", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read idp response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return mapStatus(ctx, resp.StatusCode, hint(respBody))
	}

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("decode idp response: %w", err)
		}
	}

	return nil
}

func asAuthError(err error, target *errors.AuthError) bool {
	ae, ok := err.(errors.AuthError)
	if ok {
		*target = ae
	}
	return ok
}

// ListUsers requests full (non-brief) user records, per §4.1's transport
// policy, so attributes.LDAP_ENTRY_DN and similar fields are populated.
func (c *Client) ListUsers(ctx context.Context, offset, max int) ([]model.IdPUser, error) {
	q := url.Values{
		"first":                {strconv.Itoa(offset)},
		"max":                  {strconv.Itoa(max)},
		"briefRepresentation":  {"false"},
	}
	var wire []wireUser
	if err := c.do(ctx, http.MethodGet, "/users", q, nil, &wire); err != nil {
		return nil, err
	}

	users := make([]model.IdPUser, 0, len(wire))
	for _, w := range wire {
		users = append(users, model.IdPUser{
			ID:         w.ID,
			Username:   w.Username,
			Email:      w.Email,
			Enabled:    w.Enabled,
			FirstName:  w.FirstName,
			LastName:   w.LastName,
			Attributes: w.Attributes,
		})
	}
	return users, nil
}

// ListGroupsFlat retrieves the full group tree and flattens it in pre-order.
func (c *Client) ListGroupsFlat(ctx context.Context) ([]model.IdPGroup, error) {
	pageSize := c.config.PageSize
	if pageSize <= 0 {
		pageSize = 100
	}
	var all []wireGroup
	for offset := 0; ; offset += pageSize {
		q := url.Values{"first": {strconv.Itoa(offset)}, "max": {strconv.Itoa(pageSize)}}
		var page []wireGroup
		if err := c.do(ctx, http.MethodGet, "/groups", q, nil, &page); err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < pageSize {
			break
		}
	}

	converted := make([]model.IdPGroup, 0, len(all))
	for _, g := range all {
		converted = append(converted, convertGroup(g))
	}
	return model.Flatten(converted), nil
}

func convertGroup(w wireGroup) model.IdPGroup {
	g := model.IdPGroup{ID: w.ID, Name: w.Name, Path: w.Path, ParentID: w.ParentID}
	for _, c := range w.SubGroups {
		g.SubGroups = append(g.SubGroups, convertGroup(c))
	}
	return g
}

// ListGroupMembers returns exactly max members starting at offset while
// more exist, requesting full (non-brief) member records.
func (c *Client) ListGroupMembers(ctx context.Context, groupID string, offset, max int) ([]model.IdPGroupMember, error) {
	q := url.Values{
		"first":               {strconv.Itoa(offset)},
		"max":                 {strconv.Itoa(max)},
		"briefRepresentation": {"false"},
	}
	var wire []wireMember
	path := fmt.Sprintf("/groups/%s/members", url.PathEscape(groupID))
	if err := c.do(ctx, http.MethodGet, path, q, nil, &wire); err != nil {
		return nil, err
	}

	members := make([]model.IdPGroupMember, 0, len(wire))
	for _, m := range wire {
		members = append(members, model.IdPGroupMember{ID: m.ID, Username: m.Username, Email: m.Email})
	}
	return members, nil
}

// AddUserToGroup grants the user membership in the group.
func (c *Client) AddUserToGroup(ctx context.Context, userID, groupID string) error {
	path := fmt.Sprintf("/users/%s/groups/%s", url.PathEscape(userID), url.PathEscape(groupID))
	return c.do(ctx, http.MethodPut, path, nil, nil, nil)
}

// RemoveUserFromGroup revokes the user's membership in the group.
func (c *Client) RemoveUserFromGroup(ctx context.Context, userID, groupID string) error {
	path := fmt.Sprintf("/users/%s/groups/%s", url.PathEscape(userID), url.PathEscape(groupID))
	return c.do(ctx, http.MethodDelete, path, nil, nil, nil)
}

// CreateUser creates a user and reads its opaque ID off the Location header.
func (c *Client) CreateUser(ctx context.Context, user model.IdPUser) (string, error) {
	body := wireUser{
		Username:   user.Username,
		Email:      user.Email,
		Enabled:    user.Enabled,
		FirstName:  user.FirstName,
		LastName:   user.LastName,
		Attributes: user.Attributes,
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/users", nil, body)
	if err != nil {
		return "", err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", errors.NewRemoteError(0, "", "idp create user request failed", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", mapStatus(ctx, resp.StatusCode, hint(respBody))
	}

	loc := resp.Header.Get("Location")
	if loc == "" {
		return "", errors.NewRemoteError(resp.StatusCode, "", "idp create user response missing Location header")
	}
	idx := lastSlash(loc)
	if idx < 0 {
		return "", errors.NewRemoteError(resp.StatusCode, loc, "idp create user Location header malformed")
	}
	return loc[idx+1:], nil
}

func lastSlash(s string) int {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '/' {
			return i
		}
	}
	return -1
}

// UpdateUser patches an existing user's mutable fields.
func (c *Client) UpdateUser(ctx context.Context, user model.IdPUser) error {
	body := wireUser{
		Username:   user.Username,
		Email:      user.Email,
		Enabled:    user.Enabled,
		FirstName:  user.FirstName,
		LastName:   user.LastName,
		Attributes: user.Attributes,
	}
	path := fmt.Sprintf("/users/%s", url.PathEscape(user.ID))
	return c.do(ctx, http.MethodPut, path, nil, body, nil)
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body any) (*http.Request, error) {
	u := c.config.BaseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	b, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode request body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// IsReady reports whether the IdP admin API is reachable.
func (c *Client) IsReady(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL, nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.NewRemoteError(0, "", "idp unreachable", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 500 {
		slog.Warn("idp readiness check degraded", "status", resp.StatusCode)
	}
	return nil
}
