// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package port defines the capability interfaces the sync engine depends on.
// Concrete test doubles satisfy them with in-memory maps; production
// implementations bind to HTTP and the host's data-store API.
package port

import (
	"context"

	"github.com/linuxfoundation/lfx-v2-roster-sync-service/internal/domain/model"
)

// IdPClient is the polymorphic capability over the identity provider's
// admin API: token handling is internal to the implementation.
type IdPClient interface {
	// ListUsers returns exactly max users starting at offset while more
	// exist; a short page signals exhaustion.
	ListUsers(ctx context.Context, offset, max int) ([]model.IdPUser, error)

	// ListGroupsFlat retrieves the full group tree and returns it flattened
	// in pre-order: parent precedes children, siblings preserve server order.
	ListGroupsFlat(ctx context.Context) ([]model.IdPGroup, error)

	// ListGroupMembers returns exactly max members of a group starting at
	// offset while more exist.
	ListGroupMembers(ctx context.Context, groupID string, offset, max int) ([]model.IdPGroupMember, error)

	// AddUserToGroup grants the user membership in the group.
	AddUserToGroup(ctx context.Context, userID, groupID string) error

	// RemoveUserFromGroup revokes the user's membership in the group.
	RemoveUserFromGroup(ctx context.Context, userID, groupID string) error

	// CreateUser creates a user and returns its opaque ID.
	CreateUser(ctx context.Context, user model.IdPUser) (string, error)

	// UpdateUser patches an existing user's mutable fields.
	UpdateUser(ctx context.Context, user model.IdPUser) error
}
