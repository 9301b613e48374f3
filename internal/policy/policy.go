// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package policy decides whether an actor may perform an action. A nil
// actor is an anonymous caller. Reads of posts and categories are public
// and have no check here.
package policy

import (
	"github.com/google/uuid"

	"inkpost/internal/apperr"
	"inkpost/internal/models"
)

// Messages shared with the HTTP layer.
const (
	MsgNoToken       = "No token provided, authorization denied"
	MsgAdminRequired = "Access denied. Admin privileges required."
	MsgNotPostOwner  = "Not authorized to modify this post"
	MsgNotFileOwner  = "Not authorized to delete this file"
)

// CanMutatePost allows the post's author or any admin.
func CanMutatePost(actor *models.User, authorID uuid.UUID) error {
	if actor == nil {
		return apperr.Unauthorized(MsgNoToken)
	}
	if actor.ID != authorID && !actor.IsAdmin() {
		return apperr.Denied(MsgNotPostOwner)
	}
	return nil
}

// CanManageCategories allows admins only.
func CanManageCategories(actor *models.User) error {
	if actor == nil {
		return apperr.Unauthorized(MsgNoToken)
	}
	if !actor.IsAdmin() {
		return apperr.Denied(MsgAdminRequired)
	}
	return nil
}

// CanComment allows any authenticated user.
func CanComment(actor *models.User) error {
	if actor == nil {
		return apperr.Unauthorized(MsgNoToken)
	}
	return nil
}

// CanCreatePost allows any authenticated user.
func CanCreatePost(actor *models.User) error {
	return CanComment(actor)
}

// CanDeleteMedia allows the uploader or any admin.
func CanDeleteMedia(actor *models.User, uploaderID uuid.UUID) error {
	if actor == nil {
		return apperr.Unauthorized(MsgNoToken)
	}
	if actor.ID != uploaderID && !actor.IsAdmin() {
		return apperr.Denied(MsgNotFileOwner)
	}
	return nil
}
