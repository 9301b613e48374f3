// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package service

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"inkpost/internal/apperr"
	"inkpost/internal/models"
)

// Auth error messages.
const (
	MsgInvalidCredentials = "Invalid credentials"
	MsgTokenInvalid       = "Token is not valid"
	MsgUserExists         = "User with this email or username already exists"
)

// RegisterInput is the body of a registration request.
type RegisterInput struct {
	Username  string `json:"username" validate:"required,min=3,max=20"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=6"`
	FirstName string `json:"firstName" validate:"required,min=2,max=30"`
	LastName  string `json:"lastName" validate:"required,min=2,max=30"`
	Bio       string `json:"bio" validate:"max=500"`
}

// LoginInput is the body of a login request.
// The email format is not checked here; a malformed address simply finds
// no account.
type LoginInput struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Session is the result of a successful register or login.
type Session struct {
	Token string
	User  *models.User
}

// Accounts registers users, checks credentials and resolves bearer tokens.
type Accounts struct {
	users  UserRepository
	tokens TokenIssuer
}

// NewAccounts creates an Accounts service.
func NewAccounts(users UserRepository, tokens TokenIssuer) *Accounts {
	return &Accounts{users: users, tokens: tokens}
}

// Register creates an account and returns a token for it. Emails are
// stored lowercased. A clash on email or username is a Conflict reported
// with status 400.
func (a *Accounts) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Bio = strings.TrimSpace(in.Bio)
	if err := check(in); err != nil {
		return nil, err
	}

	existing, err := a.users.FindByLogin(ctx, in.Email, in.Username)
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}
	if existing != nil {
		return nil, apperr.Duplicate(MsgUserExists).WithStatus(http.StatusBadRequest)
	}

	user, err := a.users.Create(ctx, &models.User{
		Username:  in.Username,
		Email:     in.Email,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Bio:       in.Bio,
		Role:      models.RoleUser,
	}, in.Password)
	if err != nil {
		// Lost a race with a concurrent registration.
		if apperr.Is(err, apperr.Conflict) {
			return nil, apperr.Wrap(apperr.Conflict, MsgUserExists, err).WithStatus(http.StatusBadRequest)
		}
		return nil, fmt.Errorf("register: %w", err)
	}

	return a.session(user)
}

// Login checks an email and password pair. Unknown email, wrong password
// and disabled accounts all fail the same way.
func (a *Accounts) Login(ctx context.Context, in LoginInput) (*Session, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := check(in); err != nil {
		return nil, err
	}

	user, err := a.users.FindByEmail(ctx, in.Email)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	if user == nil || !user.IsActive || !a.users.CheckPassword(user, in.Password) {
		return nil, apperr.Unauthorized(MsgInvalidCredentials)
	}
	return a.session(user)
}

// Resolve turns a raw bearer token into the user it was issued for. A
// token whose user no longer exists is rejected like a forged one.
func (a *Accounts) Resolve(ctx context.Context, raw string) (*models.User, error) {
	id, err := a.tokens.Verify(raw)
	if err != nil {
		return nil, apperr.Wrap(apperr.Unauthenticated, MsgTokenInvalid, err)
	}
	user, err := a.users.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("resolve token: %w", err)
	}
	if user == nil || !user.IsActive {
		return nil, apperr.Unauthorized(MsgTokenInvalid)
	}
	return user, nil
}

func (a *Accounts) session(user *models.User) (*Session, error) {
	tok, err := a.tokens.Issue(user.ID)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &Session{Token: tok, User: user}, nil
}
