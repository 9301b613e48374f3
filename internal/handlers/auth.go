// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"net/http"

	"inkpost/internal/httputil"
	"inkpost/internal/middleware"
	"inkpost/internal/policy"
	"inkpost/internal/service"
)

// Auth handles registration, login and the current-user endpoint.
type Auth struct {
	accounts *service.Accounts
}

// NewAuth creates a new Auth handler group.
func NewAuth(accounts *service.Accounts) *Auth {
	return &Auth{accounts: accounts}
}

// Register creates an account and returns a token for it.
func (a *Auth) Register(w http.ResponseWriter, r *http.Request) {
	var in service.RegisterInput
	if err := httputil.Decode(w, r, &in); err != nil {
		httputil.WriteErr(w, r, err)
		return
	}

	sess, err := a.accounts.Register(r.Context(), in)
	if err != nil {
		httputil.WriteErr(w, r, err)
		return
	}

	httputil.OK(w, http.StatusCreated, httputil.Fields{
		"token": sess.Token,
		"user":  sess.User.Profile(false),
	})
}

// Login exchanges an email and password for a token.
func (a *Auth) Login(w http.ResponseWriter, r *http.Request) {
	var in service.LoginInput
	if err := httputil.Decode(w, r, &in); err != nil {
		httputil.WriteErr(w, r, err)
		return
	}

	sess, err := a.accounts.Login(r.Context(), in)
	if err != nil {
		httputil.WriteErr(w, r, err)
		return
	}

	httputil.OK(w, http.StatusOK, httputil.Fields{
		"token": sess.Token,
		"user":  sess.User.Profile(false),
	})
}

// Me returns the authenticated user's profile, bio included.
func (a *Auth) Me(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromCtx(r.Context())
	if user == nil {
		httputil.Error(w, http.StatusUnauthorized, policy.MsgNoToken)
		return
	}
	httputil.OK(w, http.StatusOK, httputil.Fields{"user": user.Profile(true)})
}
