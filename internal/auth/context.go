// Shoplytics - E-commerce Analytics Event Pipeline
// Copyright 2026 Alex Volkov (avolkov)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/avolkov/shoplytics

package auth

import "context"

// CurrentUser is the authenticated principal attached to a request.
type CurrentUser struct {
	ID       int64
	Username string
	IsAdmin  bool
}

type contextKey string

const userContextKey contextKey = "current_user"

// WithUser returns a context carrying the authenticated user.
func WithUser(ctx context.Context, user *CurrentUser) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// UserFromContext retrieves the authenticated user, if any.
func UserFromContext(ctx context.Context) (*CurrentUser, bool) {
	user, ok := ctx.Value(userContextKey).(*CurrentUser)
	return user, ok && user != nil
}
