// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package models holds the database row types and their public projections.
package models

// PublicUser is the user shape exposed to the browser.
type PublicUser struct {
	Username string `json:"username"`
	ID       int64  `json:"id"`
}

// Public returns the browser-facing projection of u, or nil for a nil user.
func (u *User) Public() *PublicUser {
	if u == nil {
		return nil
	}
	return &PublicUser{ID: u.ID, Username: u.Username}
}
