// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models

import (
	"strconv"
	"time"
)

// User is a row of the users table.
type User struct {
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
	Username     string    `db:"username" json:"username"`
	PasswordHash string    `db:"password_hash" json:"-"`
	ID           int64     `db:"id" json:"id"`
}

// Key returns the id as the string key used by the navigation code store.
func (u *User) Key() string {
	return strconv.FormatInt(u.ID, 10)
}
