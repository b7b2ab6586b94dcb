// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package appcontext_test

import (
	"testing"

	"codeberg.org/queit/queit/internal/appcontext"
	"codeberg.org/queit/queit/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestContext_GetUser(t *testing.T) {
	user := &models.User{ID: 123, Username: "testuser"}
	ctx := &appcontext.Context{User: user}

	result := ctx.GetUser()

	assert.Equal(t, user, result)
	assert.Equal(t, int64(123), result.ID)
}

func TestContext_GetUser_Nil(t *testing.T) {
	ctx := &appcontext.Context{User: nil}

	assert.Nil(t, ctx.GetUser())
}

func TestContext_IsAuthenticated(t *testing.T) {
	assert.True(t, (&appcontext.Context{User: &models.User{ID: 1}}).IsAuthenticated())
	assert.False(t, (&appcontext.Context{}).IsAuthenticated())
}

func TestContext_UserID(t *testing.T) {
	assert.Equal(t, "42", (&appcontext.Context{User: &models.User{ID: 42}}).UserID())
	assert.Empty(t, (&appcontext.Context{}).UserID())
}

func TestContext_DebounceKey(t *testing.T) {
	tests := []struct {
		name     string
		ctx      *appcontext.Context
		expected string
	}{
		{"client id wins", &appcontext.Context{ClientID: "abc", User: &models.User{ID: 7}}, "cid:abc"},
		{"falls back to user", &appcontext.Context{User: &models.User{ID: 7}}, "uid:7"},
		{"anonymous without cookie", &appcontext.Context{}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.ctx.DebounceKey())
		})
	}
}
