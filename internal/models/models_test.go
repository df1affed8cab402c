package models

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in      string
		want    Role
		wantErr bool
	}{
		{"owner", RoleOwner, false},
		{"editor", RoleEditor, false},
		{"Viewer", RoleViewer, false},
		{" collaborator ", RoleEditor, false},
		{"admin", RoleNone, true},
		{"", RoleNone, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseRole(tt.in)
			if tt.wantErr {
				assert.True(t, IsCode(err, CodeValidation))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseGrantableRole(t *testing.T) {
	t.Parallel()

	role, err := ParseGrantableRole("")
	require.NoError(t, err)
	assert.Equal(t, RoleEditor, role)

	role, err = ParseGrantableRole("viewer")
	require.NoError(t, err)
	assert.Equal(t, RoleViewer, role)

	_, err = ParseGrantableRole("owner")
	assert.True(t, IsCode(err, CodeValidation))
}

func TestHTTPStatus(t *testing.T) {
	t.Parallel()
	tests := []struct {
		err  error
		want int
	}{
		{NewNotFoundError("Project", 1), http.StatusNotFound},
		{NewForbiddenError("no"), http.StatusForbidden},
		{NewEmailMismatchError("no"), http.StatusForbidden},
		{NewValidationError("bad"), http.StatusBadRequest},
		{NewConflictError("dup"), http.StatusConflict},
		{NewExpiredError("old"), http.StatusGone},
		{NewAlreadyUsedError("used"), http.StatusGone},
		{NewUnauthorizedError("who"), http.StatusUnauthorized},
		{NewInternalError(errors.New("boom")), http.StatusInternalServerError},
		{errors.New("plain"), http.StatusInternalServerError},
		{fmt.Errorf("wrapped: %w", NewConflictError("dup")), http.StatusConflict},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, HTTPStatus(tt.err), tt.err.Error())
	}
}

func TestEmailMatches(t *testing.T) {
	t.Parallel()
	assert.True(t, EmailMatches("Alice@Example.com ", "alice@example.com"))
	assert.False(t, EmailMatches("alice@example.com", "bob@example.com"))
	assert.Equal(t, "alice@example.com", NormalizeEmail("  ALICE@example.COM"))
}

func TestProjectInvitation_IsLive(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	inv := &ProjectInvitation{Status: InvitationStatusPending, ExpiresAt: now.Add(time.Hour)}
	assert.True(t, inv.IsLive(now))

	inv.ExpiresAt = now
	assert.False(t, inv.IsLive(now), "an invitation expiring exactly now is no longer live")

	inv.ExpiresAt = now.Add(time.Hour)
	inv.Status = InvitationStatusAccepted
	assert.False(t, inv.IsLive(now))
}
