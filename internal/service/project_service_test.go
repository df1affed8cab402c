package service

import (
	"context"
	"strings"
	"testing"

	"fieldcase/internal/models"
	"fieldcase/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestProjectService_CreateProject(t *testing.T) {
	stores(t, func(t *testing.T, st repository.Store) {
		ctx := context.Background()
		svc := NewProjectService(st)
		owner := createUser(t, st, "owner")

		_, err := svc.CreateProject(ctx, CreateProjectInput{OwnerID: owner.ID, Title: "   "})
		assertValidationError(t, err)
		_, err = svc.CreateProject(ctx, CreateProjectInput{OwnerID: owner.ID, Title: strings.Repeat("x", 201)})
		assertValidationError(t, err)
		_, err = svc.CreateProject(ctx, CreateProjectInput{OwnerID: owner.ID, Title: "ok", Description: strings.Repeat("x", 5001)})
		assertValidationError(t, err)

		p, err := svc.CreateProject(ctx, CreateProjectInput{OwnerID: owner.ID, Title: "  Dockside fire  ", Description: "Started 2am"})
		require.NoError(t, err)
		assert.Equal(t, "Dockside fire", p.Title)
		assert.Equal(t, models.RoleOwner, p.CallerRole)

		row, err := st.Collaborators().Get(ctx, p.ID, owner.ID)
		require.NoError(t, err)
		assert.Equal(t, models.RoleOwner, row.Role)
	})
}

func TestProjectService_GetAndList(t *testing.T) {
	stores(t, func(t *testing.T, st repository.Store) {
		ctx := context.Background()
		svc := NewProjectService(st)
		owner := createUser(t, st, "owner")
		viewer := createUser(t, st, "viewer")
		stranger := createUser(t, st, "stranger")
		p := createProjectWith(t, st, owner, map[*models.User]models.Role{viewer: models.RoleViewer})

		got, err := svc.GetProject(ctx, p.ID, viewer.ID)
		require.NoError(t, err)
		assert.Equal(t, models.RoleViewer, got.CallerRole)

		_, err = svc.GetProject(ctx, p.ID, stranger.ID)
		assertCode(t, err, models.CodeForbidden)
		_, err = svc.GetProject(ctx, p.ID+100, stranger.ID)
		assertCode(t, err, models.CodeNotFound)

		list, err := svc.ListProjects(ctx, viewer.ID, false)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, models.RoleViewer, list[0].CallerRole)

		list, err = svc.ListProjects(ctx, stranger.ID, true)
		require.NoError(t, err)
		assert.Empty(t, list)
	})
}

func TestProjectService_UpdateProject(t *testing.T) {
	stores(t, func(t *testing.T, st repository.Store) {
		ctx := context.Background()
		svc := NewProjectService(st)
		owner := createUser(t, st, "owner")
		editor := createUser(t, st, "editor")
		p := createProjectWith(t, st, owner, map[*models.User]models.Role{editor: models.RoleEditor})

		_, err := svc.UpdateProject(ctx, UpdateProjectInput{ProjectID: p.ID, CallerID: editor.ID, Title: strPtr("Hijacked")})
		assertCode(t, err, models.CodeForbidden)

		_, err = svc.UpdateProject(ctx, UpdateProjectInput{ProjectID: p.ID, CallerID: owner.ID, Title: strPtr("")})
		assertValidationError(t, err)

		updated, err := svc.UpdateProject(ctx, UpdateProjectInput{ProjectID: p.ID, CallerID: owner.ID, Description: strPtr("New leads")})
		require.NoError(t, err)
		assert.Equal(t, p.Title, updated.Title)
		assert.Equal(t, "New leads", updated.Description)

		stored, err := st.Projects().GetByID(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, "New leads", stored.Description)
		assert.Equal(t, owner.ID, stored.OwnerID)
	})
}

func TestProjectService_ArchiveUnarchive(t *testing.T) {
	stores(t, func(t *testing.T, st repository.Store) {
		ctx := context.Background()
		svc := NewProjectService(st)
		owner := createUser(t, st, "owner")
		editor := createUser(t, st, "editor")
		p := createProjectWith(t, st, owner, map[*models.User]models.Role{editor: models.RoleEditor})

		_, err := svc.ArchiveProject(ctx, p.ID, editor.ID)
		assertCode(t, err, models.CodeForbidden)

		archived, err := svc.ArchiveProject(ctx, p.ID, owner.ID)
		require.NoError(t, err)
		assert.True(t, archived.Archived)
		require.NotNil(t, archived.ArchivedAt)

		list, err := svc.ListProjects(ctx, editor.ID, false)
		require.NoError(t, err)
		assert.Empty(t, list)
		list, err = svc.ListProjects(ctx, editor.ID, true)
		require.NoError(t, err)
		assert.Len(t, list, 1)

		restored, err := svc.UnarchiveProject(ctx, p.ID, owner.ID)
		require.NoError(t, err)
		assert.False(t, restored.Archived)
		assert.Nil(t, restored.ArchivedAt)
	})
}

func TestProjectService_DeleteProjectCascades(t *testing.T) {
	stores(t, func(t *testing.T, st repository.Store) {
		ctx := context.Background()
		svc := NewProjectService(st)
		invites := NewInvitationService(st, nil, 0)
		entries := NewEntryService(st, nil)

		owner := createUser(t, st, "owner")
		editor := createUser(t, st, "editor")
		p := createProjectWith(t, st, owner, map[*models.User]models.Role{editor: models.RoleEditor})

		_, err := entries.CreateEntry(ctx, CreateEntryInput{ProjectID: p.ID, UserID: editor.ID, Title: "Witness A"})
		require.NoError(t, err)
		_, err = invites.Issue(ctx, IssueInvitationInput{ProjectID: p.ID, InvitedByID: owner.ID, Email: "pending@example.com"})
		require.NoError(t, err)

		assertCode(t, svc.DeleteProject(ctx, p.ID, editor.ID), models.CodeForbidden)
		require.NoError(t, svc.DeleteProject(ctx, p.ID, owner.ID))

		_, err = st.Projects().GetByID(ctx, p.ID)
		assertCode(t, err, models.CodeNotFound)
		collabs, err := st.Collaborators().List(ctx, p.ID)
		require.NoError(t, err)
		assert.Empty(t, collabs)
		list, err := st.Entries().ListByProject(ctx, p.ID, "")
		require.NoError(t, err)
		assert.Empty(t, list)
		pending, err := st.Invitations().FindPending(ctx, p.ID, "pending@example.com")
		require.NoError(t, err)
		assert.Nil(t, pending)

		assertCode(t, svc.DeleteProject(ctx, p.ID, owner.ID), models.CodeNotFound)
	})
}
