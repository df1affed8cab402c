package access

import (
	"context"
	"testing"

	"fieldcase/internal/models"
	"fieldcase/internal/observability"
	"fieldcase/internal/repository/memory"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	st        *memory.Store
	projectID uint
	owner     uint
	editor    uint
	viewer    uint
	stranger  uint
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	ctx := context.Background()
	st := memory.New()

	mk := func(name string) uint {
		u := &models.User{Username: name, Email: name + "@example.com", Password: "h"}
		require.NoError(t, st.Users().Create(ctx, u))
		return u.ID
	}
	f := fixture{st: st, owner: mk("owner"), editor: mk("editor"), viewer: mk("viewer"), stranger: mk("stranger")}

	p := &models.Project{Title: "Canal murders", OwnerID: f.owner}
	require.NoError(t, st.Projects().Create(ctx, p))
	f.projectID = p.ID
	for uid, role := range map[uint]models.Role{f.owner: models.RoleOwner, f.editor: models.RoleEditor, f.viewer: models.RoleViewer} {
		require.NoError(t, st.Collaborators().Create(ctx, &models.ProjectCollaborator{ProjectID: p.ID, UserID: uid, Role: role}))
	}
	return f
}

func TestEvaluator_RoleOf(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ev := NewEvaluator(f.st)
	ctx := context.Background()

	tests := []struct {
		name string
		user uint
		want models.Role
	}{
		{"Owner", f.owner, models.RoleOwner},
		{"Editor", f.editor, models.RoleEditor},
		{"Viewer", f.viewer, models.RoleViewer},
		{"Stranger", f.stranger, models.RoleNone},
		{"Anonymous", 0, models.RoleNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			role, err := ev.RoleOf(ctx, f.projectID, tt.user)
			require.NoError(t, err)
			assert.Equal(t, tt.want, role)
		})
	}
}

func TestEvaluator_OwnerWithoutRowStillOwner(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.st.Collaborators().Delete(ctx, f.projectID, f.owner))

	role, err := NewEvaluator(f.st).RoleOf(ctx, f.projectID, f.owner)
	require.NoError(t, err)
	assert.Equal(t, models.RoleOwner, role)
}

func TestEvaluator_NotFoundBeforeForbidden(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ev := NewEvaluator(f.st)
	ctx := context.Background()

	_, _, err := ev.RequireAccess(ctx, 9999, f.stranger)
	assert.True(t, models.IsCode(err, models.CodeNotFound))

	_, err = ev.RequireOwner(ctx, 9999, f.owner)
	assert.True(t, models.IsCode(err, models.CodeNotFound))

	ok, err := ev.HasAccess(ctx, 9999, f.owner)
	assert.False(t, ok)
	assert.True(t, models.IsCode(err, models.CodeNotFound))
}

func TestEvaluator_RequireAccess(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ev := NewEvaluator(f.st)
	ctx := context.Background()

	p, role, err := ev.RequireAccess(ctx, f.projectID, f.viewer)
	require.NoError(t, err)
	assert.Equal(t, models.RoleViewer, role)
	assert.Equal(t, models.RoleViewer, p.CallerRole)

	before := testutil.ToFloat64(observability.AuthzDenials.WithLabelValues(ActionRead))
	_, _, err = ev.RequireAccess(ctx, f.projectID, f.stranger)
	assert.True(t, models.IsCode(err, models.CodeForbidden))
	assert.Equal(t, before+1, testutil.ToFloat64(observability.AuthzDenials.WithLabelValues(ActionRead)))
}

func TestEvaluator_RequireOwner(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ev := NewEvaluator(f.st)
	ctx := context.Background()

	_, err := ev.RequireOwner(ctx, f.projectID, f.owner)
	require.NoError(t, err)

	for _, uid := range []uint{f.editor, f.viewer, f.stranger} {
		_, err := ev.RequireOwner(ctx, f.projectID, uid)
		assert.True(t, models.IsCode(err, models.CodeForbidden), "user %d", uid)
	}
}

func TestEntryPermissions(t *testing.T) {
	t.Parallel()
	own := &models.Entry{CreatedByID: 7}
	other := &models.Entry{CreatedByID: 8}

	tests := []struct {
		name      string
		role      models.Role
		entry     *models.Entry
		canCreate bool
		canModify bool
	}{
		{"Owner on any entry", models.RoleOwner, other, true, true},
		{"Editor on own entry", models.RoleEditor, own, true, true},
		{"Editor on other entry", models.RoleEditor, other, true, false},
		{"Viewer on own entry", models.RoleViewer, own, false, true},
		{"Viewer on other entry", models.RoleViewer, other, false, false},
		{"No role on own entry", models.RoleNone, own, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.canCreate, CanCreateEntry(tt.role))
			assert.Equal(t, tt.canModify, CanModifyEntry(tt.role, tt.entry, 7))
			assert.Equal(t, tt.canCreate, RequireCreateEntry(tt.role) == nil)
			assert.Equal(t, tt.canModify, RequireModifyEntry(tt.role, tt.entry, 7) == nil)
		})
	}
}
