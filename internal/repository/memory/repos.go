package memory

import (
	"cmp"
	"context"
	"maps"
	"slices"
	"time"

	"fieldcase/internal/models"
)

type userRepo struct{ st conn }

func (r *userRepo) GetByID(_ context.Context, id uint) (*models.User, error) {
	d := r.st.lock()
	defer r.st.unlock()
	u, ok := d.users[id]
	if !ok {
		return nil, models.NewNotFoundError("User", id)
	}
	return &u, nil
}

func (r *userRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	email = models.NormalizeEmail(email)
	d := r.st.lock()
	defer r.st.unlock()
	for _, u := range d.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, nil
}

func (r *userRepo) GetByUsername(_ context.Context, username string) (*models.User, error) {
	d := r.st.lock()
	defer r.st.unlock()
	for _, u := range d.users {
		if u.Username == username {
			return &u, nil
		}
	}
	return nil, nil
}

func (r *userRepo) Create(_ context.Context, user *models.User) error {
	user.Email = models.NormalizeEmail(user.Email)
	d := r.st.lock()
	defer r.st.unlock()
	for _, u := range d.users {
		if u.Username == user.Username || u.Email == user.Email {
			return models.NewConflictError("username or email already in use")
		}
	}
	now := r.st.now()
	user.ID = d.allocID()
	user.CreatedAt, user.UpdatedAt = now, now
	d.users[user.ID] = *user
	return nil
}

func (r *userRepo) UpdateProfile(_ context.Context, id uint, displayName, email string) error {
	email = models.NormalizeEmail(email)
	d := r.st.lock()
	defer r.st.unlock()
	u, ok := d.users[id]
	if !ok {
		return models.NewNotFoundError("User", id)
	}
	for _, other := range d.users {
		if other.ID != id && other.Email == email {
			return models.NewConflictError("email already in use")
		}
	}
	u.DisplayName, u.Email, u.UpdatedAt = displayName, email, r.st.now()
	d.users[id] = u
	return nil
}

type projectRepo struct{ st conn }

func (r *projectRepo) GetByID(_ context.Context, id uint) (*models.Project, error) {
	d := r.st.lock()
	defer r.st.unlock()
	p, ok := d.projects[id]
	if !ok {
		return nil, models.NewNotFoundError("Project", id)
	}
	return &p, nil
}

func (r *projectRepo) ListForUser(_ context.Context, userID uint, includeArchived bool) ([]models.Project, error) {
	d := r.st.lock()
	defer r.st.unlock()
	out := []models.Project{}
	for key, c := range d.collaborators {
		if key.userID != userID {
			continue
		}
		p, ok := d.projects[key.projectID]
		if !ok || (p.Archived && !includeArchived) {
			continue
		}
		p.CallerRole = c.Role
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b models.Project) int {
		if c := b.UpdatedAt.Compare(a.UpdatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	return out, nil
}

func (r *projectRepo) Create(_ context.Context, project *models.Project) error {
	d := r.st.lock()
	defer r.st.unlock()
	if _, ok := d.users[project.OwnerID]; !ok {
		return models.NewInternalError(errForeignKey("projects.owner_id"))
	}
	now := r.st.now()
	project.ID = d.allocID()
	project.CreatedAt, project.UpdatedAt = now, now
	row := *project
	row.Owner, row.CallerRole = nil, models.RoleNone
	d.projects[row.ID] = row
	return nil
}

func (r *projectRepo) Update(_ context.Context, project *models.Project) error {
	d := r.st.lock()
	defer r.st.unlock()
	row, ok := d.projects[project.ID]
	if !ok {
		return models.NewNotFoundError("Project", project.ID)
	}
	row.Title, row.Description = project.Title, project.Description
	row.Archived, row.ArchivedAt = project.Archived, project.ArchivedAt
	row.UpdatedAt = r.st.now()
	project.UpdatedAt = row.UpdatedAt
	d.projects[row.ID] = row
	return nil
}

func (r *projectRepo) Delete(_ context.Context, id uint) error {
	d := r.st.lock()
	defer r.st.unlock()
	if _, ok := d.projects[id]; !ok {
		return models.NewNotFoundError("Project", id)
	}
	for _, e := range d.entries {
		if e.ProjectID == id {
			return models.NewInternalError(errForeignKey("entries.project_id"))
		}
	}
	for key := range d.collaborators {
		if key.projectID == id {
			return models.NewInternalError(errForeignKey("project_collaborators.project_id"))
		}
	}
	for _, inv := range d.invitations {
		if inv.ProjectID == id {
			return models.NewInternalError(errForeignKey("project_invitations.project_id"))
		}
	}
	delete(d.projects, id)
	return nil
}

type collabRepo struct{ st conn }

func (r *collabRepo) Get(_ context.Context, projectID, userID uint) (*models.ProjectCollaborator, error) {
	d := r.st.lock()
	defer r.st.unlock()
	c, ok := d.collaborators[collabKey{projectID, userID}]
	if !ok {
		return nil, models.NewNotFoundError("Collaborator", userID)
	}
	return &c, nil
}

func (r *collabRepo) List(_ context.Context, projectID uint) ([]models.ProjectCollaborator, error) {
	d := r.st.lock()
	defer r.st.unlock()
	out := []models.ProjectCollaborator{}
	for key, c := range d.collaborators {
		if key.projectID != projectID {
			continue
		}
		if u, ok := d.users[key.userID]; ok {
			c.User = &u
		}
		out = append(out, c)
	}
	slices.SortFunc(out, func(a, b models.ProjectCollaborator) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.UserID, b.UserID)
	})
	return out, nil
}

func (r *collabRepo) Create(_ context.Context, collab *models.ProjectCollaborator) error {
	d := r.st.lock()
	defer r.st.unlock()
	key := collabKey{collab.ProjectID, collab.UserID}
	if _, exists := d.collaborators[key]; exists {
		return models.NewConflictError("user is already a collaborator on this project")
	}
	if _, ok := d.projects[collab.ProjectID]; !ok {
		return models.NewInternalError(errForeignKey("project_collaborators.project_id"))
	}
	if _, ok := d.users[collab.UserID]; !ok {
		return models.NewInternalError(errForeignKey("project_collaborators.user_id"))
	}
	now := r.st.now()
	collab.CreatedAt, collab.UpdatedAt = now, now
	row := *collab
	row.Project, row.User = nil, nil
	d.collaborators[key] = row
	return nil
}

func (r *collabRepo) UpdateRole(_ context.Context, projectID, userID uint, role models.Role) error {
	d := r.st.lock()
	defer r.st.unlock()
	key := collabKey{projectID, userID}
	c, ok := d.collaborators[key]
	if !ok {
		return models.NewNotFoundError("Collaborator", userID)
	}
	c.Role, c.UpdatedAt = role, r.st.now()
	d.collaborators[key] = c
	return nil
}

func (r *collabRepo) Delete(_ context.Context, projectID, userID uint) error {
	d := r.st.lock()
	defer r.st.unlock()
	key := collabKey{projectID, userID}
	if _, ok := d.collaborators[key]; !ok {
		return models.NewNotFoundError("Collaborator", userID)
	}
	delete(d.collaborators, key)
	return nil
}

func (r *collabRepo) DeleteByProject(_ context.Context, projectID uint) error {
	d := r.st.lock()
	defer r.st.unlock()
	maps.DeleteFunc(d.collaborators, func(k collabKey, _ models.ProjectCollaborator) bool {
		return k.projectID == projectID
	})
	return nil
}

type entryRepo struct{ st conn }

func (r *entryRepo) GetByID(_ context.Context, projectID, id uint) (*models.Entry, error) {
	d := r.st.lock()
	defer r.st.unlock()
	e, ok := d.entries[id]
	if !ok || e.ProjectID != projectID {
		return nil, models.NewNotFoundError("Entry", id)
	}
	if u, ok := d.users[e.CreatedByID]; ok {
		e.CreatedBy = &u
	}
	return &e, nil
}

func (r *entryRepo) ListByProject(_ context.Context, projectID uint, tag string) ([]models.Entry, error) {
	d := r.st.lock()
	defer r.st.unlock()
	out := []models.Entry{}
	for _, e := range d.entries {
		if e.ProjectID != projectID || (tag != "" && !slices.Contains(e.Tags, tag)) {
			continue
		}
		if u, ok := d.users[e.CreatedByID]; ok {
			e.CreatedBy = &u
		}
		out = append(out, e)
	}
	slices.SortFunc(out, func(a, b models.Entry) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	return out, nil
}

func (r *entryRepo) Create(_ context.Context, entry *models.Entry) error {
	d := r.st.lock()
	defer r.st.unlock()
	if _, ok := d.projects[entry.ProjectID]; !ok {
		return models.NewInternalError(errForeignKey("entries.project_id"))
	}
	now := r.st.now()
	entry.ID = d.allocID()
	entry.CreatedAt, entry.UpdatedAt = now, now
	d.entries[entry.ID] = storedEntry(*entry)
	return nil
}

func (r *entryRepo) Update(_ context.Context, entry *models.Entry) error {
	d := r.st.lock()
	defer r.st.unlock()
	row, ok := d.entries[entry.ID]
	if !ok || row.ProjectID != entry.ProjectID {
		return models.NewNotFoundError("Entry", entry.ID)
	}
	entry.UpdatedAt = r.st.now()
	entry.CreatedAt, entry.CreatedByID = row.CreatedAt, row.CreatedByID
	d.entries[entry.ID] = storedEntry(*entry)
	return nil
}

func (r *entryRepo) Delete(_ context.Context, projectID, id uint) error {
	d := r.st.lock()
	defer r.st.unlock()
	e, ok := d.entries[id]
	if !ok || e.ProjectID != projectID {
		return models.NewNotFoundError("Entry", id)
	}
	delete(d.entries, id)
	return nil
}

func (r *entryRepo) DeleteByProject(_ context.Context, projectID uint) error {
	d := r.st.lock()
	defer r.st.unlock()
	maps.DeleteFunc(d.entries, func(_ uint, e models.Entry) bool { return e.ProjectID == projectID })
	return nil
}

// storedEntry strips associations and computed fields and copies slices so
// callers cannot mutate stored rows.
func storedEntry(e models.Entry) models.Entry {
	e.Project, e.CreatedBy = nil, nil
	e.ImageURL, e.AudioURL = "", ""
	e.Tags = slices.Clone(e.Tags)
	e.Links = slices.Clone(e.Links)
	return e
}

type invitationRepo struct{ st conn }

func (r *invitationRepo) GetByID(_ context.Context, id uint) (*models.ProjectInvitation, error) {
	d := r.st.lock()
	defer r.st.unlock()
	inv, ok := d.invitations[id]
	if !ok {
		return nil, models.NewNotFoundError("Invitation", id)
	}
	return &inv, nil
}

func (r *invitationRepo) GetByToken(_ context.Context, token string) (*models.ProjectInvitation, error) {
	d := r.st.lock()
	defer r.st.unlock()
	for _, inv := range d.invitations {
		if inv.Token == token {
			return &inv, nil
		}
	}
	return nil, &models.AppError{Code: models.CodeNotFound, Message: "invitation not found"}
}

func (r *invitationRepo) FindPending(_ context.Context, projectID uint, email string) (*models.ProjectInvitation, error) {
	email = models.NormalizeEmail(email)
	d := r.st.lock()
	defer r.st.unlock()
	for _, inv := range d.invitations {
		if inv.ProjectID == projectID && inv.Email == email && inv.Status == models.InvitationStatusPending {
			return &inv, nil
		}
	}
	return nil, nil
}

func (r *invitationRepo) Create(_ context.Context, inv *models.ProjectInvitation) error {
	inv.Email = models.NormalizeEmail(inv.Email)
	if inv.Status == "" {
		inv.Status = models.InvitationStatusPending
	}
	d := r.st.lock()
	defer r.st.unlock()
	for _, other := range d.invitations {
		if other.Token == inv.Token {
			return models.NewConflictError("invitation token collision")
		}
		if inv.Status == models.InvitationStatusPending && other.Status == models.InvitationStatusPending &&
			other.ProjectID == inv.ProjectID && other.Email == inv.Email {
			return models.NewConflictError("a pending invitation already exists for this email")
		}
	}
	now := r.st.now()
	inv.ID = d.allocID()
	inv.CreatedAt, inv.UpdatedAt = now, now
	row := *inv
	row.Project, row.InvitedBy = nil, nil
	d.invitations[row.ID] = row
	return nil
}

func (r *invitationRepo) MarkAccepted(_ context.Context, id, userID uint, at time.Time) (bool, error) {
	return r.transition(id, func(inv *models.ProjectInvitation) {
		inv.Status = models.InvitationStatusAccepted
		inv.AcceptedAt = &at
		inv.AcceptedByID = &userID
	})
}

func (r *invitationRepo) MarkExpired(_ context.Context, id uint) (bool, error) {
	return r.transition(id, func(inv *models.ProjectInvitation) {
		inv.Status = models.InvitationStatusExpired
	})
}

// transition applies apply only while the row is still pending.
func (r *invitationRepo) transition(id uint, apply func(*models.ProjectInvitation)) (bool, error) {
	d := r.st.lock()
	defer r.st.unlock()
	inv, ok := d.invitations[id]
	if !ok || inv.Status != models.InvitationStatusPending {
		return false, nil
	}
	apply(&inv)
	inv.UpdatedAt = r.st.now()
	d.invitations[id] = inv
	return true, nil
}

func (r *invitationRepo) ListPendingByProject(_ context.Context, projectID uint, now time.Time) ([]models.ProjectInvitation, error) {
	return r.listPending(func(inv models.ProjectInvitation) bool { return inv.ProjectID == projectID }, now, false), nil
}

func (r *invitationRepo) ListPendingByEmail(_ context.Context, email string, now time.Time) ([]models.ProjectInvitation, error) {
	email = models.NormalizeEmail(email)
	return r.listPending(func(inv models.ProjectInvitation) bool { return inv.Email == email }, now, true), nil
}

func (r *invitationRepo) listPending(match func(models.ProjectInvitation) bool, now time.Time, withProject bool) []models.ProjectInvitation {
	d := r.st.lock()
	defer r.st.unlock()
	out := []models.ProjectInvitation{}
	for _, inv := range d.invitations {
		if !match(inv) || !inv.IsLive(now) {
			continue
		}
		if withProject {
			if p, ok := d.projects[inv.ProjectID]; ok {
				inv.Project = &p
			}
		}
		out = append(out, inv)
	}
	slices.SortFunc(out, func(a, b models.ProjectInvitation) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	return out
}

func (r *invitationRepo) DeletePending(_ context.Context, projectID, id uint) (bool, error) {
	d := r.st.lock()
	defer r.st.unlock()
	inv, ok := d.invitations[id]
	if !ok || inv.ProjectID != projectID || inv.Status != models.InvitationStatusPending {
		return false, nil
	}
	delete(d.invitations, id)
	return true, nil
}

func (r *invitationRepo) DeleteByProject(_ context.Context, projectID uint) error {
	d := r.st.lock()
	defer r.st.unlock()
	maps.DeleteFunc(d.invitations, func(_ uint, inv models.ProjectInvitation) bool { return inv.ProjectID == projectID })
	return nil
}
