package service

import (
	"context"
	"strings"
	"time"

	"fieldcase/internal/access"
	"fieldcase/internal/models"
	"fieldcase/internal/repository"
)

// ProjectService provides project lifecycle logic.
type ProjectService struct {
	store repository.Store
	now   func() time.Time
}

type CreateProjectInput struct {
	OwnerID     uint
	Title       string
	Description string
}

// UpdateProjectInput changes only the non-nil fields.
type UpdateProjectInput struct {
	ProjectID   uint
	CallerID    uint
	Title       *string
	Description *string
}

func NewProjectService(store repository.Store) *ProjectService {
	return &ProjectService{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func validateProjectFields(title, description string) error {
	if title == "" {
		return models.NewValidationError("Title is required")
	}
	if len(title) > models.MaxProjectTitleLen {
		return models.NewValidationError("Title too long (max 200 characters)")
	}
	if len(description) > models.MaxProjectDescriptionLen {
		return models.NewValidationError("Description too long (max 5000 characters)")
	}
	return nil
}

// CreateProject creates the project and its owner collaborator row together.
func (s *ProjectService) CreateProject(ctx context.Context, in CreateProjectInput) (*models.Project, error) {
	title := strings.TrimSpace(in.Title)
	if err := validateProjectFields(title, in.Description); err != nil {
		return nil, err
	}

	project := &models.Project{
		Title:       title,
		Description: in.Description,
		OwnerID:     in.OwnerID,
	}
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		if err := tx.Projects().Create(ctx, project); err != nil {
			return err
		}
		return tx.Collaborators().Create(ctx, &models.ProjectCollaborator{
			ProjectID: project.ID,
			UserID:    in.OwnerID,
			Role:      models.RoleOwner,
		})
	})
	if err != nil {
		return nil, err
	}
	project.CallerRole = models.RoleOwner
	return project, nil
}

// GetProject returns the project with the caller's role attached.
func (s *ProjectService) GetProject(ctx context.Context, projectID, callerID uint) (*models.Project, error) {
	project, _, err := access.NewEvaluator(s.store).RequireAccess(ctx, projectID, callerID)
	return project, err
}

// ListProjects returns every project the user holds a role on.
func (s *ProjectService) ListProjects(ctx context.Context, userID uint, includeArchived bool) ([]models.Project, error) {
	return s.store.Projects().ListForUser(ctx, userID, includeArchived)
}

func (s *ProjectService) UpdateProject(ctx context.Context, in UpdateProjectInput) (*models.Project, error) {
	project, err := access.NewEvaluator(s.store).RequireOwner(ctx, in.ProjectID, in.CallerID)
	if err != nil {
		return nil, err
	}

	if in.Title != nil {
		project.Title = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		project.Description = *in.Description
	}
	if err := validateProjectFields(project.Title, project.Description); err != nil {
		return nil, err
	}

	if err := s.store.Projects().Update(ctx, project); err != nil {
		return nil, err
	}
	return project, nil
}

// DeleteProject removes the project and everything attached to it in one
// transaction.
func (s *ProjectService) DeleteProject(ctx context.Context, projectID, callerID uint) error {
	if _, err := access.NewEvaluator(s.store).RequireOwner(ctx, projectID, callerID); err != nil {
		return err
	}
	return s.store.WithTx(ctx, func(tx repository.Store) error {
		if err := tx.Entries().DeleteByProject(ctx, projectID); err != nil {
			return err
		}
		if err := tx.Invitations().DeleteByProject(ctx, projectID); err != nil {
			return err
		}
		if err := tx.Collaborators().DeleteByProject(ctx, projectID); err != nil {
			return err
		}
		return tx.Projects().Delete(ctx, projectID)
	})
}

func (s *ProjectService) ArchiveProject(ctx context.Context, projectID, callerID uint) (*models.Project, error) {
	return s.setArchived(ctx, projectID, callerID, true)
}

func (s *ProjectService) UnarchiveProject(ctx context.Context, projectID, callerID uint) (*models.Project, error) {
	return s.setArchived(ctx, projectID, callerID, false)
}

func (s *ProjectService) setArchived(ctx context.Context, projectID, callerID uint, archived bool) (*models.Project, error) {
	project, err := access.NewEvaluator(s.store).RequireOwner(ctx, projectID, callerID)
	if err != nil {
		return nil, err
	}
	if project.Archived == archived {
		return project, nil
	}

	project.Archived = archived
	if archived {
		at := s.now()
		project.ArchivedAt = &at
	} else {
		project.ArchivedAt = nil
	}
	if err := s.store.Projects().Update(ctx, project); err != nil {
		return nil, err
	}
	return project, nil
}
