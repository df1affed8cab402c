package repository

import (
	"context"
	"errors"

	"fieldcase/internal/models"
	"fieldcase/internal/observability"

	"gorm.io/gorm"
)

// CollaboratorRepository defines persistence operations for project roles.
type CollaboratorRepository interface {
	Get(ctx context.Context, projectID, userID uint) (*models.ProjectCollaborator, error)
	List(ctx context.Context, projectID uint) ([]models.ProjectCollaborator, error)
	// Create fails with a Conflict error when the pair already has a row.
	Create(ctx context.Context, collab *models.ProjectCollaborator) error
	UpdateRole(ctx context.Context, projectID, userID uint, role models.Role) error
	Delete(ctx context.Context, projectID, userID uint) error
	DeleteByProject(ctx context.Context, projectID uint) error
}

type collaboratorRepository struct {
	db     *gorm.DB
	reader *gorm.DB
}

var collaboratorLog = observability.NewRepoLogger("project_collaborators")

func (r *collaboratorRepository) Get(ctx context.Context, projectID, userID uint) (*models.ProjectCollaborator, error) {
	defer observability.TrackQuery("get", "project_collaborators")()

	var collab models.ProjectCollaborator
	err := r.db.WithContext(ctx).
		Where("project_id = ? AND user_id = ?", projectID, userID).
		First(&collab).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Collaborator", userID)
		}
		return nil, models.NewInternalError(err)
	}
	return &collab, nil
}

func (r *collaboratorRepository) List(ctx context.Context, projectID uint) ([]models.ProjectCollaborator, error) {
	collabs := []models.ProjectCollaborator{}
	err := r.reader.WithContext(ctx).
		Preload("User").
		Where("project_id = ?", projectID).
		Order("created_at ASC, user_id ASC").
		Find(&collabs).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return collabs, nil
}

func (r *collaboratorRepository) Create(ctx context.Context, collab *models.ProjectCollaborator) error {
	if err := r.db.WithContext(ctx).Omit("Project", "User").Create(collab).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewConflictError("user is already a collaborator on this project")
		}
		collaboratorLog.LogError(ctx, err, "create")
		return models.NewInternalError(err)
	}
	collaboratorLog.LogCreate(ctx, map[string]any{
		"project_id": collab.ProjectID,
		"user_id":    collab.UserID,
		"role":       collab.Role,
	})
	return nil
}

func (r *collaboratorRepository) UpdateRole(ctx context.Context, projectID, userID uint, role models.Role) error {
	res := r.db.WithContext(ctx).
		Model(&models.ProjectCollaborator{}).
		Where("project_id = ? AND user_id = ?", projectID, userID).
		Update("role", role)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Collaborator", userID)
	}
	collaboratorLog.LogUpdate(ctx, map[string]any{"project_id": projectID, "user_id": userID, "role": role})
	return nil
}

func (r *collaboratorRepository) Delete(ctx context.Context, projectID, userID uint) error {
	res := r.db.WithContext(ctx).
		Where("project_id = ? AND user_id = ?", projectID, userID).
		Delete(&models.ProjectCollaborator{})
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Collaborator", userID)
	}
	collaboratorLog.LogDelete(ctx, map[string]any{"project_id": projectID, "user_id": userID})
	return nil
}

func (r *collaboratorRepository) DeleteByProject(ctx context.Context, projectID uint) error {
	if err := r.db.WithContext(ctx).Where("project_id = ?", projectID).Delete(&models.ProjectCollaborator{}).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}
