package repository

import (
	"context"
	"errors"

	"fieldcase/internal/models"
	"fieldcase/internal/observability"

	"gorm.io/gorm"
)

// ProjectRepository defines persistence operations for projects.
type ProjectRepository interface {
	GetByID(ctx context.Context, id uint) (*models.Project, error)
	// ListForUser returns every project the user holds a role on, newest
	// first, with CallerRole filled in.
	ListForUser(ctx context.Context, userID uint, includeArchived bool) ([]models.Project, error)
	Create(ctx context.Context, project *models.Project) error
	Update(ctx context.Context, project *models.Project) error
	Delete(ctx context.Context, id uint) error
}

type projectRepository struct {
	db     *gorm.DB
	reader *gorm.DB
}

var projectLog = observability.NewRepoLogger("projects")

func (r *projectRepository) GetByID(ctx context.Context, id uint) (*models.Project, error) {
	defer observability.TrackQuery("get", "projects")()

	var project models.Project
	if err := r.db.WithContext(ctx).First(&project, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Project", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &project, nil
}

func (r *projectRepository) ListForUser(ctx context.Context, userID uint, includeArchived bool) ([]models.Project, error) {
	defer observability.TrackQuery("list", "projects")()

	q := r.reader.WithContext(ctx).
		Model(&models.Project{}).
		Select("projects.*, project_collaborators.role AS caller_role").
		Joins("JOIN project_collaborators ON project_collaborators.project_id = projects.id AND project_collaborators.user_id = ?", userID)
	if !includeArchived {
		q = q.Where("projects.archived = ?", false)
	}

	projects := []models.Project{}
	if err := q.Order("projects.updated_at DESC, projects.id DESC").Find(&projects).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return projects, nil
}

func (r *projectRepository) Create(ctx context.Context, project *models.Project) error {
	if err := r.db.WithContext(ctx).Omit("Owner").Create(project).Error; err != nil {
		projectLog.LogError(ctx, err, "create")
		return models.NewInternalError(err)
	}
	projectLog.LogCreate(ctx, map[string]any{"project_id": project.ID, "owner_id": project.OwnerID})
	return nil
}

// Update persists the mutable columns. OwnerID is never written.
func (r *projectRepository) Update(ctx context.Context, project *models.Project) error {
	res := r.db.WithContext(ctx).
		Model(project).
		Select("title", "description", "archived", "archived_at").
		Updates(project)
	if res.Error != nil {
		projectLog.LogError(ctx, res.Error, "update")
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Project", project.ID)
	}
	projectLog.LogUpdate(ctx, map[string]any{"project_id": project.ID})
	return nil
}

func (r *projectRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.Project{}, id)
	if res.Error != nil {
		projectLog.LogError(ctx, res.Error, "delete")
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Project", id)
	}
	projectLog.LogDelete(ctx, map[string]any{"project_id": id})
	return nil
}
