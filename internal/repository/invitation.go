package repository

import (
	"context"
	"errors"
	"time"

	"fieldcase/internal/models"
	"fieldcase/internal/observability"

	"gorm.io/gorm"
)

// InvitationRepository defines persistence operations for project invitations.
// Status transitions are guarded by status = 'pending' so that concurrent
// callers cannot both win.
type InvitationRepository interface {
	GetByID(ctx context.Context, id uint) (*models.ProjectInvitation, error)
	GetByToken(ctx context.Context, token string) (*models.ProjectInvitation, error)
	// FindPending returns the pending row for (project, email) regardless of
	// expiry, or nil, nil.
	FindPending(ctx context.Context, projectID uint, email string) (*models.ProjectInvitation, error)
	// Create fails with a Conflict error when a pending row already exists for
	// the pair or the token collides.
	Create(ctx context.Context, inv *models.ProjectInvitation) error
	// MarkAccepted and MarkExpired report false when the row was no longer pending.
	MarkAccepted(ctx context.Context, id, userID uint, at time.Time) (bool, error)
	MarkExpired(ctx context.Context, id uint) (bool, error)
	ListPendingByProject(ctx context.Context, projectID uint, now time.Time) ([]models.ProjectInvitation, error)
	ListPendingByEmail(ctx context.Context, email string, now time.Time) ([]models.ProjectInvitation, error)
	// DeletePending removes a pending invitation of the project and reports
	// whether one was removed.
	DeletePending(ctx context.Context, projectID, id uint) (bool, error)
	DeleteByProject(ctx context.Context, projectID uint) error
}

type invitationRepository struct {
	db *gorm.DB
}

var invitationLog = observability.NewRepoLogger("project_invitations")

func (r *invitationRepository) first(ctx context.Context, query string, args ...any) (*models.ProjectInvitation, error) {
	var inv models.ProjectInvitation
	err := r.db.WithContext(ctx).Where(query, args...).First(&inv).Error
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *invitationRepository) GetByID(ctx context.Context, id uint) (*models.ProjectInvitation, error) {
	inv, err := r.first(ctx, "id = ?", id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Invitation", id)
		}
		return nil, models.NewInternalError(err)
	}
	return inv, nil
}

func (r *invitationRepository) GetByToken(ctx context.Context, token string) (*models.ProjectInvitation, error) {
	ctx, span := observability.StartRepoSpan(ctx, "project_invitations", "GetByToken")
	inv, err := r.first(ctx, "token = ?", token)
	span.End(err)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &models.AppError{Code: models.CodeNotFound, Message: "invitation not found"}
		}
		return nil, models.NewInternalError(err)
	}
	return inv, nil
}

func (r *invitationRepository) FindPending(ctx context.Context, projectID uint, email string) (*models.ProjectInvitation, error) {
	inv, err := r.first(ctx, "project_id = ? AND email = ? AND status = ?",
		projectID, models.NormalizeEmail(email), models.InvitationStatusPending)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return inv, nil
}

func (r *invitationRepository) Create(ctx context.Context, inv *models.ProjectInvitation) error {
	inv.Email = models.NormalizeEmail(inv.Email)
	if inv.Status == "" {
		inv.Status = models.InvitationStatusPending
	}
	if err := r.db.WithContext(ctx).Omit("Project", "InvitedBy").Create(inv).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewConflictError("a pending invitation already exists for this email")
		}
		invitationLog.LogError(ctx, err, "create")
		return models.NewInternalError(err)
	}
	invitationLog.LogCreate(ctx, map[string]any{"invitation_id": inv.ID, "project_id": inv.ProjectID})
	return nil
}

func (r *invitationRepository) MarkAccepted(ctx context.Context, id, userID uint, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.ProjectInvitation{}).
		Where("id = ? AND status = ?", id, models.InvitationStatusPending).
		Updates(map[string]any{
			"status":         models.InvitationStatusAccepted,
			"accepted_at":    at,
			"accepted_by_id": userID,
		})
	if res.Error != nil {
		return false, models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	invitationLog.LogUpdate(ctx, map[string]any{"invitation_id": id, "status": models.InvitationStatusAccepted})
	return true, nil
}

func (r *invitationRepository) MarkExpired(ctx context.Context, id uint) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.ProjectInvitation{}).
		Where("id = ? AND status = ?", id, models.InvitationStatusPending).
		Update("status", models.InvitationStatusExpired)
	if res.Error != nil {
		return false, models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	invitationLog.LogUpdate(ctx, map[string]any{"invitation_id": id, "status": models.InvitationStatusExpired})
	return true, nil
}

func (r *invitationRepository) ListPendingByProject(ctx context.Context, projectID uint, now time.Time) ([]models.ProjectInvitation, error) {
	invs := []models.ProjectInvitation{}
	err := r.db.WithContext(ctx).
		Where("project_id = ? AND status = ? AND expires_at > ?", projectID, models.InvitationStatusPending, now).
		Order("created_at DESC, id DESC").
		Find(&invs).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return invs, nil
}

func (r *invitationRepository) ListPendingByEmail(ctx context.Context, email string, now time.Time) ([]models.ProjectInvitation, error) {
	invs := []models.ProjectInvitation{}
	err := r.db.WithContext(ctx).
		Preload("Project").
		Where("email = ? AND status = ? AND expires_at > ?", models.NormalizeEmail(email), models.InvitationStatusPending, now).
		Order("created_at DESC, id DESC").
		Find(&invs).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return invs, nil
}

func (r *invitationRepository) DeletePending(ctx context.Context, projectID, id uint) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("id = ? AND project_id = ? AND status = ?", id, projectID, models.InvitationStatusPending).
		Delete(&models.ProjectInvitation{})
	if res.Error != nil {
		return false, models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	invitationLog.LogDelete(ctx, map[string]any{"invitation_id": id, "project_id": projectID})
	return true, nil
}

func (r *invitationRepository) DeleteByProject(ctx context.Context, projectID uint) error {
	if err := r.db.WithContext(ctx).Where("project_id = ?", projectID).Delete(&models.ProjectInvitation{}).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}
