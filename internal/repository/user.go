package repository

import (
	"context"
	"errors"

	"fieldcase/internal/cache"
	"fieldcase/internal/models"
	"fieldcase/internal/observability"

	"gorm.io/gorm"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id uint) (*models.User, error)
	// GetByEmail and GetByUsername return nil, nil when no user matches.
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	UpdateProfile(ctx context.Context, id uint, displayName, email string) error
}

type userRepository struct {
	db *gorm.DB
}

var userLog = observability.NewRepoLogger("users")

// GetByID is served from the profile cache when Redis is available. The
// cached copy never carries the password hash.
func (r *userRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	err := cache.Aside(ctx, cache.UserKey(id), &user, cache.UserTTL, func() error {
		if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError("User", id)
			}
			return models.NewInternalError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, "email = ?", models.NormalizeEmail(email))
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.findOne(ctx, "username = ?", username)
}

func (r *userRepository) findOne(ctx context.Context, query string, arg any) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where(query, arg).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	user.Email = models.NormalizeEmail(user.Email)
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewConflictError("username or email already in use")
		}
		userLog.LogError(ctx, err, "create")
		return models.NewInternalError(err)
	}
	userLog.LogCreate(ctx, map[string]any{"user_id": user.ID})
	return nil
}

// UpdateProfile writes only the mutable profile columns; the password hash is
// never touched here.
func (r *userRepository) UpdateProfile(ctx context.Context, id uint, displayName, email string) error {
	res := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(map[string]any{
		"display_name": displayName,
		"email":        models.NormalizeEmail(email),
	})
	if res.Error != nil {
		if isUniqueConstraintError(res.Error) {
			return models.NewConflictError("email already in use")
		}
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("User", id)
	}
	cache.InvalidateUser(ctx, id)
	userLog.LogUpdate(ctx, map[string]any{"user_id": id})
	return nil
}
