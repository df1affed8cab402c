package repository

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"strings"

	"fieldcase/internal/models"
	"fieldcase/internal/observability"

	"gorm.io/gorm"
)

// EntryRepository defines persistence operations for project entries.
type EntryRepository interface {
	GetByID(ctx context.Context, projectID, id uint) (*models.Entry, error)
	// ListByProject returns entries newest first. A non-empty tag keeps only
	// entries carrying exactly that (normalized) tag.
	ListByProject(ctx context.Context, projectID uint, tag string) ([]models.Entry, error)
	Create(ctx context.Context, entry *models.Entry) error
	Update(ctx context.Context, entry *models.Entry) error
	Delete(ctx context.Context, projectID, id uint) error
	DeleteByProject(ctx context.Context, projectID uint) error
}

type entryRepository struct {
	db     *gorm.DB
	reader *gorm.DB
}

var entryLog = observability.NewRepoLogger("entries")

func (r *entryRepository) GetByID(ctx context.Context, projectID, id uint) (*models.Entry, error) {
	var entry models.Entry
	err := r.db.WithContext(ctx).
		Preload("CreatedBy").
		Where("project_id = ?", projectID).
		First(&entry, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Entry", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &entry, nil
}

func (r *entryRepository) ListByProject(ctx context.Context, projectID uint, tag string) ([]models.Entry, error) {
	defer observability.TrackQuery("list", "entries")()

	q := r.reader.WithContext(ctx).
		Preload("CreatedBy").
		Where("project_id = ?", projectID)
	if tag != "" {
		// Tags are stored as a JSON array; narrow in SQL, confirm in Go.
		quoted, _ := json.Marshal(tag)
		q = q.Where(`tags LIKE ? ESCAPE '\'`, "%"+escapeLike(string(quoted))+"%")
	}

	entries := []models.Entry{}
	if err := q.Order("created_at DESC, id DESC").Find(&entries).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	if tag == "" {
		return entries, nil
	}

	filtered := entries[:0]
	for _, e := range entries {
		if slices.Contains(e.Tags, tag) {
			filtered = append(filtered, e)
		}
	}
	return filtered, nil
}

// escapeLike makes s match literally in a LIKE pattern using '\' as the
// escape character. Postgres treats backslash as an escape by default, so
// JSON-escaped tags would otherwise never match.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func (r *entryRepository) Create(ctx context.Context, entry *models.Entry) error {
	if err := r.db.WithContext(ctx).Omit("Project", "CreatedBy").Create(entry).Error; err != nil {
		entryLog.LogError(ctx, err, "create")
		return models.NewInternalError(err)
	}
	entryLog.LogCreate(ctx, map[string]any{"entry_id": entry.ID, "project_id": entry.ProjectID})
	return nil
}

func (r *entryRepository) Update(ctx context.Context, entry *models.Entry) error {
	res := r.db.WithContext(ctx).
		Model(entry).
		Where("project_id = ?", entry.ProjectID).
		Select("title", "description", "entry_type", "latitude", "longitude", "image_ref", "audio_ref", "tags", "links").
		Updates(entry)
	if res.Error != nil {
		entryLog.LogError(ctx, res.Error, "update")
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Entry", entry.ID)
	}
	entryLog.LogUpdate(ctx, map[string]any{"entry_id": entry.ID, "project_id": entry.ProjectID})
	return nil
}

func (r *entryRepository) Delete(ctx context.Context, projectID, id uint) error {
	res := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Delete(&models.Entry{}, id)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Entry", id)
	}
	entryLog.LogDelete(ctx, map[string]any{"entry_id": id, "project_id": projectID})
	return nil
}

func (r *entryRepository) DeleteByProject(ctx context.Context, projectID uint) error {
	if err := r.db.WithContext(ctx).Where("project_id = ?", projectID).Delete(&models.Entry{}).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}
