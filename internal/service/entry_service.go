package service

import (
	"context"
	"log/slog"
	"strings"

	"fieldcase/internal/access"
	"fieldcase/internal/models"
	"fieldcase/internal/repository"
	"fieldcase/internal/validation"
)

// MediaSigner turns a stored media reference into a short-lived download URL.
type MediaSigner interface {
	PresignGet(ctx context.Context, key string) (string, error)
}

// EntryService provides entry CRUD on top of the access rules.
type EntryService struct {
	store  repository.Store
	signer MediaSigner
}

type CreateEntryInput struct {
	ProjectID   uint
	UserID      uint
	Title       string
	Description string
	EntryType   models.EntryType
	Latitude    *string
	Longitude   *string
	ImageRef    string
	AudioRef    string
	Tags        []string
	Links       []string
}

// UpdateEntryInput changes only the non-nil fields. ClearLocation drops the
// coordinates and wins over Latitude/Longitude.
type UpdateEntryInput struct {
	ProjectID     uint
	EntryID       uint
	UserID        uint
	Title         *string
	Description   *string
	EntryType     *models.EntryType
	Latitude      *string
	Longitude     *string
	ClearLocation bool
	ImageRef      *string
	AudioRef      *string
	Tags          []string
	Links         []string
}

// NewEntryService returns an EntryService. signer may be nil, in which case
// entries carry references only.
func NewEntryService(store repository.Store, signer MediaSigner) *EntryService {
	return &EntryService{store: store, signer: signer}
}

func (s *EntryService) CreateEntry(ctx context.Context, in CreateEntryInput) (*models.Entry, error) {
	project, role, err := access.NewEvaluator(s.store).RequireAccess(ctx, in.ProjectID, in.UserID)
	if err != nil {
		return nil, err
	}
	if err := access.RequireCreateEntry(role); err != nil {
		return nil, err
	}
	if err := requireWritable(project); err != nil {
		return nil, err
	}

	entry := &models.Entry{
		ProjectID:   in.ProjectID,
		CreatedByID: in.UserID,
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		EntryType:   in.EntryType,
		Latitude:    trimmed(in.Latitude),
		Longitude:   trimmed(in.Longitude),
		ImageRef:    strings.TrimSpace(in.ImageRef),
		AudioRef:    strings.TrimSpace(in.AudioRef),
		Tags:        in.Tags,
		Links:       in.Links,
	}
	if entry.EntryType == "" {
		entry.EntryType = models.EntryTypeNote
	}
	if err := normalizeEntry(entry); err != nil {
		return nil, err
	}

	if err := s.store.Entries().Create(ctx, entry); err != nil {
		return nil, err
	}
	s.sign(ctx, entry)
	return entry, nil
}

func (s *EntryService) GetEntry(ctx context.Context, projectID, entryID, callerID uint) (*models.Entry, error) {
	if _, _, err := access.NewEvaluator(s.store).RequireAccess(ctx, projectID, callerID); err != nil {
		return nil, err
	}
	entry, err := s.store.Entries().GetByID(ctx, projectID, entryID)
	if err != nil {
		return nil, err
	}
	s.sign(ctx, entry)
	return entry, nil
}

// ListEntries returns the project's entries, optionally only those carrying tag.
func (s *EntryService) ListEntries(ctx context.Context, projectID, callerID uint, tag string) ([]models.Entry, error) {
	if _, _, err := access.NewEvaluator(s.store).RequireAccess(ctx, projectID, callerID); err != nil {
		return nil, err
	}
	entries, err := s.store.Entries().ListByProject(ctx, projectID, strings.ToLower(strings.TrimSpace(tag)))
	if err != nil {
		return nil, err
	}
	for i := range entries {
		s.sign(ctx, &entries[i])
	}
	return entries, nil
}

func (s *EntryService) UpdateEntry(ctx context.Context, in UpdateEntryInput) (*models.Entry, error) {
	project, entry, err := s.loadForWrite(ctx, in.ProjectID, in.EntryID, in.UserID)
	if err != nil {
		return nil, err
	}
	if err := requireWritable(project); err != nil {
		return nil, err
	}

	if in.Title != nil {
		entry.Title = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		entry.Description = *in.Description
	}
	if in.EntryType != nil {
		entry.EntryType = *in.EntryType
	}
	switch {
	case in.ClearLocation:
		entry.Latitude, entry.Longitude = nil, nil
	case in.Latitude != nil || in.Longitude != nil:
		entry.Latitude, entry.Longitude = trimmed(in.Latitude), trimmed(in.Longitude)
	}
	if in.ImageRef != nil {
		entry.ImageRef = strings.TrimSpace(*in.ImageRef)
	}
	if in.AudioRef != nil {
		entry.AudioRef = strings.TrimSpace(*in.AudioRef)
	}
	if in.Tags != nil {
		entry.Tags = in.Tags
	}
	if in.Links != nil {
		entry.Links = in.Links
	}
	if err := normalizeEntry(entry); err != nil {
		return nil, err
	}

	if err := s.store.Entries().Update(ctx, entry); err != nil {
		return nil, err
	}
	s.sign(ctx, entry)
	return entry, nil
}

func (s *EntryService) DeleteEntry(ctx context.Context, projectID, entryID, callerID uint) error {
	project, _, err := s.loadForWrite(ctx, projectID, entryID, callerID)
	if err != nil {
		return err
	}
	if err := requireWritable(project); err != nil {
		return err
	}
	return s.store.Entries().Delete(ctx, projectID, entryID)
}

func (s *EntryService) loadForWrite(ctx context.Context, projectID, entryID, userID uint) (*models.Project, *models.Entry, error) {
	project, role, err := access.NewEvaluator(s.store).RequireAccess(ctx, projectID, userID)
	if err != nil {
		return nil, nil, err
	}
	entry, err := s.store.Entries().GetByID(ctx, projectID, entryID)
	if err != nil {
		return nil, nil, err
	}
	if err := access.RequireModifyEntry(role, entry, userID); err != nil {
		return nil, nil, err
	}
	return project, entry, nil
}

func requireWritable(project *models.Project) error {
	if project.Archived {
		return models.NewForbiddenError("Archived projects are read-only")
	}
	return nil
}

// normalizeEntry validates the entry in place and canonicalizes tags.
func normalizeEntry(e *models.Entry) error {
	if e.Title == "" {
		return models.NewValidationError("Title is required")
	}
	if len(e.Title) > models.MaxEntryTitleLen {
		return models.NewValidationError("Title too long (max 200 characters)")
	}
	if len(e.Description) > models.MaxEntryDescriptionLen {
		return models.NewValidationError("Description too long (max 20000 characters)")
	}
	if !e.EntryType.IsValid() {
		return models.NewValidationError("entry_type must be one of evidence, lead, interview, note")
	}
	if err := validation.ValidateCoordinates(e.Latitude, e.Longitude); err != nil {
		return models.NewValidationError(err.Error())
	}

	tags, err := validation.NormalizeTags(e.Tags, models.MaxTagLen)
	if err != nil {
		return models.NewValidationError(err.Error())
	}
	if len(tags) > models.MaxEntryTags {
		return models.NewValidationError("Too many tags (max 50)")
	}
	e.Tags = tags

	links := make([]string, 0, len(e.Links))
	for _, link := range e.Links {
		link = strings.TrimSpace(link)
		if link == "" {
			continue
		}
		if err := validation.ValidateLink(link); err != nil {
			return models.NewValidationError(err.Error())
		}
		links = append(links, link)
	}
	if len(links) > models.MaxEntryLinks {
		return models.NewValidationError("Too many links (max 50)")
	}
	e.Links = links
	return nil
}

func trimmed(v *string) *string {
	if v == nil {
		return nil
	}
	t := strings.TrimSpace(*v)
	return &t
}

func (s *EntryService) sign(ctx context.Context, e *models.Entry) {
	if s.signer == nil {
		return
	}
	var err error
	if e.ImageRef != "" {
		if e.ImageURL, err = s.signer.PresignGet(ctx, e.ImageRef); err != nil {
			slog.WarnContext(ctx, "failed to presign entry image", "entry_id", e.ID, "err", err)
		}
	}
	if e.AudioRef != "" {
		if e.AudioURL, err = s.signer.PresignGet(ctx, e.AudioRef); err != nil {
			slog.WarnContext(ctx, "failed to presign entry audio", "entry_id", e.ID, "err", err)
		}
	}
}
