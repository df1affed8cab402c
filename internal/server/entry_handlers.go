package server

import (
	"bytes"
	"encoding/json"

	"fieldcase/internal/models"
	"fieldcase/internal/service"

	"github.com/gofiber/fiber/v2"
)

// coordinate accepts a JSON number or string and keeps the literal text, so
// "51.50740000" is stored exactly as sent.
type coordinate struct {
	value *string
}

func (c *coordinate) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		c.value = nil
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		c.value = &s
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	s := n.String()
	c.value = &s
	return nil
}

func (c *coordinate) ptr() *string {
	if c == nil {
		return nil
	}
	return c.value
}

type entryRequest struct {
	Title         *string           `json:"title"`
	Description   *string           `json:"description"`
	EntryType     *models.EntryType `json:"entry_type"`
	Latitude      *coordinate       `json:"latitude" swaggertype:"string"`
	Longitude     *coordinate       `json:"longitude" swaggertype:"string"`
	ClearLocation bool              `json:"clear_location"`
	ImageRef      *string           `json:"image_ref"`
	AudioRef      *string           `json:"audio_ref"`
	Tags          []string          `json:"tags"`
	Links         []string          `json:"links"`
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}

// ListEntries handles GET /api/projects/:id/entries
// @Summary Entries in a project, newest first
// @Tags entries
// @Security BearerAuth
// @Produce json
// @Param id path int true "Project ID"
// @Param tag query string false "Only entries carrying this tag"
// @Success 200 {array} models.Entry
// @Router /projects/{id}/entries [get]
func (s *Server) ListEntries(c *fiber.Ctx) error {
	projectID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	entries, err := s.entryService.ListEntries(c.UserContext(), projectID, currentUserID(c), c.Query("tag"))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(entries)
}

// CreateEntry handles POST /api/projects/:id/entries
// @Summary Create an entry (owner or editor)
// @Tags entries
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "Project ID"
// @Param request body entryRequest true "Entry"
// @Success 201 {object} models.Entry
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Router /projects/{id}/entries [post]
func (s *Server) CreateEntry(c *fiber.Ctx) error {
	projectID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req entryRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	entry, err := s.entryService.CreateEntry(c.UserContext(), service.CreateEntryInput{
		ProjectID:   projectID,
		UserID:      currentUserID(c),
		Title:       deref(req.Title),
		Description: deref(req.Description),
		EntryType:   deref(req.EntryType),
		Latitude:    req.Latitude.ptr(),
		Longitude:   req.Longitude.ptr(),
		ImageRef:    deref(req.ImageRef),
		AudioRef:    deref(req.AudioRef),
		Tags:        req.Tags,
		Links:       req.Links,
	})
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(entry)
}

// GetEntry handles GET /api/projects/:id/entries/:entryId
// @Summary Get an entry
// @Tags entries
// @Security BearerAuth
// @Produce json
// @Param id path int true "Project ID"
// @Param entryId path int true "Entry ID"
// @Success 200 {object} models.Entry
// @Router /projects/{id}/entries/{entryId} [get]
func (s *Server) GetEntry(c *fiber.Ctx) error {
	projectID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	entryID, err := s.parseID(c, "entryId")
	if err != nil {
		return nil
	}

	entry, err := s.entryService.GetEntry(c.UserContext(), projectID, entryID, currentUserID(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(entry)
}

// UpdateEntry handles PUT /api/projects/:id/entries/:entryId
// @Summary Update an entry (owner, editor, or the entry's author)
// @Tags entries
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "Project ID"
// @Param entryId path int true "Entry ID"
// @Param request body entryRequest true "Fields to change"
// @Success 200 {object} models.Entry
// @Router /projects/{id}/entries/{entryId} [put]
func (s *Server) UpdateEntry(c *fiber.Ctx) error {
	projectID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	entryID, err := s.parseID(c, "entryId")
	if err != nil {
		return nil
	}
	var req entryRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	entry, err := s.entryService.UpdateEntry(c.UserContext(), service.UpdateEntryInput{
		ProjectID:     projectID,
		EntryID:       entryID,
		UserID:        currentUserID(c),
		Title:         req.Title,
		Description:   req.Description,
		EntryType:     req.EntryType,
		Latitude:      req.Latitude.ptr(),
		Longitude:     req.Longitude.ptr(),
		ClearLocation: req.ClearLocation,
		ImageRef:      req.ImageRef,
		AudioRef:      req.AudioRef,
		Tags:          req.Tags,
		Links:         req.Links,
	})
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(entry)
}

// DeleteEntry handles DELETE /api/projects/:id/entries/:entryId
// @Summary Delete an entry (owner, editor, or the entry's author)
// @Tags entries
// @Security BearerAuth
// @Param id path int true "Project ID"
// @Param entryId path int true "Entry ID"
// @Success 204
// @Router /projects/{id}/entries/{entryId} [delete]
func (s *Server) DeleteEntry(c *fiber.Ctx) error {
	projectID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	entryID, err := s.parseID(c, "entryId")
	if err != nil {
		return nil
	}

	if err := s.entryService.DeleteEntry(c.UserContext(), projectID, entryID, currentUserID(c)); err != nil {
		return respondServiceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
