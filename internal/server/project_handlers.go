package server

import (
	"fieldcase/internal/service"

	"github.com/gofiber/fiber/v2"
)

type projectRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
}

// ListProjects handles GET /api/projects
// @Summary Projects the caller owns or collaborates on
// @Tags projects
// @Security BearerAuth
// @Produce json
// @Param include_archived query bool false "Include archived projects"
// @Success 200 {array} models.Project
// @Router /projects [get]
func (s *Server) ListProjects(c *fiber.Ctx) error {
	projects, err := s.projectService.ListProjects(c.UserContext(), currentUserID(c), c.QueryBool("include_archived", false))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(projects)
}

// CreateProject handles POST /api/projects
// @Summary Create a project owned by the caller
// @Tags projects
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body projectRequest true "Project"
// @Success 201 {object} models.Project
// @Failure 400 {object} models.ErrorResponse
// @Router /projects [post]
func (s *Server) CreateProject(c *fiber.Ctx) error {
	var req projectRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	in := service.CreateProjectInput{OwnerID: currentUserID(c)}
	if req.Title != nil {
		in.Title = *req.Title
	}
	if req.Description != nil {
		in.Description = *req.Description
	}

	project, err := s.projectService.CreateProject(c.UserContext(), in)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(project)
}

// GetProject handles GET /api/projects/:id
// @Summary Get a project
// @Tags projects
// @Security BearerAuth
// @Produce json
// @Param id path int true "Project ID"
// @Success 200 {object} models.Project
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /projects/{id} [get]
func (s *Server) GetProject(c *fiber.Ctx) error {
	projectID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	project, err := s.projectService.GetProject(c.UserContext(), projectID, currentUserID(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(project)
}

// UpdateProject handles PUT /api/projects/:id
// @Summary Update title or description (owner only)
// @Tags projects
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "Project ID"
// @Param request body projectRequest true "Fields to change"
// @Success 200 {object} models.Project
// @Router /projects/{id} [put]
func (s *Server) UpdateProject(c *fiber.Ctx) error {
	projectID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req projectRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	project, err := s.projectService.UpdateProject(c.UserContext(), service.UpdateProjectInput{
		ProjectID:   projectID,
		CallerID:    currentUserID(c),
		Title:       req.Title,
		Description: req.Description,
	})
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(project)
}

// DeleteProject handles DELETE /api/projects/:id
// @Summary Delete a project with its entries, collaborators and invitations (owner only)
// @Tags projects
// @Security BearerAuth
// @Param id path int true "Project ID"
// @Success 204
// @Router /projects/{id} [delete]
func (s *Server) DeleteProject(c *fiber.Ctx) error {
	projectID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.projectService.DeleteProject(c.UserContext(), projectID, currentUserID(c)); err != nil {
		return respondServiceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ArchiveProject handles POST /api/projects/:id/archive
// @Summary Archive a project (owner only)
// @Tags projects
// @Security BearerAuth
// @Param id path int true "Project ID"
// @Success 200 {object} models.Project
// @Router /projects/{id}/archive [post]
func (s *Server) ArchiveProject(c *fiber.Ctx) error {
	projectID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	project, err := s.projectService.ArchiveProject(c.UserContext(), projectID, currentUserID(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(project)
}

// UnarchiveProject handles POST /api/projects/:id/unarchive
// @Summary Restore an archived project (owner only)
// @Tags projects
// @Security BearerAuth
// @Param id path int true "Project ID"
// @Success 200 {object} models.Project
// @Router /projects/{id}/unarchive [post]
func (s *Server) UnarchiveProject(c *fiber.Ctx) error {
	projectID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	project, err := s.projectService.UnarchiveProject(c.UserContext(), projectID, currentUserID(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(project)
}
