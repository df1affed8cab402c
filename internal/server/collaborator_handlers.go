package server

import (
	"fieldcase/internal/models"
	"fieldcase/internal/service"

	"github.com/gofiber/fiber/v2"
)

// issueResponse is the body returned when a collaborator is added by email.
type issueResponse struct {
	Outcome      service.IssueOutcome        `json:"outcome"`
	Invitation   *models.ProjectInvitation   `json:"invitation,omitempty"`
	InviteURL    string                      `json:"invite_url,omitempty"`
	Collaborator *models.ProjectCollaborator `json:"collaborator,omitempty"`
}

func (s *Server) newIssueResponse(res *service.IssueResult) issueResponse {
	out := issueResponse{
		Outcome:      res.Outcome,
		Invitation:   res.Invitation,
		Collaborator: res.Collaborator,
	}
	if res.Invitation != nil {
		out.InviteURL = s.inviteURL(res.Invitation.Token)
	}
	return out
}

// ListCollaborators handles GET /api/projects/:id/collaborators
// @Summary Collaborators on a project
// @Tags collaborators
// @Security BearerAuth
// @Produce json
// @Param id path int true "Project ID"
// @Success 200 {array} models.ProjectCollaborator
// @Router /projects/{id}/collaborators [get]
func (s *Server) ListCollaborators(c *fiber.Ctx) error {
	projectID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	collabs, err := s.collaboratorService.List(c.UserContext(), projectID, currentUserID(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(collabs)
}

// AddCollaborator handles POST /api/projects/:id/collaborators
// @Summary Add a collaborator by email, inviting them when they have no account
// @Description Outcome is one of added, already_collaborator, existing_invitation, invited.
// @Tags collaborators
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "Project ID"
// @Param request body object{email=string,role=string} true "Invitee"
// @Success 200 {object} issueResponse
// @Success 201 {object} issueResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Router /projects/{id}/collaborators [post]
func (s *Server) AddCollaborator(c *fiber.Ctx) error {
	projectID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req struct {
		Email string `json:"email"`
		Role  string `json:"role"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	res, err := s.collaboratorService.Add(c.UserContext(), service.AddCollaboratorInput{
		ProjectID: projectID,
		CallerID:  currentUserID(c),
		Email:     req.Email,
		Role:      models.Role(req.Role),
	})
	if err != nil {
		return respondServiceError(c, err)
	}

	status := fiber.StatusOK
	if res.Outcome == service.OutcomeAdded || res.Outcome == service.OutcomeInvited {
		status = fiber.StatusCreated
	}
	return c.Status(status).JSON(s.newIssueResponse(res))
}

// UpdateCollaboratorRole handles PUT /api/projects/:id/collaborators/:userId
// @Summary Change a collaborator's role (owner only)
// @Tags collaborators
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "Project ID"
// @Param userId path int true "User ID"
// @Param request body object{role=string} true "New role"
// @Success 200 {object} models.ProjectCollaborator
// @Router /projects/{id}/collaborators/{userId} [put]
func (s *Server) UpdateCollaboratorRole(c *fiber.Ctx) error {
	projectID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	userID, err := s.parseID(c, "userId")
	if err != nil {
		return nil
	}
	var req struct {
		Role string `json:"role"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	collab, err := s.collaboratorService.UpdateRole(c.UserContext(), projectID, currentUserID(c), userID, req.Role)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(collab)
}

// RemoveCollaborator handles DELETE /api/projects/:id/collaborators/:userId
// @Summary Remove a collaborator (owner only)
// @Tags collaborators
// @Security BearerAuth
// @Param id path int true "Project ID"
// @Param userId path int true "User ID"
// @Success 204
// @Router /projects/{id}/collaborators/{userId} [delete]
func (s *Server) RemoveCollaborator(c *fiber.Ctx) error {
	projectID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	userID, err := s.parseID(c, "userId")
	if err != nil {
		return nil
	}

	if err := s.collaboratorService.Remove(c.UserContext(), projectID, currentUserID(c), userID); err != nil {
		return respondServiceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// LeaveProject handles POST /api/projects/:id/leave
// @Summary Leave a project the caller collaborates on
// @Tags collaborators
// @Security BearerAuth
// @Param id path int true "Project ID"
// @Success 204
// @Router /projects/{id}/leave [post]
func (s *Server) LeaveProject(c *fiber.Ctx) error {
	projectID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.collaboratorService.Leave(c.UserContext(), projectID, currentUserID(c)); err != nil {
		return respondServiceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
