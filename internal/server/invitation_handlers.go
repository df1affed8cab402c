package server

import (
	"strings"

	"fieldcase/internal/models"

	"github.com/gofiber/fiber/v2"
)

func invitationToken(c *fiber.Ctx) (string, error) {
	token := strings.TrimSpace(c.Params("token"))
	if token == "" {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invitation token is required"))
		return "", errResponseWritten
	}
	return token, nil
}

// ResolveInvitation handles GET /api/invitations/:token
// @Summary Look up an invitation by its token
// @Description Public. Answers 410 when the invitation expired or was already used.
// @Tags invitations
// @Produce json
// @Param token path string true "Invitation token"
// @Success 200 {object} models.ProjectInvitation
// @Failure 404 {object} models.ErrorResponse
// @Failure 410 {object} models.ErrorResponse
// @Router /invitations/{token} [get]
func (s *Server) ResolveInvitation(c *fiber.Ctx) error {
	token, err := invitationToken(c)
	if err != nil {
		return nil
	}

	inv, err := s.invitationService.Resolve(c.UserContext(), token)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(inv)
}

// AcceptInvitation handles POST /api/invitations/:token/accept
// @Summary Accept an invitation as the signed-in user
// @Description The caller's email must match the invited address.
// @Tags invitations
// @Security BearerAuth
// @Produce json
// @Param token path string true "Invitation token"
// @Success 200 {object} models.ProjectCollaborator
// @Failure 403 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Failure 410 {object} models.ErrorResponse
// @Router /invitations/{token}/accept [post]
func (s *Server) AcceptInvitation(c *fiber.Ctx) error {
	token, err := invitationToken(c)
	if err != nil {
		return nil
	}

	collab, err := s.invitationService.Accept(c.UserContext(), token, currentUserID(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(collab)
}

// ListMyInvitations handles GET /api/invitations/me
// @Summary Live invitations addressed to the caller's email
// @Tags invitations
// @Security BearerAuth
// @Produce json
// @Success 200 {array} models.ProjectInvitation
// @Router /invitations/me [get]
func (s *Server) ListMyInvitations(c *fiber.Ctx) error {
	invs, err := s.invitationService.ListForUser(c.UserContext(), currentUserID(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(invs)
}

// ListProjectInvitations handles GET /api/projects/:id/invitations
// @Summary Pending invitations on a project (owner only)
// @Tags invitations
// @Security BearerAuth
// @Produce json
// @Param id path int true "Project ID"
// @Success 200 {array} models.ProjectInvitation
// @Router /projects/{id}/invitations [get]
func (s *Server) ListProjectInvitations(c *fiber.Ctx) error {
	projectID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	invs, err := s.invitationService.ListPending(c.UserContext(), projectID, currentUserID(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(invs)
}

// RevokeInvitation handles DELETE /api/projects/:id/invitations/:invitationId
// @Summary Revoke a pending invitation (owner only)
// @Tags invitations
// @Security BearerAuth
// @Param id path int true "Project ID"
// @Param invitationId path int true "Invitation ID"
// @Success 204
// @Router /projects/{id}/invitations/{invitationId} [delete]
func (s *Server) RevokeInvitation(c *fiber.Ctx) error {
	projectID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	invitationID, err := s.parseID(c, "invitationId")
	if err != nil {
		return nil
	}

	if err := s.invitationService.Revoke(c.UserContext(), projectID, invitationID, currentUserID(c)); err != nil {
		return respondServiceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
