package service

import (
	"context"
	"strings"

	"fieldcase/internal/access"
	"fieldcase/internal/models"
	"fieldcase/internal/notifications"
	"fieldcase/internal/repository"
)

// CollaboratorService manages who holds which role on a project. Adding by
// email goes through the invitation lifecycle.
type CollaboratorService struct {
	store       repository.Store
	invitations *InvitationService
	publisher   EventPublisher
}

type AddCollaboratorInput struct {
	ProjectID uint
	CallerID  uint
	Email     string
	Role      models.Role
}

func NewCollaboratorService(store repository.Store, invitations *InvitationService, publisher EventPublisher) *CollaboratorService {
	return &CollaboratorService{
		store:       store,
		invitations: invitations,
		publisher:   publisher,
	}
}

// List returns the project's collaborators. Any role may read it.
func (s *CollaboratorService) List(ctx context.Context, projectID, callerID uint) ([]models.ProjectCollaborator, error) {
	if _, _, err := access.NewEvaluator(s.store).RequireAccess(ctx, projectID, callerID); err != nil {
		return nil, err
	}
	return s.store.Collaborators().List(ctx, projectID)
}

// Add adds an existing user directly, or invites the email otherwise.
func (s *CollaboratorService) Add(ctx context.Context, in AddCollaboratorInput) (*IssueResult, error) {
	return s.invitations.Issue(ctx, IssueInvitationInput{
		ProjectID:   in.ProjectID,
		InvitedByID: in.CallerID,
		Email:       in.Email,
		Role:        in.Role,
	})
}

// UpdateRole re-roles a collaborator. The owner's role is fixed.
func (s *CollaboratorService) UpdateRole(ctx context.Context, projectID, callerID, targetUserID uint, rawRole string) (*models.ProjectCollaborator, error) {
	project, err := access.NewEvaluator(s.store).RequireOwner(ctx, projectID, callerID)
	if err != nil {
		return nil, err
	}
	if targetUserID == project.OwnerID {
		return nil, models.NewForbiddenError("The owner's role cannot be changed")
	}
	if strings.TrimSpace(rawRole) == "" {
		return nil, models.NewValidationError("Role is required")
	}
	role, err := models.ParseGrantableRole(rawRole)
	if err != nil {
		return nil, err
	}

	if err := s.store.Collaborators().UpdateRole(ctx, projectID, targetUserID, role); err != nil {
		return nil, err
	}
	return s.store.Collaborators().Get(ctx, projectID, targetUserID)
}

// Remove takes a collaborator off the project. The owner cannot be removed.
func (s *CollaboratorService) Remove(ctx context.Context, projectID, callerID, targetUserID uint) error {
	project, err := access.NewEvaluator(s.store).RequireOwner(ctx, projectID, callerID)
	if err != nil {
		return err
	}
	if targetUserID == project.OwnerID {
		return models.NewForbiddenError("The project owner cannot be removed")
	}
	if err := s.store.Collaborators().Delete(ctx, projectID, targetUserID); err != nil {
		return err
	}
	s.publishRemoved(ctx, projectID, callerID, targetUserID)
	return nil
}

// Leave removes the caller's own collaborator row.
func (s *CollaboratorService) Leave(ctx context.Context, projectID, userID uint) error {
	_, role, err := access.NewEvaluator(s.store).RequireAccess(ctx, projectID, userID)
	if err != nil {
		return err
	}
	if role == models.RoleOwner {
		return models.NewForbiddenError("The project owner cannot leave the project")
	}
	if err := s.store.Collaborators().Delete(ctx, projectID, userID); err != nil {
		return err
	}
	s.publishRemoved(ctx, projectID, userID, userID)
	return nil
}

func (s *CollaboratorService) publishRemoved(ctx context.Context, projectID, actorID, userID uint) {
	publishEvent(ctx, s.publisher, notifications.Event{
		Type:        notifications.EventCollaboratorLeft,
		ProjectID:   projectID,
		ActorID:     actorID,
		RecipientID: userID,
	})
}
