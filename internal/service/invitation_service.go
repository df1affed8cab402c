package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"log/slog"
	"time"

	"fieldcase/internal/access"
	"fieldcase/internal/models"
	"fieldcase/internal/notifications"
	"fieldcase/internal/observability"
	"fieldcase/internal/repository"
	"fieldcase/internal/validation"

	"go.opentelemetry.io/otel/attribute"
)

// DefaultInvitationTTL applies when neither the caller nor config sets one.
const DefaultInvitationTTL = 7 * 24 * time.Hour

// invitationTokenBytes is the entropy of an invitation token.
const invitationTokenBytes = 32

// IssueOutcome says what Issue did.
type IssueOutcome string

const (
	// OutcomeAdded means the email belonged to a user who is now a collaborator.
	OutcomeAdded IssueOutcome = "added"
	// OutcomeAlreadyCollaborator means nothing changed.
	OutcomeAlreadyCollaborator IssueOutcome = "already_collaborator"
	// OutcomeExistingInvitation means a live pending invitation was returned unchanged.
	OutcomeExistingInvitation IssueOutcome = "existing_invitation"
	// OutcomeInvited means a new invitation was created.
	OutcomeInvited IssueOutcome = "invited"
)

// EventPublisher fans out project activity. *notifications.Notifier implements it.
type EventPublisher interface {
	Publish(ctx context.Context, ev notifications.Event) error
}

// IssueInvitationInput is the request to grant Role on a project to Email.
type IssueInvitationInput struct {
	ProjectID   uint
	InvitedByID uint
	Email       string
	Role        models.Role
	// TTL overrides the service default when positive.
	TTL time.Duration
}

// IssueResult carries exactly one of Invitation or Collaborator, except for
// OutcomeAlreadyCollaborator which may carry neither.
type IssueResult struct {
	Outcome      IssueOutcome
	Invitation   *models.ProjectInvitation
	Collaborator *models.ProjectCollaborator
}

// InvitationService runs the invitation lifecycle: issue, resolve, accept,
// list and revoke.
type InvitationService struct {
	store     repository.Store
	publisher EventPublisher
	ttl       time.Duration
	now       func() time.Time
	newToken  func() (string, error)
}

// NewInvitationService returns an InvitationService. A non-positive ttl falls
// back to DefaultInvitationTTL; publisher may be nil.
func NewInvitationService(store repository.Store, publisher EventPublisher, ttl time.Duration) *InvitationService {
	if ttl <= 0 {
		ttl = DefaultInvitationTTL
	}
	return &InvitationService{
		store:     store,
		publisher: publisher,
		ttl:       ttl,
		now:       func() time.Time { return time.Now().UTC() },
		newToken:  generateInvitationToken,
	}
}

// generateInvitationToken returns 256 random bits, base64url without padding.
func generateInvitationToken() (string, error) {
	b := make([]byte, invitationTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// Issue invites Email to the project, or adds them directly when they already
// have an account. Only the owner may call it.
func (s *InvitationService) Issue(ctx context.Context, in IssueInvitationInput) (res *IssueResult, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "invitation", "Issue",
		attribute.Int64("project.id", int64(in.ProjectID)))
	defer func() { span.End(err) }()

	project, err := access.NewEvaluator(s.store).RequireOwner(ctx, in.ProjectID, in.InvitedByID)
	if err != nil {
		return nil, err
	}

	email := models.NormalizeEmail(in.Email)
	if err := validation.ValidateEmail(email); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	role, err := models.ParseGrantableRole(string(in.Role))
	if err != nil {
		return nil, err
	}

	user, err := s.store.Users().GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user != nil {
		return s.addExisting(ctx, project, user, role, in.InvitedByID)
	}

	ttl := in.TTL
	if ttl <= 0 {
		ttl = s.ttl
	}

	// A concurrent issuer may win the pending index between our read and
	// insert; the second pass reads the winner.
	for attempt := 0; ; attempt++ {
		res, err = s.issueOnce(ctx, project.ID, email, role, in.InvitedByID, ttl)
		if err == nil || attempt > 0 || !models.IsCode(err, models.CodeConflict) {
			break
		}
	}
	if err != nil {
		return nil, err
	}

	span.AddAttributes(attribute.String("invitation.outcome", string(res.Outcome)))
	if res.Outcome == OutcomeInvited {
		observability.InvitationEvents.WithLabelValues("issued").Inc()
		s.publish(ctx, notifications.Event{
			Type:         notifications.EventInvitationIssued,
			ProjectID:    project.ID,
			ActorID:      in.InvitedByID,
			InvitationID: res.Invitation.ID,
			Email:        email,
			Role:         string(role),
		})
	}
	return res, nil
}

func (s *InvitationService) addExisting(ctx context.Context, project *models.Project, user *models.User, role models.Role, actorID uint) (*IssueResult, error) {
	if user.ID == project.OwnerID {
		return &IssueResult{Outcome: OutcomeAlreadyCollaborator}, nil
	}

	collab := &models.ProjectCollaborator{ProjectID: project.ID, UserID: user.ID, Role: role}
	if err := s.store.Collaborators().Create(ctx, collab); err != nil {
		if models.IsCode(err, models.CodeConflict) {
			existing, gerr := s.store.Collaborators().Get(ctx, project.ID, user.ID)
			if gerr != nil {
				return nil, gerr
			}
			return &IssueResult{Outcome: OutcomeAlreadyCollaborator, Collaborator: existing}, nil
		}
		return nil, err
	}
	collab.User = user

	observability.InvitationEvents.WithLabelValues("added").Inc()
	s.publish(ctx, notifications.Event{
		Type:        notifications.EventCollaboratorAdded,
		ProjectID:   project.ID,
		ActorID:     actorID,
		RecipientID: user.ID,
		Role:        string(role),
	})
	return &IssueResult{Outcome: OutcomeAdded, Collaborator: collab}, nil
}

func (s *InvitationService) issueOnce(ctx context.Context, projectID uint, email string, role models.Role, invitedBy uint, ttl time.Duration) (*IssueResult, error) {
	var res *IssueResult
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		now := s.now()
		existing, err := tx.Invitations().FindPending(ctx, projectID, email)
		if err != nil {
			return err
		}
		if existing != nil {
			if existing.IsLive(now) {
				res = &IssueResult{Outcome: OutcomeExistingInvitation, Invitation: existing}
				return nil
			}
			if _, err := tx.Invitations().MarkExpired(ctx, existing.ID); err != nil {
				return err
			}
			observability.InvitationEvents.WithLabelValues("expired").Inc()
		}

		token, err := s.newToken()
		if err != nil {
			return models.NewInternalError(err)
		}
		inv := &models.ProjectInvitation{
			ProjectID:   projectID,
			Email:       email,
			Role:        role,
			Token:       token,
			InvitedByID: invitedBy,
			Status:      models.InvitationStatusPending,
			ExpiresAt:   now.Add(ttl),
		}
		if err := tx.Invitations().Create(ctx, inv); err != nil {
			return err
		}
		res = &IssueResult{Outcome: OutcomeInvited, Invitation: inv}
		return nil
	})
	return res, err
}

// Resolve looks up a token and reports whether it can still be accepted.
// The returned invitation carries its project.
func (s *InvitationService) Resolve(ctx context.Context, token string) (*models.ProjectInvitation, error) {
	inv, err := s.store.Invitations().GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if err := checkAcceptable(inv, s.now()); err != nil {
		return nil, err
	}
	project, err := s.store.Projects().GetByID(ctx, inv.ProjectID)
	if err != nil {
		return nil, err
	}
	inv.Project = project
	return inv, nil
}

// checkAcceptable reports expiry ahead of use, so an accepted invitation
// past its expiry resolves as Expired.
func checkAcceptable(inv *models.ProjectInvitation, now time.Time) error {
	switch {
	case inv.Status == models.InvitationStatusExpired, inv.ExpiredAt(now):
		return models.NewExpiredError("This invitation has expired")
	case inv.Status != models.InvitationStatusPending:
		return models.NewAlreadyUsedError("This invitation has already been used")
	}
	return nil
}

// Accept makes the user a collaborator with the invitation's role. The
// user's email must match the invited address.
func (s *InvitationService) Accept(ctx context.Context, token string, userID uint) (collab *models.ProjectCollaborator, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "invitation", "Accept",
		attribute.Int64("user.id", int64(userID)))
	defer func() { span.End(err) }()

	inv, err := s.Resolve(ctx, token)
	if err != nil {
		return nil, err
	}
	user, err := s.store.Users().GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !models.EmailMatches(user.Email, inv.Email) {
		return nil, models.NewEmailMismatchError("This invitation was sent to a different email address")
	}

	err = s.store.WithTx(ctx, func(tx repository.Store) error {
		// Flip the status first so a concurrent accept blocks on the row and
		// then sees zero rows affected.
		ok, err := tx.Invitations().MarkAccepted(ctx, inv.ID, userID, s.now())
		if err != nil {
			return err
		}
		if !ok {
			return models.NewAlreadyUsedError("This invitation has already been used")
		}
		collab = &models.ProjectCollaborator{ProjectID: inv.ProjectID, UserID: userID, Role: inv.Role}
		return tx.Collaborators().Create(ctx, collab)
	})
	if err != nil {
		return nil, err
	}
	collab.Project = inv.Project

	observability.InvitationEvents.WithLabelValues("accepted").Inc()
	s.publish(ctx, notifications.Event{
		Type:         notifications.EventInvitationAccepted,
		ProjectID:    inv.ProjectID,
		ActorID:      userID,
		RecipientID:  inv.InvitedByID,
		InvitationID: inv.ID,
		Role:         string(inv.Role),
	})
	return collab, nil
}

// ListPending returns the project's live invitations. Owner only.
func (s *InvitationService) ListPending(ctx context.Context, projectID, callerID uint) ([]models.ProjectInvitation, error) {
	if _, err := access.NewEvaluator(s.store).RequireOwner(ctx, projectID, callerID); err != nil {
		return nil, err
	}
	return s.store.Invitations().ListPendingByProject(ctx, projectID, s.now())
}

// Revoke deletes a pending invitation. Owner only.
func (s *InvitationService) Revoke(ctx context.Context, projectID, invitationID, callerID uint) error {
	if _, err := access.NewEvaluator(s.store).RequireOwner(ctx, projectID, callerID); err != nil {
		return err
	}
	removed, err := s.store.Invitations().DeletePending(ctx, projectID, invitationID)
	if err != nil {
		return err
	}
	if !removed {
		return models.NewNotFoundError("Invitation", invitationID)
	}

	observability.InvitationEvents.WithLabelValues("revoked").Inc()
	s.publish(ctx, notifications.Event{
		Type:         notifications.EventInvitationRevoked,
		ProjectID:    projectID,
		ActorID:      callerID,
		InvitationID: invitationID,
	})
	return nil
}

// ListForUser returns live invitations addressed to the user's email.
func (s *InvitationService) ListForUser(ctx context.Context, userID uint) ([]models.ProjectInvitation, error) {
	user, err := s.store.Users().GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.store.Invitations().ListPendingByEmail(ctx, user.Email, s.now())
}

func (s *InvitationService) publish(ctx context.Context, ev notifications.Event) {
	if ev.At.IsZero() {
		ev.At = s.now()
	}
	publishEvent(ctx, s.publisher, ev)
}

// publishEvent is best effort; a failed publish never fails the request.
func publishEvent(ctx context.Context, pub EventPublisher, ev notifications.Event) {
	if pub == nil {
		return
	}
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	if err := pub.Publish(ctx, ev); err != nil {
		slog.WarnContext(ctx, "failed to publish project event", "type", ev.Type, "project_id", ev.ProjectID, "err", err)
	}
}
