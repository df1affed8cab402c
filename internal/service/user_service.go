package service

import (
	"context"
	"log/slog"
	"strings"

	"fieldcase/internal/models"
	"fieldcase/internal/repository"
	"fieldcase/internal/validation"

	"golang.org/x/crypto/bcrypt"
)

const maxDisplayNameLen = 100

type UserService struct {
	store       repository.Store
	invitations *InvitationService
	bcryptCost  int
}

type RegisterInput struct {
	Username        string
	Email           string
	Password        string
	DisplayName     string
	InvitationToken string
}

// RegisterResult carries the new user and, when an invitation token was
// accepted during signup, the resulting collaborator row.
type RegisterResult struct {
	User         *models.User
	Collaborator *models.ProjectCollaborator
}

// UpdateProfileInput changes only the non-nil fields.
type UpdateProfileInput struct {
	UserID      uint
	DisplayName *string
	Email       *string
}

// NewUserService returns a UserService. invitations may be nil when signup
// with an invitation token is not offered.
func NewUserService(store repository.Store, invitations *InvitationService) *UserService {
	return &UserService{store: store, invitations: invitations, bcryptCost: bcrypt.DefaultCost}
}

// Register creates an account. With an invitation token, the invitation is
// checked before the account exists and accepted right after.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*RegisterResult, error) {
	username := strings.TrimSpace(in.Username)
	email := models.NormalizeEmail(in.Email)
	displayName := strings.TrimSpace(in.DisplayName)

	if err := validation.ValidateUsername(username); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidateEmail(email); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidatePassword(in.Password); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if len(displayName) > maxDisplayNameLen {
		return nil, models.NewValidationError("Display name too long (max 100 characters)")
	}
	if displayName == "" {
		displayName = username
	}

	token := strings.TrimSpace(in.InvitationToken)
	if token != "" {
		if s.invitations == nil {
			return nil, models.NewValidationError("Invitations are not available")
		}
		inv, err := s.invitations.Resolve(ctx, token)
		if err != nil {
			return nil, err
		}
		if !models.EmailMatches(inv.Email, email) {
			return nil, models.NewEmailMismatchError("This invitation was sent to a different email address")
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.bcryptCost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	user := &models.User{
		Username:    username,
		Email:       email,
		Password:    string(hash),
		DisplayName: displayName,
	}
	if err := s.store.Users().Create(ctx, user); err != nil {
		return nil, err
	}

	res := &RegisterResult{User: user}
	if token != "" {
		// The account exists either way; a lost race on the invitation only
		// means the user has to be invited again.
		collab, err := s.invitations.Accept(ctx, token, user.ID)
		if err != nil {
			slog.WarnContext(ctx, "invitation not accepted during signup", "user_id", user.ID, "err", err)
		} else {
			res.Collaborator = collab
		}
	}
	return res, nil
}

// Authenticate checks an email/password pair. Unknown email and wrong
// password are indistinguishable to the caller.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.store.Users().GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil || bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		return nil, models.NewUnauthorizedError("Invalid email or password")
	}
	return user, nil
}

func (s *UserService) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	return s.store.Users().GetByID(ctx, id)
}

func (s *UserService) UpdateProfile(ctx context.Context, in UpdateProfileInput) (*models.User, error) {
	user, err := s.store.Users().GetByID(ctx, in.UserID)
	if err != nil {
		return nil, err
	}

	if in.DisplayName != nil {
		name := strings.TrimSpace(*in.DisplayName)
		if len(name) > maxDisplayNameLen {
			return nil, models.NewValidationError("Display name too long (max 100 characters)")
		}
		user.DisplayName = name
	}
	if in.Email != nil {
		email := models.NormalizeEmail(*in.Email)
		if err := validation.ValidateEmail(email); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		user.Email = email
	}

	if err := s.store.Users().UpdateProfile(ctx, user.ID, user.DisplayName, user.Email); err != nil {
		return nil, err
	}
	return user, nil
}
