package server

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"fieldcase/internal/featureflags"
	"fieldcase/internal/middleware"
	"fieldcase/internal/models"
	"fieldcase/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const accessTokenTTL = 7 * 24 * time.Hour

var errNoJWTSecret = errors.New("JWT secret not configured")

type signupRequest struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	DisplayName     string `json:"display_name"`
	InvitationToken string `json:"invitation_token"`
}

// Signup handles POST /api/auth/signup
// @Summary User signup
// @Description Register a new account. An invitation token sent to the same email joins its project.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body signupRequest true "Signup request"
// @Success 201 {object} object{token=string,user=models.User,collaborator=models.ProjectCollaborator}
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /auth/signup [post]
func (s *Server) Signup(c *fiber.Ctx) error {
	var req signupRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	if req.Username == "" || req.Email == "" || req.Password == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Username, email, and password are required"))
	}

	if s.flags.Enabled(featureflags.InviteOnly, 0) && strings.TrimSpace(req.InvitationToken) == "" {
		return models.RespondWithError(c, fiber.StatusForbidden,
			models.NewForbiddenError("Signup requires an invitation"))
	}

	res, err := s.userService.Register(c.UserContext(), service.RegisterInput{
		Username:        req.Username,
		Email:           req.Email,
		Password:        req.Password,
		DisplayName:     req.DisplayName,
		InvitationToken: req.InvitationToken,
	})
	if err != nil {
		return respondServiceError(c, err)
	}

	token, err := s.generateToken(res.User.ID, res.User.Username)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError,
			models.NewInternalError(err))
	}

	body := fiber.Map{
		"token": token,
		"user":  res.User,
	}
	if res.Collaborator != nil {
		body["collaborator"] = res.Collaborator
	}
	return c.Status(fiber.StatusCreated).JSON(body)
}

// Login handles POST /api/auth/login
// @Summary User login
// @Description Authenticate user and return JWT token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body object{email=string,password=string} true "Login credentials"
// @Success 200 {object} object{token=string,user=models.User}
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /auth/login [post]
func (s *Server) Login(c *fiber.Ctx) error {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	user, err := s.userService.Authenticate(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return respondServiceError(c, err)
	}

	token, err := s.generateToken(user.ID, user.Username)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError,
			models.NewInternalError(err))
	}

	return c.JSON(fiber.Map{
		"token": token,
		"user":  user,
	})
}

// Logout handles POST /api/auth/logout
// @Summary Revoke the current access token
// @Tags auth
// @Security BearerAuth
// @Success 200 {object} object{message=string}
// @Router /auth/logout [post]
func (s *Server) Logout(c *fiber.Ctx) error {
	jti, _ := c.Locals("tokenID").(string)
	if jti != "" && s.redis != nil {
		ttl := accessTokenTTL
		if exp, err := s.tokenExpiry(middleware.BearerToken(c)); err == nil {
			ttl = time.Until(exp)
		}
		if ttl > 0 {
			if err := s.redis.Set(c.UserContext(), middleware.RevokedTokenKey(jti), "1", ttl).Err(); err != nil {
				return models.RespondWithError(c, fiber.StatusInternalServerError,
					models.NewInternalError(err))
			}
		}
	}
	return c.JSON(fiber.Map{"message": "Logged out"})
}

// generateToken creates a JWT token for the given user ID and username
func (s *Server) generateToken(userID uint, username string) (string, error) {
	if strings.TrimSpace(s.config.JWTSecret) == "" {
		return "", errNoJWTSecret
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"sub":      strconv.FormatUint(uint64(userID), 10),
		"username": username,
		"iss":      middleware.TokenIssuer,
		"aud":      middleware.TokenAudience,
		"exp":      now.Add(accessTokenTTL).Unix(),
		"iat":      now.Unix(),
		"nbf":      now.Unix(),
		"jti":      uuid.NewString(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.JWTSecret))
}

// tokenExpiry reads "exp" from an already-validated token.
func (s *Server) tokenExpiry(tokenString string) (time.Time, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
		return time.Time{}, err
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, errors.New("token has no expiry")
	}
	return exp.Time, nil
}
