package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vidfriends/vidvault/internal/apperrors"
	"github.com/vidfriends/vidvault/internal/logging"
	"github.com/vidfriends/vidvault/internal/models"
	"github.com/vidfriends/vidvault/internal/repositories"
)

// UserStore captures the persistence operations required by the account service.
type UserStore interface {
	Create(ctx context.Context, user models.User) error
	FindByEmail(ctx context.Context, email string) (models.User, error)
	FindByID(ctx context.Context, id string) (models.User, error)
	Activate(ctx context.Context, id string) error
	SetRefreshToken(ctx context.Context, id, token string) error
	UpdateProfile(ctx context.Context, user models.User) error
}

// TokenIssuer issues and verifies tokens.
type TokenIssuer interface {
	Issue(kind TokenKind, subject Subject) (string, error)
	Verify(kind TokenKind, token string) (Claims, error)
}

// Mailer delivers account verification links.
type Mailer interface {
	SendVerification(ctx context.Context, to models.User, link string) error
}

// Session is returned by login and refresh.
type Session struct {
	User         models.User `json:"user"`
	AccessToken  string      `json:"accessToken"`
	RefreshToken string      `json:"refreshToken,omitempty"`
}

// RegisterInput carries the fields for a new account.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

// ProfileUpdate lists the mutable profile fields. Nil fields are left unchanged.
type ProfileUpdate struct {
	Name     *string
	Password *string
}

// Service implements registration, login, token refresh and profile updates.
type Service struct {
	users     UserStore
	tokens    TokenIssuer
	hasher    Hasher
	mailer    Mailer
	clientURL string
	now       func() time.Time
}

// NewService wires the account service.
func NewService(users UserStore, tokens TokenIssuer, hasher Hasher, mailer Mailer, clientURL string) *Service {
	return &Service{
		users:     users,
		tokens:    tokens,
		hasher:    hasher,
		mailer:    mailer,
		clientURL: strings.TrimSuffix(clientURL, "/"),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Register creates an inactive account and mails its verification link.
func (s *Service) Register(ctx context.Context, in RegisterInput) (models.User, error) {
	logger := logging.FromContext(ctx)

	email := normalizeEmail(in.Email)
	if email == "" || in.Password == "" || strings.TrimSpace(in.Name) == "" {
		return models.User{}, apperrors.BadRequest("missing required fields")
	}

	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return models.User{}, apperrors.Conflict("email already exists")
	} else if !errors.Is(err, repositories.ErrNotFound) {
		return models.User{}, apperrors.Internal("lookup user by email", err)
	}

	hashed, err := s.hasher.Hash(in.Password)
	if err != nil {
		return models.User{}, apperrors.Internal("hash password", err)
	}

	user := models.User{
		ID:        uuid.NewString(),
		Name:      strings.TrimSpace(in.Name),
		Email:     email,
		Password:  hashed,
		IsActive:  false,
		CreatedAt: s.now(),
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			return models.User{}, apperrors.Conflict("email already exists")
		}
		return models.User{}, apperrors.Internal("create user", err)
	}

	token, err := s.tokens.Issue(TokenEmail, subjectOf(user))
	if err != nil {
		return models.User{}, apperrors.Internal("issue email token", err)
	}

	link := s.clientURL + "/email_verify/" + token
	if err := s.mailer.SendVerification(ctx, user, link); err != nil {
		logger.Error("verification email failed", "userId", user.ID, "error", err)
		return models.User{}, apperrors.Internal("send verification email", err)
	}

	logger.Info("user registered", "userId", user.ID)
	return user, nil
}

// VerifyEmail activates the account named by an email verification token.
// Activating an already active account is a no-op.
func (s *Service) VerifyEmail(ctx context.Context, token string) (models.User, error) {
	claims, err := s.tokens.Verify(TokenEmail, token)
	if err != nil {
		return models.User{}, apperrors.Unauthorized(err.Error())
	}

	user, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return models.User{}, apperrors.NotFound("user not found")
		}
		return models.User{}, apperrors.Internal("load user", err)
	}

	if !user.IsActive {
		if err := s.users.Activate(ctx, user.ID); err != nil {
			return models.User{}, apperrors.Internal("activate user", err)
		}
		user.IsActive = true
		logging.FromContext(ctx).Info("user activated", "userId", user.ID)
	}

	return user, nil
}

// Login checks credentials and issues a fresh access and refresh token pair.
// The new refresh token replaces any previously stored one.
func (s *Service) Login(ctx context.Context, email, password string) (Session, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return Session{}, apperrors.BadRequest("missing required fields")
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return Session{}, apperrors.Unauthorized("invalid credentials")
		}
		return Session{}, apperrors.Internal("lookup user by email", err)
	}

	if !user.IsActive {
		return Session{}, apperrors.Unauthorized("user is not active, need to activate first")
	}

	if err := s.hasher.Compare(user.Password, password); err != nil {
		logging.FromContext(ctx).Warn("login password mismatch", "userId", user.ID)
		return Session{}, apperrors.Unauthorized("invalid credentials")
	}

	return s.issueSession(ctx, user)
}

// Refresh exchanges the user's current refresh token for a new session.
// Only the most recently stored refresh token is accepted.
func (s *Service) Refresh(ctx context.Context, token string) (Session, error) {
	token = StripBearer(token)
	if token == "" {
		return Session{}, apperrors.BadRequest("missing token")
	}

	claims, err := s.tokens.Verify(TokenRefresh, token)
	if err != nil {
		return Session{}, apperrors.Unauthorized("invalid refresh token")
	}

	user, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return Session{}, apperrors.Unauthorized("invalid refresh token")
		}
		return Session{}, apperrors.Internal("load user", err)
	}

	if user.RefreshToken != token {
		return Session{}, apperrors.Unauthorized("invalid refresh token")
	}

	return s.issueSession(ctx, user)
}

// UpdateProfile changes the name and/or password of the caller's own account.
func (s *Service) UpdateProfile(ctx context.Context, bearer, userID string, update ProfileUpdate) (models.User, error) {
	if StripBearer(bearer) == "" {
		return models.User{}, apperrors.Unauthorized("missing token")
	}

	claims, err := s.tokens.Verify(TokenAccess, bearer)
	if err != nil {
		return models.User{}, apperrors.Unauthorized(err.Error())
	}
	if claims.UserID != userID {
		return models.User{}, apperrors.Unauthorized("invalid user")
	}

	if update.Name == nil && update.Password == nil {
		return models.User{}, apperrors.BadRequest("nothing to update")
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return models.User{}, apperrors.NotFound("user not found")
		}
		return models.User{}, apperrors.Internal("load user", err)
	}

	if update.Name != nil {
		name := strings.TrimSpace(*update.Name)
		if name == "" {
			return models.User{}, apperrors.BadRequest("name must not be empty")
		}
		user.Name = name
	}
	if update.Password != nil {
		if *update.Password == "" {
			return models.User{}, apperrors.BadRequest("password must not be empty")
		}
		hashed, err := s.hasher.Hash(*update.Password)
		if err != nil {
			return models.User{}, apperrors.Internal("hash password", err)
		}
		user.Password = hashed
	}

	if err := s.users.UpdateProfile(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return models.User{}, apperrors.NotFound("user not found")
		}
		return models.User{}, apperrors.Internal("update user", err)
	}

	return user, nil
}

func (s *Service) issueSession(ctx context.Context, user models.User) (Session, error) {
	subject := subjectOf(user)

	access, err := s.tokens.Issue(TokenAccess, subject)
	if err != nil {
		return Session{}, apperrors.Internal("issue access token", err)
	}
	refresh, err := s.tokens.Issue(TokenRefresh, subject)
	if err != nil {
		return Session{}, apperrors.Internal("issue refresh token", err)
	}

	if err := s.users.SetRefreshToken(ctx, user.ID, refresh); err != nil {
		return Session{}, apperrors.Internal("store refresh token", err)
	}
	user.RefreshToken = refresh

	return Session{User: user, AccessToken: access, RefreshToken: refresh}, nil
}

func subjectOf(user models.User) Subject {
	return Subject{ID: user.ID, Email: user.Email, Name: user.Name}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
