package auth

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/pbaille/autojournal/internal/domain"
	appErrors "github.com/pbaille/autojournal/internal/errors"
)

// Users is the user persistence auth needs.
type Users interface {
	CreateUser(ctx context.Context, u *domain.User) error
	GetUser(ctx context.Context, userID string) (*domain.User, error)
	UpdateSettings(ctx context.Context, userID string, s domain.Settings) (*domain.User, error)
}

// Session is what register and login hand back to the client.
type Session struct {
	Token string       `json:"token"`
	User  *domain.User `json:"user"`
}

// Service handles registration, login and user settings.
type Service struct {
	users  Users
	tokens *Tokens
	logger *zap.Logger
	cost   int
}

// NewService creates a Service.
func NewService(users Users, tokens *Tokens, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{users: users, tokens: tokens, logger: logger, cost: bcrypt.DefaultCost}
}

// HashPassword returns the bcrypt hash of password.
func HashPassword(password string, cost int) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", appErrors.NewValidation("password cannot be hashed: " + err.Error())
	}
	return string(hash), nil
}

func credentials(userID, password string) (string, error) {
	userID = strings.TrimSpace(userID)
	var missing []string
	if userID == "" {
		missing = append(missing, "userId")
	}
	if password == "" {
		missing = append(missing, "password")
	}
	if len(missing) > 0 {
		return "", appErrors.NewMissingField(missing...)
	}
	return userID, nil
}

// Register creates a user with default settings and signs them in.
func (s *Service) Register(ctx context.Context, userID, password string) (*Session, error) {
	userID, err := credentials(userID, password)
	if err != nil {
		return nil, err
	}
	hash, err := HashPassword(password, s.cost)
	if err != nil {
		return nil, err
	}
	u := &domain.User{UserID: userID, PasswordHash: hash, Settings: domain.DefaultSettings()}
	if err := s.users.CreateUser(ctx, u); err != nil {
		return nil, err
	}
	s.logger.Info("user registered", zap.String("user", userID))
	return s.session(u)
}

// Login checks the password and signs the user in.
func (s *Service) Login(ctx context.Context, userID, password string) (*Session, error) {
	userID, err := credentials(userID, password)
	if err != nil {
		return nil, err
	}
	u, err := s.users.GetUser(ctx, userID)
	if appErrors.IsNotFound(err) {
		return nil, appErrors.NewUnauthorized("invalid credentials")
	}
	if err != nil {
		return nil, err
	}
	if u.PasswordHash == "" {
		return nil, appErrors.NewUnauthorized("please reset your password")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		if !errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			s.logger.Warn("password check failed", zap.String("user", userID), zap.Error(err))
		}
		return nil, appErrors.NewUnauthorized("invalid credentials")
	}
	return s.session(u)
}

func (s *Service) session(u *domain.User) (*Session, error) {
	token, err := s.tokens.Issue(u.UserID)
	if err != nil {
		return nil, appErrors.NewInternal("issue token", err)
	}
	return &Session{Token: token, User: u}, nil
}

// Authenticate resolves a token to its user.
func (s *Service) Authenticate(ctx context.Context, token string) (*domain.User, error) {
	userID, err := s.tokens.Verify(token)
	if err != nil {
		return nil, appErrors.NewUnauthorized(err.Error())
	}
	u, err := s.users.GetUser(ctx, userID)
	if appErrors.IsNotFound(err) {
		return nil, appErrors.NewUnauthorized("user not found")
	}
	return u, err
}

// UpdateSettings merges patch into the user's settings.
func (s *Service) UpdateSettings(ctx context.Context, u *domain.User, patch domain.SettingsPatch) (*domain.User, error) {
	return s.users.UpdateSettings(ctx, u.UserID, patch.Apply(u.Settings))
}
