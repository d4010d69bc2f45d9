package users

import (
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/numistry/cointrade-api/internal/types"
	"github.com/numistry/cointrade-api/pkg/apperrors"
)

// Service owns user records and acts as the user directory for projections.
type Service struct {
	db *Database
}

func NewService(gormDB *gorm.DB) *Service {
	return &Service{
		db: NewDatabase(gormDB),
	}
}

// Register creates a new user account with the default role.
func (s *Service) Register(username, password, displayName string) (*User, error) {
	existing, err := s.db.GetUserByUsername(username)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, "failed to check username", err)
	}
	if existing != nil {
		return nil, apperrors.New(apperrors.KindConflict, "username is already taken")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, "failed to hash password", err)
	}

	user := &User{
		UserID:       "USR_" + uuid.New().String(),
		Username:     username,
		DisplayName:  displayName,
		PasswordHash: string(hash),
		Role:         RoleUser,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}

	if err := s.db.CreateUser(user); err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, "failed to create user", err)
	}

	log.Info().
		Str("user_id", user.UserID).
		Str("username", user.Username).
		Msg("registered new user")

	return user, nil
}

// Authenticate verifies a username/password pair and returns the user.
func (s *Service) Authenticate(username, password string) (*User, error) {
	user, err := s.db.GetUserByUsername(username)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, "failed to look up user", err)
	}
	if user == nil {
		return nil, apperrors.New(apperrors.KindUnauthenticated, "invalid username or password")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, apperrors.New(apperrors.KindUnauthenticated, "invalid username or password")
	}

	return user, nil
}

// GetPublicProfile resolves a user reference to its display-friendly view.
func (s *Service) GetPublicProfile(userID string) (*types.PublicProfile, error) {
	user, err := s.db.GetUser(userID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, "failed to look up user", err)
	}
	if user == nil {
		return nil, apperrors.New(apperrors.KindNotFound, "user not found")
	}

	return &types.PublicProfile{
		UserID:      user.UserID,
		Username:    user.Username,
		DisplayName: user.DisplayName,
		AvatarURL:   user.AvatarURL,
	}, nil
}

// EnsureModerator creates or promotes a moderator account. Called at startup
// when moderator credentials are configured.
func (s *Service) EnsureModerator(username, password string) error {
	existing, err := s.db.GetUserByUsername(username)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	moderator := &User{
		UserID:       "USR_" + uuid.New().String(),
		Username:     username,
		DisplayName:  username,
		PasswordHash: string(hash),
		Role:         RoleModerator,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}

	return s.db.CreateUser(moderator)
}
