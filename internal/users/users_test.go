package users

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/numistry/cointrade-api/pkg/apperrors"
)

func newTestService(t *testing.T) *Service {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.New().String())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&User{}))

	return NewService(db)
}

func TestRegisterAndAuthenticate(t *testing.T) {
	s := newTestService(t)

	user, err := s.Register("coinhoarder", "correct horse battery", "The Hoarder")
	require.NoError(t, err)
	assert.Contains(t, user.UserID, "USR_")
	assert.Equal(t, RoleUser, user.Role)
	assert.NotEqual(t, "correct horse battery", user.PasswordHash)

	authed, err := s.Authenticate("coinhoarder", "correct horse battery")
	require.NoError(t, err)
	assert.Equal(t, user.UserID, authed.UserID)
}

func TestRegister_DuplicateUsername(t *testing.T) {
	s := newTestService(t)

	_, err := s.Register("coinhoarder", "correct horse battery", "")
	require.NoError(t, err)

	_, err = s.Register("coinhoarder", "another password", "")
	require.Error(t, err)
	assert.Equal(t, apperrors.KindConflict, apperrors.KindOf(err))
}

func TestAuthenticate_BadCredentials(t *testing.T) {
	s := newTestService(t)

	_, err := s.Register("coinhoarder", "correct horse battery", "")
	require.NoError(t, err)

	// Wrong password and unknown user produce the same error shape.
	_, err = s.Authenticate("coinhoarder", "wrong password")
	require.Error(t, err)
	assert.Equal(t, apperrors.KindUnauthenticated, apperrors.KindOf(err))

	_, err = s.Authenticate("nobody", "correct horse battery")
	require.Error(t, err)
	assert.Equal(t, apperrors.KindUnauthenticated, apperrors.KindOf(err))
}

func TestGetPublicProfile(t *testing.T) {
	s := newTestService(t)

	user, err := s.Register("coinhoarder", "correct horse battery", "The Hoarder")
	require.NoError(t, err)

	profile, err := s.GetPublicProfile(user.UserID)
	require.NoError(t, err)
	assert.Equal(t, user.UserID, profile.UserID)
	assert.Equal(t, "coinhoarder", profile.Username)
	assert.Equal(t, "The Hoarder", profile.DisplayName)

	_, err = s.GetPublicProfile("USR_missing")
	require.Error(t, err)
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
}

func TestEnsureModerator(t *testing.T) {
	s := newTestService(t)

	require.NoError(t, s.EnsureModerator("modsquad", "moderator password"))

	mod, err := s.Authenticate("modsquad", "moderator password")
	require.NoError(t, err)
	assert.Equal(t, RoleModerator, mod.Role)

	// Idempotent across restarts.
	require.NoError(t, s.EnsureModerator("modsquad", "moderator password"))
}
