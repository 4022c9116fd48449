package auth

import (
	"testing"

	"github.com/motohub/core/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&models.UserModel{}, &models.UserSession{}))
	return NewService(db, nil, nil, nil, "MotoHub", "http://localhost:3000"), db
}

func TestRegisterHashesPassword(t *testing.T) {
	svc, _ := newTestService(t)

	u, err := svc.Register(&RegisterDTO{Email: "rider@example.com", Password: "s3cret-pass", Name: "Rider"})
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret-pass", u.Password)
	assert.False(t, u.IsVerified)
	require.NotNil(t, u.VerificationToken)
	assert.NotEmpty(t, *u.VerificationToken)
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Register(&RegisterDTO{Email: "rider@example.com", Password: "s3cret-pass", Name: "Rider"})
	require.NoError(t, err)

	_, err = svc.Register(&RegisterDTO{Email: "rider@example.com", Password: "other-pass", Name: "Clone"})
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestLoginIssuesSessionBoundToken(t *testing.T) {
	svc, db := newTestService(t)

	_, err := svc.Register(&RegisterDTO{Email: "rider@example.com", Password: "s3cret-pass", Name: "Rider"})
	require.NoError(t, err)

	u, pair, err := svc.Login(&LoginDTO{Email: "rider@example.com", Password: "s3cret-pass"}, "127.0.0.1", "test")
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)
	assert.NotNil(t, u.LastLogin)

	var sessions int64
	require.NoError(t, db.Model(&models.UserSession{}).Where("user_id = ?", u.ID).Count(&sessions).Error)
	assert.EqualValues(t, 1, sessions)
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Register(&RegisterDTO{Email: "rider@example.com", Password: "s3cret-pass", Name: "Rider"})
	require.NoError(t, err)

	_, _, err = svc.Login(&LoginDTO{Email: "rider@example.com", Password: "wrong"}, "", "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = svc.Login(&LoginDTO{Email: "ghost@example.com", Password: "whatever"}, "", "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRefreshRotatesToken(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Register(&RegisterDTO{Email: "rider@example.com", Password: "s3cret-pass", Name: "Rider"})
	require.NoError(t, err)
	_, pair, err := svc.Login(&LoginDTO{Email: "rider@example.com", Password: "s3cret-pass"}, "", "")
	require.NoError(t, err)

	next, err := svc.Refresh(&RefreshDTO{RefreshToken: pair.RefreshToken}, "", "")
	require.NoError(t, err)
	assert.NotEqual(t, pair.RefreshToken, next.RefreshToken)

	// The old token is spent.
	_, err = svc.Refresh(&RefreshDTO{RefreshToken: pair.RefreshToken}, "", "")
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
}

func TestVerifyEmailConsumesToken(t *testing.T) {
	svc, db := newTestService(t)

	u, err := svc.Register(&RegisterDTO{Email: "rider@example.com", Password: "s3cret-pass", Name: "Rider"})
	require.NoError(t, err)

	require.NoError(t, svc.VerifyEmail(*u.VerificationToken))

	var got models.UserModel
	require.NoError(t, db.First(&got, "id = ?", u.ID).Error)
	assert.True(t, got.IsVerified)
	assert.Nil(t, got.VerificationToken)

	assert.ErrorIs(t, svc.VerifyEmail("bogus"), ErrInvalidVerifyToken)
}

func TestLogoutInvalidatesRefreshToken(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Register(&RegisterDTO{Email: "rider@example.com", Password: "s3cret-pass", Name: "Rider"})
	require.NoError(t, err)
	u, pair, err := svc.Login(&LoginDTO{Email: "rider@example.com", Password: "s3cret-pass"}, "", "")
	require.NoError(t, err)

	require.NoError(t, svc.Logout(u.ID, ""))

	_, err = svc.Refresh(&RefreshDTO{RefreshToken: pair.RefreshToken}, "", "")
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
}
