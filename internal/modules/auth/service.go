package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/motohub/core/internal/models"
	"github.com/motohub/core/internal/pkg/mail"
	"github.com/motohub/core/internal/pkg/redis"
	sessionpkg "github.com/motohub/core/internal/pkg/session"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrEmailTaken          = errors.New("email is already registered")
	ErrInvalidCredentials  = errors.New("invalid email or password")
	ErrAccountDisabled     = errors.New("account is disabled")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	ErrInvalidResetToken   = errors.New("invalid or expired reset token")
	ErrInvalidVerifyToken  = errors.New("invalid verification token")
)

const (
	resetTokenTTL    = 30 * time.Minute
	resetKeyPrefix   = "moto:pwreset:"
	failedLoginDelay = time.Second
)

type Service struct {
	db       *gorm.DB
	rdb      *redis.Client
	sender   *mail.Sender
	log      *zap.Logger
	siteName string
	webURL   string
}

func NewService(db *gorm.DB, rdb *redis.Client, sender *mail.Sender, log *zap.Logger, siteName, webURL string) *Service {
	return &Service{db: db, rdb: rdb, sender: sender, log: log, siteName: siteName, webURL: webURL}
}

// Register creates the account and queues the verification mail. The unique
// index on email is the arbiter for concurrent signups with the same address.
func (s *Service) Register(dto *RegisterDTO) (*models.UserModel, error) {
	var count int64
	if err := s.db.Model(&models.UserModel{}).Where("email = ?", dto.Email).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(dto.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	verifyToken := uuid.NewString()
	u := models.UserModel{
		Email:             dto.Email,
		Password:          string(hash),
		Name:              dto.Name,
		BikeType:          models.BikeType(dto.BikeType),
		BikeModel:         dto.BikeModel,
		BikeYear:          dto.BikeYear,
		Role:              models.RoleUser,
		IsActive:          true,
		VerificationToken: &verifyToken,
		Notifications: models.NotificationPreferences{
			Alerts:   true,
			Posts:    true,
			Bookings: true,
		},
	}
	if err := s.db.Create(&u).Error; err != nil {
		// Lost the race on the unique email index.
		return nil, ErrEmailTaken
	}

	s.sendAsync(func() error {
		return s.sender.SendVerifyEmail(u.Email, mail.VerifyEmailData{
			Name:      u.Name,
			VerifyURL: fmt.Sprintf("%s/verify-email?token=%s", s.webURL, verifyToken),
			SiteName:  s.siteName,
		})
	})
	return &u, nil
}

// Login checks the password and hands back a session-bound JWT plus a rotating
// refresh token. Failed attempts are delayed to blunt guessing.
func (s *Service) Login(dto *LoginDTO, ip, ua string) (*models.UserModel, *TokenPair, error) {
	var u models.UserModel
	if err := s.db.Where("email = ?", dto.Email).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			time.Sleep(failedLoginDelay)
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(dto.Password)); err != nil {
		time.Sleep(failedLoginDelay)
		return nil, nil, ErrInvalidCredentials
	}
	if !u.IsActive {
		return nil, nil, ErrAccountDisabled
	}

	access, _, err := sessionpkg.Issue(s.db, u.ID, ip, ua, sessionpkg.DefaultTTL)
	if err != nil {
		return nil, nil, err
	}

	refresh, err := s.rotateRefreshToken(&u)
	if err != nil {
		return nil, nil, err
	}

	now := time.Now()
	u.LastLogin = &now
	if err := s.db.Model(&u).Updates(map[string]interface{}{
		"last_login":    &now,
		"refresh_token": u.RefreshToken,
	}).Error; err != nil {
		return nil, nil, err
	}

	return &u, &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// Refresh exchanges a valid refresh token for a fresh pair. The stored hash
// is rotated so a leaked token only works once.
func (s *Service) Refresh(dto *RefreshDTO, ip, ua string) (*TokenPair, error) {
	hashed := hashToken(dto.RefreshToken)

	var u models.UserModel
	if err := s.db.Where("refresh_token = ?", hashed).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidRefreshToken
		}
		return nil, err
	}
	if subtle.ConstantTimeCompare([]byte(u.RefreshToken), []byte(hashed)) != 1 {
		return nil, ErrInvalidRefreshToken
	}
	if !u.IsActive {
		return nil, ErrAccountDisabled
	}

	access, _, err := sessionpkg.Issue(s.db, u.ID, ip, ua, sessionpkg.DefaultTTL)
	if err != nil {
		return nil, err
	}
	refresh, err := s.rotateRefreshToken(&u)
	if err != nil {
		return nil, err
	}
	if err := s.db.Model(&u).Update("refresh_token", u.RefreshToken).Error; err != nil {
		return nil, err
	}

	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// Logout revokes the current session and invalidates the refresh token.
func (s *Service) Logout(userID, sessionID string) error {
	if sessionID != "" {
		if err := sessionpkg.Revoke(s.db, userID, sessionID); err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
	}
	return s.db.Model(&models.UserModel{}).Where("id = ?", userID).
		Update("refresh_token", "").Error
}

func (s *Service) VerifyEmail(token string) error {
	res := s.db.Model(&models.UserModel{}).
		Where("verification_token = ?", token).
		Updates(map[string]interface{}{
			"is_verified":        true,
			"verification_token": nil,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrInvalidVerifyToken
	}
	return nil
}

// RequestPasswordReset stores a one-shot token in redis and mails the link.
// The response is identical whether the address exists or not.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	var u models.UserModel
	if err := s.db.Where("email = ? AND is_active = ?", email, true).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}

	token, err := randomToken()
	if err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, resetKeyPrefix+token, u.ID, resetTokenTTL); err != nil {
		return err
	}

	s.sendAsync(func() error {
		return s.sender.SendPasswordReset(u.Email, mail.PasswordResetData{
			Name:      u.Name,
			ResetURL:  fmt.Sprintf("%s/reset-password?token=%s", s.webURL, token),
			ExpiresIn: "30 minutes",
			SiteName:  s.siteName,
		})
	})
	return nil
}

// ConfirmPasswordReset consumes the token, sets the new password and revokes
// every open session.
func (s *Service) ConfirmPasswordReset(ctx context.Context, dto *ResetConfirmDTO) error {
	key := resetKeyPrefix + dto.Token
	userID, err := s.rdb.Get(ctx, key)
	if err != nil || userID == "" {
		return ErrInvalidResetToken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(dto.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.UserModel{}).Where("id = ?", userID).
			Updates(map[string]interface{}{
				"password":      string(hash),
				"refresh_token": "",
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrInvalidResetToken
		}
		return sessionpkg.RevokeAllExcept(tx, userID, "")
	})
	if err != nil {
		return err
	}

	_ = s.rdb.Del(ctx, key)
	return nil
}

// rotateRefreshToken writes the new hash onto u and returns the plaintext.
func (s *Service) rotateRefreshToken(u *models.UserModel) (string, error) {
	token, err := randomToken()
	if err != nil {
		return "", err
	}
	u.RefreshToken = hashToken(token)
	return token, nil
}

func (s *Service) sendAsync(fn func() error) {
	if s.sender == nil {
		return
	}
	go func() {
		if err := fn(); err != nil && s.log != nil {
			s.log.Warn("mail delivery failed", zap.Error(err))
		}
	}()
}

func randomToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
