package user

import (
	"errors"

	"github.com/motohub/core/internal/models"
	"github.com/motohub/core/internal/pkg/pagination"
	"github.com/motohub/core/internal/pkg/response"
	sessionpkg "github.com/motohub/core/internal/pkg/session"
	"gorm.io/gorm"
)

var (
	ErrInvalidBikeType = errors.New("unknown bike type")
	ErrInvalidRole     = errors.New("unknown role")
)

type UpdateProfileDTO struct {
	Name          *string                         `json:"name"`
	AvatarURL     *string                         `json:"avatarUrl"`
	BikeType      *string                         `json:"bikeType"`
	BikeModel     *string                         `json:"bikeModel"`
	BikeYear      *int                            `json:"bikeYear"`
	BikeMileage   *int                            `json:"bikeMileage"`
	FCMToken      *string                         `json:"fcmToken"`
	Notifications *models.NotificationPreferences `json:"notifications"`
}

type AdminUpdateDTO struct {
	Role     *string `json:"role"`
	IsActive *bool   `json:"isActive"`
}

// PublicProfile is the subset of a user exposed to other members.
type PublicProfile struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	AvatarURL string          `json:"avatarUrl"`
	BikeType  models.BikeType `json:"bikeType"`
	BikeModel string          `json:"bikeModel"`
	BikeYear  int             `json:"bikeYear"`
}

type Service struct{ db *gorm.DB }

func NewService(db *gorm.DB) *Service { return &Service{db: db} }

func (s *Service) GetByID(id string) (*models.UserModel, error) {
	var u models.UserModel
	if err := s.db.First(&u, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

func (s *Service) PublicByID(id string) (*PublicProfile, error) {
	u, err := s.GetByID(id)
	if err != nil || u == nil {
		return nil, err
	}
	if !u.IsActive {
		return nil, nil
	}
	return &PublicProfile{
		ID:        u.ID,
		Name:      u.Name,
		AvatarURL: u.AvatarURL,
		BikeType:  u.BikeType,
		BikeModel: u.BikeModel,
		BikeYear:  u.BikeYear,
	}, nil
}

func (s *Service) UpdateProfile(id string, dto *UpdateProfileDTO) (*models.UserModel, error) {
	u, err := s.GetByID(id)
	if err != nil || u == nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if dto.Name != nil {
		updates["name"] = *dto.Name
	}
	if dto.AvatarURL != nil {
		updates["avatar_url"] = *dto.AvatarURL
	}
	if dto.BikeType != nil {
		bt := models.BikeType(*dto.BikeType)
		if *dto.BikeType != "" && !validBikeType(bt) {
			return nil, ErrInvalidBikeType
		}
		updates["bike_type"] = bt
	}
	if dto.BikeModel != nil {
		updates["bike_model"] = *dto.BikeModel
	}
	if dto.BikeYear != nil {
		updates["bike_year"] = *dto.BikeYear
	}
	if dto.BikeMileage != nil {
		updates["bike_mileage"] = *dto.BikeMileage
	}
	if dto.FCMToken != nil {
		updates["fcm_token"] = *dto.FCMToken
	}
	if len(updates) > 0 {
		if err := s.db.Model(u).Updates(updates).Error; err != nil {
			return nil, err
		}
	}
	if dto.Notifications != nil {
		u.Notifications = *dto.Notifications
		if err := s.db.Model(u).Update("notifications", u.Notifications).Error; err != nil {
			return nil, err
		}
	}
	return s.GetByID(id)
}

// List pages over accounts for the admin surface.
func (s *Service) List(q pagination.Query, role string) ([]models.UserModel, response.Pagination, error) {
	query := s.db.Model(&models.UserModel{}).Order("created_at DESC")
	if role != "" {
		query = query.Where("role = ?", role)
	}

	var users []models.UserModel
	meta, err := pagination.Paginate(query, q, &users)
	return users, meta, err
}

// AdminUpdate changes role or active flag. Deactivation revokes all sessions.
func (s *Service) AdminUpdate(id string, dto *AdminUpdateDTO) (*models.UserModel, error) {
	u, err := s.GetByID(id)
	if err != nil || u == nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if dto.Role != nil {
		r := models.UserRole(*dto.Role)
		if r != models.RoleUser && r != models.RoleGarage && r != models.RoleAdmin {
			return nil, ErrInvalidRole
		}
		updates["role"] = r
	}
	if dto.IsActive != nil {
		updates["is_active"] = *dto.IsActive
	}
	if len(updates) > 0 {
		if err := s.db.Model(u).Updates(updates).Error; err != nil {
			return nil, err
		}
	}
	if dto.IsActive != nil && !*dto.IsActive {
		if err := sessionpkg.RevokeAllExcept(s.db, id, ""); err != nil {
			return nil, err
		}
	}
	return s.GetByID(id)
}

// Deactivate closes the account: sessions revoked, refresh token cleared,
// row kept for references from bookings and reviews.
func (s *Service) Deactivate(id string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.UserModel{}).Where("id = ?", id).
			Updates(map[string]interface{}{
				"is_active":     false,
				"refresh_token": "",
				"fcm_token":     "",
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return sessionpkg.RevokeAllExcept(tx, id, "")
	})
}

func validBikeType(t models.BikeType) bool {
	switch t {
	case models.BikeSport, models.BikeCruiser, models.BikeTouring,
		models.BikeAdventure, models.BikeStandard, models.BikeCustom:
		return true
	}
	return false
}
