package review

import (
	"errors"
	"time"

	"github.com/motohub/core/internal/models"
	"github.com/motohub/core/internal/modules/garage"
	"github.com/motohub/core/internal/pkg/pagination"
	"github.com/motohub/core/internal/pkg/response"
	"gorm.io/gorm"
)

var (
	ErrInvalidRating   = errors.New("rating must be between 1 and 5")
	ErrAlreadyReviewed = errors.New("you already reviewed this garage")
	ErrNotAuthor       = errors.New("only the review author can do that")
	ErrNotGarageOwner  = errors.New("only the garage owner can respond")
	ErrGarageNotFound  = errors.New("garage not found")
	ErrOwnGarage       = errors.New("you cannot review your own garage")
)

type CreateReviewDTO struct {
	GarageID string   `json:"garageId" binding:"required"`
	Title    string   `json:"title"`
	Content  string   `json:"content" binding:"required"`
	Rating   int      `json:"rating" binding:"required"`
	Images   []string `json:"images"`
}

type UpdateReviewDTO struct {
	Title   *string   `json:"title"`
	Content *string   `json:"content"`
	Rating  *int      `json:"rating"`
	Images  *[]string `json:"images"`
}

type RespondDTO struct {
	Response string `json:"response" binding:"required"`
}

type Service struct {
	db  *gorm.DB
	agg *garage.Aggregator
}

func NewService(db *gorm.DB, agg *garage.Aggregator) *Service {
	return &Service{db: db, agg: agg}
}

// Create stores the review and folds it into the garage aggregate inside one
// transaction, so the rating and reviews_count can never drift from the
// review rows.
func (s *Service) Create(userID string, dto *CreateReviewDTO) (*models.ReviewModel, error) {
	if dto.Rating < 1 || dto.Rating > 5 {
		return nil, ErrInvalidRating
	}

	var g models.GarageModel
	if err := s.db.First(&g, "id = ?", dto.GarageID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGarageNotFound
		}
		return nil, err
	}
	if g.OwnerID == userID {
		return nil, ErrOwnGarage
	}

	var existing int64
	if err := s.db.Model(&models.ReviewModel{}).
		Where("user_id = ? AND garage_id = ? AND is_active = ?", userID, dto.GarageID, true).
		Count(&existing).Error; err != nil {
		return nil, err
	}
	if existing > 0 {
		return nil, ErrAlreadyReviewed
	}

	r := models.ReviewModel{
		UserID:   userID,
		GarageID: dto.GarageID,
		Title:    dto.Title,
		Content:  dto.Content,
		Rating:   dto.Rating,
		Images:   dto.Images,
		IsActive: true,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&r).Error; err != nil {
			return err
		}
		return s.agg.OnReviewCreated(tx, dto.GarageID, dto.Rating)
	})
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *Service) GetByID(id string) (*models.ReviewModel, error) {
	var r models.ReviewModel
	if err := s.db.Preload("User").First(&r, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &r, nil
}

// GaragePage is one page of a garage's reviews with the live average over
// the whole active set, not just this page.
type GaragePage struct {
	Reviews       []models.ReviewModel
	AverageRating float64
}

func (s *Service) ListByGarage(garageID string, q pagination.Query) (GaragePage, response.Pagination, error) {
	query := s.db.Model(&models.ReviewModel{}).
		Preload("User").
		Where("garage_id = ? AND is_active = ?", garageID, true).
		Order("created_at DESC")

	var reviews []models.ReviewModel
	meta, err := pagination.Paginate(query, q, &reviews)
	if err != nil {
		return GaragePage{}, meta, err
	}

	var avg *float64
	err = s.db.Model(&models.ReviewModel{}).
		Select("AVG(rating)").
		Where("garage_id = ? AND is_active = ?", garageID, true).
		Scan(&avg).Error
	if err != nil {
		return GaragePage{}, meta, err
	}

	page := GaragePage{Reviews: reviews}
	if avg != nil {
		page.AverageRating = *avg
	}
	return page, meta, nil
}

func (s *Service) ListByUser(userID string, q pagination.Query) ([]models.ReviewModel, response.Pagination, error) {
	query := s.db.Model(&models.ReviewModel{}).
		Preload("Garage").
		Where("user_id = ? AND is_active = ?", userID, true).
		Order("created_at DESC")

	var reviews []models.ReviewModel
	meta, err := pagination.Paginate(query, q, &reviews)
	return reviews, meta, err
}

// Update edits the caller's review. A rating change triggers a full
// recalculation of the garage aggregate in the same transaction.
func (s *Service) Update(id, userID string, dto *UpdateReviewDTO) (*models.ReviewModel, error) {
	r, err := s.GetByID(id)
	if err != nil || r == nil {
		return r, err
	}
	if r.UserID != userID {
		return nil, ErrNotAuthor
	}

	updates := map[string]interface{}{}
	if dto.Title != nil {
		updates["title"] = *dto.Title
	}
	if dto.Content != nil {
		updates["content"] = *dto.Content
	}
	if dto.Images != nil {
		updates["images"] = models.StringArray(*dto.Images)
	}
	ratingChanged := false
	if dto.Rating != nil && *dto.Rating != r.Rating {
		if *dto.Rating < 1 || *dto.Rating > 5 {
			return nil, ErrInvalidRating
		}
		updates["rating"] = *dto.Rating
		ratingChanged = true
	}
	if len(updates) == 0 {
		return r, nil
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.ReviewModel{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return err
		}
		if ratingChanged {
			return s.agg.Recalculate(tx, r.GarageID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetByID(id)
}

// Deactivate soft-deletes a review and removes it from the garage aggregate.
func (s *Service) Deactivate(id, userID string, isAdmin bool) error {
	r, err := s.GetByID(id)
	if err != nil {
		return err
	}
	if r == nil {
		return gorm.ErrRecordNotFound
	}
	if r.UserID != userID && !isAdmin {
		return ErrNotAuthor
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.ReviewModel{}).Where("id = ?", id).Update("is_active", false).Error; err != nil {
			return err
		}
		return s.agg.Recalculate(tx, r.GarageID)
	})
}

// Respond records the garage owner's reply on a review.
func (s *Service) Respond(id, userID string, dto *RespondDTO) (*models.ReviewModel, error) {
	r, err := s.GetByID(id)
	if err != nil || r == nil {
		return r, err
	}

	var g models.GarageModel
	if err := s.db.First(&g, "id = ?", r.GarageID).Error; err != nil {
		return nil, err
	}
	if g.OwnerID != userID {
		return nil, ErrNotGarageOwner
	}

	now := time.Now()
	err = s.db.Model(&models.ReviewModel{}).Where("id = ?", id).Updates(map[string]interface{}{
		"owner_response": dto.Response,
		"response_date":  &now,
	}).Error
	if err != nil {
		return nil, err
	}
	return s.GetByID(id)
}
