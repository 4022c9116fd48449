package garage

import (
	"fmt"
	"math"

	"github.com/motohub/core/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Aggregator maintains the denormalized rating and reviews_count columns on
// garages. All mutations run inside a transaction holding a row lock on the
// garage, so concurrent review writes serialize instead of losing updates.
type Aggregator struct {
	db *gorm.DB
}

func NewAggregator(db *gorm.DB) *Aggregator {
	return &Aggregator{db: db}
}

// round2 rounds half-up to two decimal places.
func round2(v float64) float64 {
	return math.Floor(v*100+0.5) / 100
}

// lockForUpdate takes a row lock where the dialect supports it. SQLite
// serializes writers on its own.
func lockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "mysql" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}

// OnReviewCreated folds a new review into the garage aggregate using the
// incremental mean: (rating*count + new) / (count + 1).
func (a *Aggregator) OnReviewCreated(tx *gorm.DB, garageID string, rating int) error {
	var g models.GarageModel
	if err := lockForUpdate(tx).
		First(&g, "id = ?", garageID).Error; err != nil {
		return fmt.Errorf("lock garage %s: %w", garageID, err)
	}

	count := g.ReviewsCount + 1
	mean := round2((g.Rating*float64(g.ReviewsCount) + float64(rating)) / float64(count))

	return tx.Model(&models.GarageModel{}).
		Where("id = ?", garageID).
		Updates(map[string]interface{}{
			"rating":        mean,
			"reviews_count": count,
		}).Error
}

// Recalculate recomputes the aggregate from the full active review set. Used
// when a review's rating changes or a review is deactivated, where the
// incremental form cannot be applied. With no active reviews both columns
// reset to zero.
func (a *Aggregator) Recalculate(tx *gorm.DB, garageID string) error {
	if err := lockForUpdate(tx).
		First(&models.GarageModel{}, "id = ?", garageID).Error; err != nil {
		return fmt.Errorf("lock garage %s: %w", garageID, err)
	}

	var stats struct {
		Count int64
		Sum   float64
	}
	err := tx.Model(&models.ReviewModel{}).
		Select("COUNT(*) AS count, COALESCE(SUM(rating), 0) AS sum").
		Where("garage_id = ? AND is_active = ?", garageID, true).
		Scan(&stats).Error
	if err != nil {
		return err
	}

	rating := 0.0
	if stats.Count > 0 {
		rating = round2(stats.Sum / float64(stats.Count))
	}

	return tx.Model(&models.GarageModel{}).
		Where("id = ?", garageID).
		Updates(map[string]interface{}{
			"rating":        rating,
			"reviews_count": stats.Count,
		}).Error
}
