package garage

import (
	"testing"

	"github.com/motohub/core/internal/models"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.UserModel{},
		&models.GarageModel{},
		&models.ReviewModel{},
	))
	return db
}

func seedGarage(t *testing.T, db *gorm.DB, ownerID string) *models.GarageModel {
	t.Helper()
	g := &models.GarageModel{
		Name:    "Twin Cam Motorworks",
		OwnerID: ownerID,
		Status:  models.GarageActive,
	}
	require.NoError(t, db.Create(g).Error)
	return g
}

func seedReview(t *testing.T, db *gorm.DB, garageID, userID string, rating int) *models.ReviewModel {
	t.Helper()
	r := &models.ReviewModel{
		UserID:   userID,
		GarageID: garageID,
		Content:  "solid work on the valve clearances",
		Rating:   rating,
		IsActive: true,
	}
	require.NoError(t, db.Create(r).Error)
	return r
}

func TestOnReviewCreatedIncrementalMean(t *testing.T) {
	db := newTestDB(t)
	agg := NewAggregator(db)
	g := seedGarage(t, db, "owner-1")

	for i, rating := range []int{5, 4, 3} {
		seedReview(t, db, g.ID, string(rune('a'+i)), rating)
		require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
			return agg.OnReviewCreated(tx, g.ID, rating)
		}))
	}

	var got models.GarageModel
	require.NoError(t, db.First(&got, "id = ?", g.ID).Error)
	require.Equal(t, 3, got.ReviewsCount)
	require.InDelta(t, 4.0, got.Rating, 1e-9)
}

func TestRecalculateAfterDeactivation(t *testing.T) {
	db := newTestDB(t)
	agg := NewAggregator(db)
	g := seedGarage(t, db, "owner-1")

	r1 := seedReview(t, db, g.ID, "u1", 5)
	seedReview(t, db, g.ID, "u2", 4)
	r3 := seedReview(t, db, g.ID, "u3", 3)
	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return agg.Recalculate(tx, g.ID)
	}))

	require.NoError(t, db.Model(r3).Update("is_active", false).Error)
	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return agg.Recalculate(tx, g.ID)
	}))

	var got models.GarageModel
	require.NoError(t, db.First(&got, "id = ?", g.ID).Error)
	require.Equal(t, 2, got.ReviewsCount)
	require.InDelta(t, 4.5, got.Rating, 1e-9)

	// Deactivating the rest resets the aggregate to zero.
	require.NoError(t, db.Model(&models.ReviewModel{}).
		Where("garage_id = ?", g.ID).Update("is_active", false).Error)
	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return agg.Recalculate(tx, g.ID)
	}))

	require.NoError(t, db.First(&got, "id = ?", g.ID).Error)
	require.Equal(t, 0, got.ReviewsCount)
	require.Zero(t, got.Rating)
	_ = r1
}

func TestRecalculateRoundsToTwoDecimals(t *testing.T) {
	db := newTestDB(t)
	agg := NewAggregator(db)
	g := seedGarage(t, db, "owner-1")

	// 5, 4, 4 -> 13/3 = 4.333... -> 4.33
	for i, rating := range []int{5, 4, 4} {
		seedReview(t, db, g.ID, string(rune('a'+i)), rating)
	}
	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return agg.Recalculate(tx, g.ID)
	}))

	var got models.GarageModel
	require.NoError(t, db.First(&got, "id = ?", g.ID).Error)
	require.InDelta(t, 4.33, got.Rating, 1e-9)
}

func TestRound2HalfUp(t *testing.T) {
	require.InDelta(t, 4.67, round2(14.0/3.0), 1e-9)
	require.InDelta(t, 4.5, round2(4.5), 1e-9)
	require.InDelta(t, 0.13, round2(0.125), 1e-9)
}
