package review

import (
	"testing"

	"github.com/motohub/core/internal/models"
	"github.com/motohub/core/internal/modules/garage"
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

	require.NoError(t, db.AutoMigrate(
		&models.UserModel{},
		&models.GarageModel{},
		&models.ReviewModel{},
	))
	return NewService(db, garage.NewAggregator(db)), db
}

func seedUser(t *testing.T, db *gorm.DB, email string) *models.UserModel {
	t.Helper()
	u := &models.UserModel{Email: email, Password: "x", Name: email, IsActive: true, Role: models.RoleUser}
	require.NoError(t, db.Create(u).Error)
	return u
}

func seedGarage(t *testing.T, db *gorm.DB, ownerID string) *models.GarageModel {
	t.Helper()
	g := &models.GarageModel{Name: "Chain & Sprocket", OwnerID: ownerID, Status: models.GarageActive}
	require.NoError(t, db.Create(g).Error)
	return g
}

func TestCreateUpdatesGarageAggregate(t *testing.T) {
	svc, db := newTestService(t)
	owner := seedUser(t, db, "owner@example.com")
	g := seedGarage(t, db, owner.ID)

	riders := []struct {
		email  string
		rating int
	}{
		{"r1@example.com", 5},
		{"r2@example.com", 4},
		{"r3@example.com", 3},
	}
	for _, r := range riders {
		u := seedUser(t, db, r.email)
		_, err := svc.Create(u.ID, &CreateReviewDTO{GarageID: g.ID, Content: "good", Rating: r.rating})
		require.NoError(t, err)
	}

	var got models.GarageModel
	require.NoError(t, db.First(&got, "id = ?", g.ID).Error)
	require.Equal(t, 3, got.ReviewsCount)
	require.InDelta(t, 4.0, got.Rating, 1e-9)
}

func TestCreateRejectsDuplicateAndOwnGarage(t *testing.T) {
	svc, db := newTestService(t)
	owner := seedUser(t, db, "owner@example.com")
	rider := seedUser(t, db, "rider@example.com")
	g := seedGarage(t, db, owner.ID)

	_, err := svc.Create(owner.ID, &CreateReviewDTO{GarageID: g.ID, Content: "mine!", Rating: 5})
	require.ErrorIs(t, err, ErrOwnGarage)

	_, err = svc.Create(rider.ID, &CreateReviewDTO{GarageID: g.ID, Content: "ok", Rating: 4})
	require.NoError(t, err)

	_, err = svc.Create(rider.ID, &CreateReviewDTO{GarageID: g.ID, Content: "again", Rating: 5})
	require.ErrorIs(t, err, ErrAlreadyReviewed)
}

func TestCreateValidatesRating(t *testing.T) {
	svc, db := newTestService(t)
	owner := seedUser(t, db, "owner@example.com")
	rider := seedUser(t, db, "rider@example.com")
	g := seedGarage(t, db, owner.ID)

	for _, rating := range []int{0, 6, -1} {
		_, err := svc.Create(rider.ID, &CreateReviewDTO{GarageID: g.ID, Content: "x", Rating: rating})
		require.ErrorIs(t, err, ErrInvalidRating)
	}
}

func TestUpdateRatingRecalculates(t *testing.T) {
	svc, db := newTestService(t)
	owner := seedUser(t, db, "owner@example.com")
	r1 := seedUser(t, db, "r1@example.com")
	r2 := seedUser(t, db, "r2@example.com")
	g := seedGarage(t, db, owner.ID)

	rev, err := svc.Create(r1.ID, &CreateReviewDTO{GarageID: g.ID, Content: "meh", Rating: 2})
	require.NoError(t, err)
	_, err = svc.Create(r2.ID, &CreateReviewDTO{GarageID: g.ID, Content: "great", Rating: 5})
	require.NoError(t, err)

	newRating := 4
	_, err = svc.Update(rev.ID, r1.ID, &UpdateReviewDTO{Rating: &newRating})
	require.NoError(t, err)

	var got models.GarageModel
	require.NoError(t, db.First(&got, "id = ?", g.ID).Error)
	require.Equal(t, 2, got.ReviewsCount)
	require.InDelta(t, 4.5, got.Rating, 1e-9)
}

func TestDeactivateRemovesFromAggregate(t *testing.T) {
	svc, db := newTestService(t)
	owner := seedUser(t, db, "owner@example.com")
	r1 := seedUser(t, db, "r1@example.com")
	g := seedGarage(t, db, owner.ID)

	rev, err := svc.Create(r1.ID, &CreateReviewDTO{GarageID: g.ID, Content: "good", Rating: 4})
	require.NoError(t, err)

	require.NoError(t, svc.Deactivate(rev.ID, r1.ID, false))

	var got models.GarageModel
	require.NoError(t, db.First(&got, "id = ?", g.ID).Error)
	require.Equal(t, 0, got.ReviewsCount)
	require.Zero(t, got.Rating)
}

func TestRespondRequiresGarageOwner(t *testing.T) {
	svc, db := newTestService(t)
	owner := seedUser(t, db, "owner@example.com")
	rider := seedUser(t, db, "rider@example.com")
	g := seedGarage(t, db, owner.ID)

	rev, err := svc.Create(rider.ID, &CreateReviewDTO{GarageID: g.ID, Content: "good", Rating: 4})
	require.NoError(t, err)

	_, err = svc.Respond(rev.ID, rider.ID, &RespondDTO{Response: "thanks!"})
	require.ErrorIs(t, err, ErrNotGarageOwner)

	got, err := svc.Respond(rev.ID, owner.ID, &RespondDTO{Response: "thanks!"})
	require.NoError(t, err)
	require.Equal(t, "thanks!", got.OwnerResponse)
	require.NotNil(t, got.ResponseDate)
}
