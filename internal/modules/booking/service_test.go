package booking

import (
	"testing"
	"time"

	"github.com/motohub/core/internal/models"
	"github.com/motohub/core/internal/pkg/pagination"
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
		&models.BookingModel{},
	))
	return NewService(db, nil, nil, nil, "MotoHub"), db
}

func seedUser(t *testing.T, db *gorm.DB, email string) *models.UserModel {
	t.Helper()
	u := &models.UserModel{Email: email, Password: "x", Name: email, IsActive: true, Role: models.RoleUser}
	require.NoError(t, db.Create(u).Error)
	return u
}

func seedGarage(t *testing.T, db *gorm.DB, ownerID string) *models.GarageModel {
	t.Helper()
	g := &models.GarageModel{Name: "Piston Works", OwnerID: ownerID, Status: models.GarageActive}
	require.NoError(t, db.Create(g).Error)
	return g
}

func TestCreateRejectsPastStartDate(t *testing.T) {
	svc, db := newTestService(t)
	owner := seedUser(t, db, "owner@example.com")
	rider := seedUser(t, db, "rider@example.com")
	g := seedGarage(t, db, owner.ID)

	_, err := svc.Create(rider.ID, &CreateBookingDTO{
		GarageID:    g.ID,
		ServiceType: "oil_change",
		StartDate:   time.Now().Add(-time.Hour),
	})
	require.ErrorIs(t, err, ErrPastStartDate)
}

func TestCreateRejectsOverlappingSlot(t *testing.T) {
	svc, db := newTestService(t)
	owner := seedUser(t, db, "owner@example.com")
	r1 := seedUser(t, db, "r1@example.com")
	r2 := seedUser(t, db, "r2@example.com")
	g := seedGarage(t, db, owner.ID)

	start := time.Now().Add(24 * time.Hour).Truncate(time.Second)
	end := start.Add(2 * time.Hour)

	_, err := svc.Create(r1.ID, &CreateBookingDTO{
		GarageID: g.ID, ServiceType: "oil_change", StartDate: start, EndDate: &end,
	})
	require.NoError(t, err)

	// Overlapping window is rejected.
	overlapStart := start.Add(time.Hour)
	overlapEnd := overlapStart.Add(2 * time.Hour)
	_, err = svc.Create(r2.ID, &CreateBookingDTO{
		GarageID: g.ID, ServiceType: "tire_change", StartDate: overlapStart, EndDate: &overlapEnd,
	})
	require.ErrorIs(t, err, ErrSlotTaken)

	// A slot after the window is fine.
	laterStart := end.Add(time.Hour)
	laterEnd := laterStart.Add(time.Hour)
	_, err = svc.Create(r2.ID, &CreateBookingDTO{
		GarageID: g.ID, ServiceType: "tire_change", StartDate: laterStart, EndDate: &laterEnd,
	})
	require.NoError(t, err)
}

func TestCancelledBookingFreesSlot(t *testing.T) {
	svc, db := newTestService(t)
	owner := seedUser(t, db, "owner@example.com")
	r1 := seedUser(t, db, "r1@example.com")
	r2 := seedUser(t, db, "r2@example.com")
	g := seedGarage(t, db, owner.ID)

	start := time.Now().Add(24 * time.Hour).Truncate(time.Second)
	end := start.Add(2 * time.Hour)

	b, err := svc.Create(r1.ID, &CreateBookingDTO{
		GarageID: g.ID, ServiceType: "oil_change", StartDate: start, EndDate: &end,
	})
	require.NoError(t, err)

	_, err = svc.Cancel(b.ID, r1.ID, &CancelDTO{Reason: "schedule conflict"})
	require.NoError(t, err)

	_, err = svc.Create(r2.ID, &CreateBookingDTO{
		GarageID: g.ID, ServiceType: "tire_change", StartDate: start, EndDate: &end,
	})
	require.NoError(t, err)
}

func TestStatusMachine(t *testing.T) {
	svc, db := newTestService(t)
	owner := seedUser(t, db, "owner@example.com")
	rider := seedUser(t, db, "rider@example.com")
	g := seedGarage(t, db, owner.ID)

	start := time.Now().Add(24 * time.Hour)
	b, err := svc.Create(rider.ID, &CreateBookingDTO{
		GarageID: g.ID, ServiceType: "inspection", StartDate: start,
	})
	require.NoError(t, err)

	// Rider cannot confirm.
	_, err = svc.UpdateStatus(b.ID, rider.ID, &UpdateStatusDTO{Status: "confirmed"})
	require.ErrorIs(t, err, ErrNotParticipant)

	// pending -> in_progress skips a state.
	_, err = svc.UpdateStatus(b.ID, owner.ID, &UpdateStatusDTO{Status: "in_progress"})
	require.ErrorIs(t, err, ErrInvalidTransition)

	price := 89.5
	got, err := svc.UpdateStatus(b.ID, owner.ID, &UpdateStatusDTO{Status: "confirmed", Price: &price})
	require.NoError(t, err)
	require.Equal(t, models.BookingConfirmed, got.Status)
	require.NotNil(t, got.Price)

	got, err = svc.UpdateStatus(b.ID, owner.ID, &UpdateStatusDTO{Status: "in_progress"})
	require.NoError(t, err)
	require.Equal(t, models.BookingInProgress, got.Status)

	got, err = svc.UpdateStatus(b.ID, owner.ID, &UpdateStatusDTO{Status: "completed"})
	require.NoError(t, err)
	require.Equal(t, models.BookingCompleted, got.Status)

	// Completed is terminal.
	_, err = svc.Cancel(b.ID, rider.ID, &CancelDTO{})
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestDeleteOnlyTerminal(t *testing.T) {
	svc, db := newTestService(t)
	owner := seedUser(t, db, "owner@example.com")
	rider := seedUser(t, db, "rider@example.com")
	g := seedGarage(t, db, owner.ID)

	b, err := svc.Create(rider.ID, &CreateBookingDTO{
		GarageID: g.ID, ServiceType: "inspection", StartDate: time.Now().Add(24 * time.Hour),
	})
	require.NoError(t, err)

	require.ErrorIs(t, svc.Delete(b.ID, rider.ID), ErrInvalidTransition)

	_, err = svc.Cancel(b.ID, rider.ID, &CancelDTO{Reason: "changed my mind"})
	require.NoError(t, err)

	require.ErrorIs(t, svc.Delete(b.ID, owner.ID), ErrNotParticipant)
	require.NoError(t, svc.Delete(b.ID, rider.ID))

	var count int64
	require.NoError(t, db.Model(&models.BookingModel{}).Where("id = ?", b.ID).Count(&count).Error)
	require.Zero(t, count)
}

func TestUpdateReschedulesAroundOtherBookings(t *testing.T) {
	svc, db := newTestService(t)
	owner := seedUser(t, db, "owner@example.com")
	r1 := seedUser(t, db, "r1@example.com")
	r2 := seedUser(t, db, "r2@example.com")
	g := seedGarage(t, db, owner.ID)

	start := time.Now().Add(24 * time.Hour).Truncate(time.Second)
	end := start.Add(2 * time.Hour)
	b, err := svc.Create(r1.ID, &CreateBookingDTO{
		GarageID: g.ID, ServiceType: "oil_change", StartDate: start, EndDate: &end,
	})
	require.NoError(t, err)

	otherStart := end.Add(time.Hour)
	otherEnd := otherStart.Add(2 * time.Hour)
	_, err = svc.Create(r2.ID, &CreateBookingDTO{
		GarageID: g.ID, ServiceType: "tire_change", StartDate: otherStart, EndDate: &otherEnd,
	})
	require.NoError(t, err)

	// Moving onto the other rider's slot is rejected.
	collideEnd := otherStart.Add(3 * time.Hour)
	_, err = svc.Update(b.ID, r1.ID, &UpdateBookingDTO{StartDate: &otherStart, EndDate: &collideEnd})
	require.ErrorIs(t, err, ErrSlotTaken)

	// Shifting within its own original window only overlaps itself, which
	// the check must ignore.
	shifted := start.Add(30 * time.Minute)
	shiftedEnd := shifted.Add(2 * time.Hour)
	updated, err := svc.Update(b.ID, r1.ID, &UpdateBookingDTO{StartDate: &shifted, EndDate: &shiftedEnd})
	require.NoError(t, err)
	require.True(t, updated.StartDate.Equal(shifted))

	// Only the rider may reschedule.
	_, err = svc.Update(b.ID, r2.ID, &UpdateBookingDTO{Notes: strPtr("sneaky")})
	require.ErrorIs(t, err, ErrNotParticipant)
}

func TestUpcomingAndPastSplitOnStartDate(t *testing.T) {
	svc, db := newTestService(t)
	owner := seedUser(t, db, "owner@example.com")
	rider := seedUser(t, db, "rider@example.com")
	g := seedGarage(t, db, owner.ID)

	future := time.Now().Add(48 * time.Hour)
	past := time.Now().Add(-48 * time.Hour)
	require.NoError(t, db.Create(&models.BookingModel{
		UserID: rider.ID, GarageID: g.ID, ServiceType: "oil_change",
		StartDate: future, Status: models.BookingConfirmed,
	}).Error)
	require.NoError(t, db.Create(&models.BookingModel{
		UserID: rider.ID, GarageID: g.ID, ServiceType: "tire_change",
		StartDate: past, Status: models.BookingCompleted,
	}).Error)

	upcoming, err := svc.Upcoming(rider.ID, 10)
	require.NoError(t, err)
	require.Len(t, upcoming, 1)
	require.Equal(t, "oil_change", upcoming[0].ServiceType)

	pastBookings, _, err := svc.Past(rider.ID, pagination.Query{Page: 1, Size: 10})
	require.NoError(t, err)
	require.Len(t, pastBookings, 1)
	require.Equal(t, "tire_change", pastBookings[0].ServiceType)
}

func strPtr(s string) *string { return &s }
