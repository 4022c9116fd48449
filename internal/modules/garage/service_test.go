package garage

import (
	"testing"
	"time"

	"github.com/motohub/core/internal/models"
	"github.com/motohub/core/internal/pkg/geo"
	"github.com/motohub/core/internal/pkg/pagination"
	"github.com/stretchr/testify/require"
)

func ptr(v float64) *float64 { return &v }

func TestFindNearbyOrdersByRatingNotDistance(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)

	center := geo.Point{Lat: 52.52, Lng: 13.405} // Berlin

	nearButMediocre := &models.GarageModel{
		Name: "Mitte Moto", OwnerID: "o1", Status: models.GarageActive,
		Latitude: ptr(52.53), Longitude: ptr(13.41), Rating: 2.0,
	}
	farButExcellent := &models.GarageModel{
		Name: "Kreuzberg Garage", OwnerID: "o2", Status: models.GarageActive,
		Latitude: ptr(52.49), Longitude: ptr(13.39), Rating: 5.0,
	}
	outOfRange := &models.GarageModel{
		Name: "Hamburg Bikes", OwnerID: "o3", Status: models.GarageActive,
		Latitude: ptr(53.55), Longitude: ptr(9.99), Rating: 4.8,
	}
	require.NoError(t, db.Create(nearButMediocre).Error)
	require.NoError(t, db.Create(farButExcellent).Error)
	require.NoError(t, db.Create(outOfRange).Error)

	got, err := svc.FindNearby(center, 10, 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "Kreuzberg Garage", got[0].Name)
	require.Equal(t, "Mitte Moto", got[1].Name)
	require.Greater(t, got[0].DistanceKm, got[1].DistanceKm)
}

func TestListOrdersByRatingThenRecency(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)

	older := &models.GarageModel{Name: "Old Shop", OwnerID: "o1", Status: models.GarageActive, Rating: 4.0}
	require.NoError(t, db.Create(older).Error)
	require.NoError(t, db.Model(older).Update("created_at", time.Now().Add(-48*time.Hour)).Error)

	newer := &models.GarageModel{Name: "New Shop", OwnerID: "o2", Status: models.GarageActive, Rating: 4.0}
	top := &models.GarageModel{Name: "Top Shop", OwnerID: "o3", Status: models.GarageActive, Rating: 4.5}
	require.NoError(t, db.Create(newer).Error)
	require.NoError(t, db.Create(top).Error)

	got, _, err := svc.List(pagination.Query{Page: 1, Size: 10}, ListFilter{})
	require.NoError(t, err)
	require.Len(t, got, 3)
	require.Equal(t, "Top Shop", got[0].Name)
	require.Equal(t, "New Shop", got[1].Name)
	require.Equal(t, "Old Shop", got[2].Name)
}

func TestListWithCenterFiltersButKeepsRatingOrder(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)

	center := geo.Point{Lat: 48.8566, Lng: 2.3522} // Paris

	inRangeLow := &models.GarageModel{
		Name: "Bastille Bikes", OwnerID: "o1", Status: models.GarageActive,
		Latitude: ptr(48.853), Longitude: ptr(2.369), Rating: 3.0,
	}
	inRangeHigh := &models.GarageModel{
		Name: "Montmartre Moto", OwnerID: "o2", Status: models.GarageActive,
		Latitude: ptr(48.886), Longitude: ptr(2.343), Rating: 4.9,
	}
	elsewhere := &models.GarageModel{
		Name: "Lyon Garage", OwnerID: "o3", Status: models.GarageActive,
		Latitude: ptr(45.764), Longitude: ptr(4.835), Rating: 5.0,
	}
	require.NoError(t, db.Create(inRangeLow).Error)
	require.NoError(t, db.Create(inRangeHigh).Error)
	require.NoError(t, db.Create(elsewhere).Error)

	got, meta, err := svc.List(pagination.Query{Page: 1, Size: 10}, ListFilter{Center: &center, RadiusKm: 10})
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.EqualValues(t, 2, meta.Total)
	require.Equal(t, "Montmartre Moto", got[0].Name)
	require.Equal(t, "Bastille Bikes", got[1].Name)
}

func TestListRejectsBadCenter(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)

	_, _, err := svc.List(pagination.Query{Page: 1, Size: 10}, ListFilter{Center: &geo.Point{Lat: 95, Lng: 0}})
	require.ErrorIs(t, err, ErrInvalidLatLng)
}

func TestFindNearbySkipsGaragesWithoutLocation(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)

	located := &models.GarageModel{
		Name: "Located", OwnerID: "o1", Status: models.GarageActive,
		Latitude: ptr(48.8566), Longitude: ptr(2.3522),
	}
	unlocated := &models.GarageModel{
		Name: "No Coordinates", OwnerID: "o2", Status: models.GarageActive,
	}
	require.NoError(t, db.Create(located).Error)
	require.NoError(t, db.Create(unlocated).Error)

	got, err := svc.FindNearby(geo.Point{Lat: 48.8566, Lng: 2.3522}, 5, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "Located", got[0].Name)
}

func TestFindNearbyExcludesInactive(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)

	inactive := &models.GarageModel{
		Name: "Closed Shop", OwnerID: "o1", Status: models.GarageInactive,
		Latitude: ptr(40.0), Longitude: ptr(-3.0),
	}
	require.NoError(t, db.Create(inactive).Error)

	got, err := svc.FindNearby(geo.Point{Lat: 40.0, Lng: -3.0}, 10, 0)
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestFindNearbyValidatesInput(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)

	_, err := svc.FindNearby(geo.Point{Lat: 95, Lng: 0}, 10, 0)
	require.ErrorIs(t, err, ErrInvalidLatLng)

	_, err = svc.FindNearby(geo.Point{Lat: 0, Lng: 0}, -1, 0)
	require.ErrorIs(t, err, ErrInvalidRadius)
}

func TestDeactivateKeepsRow(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	g := seedGarage(t, db, "owner-1")

	require.NoError(t, svc.Deactivate(g.ID, "owner-1", false))

	var got models.GarageModel
	require.NoError(t, db.First(&got, "id = ?", g.ID).Error)
	require.Equal(t, models.GarageInactive, got.Status)
}

func TestDeactivateRejectsNonOwner(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	g := seedGarage(t, db, "owner-1")

	require.ErrorIs(t, svc.Deactivate(g.ID, "someone-else", false), ErrNotOwner)
}
