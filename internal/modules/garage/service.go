package garage

import (
	"errors"
	"sort"

	"github.com/motohub/core/internal/models"
	"github.com/motohub/core/internal/pkg/geo"
	"github.com/motohub/core/internal/pkg/pagination"
	"github.com/motohub/core/internal/pkg/response"
	"gorm.io/gorm"
)

var (
	ErrNotOwner       = errors.New("only the garage owner can do that")
	ErrInvalidRadius  = errors.New("radius must be positive")
	ErrInvalidStatus  = errors.New("unknown garage status")
	ErrNoLocationSet  = errors.New("garage has no location")
	ErrInvalidLatLng  = errors.New("invalid coordinates")
	MaxNearbyRadiusKm = 200.0
)

const defaultListRadiusKm = 50.0

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

func (s *Service) Create(ownerID string, dto *CreateGarageDTO) (*models.GarageModel, error) {
	if dto.Latitude != nil && dto.Longitude != nil {
		p := geo.Point{Lat: *dto.Latitude, Lng: *dto.Longitude}
		if err := p.Validate(); err != nil {
			return nil, ErrInvalidLatLng
		}
	}

	g := models.GarageModel{
		Name:        dto.Name,
		Description: dto.Description,
		OwnerID:     ownerID,
		Address:     dto.Address,
		Latitude:    dto.Latitude,
		Longitude:   dto.Longitude,
		Phone:       dto.Phone,
		Email:       dto.Email,
		Website:     dto.Website,
		Images:      dto.Images,
		Services:    dto.Services,
		OpeningTime: dto.OpeningTime,
		ClosingTime: dto.ClosingTime,
		WorkingDays: dto.WorkingDays,
		Status:      models.GarageActive,
	}
	return &g, s.db.Create(&g).Error
}

func (s *Service) GetByID(id string) (*models.GarageModel, error) {
	var g models.GarageModel
	if err := s.db.First(&g, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &g, nil
}

func (s *Service) List(q pagination.Query, filter ListFilter) ([]models.GarageModel, response.Pagination, error) {
	query := s.db.Model(&models.GarageModel{})

	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	} else {
		query = query.Where("status = ?", models.GarageActive)
	}
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		query = query.Where("name LIKE ? OR description LIKE ?", like, like)
	}
	if filter.Service != "" {
		query = query.Where("services LIKE ?", "%"+filter.Service+"%")
	}
	if filter.Verified != nil {
		query = query.Where("is_verified = ?", *filter.Verified)
	}
	if filter.OwnerID != "" {
		query = query.Where("owner_id = ?", filter.OwnerID)
	}
	if filter.Center != nil {
		if err := filter.Center.Validate(); err != nil {
			return nil, response.Pagination{}, ErrInvalidLatLng
		}
		radius := filter.RadiusKm
		if radius <= 0 {
			radius = defaultListRadiusKm
		}
		if radius > MaxNearbyRadiusKm {
			radius = MaxNearbyRadiusKm
		}
		// Bounding-box predicate keeps the page counts stable across pages.
		bounds := geo.BoundsAround(*filter.Center, radius)
		query = query.
			Where("latitude IS NOT NULL AND longitude IS NOT NULL").
			Where("latitude BETWEEN ? AND ?", bounds.MinLat, bounds.MaxLat).
			Where("longitude BETWEEN ? AND ?", bounds.MinLng, bounds.MaxLng)
	}
	query = query.Order("rating DESC, created_at DESC")

	var garages []models.GarageModel
	meta, err := pagination.Paginate(query, q, &garages)
	return garages, meta, err
}

// FindNearby returns active garages within radiusKm of the center, best
// rated first with ties broken by recency. Distance only filters, it never
// orders. The SQL query prunes with the bounding box around the center; the
// exact great-circle distance then discards corner hits. Garages without
// coordinates never match.
func (s *Service) FindNearby(center geo.Point, radiusKm float64, limit int) ([]NearbyGarage, error) {
	if err := center.Validate(); err != nil {
		return nil, ErrInvalidLatLng
	}
	if radiusKm <= 0 {
		return nil, ErrInvalidRadius
	}
	if radiusKm > MaxNearbyRadiusKm {
		radiusKm = MaxNearbyRadiusKm
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	bounds := geo.BoundsAround(center, radiusKm)

	var candidates []models.GarageModel
	err := s.db.
		Where("status = ?", models.GarageActive).
		Where("latitude IS NOT NULL AND longitude IS NOT NULL").
		Where("latitude BETWEEN ? AND ?", bounds.MinLat, bounds.MaxLat).
		Where("longitude BETWEEN ? AND ?", bounds.MinLng, bounds.MaxLng).
		Find(&candidates).Error
	if err != nil {
		return nil, err
	}

	result := make([]NearbyGarage, 0, len(candidates))
	for _, g := range candidates {
		loc := g.Location()
		if loc == nil {
			continue
		}
		d := geo.Distance(center, *loc)
		if d <= radiusKm {
			result = append(result, NearbyGarage{GarageModel: g, DistanceKm: round2(d)})
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Rating != result[j].Rating {
			return result[i].Rating > result[j].Rating
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *Service) Update(id, userID string, isAdmin bool, dto *UpdateGarageDTO) (*models.GarageModel, error) {
	g, err := s.GetByID(id)
	if err != nil || g == nil {
		return g, err
	}
	if g.OwnerID != userID && !isAdmin {
		return nil, ErrNotOwner
	}

	updates := map[string]interface{}{}
	if dto.Name != nil {
		updates["name"] = *dto.Name
	}
	if dto.Description != nil {
		updates["description"] = *dto.Description
	}
	if dto.Address != nil {
		updates["address"] = *dto.Address
	}
	if dto.Latitude != nil && dto.Longitude != nil {
		p := geo.Point{Lat: *dto.Latitude, Lng: *dto.Longitude}
		if err := p.Validate(); err != nil {
			return nil, ErrInvalidLatLng
		}
		updates["latitude"] = *dto.Latitude
		updates["longitude"] = *dto.Longitude
	}
	if dto.Phone != nil {
		updates["phone"] = *dto.Phone
	}
	if dto.Email != nil {
		updates["email"] = *dto.Email
	}
	if dto.Website != nil {
		updates["website"] = *dto.Website
	}
	if dto.Images != nil {
		updates["images"] = models.StringArray(*dto.Images)
	}
	if dto.Services != nil {
		updates["services"] = models.StringArray(*dto.Services)
	}
	if dto.OpeningTime != nil {
		updates["opening_time"] = *dto.OpeningTime
	}
	if dto.ClosingTime != nil {
		updates["closing_time"] = *dto.ClosingTime
	}
	if dto.WorkingDays != nil {
		updates["working_days"] = models.StringArray(*dto.WorkingDays)
	}
	if dto.Status != nil {
		status := models.GarageStatus(*dto.Status)
		switch status {
		case models.GarageActive, models.GarageInactive, models.GarageSuspended:
			updates["status"] = status
		default:
			return nil, ErrInvalidStatus
		}
	}
	if len(updates) == 0 {
		return g, nil
	}

	if err := s.db.Model(g).Updates(updates).Error; err != nil {
		return nil, err
	}
	return s.GetByID(id)
}

// Deactivate marks the garage inactive instead of deleting the row, so its
// reviews and bookings stay reachable.
func (s *Service) Deactivate(id, userID string, isAdmin bool) error {
	g, err := s.GetByID(id)
	if err != nil {
		return err
	}
	if g == nil {
		return gorm.ErrRecordNotFound
	}
	if g.OwnerID != userID && !isAdmin {
		return ErrNotOwner
	}
	return s.db.Model(g).Update("status", models.GarageInactive).Error
}

// Verify toggles the admin verified badge.
func (s *Service) Verify(id string, verified bool) (*models.GarageModel, error) {
	g, err := s.GetByID(id)
	if err != nil || g == nil {
		return g, err
	}
	if err := s.db.Model(g).Update("is_verified", verified).Error; err != nil {
		return nil, err
	}
	g.IsVerified = verified
	return g, nil
}

// Services returns the distinct service types offered across active garages.
func (s *Service) Services() ([]string, error) {
	var garages []models.GarageModel
	if err := s.db.Select("services").Where("status = ?", models.GarageActive).Find(&garages).Error; err != nil {
		return nil, err
	}
	seen := map[string]struct{}{}
	var out []string
	for _, g := range garages {
		for _, svc := range g.Services {
			if _, ok := seen[svc]; !ok {
				seen[svc] = struct{}{}
				out = append(out, svc)
			}
		}
	}
	sort.Strings(out)
	return out, nil
}
