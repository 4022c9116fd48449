package models

import "github.com/motohub/core/internal/pkg/geo"

// GarageStatus is the listing lifecycle state.
type GarageStatus string

const (
	GarageActive    GarageStatus = "active"
	GarageInactive  GarageStatus = "inactive"
	GarageSuspended GarageStatus = "suspended"
)

// GarageModel is a service-garage listing. Rating and ReviewsCount are a
// denormalized aggregate over the garage's active reviews; they are written
// only by the garage rating aggregator.
type GarageModel struct {
	Base
	Name        string       `json:"name"         gorm:"not null"`
	Description string       `json:"description"  gorm:"type:text"`
	OwnerID     string       `json:"ownerId"      gorm:"index;not null"`
	Address     string       `json:"address"      gorm:"type:varchar(500)"`
	Latitude    *float64     `json:"latitude"     gorm:"type:decimal(10,7);index:idx_garages_lat_lng"`
	Longitude   *float64     `json:"longitude"    gorm:"type:decimal(10,7);index:idx_garages_lat_lng"`
	Phone       string       `json:"phone"        gorm:"type:varchar(20)"`
	Email       string       `json:"email"`
	Website     string       `json:"website"`
	Images      StringArray  `json:"images"       gorm:"type:longtext"`
	Services    StringArray  `json:"services"     gorm:"type:longtext"`
	OpeningTime string       `json:"openingTime"  gorm:"type:varchar(10)"`
	ClosingTime string       `json:"closingTime"  gorm:"type:varchar(10)"`
	WorkingDays StringArray  `json:"workingDays"  gorm:"type:longtext"`
	Status      GarageStatus `json:"status"       gorm:"default:active;index"`
	Rating      float64      `json:"rating"       gorm:"type:decimal(3,2);default:0"`
	ReviewsCount int         `json:"reviewsCount" gorm:"default:0"`
	IsVerified  bool         `json:"isVerified"   gorm:"default:false"`
}

func (GarageModel) TableName() string { return "garages" }

// Location returns the garage's geo point, or nil when the listing has no
// coordinates. Listings without a location never match proximity queries.
func (g *GarageModel) Location() *geo.Point {
	if g.Latitude == nil || g.Longitude == nil {
		return nil
	}
	return &geo.Point{Lat: *g.Latitude, Lng: *g.Longitude, Address: g.Address}
}
