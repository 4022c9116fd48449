package garage

import (
	"github.com/motohub/core/internal/models"
	"github.com/motohub/core/internal/pkg/geo"
)

type CreateGarageDTO struct {
	Name        string   `json:"name" binding:"required"`
	Description string   `json:"description"`
	Address     string   `json:"address"`
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
	Phone       string   `json:"phone"`
	Email       string   `json:"email"`
	Website     string   `json:"website"`
	Images      []string `json:"images"`
	Services    []string `json:"services"`
	OpeningTime string   `json:"openingTime"`
	ClosingTime string   `json:"closingTime"`
	WorkingDays []string `json:"workingDays"`
}

type UpdateGarageDTO struct {
	Name        *string   `json:"name"`
	Description *string   `json:"description"`
	Address     *string   `json:"address"`
	Latitude    *float64  `json:"latitude"`
	Longitude   *float64  `json:"longitude"`
	Phone       *string   `json:"phone"`
	Email       *string   `json:"email"`
	Website     *string   `json:"website"`
	Images      *[]string `json:"images"`
	Services    *[]string `json:"services"`
	OpeningTime *string   `json:"openingTime"`
	ClosingTime *string   `json:"closingTime"`
	WorkingDays *[]string `json:"workingDays"`
	Status      *string   `json:"status"`
}

// NearbyGarage is a garage plus its distance from the query point.
type NearbyGarage struct {
	models.GarageModel
	DistanceKm float64 `json:"distanceKm"`
}

type ListFilter struct {
	Search   string
	Service  string
	Status   string
	Verified *bool
	OwnerID  string
	Center   *geo.Point
	RadiusKm float64
}
