package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AlertType classifies a road hazard report.
type AlertType string

const (
	AlertPothole      AlertType = "pothole"
	AlertAccident     AlertType = "accident"
	AlertRoadwork     AlertType = "roadwork"
	AlertPolice       AlertType = "police"
	AlertWeather      AlertType = "weather"
	AlertObstacle     AlertType = "obstacle"
	AlertOther        AlertType = "other"
)

// AlertSeverity grades how dangerous a hazard is.
type AlertSeverity string

const (
	SeverityLow      AlertSeverity = "low"
	SeverityMedium   AlertSeverity = "medium"
	SeverityHigh     AlertSeverity = "high"
	SeverityCritical AlertSeverity = "critical"
)

// AlertDocument is a road hazard alert stored in MongoDB. Upvotes and
// Downvotes are disjoint sets of user IDs; the counts mirror the set sizes
// and never go negative. Version guards concurrent vote updates: every write
// to the vote fields filters on the version it read and increments it.
type AlertDocument struct {
	ID             primitive.ObjectID `json:"id"             bson:"_id,omitempty"`
	UserID         string             `json:"userId"         bson:"user_id"`
	Type           AlertType          `json:"type"           bson:"type"`
	Severity       AlertSeverity      `json:"severity"       bson:"severity"`
	Title          string             `json:"title"          bson:"title"`
	Description    string             `json:"description"    bson:"description"`
	Latitude       float64            `json:"latitude"       bson:"latitude"`
	Longitude      float64            `json:"longitude"      bson:"longitude"`
	Address        string             `json:"address"        bson:"address"`
	Images         []string           `json:"images"         bson:"images"`
	Upvotes        []string           `json:"upvotes"        bson:"upvotes"`
	Downvotes      []string           `json:"downvotes"      bson:"downvotes"`
	UpvotesCount   int                `json:"upvotesCount"   bson:"upvotes_count"`
	DownvotesCount int                `json:"downvotesCount" bson:"downvotes_count"`
	IsActive       bool               `json:"isActive"       bson:"is_active"`
	IsVerified     bool               `json:"isVerified"     bson:"is_verified"`
	ExpiresAt      time.Time          `json:"expiresAt"      bson:"expires_at"`
	Version        int64              `json:"-"              bson:"version"`
	CreatedAt      time.Time          `json:"createdAt"      bson:"created_at"`
	UpdatedAt      time.Time          `json:"updatedAt"      bson:"updated_at"`
}

const AlertCollection = "alerts"

// ValidAlertType reports whether t is a known alert type.
func ValidAlertType(t AlertType) bool {
	switch t {
	case AlertPothole, AlertAccident, AlertRoadwork, AlertPolice, AlertWeather, AlertObstacle, AlertOther:
		return true
	}
	return false
}

// ValidSeverity reports whether s is a known severity.
func ValidSeverity(s AlertSeverity) bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}
