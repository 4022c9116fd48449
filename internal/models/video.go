package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// VideoCategory groups instructional videos by topic.
type VideoCategory string

const (
	VideoMaintenance VideoCategory = "maintenance"
	VideoRiding      VideoCategory = "riding_techniques"
	VideoSafety      VideoCategory = "safety"
	VideoGear        VideoCategory = "gear_reviews"
	VideoRoutes      VideoCategory = "routes"
	VideoGeneral     VideoCategory = "general"
)

// VideoLevel grades the target audience of a video.
type VideoLevel string

const (
	LevelBeginner     VideoLevel = "beginner"
	LevelIntermediate VideoLevel = "intermediate"
	LevelAdvanced     VideoLevel = "advanced"
)

// VideoDocument is an instructional video stored in MongoDB. Views is only
// ever written through an atomic $inc so concurrent plays never lose counts.
type VideoDocument struct {
	ID           primitive.ObjectID `json:"id"           bson:"_id,omitempty"`
	UserID       string             `json:"userId"       bson:"user_id"`
	Title        string             `json:"title"        bson:"title"`
	Description  string             `json:"description"  bson:"description"`
	URL          string             `json:"url"          bson:"url"`
	ThumbnailURL string             `json:"thumbnailUrl" bson:"thumbnail_url"`
	Category     VideoCategory      `json:"category"     bson:"category"`
	Level        VideoLevel         `json:"level"        bson:"level"`
	Tags         []string           `json:"tags"         bson:"tags"`
	Duration     int                `json:"duration"     bson:"duration"`
	Views        int64              `json:"views"        bson:"views"`
	Likes        []string           `json:"likes"        bson:"likes"`
	LikesCount   int                `json:"likesCount"   bson:"likes_count"`
	IsFeatured   bool               `json:"isFeatured"   bson:"is_featured"`
	IsActive     bool               `json:"isActive"     bson:"is_active"`
	CreatedAt    time.Time          `json:"createdAt"    bson:"created_at"`
	UpdatedAt    time.Time          `json:"updatedAt"    bson:"updated_at"`
}

const VideoCollection = "videos"

// ValidVideoCategory reports whether c is a known category.
func ValidVideoCategory(c VideoCategory) bool {
	switch c {
	case VideoMaintenance, VideoRiding, VideoSafety, VideoGear, VideoRoutes, VideoGeneral:
		return true
	}
	return false
}

// ValidVideoLevel reports whether l is a known level.
func ValidVideoLevel(l VideoLevel) bool {
	switch l {
	case LevelBeginner, LevelIntermediate, LevelAdvanced:
		return true
	}
	return false
}
