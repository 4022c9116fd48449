package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PostComment is a comment embedded in its post document.
type PostComment struct {
	ID        primitive.ObjectID `json:"id"        bson:"_id,omitempty"`
	UserID    string             `json:"userId"    bson:"user_id"`
	Content   string             `json:"content"   bson:"content"`
	CreatedAt time.Time          `json:"createdAt" bson:"created_at"`
}

// PostDocument is a social feed post stored in MongoDB. Likes holds the set
// of user IDs that liked the post; LikesCount is kept equal to len(Likes).
type PostDocument struct {
	ID            primitive.ObjectID `json:"id"            bson:"_id,omitempty"`
	UserID        string             `json:"userId"        bson:"user_id"`
	Content       string             `json:"content"       bson:"content"`
	Images        []string           `json:"images"        bson:"images"`
	Hashtags      []string           `json:"hashtags"      bson:"hashtags"`
	Likes         []string           `json:"likes"         bson:"likes"`
	LikesCount    int                `json:"likesCount"    bson:"likes_count"`
	Comments      []PostComment      `json:"comments"      bson:"comments"`
	CommentsCount int                `json:"commentsCount" bson:"comments_count"`
	IsActive      bool               `json:"isActive"      bson:"is_active"`
	CreatedAt     time.Time          `json:"createdAt"     bson:"created_at"`
	UpdatedAt     time.Time          `json:"updatedAt"     bson:"updated_at"`
}

const PostCollection = "posts"
