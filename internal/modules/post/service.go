package post

import (
	"context"
	"errors"
	"time"

	"github.com/motohub/core/internal/models"
	"github.com/motohub/core/internal/pkg/pagination"
	"github.com/motohub/core/internal/pkg/response"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	ErrNotAuthor        = errors.New("only the author can do that")
	ErrCommentNotFound  = errors.New("comment not found")
	ErrNotCommentAuthor = errors.New("only the comment author can do that")
)

const trendingWindow = 7 * 24 * time.Hour

type CreatePostDTO struct {
	Content string   `json:"content" binding:"required"`
	Images  []string `json:"images"`
}

type UpdatePostDTO struct {
	Content *string  `json:"content"`
	Images  []string `json:"images"`
}

type CommentDTO struct {
	Content string `json:"content" binding:"required"`
}

type FeedFilter struct {
	Hashtag string
	UserID  string
	Sort    string // recent | popular
}

// PostView decorates a post with the requesting user's like state.
type PostView struct {
	models.PostDocument
	IsLikedByUser bool `json:"isLikedByUser"`
}

// TrendingHashtag is one row of the trending aggregation.
type TrendingHashtag struct {
	Hashtag string `json:"hashtag" bson:"_id"`
	Count   int64  `json:"count"   bson:"count"`
}

type Service struct {
	coll *mongo.Collection
}

func NewService(db *mongo.Database) *Service {
	return &Service{coll: db.Collection(models.PostCollection)}
}

func (s *Service) Create(ctx context.Context, userID string, dto *CreatePostDTO) (*models.PostDocument, error) {
	now := time.Now()
	doc := &models.PostDocument{
		UserID:    userID,
		Content:   dto.Content,
		Images:    dto.Images,
		Hashtags:  ExtractHashtags(dto.Content),
		Likes:     []string{},
		Comments:  []models.PostComment{},
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	res, err := s.coll.InsertOne(ctx, doc)
	if err != nil {
		return nil, err
	}
	doc.ID = res.InsertedID.(primitive.ObjectID)
	return doc, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (*models.PostDocument, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, nil
	}

	var doc models.PostDocument
	err = s.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// Feed lists active posts, newest or most liked first, with the viewer's like
// flag resolved per post.
func (s *Service) Feed(ctx context.Context, q pagination.Query, filter FeedFilter, viewerID string) ([]PostView, response.Pagination, error) {
	match := bson.M{"is_active": true}
	if filter.Hashtag != "" {
		match["hashtags"] = filter.Hashtag
	}
	if filter.UserID != "" {
		match["user_id"] = filter.UserID
	}

	sort := bson.D{{Key: "created_at", Value: -1}}
	if filter.Sort == "popular" {
		sort = bson.D{{Key: "likes_count", Value: -1}, {Key: "created_at", Value: -1}}
	}

	total, err := s.coll.CountDocuments(ctx, match)
	if err != nil {
		return nil, response.Pagination{}, err
	}

	opts := options.Find().
		SetSort(sort).
		SetSkip(q.Offset()).
		SetLimit(int64(q.Size))
	cursor, err := s.coll.Find(ctx, match, opts)
	if err != nil {
		return nil, response.Pagination{}, err
	}
	defer cursor.Close(ctx)

	var docs []models.PostDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, response.Pagination{}, err
	}

	views := make([]PostView, 0, len(docs))
	for _, d := range docs {
		views = append(views, PostView{PostDocument: d, IsLikedByUser: contains(d.Likes, viewerID)})
	}
	return views, pagination.Meta(q, total), nil
}

// Update lets the author edit content and images. Hashtags are re-extracted
// from the new content.
func (s *Service) Update(ctx context.Context, id, userID string, dto *UpdatePostDTO) (*models.PostDocument, error) {
	doc, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, nil
	}
	if doc.UserID != userID {
		return nil, ErrNotAuthor
	}

	set := bson.M{"updated_at": time.Now()}
	if dto.Content != nil {
		set["content"] = *dto.Content
		set["hashtags"] = ExtractHashtags(*dto.Content)
	}
	if dto.Images != nil {
		set["images"] = dto.Images
	}

	if _, err := s.coll.UpdateOne(ctx, bson.M{"_id": doc.ID}, bson.M{"$set": set}); err != nil {
		return nil, err
	}
	return s.GetByID(ctx, id)
}

func (s *Service) Deactivate(ctx context.Context, id, userID string, isAdmin bool) error {
	doc, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if doc == nil {
		return mongo.ErrNoDocuments
	}
	if doc.UserID != userID && !isAdmin {
		return ErrNotAuthor
	}

	_, err = s.coll.UpdateOne(ctx, bson.M{"_id": doc.ID}, bson.M{
		"$set": bson.M{"is_active": false, "updated_at": time.Now()},
	})
	return err
}

// ToggleLike flips the viewer's like on a post. Both directions carry a
// membership guard in the filter, so a concurrent duplicate toggle matches
// nothing instead of double-counting.
func (s *Service) ToggleLike(ctx context.Context, id, userID string) (*models.PostDocument, error) {
	doc, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, nil
	}

	now := time.Now()
	if contains(doc.Likes, userID) {
		_, err = s.coll.UpdateOne(ctx,
			bson.M{"_id": doc.ID, "likes": userID},
			bson.M{
				"$pull": bson.M{"likes": userID},
				"$inc":  bson.M{"likes_count": -1},
				"$set":  bson.M{"updated_at": now},
			},
		)
	} else {
		_, err = s.coll.UpdateOne(ctx,
			bson.M{"_id": doc.ID, "likes": bson.M{"$ne": userID}},
			bson.M{
				"$addToSet": bson.M{"likes": userID},
				"$inc":      bson.M{"likes_count": 1},
				"$set":      bson.M{"updated_at": now},
			},
		)
	}
	if err != nil {
		return nil, err
	}
	return s.GetByID(ctx, id)
}

func (s *Service) AddComment(ctx context.Context, id, userID string, dto *CommentDTO) (*models.PostDocument, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, nil
	}

	comment := models.PostComment{
		ID:        primitive.NewObjectID(),
		UserID:    userID,
		Content:   dto.Content,
		CreatedAt: time.Now(),
	}

	res, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": oid, "is_active": true},
		bson.M{
			"$push": bson.M{"comments": comment},
			"$inc":  bson.M{"comments_count": 1},
			"$set":  bson.M{"updated_at": comment.CreatedAt},
		},
	)
	if err != nil {
		return nil, err
	}
	if res.MatchedCount == 0 {
		return nil, nil
	}
	return s.GetByID(ctx, id)
}

// DeleteComment removes an embedded comment. The comment author or the post
// author may delete.
func (s *Service) DeleteComment(ctx context.Context, id, commentID, userID string) (*models.PostDocument, error) {
	doc, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, nil
	}

	cid, err := primitive.ObjectIDFromHex(commentID)
	if err != nil {
		return nil, ErrCommentNotFound
	}

	var target *models.PostComment
	for i := range doc.Comments {
		if doc.Comments[i].ID == cid {
			target = &doc.Comments[i]
			break
		}
	}
	if target == nil {
		return nil, ErrCommentNotFound
	}
	if target.UserID != userID && doc.UserID != userID {
		return nil, ErrNotCommentAuthor
	}

	_, err = s.coll.UpdateOne(ctx,
		bson.M{"_id": doc.ID, "comments._id": cid},
		bson.M{
			"$pull": bson.M{"comments": bson.M{"_id": cid}},
			"$inc":  bson.M{"comments_count": -1},
			"$set":  bson.M{"updated_at": time.Now()},
		},
	)
	if err != nil {
		return nil, err
	}
	return s.GetByID(ctx, id)
}

// Trending counts hashtag usage over recent active posts.
func (s *Service) Trending(ctx context.Context, limit int) ([]TrendingHashtag, error) {
	if limit <= 0 || limit > 50 {
		limit = 10
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"is_active":  true,
			"created_at": bson.M{"$gte": time.Now().Add(-trendingWindow)},
		}}},
		{{Key: "$unwind", Value: "$hashtags"}},
		{{Key: "$group", Value: bson.M{
			"_id":   "$hashtags",
			"count": bson.M{"$sum": 1},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "count", Value: -1}, {Key: "_id", Value: 1}}}},
		{{Key: "$limit", Value: limit}},
	}

	cursor, err := s.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var out []TrendingHashtag
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func contains(set []string, v string) bool {
	if v == "" {
		return false
	}
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
