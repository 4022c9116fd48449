package video

import (
	"context"
	"errors"
	"strings"
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
	ErrInvalidCategory = errors.New("unknown video category")
	ErrInvalidLevel    = errors.New("unknown video level")
	ErrNotUploader     = errors.New("only the uploader can do that")
)

type CreateVideoDTO struct {
	Title        string   `json:"title" binding:"required"`
	Description  string   `json:"description"`
	URL          string   `json:"url" binding:"required"`
	ThumbnailURL string   `json:"thumbnailUrl"`
	Category     string   `json:"category" binding:"required"`
	Level        string   `json:"level"`
	Tags         []string `json:"tags"`
	Duration     int      `json:"duration"`
}

type UpdateVideoDTO struct {
	Title        *string  `json:"title"`
	Description  *string  `json:"description"`
	ThumbnailURL *string  `json:"thumbnailUrl"`
	Category     *string  `json:"category"`
	Level        *string  `json:"level"`
	Tags         []string `json:"tags"`
	Duration     *int     `json:"duration"`
}

type ListFilter struct {
	Search   string
	Category string
	Level    string
	Tag      string
	SortBy   string // recent | popular | views
}

type Service struct {
	coll *mongo.Collection
}

func NewService(db *mongo.Database) *Service {
	return &Service{coll: db.Collection(models.VideoCollection)}
}

func (s *Service) Create(ctx context.Context, userID string, dto *CreateVideoDTO) (*models.VideoDocument, error) {
	if !models.ValidVideoCategory(models.VideoCategory(dto.Category)) {
		return nil, ErrInvalidCategory
	}
	level := models.LevelBeginner
	if dto.Level != "" {
		if !models.ValidVideoLevel(models.VideoLevel(dto.Level)) {
			return nil, ErrInvalidLevel
		}
		level = models.VideoLevel(dto.Level)
	}

	now := time.Now()
	doc := &models.VideoDocument{
		UserID:       userID,
		Title:        dto.Title,
		Description:  dto.Description,
		URL:          dto.URL,
		ThumbnailURL: dto.ThumbnailURL,
		Category:     models.VideoCategory(dto.Category),
		Level:        level,
		Tags:         normalizeTags(dto.Tags),
		Duration:     dto.Duration,
		Likes:        []string{},
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	res, err := s.coll.InsertOne(ctx, doc)
	if err != nil {
		return nil, err
	}
	doc.ID = res.InsertedID.(primitive.ObjectID)
	return doc, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (*models.VideoDocument, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, nil
	}

	var doc models.VideoDocument
	err = s.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (s *Service) List(ctx context.Context, q pagination.Query, filter ListFilter) ([]models.VideoDocument, response.Pagination, error) {
	match := bson.M{"is_active": true}
	if filter.Category != "" {
		match["category"] = filter.Category
	}
	if filter.Level != "" {
		match["level"] = filter.Level
	}
	if filter.Tag != "" {
		match["tags"] = strings.ToLower(filter.Tag)
	}
	if filter.Search != "" {
		re := primitive.Regex{Pattern: regexEscape(filter.Search), Options: "i"}
		match["$or"] = bson.A{
			bson.M{"title": re},
			bson.M{"description": re},
		}
	}

	sort := bson.D{{Key: "created_at", Value: -1}}
	switch filter.SortBy {
	case "popular":
		sort = bson.D{{Key: "likes_count", Value: -1}, {Key: "created_at", Value: -1}}
	case "views":
		sort = bson.D{{Key: "views", Value: -1}, {Key: "created_at", Value: -1}}
	}

	return s.paged(ctx, match, q, sort)
}

func (s *Service) Popular(ctx context.Context, limit int) ([]models.VideoDocument, error) {
	return s.top(ctx, bson.D{{Key: "views", Value: -1}}, limit)
}

func (s *Service) Recent(ctx context.Context, limit int) ([]models.VideoDocument, error) {
	return s.top(ctx, bson.D{{Key: "created_at", Value: -1}}, limit)
}

func (s *Service) Featured(ctx context.Context, limit int) ([]models.VideoDocument, error) {
	if limit <= 0 || limit > 50 {
		limit = 10
	}
	cursor, err := s.coll.Find(ctx,
		bson.M{"is_active": true, "is_featured": true},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}).SetLimit(int64(limit)),
	)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []models.VideoDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

func (s *Service) ListByUploader(ctx context.Context, userID string, q pagination.Query) ([]models.VideoDocument, response.Pagination, error) {
	return s.paged(ctx, bson.M{"user_id": userID}, q, bson.D{{Key: "created_at", Value: -1}})
}

func (s *Service) Update(ctx context.Context, id, userID string, isAdmin bool, dto *UpdateVideoDTO) (*models.VideoDocument, error) {
	doc, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, nil
	}
	if doc.UserID != userID && !isAdmin {
		return nil, ErrNotUploader
	}

	set := bson.M{"updated_at": time.Now()}
	if dto.Title != nil {
		set["title"] = *dto.Title
	}
	if dto.Description != nil {
		set["description"] = *dto.Description
	}
	if dto.ThumbnailURL != nil {
		set["thumbnail_url"] = *dto.ThumbnailURL
	}
	if dto.Category != nil {
		if !models.ValidVideoCategory(models.VideoCategory(*dto.Category)) {
			return nil, ErrInvalidCategory
		}
		set["category"] = *dto.Category
	}
	if dto.Level != nil {
		if !models.ValidVideoLevel(models.VideoLevel(*dto.Level)) {
			return nil, ErrInvalidLevel
		}
		set["level"] = *dto.Level
	}
	if dto.Tags != nil {
		set["tags"] = normalizeTags(dto.Tags)
	}
	if dto.Duration != nil {
		set["duration"] = *dto.Duration
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
		return ErrNotUploader
	}

	_, err = s.coll.UpdateOne(ctx, bson.M{"_id": doc.ID}, bson.M{
		"$set": bson.M{"is_active": false, "updated_at": time.Now()},
	})
	return err
}

func (s *Service) SetFeatured(ctx context.Context, id string, featured bool) (*models.VideoDocument, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, nil
	}
	res, err := s.coll.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{
		"$set": bson.M{"is_featured": featured, "updated_at": time.Now()},
	})
	if err != nil {
		return nil, err
	}
	if res.MatchedCount == 0 {
		return nil, nil
	}
	return s.GetByID(ctx, id)
}

// RecordView bumps the view counter. A single $inc keeps concurrent plays
// from losing counts.
func (s *Service) RecordView(ctx context.Context, id string) (*models.VideoDocument, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, nil
	}
	res, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": oid, "is_active": true},
		bson.M{"$inc": bson.M{"views": 1}},
	)
	if err != nil {
		return nil, err
	}
	if res.MatchedCount == 0 {
		return nil, nil
	}
	return s.GetByID(ctx, id)
}

// ToggleLike mirrors the post like toggle: guarded filter plus $inc.
func (s *Service) ToggleLike(ctx context.Context, id, userID string) (*models.VideoDocument, error) {
	doc, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, nil
	}

	now := time.Now()
	liked := false
	for _, u := range doc.Likes {
		if u == userID {
			liked = true
			break
		}
	}

	if liked {
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

func (s *Service) top(ctx context.Context, sort bson.D, limit int) ([]models.VideoDocument, error) {
	if limit <= 0 || limit > 50 {
		limit = 10
	}
	cursor, err := s.coll.Find(ctx,
		bson.M{"is_active": true},
		options.Find().SetSort(sort).SetLimit(int64(limit)),
	)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []models.VideoDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

func (s *Service) paged(ctx context.Context, filter bson.M, q pagination.Query, sort bson.D) ([]models.VideoDocument, response.Pagination, error) {
	total, err := s.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, response.Pagination{}, err
	}

	opts := options.Find().
		SetSort(sort).
		SetSkip(q.Offset()).
		SetLimit(int64(q.Size))
	cursor, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, response.Pagination{}, err
	}
	defer cursor.Close(ctx)

	var docs []models.VideoDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, response.Pagination{}, err
	}
	return docs, pagination.Meta(q, total), nil
}

func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

func regexEscape(s string) string {
	var b strings.Builder
	for _, r := range s {
		if strings.ContainsRune(`\.+*?()|[]{}^$`, r) {
			b.WriteRune('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
