package alert

import (
	"context"
	"errors"
	"time"

	"github.com/motohub/core/internal/models"
	"github.com/motohub/core/internal/pkg/geo"
	"github.com/motohub/core/internal/pkg/pagination"
	"github.com/motohub/core/internal/pkg/response"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

var (
	ErrInvalidType     = errors.New("unknown alert type")
	ErrInvalidSeverity = errors.New("unknown alert severity")
	ErrInvalidLatLng   = errors.New("invalid coordinates")
	ErrInvalidRadius   = errors.New("radius must be positive")
	ErrNotReporter     = errors.New("only the reporter can do that")
	ErrVoteContention  = errors.New("vote could not be applied, try again")
	ErrExpired         = errors.New("alert has expired")
	ErrExpiryInPast    = errors.New("expiry must be in the future")
)

const (
	defaultExpiry     = 24 * time.Hour
	maxVoteRetries    = 5
	maxNearbyRadiusKm = 200.0

	defaultListRadiusKm = 50.0
	defaultNearbyLimit  = 20
	maxNearbyLimit      = 100
)

type CreateAlertDTO struct {
	Type        string     `json:"type" binding:"required"`
	Severity    string     `json:"severity" binding:"required"`
	Title       string     `json:"title" binding:"required"`
	Description string     `json:"description"`
	Latitude    float64    `json:"latitude" binding:"required"`
	Longitude   float64    `json:"longitude" binding:"required"`
	Address     string     `json:"address"`
	Images      []string   `json:"images"`
	ExpiresAt   *time.Time `json:"expiresAt"`
}

type UpdateAlertDTO struct {
	Severity    *string    `json:"severity"`
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	Address     *string    `json:"address"`
	Images      []string   `json:"images"`
	ExpiresAt   *time.Time `json:"expiresAt"`
}

// AlertView decorates an alert with the requesting user's vote state.
type AlertView struct {
	*models.AlertDocument
	HasUpvoted   bool `json:"hasUpvoted"`
	HasDownvoted bool `json:"hasDownvoted"`
}

// ViewFor wraps an alert for the given viewer; empty userID means anonymous.
func ViewFor(a *models.AlertDocument, userID string) *AlertView {
	v := &AlertView{AlertDocument: a}
	if userID == "" {
		return v
	}
	for _, u := range a.Upvotes {
		if u == userID {
			v.HasUpvoted = true
			break
		}
	}
	for _, u := range a.Downvotes {
		if u == userID {
			v.HasDownvoted = true
			break
		}
	}
	return v
}

// Notifier pushes realtime alert events to connected clients.
type Notifier interface {
	AlertCreated(alert *models.AlertDocument)
	AlertUpdated(alert *models.AlertDocument)
}

type Service struct {
	coll     *mongo.Collection
	notifier Notifier
	log      *zap.Logger
}

func NewService(db *mongo.Database, notifier Notifier, log *zap.Logger) *Service {
	return &Service{
		coll:     db.Collection(models.AlertCollection),
		notifier: notifier,
		log:      log,
	}
}

func (s *Service) Create(ctx context.Context, userID string, dto *CreateAlertDTO) (*models.AlertDocument, error) {
	if !models.ValidAlertType(models.AlertType(dto.Type)) {
		return nil, ErrInvalidType
	}
	if !models.ValidSeverity(models.AlertSeverity(dto.Severity)) {
		return nil, ErrInvalidSeverity
	}
	p := geo.Point{Lat: dto.Latitude, Lng: dto.Longitude}
	if err := p.Validate(); err != nil {
		return nil, ErrInvalidLatLng
	}

	now := time.Now()
	expires := now.Add(defaultExpiry)
	if dto.ExpiresAt != nil {
		if !dto.ExpiresAt.After(now) {
			return nil, ErrExpiryInPast
		}
		expires = *dto.ExpiresAt
	}

	doc := &models.AlertDocument{
		UserID:      userID,
		Type:        models.AlertType(dto.Type),
		Severity:    models.AlertSeverity(dto.Severity),
		Title:       dto.Title,
		Description: dto.Description,
		Latitude:    dto.Latitude,
		Longitude:   dto.Longitude,
		Address:     dto.Address,
		Images:      dto.Images,
		Upvotes:     []string{},
		Downvotes:   []string{},
		IsActive:    true,
		ExpiresAt:   expires,
		Version:     0,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	res, err := s.coll.InsertOne(ctx, doc)
	if err != nil {
		return nil, err
	}
	doc.ID = res.InsertedID.(primitive.ObjectID)

	if s.notifier != nil {
		s.notifier.AlertCreated(doc)
	}
	return doc, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (*models.AlertDocument, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, nil
	}

	var doc models.AlertDocument
	err = s.coll.FindOne(ctx, activeAlertFilter(oid)).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// ListFilter narrows the alert listing. Center and RadiusKm switch on a
// bounding-box prefilter; exact distance is not applied here since corner
// hits are still nearby in practice and the original listing behaves the
// same way.
type ListFilter struct {
	Type     string
	Severity string
	Center   *geo.Point
	RadiusKm float64
}

func (s *Service) List(ctx context.Context, q pagination.Query, f ListFilter) ([]models.AlertDocument, response.Pagination, error) {
	filter := bson.M{
		"is_active":  true,
		"expires_at": bson.M{"$gt": time.Now()},
	}
	if f.Type != "" {
		filter["type"] = f.Type
	}
	if f.Severity != "" {
		filter["severity"] = f.Severity
	}
	if f.Center != nil {
		if err := f.Center.Validate(); err != nil {
			return nil, response.Pagination{}, ErrInvalidLatLng
		}
		radius := f.RadiusKm
		if radius <= 0 {
			radius = defaultListRadiusKm
		}
		if radius > maxNearbyRadiusKm {
			radius = maxNearbyRadiusKm
		}
		bounds := geo.BoundsAround(*f.Center, radius)
		filter["latitude"] = bson.M{"$gte": bounds.MinLat, "$lte": bounds.MaxLat}
		filter["longitude"] = bson.M{"$gte": bounds.MinLng, "$lte": bounds.MaxLng}
	}
	return s.paged(ctx, filter, q, bson.D{{Key: "created_at", Value: -1}})
}

// ListActive returns every live alert without paging, newest first.
func (s *Service) ListActive(ctx context.Context) ([]models.AlertDocument, error) {
	filter := bson.M{
		"is_active":  true,
		"expires_at": bson.M{"$gt": time.Now()},
	}
	cursor, err := s.coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []models.AlertDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

func (s *Service) ListByUser(ctx context.Context, userID string, q pagination.Query) ([]models.AlertDocument, response.Pagination, error) {
	return s.paged(ctx, bson.M{"user_id": userID}, q, bson.D{{Key: "created_at", Value: -1}})
}

// Update lets the reporter amend an alert that has not expired yet. The new
// expiry, when given, must still be in the future.
func (s *Service) Update(ctx context.Context, id, userID string, isAdmin bool, dto *UpdateAlertDTO) (*models.AlertDocument, error) {
	doc, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, nil
	}
	if doc.UserID != userID && !isAdmin {
		return nil, ErrNotReporter
	}
	now := time.Now()
	if !doc.ExpiresAt.After(now) {
		return nil, ErrExpired
	}

	set := bson.M{"updated_at": now}
	if dto.Severity != nil {
		if !models.ValidSeverity(models.AlertSeverity(*dto.Severity)) {
			return nil, ErrInvalidSeverity
		}
		set["severity"] = *dto.Severity
	}
	if dto.Title != nil {
		set["title"] = *dto.Title
	}
	if dto.Description != nil {
		set["description"] = *dto.Description
	}
	if dto.Address != nil {
		set["address"] = *dto.Address
	}
	if dto.Images != nil {
		set["images"] = dto.Images
	}
	if dto.ExpiresAt != nil {
		if !dto.ExpiresAt.After(now) {
			return nil, ErrExpiryInPast
		}
		set["expires_at"] = *dto.ExpiresAt
	}

	if _, err := s.coll.UpdateOne(ctx, bson.M{"_id": doc.ID}, bson.M{"$set": set}); err != nil {
		return nil, err
	}
	return s.GetByID(ctx, id)
}

// FindNearby returns up to limit live alerts inside the bounding box around
// the center, newest first, then discards corner hits with the exact
// distance. Mongo only sees the cheap range filter; the sphere math stays in
// one place.
func (s *Service) FindNearby(ctx context.Context, center geo.Point, radiusKm float64, limit int) ([]models.AlertDocument, error) {
	if err := center.Validate(); err != nil {
		return nil, ErrInvalidLatLng
	}
	if radiusKm <= 0 {
		return nil, ErrInvalidRadius
	}
	if radiusKm > maxNearbyRadiusKm {
		radiusKm = maxNearbyRadiusKm
	}
	limit = clampNearbyLimit(limit)

	bounds := geo.BoundsAround(center, radiusKm)
	filter := bson.M{
		"is_active":  true,
		"expires_at": bson.M{"$gt": time.Now()},
		"latitude":   bson.M{"$gte": bounds.MinLat, "$lte": bounds.MaxLat},
		"longitude":  bson.M{"$gte": bounds.MinLng, "$lte": bounds.MaxLng},
	}

	cursor, err := s.coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var candidates []models.AlertDocument
	if err := cursor.All(ctx, &candidates); err != nil {
		return nil, err
	}

	out := make([]models.AlertDocument, 0, len(candidates))
	for _, a := range candidates {
		if geo.Distance(center, geo.Point{Lat: a.Latitude, Lng: a.Longitude}) <= radiusKm {
			out = append(out, a)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

// Vote toggles the user's vote on an alert. The read-modify-write races with
// other voters, so the update matches on the version it read and retries a
// few times when another write got there first.
func (s *Service) Vote(ctx context.Context, id, userID string, kind VoteKind) (*models.AlertDocument, error) {
	for attempt := 0; attempt < maxVoteRetries; attempt++ {
		doc, err := s.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if doc == nil {
			return nil, nil
		}

		next := Toggle(VoteState{Upvotes: doc.Upvotes, Downvotes: doc.Downvotes}, userID, kind)

		res, err := s.coll.UpdateOne(ctx,
			bson.M{"_id": doc.ID, "version": doc.Version},
			bson.M{
				"$set": bson.M{
					"upvotes":         next.Upvotes,
					"downvotes":       next.Downvotes,
					"upvotes_count":   len(next.Upvotes),
					"downvotes_count": len(next.Downvotes),
					"updated_at":      time.Now(),
				},
				"$inc": bson.M{"version": 1},
			},
		)
		if err != nil {
			return nil, err
		}
		if res.ModifiedCount == 1 {
			updated, err := s.GetByID(ctx, id)
			if err == nil && updated != nil && s.notifier != nil {
				s.notifier.AlertUpdated(updated)
			}
			return updated, err
		}
		if s.log != nil {
			s.log.Debug("vote retry", zap.String("alert", id), zap.Int("attempt", attempt+1))
		}
	}
	return nil, ErrVoteContention
}

// Deactivate retires an alert. Reporter or admin only; enforced by caller
// passing isAdmin.
func (s *Service) Deactivate(ctx context.Context, id, userID string, isAdmin bool) error {
	doc, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if doc == nil {
		return mongo.ErrNoDocuments
	}
	if doc.UserID != userID && !isAdmin {
		return ErrNotReporter
	}

	_, err = s.coll.UpdateOne(ctx, bson.M{"_id": doc.ID}, bson.M{
		"$set": bson.M{"is_active": false, "updated_at": time.Now()},
	})
	return err
}

// Verify marks an alert as confirmed by a moderator.
func (s *Service) Verify(ctx context.Context, id string, verified bool) (*models.AlertDocument, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, nil
	}
	res, err := s.coll.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{
		"$set": bson.M{"is_verified": verified, "updated_at": time.Now()},
	})
	if err != nil {
		return nil, err
	}
	if res.MatchedCount == 0 {
		return nil, nil
	}
	return s.GetByID(ctx, id)
}

// ExpireStale deactivates alerts whose expiry has passed. Run from the cron
// scheduler.
func (s *Service) ExpireStale(ctx context.Context) (int64, error) {
	res, err := s.coll.UpdateMany(ctx,
		bson.M{"is_active": true, "expires_at": bson.M{"$lte": time.Now()}},
		bson.M{"$set": bson.M{"is_active": false, "updated_at": time.Now()}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// activeAlertFilter matches a single live alert. Deactivated alerts are gone
// as far as readers are concerned.
func activeAlertFilter(oid primitive.ObjectID) bson.M {
	return bson.M{"_id": oid, "is_active": true}
}

func clampNearbyLimit(limit int) int {
	if limit <= 0 || limit > maxNearbyLimit {
		return defaultNearbyLimit
	}
	return limit
}

func (s *Service) paged(ctx context.Context, filter bson.M, q pagination.Query, sort bson.D) ([]models.AlertDocument, response.Pagination, error) {
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

	var docs []models.AlertDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, response.Pagination{}, err
	}
	return docs, pagination.Meta(q, total), nil
}
