package booking

import (
	"errors"
	"fmt"
	"time"

	"github.com/motohub/core/internal/models"
	"github.com/motohub/core/internal/pkg/mail"
	"github.com/motohub/core/internal/pkg/pagination"
	"github.com/motohub/core/internal/pkg/response"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrPastStartDate     = errors.New("start date must be in the future")
	ErrSlotTaken         = errors.New("the garage already has a booking in that time slot")
	ErrGarageNotFound    = errors.New("garage not found")
	ErrGarageInactive    = errors.New("garage is not accepting bookings")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrNotParticipant    = errors.New("only the rider or the garage owner can do that")
)

// defaultSlotDuration pads bookings without an explicit end date for the
// overlap check.
const defaultSlotDuration = 2 * time.Hour

type CreateBookingDTO struct {
	GarageID    string     `json:"garageId" binding:"required"`
	ServiceType string     `json:"serviceType" binding:"required"`
	Description string     `json:"description"`
	StartDate   time.Time  `json:"startDate" binding:"required"`
	EndDate     *time.Time `json:"endDate"`
	Notes       string     `json:"notes"`
}

type UpdateBookingDTO struct {
	ServiceType *string    `json:"serviceType"`
	Description *string    `json:"description"`
	StartDate   *time.Time `json:"startDate"`
	EndDate     *time.Time `json:"endDate"`
	Notes       *string    `json:"notes"`
}

type UpdateStatusDTO struct {
	Status string   `json:"status" binding:"required"`
	Price  *float64 `json:"price"`
	Notes  *string  `json:"notes"`
}

type CancelDTO struct {
	Reason string `json:"reason"`
}

// Notifier pushes realtime booking events to connected clients.
type Notifier interface {
	BookingChanged(userID string, booking *models.BookingModel)
}

type Service struct {
	db       *gorm.DB
	sender   *mail.Sender
	notifier Notifier
	log      *zap.Logger
	siteName string
}

func NewService(db *gorm.DB, sender *mail.Sender, notifier Notifier, log *zap.Logger, siteName string) *Service {
	return &Service{db: db, sender: sender, notifier: notifier, log: log, siteName: siteName}
}

// Create books a slot. The overlap check and insert run in one transaction
// so two riders cannot claim the same slot.
func (s *Service) Create(userID string, dto *CreateBookingDTO) (*models.BookingModel, error) {
	if !dto.StartDate.After(time.Now()) {
		return nil, ErrPastStartDate
	}

	var g models.GarageModel
	if err := s.db.First(&g, "id = ?", dto.GarageID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGarageNotFound
		}
		return nil, err
	}
	if g.Status != models.GarageActive {
		return nil, ErrGarageInactive
	}

	b := models.BookingModel{
		UserID:      userID,
		GarageID:    dto.GarageID,
		ServiceType: dto.ServiceType,
		Description: dto.Description,
		StartDate:   dto.StartDate,
		EndDate:     dto.EndDate,
		Status:      models.BookingPending,
		Notes:       dto.Notes,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		taken, err := s.slotTaken(tx, dto.GarageID, dto.StartDate, dto.EndDate, "")
		if err != nil {
			return err
		}
		if taken {
			return ErrSlotTaken
		}
		return tx.Create(&b).Error
	})
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// slotTaken reports whether an active booking at the garage overlaps the
// requested window. excludeID skips the booking being rescheduled.
func (s *Service) slotTaken(tx *gorm.DB, garageID string, start time.Time, end *time.Time, excludeID string) (bool, error) {
	windowEnd := start.Add(defaultSlotDuration)
	if end != nil {
		windowEnd = *end
	}

	base := func() *gorm.DB {
		q := tx.Model(&models.BookingModel{}).
			Where("garage_id = ?", garageID).
			Where("status IN ?", []models.BookingStatus{
				models.BookingPending, models.BookingConfirmed, models.BookingInProgress,
			})
		if excludeID != "" {
			q = q.Where("id <> ?", excludeID)
		}
		return q
	}

	var count int64
	err := base().
		Where("start_date < ? AND COALESCE(end_date, datetime(start_date, '+2 hours')) > ?", windowEnd, start).
		Count(&count).Error
	if err == nil {
		return count > 0, nil
	}

	// MySQL has no datetime() function; fall back to its interval syntax.
	err = base().
		Where("start_date < ? AND COALESCE(end_date, DATE_ADD(start_date, INTERVAL 2 HOUR)) > ?", windowEnd, start).
		Count(&count).Error
	return count > 0, err
}

func (s *Service) GetByID(id string) (*models.BookingModel, error) {
	var b models.BookingModel
	if err := s.db.Preload("User").Preload("Garage").First(&b, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &b, nil
}

// ListFilter narrows a rider's booking history.
type ListFilter struct {
	GarageID string
	Status   string
	From     *time.Time
	To       *time.Time
}

func (s *Service) ListByUser(userID string, q pagination.Query, f ListFilter) ([]models.BookingModel, response.Pagination, error) {
	query := s.db.Model(&models.BookingModel{}).
		Preload("Garage").
		Where("user_id = ?", userID).
		Order("start_date DESC")
	if f.GarageID != "" {
		query = query.Where("garage_id = ?", f.GarageID)
	}
	if f.Status != "" {
		query = query.Where("status = ?", f.Status)
	}
	if f.From != nil {
		query = query.Where("start_date >= ?", *f.From)
	}
	if f.To != nil {
		query = query.Where("start_date <= ?", *f.To)
	}

	var bookings []models.BookingModel
	meta, err := pagination.Paginate(query, q, &bookings)
	return bookings, meta, err
}

// Update lets the rider reschedule or edit a booking that is not terminal.
// Date changes re-run the overlap check in the same transaction as the write.
func (s *Service) Update(id, requesterID string, dto *UpdateBookingDTO) (*models.BookingModel, error) {
	b, err := s.GetByID(id)
	if err != nil || b == nil {
		return b, err
	}
	if b.UserID != requesterID {
		return nil, ErrNotParticipant
	}
	if b.Status.Terminal() {
		return nil, fmt.Errorf("%w: cannot update a %s booking", ErrInvalidTransition, b.Status)
	}

	start := b.StartDate
	if dto.StartDate != nil {
		if !dto.StartDate.After(time.Now()) {
			return nil, ErrPastStartDate
		}
		start = *dto.StartDate
	}
	end := b.EndDate
	if dto.EndDate != nil {
		end = dto.EndDate
	}

	updates := map[string]interface{}{}
	if dto.ServiceType != nil {
		updates["service_type"] = *dto.ServiceType
	}
	if dto.Description != nil {
		updates["description"] = *dto.Description
	}
	if dto.StartDate != nil {
		updates["start_date"] = start
	}
	if dto.EndDate != nil {
		updates["end_date"] = end
	}
	if dto.Notes != nil {
		updates["notes"] = *dto.Notes
	}
	if len(updates) == 0 {
		return b, nil
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if dto.StartDate != nil || dto.EndDate != nil {
			taken, err := s.slotTaken(tx, b.GarageID, start, end, id)
			if err != nil {
				return err
			}
			if taken {
				return ErrSlotTaken
			}
		}
		return tx.Model(&models.BookingModel{}).Where("id = ?", id).Updates(updates).Error
	})
	if err != nil {
		return nil, err
	}
	return s.GetByID(id)
}

// Upcoming returns the rider's next confirmed bookings, soonest first.
func (s *Service) Upcoming(userID string, limit int) ([]models.BookingModel, error) {
	if limit < 1 || limit > 50 {
		limit = 10
	}
	var bookings []models.BookingModel
	err := s.db.Preload("Garage").
		Where("user_id = ?", userID).
		Where("status = ?", models.BookingConfirmed).
		Where("start_date >= ?", time.Now()).
		Order("start_date ASC").
		Limit(limit).
		Find(&bookings).Error
	return bookings, err
}

// Past returns the rider's bookings whose start date has passed, most
// recent first.
func (s *Service) Past(userID string, q pagination.Query) ([]models.BookingModel, response.Pagination, error) {
	query := s.db.Model(&models.BookingModel{}).
		Preload("Garage").
		Where("user_id = ?", userID).
		Where("start_date <= ?", time.Now()).
		Order("start_date DESC")

	var bookings []models.BookingModel
	meta, err := pagination.Paginate(query, q, &bookings)
	return bookings, meta, err
}

func (s *Service) ListByGarage(garageID, requesterID string, q pagination.Query, status string) ([]models.BookingModel, response.Pagination, error) {
	var g models.GarageModel
	if err := s.db.First(&g, "id = ?", garageID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.Pagination{}, ErrGarageNotFound
		}
		return nil, response.Pagination{}, err
	}
	if g.OwnerID != requesterID {
		return nil, response.Pagination{}, ErrNotParticipant
	}

	query := s.db.Model(&models.BookingModel{}).
		Preload("User").
		Where("garage_id = ?", garageID).
		Order("start_date ASC")
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var bookings []models.BookingModel
	meta, err := pagination.Paginate(query, q, &bookings)
	return bookings, meta, err
}

// allowedTransitions is the booking state machine.
var allowedTransitions = map[models.BookingStatus][]models.BookingStatus{
	models.BookingPending:    {models.BookingConfirmed, models.BookingCancelled},
	models.BookingConfirmed:  {models.BookingInProgress, models.BookingCancelled},
	models.BookingInProgress: {models.BookingCompleted, models.BookingCancelled},
}

func transitionAllowed(from, to models.BookingStatus) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// UpdateStatus advances the booking state machine. Only the garage owner may
// confirm, start, or complete a booking.
func (s *Service) UpdateStatus(id, requesterID string, dto *UpdateStatusDTO) (*models.BookingModel, error) {
	b, err := s.GetByID(id)
	if err != nil || b == nil {
		return b, err
	}

	var g models.GarageModel
	if err := s.db.First(&g, "id = ?", b.GarageID).Error; err != nil {
		return nil, err
	}
	if g.OwnerID != requesterID {
		return nil, ErrNotParticipant
	}

	to := models.BookingStatus(dto.Status)
	switch to {
	case models.BookingConfirmed, models.BookingInProgress, models.BookingCompleted:
	default:
		return nil, fmt.Errorf("%w: use the cancel endpoint to cancel", ErrInvalidTransition)
	}
	if !transitionAllowed(b.Status, to) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, b.Status, to)
	}

	updates := map[string]interface{}{"status": to}
	if dto.Price != nil {
		updates["price"] = *dto.Price
	}
	if dto.Notes != nil {
		updates["notes"] = *dto.Notes
	}
	if err := s.db.Model(&models.BookingModel{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return nil, err
	}

	b, err = s.GetByID(id)
	if err != nil {
		return nil, err
	}
	s.notifyStatusChange(b, g.Name, "")
	return b, nil
}

// Cancel moves a booking to cancelled from any non-terminal state. Both the
// rider and the garage owner may cancel.
func (s *Service) Cancel(id, requesterID string, dto *CancelDTO) (*models.BookingModel, error) {
	b, err := s.GetByID(id)
	if err != nil || b == nil {
		return b, err
	}

	var g models.GarageModel
	if err := s.db.First(&g, "id = ?", b.GarageID).Error; err != nil {
		return nil, err
	}
	if b.UserID != requesterID && g.OwnerID != requesterID {
		return nil, ErrNotParticipant
	}
	if b.Status.Terminal() {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, b.Status, models.BookingCancelled)
	}

	if err := s.db.Model(&models.BookingModel{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status":              models.BookingCancelled,
		"cancellation_reason": dto.Reason,
	}).Error; err != nil {
		return nil, err
	}

	b, err = s.GetByID(id)
	if err != nil {
		return nil, err
	}
	s.notifyStatusChange(b, g.Name, dto.Reason)
	return b, nil
}

// Delete removes a terminal booking entirely. Only the rider may delete.
func (s *Service) Delete(id, requesterID string) error {
	b, err := s.GetByID(id)
	if err != nil {
		return err
	}
	if b == nil {
		return gorm.ErrRecordNotFound
	}
	if b.UserID != requesterID {
		return ErrNotParticipant
	}
	if !b.Status.Terminal() {
		return fmt.Errorf("%w: only completed or cancelled bookings can be deleted", ErrInvalidTransition)
	}
	return s.db.Unscoped().Delete(&models.BookingModel{}, "id = ?", id).Error
}

func (s *Service) notifyStatusChange(b *models.BookingModel, garageName, reason string) {
	if s.notifier != nil {
		s.notifier.BookingChanged(b.UserID, b)
	}
	if s.sender == nil {
		return
	}

	var u models.UserModel
	if err := s.db.First(&u, "id = ?", b.UserID).Error; err != nil {
		return
	}
	go func() {
		err := s.sender.SendBookingStatus(u.Email, mail.BookingStatusData{
			Name:        u.Name,
			GarageName:  garageName,
			ServiceType: b.ServiceType,
			StartDate:   b.StartDate.Format("2006-01-02 15:04"),
			Status:      string(b.Status),
			Reason:      reason,
			SiteName:    s.siteName,
		})
		if err != nil && s.log != nil {
			s.log.Warn("booking status mail failed", zap.String("booking", b.ID), zap.Error(err))
		}
	}()
}
