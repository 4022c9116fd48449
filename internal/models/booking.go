package models

import "time"

// BookingStatus is the booking state machine. Transitions flow
// pending -> confirmed -> in_progress -> completed; cancellation is allowed
// from any non-terminal state.
type BookingStatus string

const (
	BookingPending    BookingStatus = "pending"
	BookingConfirmed  BookingStatus = "confirmed"
	BookingInProgress BookingStatus = "in_progress"
	BookingCompleted  BookingStatus = "completed"
	BookingCancelled  BookingStatus = "cancelled"
)

// Terminal reports whether no further transitions are allowed from s.
func (s BookingStatus) Terminal() bool {
	return s == BookingCompleted || s == BookingCancelled
}

// Blocking reports whether a booking in state s occupies its time slot for
// the purposes of overlap checks.
func (s BookingStatus) Blocking() bool {
	return s == BookingPending || s == BookingConfirmed || s == BookingInProgress
}

// BookingModel is a service appointment at a garage.
type BookingModel struct {
	Base
	UserID             string        `json:"userId"   gorm:"index;not null"`
	GarageID           string        `json:"garageId" gorm:"index;not null"`
	ServiceType        string        `json:"serviceType" gorm:"not null"`
	Description        string        `json:"description" gorm:"type:text"`
	StartDate          time.Time     `json:"startDate"   gorm:"index;not null"`
	EndDate            *time.Time    `json:"endDate"`
	Status             BookingStatus `json:"status"      gorm:"default:pending;index"`
	Price              *float64      `json:"price"       gorm:"type:decimal(10,2)"`
	Notes              string        `json:"notes"       gorm:"type:text"`
	CancellationReason string        `json:"cancellationReason"`

	User   *UserModel   `json:"user,omitempty"   gorm:"foreignKey:UserID"`
	Garage *GarageModel `json:"garage,omitempty" gorm:"foreignKey:GarageID"`
}

func (BookingModel) TableName() string { return "bookings" }
