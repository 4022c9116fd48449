package models

import "time"

// BikeType categorizes a rider's motorcycle.
type BikeType string

const (
	BikeSport     BikeType = "sport"
	BikeCruiser   BikeType = "cruiser"
	BikeTouring   BikeType = "touring"
	BikeAdventure BikeType = "adventure"
	BikeStandard  BikeType = "standard"
	BikeCustom    BikeType = "custom"
)

// UserRole controls access level.
type UserRole string

const (
	RoleUser   UserRole = "user"
	RoleGarage UserRole = "garage"
	RoleAdmin  UserRole = "admin"
)

// NotificationPreferences is stored as JSON on the user row.
type NotificationPreferences struct {
	Alerts    bool `json:"alerts"`
	Posts     bool `json:"posts"`
	Bookings  bool `json:"bookings"`
	Marketing bool `json:"marketing"`
}

// UserModel represents a rider or garage-owner account.
type UserModel struct {
	Base
	Email             string                  `json:"email"            gorm:"uniqueIndex;not null"`
	Password          string                  `json:"-"                gorm:"not null"`
	Name              string                  `json:"name"             gorm:"not null"`
	AvatarURL         string                  `json:"avatarUrl"`
	BikeType          BikeType                `json:"bikeType"`
	BikeModel         string                  `json:"bikeModel"`
	BikeYear          int                     `json:"bikeYear"`
	BikeMileage       int                     `json:"bikeMileage"`
	Role              UserRole                `json:"role"             gorm:"default:user;index"`
	IsActive          bool                    `json:"isActive"         gorm:"default:true"`
	IsVerified        bool                    `json:"isVerified"       gorm:"default:false"`
	VerificationToken *string                 `json:"-"                gorm:"index"`
	RefreshToken      string                  `json:"-"                gorm:"type:text"`
	FCMToken          string                  `json:"-"`
	Notifications     NotificationPreferences `json:"notifications"    gorm:"serializer:json"`
	LastLogin         *time.Time              `json:"lastLogin"`
}

func (UserModel) TableName() string { return "users" }

// UserSession is a server-side login session a JWT is bound to.
type UserSession struct {
	Base
	UserID    string     `json:"-"  gorm:"index;not null"`
	IP        string     `json:"ip"`
	UA        string     `json:"ua" gorm:"type:varchar(512)"`
	ExpiresAt time.Time  `json:"expires_at"`
	RevokedAt *time.Time `json:"revoked_at"`
}

func (UserSession) TableName() string { return "user_sessions" }
