package models

import "time"

// ReviewModel is a user review of a garage. Rating is a whole number of
// stars, 1 through 5. Deactivated reviews (IsActive=false) are retained but
// excluded from the garage aggregate and from public listings.
type ReviewModel struct {
	Base
	UserID        string      `json:"userId"        gorm:"index;not null"`
	GarageID      string      `json:"garageId"      gorm:"index;not null"`
	Title         string      `json:"title"`
	Content       string      `json:"content"       gorm:"type:text"`
	Rating        int         `json:"rating"        gorm:"not null"`
	Images        StringArray `json:"images"        gorm:"type:longtext"`
	IsActive      bool        `json:"isActive"      gorm:"default:true;index"`
	OwnerResponse string      `json:"ownerResponse" gorm:"type:text"`
	ResponseDate  *time.Time  `json:"responseDate"`

	User   *UserModel   `json:"user,omitempty"   gorm:"foreignKey:UserID"`
	Garage *GarageModel `json:"garage,omitempty" gorm:"foreignKey:GarageID"`
}

func (ReviewModel) TableName() string { return "reviews" }
