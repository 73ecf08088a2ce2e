package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Gulhayo05/Surprise-Bag/pkg/enums"
)

// User is the account record owned by the identity provider; the core only reads it.
type User struct {
	ID          uuid.UUID      `gorm:"column:id;type:uuid;primaryKey"`
	Email       string         `gorm:"column:email;not null;uniqueIndex:ux_users_email"`
	Name        string         `gorm:"column:name;not null"`
	Phone       *string        `gorm:"column:phone"`
	Role        enums.UserRole `gorm:"column:role;type:varchar(32);not null"`
	IsActive    bool           `gorm:"column:is_active;not null;default:true"`
	DeviceToken *string        `gorm:"column:device_token"`
	CreatedAt   time.Time      `gorm:"column:created_at;autoCreateTime"`
}

func (u *User) BeforeCreate(*gorm.DB) error {
	ensureID(&u.ID)
	return nil
}

// Business shares its primary key with the owning user.
type Business struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Name        string    `gorm:"column:name;not null;index:ix_business_name" json:"name"`
	Description *string   `gorm:"column:description" json:"description"`
	Address     *string   `gorm:"column:address" json:"address"`
	LogoURL     *string   `gorm:"column:logo_url" json:"logo_url"`
	IsApproved  bool      `gorm:"column:is_approved;not null;default:false" json:"is_approved"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}
