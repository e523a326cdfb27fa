package types

import (
  "time"
  "github.com/google/uuid"
)

type Item struct {
  ID                  uuid.UUID       `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
  ClassID             uuid.UUID       `gorm:"type:uuid;index;not null" json:"class_id"`
  Class               *Class          `gorm:"constraint:OnDelete:CASCADE;foreignKey:ClassID;references:ID" json:"class,omitempty"`
  Name                string          `gorm:"not null;column:name" json:"name"`
  Description         *string         `gorm:"column:description" json:"description,omitempty"`
  Price               float64         `gorm:"not null;default:0;column:price" json:"price"`
  ExpirationEnabled   bool            `gorm:"not null;default:false;column:expiration_enabled" json:"expirationEnabled"`
  ExpirationTime      *int            `gorm:"column:expiration_time" json:"expirationTime,omitempty"`
  UsesEnabled         bool            `gorm:"not null;default:false;column:uses_enabled" json:"usesEnabled"`
  Uses                *int            `gorm:"column:uses" json:"uses,omitempty"`
  Icon                *string         `gorm:"column:icon" json:"icon,omitempty"`
  CreatedAt           time.Time       `gorm:"not null;default:now()" json:"created_at"`
  UpdatedAt           time.Time       `gorm:"not null;default:now()" json:"updated_at"`
}

func (Item) TableName() string {
  return "item"
}
