package types

import (
  "time"
  "github.com/google/uuid"
)

type Challenge struct {
  ID              uuid.UUID       `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
  ClassID         uuid.UUID       `gorm:"type:uuid;index;not null" json:"class_id"`
  Class           *Class          `gorm:"constraint:OnDelete:CASCADE;foreignKey:ClassID;references:ID" json:"class,omitempty"`
  Name            string          `gorm:"not null;column:name" json:"name"`
  Description     *string         `gorm:"column:description" json:"description,omitempty"`
  IconBucketKey   string          `gorm:"column:icon_bucket_key" json:"-"`
  IconURL         *string         `gorm:"column:icon_url" json:"icon_path,omitempty"`
  Level           int             `gorm:"not null;default:1;column:level" json:"level"`
  CreatedAt       time.Time       `gorm:"not null;default:now()" json:"created_at"`
  UpdatedAt       time.Time       `gorm:"not null;default:now()" json:"updated_at"`
}

func (Challenge) TableName() string {
  return "challenge"
}
