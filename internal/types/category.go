package types

import (
  "time"
  "github.com/google/uuid"
)

// Category is one grading dimension of a class. Categories form a two-level
// tree: a top-level category may own subcategories via ParentID, and only
// leaf categories (no children) accept grade updates.
type Category struct {
  ID            uuid.UUID       `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
  ClassID       uuid.UUID       `gorm:"type:uuid;index;not null" json:"class_id"`
  Class         *Class          `gorm:"constraint:OnDelete:CASCADE;foreignKey:ClassID;references:ID" json:"class,omitempty"`
  ParentID      *uuid.UUID      `gorm:"type:uuid;index" json:"parent_id,omitempty"`
  Parent        *Category       `gorm:"constraint:OnDelete:CASCADE;foreignKey:ParentID;references:ID" json:"parent,omitempty"`
  Name          string          `gorm:"not null;column:name" json:"name"`
  Weight        float64         `gorm:"not null;default:1;column:weight" json:"weight"`
  IsActive      bool            `gorm:"not null;default:true;column:is_active" json:"is_active"`
  CreatedAt     time.Time       `gorm:"not null;default:now()" json:"created_at"`
  UpdatedAt     time.Time       `gorm:"not null;default:now()" json:"updated_at"`
}

func (Category) TableName() string {
  return "category"
}
