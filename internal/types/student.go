package types

import (
  "time"
  "github.com/google/uuid"
)

// Student names are unique per class, which is what lets the command
// pipeline resolve students by bare name inside one class.
type Student struct {
  ID                uuid.UUID       `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
  ClassID           uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:uq_student_name_class" json:"class_id"`
  Class             *Class          `gorm:"constraint:OnDelete:CASCADE;foreignKey:ClassID;references:ID" json:"class,omitempty"`
  Name              string          `gorm:"not null;uniqueIndex:uq_student_name_class;column:name" json:"name"`
  Email             string          `gorm:"uniqueIndex;not null;column:email" json:"email"`
  IsActive          bool            `gorm:"not null;default:false;column:is_active" json:"is_active"`
  AvatarBucketKey   string          `gorm:"column:avatar_bucket_key" json:"avatar_bucket_key"`
  AvatarURL         string          `gorm:"column:avatar_url" json:"avatar_url"`
  CreatedAt         time.Time       `gorm:"not null;default:now()" json:"created_at"`
  UpdatedAt         time.Time       `gorm:"not null;default:now()" json:"updated_at"`
}

func (Student) TableName() string {
  return "student"
}
