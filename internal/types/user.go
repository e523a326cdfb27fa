package types

import (
  "time"
  "github.com/google/uuid"
)

type User struct {
  ID                uuid.UUID       `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
  Username          string          `gorm:"uniqueIndex;not null;column:username" json:"username"`
  Email             string          `gorm:"uniqueIndex;not null;column:email" json:"email"`
  Password          string          `gorm:"not null;column:password" json:"-"`
  IsEmailConfirmed  bool            `gorm:"not null;default:false;column:is_email_confirmed" json:"is_email_confirmed"`
  ConfirmationCode  string          `gorm:"column:confirmation_code" json:"-"`
  IsTeacher         bool            `gorm:"not null;default:true;column:is_teacher" json:"is_teacher"`
  CreatedAt         time.Time       `gorm:"not null;default:now()" json:"created_at"`
  UpdatedAt         time.Time       `gorm:"not null;default:now()" json:"updated_at"`
}

func (User) TableName() string {
  return "user"
}
