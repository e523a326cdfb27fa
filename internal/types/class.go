package types

import (
  "time"
  "github.com/google/uuid"
)

type Class struct {
  ID                  uuid.UUID       `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
  Name                string          `gorm:"index;not null;column:name" json:"name"`
  Description         string          `gorm:"column:description" json:"description"`
  AcademicYear        *int            `gorm:"column:academic_year" json:"academic_year,omitempty"`
  Group               *string         `gorm:"column:class_group" json:"group,omitempty"`
  Subject             *string         `gorm:"column:subject" json:"subject,omitempty"`
  InviteCodeEnabled   bool            `gorm:"not null;default:false;column:invite_code_enabled" json:"is_invitation_code_enabled"`
  InviteLink          *string         `gorm:"column:invite_link" json:"invitation_link,omitempty"`
  InviteCode          *string         `gorm:"column:invite_code" json:"invitation_code,omitempty"`
  CreatedAt           time.Time       `gorm:"not null;default:now()" json:"created_at"`
  UpdatedAt           time.Time       `gorm:"not null;default:now()" json:"updated_at"`
}

func (Class) TableName() string {
  return "class"
}

type ClassMember struct {
  ID            uuid.UUID       `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
  ClassID       uuid.UUID       `gorm:"type:uuid;index;not null" json:"class_id"`
  Class         *Class          `gorm:"constraint:OnDelete:CASCADE;foreignKey:ClassID;references:ID" json:"class,omitempty"`
  UserID        uuid.UUID       `gorm:"type:uuid;index;not null" json:"user_id"`
  User          *User           `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
  Role          string          `gorm:"not null;default:student;column:role" json:"role"`
  CreatedAt     time.Time       `gorm:"not null;default:now()" json:"created_at"`
}

func (ClassMember) TableName() string {
  return "class_member"
}
