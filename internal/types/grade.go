package types

import (
  "time"
  "github.com/google/uuid"
)

// Grade is the running point total for one (student, category) pair. The
// cell is created lazily on the first update, starting at 0.
type Grade struct {
  ID            uuid.UUID       `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
  StudentID     uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:uq_grade_cell" json:"student_id"`
  Student       *Student        `gorm:"constraint:OnDelete:CASCADE;foreignKey:StudentID;references:ID" json:"student,omitempty"`
  CategoryID    uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:uq_grade_cell" json:"category_id"`
  Category      *Category       `gorm:"constraint:OnDelete:CASCADE;foreignKey:CategoryID;references:ID" json:"category,omitempty"`
  Grade         float64         `gorm:"not null;column:grade" json:"grade"`
  Description   string          `gorm:"column:description" json:"description,omitempty"`
  CreatedAt     time.Time       `gorm:"not null;default:now()" json:"created_at"`
  UpdatedAt     time.Time       `gorm:"not null;default:now()" json:"updated_at"`
}

func (Grade) TableName() string {
  return "grade"
}

// GradeHistory is the append-only audit trail of point adjustments. Rows
// are written once per ledger mutation and never updated.
type GradeHistory struct {
  ID                uuid.UUID       `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
  GradeID           uuid.UUID       `gorm:"type:uuid;index;not null" json:"grade_id"`
  Grade             *Grade          `gorm:"constraint:OnDelete:CASCADE;foreignKey:GradeID;references:ID" json:"grade,omitempty"`
  ChangeAmount      float64         `gorm:"not null;column:change_amount" json:"change_amount"`
  CurrentGrade      float64         `gorm:"column:current_grade" json:"current_grade"`
  PercentageChange  float64         `gorm:"column:percentage_change" json:"percentage_change"`
  Description       string          `gorm:"column:description" json:"description,omitempty"`
  CreatedAt         time.Time       `gorm:"not null;default:now()" json:"created_at"`
}

func (GradeHistory) TableName() string {
  return "grade_history"
}
