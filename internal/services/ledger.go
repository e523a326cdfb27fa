package services

import (
  "context"
  "fmt"
  "github.com/google/uuid"
  "gorm.io/gorm"
  "github.com/classpoint/classpoint-backend/internal/logger"
  "github.com/classpoint/classpoint-backend/internal/repos"
  "github.com/classpoint/classpoint-backend/internal/types"
)

// GradeUpdate is the outcome of one ledger mutation.
type GradeUpdate struct {
  StudentID         uuid.UUID   `json:"student_id"`
  CategoryID        uuid.UUID   `json:"category_id"`
  NewGrade          float64     `json:"total_grade"`
  PercentageChange  float64     `json:"percentage_change"`
}

// GradeLedgerService applies point deltas to (student, category) grade
// cells and appends the audit trail. Cell creation, mutation and history
// append happen in one transaction per call.
type GradeLedgerService interface {
  // ApplyDelta adds delta to the cell for (studentID, categoryID),
  // creating the cell at 0 if absent, and appends a history row. When tx
  // is non-nil the work joins the caller's transaction; otherwise a new
  // one is opened.
  ApplyDelta(ctx context.Context, tx *gorm.DB, studentID, categoryID uuid.UUID, delta float64, description string) (*GradeUpdate, error)
}

type gradeLedgerService struct {
  db               *gorm.DB
  log              *logger.Logger
  gradeRepo        repos.GradeRepo
  gradeHistoryRepo repos.GradeHistoryRepo
}

func NewGradeLedgerService(
  db *gorm.DB,
  log *logger.Logger,
  gradeRepo repos.GradeRepo,
  gradeHistoryRepo repos.GradeHistoryRepo,
) GradeLedgerService {
  serviceLog := log.With("service", "GradeLedgerService")
  return &gradeLedgerService{
    db:               db,
    log:              serviceLog,
    gradeRepo:        gradeRepo,
    gradeHistoryRepo: gradeHistoryRepo,
  }
}

func (gls *gradeLedgerService) ApplyDelta(ctx context.Context, tx *gorm.DB, studentID, categoryID uuid.UUID, delta float64, description string) (*GradeUpdate, error) {
  if tx != nil {
    return gls.applyDelta(ctx, tx, studentID, categoryID, delta, description)
  }

  var result *GradeUpdate
  if err := gls.db.WithContext(ctx).Transaction(func(innerTx *gorm.DB) error {
    var err error
    result, err = gls.applyDelta(ctx, innerTx, studentID, categoryID, delta, description)
    return err
  }); err != nil {
    return nil, err
  }
  return result, nil
}

func (gls *gradeLedgerService) applyDelta(ctx context.Context, tx *gorm.DB, studentID, categoryID uuid.UUID, delta float64, description string) (*GradeUpdate, error) {
  cell, err := gls.gradeRepo.GetCellForUpdate(ctx, tx, studentID, categoryID)
  if err != nil {
    return nil, fmt.Errorf("Failed to load grade cell: %w", err)
  }

  previousGrade := float64(0)
  if cell == nil {
    cell = &types.Grade{
      ID:         uuid.New(),
      StudentID:  studentID,
      CategoryID: categoryID,
      Grade:      0,
    }
    if _, err := gls.gradeRepo.Create(ctx, tx, []*types.Grade{cell}); err != nil {
      return nil, fmt.Errorf("Failed to create grade cell: %w", err)
    }
  } else {
    previousGrade = cell.Grade
  }

  cell.Grade = previousGrade + delta
  if err := gls.gradeRepo.Save(ctx, tx, cell); err != nil {
    return nil, fmt.Errorf("Failed to save grade cell: %w", err)
  }

  // Ratio-of-change relative to the previous total, pinned to 100 on a
  // fresh or zeroed cell so the division is always defined.
  percentageChange := float64(100)
  if previousGrade != 0 {
    percentageChange = (delta / previousGrade) * 100
  }

  entry := &types.GradeHistory{
    ID:               uuid.New(),
    GradeID:          cell.ID,
    ChangeAmount:     delta,
    CurrentGrade:     cell.Grade,
    PercentageChange: percentageChange,
    Description:      description,
  }
  if _, err := gls.gradeHistoryRepo.Create(ctx, tx, []*types.GradeHistory{entry}); err != nil {
    return nil, fmt.Errorf("Failed to append grade history: %w", err)
  }

  return &GradeUpdate{
    StudentID:        studentID,
    CategoryID:       categoryID,
    NewGrade:         cell.Grade,
    PercentageChange: percentageChange,
  }, nil
}
