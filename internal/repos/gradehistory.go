package repos

import (
  "context"
  "github.com/google/uuid"
  "gorm.io/gorm"
  "github.com/classpoint/classpoint-backend/internal/logger"
  "github.com/classpoint/classpoint-backend/internal/types"
)

type GradeHistoryRepo interface {
  Create(ctx context.Context, tx *gorm.DB, entries []*types.GradeHistory) ([]*types.GradeHistory, error)
  GetByGradeID(ctx context.Context, tx *gorm.DB, gradeID uuid.UUID) ([]*types.GradeHistory, error)
  // GetByStudentID returns the full audit trail for one student across
  // all categories, ordered by category name then newest first, with the
  // owning grade and its category preloaded.
  GetByStudentID(ctx context.Context, tx *gorm.DB, studentID uuid.UUID) ([]*types.GradeHistory, error)
}

type gradeHistoryRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewGradeHistoryRepo(db *gorm.DB, baseLog *logger.Logger) GradeHistoryRepo {
  repoLog := baseLog.With("repo", "GradeHistoryRepo")
  return &gradeHistoryRepo{db: db, log: repoLog}
}

func (ghr *gradeHistoryRepo) Create(ctx context.Context, tx *gorm.DB, entries []*types.GradeHistory) ([]*types.GradeHistory, error) {
  transaction := tx
  if transaction == nil {
    transaction = ghr.db
  }

  if len(entries) == 0 {
    return []*types.GradeHistory{}, nil
  }

  if err := transaction.WithContext(ctx).Create(&entries).Error; err != nil {
    return nil, err
  }
  return entries, nil
}

func (ghr *gradeHistoryRepo) GetByGradeID(ctx context.Context, tx *gorm.DB, gradeID uuid.UUID) ([]*types.GradeHistory, error) {
  transaction := tx
  if transaction == nil {
    transaction = ghr.db
  }

  var results []*types.GradeHistory
  if err := transaction.WithContext(ctx).
    Where("grade_id = ?", gradeID).
    Order("created_at ASC").
    Find(&results).Error; err != nil {
    return nil, err
  }
  return results, nil
}

func (ghr *gradeHistoryRepo) GetByStudentID(ctx context.Context, tx *gorm.DB, studentID uuid.UUID) ([]*types.GradeHistory, error) {
  transaction := tx
  if transaction == nil {
    transaction = ghr.db
  }

  var results []*types.GradeHistory
  if err := transaction.WithContext(ctx).
    Preload("Grade").
    Preload("Grade.Category").
    Joins("JOIN grade ON grade.id = grade_history.grade_id").
    Joins("JOIN category ON category.id = grade.category_id").
    Where("grade.student_id = ?", studentID).
    Order("category.name ASC, grade_history.created_at DESC").
    Find(&results).Error; err != nil {
    return nil, err
  }
  return results, nil
}
