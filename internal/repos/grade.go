package repos

import (
  "context"
  "github.com/google/uuid"
  "gorm.io/gorm"
  "gorm.io/gorm/clause"
  "github.com/classpoint/classpoint-backend/internal/logger"
  "github.com/classpoint/classpoint-backend/internal/types"
)

type GradeRepo interface {
  Create(ctx context.Context, tx *gorm.DB, grades []*types.Grade) ([]*types.Grade, error)
  // GetCell returns the grade cell for one (student, category) pair, or
  // nil when no cell exists yet.
  GetCell(ctx context.Context, tx *gorm.DB, studentID, categoryID uuid.UUID) (*types.Grade, error)
  // GetCellForUpdate is GetCell with a row lock, for read-modify-write
  // inside a transaction.
  GetCellForUpdate(ctx context.Context, tx *gorm.DB, studentID, categoryID uuid.UUID) (*types.Grade, error)
  GetByStudentID(ctx context.Context, tx *gorm.DB, studentID uuid.UUID) ([]*types.Grade, error)
  Save(ctx context.Context, tx *gorm.DB, grade *types.Grade) error
}

type gradeRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewGradeRepo(db *gorm.DB, baseLog *logger.Logger) GradeRepo {
  repoLog := baseLog.With("repo", "GradeRepo")
  return &gradeRepo{db: db, log: repoLog}
}

func (gr *gradeRepo) Create(ctx context.Context, tx *gorm.DB, grades []*types.Grade) ([]*types.Grade, error) {
  transaction := tx
  if transaction == nil {
    transaction = gr.db
  }

  if len(grades) == 0 {
    return []*types.Grade{}, nil
  }

  if err := transaction.WithContext(ctx).Create(&grades).Error; err != nil {
    return nil, err
  }
  return grades, nil
}

func (gr *gradeRepo) GetCell(ctx context.Context, tx *gorm.DB, studentID, categoryID uuid.UUID) (*types.Grade, error) {
  return gr.getCell(ctx, tx, studentID, categoryID, false)
}

func (gr *gradeRepo) GetCellForUpdate(ctx context.Context, tx *gorm.DB, studentID, categoryID uuid.UUID) (*types.Grade, error) {
  return gr.getCell(ctx, tx, studentID, categoryID, true)
}

func (gr *gradeRepo) getCell(ctx context.Context, tx *gorm.DB, studentID, categoryID uuid.UUID, lock bool) (*types.Grade, error) {
  transaction := tx
  if transaction == nil {
    transaction = gr.db
  }

  query := transaction.WithContext(ctx)
  if lock {
    query = query.Clauses(clause.Locking{Strength: "UPDATE"})
  }

  var results []*types.Grade
  if err := query.
    Where("student_id = ? AND category_id = ?", studentID, categoryID).
    Limit(1).
    Find(&results).Error; err != nil {
    return nil, err
  }
  if len(results) == 0 {
    return nil, nil
  }
  return results[0], nil
}

func (gr *gradeRepo) GetByStudentID(ctx context.Context, tx *gorm.DB, studentID uuid.UUID) ([]*types.Grade, error) {
  transaction := tx
  if transaction == nil {
    transaction = gr.db
  }

  var results []*types.Grade
  if err := transaction.WithContext(ctx).
    Preload("Category").
    Where("student_id = ?", studentID).
    Find(&results).Error; err != nil {
    return nil, err
  }
  return results, nil
}

func (gr *gradeRepo) Save(ctx context.Context, tx *gorm.DB, grade *types.Grade) error {
  transaction := tx
  if transaction == nil {
    transaction = gr.db
  }

  return transaction.WithContext(ctx).Save(grade).Error
}
