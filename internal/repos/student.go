package repos

import (
  "context"
  "github.com/google/uuid"
  "gorm.io/gorm"
  "github.com/classpoint/classpoint-backend/internal/logger"
  "github.com/classpoint/classpoint-backend/internal/types"
)

type StudentRepo interface {
  Create(ctx context.Context, tx *gorm.DB, students []*types.Student) ([]*types.Student, error)
  GetByIDs(ctx context.Context, tx *gorm.DB, studentIDs []uuid.UUID) ([]*types.Student, error)
  GetByClassID(ctx context.Context, tx *gorm.DB, classID uuid.UUID) ([]*types.Student, error)
  // GetByNames resolves students by exact name within one class. Names
  // that match nothing are simply absent from the result.
  GetByNames(ctx context.Context, tx *gorm.DB, classID uuid.UUID, names []string) ([]*types.Student, error)
  EmailExists(ctx context.Context, tx *gorm.DB, email string) (bool, error)
  EmailExistsInClass(ctx context.Context, tx *gorm.DB, classID uuid.UUID, email string) (bool, error)
  Save(ctx context.Context, tx *gorm.DB, student *types.Student) error
}

type studentRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewStudentRepo(db *gorm.DB, baseLog *logger.Logger) StudentRepo {
  repoLog := baseLog.With("repo", "StudentRepo")
  return &studentRepo{db: db, log: repoLog}
}

func (sr *studentRepo) Create(ctx context.Context, tx *gorm.DB, students []*types.Student) ([]*types.Student, error) {
  transaction := tx
  if transaction == nil {
    transaction = sr.db
  }

  if len(students) == 0 {
    return []*types.Student{}, nil
  }

  if err := transaction.WithContext(ctx).Create(&students).Error; err != nil {
    return nil, err
  }
  return students, nil
}

func (sr *studentRepo) GetByIDs(ctx context.Context, tx *gorm.DB, studentIDs []uuid.UUID) ([]*types.Student, error) {
  transaction := tx
  if transaction == nil {
    transaction = sr.db
  }

  var results []*types.Student
  if len(studentIDs) == 0 {
    return results, nil
  }

  if err := transaction.WithContext(ctx).
    Where("id IN ?", studentIDs).
    Find(&results).Error; err != nil {
    return nil, err
  }
  return results, nil
}

func (sr *studentRepo) GetByClassID(ctx context.Context, tx *gorm.DB, classID uuid.UUID) ([]*types.Student, error) {
  transaction := tx
  if transaction == nil {
    transaction = sr.db
  }

  var results []*types.Student
  if err := transaction.WithContext(ctx).
    Where("class_id = ?", classID).
    Order("name ASC").
    Find(&results).Error; err != nil {
    return nil, err
  }
  return results, nil
}

func (sr *studentRepo) GetByNames(ctx context.Context, tx *gorm.DB, classID uuid.UUID, names []string) ([]*types.Student, error) {
  transaction := tx
  if transaction == nil {
    transaction = sr.db
  }

  var results []*types.Student
  if len(names) == 0 {
    return results, nil
  }

  if err := transaction.WithContext(ctx).
    Where("class_id = ? AND name IN ?", classID, names).
    Find(&results).Error; err != nil {
    return nil, err
  }
  return results, nil
}

func (sr *studentRepo) EmailExists(ctx context.Context, tx *gorm.DB, email string) (bool, error) {
  transaction := tx
  if transaction == nil {
    transaction = sr.db
  }

  var count int64
  if err := transaction.WithContext(ctx).
    Model(&types.Student{}).
    Where("email = ?", email).
    Count(&count).Error; err != nil {
    return false, err
  }
  return count > 0, nil
}

func (sr *studentRepo) EmailExistsInClass(ctx context.Context, tx *gorm.DB, classID uuid.UUID, email string) (bool, error) {
  transaction := tx
  if transaction == nil {
    transaction = sr.db
  }

  var count int64
  if err := transaction.WithContext(ctx).
    Model(&types.Student{}).
    Where("class_id = ? AND email = ?", classID, email).
    Count(&count).Error; err != nil {
    return false, err
  }
  return count > 0, nil
}

func (sr *studentRepo) Save(ctx context.Context, tx *gorm.DB, student *types.Student) error {
  transaction := tx
  if transaction == nil {
    transaction = sr.db
  }

  return transaction.WithContext(ctx).Save(student).Error
}
