package repos

import (
  "context"
  "github.com/google/uuid"
  "gorm.io/gorm"
  "github.com/classpoint/classpoint-backend/internal/logger"
  "github.com/classpoint/classpoint-backend/internal/types"
)

type CategoryRepo interface {
  Create(ctx context.Context, tx *gorm.DB, categories []*types.Category) ([]*types.Category, error)
  GetByIDs(ctx context.Context, tx *gorm.DB, categoryIDs []uuid.UUID) ([]*types.Category, error)
  GetByClassID(ctx context.Context, tx *gorm.DB, classID uuid.UUID) ([]*types.Category, error)
  GetTopLevelByClassID(ctx context.Context, tx *gorm.DB, classID uuid.UUID) ([]*types.Category, error)
  // FirstByName returns the oldest category in the class with the given
  // name, or nil when there is none. Category names are not unique per
  // class; first match wins.
  FirstByName(ctx context.Context, tx *gorm.DB, classID uuid.UUID, name string) (*types.Category, error)
  GetChildren(ctx context.Context, tx *gorm.DB, parentID uuid.UUID) ([]*types.Category, error)
  Save(ctx context.Context, tx *gorm.DB, category *types.Category) error
  FullDeleteByIDs(ctx context.Context, tx *gorm.DB, categoryIDs []uuid.UUID) error
}

type categoryRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewCategoryRepo(db *gorm.DB, baseLog *logger.Logger) CategoryRepo {
  repoLog := baseLog.With("repo", "CategoryRepo")
  return &categoryRepo{db: db, log: repoLog}
}

func (cr *categoryRepo) Create(ctx context.Context, tx *gorm.DB, categories []*types.Category) ([]*types.Category, error) {
  transaction := tx
  if transaction == nil {
    transaction = cr.db
  }

  if len(categories) == 0 {
    return []*types.Category{}, nil
  }

  if err := transaction.WithContext(ctx).Create(&categories).Error; err != nil {
    return nil, err
  }
  return categories, nil
}

func (cr *categoryRepo) GetByIDs(ctx context.Context, tx *gorm.DB, categoryIDs []uuid.UUID) ([]*types.Category, error) {
  transaction := tx
  if transaction == nil {
    transaction = cr.db
  }

  var results []*types.Category
  if len(categoryIDs) == 0 {
    return results, nil
  }

  if err := transaction.WithContext(ctx).
    Where("id IN ?", categoryIDs).
    Find(&results).Error; err != nil {
    return nil, err
  }
  return results, nil
}

func (cr *categoryRepo) GetByClassID(ctx context.Context, tx *gorm.DB, classID uuid.UUID) ([]*types.Category, error) {
  transaction := tx
  if transaction == nil {
    transaction = cr.db
  }

  var results []*types.Category
  if err := transaction.WithContext(ctx).
    Where("class_id = ?", classID).
    Order("created_at ASC").
    Find(&results).Error; err != nil {
    return nil, err
  }
  return results, nil
}

func (cr *categoryRepo) GetTopLevelByClassID(ctx context.Context, tx *gorm.DB, classID uuid.UUID) ([]*types.Category, error) {
  transaction := tx
  if transaction == nil {
    transaction = cr.db
  }

  var results []*types.Category
  if err := transaction.WithContext(ctx).
    Where("class_id = ? AND parent_id IS NULL", classID).
    Order("created_at ASC").
    Find(&results).Error; err != nil {
    return nil, err
  }
  return results, nil
}

func (cr *categoryRepo) FirstByName(ctx context.Context, tx *gorm.DB, classID uuid.UUID, name string) (*types.Category, error) {
  transaction := tx
  if transaction == nil {
    transaction = cr.db
  }

  var results []*types.Category
  if err := transaction.WithContext(ctx).
    Where("class_id = ? AND name = ?", classID, name).
    Order("created_at ASC").
    Limit(1).
    Find(&results).Error; err != nil {
    return nil, err
  }
  if len(results) == 0 {
    return nil, nil
  }
  return results[0], nil
}

func (cr *categoryRepo) GetChildren(ctx context.Context, tx *gorm.DB, parentID uuid.UUID) ([]*types.Category, error) {
  transaction := tx
  if transaction == nil {
    transaction = cr.db
  }

  var results []*types.Category
  if err := transaction.WithContext(ctx).
    Where("parent_id = ?", parentID).
    Order("created_at ASC").
    Find(&results).Error; err != nil {
    return nil, err
  }
  return results, nil
}

func (cr *categoryRepo) Save(ctx context.Context, tx *gorm.DB, category *types.Category) error {
  transaction := tx
  if transaction == nil {
    transaction = cr.db
  }

  return transaction.WithContext(ctx).Save(category).Error
}

func (cr *categoryRepo) FullDeleteByIDs(ctx context.Context, tx *gorm.DB, categoryIDs []uuid.UUID) error {
  transaction := tx
  if transaction == nil {
    transaction = cr.db
  }

  if len(categoryIDs) == 0 {
    return nil
  }

  return transaction.WithContext(ctx).
    Unscoped().
    Where("id IN ?", categoryIDs).
    Delete(&types.Category{}).Error
}
