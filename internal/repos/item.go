package repos

import (
  "context"
  "github.com/google/uuid"
  "gorm.io/gorm"
  "github.com/classpoint/classpoint-backend/internal/logger"
  "github.com/classpoint/classpoint-backend/internal/types"
)

type ItemRepo interface {
  Create(ctx context.Context, tx *gorm.DB, items []*types.Item) ([]*types.Item, error)
  GetByClassID(ctx context.Context, tx *gorm.DB, classID uuid.UUID) ([]*types.Item, error)
  Save(ctx context.Context, tx *gorm.DB, item *types.Item) error
  FullDeleteByIDs(ctx context.Context, tx *gorm.DB, itemIDs []uuid.UUID) error
}

type itemRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewItemRepo(db *gorm.DB, baseLog *logger.Logger) ItemRepo {
  repoLog := baseLog.With("repo", "ItemRepo")
  return &itemRepo{db: db, log: repoLog}
}

func (ir *itemRepo) Create(ctx context.Context, tx *gorm.DB, items []*types.Item) ([]*types.Item, error) {
  transaction := tx
  if transaction == nil {
    transaction = ir.db
  }

  if len(items) == 0 {
    return []*types.Item{}, nil
  }

  if err := transaction.WithContext(ctx).Create(&items).Error; err != nil {
    return nil, err
  }
  return items, nil
}

func (ir *itemRepo) GetByClassID(ctx context.Context, tx *gorm.DB, classID uuid.UUID) ([]*types.Item, error) {
  transaction := tx
  if transaction == nil {
    transaction = ir.db
  }

  var results []*types.Item
  if err := transaction.WithContext(ctx).
    Where("class_id = ?", classID).
    Order("created_at ASC").
    Find(&results).Error; err != nil {
    return nil, err
  }
  return results, nil
}

func (ir *itemRepo) Save(ctx context.Context, tx *gorm.DB, item *types.Item) error {
  transaction := tx
  if transaction == nil {
    transaction = ir.db
  }

  return transaction.WithContext(ctx).Save(item).Error
}

func (ir *itemRepo) FullDeleteByIDs(ctx context.Context, tx *gorm.DB, itemIDs []uuid.UUID) error {
  transaction := tx
  if transaction == nil {
    transaction = ir.db
  }

  if len(itemIDs) == 0 {
    return nil
  }

  return transaction.WithContext(ctx).
    Unscoped().
    Where("id IN ?", itemIDs).
    Delete(&types.Item{}).Error
}
