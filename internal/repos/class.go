package repos

import (
  "context"
  "github.com/google/uuid"
  "gorm.io/gorm"
  "github.com/classpoint/classpoint-backend/internal/logger"
  "github.com/classpoint/classpoint-backend/internal/types"
)

type ClassRepo interface {
  Create(ctx context.Context, tx *gorm.DB, classes []*types.Class) ([]*types.Class, error)
  GetByIDs(ctx context.Context, tx *gorm.DB, classIDs []uuid.UUID) ([]*types.Class, error)
  GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.Class, error)
  NameExistsForUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, name string) (bool, error)
  Save(ctx context.Context, tx *gorm.DB, class *types.Class) error
  FullDeleteByIDs(ctx context.Context, tx *gorm.DB, classIDs []uuid.UUID) error
}

type classRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewClassRepo(db *gorm.DB, baseLog *logger.Logger) ClassRepo {
  repoLog := baseLog.With("repo", "ClassRepo")
  return &classRepo{db: db, log: repoLog}
}

func (cr *classRepo) Create(ctx context.Context, tx *gorm.DB, classes []*types.Class) ([]*types.Class, error) {
  transaction := tx
  if transaction == nil {
    transaction = cr.db
  }

  if len(classes) == 0 {
    return []*types.Class{}, nil
  }

  if err := transaction.WithContext(ctx).Create(&classes).Error; err != nil {
    return nil, err
  }
  return classes, nil
}

func (cr *classRepo) GetByIDs(ctx context.Context, tx *gorm.DB, classIDs []uuid.UUID) ([]*types.Class, error) {
  transaction := tx
  if transaction == nil {
    transaction = cr.db
  }

  var results []*types.Class
  if len(classIDs) == 0 {
    return results, nil
  }

  if err := transaction.WithContext(ctx).
    Where("id IN ?", classIDs).
    Find(&results).Error; err != nil {
    return nil, err
  }
  return results, nil
}

func (cr *classRepo) GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.Class, error) {
  transaction := tx
  if transaction == nil {
    transaction = cr.db
  }

  var results []*types.Class
  if err := transaction.WithContext(ctx).
    Joins("JOIN class_member ON class_member.class_id = class.id").
    Where("class_member.user_id = ?", userID).
    Find(&results).Error; err != nil {
    return nil, err
  }
  return results, nil
}

func (cr *classRepo) NameExistsForUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, name string) (bool, error) {
  transaction := tx
  if transaction == nil {
    transaction = cr.db
  }

  var count int64
  if err := transaction.WithContext(ctx).
    Model(&types.Class{}).
    Joins("JOIN class_member ON class_member.class_id = class.id").
    Where("class_member.user_id = ? AND class.name = ?", userID, name).
    Count(&count).Error; err != nil {
    return false, err
  }
  return count > 0, nil
}

func (cr *classRepo) Save(ctx context.Context, tx *gorm.DB, class *types.Class) error {
  transaction := tx
  if transaction == nil {
    transaction = cr.db
  }

  return transaction.WithContext(ctx).Save(class).Error
}

func (cr *classRepo) FullDeleteByIDs(ctx context.Context, tx *gorm.DB, classIDs []uuid.UUID) error {
  transaction := tx
  if transaction == nil {
    transaction = cr.db
  }

  if len(classIDs) == 0 {
    return nil
  }

  return transaction.WithContext(ctx).
    Unscoped().
    Where("id IN ?", classIDs).
    Delete(&types.Class{}).Error
}

type ClassMemberRepo interface {
  Create(ctx context.Context, tx *gorm.DB, members []*types.ClassMember) ([]*types.ClassMember, error)
  GetByClassID(ctx context.Context, tx *gorm.DB, classID uuid.UUID) ([]*types.ClassMember, error)
  GetTeacherMembership(ctx context.Context, tx *gorm.DB, classID, userID uuid.UUID) (*types.ClassMember, error)
  FullDeleteByClassIDs(ctx context.Context, tx *gorm.DB, classIDs []uuid.UUID) error
}

type classMemberRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewClassMemberRepo(db *gorm.DB, baseLog *logger.Logger) ClassMemberRepo {
  repoLog := baseLog.With("repo", "ClassMemberRepo")
  return &classMemberRepo{db: db, log: repoLog}
}

func (cmr *classMemberRepo) Create(ctx context.Context, tx *gorm.DB, members []*types.ClassMember) ([]*types.ClassMember, error) {
  transaction := tx
  if transaction == nil {
    transaction = cmr.db
  }

  if len(members) == 0 {
    return []*types.ClassMember{}, nil
  }

  if err := transaction.WithContext(ctx).Create(&members).Error; err != nil {
    return nil, err
  }
  return members, nil
}

func (cmr *classMemberRepo) GetByClassID(ctx context.Context, tx *gorm.DB, classID uuid.UUID) ([]*types.ClassMember, error) {
  transaction := tx
  if transaction == nil {
    transaction = cmr.db
  }

  var results []*types.ClassMember
  if err := transaction.WithContext(ctx).
    Preload("User").
    Where("class_id = ?", classID).
    Find(&results).Error; err != nil {
    return nil, err
  }
  return results, nil
}

func (cmr *classMemberRepo) GetTeacherMembership(ctx context.Context, tx *gorm.DB, classID, userID uuid.UUID) (*types.ClassMember, error) {
  transaction := tx
  if transaction == nil {
    transaction = cmr.db
  }

  var results []*types.ClassMember
  if err := transaction.WithContext(ctx).
    Where("class_id = ? AND user_id = ? AND role = ?", classID, userID, "teacher").
    Limit(1).
    Find(&results).Error; err != nil {
    return nil, err
  }
  if len(results) == 0 {
    return nil, nil
  }
  return results[0], nil
}

func (cmr *classMemberRepo) FullDeleteByClassIDs(ctx context.Context, tx *gorm.DB, classIDs []uuid.UUID) error {
  transaction := tx
  if transaction == nil {
    transaction = cmr.db
  }

  if len(classIDs) == 0 {
    return nil
  }

  return transaction.WithContext(ctx).
    Unscoped().
    Where("class_id IN ?", classIDs).
    Delete(&types.ClassMember{}).Error
}
