package repos

import (
  "context"
  "github.com/google/uuid"
  "gorm.io/gorm"
  "github.com/classpoint/classpoint-backend/internal/logger"
  "github.com/classpoint/classpoint-backend/internal/types"
)

type ChallengeRepo interface {
  Create(ctx context.Context, tx *gorm.DB, challenges []*types.Challenge) ([]*types.Challenge, error)
  GetByClassID(ctx context.Context, tx *gorm.DB, classID uuid.UUID) ([]*types.Challenge, error)
  Save(ctx context.Context, tx *gorm.DB, challenge *types.Challenge) error
  FullDeleteByIDs(ctx context.Context, tx *gorm.DB, challengeIDs []uuid.UUID) error
}

type challengeRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewChallengeRepo(db *gorm.DB, baseLog *logger.Logger) ChallengeRepo {
  repoLog := baseLog.With("repo", "ChallengeRepo")
  return &challengeRepo{db: db, log: repoLog}
}

func (chr *challengeRepo) Create(ctx context.Context, tx *gorm.DB, challenges []*types.Challenge) ([]*types.Challenge, error) {
  transaction := tx
  if transaction == nil {
    transaction = chr.db
  }

  if len(challenges) == 0 {
    return []*types.Challenge{}, nil
  }

  if err := transaction.WithContext(ctx).Create(&challenges).Error; err != nil {
    return nil, err
  }
  return challenges, nil
}

func (chr *challengeRepo) GetByClassID(ctx context.Context, tx *gorm.DB, classID uuid.UUID) ([]*types.Challenge, error) {
  transaction := tx
  if transaction == nil {
    transaction = chr.db
  }

  var results []*types.Challenge
  if err := transaction.WithContext(ctx).
    Where("class_id = ?", classID).
    Order("created_at ASC").
    Find(&results).Error; err != nil {
    return nil, err
  }
  return results, nil
}

func (chr *challengeRepo) Save(ctx context.Context, tx *gorm.DB, challenge *types.Challenge) error {
  transaction := tx
  if transaction == nil {
    transaction = chr.db
  }

  return transaction.WithContext(ctx).Save(challenge).Error
}

func (chr *challengeRepo) FullDeleteByIDs(ctx context.Context, tx *gorm.DB, challengeIDs []uuid.UUID) error {
  transaction := tx
  if transaction == nil {
    transaction = chr.db
  }

  if len(challengeIDs) == 0 {
    return nil
  }

  return transaction.WithContext(ctx).
    Unscoped().
    Where("id IN ?", challengeIDs).
    Delete(&types.Challenge{}).Error
}
