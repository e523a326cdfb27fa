package repos

import (
  "context"
  "gorm.io/gorm"
  "github.com/classpoint/classpoint-backend/internal/logger"
  "github.com/classpoint/classpoint-backend/internal/types"
)

type AssistantCallLogRepo interface {
  Create(ctx context.Context, tx *gorm.DB, logs []*types.AssistantCallLog) ([]*types.AssistantCallLog, error)
}

type assistantCallLogRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewAssistantCallLogRepo(db *gorm.DB, baseLog *logger.Logger) AssistantCallLogRepo {
  repoLog := baseLog.With("repo", "AssistantCallLogRepo")
  return &assistantCallLogRepo{db: db, log: repoLog}
}

func (r *assistantCallLogRepo) Create(ctx context.Context, tx *gorm.DB, logs []*types.AssistantCallLog) ([]*types.AssistantCallLog, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  if len(logs) == 0 {
    return []*types.AssistantCallLog{}, nil
  }
  if err := transaction.WithContext(ctx).Create(&logs).Error; err != nil {
    return nil, err
  }
  return logs, nil
}
