package types

import (
  "time"
  "github.com/google/uuid"
  "gorm.io/datatypes"
)

// AssistantCallLog records one round-trip through the conversational
// assistant: the inbound teacher message (or audio marker), the raw model
// reply, and whether the reply parsed into a grade-update command.
type AssistantCallLog struct {
  ID                  uuid.UUID         `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
  UserID              uuid.UUID         `gorm:"type:uuid;index;not null" json:"user_id"`
  ClassID             *uuid.UUID        `gorm:"type:uuid;index" json:"class_id,omitempty"`
  Kind                string            `gorm:"not null;column:kind" json:"kind"`
  State               string            `gorm:"not null;column:state" json:"state"`
  Request             string            `gorm:"column:request" json:"request"`
  Response            string            `gorm:"column:response" json:"response"`
  CommandMatched      bool              `gorm:"not null;default:false;column:command_matched" json:"command_matched"`
  Command             datatypes.JSON    `gorm:"type:jsonb;column:command" json:"command,omitempty"`
  CreatedAt           time.Time         `gorm:"not null;default:now()" json:"created_at"`
}

func (AssistantCallLog) TableName() string {
  return "assistant_call_log"
}
