package services

import (
  "sync"

  "github.com/google/uuid"

  "github.com/classpoint/classpoint-backend/internal/logger"
)

type classSessionKey struct {
  TeacherID uuid.UUID
  ClassID   uuid.UUID
}

// ChatSessionService is the process-wide cache of conversational sessions:
// one per (teacher, class) for in-class chats and one per teacher for the
// dashboard. Sessions are created lazily on first use and never expire, so
// the seeded context can drift from later roster changes; a fresh process
// starts with fresh context.
type ChatSessionService struct {
  mu                sync.Mutex
  log               *logger.Logger
  assistant         AssistantClient
  classSessions     map[classSessionKey]*AssistantSession
  dashboardSessions map[uuid.UUID]*AssistantSession
}

func NewChatSessionService(log *logger.Logger, assistant AssistantClient) *ChatSessionService {
  serviceLog := log.With("service", "ChatSessionService")
  return &ChatSessionService{
    log:               serviceLog,
    assistant:         assistant,
    classSessions:     map[classSessionKey]*AssistantSession{},
    dashboardSessions: map[uuid.UUID]*AssistantSession{},
  }
}

// GetOrCreateClassSession returns the cached session for (teacherID,
// classID), seeding a new one from seedContext on first use. seedContext
// runs outside the lock because it hits storage; concurrent first requests
// may both build context, but only one session is ever kept per key.
func (css *ChatSessionService) GetOrCreateClassSession(teacherID, classID uuid.UUID, seedContext func() (string, error)) (*AssistantSession, error) {
  key := classSessionKey{TeacherID: teacherID, ClassID: classID}

  css.mu.Lock()
  if session, ok := css.classSessions[key]; ok {
    css.mu.Unlock()
    return session, nil
  }
  css.mu.Unlock()

  contextText, err := seedContext()
  if err != nil {
    return nil, err
  }

  css.mu.Lock()
  defer css.mu.Unlock()
  if session, ok := css.classSessions[key]; ok {
    return session, nil
  }
  session := css.assistant.StartSession(contextText)
  css.classSessions[key] = session
  css.log.Debug("Created in-class chat session", "teacher_id", teacherID, "class_id", classID)
  return session, nil
}

// GetOrCreateDashboardSession is the dashboard counterpart, keyed by
// teacher alone.
func (css *ChatSessionService) GetOrCreateDashboardSession(teacherID uuid.UUID, seedContext func() (string, error)) (*AssistantSession, error) {
  css.mu.Lock()
  if session, ok := css.dashboardSessions[teacherID]; ok {
    css.mu.Unlock()
    return session, nil
  }
  css.mu.Unlock()

  contextText, err := seedContext()
  if err != nil {
    return nil, err
  }

  css.mu.Lock()
  defer css.mu.Unlock()
  if session, ok := css.dashboardSessions[teacherID]; ok {
    return session, nil
  }
  session := css.assistant.StartSession(contextText)
  css.dashboardSessions[teacherID] = session
  css.log.Debug("Created dashboard chat session", "teacher_id", teacherID)
  return session, nil
}
