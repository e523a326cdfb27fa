package services

import (
  "context"
  "encoding/json"
  "errors"

  "github.com/google/uuid"
  "gorm.io/gorm"

  "github.com/classpoint/classpoint-backend/internal/logger"
  "github.com/classpoint/classpoint-backend/internal/repos"
  "github.com/classpoint/classpoint-backend/internal/types"
)

const (
  ChatStateInClass     = "in_class"
  ChatStateInDashboard = "in_dashboard"
)

var (
  ErrNotATeacher      = errors.New("only teachers can use the assistant")
  ErrUnknownChatState = errors.New("unknown chat state")
  ErrClassIDRequired  = errors.New("class_id is required for in_class chat")
)

// ChatResult is the assistant reply plus whether a grade update was applied
// as a side effect of this turn.
type ChatResult struct {
  Response       string `json:"response"`
  UpdateRequired bool   `json:"update_required"`
}

type ChatService interface {
  Chat(ctx context.Context, userID uuid.UUID, isTeacher bool, state string, classID *uuid.UUID, message string) (*ChatResult, error)
  ChatAudio(ctx context.Context, userID uuid.UUID, isTeacher bool, state string, classID *uuid.UUID, audio []byte, mimeType string) (*ChatResult, error)
}

type chatService struct {
  db             *gorm.DB
  log            *logger.Logger
  assistant      AssistantClient
  sessions       *ChatSessionService
  studentService StudentService
  classService   ClassService
  gradeCommands  GradeCommandService
  callLogRepo    repos.AssistantCallLogRepo
}

func NewChatService(
  db *gorm.DB,
  log *logger.Logger,
  assistant AssistantClient,
  sessions *ChatSessionService,
  studentService StudentService,
  classService ClassService,
  gradeCommands GradeCommandService,
  callLogRepo repos.AssistantCallLogRepo,
) ChatService {
  serviceLog := log.With("service", "ChatService")
  return &chatService{
    db:             db,
    log:            serviceLog,
    assistant:      assistant,
    sessions:       sessions,
    studentService: studentService,
    classService:   classService,
    gradeCommands:  gradeCommands,
    callLogRepo:    callLogRepo,
  }
}

func (chs *chatService) Chat(ctx context.Context, userID uuid.UUID, isTeacher bool, state string, classID *uuid.UUID, message string) (*ChatResult, error) {
  if !isTeacher {
    return nil, ErrNotATeacher
  }

  switch state {
  case ChatStateInClass:
    if classID == nil {
      return nil, ErrClassIDRequired
    }
    session, err := chs.sessions.GetOrCreateClassSession(userID, *classID, func() (string, error) {
      roster, err := chs.studentService.GetClassRoster(ctx, *classID)
      if err != nil {
        return "", err
      }
      return BuildClassContext(roster), nil
    })
    if err != nil {
      return nil, err
    }

    reply, err := chs.assistant.Send(ctx, session, message)
    if err != nil {
      return nil, err
    }
    return chs.finishClassTurn(ctx, userID, *classID, "text", state, message, reply), nil

  case ChatStateInDashboard:
    session, err := chs.sessions.GetOrCreateDashboardSession(userID, func() (string, error) {
      classes, err := chs.classService.GetUserClasses(ctx, userID)
      if err != nil {
        return "", err
      }
      return BuildDashboardContext(classes), nil
    })
    if err != nil {
      return nil, err
    }

    reply, err := chs.assistant.Send(ctx, session, message)
    if err != nil {
      return nil, err
    }
    chs.appendCallLog(ctx, userID, nil, "text", state, message, reply, nil)
    return &ChatResult{Response: reply}, nil

  default:
    return nil, ErrUnknownChatState
  }
}

// ChatAudio interprets one audio clip in a single stateless call. Unlike
// text chat the clip does not join a running session; the roster or class
// list context is rebuilt for every request.
func (chs *chatService) ChatAudio(ctx context.Context, userID uuid.UUID, isTeacher bool, state string, classID *uuid.UUID, audio []byte, mimeType string) (*ChatResult, error) {
  if !isTeacher {
    return nil, ErrNotATeacher
  }

  switch state {
  case ChatStateInClass:
    if classID == nil {
      return nil, ErrClassIDRequired
    }
    roster, err := chs.studentService.GetClassRoster(ctx, *classID)
    if err != nil {
      return nil, err
    }
    reply, err := chs.assistant.Generate(ctx, BuildClassContext(roster), audio, mimeType)
    if err != nil {
      return nil, err
    }
    return chs.finishClassTurn(ctx, userID, *classID, "audio", state, "<audio>", reply), nil

  case ChatStateInDashboard:
    classes, err := chs.classService.GetUserClasses(ctx, userID)
    if err != nil {
      return nil, err
    }
    reply, err := chs.assistant.Generate(ctx, BuildDashboardContext(classes), audio, mimeType)
    if err != nil {
      return nil, err
    }
    chs.appendCallLog(ctx, userID, nil, "audio", state, "<audio>", reply, nil)
    return &ChatResult{Response: reply}, nil

  default:
    return nil, ErrUnknownChatState
  }
}

// finishClassTurn parses the reply for a grade-update command and applies
// it. Executor failures are logged and swallowed: the teacher still gets
// the assistant reply, with update_required left false.
func (chs *chatService) finishClassTurn(ctx context.Context, userID, classID uuid.UUID, kind, state, request, reply string) *ChatResult {
  result := &ChatResult{Response: reply}

  command := ParseAssistantReply(reply)
  chs.appendCallLog(ctx, userID, &classID, kind, state, request, reply, command)
  if command == nil {
    return result
  }

  chs.log.Info("Grade command detected",
    "class_id", classID,
    "students", command.StudentNames,
    "points", command.Points,
    "category", command.CategoryName,
  )

  if _, err := chs.gradeCommands.Execute(ctx, classID, command.StudentNames, command.CategoryName, float64(command.Points)); err != nil {
    chs.log.Warn("Grade command failed (reply still returned)", "class_id", classID, "error", err)
    return result
  }

  result.UpdateRequired = true
  return result
}

// appendCallLog is best effort. Auditing must never fail a chat turn.
func (chs *chatService) appendCallLog(ctx context.Context, userID uuid.UUID, classID *uuid.UUID, kind, state, request, reply string, command *ParsedCommand) {
  entry := &types.AssistantCallLog{
    UserID:         userID,
    ClassID:        classID,
    Kind:           kind,
    State:          state,
    Request:        request,
    Response:       reply,
    CommandMatched: command != nil,
  }
  if command != nil {
    if raw, err := json.Marshal(command); err == nil {
      entry.Command = raw
    }
  }
  if _, err := chs.callLogRepo.Create(ctx, nil, []*types.AssistantCallLog{entry}); err != nil {
    chs.log.Warn("Failed to append assistant call log (ignored)", "user_id", userID, "error", err)
  }
}
