package handlers

import (
  "errors"
  "io"
  "net/http"

  "github.com/gin-gonic/gin"
  "github.com/google/uuid"

  "github.com/classpoint/classpoint-backend/internal/requestdata"
  "github.com/classpoint/classpoint-backend/internal/services"
)

type ChatHandler struct {
  chatService services.ChatService
}

func NewChatHandler(chatService services.ChatService) *ChatHandler {
  return &ChatHandler{chatService: chatService}
}

func (chh *ChatHandler) Chat(c *gin.Context) {
  rd := requestdata.GetRequestData(c.Request.Context())
  if rd == nil {
    RespondError(c, http.StatusUnauthorized, "unauthorized", errors.New("missing request data"))
    return
  }
  var req struct {
    Message     string        `json:"message" binding:"required"`
    State       string        `json:"state" binding:"required"`
    ClassID     *uuid.UUID    `json:"class_id"`
  }
  if err := c.ShouldBindJSON(&req); err != nil {
    RespondError(c, http.StatusBadRequest, "invalid_body", err)
    return
  }

  result, err := chh.chatService.Chat(c.Request.Context(), rd.UserID, rd.IsTeacher, req.State, req.ClassID, req.Message)
  if err != nil {
    respondChatError(c, err)
    return
  }
  RespondOK(c, result)
}

// ChatAudio accepts a multipart form with an audio file plus state and an
// optional class_id field.
func (chh *ChatHandler) ChatAudio(c *gin.Context) {
  rd := requestdata.GetRequestData(c.Request.Context())
  if rd == nil {
    RespondError(c, http.StatusUnauthorized, "unauthorized", errors.New("missing request data"))
    return
  }

  fileHeader, err := c.FormFile("file")
  if err != nil {
    RespondError(c, http.StatusBadRequest, "missing_file", err)
    return
  }
  state := c.PostForm("state")
  if state == "" {
    RespondError(c, http.StatusBadRequest, "missing_state", errors.New("state form field is required"))
    return
  }
  var classID *uuid.UUID
  if raw := c.PostForm("class_id"); raw != "" {
    parsed, err := uuid.Parse(raw)
    if err != nil {
      RespondError(c, http.StatusBadRequest, "invalid_class_id", err)
      return
    }
    classID = &parsed
  }

  file, err := fileHeader.Open()
  if err != nil {
    RespondError(c, http.StatusBadRequest, "unreadable_file", err)
    return
  }
  defer file.Close()
  audio, err := io.ReadAll(file)
  if err != nil {
    RespondError(c, http.StatusBadRequest, "unreadable_file", err)
    return
  }

  mimeType := fileHeader.Header.Get("Content-Type")

  result, err := chh.chatService.ChatAudio(c.Request.Context(), rd.UserID, rd.IsTeacher, state, classID, audio, mimeType)
  if err != nil {
    respondChatError(c, err)
    return
  }
  RespondOK(c, result)
}

func respondChatError(c *gin.Context, err error) {
  switch {
  case errors.Is(err, services.ErrNotATeacher):
    RespondError(c, http.StatusForbidden, "not_a_teacher", err)
  case errors.Is(err, services.ErrUnknownChatState):
    RespondError(c, http.StatusBadRequest, "unknown_state", err)
  case errors.Is(err, services.ErrClassIDRequired):
    RespondError(c, http.StatusBadRequest, "class_id_required", err)
  default:
    RespondError(c, http.StatusInternalServerError, "chat_failed", err)
  }
}
