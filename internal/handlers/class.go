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

type ClassHandler struct {
  classService services.ClassService
}

func NewClassHandler(classService services.ClassService) *ClassHandler {
  return &ClassHandler{classService: classService}
}

func (ch *ClassHandler) CreateClass(c *gin.Context) {
  rd := requestdata.GetRequestData(c.Request.Context())
  if rd == nil {
    RespondError(c, http.StatusUnauthorized, "unauthorized", errors.New("missing request data"))
    return
  }
  var req struct {
    Name          string      `json:"name" binding:"required"`
    Description   string      `json:"description"`
  }
  if err := c.ShouldBindJSON(&req); err != nil {
    RespondError(c, http.StatusBadRequest, "invalid_body", err)
    return
  }
  class, err := ch.classService.CreateClass(c.Request.Context(), rd.UserID, req.Name, req.Description)
  if err != nil {
    if errors.Is(err, services.ErrClassNameTaken) {
      RespondError(c, http.StatusBadRequest, "class_name_taken", err)
      return
    }
    RespondError(c, http.StatusInternalServerError, "create_class_failed", err)
    return
  }
  RespondOK(c, class)
}

func (ch *ClassHandler) GetUserClasses(c *gin.Context) {
  rd := requestdata.GetRequestData(c.Request.Context())
  if rd == nil {
    RespondError(c, http.StatusUnauthorized, "unauthorized", errors.New("missing request data"))
    return
  }
  classes, err := ch.classService.GetUserClasses(c.Request.Context(), rd.UserID)
  if err != nil {
    RespondError(c, http.StatusInternalServerError, "list_classes_failed", err)
    return
  }
  RespondOK(c, classes)
}

func (ch *ClassHandler) GetClassDetail(c *gin.Context) {
  rd := requestdata.GetRequestData(c.Request.Context())
  if rd == nil {
    RespondError(c, http.StatusUnauthorized, "unauthorized", errors.New("missing request data"))
    return
  }
  if !rd.IsTeacher {
    RespondError(c, http.StatusForbidden, "not_a_teacher", errors.New("Solo los profesores pueden acceder a esta información."))
    return
  }
  classID, err := uuid.Parse(c.Param("class_id"))
  if err != nil {
    RespondError(c, http.StatusBadRequest, "invalid_class_id", err)
    return
  }
  detail, err := ch.classService.GetClassDetail(c.Request.Context(), classID)
  if err != nil {
    if errors.Is(err, services.ErrClassNotFound) {
      RespondError(c, http.StatusNotFound, "class_not_found", err)
      return
    }
    RespondError(c, http.StatusInternalServerError, "class_detail_failed", err)
    return
  }
  RespondOK(c, detail)
}

func (ch *ClassHandler) DeleteClass(c *gin.Context) {
  rd := requestdata.GetRequestData(c.Request.Context())
  if rd == nil {
    RespondError(c, http.StatusUnauthorized, "unauthorized", errors.New("missing request data"))
    return
  }
  classID, err := uuid.Parse(c.Param("class_id"))
  if err != nil {
    RespondError(c, http.StatusBadRequest, "invalid_class_id", err)
    return
  }
  if err := ch.classService.DeleteClass(c.Request.Context(), rd.UserID, classID); err != nil {
    switch {
    case errors.Is(err, services.ErrClassNotFound):
      RespondError(c, http.StatusNotFound, "class_not_found", err)
    case errors.Is(err, services.ErrNotClassTeacher):
      RespondError(c, http.StatusForbidden, "not_class_teacher", err)
    default:
      RespondError(c, http.StatusInternalServerError, "delete_class_failed", err)
    }
    return
  }
  RespondOK(c, gin.H{"message": "Clase eliminada correctamente"})
}

func (ch *ClassHandler) UpdateClassSettings(c *gin.Context) {
  rd := requestdata.GetRequestData(c.Request.Context())
  if rd == nil {
    RespondError(c, http.StatusUnauthorized, "unauthorized", errors.New("missing request data"))
    return
  }
  classID, err := uuid.Parse(c.Param("class_id"))
  if err != nil {
    RespondError(c, http.StatusBadRequest, "invalid_class_id", err)
    return
  }
  var req services.ClassSettingsInput
  if err := c.ShouldBindJSON(&req); err != nil {
    RespondError(c, http.StatusBadRequest, "invalid_body", err)
    return
  }
  detail, err := ch.classService.UpdateClassSettings(c.Request.Context(), rd.UserID, classID, &req)
  if err != nil {
    switch {
    case errors.Is(err, services.ErrClassNotFound):
      RespondError(c, http.StatusNotFound, "class_not_found", err)
    case errors.Is(err, services.ErrNotClassTeacher):
      RespondError(c, http.StatusForbidden, "not_class_teacher", err)
    default:
      RespondError(c, http.StatusInternalServerError, "update_class_failed", err)
    }
    return
  }
  RespondOK(c, gin.H{"message": "Clase actualizada correctamente.", "class": detail})
}

// UploadChallengeIcon accepts a multipart form with an image file and
// replaces the icon of one challenge.
func (ch *ClassHandler) UploadChallengeIcon(c *gin.Context) {
  rd := requestdata.GetRequestData(c.Request.Context())
  if rd == nil {
    RespondError(c, http.StatusUnauthorized, "unauthorized", errors.New("missing request data"))
    return
  }
  classID, err := uuid.Parse(c.Param("class_id"))
  if err != nil {
    RespondError(c, http.StatusBadRequest, "invalid_class_id", err)
    return
  }
  challengeID, err := uuid.Parse(c.Param("challenge_id"))
  if err != nil {
    RespondError(c, http.StatusBadRequest, "invalid_challenge_id", err)
    return
  }

  fileHeader, err := c.FormFile("file")
  if err != nil {
    RespondError(c, http.StatusBadRequest, "missing_file", err)
    return
  }
  file, err := fileHeader.Open()
  if err != nil {
    RespondError(c, http.StatusBadRequest, "unreadable_file", err)
    return
  }
  defer file.Close()
  raw, err := io.ReadAll(file)
  if err != nil {
    RespondError(c, http.StatusBadRequest, "unreadable_file", err)
    return
  }

  challenge, err := ch.classService.UploadChallengeIcon(c.Request.Context(), rd.UserID, classID, challengeID, raw)
  if err != nil {
    switch {
    case errors.Is(err, services.ErrNotClassTeacher):
      RespondError(c, http.StatusForbidden, "not_class_teacher", err)
    case errors.Is(err, services.ErrChallengeNotFound):
      RespondError(c, http.StatusNotFound, "challenge_not_found", err)
    case errors.Is(err, services.ErrIconStorageMissing):
      RespondError(c, http.StatusServiceUnavailable, "icon_storage_unavailable", err)
    default:
      RespondError(c, http.StatusInternalServerError, "upload_icon_failed", err)
    }
    return
  }
  RespondOK(c, gin.H{"message": "Icono actualizado correctamente.", "challenge": challenge})
}
