package handlers

import (
  "errors"
  "net/http"

  "github.com/gin-gonic/gin"
  "github.com/google/uuid"

  "github.com/classpoint/classpoint-backend/internal/requestdata"
  "github.com/classpoint/classpoint-backend/internal/services"
)

type StudentHandler struct {
  studentService services.StudentService
}

func NewStudentHandler(studentService services.StudentService) *StudentHandler {
  return &StudentHandler{studentService: studentService}
}

func (sh *StudentHandler) AddStudent(c *gin.Context) {
  rd := requestdata.GetRequestData(c.Request.Context())
  if rd == nil {
    RespondError(c, http.StatusUnauthorized, "unauthorized", errors.New("missing request data"))
    return
  }
  if !rd.IsTeacher {
    RespondError(c, http.StatusForbidden, "not_a_teacher", errors.New("Solo los profesores pueden agregar estudiantes."))
    return
  }
  var req struct {
    ClassID     uuid.UUID   `json:"class_id" binding:"required"`
    Name        string      `json:"name" binding:"required"`
    Email       string      `json:"email" binding:"required,email"`
  }
  if err := c.ShouldBindJSON(&req); err != nil {
    RespondError(c, http.StatusBadRequest, "invalid_body", err)
    return
  }
  student, err := sh.studentService.AddStudent(c.Request.Context(), req.ClassID, req.Name, req.Email)
  if err != nil {
    switch {
    case errors.Is(err, services.ErrClassNotFound):
      RespondError(c, http.StatusNotFound, "class_not_found", err)
    case errors.Is(err, services.ErrStudentEmailTaken):
      RespondError(c, http.StatusBadRequest, "student_exists", err)
    default:
      RespondError(c, http.StatusInternalServerError, "add_student_failed", err)
    }
    return
  }
  RespondOK(c, gin.H{
    "message": "Estudiante añadido con éxito y email enviado.",
    "student": gin.H{
      "id":       student.ID,
      "name":     student.Name,
      "email":    student.Email,
      "class_id": student.ClassID,
    },
  })
}

func (sh *StudentHandler) BulkAddStudents(c *gin.Context) {
  rd := requestdata.GetRequestData(c.Request.Context())
  if rd == nil {
    RespondError(c, http.StatusUnauthorized, "unauthorized", errors.New("missing request data"))
    return
  }
  if !rd.IsTeacher {
    RespondError(c, http.StatusForbidden, "not_a_teacher", errors.New("No tienes permiso para realizar esta acción."))
    return
  }
  var req struct {
    ClassID     uuid.UUID                     `json:"class_id" binding:"required"`
    Students    []services.BulkStudentInput   `json:"students" binding:"required"`
  }
  if err := c.ShouldBindJSON(&req); err != nil {
    RespondError(c, http.StatusBadRequest, "invalid_body", err)
    return
  }
  result, err := sh.studentService.BulkAddStudents(c.Request.Context(), req.ClassID, req.Students)
  if err != nil {
    if errors.Is(err, services.ErrClassNotFound) {
      RespondError(c, http.StatusNotFound, "class_not_found", err)
      return
    }
    RespondError(c, http.StatusInternalServerError, "bulk_add_failed", err)
    return
  }
  RespondOK(c, result)
}

func (sh *StudentHandler) GetClassRoster(c *gin.Context) {
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
  roster, err := sh.studentService.GetClassRoster(c.Request.Context(), classID)
  if err != nil {
    RespondError(c, http.StatusInternalServerError, "roster_failed", err)
    return
  }
  RespondOK(c, roster)
}
