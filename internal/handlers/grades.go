package handlers

import (
  "errors"
  "net/http"

  "github.com/gin-gonic/gin"
  "github.com/google/uuid"

  "github.com/classpoint/classpoint-backend/internal/services"
)

type GradesHandler struct {
  gradeCommands services.GradeCommandService
}

func NewGradesHandler(gradeCommands services.GradeCommandService) *GradesHandler {
  return &GradesHandler{gradeCommands: gradeCommands}
}

// UpdateGrades applies a point delta to a set of students in one leaf
// category. Category and student resolution errors surface as 404/400 so
// clients can distinguish a bad command from a server fault.
func (gh *GradesHandler) UpdateGrades(c *gin.Context) {
  var req struct {
    ClassID        uuid.UUID   `json:"class_id" binding:"required"`
    StudentNames   []string    `json:"student_names" binding:"required"`
    CategoryName   string      `json:"category_name" binding:"required"`
    Points         float64     `json:"points"`
  }
  if err := c.ShouldBindJSON(&req); err != nil {
    RespondError(c, http.StatusBadRequest, "invalid_body", err)
    return
  }

  result, err := gh.gradeCommands.Execute(c.Request.Context(), req.ClassID, req.StudentNames, req.CategoryName, req.Points)
  if err != nil {
    var notFound *services.CategoryNotFoundError
    var hasSubs *services.CategoryHasSubcategoriesError
    var missing *services.StudentsNotFoundError
    switch {
    case errors.As(err, &notFound):
      RespondError(c, http.StatusNotFound, "category_not_found", err)
    case errors.As(err, &hasSubs):
      RespondError(c, http.StatusBadRequest, "category_has_subcategories", err)
    case errors.As(err, &missing):
      RespondError(c, http.StatusNotFound, "students_not_found", err)
    default:
      RespondError(c, http.StatusInternalServerError, "update_grades_failed", err)
    }
    return
  }
  RespondOK(c, result)
}
