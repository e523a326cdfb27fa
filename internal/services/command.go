package services

import (
  "context"
  "fmt"
  "regexp"
  "strconv"
  "strings"

  "github.com/google/uuid"
  "gorm.io/gorm"

  "github.com/classpoint/classpoint-backend/internal/logger"
  "github.com/classpoint/classpoint-backend/internal/repos"
)

// ParsedCommand is the structured form of one assistant reply that matched
// the grade-update template. It is never persisted.
type ParsedCommand struct {
  StudentNames []string `json:"student_names"`
  Points       int      `json:"points"`
  CategoryName string   `json:"category_name"`
}

// The assistant is instructed (see prompt.go) to acknowledge an executable
// command with exactly this shape: an "Ok." prefix, one or more names
// (comma-separated, optionally joined with "y"/"and" before the last one),
// a signed point value with an optional suffix word, and the category name
// to the end of the line.
var commandPattern = regexp.MustCompile(`^Ok\. ([\p{L}\s,]+?) ([+-]?\d+)(?: puntos?| points?)? (?:en|in) ([\p{L}\d\s]+)`)

// ParseAssistantReply extracts a grade-update command from free assistant
// text. A nil result means "not a command" and is a normal outcome, not an
// error; malformed or ambiguous phrasing simply fails to match.
func ParseAssistantReply(reply string) *ParsedCommand {
  match := commandPattern.FindStringSubmatch(strings.TrimSpace(reply))
  if match == nil {
    return nil
  }

  points, err := strconv.Atoi(match[2])
  if err != nil {
    return nil
  }

  return &ParsedCommand{
    StudentNames: splitStudentNames(match[1]),
    Points:       points,
    CategoryName: strings.TrimSpace(match[3]),
  }
}

// splitStudentNames splits on commas first; the segment after the joining
// word is the final name.
func splitStudentNames(raw string) []string {
  raw = strings.ReplaceAll(raw, " and ", " y ")

  var segments []string
  if strings.Contains(raw, " y ") {
    parts := strings.Split(raw, " y ")
    head := strings.Join(parts[:len(parts)-1], ",")
    segments = append(strings.Split(head, ","), parts[len(parts)-1])
  } else {
    segments = strings.Split(raw, ",")
  }

  var names []string
  for _, segment := range segments {
    if name := strings.TrimSpace(segment); name != "" {
      names = append(names, name)
    }
  }
  return names
}

// CategoryNotFoundError reports that no category in the class carries the
// requested name.
type CategoryNotFoundError struct {
  Name string
}

func (e *CategoryNotFoundError) Error() string {
  return fmt.Sprintf("category %q not found", e.Name)
}

// CategoryHasSubcategoriesError reports an update aimed at a non-leaf
// category. Subcategories must be targeted by name; the valid names ride
// along so the caller can re-prompt.
type CategoryHasSubcategoriesError struct {
  Name          string
  Subcategories []string
}

func (e *CategoryHasSubcategoriesError) Error() string {
  return fmt.Sprintf("category %q has subcategories, specify one of: %s", e.Name, strings.Join(e.Subcategories, ", "))
}

// StudentsNotFoundError carries the names that failed to resolve within
// the class.
type StudentsNotFoundError struct {
  Names []string
}

func (e *StudentsNotFoundError) Error() string {
  return fmt.Sprintf("students not found: %s", strings.Join(e.Names, ", "))
}

// GradeCommandResult aggregates one successful grade-update command.
type GradeCommandResult struct {
  Message         string   `json:"message"`
  UpdatedStudents []string `json:"updated_students"`
  Category        string   `json:"category"`
  PointsAdded     float64  `json:"points_added"`
}

// GradeCommandService validates a grade-update command against the class
// and drives the ledger. Validation runs in full before any mutation, and
// the per-student ledger applications share one transaction, so a failure
// never leaves a subset of students updated.
type GradeCommandService interface {
  Execute(ctx context.Context, classID uuid.UUID, studentNames []string, categoryName string, points float64) (*GradeCommandResult, error)
}

type gradeCommandService struct {
  db           *gorm.DB
  log          *logger.Logger
  categoryRepo repos.CategoryRepo
  studentRepo  repos.StudentRepo
  ledger       GradeLedgerService
}

func NewGradeCommandService(
  db *gorm.DB,
  log *logger.Logger,
  categoryRepo repos.CategoryRepo,
  studentRepo repos.StudentRepo,
  ledger GradeLedgerService,
) GradeCommandService {
  serviceLog := log.With("service", "GradeCommandService")
  return &gradeCommandService{
    db:           db,
    log:          serviceLog,
    categoryRepo: categoryRepo,
    studentRepo:  studentRepo,
    ledger:       ledger,
  }
}

func (gcs *gradeCommandService) Execute(ctx context.Context, classID uuid.UUID, studentNames []string, categoryName string, points float64) (*GradeCommandResult, error) {
  category, err := gcs.categoryRepo.FirstByName(ctx, nil, classID, categoryName)
  if err != nil {
    return nil, fmt.Errorf("Failed to look up category: %w", err)
  }
  if category == nil {
    return nil, &CategoryNotFoundError{Name: categoryName}
  }

  children, err := gcs.categoryRepo.GetChildren(ctx, nil, category.ID)
  if err != nil {
    return nil, fmt.Errorf("Failed to look up subcategories: %w", err)
  }
  if len(children) > 0 {
    names := make([]string, 0, len(children))
    for _, child := range children {
      names = append(names, child.Name)
    }
    return nil, &CategoryHasSubcategoriesError{Name: category.Name, Subcategories: names}
  }

  students, err := gcs.studentRepo.GetByNames(ctx, nil, classID, studentNames)
  if err != nil {
    return nil, fmt.Errorf("Failed to look up students: %w", err)
  }
  if len(students) != len(studentNames) {
    found := make(map[string]bool, len(students))
    for _, student := range students {
      found[student.Name] = true
    }
    var missing []string
    for _, name := range studentNames {
      if !found[name] {
        missing = append(missing, name)
      }
    }
    return nil, &StudentsNotFoundError{Names: missing}
  }

  description := fmt.Sprintf("Actualización en la categoría '%s'", category.Name)

  if err := gcs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
    for _, student := range students {
      if _, err := gcs.ledger.ApplyDelta(ctx, tx, student.ID, category.ID, points, description); err != nil {
        return fmt.Errorf("Failed to apply delta for student %s: %w", student.Name, err)
      }
    }
    return nil
  }); err != nil {
    return nil, err
  }

  updated := make([]string, 0, len(students))
  for _, student := range students {
    updated = append(updated, student.Name)
  }

  gcs.log.Info("Grade command executed",
    "class_id", classID,
    "category", category.Name,
    "points", points,
    "students", updated,
  )

  return &GradeCommandResult{
    Message:         "Puntos actualizados correctamente.",
    UpdatedStudents: updated,
    Category:        category.Name,
    PointsAdded:     points,
  }, nil
}
