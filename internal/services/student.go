package services

import (
  "context"
  "errors"
  "fmt"
  "time"

  "github.com/google/uuid"
  "golang.org/x/sync/errgroup"
  "gorm.io/gorm"

  "github.com/classpoint/classpoint-backend/internal/logger"
  "github.com/classpoint/classpoint-backend/internal/repos"
  "github.com/classpoint/classpoint-backend/internal/types"
)

var (
  ErrClassNotFound     = errors.New("class not found")
  ErrStudentEmailTaken = errors.New("student email already registered")
)

// RosterGrade is one category cell in the roster view. Grade is nil when
// the student has no points in that category yet.
type RosterGrade struct {
  Category string   `json:"category"`
  Grade    *float64 `json:"grade"`
}

type RosterHistoryEntry struct {
  Category         string    `json:"category"`
  ChangeAmount     float64   `json:"change_amount"`
  CurrentGrade     float64   `json:"current_grade"`
  PercentageChange float64   `json:"percentage_change"`
  Timestamp        time.Time `json:"timestamp"`
  Description      string    `json:"description"`
}

type RosterStudent struct {
  ID           uuid.UUID            `json:"id"`
  Name         string               `json:"name"`
  Email        string               `json:"email"`
  IsActive     bool                 `json:"is_active"`
  AvatarURL    string               `json:"avatar_url,omitempty"`
  Grades       []RosterGrade        `json:"grades"`
  GradeHistory []RosterHistoryEntry `json:"grade_history"`
}

type ClassRoster struct {
  Students []RosterStudent `json:"students"`
}

type BulkStudentInput struct {
  Name  string `json:"name" binding:"required"`
  Email string `json:"email" binding:"required,email"`
}

type BulkAddResult struct {
  AddedStudents []string `json:"added_students"`
  Errors        []string `json:"errors"`
}

type StudentService interface {
  AddStudent(ctx context.Context, classID uuid.UUID, name, email string) (*types.Student, error)
  BulkAddStudents(ctx context.Context, classID uuid.UUID, rows []BulkStudentInput) (*BulkAddResult, error)
  GetClassRoster(ctx context.Context, classID uuid.UUID) (*ClassRoster, error)
}

type studentService struct {
  db               *gorm.DB
  log              *logger.Logger
  classRepo        repos.ClassRepo
  studentRepo      repos.StudentRepo
  categoryRepo     repos.CategoryRepo
  gradeRepo        repos.GradeRepo
  gradeHistoryRepo repos.GradeHistoryRepo

  // Optional collaborators. A nil mailer or avatar service degrades to
  // plain roster management instead of failing requests.
  mailer        MailerService
  avatarService AvatarService
}

func NewStudentService(
  db *gorm.DB,
  log *logger.Logger,
  classRepo repos.ClassRepo,
  studentRepo repos.StudentRepo,
  categoryRepo repos.CategoryRepo,
  gradeRepo repos.GradeRepo,
  gradeHistoryRepo repos.GradeHistoryRepo,
  mailer MailerService,
  avatarService AvatarService,
) StudentService {
  serviceLog := log.With("service", "StudentService")
  return &studentService{
    db:               db,
    log:              serviceLog,
    classRepo:        classRepo,
    studentRepo:      studentRepo,
    categoryRepo:     categoryRepo,
    gradeRepo:        gradeRepo,
    gradeHistoryRepo: gradeHistoryRepo,
    mailer:           mailer,
    avatarService:    avatarService,
  }
}

func (ss *studentService) AddStudent(ctx context.Context, classID uuid.UUID, name, email string) (*types.Student, error) {
  classes, err := ss.classRepo.GetByIDs(ctx, nil, []uuid.UUID{classID})
  if err != nil {
    return nil, fmt.Errorf("Failed to load class: %w", err)
  }
  if len(classes) == 0 {
    return nil, ErrClassNotFound
  }
  class := classes[0]

  exists, err := ss.studentRepo.EmailExists(ctx, nil, email)
  if err != nil {
    return nil, fmt.Errorf("Failed to check student email: %w", err)
  }
  if exists {
    return nil, ErrStudentEmailTaken
  }

  student := &types.Student{
    ClassID:  classID,
    Name:     name,
    Email:    email,
    IsActive: false,
  }
  created, err := ss.studentRepo.Create(ctx, nil, []*types.Student{student})
  if err != nil {
    return nil, fmt.Errorf("Failed to create student: %w", err)
  }
  student = created[0]

  if ss.avatarService != nil {
    if err := ss.avatarService.CreateAndUploadStudentAvatar(ctx, student); err != nil {
      ss.log.Warn("Failed to generate student avatar (ignored)", "student_id", student.ID, "error", err)
    } else if err := ss.studentRepo.Save(ctx, nil, student); err != nil {
      ss.log.Warn("Failed to persist avatar keys (ignored)", "student_id", student.ID, "error", err)
    }
  }

  if ss.mailer != nil {
    if err := ss.mailer.SendInvitationEmail(ctx, student, class); err != nil {
      ss.log.Warn("Failed to send invitation email (ignored)", "student_id", student.ID, "error", err)
    }
  }

  return student, nil
}

func (ss *studentService) BulkAddStudents(ctx context.Context, classID uuid.UUID, rows []BulkStudentInput) (*BulkAddResult, error) {
  classes, err := ss.classRepo.GetByIDs(ctx, nil, []uuid.UUID{classID})
  if err != nil {
    return nil, fmt.Errorf("Failed to load class: %w", err)
  }
  if len(classes) == 0 {
    return nil, ErrClassNotFound
  }

  result := &BulkAddResult{
    AddedStudents: []string{},
    Errors:        []string{},
  }

  for _, row := range rows {
    exists, err := ss.studentRepo.EmailExistsInClass(ctx, nil, classID, row.Email)
    if err != nil {
      result.Errors = append(result.Errors, fmt.Sprintf("Error al añadir %s: %v", row.Email, err))
      continue
    }
    if exists {
      result.Errors = append(result.Errors, fmt.Sprintf("El estudiante con correo %s ya está en la clase.", row.Email))
      continue
    }

    student := &types.Student{
      ClassID:  classID,
      Name:     row.Name,
      Email:    row.Email,
      IsActive: false,
    }
    if _, err := ss.studentRepo.Create(ctx, nil, []*types.Student{student}); err != nil {
      result.Errors = append(result.Errors, fmt.Sprintf("Error al añadir %s: %v", row.Email, err))
      continue
    }
    result.AddedStudents = append(result.AddedStudents, student.Email)
  }

  return result, nil
}

// GetClassRoster returns every student in the class with one grade slot
// per category, including categories the student has no points in, plus
// the full change history ordered by category name and newest first.
func (ss *studentService) GetClassRoster(ctx context.Context, classID uuid.UUID) (*ClassRoster, error) {
  students, err := ss.studentRepo.GetByClassID(ctx, nil, classID)
  if err != nil {
    return nil, fmt.Errorf("Failed to load students: %w", err)
  }
  categories, err := ss.categoryRepo.GetByClassID(ctx, nil, classID)
  if err != nil {
    return nil, fmt.Errorf("Failed to load categories: %w", err)
  }

  roster := &ClassRoster{Students: []RosterStudent{}}
  if len(students) == 0 || len(categories) == 0 {
    return roster, nil
  }

  rosterStudents := make([]RosterStudent, len(students))

  group, groupCtx := errgroup.WithContext(ctx)
  group.SetLimit(8)
  for i, student := range students {
    i, student := i, student
    group.Go(func() error {
      entry, err := ss.buildRosterStudent(groupCtx, student, categories)
      if err != nil {
        return err
      }
      rosterStudents[i] = *entry
      return nil
    })
  }
  if err := group.Wait(); err != nil {
    return nil, err
  }

  roster.Students = rosterStudents
  return roster, nil
}

func (ss *studentService) buildRosterStudent(ctx context.Context, student *types.Student, categories []*types.Category) (*RosterStudent, error) {
  cells, err := ss.gradeRepo.GetByStudentID(ctx, nil, student.ID)
  if err != nil {
    return nil, fmt.Errorf("Failed to load grades for student %s: %w", student.ID, err)
  }

  gradeByCategory := make(map[uuid.UUID]float64, len(cells))
  for _, cell := range cells {
    gradeByCategory[cell.CategoryID] = cell.Grade
  }

  grades := make([]RosterGrade, 0, len(categories))
  for _, category := range categories {
    entry := RosterGrade{Category: category.Name}
    if value, ok := gradeByCategory[category.ID]; ok {
      v := value
      entry.Grade = &v
    }
    grades = append(grades, entry)
  }

  history, err := ss.gradeHistoryRepo.GetByStudentID(ctx, nil, student.ID)
  if err != nil {
    return nil, fmt.Errorf("Failed to load grade history for student %s: %w", student.ID, err)
  }

  formatted := make([]RosterHistoryEntry, 0, len(history))
  for _, item := range history {
    categoryName := ""
    if item.Grade != nil && item.Grade.Category != nil {
      categoryName = item.Grade.Category.Name
    }
    formatted = append(formatted, RosterHistoryEntry{
      Category:         categoryName,
      ChangeAmount:     item.ChangeAmount,
      CurrentGrade:     item.CurrentGrade,
      PercentageChange: item.PercentageChange,
      Timestamp:        item.CreatedAt,
      Description:      item.Description,
    })
  }

  return &RosterStudent{
    ID:           student.ID,
    Name:         student.Name,
    Email:        student.Email,
    IsActive:     student.IsActive,
    AvatarURL:    student.AvatarURL,
    Grades:       grades,
    GradeHistory: formatted,
  }, nil
}
