package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/classpoint/classpoint-backend/internal/logger"
	"github.com/classpoint/classpoint-backend/internal/types"
)

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger init: %v", err)
	}
	return log
}

// newTestDB returns a throwaway sqlite handle used purely as a transaction
// provider for services whose data lives in fake repos.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("sqlite open: %v", err)
	}
	return db
}

// --- category repo fake ---

type fakeCategoryRepo struct {
	categories []*types.Category
}

func (f *fakeCategoryRepo) Create(ctx context.Context, tx *gorm.DB, categories []*types.Category) ([]*types.Category, error) {
	for _, category := range categories {
		if category.ID == uuid.Nil {
			category.ID = uuid.New()
		}
		category.CreatedAt = time.Now()
		f.categories = append(f.categories, category)
	}
	return categories, nil
}

func (f *fakeCategoryRepo) GetByIDs(ctx context.Context, tx *gorm.DB, categoryIDs []uuid.UUID) ([]*types.Category, error) {
	var out []*types.Category
	for _, category := range f.categories {
		for _, id := range categoryIDs {
			if category.ID == id {
				out = append(out, category)
			}
		}
	}
	return out, nil
}

func (f *fakeCategoryRepo) GetByClassID(ctx context.Context, tx *gorm.DB, classID uuid.UUID) ([]*types.Category, error) {
	var out []*types.Category
	for _, category := range f.categories {
		if category.ClassID == classID {
			out = append(out, category)
		}
	}
	return out, nil
}

func (f *fakeCategoryRepo) GetTopLevelByClassID(ctx context.Context, tx *gorm.DB, classID uuid.UUID) ([]*types.Category, error) {
	var out []*types.Category
	for _, category := range f.categories {
		if category.ClassID == classID && category.ParentID == nil {
			out = append(out, category)
		}
	}
	return out, nil
}

func (f *fakeCategoryRepo) FirstByName(ctx context.Context, tx *gorm.DB, classID uuid.UUID, name string) (*types.Category, error) {
	var match *types.Category
	for _, category := range f.categories {
		if category.ClassID != classID || category.Name != name {
			continue
		}
		if match == nil || category.CreatedAt.Before(match.CreatedAt) {
			match = category
		}
	}
	return match, nil
}

func (f *fakeCategoryRepo) GetChildren(ctx context.Context, tx *gorm.DB, parentID uuid.UUID) ([]*types.Category, error) {
	var out []*types.Category
	for _, category := range f.categories {
		if category.ParentID != nil && *category.ParentID == parentID {
			out = append(out, category)
		}
	}
	return out, nil
}

func (f *fakeCategoryRepo) Save(ctx context.Context, tx *gorm.DB, category *types.Category) error {
	return nil
}

func (f *fakeCategoryRepo) FullDeleteByIDs(ctx context.Context, tx *gorm.DB, categoryIDs []uuid.UUID) error {
	kept := f.categories[:0]
	for _, category := range f.categories {
		remove := false
		for _, id := range categoryIDs {
			if category.ID == id {
				remove = true
			}
		}
		if !remove {
			kept = append(kept, category)
		}
	}
	f.categories = kept
	return nil
}

// --- student repo fake ---

type fakeStudentRepo struct {
	students []*types.Student
	saves    int
}

func (f *fakeStudentRepo) Create(ctx context.Context, tx *gorm.DB, students []*types.Student) ([]*types.Student, error) {
	for _, student := range students {
		if student.ID == uuid.Nil {
			student.ID = uuid.New()
		}
		f.students = append(f.students, student)
	}
	return students, nil
}

func (f *fakeStudentRepo) GetByIDs(ctx context.Context, tx *gorm.DB, studentIDs []uuid.UUID) ([]*types.Student, error) {
	var out []*types.Student
	for _, student := range f.students {
		for _, id := range studentIDs {
			if student.ID == id {
				out = append(out, student)
			}
		}
	}
	return out, nil
}

func (f *fakeStudentRepo) GetByClassID(ctx context.Context, tx *gorm.DB, classID uuid.UUID) ([]*types.Student, error) {
	var out []*types.Student
	for _, student := range f.students {
		if student.ClassID == classID {
			out = append(out, student)
		}
	}
	return out, nil
}

func (f *fakeStudentRepo) GetByNames(ctx context.Context, tx *gorm.DB, classID uuid.UUID, names []string) ([]*types.Student, error) {
	var out []*types.Student
	for _, student := range f.students {
		if student.ClassID != classID {
			continue
		}
		for _, name := range names {
			if student.Name == name {
				out = append(out, student)
			}
		}
	}
	return out, nil
}

func (f *fakeStudentRepo) EmailExists(ctx context.Context, tx *gorm.DB, email string) (bool, error) {
	for _, student := range f.students {
		if student.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStudentRepo) EmailExistsInClass(ctx context.Context, tx *gorm.DB, classID uuid.UUID, email string) (bool, error) {
	for _, student := range f.students {
		if student.ClassID == classID && student.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStudentRepo) Save(ctx context.Context, tx *gorm.DB, student *types.Student) error {
	f.saves++
	return nil
}

// --- class repo fakes ---

type fakeClassRepo struct {
	classes []*types.Class
}

func (f *fakeClassRepo) Create(ctx context.Context, tx *gorm.DB, classes []*types.Class) ([]*types.Class, error) {
	for _, class := range classes {
		if class.ID == uuid.Nil {
			class.ID = uuid.New()
		}
		f.classes = append(f.classes, class)
	}
	return classes, nil
}

func (f *fakeClassRepo) GetByIDs(ctx context.Context, tx *gorm.DB, classIDs []uuid.UUID) ([]*types.Class, error) {
	var out []*types.Class
	for _, class := range f.classes {
		for _, id := range classIDs {
			if class.ID == id {
				out = append(out, class)
			}
		}
	}
	return out, nil
}

func (f *fakeClassRepo) GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.Class, error) {
	return f.classes, nil
}

func (f *fakeClassRepo) NameExistsForUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, name string) (bool, error) {
	return false, nil
}

func (f *fakeClassRepo) Save(ctx context.Context, tx *gorm.DB, class *types.Class) error {
	return nil
}

func (f *fakeClassRepo) FullDeleteByIDs(ctx context.Context, tx *gorm.DB, classIDs []uuid.UUID) error {
	return nil
}

type memberKey struct {
	ClassID uuid.UUID
	UserID  uuid.UUID
}

type fakeClassMemberRepo struct {
	teachers map[memberKey]*types.ClassMember
}

func (f *fakeClassMemberRepo) Create(ctx context.Context, tx *gorm.DB, members []*types.ClassMember) ([]*types.ClassMember, error) {
	return members, nil
}

func (f *fakeClassMemberRepo) GetByClassID(ctx context.Context, tx *gorm.DB, classID uuid.UUID) ([]*types.ClassMember, error) {
	return nil, nil
}

func (f *fakeClassMemberRepo) GetTeacherMembership(ctx context.Context, tx *gorm.DB, classID, userID uuid.UUID) (*types.ClassMember, error) {
	return f.teachers[memberKey{ClassID: classID, UserID: userID}], nil
}

func (f *fakeClassMemberRepo) FullDeleteByClassIDs(ctx context.Context, tx *gorm.DB, classIDs []uuid.UUID) error {
	return nil
}

type fakeChallengeRepo struct {
	challenges []*types.Challenge
	saves      int
}

func (f *fakeChallengeRepo) Create(ctx context.Context, tx *gorm.DB, challenges []*types.Challenge) ([]*types.Challenge, error) {
	for _, challenge := range challenges {
		if challenge.ID == uuid.Nil {
			challenge.ID = uuid.New()
		}
		f.challenges = append(f.challenges, challenge)
	}
	return challenges, nil
}

func (f *fakeChallengeRepo) GetByClassID(ctx context.Context, tx *gorm.DB, classID uuid.UUID) ([]*types.Challenge, error) {
	var out []*types.Challenge
	for _, challenge := range f.challenges {
		if challenge.ClassID == classID {
			out = append(out, challenge)
		}
	}
	return out, nil
}

func (f *fakeChallengeRepo) Save(ctx context.Context, tx *gorm.DB, challenge *types.Challenge) error {
	f.saves++
	return nil
}

func (f *fakeChallengeRepo) FullDeleteByIDs(ctx context.Context, tx *gorm.DB, challengeIDs []uuid.UUID) error {
	return nil
}

// --- avatar and bucket fakes ---

type fakeAvatarService struct {
	studentCalls   int
	challengeCalls int
	err            error
}

func (f *fakeAvatarService) CreateAndUploadStudentAvatar(ctx context.Context, student *types.Student) error {
	f.studentCalls++
	if f.err != nil {
		return f.err
	}
	student.AvatarBucketKey = "student_avatar/" + student.ID.String() + "/1.png"
	student.AvatarURL = "https://cdn.test/" + student.AvatarBucketKey
	return nil
}

func (f *fakeAvatarService) GenerateStudentAvatar(student *types.Student) (bytes.Buffer, error) {
	return bytes.Buffer{}, nil
}

func (f *fakeAvatarService) UploadChallengeIcon(ctx context.Context, challenge *types.Challenge, raw []byte) error {
	f.challengeCalls++
	if f.err != nil {
		return f.err
	}
	challenge.IconBucketKey = "challenge_icon/" + challenge.ID.String() + "/1.png"
	iconURL := "https://cdn.test/" + challenge.IconBucketKey
	challenge.IconURL = &iconURL
	return nil
}

type fakeBucketService struct {
	uploads map[string][]byte
	deletes []string
}

func newFakeBucketService() *fakeBucketService {
	return &fakeBucketService{uploads: map[string][]byte{}}
}

func (f *fakeBucketService) UploadFile(ctx context.Context, category BucketCategory, key string, file io.Reader) error {
	raw, err := io.ReadAll(file)
	if err != nil {
		return err
	}
	f.uploads[key] = raw
	return nil
}

func (f *fakeBucketService) DeleteFile(ctx context.Context, category BucketCategory, key string) error {
	f.deletes = append(f.deletes, key)
	return nil
}

func (f *fakeBucketService) GetPublicURL(category BucketCategory, key string) string {
	return "https://cdn.test/" + key
}

// --- grade repo fakes ---

type gradeCellKey struct {
	StudentID  uuid.UUID
	CategoryID uuid.UUID
}

type fakeGradeRepo struct {
	mu    sync.Mutex
	cells map[gradeCellKey]*types.Grade
}

func newFakeGradeRepo() *fakeGradeRepo {
	return &fakeGradeRepo{cells: map[gradeCellKey]*types.Grade{}}
}

func (f *fakeGradeRepo) Create(ctx context.Context, tx *gorm.DB, grades []*types.Grade) ([]*types.Grade, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, grade := range grades {
		key := gradeCellKey{StudentID: grade.StudentID, CategoryID: grade.CategoryID}
		if _, exists := f.cells[key]; exists {
			return nil, fmt.Errorf("duplicate grade cell")
		}
		f.cells[key] = grade
	}
	return grades, nil
}

func (f *fakeGradeRepo) GetCell(ctx context.Context, tx *gorm.DB, studentID, categoryID uuid.UUID) (*types.Grade, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cells[gradeCellKey{StudentID: studentID, CategoryID: categoryID}], nil
}

func (f *fakeGradeRepo) GetCellForUpdate(ctx context.Context, tx *gorm.DB, studentID, categoryID uuid.UUID) (*types.Grade, error) {
	return f.GetCell(ctx, tx, studentID, categoryID)
}

func (f *fakeGradeRepo) GetByStudentID(ctx context.Context, tx *gorm.DB, studentID uuid.UUID) ([]*types.Grade, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*types.Grade
	for _, grade := range f.cells {
		if grade.StudentID == studentID {
			out = append(out, grade)
		}
	}
	return out, nil
}

func (f *fakeGradeRepo) Save(ctx context.Context, tx *gorm.DB, grade *types.Grade) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cells[gradeCellKey{StudentID: grade.StudentID, CategoryID: grade.CategoryID}] = grade
	return nil
}

type fakeGradeHistoryRepo struct {
	mu      sync.Mutex
	entries []*types.GradeHistory
}

func (f *fakeGradeHistoryRepo) Create(ctx context.Context, tx *gorm.DB, entries []*types.GradeHistory) ([]*types.GradeHistory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, entry := range entries {
		if entry.ID == uuid.Nil {
			entry.ID = uuid.New()
		}
		entry.CreatedAt = time.Now()
		f.entries = append(f.entries, entry)
	}
	return entries, nil
}

func (f *fakeGradeHistoryRepo) GetByGradeID(ctx context.Context, tx *gorm.DB, gradeID uuid.UUID) ([]*types.GradeHistory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*types.GradeHistory
	for _, entry := range f.entries {
		if entry.GradeID == gradeID {
			out = append(out, entry)
		}
	}
	return out, nil
}

func (f *fakeGradeHistoryRepo) GetByStudentID(ctx context.Context, tx *gorm.DB, studentID uuid.UUID) ([]*types.GradeHistory, error) {
	return nil, nil
}

// --- call log repo fake ---

type fakeCallLogRepo struct {
	mu   sync.Mutex
	logs []*types.AssistantCallLog
}

func (f *fakeCallLogRepo) Create(ctx context.Context, tx *gorm.DB, logs []*types.AssistantCallLog) ([]*types.AssistantCallLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logs = append(f.logs, logs...)
	return logs, nil
}

// --- service fakes for chat tests ---

type fakeStudentService struct {
	roster     *ClassRoster
	rosterErr  error
	rosterHits int
}

func (f *fakeStudentService) AddStudent(ctx context.Context, classID uuid.UUID, name, email string) (*types.Student, error) {
	return nil, fmt.Errorf("not implemented")
}

func (f *fakeStudentService) BulkAddStudents(ctx context.Context, classID uuid.UUID, rows []BulkStudentInput) (*BulkAddResult, error) {
	return nil, fmt.Errorf("not implemented")
}

func (f *fakeStudentService) GetClassRoster(ctx context.Context, classID uuid.UUID) (*ClassRoster, error) {
	f.rosterHits++
	if f.rosterErr != nil {
		return nil, f.rosterErr
	}
	return f.roster, nil
}

type fakeClassService struct {
	classes []*types.Class
}

func (f *fakeClassService) CreateClass(ctx context.Context, userID uuid.UUID, name, description string) (*types.Class, error) {
	return nil, fmt.Errorf("not implemented")
}

func (f *fakeClassService) GetUserClasses(ctx context.Context, userID uuid.UUID) ([]*types.Class, error) {
	return f.classes, nil
}

func (f *fakeClassService) GetClassDetail(ctx context.Context, classID uuid.UUID) (*ClassDetail, error) {
	return nil, fmt.Errorf("not implemented")
}

func (f *fakeClassService) DeleteClass(ctx context.Context, userID, classID uuid.UUID) error {
	return fmt.Errorf("not implemented")
}

func (f *fakeClassService) UpdateClassSettings(ctx context.Context, userID, classID uuid.UUID, input *ClassSettingsInput) (*ClassDetail, error) {
	return nil, fmt.Errorf("not implemented")
}

func (f *fakeClassService) UploadChallengeIcon(ctx context.Context, userID, classID, challengeID uuid.UUID, raw []byte) (*types.Challenge, error) {
	return nil, fmt.Errorf("not implemented")
}

type fakeGradeCommands struct {
	mu    sync.Mutex
	err   error
	calls []ParsedCommand
}

func (f *fakeGradeCommands) Execute(ctx context.Context, classID uuid.UUID, studentNames []string, categoryName string, points float64) (*GradeCommandResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, ParsedCommand{StudentNames: studentNames, CategoryName: categoryName, Points: int(points)})
	if f.err != nil {
		return nil, f.err
	}
	return &GradeCommandResult{UpdatedStudents: studentNames, Category: categoryName, PointsAdded: points}, nil
}

// --- assistant fake ---

type fakeAssistant struct {
	mu       sync.Mutex
	reply    string
	sends    int
	sessions int
}

func (f *fakeAssistant) StartSession(contextText string) *AssistantSession {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions++
	return &AssistantSession{}
}

func (f *fakeAssistant) Send(ctx context.Context, session *AssistantSession, message string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sends++
	return f.reply, nil
}

func (f *fakeAssistant) Generate(ctx context.Context, promptText string, audio []byte, mimeType string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reply, nil
}
