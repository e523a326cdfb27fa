package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/classpoint/classpoint-backend/internal/types"
)

func newStudentFixture(t *testing.T, avatar AvatarService) (StudentService, *fakeClassRepo, *fakeStudentRepo, uuid.UUID) {
	t.Helper()
	log := newTestLogger(t)
	db := newTestDB(t)

	classRepo := &fakeClassRepo{}
	class := &types.Class{ID: uuid.New(), Name: "Matemáticas 3B"}
	classRepo.Create(context.Background(), nil, []*types.Class{class})
	studentRepo := &fakeStudentRepo{}

	service := NewStudentService(db, log, classRepo, studentRepo, &fakeCategoryRepo{}, newFakeGradeRepo(), &fakeGradeHistoryRepo{}, nil, avatar)
	return service, classRepo, studentRepo, class.ID
}

func TestAddStudent_GeneratesAvatarAndPersistsKeys(t *testing.T) {
	avatar := &fakeAvatarService{}
	service, _, studentRepo, classID := newStudentFixture(t, avatar)

	student, err := service.AddStudent(context.Background(), classID, "Ana", "ana@example.com")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if student.IsActive {
		t.Fatalf("new students must start inactive")
	}
	if avatar.studentCalls != 1 {
		t.Fatalf("expected 1 avatar generation, got %d", avatar.studentCalls)
	}
	if student.AvatarURL == "" || student.AvatarBucketKey == "" {
		t.Fatalf("avatar fields not set: %+v", student)
	}
	if studentRepo.saves != 1 {
		t.Fatalf("expected the avatar keys to be persisted, got %d saves", studentRepo.saves)
	}
}

func TestAddStudent_AvatarFailureIsNotFatal(t *testing.T) {
	avatar := &fakeAvatarService{err: errors.New("bucket down")}
	service, _, studentRepo, classID := newStudentFixture(t, avatar)

	student, err := service.AddStudent(context.Background(), classID, "Ana", "ana@example.com")
	if err != nil {
		t.Fatalf("avatar failure must not fail the add, got %v", err)
	}
	if student.AvatarURL != "" {
		t.Fatalf("no avatar url expected on failure")
	}
	if studentRepo.saves != 0 {
		t.Fatalf("no save expected when avatar generation failed")
	}
}

func TestAddStudent_UnknownClass(t *testing.T) {
	service, _, _, _ := newStudentFixture(t, nil)

	_, err := service.AddStudent(context.Background(), uuid.New(), "Ana", "ana@example.com")
	if !errors.Is(err, ErrClassNotFound) {
		t.Fatalf("expected ErrClassNotFound, got %v", err)
	}
}

func TestAddStudent_DuplicateEmail(t *testing.T) {
	service, _, studentRepo, classID := newStudentFixture(t, nil)
	studentRepo.Create(context.Background(), nil, []*types.Student{
		{ID: uuid.New(), ClassID: classID, Name: "Luis", Email: "ana@example.com"},
	})

	_, err := service.AddStudent(context.Background(), classID, "Ana", "ana@example.com")
	if !errors.Is(err, ErrStudentEmailTaken) {
		t.Fatalf("expected ErrStudentEmailTaken, got %v", err)
	}
}
