package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/classpoint/classpoint-backend/internal/types"
)

type iconFixture struct {
	service     ClassService
	members     *fakeClassMemberRepo
	challenges  *fakeChallengeRepo
	avatar      *fakeAvatarService
	teacherID   uuid.UUID
	classID     uuid.UUID
	challengeID uuid.UUID
}

func newIconFixture(t *testing.T) *iconFixture {
	t.Helper()
	log := newTestLogger(t)
	db := newTestDB(t)

	teacherID, classID := uuid.New(), uuid.New()
	members := &fakeClassMemberRepo{teachers: map[memberKey]*types.ClassMember{
		{ClassID: classID, UserID: teacherID}: {ClassID: classID, UserID: teacherID, Role: "teacher"},
	}}
	challenges := &fakeChallengeRepo{}
	challenge := &types.Challenge{ID: uuid.New(), ClassID: classID, Name: "Reto semanal", Level: 1}
	challenges.Create(context.Background(), nil, []*types.Challenge{challenge})
	avatar := &fakeAvatarService{}

	service := NewClassService(db, log, &fakeClassRepo{}, members, &fakeCategoryRepo{}, challenges, nil, avatar)
	return &iconFixture{
		service:     service,
		members:     members,
		challenges:  challenges,
		avatar:      avatar,
		teacherID:   teacherID,
		classID:     classID,
		challengeID: challenge.ID,
	}
}

func TestUploadChallengeIcon_StoresAndPersists(t *testing.T) {
	f := newIconFixture(t)

	challenge, err := f.service.UploadChallengeIcon(context.Background(), f.teacherID, f.classID, f.challengeID, []byte{1, 2, 3})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if f.avatar.challengeCalls != 1 {
		t.Fatalf("expected 1 icon upload, got %d", f.avatar.challengeCalls)
	}
	if challenge.IconURL == nil || *challenge.IconURL == "" {
		t.Fatalf("expected icon url to be set")
	}
	if f.challenges.saves != 1 {
		t.Fatalf("expected the challenge to be persisted, got %d saves", f.challenges.saves)
	}
}

func TestUploadChallengeIcon_RequiresTeacher(t *testing.T) {
	f := newIconFixture(t)

	_, err := f.service.UploadChallengeIcon(context.Background(), uuid.New(), f.classID, f.challengeID, []byte{1})
	if !errors.Is(err, ErrNotClassTeacher) {
		t.Fatalf("expected ErrNotClassTeacher, got %v", err)
	}
	if f.avatar.challengeCalls != 0 {
		t.Fatalf("no upload expected for a non-teacher")
	}
}

func TestUploadChallengeIcon_UnknownChallenge(t *testing.T) {
	f := newIconFixture(t)

	_, err := f.service.UploadChallengeIcon(context.Background(), f.teacherID, f.classID, uuid.New(), []byte{1})
	if !errors.Is(err, ErrChallengeNotFound) {
		t.Fatalf("expected ErrChallengeNotFound, got %v", err)
	}
}

func TestUploadChallengeIcon_WithoutStorage(t *testing.T) {
	f := newIconFixture(t)
	service := NewClassService(newTestDB(t), newTestLogger(t), &fakeClassRepo{}, f.members, &fakeCategoryRepo{}, f.challenges, nil, nil)

	_, err := service.UploadChallengeIcon(context.Background(), f.teacherID, f.classID, f.challengeID, []byte{1})
	if !errors.Is(err, ErrIconStorageMissing) {
		t.Fatalf("expected ErrIconStorageMissing, got %v", err)
	}
	if f.challenges.saves != 0 {
		t.Fatalf("nothing should be persisted without storage")
	}
}
