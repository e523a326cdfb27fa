package services

import (
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
)

func TestChatSession_ClassSessionIsReused(t *testing.T) {
	assistant := &fakeAssistant{}
	sessions := NewChatSessionService(newTestLogger(t), assistant)
	teacherID, classID := uuid.New(), uuid.New()

	seeds := 0
	seed := func() (string, error) {
		seeds++
		return "contexto", nil
	}

	first, err := sessions.GetOrCreateClassSession(teacherID, classID, seed)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	second, err := sessions.GetOrCreateClassSession(teacherID, classID, seed)
	if err != nil {
		t.Fatalf("reuse: %v", err)
	}
	if first != second {
		t.Fatalf("expected the same session")
	}
	if seeds != 1 {
		t.Fatalf("expected 1 seed call, got %d", seeds)
	}
	if assistant.sessions != 1 {
		t.Fatalf("expected 1 session started, got %d", assistant.sessions)
	}
}

func TestChatSession_KeyedByTeacherAndClass(t *testing.T) {
	assistant := &fakeAssistant{}
	sessions := NewChatSessionService(newTestLogger(t), assistant)
	teacherID := uuid.New()
	seed := func() (string, error) { return "", nil }

	a, _ := sessions.GetOrCreateClassSession(teacherID, uuid.New(), seed)
	b, _ := sessions.GetOrCreateClassSession(teacherID, uuid.New(), seed)
	if a == b {
		t.Fatalf("expected distinct sessions per class")
	}

	dash, _ := sessions.GetOrCreateDashboardSession(teacherID, seed)
	if dash == a || dash == b {
		t.Fatalf("dashboard session must not alias a class session")
	}
	dashAgain, _ := sessions.GetOrCreateDashboardSession(teacherID, seed)
	if dash != dashAgain {
		t.Fatalf("expected the dashboard session to be reused")
	}
}

func TestChatSession_SeedErrorDoesNotCache(t *testing.T) {
	assistant := &fakeAssistant{}
	sessions := NewChatSessionService(newTestLogger(t), assistant)
	teacherID, classID := uuid.New(), uuid.New()

	boom := errors.New("roster unavailable")
	if _, err := sessions.GetOrCreateClassSession(teacherID, classID, func() (string, error) {
		return "", boom
	}); !errors.Is(err, boom) {
		t.Fatalf("expected seed error, got %v", err)
	}
	if assistant.sessions != 0 {
		t.Fatalf("no session should be started on seed failure")
	}

	session, err := sessions.GetOrCreateClassSession(teacherID, classID, func() (string, error) {
		return "contexto", nil
	})
	if err != nil || session == nil {
		t.Fatalf("expected recovery on retry, got %v", err)
	}
}

func TestChatSession_ConcurrentFirstUseKeepsOneSession(t *testing.T) {
	assistant := &fakeAssistant{}
	sessions := NewChatSessionService(newTestLogger(t), assistant)
	teacherID, classID := uuid.New(), uuid.New()
	seed := func() (string, error) { return "contexto", nil }

	const workers = 16
	results := make([]*AssistantSession, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			session, err := sessions.GetOrCreateClassSession(teacherID, classID, seed)
			if err != nil {
				t.Errorf("worker %d: %v", i, err)
				return
			}
			results[i] = session
		}(i)
	}
	wg.Wait()

	for i := 1; i < workers; i++ {
		if results[i] != results[0] {
			t.Fatalf("worker %d got a different session", i)
		}
	}
	if assistant.sessions != 1 {
		t.Fatalf("expected exactly 1 session started, got %d", assistant.sessions)
	}
}
