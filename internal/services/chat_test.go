package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
)

type chatFixture struct {
	service   ChatService
	assistant *fakeAssistant
	students  *fakeStudentService
	classes   *fakeClassService
	commands  *fakeGradeCommands
	callLogs  *fakeCallLogRepo
	teacherID uuid.UUID
	classID   uuid.UUID
}

func newChatFixture(t *testing.T) *chatFixture {
	t.Helper()
	log := newTestLogger(t)
	db := newTestDB(t)

	assistant := &fakeAssistant{}
	students := &fakeStudentService{roster: &ClassRoster{}}
	classes := &fakeClassService{}
	commands := &fakeGradeCommands{}
	callLogs := &fakeCallLogRepo{}
	sessions := NewChatSessionService(log, assistant)

	service := NewChatService(db, log, assistant, sessions, students, classes, commands, callLogs)
	return &chatFixture{
		service:   service,
		assistant: assistant,
		students:  students,
		classes:   classes,
		commands:  commands,
		callLogs:  callLogs,
		teacherID: uuid.New(),
		classID:   uuid.New(),
	}
}

func TestChat_RejectsNonTeachers(t *testing.T) {
	f := newChatFixture(t)
	_, err := f.service.Chat(context.Background(), f.teacherID, false, ChatStateInClass, &f.classID, "hola")
	if !errors.Is(err, ErrNotATeacher) {
		t.Fatalf("expected ErrNotATeacher, got %v", err)
	}
	_, err = f.service.ChatAudio(context.Background(), f.teacherID, false, ChatStateInClass, &f.classID, []byte{1}, "audio/wav")
	if !errors.Is(err, ErrNotATeacher) {
		t.Fatalf("expected ErrNotATeacher, got %v", err)
	}
}

func TestChat_ValidatesStateAndClassID(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()

	if _, err := f.service.Chat(ctx, f.teacherID, true, "in_space", nil, "hola"); !errors.Is(err, ErrUnknownChatState) {
		t.Fatalf("expected ErrUnknownChatState, got %v", err)
	}
	if _, err := f.service.Chat(ctx, f.teacherID, true, ChatStateInClass, nil, "hola"); !errors.Is(err, ErrClassIDRequired) {
		t.Fatalf("expected ErrClassIDRequired, got %v", err)
	}
}

func TestChat_CommandReplyDrivesLedger(t *testing.T) {
	f := newChatFixture(t)
	f.assistant.reply = "Ok. Ana +10 puntos en Tareas"

	result, err := f.service.Chat(context.Background(), f.teacherID, true, ChatStateInClass, &f.classID, "dale 10 puntos a Ana en tareas")
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if result.Response != f.assistant.reply {
		t.Fatalf("unexpected response: %q", result.Response)
	}
	if !result.UpdateRequired {
		t.Fatalf("expected update_required=true")
	}

	if len(f.commands.calls) != 1 {
		t.Fatalf("expected 1 executor call, got %d", len(f.commands.calls))
	}
	call := f.commands.calls[0]
	if len(call.StudentNames) != 1 || call.StudentNames[0] != "Ana" || call.CategoryName != "Tareas" || call.Points != 10 {
		t.Fatalf("unexpected executor call: %+v", call)
	}

	if len(f.callLogs.logs) != 1 {
		t.Fatalf("expected 1 call log, got %d", len(f.callLogs.logs))
	}
	entry := f.callLogs.logs[0]
	if !entry.CommandMatched || entry.ClassID == nil || *entry.ClassID != f.classID {
		t.Fatalf("unexpected call log: %+v", entry)
	}
}

func TestChat_PlainReplyTriggersNoUpdate(t *testing.T) {
	f := newChatFixture(t)
	f.assistant.reply = "Ana lleva 12 puntos en Tareas."

	result, err := f.service.Chat(context.Background(), f.teacherID, true, ChatStateInClass, &f.classID, "¿cómo va Ana?")
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if result.UpdateRequired {
		t.Fatalf("expected update_required=false")
	}
	if len(f.commands.calls) != 0 {
		t.Fatalf("executor must not run for a plain reply")
	}
	if len(f.callLogs.logs) != 1 || f.callLogs.logs[0].CommandMatched {
		t.Fatalf("expected an unmatched call log")
	}
}

func TestChat_ExecutorFailureStillReturnsReply(t *testing.T) {
	f := newChatFixture(t)
	f.assistant.reply = "Ok. Pedro +5 puntos en Tareas"
	f.commands.err = &StudentsNotFoundError{Names: []string{"Pedro"}}

	result, err := f.service.Chat(context.Background(), f.teacherID, true, ChatStateInClass, &f.classID, "dale 5 a Pedro")
	if err != nil {
		t.Fatalf("chat must not fail on an executor error, got %v", err)
	}
	if result.Response != f.assistant.reply {
		t.Fatalf("unexpected response: %q", result.Response)
	}
	if result.UpdateRequired {
		t.Fatalf("expected update_required=false after executor failure")
	}
}

func TestChat_SessionAndRosterAreReused(t *testing.T) {
	f := newChatFixture(t)
	f.assistant.reply = "Claro."
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := f.service.Chat(ctx, f.teacherID, true, ChatStateInClass, &f.classID, "hola"); err != nil {
			t.Fatalf("chat %d: %v", i, err)
		}
	}
	if f.assistant.sessions != 1 {
		t.Fatalf("expected 1 session, got %d", f.assistant.sessions)
	}
	if f.students.rosterHits != 1 {
		t.Fatalf("expected the roster to be fetched once, got %d", f.students.rosterHits)
	}
	if f.assistant.sends != 3 {
		t.Fatalf("expected 3 sends, got %d", f.assistant.sends)
	}
}

func TestChat_DashboardIsReadOnly(t *testing.T) {
	f := newChatFixture(t)
	f.assistant.reply = "Ok. Ana +10 puntos en Tareas"

	result, err := f.service.Chat(context.Background(), f.teacherID, true, ChatStateInDashboard, nil, "resumen")
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if result.UpdateRequired {
		t.Fatalf("dashboard chat must never apply grade updates")
	}
	if len(f.commands.calls) != 0 {
		t.Fatalf("executor must not run from the dashboard")
	}
	if f.students.rosterHits != 0 {
		t.Fatalf("dashboard chat must not fetch a roster")
	}
}

func TestChatAudio_RebuildsContextPerRequest(t *testing.T) {
	f := newChatFixture(t)
	f.assistant.reply = "Ok. Ana +2 puntos en Tareas"
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		result, err := f.service.ChatAudio(ctx, f.teacherID, true, ChatStateInClass, &f.classID, []byte{1, 2, 3}, "audio/wav")
		if err != nil {
			t.Fatalf("audio %d: %v", i, err)
		}
		if !result.UpdateRequired {
			t.Fatalf("audio %d: expected update_required=true", i)
		}
	}
	if f.students.rosterHits != 2 {
		t.Fatalf("expected the roster to be rebuilt per request, got %d hits", f.students.rosterHits)
	}
	if f.assistant.sessions != 0 {
		t.Fatalf("audio chat must not open sessions, got %d", f.assistant.sessions)
	}
	if len(f.commands.calls) != 2 {
		t.Fatalf("expected 2 executor calls, got %d", len(f.commands.calls))
	}
}
