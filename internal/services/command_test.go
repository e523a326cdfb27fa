package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/classpoint/classpoint-backend/internal/types"
)

func TestParseAssistantReply_SingleStudent(t *testing.T) {
	command := ParseAssistantReply("Ok. Ana +10 puntos en Comportamiento")
	if command == nil {
		t.Fatalf("expected a command")
	}
	if len(command.StudentNames) != 1 || command.StudentNames[0] != "Ana" {
		t.Fatalf("unexpected names: %v", command.StudentNames)
	}
	if command.Points != 10 {
		t.Fatalf("expected 10 points, got %d", command.Points)
	}
	if command.CategoryName != "Comportamiento" {
		t.Fatalf("unexpected category: %q", command.CategoryName)
	}
}

func TestParseAssistantReply_MultipleStudentsNegative(t *testing.T) {
	command := ParseAssistantReply("Ok. Ana, Luis y Marta -5 puntos en Tareas")
	if command == nil {
		t.Fatalf("expected a command")
	}
	want := []string{"Ana", "Luis", "Marta"}
	if len(command.StudentNames) != len(want) {
		t.Fatalf("unexpected names: %v", command.StudentNames)
	}
	for i, name := range want {
		if command.StudentNames[i] != name {
			t.Fatalf("name %d: got %q, want %q", i, command.StudentNames[i], name)
		}
	}
	if command.Points != -5 {
		t.Fatalf("expected -5 points, got %d", command.Points)
	}
	if command.CategoryName != "Tareas" {
		t.Fatalf("unexpected category: %q", command.CategoryName)
	}
}

func TestParseAssistantReply_EnglishAndAccents(t *testing.T) {
	command := ParseAssistantReply("Ok. José and María +3 points in Homework 2")
	if command == nil {
		t.Fatalf("expected a command")
	}
	if len(command.StudentNames) != 2 || command.StudentNames[0] != "José" || command.StudentNames[1] != "María" {
		t.Fatalf("unexpected names: %v", command.StudentNames)
	}
	if command.Points != 3 {
		t.Fatalf("expected 3 points, got %d", command.Points)
	}
	if command.CategoryName != "Homework 2" {
		t.Fatalf("unexpected category: %q", command.CategoryName)
	}
}

func TestParseAssistantReply_NoPointsWordAndNoSign(t *testing.T) {
	command := ParseAssistantReply("  Ok. Ana 4 en Participación  ")
	if command == nil {
		t.Fatalf("expected a command")
	}
	if command.Points != 4 {
		t.Fatalf("expected 4 points, got %d", command.Points)
	}
	if command.CategoryName != "Participación" {
		t.Fatalf("unexpected category: %q", command.CategoryName)
	}
}

func TestParseAssistantReply_NotACommand(t *testing.T) {
	for _, reply := range []string{
		"Claro, ¿en qué puedo ayudarte?",
		"La media de la clase es 7.4 puntos.",
		"Ok, entendido.",
		"",
	} {
		if command := ParseAssistantReply(reply); command != nil {
			t.Fatalf("reply %q: expected nil, got %+v", reply, command)
		}
	}
}

func TestSplitStudentNames(t *testing.T) {
	cases := []struct {
		raw  string
		want []string
	}{
		{"Ana", []string{"Ana"}},
		{"Ana y Luis", []string{"Ana", "Luis"}},
		{"Ana and Luis", []string{"Ana", "Luis"}},
		{"Ana, Luis, Marta", []string{"Ana", "Luis", "Marta"}},
		{"Ana, Luis y Marta", []string{"Ana", "Luis", "Marta"}},
		{" Ana ,  Luis ", []string{"Ana", "Luis"}},
	}
	for _, tc := range cases {
		got := splitStudentNames(tc.raw)
		if len(got) != len(tc.want) {
			t.Fatalf("%q: got %v, want %v", tc.raw, got, tc.want)
		}
		for i := range tc.want {
			if got[i] != tc.want[i] {
				t.Fatalf("%q: got %v, want %v", tc.raw, got, tc.want)
			}
		}
	}
}

type commandFixture struct {
	service      GradeCommandService
	categoryRepo *fakeCategoryRepo
	studentRepo  *fakeStudentRepo
	gradeRepo    *fakeGradeRepo
	historyRepo  *fakeGradeHistoryRepo
	classID      uuid.UUID
}

func newCommandFixture(t *testing.T) *commandFixture {
	t.Helper()
	log := newTestLogger(t)
	db := newTestDB(t)

	categoryRepo := &fakeCategoryRepo{}
	studentRepo := &fakeStudentRepo{}
	gradeRepo := newFakeGradeRepo()
	historyRepo := &fakeGradeHistoryRepo{}

	ledger := NewGradeLedgerService(db, log, gradeRepo, historyRepo)
	service := NewGradeCommandService(db, log, categoryRepo, studentRepo, ledger)

	return &commandFixture{
		service:      service,
		categoryRepo: categoryRepo,
		studentRepo:  studentRepo,
		gradeRepo:    gradeRepo,
		historyRepo:  historyRepo,
		classID:      uuid.New(),
	}
}

func (f *commandFixture) addCategory(name string, parentID *uuid.UUID) *types.Category {
	category := &types.Category{ID: uuid.New(), ClassID: f.classID, Name: name, ParentID: parentID}
	f.categoryRepo.Create(context.Background(), nil, []*types.Category{category})
	return category
}

func (f *commandFixture) addStudent(name string) *types.Student {
	student := &types.Student{ID: uuid.New(), ClassID: f.classID, Name: name, Email: name + "@example.com"}
	f.studentRepo.Create(context.Background(), nil, []*types.Student{student})
	return student
}

func TestGradeCommand_Execute(t *testing.T) {
	f := newCommandFixture(t)
	category := f.addCategory("Tareas", nil)
	ana := f.addStudent("Ana")
	luis := f.addStudent("Luis")

	result, err := f.service.Execute(context.Background(), f.classID, []string{"Ana", "Luis"}, "Tareas", 5)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if len(result.UpdatedStudents) != 2 {
		t.Fatalf("unexpected updated students: %v", result.UpdatedStudents)
	}
	if result.Category != "Tareas" || result.PointsAdded != 5 {
		t.Fatalf("unexpected result: %+v", result)
	}

	for _, student := range []*types.Student{ana, luis} {
		cell, _ := f.gradeRepo.GetCell(context.Background(), nil, student.ID, category.ID)
		if cell == nil || cell.Grade != 5 {
			t.Fatalf("student %s: expected grade 5, got %+v", student.Name, cell)
		}
	}
	if len(f.historyRepo.entries) != 2 {
		t.Fatalf("expected 2 history rows, got %d", len(f.historyRepo.entries))
	}
	for _, entry := range f.historyRepo.entries {
		if entry.Description != "Actualización en la categoría 'Tareas'" {
			t.Fatalf("unexpected description: %q", entry.Description)
		}
	}
}

func TestGradeCommand_CategoryNotFound(t *testing.T) {
	f := newCommandFixture(t)
	f.addStudent("Ana")

	_, err := f.service.Execute(context.Background(), f.classID, []string{"Ana"}, "Conducta", 1)
	var notFound *CategoryNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected CategoryNotFoundError, got %v", err)
	}
	if notFound.Name != "Conducta" {
		t.Fatalf("unexpected name: %q", notFound.Name)
	}
}

func TestGradeCommand_RejectsParentCategory(t *testing.T) {
	f := newCommandFixture(t)
	parent := f.addCategory("Evaluación", nil)
	f.addCategory("Parcial 1", &parent.ID)
	f.addCategory("Parcial 2", &parent.ID)
	f.addStudent("Ana")

	_, err := f.service.Execute(context.Background(), f.classID, []string{"Ana"}, "Evaluación", 2)
	var hasChildren *CategoryHasSubcategoriesError
	if !errors.As(err, &hasChildren) {
		t.Fatalf("expected CategoryHasSubcategoriesError, got %v", err)
	}
	if len(hasChildren.Subcategories) != 2 {
		t.Fatalf("unexpected subcategories: %v", hasChildren.Subcategories)
	}
	if len(f.historyRepo.entries) != 0 {
		t.Fatalf("no ledger writes expected")
	}
}

func TestGradeCommand_UnknownStudents(t *testing.T) {
	f := newCommandFixture(t)
	f.addCategory("Tareas", nil)
	f.addStudent("Ana")

	_, err := f.service.Execute(context.Background(), f.classID, []string{"Ana", "Pedro"}, "Tareas", 1)
	var missing *StudentsNotFoundError
	if !errors.As(err, &missing) {
		t.Fatalf("expected StudentsNotFoundError, got %v", err)
	}
	if len(missing.Names) != 1 || missing.Names[0] != "Pedro" {
		t.Fatalf("unexpected missing names: %v", missing.Names)
	}
	if len(f.historyRepo.entries) != 0 {
		t.Fatalf("no ledger writes expected when a student is unknown")
	}
}
