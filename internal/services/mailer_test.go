package services

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/classpoint/classpoint-backend/internal/types"
)

func newTestMailer(t *testing.T, baseURL string) MailerService {
	t.Helper()
	t.Setenv("SENDGRID_API_KEY", "test-key")
	t.Setenv("SENDGRID_FROM_EMAIL", "noreply@classpoint.test")
	t.Setenv("SENDGRID_BASE_URL", baseURL)
	t.Setenv("SENDGRID_MAX_RETRIES", "0")

	mailer, err := NewMailerService(newTestLogger(t))
	if err != nil {
		t.Fatalf("mailer init: %v", err)
	}
	return mailer
}

func TestSendInvitationEmail_WithoutInviteLink(t *testing.T) {
	var body string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		body = string(raw)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()
	mailer := newTestMailer(t, server.URL)

	student := &types.Student{Name: "Ana", Email: "ana@example.com"}
	class := &types.Class{Name: "Matemáticas 3B"}
	if err := mailer.SendInvitationEmail(context.Background(), student, class); err != nil {
		t.Fatalf("send: %v", err)
	}

	if !strings.Contains(body, "Matemáticas 3B") {
		t.Fatalf("class name missing from body: %s", body)
	}
	if strings.Contains(body, "Únete aquí") {
		t.Fatalf("join link must be omitted when the class has none")
	}
}

func TestSendInvitationEmail_WithInviteLink(t *testing.T) {
	var wire sgMailSendRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&wire); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()
	mailer := newTestMailer(t, server.URL)

	link := "https://classpoint.test/join/abc"
	student := &types.Student{Name: "Ana", Email: "ana@example.com"}
	class := &types.Class{Name: "Historia", InviteLink: &link}
	if err := mailer.SendInvitationEmail(context.Background(), student, class); err != nil {
		t.Fatalf("send: %v", err)
	}

	if len(wire.Personalizations) != 1 || wire.Personalizations[0].To[0].Email != "ana@example.com" {
		t.Fatalf("unexpected recipient: %+v", wire.Personalizations)
	}
	if len(wire.Content) != 1 || !strings.Contains(wire.Content[0].Value, link) {
		t.Fatalf("invite link missing from body: %+v", wire.Content)
	}
}

func TestSendInvitationEmail_SurfacesHTTPFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()
	mailer := newTestMailer(t, server.URL)

	student := &types.Student{Name: "Ana", Email: "ana@example.com"}
	if err := mailer.SendInvitationEmail(context.Background(), student, &types.Class{Name: "Historia"}); err == nil {
		t.Fatalf("expected an error on 401")
	}
}
