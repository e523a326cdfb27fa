package services

import (
  "bytes"
  "context"
  "encoding/json"
  "errors"
  "fmt"
  "io"
  "net/http"
  "strings"
  "time"

  "github.com/classpoint/classpoint-backend/internal/logger"
  "github.com/classpoint/classpoint-backend/internal/types"
  "github.com/classpoint/classpoint-backend/internal/utils"
)

// MailerService sends transactional email over the SendGrid v3 API.
type MailerService interface {
  SendConfirmationEmail(ctx context.Context, user *types.User) error
  SendInvitationEmail(ctx context.Context, student *types.Student, class *types.Class) error
}

type mailerService struct {
  log        *logger.Logger
  baseURL    string
  apiKey     string
  fromEmail  string
  fromName   string
  httpClient *http.Client
  maxRetries int
}

func NewMailerService(log *logger.Logger) (MailerService, error) {
  serviceLog := log.With("service", "MailerService")

  apiKey := strings.TrimSpace(utils.GetEnv("SENDGRID_API_KEY", "", log))
  if apiKey == "" {
    return nil, fmt.Errorf("missing SENDGRID_API_KEY")
  }
  fromEmail := strings.TrimSpace(utils.GetEnv("SENDGRID_FROM_EMAIL", "", log))
  if fromEmail == "" {
    return nil, fmt.Errorf("missing SENDGRID_FROM_EMAIL")
  }

  baseURL := strings.TrimSpace(utils.GetEnv("SENDGRID_BASE_URL", "https://api.sendgrid.com", log))
  timeoutSec := utils.GetEnvAsInt("SENDGRID_TIMEOUT_SECONDS", 30, log)
  maxRetries := utils.GetEnvAsInt("SENDGRID_MAX_RETRIES", 4, log)

  return &mailerService{
    log:        serviceLog,
    baseURL:    strings.TrimRight(baseURL, "/"),
    apiKey:     apiKey,
    fromEmail:  fromEmail,
    fromName:   strings.TrimSpace(utils.GetEnv("SENDGRID_FROM_NAME", "ClassPoint", log)),
    httpClient: &http.Client{Timeout: time.Duration(timeoutSec) * time.Second},
    maxRetries: maxRetries,
  }, nil
}

type sgEmailAddress struct {
  Email string `json:"email"`
  Name  string `json:"name,omitempty"`
}

type sgPersonalization struct {
  To []sgEmailAddress `json:"to"`
}

type sgContent struct {
  Type  string `json:"type"`
  Value string `json:"value"`
}

type sgMailSendRequest struct {
  Personalizations []sgPersonalization `json:"personalizations"`
  From             sgEmailAddress      `json:"from"`
  Subject          string              `json:"subject"`
  Content          []sgContent         `json:"content"`
}

func (ms *mailerService) SendConfirmationEmail(ctx context.Context, user *types.User) error {
  if user == nil || strings.TrimSpace(user.Email) == "" {
    return fmt.Errorf("user with email required")
  }

  subject := "Confirma tu cuenta de ClassPoint"
  body := fmt.Sprintf(
    "Hola %s,\n\nTu código de confirmación es: %s\n\nIntroduce este código en la aplicación para activar tu cuenta.",
    user.Username, user.ConfirmationCode,
  )
  return ms.send(ctx, user.Email, user.Username, subject, body)
}

func (ms *mailerService) SendInvitationEmail(ctx context.Context, student *types.Student, class *types.Class) error {
  if student == nil || strings.TrimSpace(student.Email) == "" {
    return fmt.Errorf("student with email required")
  }
  if class == nil {
    return fmt.Errorf("class required")
  }

  subject := fmt.Sprintf("Te han invitado a la clase %s", class.Name)
  link := ""
  if class.InviteLink != nil {
    link = strings.TrimSpace(*class.InviteLink)
  }
  body := fmt.Sprintf(
    "Hola %s,\n\nTu profesor te ha añadido a la clase \"%s\".",
    student.Name, class.Name,
  )
  if link != "" {
    body += fmt.Sprintf("\n\nÚnete aquí: %s", link)
  }
  return ms.send(ctx, student.Email, student.Name, subject, body)
}

func (ms *mailerService) send(ctx context.Context, toEmail, toName, subject, text string) error {
  wire := sgMailSendRequest{
    Personalizations: []sgPersonalization{{
      To: []sgEmailAddress{{Email: toEmail, Name: toName}},
    }},
    From:    sgEmailAddress{Email: ms.fromEmail, Name: ms.fromName},
    Subject: subject,
    Content: []sgContent{{Type: "text/plain", Value: text}},
  }

  backoff := 1 * time.Second
  for attempt := 0; attempt <= ms.maxRetries; attempt++ {
    if ctx.Err() != nil {
      return ctx.Err()
    }

    err := ms.sendOnce(ctx, wire)
    if err == nil {
      return nil
    }
    if !isRetryableErr(err) || attempt == ms.maxRetries {
      return err
    }

    sleepFor := jitterSleep(backoff)
    ms.log.Warn("SendGrid request retrying",
      "attempt", attempt+1,
      "max_retries", ms.maxRetries,
      "sleep", sleepFor.String(),
      "error", err.Error(),
    )
    time.Sleep(sleepFor)
    backoff *= 2
    if backoff > 10*time.Second {
      backoff = 10 * time.Second
    }
  }
  return errors.New("unreachable retry loop")
}

func (ms *mailerService) sendOnce(ctx context.Context, body any) error {
  var buf bytes.Buffer
  if err := json.NewEncoder(&buf).Encode(body); err != nil {
    return err
  }

  req, err := http.NewRequestWithContext(ctx, http.MethodPost, ms.baseURL+"/v3/mail/send", &buf)
  if err != nil {
    return err
  }
  req.Header.Set("Authorization", "Bearer "+ms.apiKey)
  req.Header.Set("Content-Type", "application/json")

  resp, err := ms.httpClient.Do(req)
  if err != nil {
    return err
  }
  raw, _ := io.ReadAll(resp.Body)
  _ = resp.Body.Close()

  if resp.StatusCode < 200 || resp.StatusCode >= 300 {
    return &sendgridHTTPError{StatusCode: resp.StatusCode, Body: string(raw)}
  }
  return nil
}

type sendgridHTTPError struct {
  StatusCode int
  Body       string
}

func (e *sendgridHTTPError) Error() string {
  return fmt.Sprintf("sendgrid http %d: %s", e.StatusCode, e.Body)
}
