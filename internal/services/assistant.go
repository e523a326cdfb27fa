package services

import (
  "bytes"
  "context"
  "encoding/base64"
  "encoding/json"
  "errors"
  "fmt"
  "io"
  "math/rand"
  "net"
  "net/http"
  "os"
  "strconv"
  "strings"
  "sync"
  "time"

  "github.com/classpoint/classpoint-backend/internal/logger"
)

// AssistantClient is the contract with the conversational model. A session
// is an opaque handle seeded once with classroom context; Generate is the
// single-shot variant used for audio requests, where the model interprets
// the recording directly.
type AssistantClient interface {
  StartSession(contextText string) *AssistantSession
  Send(ctx context.Context, session *AssistantSession, message string) (string, error)
  Generate(ctx context.Context, promptText string, audio []byte, mimeType string) (string, error)
}

// AssistantSession accumulates the conversation history for one teacher
// context. Sends against the same session are serialized by its mutex so
// the history never interleaves.
type AssistantSession struct {
  mu       sync.Mutex
  contents []geminiContent
}

type geminiPart struct {
  Text       string            `json:"text,omitempty"`
  InlineData *geminiInlineData `json:"inline_data,omitempty"`
}

type geminiInlineData struct {
  MimeType string `json:"mime_type"`
  Data     string `json:"data"`
}

type geminiContent struct {
  Role  string       `json:"role"`
  Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
  Temperature     float64 `json:"temperature"`
  TopP            float64 `json:"topP"`
  TopK            int     `json:"topK"`
  MaxOutputTokens int     `json:"maxOutputTokens"`
}

type geminiRequest struct {
  Contents         []geminiContent         `json:"contents"`
  GenerationConfig *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiResponse struct {
  Candidates []struct {
    Content struct {
      Parts []struct {
        Text string `json:"text"`
      } `json:"parts"`
    } `json:"content"`
  } `json:"candidates"`
}

type geminiClient struct {
  log        *logger.Logger
  baseURL    string
  apiKey     string
  model      string
  httpClient *http.Client

  maxRetries int
}

func NewGeminiClient(log *logger.Logger) (AssistantClient, error) {
  apiKey := os.Getenv("GEMINI_API_KEY")
  if apiKey == "" {
    return nil, fmt.Errorf("missing GEMINI_API_KEY")
  }

  baseURL := os.Getenv("GEMINI_BASE_URL")
  if baseURL == "" {
    baseURL = "https://generativelanguage.googleapis.com"
  }

  model := os.Getenv("GEMINI_MODEL")
  if model == "" {
    model = "gemini-2.0-flash"
  }

  timeoutSec := 60
  if v := os.Getenv("GEMINI_TIMEOUT_SECONDS"); v != "" {
    if parsed, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && parsed > 0 {
      timeoutSec = parsed
    }
  }

  maxRetries := 4
  if v := os.Getenv("GEMINI_MAX_RETRIES"); v != "" {
    if parsed, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && parsed >= 0 {
      maxRetries = parsed
    }
  }

  return &geminiClient{
    log:        log.With("service", "GeminiClient"),
    baseURL:    strings.TrimRight(baseURL, "/"),
    apiKey:     apiKey,
    model:      model,
    httpClient: &http.Client{Timeout: time.Duration(timeoutSec) * time.Second},
    maxRetries: maxRetries,
  }, nil
}

type geminiHTTPError struct {
  StatusCode int
  Body       string
}

func (e *geminiHTTPError) Error() string {
  return fmt.Sprintf("gemini http %d: %s", e.StatusCode, e.Body)
}

func isRetryableHTTP(code int) bool {
  if code == 408 || code == 429 {
    return true
  }
  if code >= 500 && code <= 599 {
    return true
  }
  return false
}

func isRetryableErr(err error) bool {
  if err == nil {
    return false
  }
  if errors.Is(err, context.Canceled) {
    return false
  }
  if errors.Is(err, context.DeadlineExceeded) {
    return true
  }
  var netErr net.Error
  if errors.As(err, &netErr) {
    if netErr.Timeout() {
      return true
    }
  }
  var httpErr *geminiHTTPError
  if errors.As(err, &httpErr) {
    return isRetryableHTTP(httpErr.StatusCode)
  }
  var sgErr *sendgridHTTPError
  if errors.As(err, &sgErr) {
    return isRetryableHTTP(sgErr.StatusCode)
  }
  return false
}

func jitterSleep(base time.Duration) time.Duration {
  // +/- 20%
  if base <= 0 {
    return 0
  }
  j := 0.2
  delta := base.Seconds() * j
  low := base.Seconds() - delta
  high := base.Seconds() + delta
  if low < 0 {
    low = 0
  }
  v := low + rand.Float64()*(high-low)
  return time.Duration(v * float64(time.Second))
}

func (c *geminiClient) doOnce(ctx context.Context, path string, body any) (*http.Response, []byte, error) {
  var buf bytes.Buffer
  if err := json.NewEncoder(&buf).Encode(body); err != nil {
    return nil, nil, err
  }

  req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &buf)
  if err != nil {
    return nil, nil, err
  }
  req.Header.Set("x-goog-api-key", c.apiKey)
  req.Header.Set("Content-Type", "application/json")

  resp, err := c.httpClient.Do(req)
  if err != nil {
    return nil, nil, err
  }

  raw, readErr := io.ReadAll(resp.Body)
  _ = resp.Body.Close()
  if readErr != nil {
    return resp, nil, readErr
  }

  if resp.StatusCode < 200 || resp.StatusCode >= 300 {
    return resp, raw, &geminiHTTPError{StatusCode: resp.StatusCode, Body: string(raw)}
  }
  return resp, raw, nil
}

func (c *geminiClient) do(ctx context.Context, path string, body any, out any) error {
  // exponential backoff: 1s, 2s, 4s, 8s (cap ~10s)
  backoff := 1 * time.Second

  for attempt := 0; attempt <= c.maxRetries; attempt++ {
    if ctx.Err() != nil {
      return ctx.Err()
    }

    resp, raw, err := c.doOnce(ctx, path, body)
    if err == nil {
      if out == nil {
        return nil
      }
      if uErr := json.Unmarshal(raw, out); uErr != nil {
        return fmt.Errorf("gemini decode error: %w; raw=%s", uErr, string(raw))
      }
      return nil
    }

    if !isRetryableErr(err) {
      return err
    }

    if attempt == c.maxRetries {
      return err
    }

    sleepFor := backoff
    if resp != nil {
      ra := strings.TrimSpace(resp.Header.Get("Retry-After"))
      if ra != "" {
        if secs, parseErr := strconv.Atoi(ra); parseErr == nil && secs > 0 {
          sleepFor = time.Duration(secs) * time.Second
        }
      }
    }

    if sleepFor > 10*time.Second {
      sleepFor = 10 * time.Second
    }
    sleepFor = jitterSleep(sleepFor)

    c.log.Warn("Gemini request retrying",
      "path", path,
      "attempt", attempt+1,
      "max_retries", c.maxRetries,
      "sleep", sleepFor.String(),
      "error", err.Error(),
    )

    time.Sleep(sleepFor)
    backoff *= 2
  }

  return fmt.Errorf("unreachable retry loop")
}

func (c *geminiClient) generatePath() string {
  return fmt.Sprintf("/v1beta/models/%s:generateContent", c.model)
}

func defaultGenerationConfig() *geminiGenerationConfig {
  return &geminiGenerationConfig{
    Temperature:     1,
    TopP:            0.95,
    TopK:            40,
    MaxOutputTokens: 100,
  }
}

func firstCandidateText(resp *geminiResponse) (string, error) {
  if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
    return "", fmt.Errorf("gemini returned no candidates")
  }
  return strings.TrimSpace(resp.Candidates[0].Content.Parts[0].Text), nil
}

func (c *geminiClient) StartSession(contextText string) *AssistantSession {
  return &AssistantSession{
    contents: []geminiContent{
      {
        Role:  "user",
        Parts: []geminiPart{{Text: contextText}},
      },
    },
  }
}

func (c *geminiClient) Send(ctx context.Context, session *AssistantSession, message string) (string, error) {
  session.mu.Lock()
  defer session.mu.Unlock()

  contents := append([]geminiContent{}, session.contents...)
  contents = append(contents, geminiContent{
    Role:  "user",
    Parts: []geminiPart{{Text: message}},
  })

  var resp geminiResponse
  if err := c.do(ctx, c.generatePath(), geminiRequest{
    Contents:         contents,
    GenerationConfig: defaultGenerationConfig(),
  }, &resp); err != nil {
    return "", fmt.Errorf("gemini send: %w", err)
  }

  text, err := firstCandidateText(&resp)
  if err != nil {
    return "", err
  }

  session.contents = append(contents, geminiContent{
    Role:  "model",
    Parts: []geminiPart{{Text: text}},
  })
  return text, nil
}

func (c *geminiClient) Generate(ctx context.Context, promptText string, audio []byte, mimeType string) (string, error) {
  if mimeType == "" {
    mimeType = "audio/mp3"
  }

  var resp geminiResponse
  if err := c.do(ctx, c.generatePath(), geminiRequest{
    Contents: []geminiContent{
      {
        Role: "user",
        Parts: []geminiPart{
          {Text: promptText},
          {InlineData: &geminiInlineData{
            MimeType: mimeType,
            Data:     base64.StdEncoding.EncodeToString(audio),
          }},
        },
      },
    },
    GenerationConfig: defaultGenerationConfig(),
  }, &resp); err != nil {
    return "", fmt.Errorf("gemini generate: %w", err)
  }

  return firstCandidateText(&resp)
}
