package services

import (
  "bytes"
  "context"
  "fmt"
  "hash/fnv"
  "image"
  "image/color"
  "os"
  "strings"
  "time"
  "unicode"

  _ "image/jpeg"
  _ "image/png"

  "github.com/fogleman/gg"
  "github.com/golang/freetype/truetype"
  "github.com/google/uuid"
  "golang.org/x/image/draw"
  "golang.org/x/image/font"

  "github.com/classpoint/classpoint-backend/internal/logger"
  "github.com/classpoint/classpoint-backend/internal/types"
)

var avatarPalette = []color.NRGBA{
  {R: 0x4C, G: 0x6E, B: 0xF5, A: 0xFF},
  {R: 0xF5, G: 0x6E, B: 0x4C, A: 0xFF},
  {R: 0x2E, G: 0xB8, B: 0x72, A: 0xFF},
  {R: 0xA8, G: 0x5C, B: 0xD4, A: 0xFF},
  {R: 0xE8, G: 0xA0, B: 0x1D, A: 0xFF},
  {R: 0x1D, G: 0x9B, B: 0xE8, A: 0xFF},
  {R: 0xD4, G: 0x42, B: 0x6A, A: 0xFF},
}

// AvatarService renders initials avatars for students and normalizes
// uploaded challenge icons.
type AvatarService interface {
  CreateAndUploadStudentAvatar(ctx context.Context, student *types.Student) error
  GenerateStudentAvatar(student *types.Student) (bytes.Buffer, error)
  UploadChallengeIcon(ctx context.Context, challenge *types.Challenge, raw []byte) error
}

type avatarService struct {
  log           *logger.Logger
  bucketService BucketService
  fontFace      font.Face
}

func NewAvatarService(log *logger.Logger, bucketService BucketService) (AvatarService, error) {
  serviceLog := log.With("service", "AvatarService")

  fontPath := os.Getenv("AVATAR_FONT")
  if strings.TrimSpace(fontPath) == "" {
    return nil, fmt.Errorf("Env var AVATAR_FONT is empty")
  }
  serviceLog.Info("Loading avatar font", "font", fontPath)

  face, err := loadFontFace(fontPath, 206)
  if err != nil {
    return nil, fmt.Errorf("could not load avatar font: %w", err)
  }

  return &avatarService{
    log:           serviceLog,
    bucketService: bucketService,
    fontFace:      face,
  }, nil
}

func (as *avatarService) CreateAndUploadStudentAvatar(ctx context.Context, student *types.Student) error {
  if student == nil || student.ID == uuid.Nil {
    return fmt.Errorf("student required")
  }

  buf, err := as.GenerateStudentAvatar(student)
  if err != nil {
    return err
  }

  // Save old key so we can delete after success
  oldKey := strings.TrimSpace(student.AvatarBucketKey)

  // Versioned key so CDN/browser cannot serve stale cached content
  newKey := fmt.Sprintf("student_avatar/%s/%d.png", student.ID.String(), time.Now().UnixNano())

  if err := as.bucketService.UploadFile(ctx, BucketCategoryAvatar, newKey, bytes.NewReader(buf.Bytes())); err != nil {
    return fmt.Errorf("failed to upload student avatar: %w", err)
  }

  student.AvatarBucketKey = newKey
  student.AvatarURL = as.bucketService.GetPublicURL(BucketCategoryAvatar, newKey)

  // Best-effort delete old AFTER we have a new one
  if oldKey != "" && oldKey != newKey {
    if err := as.bucketService.DeleteFile(ctx, BucketCategoryAvatar, oldKey); err != nil {
      as.log.Warn("failed to delete old avatar (ignored)", "oldKey", oldKey, "error", err)
    }
  }

  return nil
}

func (as *avatarService) GenerateStudentAvatar(student *types.Student) (bytes.Buffer, error) {
  const size = 512

  dc := gg.NewContext(size, size)

  // Clip to circle
  dc.DrawCircle(float64(size)/2, float64(size)/2, float64(size)/2)
  dc.Clip()

  // Fill bg, deterministic per name so regeneration stays stable
  base := pickAvatarColor(student.Name)
  dc.SetColor(base)
  dc.DrawRectangle(0, 0, float64(size), float64(size))
  dc.Fill()

  initials := computeInitials(student.Name)

  dc.SetFontFace(as.fontFace)
  tw, th := dc.MeasureString(initials)
  cx, cy := float64(size)/2, float64(size)/2

  dc.SetColor(color.White)
  dc.DrawString(initials, cx-(tw/2)+5, cy+(th/2)-10)

  var buf bytes.Buffer
  if err := dc.EncodePNG(&buf); err != nil {
    return buf, fmt.Errorf("failed to encode PNG: %w", err)
  }
  return buf, nil
}

func (as *avatarService) UploadChallengeIcon(ctx context.Context, challenge *types.Challenge, raw []byte) error {
  if challenge == nil || challenge.ID == uuid.Nil {
    return fmt.Errorf("challenge required")
  }

  processed, err := processUploadedImage(raw, 256)
  if err != nil {
    return err
  }

  oldKey := strings.TrimSpace(challenge.IconBucketKey)
  newKey := fmt.Sprintf("challenge_icon/%s/%d.png", challenge.ID.String(), time.Now().UnixNano())

  if err := as.bucketService.UploadFile(ctx, BucketCategoryIcon, newKey, bytes.NewReader(processed.Bytes())); err != nil {
    return fmt.Errorf("failed to upload challenge icon: %w", err)
  }

  challenge.IconBucketKey = newKey
  iconURL := as.bucketService.GetPublicURL(BucketCategoryIcon, newKey)
  challenge.IconURL = &iconURL

  if oldKey != "" && oldKey != newKey {
    if err := as.bucketService.DeleteFile(ctx, BucketCategoryIcon, oldKey); err != nil {
      as.log.Warn("failed to delete old icon (ignored)", "oldKey", oldKey, "error", err)
    }
  }

  return nil
}

func processUploadedImage(raw []byte, size int) (bytes.Buffer, error) {
  var out bytes.Buffer

  img, _, err := image.Decode(bytes.NewReader(raw))
  if err != nil {
    return out, fmt.Errorf("decode image: %w", err)
  }

  // Center-crop to square
  b := img.Bounds()
  w := b.Dx()
  h := b.Dy()
  side := w
  if h < w {
    side = h
  }
  x0 := b.Min.X + (w-side)/2
  y0 := b.Min.Y + (h-side)/2

  cropRect := image.Rect(0, 0, side, side)
  cropped := image.NewRGBA(cropRect)
  draw.Draw(cropped, cropRect, img, image.Point{X: x0, Y: y0}, draw.Src)

  // Resize to NxN
  dst := image.NewRGBA(image.Rect(0, 0, size, size))
  draw.CatmullRom.Scale(dst, dst.Bounds(), cropped, cropped.Bounds(), draw.Over, nil)

  dc := gg.NewContext(size, size)
  dc.DrawCircle(float64(size)/2, float64(size)/2, float64(size)/2)
  dc.Clip()
  dc.DrawImage(dst, 0, 0)

  if err := dc.EncodePNG(&out); err != nil {
    return out, fmt.Errorf("encode png: %w", err)
  }

  return out, nil
}

func pickAvatarColor(name string) color.NRGBA {
  h := fnv.New32a()
  _, _ = h.Write([]byte(strings.ToLower(strings.TrimSpace(name))))
  return avatarPalette[int(h.Sum32())%len(avatarPalette)]
}

func computeInitials(name string) string {
  parts := strings.Fields(name)
  if len(parts) == 0 {
    return "?"
  }
  first := string(unicode.ToUpper([]rune(parts[0])[0]))
  if len(parts) == 1 {
    return first
  }
  last := string(unicode.ToUpper([]rune(parts[len(parts)-1])[0]))
  return first + last
}

func loadFontFace(fontPath string, size float64) (font.Face, error) {
  fontBytes, err := os.ReadFile(fontPath)
  if err != nil {
    return nil, fmt.Errorf("failed to read font file: %w", err)
  }
  parsedFont, err := truetype.Parse(fontBytes)
  if err != nil {
    return nil, fmt.Errorf("failed to parse TTF: %w", err)
  }
  face := truetype.NewFace(parsedFont, &truetype.Options{
    Size:    size,
    DPI:     72,
    Hinting: font.HintingNone,
  })
  return face, nil
}
