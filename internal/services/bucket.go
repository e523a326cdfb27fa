package services

import (
  "context"
  "fmt"
  "io"
  "strings"
  "time"

  "cloud.google.com/go/storage"
  "google.golang.org/api/option"

  "github.com/classpoint/classpoint-backend/internal/logger"
  "github.com/classpoint/classpoint-backend/internal/utils"
)

type BucketCategory string

const (
  BucketCategoryAvatar BucketCategory = "avatar"
  BucketCategoryIcon   BucketCategory = "icon"
)

type bucketConfig struct {
  name      string
  cdnDomain string
}

// BucketService stores generated student avatars and challenge icons in
// Google Cloud Storage.
type BucketService interface {
  UploadFile(ctx context.Context, category BucketCategory, key string, file io.Reader) error
  DeleteFile(ctx context.Context, category BucketCategory, key string) error
  GetPublicURL(category BucketCategory, key string) string
}

type bucketService struct {
  log           *logger.Logger
  storageClient *storage.Client
  avatarBucket  bucketConfig
  iconBucket    bucketConfig
}

func NewBucketService(log *logger.Logger) (BucketService, error) {
  serviceLog := log.With("service", "BucketService")

  avatarBucket := utils.GetEnv("AVATAR_BUCKET", "", log)
  iconBucket := utils.GetEnv("ICON_BUCKET", "", log)
  if avatarBucket == "" || iconBucket == "" {
    return nil, fmt.Errorf("missing AVATAR_BUCKET or ICON_BUCKET")
  }

  ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
  defer cancel()

  var opts []option.ClientOption
  if creds := utils.GetEnv("GCP_CREDENTIALS_FILE", "", log); creds != "" {
    opts = append(opts, option.WithCredentialsFile(creds))
  }
  client, err := storage.NewClient(ctx, opts...)
  if err != nil {
    return nil, fmt.Errorf("Failed to create storage client: %w", err)
  }

  return &bucketService{
    log:           serviceLog,
    storageClient: client,
    avatarBucket: bucketConfig{
      name:      avatarBucket,
      cdnDomain: utils.GetEnv("AVATAR_CDN_DOMAIN", "", log),
    },
    iconBucket: bucketConfig{
      name:      iconBucket,
      cdnDomain: utils.GetEnv("ICON_CDN_DOMAIN", "", log),
    },
  }, nil
}

func (bs *bucketService) bucketFor(category BucketCategory) bucketConfig {
  if category == BucketCategoryIcon {
    return bs.iconBucket
  }
  return bs.avatarBucket
}

func (bs *bucketService) UploadFile(ctx context.Context, category BucketCategory, key string, file io.Reader) error {
  bucket := bs.bucketFor(category)

  writer := bs.storageClient.Bucket(bucket.name).Object(key).NewWriter(ctx)
  if _, err := io.Copy(writer, file); err != nil {
    _ = writer.Close()
    return fmt.Errorf("Failed to write object %s: %w", key, err)
  }
  if err := writer.Close(); err != nil {
    return fmt.Errorf("Failed to finalize object %s: %w", key, err)
  }
  return nil
}

func (bs *bucketService) DeleteFile(ctx context.Context, category BucketCategory, key string) error {
  bucket := bs.bucketFor(category)
  if err := bs.storageClient.Bucket(bucket.name).Object(key).Delete(ctx); err != nil {
    return fmt.Errorf("Failed to delete object %s: %w", key, err)
  }
  return nil
}

func (bs *bucketService) GetPublicURL(category BucketCategory, key string) string {
  bucket := bs.bucketFor(category)
  if bucket.cdnDomain != "" {
    return fmt.Sprintf("https://%s/%s", strings.TrimRight(bucket.cdnDomain, "/"), key)
  }
  return fmt.Sprintf("https://storage.googleapis.com/%s/%s", bucket.name, key)
}
