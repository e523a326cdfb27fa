package db

import (
  "fmt"
  "gorm.io/driver/postgres"
  "gorm.io/gorm"
  "github.com/classpoint/classpoint-backend/internal/types"
  "github.com/classpoint/classpoint-backend/internal/utils"
  "github.com/classpoint/classpoint-backend/internal/logger"
)

type PostgresService struct {
  db *gorm.DB
  log *logger.Logger
}

func NewPostgresService(log *logger.Logger) (*PostgresService, error) {
  serviceLog := log.With("service", "PostgresService")

  log.Info("Loading environment variables...")
  postgresHost := utils.GetEnv("POSTGRES_HOST", "localhost", log)
  postgresPort := utils.GetEnv("POSTGRES_PORT", "5432", log)
  postgresUser := utils.GetEnv("POSTGRES_USER", "postgres", log)
  postgresPassword := utils.GetEnv("POSTGRES_PASSWORD", "", log)
  postgresName := utils.GetEnv("POSTGRES_NAME", "classpoint", log)
  log.Debug("Environment variables loaded")

  dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", postgresUser, postgresPassword, postgresHost, postgresPort, postgresName)

  log.Info("Connecting to Postgres...")
  db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
    DisableForeignKeyConstraintWhenMigrating: true,
  })
  if err != nil {
    log.Error("Failed to connect to Postgres", "error", err)
    return nil, fmt.Errorf("Failed to connect to Postgres: %w", err)
  }

  if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`).Error; err != nil {
    log.Error("Failed to enable uuid-ossp extension", "error", err)
    return nil, fmt.Errorf("Failed to enable uuid-ossp extension: %w", err)
  }
  log.Info("uuid-ossp extension enabled")

  return &PostgresService{db: db, log: serviceLog}, nil
}

func (s *PostgresService) AutoMigrateAll() error {
  s.log.Info("Auto migrating postgres tables...")
  err := s.db.AutoMigrate(
    &types.User{},
    &types.UserToken{},
    &types.Class{},
    &types.ClassMember{},
    &types.Category{},
    &types.Student{},
    &types.Grade{},
    &types.GradeHistory{},
    &types.Item{},
    &types.Challenge{},
    &types.AssistantCallLog{},
  )
  if err != nil {
    s.log.Error("Auto migration failed for postgres tables", "error", err)
    return err
  }
  s.log.Info("Configuring foreign key relationships for postgres tables...")
  constraints := []struct {
    table  string
    name   string
    column string
    ref    string
  }{
    {"user_token", "fk_user_token_user_id", "user_id", `"user"("id")`},
    {"class_member", "fk_class_member_class_id", "class_id", `"class"("id")`},
    {"class_member", "fk_class_member_user_id", "user_id", `"user"("id")`},
    {"category", "fk_category_class_id", "class_id", `"class"("id")`},
    {"category", "fk_category_parent_id", "parent_id", `"category"("id")`},
    {"student", "fk_student_class_id", "class_id", `"class"("id")`},
    {"grade", "fk_grade_student_id", "student_id", `"student"("id")`},
    {"grade", "fk_grade_category_id", "category_id", `"category"("id")`},
    {"grade_history", "fk_grade_history_grade_id", "grade_id", `"grade"("id")`},
    {"item", "fk_item_class_id", "class_id", `"class"("id")`},
    {"challenge", "fk_challenge_class_id", "class_id", `"class"("id")`},
  }
  for _, c := range constraints {
    stmt := fmt.Sprintf(`
      ALTER TABLE %q
      DROP CONSTRAINT IF EXISTS %q;
      ALTER TABLE %q
      ADD CONSTRAINT %q
      FOREIGN KEY (%q)
      REFERENCES %s
      ON DELETE CASCADE
    `, c.table, c.name, c.table, c.name, c.column, c.ref)
    if err := s.db.Exec(stmt).Error; err != nil {
      return fmt.Errorf("Failed to add %s: %w", c.name, err)
    }
  }
  return nil
}

func (s *PostgresService) DB() *gorm.DB {
  return s.db
}
