package main

import (
  "context"
  "fmt"
  "os"
  "time"

  "github.com/classpoint/classpoint-backend/internal/db"
  "github.com/classpoint/classpoint-backend/internal/handlers"
  "github.com/classpoint/classpoint-backend/internal/logger"
  "github.com/classpoint/classpoint-backend/internal/middleware"
  "github.com/classpoint/classpoint-backend/internal/observability"
  "github.com/classpoint/classpoint-backend/internal/repos"
  "github.com/classpoint/classpoint-backend/internal/server"
  "github.com/classpoint/classpoint-backend/internal/services"
  "github.com/classpoint/classpoint-backend/internal/utils"
)

func main() {
  // Logger
  logMode := os.Getenv("LOG_MODE")
  if logMode == "" {
    logMode = "development"
  }
  log, err := logger.New(logMode)
  if err != nil {
    fmt.Printf("Failed to init logger: %v\n", err)
    os.Exit(1)
  }
  defer log.Sync()

  // Tracing
  otelShutdown := observability.InitOTel(context.Background(), log, observability.OtelConfig{
    ServiceName: "classpoint-backend",
    Environment: utils.GetEnv("ENVIRONMENT", "development", log),
    Version:     utils.GetEnv("SERVICE_VERSION", "dev", log),
  })
  if otelShutdown != nil {
    defer func() {
      ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
      defer cancel()
      _ = otelShutdown(ctx)
    }()
  }

  // Env
  log.Info("Loading environment variables from main...")
  jwtSecretKey := utils.GetEnv("JWT_SECRET_KEY", "defaultsecret", log)
  accessTokenTTL := utils.GetEnvAsInt("ACCESS_TOKEN_TTL", 3600, log)
  refreshTokenTTL := utils.GetEnvAsInt("REFRESH_TOKEN_TTL", 86400, log)

  // Postgres
  postgresService, err := db.NewPostgresService(log)
  if err != nil {
    log.Error("Postgres init failed", "error", err)
    os.Exit(1)
  }
  if err = postgresService.AutoMigrateAll(); err != nil {
    log.Warn("Postgres auto migration failed", "error", err)
  }
  thePG := postgresService.DB()

  // Repos
  log.Info("Setting up Repos from main...")
  userRepo := repos.NewUserRepo(thePG, log)
  userTokenRepo := repos.NewUserTokenRepo(thePG, log)
  classRepo := repos.NewClassRepo(thePG, log)
  classMemberRepo := repos.NewClassMemberRepo(thePG, log)
  categoryRepo := repos.NewCategoryRepo(thePG, log)
  studentRepo := repos.NewStudentRepo(thePG, log)
  gradeRepo := repos.NewGradeRepo(thePG, log)
  gradeHistoryRepo := repos.NewGradeHistoryRepo(thePG, log)
  itemRepo := repos.NewItemRepo(thePG, log)
  challengeRepo := repos.NewChallengeRepo(thePG, log)
  assistantCallLogRepo := repos.NewAssistantCallLogRepo(thePG, log)

  // Services
  log.Info("Setting up Services from main...")
  bucketService, err := services.NewBucketService(log)
  if err != nil {
    log.Warn("Could not init BucketService, avatars disabled", "error", err)
  }
  var avatarService services.AvatarService
  if bucketService != nil {
    avatarService, err = services.NewAvatarService(log, bucketService)
    if err != nil {
      log.Warn("Could not init AvatarService, avatars disabled", "error", err)
    }
  }
  mailerService, err := services.NewMailerService(log)
  if err != nil {
    log.Warn("Could not init MailerService, email disabled", "error", err)
  }
  assistantClient, err := services.NewGeminiClient(log)
  if err != nil {
    log.Error("Could not init assistant client", "error", err)
    os.Exit(1)
  }

  authService := services.NewAuthService(thePG, log, userRepo, userTokenRepo, mailerService, jwtSecretKey, time.Duration(accessTokenTTL)*time.Second, time.Duration(refreshTokenTTL)*time.Second)
  userService := services.NewUserService(thePG, log, userRepo)
  classService := services.NewClassService(thePG, log, classRepo, classMemberRepo, categoryRepo, challengeRepo, itemRepo, avatarService)
  studentService := services.NewStudentService(thePG, log, classRepo, studentRepo, categoryRepo, gradeRepo, gradeHistoryRepo, mailerService, avatarService)
  ledgerService := services.NewGradeLedgerService(thePG, log, gradeRepo, gradeHistoryRepo)
  gradeCommandService := services.NewGradeCommandService(thePG, log, categoryRepo, studentRepo, ledgerService)
  sessionService := services.NewChatSessionService(log, assistantClient)
  chatService := services.NewChatService(thePG, log, assistantClient, sessionService, studentService, classService, gradeCommandService, assistantCallLogRepo)

  // Handlers
  log.Info("Setting up handlers from main...")
  authHandler := handlers.NewAuthHandler(authService)
  userHandler := handlers.NewUserHandler(userService)
  classHandler := handlers.NewClassHandler(classService)
  studentHandler := handlers.NewStudentHandler(studentService)
  gradesHandler := handlers.NewGradesHandler(gradeCommandService)
  chatHandler := handlers.NewChatHandler(chatService)

  // Middleware
  log.Info("Setting up middleware from main...")
  authMiddleware := middleware.NewAuthMiddleware(log, authService)

  // Router
  log.Info("Setting up router from main...")
  router := server.NewRouter(server.RouterConfig{
    AuthHandler:       authHandler,
    AuthMiddleware:    authMiddleware,
    UserHandler:       userHandler,
    ClassHandler:      classHandler,
    StudentHandler:    studentHandler,
    GradesHandler:     gradesHandler,
    ChatHandler:       chatHandler,
  })

  port := utils.GetEnv("PORT", "8080", log)
  fmt.Printf("Server listening on :%s\n", port)
  if err := router.Run(":" + port); err != nil {
    log.Warn("Server failed", "error", err)
  }
}
