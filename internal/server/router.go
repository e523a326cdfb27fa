package server

import (
  "strings"

  "github.com/gin-contrib/cors"
  "github.com/gin-gonic/gin"
  "go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

  "github.com/classpoint/classpoint-backend/internal/handlers"
  "github.com/classpoint/classpoint-backend/internal/middleware"
  "github.com/classpoint/classpoint-backend/internal/utils"
)

type RouterConfig struct {
  AuthHandler       *handlers.AuthHandler
  AuthMiddleware    *middleware.AuthMiddleware
  UserHandler       *handlers.UserHandler
  ClassHandler      *handlers.ClassHandler
  StudentHandler    *handlers.StudentHandler
  GradesHandler     *handlers.GradesHandler
  ChatHandler       *handlers.ChatHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
  router := gin.Default()
  router.Use(otelgin.Middleware("classpoint-backend"))

  // Cors
  allowedOrigins := strings.Split(utils.GetEnv("CORS_ALLOWED_ORIGINS", "http://localhost:80,http://localhost:3000,http://localhost:5174", nil), ",")
  router.Use(cors.New(cors.Config{
    AllowOrigins:     allowedOrigins,
    AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
    AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
    AllowCredentials: true,
  }))

// ===============
// || Public    ||
// ===============
  router.GET("/healthcheck", handlers.HealthCheck)
  router.POST("/register", cfg.AuthHandler.Register)
  router.POST("/confirm_email", cfg.AuthHandler.ConfirmEmail)
  router.POST("/login", cfg.AuthHandler.Login)

// ===============
// || Protected ||
// ===============
  protected := router.Group("/")
  protected.Use(cfg.AuthMiddleware.RequireAuth())
  // Auth
  protected.POST("/refresh", cfg.AuthHandler.Refresh)
  protected.POST("/logout", cfg.AuthHandler.Logout)
  // User
  protected.GET("/user", cfg.UserHandler.GetMe)
  // Classes
  protected.POST("/user/create_class", cfg.ClassHandler.CreateClass)
  protected.GET("/user/classes", cfg.ClassHandler.GetUserClasses)
  protected.GET("/classes/:class_id", cfg.ClassHandler.GetClassDetail)
  protected.DELETE("/user/delete_class/:class_id", cfg.ClassHandler.DeleteClass)
  protected.PUT("/user/update_class/:class_id", cfg.ClassHandler.UpdateClassSettings)
  protected.POST("/classes/:class_id/challenges/:challenge_id/icon", cfg.ClassHandler.UploadChallengeIcon)
  // Students
  protected.POST("/students/add", cfg.StudentHandler.AddStudent)
  protected.POST("/students/bulk_add", cfg.StudentHandler.BulkAddStudents)
  protected.GET("/students/:class_id", cfg.StudentHandler.GetClassRoster)
  // Grades
  protected.POST("/students/update_grades", cfg.GradesHandler.UpdateGrades)
  // Chat
  protected.POST("/chat", cfg.ChatHandler.Chat)
  protected.POST("/chat/audio", cfg.ChatHandler.ChatAudio)

  return router
}
