package api

import (
	"net/http"
	"time"

	"alcyxob/classroom-app/internal/domain"
	"alcyxob/classroom-app/internal/service"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Services bundles what the HTTP layer calls into.
type Services struct {
	Auth        service.AuthService
	Admin       service.AdminService
	Classes     service.ClassService
	Assignments service.AssignmentService
	Submissions service.SubmissionService
	Reports     service.ReportService
	Uploads     service.UploadService
}

// NewRouter returns a gin engine with logging, recovery and CORS installed.
func NewRouter(allowedOrigins []string) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	return router
}

func SetupRoutes(router *gin.Engine, jwtSecret string, svc Services) {
	authHandler := NewAuthHandler(svc.Auth, svc.Admin)
	adminHandler := NewAdminHandler(svc.Auth, svc.Admin, svc.Assignments)
	classHandler := NewClassHandler(svc.Classes)
	assignmentHandler := NewAssignmentHandler(svc.Assignments)
	submissionHandler := NewSubmissionHandler(svc.Submissions)
	reportHandler := NewReportHandler(svc.Reports)
	uploadHandler := NewUploadHandler(svc.Uploads)

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	apiV1 := router.Group("/api/v1")
	{
		authGroup := apiV1.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
		}
	}

	protected := apiV1.Group("")
	protected.Use(AuthMiddleware(jwtSecret))
	{
		protected.GET("/me", authHandler.Me)
		protected.PUT("/me", authHandler.UpdateProfile)

		// --- Classes ---
		classGroup := protected.Group("/classes")
		{
			classGroup.POST("", RoleMiddleware(domain.RoleTrainer), classHandler.CreateClass)
			classGroup.GET("/mine", classHandler.MyClasses)
			classGroup.POST("/enroll", RoleMiddleware(domain.RoleStudent), classHandler.Enroll)
			classGroup.GET("/:classId", classHandler.GetClass)
			classGroup.PUT("/:classId", RoleMiddleware(domain.RoleTrainer), classHandler.UpdateClass)
			classGroup.DELETE("/:classId", RoleMiddleware(domain.RoleTrainer, domain.RoleAdmin), classHandler.DeleteClass)
			classGroup.GET("/:classId/classmates", classHandler.Classmates)
			classGroup.DELETE("/:classId/students/:studentId", classHandler.Unenroll)
		}

		// --- Assignments ---
		// Ownership is decided per resource by the service guard; role gates here are coarse.
		assignmentGroup := protected.Group("/assignments")
		{
			assignmentGroup.POST("", RoleMiddleware(domain.RoleTrainer), assignmentHandler.CreateAssignment)
			assignmentGroup.GET("/trainer", RoleMiddleware(domain.RoleTrainer), assignmentHandler.TrainerAssignments)
			assignmentGroup.GET("/class/:classId", assignmentHandler.ClassAssignments)
			assignmentGroup.GET("/:id", assignmentHandler.GetAssignment)
			assignmentGroup.PUT("/:id", RoleMiddleware(domain.RoleTrainer), assignmentHandler.UpdateAssignment)
			assignmentGroup.DELETE("/:id", RoleMiddleware(domain.RoleTrainer, domain.RoleAdmin), assignmentHandler.DeleteAssignment)
			assignmentGroup.GET("/:id/submissions", assignmentHandler.Submissions)

			assignmentGroup.POST("/:id/submit", RoleMiddleware(domain.RoleStudent), submissionHandler.Submit)
			assignmentGroup.DELETE("/:id/submit", RoleMiddleware(domain.RoleStudent), submissionHandler.Unsubmit)
			assignmentGroup.POST("/:id/evaluate", RoleMiddleware(domain.RoleTrainer), submissionHandler.Evaluate)

			assignmentGroup.GET("/:id/report/:studentId", reportHandler.StudentReport)
		}

		protected.GET("/reports/class/:classId/student/:studentId", reportHandler.ClassReport)

		// --- Student views ---
		studentGroup := protected.Group("/student")
		studentGroup.Use(RoleMiddleware(domain.RoleStudent))
		{
			studentGroup.GET("/submitted", reportHandler.Submitted)
			studentGroup.GET("/pending", reportHandler.Pending)
			studentGroup.GET("/class/:classId", reportHandler.StudentClass)
		}

		// --- Uploads ---
		uploadGroup := protected.Group("/uploads")
		{
			uploadGroup.POST("/assignments", RoleMiddleware(domain.RoleTrainer), uploadHandler.AssignmentUpload)
			uploadGroup.POST("/submissions", RoleMiddleware(domain.RoleStudent), uploadHandler.SubmissionUpload)
			uploadGroup.GET("/assignments/:id/download", uploadHandler.Download)
		}

		// --- Admin ---
		adminGroup := protected.Group("/admin")
		adminGroup.Use(RoleMiddleware(domain.RoleAdmin))
		{
			adminGroup.GET("/users", adminHandler.ListUsers)
			adminGroup.POST("/users", adminHandler.CreateUser)
			adminGroup.GET("/users/:userId", adminHandler.GetUser)
			adminGroup.PUT("/users/:userId", adminHandler.UpdateUser)
			adminGroup.DELETE("/users/:userId", adminHandler.DeleteUser)
			adminGroup.GET("/trainers/:trainerId/assignments", adminHandler.TrainerAssignments)
			adminGroup.GET("/students/unenrolled", adminHandler.UnenrolledStudents)
		}
	}
}
