package routes

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"clinic-agenda-server/internal/config"
	"clinic-agenda-server/internal/handlers"
	"clinic-agenda-server/internal/middleware"
	"clinic-agenda-server/internal/models"
	"clinic-agenda-server/internal/services"
)

// SetupRoutes configures the application routes. Route paths follow the
// clinic's original API surface, so the existing dashboards keep working.
func SetupRoutes(router *gin.Engine, db *gorm.DB, cfg *config.Config,
	appointmentService *services.AppointmentService,
	notificationService *services.NotificationService) {

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(db, cfg)
	userHandler := handlers.NewUserHandler(db)
	specialtyHandler := handlers.NewSpecialtyHandler(db)
	appointmentHandler := handlers.NewAppointmentHandler(appointmentService)
	notificationHandler := handlers.NewNotificationHandler(notificationService)

	// Public routes (no authentication required)
	public := router.Group("/api")
	{
		authRoutes := public.Group("/auth")
		{
			authRoutes.POST("/register", authHandler.Register)
			authRoutes.POST("/login", authHandler.Login)
			authRoutes.POST("/refresh", authHandler.RefreshToken)
		}
	}

	// Authenticated routes
	private := router.Group("/api")
	private.Use(middleware.AuthMiddleware(cfg))
	{
		authRoutesPrivate := private.Group("/auth")
		{
			authRoutesPrivate.POST("/logout", authHandler.Logout)
			authRoutesPrivate.GET("/profile", authHandler.GetProfile)
		}

		// Appointment routes. /me and /profissional/me are registered
		// before /:id so they do not collide with the id parameter.
		appointmentRoutes := private.Group("/agendamentos")
		{
			appointmentRoutes.GET("/me", appointmentHandler.GetMyAppointments)
			appointmentRoutes.GET("/profissional/me", appointmentHandler.GetMyProfessionalAppointments)
			appointmentRoutes.GET("", appointmentHandler.GetAppointments)
			appointmentRoutes.GET("/:id", appointmentHandler.GetAppointmentByID)
			appointmentRoutes.POST("", appointmentHandler.CreateAppointment)
			appointmentRoutes.PUT("/:id", appointmentHandler.UpdateAppointment)
			appointmentRoutes.DELETE("/:id", appointmentHandler.DeleteAppointment)
			appointmentRoutes.PATCH("/:id/status", appointmentHandler.UpdateAppointmentStatus)
			appointmentRoutes.PATCH("/:id/observacoes", appointmentHandler.UpdateAppointmentNotes)
			appointmentRoutes.GET("/:id/historico", appointmentHandler.GetStatusHistory)
		}

		// Specialty reference data
		specialtyRoutes := private.Group("/especialidades")
		{
			specialtyRoutes.GET("", specialtyHandler.GetSpecialties)
			specialtyRoutes.POST("", middleware.RoleAuthMiddleware(models.RoleReceptionist), specialtyHandler.CreateSpecialty)
			specialtyRoutes.DELETE("/:id", middleware.RoleAuthMiddleware(models.RoleReceptionist), specialtyHandler.DeleteSpecialty)
		}

		// Receptionist administration
		receptionistRoutes := private.Group("/recepcionista")
		receptionistRoutes.Use(middleware.RoleAuthMiddleware(models.RoleReceptionist))
		{
			receptionistRoutes.GET("/dashboard-resumo", userHandler.GetDashboardSummary)
			receptionistRoutes.GET("/usuarios", userHandler.GetUsers)
			receptionistRoutes.POST("/usuarios", userHandler.CreateUser)
			receptionistRoutes.PUT("/usuarios/:id", userHandler.UpdateUser)
			receptionistRoutes.DELETE("/usuarios/:id", userHandler.DeleteUser)
			receptionistRoutes.GET("/agendamentos", appointmentHandler.GetAppointments)
			receptionistRoutes.PUT("/agendamentos/:id", appointmentHandler.UpdateAppointment)
		}

		// Notification log
		private.GET("/notificacoes", notificationHandler.GetMyNotifications)
	}

	// Simple health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "UP"})
	})
}
