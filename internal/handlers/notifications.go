package handlers

import (
	"github.com/gin-gonic/gin"

	"clinic-agenda-server/internal/middleware"
	"clinic-agenda-server/internal/services"
	"clinic-agenda-server/internal/utils"
)

// NotificationHandler exposes the caller's notification log.
// Notifications themselves are created as side effects of appointment
// mutations, never through HTTP.
type NotificationHandler struct {
	Service *services.NotificationService
}

// NewNotificationHandler creates a new NotificationHandler.
func NewNotificationHandler(service *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{Service: service}
}

// GetMyNotifications handles listing the authenticated user's notifications.
func (h *NotificationHandler) GetMyNotifications(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	notifications, err := h.Service.ListForRecipient(userID)
	if err != nil {
		utils.InternalServerError(c, err.Error())
		return
	}
	utils.Success(c, "Notifications fetched successfully", notifications)
}
