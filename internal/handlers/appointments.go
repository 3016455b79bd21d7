package handlers

import (
	"errors"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"clinic-agenda-server/internal/middleware"
	"clinic-agenda-server/internal/models"
	"clinic-agenda-server/internal/services"
	"clinic-agenda-server/internal/utils"
)

// AppointmentHandler handles appointment related requests.
type AppointmentHandler struct {
	Service *services.AppointmentService
}

// NewAppointmentHandler creates a new AppointmentHandler.
func NewAppointmentHandler(service *services.AppointmentService) *AppointmentHandler {
	return &AppointmentHandler{Service: service}
}

// respondServiceError maps service-layer sentinels onto HTTP statuses.
func respondServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrNotFound):
		utils.NotFound(c, "Appointment not found")
	case errors.Is(err, services.ErrSlotConflict):
		utils.Conflict(c, "This slot is already booked for the professional")
	case errors.Is(err, services.ErrPastDate):
		utils.BadRequest(c, "Appointment date must be in the future")
	case errors.Is(err, services.ErrInvalidProfessional):
		utils.BadRequest(c, "Professional not found")
	case errors.Is(err, services.ErrInvalidStatus):
		utils.BadRequest(c, "Invalid status")
	default:
		utils.InternalServerError(c, err.Error())
	}
}

// CreateAppointmentRequest represents the request body for creating an appointment.
type CreateAppointmentRequest struct {
	PatientID      string    `json:"patientId" binding:"required"`
	ProfessionalID string    `json:"professionalId" binding:"required"`
	Date           time.Time `json:"date" binding:"required"`
	Notes          string    `json:"notes"`
}

// CreateAppointment handles booking a new appointment.
// Patients book for themselves; receptionists may book for anyone.
func (h *AppointmentHandler) CreateAppointment(c *gin.Context) {
	var req CreateAppointmentRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}
	userRole, _ := middleware.GetUserRoleFromContext(c)
	if userRole == models.RolePatient && userID != req.PatientID {
		utils.Forbidden(c, "Patients can only book appointments for themselves.")
		return
	}

	appointment, err := h.Service.Create(services.CreateAppointmentInput{
		PatientID:      req.PatientID,
		ProfessionalID: req.ProfessionalID,
		Date:           req.Date,
		Notes:          req.Notes,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.Created(c, "Appointment created successfully", appointment)
}

// GetAppointments handles listing every appointment.
func (h *AppointmentHandler) GetAppointments(c *gin.Context) {
	appointments, err := h.Service.List()
	if err != nil {
		utils.InternalServerError(c, err.Error())
		return
	}
	utils.Success(c, "Appointments fetched successfully", appointments)
}

// GetAppointmentByID handles fetching a single appointment by its ID.
func (h *AppointmentHandler) GetAppointmentByID(c *gin.Context) {
	appointment, err := h.Service.GetByID(c.Param("id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.Success(c, "Appointment fetched successfully", appointment)
}

// UpdateAppointmentRequest represents a partial appointment update.
type UpdateAppointmentRequest struct {
	PatientID      *string    `json:"patientId"`
	ProfessionalID *string    `json:"professionalId"`
	Date           *time.Time `json:"date"`
	Status         *string    `json:"status" binding:"omitempty,oneof=SCHEDULED CONFIRMED CANCELED FINISHED"`
}

// UpdateAppointment handles the generic partial update used by
// receptionists and reschedules.
func (h *AppointmentHandler) UpdateAppointment(c *gin.Context) {
	var req UpdateAppointmentRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	input := services.UpdateAppointmentInput{
		PatientID:      req.PatientID,
		ProfessionalID: req.ProfessionalID,
		Date:           req.Date,
	}
	if req.Status != nil {
		status := models.AppointmentStatus(*req.Status)
		input.Status = &status
	}

	appointment, err := h.Service.Update(c.Param("id"), input)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.Success(c, "Appointment updated successfully", appointment)
}

// UpdateStatusRequest represents the dedicated status-transition body.
type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=CONFIRMED CANCELED FINISHED"`
}

// UpdateAppointmentStatus handles the dedicated status endpoint used by
// professionals (confirm/finish/cancel) and patients (cancel).
func (h *AppointmentHandler) UpdateAppointmentStatus(c *gin.Context) {
	var req UpdateStatusRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	appointment, err := h.Service.UpdateStatus(c.Param("id"), models.AppointmentStatus(req.Status))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.Success(c, "Appointment status updated successfully", appointment)
}

// DeleteAppointment handles the hard-delete path. The row is removed
// outright; this is not the same as a status update to CANCELED.
func (h *AppointmentHandler) DeleteAppointment(c *gin.Context) {
	if err := h.Service.Delete(c.Param("id")); err != nil {
		respondServiceError(c, err)
		return
	}
	utils.NoContent(c)
}

// UpdateNotesRequest represents the notes overwrite body.
type UpdateNotesRequest struct {
	Notes string `json:"notes"`
}

// UpdateAppointmentNotes handles overwriting the free-text notes.
func (h *AppointmentHandler) UpdateAppointmentNotes(c *gin.Context) {
	var req UpdateNotesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "Invalid request payload: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Notes) == "" {
		utils.BadRequest(c, "Notes must not be blank")
		return
	}

	appointment, err := h.Service.UpdateNotes(c.Param("id"), req.Notes)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.Success(c, "Notes updated successfully", appointment)
}

// GetMyAppointments handles the patient's own appointment list.
func (h *AppointmentHandler) GetMyAppointments(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}
	userRole, _ := middleware.GetUserRoleFromContext(c)
	if userRole != models.RolePatient {
		utils.Forbidden(c, "Only patients can access this view.")
		return
	}

	appointments, err := h.Service.ListForPatient(userID)
	if err != nil {
		utils.InternalServerError(c, err.Error())
		return
	}
	utils.Success(c, "Appointments fetched successfully", appointments)
}

// GetMyProfessionalAppointments handles the professional's agenda, with
// an optional same-day filter (?data=YYYY-MM-DD).
func (h *AppointmentHandler) GetMyProfessionalAppointments(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}
	userRole, _ := middleware.GetUserRoleFromContext(c)
	if userRole != models.RoleProfessional {
		utils.Forbidden(c, "Only professionals can access this view.")
		return
	}

	professional, err := h.Service.ProfessionalByUserID(userID)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			utils.NotFound(c, "Professional record not found")
		} else {
			utils.InternalServerError(c, err.Error())
		}
		return
	}

	appointments, err := h.Service.ListForProfessional(professional.ID, c.Query("data"))
	if err != nil {
		utils.BadRequest(c, err.Error())
		return
	}
	utils.Success(c, "Appointments fetched successfully", appointments)
}

// GetStatusHistory handles listing an appointment's status transitions.
func (h *AppointmentHandler) GetStatusHistory(c *gin.Context) {
	history, err := h.Service.ListStatusHistory(c.Param("id"))
	if err != nil {
		utils.InternalServerError(c, err.Error())
		return
	}
	utils.Success(c, "Status history fetched successfully", history)
}
