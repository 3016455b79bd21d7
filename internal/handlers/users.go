package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"clinic-agenda-server/internal/models"
	"clinic-agenda-server/internal/utils"
)

// UserHandler handles user administration (receptionist operations).
type UserHandler struct {
	DB *gorm.DB
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(db *gorm.DB) *UserHandler {
	return &UserHandler{DB: db}
}

// GetUsers handles listing all users with their professional profile
// and specialty eagerly loaded.
func (h *UserHandler) GetUsers(c *gin.Context) {
	var users []models.User
	err := h.DB.
		Preload("Professional.Specialty").
		Order("created_at asc").
		Find(&users).Error
	if err != nil {
		utils.InternalServerError(c, "Failed to fetch users: "+err.Error())
		return
	}

	sanitized := make([]models.UserSanitized, len(users))
	for i, u := range users {
		sanitized[i] = u.Sanitize()
	}
	utils.Success(c, "Users fetched successfully", sanitized)
}

// CreateUserRequest represents the request body for creating a user.
// Professional fields are required only when the role is PROFESSIONAL.
type CreateUserRequest struct {
	Name        string `json:"name" binding:"required"`
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=8"`
	Role        string `json:"role" binding:"required,oneof=PATIENT PROFESSIONAL RECEPTIONIST"`
	Phone       string `json:"phone"`
	SpecialtyID string `json:"specialtyId"`
	WorkingDays string `json:"workingDays"`
	StartHour   string `json:"startHour"`
	EndHour     string `json:"endHour"`
	Education   string `json:"education"`
	Biography   string `json:"biography"`
	PhotoURL    string `json:"photoUrl"`
}

// CreateUser handles creating a user; a PROFESSIONAL role creates the
// professional record alongside it.
func (h *UserHandler) CreateUser(c *gin.Context) {
	var req CreateUserRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	var existingUser models.User
	if err := h.DB.Where("email = ?", req.Email).First(&existingUser).Error; err == nil {
		utils.BadRequest(c, "User with this email already exists")
		return
	} else if err != gorm.ErrRecordNotFound {
		utils.InternalServerError(c, "Database error: "+err.Error())
		return
	}

	user := models.User{
		Name:  req.Name,
		Email: req.Email,
		Role:  models.Role(req.Role),
		Phone: req.Phone,
	}
	if err := user.SetPassword(req.Password); err != nil {
		utils.InternalServerError(c, "Failed to hash password: "+err.Error())
		return
	}

	if user.Role == models.RoleProfessional {
		if req.SpecialtyID == "" {
			utils.BadRequest(c, "A professional requires a specialty")
			return
		}
		user.Professional = &models.Professional{
			SpecialtyID: req.SpecialtyID,
			WorkingDays: req.WorkingDays,
			StartHour:   req.StartHour,
			EndHour:     req.EndHour,
			Education:   req.Education,
			Biography:   req.Biography,
			PhotoURL:    req.PhotoURL,
		}
	}

	if err := h.DB.Create(&user).Error; err != nil {
		utils.InternalServerError(c, "Failed to create user: "+err.Error())
		return
	}

	utils.Created(c, "User created successfully", user.Sanitize())
}

// UpdateUserRequest represents the request body for updating a user.
type UpdateUserRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role" binding:"omitempty,oneof=PATIENT PROFESSIONAL RECEPTIONIST"`
	Phone string `json:"phone"`
}

// UpdateUser handles updating a user by ID.
func (h *UserHandler) UpdateUser(c *gin.Context) {
	userID := c.Param("id")

	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil { // partial update
		utils.BadRequest(c, "Invalid request payload: "+err.Error())
		return
	}

	var user models.User
	if err := h.DB.First(&user, "id = ?", userID).Error; err != nil {
		utils.NotFound(c, "User not found")
		return
	}

	if req.Name != "" {
		user.Name = req.Name
	}
	if req.Email != "" && req.Email != user.Email {
		var existingUser models.User
		if err := h.DB.Where("email = ? AND id != ?", req.Email, user.ID).First(&existingUser).Error; err == nil {
			utils.BadRequest(c, "New email is already in use")
			return
		} else if err != gorm.ErrRecordNotFound {
			utils.InternalServerError(c, "Database error checking email: "+err.Error())
			return
		}
		user.Email = req.Email
	}
	if req.Role != "" {
		user.Role = models.Role(req.Role)
	}
	if req.Phone != "" {
		user.Phone = req.Phone
	}

	if err := h.DB.Save(&user).Error; err != nil {
		utils.InternalServerError(c, "Failed to update user: "+err.Error())
		return
	}

	utils.Success(c, "User updated successfully", user.Sanitize())
}

// DeleteUser handles deleting a user by ID.
func (h *UserHandler) DeleteUser(c *gin.Context) {
	userID := c.Param("id")

	var user models.User
	if err := h.DB.First(&user, "id = ?", userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "User not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	if err := h.DB.Delete(&models.User{}, "id = ?", userID).Error; err != nil {
		utils.InternalServerError(c, "Failed to delete user: "+err.Error())
		return
	}
	utils.Success(c, "User deleted successfully", nil)
}

// DashboardSummary represents the receptionist dashboard counters.
type DashboardSummary struct {
	Patients          int64 `json:"patients"`
	Professionals     int64 `json:"professionals"`
	Specialties       int64 `json:"specialties"`
	Appointments      int64 `json:"appointments"`
	AppointmentsToday int64 `json:"appointmentsToday"`
}

// GetDashboardSummary handles the receptionist dashboard counters.
func (h *UserHandler) GetDashboardSummary(c *gin.Context) {
	var summary DashboardSummary

	counts := []struct {
		dest  *int64
		query *gorm.DB
	}{
		{&summary.Patients, h.DB.Model(&models.User{}).Where("role = ?", models.RolePatient)},
		{&summary.Professionals, h.DB.Model(&models.User{}).Where("role = ?", models.RoleProfessional)},
		{&summary.Specialties, h.DB.Model(&models.Specialty{})},
		{&summary.Appointments, h.DB.Model(&models.Appointment{})},
	}
	for _, count := range counts {
		if err := count.query.Count(count.dest).Error; err != nil {
			utils.InternalServerError(c, "Failed to build summary: "+err.Error())
			return
		}
	}

	now := time.Now()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	err := h.DB.Model(&models.Appointment{}).
		Where("date >= ? AND date < ?", startOfDay, startOfDay.Add(24*time.Hour)).
		Count(&summary.AppointmentsToday).Error
	if err != nil {
		utils.InternalServerError(c, "Failed to build summary: "+err.Error())
		return
	}

	utils.Success(c, "Summary fetched successfully", summary)
}
