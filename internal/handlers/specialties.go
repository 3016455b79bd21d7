package handlers

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"clinic-agenda-server/internal/models"
	"clinic-agenda-server/internal/utils"
)

// SpecialtyHandler handles specialty reference-data requests.
type SpecialtyHandler struct {
	DB *gorm.DB
}

// NewSpecialtyHandler creates a new SpecialtyHandler.
func NewSpecialtyHandler(db *gorm.DB) *SpecialtyHandler {
	return &SpecialtyHandler{DB: db}
}

// GetSpecialties handles listing all specialties ordered by name.
func (h *SpecialtyHandler) GetSpecialties(c *gin.Context) {
	var specialties []models.Specialty
	if err := h.DB.Order("name asc").Find(&specialties).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch specialties: "+err.Error())
		return
	}
	utils.Success(c, "Specialties fetched successfully", specialties)
}

// CreateSpecialtyRequest represents the request body for creating a specialty.
type CreateSpecialtyRequest struct {
	Name string `json:"name" binding:"required"`
}

// CreateSpecialty handles creating a new specialty. Names are unique.
func (h *SpecialtyHandler) CreateSpecialty(c *gin.Context) {
	var req CreateSpecialtyRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	var existing models.Specialty
	if err := h.DB.Where("name = ?", req.Name).First(&existing).Error; err == nil {
		utils.Conflict(c, "Specialty already exists")
		return
	} else if err != gorm.ErrRecordNotFound {
		utils.InternalServerError(c, "Database error: "+err.Error())
		return
	}

	specialty := models.Specialty{Name: req.Name}
	if err := h.DB.Create(&specialty).Error; err != nil {
		utils.InternalServerError(c, "Failed to create specialty: "+err.Error())
		return
	}
	utils.Created(c, "Specialty created successfully", specialty)
}

// DeleteSpecialty handles deleting a specialty by ID.
func (h *SpecialtyHandler) DeleteSpecialty(c *gin.Context) {
	specialtyID := c.Param("id")

	var specialty models.Specialty
	if err := h.DB.First(&specialty, "id = ?", specialtyID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Specialty not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	if err := h.DB.Delete(&models.Specialty{}, "id = ?", specialtyID).Error; err != nil {
		utils.InternalServerError(c, "Failed to delete specialty: "+err.Error())
		return
	}
	utils.NoContent(c)
}
