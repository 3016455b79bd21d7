package services

import (
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"clinic-agenda-server/internal/models"
)

// AppointmentService enforces the booking rules: slot conflicts, the
// future-date constraint, status-history recording and the outbound
// notification triggers.
type AppointmentService struct {
	DB       *gorm.DB
	Notifier *NotificationService
}

// NewAppointmentService creates a new AppointmentService.
func NewAppointmentService(db *gorm.DB, notifier *NotificationService) *AppointmentService {
	return &AppointmentService{DB: db, Notifier: notifier}
}

// CreateAppointmentInput carries the fields needed to book a slot.
type CreateAppointmentInput struct {
	PatientID      string
	ProfessionalID string
	Date           time.Time
	Notes          string
}

// UpdateAppointmentInput carries a partial update; nil fields are left
// untouched.
type UpdateAppointmentInput struct {
	PatientID      *string
	ProfessionalID *string
	Date           *time.Time
	Status         *models.AppointmentStatus
}

// List returns every appointment with its relations eagerly loaded,
// ordered by date ascending.
func (s *AppointmentService) List() ([]models.Appointment, error) {
	var appointments []models.Appointment
	err := s.DB.
		Preload("Patient").
		Preload("Professional.User").
		Preload("Professional.Specialty").
		Order("date asc").
		Find(&appointments).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	return appointments, nil
}

// GetByID returns one appointment with relations, or ErrNotFound.
func (s *AppointmentService) GetByID(id string) (*models.Appointment, error) {
	var appointment models.Appointment
	err := s.DB.
		Preload("Patient").
		Preload("Professional.User").
		Preload("Professional.Specialty").
		First(&appointment, "id = ?", id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch appointment: %w", err)
	}
	return &appointment, nil
}

// Create books a new appointment with status SCHEDULED and notifies
// both parties best-effort.
func (s *AppointmentService) Create(input CreateAppointmentInput) (*models.Appointment, error) {
	var professional models.Professional
	if err := s.DB.Preload("User").First(&professional, "id = ?", input.ProfessionalID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrInvalidProfessional
		}
		return nil, fmt.Errorf("failed to verify professional: %w", err)
	}

	if !input.Date.After(time.Now()) {
		return nil, ErrPastDate
	}

	// The conflict check applies no status filter: a canceled
	// appointment still occupies its slot.
	var conflict models.Appointment
	err := s.DB.Where("professional_id = ? AND date = ?", input.ProfessionalID, input.Date).
		First(&conflict).Error
	if err == nil {
		return nil, ErrSlotConflict
	}
	if err != gorm.ErrRecordNotFound {
		return nil, fmt.Errorf("failed to check slot availability: %w", err)
	}

	appointment := models.Appointment{
		PatientID:      input.PatientID,
		ProfessionalID: input.ProfessionalID,
		Date:           input.Date,
		Notes:          input.Notes,
		Status:         models.StatusScheduled,
	}
	if err := s.DB.Create(&appointment).Error; err != nil {
		return nil, fmt.Errorf("failed to create appointment: %w", err)
	}

	// Best-effort notifications; failures never roll back the booking.
	var patient models.User
	if err := s.DB.First(&patient, "id = ?", input.PatientID).Error; err == nil {
		professionalName := ""
		if professional.User != nil {
			professionalName = professional.User.Name
		}
		s.notify(BookingCreated{
			Recipient:    userRecipient(&patient),
			Appointment:  appointment.ID,
			Date:         appointment.Date,
			Professional: professionalName,
		})
	}

	if professional.User != nil {
		s.notify(ProfessionalBooked{
			Recipient:   userRecipient(professional.User),
			Appointment: appointment.ID,
			Date:        appointment.Date,
			Patient:     patient.Name,
		})
	}

	return &appointment, nil
}

// Update applies a partial update. A date change re-runs the
// future-date and conflict checks (excluding the appointment itself);
// a status change that differs from the current value appends exactly
// one StatusHistory row.
func (s *AppointmentService) Update(id string, input UpdateAppointmentInput) (*models.Appointment, error) {
	var existing models.Appointment
	err := s.DB.
		Preload("Patient").
		Preload("Professional.User").
		First(&existing, "id = ?", id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch appointment: %w", err)
	}

	previousDate := existing.Date
	previousStatus := existing.Status

	professionalID := existing.ProfessionalID
	if input.ProfessionalID != nil {
		professionalID = *input.ProfessionalID
	}

	if input.Date != nil {
		if !input.Date.After(time.Now()) {
			return nil, ErrPastDate
		}
		var conflict models.Appointment
		err := s.DB.Where("professional_id = ? AND date = ? AND id != ?", professionalID, *input.Date, id).
			First(&conflict).Error
		if err == nil {
			return nil, ErrSlotConflict
		}
		if err != gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("failed to check slot availability: %w", err)
		}
	}

	statusChanged := input.Status != nil && *input.Status != previousStatus

	if input.PatientID != nil {
		existing.PatientID = *input.PatientID
	}
	if input.ProfessionalID != nil {
		existing.ProfessionalID = *input.ProfessionalID
	}
	if input.Date != nil {
		existing.Date = *input.Date
	}
	if input.Status != nil {
		existing.Status = *input.Status
	}

	if err := s.DB.Save(&existing).Error; err != nil {
		return nil, fmt.Errorf("failed to update appointment: %w", err)
	}

	// One history row per actual transition; redundant status writes
	// are a no-op.
	if statusChanged {
		history := models.StatusHistory{
			AppointmentID: existing.ID,
			Status:        *input.Status,
		}
		if err := s.DB.Create(&history).Error; err != nil {
			return nil, fmt.Errorf("failed to record status history: %w", err)
		}
	}

	dateChanged := input.Date != nil && !input.Date.Equal(previousDate)

	if dateChanged {
		if existing.Patient != nil {
			s.notify(Rescheduled{
				Recipient:   userRecipient(existing.Patient),
				Appointment: existing.ID,
				OldDate:     previousDate,
				NewDate:     existing.Date,
			})
		}
		if recipient, err := professionalRecipient(&existing); err == nil {
			s.notify(Rescheduled{
				Recipient:   recipient,
				Appointment: existing.ID,
				OldDate:     previousDate,
				NewDate:     existing.Date,
			})
		} else {
			log.Printf("appointment: cannot notify professional for %s: %v", existing.ID, err)
		}
	}

	if statusChanged && *input.Status == models.StatusCanceled {
		if recipient, err := professionalRecipient(&existing); err == nil {
			s.notify(Canceled{
				Recipient:   recipient,
				Appointment: existing.ID,
				Date:        previousDate,
			})
		} else {
			log.Printf("appointment: cannot notify professional for %s: %v", existing.ID, err)
		}
	}

	return &existing, nil
}

// UpdateStatus is the dedicated status-transition entry point. Input is
// restricted to CONFIRMED, CANCELED and FINISHED; confirmations and
// closures additionally notify the patient.
func (s *AppointmentService) UpdateStatus(id string, status models.AppointmentStatus) (*models.Appointment, error) {
	switch status {
	case models.StatusConfirmed, models.StatusCanceled, models.StatusFinished:
	default:
		return nil, ErrInvalidStatus
	}

	updated, err := s.Update(id, UpdateAppointmentInput{Status: &status})
	if err != nil {
		return nil, err
	}

	if updated.Patient != nil {
		professionalName := ""
		if updated.Professional != nil && updated.Professional.User != nil {
			professionalName = updated.Professional.User.Name
		}

		switch status {
		case models.StatusConfirmed:
			s.notify(PresenceConfirmed{
				Recipient:    userRecipient(updated.Patient),
				Appointment:  updated.ID,
				Date:         updated.Date,
				Professional: professionalName,
			})
		case models.StatusFinished:
			s.notify(VisitFinished{
				Recipient:    userRecipient(updated.Patient),
				Appointment:  updated.ID,
				Professional: professionalName,
				Notes:        updated.Notes,
			})
		}
	}

	return updated, nil
}

// Delete removes the appointment row outright. This is the hard-delete
// path, distinct from a status update to CANCELED.
func (s *AppointmentService) Delete(id string) error {
	result := s.DB.Delete(&models.Appointment{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete appointment: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListForPatient returns a patient's appointments ordered by date ascending.
func (s *AppointmentService) ListForPatient(patientID string) ([]models.Appointment, error) {
	var appointments []models.Appointment
	err := s.DB.
		Preload("Professional.User").
		Preload("Professional.Specialty").
		Where("patient_id = ?", patientID).
		Order("date asc").
		Find(&appointments).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list patient appointments: %w", err)
	}
	return appointments, nil
}

// ListForProfessional returns a professional's appointments ordered by
// date ascending. A non-empty dateFilter (YYYY-MM-DD) restricts results
// to that calendar day, [00:00:00, 23:59:59] inclusive.
func (s *AppointmentService) ListForProfessional(professionalID, dateFilter string) ([]models.Appointment, error) {
	query := s.DB.
		Preload("Patient").
		Where("professional_id = ?", professionalID).
		Order("date asc")

	if dateFilter != "" {
		day, err := time.ParseInLocation("2006-01-02", dateFilter, time.Local)
		if err != nil {
			return nil, fmt.Errorf("invalid date filter %q: %w", dateFilter, err)
		}
		start := day
		end := day.Add(23*time.Hour + 59*time.Minute + 59*time.Second)
		query = query.Where("date >= ? AND date <= ?", start, end)
	}

	var appointments []models.Appointment
	if err := query.Find(&appointments).Error; err != nil {
		return nil, fmt.Errorf("failed to list professional appointments: %w", err)
	}
	return appointments, nil
}

// UpdateNotes overwrites the notes field unconditionally.
func (s *AppointmentService) UpdateNotes(id, notes string) (*models.Appointment, error) {
	var appointment models.Appointment
	if err := s.DB.First(&appointment, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch appointment: %w", err)
	}

	appointment.Notes = notes
	if err := s.DB.Save(&appointment).Error; err != nil {
		return nil, fmt.Errorf("failed to update notes: %w", err)
	}
	return &appointment, nil
}

// ListStatusHistory returns the status transitions of one appointment,
// oldest first.
func (s *AppointmentService) ListStatusHistory(appointmentID string) ([]models.StatusHistory, error) {
	var history []models.StatusHistory
	err := s.DB.Where("appointment_id = ?", appointmentID).
		Order("created_at asc").
		Find(&history).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list status history: %w", err)
	}
	return history, nil
}

// ProfessionalByUserID resolves the professional record owned by a user.
func (s *AppointmentService) ProfessionalByUserID(userID string) (*models.Professional, error) {
	var professional models.Professional
	if err := s.DB.First(&professional, "user_id = ?", userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch professional: %w", err)
	}
	return &professional, nil
}

// CancelStale bulk-cancels past appointments still sitting in SCHEDULED
// or CONFIRMED. Runs as a periodic job; writes no history rows.
func (s *AppointmentService) CancelStale() (int64, error) {
	result := s.DB.Model(&models.Appointment{}).
		Where("date < ? AND status IN ?", time.Now(),
			[]models.AppointmentStatus{models.StatusScheduled, models.StatusConfirmed}).
		Update("status", models.StatusCanceled)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to cancel stale appointments: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// notify dispatches one event best-effort, logging instead of failing.
func (s *AppointmentService) notify(event Event) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.Dispatch(event); err != nil {
		log.Printf("appointment: notification dispatch failed: %v", err)
	}
}

func userRecipient(user *models.User) Recipient {
	return Recipient{
		UserID: user.ID,
		Role:   user.Role,
		Name:   user.Name,
		Phone:  user.Phone,
	}
}

// professionalRecipient walks the appointment -> professional -> user
// chain, failing with ErrMissingRelation when a link is absent.
func professionalRecipient(appointment *models.Appointment) (Recipient, error) {
	if appointment.Professional == nil {
		return Recipient{}, fmt.Errorf("appointment %s: professional: %w", appointment.ID, ErrMissingRelation)
	}
	if appointment.Professional.User == nil {
		return Recipient{}, fmt.Errorf("professional %s: user: %w", appointment.Professional.ID, ErrMissingRelation)
	}
	return userRecipient(appointment.Professional.User), nil
}
