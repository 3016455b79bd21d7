package models

import (
	"time"
)

// AppointmentStatus represents the status of an appointment
type AppointmentStatus string

const (
	StatusScheduled AppointmentStatus = "SCHEDULED"
	StatusConfirmed AppointmentStatus = "CONFIRMED"
	StatusCanceled  AppointmentStatus = "CANCELED"
	StatusFinished  AppointmentStatus = "FINISHED"
)

// Appointment represents a scheduled visit of a patient with a professional.
// The (professional, exact datetime) pair is the uniqueness key for
// conflict detection; canceled rows still occupy their slot.
type Appointment struct {
	BaseModel
	PatientID      string            `gorm:"size:36;index" json:"patientId"`
	ProfessionalID string            `gorm:"size:36;index" json:"professionalId"`
	Date           time.Time         `json:"date"`
	Status         AppointmentStatus `gorm:"size:20;default:'SCHEDULED'" json:"status"`
	Notes          string            `gorm:"type:text" json:"notes"`

	// Relations
	Patient      *User           `gorm:"foreignKey:PatientID" json:"patient,omitempty"`
	Professional *Professional   `gorm:"foreignKey:ProfessionalID" json:"professional,omitempty"`
	History      []StatusHistory `gorm:"foreignKey:AppointmentID;constraint:OnDelete:CASCADE" json:"-"`
}

// StatusHistory is the append-only audit trail of status transitions.
// One row per actual change, never per write.
type StatusHistory struct {
	BaseModel
	AppointmentID string            `gorm:"size:36;index" json:"appointmentId"`
	Status        AppointmentStatus `gorm:"size:20" json:"status"`

	Appointment *Appointment `gorm:"foreignKey:AppointmentID" json:"-"`
}
