package services

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clinic-agenda-server/internal/models"
)

func TestDispatch_NoPhoneIsSilentNoOp(t *testing.T) {
	db := newTestDB(t)
	sender := okSender()
	service := NewNotificationService(db, sender)

	err := service.Dispatch(BookingCreated{
		Recipient: Recipient{UserID: "u1", Name: "Sem Telefone", Phone: ""},
		Date:      futureDate(1),
	})
	require.NoError(t, err)

	assert.Empty(t, sender.calls)

	var count int64
	require.NoError(t, db.Model(&models.Notification{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestDispatch_SuccessMarksSent(t *testing.T) {
	db := newTestDB(t)
	patient, professional := seedClinic(t, db)
	sender := okSender()
	service := NewNotificationService(db, sender)

	appointment := models.Appointment{
		PatientID:      patient.ID,
		ProfessionalID: professional.ID,
		Date:           futureDate(1),
		Status:         models.StatusScheduled,
	}
	require.NoError(t, db.Create(&appointment).Error)

	err := service.Dispatch(Canceled{
		Recipient:   userRecipient(&patient),
		Appointment: appointment.ID,
		Date:        appointment.Date,
	})
	require.NoError(t, err)
	require.Len(t, sender.calls, 1)

	var notification models.Notification
	require.NoError(t, db.First(&notification).Error)
	assert.Equal(t, models.NotificationSent, notification.Status)
	assert.Equal(t, models.NotificationCancellation, notification.Type)
	assert.Equal(t, models.ChannelWhatsApp, notification.Channel)
	require.NotNil(t, notification.AppointmentID)
	assert.Equal(t, appointment.ID, *notification.AppointmentID)
	assert.Empty(t, notification.ErrorDetail)
	assert.Equal(t, sender.calls[0].Message, notification.Content)
}

func TestDispatch_FailureMarksFailedWithError(t *testing.T) {
	db := newTestDB(t)
	patient, _ := seedClinic(t, db)
	service := NewNotificationService(db, failingSender("gateway returned status 401"))

	err := service.Dispatch(Reminder{
		Recipient: userRecipient(&patient),
		Date:      futureDate(1),
	})
	require.NoError(t, err) // delivery failure is recorded, not raised

	var notification models.Notification
	require.NoError(t, db.First(&notification).Error)
	assert.Equal(t, models.NotificationFailed, notification.Status)
	assert.Equal(t, "gateway returned status 401", notification.ErrorDetail)
}

func TestDispatch_FailureWithoutDetailGetsFallback(t *testing.T) {
	db := newTestDB(t)
	patient, _ := seedClinic(t, db)
	service := NewNotificationService(db, failingSender(""))

	err := service.Dispatch(Reminder{
		Recipient: userRecipient(&patient),
		Date:      futureDate(1),
	})
	require.NoError(t, err)

	var notification models.Notification
	require.NoError(t, db.First(&notification).Error)
	assert.Equal(t, models.NotificationFailed, notification.Status)
	assert.Equal(t, "Erro desconhecido", notification.ErrorDetail)
}

func TestEventTemplates_FallbackPlaceholders(t *testing.T) {
	// Absent fields render literal placeholders, never empty strings.
	reminder := Reminder{}
	assert.Contains(t, reminder.Message(), "Data do agendamento")
	assert.Contains(t, reminder.Message(), "Profissional")

	booked := ProfessionalBooked{}
	assert.Contains(t, booked.Message(), "Paciente")

	custom := Custom{Kind: models.NotificationEdit}
	assert.Equal(t, "Notificação do sistema de agendamento.", custom.Message())
}

func TestEventTemplates_RenderFields(t *testing.T) {
	date := time.Date(2026, 3, 10, 10, 0, 0, 0, time.Local)

	created := BookingCreated{Date: date, Professional: "Dr. João Lima"}
	assert.Contains(t, created.Message(), "10/03/2026 10:00")
	assert.Contains(t, created.Message(), "Dr. João Lima")

	finished := VisitFinished{Professional: "Dr. João Lima", Notes: "repouso"}
	assert.Contains(t, finished.Message(), "repouso")

	withoutNotes := VisitFinished{Professional: "Dr. João Lima"}
	assert.False(t, strings.Contains(withoutNotes.Message(), "Observações"))
}

func TestDispatchReminders_IdempotentPerAppointment(t *testing.T) {
	db := newTestDB(t)
	patient, professional := seedClinic(t, db)
	sender := okSender()
	service := NewNotificationService(db, sender)

	confirmed := models.Appointment{
		PatientID:      patient.ID,
		ProfessionalID: professional.ID,
		Date:           time.Now().Add(6 * time.Hour),
		Status:         models.StatusConfirmed,
	}
	require.NoError(t, db.Create(&confirmed).Error)

	// Outside the 24h window: ignored.
	farAway := models.Appointment{
		PatientID:      patient.ID,
		ProfessionalID: professional.ID,
		Date:           time.Now().Add(72 * time.Hour),
		Status:         models.StatusConfirmed,
	}
	require.NoError(t, db.Create(&farAway).Error)

	// Not confirmed: ignored.
	scheduled := models.Appointment{
		PatientID:      patient.ID,
		ProfessionalID: professional.ID,
		Date:           time.Now().Add(6 * time.Hour),
		Status:         models.StatusScheduled,
	}
	require.NoError(t, db.Create(&scheduled).Error)

	require.NoError(t, service.DispatchReminders())
	require.Len(t, sender.calls, 1)

	var notification models.Notification
	require.NoError(t, db.Where("appointment_id = ?", confirmed.ID).First(&notification).Error)
	assert.Equal(t, models.NotificationReminder, notification.Type)
	assert.Equal(t, models.NotificationSent, notification.Status)

	// Re-running the sweep does not double-send.
	require.NoError(t, service.DispatchReminders())
	assert.Len(t, sender.calls, 1)
}

func TestDispatchReminders_RetriesAfterFailure(t *testing.T) {
	db := newTestDB(t)
	patient, professional := seedClinic(t, db)
	sender := failingSender("instance offline")
	service := NewNotificationService(db, sender)

	confirmed := models.Appointment{
		PatientID:      patient.ID,
		ProfessionalID: professional.ID,
		Date:           time.Now().Add(6 * time.Hour),
		Status:         models.StatusConfirmed,
	}
	require.NoError(t, db.Create(&confirmed).Error)

	require.NoError(t, service.DispatchReminders())
	require.Len(t, sender.calls, 1)

	// The guard only skips SENT reminders, so a FAILED attempt is
	// retried by the next sweep.
	sender.result = SendResult{Success: true, MessageID: "MSG2"}
	require.NoError(t, service.DispatchReminders())
	assert.Len(t, sender.calls, 2)
}

func TestDispatchReminders_SkipsPatientsWithoutPhone(t *testing.T) {
	db := newTestDB(t)
	_, professional := seedClinic(t, db)
	sender := okSender()
	service := NewNotificationService(db, sender)

	phoneless := models.User{
		Name:  "Sem Telefone",
		Email: "semtelefone@example.com",
		Role:  models.RolePatient,
	}
	require.NoError(t, phoneless.SetPassword("supersecret"))
	require.NoError(t, db.Create(&phoneless).Error)

	confirmed := models.Appointment{
		PatientID:      phoneless.ID,
		ProfessionalID: professional.ID,
		Date:           time.Now().Add(6 * time.Hour),
		Status:         models.StatusConfirmed,
	}
	require.NoError(t, db.Create(&confirmed).Error)

	require.NoError(t, service.DispatchReminders())
	assert.Empty(t, sender.calls)

	var count int64
	require.NoError(t, db.Model(&models.Notification{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestListForRecipient_NewestFirst(t *testing.T) {
	db := newTestDB(t)
	patient, _ := seedClinic(t, db)
	sender := okSender()
	service := NewNotificationService(db, sender)

	recipient := userRecipient(&patient)
	require.NoError(t, service.Dispatch(Custom{Kind: models.NotificationEdit, Recipient: recipient, Body: "first"}))
	require.NoError(t, service.Dispatch(Custom{Kind: models.NotificationEdit, Recipient: recipient, Body: "second"}))

	notifications, err := service.ListForRecipient(patient.ID)
	require.NoError(t, err)
	require.Len(t, notifications, 2)
	assert.False(t, notifications[0].CreatedAt.Before(notifications[1].CreatedAt))
}
