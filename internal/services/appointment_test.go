package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clinic-agenda-server/internal/models"
)

func newAppointmentService(t *testing.T) (*AppointmentService, *fakeSender, models.User, models.Professional) {
	t.Helper()
	db := newTestDB(t)
	patient, professional := seedClinic(t, db)
	sender := okSender()
	service := NewAppointmentService(db, NewNotificationService(db, sender))
	return service, sender, patient, professional
}

func TestCreate_SetsScheduledStatusAndFutureDate(t *testing.T) {
	service, _, patient, professional := newAppointmentService(t)

	before := time.Now()
	appointment, err := service.Create(CreateAppointmentInput{
		PatientID:      patient.ID,
		ProfessionalID: professional.ID,
		Date:           futureDate(2),
		Notes:          "primeira consulta",
	})
	require.NoError(t, err)

	assert.Equal(t, models.StatusScheduled, appointment.Status)
	assert.True(t, appointment.Date.After(before))
	assert.Equal(t, "primeira consulta", appointment.Notes)
}

func TestCreate_PastDateRejected(t *testing.T) {
	service, _, patient, professional := newAppointmentService(t)

	_, err := service.Create(CreateAppointmentInput{
		PatientID:      patient.ID,
		ProfessionalID: professional.ID,
		Date:           time.Now().Add(-time.Hour),
	})
	assert.ErrorIs(t, err, ErrPastDate)
}

func TestCreate_InvalidProfessional(t *testing.T) {
	service, _, patient, _ := newAppointmentService(t)

	_, err := service.Create(CreateAppointmentInput{
		PatientID:      patient.ID,
		ProfessionalID: "no-such-professional",
		Date:           futureDate(2),
	})
	assert.ErrorIs(t, err, ErrInvalidProfessional)
}

func TestCreate_SlotConflict(t *testing.T) {
	service, _, patient, professional := newAppointmentService(t)
	slot := futureDate(2)

	_, err := service.Create(CreateAppointmentInput{
		PatientID:      patient.ID,
		ProfessionalID: professional.ID,
		Date:           slot,
	})
	require.NoError(t, err)

	// Same professional, exact same datetime: conflict.
	_, err = service.Create(CreateAppointmentInput{
		PatientID:      patient.ID,
		ProfessionalID: professional.ID,
		Date:           slot,
	})
	assert.ErrorIs(t, err, ErrSlotConflict)

	// A distinct datetime succeeds.
	_, err = service.Create(CreateAppointmentInput{
		PatientID:      patient.ID,
		ProfessionalID: professional.ID,
		Date:           slot.Add(30 * time.Minute),
	})
	assert.NoError(t, err)
}

func TestCreate_CanceledAppointmentStillBlocksSlot(t *testing.T) {
	// The conflict check applies no status filter, so a canceled
	// appointment keeps occupying its slot. Pinned on purpose: changing
	// this is a deliberate behavior change, not a refactor.
	service, _, patient, professional := newAppointmentService(t)
	slot := futureDate(2)

	created, err := service.Create(CreateAppointmentInput{
		PatientID:      patient.ID,
		ProfessionalID: professional.ID,
		Date:           slot,
	})
	require.NoError(t, err)

	_, err = service.UpdateStatus(created.ID, models.StatusCanceled)
	require.NoError(t, err)

	_, err = service.Create(CreateAppointmentInput{
		PatientID:      patient.ID,
		ProfessionalID: professional.ID,
		Date:           slot,
	})
	assert.ErrorIs(t, err, ErrSlotConflict)
}

func TestCreate_NotifiesBothParties(t *testing.T) {
	service, sender, patient, professional := newAppointmentService(t)

	appointment, err := service.Create(CreateAppointmentInput{
		PatientID:      patient.ID,
		ProfessionalID: professional.ID,
		Date:           futureDate(2),
	})
	require.NoError(t, err)
	require.Len(t, sender.calls, 2)

	var notifications []models.Notification
	require.NoError(t, service.DB.Where("appointment_id = ?", appointment.ID).Find(&notifications).Error)
	require.Len(t, notifications, 2)
	for _, n := range notifications {
		assert.Equal(t, models.NotificationSent, n.Status)
		assert.Equal(t, models.NotificationEdit, n.Type)
	}
}

func TestCreate_GatewayFailureDoesNotRollBack(t *testing.T) {
	db := newTestDB(t)
	patient, professional := seedClinic(t, db)
	service := NewAppointmentService(db, NewNotificationService(db, failingSender("instance offline")))

	appointment, err := service.Create(CreateAppointmentInput{
		PatientID:      patient.ID,
		ProfessionalID: professional.ID,
		Date:           futureDate(2),
	})
	require.NoError(t, err)

	fetched, err := service.GetByID(appointment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusScheduled, fetched.Status)

	var notifications []models.Notification
	require.NoError(t, db.Where("appointment_id = ?", appointment.ID).Find(&notifications).Error)
	require.Len(t, notifications, 2)
	for _, n := range notifications {
		assert.Equal(t, models.NotificationFailed, n.Status)
		assert.Equal(t, "instance offline", n.ErrorDetail)
	}
}

func TestUpdate_NotFound(t *testing.T) {
	service, _, _, _ := newAppointmentService(t)

	_, err := service.Update("missing-id", UpdateAppointmentInput{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdate_StatusChangeAppendsSingleHistoryRow(t *testing.T) {
	service, _, patient, professional := newAppointmentService(t)

	appointment, err := service.Create(CreateAppointmentInput{
		PatientID:      patient.ID,
		ProfessionalID: professional.ID,
		Date:           futureDate(2),
	})
	require.NoError(t, err)

	confirmed := models.StatusConfirmed
	_, err = service.Update(appointment.ID, UpdateAppointmentInput{Status: &confirmed})
	require.NoError(t, err)

	history, err := service.ListStatusHistory(appointment.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, models.StatusConfirmed, history[0].Status)

	// Redundant write: same status again appends nothing.
	_, err = service.Update(appointment.ID, UpdateAppointmentInput{Status: &confirmed})
	require.NoError(t, err)

	history, err = service.ListStatusHistory(appointment.ID)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestUpdate_DateChangeRevalidates(t *testing.T) {
	service, _, patient, professional := newAppointmentService(t)
	slotA := futureDate(2)
	slotB := futureDate(3)

	first, err := service.Create(CreateAppointmentInput{
		PatientID:      patient.ID,
		ProfessionalID: professional.ID,
		Date:           slotA,
	})
	require.NoError(t, err)

	second, err := service.Create(CreateAppointmentInput{
		PatientID:      patient.ID,
		ProfessionalID: professional.ID,
		Date:           slotB,
	})
	require.NoError(t, err)

	// Moving onto another appointment's slot conflicts.
	_, err = service.Update(second.ID, UpdateAppointmentInput{Date: &slotA})
	assert.ErrorIs(t, err, ErrSlotConflict)

	// Re-writing an appointment's own datetime is not a conflict with itself.
	_, err = service.Update(first.ID, UpdateAppointmentInput{Date: &slotA})
	assert.NoError(t, err)

	// A past datetime is rejected.
	past := time.Now().Add(-time.Hour)
	_, err = service.Update(second.ID, UpdateAppointmentInput{Date: &past})
	assert.ErrorIs(t, err, ErrPastDate)
}

func TestUpdate_DateChangeNotifiesBothParties(t *testing.T) {
	service, sender, patient, professional := newAppointmentService(t)

	appointment, err := service.Create(CreateAppointmentInput{
		PatientID:      patient.ID,
		ProfessionalID: professional.ID,
		Date:           futureDate(2),
	})
	require.NoError(t, err)
	sender.calls = nil

	newDate := futureDate(4)
	_, err = service.Update(appointment.ID, UpdateAppointmentInput{Date: &newDate})
	require.NoError(t, err)

	assert.Len(t, sender.calls, 2)
}

func TestUpdateStatus_RejectsScheduled(t *testing.T) {
	service, _, patient, professional := newAppointmentService(t)

	appointment, err := service.Create(CreateAppointmentInput{
		PatientID:      patient.ID,
		ProfessionalID: professional.ID,
		Date:           futureDate(2),
	})
	require.NoError(t, err)

	_, err = service.UpdateStatus(appointment.ID, models.StatusScheduled)
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestUpdateStatus_CancelKeepsRowAndNotifiesProfessional(t *testing.T) {
	service, sender, patient, professional := newAppointmentService(t)

	appointment, err := service.Create(CreateAppointmentInput{
		PatientID:      patient.ID,
		ProfessionalID: professional.ID,
		Date:           futureDate(2),
	})
	require.NoError(t, err)
	sender.calls = nil

	updated, err := service.UpdateStatus(appointment.ID, models.StatusCanceled)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCanceled, updated.Status)

	// Soft cancel keeps the row.
	fetched, err := service.GetByID(appointment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCanceled, fetched.Status)

	// Only the professional is told about a cancellation.
	require.Len(t, sender.calls, 1)
	var notification models.Notification
	require.NoError(t, service.DB.
		Where("appointment_id = ? AND type = ?", appointment.ID, models.NotificationCancellation).
		First(&notification).Error)
	assert.Equal(t, professional.UserID, notification.RecipientID)
}

func TestUpdateStatus_ConfirmAndFinishNotifyPatient(t *testing.T) {
	service, _, patient, professional := newAppointmentService(t)

	appointment, err := service.Create(CreateAppointmentInput{
		PatientID:      patient.ID,
		ProfessionalID: professional.ID,
		Date:           futureDate(2),
	})
	require.NoError(t, err)

	_, err = service.UpdateStatus(appointment.ID, models.StatusConfirmed)
	require.NoError(t, err)

	var confirmation models.Notification
	require.NoError(t, service.DB.
		Where("appointment_id = ? AND type = ?", appointment.ID, models.NotificationPresence).
		First(&confirmation).Error)
	assert.Equal(t, patient.ID, confirmation.RecipientID)

	_, err = service.UpdateStatus(appointment.ID, models.StatusFinished)
	require.NoError(t, err)

	var postVisit models.Notification
	require.NoError(t, service.DB.
		Where("appointment_id = ? AND type = ?", appointment.ID, models.NotificationPostVisit).
		First(&postVisit).Error)
	assert.Equal(t, patient.ID, postVisit.RecipientID)
}

func TestDelete_HardDeleteRemovesRow(t *testing.T) {
	service, _, patient, professional := newAppointmentService(t)

	appointment, err := service.Create(CreateAppointmentInput{
		PatientID:      patient.ID,
		ProfessionalID: professional.ID,
		Date:           futureDate(2),
	})
	require.NoError(t, err)

	require.NoError(t, service.Delete(appointment.ID))

	_, err = service.GetByID(appointment.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	// Deleting again reports not found.
	assert.ErrorIs(t, service.Delete(appointment.ID), ErrNotFound)
}

func TestDelete_ClearsHistoryAndKeepsNotificationLog(t *testing.T) {
	service, _, patient, professional := newAppointmentService(t)

	appointment, err := service.Create(CreateAppointmentInput{
		PatientID:      patient.ID,
		ProfessionalID: professional.ID,
		Date:           futureDate(2),
	})
	require.NoError(t, err)

	// Confirm first so the appointment carries history and notification
	// rows when it is hard-deleted.
	_, err = service.UpdateStatus(appointment.ID, models.StatusConfirmed)
	require.NoError(t, err)

	require.NoError(t, service.Delete(appointment.ID))

	// History rows go with their appointment.
	history, err := service.ListStatusHistory(appointment.ID)
	require.NoError(t, err)
	assert.Empty(t, history)

	// The notification log is an audit trail: rows survive, detached
	// from the deleted appointment.
	var notifications []models.Notification
	require.NoError(t, service.DB.Where("recipient_id = ?", patient.ID).Find(&notifications).Error)
	assert.NotEmpty(t, notifications)
	for _, n := range notifications {
		assert.Nil(t, n.AppointmentID)
	}
}

func TestListForProfessional_DateFilterInclusive(t *testing.T) {
	service, _, patient, professional := newAppointmentService(t)

	day := time.Now().Add(72 * time.Hour)
	startOfDay := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.Local)
	endOfDay := startOfDay.Add(23*time.Hour + 59*time.Minute + 59*time.Second)

	inWindow := []time.Time{startOfDay, startOfDay.Add(10 * time.Hour), endOfDay}
	outOfWindow := []time.Time{startOfDay.Add(-time.Second), startOfDay.Add(24 * time.Hour)}

	for _, date := range append(inWindow, outOfWindow...) {
		appointment := models.Appointment{
			PatientID:      patient.ID,
			ProfessionalID: professional.ID,
			Date:           date,
			Status:         models.StatusScheduled,
		}
		require.NoError(t, service.DB.Create(&appointment).Error)
	}

	filtered, err := service.ListForProfessional(professional.ID, startOfDay.Format("2006-01-02"))
	require.NoError(t, err)
	require.Len(t, filtered, len(inWindow))

	// Ordered by datetime ascending.
	for i := 1; i < len(filtered); i++ {
		assert.False(t, filtered[i].Date.Before(filtered[i-1].Date))
	}

	// Without the filter, everything comes back.
	all, err := service.ListForProfessional(professional.ID, "")
	require.NoError(t, err)
	assert.Len(t, all, len(inWindow)+len(outOfWindow))
}

func TestListForPatient_OrderedAscending(t *testing.T) {
	service, _, patient, professional := newAppointmentService(t)

	for _, days := range []int{5, 2, 9} {
		_, err := service.Create(CreateAppointmentInput{
			PatientID:      patient.ID,
			ProfessionalID: professional.ID,
			Date:           futureDate(days),
		})
		require.NoError(t, err)
	}

	appointments, err := service.ListForPatient(patient.ID)
	require.NoError(t, err)
	require.Len(t, appointments, 3)
	for i := 1; i < len(appointments); i++ {
		assert.True(t, appointments[i].Date.After(appointments[i-1].Date))
	}
}

func TestUpdateNotes(t *testing.T) {
	service, _, patient, professional := newAppointmentService(t)

	appointment, err := service.Create(CreateAppointmentInput{
		PatientID:      patient.ID,
		ProfessionalID: professional.ID,
		Date:           futureDate(2),
		Notes:          "original",
	})
	require.NoError(t, err)

	updated, err := service.UpdateNotes(appointment.ID, "retorno em 30 dias")
	require.NoError(t, err)
	assert.Equal(t, "retorno em 30 dias", updated.Notes)

	// Empty string is a valid overwrite.
	updated, err = service.UpdateNotes(appointment.ID, "")
	require.NoError(t, err)
	assert.Equal(t, "", updated.Notes)

	_, err = service.UpdateNotes("missing-id", "whatever")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCancelStale(t *testing.T) {
	service, _, patient, professional := newAppointmentService(t)

	stale := models.Appointment{
		PatientID:      patient.ID,
		ProfessionalID: professional.ID,
		Date:           time.Now().Add(-48 * time.Hour),
		Status:         models.StatusScheduled,
	}
	require.NoError(t, service.DB.Create(&stale).Error)

	upcoming, err := service.Create(CreateAppointmentInput{
		PatientID:      patient.ID,
		ProfessionalID: professional.ID,
		Date:           futureDate(2),
	})
	require.NoError(t, err)

	canceled, err := service.CancelStale()
	require.NoError(t, err)
	assert.Equal(t, int64(1), canceled)

	fetched, err := service.GetByID(stale.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCanceled, fetched.Status)

	fetched, err = service.GetByID(upcoming.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusScheduled, fetched.Status)
}

func TestBookingLifecycleScenario(t *testing.T) {
	service, _, patient, professional := newAppointmentService(t)
	slot := futureDate(10)

	created, err := service.Create(CreateAppointmentInput{
		PatientID:      patient.ID,
		ProfessionalID: professional.ID,
		Date:           slot,
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusScheduled, created.Status)

	_, err = service.Create(CreateAppointmentInput{
		PatientID:      patient.ID,
		ProfessionalID: professional.ID,
		Date:           slot,
	})
	require.ErrorIs(t, err, ErrSlotConflict)

	confirmed := models.StatusConfirmed
	_, err = service.Update(created.ID, UpdateAppointmentInput{Status: &confirmed})
	require.NoError(t, err)

	history, err := service.ListStatusHistory(created.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, models.StatusConfirmed, history[0].Status)

	_, err = service.Update(created.ID, UpdateAppointmentInput{Status: &confirmed})
	require.NoError(t, err)

	history, err = service.ListStatusHistory(created.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)

	require.NoError(t, service.Delete(created.ID))
	_, err = service.GetByID(created.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
